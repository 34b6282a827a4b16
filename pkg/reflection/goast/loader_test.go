package goast

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-park/weaver/pkg/aop"
	"github.com/go-park/weaver/pkg/reflection"
)

func loadShop(t *testing.T) *reflection.Registry {
	t.Helper()
	l := NewLoader()
	require.NoError(t, l.ParseFiles("example.com/shop", filepath.Join("testdata", "shop", "order.go")))
	return l.Registry()
}

func TestLoader_classes(t *testing.T) {
	r := loadShop(t)
	assert.Equal(t, []string{"shop.Order", "shop.Auditable", "shop.LoggingAspect", "shop.OrderProxy"}, r.ClassNames())

	order, ok := r.Class("shop.Order")
	require.True(t, ok)
	assert.Equal(t, "shop", order.Package)
	assert.Equal(t, "example.com/shop", order.PackagePath)
	assert.Equal(t, reflection.Tags{"entity": nil, "table": {"orders"}}, order.Tags)
	assert.Equal(t, "NewOrder", order.Constructor)
	assert.Equal(t, []string{
		`"context"`,
		`log "github.com/sirupsen/logrus"`,
		`"github.com/go-park/weaver/pkg/aop"`,
	}, order.Imports)
	assert.Equal(t, []string{"shop.Auditable"}, order.Interfaces)
	assert.False(t, order.Final)
	assert.False(t, order.Interface)

	iface, ok := r.Class("shop.Auditable")
	require.True(t, ok)
	assert.True(t, iface.Interface)
	assert.Equal(t, []string{"Save"}, r.ClassMethodNames("shop.Auditable"))

	assert.Equal(t, []string{aop.ProxyInterfaceName}, r.InterfaceNames("shop.OrderProxy"))
	assert.True(t, r.IsClassTaggedWith("shop.LoggingAspect", "aspect"))
	assert.False(t, r.ClassExists("shop.Status"))
}

func TestLoader_methods(t *testing.T) {
	r := loadShop(t)
	assert.Equal(t, []string{"Save", "Total", "reset"}, r.ClassMethodNames("shop.Order"))

	sig, ok := r.MethodSignature("shop.Order", "Save")
	require.True(t, ok)
	assert.Equal(t, reflection.Signature{
		Params:   []reflection.Param{{Name: "ctx", Type: "context.Context"}, {Name: "ids", Type: "...int"}},
		Results:  []reflection.Param{{Type: "error"}},
		Variadic: true,
	}, sig)
	assert.Equal(t, reflection.Tags{"transactional": nil}, r.MethodTagsValues("shop.Order", "Save"))
	assert.Equal(t, reflection.Public, r.MethodVisibility("shop.Order", "Save"))

	sig, _ = r.MethodSignature("shop.Order", "Total")
	assert.Equal(t, []reflection.Param{{Name: "sum", Type: "int"}, {Name: "err", Type: "error"}}, sig.Results)
	assert.True(t, r.IsMethodFinal("shop.Order", "Total"))
	assert.Equal(t, reflection.Protected, r.MethodVisibility("shop.Order", "reset"))

	assert.Equal(t, reflection.Tags{
		"before": {`method(shop\.Order->Save())`},
		"after":  {`method(.*->Total())`},
	}, r.MethodTagsValues("shop.LoggingAspect", "Log"))
}

func TestLoader_properties(t *testing.T) {
	r := loadShop(t)
	assert.Equal(t, []string{"ID", "note"}, r.ClassPropertyNames("shop.Order"))
	assert.Equal(t, "int", r.PropertyType("shop.Order", "ID"))
	assert.Equal(t, "ID of the order.", r.PropertyDoc("shop.Order", "ID"))
	assert.Equal(t, "free text", r.PropertyDoc("shop.Order", "note"))
	assert.Equal(t, reflection.Protected, r.PropertyVisibility("shop.Order", "note"))
	assert.Empty(t, r.ClassPropertyNames("shop.OrderProxy"))
}

func TestLoader_ParseSource(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.ParseSource("example.com/cart", "cart.go", `package cart

//@Final
type Cart struct{}

//@Abstract
type Base struct{}
`))
	r := l.Registry()
	assert.True(t, r.IsClassFinal("cart.Cart"))
	assert.True(t, r.IsClassAbstract("cart.Base"))
	_, ok := r.Constructor("cart.Cart")
	assert.False(t, ok)

	assert.Error(t, l.ParseSource("example.com/cart", "broken.go", "package cart\nfunc {"))
}

func TestLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	r, err := Load("github.com/go-park/weaver/pkg/aop")
	require.NoError(t, err)
	assert.True(t, r.ClassExists("aop.JoinPoint"))
	assert.True(t, r.IsInterface("aop.Proxy"))
}
