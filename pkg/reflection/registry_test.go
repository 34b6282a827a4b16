package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(
		&Class{
			Name:        "shop.Order",
			Package:     "shop",
			PackagePath: "example.com/shop",
			Tags:        Tags{"entity": nil},
			Interfaces:  []string{"shop.Auditable"},
			Constructor: "NewOrder",
			Methods: []*Method{
				{Name: "Save", Tags: Tags{"transactional": nil}},
				{Name: "reset", Visibility: Protected, Final: true, DeclaringClass: "shop.Base"},
			},
			Properties: []*Property{{Name: "id", Type: "int", Visibility: Protected, Doc: "primary key"}},
		},
		&Class{Name: "shop.Cart"},
	)

	assert.Equal(t, []string{"shop.Order", "shop.Cart"}, r.ClassNames())
	assert.True(t, r.IsClassTaggedWith("shop.Order", "entity"))
	assert.False(t, r.IsClassTaggedWith("shop.Cart", "entity"))
	assert.True(t, r.ImplementsInterface("shop.Order", "shop.Auditable"))
	pkg, path := r.ClassPackage("shop.Order")
	assert.Equal(t, "shop", pkg)
	assert.Equal(t, "example.com/shop", path)

	assert.Equal(t, []string{"Save", "reset"}, r.ClassMethodNames("shop.Order"))
	declaring, ok := r.MethodDeclaringClass("shop.Order", "Save")
	assert.True(t, ok)
	assert.Equal(t, "shop.Order", declaring)
	declaring, _ = r.MethodDeclaringClass("shop.Order", "reset")
	assert.Equal(t, "shop.Base", declaring)
	assert.True(t, r.IsMethodFinal("shop.Order", "reset"))
	assert.Equal(t, Protected, r.MethodVisibility("shop.Order", "reset"))
	assert.False(t, r.HasMethod("shop.Cart", "Save"))

	ctor, ok := r.Constructor("shop.Order")
	assert.True(t, ok)
	assert.Equal(t, "NewOrder", ctor)
	_, ok = r.Constructor("shop.Cart")
	assert.False(t, ok)

	assert.Equal(t, "int", r.PropertyType("shop.Order", "id"))
	assert.Equal(t, "primary key", r.PropertyDoc("shop.Order", "id"))

	r.Add(&Class{Name: "shop.Cart", Final: true})
	assert.Equal(t, []string{"shop.Order", "shop.Cart"}, r.ClassNames())
	assert.True(t, r.IsClassFinal("shop.Cart"))
}

func TestParseVisibility(t *testing.T) {
	v, ok := ParseVisibility("Protected")
	assert.True(t, ok)
	assert.Equal(t, Protected, v)
	_, ok = ParseVisibility("internal")
	assert.False(t, ok)
	assert.Equal(t, "public", Public.String())
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "Order", ShortName("shop.Order"))
	assert.Equal(t, "Order", ShortName("Order"))
	assert.Equal(t, []string{"a", "b"}, SortedTagNames(Tags{"b": nil, "a": {"x"}}))
}
