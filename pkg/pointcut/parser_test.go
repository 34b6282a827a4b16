package pointcut

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-park/weaver/pkg/config"
	"github.com/go-park/weaver/pkg/reflection"
)

func testReflection() *reflection.Registry {
	return reflection.NewRegistry(
		&reflection.Class{
			Name: "shop.Order",
			Tags: reflection.Tags{"entity": nil},
			Methods: []*reflection.Method{
				{Name: "Save", Visibility: reflection.Public, Tags: reflection.Tags{"transactional": nil}},
				{Name: "save", Visibility: reflection.Protected},
				{Name: "Total", Visibility: reflection.Public, Final: true},
			},
			Interfaces: []string{"shop.Persistable"},
		},
		&reflection.Class{
			Name:    "shop.Invoice",
			Final:   true,
			Tags:    reflection.Tags{"entity": nil},
			Methods: []*reflection.Method{{Name: "Save", Visibility: reflection.Public}},
		},
		&reflection.Class{
			Name:    "shop.Cart",
			Methods: []*reflection.Method{{Name: "Add", Visibility: reflection.Public}},
		},
	)
}

type resolverFunc func(aspect, method string) (*Pointcut, error)

func (f resolverFunc) FindPointcut(aspect, method string) (*Pointcut, error) { return f(aspect, method) }

func TestParser_Parse(t *testing.T) {
	p := NewParser(WithReflection(testReflection()))

	tests := []struct {
		name       string
		expression string
		operators  []Operator
	}{
		{"tagged and method", "classTaggedWith(entity) && method(public .*->save())", []Operator{And, And}},
		{"negation", "class(shop\\.Order) && !class(shop\\.Cart)", []Operator{And, AndNot}},
		{"or negation", "class(shop\\.Order) || !within(shop\\.Persistable)", []Operator{And, OrNot}},
		{"leading negation", "!class(shop\\.Cart)", []Operator{AndNot}},
		{"reference", "shop.Aspect->orders || pointcut(shop.Aspect->carts)", []Operator{And, Or}},
		{"nested operators", "method(shop\\.(Order||Cart)->Save())", []Operator{And}},
		{"tagged method", "methodTaggedWith(transactional)", []Operator{And}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := p.Parse(tt.expression, "test")
			require.NoError(t, err)
			assert.Equal(t, tt.operators, c.Operators())
		})
	}
}

func TestParser_Parse_filterKinds(t *testing.T) {
	p := NewParser(WithReflection(testReflection()))
	c, err := p.Parse("classTaggedWith(entity) && method(public .*->save())", "test")
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	filters := c.Filters()
	assert.IsType(t, &ClassTaggedWithFilter{}, filters[0])
	sub, ok := filters[1].(*Composite)
	require.True(t, ok)
	assert.Equal(t, []Operator{And, And}, sub.Operators())
	assert.IsType(t, &ClassNameFilter{}, sub.Filters()[0])
	mf, ok := sub.Filters()[1].(*MethodNameFilter)
	require.True(t, ok)
	assert.Equal(t, ".*", sub.Filters()[0].(*ClassNameFilter).Pattern())
	assert.Equal(t, "save", mf.Pattern())
	require.NotNil(t, mf.Visibility())
	assert.Equal(t, reflection.Public, *mf.Visibility())
}

func TestParser_Parse_errors(t *testing.T) {
	p := NewParser(WithReflection(testReflection()))
	tests := []struct {
		name       string
		expression string
	}{
		{"empty", "  "},
		{"unknown designator", "klass(shop\\.Order)"},
		{"unbalanced open", "method(foo("},
		{"unbalanced close", "class(shop\\.Order))"},
		{"method without arrow", "method(public save())"},
		{"bad visibility", "method(private shop\\.Order->save())"},
		{"double visibility", "method(public protected shop\\.Order->save())"},
		{"reference without arrow", "classA"},
		{"dangling operator", "class(shop\\.Order) && "},
		{"unknown filter", "filter(nope)"},
		{"evaluate syntax", "evaluate(args.id >)"},
		{"setting quotes", "setting(Acme.enabled = 'on)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.expression, "shop.Aspect->advice")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidExpression), err.Error())
			assert.Contains(t, err.Error(), "shop.Aspect->advice")
		})
	}
}

func TestParser_Parse_malformedRegex(t *testing.T) {
	_, err := NewParser().Parse("class([a-)", "test")
	assert.ErrorIs(t, err, ErrInternal)
}

func TestParser_Parse_missingSetting(t *testing.T) {
	_, err := NewParser().Parse("setting(Acme.missing)", "test")
	assert.ErrorIs(t, err, ErrConfiguration)

	settings := config.Settings{"Acme": map[string]any{"logging": true}}
	p := NewParser(WithSettings(settings))
	c, err := p.Parse("setting(Acme.missing)", "test")
	require.NoError(t, err)
	ok, err := c.Matches(Query{ClassName: "shop.Order"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.Parse("setting(Acme.missing = 'on')", "test")
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = p.Parse("setting(Acme.logging.level)", "test")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParser_Parse_evaluate(t *testing.T) {
	p := NewParser(WithReflection(testReflection()))
	c, err := p.Parse("class(shop\\.Order) && evaluate(args.id > 10) && !evaluate(args.dryRun)", "test")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "(args.id > 10) && !(args.dryRun)", c.RuntimeCondition())

	ok, err := c.Matches(Query{ClassName: "shop.Order"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParser_Parse_customFilter(t *testing.T) {
	onlyCart := FilterFunc(func(q Query) (bool, error) { return q.ClassName == "shop.Cart", nil })
	p := NewParser(WithFilters(Filters{"onlyCart": onlyCart}))
	c, err := p.Parse("filter(onlyCart)", "test")
	require.NoError(t, err)

	ok, err := c.Matches(Query{ClassName: "shop.Cart"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Matches(Query{ClassName: "shop.Order"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParser_Parse_setting(t *testing.T) {
	settings, err := config.LoadSettings([]byte("Acme:\n  logging: true\n  mode: strict\n  audit: false\n"))
	require.NoError(t, err)
	p := NewParser(WithSettings(settings))

	tests := []struct {
		expression string
		want       bool
	}{
		{"setting(Acme.logging)", true},
		{"setting(Acme.audit)", false},
		{"setting(Acme.mode = 'strict')", true},
		{"setting(Acme:mode = \"lenient\")", false},
		{"setting(Acme.mode)", false},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			c, err := p.Parse(tt.expression, "test")
			require.NoError(t, err)
			got, err := c.Matches(Query{ClassName: "shop.Order"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_Parse_reference(t *testing.T) {
	r := testReflection()
	p := NewParser(WithReflection(r))
	orders, err := p.Parse("class(shop\\.Order)", "shop.Aspect->orders")
	require.NoError(t, err)
	named := New("class(shop\\.Order)", orders, "shop.Aspect", "orders")

	p = NewParser(WithReflection(r), WithResolver(resolverFunc(func(aspect, method string) (*Pointcut, error) {
		if aspect == "shop.Aspect" && method == "orders" {
			return named, nil
		}
		return nil, ErrConfiguration
	})))
	c, err := p.Parse("shop.Aspect->orders && method(.*->Save())", "test")
	require.NoError(t, err)

	ok, err := c.Matches(Query{ClassName: "shop.Order", MethodName: "Save", ID: "1"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Matches(Query{ClassName: "shop.Cart", MethodName: "Save", ID: "2"})
	require.NoError(t, err)
	assert.False(t, ok)

	c, err = p.Parse("shop.Aspect->unknown", "test")
	require.NoError(t, err)
	_, err = c.Matches(Query{ClassName: "shop.Order", ID: "3"})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSubstringBetweenParentheses(t *testing.T) {
	got, err := SubstringBetweenParentheses("method(foo(bar)->baz())")
	require.NoError(t, err)
	assert.Equal(t, "foo(bar)->baz()", got)

	got, err = SubstringBetweenParentheses("class( spaced )")
	require.NoError(t, err)
	assert.Equal(t, " spaced ", got)

	_, err = SubstringBetweenParentheses("method(foo(")
	assert.ErrorIs(t, err, ErrInvalidExpression)
	_, err = SubstringBetweenParentheses("method(foo))")
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestSplitByOperator(t *testing.T) {
	ops, terms := splitByOperator("a(x && y) && b(z)|| !c(w)")
	assert.Equal(t, []string{"&&", "||"}, ops)
	assert.Equal(t, []string{"a(x && y)", "b(z)", "!c(w)"}, terms)
}

func TestComposite_MatchCondition_reference(t *testing.T) {
	r := testReflection()
	large, err := NewParser(WithReflection(r)).Parse("class(shop\\.Order) && evaluate(args.amount > 1000)", "shop.Aspect->large")
	require.NoError(t, err)
	named := New("class(shop\\.Order) && evaluate(args.amount > 1000)", large, "shop.Aspect", "large")
	p := NewParser(WithReflection(r), WithResolver(resolverFunc(func(aspect, method string) (*Pointcut, error) {
		return named, nil
	})))

	tests := []struct {
		expression string
		want       string
	}{
		{"shop.Aspect->large", "(args.amount > 1000)"},
		{"pointcut(shop.Aspect->large) && method(.*->Save())", "(args.amount > 1000)"},
		{"class(shop\\.Order) && evaluate(args.id > 0) && shop.Aspect->large", "(args.id > 0) && (args.amount > 1000)"},
		{"class(shop\\.Order) && !shop.Aspect->large", "!(args.amount > 1000)"},
		{"class(shop\\.Order) && evaluate((args.id > 0) || args.force == true)", "((args.id > 0) || args.force == true)"},
	}
	for i, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			c, err := p.Parse(tt.expression, "test")
			require.NoError(t, err)
			ok, cond, err := c.MatchCondition(Query{ClassName: "shop.Order", MethodName: "Save", ID: strconv.Itoa(i)})
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, cond)
		})
	}

	c, err := p.Parse("shop.Aspect->large || class(shop\\.Invoice)", "test")
	require.NoError(t, err)
	ok, cond, err := c.MatchCondition(Query{ClassName: "shop.Invoice", MethodName: "Save", ID: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, cond)
}
