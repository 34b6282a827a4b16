// Package aspect holds the aspect model: advices bound to pointcuts,
// introductions and named pointcuts, grouped per aspect class.
package aspect

import (
	"github.com/go-park/weaver/pkg/aop"
	"github.com/go-park/weaver/pkg/pointcut"
	"github.com/go-park/weaver/pkg/reflection"
)

// ErrConfiguration reports an aspect that cannot be woven as declared.
var ErrConfiguration = pointcut.ErrConfiguration

var (
	_ Advice       = (*advice)(nil)
	_ Advisor      = (*advisor)(nil)
	_ Introduction = (*introduction)(nil)
	_ Container    = (*container)(nil)
)

type (
	Nameable interface {
		Name() string
	}

	// Advice is one advice method of an aspect.
	Advice interface {
		Nameable
		Kind() aop.Kind
		AspectClassName() string
		// Condition is the evaluate() condition checked on every call.
		Condition() string
		Ref() aop.AdviceRef
		// Invocable resolves the aspect instance through c and binds the
		// advice method.
		Invocable(c aop.Container) (aop.Invocable, error)
	}

	// Advisor binds one advice to one pointcut.
	Advisor interface {
		Advice() Advice
		Pointcut() *pointcut.Pointcut
		// Match matches q and returns the advice carrying the runtime
		// condition of that match, which includes the conditions of
		// referenced pointcuts.
		Match(q pointcut.Query) (Advice, bool, error)
	}

	// Introduction adds an interface or a property to matching classes.
	Introduction interface {
		AspectClassName() string
		// InterfaceName is set for interface introductions.
		InterfaceName() string
		// Property is set for property introductions.
		Property() *IntroducedProperty
		Pointcut() *pointcut.Pointcut
	}

	// Container groups everything one aspect class declares.
	Container interface {
		Nameable
		Advisors() []Advisor
		Introductions() []Introduction
		// Pointcut returns the pointcut declared with a pointcut tag on method.
		Pointcut(method string) (*pointcut.Pointcut, bool)
		PointcutNames() []string
		Empty() bool
	}
)

// IntroducedProperty describes a property copied into proxies.
type IntroducedProperty struct {
	Name       string
	Type       string
	Visibility reflection.Visibility
	Doc        string
}

type (
	// implement Advice
	advice struct {
		kind      aop.Kind
		aspect    string
		name      string
		condition string
	}
	// implement Advisor
	advisor struct {
		advice   Advice
		pointcut *pointcut.Pointcut
	}
	// implement Introduction
	introduction struct {
		aspect        string
		interfaceName string
		property      *IntroducedProperty
		pointcut      *pointcut.Pointcut
	}
	// implement Container
	container struct {
		name          string
		advisors      []Advisor
		introductions []Introduction
		pointcuts     map[string]*pointcut.Pointcut
		pointcutNames []string
	}
)

func NewAdvice(opts ...Option[advice]) Advice {
	a := &advice{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func NewAdvisor(a Advice, p *pointcut.Pointcut) Advisor {
	return &advisor{advice: a, pointcut: p}
}

func NewIntroduction(opts ...Option[introduction]) Introduction {
	i := &introduction{}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func NewContainer(opts ...Option[container]) Container {
	c := &container{pointcuts: map[string]*pointcut.Pointcut{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (a *advice) Name() string            { return a.name }
func (a *advice) Kind() aop.Kind          { return a.kind }
func (a *advice) AspectClassName() string { return a.aspect }
func (a *advice) Condition() string       { return a.condition }

func (a *advice) Ref() aop.AdviceRef {
	return aop.AdviceRef{Kind: a.kind, Aspect: a.aspect, Method: a.name, Condition: a.condition}
}

func (a *advice) Invocable(c aop.Container) (aop.Invocable, error) {
	return aop.Bind(a.Ref(), c)
}

func (a *advisor) Advice() Advice               { return a.advice }
func (a *advisor) Pointcut() *pointcut.Pointcut { return a.pointcut }

func (a *advisor) Match(q pointcut.Query) (Advice, bool, error) {
	ok, cond, err := a.pointcut.MatchCondition(q)
	if err != nil || !ok {
		return nil, false, err
	}
	if cond == a.advice.Condition() {
		return a.advice, true, nil
	}
	return NewAdvice(
		WithAdviceKind(a.advice.Kind()),
		WithAdviceMethod(a.advice.AspectClassName(), a.advice.Name()),
		WithAdviceCondition(cond),
	), true, nil
}

func (i *introduction) AspectClassName() string       { return i.aspect }
func (i *introduction) InterfaceName() string         { return i.interfaceName }
func (i *introduction) Property() *IntroducedProperty { return i.property }
func (i *introduction) Pointcut() *pointcut.Pointcut  { return i.pointcut }

func (c *container) Name() string                  { return c.name }
func (c *container) Advisors() []Advisor           { return c.advisors }
func (c *container) Introductions() []Introduction { return c.introductions }
func (c *container) PointcutNames() []string       { return c.pointcutNames }

func (c *container) Pointcut(method string) (*pointcut.Pointcut, bool) {
	p, ok := c.pointcuts[method]
	return p, ok
}

func (c *container) Empty() bool {
	return len(c.advisors) == 0 && len(c.introductions) == 0 && len(c.pointcuts) == 0
}
