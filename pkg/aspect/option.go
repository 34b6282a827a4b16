package aspect

import (
	"github.com/go-park/weaver/pkg/aop"
	"github.com/go-park/weaver/pkg/pointcut"
)

type (
	Option[T any] func(*T)
)

func WithAdviceKind(k aop.Kind) Option[advice] {
	return func(o *advice) {
		o.kind = k
	}
}

// WithAdviceMethod names the aspect class and the method implementing the advice.
func WithAdviceMethod(aspect, method string) Option[advice] {
	return func(o *advice) {
		o.aspect = aspect
		o.name = method
	}
}

func WithAdviceCondition(condition string) Option[advice] {
	return func(o *advice) {
		o.condition = condition
	}
}

func WithIntroductionAspect(name string) Option[introduction] {
	return func(o *introduction) {
		o.aspect = name
	}
}

func WithIntroducedInterface(name string) Option[introduction] {
	return func(o *introduction) {
		o.interfaceName = name
	}
}

func WithIntroducedProperty(p IntroducedProperty) Option[introduction] {
	return func(o *introduction) {
		o.property = &p
	}
}

func WithIntroductionPointcut(p *pointcut.Pointcut) Option[introduction] {
	return func(o *introduction) {
		o.pointcut = p
	}
}

func WithContainerName(name string) Option[container] {
	return func(o *container) {
		o.name = name
	}
}

func WithAdvisors(list ...Advisor) Option[container] {
	return func(o *container) {
		o.advisors = append(o.advisors, list...)
	}
}

func WithIntroductions(list ...Introduction) Option[container] {
	return func(o *container) {
		o.introductions = append(o.introductions, list...)
	}
}

// WithNamedPointcut registers p under the name of the method declaring it.
func WithNamedPointcut(method string, p *pointcut.Pointcut) Option[container] {
	return func(o *container) {
		if _, ok := o.pointcuts[method]; !ok {
			o.pointcutNames = append(o.pointcutNames, method)
		}
		o.pointcuts[method] = p
	}
}
