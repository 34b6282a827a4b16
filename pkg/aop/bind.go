package aop

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/sirupsen/logrus"
)

// ProxyInterfaceName is the reflection name of the marker every generated
// proxy implements.
const ProxyInterfaceName = "aop.Proxy"

// Proxy is implemented by every generated proxy.
type Proxy interface {
	AOPTargetClassName() string
}

// ErrInvalidAdvice is returned when an advice method cannot be bound.
var ErrInvalidAdvice = errors.New("aop: invalid advice")

// Container resolves live aspect instances.
type Container interface {
	ResolveSingleton(aspectClassName string) (any, error)
}

// ContainerFunc adapts a function to Container.
type ContainerFunc func(aspectClassName string) (any, error)

func (f ContainerFunc) ResolveSingleton(name string) (any, error) { return f(name) }

// AdviceProvider lets an aspect hand out its advices without reflection.
type AdviceProvider interface {
	Advice(methodName string) (Invocable, bool)
}

// AdviceRef names one advice declared by an aspect. Generated proxies carry
// their advices as AdviceRefs and bind them when constructed.
type AdviceRef struct {
	Kind      Kind
	Aspect    string
	Method    string
	Condition string
}

var joinPointType = reflect.TypeOf((*JoinPoint)(nil))
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Bind resolves the aspect instance of ref once and returns the advice
// method as an Invocable.
func Bind(ref AdviceRef, c Container) (Invocable, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no container to resolve aspect %q", ErrInvalidAdvice, ref.Aspect)
	}
	instance, err := c.ResolveSingleton(ref.Aspect)
	if err != nil {
		return nil, fmt.Errorf("resolve aspect %q: %w", ref.Aspect, err)
	}
	inv, err := bindMethod(instance, ref)
	if err != nil {
		return nil, err
	}
	if ref.Condition == "" {
		return inv, nil
	}
	program, err := expr.Compile(ref.Condition, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: condition %q of %s->%s(): %v", ErrInvalidAdvice, ref.Condition, ref.Aspect, ref.Method, err)
	}
	return &conditional{inner: inv, program: program, around: ref.Kind == Around, ref: ref}, nil
}

func bindMethod(instance any, ref AdviceRef) (Invocable, error) {
	if p, ok := instance.(AdviceProvider); ok {
		if inv, ok := p.Advice(ref.Method); ok {
			return inv, nil
		}
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: aspect %q resolved to nil", ErrInvalidAdvice, ref.Aspect)
	}
	method := reflect.ValueOf(instance).MethodByName(ref.Method)
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %s has no method %s", ErrInvalidAdvice, ref.Aspect, ref.Method)
	}
	t := method.Type()
	if t.NumIn() != 1 || t.In(0) != joinPointType {
		return nil, fmt.Errorf("%w: %s->%s() must take a single *aop.JoinPoint", ErrInvalidAdvice, ref.Aspect, ref.Method)
	}
	switch {
	case t.NumOut() == 0:
		return InvocableFunc(func(jp *JoinPoint) (any, error) {
			method.Call([]reflect.Value{reflect.ValueOf(jp)})
			return nil, nil
		}), nil
	case t.NumOut() == 1 && t.Out(0) == errorType:
		return InvocableFunc(func(jp *JoinPoint) (any, error) {
			out := method.Call([]reflect.Value{reflect.ValueOf(jp)})
			return nil, asError(out[0])
		}), nil
	case t.NumOut() == 1:
		return InvocableFunc(func(jp *JoinPoint) (any, error) {
			out := method.Call([]reflect.Value{reflect.ValueOf(jp)})
			return out[0].Interface(), nil
		}), nil
	case t.NumOut() == 2 && t.Out(1) == errorType:
		return InvocableFunc(func(jp *JoinPoint) (any, error) {
			out := method.Call([]reflect.Value{reflect.ValueOf(jp)})
			return out[0].Interface(), asError(out[1])
		}), nil
	}
	return nil, fmt.Errorf("%w: unsupported results of %s->%s()", ErrInvalidAdvice, ref.Aspect, ref.Method)
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// conditional runs inner only when its runtime condition holds.
type conditional struct {
	inner   Invocable
	program *vm.Program
	around  bool
	ref     AdviceRef
}

func (c *conditional) Invoke(jp *JoinPoint) (any, error) {
	if c.holds(jp) {
		return c.inner.Invoke(jp)
	}
	if c.around {
		return jp.Proceed()
	}
	return nil, nil
}

func (c *conditional) holds(jp *JoinPoint) bool {
	env := map[string]any{
		"args":       jp.ArgumentMap(),
		"className":  jp.ClassName(),
		"methodName": jp.MethodName(),
		"this":       jp.Proxy(),
	}
	out, err := expr.Run(c.program, env)
	if err != nil {
		logrus.WithError(err).
			WithField("aspect", c.ref.Aspect).
			WithField("advice", c.ref.Method).
			Warn("advice condition could not be evaluated")
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// BindInterceptors binds the advices of every method of a proxy.
func BindInterceptors(className string, methods map[string][]AdviceRef, c Container) (map[string]*MethodInterceptor, error) {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	interceptors := make(map[string]*MethodInterceptor, len(methods))
	for _, name := range names {
		advices := map[Kind][]Invocable{}
		for _, ref := range methods[name] {
			inv, err := Bind(ref, c)
			if err != nil {
				return nil, fmt.Errorf("bind %s->%s(): %w", className, name, err)
			}
			advices[ref.Kind] = append(advices[ref.Kind], inv)
		}
		interceptors[name] = NewMethodInterceptor(className, name, advices)
	}
	return interceptors, nil
}
