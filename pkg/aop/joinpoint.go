package aop

import (
	"errors"
	"fmt"
)

// ErrArgumentNotFound is returned when an advice asks for an argument the
// intercepted method does not have.
var ErrArgumentNotFound = errors.New("aop: argument not found")

// Argument is one named argument of an intercepted call.
type Argument struct {
	Name  string
	Value any
}

// JoinPoint is the context of one intercepted invocation. A JoinPoint is
// never modified after construction: every notification point of a call gets
// its own instance.
type JoinPoint struct {
	proxy      any
	className  string
	methodName string
	args       []Argument
	chain      *AdviceChain
	result     any
	err        error
}

type JoinPointOption func(*JoinPoint)

func WithAdviceChain(chain *AdviceChain) JoinPointOption {
	return func(jp *JoinPoint) {
		jp.chain = chain
	}
}

func WithResult(result any) JoinPointOption {
	return func(jp *JoinPoint) {
		jp.result = result
	}
}

func WithError(err error) JoinPointOption {
	return func(jp *JoinPoint) {
		jp.err = err
	}
}

// NewJoinPoint captures the arguments of a call; args are copied.
func NewJoinPoint(proxy any, className, methodName string, args []Argument, opts ...JoinPointOption) *JoinPoint {
	jp := &JoinPoint{
		proxy:      proxy,
		className:  className,
		methodName: methodName,
		args:       append([]Argument(nil), args...),
	}
	for _, opt := range opts {
		opt(jp)
	}
	return jp
}

// derive returns a copy of jp with opts applied.
func (jp *JoinPoint) derive(opts ...JoinPointOption) *JoinPoint {
	cp := *jp
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

func (jp *JoinPoint) Proxy() any          { return jp.proxy }
func (jp *JoinPoint) ClassName() string   { return jp.className }
func (jp *JoinPoint) MethodName() string  { return jp.methodName }
func (jp *JoinPoint) Result() any         { return jp.result }
func (jp *JoinPoint) Err() error          { return jp.err }
func (jp *JoinPoint) HasError() bool      { return jp.err != nil }
func (jp *JoinPoint) Chain() *AdviceChain { return jp.chain }

// Arguments returns the captured arguments in declaration order.
func (jp *JoinPoint) Arguments() []Argument {
	return append([]Argument(nil), jp.args...)
}

// Params returns the argument values in declaration order.
func (jp *JoinPoint) Params() []any {
	values := make([]any, 0, len(jp.args))
	for _, a := range jp.args {
		values = append(values, a.Value)
	}
	return values
}

// ParamTo returns the i-th argument, counting from 1.
func (jp *JoinPoint) ParamTo(i int) any {
	if i < 1 || i > len(jp.args) {
		return nil
	}
	return jp.args[i-1].Value
}

// MethodArgument returns the value of the named argument.
func (jp *JoinPoint) MethodArgument(name string) (any, error) {
	for _, a := range jp.args {
		if a.Name == name {
			return a.Value, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s->%s()", ErrArgumentNotFound, name, jp.className, jp.methodName)
}

// IsMethodArgument reports whether the call has an argument called name.
func (jp *JoinPoint) IsMethodArgument(name string) bool {
	for _, a := range jp.args {
		if a.Name == name {
			return true
		}
	}
	return false
}

// ArgumentMap returns the arguments keyed by name.
func (jp *JoinPoint) ArgumentMap() map[string]any {
	m := make(map[string]any, len(jp.args))
	for _, a := range jp.args {
		m[a.Name] = a.Value
	}
	return m
}

// Proceed continues the advice chain this join point belongs to. It is meant
// to be called from around advices.
func (jp *JoinPoint) Proceed() (any, error) {
	if jp.chain == nil {
		return nil, fmt.Errorf("aop: %s->%s() has no advice chain to proceed", jp.className, jp.methodName)
	}
	return jp.chain.Proceed(jp)
}
