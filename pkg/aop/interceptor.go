package aop

// MethodInterceptor dispatches the advices bound to one method of a proxy.
type MethodInterceptor struct {
	className  string
	methodName string
	advices    map[Kind][]Invocable
}

func NewMethodInterceptor(className, methodName string, advices map[Kind][]Invocable) *MethodInterceptor {
	if advices == nil {
		advices = map[Kind][]Invocable{}
	}
	return &MethodInterceptor{
		className:  className,
		methodName: methodName,
		advices:    advices,
	}
}

func (m *MethodInterceptor) ClassName() string  { return m.className }
func (m *MethodInterceptor) MethodName() string { return m.methodName }

// Advices returns the bound advices of kind k in declaration order.
func (m *MethodInterceptor) Advices(k Kind) []Invocable { return m.advices[k] }

// HasAdvices reports whether any advice is bound to the method.
func (m *MethodInterceptor) HasAdvices() bool {
	for _, list := range m.advices {
		if len(list) > 0 {
			return true
		}
	}
	return false
}

// Invoke runs one intercepted call. When guard reports that advice for this
// method is already running on the same proxy instance, body is called
// directly so advice code can reach the original logic without recursing.
func (m *MethodInterceptor) Invoke(proxy any, guard *Guard, args []Argument, body Body) (any, error) {
	if m == nil {
		return body(NewJoinPoint(proxy, "", "", args))
	}
	if guard == nil {
		guard = &Guard{}
	}
	release, ok := guard.Enter(m.methodName)
	if !ok {
		return body(NewJoinPoint(proxy, m.className, m.methodName, args))
	}
	defer release()
	return m.dispatch(proxy, args, body)
}

func (m *MethodInterceptor) dispatch(proxy any, args []Argument, body Body) (any, error) {
	jp := NewJoinPoint(proxy, m.className, m.methodName, args)
	for _, advice := range m.advices[Before] {
		if _, err := advice.Invoke(jp); err != nil {
			return nil, err
		}
	}

	afterInvoked := false
	result, err := m.proceed(jp, body)
	if err == nil {
		rjp := jp.derive(WithResult(result))
		err = invokeAll(m.advices[AfterReturning], rjp)
		if err == nil {
			afterInvoked = true
			err = invokeAll(m.advices[After], rjp)
		}
	}
	if err == nil {
		return result, nil
	}

	ejp := jp.derive(WithResult(result), WithError(err))
	for _, advice := range m.advices[AfterThrowing] {
		// an after throwing advice may translate the error
		if _, aerr := advice.Invoke(ejp); aerr != nil {
			err = aerr
			break
		}
	}
	if !afterInvoked {
		ejp = jp.derive(WithResult(result), WithError(err))
		if aerr := invokeAll(m.advices[After], ejp); aerr != nil {
			err = aerr
		}
	}
	return result, err
}

// proceed obtains the result of the call, through the around advices if
// there are any.
func (m *MethodInterceptor) proceed(jp *JoinPoint, body Body) (any, error) {
	arounds := m.advices[Around]
	if len(arounds) == 0 {
		return body(jp)
	}
	chain := NewAdviceChain(arounds, body)
	chain.Rewind()
	return chain.Proceed(jp.derive(WithAdviceChain(chain)))
}

func invokeAll(advices []Invocable, jp *JoinPoint) error {
	for _, advice := range advices {
		if _, err := advice.Invoke(jp); err != nil {
			return err
		}
	}
	return nil
}
