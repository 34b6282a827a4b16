package aop

// Invocable is an advice ready to run at a join point.
type Invocable interface {
	Invoke(jp *JoinPoint) (any, error)
}

// InvocableFunc adapts a plain function to Invocable.
type InvocableFunc func(jp *JoinPoint) (any, error)

func (f InvocableFunc) Invoke(jp *JoinPoint) (any, error) { return f(jp) }

// Body runs the original, un-advised method logic.
type Body func(jp *JoinPoint) (any, error)

// AdviceChain walks the around advices of one invocation. The cursor is
// invocation scoped: a chain must not be shared by concurrent or re-entrant
// calls.
type AdviceChain struct {
	advices []Invocable
	body    Body
	cursor  int
}

func NewAdviceChain(advices []Invocable, body Body) *AdviceChain {
	return &AdviceChain{
		advices: advices,
		body:    body,
		cursor:  -1,
	}
}

// Rewind moves the cursor before the first advice.
func (c *AdviceChain) Rewind() {
	c.cursor = -1
}

// Len is the number of advices in the chain.
func (c *AdviceChain) Len() int { return len(c.advices) }

// Proceed invokes the next advice, or the original method body once every
// advice has been entered.
func (c *AdviceChain) Proceed(jp *JoinPoint) (any, error) {
	c.cursor++
	if c.cursor < len(c.advices) {
		return c.advices[c.cursor].Invoke(jp)
	}
	if c.body == nil {
		return nil, nil
	}
	return c.body(jp)
}
