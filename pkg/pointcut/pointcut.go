package pointcut

import (
	"fmt"
	"sync"
)

// MaxRecursionLevel is the number of times one pointcut may be re-entered
// within a single query before the match fails as circular.
const MaxRecursionLevel = 99

// Pointcut is a compiled pointcut expression, optionally named after the
// aspect method that declared it.
type Pointcut struct {
	expression         string
	composite          *Composite
	aspectClassName    string
	pointcutMethodName string

	mu             sync.Mutex
	lastQueryID    string
	recursionLevel int
}

func New(expression string, composite *Composite, aspectClassName, pointcutMethodName string) *Pointcut {
	if composite == nil {
		composite = NewComposite()
	}
	return &Pointcut{
		expression:         expression,
		composite:          composite,
		aspectClassName:    aspectClassName,
		pointcutMethodName: pointcutMethodName,
	}
}

func (p *Pointcut) Expression() string         { return p.expression }
func (p *Pointcut) Composite() *Composite      { return p.composite }
func (p *Pointcut) AspectClassName() string    { return p.aspectClassName }
func (p *Pointcut) PointcutMethodName() string { return p.pointcutMethodName }

// RuntimeCondition is the combined evaluate() condition declared by the
// pointcut expression itself.
func (p *Pointcut) RuntimeCondition() string { return p.composite.RuntimeCondition() }

// Matches checks the pointcut. Queries sharing an ID are treated as one
// matching pass: re-entering the pointcut within the same pass counts as
// recursion.
func (p *Pointcut) Matches(q Query) (bool, error) {
	ok, _, err := p.MatchCondition(q)
	return ok, err
}

// MatchCondition is Matches returning the runtime condition of the match,
// including the conditions of referenced pointcuts.
func (p *Pointcut) MatchCondition(q Query) (bool, string, error) {
	p.mu.Lock()
	if q.ID == p.lastQueryID {
		p.recursionLevel++
	} else {
		p.recursionLevel = 0
		p.lastQueryID = q.ID
	}
	level := p.recursionLevel
	p.mu.Unlock()

	if level > MaxRecursionLevel {
		return false, "", fmt.Errorf("%w: pointcut %q declared in %s exceeded %d recursions", ErrCircularReference,
			p.name(), p.aspectClassName, MaxRecursionLevel)
	}
	return p.composite.MatchCondition(q)
}

func (p *Pointcut) name() string {
	if p.pointcutMethodName != "" {
		return p.aspectClassName + "->" + p.pointcutMethodName
	}
	return p.expression
}
