// Package pointcut compiles pointcut expressions into filter trees and
// matches them against classes and methods.
package pointcut

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidExpression reports a syntax error in a pointcut expression.
	ErrInvalidExpression = errors.New("invalid pointcut expression")
	// ErrCircularReference reports pointcuts referring to each other in a loop.
	ErrCircularReference = errors.New("circular pointcut reference")
	// ErrConfiguration reports a static misconfiguration such as a missing
	// setting or an unknown named pointcut.
	ErrConfiguration = errors.New("aop configuration error")
	// ErrInternal reports a programming or environment fault.
	ErrInternal = errors.New("aop internal fault")
)

// Operator joins a filter to the result accumulated so far.
type Operator int

const (
	And Operator = iota
	AndNot
	Or
	OrNot
)

func (o Operator) String() string {
	switch o {
	case And:
		return "&&"
	case AndNot:
		return "&&!"
	case Or:
		return "||"
	case OrNot:
		return "||!"
	}
	return "?"
}

// Negate returns the negated form of o.
func (o Operator) Negate() Operator {
	switch o {
	case And:
		return AndNot
	case Or:
		return OrNot
	case AndNot:
		return And
	case OrNot:
		return Or
	}
	return o
}

func (o Operator) apply(acc, current bool) bool {
	switch o {
	case And:
		return acc && current
	case AndNot:
		return acc && !current
	case Or:
		return acc || current
	case OrNot:
		return acc || !current
	}
	return acc
}

// Query is one matching question. ID identifies a matching pass; nested
// pointcut references reuse it so cycles can be detected.
type Query struct {
	ClassName          string
	MethodName         string
	DeclaringClassName string
	ID                 string
}

// Filter is a predicate over classes and methods.
type Filter interface {
	Matches(q Query) (bool, error)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(q Query) (bool, error)

func (f FilterFunc) Matches(q Query) (bool, error) { return f(q) }

// ConditionalFilter is a Filter whose match can depend on evaluate()
// conditions checked at call time.
type ConditionalFilter interface {
	Filter
	MatchCondition(q Query) (bool, string, error)
}

type entry struct {
	op     Operator
	filter Filter
}

type condition struct {
	op   Operator
	expr string
}

// Composite evaluates a sequence of operators and filters from left to
// right, starting from true. Every filter is evaluated; there is no short
// circuit.
type Composite struct {
	entries    []entry
	conditions []condition
}

func NewComposite() *Composite {
	return &Composite{}
}

// AddFilter appends filter joined by op.
func (c *Composite) AddFilter(op Operator, filter Filter) {
	c.entries = append(c.entries, entry{op: op, filter: filter})
}

// AddRuntimeCondition appends an evaluate() condition joined by op.
func (c *Composite) AddRuntimeCondition(op Operator, expr string) {
	c.conditions = append(c.conditions, condition{op: op, expr: expr})
}

// Len is the number of filters.
func (c *Composite) Len() int { return len(c.entries) }

// Operators returns the operator of every filter in order.
func (c *Composite) Operators() []Operator {
	ops := make([]Operator, 0, len(c.entries))
	for _, e := range c.entries {
		ops = append(ops, e.op)
	}
	return ops
}

// Filters returns the filters in order.
func (c *Composite) Filters() []Filter {
	filters := make([]Filter, 0, len(c.entries))
	for _, e := range c.entries {
		filters = append(filters, e.filter)
	}
	return filters
}

func (c *Composite) Matches(q Query) (bool, error) {
	ok, _, err := c.MatchCondition(q)
	return ok, err
}

// MatchCondition matches q and returns the runtime condition of the match:
// the composite's own evaluate() conditions and the conditions of matching
// sub filters, joined by their operators. A negated sub filter carrying a
// condition does not exclude the method statically; its condition is
// negated instead.
func (c *Composite) MatchCondition(q Query) (bool, string, error) {
	acc := true
	var subs []condition
	for _, e := range c.entries {
		var (
			current bool
			cond    string
			err     error
		)
		if cf, ok := e.filter.(ConditionalFilter); ok {
			current, cond, err = cf.MatchCondition(q)
		} else {
			current, err = e.filter.Matches(q)
		}
		if err != nil {
			return false, "", err
		}
		if current && cond != "" {
			subs = append(subs, condition{op: e.op, expr: cond})
			if e.op == AndNot || e.op == OrNot {
				current = false
			}
		}
		acc = e.op.apply(acc, current)
	}
	if !acc {
		return false, "", nil
	}
	own, sub := joinConditions(c.conditions), joinConditions(subs)
	switch {
	case sub == "":
		return true, own, nil
	case own == "":
		return true, sub, nil
	case len(subs) > 1:
		return true, own + " && (" + sub + ")", nil
	}
	return true, own + " && " + sub, nil
}

// RuntimeCondition combines the composite's own evaluate() conditions into
// one boolean expression, or returns "" when there are none.
func (c *Composite) RuntimeCondition() string {
	return joinConditions(c.conditions)
}

func joinConditions(conditions []condition) string {
	var b strings.Builder
	for i, cond := range conditions {
		if i > 0 {
			switch cond.op {
			case Or, OrNot:
				b.WriteString(" || ")
			default:
				b.WriteString(" && ")
			}
		}
		if cond.op == AndNot || cond.op == OrNot {
			b.WriteString("!")
		}
		b.WriteString(group(cond.expr))
	}
	return b.String()
}

// group parenthesizes expr unless one pair of parentheses already encloses
// all of it.
func group(expr string) string {
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		depth := 0
		for i := 0; i < len(expr); i++ {
			switch expr[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				if i == len(expr)-1 {
					return expr
				}
				break
			}
		}
	}
	return "(" + expr + ")"
}
