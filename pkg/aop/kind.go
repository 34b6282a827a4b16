package aop

import "strings"

// Kind of an advice.
type Kind int

const (
	Before Kind = iota
	AfterReturning
	AfterThrowing
	After
	Around
)

var kindNames = map[Kind]string{
	Before:         "before",
	AfterReturning: "afterreturning",
	AfterThrowing:  "afterthrowing",
	After:          "after",
	Around:         "around",
}

// Kinds lists every advice kind in dispatch order.
func Kinds() []Kind {
	return []Kind{Before, Around, AfterReturning, After, AfterThrowing}
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps an advice tag name such as "afterreturning" to its Kind.
func ParseKind(tag string) (Kind, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for k, v := range kindNames {
		if v == tag {
			return k, true
		}
	}
	return 0, false
}

// GoName is the identifier used for k in generated source.
func (k Kind) GoName() string {
	switch k {
	case Before:
		return "aop.Before"
	case AfterReturning:
		return "aop.AfterReturning"
	case AfterThrowing:
		return "aop.AfterThrowing"
	case After:
		return "aop.After"
	case Around:
		return "aop.Around"
	}
	return "aop.Kind(-1)"
}
