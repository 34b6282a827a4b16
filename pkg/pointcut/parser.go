package pointcut

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/sirupsen/logrus"

	"github.com/go-park/weaver/pkg/config"
	"github.com/go-park/weaver/pkg/reflection"
)

const (
	DesignatorClassTaggedWith  = "classTaggedWith"
	DesignatorClass            = "class"
	DesignatorMethodTaggedWith = "methodTaggedWith"
	DesignatorMethod           = "method"
	DesignatorWithin           = "within"
	DesignatorFilter           = "filter"
	DesignatorSetting          = "setting"
	DesignatorPointcut         = "pointcut"
	DesignatorEvaluate         = "evaluate"
)

var (
	patternOperator   = regexp.MustCompile(`\s*(&&|\|\|)\s*`)
	patternDesignator = regexp.MustCompile(`^\s*(classTaggedWith|class|methodTaggedWith|method|within|filter|setting|pointcut|evaluate)\s*\(`)
	patternVisibility = regexp.MustCompile(`^(public|protected)\s+`)
	patternModifier   = regexp.MustCompile(`^([a-zA-Z]+)\s+([^-\s]|-[^>])`)
)

type (
	// Parser compiles pointcut expressions into filter composites.
	Parser struct {
		reflection reflection.Service
		settings   config.Settings
		resolver   Resolver
		filters    FilterResolver
		logger     logrus.FieldLogger
	}
	ParserOption func(*Parser)
)

func WithReflection(r reflection.Service) ParserOption {
	return func(p *Parser) {
		p.reflection = r
	}
}

func WithSettings(s config.Settings) ParserOption {
	return func(p *Parser) {
		p.settings = s
	}
}

// WithResolver sets the registry used to resolve named pointcut references.
func WithResolver(r Resolver) ParserOption {
	return func(p *Parser) {
		p.resolver = r
	}
}

// WithFilters sets the lookup for filter() designators.
func WithFilters(f FilterResolver) ParserOption {
	return func(p *Parser) {
		p.filters = f
	}
}

func WithLogger(l logrus.FieldLogger) ParserOption {
	return func(p *Parser) {
		p.logger = l
	}
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		reflection: reflection.NewRegistry(),
		settings:   config.Settings{},
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse compiles expression. sourceHint names where the expression was
// declared and is used in error messages.
func (p *Parser) Parse(expression, sourceHint string) (*Composite, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("%w: empty expression, defined in %s", ErrInvalidExpression, sourceHint)
	}
	composite := NewComposite()
	operators, terms := splitByOperator(expression)
	for i, term := range terms {
		op := And
		if i > 0 && operators[i-1] == "||" {
			op = Or
		}
		term = strings.TrimSpace(term)
		if strings.HasPrefix(term, "!") {
			term = strings.TrimSpace(term[1:])
			op = op.Negate()
		}
		if term == "" {
			return nil, fmt.Errorf("%w: designator expected near %q, defined in %s", ErrInvalidExpression, expression, sourceHint)
		}
		if err := p.parseTerm(op, term, composite, sourceHint); err != nil {
			return nil, err
		}
	}
	p.logger.WithField("expression", expression).
		WithField("source", sourceHint).
		WithField("filters", composite.Len()).
		Debug("pointcut expression parsed")
	return composite, nil
}

// splitByOperator splits expression on the && and || operators that are
// not nested in parentheses.
func splitByOperator(expression string) (operators, terms []string) {
	depth := make([]int, len(expression)+1)
	level := 0
	for i, c := range expression {
		depth[i] = level
		switch c {
		case '(':
			level++
		case ')':
			level--
		}
	}
	start := 0
	for _, loc := range patternOperator.FindAllStringSubmatchIndex(expression, -1) {
		if depth[loc[2]] != 0 {
			continue
		}
		terms = append(terms, expression[start:loc[0]])
		operators = append(operators, expression[loc[2]:loc[3]])
		start = loc[1]
	}
	terms = append(terms, expression[start:])
	return operators, terms
}

func (p *Parser) parseTerm(op Operator, term string, composite *Composite, sourceHint string) error {
	if !strings.Contains(term, "(") {
		return p.parseReference(op, term, composite, sourceHint)
	}
	m := patternDesignator.FindStringSubmatch(term)
	if m == nil {
		return fmt.Errorf("%w: pointcut designator expected near %q, defined in %s", ErrInvalidExpression, term, sourceHint)
	}
	pattern, err := SubstringBetweenParentheses(term)
	if err != nil {
		return fmt.Errorf("%w, defined in %s", err, sourceHint)
	}
	pattern = strings.TrimSpace(pattern)

	var filter Filter
	switch m[1] {
	case DesignatorClassTaggedWith:
		filter, err = NewClassTaggedWithFilter(pattern, p.reflection)
	case DesignatorClass:
		filter, err = NewClassNameFilter(pattern, p.reflection)
	case DesignatorMethodTaggedWith:
		filter, err = NewMethodTaggedWithFilter(pattern, p.reflection)
	case DesignatorMethod:
		filter, err = p.parseMethod(pattern, sourceHint)
	case DesignatorWithin:
		filter, err = NewImplementsTypeFilter(pattern, p.reflection)
	case DesignatorFilter:
		filter, err = p.parseCustomFilter(pattern, sourceHint)
	case DesignatorSetting:
		filter, err = NewSettingFilter(pattern, p.settings)
	case DesignatorPointcut:
		return p.parseReference(op, pattern, composite, sourceHint)
	case DesignatorEvaluate:
		return p.parseEvaluate(op, pattern, composite, sourceHint)
	}
	if err != nil {
		return fmt.Errorf("%s(%s), defined in %s: %w", m[1], pattern, sourceHint, err)
	}
	composite.AddFilter(op, filter)
	return nil
}

// parseMethod builds the class AND method-name sub composite of
// method([visibility] ClassPattern->methodPattern(...)).
func (p *Parser) parseMethod(signature, sourceHint string) (Filter, error) {
	if !strings.Contains(signature, "->") {
		return nil, fmt.Errorf("%w: \"->\" expected in %q", ErrInvalidExpression, signature)
	}
	visibility, signature, err := visibilityFromSignature(signature)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(signature, "->", 2)
	classPattern, methodPattern := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if !strings.Contains(methodPattern, "(") {
		return nil, fmt.Errorf("%w: \"(\" expected in %q", ErrInvalidExpression, methodPattern)
	}
	name, args, ok := splitMethodArguments(methodPattern)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: method name expected in %q", ErrInvalidExpression, methodPattern)
	}
	classFilter, err := NewClassNameFilter(classPattern, p.reflection)
	if err != nil {
		return nil, err
	}
	methodFilter, err := NewMethodNameFilter(strings.TrimSpace(name), visibility, p.reflection)
	if err != nil {
		return nil, err
	}
	if args = strings.TrimSpace(args); args != "" {
		p.logger.WithField("arguments", args).
			WithField("source", sourceHint).
			Warn("method argument constraints are not supported, use evaluate() instead")
	}
	sub := NewComposite()
	sub.AddFilter(And, classFilter)
	sub.AddFilter(And, methodFilter)
	return sub, nil
}

// splitMethodArguments splits "namePattern(arguments)" at the parentheses
// closing the pattern, so the name pattern may contain groups itself.
func splitMethodArguments(s string) (name, args string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return s[:i], s[i+1 : len(s)-1], true
			}
		}
	}
	return "", "", false
}

// visibilityFromSignature strips a leading visibility modifier.
func visibilityFromSignature(signature string) (*reflection.Visibility, string, error) {
	signature = strings.TrimSpace(signature)
	m := patternVisibility.FindStringSubmatch(signature)
	if m == nil {
		if mod := patternModifier.FindStringSubmatch(signature); mod != nil {
			return nil, "", fmt.Errorf("%w: invalid visibility modifier %q in %q", ErrInvalidExpression, mod[1], signature)
		}
		return nil, signature, nil
	}
	v, _ := reflection.ParseVisibility(m[1])
	rest := strings.TrimSpace(signature[len(m[0]):])
	if patternVisibility.MatchString(rest) || patternModifier.MatchString(rest) {
		return nil, "", fmt.Errorf("%w: method name expected after visibility modifier in %q", ErrInvalidExpression, signature)
	}
	return &v, rest, nil
}

func (p *Parser) parseReference(op Operator, expression string, composite *Composite, sourceHint string) error {
	if !strings.Contains(expression, "->") {
		return fmt.Errorf("%w: \"->\" expected in %q, defined in %s", ErrInvalidExpression, expression, sourceHint)
	}
	parts := strings.SplitN(expression, "->", 2)
	aspectClassName, methodName := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if aspectClassName == "" || methodName == "" {
		return fmt.Errorf("%w: aspect class and pointcut method expected in %q, defined in %s", ErrInvalidExpression, expression, sourceHint)
	}
	composite.AddFilter(op, NewReferenceFilter(aspectClassName, methodName, p.resolver))
	return nil
}

func (p *Parser) parseCustomFilter(name, sourceHint string) (Filter, error) {
	if p.filters != nil {
		if f, ok := p.filters.ResolveFilter(name); ok && f != nil {
			return NewCustomFilter(name, f), nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not a registered pointcut filter", ErrInvalidExpression, name)
}

func (p *Parser) parseEvaluate(op Operator, condition string, composite *Composite, sourceHint string) error {
	if condition == "" {
		return fmt.Errorf("%w: empty evaluate(), defined in %s", ErrInvalidExpression, sourceHint)
	}
	if _, err := expr.Compile(condition, expr.AllowUndefinedVariables(), expr.AsBool()); err != nil {
		return fmt.Errorf("%w: evaluate(%s), defined in %s: %v", ErrInvalidExpression, condition, sourceHint, err)
	}
	composite.AddRuntimeCondition(op, condition)
	return nil
}

// SubstringBetweenParentheses returns the part of s enclosed by the first
// level of parentheses. Nested parentheses are kept as long as they balance.
func SubstringBetweenParentheses(s string) (string, error) {
	var b strings.Builder
	open := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ')' {
			open--
		}
		if open > 0 {
			b.WriteByte(c)
		}
		if c == '(' {
			open++
		}
	}
	if open < 0 {
		return "", fmt.Errorf("%w: %q has %d closing parentheses in excess", ErrInvalidExpression, s, -open)
	}
	if open > 0 {
		return "", fmt.Errorf("%w: %q lacks %d closing parentheses", ErrInvalidExpression, s, open)
	}
	return b.String(), nil
}
