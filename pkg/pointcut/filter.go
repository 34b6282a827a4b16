package pointcut

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-park/weaver/pkg/config"
	"github.com/go-park/weaver/pkg/reflection"
)

var (
	_ Filter = (*ClassNameFilter)(nil)
	_ Filter = (*ClassTaggedWithFilter)(nil)
	_ Filter = (*ImplementsTypeFilter)(nil)
	_ Filter = (*MethodNameFilter)(nil)
	_ Filter = (*MethodTaggedWithFilter)(nil)
	_ Filter = (*SettingFilter)(nil)
	_ Filter = (*ReferenceFilter)(nil)
	_ Filter = (*CustomFilter)(nil)
	_ Filter = (*Composite)(nil)
	_ Filter = (*Pointcut)(nil)

	_ ConditionalFilter = (*ReferenceFilter)(nil)
	_ ConditionalFilter = (*Composite)(nil)
	_ ConditionalFilter = (*Pointcut)(nil)
)

// compilePattern anchors pattern to the full string.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: malformed pattern %q: %v", ErrInternal, pattern, err)
	}
	return re, nil
}

func anyMatch(re *regexp.Regexp, names []string) bool {
	for _, name := range names {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// ClassNameFilter matches non-final classes by name.
type ClassNameFilter struct {
	pattern    string
	re         *regexp.Regexp
	reflection reflection.Service
}

func NewClassNameFilter(pattern string, r reflection.Service) (*ClassNameFilter, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &ClassNameFilter{pattern: pattern, re: re, reflection: r}, nil
}

func (f *ClassNameFilter) Pattern() string { return f.pattern }

func (f *ClassNameFilter) Matches(q Query) (bool, error) {
	if f.reflection != nil && f.reflection.IsClassFinal(q.ClassName) {
		return false, nil
	}
	return f.re.MatchString(q.ClassName), nil
}

// ClassTaggedWithFilter matches classes carrying a tag whose name matches.
type ClassTaggedWithFilter struct {
	pattern    string
	re         *regexp.Regexp
	reflection reflection.Service
}

func NewClassTaggedWithFilter(pattern string, r reflection.Service) (*ClassTaggedWithFilter, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &ClassTaggedWithFilter{pattern: pattern, re: re, reflection: r}, nil
}

func (f *ClassTaggedWithFilter) Pattern() string { return f.pattern }

func (f *ClassTaggedWithFilter) Matches(q Query) (bool, error) {
	return anyMatch(f.re, reflection.SortedTagNames(f.reflection.ClassTagsValues(q.ClassName))), nil
}

// ImplementsTypeFilter matches non-final classes implementing an interface
// whose name matches.
type ImplementsTypeFilter struct {
	pattern    string
	re         *regexp.Regexp
	reflection reflection.Service
}

func NewImplementsTypeFilter(pattern string, r reflection.Service) (*ImplementsTypeFilter, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &ImplementsTypeFilter{pattern: pattern, re: re, reflection: r}, nil
}

func (f *ImplementsTypeFilter) Pattern() string { return f.pattern }

func (f *ImplementsTypeFilter) Matches(q Query) (bool, error) {
	if f.reflection.IsClassFinal(q.ClassName) {
		return false, nil
	}
	return anyMatch(f.re, f.reflection.InterfaceNames(q.ClassName)), nil
}

// MethodNameFilter matches non-final methods by name and, optionally,
// visibility.
type MethodNameFilter struct {
	pattern    string
	re         *regexp.Regexp
	visibility *reflection.Visibility
	reflection reflection.Service
}

func NewMethodNameFilter(pattern string, visibility *reflection.Visibility, r reflection.Service) (*MethodNameFilter, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &MethodNameFilter{pattern: pattern, re: re, visibility: visibility, reflection: r}, nil
}

func (f *MethodNameFilter) Pattern() string { return f.pattern }

// Visibility returns the required visibility, or nil for any.
func (f *MethodNameFilter) Visibility() *reflection.Visibility { return f.visibility }

func (f *MethodNameFilter) Matches(q Query) (bool, error) {
	if q.MethodName == "" {
		return false, nil
	}
	class := declaringClass(q)
	if f.reflection.IsMethodFinal(class, q.MethodName) {
		return false, nil
	}
	if f.visibility != nil && f.reflection.MethodVisibility(class, q.MethodName) != *f.visibility {
		return false, nil
	}
	return f.re.MatchString(q.MethodName), nil
}

// MethodTaggedWithFilter matches methods carrying a tag whose name matches.
type MethodTaggedWithFilter struct {
	pattern    string
	re         *regexp.Regexp
	reflection reflection.Service
}

func NewMethodTaggedWithFilter(pattern string, r reflection.Service) (*MethodTaggedWithFilter, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &MethodTaggedWithFilter{pattern: pattern, re: re, reflection: r}, nil
}

func (f *MethodTaggedWithFilter) Pattern() string { return f.pattern }

func (f *MethodTaggedWithFilter) Matches(q Query) (bool, error) {
	if q.MethodName == "" {
		return false, nil
	}
	tags := f.reflection.MethodTagsValues(declaringClass(q), q.MethodName)
	return anyMatch(f.re, reflection.SortedTagNames(tags)), nil
}

func declaringClass(q Query) string {
	if q.DeclaringClassName != "" {
		return q.DeclaringClassName
	}
	return q.ClassName
}

var patternSettingCondition = regexp.MustCompile(`^\s*(?:'([^']*)'|"([^"]*)")\s*$`)

// SettingFilter matches depending on a configuration value. The value is
// resolved once, when the filter is created: a boolean setting is the match
// result, any other setting matches when it equals the quoted condition.
type SettingFilter struct {
	path      string
	condition *string
	value     any
}

// NewSettingFilter parses "path[.sub]... [= 'value']" and resolves the path
// against settings. A missing path is a configuration error, except for the
// last key of a boolean gate, which then never matches.
func NewSettingFilter(expression string, settings config.Settings) (*SettingFilter, error) {
	path := expression
	f := &SettingFilter{}
	if i := strings.Index(expression, "="); i >= 0 {
		path = expression[:i]
		m := patternSettingCondition.FindStringSubmatch(expression[i+1:])
		if m == nil {
			return nil, fmt.Errorf("%w: the condition of setting(%s) has a syntax error, make sure to set quotes correctly", ErrInvalidExpression, expression)
		}
		cond := m[1] + m[2]
		f.condition = &cond
	}
	f.path = strings.TrimSpace(path)
	value, ok := settings.Path(f.path)
	if !ok {
		if f.condition == nil && parentExists(settings, f.path) {
			// a boolean gate whose leaf is not configured is off
			f.value = false
			return f, nil
		}
		return nil, fmt.Errorf("%w: the configuration path %q used in setting() does not exist", ErrConfiguration, f.path)
	}
	f.value = value
	return f, nil
}

func parentExists(settings config.Settings, path string) bool {
	keys := config.SplitPath(path)
	if len(keys) < 2 {
		return false
	}
	parent, ok := settings.Lookup(keys[:len(keys)-1]...)
	if !ok {
		return false
	}
	switch parent.(type) {
	case map[string]any, config.Settings:
		return true
	}
	return false
}

func (f *SettingFilter) Path() string { return f.path }

func (f *SettingFilter) Matches(Query) (bool, error) {
	if b, ok := f.value.(bool); ok {
		return b, nil
	}
	if f.condition == nil {
		return false, nil
	}
	return fmt.Sprint(f.value) == *f.condition, nil
}

// Resolver finds named pointcuts declared by aspects.
type Resolver interface {
	FindPointcut(aspectClassName, pointcutMethodName string) (*Pointcut, error)
}

// ReferenceFilter matches by delegating to a named pointcut, which is
// resolved on first use.
type ReferenceFilter struct {
	aspectClassName    string
	pointcutMethodName string
	resolver           Resolver

	once     sync.Once
	pointcut *Pointcut
	err      error
}

func NewReferenceFilter(aspectClassName, pointcutMethodName string, resolver Resolver) *ReferenceFilter {
	return &ReferenceFilter{
		aspectClassName:    aspectClassName,
		pointcutMethodName: pointcutMethodName,
		resolver:           resolver,
	}
}

func (f *ReferenceFilter) AspectClassName() string    { return f.aspectClassName }
func (f *ReferenceFilter) PointcutMethodName() string { return f.pointcutMethodName }

func (f *ReferenceFilter) resolve() (*Pointcut, error) {
	f.once.Do(func() {
		if f.resolver == nil {
			f.err = fmt.Errorf("%w: no resolver for pointcut %s->%s", ErrConfiguration, f.aspectClassName, f.pointcutMethodName)
			return
		}
		f.pointcut, f.err = f.resolver.FindPointcut(f.aspectClassName, f.pointcutMethodName)
	})
	return f.pointcut, f.err
}

func (f *ReferenceFilter) Matches(q Query) (bool, error) {
	ok, _, err := f.MatchCondition(q)
	return ok, err
}

// MatchCondition carries the runtime condition of the referenced pointcut
// over to the referring expression.
func (f *ReferenceFilter) MatchCondition(q Query) (bool, string, error) {
	p, err := f.resolve()
	if err != nil {
		return false, "", err
	}
	ok, cond, err := p.MatchCondition(q)
	if err != nil {
		return false, "", fmt.Errorf("%s->%s: %w", f.aspectClassName, f.pointcutMethodName, err)
	}
	return ok, cond, nil
}

// FilterResolver looks up custom filters by object name.
type FilterResolver interface {
	ResolveFilter(name string) (Filter, bool)
}

// Filters is a FilterResolver backed by a map.
type Filters map[string]Filter

func (f Filters) ResolveFilter(name string) (Filter, bool) {
	filter, ok := f[name]
	return filter, ok
}

// CustomFilter wraps a user supplied filter registered under a name.
type CustomFilter struct {
	name   string
	filter Filter
}

func NewCustomFilter(name string, filter Filter) *CustomFilter {
	return &CustomFilter{name: name, filter: filter}
}

func (f *CustomFilter) Name() string { return f.name }

func (f *CustomFilter) Matches(q Query) (bool, error) {
	return f.filter.Matches(q)
}
