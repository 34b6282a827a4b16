package gen

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/tools/imports"

	"github.com/go-park/weaver/pkg/aop"
	"github.com/go-park/weaver/pkg/aspect"
	"github.com/go-park/weaver/pkg/pointcut"
	"github.com/go-park/weaver/pkg/reflection"
	"github.com/go-park/weaver/pkg/tools/collections"
)

var (
	// ErrInvalidTarget is returned for classes that cannot be proxied.
	ErrInvalidTarget = errors.New("gen: invalid proxy target")
	// ErrIntroductionConflict is returned when two introductions add the same
	// method or property to one class.
	ErrIntroductionConflict = fmt.Errorf("%w: conflicting introductions", aspect.ErrConfiguration)
)

type (
	// AdviceSummary lists per method and advice kind the advices woven in,
	// as "AspectClass->method".
	AdviceSummary map[string]map[string][]string

	// ProxyBuildResult is the outcome of weaving one target class.
	ProxyBuildResult struct {
		TargetClassName string        `json:"targetClassName"`
		ProxyClassName  string        `json:"proxyClassName"`
		Package         string        `json:"package"`
		PackagePath     string        `json:"packagePath"`
		Interfaces      []string      `json:"interfaces,omitempty"`
		Source          string        `json:"source"`
		AdviceSummary   AdviceSummary `json:"adviceSummary"`
	}

	interceptedMethod struct {
		name           string
		declaringClass string
		constructor    bool
		introduced     bool
		advices        map[aop.Kind][]aspect.Advice
	}
)

// ProxyBuilder decides which methods of a class are intercepted and renders
// the proxy source.
type ProxyBuilder struct {
	options
	reflection reflection.Service
	registry   *aspect.Registry
	queryID    uint64
	names      map[string]struct{}
}

func NewProxyBuilder(r reflection.Service, registry *aspect.Registry, opts ...Option) *ProxyBuilder {
	b := &ProxyBuilder{
		options:    DefaultOptions(),
		reflection: r,
		registry:   registry,
		names:      map[string]struct{}{},
	}
	for _, opt := range opts {
		opt.apply(&b.options)
	}
	return b
}

func (b *ProxyBuilder) nextQueryID() string {
	b.queryID++
	return strconv.FormatUint(b.queryID, 10)
}

// Build weaves target. It returns nil without error when no advice and no
// introduction applies to the class.
func (b *ProxyBuilder) Build(target string) (*ProxyBuildResult, error) {
	if !b.reflection.ClassExists(target) {
		return nil, fmt.Errorf("%w: class %q does not exist", ErrInvalidTarget, target)
	}
	if b.reflection.ImplementsInterface(target, aop.ProxyInterfaceName) {
		return nil, fmt.Errorf("%w: %q is already a proxy", ErrInvalidTarget, target)
	}

	introductions, err := b.matchingIntroductions(target)
	if err != nil {
		return nil, err
	}
	introducedMethods, err := b.introducedMethods(target, introductions)
	if err != nil {
		return nil, err
	}
	methods, err := b.interceptedMethods(target, introducedMethods)
	if err != nil {
		return nil, err
	}

	intercepted := 0
	for _, m := range methods {
		if len(m.advices) > 0 || m.introduced {
			intercepted++
		}
	}
	if intercepted == 0 && len(introductions) == 0 {
		b.logger.WithField("target", target).Debug("no advice applies, proxy skipped")
		return nil, nil
	}
	constructor := b.constructorName(target)
	if _, ok := methods[constructor]; !ok {
		methods[constructor] = &interceptedMethod{
			name:           constructor,
			declaringClass: target,
			constructor:    true,
			advices:        map[aop.Kind][]aspect.Advice{},
		}
	}
	methods[constructor].constructor = true

	result, err := b.render(target, constructor, introductions, methods)
	if err != nil {
		return nil, err
	}
	b.logger.WithField("target", target).
		WithField("proxy", result.ProxyClassName).
		WithField("methods", len(methods)).
		Debug("proxy built")
	return result, nil
}

// matchingIntroductions tests every introduction against the class alone.
func (b *ProxyBuilder) matchingIntroductions(target string) ([]aspect.Introduction, error) {
	var list []aspect.Introduction
	for _, c := range b.registry.Containers() {
		for _, i := range c.Introductions() {
			q := pointcut.Query{ClassName: target, ID: uuid.Must(uuid.NewV4()).String()}
			ok, err := i.Pointcut().Matches(q)
			if err != nil {
				return nil, fmt.Errorf("introduction of %s into %s: %w", c.Name(), target, err)
			}
			if ok {
				list = append(list, i)
			}
		}
	}
	return list, nil
}

// introducedMethods maps every method of the introduced interfaces to the
// interface declaring it.
func (b *ProxyBuilder) introducedMethods(target string, introductions []aspect.Introduction) (map[string]string, error) {
	methods := map[string]string{}
	declaredBy := map[string]aspect.Introduction{}
	properties := map[string]aspect.Introduction{}
	for _, i := range introductions {
		if p := i.Property(); p != nil {
			if other, ok := properties[p.Name]; ok {
				return nil, fmt.Errorf("%w: property %q is introduced into %s by both %s and %s",
					ErrIntroductionConflict, p.Name, target, other.AspectClassName(), i.AspectClassName())
			}
			properties[p.Name] = i
			continue
		}
		iface := i.InterfaceName()
		for _, m := range b.reflection.ClassMethodNames(iface) {
			if other, ok := declaredBy[m]; ok {
				return nil, fmt.Errorf("%w: method %q is introduced into %s by both %s (%s) and %s (%s)",
					ErrIntroductionConflict, m, target,
					other.AspectClassName(), other.InterfaceName(), i.AspectClassName(), iface)
			}
			declaredBy[m] = i
			methods[m] = iface
		}
	}
	return methods, nil
}

func (b *ProxyBuilder) interceptedMethods(target string, introduced map[string]string) (map[string]*interceptedMethod, error) {
	var candidates []*interceptedMethod
	for _, name := range b.reflection.ClassMethodNames(target) {
		declaring, ok := b.reflection.MethodDeclaringClass(target, name)
		if !ok {
			return nil, fmt.Errorf("%w: no declaring class for %s->%s()", pointcut.ErrInternal, target, name)
		}
		candidates = append(candidates, &interceptedMethod{name: name, declaringClass: declaring})
	}
	if constructor, ok := b.reflection.Constructor(target); ok {
		candidates = append(candidates, &interceptedMethod{name: constructor, declaringClass: target, constructor: true})
	}
	for _, name := range collections.SortedKeys(introduced) {
		if b.reflection.HasMethod(target, name) {
			continue
		}
		candidates = append(candidates, &interceptedMethod{name: name, declaringClass: introduced[name], introduced: true})
	}

	methods := map[string]*interceptedMethod{}
	for _, c := range b.registry.Containers() {
		for _, advisor := range c.Advisors() {
			for _, m := range candidates {
				q := pointcut.Query{
					ClassName:          target,
					MethodName:         m.name,
					DeclaringClassName: m.declaringClass,
					ID:                 b.nextQueryID(),
				}
				advice, ok, err := advisor.Match(q)
				if err != nil {
					return nil, fmt.Errorf("%s->%s() on %s->%s(): %w",
						c.Name(), advisor.Advice().Name(), target, m.name, err)
				}
				if !ok {
					continue
				}
				if m.advices == nil {
					m.advices = map[aop.Kind][]aspect.Advice{}
				}
				kind := advice.Kind()
				m.advices[kind] = append(m.advices[kind], advice)
				methods[m.name] = m
			}
		}
	}
	for _, m := range candidates {
		if m.introduced {
			if m.advices == nil {
				m.advices = map[aop.Kind][]aspect.Advice{}
			}
			methods[m.name] = m
		}
	}
	return methods, nil
}

func (b *ProxyBuilder) constructorName(target string) string {
	if name, ok := b.reflection.Constructor(target); ok {
		return name
	}
	return "New" + reflection.ShortName(target)
}

// proxyName renders <Target><suffix>_<context>, adding _v2, _v3... on
// collision.
func (b *ProxyBuilder) proxyName(target string) string {
	pkg, _ := b.reflection.ClassPackage(target)
	base := fmt.Sprintf("%s%s_%s", reflection.ShortName(target), b.suffix, b.context)
	name := base
	for i := 2; ; i++ {
		_, taken := b.names[qualifiedName(pkg, name)]
		if !taken && !b.reflection.ClassExists(qualifiedName(pkg, name)) {
			break
		}
		name = fmt.Sprintf("%s_v%d", base, i)
	}
	b.names[qualifiedName(pkg, name)] = struct{}{}
	return name
}

func qualifiedName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// qualify returns the name of class as written inside package pkg.
func (b *ProxyBuilder) qualify(class, pkg string) (string, string) {
	classPkg, path := b.reflection.ClassPackage(class)
	if classPkg == "" || classPkg == pkg {
		return reflection.ShortName(class), ""
	}
	return classPkg + "." + reflection.ShortName(class), fmt.Sprintf("%s %q", classPkg, path)
}

func (b *ProxyBuilder) render(target, constructor string, introductions []aspect.Introduction, methods map[string]*interceptedMethod) (*ProxyBuildResult, error) {
	pkg, path := b.reflection.ClassPackage(target)
	short := reflection.ShortName(target)
	name := b.proxyName(target)
	data := &ProxyData{
		Package:     pkg,
		TargetClass: target,
		Target:      short,
		ProxyName:   name,
		AdvicesVar:  lowerFirst(name) + "Advices",
		Constructor: constructor,
		Tags:        tagLines(b.reflection.ClassTagsValues(target)),
	}
	importSet := map[string]struct{}{}
	for _, spec := range b.reflection.ClassImports(target) {
		importSet[importLine(spec)] = struct{}{}
	}
	result := &ProxyBuildResult{
		TargetClassName: target,
		ProxyClassName:  qualifiedName(pkg, name),
		Package:         pkg,
		PackagePath:     path,
		AdviceSummary:   AdviceSummary{},
	}
	for _, i := range introductions {
		if p := i.Property(); p != nil {
			data.Properties = append(data.Properties, &ProxyProperty{
				Doc:  commentLines(p.Doc),
				Name: p.Name,
				Type: p.Type,
			})
			continue
		}
		iface, spec := b.qualify(i.InterfaceName(), pkg)
		if spec != "" {
			importSet[spec] = struct{}{}
		}
		data.Interfaces = append(data.Interfaces, iface)
		result.Interfaces = append(result.Interfaces, i.InterfaceName())
	}
	data.Imports = collections.SortedKeys(importSet)

	for _, methodName := range collections.SortedKeys(methods) {
		m := methods[methodName]
		refs := &ProxyAdvices{Method: methodName}
		summary := map[string][]string{}
		for _, kind := range aop.Kinds() {
			for _, a := range m.advices[kind] {
				refs.Refs = append(refs.Refs, adviceRefLiteral(a.Ref()))
				summary[kind.String()] = append(summary[kind.String()], a.AspectClassName()+"->"+a.Name())
			}
		}
		data.Advices = append(data.Advices, refs)
		result.AdviceSummary[methodName] = summary
		if m.constructor {
			continue
		}
		sig, hasTarget := b.reflection.MethodSignature(target, methodName)
		if !hasTarget {
			sig, _ = b.reflection.MethodSignature(m.declaringClass, methodName)
		}
		data.Methods = append(data.Methods, renderMethod(short, methodName, sig, hasTarget && !m.introduced))
	}

	src, err := Render(data)
	if err != nil {
		return nil, err
	}
	result.Source = string(b.format(name, src))
	return result, nil
}

// format gofmts src and prunes unused imports. Unformattable source is kept
// as is so the compiler can point at the problem.
func (b *ProxyBuilder) format(name string, src []byte) []byte {
	out, err := imports.Process("", src, nil)
	if err != nil {
		b.logger.WithError(err).
			WithField("proxy", name).
			Warn("invalid Go generated, compile the package to analyze the error")
		return src
	}
	return out
}

// AdviceSummaryOf sorts the entries of s into "method: kind aspect->advice"
// lines.
func AdviceSummaryOf(s AdviceSummary) []string {
	var lines []string
	for _, method := range collections.SortedKeys(s) {
		for _, kind := range collections.SortedKeys(s[method]) {
			for _, a := range s[method][kind] {
				lines = append(lines, fmt.Sprintf("%s: %s %s", method, kind, a))
			}
		}
	}
	return lines
}
