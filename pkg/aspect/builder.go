package aspect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/go-park/weaver/pkg/aop"
	"github.com/go-park/weaver/pkg/config"
	"github.com/go-park/weaver/pkg/pointcut"
	"github.com/go-park/weaver/pkg/reflection"
)

const (
	TagAspect    = "aspect"
	TagPointcut  = "pointcut"
	TagIntroduce = "introduce"
)

var patternTypeName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Builder scans classes tagged as aspects and builds their containers.
type Builder struct {
	reflection reflection.Service
	settings   config.Settings
	filters    pointcut.FilterResolver
	logger     logrus.FieldLogger
}

func WithSettings(s config.Settings) Option[Builder] {
	return func(o *Builder) {
		o.settings = s
	}
}

func WithFilters(f pointcut.FilterResolver) Option[Builder] {
	return func(o *Builder) {
		o.filters = f
	}
}

func WithLogger(l logrus.FieldLogger) Option[Builder] {
	return func(o *Builder) {
		o.logger = l
	}
}

func NewBuilder(r reflection.Service, opts ...Option[Builder]) *Builder {
	b := &Builder{
		reflection: r,
		settings:   config.Settings{},
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates a container for every class of classNames tagged as aspect.
// Named pointcut references are resolved through the returned registry, so
// aspects may refer to pointcuts of aspects built after them.
func (b *Builder) Build(classNames []string) (*Registry, error) {
	registry := NewRegistry()
	parser := pointcut.NewParser(
		pointcut.WithReflection(b.reflection),
		pointcut.WithSettings(b.settings),
		pointcut.WithResolver(registry),
		pointcut.WithFilters(b.filters),
		pointcut.WithLogger(b.logger),
	)
	for _, class := range classNames {
		if !b.reflection.IsClassTaggedWith(class, TagAspect) {
			continue
		}
		c, err := b.buildContainer(parser, class)
		if err != nil {
			return nil, err
		}
		registry.Add(c)
	}
	return registry, nil
}

func (b *Builder) buildContainer(parser *pointcut.Parser, class string) (Container, error) {
	var opts []Option[container]
	opts = append(opts, WithContainerName(class))
	counts := map[string]int{}

	for _, method := range b.reflection.ClassMethodNames(class) {
		tags := b.reflection.MethodTagsValues(class, method)
		source := class + "->" + method
		for _, kind := range aop.Kinds() {
			for _, expression := range tags[kind.String()] {
				p, err := b.parse(parser, expression, class, method, source)
				if err != nil {
					return nil, err
				}
				a := NewAdvice(
					WithAdviceKind(kind),
					WithAdviceMethod(class, method),
					WithAdviceCondition(p.RuntimeCondition()),
				)
				opts = append(opts, WithAdvisors(NewAdvisor(a, p)))
				counts["advisors"]++
			}
		}
		if values := tags[TagPointcut]; len(values) > 0 {
			p, err := b.parse(parser, values[0], class, method, source)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithNamedPointcut(method, p))
			counts["pointcuts"]++
		}
	}

	for _, value := range b.reflection.ClassTagsValues(class)[TagIntroduce] {
		i, err := b.interfaceIntroduction(parser, class, value, class)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithIntroductions(i))
		counts["introductions"]++
	}
	for _, property := range b.reflection.ClassPropertyNames(class) {
		source := class + "->" + property
		for _, value := range b.reflection.PropertyTagsValues(class, property)[TagIntroduce] {
			var i Introduction
			var err error
			if isInterfaceIntroduction(value) {
				i, err = b.interfaceIntroduction(parser, class, value, source)
			} else {
				i, err = b.propertyIntroduction(parser, class, property, value, source)
			}
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithIntroductions(i))
			counts["introductions"]++
		}
	}

	c := NewContainer(opts...)
	if c.Empty() {
		return nil, fmt.Errorf("%w: the class %q is tagged to be an aspect but does not contain advices, introductions or pointcut declarations",
			ErrConfiguration, class)
	}
	b.logger.WithField("aspect", class).
		WithField("advisors", counts["advisors"]).
		WithField("introductions", counts["introductions"]).
		WithField("pointcuts", counts["pointcuts"]).
		Debug("aspect container built")
	return c, nil
}

func (b *Builder) parse(parser *pointcut.Parser, expression, class, method, source string) (*pointcut.Pointcut, error) {
	composite, err := parser.Parse(expression, source)
	if err != nil {
		return nil, err
	}
	return pointcut.New(expression, composite, class, method), nil
}

// isInterfaceIntroduction reports whether an introduce tag value starts with
// a type name followed by a comma. Otherwise the whole value is a pointcut
// expression, which may contain commas itself.
func isInterfaceIntroduction(value string) bool {
	name, _, ok := strings.Cut(value, ",")
	return ok && patternTypeName.MatchString(strings.TrimSpace(name))
}

// interfaceIntroduction parses "InterfaceName, pointcut expression".
func (b *Builder) interfaceIntroduction(parser *pointcut.Parser, class, value, source string) (Introduction, error) {
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: introduce tag %q of %s must look like \"Interface, pointcut expression\"",
			ErrConfiguration, value, source)
	}
	iface, expression := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if !b.reflection.IsInterface(iface) {
		return nil, fmt.Errorf("%w: the interface %q introduced in %s does not exist", ErrConfiguration, iface, source)
	}
	p, err := b.parse(parser, expression, class, "", source)
	if err != nil {
		return nil, err
	}
	return NewIntroduction(
		WithIntroductionAspect(class),
		WithIntroducedInterface(iface),
		WithIntroductionPointcut(p),
	), nil
}

func (b *Builder) propertyIntroduction(parser *pointcut.Parser, class, property, expression, source string) (Introduction, error) {
	p, err := b.parse(parser, strings.TrimSpace(expression), class, "", source)
	if err != nil {
		return nil, err
	}
	return NewIntroduction(
		WithIntroductionAspect(class),
		WithIntroducedProperty(IntroducedProperty{
			Name:       property,
			Type:       b.reflection.PropertyType(class, property),
			Visibility: b.reflection.PropertyVisibility(class, property),
			Doc:        b.reflection.PropertyDoc(class, property),
		}),
		WithIntroductionPointcut(p),
	), nil
}
