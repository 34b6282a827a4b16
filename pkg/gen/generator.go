package gen

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/go-park/weaver/pkg/aop"
	"github.com/go-park/weaver/pkg/aspect"
	"github.com/go-park/weaver/pkg/cache"
	"github.com/go-park/weaver/pkg/pointcut"
	"github.com/go-park/weaver/pkg/reflection"
)

// CacheTag tags every cache entry written by the Generator.
const CacheTag = "aop"

// Generator runs the weaving pipeline over a set of classes: it builds the
// aspect registry, decides which classes get a proxy and renders them.
type Generator struct {
	options
	reflection reflection.Service
	classNames []string
	denied     []*regexp.Regexp
	registry   *aspect.Registry
	results    []*ProxyBuildResult
	byTarget   map[string]*ProxyBuildResult
}

func NewGenerator(r reflection.Service, opts ...Option) *Generator {
	g := &Generator{
		options:    DefaultOptions(),
		reflection: r,
		byTarget:   map[string]*ProxyBuildResult{},
	}
	for _, opt := range opts {
		opt.apply(&g.options)
	}
	return g
}

// Initialize weaves classNames. A cached result set built from identical
// reflection facts is reused without parsing or matching anything.
func (g *Generator) Initialize(classNames []string) error {
	g.classNames = append([]string(nil), classNames...)
	g.registry = nil
	g.results = nil
	g.byTarget = map[string]*ProxyBuildResult{}

	denied, err := compileBlacklist(g.options.blacklist)
	if err != nil {
		return err
	}
	g.denied = denied
	if g.cache == nil && g.cacheOptions.Backend != "" {
		c, err := cache.New(g.cacheOptions)
		if err != nil {
			return err
		}
		g.cache = c
	}

	var key string
	if g.cache != nil {
		if key, err = fingerprint(g.reflection, g.classNames, &g.options); err != nil {
			return err
		}
		if ok, err := g.loadCache(key); err != nil {
			return err
		} else if ok {
			return nil
		}
	}

	registry, err := g.aspects()
	if err != nil {
		return err
	}
	builder := NewProxyBuilder(g.reflection, registry, g.builderOptions()...)
	for _, class := range g.classNames {
		if !g.proxyable(class) {
			continue
		}
		result, err := builder.Build(class)
		if err != nil {
			return err
		}
		if result != nil {
			g.add(result)
		}
	}

	if g.cache != nil {
		return g.saveCache(key)
	}
	return nil
}

func (g *Generator) builderOptions() []Option {
	return []Option{
		WithSuffix(g.suffix),
		WithContext(g.context),
		WithLogger(g.logger),
	}
}

func (g *Generator) aspects() (*aspect.Registry, error) {
	if g.registry != nil {
		return g.registry, nil
	}
	registry, err := aspect.NewBuilder(g.reflection,
		aspect.WithSettings(g.settings),
		aspect.WithFilters(g.filters),
		aspect.WithLogger(g.logger),
	).Build(g.classNames)
	if err != nil {
		return nil, err
	}
	g.registry = registry
	return registry, nil
}

// proxyable excludes blacklisted classes, aspects, abstract and final classes,
// interfaces and proxies built earlier.
func (g *Generator) proxyable(class string) bool {
	for _, re := range g.denied {
		if re.MatchString(class) {
			return false
		}
	}
	r := g.reflection
	switch {
	case r.IsClassTaggedWith(class, aspect.TagAspect),
		r.IsClassAbstract(class),
		r.IsClassFinal(class),
		r.IsInterface(class):
		return false
	case r.ImplementsInterface(class, aop.ProxyInterfaceName):
		g.logger.WithField("class", class).Debug("class is a proxy, skipped")
		return false
	}
	return true
}

func (g *Generator) add(result *ProxyBuildResult) {
	g.results = append(g.results, result)
	g.byTarget[result.TargetClassName] = result
}

func (g *Generator) loadCache(key string) (bool, error) {
	ok, err := g.cache.Has(key)
	if err != nil || !ok {
		g.logger.WithField("key", key).Debug("proxy cache miss")
		return false, err
	}
	data, err := g.cache.Get(key)
	if err != nil {
		return false, err
	}
	var results []*ProxyBuildResult
	if err := json.Unmarshal(data, &results); err != nil {
		return false, fmt.Errorf("gen: decode cached proxies: %w", err)
	}
	for _, r := range results {
		g.add(r)
	}
	g.logger.WithField("key", key).WithField("proxies", len(results)).Debug("proxy cache hit")
	return true, nil
}

func (g *Generator) saveCache(key string) error {
	if err := g.cache.FlushByTag(CacheTag); err != nil {
		return err
	}
	data, err := json.Marshal(g.results)
	if err != nil {
		return fmt.Errorf("gen: encode proxies: %w", err)
	}
	return g.cache.Set(key, data, CacheTag)
}

// Results returns the proxies built by the last Initialize.
func (g *Generator) Results() []*ProxyBuildResult { return g.results }

// Result returns the proxy of target, if one was built.
func (g *Generator) Result(target string) (*ProxyBuildResult, bool) {
	r, ok := g.byTarget[target]
	return r, ok
}

// TargetAndProxyClassNames maps every proxied class to its proxy.
func (g *Generator) TargetAndProxyClassNames() map[string]string {
	names := make(map[string]string, len(g.results))
	for _, r := range g.results {
		names[r.TargetClassName] = r.ProxyClassName
	}
	return names
}

// AdvicedMethodsInformation returns the advices woven into target.
func (g *Generator) AdvicedMethodsInformation(target string) AdviceSummary {
	if r, ok := g.byTarget[target]; ok {
		return r.AdviceSummary
	}
	return AdviceSummary{}
}

// FindPointcut resolves a pointcut declared by an aspect. After a cache hit
// the aspect registry is built on first use.
func (g *Generator) FindPointcut(aspectClassName, method string) (*pointcut.Pointcut, error) {
	registry, err := g.aspects()
	if err != nil {
		return nil, err
	}
	return registry.FindPointcut(aspectClassName, method)
}

// Close releases the cache.
func (g *Generator) Close() error {
	if g.cache == nil {
		return nil
	}
	return g.cache.Close()
}

// Do weaves classNames and returns the proxies.
func Do(r reflection.Service, classNames []string, opts ...Option) ([]*ProxyBuildResult, error) {
	g := NewGenerator(r, opts...)
	defer g.Close()
	if err := g.Initialize(classNames); err != nil {
		return nil, err
	}
	return g.Results(), nil
}
