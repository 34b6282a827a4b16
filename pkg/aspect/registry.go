package aspect

import (
	"fmt"

	"github.com/go-park/weaver/pkg/pointcut"
)

var _ pointcut.Resolver = (*Registry)(nil)

// Registry holds the aspect containers of one weave and resolves named
// pointcut references across them.
type Registry struct {
	containers []Container
	byName     map[string]Container
}

func NewRegistry(containers ...Container) *Registry {
	r := &Registry{byName: map[string]Container{}}
	for _, c := range containers {
		r.Add(c)
	}
	return r
}

func (r *Registry) Add(c Container) {
	if _, ok := r.byName[c.Name()]; !ok {
		r.containers = append(r.containers, c)
	} else {
		for i, old := range r.containers {
			if old.Name() == c.Name() {
				r.containers[i] = c
			}
		}
	}
	r.byName[c.Name()] = c
}

// Containers returns the containers in the order they were added.
func (r *Registry) Containers() []Container { return r.containers }

func (r *Registry) Container(aspectClassName string) (Container, bool) {
	c, ok := r.byName[aspectClassName]
	return c, ok
}

func (r *Registry) IsAspect(className string) bool {
	_, ok := r.byName[className]
	return ok
}

// FindPointcut returns the pointcut declared by method of the aspect, either
// through a pointcut tag or as the pointcut of the advice implemented by it.
func (r *Registry) FindPointcut(aspectClassName, method string) (*pointcut.Pointcut, error) {
	c, ok := r.byName[aspectClassName]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an aspect, cannot resolve pointcut %s->%s",
			ErrConfiguration, aspectClassName, aspectClassName, method)
	}
	if p, ok := c.Pointcut(method); ok {
		return p, nil
	}
	for _, a := range c.Advisors() {
		if a.Advice().Name() == method {
			return a.Pointcut(), nil
		}
	}
	return nil, fmt.Errorf("%w: no pointcut %s->%s", ErrConfiguration, aspectClassName, method)
}
