package aop

import "sync"

// Guard holds the per-instance, per-method "advice in progress" flags of a
// proxy. The zero value is ready to use.
//
// The flags are not tied to a goroutine: while one goroutine runs the advices
// of a method, a concurrent call of the same method on the same proxy is
// taken for re-entry and runs the target method without advices. Proxies
// whose advices must run on every concurrent call should not be shared
// between goroutines.
type Guard struct {
	mu     sync.Mutex
	active map[string]bool
}

// Enter sets the flag of method. It returns false when the flag was already
// set, which means the caller is re-entering the method from advice code.
// On success the returned release func clears the flag and must be called on
// every exit path.
func (g *Guard) Enter(method string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[method] {
		return func() {}, false
	}
	if g.active == nil {
		g.active = map[string]bool{}
	}
	g.active[method] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, method)
			g.mu.Unlock()
		})
	}, true
}

// Active reports whether advice for method is currently running.
func (g *Guard) Active(method string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[method]
}
