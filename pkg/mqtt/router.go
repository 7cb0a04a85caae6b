package mqtt

import (
	"context"
	"sync"

	"github.com/autopeer-io/fleetlink/pkg/mqtt/topic"
)

type route struct {
	filter  string
	qos     int
	handler MessageHandler
}

// router keeps the subscribed filters in registration order and hands each
// incoming message to every matching handler.
type router struct {
	mu     sync.RWMutex
	routes []route
}

// add registers or replaces the handler for filter.
func (r *router) add(filter string, qos int, h MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.routes {
		if r.routes[i].filter == filter {
			r.routes[i] = route{filter: filter, qos: qos, handler: h}
			return
		}
	}
	r.routes = append(r.routes, route{filter: filter, qos: qos, handler: h})
}

func (r *router) remove(filter string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.routes {
		if r.routes[i].filter == filter {
			r.routes = append(r.routes[:i], r.routes[i+1:]...)
			return
		}
	}
}

// snapshot returns a copy of the routes, safe to use without the lock.
func (r *router) snapshot() []route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]route, len(r.routes))
	copy(out, r.routes)
	return out
}

// dispatch calls every handler whose filter matches name. Handlers run on
// the caller's goroutine in registration order. It reports whether any
// handler matched.
func (r *router) dispatch(ctx context.Context, name string, payload []byte) bool {
	matched := false
	for _, rt := range r.snapshot() {
		if topic.Match(rt.filter, name) {
			rt.handler(ctx, name, payload)
			matched = true
		}
	}
	return matched
}
