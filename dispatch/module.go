package dispatch

import (
	"context"
	"sync"

	"github.com/karim-alweheshy/moaweb/api"
)

// Module is a capability-bearing handler instantiated per dispatch attempt.
// Execute must invoke complete exactly once; the dispatcher removes the
// module from its in-flight set the instant the completion fires. A module
// failing with an error from the api taxonomy opts into the dispatcher's
// 401/403 interception; any other error is forwarded to the caller verbatim.
type Module interface {
	Execute(ctx context.Context, d *Dispatcher, req api.Request, complete func(value any, err error))
}

// Factory builds modules and advertises the request/response type pairs
// they can serve.
type Factory interface {
	Capabilities() []api.Capability
	New(present api.PresentFunc, dismiss api.DismissFunc) Module
}

// moduleEntry tracks one in-flight module instance. The once guard enforces
// the at-most-one-completion invariant per instantiation.
type moduleEntry struct {
	module Module
	once   sync.Once
}

func (d *Dispatcher) track(m Module) *moduleEntry {
	entry := &moduleEntry{module: m}
	d.mu.Lock()
	d.inflight[entry] = struct{}{}
	d.mu.Unlock()
	return entry
}

func (d *Dispatcher) untrack(entry *moduleEntry) {
	d.mu.Lock()
	delete(d.inflight, entry)
	d.mu.Unlock()
}

// InflightCount reports how many module instances are currently executing.
func (d *Dispatcher) InflightCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}
