package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/karim-alweheshy/moaweb/api"
	"github.com/karim-alweheshy/moaweb/transport"
)

// ErrClosed is returned to completions of dispatches issued after Close.
var ErrClosed = errors.New("dispatcher closed")

// Policy selects how completions are delivered when a local request is
// matched by more than one module.
type Policy int

const (
	// PolicyAll invokes the caller's completion once per matching module.
	// This is the default; callers that register overlapping capabilities
	// must de-duplicate themselves.
	PolicyAll Policy = iota
	// PolicyFirst delivers only the first completion and discards the rest.
	PolicyFirst
)

// ParsePolicy converts a config string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "all":
		return PolicyAll, nil
	case "first":
		return PolicyFirst, nil
	default:
		return PolicyAll, fmt.Errorf("unknown fanout policy %q (must be 'all' or 'first')", s)
	}
}

// Dispatcher routes typed requests either to in-process modules or to the
// remote host behind the Transport, transparently re-authenticating on 401
// and retrying the original request once per successful re-authentication.
type Dispatcher struct {
	catalog   []Factory
	tr        *transport.Transport
	logger    zerolog.Logger
	present   api.PresentFunc
	dismiss   api.DismissFunc
	policy    Policy
	forbidden ForbiddenHandler
	onDrop    func()

	auth *authenticator
	exec *executor

	mu       sync.Mutex
	inflight map[*moduleEntry]struct{}

	closed atomic.Bool
}

// New creates a Dispatcher over the given module catalog and transport.
// The catalog is immutable after construction.
func New(catalog []Factory, tr *transport.Transport, logger zerolog.Logger, opts ...Option) *Dispatcher {
	options := defaultDispatcherOptions()
	for _, opt := range opts {
		opt(&options)
	}

	d := &Dispatcher{
		catalog:   catalog,
		tr:        tr,
		logger:    logger,
		present:   options.present,
		dismiss:   options.dismiss,
		policy:    options.policy,
		forbidden: options.forbidden,
		onDrop:    options.onDrop,
		exec:      newExecutor(),
		inflight:  make(map[*moduleEntry]struct{}),
	}
	d.auth = &authenticator{
		d:        d,
		creds:    options.creds,
		coalesce: options.coalesce,
	}
	return d
}

// Transport exposes the underlying HTTP primitive, mainly so modules can
// perform their own wire calls.
func (d *Dispatcher) Transport() *transport.Transport {
	return d.tr
}

// Authorized reports the current authentication state.
func (d *Dispatcher) Authorized() bool {
	return d.auth.Authorized()
}

// Authenticate runs the re-authentication flow explicitly: the login request
// is dispatched through the local path using the dispatcher's stored UI
// hooks, and on success the transport's credential header is refreshed.
func (d *Dispatcher) Authenticate(ctx context.Context) bool {
	return d.auth.reauthenticate(ctx)
}

// Close stops the callback executor. Remote dispatches issued afterwards
// complete immediately with a KindOther error; callbacks still queued are
// discarded.
func (d *Dispatcher) Close() {
	if d.closed.CompareAndSwap(false, true) {
		d.exec.close()
	}
}

// match filters the catalog to factories advertising the request's concrete
// type with the expected response type.
func (d *Dispatcher) match(req api.Request, resp reflect.Type) []Factory {
	reqType := reflect.TypeOf(req)
	var out []Factory
	for _, f := range d.catalog {
		for _, c := range f.Capabilities() {
			if c.Request == reqType && c.Response == resp {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// deliver marshals a remote-path completion onto the single designated
// callback goroutine. Local-path completions do not go through here; they
// fire on whatever goroutine the module completes on.
func (d *Dispatcher) deliver(f func()) {
	d.exec.do(f)
}
