package dispatch

import "github.com/karim-alweheshy/moaweb/api"

// Option configures a Dispatcher.
type Option func(*dispatcherOptions)

type dispatcherOptions struct {
	present   api.PresentFunc
	dismiss   api.DismissFunc
	policy    Policy
	creds     CredentialProvider
	forbidden ForbiddenHandler
	coalesce  bool
	onDrop    func()
}

func defaultDispatcherOptions() dispatcherOptions {
	return dispatcherOptions{
		present:   func(any) {},
		dismiss:   func(any) {},
		creds:     EmptyCredentials,
		forbidden: denyForbidden{},
	}
}

// WithHooks sets the UI hooks the dispatcher stores for re-authentication.
// These are distinct from the per-call hooks passed to DispatchLocal.
func WithHooks(present api.PresentFunc, dismiss api.DismissFunc) Option {
	return func(o *dispatcherOptions) {
		if present != nil {
			o.present = present
		}
		if dismiss != nil {
			o.dismiss = dismiss
		}
	}
}

// WithPolicy selects the fan-out completion policy for local dispatches.
func WithPolicy(p Policy) Option {
	return func(o *dispatcherOptions) {
		o.policy = p
	}
}

// WithCredentials supplies the credentials used to build login requests.
// The default provider yields empty credentials.
func WithCredentials(cp CredentialProvider) Option {
	return func(o *dispatcherOptions) {
		if cp != nil {
			o.creds = cp
		}
	}
}

// WithForbiddenHandler replaces the 403 strategy. The default handler never
// permits a retry, so forbidden responses are terminal.
func WithForbiddenHandler(h ForbiddenHandler) Option {
	return func(o *dispatcherOptions) {
		if h != nil {
			o.forbidden = h
		}
	}
}

// WithCoalescedReauth gates re-authentication behind a single in-flight
// attempt shared by concurrent callers. Off by default: each failing
// dispatch independently starts its own login sequence.
func WithCoalescedReauth() Option {
	return func(o *dispatcherOptions) {
		o.coalesce = true
	}
}

// WithDropHook registers a callback invoked whenever a success reply is
// dropped for missing a JSON body. The caller's completion is never invoked
// for dropped replies; this hook is the only observable signal.
func WithDropHook(fn func()) Option {
	return func(o *dispatcherOptions) {
		o.onDrop = fn
	}
}
