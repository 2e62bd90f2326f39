package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/karim-alweheshy/moaweb/api"
)

// DispatchLocal routes req to every registered module capable of serving it
// with response type T. Each match is instantiated with the given UI hooks,
// registered in the in-flight set, and executed as an independent task.
//
// With zero matches the completion fires exactly once with a bad-request
// error and no module is instantiated. With multiple matches and PolicyAll
// the completion may fire once per module. A module failing with 401
// triggers re-authentication and, on success, a full re-issue of the
// dispatch: fresh matching, fresh instantiation, same hooks and completion.
//
// Completions fire on whatever goroutine the module completes on; unlike
// the remote path they are not marshaled onto the callback goroutine.
func DispatchLocal[T any](ctx context.Context, d *Dispatcher, req api.Request, present api.PresentFunc, dismiss api.DismissFunc, complete api.Completion[T]) {
	deliver := complete
	if d.policy == PolicyFirst {
		var once sync.Once
		deliver = func(r api.Result[T]) {
			once.Do(func() { complete(r) })
		}
	}
	dispatchLocal(ctx, d, req, present, dismiss, deliver)
}

func dispatchLocal[T any](ctx context.Context, d *Dispatcher, req api.Request, present api.PresentFunc, dismiss api.DismissFunc, complete api.Completion[T]) {
	matches := d.match(req, api.TypeOf[T]())
	if len(matches) == 0 {
		d.logger.Debug().
			Type("request", req).
			Str("response", api.TypeOf[T]().String()).
			Msg("No capable module for request")
		complete(api.Failure[T](api.BadRequest()))
		return
	}

	d.logger.Debug().
		Type("request", req).
		Int("matches", len(matches)).
		Msg("Dispatching local request")

	for _, f := range matches {
		m := f.New(present, dismiss)
		entry := d.track(m)
		go m.Execute(ctx, d, req, func(value any, err error) {
			entry.once.Do(func() {
				settleLocal(ctx, d, entry, req, present, dismiss, complete, value, err)
			})
		})
	}
}

// settleLocal applies the retry-or-fail decision for one module completion.
// The entry leaves the in-flight set on every path exactly once.
func settleLocal[T any](ctx context.Context, d *Dispatcher, entry *moduleEntry, req api.Request, present api.PresentFunc, dismiss api.DismissFunc, complete api.Completion[T], value any, err error) {
	if err == nil {
		d.untrack(entry)
		v, ok := value.(T)
		if !ok {
			complete(api.Failure[T](api.Parsing(fmt.Errorf("module produced %T, want %s", value, api.TypeOf[T]()))))
			return
		}
		complete(api.Success(v))
		return
	}

	apiErr, ok := api.AsError(err)
	if !ok {
		// Not in the HTTP taxonomy: forward verbatim.
		d.untrack(entry)
		complete(api.Failure[T](api.Other(err)))
		return
	}

	switch apiErr.Kind {
	case api.KindUnauthorized:
		if d.auth.reauthenticate(ctx) {
			d.untrack(entry)
			d.logger.Debug().Type("request", req).Msg("Re-authenticated, re-issuing local dispatch")
			dispatchLocal(ctx, d, req, present, dismiss, complete)
			return
		}
		d.untrack(entry)
		complete(api.Failure[T](apiErr))
	case api.KindForbidden:
		if d.forbidden.HandleForbidden(ctx) {
			d.untrack(entry)
			dispatchLocal(ctx, d, req, present, dismiss, complete)
			return
		}
		d.untrack(entry)
		complete(api.Failure[T](apiErr))
	default:
		d.untrack(entry)
		complete(api.Failure[T](apiErr))
	}
}
