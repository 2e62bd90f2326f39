package dispatch

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/karim-alweheshy/moaweb/api"
)

// CredentialProvider supplies the credentials used to build login requests.
type CredentialProvider func() (username, password string)

// EmptyCredentials is the default provider. The login request then carries
// no credentials; a registered login module is expected to obtain them
// itself, typically through the presented UI surface.
func EmptyCredentials() (username, password string) {
	return "", ""
}

// LoginRequest is the local-capable request the authenticator dispatches to
// exchange credentials for a token.
type LoginRequest struct {
	Username string
	Password string
}

// TokenReply carries the bearer token returned by a successful login.
type TokenReply struct {
	Token string `json:"token"`
}

// ForbiddenHandler decides whether a dispatch failing with 403 may be
// retried. Alternate policies (escalation, logout) can be substituted via
// WithForbiddenHandler without touching the dispatcher.
type ForbiddenHandler interface {
	HandleForbidden(ctx context.Context) bool
}

// denyForbidden never permits a retry; 403 is terminal.
type denyForbidden struct{}

func (denyForbidden) HandleForbidden(context.Context) bool { return false }

// authenticator tracks the authorized/unauthorized state and performs the
// login exchange through the dispatcher's own local path.
type authenticator struct {
	d        *Dispatcher
	creds    CredentialProvider
	coalesce bool
	group    singleflight.Group

	mu         sync.Mutex
	authorized bool
}

func (a *authenticator) Authorized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authorized
}

func (a *authenticator) setAuthorized(v bool) {
	a.mu.Lock()
	a.authorized = v
	a.mu.Unlock()
}

// reauthenticate runs the login flow and reports whether a retry of the
// failing dispatch is warranted. Without coalescing, concurrent callers each
// run their own login sequence.
func (a *authenticator) reauthenticate(ctx context.Context) bool {
	if !a.coalesce {
		return a.login(ctx)
	}
	v, _, _ := a.group.Do("login", func() (any, error) {
		return a.login(ctx), nil
	})
	ok, _ := v.(bool)
	return ok
}

// login dispatches a LoginRequest through the local path using the
// dispatcher's stored UI hooks and blocks for the first completion. On
// success the transport's credential header is refreshed before the
// authorized flag flips, so every subsequent remote dispatch carries the
// new token.
func (a *authenticator) login(ctx context.Context) bool {
	username, password := a.creds()

	results := make(chan api.Result[TokenReply], 1)
	DispatchLocal(ctx, a.d, LoginRequest{Username: username, Password: password},
		a.d.present, a.d.dismiss,
		func(r api.Result[TokenReply]) {
			select {
			case results <- r:
			default:
			}
		})

	select {
	case r := <-results:
		if !r.Ok() {
			a.d.logger.Warn().Err(r.Err).Msg("Re-authentication failed")
			a.setAuthorized(false)
			return false
		}
		a.d.tr.SetToken(r.Value.Token)
		a.setAuthorized(true)
		a.d.logger.Debug().Msg("Re-authentication succeeded, credential header refreshed")
		return true
	case <-ctx.Done():
		a.d.logger.Warn().Err(ctx.Err()).Msg("Re-authentication abandoned")
		a.setAuthorized(false)
		return false
	}
}
