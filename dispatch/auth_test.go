package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karim-alweheshy/moaweb/api"
)

func TestAuthenticateSuccess(t *testing.T) {
	d := newTestDispatcher(t, []Factory{loginStub("shiny")})

	require.False(t, d.Authorized())
	require.True(t, d.Authenticate(context.Background()))
	assert.True(t, d.Authorized())
	assert.Equal(t, "shiny", d.Transport().Token())
}

func TestAuthenticateWithoutLoginModule(t *testing.T) {
	d := newTestDispatcher(t, nil)

	assert.False(t, d.Authenticate(context.Background()))
	assert.False(t, d.Authorized())
	assert.Empty(t, d.Transport().Token())
}

func TestAuthenticateUsesConfiguredCredentials(t *testing.T) {
	var gotUser, gotPass atomic.Value
	login := &stubFactory{
		caps: []api.Capability{api.CapabilityOf[LoginRequest, TokenReply]()},
		execute: func(ctx context.Context, d *Dispatcher, req api.Request, complete func(any, error)) {
			lr := req.(LoginRequest)
			gotUser.Store(lr.Username)
			gotPass.Store(lr.Password)
			complete(TokenReply{Token: "tok"}, nil)
		},
	}
	d := newTestDispatcher(t, []Factory{login},
		WithCredentials(func() (string, string) { return "alice", "s3cret" }))

	require.True(t, d.Authenticate(context.Background()))
	assert.Equal(t, "alice", gotUser.Load())
	assert.Equal(t, "s3cret", gotPass.Load())
}

func TestAuthenticateDefaultsToEmptyCredentials(t *testing.T) {
	var gotUser, gotPass atomic.Value
	login := &stubFactory{
		caps: []api.Capability{api.CapabilityOf[LoginRequest, TokenReply]()},
		execute: func(ctx context.Context, d *Dispatcher, req api.Request, complete func(any, error)) {
			lr := req.(LoginRequest)
			gotUser.Store(lr.Username)
			gotPass.Store(lr.Password)
			complete(TokenReply{Token: "tok"}, nil)
		},
	}
	d := newTestDispatcher(t, []Factory{login})

	require.True(t, d.Authenticate(context.Background()))
	assert.Equal(t, "", gotUser.Load())
	assert.Equal(t, "", gotPass.Load())
}

func TestAuthenticateUsesStoredHooks(t *testing.T) {
	var presented atomic.Int32
	login := &stubFactory{
		caps: []api.Capability{api.CapabilityOf[LoginRequest, TokenReply]()},
		execute: func(ctx context.Context, d *Dispatcher, req api.Request, complete func(any, error)) {
			complete(TokenReply{Token: "tok"}, nil)
		},
	}
	d := newTestDispatcher(t, []Factory{login},
		WithHooks(func(any) { presented.Add(1) }, nil))

	require.True(t, d.Authenticate(context.Background()))

	// The login module was built with the dispatcher's stored present hook.
	m := login.lastModule()
	require.NotNil(t, m)
	m.present(nil)
	assert.Equal(t, int32(1), presented.Load())
}

func TestAuthenticateFailureMarksUnauthorized(t *testing.T) {
	login := &stubFactory{
		caps: []api.Capability{api.CapabilityOf[LoginRequest, TokenReply]()},
		execute: func(ctx context.Context, d *Dispatcher, req api.Request, complete func(any, error)) {
			complete(nil, api.Forbidden(nil))
		},
	}
	d := newTestDispatcher(t, []Factory{login})
	d.auth.setAuthorized(true)

	assert.False(t, d.Authenticate(context.Background()))
	assert.False(t, d.Authorized())
}

func slowLogin(delay time.Duration, logins *atomic.Int32) *stubFactory {
	return &stubFactory{
		caps: []api.Capability{api.CapabilityOf[LoginRequest, TokenReply]()},
		execute: func(ctx context.Context, d *Dispatcher, req api.Request, complete func(any, error)) {
			logins.Add(1)
			time.Sleep(delay)
			complete(TokenReply{Token: "tok"}, nil)
		},
	}
}

func TestReauthenticateNotCoalescedByDefault(t *testing.T) {
	var logins atomic.Int32
	d := newTestDispatcher(t, []Factory{slowLogin(50*time.Millisecond, &logins)})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, d.auth.reauthenticate(context.Background()))
		}()
	}
	wg.Wait()

	// Each caller independently runs its own login sequence.
	assert.Equal(t, int32(4), logins.Load())
}

func TestReauthenticateCoalesced(t *testing.T) {
	var logins atomic.Int32
	d := newTestDispatcher(t, []Factory{slowLogin(50*time.Millisecond, &logins)},
		WithCoalescedReauth())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, d.auth.reauthenticate(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), logins.Load(), "concurrent callers must share one login attempt")
}

func TestAuthenticateAbandonedOnContextCancel(t *testing.T) {
	var logins atomic.Int32
	d := newTestDispatcher(t, []Factory{slowLogin(5*time.Second, &logins)})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.False(t, d.Authenticate(ctx))
	assert.False(t, d.Authorized())
}
