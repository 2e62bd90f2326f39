package authmodule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karim-alweheshy/moaweb/api"
	"github.com/karim-alweheshy/moaweb/dispatch"
	"github.com/karim-alweheshy/moaweb/transport"
)

func newDispatcher(t *testing.T, serverURL string, factory *Factory) *dispatch.Dispatcher {
	t.Helper()
	tr, err := transport.New(serverURL, zerolog.Nop())
	require.NoError(t, err)
	d := dispatch.New([]dispatch.Factory{factory}, tr, zerolog.Nop())
	t.Cleanup(d.Close)
	return d
}

func TestNewFactory(t *testing.T) {
	t.Run("missing endpoint", func(t *testing.T) {
		_, err := NewFactory("", zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("leading slash added", func(t *testing.T) {
		f, err := NewFactory("auth/token", zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "/auth/token", f.endpoint)
	})
}

func TestFactoryCapabilities(t *testing.T) {
	f, err := NewFactory("/auth/token", zerolog.Nop())
	require.NoError(t, err)

	caps := f.Capabilities()
	require.Len(t, caps, 1)
	assert.Equal(t, api.TypeOf[dispatch.LoginRequest](), caps[0].Request)
	assert.Equal(t, api.TypeOf[dispatch.TokenReply](), caps[0].Response)
}

func TestExecuteExchangesCredentials(t *testing.T) {
	var gotBody credentials
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/token", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dispatch.TokenReply{Token: "granted"})
	}))
	defer server.Close()

	f, err := NewFactory("/auth/token", zerolog.Nop())
	require.NoError(t, err)
	d := newDispatcher(t, server.URL, f)

	var presented, dismissed []any
	m := f.New(
		func(s any) { presented = append(presented, s) },
		func(s any) { dismissed = append(dismissed, s) },
	)

	done := make(chan struct{})
	var gotValue any
	var gotErr error
	m.Execute(context.Background(), d, dispatch.LoginRequest{Username: "alice", Password: "s3cret"}, func(v any, err error) {
		gotValue, gotErr = v, err
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	require.NoError(t, gotErr)
	assert.Equal(t, dispatch.TokenReply{Token: "granted"}, gotValue)
	assert.Equal(t, "alice", gotBody.Username)
	assert.Equal(t, "s3cret", gotBody.Password)

	// The blocking surface was presented and dismissed around the exchange.
	require.Len(t, presented, 1)
	require.Len(t, dismissed, 1)
	assert.IsType(t, LoginSurface{}, presented[0])
}

func TestExecuteOmitsStaleToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dispatch.TokenReply{Token: "fresh"})
	}))
	defer server.Close()

	f, err := NewFactory("/auth/token", zerolog.Nop())
	require.NoError(t, err)
	d := newDispatcher(t, server.URL, f)

	// The rejected token is still set when re-authentication starts; the
	// credential POST must not carry it.
	d.Transport().SetToken("stale")

	m := f.New(func(any) {}, func(any) {})

	done := make(chan error, 1)
	m.Execute(context.Background(), d, dispatch.LoginRequest{Username: "alice", Password: "s3cret"}, func(v any, err error) {
		done <- err
	})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
	assert.Empty(t, gotAuth, "token endpoint must never see the stale token")
}

func TestExecuteRejectionIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	f, err := NewFactory("/auth/token", zerolog.Nop())
	require.NoError(t, err)
	d := newDispatcher(t, server.URL, f)

	m := f.New(func(any) {}, func(any) {})

	done := make(chan error, 1)
	m.Execute(context.Background(), d, dispatch.LoginRequest{}, func(v any, err error) {
		done <- err
	})

	err = <-done
	require.Error(t, err)
	// A login rejection must stay outside the taxonomy so a 401 from the
	// token endpoint fails re-authentication instead of restarting it.
	_, inTaxonomy := api.AsError(err)
	assert.False(t, inTaxonomy)
}

func TestExecuteEmptyTokenFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":""}`))
	}))
	defer server.Close()

	f, err := NewFactory("/auth/token", zerolog.Nop())
	require.NoError(t, err)
	d := newDispatcher(t, server.URL, f)

	m := f.New(func(any) {}, func(any) {})

	done := make(chan error, 1)
	m.Execute(context.Background(), d, dispatch.LoginRequest{}, func(v any, err error) {
		done <- err
	})

	require.Error(t, <-done)
}

func TestEndToEndAuthenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dispatch.TokenReply{Token: "end-to-end"})
	}))
	defer server.Close()

	f, err := NewFactory("/auth/token", zerolog.Nop())
	require.NoError(t, err)
	d := newDispatcher(t, server.URL, f)

	require.True(t, d.Authenticate(context.Background()))
	assert.True(t, d.Authorized())
	assert.Equal(t, "end-to-end", d.Transport().Token())
}
