package authmodule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/karim-alweheshy/moaweb/api"
	"github.com/karim-alweheshy/moaweb/dispatch"
)

// LoginSurface is the opaque value handed to the UI hooks while a login
// exchange is in progress.
type LoginSurface struct {
	Endpoint string
}

// Factory builds login modules serving dispatch.LoginRequest. Each module
// exchanges the request's credentials for a bearer token at the configured
// endpoint.
type Factory struct {
	endpoint string
	logger   zerolog.Logger
}

// NewFactory creates a login module factory. endpoint is the token path on
// the dispatcher's host, e.g. "/auth/token".
func NewFactory(endpoint string, logger zerolog.Logger) (*Factory, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("auth endpoint is required")
	}
	if endpoint[0] != '/' {
		endpoint = "/" + endpoint
	}
	return &Factory{endpoint: endpoint, logger: logger}, nil
}

// Capabilities implements dispatch.Factory.
func (f *Factory) Capabilities() []api.Capability {
	return []api.Capability{
		api.CapabilityOf[dispatch.LoginRequest, dispatch.TokenReply](),
	}
}

// New implements dispatch.Factory.
func (f *Factory) New(present api.PresentFunc, dismiss api.DismissFunc) dispatch.Module {
	return &module{
		endpoint: f.endpoint,
		present:  present,
		dismiss:  dismiss,
		logger:   f.logger,
	}
}

type module struct {
	endpoint string
	present  api.PresentFunc
	dismiss  api.DismissFunc
	logger   zerolog.Logger
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Execute presents the login surface, posts the credentials to the token
// endpoint, and completes with the TokenReply. Login rejections complete
// with a plain error rather than a taxonomy error: a 401 from the token
// endpoint must fail the re-authentication flow, not restart it.
func (m *module) Execute(ctx context.Context, d *dispatch.Dispatcher, req api.Request, complete func(value any, err error)) {
	login, ok := req.(dispatch.LoginRequest)
	if !ok {
		complete(nil, fmt.Errorf("auth module cannot serve %T", req))
		return
	}

	surface := LoginSurface{Endpoint: m.endpoint}
	m.present(surface)
	defer m.dismiss(surface)

	payload, err := json.Marshal(credentials{Username: login.Username, Password: login.Password})
	if err != nil {
		complete(nil, fmt.Errorf("failed to encode credentials: %w", err))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Transport().Host()+m.endpoint, bytes.NewReader(payload))
	if err != nil {
		complete(nil, fmt.Errorf("failed to create login request: %w", err))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	// Anonymous submit: the stale token that triggered this exchange must
	// not reach the token endpoint.
	reply, err := d.Transport().SubmitAnonymous(httpReq)
	if err != nil {
		complete(nil, fmt.Errorf("login exchange failed: %w", err))
		return
	}
	if reply.StatusCode < 200 || reply.StatusCode >= 300 {
		m.logger.Warn().Int("status", reply.StatusCode).Msg("Login rejected")
		complete(nil, fmt.Errorf("login rejected with status %d", reply.StatusCode))
		return
	}

	var token dispatch.TokenReply
	if err := json.Unmarshal(reply.Body, &token); err != nil {
		complete(nil, fmt.Errorf("failed to parse token reply: %w", err))
		return
	}
	if token.Token == "" {
		complete(nil, fmt.Errorf("token reply carried no token"))
		return
	}

	complete(token, nil)
}
