package transport

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
)

// Reply is the raw outcome of one HTTP exchange. Status classification is
// left to the caller; the transport only reports what came back.
type Reply struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes wire-level requests against a single configured host
// and holds the current credential header.
type Transport struct {
	host       string
	httpClient *http.Client
	logger     zerolog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a Transport for the given host.
func New(host string, logger zerolog.Logger, opts ...Option) (*Transport, error) {
	if host == "" {
		return nil, fmt.Errorf("transport host is required")
	}

	// Ensure host doesn't have trailing slashes
	host = strings.TrimRight(host, "/")
	if host == "" {
		return nil, fmt.Errorf("transport host is required")
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	client := options.httpClient
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = options.timeout
	}

	return &Transport{
		host:       host,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Host returns the configured base URL without trailing slash.
func (t *Transport) Host() string {
	return t.host
}

// SetToken replaces the bearer token attached to subsequent requests. An
// empty token clears the credential header.
func (t *Transport) SetToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// Token returns the current bearer token, empty if unauthenticated.
func (t *Transport) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Submit executes req and returns the reply. A non-nil error means the
// exchange failed at the network level and no reply exists; HTTP error
// statuses are returned in the Reply, not as errors.
func (t *Transport) Submit(req *http.Request) (*Reply, error) {
	if tok := t.Token(); tok != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.do(req)
}

// SubmitAnonymous executes req without attaching the credential header.
// The login exchange uses it: a token endpoint must never receive the
// stale token whose rejection triggered the exchange.
func (t *Transport) SubmitAnonymous(req *http.Request) (*Reply, error) {
	return t.do(req)
}

func (t *Transport) do(req *http.Request) (*Reply, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("HTTP exchange completed")

	return &Reply{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
