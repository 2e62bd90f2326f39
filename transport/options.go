package transport

import (
	"net/http"
	"time"
)

// Option configures a Transport.
type Option func(*options)

type options struct {
	timeout    time.Duration
	httpClient *http.Client
}

func defaultOptions() options {
	return options{
		timeout: 30 * time.Second,
	}
}

// WithTimeout sets the HTTP client timeout. Ignored when a custom HTTP
// client is supplied.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the default pooled HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}
