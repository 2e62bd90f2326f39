package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/karim-alweheshy/moaweb/api"
)

// DispatchRemote executes req against the configured host and decodes the
// JSON reply into T. When unauthorized, re-authentication runs first and the
// dispatch is re-issued on success. All completions are marshaled onto the
// dispatcher's single callback goroutine, regardless of which worker
// goroutine the transport exchange finished on.
//
// A 2xx reply without a body or without an application/json content type is
// dropped: the completion never fires and only the drop hook observes it.
func DispatchRemote[T any](ctx context.Context, d *Dispatcher, req api.RemoteRequest, complete api.Completion[T]) {
	if d.closed.Load() {
		complete(api.Failure[T](api.Other(ErrClosed)))
		return
	}

	if !d.auth.Authorized() {
		go func() {
			if !d.auth.reauthenticate(ctx) {
				d.deliver(func() { complete(api.Failure[T](api.Unauthorized(nil))) })
				return
			}
			DispatchRemote(ctx, d, req, complete)
		}()
		return
	}

	httpReq, err := req.HTTPRequest(ctx, d.tr.Host())
	if err != nil {
		d.deliver(func() { complete(api.Failure[T](api.Other(err))) })
		return
	}

	go func() {
		reply, err := d.tr.Submit(httpReq)
		if err != nil {
			d.deliver(func() { complete(api.Failure[T](api.Other(err))) })
			return
		}

		switch {
		case reply.StatusCode >= 200 && reply.StatusCode < 300:
			if len(reply.Body) == 0 || !isJSONContentType(reply.Header.Get("Content-Type")) {
				d.logger.Warn().
					Int("status", reply.StatusCode).
					Str("content_type", reply.Header.Get("Content-Type")).
					Msg("Dropping success reply without JSON body")
				if d.onDrop != nil {
					d.onDrop()
				}
				return
			}
			var v T
			if err := json.Unmarshal(reply.Body, &v); err != nil {
				d.deliver(func() { complete(api.Failure[T](api.Parsing(err))) })
				return
			}
			d.deliver(func() { complete(api.Success(v)) })

		case reply.StatusCode == http.StatusUnauthorized:
			if d.auth.reauthenticate(ctx) {
				d.logger.Debug().Msg("Re-authenticated, re-issuing remote dispatch")
				DispatchRemote(ctx, d, req, complete)
				return
			}
			d.deliver(func() { complete(api.Failure[T](api.Unauthorized(nil))) })

		case reply.StatusCode == http.StatusForbidden:
			if d.forbidden.HandleForbidden(ctx) {
				DispatchRemote(ctx, d, req, complete)
				return
			}
			d.deliver(func() { complete(api.Failure[T](api.Forbidden(nil))) })

		default:
			err := api.FromStatus(reply.StatusCode, fmt.Errorf("unexpected status %d: %s", reply.StatusCode, snippet(reply.Body)))
			d.deliver(func() { complete(api.Failure[T](err)) })
		}
	}()
}

// isJSONContentType checks the media type, ignoring parameters such as
// charset.
func isJSONContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// JSONRequest is a generic remote request: an HTTP method and path with an
// optional query and JSON body, expecting a JSON reply.
type JSONRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// HTTPRequest implements api.RemoteRequest.
func (r JSONRequest) HTTPRequest(ctx context.Context, host string) (*http.Request, error) {
	path := r.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := host + path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body *bytes.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
