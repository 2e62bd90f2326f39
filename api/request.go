package api

import (
	"context"
	"net/http"
	"reflect"
)

// Request is any local-capable request value. Its concrete type is its
// identity: modules advertise the request types they can serve, and the
// dispatcher matches by type equality.
type Request any

// RemoteRequest is a request that can additionally be executed over HTTP
// against a configured host.
type RemoteRequest interface {
	// HTTPRequest builds the wire-level request for the given host. The host
	// is a base URL without trailing slash, e.g. "https://api.example.com".
	HTTPRequest(ctx context.Context, host string) (*http.Request, error)
}

// Capability pairs a request type with the response type a module produces
// for it. A module serves a dispatch only when both sides match.
type Capability struct {
	Request  reflect.Type
	Response reflect.Type
}

// CapabilityOf builds the capability pair for a request/response type pair.
func CapabilityOf[Req, Resp any]() Capability {
	return Capability{Request: TypeOf[Req](), Response: TypeOf[Resp]()}
}

// TypeOf returns the reflect.Type identity of T without allocating a value.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// PresentFunc asks the embedding application to present a blocking UI
// surface. The dispatcher passes it through to modules and never inspects
// its effect.
type PresentFunc func(surface any)

// DismissFunc asks the embedding application to dismiss a previously
// presented surface.
type DismissFunc func(surface any)
