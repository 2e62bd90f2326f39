// Package api defines the shared request, result, and error model used by
// the dispatch layer.
//
// Requests come in two flavors: plain local-capable requests, matched to
// in-process modules by their concrete type, and RemoteRequests, which can
// also be converted into wire-level HTTP requests. Outcomes are delivered
// as Result values carrying either a success value or an *Error classified
// by the HTTP-derived taxonomy (unauthorized, forbidden, bad request,
// parsing, other).
package api
