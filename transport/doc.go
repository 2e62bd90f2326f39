// Package transport is the thin HTTP execution primitive under the
// dispatcher: it submits a wire-level request against the configured host,
// attaches the current bearer credential, and returns status, headers, and
// body bytes without interpreting them.
package transport
