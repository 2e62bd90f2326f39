// Package authmodule provides the built-in login module: it serves the
// dispatcher's LoginRequest by presenting the UI surface hooks and
// exchanging credentials for a bearer token at the configured endpoint.
package authmodule
