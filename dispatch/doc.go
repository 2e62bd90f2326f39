// Package dispatch routes typed requests either to in-process modules,
// matched by capability, or to the remote host behind the transport, and
// transparently re-authenticates on 401 before retrying the original
// request.
//
// The dispatcher exclusively owns the in-flight module set: a module is
// created immediately before use and leaves the set the instant its
// completion fires, exactly once per instantiation. A local request matched
// by several modules fans out to all of them; under the default PolicyAll
// the caller's completion may then fire more than once. Remote completions
// are marshaled onto one designated callback goroutine, local completions
// are not.
//
// Known sharp edges, kept deliberately: a 2xx reply without a JSON body is
// dropped without completing (observable only through WithDropHook), and a
// second 401 after a successful re-authentication starts another login
// round with no retry budget.
package dispatch
