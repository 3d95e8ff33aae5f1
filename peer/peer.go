// Package peer implements the "limited router handle" described in §9's
// design note on self-reference: an activation that needs to call a sibling
// or resolve a cross-plugin Handle does so through a narrow capability
// injected through its call context, never by holding a strong reference to
// the owning Router. This keeps the Router the sole owner of its registry
// and avoids ownership cycles between activations and their parent — the
// same capability-injection idiom package bidi uses for the Bidirectional
// Coordinator (WithChannel/FromContext).
package peer

import (
	"context"

	"goa.design/plexus/envelope"
	"goa.design/plexus/handle"
)

// Caller is the capability an activation's Call uses to reach a peer
// activation through the owning router, or to resolve a Handle, without
// ever seeing the router's full registry (§9 "a limited router handle
// exposing call and resolve_handle").
type Caller interface {
	// Call dispatches path/params through the owning router exactly as an
	// external caller would, returning the same wrapped envelope stream
	// (§4.2) — provenance included, so the caller can tell a peer's items
	// apart from its own.
	Call(ctx context.Context, path string, params any) <-chan envelope.Item
	// ResolveHandle resolves h through the owning router's registry
	// (§4.4), equivalent to dispatching "resolve_handle" directly.
	ResolveHandle(ctx context.Context, h handle.Handle) <-chan envelope.Item
}

type contextKey struct{}

// WithCaller returns a context carrying c, retrievable by an activation's
// Call via FromContext. Router.Dispatch installs its own router this way on
// every call it serves, and it propagates to every nested GetChild/Call
// through ordinary context derivation; an activation reached through a
// mounted child Router therefore gets that child Router as its Caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext retrieves the Caller stashed by WithCaller. Absent a router
// (e.g. an activation under direct unit test), it returns a Caller whose
// methods yield one non-recoverable Error item followed by Done rather than
// panicking or blocking.
func FromContext(ctx context.Context) Caller {
	if c, ok := ctx.Value(contextKey{}).(Caller); ok && c != nil {
		return c
	}
	return unsupported{}
}

type unsupported struct{}

func (unsupported) Call(context.Context, string, any) <-chan envelope.Item {
	return errStream("peer calling is not available outside a router dispatch")
}

func (unsupported) ResolveHandle(context.Context, handle.Handle) <-chan envelope.Item {
	return errStream("handle resolution is not available outside a router dispatch")
}

func errStream(msg string) <-chan envelope.Item {
	ch := make(chan envelope.Item, 2)
	ch <- envelope.Error{Message: msg, Recoverable: false}
	ch <- envelope.Done{}
	close(ch)
	return ch
}
