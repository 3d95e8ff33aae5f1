package router

import "context"

// CancelFunc cancels an in-flight call and releases any resources the
// cancellation triggers synchronously (SPEC_FULL §C.3). It is returned
// alongside the context invoke derives for one activation call, so a
// parent's own cancellation always reaches the leaf — context.WithCancel on
// its own already guarantees this through normal context propagation;
// CancelFunc lets the router also cancel that one in-flight call without
// tearing down its own context, which invoke does once the call's stream
// has been wrapped.
type CancelFunc func()

// withChildCancel derives a child context from ctx that is canceled either
// when ctx is canceled or when the returned CancelFunc is called, whichever
// happens first — the mechanism invoke uses for each activation call, so a
// parent's cancellation reaches the producer through the call context
// (§4.3 "the router signals the producer and any downstream routers via a
// cancellation token carried through the call context").
func withChildCancel(ctx context.Context) (context.Context, CancelFunc) {
	childCtx, cancel := context.WithCancel(ctx)
	return childCtx, CancelFunc(cancel)
}
