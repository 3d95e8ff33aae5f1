// Package transport defines the minimal adapter boundary (§4.7) a concrete
// wire protocol implements to expose a Router over WebSocket, HTTP+SSE,
// stdio, or any other transport. No concrete transport is implemented here
// — per §1 that is explicitly out of scope for the core — only the
// interface every adapter satisfies and the small amount of glue code
// connecting it to router.Router and bidi.Coordinator.
package transport

import (
	"context"

	"goa.design/plexus/bidi"
	"goa.design/plexus/envelope"
)

// Dispatcher is the subset of router.Router a transport adapter depends on.
// Named separately from *router.Router so adapters (and their tests) can be
// written against a narrow interface rather than the router package's full
// surface.
type Dispatcher interface {
	Dispatch(ctx context.Context, path string, params any) <-chan envelope.Item
}

// Adapter is the boundary contract of §4.7. A concrete transport
// implements Adapter over some wire protocol; the core only ever calls
// into a Dispatcher and a *bidi.Coordinator, never into Adapter itself —
// Adapter describes what the transport must expose *to its own clients*,
// symmetric with the core's obligations to the transport.
type Adapter interface {
	// Dispatch is called per inbound RPC; path/params come from however the
	// wire protocol addresses a method (§4.7's "single generic call-any
	// method" or "one RPC method per leaf path").
	Dispatch(ctx context.Context, path string, params any) <-chan envelope.Item
	// OpenBidirectional is called when a subscription is created and the
	// transport declares bidirectional capability; returns the Channel an
	// activation's Call receives through its context.
	OpenBidirectional(subscriptionID string) bidi.Channel
	// DeliverResponse is called by the transport when a client response
	// message for (subscriptionID, requestID) arrives.
	DeliverResponse(subscriptionID, requestID string, payload bidi.ResponsePayload)
	// Cancel is called on transport disconnect or explicit client
	// cancellation; the core propagates cancellation to the producer
	// through the call context.
	Cancel(subscriptionID string)
}

// Bridge wires a Dispatcher and a bidi.Coordinator into an Adapter,
// covering the common case where a transport wants the default
// subscription/cancellation bookkeeping rather than implementing it itself.
// NewSender builds the per-subscription outbound Sender the transport uses
// to actually deliver Request items to its client — Bridge has no wire
// protocol of its own, so it cannot supply one.
type Bridge struct {
	Dispatcher  Dispatcher
	Coordinator *bidi.Coordinator
	NewSender   func(subscriptionID string) bidi.Sender
}

var _ Adapter = (*Bridge)(nil)

// Dispatch implements Adapter by delegating to the wrapped Dispatcher.
func (b *Bridge) Dispatch(ctx context.Context, path string, params any) <-chan envelope.Item {
	return b.Dispatcher.Dispatch(ctx, path, params)
}

// OpenBidirectional implements Adapter by delegating to the Coordinator,
// using NewSender to build the subscription's outbound delivery path.
func (b *Bridge) OpenBidirectional(subscriptionID string) bidi.Channel {
	return b.Coordinator.Open(subscriptionID, b.NewSender(subscriptionID))
}

// DeliverResponse implements Adapter by delegating to the Coordinator.
func (b *Bridge) DeliverResponse(subscriptionID, requestID string, payload bidi.ResponsePayload) {
	b.Coordinator.DeliverResponse(subscriptionID, requestID, payload)
}

// Cancel implements Adapter by delegating to the Coordinator.
func (b *Bridge) Cancel(subscriptionID string) {
	b.Coordinator.Cancel(subscriptionID)
}
