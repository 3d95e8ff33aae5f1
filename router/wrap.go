package router

import (
	"context"

	"goa.design/plexus/activation"
	"goa.design/plexus/envelope"
)

// wrap is the canonical caller-wraps transformation of §4.2/§4.3 and emits
// the Done of every activation-produced stream; the router's other streams
// (guidance streams from guidance.Project, and the schema/hash answers in
// dispatch.go) append their own Done. It consumes events lazily,
// wrapping each yielded domain value as a Data item, and terminates with
// exactly one Done once events closes or ctx is canceled (§3.1's "every
// stream ends with exactly one Done and nothing after").
//
// A domain value that is itself an envelope.Error or envelope.Progress item
// rides through as Data per §4.2 ("the router does not reinterpret a
// domain-specific error variant") — activations are free to yield their own
// Progress-shaped values, but only the router may emit Progress/Error items
// that the wire format recognizes as such. Activations wanting a true
// Progress or recoverable Error item on the wire yield an
// activation.Progress/activation.Recoverable value (see package activation), which
// wrap recognizes and passes through unwrapped rather than re-boxing in
// Data.
func (r *Router) wrap(ctx context.Context, out chan<- envelope.Item, events activation.Events, contentType string, meta envelope.Metadata) string {
	outcome := "data"
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				r.send(ctx, out, envelope.Done{Base: envelope.Base{Metadata: meta}})
				return outcome
			}
			item := wrapEvent(ev, contentType, meta)
			if g, ok := item.(envelope.Error); ok && !g.Recoverable {
				outcome = "error"
			}
			if !r.send(ctx, out, item) {
				return outcome
			}
		case <-ctx.Done():
			r.send(ctx, out, envelope.Error{Base: envelope.Base{Metadata: meta}, Message: ctx.Err().Error(), Recoverable: false})
			r.send(ctx, out, envelope.Done{Base: envelope.Base{Metadata: meta}})
			return "error"
		}
	}
}

// wrapEvent converts one domain value into its wire Item. Progress and
// Recoverable are activation-authored signals that ride through as their
// own item kinds (§4.3: "Progress items are distinct from Data"); every
// other value is opaque domain content wrapped as Data.
func wrapEvent(ev activation.Event, contentType string, meta envelope.Metadata) envelope.Item {
	switch v := ev.(type) {
	case activation.Progress:
		return envelope.Progress{Base: envelope.Base{Metadata: meta}, Message: v.Message, Fraction: v.Fraction}
	case activation.Recoverable:
		return envelope.Error{Base: envelope.Base{Metadata: meta}, Message: v.Message, Code: v.Code, Recoverable: true}
	default:
		return envelope.Data{Base: envelope.Base{Metadata: meta}, ContentType: contentType, Content: ev}
	}
}
