package example

import (
	"context"

	"github.com/google/uuid"

	"goa.design/plexus/activation"
	"goa.design/plexus/envelope"
	"goa.design/plexus/handle"
	"goa.design/plexus/peer"
	"goa.design/plexus/schema"
)

// Relay is a leaf activation whose "fetch" method calls another registered
// activation through the peer.Caller capability instead of holding a
// reference to it directly (§9 "self-reference / cycles"). Target is the
// dotted path of the activation to call, e.g. "kv.get".
type Relay struct {
	version string
	target  string
}

// NewRelay constructs a Relay that forwards "fetch" calls to target.
func NewRelay(version, target string) *Relay {
	return &Relay{version: version, target: target}
}

var _ activation.Activation = (*Relay)(nil)

func (r *Relay) Namespace() string     { return "relay" }
func (r *Relay) Version() string       { return r.version }
func (r *Relay) Description() string   { return "forwards a call to a peer activation" }
func (r *Relay) PluginID() uuid.UUID   { return handle.DerivePluginID(r.Namespace(), r.Version()) }
func (r *Relay) Methods() []string     { return []string{"fetch"} }
func (r *Relay) Kind() activation.Kind { return activation.Leaf }

func (r *Relay) Call(ctx context.Context, method string, params any) (activation.Events, error) {
	if method != "fetch" {
		return nil, activation.MethodNotFound(method)
	}
	ch := make(chan activation.Event, 1)
	go func() {
		defer close(ch)
		caller := peer.FromContext(ctx)
		for item := range caller.Call(ctx, r.target, params) {
			switch v := item.(type) {
			case envelope.Data:
				ch <- v.Content
			case envelope.Error:
				ch <- activation.Recoverable{Message: v.Message}
			}
		}
	}()
	return ch, nil
}

func (r *Relay) PluginSchema() schema.PluginSchema {
	return schema.PluginSchema{
		Namespace:   r.Namespace(),
		Version:     r.Version(),
		Description: r.Description(),
		PluginID:    r.PluginID(),
		Methods:     []schema.MethodSchema{{Name: "fetch", Description: "forwards to a peer activation", Streaming: false}},
	}
}
