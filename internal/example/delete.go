package example

import (
	"context"

	"github.com/google/uuid"

	"goa.design/plexus/activation"
	"goa.design/plexus/bidi"
	"goa.design/plexus/envelope"
	"goa.design/plexus/handle"
	"goa.design/plexus/schema"
)

// Delete is a leaf activation whose "remove" method pauses mid-stream to
// confirm a destructive action via the Bidirectional Coordinator (§4.6,
// §8's "delete activation that issues a bidirectional Confirm request").
type Delete struct {
	version string
	store   map[string]bool
}

// NewDelete constructs a Delete fixture over store (mutated by successful
// calls).
func NewDelete(version string, store map[string]bool) *Delete {
	return &Delete{version: version, store: store}
}

var _ activation.Activation = (*Delete)(nil)

func (d *Delete) Namespace() string   { return "delete" }
func (d *Delete) Version() string     { return d.version }
func (d *Delete) Description() string { return "deletes a resource after confirmation" }
func (d *Delete) PluginID() uuid.UUID { return handle.DerivePluginID(d.Namespace(), d.Version()) }
func (d *Delete) Methods() []string   { return []string{"remove"} }
func (d *Delete) Kind() activation.Kind { return activation.Leaf }

func (d *Delete) Call(ctx context.Context, method string, params any) (activation.Events, error) {
	if method != "remove" {
		return nil, activation.MethodNotFound(method)
	}
	key, _ := params.(string)
	if m, ok := params.(map[string]any); ok {
		key, _ = m["key"].(string)
	}

	ch := make(chan activation.Event, 2)
	go func() {
		defer close(ch)
		channel := bidi.FromContext(ctx)
		resp, err := channel.Request(ctx, envelope.Confirm("delete "+key+"?", nil), 0)
		if err != nil {
			ch <- activation.Recoverable{Message: "confirmation unavailable: " + err.Error()}
			return
		}
		if !resp.Confirmed {
			ch <- map[string]any{"deleted": false, "key": key}
			return
		}
		delete(d.store, key)
		ch <- map[string]any{"deleted": true, "key": key}
	}()
	return ch, nil
}

func (d *Delete) PluginSchema() schema.PluginSchema {
	return schema.PluginSchema{
		Namespace:   d.Namespace(),
		Version:     d.Version(),
		Description: d.Description(),
		PluginID:    d.PluginID(),
		Methods:     []schema.MethodSchema{{Name: "remove", Description: "delete a key after confirmation", Streaming: true}},
	}
}
