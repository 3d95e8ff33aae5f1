package example

import (
	"context"

	"github.com/google/uuid"

	"goa.design/plexus/activation"
	"goa.design/plexus/handle"
	"goa.design/plexus/schema"
)

// KV is a leaf activation that owns an in-memory key-value store and
// resolves Handles whose Method names the key (§8's "kv activation
// implementing HandleResolver").
type KV struct {
	version string
	store   map[string]any
}

// NewKV constructs a KV fixture seeded with store.
func NewKV(version string, store map[string]any) *KV {
	return &KV{version: version, store: store}
}

var (
	_ activation.Activation   = (*KV)(nil)
	_ activation.HandleResolver = (*KV)(nil)
)

func (k *KV) Namespace() string   { return "kv" }
func (k *KV) Version() string     { return k.version }
func (k *KV) Description() string { return "in-memory key-value store" }
func (k *KV) PluginID() uuid.UUID { return handle.DerivePluginID(k.Namespace(), k.Version()) }
func (k *KV) Methods() []string   { return []string{"get"} }
func (k *KV) Kind() activation.Kind { return activation.Leaf }

func (k *KV) Call(ctx context.Context, method string, params any) (activation.Events, error) {
	if method != "get" {
		return nil, activation.MethodNotFound(method)
	}
	key, _ := params.(string)
	if m, ok := params.(map[string]any); ok {
		key, _ = m["key"].(string)
	}
	v, ok := k.store[key]
	if !ok {
		return nil, activation.InvalidParams("get", "unknown key "+key)
	}
	ch := make(chan activation.Event, 1)
	ch <- v
	close(ch)
	return ch, nil
}

func (k *KV) PluginSchema() schema.PluginSchema {
	return schema.PluginSchema{
		Namespace:   k.Namespace(),
		Version:     k.Version(),
		Description: k.Description(),
		PluginID:    k.PluginID(),
		Methods:     []schema.MethodSchema{{Name: "get", Description: "fetch a stored value by key", Streaming: false}},
	}
}

// ResolveHandle implements activation.HandleResolver: h.Method names the
// key directly, matching a Handle minted as
// handle.New(k.PluginID(), k.Version(), key).
func (k *KV) ResolveHandle(ctx context.Context, h handle.Handle) (activation.Events, error) {
	v, ok := k.store[h.Method]
	if !ok {
		return nil, &activation.RoutingError{Kind: activation.KindHandleNotFound, Segment: h.Method, Reason: "no value stored under this key"}
	}
	ch := make(chan activation.Event, 1)
	ch <- v
	close(ch)
	return ch, nil
}
