package example

import (
	"context"

	"github.com/google/uuid"

	"goa.design/plexus/activation"
	"goa.design/plexus/handle"
	"goa.design/plexus/schema"
)

// Leaf is a generic single-method interior-or-leaf fixture used to build
// the Solar nested hierarchy (solar.earth.luna.info).
type Leaf struct {
	namespace, version, method string
	content                    any
	children                   map[string]activation.Activation
}

// NewLeaf constructs a Leaf exposing exactly one method that emits content
// once, plus any named children (making it an Interior when non-empty).
func NewLeaf(namespace, version, method string, content any, children ...activation.Activation) *Leaf {
	m := make(map[string]activation.Activation, len(children))
	for _, c := range children {
		m[c.Namespace()] = c
	}
	return &Leaf{namespace: namespace, version: version, method: method, content: content, children: m}
}

var (
	_ activation.Activation = (*Leaf)(nil)
	_ activation.Interior   = (*Leaf)(nil)
)

func (l *Leaf) Namespace() string   { return l.namespace }
func (l *Leaf) Version() string     { return l.version }
func (l *Leaf) Description() string { return "fixture leaf for " + l.namespace }
func (l *Leaf) PluginID() uuid.UUID { return handle.DerivePluginID(l.namespace, l.version) }
func (l *Leaf) Methods() []string   { return []string{l.method} }

func (l *Leaf) Kind() activation.Kind {
	if len(l.children) > 0 {
		return activation.Interior
	}
	return activation.Leaf
}

func (l *Leaf) Call(ctx context.Context, method string, params any) (activation.Events, error) {
	if method != l.method {
		return nil, activation.MethodNotFound(method)
	}
	ch := make(chan activation.Event, 1)
	ch <- l.content
	close(ch)
	return ch, nil
}

func (l *Leaf) PluginSchema() schema.PluginSchema {
	return schema.PluginSchema{
		Namespace:   l.namespace,
		Version:     l.version,
		Description: l.Description(),
		PluginID:    l.PluginID(),
		Methods:     []schema.MethodSchema{{Name: l.method, Description: "fixture method", Streaming: false}},
	}
}

func (l *Leaf) ChildSummaries(context.Context) ([]schema.PluginSchema, error) {
	out := make([]schema.PluginSchema, 0, len(l.children))
	for _, c := range l.children {
		out = append(out, c.PluginSchema())
	}
	return out, nil
}

func (l *Leaf) GetChild(_ context.Context, name string) (activation.Activation, error) {
	c, ok := l.children[name]
	if !ok {
		return nil, activation.NotFound(name)
	}
	return c, nil
}

// NewSolarSystem builds the solar -> earth -> luna fixture hierarchy from
// spec §8: solar.earth.luna.info returns a fixed value.
func NewSolarSystem() *Leaf {
	luna := NewLeaf("luna", "1.0.0", "info", map[string]any{"radius_km": 1737})
	earth := NewLeaf("earth", "1.0.0", "info", map[string]any{"radius_km": 6371}, luna)
	return NewLeaf("solar", "1.0.0", "info", map[string]any{"name": "sol"}, earth)
}
