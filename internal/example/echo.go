// Package example provides small fixture activations used by router tests
// to exercise leaf dispatch, nested interior routing, handle resolution,
// and bidirectional requests end to end — the same role the teacher's
// runtime/agent/runtime testdata fixtures play for its own integration
// tests.
package example

import (
	"context"

	"github.com/google/uuid"

	"goa.design/plexus/activation"
	"goa.design/plexus/handle"
	"goa.design/plexus/schema"
)

// Echo is a minimal leaf activation exposing "echo" (emits params back
// once) and "once" (emits a single fixed value).
type Echo struct {
	version string
}

// NewEcho constructs an Echo activation pinned to version.
func NewEcho(version string) *Echo { return &Echo{version: version} }

var _ activation.Activation = (*Echo)(nil)

func (e *Echo) Namespace() string   { return "echo" }
func (e *Echo) Version() string     { return e.version }
func (e *Echo) Description() string { return "echoes its input back" }
func (e *Echo) PluginID() uuid.UUID { return handle.DerivePluginID(e.Namespace(), e.Version()) }
func (e *Echo) Methods() []string   { return []string{"echo", "once"} }
func (e *Echo) Kind() activation.Kind { return activation.Leaf }

func (e *Echo) Call(ctx context.Context, method string, params any) (activation.Events, error) {
	switch method {
	case "echo":
		ch := make(chan activation.Event, 1)
		ch <- params
		close(ch)
		return ch, nil
	case "once":
		ch := make(chan activation.Event, 1)
		ch <- map[string]any{"message": "hello"}
		close(ch)
		return ch, nil
	default:
		return nil, activation.MethodNotFound(method)
	}
}

func (e *Echo) PluginSchema() schema.PluginSchema {
	return schema.PluginSchema{
		Namespace:   e.Namespace(),
		Version:     e.Version(),
		Description: e.Description(),
		PluginID:    e.PluginID(),
		Methods: []schema.MethodSchema{
			{Name: "echo", Description: "echoes params back", Streaming: false, Params: echoParams},
			{Name: "once", Description: "emits one fixed greeting", Streaming: false},
		},
	}
}

// echoParams requires a "message" string field, giving router.invoke's
// params-validation step (§4.3, §4.5) a real schema to check "echo" calls
// against instead of the unconditional pass-through a nil Params leaves.
var echoParams = mustJSONSchema(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"message": map[string]any{"type": "string"},
	},
	"required": []any{"message"},
})

func mustJSONSchema(doc map[string]any) *schema.JSONSchema {
	js, err := schema.NewJSONSchema(doc)
	if err != nil {
		panic(err)
	}
	return js
}

// ExampleParams implements activation.ExampleParamsProvider for "echo".
func (e *Echo) ExampleParams(method string) (any, bool) {
	if method == "echo" {
		return map[string]any{"message": "hello"}, true
	}
	return nil, false
}

