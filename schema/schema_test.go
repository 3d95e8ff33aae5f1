package schema_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/plexus/schema"
)

func leaf(ns, version string, methods ...string) schema.PluginSchema {
	var ms []schema.MethodSchema
	for _, m := range methods {
		ms = append(ms, schema.MethodSchema{Name: m, Description: "desc of " + m})
	}
	return schema.PluginSchema{
		Namespace: ns,
		Version:   version,
		PluginID:  uuid.New(),
		Methods:   ms,
	}
}

func TestHash_IdempotentAcrossCalls(t *testing.T) {
	p := leaf("echo", "1.0.0", "echo", "once")
	assert.Equal(t, p.Hash(), p.Hash())
}

func TestHash_InsensitiveToMethodOrder(t *testing.T) {
	a := leaf("echo", "1.0.0", "echo", "once", "schema")
	b := leaf("echo", "1.0.0", "schema", "once", "echo")
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHash_InsensitiveToChildOrder(t *testing.T) {
	earth := leaf("earth", "1.0.0", "info", "schema")
	luna := leaf("luna", "1.0.0", "info", "schema")

	a := schema.PluginSchema{Namespace: "solar", Version: "1.0.0", Children: []schema.PluginSchema{earth, luna}}
	b := schema.PluginSchema{Namespace: "solar", Version: "1.0.0", Children: []schema.PluginSchema{luna, earth}}

	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHash_ChangesWithDescendantSurface(t *testing.T) {
	a := leaf("echo", "1.0.0", "echo")
	b := leaf("echo", "1.0.0", "echo", "scream")
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestHash_DocumentationDoesNotAffectHash(t *testing.T) {
	a := schema.PluginSchema{Namespace: "echo", Version: "1.0.0", Methods: []schema.MethodSchema{{Name: "echo", Description: "one"}}}
	b := schema.PluginSchema{Namespace: "echo", Version: "1.0.0", Methods: []schema.MethodSchema{{Name: "echo", Description: "two"}}}
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestJSONSchema_ValidateAndCanonical(t *testing.T) {
	doc := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count":   map[string]any{"type": "integer"},
			"message": map[string]any{"type": "string"},
		},
		"required": []any{"message"},
	}
	js, err := schema.NewJSONSchema(doc)
	require.NoError(t, err)

	require.NoError(t, js.Validate(map[string]any{"message": "hi", "count": float64(2)}))
	assert.Error(t, js.Validate(map[string]any{"count": float64(2)}))

	c1 := js.Canonical()
	js2, err := schema.NewJSONSchema(doc)
	require.NoError(t, err)
	assert.Equal(t, c1, js2.Canonical())
}

func TestMethodHash_ReflectsParamsSchema(t *testing.T) {
	withParams, err := schema.NewJSONSchema(map[string]any{"type": "object"})
	require.NoError(t, err)

	a := schema.MethodSchema{Name: "echo"}
	b := schema.MethodSchema{Name: "echo", Params: withParams}
	assert.NotEqual(t, a.MethodHash(), b.MethodHash())
}
