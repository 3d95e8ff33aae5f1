package schema_test

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"goa.design/plexus/schema"
)

// goldenNode mirrors one level of testdata/schema_golden.yaml: a
// PluginSchema plus the hash it must produce, recursively for children.
type goldenNode struct {
	Namespace    string `yaml:"namespace"`
	Version      string `yaml:"version"`
	ExpectedHash string `yaml:"expected_hash"`
	Methods      []struct {
		Name string `yaml:"name"`
	} `yaml:"methods"`
	Children []goldenNode `yaml:"children"`
}

func (n goldenNode) toSchema() schema.PluginSchema {
	methods := make([]schema.MethodSchema, 0, len(n.Methods))
	for _, m := range n.Methods {
		methods = append(methods, schema.MethodSchema{Name: m.Name})
	}
	children := make([]schema.PluginSchema, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, c.toSchema())
	}
	return schema.PluginSchema{
		Namespace: n.Namespace,
		Version:   n.Version,
		PluginID:  uuid.New(), // plugin_id never participates in Hash()
		Methods:   methods,
		Children:  children,
	}
}

func (n goldenNode) assertHash(t *testing.T) {
	t.Helper()
	require.Equal(t, n.ExpectedHash, n.toSchema().Hash(), "namespace %q", n.Namespace)
	for _, c := range n.Children {
		c.assertHash(t)
	}
}

// TestSchemaHash_GoldenFixture checks PluginSchema.Hash() against hashes
// computed independently of this codebase for a known namespace tree
// (solar -> earth -> luna), catching accidental changes to the hash
// algorithm's byte layout that unit tests comparing hashes only to each
// other would miss.
func TestSchemaHash_GoldenFixture(t *testing.T) {
	b, err := os.ReadFile("../testdata/schema_golden.yaml")
	require.NoError(t, err)

	var root goldenNode
	require.NoError(t, yaml.Unmarshal(b, &root))

	root.assertHash(t)
}
