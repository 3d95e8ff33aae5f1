package handle_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/plexus/handle"
)

func TestDerivePluginID_CanonicalVector(t *testing.T) {
	// §6.5: health@1 -> dc560257-b7c5-575b-b893-b448c87ca797.
	got := handle.DerivePluginID("health", "1.0.0")
	want := uuid.MustParse("dc560257-b7c5-575b-b893-b448c87ca797")
	assert.Equal(t, want, got)
}

func TestDerivePluginID_MajorStability(t *testing.T) {
	a := handle.DerivePluginID("foo", "1.3.9")
	b := handle.DerivePluginID("foo", "1.99.0")
	c := handle.DerivePluginID("foo", "2.0.0")

	assert.Equal(t, a, b, "same major must derive identical plugin_id")
	assert.NotEqual(t, a, c, "different major must derive different plugin_id")
}

func TestHandleRoundTrip(t *testing.T) {
	h := handle.New(handle.DerivePluginID("kv", "1.0.0"), "1.0.0", "get", "key-42")

	got, err := handle.Parse(h.String())
	require.NoError(t, err)
	assert.True(t, h.Equal(got))
}

func TestHandleRoundTrip_EmptyMeta(t *testing.T) {
	h := handle.New(handle.DerivePluginID("kv", "1.0.0"), "1.0.0", "list")
	s := h.String()
	assert.NotContains(t, s, "::list:")

	got, err := handle.Parse(s)
	require.NoError(t, err)
	assert.True(t, h.Equal(got))
	assert.Empty(t, got.Meta)
}

func TestParse_RejectsNonUUID(t *testing.T) {
	_, err := handle.Parse("not-a-uuid@1.0.0::get")
	require.Error(t, err)
}

func TestParse_RejectsMissingSeparators(t *testing.T) {
	id := handle.DerivePluginID("kv", "1.0.0").String()
	_, err := handle.Parse(id + "1.0.0::get")
	require.Error(t, err)

	_, err = handle.Parse(id + "@1.0.0get")
	require.Error(t, err)
}

func TestHandle_MultiMeta(t *testing.T) {
	h := handle.New(handle.DerivePluginID("kv", "1.0.0"), "1.0.0", "range", "a", "b", "c")
	got, err := handle.Parse(h.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.Meta)
	assert.True(t, h.Equal(got))
}
