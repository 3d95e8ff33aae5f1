package router_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/plexus/activation"
	"goa.design/plexus/bidi"
	"goa.design/plexus/envelope"
	"goa.design/plexus/handle"
	"goa.design/plexus/internal/example"
	"goa.design/plexus/router"
	"goa.design/plexus/schema"
)

func drain(t *testing.T, ch <-chan envelope.Item) []envelope.Item {
	t.Helper()
	var items []envelope.Item
	for {
		select {
		case it, ok := <-ch:
			if !ok {
				return items
			}
			items = append(items, it)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out draining stream")
		}
	}
}

func newEchoRouter(t *testing.T) *router.Router {
	t.Helper()
	r, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "echo", Activation: example.NewEcho("1.0.0")},
	})
	require.NoError(t, err)
	return r
}

func TestDispatch_UnknownTopLevelActivation(t *testing.T) {
	r := newEchoRouter(t)
	items := drain(t, r.Dispatch(context.Background(), "ghost.noop", map[string]any{}))
	require.Len(t, items, 3)

	g, ok := items[0].(envelope.Guidance)
	require.True(t, ok)
	assert.Equal(t, envelope.ActivationNotFound, g.ErrorKind)
	assert.Contains(t, g.AvailableServices, "echo")
	assert.Equal(t, envelope.CallRootSchemaSuggestion(), g.Suggestion)

	e, ok := items[1].(envelope.Error)
	require.True(t, ok)
	assert.Contains(t, e.Message, "ghost")
	assert.False(t, e.Recoverable)

	_, ok = items[2].(envelope.Done)
	require.True(t, ok)
}

func TestDispatch_KnownActivationUnknownMethod(t *testing.T) {
	r := newEchoRouter(t)
	items := drain(t, r.Dispatch(context.Background(), "echo.scream", map[string]any{}))
	require.Len(t, items, 3)

	g := items[0].(envelope.Guidance)
	assert.Equal(t, envelope.MethodNotFound, g.ErrorKind)
	assert.ElementsMatch(t, []string{"echo", "once", "schema"}, g.AvailableMethods)
	assert.Equal(t, envelope.CallActivationSchemaSuggestion("echo"), g.Suggestion)
}

func TestDispatch_SuccessfulStreamingMethod(t *testing.T) {
	r := newEchoRouter(t)
	items := drain(t, r.Dispatch(context.Background(), "echo.echo", map[string]any{"message": "hi"}))
	require.Len(t, items, 2)

	d, ok := items[0].(envelope.Data)
	require.True(t, ok)
	assert.Equal(t, "echo.echo", d.ContentType)
	assert.Equal(t, []string{"root", "echo"}, d.Meta().Provenance)

	_, ok = items[1].(envelope.Done)
	require.True(t, ok)
}

func TestDispatch_NestedInteriorPlugin(t *testing.T) {
	r, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "solar", Activation: example.NewSolarSystem()},
	})
	require.NoError(t, err)

	items := drain(t, r.Dispatch(context.Background(), "solar.earth.luna.info", map[string]any{}))
	require.Len(t, items, 2)

	d := items[0].(envelope.Data)
	assert.Equal(t, "luna.info", d.ContentType)
	assert.Equal(t, []string{"root", "solar", "earth", "luna"}, d.Meta().Provenance)
}

func TestDispatch_UniversalSchemaExposure(t *testing.T) {
	r, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "solar", Activation: example.NewSolarSystem()},
	})
	require.NoError(t, err)

	items := drain(t, r.Dispatch(context.Background(), "solar.earth.schema", map[string]any{}))
	require.Len(t, items, 2)

	d := items[0].(envelope.Data)
	sch, ok := d.Content.(schema.PluginSchema)
	require.True(t, ok)
	assert.Equal(t, "earth", sch.Namespace)
	require.Len(t, sch.Children, 1)
	assert.Equal(t, "luna", sch.Children[0].Namespace)
	assert.Equal(t, sch.Children[0].Hash(), sch.Canonicalize().Children[0].Hash())
}

func TestHash_StableAcrossRegistrationOrder(t *testing.T) {
	r1, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "echo", Activation: example.NewEcho("1.0.0")},
		{Namespace: "solar", Activation: example.NewSolarSystem()},
	})
	require.NoError(t, err)

	r2, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "solar", Activation: example.NewSolarSystem()},
		{Namespace: "echo", Activation: example.NewEcho("1.0.0")},
	})
	require.NoError(t, err)

	assert.Equal(t, r1.Hash(), r2.Hash())
}

func TestDispatch_HandleResolution(t *testing.T) {
	kv := example.NewKV("1.0.0", map[string]any{"key-42": "the answer"})
	r, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "kv", Activation: kv},
	})
	require.NoError(t, err)

	h := handle.New(kv.PluginID(), "1.0.0", "key-42")
	items := drain(t, r.Dispatch(context.Background(), "resolve_handle", map[string]any{"handle": h.String()}))
	require.Len(t, items, 2)
	d := items[0].(envelope.Data)
	assert.Equal(t, "the answer", d.Content)
	assert.Equal(t, []string{"root", "kv"}, d.Meta().Provenance)

	randomHandle := handle.New(uuid.New(), "1.0.0", "key-42")
	items = drain(t, r.Dispatch(context.Background(), "resolve_handle", map[string]any{"handle": randomHandle.String()}))
	require.Len(t, items, 3)
	g := items[0].(envelope.Guidance)
	assert.Equal(t, envelope.ActivationNotFound, g.ErrorKind)
}

func TestDispatch_MidStreamConfirm_BidirectionalSuccess(t *testing.T) {
	store := map[string]bool{"widget": true}
	del := example.NewDelete("1.0.0", store)
	r, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "delete", Activation: del},
	})
	require.NoError(t, err)

	coord := bidi.NewCoordinator()
	itemsCh := make(chan envelope.Item, 4)
	sub := coord.Open("sub-1", bidi.SenderFunc(func(_ context.Context, item envelope.Item) error {
		itemsCh <- item
		return nil
	}))

	ctx := bidi.WithChannel(context.Background(), sub)
	out := r.Dispatch(ctx, "delete.remove", map[string]any{"key": "widget"})

	req := <-out
	reqItem, ok := req.(envelope.Request)
	require.True(t, ok)
	assert.Equal(t, envelope.RequestConfirm, reqItem.RequestType.Kind)

	coord.DeliverResponse("sub-1", reqItem.RequestID, bidi.ResponsePayload{Kind: bidi.RespConfirmed, Confirmed: true})

	remaining := drain(t, out)
	require.Len(t, remaining, 2)
	d := remaining[0].(envelope.Data)
	content := d.Content.(map[string]any)
	assert.Equal(t, true, content["deleted"])
	assert.False(t, store["widget"])
}

func TestDispatch_MidStreamConfirm_NoFallbackWithoutBidirectionalTransport(t *testing.T) {
	store := map[string]bool{"widget": true}
	del := example.NewDelete("1.0.0", store)
	r, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "delete", Activation: del},
	})
	require.NoError(t, err)

	items := drain(t, r.Dispatch(context.Background(), "delete.remove", map[string]any{"key": "widget"}))
	require.Len(t, items, 2)
	e, ok := items[0].(envelope.Error)
	require.True(t, ok)
	assert.True(t, e.Recoverable)
	assert.Contains(t, e.Message, "confirmation unavailable")
	assert.True(t, store["widget"], "deletion must not proceed without confirmation")
}

func TestDispatch_PeerCallReachesSibling(t *testing.T) {
	kv := example.NewKV("1.0.0", map[string]any{"key-42": "the answer"})
	relay := example.NewRelay("1.0.0", "kv.get")
	r, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "kv", Activation: kv},
		{Namespace: "relay", Activation: relay},
	})
	require.NoError(t, err)

	items := drain(t, r.Dispatch(context.Background(), "relay.fetch", map[string]any{"key": "key-42"}))
	require.Len(t, items, 2)
	d, ok := items[0].(envelope.Data)
	require.True(t, ok)
	assert.Equal(t, "the answer", d.Content)
}

func TestRouter_ReservedNameShadowRejected(t *testing.T) {
	_, err := router.New("root", "1.0.0", "test root", []router.Registration{
		{Namespace: "schema", Activation: example.NewEcho("1.0.0")},
	})
	require.Error(t, err)
}

func TestRouter_EmptyPathRoutesToRootSchema(t *testing.T) {
	r := newEchoRouter(t)
	items := drain(t, r.Dispatch(context.Background(), "", nil))
	require.Len(t, items, 2)
	d := items[0].(envelope.Data)
	assert.Equal(t, "root.schema", d.ContentType)
}

func TestRouter_DotPrefixedPathIsInvalidParams(t *testing.T) {
	r := newEchoRouter(t)
	items := drain(t, r.Dispatch(context.Background(), ".echo", nil))
	require.Len(t, items, 3)
	g := items[0].(envelope.Guidance)
	assert.Equal(t, envelope.InvalidParams, g.ErrorKind)
}

func TestHash_IdempotentAcrossCalls(t *testing.T) {
	r := newEchoRouter(t)
	assert.Equal(t, r.Hash(), r.Hash())
}

// TestDispatch_RouterAsChildActivation mounts a fully-sealed Router as the
// Activation of a namespace on another Router (§4.2 "composes child
// routers"), proving the inner router's own Dispatch runs end to end through
// the outer router's routeToActivation delegation, and that the two routers'
// independently-built provenance chains stitch into one root-first sequence.
func TestDispatch_RouterAsChildActivation(t *testing.T) {
	inner, err := router.New("inner", "1.0.0", "inner root", []router.Registration{
		{Namespace: "echo", Activation: example.NewEcho("1.0.0")},
	})
	require.NoError(t, err)

	outer, err := router.New("root", "1.0.0", "outer root", []router.Registration{
		{Namespace: "inner", Activation: inner},
	})
	require.NoError(t, err)

	items := drain(t, outer.Dispatch(context.Background(), "inner.echo.echo", map[string]any{"message": "hi"}))
	require.Len(t, items, 2)

	d, ok := items[0].(envelope.Data)
	require.True(t, ok)
	assert.Equal(t, "echo.echo", d.ContentType)
	assert.Equal(t, []string{"root", "inner", "echo"}, d.Meta().Provenance)
	assert.Equal(t, outer.Hash(), d.Meta().RootHash)

	_, ok = items[1].(envelope.Done)
	require.True(t, ok)

	items = drain(t, outer.Dispatch(context.Background(), "inner.hash", nil))
	require.Len(t, items, 2)
	d, ok = items[0].(envelope.Data)
	require.True(t, ok)
	assert.Equal(t, []string{"root", "inner"}, d.Meta().Provenance)
	assert.Equal(t, inner.Hash(), d.Content.(map[string]string)["hash"])
}

// TestDispatch_InvalidParamsTriggersValidationGuidance exercises
// router.invoke's Params.Validate branch end to end: echo.echo declares a
// Params schema requiring "message", so calling it without one must surface
// as guidance, not a silent pass-through or a panic.
func TestDispatch_InvalidParamsTriggersValidationGuidance(t *testing.T) {
	r := newEchoRouter(t)
	items := drain(t, r.Dispatch(context.Background(), "echo.echo", map[string]any{}))
	require.Len(t, items, 3)

	g, ok := items[0].(envelope.Guidance)
	require.True(t, ok)
	assert.Equal(t, envelope.InvalidParams, g.ErrorKind)

	e, ok := items[1].(envelope.Error)
	require.True(t, ok)
	assert.False(t, e.Recoverable)

	_, ok = items[2].(envelope.Done)
	require.True(t, ok)
}

var _ activation.Activation = (*example.Echo)(nil)
