package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"goa.design/plexus/activation"
	"goa.design/plexus/bidi"
	"goa.design/plexus/envelope"
	"goa.design/plexus/guidance"
	"goa.design/plexus/handle"
	"goa.design/plexus/peer"
	"goa.design/plexus/schema"
	"goa.design/plexus/telemetry"
)

// Dispatch routes path/params through the registry and returns the wrapped
// envelope stream (§4.2 "Path dispatch algorithm"). Items are pushed onto
// the returned channel as the underlying activation produces them — the
// router never buffers a whole stream in memory, matching the "lazy,
// finite sequence" of §3.1. The channel is always closed after exactly one
// Done item; Dispatch itself never returns a Go error — failures ride the
// stream as Guidance/Error/Done (§7).
func (r *Router) Dispatch(ctx context.Context, path string, params any) <-chan envelope.Item {
	start := time.Now()
	out := make(chan envelope.Item, r.bufferSize)
	ctx = peer.WithCaller(ctx, routerPeer{r})
	spanCtx, span := r.tracer.Start(ctx, "plexus.dispatch")

	// A bidirectional-capable Subscription stashed in ctx delivers its
	// Request items through this call's own outbound channel, so they take
	// their place in delivery order alongside Data/Progress/Done (§4.6).
	if sub, ok := bidi.FromContext(ctx).(*bidi.Subscription); ok {
		outCopy := out
		sub.Rebind(bidi.SenderFunc(func(sendCtx context.Context, item envelope.Item) error {
			if r.send(sendCtx, outCopy, item) {
				return nil
			}
			return sendCtx.Err()
		}))
	}

	go func() {
		defer close(out)
		defer span.End()
		outcome := r.route(spanCtx, out, path, params, nil)
		elapsed := time.Since(start)
		r.metrics.IncCounter("plexus.dispatch.count", 1, "outcome", outcome)
		r.metrics.RecordTimer("plexus.dispatch.duration", elapsed)

		dt := telemetry.DispatchTelemetry{
			DurationMs: elapsed.Milliseconds(),
			Outcome:    outcome,
			PathDepth:  strings.Count(path, ".") + 1,
			Extra:      map[string]any{"path": path},
		}
		switch outcome {
		case "guidance":
			r.logger.Warn(spanCtx, "dispatch produced guidance", "telemetry", dt)
		case "error":
			r.logger.Debug(spanCtx, "dispatch produced a non-recoverable error", "telemetry", dt)
		default:
			r.logger.Debug(spanCtx, "dispatch complete", "telemetry", dt)
		}
	}()

	return out
}

// send pushes item onto out, honoring the optional semaphore-backed buffer
// policy (SPEC_FULL §B) and ctx cancellation. Returns false if the consumer
// is gone and the producer should stop.
func (r *Router) send(ctx context.Context, out chan<- envelope.Item, item envelope.Item) bool {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return false
		}
		defer r.sem.Release(1)
	}
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Router) sendAll(ctx context.Context, out chan<- envelope.Item, items []envelope.Item) string {
	outcome := "data"
	for _, it := range items {
		switch v := it.(type) {
		case envelope.Guidance:
			outcome = "guidance"
		case envelope.Error:
			if !v.Recoverable && outcome != "guidance" {
				outcome = "error"
			}
		}
		if !r.send(ctx, out, it) {
			return outcome
		}
	}
	return outcome
}

// route performs path dispatch (§4.2) and pushes the resulting items onto
// out, returning a coarse outcome label ("data", "guidance", "error") for
// metrics.
func (r *Router) route(ctx context.Context, out chan<- envelope.Item, path string, params any, provenance []string) string {
	meta := envelope.NewMetadata(append([]string{r.namespace}, provenance...), r.rootHash)

	if path == "" {
		path = methodSchema
	}
	if strings.HasPrefix(path, ".") || strings.Contains(path, "..") {
		return r.sendAll(ctx, out, guidance.Project(activation.InvalidParams(path, "path must not begin with '.' or contain '..'"), meta, guidance.Context{}))
	}

	head, rest, hasRest := splitFirstDot(path)
	if !hasRest {
		if head == methodResolveHandle {
			return r.routeResolveHandle(ctx, out, params, meta)
		}
		if items, ok := r.dispatchOwnMethod(head, meta); ok {
			return r.sendAll(ctx, out, items)
		}
		e, ok := r.entries[head]
		if !ok {
			return r.sendAll(ctx, out, guidance.Project(activation.NotFound(head), meta, guidance.Context{AvailableNamespaces: r.namespaces()}))
		}
		return r.routeToActivation(ctx, out, e, "", params, meta)
	}

	e, ok := r.entries[head]
	if !ok {
		return r.sendAll(ctx, out, guidance.Project(activation.NotFound(head), meta, guidance.Context{AvailableNamespaces: r.namespaces()}))
	}
	return r.routeToActivation(ctx, out, e, rest, params, meta)
}

func (r *Router) dispatchOwnMethod(method string, meta envelope.Metadata) ([]envelope.Item, bool) {
	switch method {
	case methodSchema:
		return []envelope.Item{
			envelope.Data{Base: envelope.Base{Metadata: meta}, ContentType: r.namespace + "." + methodSchema, Content: r.rootSchema},
			envelope.Done{Base: envelope.Base{Metadata: meta}},
		}, true
	case methodHash:
		return []envelope.Item{
			envelope.Data{Base: envelope.Base{Metadata: meta}, ContentType: r.namespace + "." + methodHash, Content: map[string]string{"hash": r.rootHash}},
			envelope.Done{Base: envelope.Base{Metadata: meta}},
		}, true
	}
	return nil, false
}

func (r *Router) namespaces() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// routeToActivation routes rest (possibly empty) to e.act, recursing
// through Interior.GetChild as needed (§4.2 steps 3-5), and materializes
// the framework-synthesized "<namespace>[.<child>...].schema" method along
// the way (§4.1, §4.2 "Universal schema method").
func (r *Router) routeToActivation(ctx context.Context, out chan<- envelope.Item, e *entry, rest string, params any, meta envelope.Metadata) string {
	segMeta := meta.Append(e.namespace)

	if rest == "" {
		// A bare namespace is not itself a callable method; there is no
		// remainder to resolve against the activation's own method list.
		return r.sendAll(ctx, out, guidance.Project(activation.MethodNotFound(""), segMeta, guidance.Context{AvailableMethods: r.methodNamesOf(e)}))
	}

	if child, ok := e.act.(*Router); ok {
		return r.routeToChildRouter(ctx, out, child, rest, params, segMeta)
	}

	method, childRest, hasChildRest := splitFirstDot(rest)

	if method == methodSchema && !hasChildRest {
		sch := e.act.PluginSchema()
		if interior, ok := e.act.(activation.Interior); ok && e.act.Kind() == activation.Interior {
			if children, err := interior.ChildSummaries(ctx); err == nil {
				sch.Children = children
			}
		}
		return r.sendAll(ctx, out, []envelope.Item{
			envelope.Data{Base: envelope.Base{Metadata: segMeta}, ContentType: e.namespace + "." + methodSchema, Content: sch},
			envelope.Done{Base: envelope.Base{Metadata: segMeta}},
		})
	}

	if !hasChildRest {
		return r.invoke(ctx, out, e, method, params, segMeta)
	}

	interior, ok := e.act.(activation.Interior)
	if !ok {
		return r.sendAll(ctx, out, guidance.Project(activation.MethodNotFound(method), segMeta, guidance.Context{AvailableMethods: r.methodNamesOf(e)}))
	}
	child, err := interior.GetChild(ctx, method)
	if err != nil {
		return r.sendAll(ctx, out, guidance.Project(activation.NotFound(method), segMeta, guidance.Context{AvailableNamespaces: childNamespaces(ctx, interior)}))
	}
	childEntry := &entry{namespace: method, act: child, pluginID: child.PluginID(), childSch: child.PluginSchema()}
	return r.routeToActivation(ctx, out, childEntry, childRest, params, segMeta)
}

// routeToChildRouter delegates rest to child's own Dispatch rather than
// reaching through its registry directly, so a mounted Router's full
// machinery (its own validation, telemetry, reserved methods) runs exactly
// as it would for a top-level caller (§4.2 "composes child routers"). child
// builds its own self-contained provenance chain rooted at its own
// namespace; stitchProvenance replaces that redundant root segment with the
// parent's own path (segMeta, already ending in the mount namespace) so the
// combined chain still reads root first, leaf last across the boundary.
func (r *Router) routeToChildRouter(ctx context.Context, out chan<- envelope.Item, child *Router, rest string, params any, segMeta envelope.Metadata) string {
	outcome := "data"
	for item := range child.Dispatch(ctx, rest, params) {
		item = item.WithMeta(stitchProvenance(segMeta, item.Meta()))
		switch v := item.(type) {
		case envelope.Guidance:
			outcome = "guidance"
		case envelope.Error:
			if !v.Recoverable && outcome != "guidance" {
				outcome = "error"
			}
		}
		if !r.send(ctx, out, item) {
			return outcome
		}
	}
	return outcome
}

// stitchProvenance combines segMeta (the parent router's own path, already
// ending in the mount namespace) with childMeta (a mounted child router's
// independently built provenance, rooted at the child's own namespace) by
// dropping the child's redundant root segment and prepending the parent's
// path in front of what remains, one segment at a time via
// Metadata.Prepend. RootHash is kept as the parent's own — the root hash
// identifies the sealed router that opened this Dispatch call for its
// whole lifetime, not any router mounted partway through it.
func stitchProvenance(segMeta, childMeta envelope.Metadata) envelope.Metadata {
	rest := childMeta.Provenance
	if len(rest) > 0 {
		rest = rest[1:]
	}
	stitched := envelope.Metadata{Provenance: rest, RootHash: segMeta.RootHash, Timestamp: childMeta.Timestamp}
	for i := len(segMeta.Provenance) - 1; i >= 0; i-- {
		stitched = stitched.Prepend(segMeta.Provenance[i])
	}
	return stitched
}

func childNamespaces(ctx context.Context, interior activation.Interior) []string {
	children, err := interior.ChildSummaries(ctx)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Namespace)
	}
	return names
}

func (r *Router) methodNamesOf(e *entry) []string {
	names := append([]string(nil), e.act.Methods()...)
	names = append(names, methodSchema)
	return names
}

func (r *Router) methodSchemaOf(e *entry, method string) *schema.MethodSchema {
	for _, m := range e.childSch.Methods {
		if m.Name == method {
			ms := m
			return &ms
		}
	}
	return nil
}

// invoke calls the activation's method directly (the terminal step of
// dispatch) and projects either a RoutingError or a successful call into
// the wrapped envelope (§4.2 "Caller-wraps envelope").
func (r *Router) invoke(ctx context.Context, out chan<- envelope.Item, e *entry, method string, params any, meta envelope.Metadata) string {
	found := false
	for _, m := range e.act.Methods() {
		if m == method {
			found = true
			break
		}
	}
	if !found {
		return r.sendAll(ctx, out, guidance.Project(activation.MethodNotFound(method), meta, guidance.Context{AvailableMethods: r.methodNamesOf(e)}))
	}

	if ms := r.methodSchemaOf(e, method); ms != nil && ms.Params != nil {
		if err := ms.Params.Validate(params); err != nil {
			re := activation.InvalidParams(method, err.Error())
			return r.sendAll(ctx, out, guidance.Project(re, meta, r.guidanceContext(e, re)))
		}
	}

	callCtx, cancel := withChildCancel(ctx)
	defer cancel()
	if r.requestTimeout > 0 {
		var timeoutCancel context.CancelFunc
		callCtx, timeoutCancel = context.WithTimeout(callCtx, time.Duration(r.requestTimeout)*time.Millisecond)
		defer timeoutCancel()
	}

	events, err := r.callWithRecover(callCtx, e, method, params)
	if err != nil {
		if re, ok := err.(*activation.RoutingError); ok {
			return r.sendAll(ctx, out, guidance.Project(re, meta, r.guidanceContext(e, re)))
		}
		return r.sendAll(ctx, out, guidance.Project(activation.ExecutionError(err.Error()), meta, guidance.Context{}))
	}

	contentType := e.namespace + "." + method
	return r.wrap(callCtx, out, events, contentType, meta)
}

func (r *Router) guidanceContext(e *entry, re *activation.RoutingError) guidance.Context {
	gc := guidance.Context{}
	if hinter, ok := e.act.(activation.GuidanceHinter); ok {
		gc.Hinter = hinter
	}
	if re.Kind == activation.KindInvalidParams {
		gc.MethodSchema = r.methodSchemaOf(e, re.Segment)
		if provider, ok := e.act.(activation.ExampleParamsProvider); ok {
			if ex, ok := provider.ExampleParams(re.Segment); ok {
				gc.ExampleParams = ex
				gc.HasExampleParams = true
			}
		}
	}
	return gc
}

// callWithRecover invokes e.act.Call and converts any panic into an
// ExecutionError RoutingError instead of crashing the router (SPEC_FULL §C.2
// "Stream-level panic containment").
func (r *Router) callWithRecover(ctx context.Context, e *entry, method string, params any) (events activation.Events, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(ctx, "activation call panicked", "namespace", e.namespace, "method", method, "panic", fmt.Sprint(rec))
			err = activation.ExecutionError(fmt.Sprintf("panic: %v", rec))
		}
	}()
	return e.act.Call(ctx, method, params)
}

// routeResolveHandle implements §4.4's handle resolution algorithm. The
// router does not inspect h.Method or h.Meta — those are opaque to it; only
// the owning activation interprets them.
func (r *Router) routeResolveHandle(ctx context.Context, out chan<- envelope.Item, params any, meta envelope.Metadata) string {
	h, err := handleFromParams(params)
	if err != nil {
		return r.sendAll(ctx, out, guidance.Project(activation.InvalidParams(methodResolveHandle, err.Error()), meta, guidance.Context{}))
	}

	ns, ok := r.byPluginID[h.PluginID]
	if !ok {
		return r.sendAll(ctx, out, guidance.Project(activation.NotFound(h.PluginID.String()), meta, guidance.Context{AvailableNamespaces: r.namespaces()}))
	}
	e := r.entries[ns]
	resolver, ok := e.act.(activation.HandleResolver)
	if !ok {
		return r.sendAll(ctx, out, guidance.Project(&activation.RoutingError{Kind: activation.KindHandleNotSupported, Segment: ns, Reason: "activation does not implement handle resolution"}, meta, guidance.Context{}))
	}

	segMeta := meta.Append(e.namespace)
	events, err := resolver.ResolveHandle(ctx, h)
	if err != nil {
		if re, ok := err.(*activation.RoutingError); ok {
			return r.sendAll(ctx, out, guidance.Project(re, segMeta, guidance.Context{}))
		}
		return r.sendAll(ctx, out, guidance.Project(activation.ExecutionError(err.Error()), segMeta, guidance.Context{}))
	}
	return r.wrap(ctx, out, events, ns+"."+h.Method, segMeta)
}

// routerPeer adapts *Router to peer.Caller (§9 "a limited router handle
// exposing call and resolve_handle"), installed into every dispatch's
// context so an activation's Call can reach a sibling or resolve a Handle
// without ever holding a reference to the Router itself.
type routerPeer struct{ r *Router }

func (p routerPeer) Call(ctx context.Context, path string, params any) <-chan envelope.Item {
	return p.r.Dispatch(ctx, path, params)
}

func (p routerPeer) ResolveHandle(ctx context.Context, h handle.Handle) <-chan envelope.Item {
	return p.r.Dispatch(ctx, methodResolveHandle, map[string]any{"handle": h.String()})
}

// handleParams is the wire shape resolve_handle accepts: either a raw
// canonical handle string or a decomposed object. Transports are expected
// to pass through whatever params value handle.Handle.String() produces;
// this accepts both for convenience.
type handleParams struct {
	Handle string `json:"handle"`
}

func handleFromParams(params any) (h handle.Handle, err error) {
	switch v := params.(type) {
	case string:
		return handle.Parse(v)
	case handleParams:
		return handle.Parse(v.Handle)
	case map[string]any:
		s, _ := v["handle"].(string)
		return handle.Parse(s)
	default:
		b, merr := json.Marshal(params)
		if merr != nil {
			return h, fmt.Errorf("resolve_handle: unrecognized params shape")
		}
		var hp handleParams
		if err := json.Unmarshal(b, &hp); err != nil || hp.Handle == "" {
			return h, fmt.Errorf("resolve_handle: params must carry a \"handle\" string")
		}
		return handle.Parse(hp.Handle)
	}
}
