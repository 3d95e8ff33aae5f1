// Package router implements the central hub of the framework (§4.2): path
// dispatch over a registered namespace tree, the caller-wraps envelope,
// content hashing, and handle resolution. A Router is itself an Activation
// — the root node, with every registered namespace as a child — so nested
// composition (an interior Router mounted as a child of another) falls out
// of the same Activation contract every leaf implements.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"goa.design/plexus/activation"
	"goa.design/plexus/handle"
	"goa.design/plexus/schema"
	"goa.design/plexus/telemetry"
)

// Reserved root-level method names no registered namespace may shadow
// (§4.2 "Tie-breaks & edge cases").
const (
	methodSchema        = "schema"
	methodHash          = "hash"
	methodResolveHandle = "resolve_handle"
)

var reservedRootNames = map[string]bool{
	methodSchema:        true,
	methodHash:          true,
	methodResolveHandle: true,
}

// entry is the Registry Entry of §3.4: one registered child of this router,
// keyed by namespace.
type entry struct {
	namespace string
	act       activation.Activation
	pluginID  uuid.UUID
	childSch  schema.PluginSchema
}

// Router holds the registry, dispatches by dotted path, and wraps every
// downstream stream in the envelope. It satisfies activation.Interior so it
// can be mounted as a child of another Router (§4.2 "composes child
// routers").
type Router struct {
	namespace   string
	version     string
	description string
	pluginID    uuid.UUID

	entries    map[string]*entry
	order      []string // registration order, used by namespaces() and ChildSummaries; buildSchema sorts by namespace
	byPluginID map[uuid.UUID]string

	rootSchema schema.PluginSchema
	rootHash   string

	bufferSize     int
	requestTimeout int64 // milliseconds; 0 = no timeout
	sem            *semaphore.Weighted

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

var (
	_ activation.Activation = (*Router)(nil)
	_ activation.Interior   = (*Router)(nil)
)

// Option configures a Router at construction time, following the teacher's
// functional-options pattern (registry.Option in the teacher's Manager).
type Option func(*Router)

// WithLogger sets the structured logger. Defaults to telemetry.NewNoopLogger().
func WithLogger(l telemetry.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics sets the metrics recorder. Defaults to telemetry.NewNoopMetrics().
func WithMetrics(m telemetry.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithTracer sets the tracer. Defaults to telemetry.NewNoopTracer().
func WithTracer(t telemetry.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithBufferSize sets the bounded channel capacity between a producer and
// its consumer (§4.3 backpressure). Default 32, matching the spec's example
// default.
func WithBufferSize(n int) Option {
	return func(r *Router) { r.bufferSize = n }
}

// WithRequestTimeout sets a deadline, in milliseconds, on the context of
// every activation call invoke makes; when it elapses the stream ends with a
// non-recoverable Error and Done. It does not change the timeout of a
// bidirectional Request, which uses only the timeout the activation passes.
// Zero (the default) means no deadline.
func WithRequestTimeout(ms int64) Option {
	return func(r *Router) { r.requestTimeout = ms }
}

// WithBufferPolicy adds a router-wide weighted semaphore of capacity n on top
// of the bounded channel set by WithBufferSize (§4.3, SPEC_FULL §B). send
// acquires one slot before writing an item to the outbound channel and
// releases it once the write completes, so at most n sends are in progress
// at once across all dispatches; no slot is held while an item sits in the
// channel buffer.
func WithBufferPolicy(n int64) Option {
	return func(r *Router) { r.sem = semaphore.NewWeighted(n) }
}

// Registration describes one activation to mount under a namespace at
// construction time.
type Registration struct {
	Namespace  string
	Activation activation.Activation
}

// New constructs a sealed Router (§3.4 "a router instance is effectively
// immutable after sealing"): every registration is validated, child schemas
// and plugin_ids are captured, and the root hash is computed eagerly. An
// error here is always a construction-time, non-recoverable condition
// (shadowed reserved name, duplicate namespace, or a registration whose
// PluginSchema cannot be derived) — Router is only ever handed to callers
// fully sealed.
func New(namespace, version, description string, regs []Registration, opts ...Option) (*Router, error) {
	r := &Router{
		namespace:   namespace,
		version:     version,
		description: description,
		pluginID:    handle.DerivePluginID(namespace, version),
		entries:     make(map[string]*entry),
		byPluginID:  make(map[uuid.UUID]string),
		bufferSize:  32,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = telemetry.NewNoopLogger()
	}
	if r.metrics == nil {
		r.metrics = telemetry.NewNoopMetrics()
	}
	if r.tracer == nil {
		r.tracer = telemetry.NewNoopTracer()
	}

	for _, reg := range regs {
		if err := r.register(reg.Namespace, reg.Activation); err != nil {
			return nil, err
		}
	}

	r.rootSchema = r.buildSchema()
	r.rootHash = r.rootSchema.Hash()
	return r, nil
}

func (r *Router) register(namespace string, act activation.Activation) error {
	if namespace == "" {
		return fmt.Errorf("router: empty namespace")
	}
	if reservedRootNames[namespace] {
		return fmt.Errorf("router: namespace %q shadows a reserved root-level method name", namespace)
	}
	if _, exists := r.entries[namespace]; exists {
		return fmt.Errorf("router: duplicate namespace %q", namespace)
	}
	sch := act.PluginSchema()
	e := &entry{namespace: namespace, act: act, pluginID: act.PluginID(), childSch: sch}
	r.entries[namespace] = e
	r.order = append(r.order, namespace)
	r.byPluginID[act.PluginID()] = namespace
	return nil
}

func (r *Router) buildSchema() schema.PluginSchema {
	children := make([]schema.PluginSchema, 0, len(r.order))
	for _, ns := range r.order {
		children = append(children, r.entries[ns].childSch)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Namespace < children[j].Namespace })
	return schema.PluginSchema{
		Namespace:   r.namespace,
		Version:     r.version,
		Description: r.description,
		PluginID:    r.pluginID,
		Methods: []schema.MethodSchema{
			{Name: methodSchema, Description: "returns this subtree's schema", Streaming: false},
			{Name: methodHash, Description: "returns the current root content hash", Streaming: false},
			{Name: methodResolveHandle, Description: "resolves a cross-plugin handle", Streaming: false},
		},
		Children: children,
	}
}

// Namespace implements activation.Activation.
func (r *Router) Namespace() string { return r.namespace }

// Version implements activation.Activation.
func (r *Router) Version() string { return r.version }

// Description implements activation.Activation.
func (r *Router) Description() string { return r.description }

// PluginID implements activation.Activation.
func (r *Router) PluginID() uuid.UUID { return r.pluginID }

// Methods implements activation.Activation.
func (r *Router) Methods() []string {
	return []string{methodSchema, methodHash, methodResolveHandle}
}

// Kind implements activation.Activation: a Router is always Interior.
func (r *Router) Kind() activation.Kind { return activation.Interior }

// Call implements activation.Activation's direct-call path for a Router
// mounted as a child of another Router (§4.2 "composes child routers").
// Ordinary path dispatch never reaches here for "schema" — routeToActivation
// intercepts and answers it directly — but a Router satisfies Activation
// fully so nested composition works through the same Call contract every
// leaf honors, not a special case the parent router must know about.
func (r *Router) Call(ctx context.Context, method string, params any) (activation.Events, error) {
	switch method {
	case methodSchema:
		return oneShot(r.rootSchema), nil
	case methodHash:
		return oneShot(map[string]string{"hash": r.rootHash}), nil
	case methodResolveHandle:
		h, err := handleFromParams(params)
		if err != nil {
			return nil, activation.InvalidParams(method, err.Error())
		}
		ns, ok := r.byPluginID[h.PluginID]
		if !ok {
			return nil, activation.NotFound(h.PluginID.String())
		}
		e := r.entries[ns]
		resolver, ok := e.act.(activation.HandleResolver)
		if !ok {
			return nil, &activation.RoutingError{Kind: activation.KindHandleNotSupported, Segment: ns, Reason: "activation does not implement handle resolution"}
		}
		return resolver.ResolveHandle(ctx, h)
	default:
		return nil, activation.MethodNotFound(method)
	}
}

// oneShot returns an Events channel that yields v once and closes.
func oneShot(v activation.Event) activation.Events {
	ch := make(chan activation.Event, 1)
	ch <- v
	close(ch)
	return ch
}

// PluginSchema implements activation.Activation, returning the cached,
// eagerly-computed tree (§4.2 "Hash computation").
func (r *Router) PluginSchema() schema.PluginSchema { return r.rootSchema }

// Hash returns the router's root content hash (§3.3, §4.4).
func (r *Router) Hash() string { return r.rootHash }

// ChildSummaries implements activation.Interior.
func (r *Router) ChildSummaries(context.Context) ([]schema.PluginSchema, error) {
	out := make([]schema.PluginSchema, 0, len(r.order))
	for _, ns := range r.order {
		out = append(out, r.entries[ns].childSch)
	}
	return out, nil
}

// GetChild implements activation.Interior.
func (r *Router) GetChild(_ context.Context, name string) (activation.Activation, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, activation.NotFound(name)
	}
	return e.act, nil
}

func splitFirstDot(path string) (head, rest string, hasRest bool) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:], true
	}
	return path, "", false
}
