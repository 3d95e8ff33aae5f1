// Package activation defines the capability-bearing service contract every
// leaf or interior node in the router's namespace tree satisfies (§4.1).
package activation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"goa.design/plexus/envelope"
	"goa.design/plexus/handle"
	"goa.design/plexus/schema"
)

// Event is a single domain value yielded by an activation's Call. The
// router wraps each Event in an envelope.Data item (§4.2's caller-wraps
// envelope); activations never construct envelope.Item themselves and
// never emit envelope.Done — that is the router's exclusive responsibility
// (the "caller-wraps" discipline named in the glossary).
type Event = any

// Events is the lazy, finite sequence of domain values an activation's
// Call produces. A nil channel (as opposed to a closed empty channel) is
// never returned by a well-behaved Call; RoutingError communicates
// dispatch-time failure instead.
type Events = <-chan Event

// Progress is an optional domain value an activation's Call may yield to
// report partial completion without terminating the stream (§4.3); the
// router recognizes it and emits an envelope.Progress item instead of
// wrapping it as Data.
type Progress struct {
	Message  string
	Fraction *float64
}

// Recoverable is an optional domain value an activation's Call may yield to
// report a non-terminal failure (§3.1 "a recoverable Error may appear
// multiple times"); the router emits an envelope.Error item with
// Recoverable=true instead of wrapping it as Data. A non-recoverable
// failure is signaled by returning a RoutingError from Call, not by
// yielding a value — see ExecutionError.
type Recoverable struct {
	Message string
	Code    *string
}

// Kind distinguishes a Leaf activation, whose Call only ever handles names
// in Methods(), from an Interior (hub) activation, which additionally
// routes a remaining dotted path to a child (§4.1, §9 "Interior vs leaf
// polymorphism").
type Kind int

const (
	// Leaf activations expose no children; Call only ever resolves method
	// names directly.
	Leaf Kind = iota
	// Interior activations additionally expose ChildSummaries/GetChild and
	// accept a dotted remainder path in Call.
	Interior
)

// Activation is the capability-bearing contract every registered service
// satisfies, leaf or interior alike — the router accepts both uniformly
// (§9: "avoid deep inheritance hierarchies"; a single interface with
// kind-gated optional behavior over a tagged sum).
type Activation interface {
	// Namespace returns this activation's path segment, stable and unique
	// within its parent router.
	Namespace() string
	// Version returns this activation's semver string.
	Version() string
	// Description returns a human-readable summary.
	Description() string
	// PluginID returns the UUID derived per §3.2. Implementations must
	// compute this with handle.DerivePluginID(Namespace(), Version()) and
	// must never fabricate it by any other means.
	PluginID() uuid.UUID
	// Methods returns the ordered list of method names this activation
	// answers directly (excluding the framework-synthesized "schema"
	// method, which the router adds automatically).
	Methods() []string
	// Kind reports whether this activation is a Leaf or an Interior hub.
	Kind() Kind
	// Call invokes method with params and returns the lazy domain-event
	// sequence it produces, or a RoutingError if method/params cannot be
	// serviced. The context carries cancellation and, when the call is
	// bidirectional-capable, the coordinator channel (see package bidi).
	Call(ctx context.Context, method string, params any) (Events, error)
	// PluginSchema returns this activation's own schema (excluding the
	// synthesized "schema" method entry and, for interior activations,
	// without recursing into children — the router assembles the full tree
	// via ChildSummaries/GetChild). Pure and cacheable.
	PluginSchema() schema.PluginSchema
}

// Interior is implemented by hub activations that route a remaining dotted
// path to a lazily materialized child (§4.1, §9 "Lazy child
// materialization").
type Interior interface {
	Activation
	// ChildSummaries returns the schema of every currently known child,
	// without forcing materialization of children that are created on
	// demand.
	ChildSummaries(ctx context.Context) ([]schema.PluginSchema, error)
	// GetChild resolves name to a child Activation. May fail (and may be
	// slow — child materialization can involve I/O), in which case the
	// router projects the failure as ActivationNotFound guidance naming
	// the unresolved segment.
	GetChild(ctx context.Context, name string) (Activation, error)
}

// HandleResolver is optionally implemented by an activation that owns
// addressable resources referenced by Handles (§3.2, §4.2 handle
// resolution, §9 "Cross-plugin data reference via Handles"). Absence of
// this capability is a hard error (HandleNotSupported), not a silent
// no-op.
type HandleResolver interface {
	// ResolveHandle returns the event stream whose items are the resolved
	// content for h. The router does not inspect h.Method or h.Meta; only
	// the owning activation interprets them.
	ResolveHandle(ctx context.Context, h handle.Handle) (Events, error)
}

// GuidanceHinter is optionally implemented by an activation wanting to
// enrich a shape-correctable failure with a method-specific example,
// consulted after the router computes its default suggestion (§4.5).
type GuidanceHinter interface {
	// CustomGuidance returns a replacement suggestion for a failure of the
	// given kind on method, or ok=false to keep the router's default.
	CustomGuidance(method string, kind envelope.ErrorKind) (envelope.Suggestion, bool)
}

// ExampleParamsProvider is optionally implemented by an activation that can
// supply a worked example payload for one of its methods, used to populate
// Suggestion.ExampleParams in a TryMethod suggestion (§4.5, §C.1).
type ExampleParamsProvider interface {
	ExampleParams(method string) (any, bool)
}

// RoutingErrorKind enumerates the failure kinds an activation's Call or
// ResolveHandle can signal as a Go error (as opposed to a domain-level
// Event carrying its own error shape, which the router never reinterprets
// — §4.2).
type RoutingErrorKind string

const (
	KindActivationNotFound RoutingErrorKind = "activation_not_found"
	KindMethodNotFound     RoutingErrorKind = "method_not_found"
	KindInvalidParams      RoutingErrorKind = "invalid_params"
	KindExecutionError     RoutingErrorKind = "execution_error"
	KindHandleNotSupported RoutingErrorKind = "handle_not_supported"
	KindHandleNotFound     RoutingErrorKind = "handle_not_found"
)

// RoutingError is the structured failure an activation's Call or
// ResolveHandle returns to signal a dispatch-time problem. The router
// pattern-matches on Kind to build the corresponding Guidance/Error stream
// (§4.5, §7) — RoutingError is never itself serialized to the wire.
type RoutingError struct {
	Kind    RoutingErrorKind
	Segment string // offending namespace/method name, when applicable
	Reason  string
}

func (e *RoutingError) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Segment, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// NotFound builds an ActivationNotFound RoutingError naming segment.
func NotFound(segment string) *RoutingError {
	return &RoutingError{Kind: KindActivationNotFound, Segment: segment, Reason: "no activation registered under this name"}
}

// MethodNotFound builds a MethodNotFound RoutingError naming the method.
func MethodNotFound(method string) *RoutingError {
	return &RoutingError{Kind: KindMethodNotFound, Segment: method, Reason: "activation does not expose this method"}
}

// InvalidParams builds an InvalidParams RoutingError.
func InvalidParams(method, reason string) *RoutingError {
	return &RoutingError{Kind: KindInvalidParams, Segment: method, Reason: reason}
}

// ExecutionError builds an opaque, non-guidance-eligible RoutingError for a
// runtime failure inside an activation's own domain logic (§4.5 table,
// band 2 in §7).
func ExecutionError(reason string) *RoutingError {
	return &RoutingError{Kind: KindExecutionError, Reason: reason}
}
