package envelope

import "encoding/json"

// Kind discriminates the StreamItem sum type on the wire (the "type" field
// in §6.1's canonical JSON envelope).
type Kind string

const (
	KindData     Kind = "data"
	KindProgress Kind = "progress"
	KindError    Kind = "error"
	KindGuidance Kind = "guidance"
	KindRequest  Kind = "request"
	KindDone     Kind = "done"
)

// Item is the StreamItem sum type every producer emits. Every lazy stream
// returned by the router is a finite sequence of Items terminating in
// exactly one Done (§3.1).
//
// Concrete types (Data, Progress, Error, Guidance, Request, Done) all embed
// Base and satisfy Item. Consumers type-switch on Kind() to dispatch, or
// type-assert to the concrete type for field access — the same duality the
// teacher's stream.Event interface offers over Type()/Payload().
type Item interface {
	// Kind returns the wire discriminator for this item.
	Kind() Kind
	// Meta returns the item's routing metadata.
	Meta() Metadata
	// WithMeta returns a copy of the item with its metadata replaced. Used
	// by interior routers to extend provenance as a stream unwinds without
	// mutating the original item (items are immutable once produced).
	WithMeta(Metadata) Item
}

// Base carries the metadata common to every Item. Field is unexported by
// convention of access only through Meta()/WithMeta(), but concrete types
// embed it directly for construction convenience.
type Base struct {
	Metadata Metadata
}

// Meta implements Item.
func (b Base) Meta() Metadata { return b.Metadata }

type (
	// Data carries one unit of domain output. ContentType is always the
	// dotted "<namespace>.<method>" pair that produced it (§3.1); Content is
	// the serialized domain value.
	Data struct {
		Base
		ContentType string `json:"content_type"`
		Content     any    `json:"content"`
	}

	// Progress reports partial completion of a long-running method without
	// terminating the stream.
	Progress struct {
		Base
		Message  string   `json:"message"`
		Fraction *float64 `json:"fraction,omitempty"`
	}

	// Error carries a runtime failure. Recoverable errors may be followed by
	// further Data/Progress/Error items; a non-recoverable Error must be the
	// last item before Done (§3.1).
	Error struct {
		Base
		Message     string  `json:"message"`
		Code        *string `json:"code,omitempty"`
		Recoverable bool    `json:"recoverable"`
	}

	// Guidance is the structured diagnostic that precedes an Error whenever
	// a failure is shape-correctable (§4.5, §7 band 1).
	Guidance struct {
		Base
		ErrorKind         ErrorKind      `json:"error_kind"`
		AvailableMethods  []string       `json:"available_methods,omitempty"`
		AvailableServices []string       `json:"available_namespaces,omitempty"`
		MethodSchema      any            `json:"method_schema,omitempty"`
		Suggestion        Suggestion     `json:"suggestion"`
	}

	// Request is a server-initiated mid-stream question delivered to the
	// caller through the Bidirectional Coordinator (§4.6).
	Request struct {
		Base
		RequestID   string      `json:"request_id"`
		RequestType RequestType `json:"request_type"`
		TimeoutMS   *int64      `json:"timeout_ms,omitempty"`
	}

	// Done terminates every stream exactly once (§3.1). The router emits
	// Done (router.wrap for activation streams, guidance.Project and the
	// router's own schema/hash answers for the rest); activations never
	// emit it themselves.
	Done struct {
		Base
	}
)

func (Data) Kind() Kind     { return KindData }
func (Progress) Kind() Kind { return KindProgress }
func (Error) Kind() Kind    { return KindError }
func (Guidance) Kind() Kind { return KindGuidance }
func (Request) Kind() Kind  { return KindRequest }
func (Done) Kind() Kind     { return KindDone }

func (d Data) WithMeta(m Metadata) Item     { d.Metadata = m; return d }
func (p Progress) WithMeta(m Metadata) Item { p.Metadata = m; return p }
func (e Error) WithMeta(m Metadata) Item    { e.Metadata = m; return e }
func (g Guidance) WithMeta(m Metadata) Item { g.Metadata = m; return g }
func (r Request) WithMeta(m Metadata) Item  { r.Metadata = m; return r }
func (d Done) WithMeta(m Metadata) Item     { d.Metadata = m; return d }

// MarshalJSON implements the canonical wire envelope of §6.1: a flat object
// discriminated by "type" with "metadata" alongside the kind-specific
// fields. Each concrete type below encodes itself this way rather than
// relying on struct tag embedding, since Go's encoding/json cannot merge an
// interface-typed embedded field's keys with a sibling "type" tag.
func (d Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        Kind     `json:"type"`
		Metadata    Metadata `json:"metadata"`
		ContentType string   `json:"content_type"`
		Content     any      `json:"content"`
	}{KindData, d.Metadata, d.ContentType, d.Content})
}

func (p Progress) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Kind     `json:"type"`
		Metadata Metadata `json:"metadata"`
		Message  string   `json:"message"`
		Fraction *float64 `json:"fraction,omitempty"`
	}{KindProgress, p.Metadata, p.Message, p.Fraction})
}

func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        Kind     `json:"type"`
		Metadata    Metadata `json:"metadata"`
		Message     string   `json:"message"`
		Code        *string  `json:"code,omitempty"`
		Recoverable bool     `json:"recoverable"`
	}{KindError, e.Metadata, e.Message, e.Code, e.Recoverable})
}

func (g Guidance) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type              Kind       `json:"type"`
		Metadata          Metadata   `json:"metadata"`
		ErrorKind         ErrorKind  `json:"error_kind"`
		AvailableMethods  []string   `json:"available_methods,omitempty"`
		AvailableServices []string   `json:"available_namespaces,omitempty"`
		MethodSchema      any        `json:"method_schema,omitempty"`
		Suggestion        Suggestion `json:"suggestion"`
	}{KindGuidance, g.Metadata, g.ErrorKind, g.AvailableMethods, g.AvailableServices, g.MethodSchema, g.Suggestion})
}

func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        Kind        `json:"type"`
		Metadata    Metadata    `json:"metadata"`
		RequestID   string      `json:"request_id"`
		RequestType RequestType `json:"request_type"`
		TimeoutMS   *int64      `json:"timeout_ms,omitempty"`
	}{KindRequest, r.Metadata, r.RequestID, r.RequestType, r.TimeoutMS})
}

func (d Done) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     Kind     `json:"type"`
		Metadata Metadata `json:"metadata"`
	}{KindDone, d.Metadata})
}
