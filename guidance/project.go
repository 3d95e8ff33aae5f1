// Package guidance projects a RoutingError raised during dispatch into the
// three-item Guidance → Error → Done stream a caller sees on the wire
// (§4.5). It is the router's sole translator between Go errors surfaced by
// activation.Activation.Call/ResolveHandle and the envelope.Item sum type —
// activations and transports never build Guidance items themselves.
package guidance

import (
	"goa.design/plexus/activation"
	"goa.design/plexus/envelope"
	"goa.design/plexus/schema"
)

// Hinter is satisfied by an activation.GuidanceHinter; kept as its own
// interface here so Project does not need to import the concrete type for
// the common nil case.
type Hinter interface {
	CustomGuidance(method string, kind envelope.ErrorKind) (envelope.Suggestion, bool)
}

// Context carries the extra facts Project needs beyond the RoutingError
// itself to fill in a Guidance payload's optional fields (§4.5's table).
// Callers leave a field zero when it doesn't apply to the failure at hand.
type Context struct {
	// AvailableNamespaces populates Guidance.AvailableServices for
	// ActivationNotFound.
	AvailableNamespaces []string
	// AvailableMethods populates Guidance.AvailableMethods for
	// MethodNotFound.
	AvailableMethods []string
	// MethodSchema populates Guidance.MethodSchema for InvalidParams.
	MethodSchema *schema.MethodSchema
	// ExampleParams, when non-nil, is offered in the TryMethod suggestion
	// for InvalidParams — typically sourced from an
	// activation.ExampleParamsProvider.
	ExampleParams any
	// HasExampleParams distinguishes "no example" from an explicit nil
	// example value.
	HasExampleParams bool
	// Hinter, when non-nil, is consulted after the default suggestion is
	// computed and may replace it (§4.5).
	Hinter Hinter
}

// kindMap translates a RoutingErrorKind to the envelope.ErrorKind wire
// vocabulary. The two enums are kept distinct (activation-facing vs.
// wire-facing) so a RoutingError's internal Go type never leaks into the
// envelope package's import graph.
var kindMap = map[activation.RoutingErrorKind]envelope.ErrorKind{
	activation.KindActivationNotFound: envelope.ActivationNotFound,
	activation.KindMethodNotFound:     envelope.MethodNotFound,
	activation.KindInvalidParams:      envelope.InvalidParams,
	activation.KindExecutionError:     envelope.ExecutionError,
	activation.KindHandleNotSupported: envelope.HandleNotSupported,
	activation.KindHandleNotFound:     envelope.HandleNotFound,
}

// guidanceEligible is the set of failure kinds that ride a Guidance item
// ahead of the Error (§4.5 band 1); ExecutionError and the two handle
// failures surface as a bare Error + Done (§7 bands 2-3).
var guidanceEligible = map[activation.RoutingErrorKind]bool{
	activation.KindActivationNotFound: true,
	activation.KindMethodNotFound:     true,
	activation.KindInvalidParams:      true,
}

// Project converts re into the ordered items of a guidance-bearing stream:
// either [Guidance, Error, Done] when re's kind is shape-correctable, or
// [Error, Done] otherwise (§4.5, §7). meta is stamped onto every item as-is
// — callers set Provenance/RootHash/Timestamp before calling Project.
func Project(re *activation.RoutingError, meta envelope.Metadata, ctx Context) []envelope.Item {
	base := envelope.Base{Metadata: meta}
	wireKind, ok := kindMap[re.Kind]
	if !ok {
		wireKind = envelope.ExecutionError
	}

	if !guidanceEligible[re.Kind] {
		return []envelope.Item{
			envelope.Error{Base: base, Message: re.Error(), Recoverable: false},
			envelope.Done{Base: base},
		}
	}

	suggestion := defaultSuggestion(re, meta, ctx)
	if ctx.Hinter != nil {
		if custom, ok := ctx.Hinter.CustomGuidance(re.Segment, wireKind); ok {
			suggestion = custom
		}
	}

	g := envelope.Guidance{
		Base:       base,
		ErrorKind:  wireKind,
		Suggestion: suggestion,
	}
	switch re.Kind {
	case activation.KindActivationNotFound:
		g.AvailableServices = ctx.AvailableNamespaces
	case activation.KindMethodNotFound:
		g.AvailableMethods = ctx.AvailableMethods
	case activation.KindInvalidParams:
		if ctx.MethodSchema != nil {
			g.MethodSchema = ctx.MethodSchema
		}
	}

	return []envelope.Item{
		g,
		envelope.Error{Base: base, Message: re.Error(), Recoverable: false},
		envelope.Done{Base: base},
	}
}

// defaultSuggestion computes the suggestion for re. For MethodNotFound the
// activation's namespace is the last provenance segment of meta.
func defaultSuggestion(re *activation.RoutingError, meta envelope.Metadata, ctx Context) envelope.Suggestion {
	switch re.Kind {
	case activation.KindActivationNotFound:
		return envelope.CallRootSchemaSuggestion()
	case activation.KindMethodNotFound:
		namespace := ""
		if p := meta.Provenance; len(p) > 0 {
			namespace = p[len(p)-1]
		}
		return envelope.CallActivationSchemaSuggestion(namespace)
	case activation.KindInvalidParams:
		var example any
		if ctx.HasExampleParams {
			example = ctx.ExampleParams
		}
		return envelope.TryMethodSuggestion(re.Segment, example)
	default:
		return envelope.Suggestion{}
	}
}
