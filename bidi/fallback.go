package bidi

import (
	"context"
	"time"

	"goa.design/plexus/envelope"
)

// Policy selects the degrade-gracefully answer a FallbackChannel returns
// when the underlying transport never declared bidirectional capability
// (§4.6: "auto-confirm, default-on-prompt, first-option-on-select").
type Policy int

const (
	// AutoConfirm answers Confirm requests with Default (or false if unset),
	// Prompt requests with Default (or empty), and Select requests with the
	// first option.
	AutoConfirm Policy = iota
	// Deny answers Confirm requests with false and fails Prompt/Select/
	// Custom requests with ErrNotSupported. Use when silently approving a
	// destructive default is unacceptable.
	Deny
)

// FallbackChannel wraps a Channel that may not support bidirectional
// requests and applies Policy instead of surfacing ErrNotSupported,
// letting activation code call Request uniformly regardless of transport
// capability (§4.6).
type FallbackChannel struct {
	Underlying Channel
	Policy     Policy
}

var _ Channel = FallbackChannel{}

// IsSupported delegates to the wrapped channel.
func (f FallbackChannel) IsSupported() bool { return f.Underlying.IsSupported() }

// Request delegates to the underlying channel when it supports
// bidirectional requests; otherwise it resolves per Policy without
// blocking or touching the network.
func (f FallbackChannel) Request(ctx context.Context, rt envelope.RequestType, timeout time.Duration) (ResponsePayload, error) {
	if f.Underlying.IsSupported() {
		return f.Underlying.Request(ctx, rt, timeout)
	}
	return f.degrade(rt)
}

func (f FallbackChannel) degrade(rt envelope.RequestType) (ResponsePayload, error) {
	if f.Policy == Deny {
		if rt.Kind == envelope.RequestConfirm {
			return ResponsePayload{Kind: RespConfirmed, Confirmed: false}, nil
		}
		return ResponsePayload{}, &Error{Kind: ErrNotSupported, Reason: "transport does not support bidirectional requests"}
	}

	switch rt.Kind {
	case envelope.RequestConfirm:
		confirmed := rt.DefaultBool != nil && *rt.DefaultBool
		return ResponsePayload{Kind: RespConfirmed, Confirmed: confirmed}, nil
	case envelope.RequestPrompt:
		text := ""
		if rt.DefaultText != nil {
			text = *rt.DefaultText
		}
		return ResponsePayload{Kind: RespText, Text: text}, nil
	case envelope.RequestSelect:
		if len(rt.Options) == 0 {
			return ResponsePayload{}, &Error{Kind: ErrNotSupported, Reason: "select request has no options to fall back to"}
		}
		return ResponsePayload{Kind: RespSelected, Selected: []string{rt.Options[0].Value}}, nil
	default:
		return ResponsePayload{}, &Error{Kind: ErrNotSupported, Reason: "no fallback for custom request types"}
	}
}
