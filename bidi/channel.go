// Package bidi implements the Bidirectional Coordinator (§4.6): the
// server-side half of mid-stream requests an activation issues to pause
// and ask its caller to confirm, prompt, or select before continuing.
package bidi

import (
	"context"
	"fmt"
	"time"

	"goa.design/plexus/envelope"
)

// ResponseKind discriminates the ResponsePayload sum type (§4.6).
type ResponseKind string

const (
	RespConfirmed    ResponseKind = "confirmed"
	RespText         ResponseKind = "text"
	RespSelected     ResponseKind = "selected"
	RespCustom       ResponseKind = "custom"
	RespCancelled    ResponseKind = "cancelled"
	RespTimeout      ResponseKind = "timeout"
	RespTypeMismatch ResponseKind = "type_mismatch"
)

// ResponsePayload is the client's answer to a mid-stream Request, or one of
// the terminal non-answers (Cancelled, Timeout, TypeMismatch).
type ResponsePayload struct {
	Kind       ResponseKind
	Confirmed  bool
	Text       string
	Selected   []string
	Custom     any
	MismatchOn string
}

// ErrorKind enumerates the ways a bidirectional request can fail outright
// (as opposed to resolving with a terminal ResponsePayload) (§4.6).
type ErrorKind string

const (
	ErrNotSupported ErrorKind = "not_supported"
	ErrTimeout      ErrorKind = "timeout"
	ErrCancelled    ErrorKind = "cancelled"
	ErrTypeMismatch ErrorKind = "type_mismatch"
	ErrTransport    ErrorKind = "transport"
)

// Error is returned by Channel.Request when it cannot produce a
// ResponsePayload at all.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("bidi: %s: %s", e.Kind, e.Reason) }

// Channel is the per-call facility an activation uses to pause mid-stream
// and ask the caller a question (§4.6). It is made available to an
// activation's Call through the context (see WithChannel/FromContext).
type Channel interface {
	// IsSupported reports whether the underlying transport advertised
	// bidirectional capability for this subscription.
	IsSupported() bool
	// Request allocates a request id, emits a Request item into the
	// subscription's outbound stream, and blocks until a response arrives,
	// the context is canceled, or timeout elapses (zero means no timeout).
	Request(ctx context.Context, rt envelope.RequestType, timeout time.Duration) (ResponsePayload, error)
}

type contextKey struct{}

// WithChannel returns a context carrying ch, retrievable by an activation's
// Call via FromContext.
func WithChannel(ctx context.Context, ch Channel) context.Context {
	return context.WithValue(ctx, contextKey{}, ch)
}

// FromContext retrieves the Channel stashed by WithChannel. When absent (a
// transport that never declared bidirectional capability at all), it
// returns a Channel whose IsSupported reports false and whose Request
// always fails with ErrNotSupported.
func FromContext(ctx context.Context) Channel {
	if ch, ok := ctx.Value(contextKey{}).(Channel); ok && ch != nil {
		return ch
	}
	return unsupported{}
}

type unsupported struct{}

func (unsupported) IsSupported() bool { return false }

func (unsupported) Request(context.Context, envelope.RequestType, time.Duration) (ResponsePayload, error) {
	return ResponsePayload{}, &Error{Kind: ErrNotSupported, Reason: "transport does not advertise bidirectional capability"}
}
