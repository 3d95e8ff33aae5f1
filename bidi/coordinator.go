package bidi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"goa.design/plexus/envelope"
)

// Sender delivers a Request item into a subscription's outbound envelope
// stream. Subscriptions are constructed with one, typically the same
// channel router.wrap writes Data/Progress/Error items into, so the
// Request item takes its place in delivery order (§5 "happens-before").
type Sender interface {
	Send(ctx context.Context, item envelope.Item) error
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, item envelope.Item) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, item envelope.Item) error { return f(ctx, item) }

// Coordinator correlates server-initiated mid-stream requests with client
// responses, one Subscription per active outbound stream declared
// bidirectional-capable (§3.5, §4.6).
type Coordinator struct {
	mu            sync.Mutex
	subscriptions map[string]*Subscription
}

// NewCoordinator constructs an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{subscriptions: make(map[string]*Subscription)}
}

// Open registers a new bidirectional-capable subscription and returns its
// Channel. Call Close (directly, or via Cancel) when the underlying stream
// terminates.
func (c *Coordinator) Open(subscriptionID string, out Sender) *Subscription {
	sub := &Subscription{
		id:       subscriptionID,
		out:      out,
		pending:  make(map[string]chan ResponsePayload),
		isActive: true,
	}
	c.mu.Lock()
	c.subscriptions[subscriptionID] = sub
	c.mu.Unlock()
	return sub
}

// DeliverResponse completes the pending request (subscriptionID,
// requestID) with payload, called by the transport when a client response
// message arrives (§4.7). Late or unknown (subscriptionID, requestID)
// pairs are silently dropped — the slot was already removed by a prior
// timeout or cancellation.
func (c *Coordinator) DeliverResponse(subscriptionID, requestID string, payload ResponsePayload) {
	c.mu.Lock()
	sub, ok := c.subscriptions[subscriptionID]
	c.mu.Unlock()
	if !ok {
		return
	}
	sub.deliver(requestID, payload)
}

// Cancel tears down subscriptionID: every outstanding request future
// resolves with RespCancelled/ErrCancelled, and the subscription is
// removed so late responses and further requests are rejected.
func (c *Coordinator) Cancel(subscriptionID string) {
	c.mu.Lock()
	sub, ok := c.subscriptions[subscriptionID]
	delete(c.subscriptions, subscriptionID)
	c.mu.Unlock()
	if ok {
		sub.cancel()
	}
}

// Close removes subscriptionID without forcing a cancellation response —
// used when the stream ended normally (all requests already resolved).
func (c *Coordinator) Close(subscriptionID string) {
	c.mu.Lock()
	delete(c.subscriptions, subscriptionID)
	c.mu.Unlock()
}

// Subscription is the per-stream bidirectional state (§3.5). It implements
// Channel so an activation's Call can use it directly, or wrap it in a
// FallbackChannel when IsSupported is false.
type Subscription struct {
	id  string
	out Sender

	mu       sync.Mutex
	pending  map[string]chan ResponsePayload
	isActive bool
}

var _ Channel = (*Subscription)(nil)

// IsSupported always reports true for a Subscription: it only exists
// because the transport declared bidirectional capability when the
// subscription was opened.
func (s *Subscription) IsSupported() bool { return true }

// Rebind replaces the Sender a Subscription delivers Request items through.
// Dispatch calls this to point a pre-opened Subscription at the exact
// outbound channel it is wrapping for one call, so the Request item takes
// its place in delivery order alongside that call's Data/Progress/Done
// items (§4.6 "emits Request into the outbound envelope").
func (s *Subscription) Rebind(out Sender) {
	s.mu.Lock()
	s.out = out
	s.mu.Unlock()
}

func (s *Subscription) sender() Sender {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}

// Request implements Channel.Request (§4.6 steps 1-4).
func (s *Subscription) Request(ctx context.Context, rt envelope.RequestType, timeout time.Duration) (ResponsePayload, error) {
	requestID := uuid.NewString()
	ch := make(chan ResponsePayload, 1)

	s.mu.Lock()
	if !s.isActive {
		s.mu.Unlock()
		return ResponsePayload{}, &Error{Kind: ErrCancelled, Reason: "subscription already terminated"}
	}
	s.pending[requestID] = ch
	s.mu.Unlock()

	var timeoutMS *int64
	if timeout > 0 {
		ms := timeout.Milliseconds()
		timeoutMS = &ms
	}
	item := envelope.Request{RequestID: requestID, RequestType: rt, TimeoutMS: timeoutMS}
	if err := s.sender().Send(ctx, item); err != nil {
		s.removePending(requestID)
		return ResponsePayload{}, &Error{Kind: ErrTransport, Reason: err.Error()}
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case resp := <-ch:
		if resp.Kind == RespCancelled {
			return resp, &Error{Kind: ErrCancelled, Reason: "subscription canceled"}
		}
		return resp, nil
	case <-timeoutCh:
		s.removePending(requestID)
		return ResponsePayload{Kind: RespTimeout}, &Error{Kind: ErrTimeout, Reason: "no response before deadline"}
	case <-ctx.Done():
		s.removePending(requestID)
		return ResponsePayload{}, &Error{Kind: ErrCancelled, Reason: ctx.Err().Error()}
	}
}

func (s *Subscription) deliver(requestID string, payload ResponsePayload) {
	s.mu.Lock()
	ch, ok := s.pending[requestID]
	if ok {
		delete(s.pending, requestID)
	}
	s.mu.Unlock()
	if ok {
		ch <- payload
	}
}

func (s *Subscription) removePending(requestID string) {
	s.mu.Lock()
	delete(s.pending, requestID)
	s.mu.Unlock()
}

func (s *Subscription) cancel() {
	s.mu.Lock()
	s.isActive = false
	pending := s.pending
	s.pending = make(map[string]chan ResponsePayload)
	s.mu.Unlock()
	for _, ch := range pending {
		ch <- ResponsePayload{Kind: RespCancelled}
	}
}
