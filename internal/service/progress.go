package service

import (
	"context"
	"sync"
)

// ProgressBus tracks in-flight tool invocations so they can be cancelled
// by token, and forwards progress updates to the notification bus.
type ProgressBus struct {
	bus      *NotificationBus
	inflight sync.Map // token -> context.CancelFunc
}

// NewProgressBus creates a progress bus
func NewProgressBus(bus *NotificationBus) *ProgressBus {
	return &ProgressBus{bus: bus}
}

// Register derives a cancellable context for an invocation token. The
// caller must Cleanup the token when the invocation ends.
func (b *ProgressBus) Register(ctx context.Context, token string) context.Context {
	cctx, cancel := context.WithCancel(ctx)
	b.inflight.Store(token, cancel)
	return cctx
}

// Cancel aborts the invocation holding the token, if still in flight
func (b *ProgressBus) Cancel(token string) bool {
	value, ok := b.inflight.Load(token)
	if !ok {
		return false
	}
	value.(context.CancelFunc)()
	return true
}

// Cleanup releases the token and its context resources
func (b *ProgressBus) Cleanup(token string) {
	if value, ok := b.inflight.LoadAndDelete(token); ok {
		value.(context.CancelFunc)()
	}
}

// Report publishes a progress update for the token
func (b *ProgressBus) Report(token string, current, total float64, message string) {
	if token == "" {
		return
	}
	b.bus.PublishProgress(ProgressEvent{
		Token:   token,
		Current: current,
		Total:   total,
		Message: message,
	})
}
