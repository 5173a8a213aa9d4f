// Package notifier delivers member-facing messages. Delivery is fire-and-forget:
// failures are logged and never reach the caller's state transition.
package notifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmynk/sususave/internal/metrics"
)

// Sink sends a text message to a phone number.
type Sink interface {
	Notify(ctx context.Context, phone, message string) error
}

// LogSink writes messages to the structured log instead of sending them.
type LogSink struct{}

// Notify implements Sink.
func (LogSink) Notify(ctx context.Context, phone, message string) error {
	slog.InfoContext(ctx, "SMS sent", "to", phone, "message", message)
	return nil
}

type envelope struct {
	phone   string
	message string
}

// Async queues messages for a background worker. Notify never blocks: when
// the queue is full the message is dropped and counted.
type Async struct {
	sink    Sink
	metrics *metrics.Metrics
	queue   chan envelope

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts a worker delivering to sink.
func NewAsync(sink Sink, queueSize int, m *metrics.Metrics) *Async {
	if queueSize <= 0 {
		queueSize = 256
	}
	a := &Async{
		sink:    sink,
		metrics: m,
		queue:   make(chan envelope, queueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Notify implements Sink. The caller's context is not carried into delivery.
func (a *Async) Notify(_ context.Context, phone, message string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.metrics.Notification(metrics.OutcomeDropped)
		return nil
	}

	select {
	case a.queue <- envelope{phone: phone, message: message}:
	default:
		slog.Warn("notification queue full, dropping message", "to", phone)
		a.metrics.Notification(metrics.OutcomeDropped)
	}
	return nil
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for env := range a.queue {
		if err := a.sink.Notify(context.Background(), env.phone, env.message); err != nil {
			slog.Error("notification delivery failed", "to", env.phone, "error", err)
			a.metrics.Notification(metrics.OutcomeFailed)
			continue
		}
		a.metrics.Notification(metrics.OutcomeSuccess)
	}
}
