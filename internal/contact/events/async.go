package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"contactbook/pkg/platform/circuit"
	"contactbook/pkg/platform/sentinel"
)

// ErrQueueFull is returned by AsyncPublisher.Publish when the buffer is full.
var ErrQueueFull = errors.New("event queue full")

// AsyncPublisher moves delivery off the request path. Events are buffered and
// a single worker hands them to the inner publisher in order. While the
// breaker is open, deliveries are dropped except for one probe per interval.
type AsyncPublisher struct {
	inner         Publisher
	logger        *slog.Logger
	breaker       *circuit.Breaker
	probeInterval time.Duration
	timeout       time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}

	lastAttempt time.Time
	dropped     int
}

// AsyncOption configures an AsyncPublisher.
type AsyncOption func(*AsyncPublisher)

// WithBuffer sets the queue capacity.
func WithBuffer(n int) AsyncOption {
	return func(p *AsyncPublisher) {
		if n > 0 {
			p.queue = make(chan Event, n)
		}
	}
}

// WithBreaker replaces the default breaker.
func WithBreaker(b *circuit.Breaker) AsyncOption {
	return func(p *AsyncPublisher) { p.breaker = b }
}

// WithProbeInterval sets how often a delivery is attempted while the breaker is open.
func WithProbeInterval(d time.Duration) AsyncOption {
	return func(p *AsyncPublisher) { p.probeInterval = d }
}

// NewAsyncPublisher starts the delivery worker. Close stops it after draining.
func NewAsyncPublisher(inner Publisher, logger *slog.Logger, opts ...AsyncOption) *AsyncPublisher {
	p := &AsyncPublisher{
		inner:         inner,
		logger:        logger,
		breaker:       circuit.New("contact-events"),
		probeInterval: 10 * time.Second,
		timeout:       5 * time.Second,
		queue:         make(chan Event, 256),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Publish enqueues the event without blocking.
func (p *AsyncPublisher) Publish(_ context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return sentinel.ErrClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close drains the queue, then closes the inner publisher.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	if p.dropped > 0 {
		p.logger.Warn("contact events dropped while broker unavailable", "count", p.dropped)
	}
	return p.inner.Close()
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		p.deliver(event)
	}
}

func (p *AsyncPublisher) deliver(event Event) {
	now := time.Now()
	if p.breaker.IsOpen() && now.Sub(p.lastAttempt) < p.probeInterval {
		p.dropped++
		return
	}
	p.lastAttempt = now

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.inner.Publish(ctx, event); err != nil {
		_, change := p.breaker.RecordFailure()
		p.logger.Warn("failed to deliver contact event",
			"event_type", string(event.Type),
			"record_id", int64(event.RecordID),
			"request_id", event.RequestID,
			"error", err,
		)
		if change.Opened {
			p.logger.Error("contact event delivery suspended", "breaker", p.breaker.Name())
		}
		return
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.Info("contact event delivery resumed", "breaker", p.breaker.Name(), "dropped", p.dropped)
	}
}
