package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrBufferFull is returned by Dispatcher.Publish when the queue is saturated.
var ErrBufferFull = errors.New("event buffer full")

const (
	defaultBufferSize     = 1024
	defaultDrainTimeout   = 5 * time.Second
	defaultPublishTimeout = 10 * time.Second
)

// Dispatcher decouples request handling from slow sinks. Publish enqueues
// without blocking; Run forwards queued events to the sink until ctx ends and
// then drains what is left. Each forward is bounded by the publish timeout so
// one stuck call cannot stall the queue.
type Dispatcher struct {
	sink           Publisher
	queue          chan Event
	logger         *slog.Logger
	drainTimeout   time.Duration
	publishTimeout time.Duration
}

type DispatcherOption func(*Dispatcher)

func WithBufferSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithDrainTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.drainTimeout = timeout
	}
}

func WithPublishTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.publishTimeout = timeout
		}
	}
}

func NewDispatcher(sink Publisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:           sink,
		queue:          make(chan Event, defaultBufferSize),
		logger:         slog.Default(),
		drainTimeout:   defaultDrainTimeout,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish enqueues the event. It never blocks.
func (d *Dispatcher) Publish(_ context.Context, event Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run forwards events until ctx is cancelled. Sink failures are logged and
// skipped. Returns nil on shutdown.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		case event := <-d.queue:
			d.forward(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-d.queue:
			d.forward(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) forward(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()
	if err := d.sink.Publish(ctx, event); err != nil {
		d.logger.WarnContext(ctx, "event publish failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"key", event.Key,
			"error", err,
		)
	}
}
