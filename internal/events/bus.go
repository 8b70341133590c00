package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// Logger is the logging interface used by the event bus.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink consumes session events. HandleEvent runs on the bus goroutine, one
// event at a time, so a slow sink delays the sinks after it.
type Sink interface {
	HandleEvent(ev orchestrator.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev orchestrator.Event)

// HandleEvent calls f(ev).
func (f SinkFunc) HandleEvent(ev orchestrator.Event) { f(ev) }

// Options configures a Bus.
type Options struct {
	// QueueSize bounds the events waiting for delivery. Default: 256.
	QueueSize int

	// OnDrop is called for every event dropped because the queue was full.
	OnDrop func()
}

type namedSink struct {
	name string
	sink Sink
}

// Bus fans session events out to sinks (WebSocket hub, MQTT, InfluxDB,
// Prometheus) without ever blocking the publisher.
//
// Events are delivered in publish order. When the queue is full new events
// are dropped and counted.
//
// Thread Safety: Publish is safe for concurrent use. Add must be called
// before Run.
type Bus struct {
	queue chan orchestrator.Event
	opts  Options

	mu    sync.RWMutex
	sinks []namedSink

	dropped atomic.Uint64
	done    chan struct{}
	logger  Logger
}

// NewBus creates an idle bus. Call Run to start delivery.
func NewBus(opts Options) *Bus {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &Bus{
		queue:  make(chan orchestrator.Event, opts.QueueSize),
		opts:   opts,
		done:   make(chan struct{}),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

// Add registers a sink under a name used in logs.
func (b *Bus) Add(name string, sink Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, namedSink{name: name, sink: sink})
	b.mu.Unlock()
}

// Publish queues ev for delivery and returns immediately.
func (b *Bus) Publish(ev orchestrator.Event) {
	select {
	case b.queue <- ev:
	default:
		b.dropped.Add(1)
		if b.opts.OnDrop != nil {
			b.opts.OnDrop()
		}
		b.logger.Warn("session event dropped", "type", ev.Type, "queue_size", b.opts.QueueSize)
	}
}

// Dropped returns the number of events lost to a full queue.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Run delivers events until ctx is cancelled, then delivers whatever is
// still queued and returns.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case ev := <-b.queue:
			b.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-b.queue:
					b.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// Done is closed when Run has returned.
func (b *Bus) Done() <-chan struct{} { return b.done }

func (b *Bus) deliver(ev orchestrator.Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()

	for _, s := range sinks {
		b.safeHandle(s, ev)
	}
	b.logger.Debug("session event delivered", "type", ev.Type, "sinks", len(sinks))
}

func (b *Bus) safeHandle(s namedSink, ev orchestrator.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event sink panic recovered", "sink", s.name, "type", ev.Type, "panic", r)
		}
	}()
	s.sink.HandleEvent(ev)
}
