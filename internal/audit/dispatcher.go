package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and shutdown.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool

	// FlushTimeout bounds how long Close waits for buffered events to reach the
	// sink. Zero waits until the buffer is empty.
	FlushTimeout time.Duration
}

// Dispatcher relays events to a Sink from a single goroutine. The sink sees a
// context that is cancelled once a Close flush deadline passes.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event

	sinkCtx    context.Context
	cancelSink context.CancelFunc

	stop    chan struct{}
	stopped chan struct{}
	closing atomic.Bool
	once    sync.Once

	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when auditing is disabled. A
// nil *Dispatcher is safe to use.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	sinkCtx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:        cfg,
		sink:       sink,
		queue:      make(chan Event, cfg.BufferSize),
		sinkCtx:    sinkCtx,
		cancelSink: cancel,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(d.sinkCtx, event)
		case <-d.stop:
			d.flush()
			return
		}
	}
}

// flush delivers what is buffered until the queue is empty or the sink context
// is cancelled.
func (d *Dispatcher) flush() {
	for d.sinkCtx.Err() == nil {
		select {
		case event := <-d.queue:
			d.sink.Emit(d.sinkCtx, event)
		default:
			return
		}
	}
}

// abandon counts everything still buffered as dropped.
func (d *Dispatcher) abandon() {
	for {
		select {
		case <-d.queue:
			d.dropped.Add(1)
		default:
			return
		}
	}
}

// Emit queues event for delivery, stamping Timestamp when the caller left it
// zero. Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops accepting events and flushes the buffer. With a FlushTimeout it
// returns once the deadline passes even if the sink is stuck; events it could
// not deliver by then count as dropped.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		defer d.cancelSink()

		if d.cfg.FlushTimeout <= 0 {
			<-d.stopped
			return
		}
		timer := time.NewTimer(d.cfg.FlushTimeout)
		defer timer.Stop()
		select {
		case <-d.stopped:
		case <-timer.C:
			d.cancelSink()
			d.abandon()
		}
	})
}

// Dropped returns the number of events that were not delivered.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
