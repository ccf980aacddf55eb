package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
//
// With DropIfFull an event that finds the buffer full is discarded and
// counted, except for the event types listed in Critical: those wait for
// buffer space for as long as the emitting context allows. A ban or a CSRF
// rejection should not vanish because a burst of login failures filled the
// queue first.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Critical   []string
}

// Dispatcher forwards events to a sink from a single goroutine.
type Dispatcher struct {
	sink       Sink
	queue      chan Event
	stop       chan struct{}
	wg         sync.WaitGroup
	dropIfFull bool
	critical   map[string]struct{}

	dropped atomic.Uint64
	mu      sync.Mutex
	byType  map[string]uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when auditing is
// disabled. All methods are safe on a nil *Dispatcher.
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

	d := &Dispatcher{
		sink:       sink,
		queue:      make(chan Event, cfg.BufferSize),
		stop:       make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
		critical:   make(map[string]struct{}, len(cfg.Critical)),
		byType:     map[string]uint64{},
	}
	for _, name := range cfg.Critical {
		d.critical[name] = struct{}{}
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues event. Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull && !d.IsCritical(event.EventType) {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.recordDrop(event.EventType)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-d.stop:
	case <-ctx.Done():
		d.recordDrop(event.EventType)
	}
}

// IsCritical reports whether eventType bypasses DropIfFull.
func (d *Dispatcher) IsCritical(eventType string) bool {
	if d == nil {
		return false
	}
	_, ok := d.critical[eventType]
	return ok
}

func (d *Dispatcher) recordDrop(eventType string) {
	d.dropped.Add(1)
	d.mu.Lock()
	d.byType[eventType]++
	d.mu.Unlock()
}

// Close stops accepting events and waits until the queue is drained.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped is the total number of discarded events.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the drop counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := map[string]uint64{}
	if d == nil {
		return out
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range d.byType {
		out[k] = v
	}
	return out
}
