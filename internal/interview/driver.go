package interview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrDriverStopped is returned by Call once Run has returned.
var ErrDriverStopped = errors.New("interview driver stopped")

// Driver owns a Session on a single goroutine. Commands, wall-clock ticks and adapter
// callbacks are serialized through it, and a Snapshot is broadcast after each one.
type Driver struct {
	session  *Session
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	queue  []func(*Session)
	signal chan struct{}
	done   chan struct{}

	subsMu  sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
	last    Snapshot
	closed  bool

	// touched only on the Run goroutine
	resetTicker bool
}

func NewDriver(s *Session, interval time.Duration, log *slog.Logger) *Driver {
	if interval <= 0 {
		interval = time.Second
	}
	d := &Driver{
		session:  s,
		interval: interval,
		logger:   log.With(slog.String("component", "driver")),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		subs:     make(map[int]chan Snapshot),
		last:     s.Snapshot(),
	}
	s.dispatch = func(fn func()) { d.Do(func(*Session) { fn() }) }
	s.Observe(ObserverFunc(func(e Event) {
		if e.Kind == EventRecordingStarted {
			d.resetTicker = true
		}
	}))
	return d
}

// Do queues fn to run against the session. It never blocks.
func (d *Driver) Do(fn func(*Session)) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// Call runs fn on the session and waits for its result.
func (d *Driver) Call(ctx context.Context, fn func(*Session) error) error {
	result := make(chan error, 1)
	d.Do(func(s *Session) { result <- fn(s) })
	select {
	case err := <-result:
		return err
	case <-d.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrDriverStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the most recently broadcast state.
func (d *Driver) Snapshot() Snapshot {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	return d.last
}

// Subscribe returns a channel carrying the latest snapshot. Slow readers skip
// intermediate states. The channel is closed by cancel or when Run returns.
func (d *Driver) Subscribe() (<-chan Snapshot, func()) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	ch := make(chan Snapshot, 1)
	if d.closed {
		close(ch)
		return ch, func() {}
	}
	id := d.nextSub
	d.nextSub++
	d.subs[id] = ch
	ch <- d.last
	return ch, func() {
		d.subsMu.Lock()
		defer d.subsMu.Unlock()
		if c, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(c)
		}
	}
}

// Done is closed when Run returns.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Run processes commands and ticks until ctx is cancelled. The session's capture is
// released on the way out.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	defer d.shutdown()

	d.logger.Info("interview driver started", slog.Duration("tick_interval", d.interval))
	d.drain()
	d.publish()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.signal:
			d.drain()
		case <-ticker.C:
			if d.session.Tick() {
				d.logger.Debug("answer timed out")
			}
			d.drain()
		}
		if d.resetTicker {
			d.resetTicker = false
			ticker.Reset(d.interval)
		}
		d.publish()
	}
}

func (d *Driver) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn(d.session)
	}
}

func (d *Driver) publish() {
	snap := d.session.Snapshot()
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	d.last = snap
	for _, ch := range d.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (d *Driver) shutdown() {
	d.session.Close()
	d.publish()
	d.subsMu.Lock()
	d.closed = true
	for id, ch := range d.subs {
		delete(d.subs, id)
		close(ch)
	}
	d.subsMu.Unlock()
	close(d.done)
	d.logger.Info("interview driver stopped")
}
