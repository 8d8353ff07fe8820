package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	rtsup "tradealert/internal/runtime/supervisor"
	"tradealert/pkg/logx"
)

// Observer receives every event published after it subscribed. It runs
// synchronously inside Publish, so it must be quick and must not call
// Publish itself. Calling Snapshot from an observer is fine.
type Observer func(e Event)

// Deliverer is the external relay used by the bus. *Adapter implements it.
type Deliverer interface {
	Allows(cat Category) bool
	Deliver(ctx context.Context, e Event) bool
}

type observerEntry struct {
	id uint64
	fn Observer
}

// Bus records events in a bounded history, fans them out to observers and
// hands the externally enabled ones to a Deliverer in the background.
//
// Publishes are serialized: id/seq/timestamp assignment, the history insert
// and observer notification for one event form a single critical section.
// Delivery runs outside it and is never awaited.
type Bus struct {
	publishMu sync.Mutex
	seq       uint64
	last      time.Time
	history   *History

	obsMu     sync.Mutex
	obsSeq    uint64
	observers atomic.Pointer[[]observerEntry] // copy-on-write

	deliverer  Deliverer
	dispatchMu sync.RWMutex
	closed     bool
	sup        *rtsup.Supervisor

	log   logx.Logger
	now   func() time.Time
	newID func() string
}

type Option func(*Bus)

func WithHistoryCapacity(n int) Option {
	return func(b *Bus) { b.history = NewHistory(n) }
}

func WithLogger(log logx.Logger) Option {
	return func(b *Bus) { b.log = log }
}

// WithClock overrides time.Now. Tests use it to simulate clock skew.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(b *Bus) { b.newID = fn }
}

// NewBus builds a bus. d may be nil for a local-only bus.
func NewBus(d Deliverer, opts ...Option) *Bus {
	b := &Bus{
		deliverer: d,
		log:       logx.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(b)
	}
	if b.history == nil {
		b.history = NewHistory(DefaultHistoryCapacity)
	}
	if b.log.IsZero() {
		b.log = logx.Nop()
	}
	b.observers.Store(&[]observerEntry{})
	b.sup = rtsup.NewSupervisor(context.Background(),
		rtsup.WithLogger(b.log.With(logx.String("comp", "notify.delivery"))),
	)
	return b
}

// Publish validates d, records it and notifies observers. The only error it
// returns is a *ValidationError, in which case nothing was recorded.
func (b *Bus) Publish(d Draft) (Event, error) {
	d = d.normalized()
	if err := d.Validate(); err != nil {
		return Event{}, err
	}
	id := b.newID()

	ev := b.record(d, id)
	b.dispatch(ev)
	return ev.clone(), nil
}

func (b *Bus) record(d Draft, id string) Event {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.seq++
	at := b.now()
	// One assignment point keeps CreatedAt non-decreasing even if the
	// wall clock steps backwards.
	if at.Before(b.last) {
		at = b.last
	}
	b.last = at

	ev := d.event(id, b.seq, at)
	b.history.Insert(ev.clone())
	for _, o := range *b.observers.Load() {
		b.notifyOne(o, ev.clone())
	}
	return ev
}

func (b *Bus) notifyOne(o observerEntry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("observer panicked", logx.Uint64("observer", o.id), logx.String("event_id", ev.ID), logx.Any("panic", r))
		}
	}()
	o.fn(ev)
}

func (b *Bus) dispatch(ev Event) {
	if b.deliverer == nil || !b.deliverer.Allows(ev.Category) {
		return
	}
	b.dispatchMu.RLock()
	defer b.dispatchMu.RUnlock()
	if b.closed {
		b.log.Debug("bus closed; delivery skipped", logx.String("event_id", ev.ID))
		return
	}
	d := b.deliverer
	b.sup.Go0("deliver", func(ctx context.Context) {
		d.Deliver(ctx, ev)
	})
}

// Subscribe registers fn. History is not replayed; call Snapshot for it.
// The returned func unsubscribes and is safe to call more than once.
func (b *Bus) Subscribe(fn Observer) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.obsMu.Lock()
	b.obsSeq++
	id := b.obsSeq
	cur := *b.observers.Load()
	next := make([]observerEntry, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, observerEntry{id: id, fn: fn})
	b.observers.Store(&next)
	b.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	cur := *b.observers.Load()
	next := make([]observerEntry, 0, len(cur))
	for _, o := range cur {
		if o.id != id {
			next = append(next, o)
		}
	}
	b.observers.Store(&next)
}

// Snapshot returns the history newest-first as an independent copy.
func (b *Bus) Snapshot() []Event { return b.history.All() }

// Clear empties the history. Sequence numbers keep counting.
func (b *Bus) Clear() { b.history.Clear() }

// Len is the number of events currently retained.
func (b *Bus) Len() int { return b.history.Len() }

// Capacity is the history bound.
func (b *Bus) Capacity() int { return b.history.Cap() }

// Published is the total number of accepted publishes.
func (b *Bus) Published() uint64 {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()
	return b.seq
}

// Observers is the number of registered observers.
func (b *Bus) Observers() int { return len(*b.observers.Load()) }

// Deliveries exposes background delivery goroutine counters.
func (b *Bus) Deliveries() rtsup.Counters { return b.sup.Counters() }

// Close stops scheduling deliveries and waits for in-flight ones until ctx
// is done, then cancels whatever is left. Publish keeps working afterwards
// without external delivery.
func (b *Bus) Close(ctx context.Context) error {
	b.dispatchMu.Lock()
	b.closed = true
	b.dispatchMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	err := b.sup.Wait(ctx)
	b.sup.Cancel()
	return err
}
