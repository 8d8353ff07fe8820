package notify

import (
	"context"
	"sync/atomic"
	"time"

	"tradealert/internal/storage"
	"tradealert/pkg/logx"
)

// DefaultAuditBuffer is the StoreReporter queue size when none is given.
const DefaultAuditBuffer = 256

// DeliveryAppender is the part of storage.Store a StoreReporter needs.
type DeliveryAppender interface {
	AppendDelivery(ctx context.Context, r storage.DeliveryRecord) error
}

// StoreReporter records delivery reports in a store without blocking the
// adapter. Reports are queued on a bounded channel and written by Run; when
// the queue is full the report is dropped and counted.
type StoreReporter struct {
	store   DeliveryAppender
	log     logx.Logger
	queue   chan DeliveryReport
	dropped atomic.Uint64
	written atomic.Uint64
}

func NewStoreReporter(store DeliveryAppender, log logx.Logger, buffer int) *StoreReporter {
	if buffer <= 0 {
		buffer = DefaultAuditBuffer
	}
	return &StoreReporter{store: store, log: log, queue: make(chan DeliveryReport, buffer)}
}

func (s *StoreReporter) Report(r DeliveryReport) {
	select {
	case s.queue <- r:
	default:
		if s.dropped.Add(1) == 1 {
			s.log.Warn("delivery audit queue full; dropping records")
		}
	}
}

// Run drains the queue until ctx is done, then flushes what is already
// queued with a short deadline.
func (s *StoreReporter) Run(ctx context.Context) error {
	for {
		select {
		case r := <-s.queue:
			s.write(ctx, r)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for {
				select {
				case r := <-s.queue:
					s.write(flushCtx, r)
				default:
					return nil
				}
			}
		}
	}
}

func (s *StoreReporter) Dropped() uint64 { return s.dropped.Load() }
func (s *StoreReporter) Written() uint64 { return s.written.Load() }

func (s *StoreReporter) write(ctx context.Context, r DeliveryReport) {
	if err := s.store.AppendDelivery(ctx, Record(r)); err != nil {
		s.log.Debug("delivery audit append failed", logx.String("event_id", r.EventID), logx.Err(err))
		return
	}
	s.written.Add(1)
}

// Record converts a report to its stored form.
func Record(r DeliveryReport) storage.DeliveryRecord {
	rec := storage.DeliveryRecord{
		At:       r.At,
		EventID:  r.EventID,
		Category: string(r.Category),
		Outcome:  string(r.Outcome),
		Reason:   r.Reason,
		TookMS:   r.Took.Milliseconds(),
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}
