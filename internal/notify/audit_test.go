package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradealert/internal/storage"
	"tradealert/pkg/logx"
)

type memAppender struct {
	mu   sync.Mutex
	recs []storage.DeliveryRecord
}

func (m *memAppender) AppendDelivery(ctx context.Context, r storage.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, r)
	return nil
}

func (m *memAppender) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func TestRecord(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	rec := Record(DeliveryReport{
		EventID: "e", Category: CategoryError, Outcome: OutcomeFailed,
		Err: errors.New("chat not found"), At: at, Took: 1500 * time.Millisecond,
	})
	assert.Equal(t, storage.DeliveryRecord{
		At: at, EventID: "e", Category: "error", Outcome: "failed", Error: "chat not found", TookMS: 1500,
	}, rec)
}

func TestStoreReporter_WritesAndFlushesOnStop(t *testing.T) {
	t.Parallel()
	store := &memAppender{}
	rep := NewStoreReporter(store, logx.Nop(), 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rep.Run(ctx) }()

	for i := 0; i < 5; i++ {
		rep.Report(DeliveryReport{EventID: "e", Outcome: OutcomeSent})
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 5, store.len())
	assert.Equal(t, uint64(5), rep.Written())
}

func TestStoreReporter_DropsWhenFull(t *testing.T) {
	t.Parallel()
	store := &memAppender{}
	rep := NewStoreReporter(store, logx.Nop(), 2)

	// No Run loop yet: the queue fills and the rest are dropped.
	start := time.Now()
	for i := 0; i < 10; i++ {
		rep.Report(DeliveryReport{EventID: "e"})
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, uint64(8), rep.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rep.Run(ctx))
	assert.Equal(t, 2, store.len())
}
