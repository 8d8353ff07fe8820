package digest

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradealert/internal/notify"
	"tradealert/pkg/logx"
)

var now = time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)

func TestBuild_CountsByCategory(t *testing.T) {
	t.Parallel()
	events := []notify.Event{
		{Category: notify.CategorySignal, Severity: notify.SeveritySuccess, CreatedAt: now.Add(-time.Hour)},
		{Category: notify.CategorySignal, Severity: notify.SeverityInfo, CreatedAt: now.Add(-2 * time.Hour)},
		{Category: notify.CategoryError, Severity: notify.SeverityError, CreatedAt: now.Add(-3 * time.Hour)},
		{Category: notify.CategorySystem, Meta: map[string]string{MetaKind: "digest"}, CreatedAt: now.Add(-4 * time.Hour)},
		{Category: notify.CategoryTrade, CreatedAt: now.Add(-25 * time.Hour)},
	}

	d := Build(events, now)
	require.NoError(t, d.Validate())
	assert.Equal(t, notify.CategorySystem, d.Category)
	assert.Equal(t, notify.SeverityWarning, d.Severity)
	assert.Equal(t, Title, d.Title)
	assert.Equal(t, "2", d.Meta["count.signal"])
	assert.Equal(t, "0", d.Meta["count.trade"])
	assert.Equal(t, "1", d.Meta["count.error"])
	assert.Equal(t, "3", d.Meta["total"])
	assert.Equal(t, "signal: 2\ntrade: 0\nerror: 1\ntraining: 0\nsystem: 0\ntotal: 3 (warnings/errors: 1)", d.Message)
}

func TestBuild_QuietDayIsInfo(t *testing.T) {
	t.Parallel()
	d := Build(nil, now)
	assert.Equal(t, notify.SeverityInfo, d.Severity)
	assert.Equal(t, "0", d.Meta["total"])
}

func TestRunner_FireAndSchedule(t *testing.T) {
	t.Parallel()
	bus := notify.NewBus(nil)
	_, err := bus.Publish(notify.Draft{Category: notify.CategoryTrade, Message: "filled"})
	require.NoError(t, err)

	r := NewRunner(bus, cron.Every(time.Hour), nil, logx.Nop())
	ev, err := r.Fire()
	require.NoError(t, err)
	assert.Equal(t, Title, ev.Title)
	assert.Equal(t, "1", ev.Meta["count.trade"])

	// A second digest does not count the first.
	ev, err = r.Fire()
	require.NoError(t, err)
	assert.Equal(t, "1", ev.Meta["total"])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
