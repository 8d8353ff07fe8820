// Package digest publishes a scheduled summary of recent notifications
// back onto the bus as a system event.
package digest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"tradealert/internal/notify"
	"tradealert/pkg/logx"
)

const (
	Title = "Daily digest"

	// MetaKind marks digest events so later digests do not count them.
	MetaKind  = "kind"
	kindValue = "digest"
)

// Build summarizes events (newest first, as held in history) into a draft.
// Events older than 24h before now are not counted.
func Build(events []notify.Event, now time.Time) notify.Draft {
	since := now.Add(-24 * time.Hour)
	counts := make(map[notify.Category]int, len(notify.Categories))
	var (
		total    int
		problems int
	)
	for _, e := range events {
		if e.CreatedAt.Before(since) || e.Meta[MetaKind] == kindValue {
			continue
		}
		counts[e.Category]++
		total++
		if e.Severity == notify.SeverityError || e.Severity == notify.SeverityWarning {
			problems++
		}
	}

	meta := map[string]string{
		MetaKind: kindValue,
		"total":  strconv.Itoa(total),
	}
	var b strings.Builder
	for _, c := range notify.Categories {
		fmt.Fprintf(&b, "%s: %d\n", c, counts[c])
		meta["count."+string(c)] = strconv.Itoa(counts[c])
	}
	fmt.Fprintf(&b, "total: %d (warnings/errors: %d)", total, problems)

	sev := notify.SeverityInfo
	if problems > 0 {
		sev = notify.SeverityWarning
	}
	return notify.Draft{
		Category: notify.CategorySystem,
		Severity: sev,
		Title:    Title,
		Message:  b.String(),
		Meta:     meta,
	}
}

// Bus is the bus surface the runner needs.
type Bus interface {
	Publish(d notify.Draft) (notify.Event, error)
	Snapshot() []notify.Event
}

// Runner fires Build on a cron schedule.
type Runner struct {
	bus   Bus
	sched cron.Schedule
	loc   *time.Location
	log   logx.Logger
	now   func() time.Time
}

func NewRunner(bus Bus, sched cron.Schedule, loc *time.Location, log logx.Logger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{bus: bus, sched: sched, loc: loc, log: log, now: time.Now}
}

// Fire publishes one digest immediately.
func (r *Runner) Fire() (notify.Event, error) {
	return r.bus.Publish(Build(r.bus.Snapshot(), r.now()))
}

// Run schedules digests until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(r.loc))
	c.Schedule(r.sched, cron.FuncJob(func() {
		ev, err := r.Fire()
		if err != nil {
			r.log.Warn("digest publish failed", logx.Err(err))
			return
		}
		r.log.Info("digest published", logx.String("event_id", ev.ID), logx.String("total", ev.Meta["total"]))
	}))
	c.Start()
	r.log.Info("digest scheduled", logx.Time("next", r.sched.Next(r.now().In(r.loc))))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
