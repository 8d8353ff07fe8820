package notify

import (
	"time"

	"tradealert/pkg/logx"
)

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// DeliveryReport describes one Deliver call.
type DeliveryReport struct {
	EventID  string
	Category Category
	Outcome  Outcome
	Reason   string // why it was skipped
	Err      error  // why it failed
	At       time.Time
	Took     time.Duration
}

// Reporter receives delivery outcomes. Implementations must return quickly
// and must not block: the adapter calls them inline.
type Reporter interface {
	Report(r DeliveryReport)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(r DeliveryReport)

func (f ReporterFunc) Report(r DeliveryReport) { f(r) }

// MultiReporter forwards to every non-nil reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(r DeliveryReport) {
	for _, rep := range m {
		if rep != nil {
			rep.Report(r)
		}
	}
}

// LogReporter writes failures at warn and skips at debug.
type LogReporter struct {
	Log logx.Logger
}

func (l LogReporter) Report(r DeliveryReport) {
	fields := []logx.Field{
		logx.String("event_id", r.EventID),
		logx.String("category", string(r.Category)),
		logx.Duration("took", r.Took),
	}
	switch r.Outcome {
	case OutcomeFailed:
		l.Log.Warn("notification delivery failed", append(fields, logx.Err(r.Err))...)
	case OutcomeSkipped:
		l.Log.Debug("notification delivery skipped", append(fields, logx.String("reason", r.Reason))...)
	default:
		l.Log.Debug("notification delivered", fields...)
	}
}
