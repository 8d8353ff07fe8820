package notify

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"tradealert/internal/transport/botapi"
)

var (
	ErrNotConfigured = errors.New("channel not configured")
	ErrRateLimited   = errors.New("channel rate limit exceeded")
)

// Sender is the external API surface the adapter needs. *botapi.Client
// implements it.
type Sender interface {
	GetMe(ctx context.Context, token string) (botapi.User, error)
	SendMessage(ctx context.Context, token string, msg botapi.SendMessage) error
}

type channelState struct {
	cfg     ChannelConfig
	format  Formatter
	limiter *rate.Limiter // nil when uncapped
}

// Adapter relays events to the external channel. Delivery is best-effort:
// one attempt, no retry, no queue. Failures go to the Reporter and never to
// the caller.
type Adapter struct {
	state    atomic.Pointer[channelState]
	sender   Sender
	reporter Reporter
	now      func() time.Time
}

func NewAdapter(cfg ChannelConfig, sender Sender, reporter Reporter) *Adapter {
	if reporter == nil {
		reporter = MultiReporter(nil)
	}
	a := &Adapter{sender: sender, reporter: reporter, now: time.Now}
	a.Reconfigure(cfg)
	return a
}

// Reconfigure swaps the channel config. The next Deliver uses it.
func (a *Adapter) Reconfigure(cfg ChannelConfig) {
	cfg = cfg.withDefaults()
	st := &channelState{cfg: cfg, format: NewFormatter(cfg.ParseMode, cfg.Currency)}
	if cfg.RatePerSec > 0 {
		st.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	a.state.Store(st)
}

// Config returns a copy of the active channel config.
func (a *Adapter) Config() ChannelConfig {
	cfg := a.state.Load().cfg
	cfg.Categories = CategorySet(cfg.EnabledCategories()...)
	return cfg
}

// Allows reports whether an event of this category would be relayed.
// It performs no I/O.
func (a *Adapter) Allows(cat Category) bool {
	return a.state.Load().cfg.Allows(cat)
}

// Formatter returns the formatter for the active config.
func (a *Adapter) Formatter() Formatter {
	return a.state.Load().format
}

// Deliver makes one attempt to push e and reports whether the API
// acknowledged it. It never panics.
func (a *Adapter) Deliver(ctx context.Context, e Event) (ok bool) {
	st := a.state.Load()
	start := a.now()
	rep := DeliveryReport{EventID: e.ID, Category: e.Category, At: start}

	if !st.cfg.Enabled() {
		rep.Outcome, rep.Reason = OutcomeSkipped, "channel not configured"
		a.report(rep)
		return false
	}
	if !st.cfg.Categories[e.Category] {
		rep.Outcome, rep.Reason = OutcomeSkipped, "category not enabled"
		a.report(rep)
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			rep.Outcome, rep.Err, rep.Took = OutcomeFailed, fmt.Errorf("deliver panic: %v", r), a.now().Sub(start)
			a.report(rep)
			ok = false
		}
	}()

	if st.limiter != nil && !st.limiter.Allow() {
		rep.Outcome, rep.Err = OutcomeFailed, ErrRateLimited
		a.report(rep)
		return false
	}

	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithTimeout(ctx, st.cfg.Timeout)
	defer cancel()

	err := a.sender.SendMessage(cctx, st.cfg.Token, botapi.SendMessage{
		ChatID:                st.cfg.Target,
		Text:                  st.format.Format(e),
		ParseMode:             st.cfg.ParseMode,
		DisableWebPagePreview: true,
	})
	rep.Took = a.now().Sub(start)
	if err != nil {
		rep.Outcome, rep.Err = OutcomeFailed, err
		a.report(rep)
		return false
	}
	rep.Outcome = OutcomeSent
	a.report(rep)
	return true
}

// CheckConnection verifies the token with getMe and then pushes a
// confirmation message to the target. It is for configuration validation,
// not the publish path.
func (a *Adapter) CheckConnection(ctx context.Context) error {
	st := a.state.Load()
	if !st.cfg.Enabled() {
		return ErrNotConfigured
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithTimeout(ctx, st.cfg.Timeout)
	defer cancel()

	me, err := a.sender.GetMe(cctx, st.cfg.Token)
	if err != nil {
		return fmt.Errorf("identity check: %w", err)
	}
	name := me.Username
	if name == "" {
		name = "bot"
	}
	text := "✅ " + st.format.markup().bold("tradealert connected") + "\n" + st.format.markup().esc("Notifications will be sent by @"+name)
	if err := a.sender.SendMessage(cctx, st.cfg.Token, botapi.SendMessage{
		ChatID:    st.cfg.Target,
		Text:      text,
		ParseMode: st.cfg.ParseMode,
	}); err != nil {
		return fmt.Errorf("confirmation push: %w", err)
	}
	return nil
}

// TestConnection is CheckConnection reduced to a boolean.
func (a *Adapter) TestConnection(ctx context.Context) bool {
	return a.CheckConnection(ctx) == nil
}

func (a *Adapter) report(r DeliveryReport) {
	defer func() { _ = recover() }()
	a.reporter.Report(r)
}
