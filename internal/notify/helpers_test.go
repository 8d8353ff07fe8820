package notify

import (
	"context"
	"sync"
	"time"

	"tradealert/internal/transport/botapi"
)

type fakeSender struct {
	mu    sync.Mutex
	sends []botapi.SendMessage
	getMe int
	err   error
	meErr error
	// hold, if set, blocks SendMessage until ctx is done.
	hold bool
}

func (f *fakeSender) GetMe(ctx context.Context, token string) (botapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getMe++
	if f.meErr != nil {
		return botapi.User{}, f.meErr
	}
	return botapi.User{ID: 1, IsBot: true, Username: "alerts_bot"}, nil
}

func (f *fakeSender) SendMessage(ctx context.Context, token string, msg botapi.SendMessage) error {
	f.mu.Lock()
	f.sends = append(f.sends, msg)
	err, hold := f.err, f.hold
	f.mu.Unlock()
	if hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeSender) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends) + f.getMe
}

func (f *fakeSender) sent() []botapi.SendMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]botapi.SendMessage(nil), f.sends...)
}

type reportSink struct {
	ch chan DeliveryReport
}

func newReportSink() *reportSink { return &reportSink{ch: make(chan DeliveryReport, 64)} }

func (r *reportSink) Report(rep DeliveryReport) {
	select {
	case r.ch <- rep:
	default:
	}
}

func (r *reportSink) next(timeout time.Duration) (DeliveryReport, bool) {
	select {
	case rep := <-r.ch:
		return rep, true
	case <-time.After(timeout):
		return DeliveryReport{}, false
	}
}

func enabledConfig(cats ...Category) ChannelConfig {
	return ChannelConfig{Token: "123:abc", Target: "-100200", Categories: CategorySet(cats...)}
}

func price(v float64) *float64 { return &v }
