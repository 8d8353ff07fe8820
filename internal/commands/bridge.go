// Package commands answers read-only chat commands in the alert channel:
// /recent [n] lists the newest events and /status summarizes the bus and
// channel. It long-polls with telebot and never posts unprompted.
package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"tradealert/internal/notify"
	"tradealert/pkg/logx"
)

// Source is the bus surface the commands read.
type Source interface {
	Snapshot() []notify.Event
	Len() int
	Capacity() int
	Published() uint64
}

// ChannelView exposes the live channel config.
type ChannelView interface {
	Config() notify.ChannelConfig
}

type Options struct {
	Token       string
	Target      string // chat id or @username; other chats are ignored
	URL         string // Bot API base URL; empty for the public API
	PollTimeout time.Duration
}

type Bridge struct {
	opts Options
	src  Source
	ch   ChannelView
	log  logx.Logger
}

func New(opts Options, src Source, ch ChannelView, log logx.Logger) *Bridge {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	opts.Token = strings.TrimSpace(opts.Token)
	opts.Target = strings.TrimSpace(opts.Target)
	return &Bridge{opts: opts, src: src, ch: ch, log: log}
}

// Run polls until ctx is done. It returns an error only when the bot
// cannot be created (bad token, API unreachable).
func (b *Bridge) Run(ctx context.Context) error {
	if b.opts.Token == "" || b.opts.Target == "" {
		return errors.New("commands: channel token and target are required")
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  b.opts.Token,
		URL:    b.opts.URL,
		Poller: &tele.LongPoller{Timeout: b.opts.PollTimeout},
		OnError: func(err error, c tele.Context) {
			b.log.Warn("command handler failed", logx.Err(err))
		},
	})
	if err != nil {
		return err
	}
	bot.Handle("/recent", b.handler("recent"))
	bot.Handle("/status", b.handler("status"))

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			bot.Stop()
		case <-stopped:
		}
	}()

	b.log.Info("command polling started", logx.String("bot", bot.Me.Username))
	bot.Start()
	close(stopped)
	b.log.Info("command polling stopped")
	return nil
}

func (b *Bridge) handler(cmd string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !b.allowed(c.Chat()) {
			return nil
		}
		payload := ""
		if m := c.Message(); m != nil {
			payload = m.Payload
		}
		return c.Send(b.Reply(cmd, payload), tele.ModeHTML, tele.NoPreview)
	}
}

func (b *Bridge) allowed(chat *tele.Chat) bool {
	if chat == nil {
		return false
	}
	if strconv.FormatInt(chat.ID, 10) == b.opts.Target {
		return true
	}
	return chat.Username != "" && strings.EqualFold("@"+chat.Username, b.opts.Target)
}

// Reply renders the answer to a command.
func (b *Bridge) Reply(cmd, payload string) string {
	switch cmd {
	case "recent":
		return RenderRecent(b.src.Snapshot(), ParseRecentArg(payload))
	case "status":
		cfg := b.ch.Config()
		return RenderStatus(Status{
			ChannelEnabled: cfg.Enabled(),
			Categories:     cfg.EnabledCategories(),
			HistoryLen:     b.src.Len(),
			HistoryCap:     b.src.Capacity(),
			Published:      b.src.Published(),
		})
	default:
		return "Unknown command."
	}
}
