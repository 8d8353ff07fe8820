package commands

import (
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradealert/internal/notify"
	"tradealert/pkg/logx"
)

func TestParseRecentArg(t *testing.T) {
	t.Parallel()
	cases := map[string]int{
		"":       DefaultRecent,
		"  ":     DefaultRecent,
		"3":      3,
		"3 more": 3,
		"0":      DefaultRecent,
		"-2":     DefaultRecent,
		"abc":    DefaultRecent,
		"500":    MaxRecent,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseRecentArg(in), in)
	}
}

func TestRenderRecent(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 10, 14, 9, 15, 2, 0, time.UTC)
	events := []notify.Event{
		{Category: notify.CategoryError, Severity: notify.SeverityError, Title: "Feed <down>", CreatedAt: at},
		{Category: notify.CategorySignal, Severity: notify.SeveritySuccess, Title: "BUY", Symbol: "TCS.NS", CreatedAt: at},
		{Category: notify.CategoryTrade, Severity: notify.SeverityInfo, Message: "filled", CreatedAt: at},
	}

	out := RenderRecent(events, 2)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "<b>Recent notifications (2)</b>", lines[0])
	assert.Contains(t, lines[1], "<b>[ERROR]</b> Feed &lt;down&gt;")
	assert.Contains(t, lines[2], "<code>TCS.NS</code>")
	assert.True(t, strings.HasSuffix(lines[2], "<i>09:15:02</i>"))

	assert.Contains(t, RenderRecent(events, 5), "filled")
	assert.Equal(t, "<i>No notifications yet.</i>", RenderRecent(nil, 5))
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()
	out := RenderStatus(Status{
		ChannelEnabled: true,
		Categories:     []notify.Category{notify.CategorySignal, notify.CategoryError},
		HistoryLen:     7,
		HistoryCap:     100,
		Published:      42,
	})
	assert.Contains(t, out, "Channel: <b>enabled</b>")
	assert.Contains(t, out, "Categories: <code>signal, error</code>")
	assert.Contains(t, out, "History: <b>7/100</b>")
	assert.Contains(t, out, "Published: <b>42</b>")

	assert.Contains(t, RenderStatus(Status{}), "Categories: <code>none</code>")
}

type staticChannel notify.ChannelConfig

func (s staticChannel) Config() notify.ChannelConfig { return notify.ChannelConfig(s) }

func TestBridge_ReplyAndChatFilter(t *testing.T) {
	t.Parallel()
	bus := notify.NewBus(nil)
	for i := 0; i < 8; i++ {
		_, err := bus.Publish(notify.Draft{Category: notify.CategorySignal, Title: "s"})
		require.NoError(t, err)
	}
	ch := staticChannel{Token: "t", Target: "-100", Categories: notify.CategorySet(notify.CategorySignal)}
	b := New(Options{Token: "t", Target: "-100"}, bus, ch, logx.Nop())

	assert.Contains(t, b.Reply("recent", ""), "Recent notifications (5)")
	assert.Contains(t, b.Reply("recent", "2"), "Recent notifications (2)")
	assert.Contains(t, b.Reply("status", ""), "History: <b>8/100</b>")
	assert.Equal(t, "Unknown command.", b.Reply("nope", ""))

	assert.True(t, b.allowed(&tele.Chat{ID: -100}))
	assert.False(t, b.allowed(&tele.Chat{ID: -200}))
	assert.False(t, b.allowed(nil))

	byName := New(Options{Token: "t", Target: "@TradeAlerts"}, bus, ch, logx.Nop())
	assert.True(t, byName.allowed(&tele.Chat{ID: 1, Username: "tradealerts"}))
}

func TestBridge_RunRequiresCredentials(t *testing.T) {
	t.Parallel()
	b := New(Options{}, notify.NewBus(nil), staticChannel{}, logx.Nop())
	assert.Error(t, b.Run(t.Context()))
}
