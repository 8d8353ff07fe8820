package commands

import (
	"strconv"
	"strings"
	"time"

	"tradealert/internal/notify"
	"tradealert/pkg/tgui"
)

const (
	DefaultRecent = 5
	MaxRecent     = 20

	titleRunes = 80
)

// ParseRecentArg reads the optional count of /recent. Missing or invalid
// values give DefaultRecent; large values are capped at MaxRecent.
func ParseRecentArg(payload string) int {
	f := strings.Fields(payload)
	if len(f) == 0 {
		return DefaultRecent
	}
	n, err := strconv.Atoi(f[0])
	if err != nil || n <= 0 {
		return DefaultRecent
	}
	return min(n, MaxRecent)
}

// RenderRecent lists up to n events, newest first, one line each.
func RenderRecent(events []notify.Event, n int) string {
	if len(events) == 0 {
		return tgui.I("No notifications yet.").String()
	}
	if len(events) > n {
		events = events[:n]
	}
	lines := make([]tgui.H, 0, len(events)+1)
	lines = append(lines, tgui.B("Recent notifications ("+strconv.Itoa(len(events))+")"))
	for _, e := range events {
		lines = append(lines, renderLine(e))
	}
	return tgui.JoinH("\n", lines...).String()
}

func renderLine(e notify.Event) tgui.H {
	title := e.Title
	if title == "" {
		title = e.Message
	}
	parts := []tgui.H{
		tgui.Raw(notify.Glyph(e.Category, e.Severity)),
		tgui.B("[" + strings.ToUpper(string(e.Category)) + "]"),
		tgui.Esc(tgui.TruncRunes(title, titleRunes)),
	}
	if e.Symbol != "" {
		parts = append(parts, tgui.Code(e.Symbol))
	}
	parts = append(parts, tgui.I(e.CreatedAt.UTC().Format(time.TimeOnly)))
	return tgui.JoinH(" ", parts...)
}

// Status is what /status reports.
type Status struct {
	ChannelEnabled bool
	Categories     []notify.Category
	HistoryLen     int
	HistoryCap     int
	Published      uint64
}

func RenderStatus(s Status) string {
	enabled := "disabled"
	if s.ChannelEnabled {
		enabled = "enabled"
	}
	cats := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		cats[i] = string(c)
	}
	catLine := "none"
	if len(cats) > 0 {
		catLine = strings.Join(cats, ", ")
	}
	return tgui.JoinH("\n",
		tgui.B("tradealert status"),
		tgui.Raw("Channel: ")+tgui.B(enabled),
		tgui.Raw("Categories: ")+tgui.Code(catLine),
		tgui.Raw("History: ")+tgui.B(strconv.Itoa(s.HistoryLen)+"/"+strconv.Itoa(s.HistoryCap)),
		tgui.Raw("Published: ")+tgui.B(strconv.FormatUint(s.Published, 10)),
	).String()
}
