package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradealert/pkg/tgui"
)

var fixedAt = time.Date(2026, 10, 14, 9, 15, 2, 0, time.UTC)

func sampleEvent() Event {
	return Event{
		ID:        "e1",
		Category:  CategorySignal,
		Severity:  SeveritySuccess,
		Title:     "BUY signal",
		Message:   "Momentum breakout above 20-day high",
		Symbol:    "RELIANCE.NS",
		Price:     decimal.NewNullDecimal(decimal.NewFromFloat(2456.7)),
		Meta:      map[string]string{MetaConfidence: "0.847"},
		CreatedAt: fixedAt,
	}
}

func TestFormat_IsDeterministic(t *testing.T) {
	t.Parallel()
	f := NewFormatter(ParseModeHTML, "")
	ev := sampleEvent()
	assert.Equal(t, f.Format(ev), f.Format(ev))
}

func TestFormat_RendersHeaderFields(t *testing.T) {
	t.Parallel()
	out := NewFormatter(ParseModeHTML, "₹").Format(sampleEvent())

	assert.True(t, strings.HasPrefix(out, "🟢 <b>[SIGNAL]</b> <b>BUY signal</b>"), out)
	assert.Contains(t, out, "Symbol: <code>RELIANCE.NS</code>")
	assert.Contains(t, out, "Price: <b>₹2456.70</b>")
	assert.Contains(t, out, "Confidence: <b>84.7%</b>")
	assert.Contains(t, out, "<i>2026-10-14 09:15:02 UTC</i>")
	assert.True(t, strings.HasSuffix(out, "\n\nMomentum breakout above 20-day high"), out)
}

func TestFormat_TimestampIsUTC(t *testing.T) {
	t.Parallel()
	ev := sampleEvent()
	ev.CreatedAt = fixedAt.In(time.FixedZone("IST", 5*3600+1800))
	assert.Contains(t, NewFormatter(ParseModeHTML, "").Format(ev), "2026-10-14 09:15:02 UTC")
}

func TestFormat_OptionalFieldsOmitted(t *testing.T) {
	t.Parallel()
	ev := Event{Category: CategorySystem, Severity: SeverityInfo, Title: "Backend online", CreatedAt: fixedAt}
	out := NewFormatter(ParseModeHTML, "").Format(ev)

	assert.NotContains(t, out, "Symbol:")
	assert.NotContains(t, out, "Price:")
	assert.NotContains(t, out, "Confidence:")
	assert.Equal(t, "ℹ️ <b>[SYSTEM]</b> <b>Backend online</b>\n<i>2026-10-14 09:15:02 UTC</i>", out)
}

func TestFormat_GlyphDependsOnSeverity(t *testing.T) {
	t.Parallel()
	f := NewFormatter(ParseModeHTML, "")
	ev := sampleEvent()
	success := f.Format(ev)
	ev.Severity = SeverityWarning
	warning := f.Format(ev)

	assert.NotEqual(t, success, warning)
	assert.True(t, strings.HasPrefix(warning, "🟠"))
	assert.Equal(t, "🔔", Glyph("unknown", SeverityInfo))
}

func TestFormat_EscapesHTML(t *testing.T) {
	t.Parallel()
	ev := sampleEvent()
	ev.Title = "P&L <update>"
	ev.Message = "loss < 2%"
	out := NewFormatter(ParseModeHTML, "").Format(ev)
	assert.Contains(t, out, "<b>P&amp;L &lt;update&gt;</b>")
	assert.Contains(t, out, "loss &lt; 2%")
}

func TestFormat_Markdown(t *testing.T) {
	t.Parallel()
	ev := sampleEvent()
	ev.Message = "use *care* with_underscores"
	out := NewFormatter(ParseModeMarkdown, "$").Format(ev)

	assert.Contains(t, out, "*[SIGNAL]*")
	assert.Contains(t, out, "Symbol: `RELIANCE.NS`")
	assert.Contains(t, out, "Price: *$2456.70*")
	assert.Contains(t, out, `use \*care\* with\_underscores`)
	assert.Contains(t, out, "_2026-10-14 09:15:02 UTC_")
}

func TestFormat_TruncatesBodyOnly(t *testing.T) {
	t.Parallel()
	ev := sampleEvent()
	ev.Message = strings.Repeat("<&>", 3000) // escaping multiplies the length
	f := NewFormatter(ParseModeHTML, "")
	out := f.Format(ev)

	assert.LessOrEqual(t, tgui.RuneLen(out), MaxMessageRunes)
	assert.True(t, strings.HasSuffix(out, "\n"+truncatedMarker), out[len(out)-40:])
	head := f.header(htmlMarkup, ev)
	assert.True(t, strings.HasPrefix(out, head+"\n\n"))
	// No entity is cut in half.
	body := strings.TrimSuffix(strings.TrimPrefix(out, head+"\n\n"), "\n"+truncatedMarker)
	assert.Equal(t, 0, len(strings.ReplaceAll(strings.ReplaceAll(strings.ReplaceAll(body, "&lt;", ""), "&amp;", ""), "&gt;", "")))
}

func TestFormat_LongMessageExactlyAtLimitIsNotTruncated(t *testing.T) {
	t.Parallel()
	ev := sampleEvent()
	f := NewFormatter(ParseModeHTML, "")
	head := f.header(htmlMarkup, ev)
	ev.Message = strings.Repeat("a", MaxMessageRunes-tgui.RuneLen(head)-2)

	out := f.Format(ev)
	assert.Equal(t, MaxMessageRunes, tgui.RuneLen(out))
	assert.NotContains(t, out, truncatedMarker)
}

func TestConfidence(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"0.847", "84.7%", true},
		{"1", "100.0%", true},
		{"0", "0.0%", true},
		{"72.35", "72.4%", true},
		{"84.7%", "84.7%", true},
		{"0.5%", "0.5%", true},
		{"150", "", false},
		{"-0.2", "", false},
		{"high", "", false},
		{"NaN", "", false},
	}
	for _, c := range cases {
		got, ok := Confidence(map[string]string{MetaConfidence: c.raw})
		require.Equal(t, c.ok, ok, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}

	_, ok := Confidence(nil)
	assert.False(t, ok)
}

func TestFormat_TruncationKeepsAsMuchBodyAsFits(t *testing.T) {
	t.Parallel()
	ev := sampleEvent()
	ev.Message = strings.Repeat("<&>", 3000)
	f := NewFormatter(ParseModeHTML, "")
	out := f.Format(ev)

	head := f.header(htmlMarkup, ev)
	body := strings.TrimSuffix(strings.TrimPrefix(out, head+"\n\n"), "\n"+truncatedMarker)
	triplet := "&lt;&amp;&gt;"
	require.NotEmpty(t, body)
	// Within one escaped rune of the budget.
	assert.Greater(t, tgui.RuneLen(out), MaxMessageRunes-len(triplet))
	assert.True(t, strings.HasPrefix(body, triplet+triplet))
}

func TestFormat_TinyLimitCapsHeader(t *testing.T) {
	t.Parallel()
	f := NewFormatter(ParseModeHTML, "")
	f.MaxRunes = 10
	out := f.Format(sampleEvent())
	assert.Equal(t, 10, tgui.RuneLen(out))
}

func TestFormat_MarkdownEntitiesAreNotEscapedInside(t *testing.T) {
	t.Parallel()
	ev := sampleEvent()
	ev.Title = "P*L [daily]_x"
	out := NewFormatter(ParseModeMarkdown, "").Format(ev)

	assert.True(t, strings.HasPrefix(out, "🟢 *[SIGNAL]* *P∗L [daily]_x*"), out)
	assert.NotContains(t, out, `\[`)
}
