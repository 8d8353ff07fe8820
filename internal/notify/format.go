package notify

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tradealert/pkg/tgui"
)

// MaxMessageRunes is the external API's text limit for a single message.
const MaxMessageRunes = 4096

const (
	TimeLayout      = "2006-01-02 15:04:05 UTC"
	truncatedMarker = "… (truncated)"

	// Header fields are capped so the header can never exhaust the budget.
	maxTitleRunes  = 256
	maxSymbolRunes = 64
)

// Formatter renders events into chat markup. Format is pure: the same event
// always yields the same text.
type Formatter struct {
	ParseMode string
	Currency  string
	MaxRunes  int
}

func NewFormatter(parseMode, currency string) Formatter {
	return Formatter{ParseMode: parseMode, Currency: currency, MaxRunes: MaxMessageRunes}
}

type markup struct {
	esc    func(string) string
	bold   func(string) string
	code   func(string) string
	italic func(string) string
}

var htmlMarkup = markup{
	esc:    func(s string) string { return tgui.Esc(s).String() },
	bold:   func(s string) string { return tgui.B(s).String() },
	code:   func(s string) string { return tgui.Code(s).String() },
	italic: func(s string) string { return tgui.I(s).String() },
}

var markdownMarkup = markup{
	esc:    tgui.MdEsc,
	bold:   tgui.MdB,
	code:   tgui.MdCode,
	italic: tgui.MdI,
}

func (f Formatter) markup() markup {
	if strings.EqualFold(f.ParseMode, ParseModeMarkdown) {
		return markdownMarkup
	}
	return htmlMarkup
}

func (f Formatter) Format(e Event) string {
	m := f.markup()
	limit := f.MaxRunes
	if limit <= 0 || limit > MaxMessageRunes {
		limit = MaxMessageRunes
	}

	head := f.header(m, e)
	if e.Message == "" {
		return tgui.CutRunes(head, limit)
	}

	const sep = "\n\n"
	budget := limit - tgui.RuneLen(head) - tgui.RuneLen(sep)
	body := m.esc(e.Message)
	if tgui.RuneLen(body) > budget {
		body = truncateBody(m, e.Message, budget)
	}
	if body == "" {
		return tgui.CutRunes(head, limit)
	}
	return head + sep + body
}

func (f Formatter) header(m markup, e Event) string {
	var b strings.Builder

	b.WriteString(Glyph(e.Category, e.Severity))
	b.WriteString(" ")
	b.WriteString(m.bold("[" + strings.ToUpper(string(e.Category)) + "]"))
	if e.Title != "" {
		b.WriteString(" ")
		b.WriteString(m.bold(tgui.TruncRunes(e.Title, maxTitleRunes)))
	}

	if e.Symbol != "" {
		b.WriteString("\nSymbol: ")
		b.WriteString(m.code(tgui.TruncRunes(e.Symbol, maxSymbolRunes)))
	}
	if e.Price.Valid {
		cur := f.Currency
		if cur == "" {
			cur = DefaultCurrency
		}
		b.WriteString("\nPrice: ")
		b.WriteString(m.bold(cur + e.Price.Decimal.StringFixed(2)))
	}
	if pct, ok := Confidence(e.Meta); ok {
		b.WriteString("\nConfidence: ")
		b.WriteString(m.bold(pct))
	}
	b.WriteString("\n")
	b.WriteString(m.italic(e.CreatedAt.UTC().Format(TimeLayout)))
	return b.String()
}

// truncateBody escapes msg rune by rune and stops before the escaped text
// plus the marker would exceed budget. Entities are never split.
func truncateBody(m markup, msg string, budget int) string {
	marker := "\n" + m.esc(truncatedMarker)
	avail := budget - tgui.RuneLen(marker)
	if avail <= 0 {
		return ""
	}
	var (
		b    strings.Builder
		used int
	)
	for _, r := range msg {
		part := m.esc(string(r))
		w := tgui.RuneLen(part)
		if used+w > avail {
			break
		}
		b.WriteString(part)
		used += w
	}
	if used == 0 {
		return strings.TrimPrefix(marker, "\n")
	}
	return b.String() + marker
}

var hundred = decimal.NewFromInt(100)

// Confidence reads the confidence metadata and renders it as a percentage
// with one decimal place. Fractions in [0,1] are scaled by 100, values in
// (1,100] or suffixed with "%" are taken as percentages. Missing, unparsable
// or out-of-range values report false.
func Confidence(meta map[string]string) (string, bool) {
	raw, ok := meta[MetaConfidence]
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	isPct := strings.HasSuffix(raw, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "%")), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return "", false
	}
	d := decimal.NewFromFloat(v)
	if !isPct && v <= 1 {
		d = d.Mul(hundred)
	}
	if d.GreaterThan(hundred) {
		return "", false
	}
	return d.StringFixed(1) + "%", true
}

var glyphs = map[Category]map[Severity]string{
	CategorySignal: {
		SeverityInfo:    "📡",
		SeveritySuccess: "🟢",
		SeverityWarning: "🟠",
		SeverityError:   "🔴",
	},
	CategoryTrade: {
		SeverityInfo:    "💱",
		SeveritySuccess: "✅",
		SeverityWarning: "⚠️",
		SeverityError:   "❌",
	},
	CategoryError: {
		SeverityInfo:    "❗",
		SeveritySuccess: "❗",
		SeverityWarning: "⚠️",
		SeverityError:   "🚨",
	},
	CategoryTraining: {
		SeverityInfo:    "🧠",
		SeveritySuccess: "🎓",
		SeverityWarning: "⚠️",
		SeverityError:   "💥",
	},
	CategorySystem: {
		SeverityInfo:    "ℹ️",
		SeveritySuccess: "✅",
		SeverityWarning: "⚠️",
		SeverityError:   "🛑",
	},
}

// Glyph is the leading emoji for a category and severity.
func Glyph(c Category, s Severity) string {
	if g, ok := glyphs[c][s]; ok {
		return g
	}
	return "🔔"
}
