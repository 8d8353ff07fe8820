package notify

import (
	"strings"
	"time"
)

const (
	ParseModeHTML     = "HTML"
	ParseModeMarkdown = "Markdown"

	DefaultDeliveryTimeout = 10 * time.Second
	DefaultCurrency        = "₹"
)

// ChannelConfig controls external delivery. It is read on every delivery
// attempt, so a Reconfigure takes effect for the next event.
type ChannelConfig struct {
	Token  string
	Target string
	// Categories that are relayed externally. Empty means none.
	Categories map[Category]bool

	ParseMode  string
	Timeout    time.Duration
	Currency   string
	RatePerSec int // 0 disables the rate cap
}

// Enabled reports whether both credentials are present.
func (c ChannelConfig) Enabled() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.Target) != ""
}

// Allows is the pure delivery gate: configured and category enabled.
func (c ChannelConfig) Allows(cat Category) bool {
	return c.Enabled() && c.Categories[cat]
}

// CategorySet builds a Categories map.
func CategorySet(cats ...Category) map[Category]bool {
	m := make(map[Category]bool, len(cats))
	for _, c := range cats {
		m[c] = true
	}
	return m
}

// EnabledCategories returns the enabled set in display order.
func (c ChannelConfig) EnabledCategories() []Category {
	out := make([]Category, 0, len(c.Categories))
	for _, cat := range Categories {
		if c.Categories[cat] {
			out = append(out, cat)
		}
	}
	return out
}

func (c ChannelConfig) withDefaults() ChannelConfig {
	if c.ParseMode == "" {
		c.ParseMode = ParseModeHTML
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultDeliveryTimeout
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.RatePerSec < 0 {
		c.RatePerSec = 0
	}
	// Copy so later mutation of the caller's map has no effect.
	cats := make(map[Category]bool, len(c.Categories))
	for k, v := range c.Categories {
		if v {
			cats[k] = true
		}
	}
	c.Categories = cats
	return c
}
