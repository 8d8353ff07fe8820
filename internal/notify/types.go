package notify

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategorySignal   Category = "signal"
	CategoryTrade    Category = "trade"
	CategoryError    Category = "error"
	CategoryTraining Category = "training"
	CategorySystem   Category = "system"
)

// Categories lists every recognized category in display order.
var Categories = []Category{CategorySignal, CategoryTrade, CategoryError, CategoryTraining, CategorySystem}

func (c Category) Valid() bool {
	switch c {
	case CategorySignal, CategoryTrade, CategoryError, CategoryTraining, CategorySystem:
		return true
	}
	return false
}

// ParseCategory accepts any casing and surrounding spaces.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// MetaConfidence is the metadata key producers use for a model confidence
// value (a fraction in [0,1] or a percentage in (1,100]).
const MetaConfidence = "confidence"

// Draft is what a producer hands to Bus.Publish.
type Draft struct {
	Category Category          `json:"category"`
	Severity Severity          `json:"severity,omitempty"`
	Title    string            `json:"title,omitempty"`
	Message  string            `json:"message,omitempty"`
	Symbol   string            `json:"symbol,omitempty"`
	Price    *float64          `json:"price,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Event is a published notification. Every observer and every Snapshot
// gets its own copy, so changes never reach the recorded event.
type Event struct {
	ID        string              `json:"id"`
	Seq       uint64              `json:"seq"`
	Category  Category            `json:"category"`
	Severity  Severity            `json:"severity"`
	Title     string              `json:"title,omitempty"`
	Message   string              `json:"message,omitempty"`
	Symbol    string              `json:"symbol,omitempty"`
	Price     decimal.NullDecimal `json:"price"`
	Meta      map[string]string   `json:"meta,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// clone returns a copy that shares no mutable state with e.
func (e Event) clone() Event {
	e.Meta = maps.Clone(e.Meta)
	return e
}

var ErrValidation = errors.New("invalid notification")

// ValidationError is the only error Bus.Publish returns.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate checks a draft without publishing it.
func (d Draft) Validate() error {
	if !d.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("%q is not recognized", d.Category)}
	}
	if d.Severity != "" && !d.Severity.Valid() {
		return &ValidationError{Field: "severity", Reason: fmt.Sprintf("%q is not recognized", d.Severity)}
	}
	if d.Price != nil && (math.IsNaN(*d.Price) || math.IsInf(*d.Price, 0)) {
		return &ValidationError{Field: "price", Reason: "must be a finite number"}
	}
	if strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.Message) == "" {
		return &ValidationError{Field: "title", Reason: "and message are both empty"}
	}
	return nil
}

// normalized lower-cases category and severity so "Signal" and "signal" match.
func (d Draft) normalized() Draft {
	d.Category = Category(strings.ToLower(strings.TrimSpace(string(d.Category))))
	d.Severity = Severity(strings.ToLower(strings.TrimSpace(string(d.Severity))))
	return d
}

func (d Draft) event(id string, seq uint64, at time.Time) Event {
	sev := d.Severity
	if sev == "" {
		sev = SeverityInfo
	}
	ev := Event{
		ID:        id,
		Seq:       seq,
		Category:  d.Category,
		Severity:  sev,
		Title:     strings.TrimSpace(d.Title),
		Message:   strings.TrimSpace(d.Message),
		Symbol:    strings.TrimSpace(d.Symbol),
		Meta:      maps.Clone(d.Meta),
		CreatedAt: at,
	}
	if d.Price != nil {
		ev.Price = decimal.NewNullDecimal(decimal.NewFromFloat(*d.Price))
	}
	return ev
}
