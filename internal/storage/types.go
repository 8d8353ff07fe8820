package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": append-only JSON Lines file
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DefaultRecentLimit applies when RecentDeliveries is called with limit <= 0.
const DefaultRecentLimit = 50

// DeliveryRecord is one delivery attempt.
// Keep it compact and schema-stable.
type DeliveryRecord struct {
	At       time.Time `json:"at"`
	EventID  string    `json:"event_id"`
	Category string    `json:"category"`
	Outcome  string    `json:"outcome"`
	Reason   string    `json:"reason,omitempty"`
	Error    string    `json:"error,omitempty"`
	TookMS   int64     `json:"took_ms"`
}
