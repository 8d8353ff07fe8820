package config

// Config is the on-disk configuration (JSON or YAML).
//
// Durations are Go duration strings ("500ms", "1m") or bare seconds ("10").
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Channel  ChannelConfig  `json:"channel"`
	History  HistoryConfig  `json:"history,omitempty"`
	HTTP     HTTPConfig     `json:"http,omitempty"`
	Commands CommandsConfig `json:"commands,omitempty"`
	Digest   DigestConfig   `json:"digest,omitempty"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ChannelConfig controls the external chat channel.
//
// Token may be left empty in the file and supplied through the
// TRADEALERT_CHANNEL_TOKEN environment variable.
//
// Categories is a pointer so we can distinguish "omitted" (relay every
// category) from an explicit empty list (relay nothing).
type ChannelConfig struct {
	Token      string    `json:"token"`
	Target     string    `json:"target"`
	Host       string    `json:"host,omitempty"` // default: api.telegram.org
	Categories *[]string `json:"categories,omitempty"`
	ParseMode  string    `json:"parse_mode,omitempty"` // HTML (default) or Markdown
	Timeout    string    `json:"timeout,omitempty"`    // default: 10s
	Currency   string    `json:"currency,omitempty"`   // default: ₹
	RatePerSec int       `json:"rate_per_sec,omitempty"`
}

// HistoryConfig is read once at startup.
type HistoryConfig struct {
	Capacity int `json:"capacity,omitempty"` // default: 100
}

// HTTPConfig controls the ingest/query API.
type HTTPConfig struct {
	Enabled         bool   `json:"enabled"`
	Addr            string `json:"addr,omitempty"` // default: "127.0.0.1:8086"
	ReadTimeout     string `json:"read_timeout,omitempty"`
	WriteTimeout    string `json:"write_timeout,omitempty"`
	IdleTimeout     string `json:"idle_timeout,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`

	// Pprof mounts /debug/pprof/ on the same listener. A non-loopback
	// addr requires PprofToken.
	Pprof      bool   `json:"pprof,omitempty"`
	PprofToken string `json:"pprof_token,omitempty"`
}

// CommandsConfig controls the chat command bridge (/recent, /status).
// It reuses channel.token and only answers in channel.target.
type CommandsConfig struct {
	Enabled     bool   `json:"enabled"`
	PollTimeout string `json:"poll_timeout,omitempty"` // default: 10s
}

// DigestConfig controls the scheduled summary event.
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // standard 5-field cron; default "0 18 * * 1-5"
	Timezone string `json:"timezone,omitempty"` // IANA name; default UTC
}

// StorageConfig controls the optional delivery audit trail.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/tradealert.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	Buffer      int    `json:"buffer,omitempty"`       // audit queue size; default 256
}
