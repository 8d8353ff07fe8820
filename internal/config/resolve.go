package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"tradealert/internal/notify"
	"tradealert/internal/storage"
	"tradealert/pkg/logx"
)

// EnvChannelToken overrides channel.token when set and non-empty.
const EnvChannelToken = "TRADEALERT_CHANNEL_TOKEN"

const (
	DefaultHTTPAddr       = "127.0.0.1:8086"
	DefaultDigestSchedule = "0 18 * * 1-5"
	DefaultPollTimeout    = 10 * time.Second
)

// applyEnv folds environment overrides into cfg.
func applyEnv(cfg *Config) {
	if tok := strings.TrimSpace(os.Getenv(EnvChannelToken)); tok != "" {
		cfg.Channel.Token = tok
	}
}

// Validate reports every problem it finds, joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" {
		if _, ok := logx.LookupLevel(lvl); !ok {
			errs = append(errs, fmt.Errorf("logging.level: unknown level %q", lvl))
		}
	}

	ch := cfg.Channel
	if ch.Categories != nil {
		for _, c := range *ch.Categories {
			if _, ok := notify.ParseCategory(c); !ok {
				errs = append(errs, fmt.Errorf("channel.categories: unknown category %q", c))
			}
		}
	}
	if _, err := parseMode(ch.ParseMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("channel.timeout", ch.Timeout); err != nil {
		errs = append(errs, err)
	}
	if ch.RatePerSec < 0 {
		errs = append(errs, errors.New("channel.rate_per_sec: must be >= 0"))
	}
	if cfg.History.Capacity < 0 {
		errs = append(errs, errors.New("history.capacity: must be >= 0"))
	}

	for path, raw := range map[string]string{
		"http.read_timeout":     cfg.HTTP.ReadTimeout,
		"http.write_timeout":    cfg.HTTP.WriteTimeout,
		"http.idle_timeout":     cfg.HTTP.IdleTimeout,
		"http.shutdown_timeout": cfg.HTTP.ShutdownTimeout,
		"commands.poll_timeout": cfg.Commands.PollTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	if h := cfg.HTTP; h.Enabled && h.Pprof && strings.TrimSpace(h.PprofToken) == "" && !isLoopbackAddr(h.Addr) {
		errs = append(errs, fmt.Errorf("http.pprof: non-loopback addr %q requires http.pprof_token", h.Addr))
	}

	if cfg.Digest.Enabled {
		if _, err := cfg.Digest.ParseSchedule(); err != nil {
			errs = append(errs, err)
		}
	}

	if st := cfg.Storage; st != nil {
		if !storage.ValidDriver(st.Driver) {
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func parseMode(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "html":
		return notify.ParseModeHTML, nil
	case "markdown":
		return notify.ParseModeMarkdown, nil
	default:
		return "", fmt.Errorf("channel.parse_mode: unsupported %q (want HTML or Markdown)", raw)
	}
}

// Notify converts the channel section to the adapter's config.
// It assumes cfg passed Validate; invalid values fall back to defaults.
func (c ChannelConfig) Notify() notify.ChannelConfig {
	out := notify.ChannelConfig{
		Token:      strings.TrimSpace(c.Token),
		Target:     strings.TrimSpace(c.Target),
		Currency:   c.Currency,
		RatePerSec: c.RatePerSec,
	}
	if c.Categories == nil {
		out.Categories = notify.CategorySet(notify.Categories...)
	} else {
		out.Categories = map[notify.Category]bool{}
		for _, raw := range *c.Categories {
			if cat, ok := notify.ParseCategory(raw); ok {
				out.Categories[cat] = true
			}
		}
	}
	out.ParseMode, _ = parseMode(c.ParseMode)
	out.Timeout, _ = ParseDurationOrDefault("channel.timeout", c.Timeout, notify.DefaultDeliveryTimeout)
	return out
}

// Logx converts the logging section to the log service config.
func (l LoggingConfig) Logx() logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
	}
}

// Storage converts the storage section; a nil section disables storage.
func (c *Config) StorageOptions() storage.Config {
	if c == nil || c.Storage == nil {
		return storage.Config{}
	}
	bt, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return storage.Config{Driver: c.Storage.Driver, Path: c.Storage.Path, BusyTimeout: bt}
}

// Location returns the digest timezone, UTC when unset.
func (d DigestConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(d.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("digest.timezone: %w", err)
	}
	return loc, nil
}

// ParseSchedule parses the digest cron spec in the configured timezone.
func (d DigestConfig) ParseSchedule() (cron.Schedule, error) {
	spec := strings.TrimSpace(d.Schedule)
	if spec == "" {
		spec = DefaultDigestSchedule
	}
	loc, err := d.Location()
	if err != nil {
		return nil, err
	}
	sched, err := cron.ParseStandard("CRON_TZ=" + loc.String() + " " + spec)
	if err != nil {
		return nil, fmt.Errorf("digest.schedule: %w", err)
	}
	return sched, nil
}

// isLoopbackAddr treats an empty addr as the loopback default.
func isLoopbackAddr(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return true
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
