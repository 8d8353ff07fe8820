package config

import (
	"reflect"
	"strings"

	"tradealert/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging. Secrets (the channel token) are never
// included; only whether one is set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	oc, nc := oldCfg.Channel, newCfg.Channel
	tokenChanged := strings.TrimSpace(oc.Token) != strings.TrimSpace(nc.Token)
	oc.Token, nc.Token = "", ""
	if tokenChanged || !reflect.DeepEqual(oc, nc) {
		changed = append(changed, "channel")
		cats := newCfg.Channel.Notify().EnabledCategories()
		names := make([]string, len(cats))
		for i, c := range cats {
			names[i] = string(c)
		}
		attrs = append(attrs,
			logx.Bool("channel.token_set", strings.TrimSpace(newCfg.Channel.Token) != ""),
			logx.Bool("channel.token_changed", tokenChanged),
			logx.String("channel.target", strings.TrimSpace(newCfg.Channel.Target)),
			logx.Strs("channel.categories", names),
			logx.Int("channel.rate_per_sec", newCfg.Channel.RatePerSec),
		)
	}

	// These sections are read at startup; a change is logged so the operator
	// knows a restart is needed.
	if oldCfg.History != newCfg.History {
		changed = append(changed, "history")
	}
	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
	}
	if oldCfg.Commands != newCfg.Commands {
		changed = append(changed, "commands")
	}
	if oldCfg.Digest != newCfg.Digest {
		changed = append(changed, "digest")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
	}
	return changed, attrs
}

// RestartRequired reports whether any of the changed sections only apply at startup.
func RestartRequired(changed []string) bool {
	for _, c := range changed {
		switch c {
		case "logging", "channel":
		default:
			return true
		}
	}
	return false
}
