package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradealert/internal/config"
	"tradealert/internal/notify"
	"tradealert/internal/transport/botapi"
)

var sendFlags struct {
	category string
	severity string
	title    string
	message  string
	symbol   string
	price    string
	meta     []string
	dryRun   bool
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Publish one notification through a local bus and deliver it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		draft, err := draftFromFlags()
		if err != nil {
			return err
		}
		cfg, err := config.NewManager(cfgPath).Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		ch := cfg.Channel.Notify()
		if sendFlags.dryRun {
			ev, err := notify.NewBus(nil).Publish(draft)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, notify.NewFormatter(ch.ParseMode, ch.Currency).Format(ev))
			return nil
		}

		var outcome notify.DeliveryReport
		adapter := notify.NewAdapter(ch, botapi.New(cfg.Channel.Host, nil),
			notify.ReporterFunc(func(r notify.DeliveryReport) { outcome = r }))
		bus := notify.NewBus(adapter)
		ev, err := bus.Publish(draft)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), ch.Timeout+5*time.Second)
		defer cancel()
		if err := bus.Close(ctx); err != nil {
			return err
		}

		switch outcome.Outcome {
		case notify.OutcomeSent:
			fmt.Fprintf(out, "sent %s\n", ev.ID)
		case notify.OutcomeFailed:
			return fmt.Errorf("delivery failed: %w", outcome.Err)
		default:
			fmt.Fprintf(out, "recorded %s (not relayed: channel disabled or category %q not enabled)\n", ev.ID, ev.Category)
		}
		return nil
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendFlags.category, "category", "system", "signal|trade|error|training|system")
	f.StringVar(&sendFlags.severity, "severity", "info", "info|success|warning|error")
	f.StringVar(&sendFlags.title, "title", "", "headline")
	f.StringVar(&sendFlags.message, "message", "", "body text")
	f.StringVar(&sendFlags.symbol, "symbol", "", "instrument symbol")
	f.StringVar(&sendFlags.price, "price", "", "price (decimal)")
	f.StringSliceVar(&sendFlags.meta, "meta", nil, "key=value metadata (repeatable)")
	f.BoolVar(&sendFlags.dryRun, "dry-run", false, "print the formatted message instead of sending")
}

func draftFromFlags() (notify.Draft, error) {
	d := notify.Draft{
		Category: notify.Category(sendFlags.category),
		Severity: notify.Severity(sendFlags.severity),
		Title:    sendFlags.title,
		Message:  sendFlags.message,
		Symbol:   sendFlags.symbol,
	}
	if p := strings.TrimSpace(sendFlags.price); p != "" {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return d, fmt.Errorf("--price: %w", err)
		}
		d.Price = &v
	}
	for _, kv := range sendFlags.meta {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return d, fmt.Errorf("--meta %q: want key=value", kv)
		}
		if d.Meta == nil {
			d.Meta = map[string]string{}
		}
		d.Meta[strings.TrimSpace(k)] = v
	}
	return d, nil
}
