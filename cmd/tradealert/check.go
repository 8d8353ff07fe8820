package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradealert/internal/config"
	"tradealert/internal/notify"
	"tradealert/internal/transport/botapi"
)

var checkLive bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and optionally test the channel connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.NewManager(cfgPath).Load()
		if err != nil {
			return err
		}
		ch := cfg.Channel.Notify()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config ok: %s\n", cfgPath)
		fmt.Fprintf(out, "channel enabled: %t\n", ch.Enabled())
		fmt.Fprintf(out, "categories: %s\n", joinCategories(ch.EnabledCategories()))
		if !checkLive {
			return nil
		}

		adapter := notify.NewAdapter(ch, botapi.New(cfg.Channel.Host, nil), nil)
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := adapter.CheckConnection(ctx); err != nil {
			return fmt.Errorf("channel check failed: %w", err)
		}
		fmt.Fprintln(out, "channel connection ok")
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkLive, "live", false, "call the Bot API and send a confirmation message")
}

func joinCategories(cats []notify.Category) string {
	if len(cats) == 0 {
		return "none"
	}
	s := make([]string, len(cats))
	for i, c := range cats {
		s[i] = string(c)
	}
	return strings.Join(s, ", ")
}
