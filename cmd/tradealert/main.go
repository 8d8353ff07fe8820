package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:           "tradealert",
	Short:         "Notification and alert distribution for the trading backend",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Bare invocation runs the service.
	RunE: runService,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./tradealert.yaml",
		"path to config file (yaml or json)")
	rootCmd.AddCommand(runCmd, checkCmd, sendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
