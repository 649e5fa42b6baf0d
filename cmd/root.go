package cmd

import (
	"fmt"
	"os"

	"github.com/MisterSynergy/rfc-protect/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "rfc-protect",
	Short: "Highly-used item protection manager",
	Long: `rfc-protect reconciles the semi-protection of highly used wiki items
against the protection policy: items referenced by enough pages gain
indefinite semi-protection, items that durably fall below the threshold
lose it again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting.
		// Console format matches user expectations for a CLI tool; the
		// "debug" level configuration gives ISO8601 timestamps.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
