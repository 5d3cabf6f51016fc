// Package main provides the entry point for the exam prep administration CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"examprep/cmd/adm/commands"
	"examprep/internal/config"
	"examprep/internal/observability"
	"examprep/internal/version"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Quiet defaults for a CLI: no exporters, errors only
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "examprep-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if tp != nil {
			if err := tp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	rootCmd := &cobra.Command{
		Use:     "adm",
		Version: version.String(),
		Short:   "Exam Prep Platform Administration Tool",
		Long: `Exam Prep Platform Administration Tool

CLI for inspecting the exam prep backend: probe the upstream generation
service, print the fallback question pool, and list recent generation
history.`,

		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.ProbeCommand(cfg, logger))
	rootCmd.AddCommand(commands.FallbackCommand())
	rootCmd.AddCommand(commands.HistoryCommand(cfg, logger))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
