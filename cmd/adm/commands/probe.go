// Package commands implements the adm subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"examprep/internal/config"
	"examprep/internal/observability"
	"examprep/internal/services"
	contextutils "examprep/internal/utils"
)

// ProbeCommand returns the probe command, which checks upstream reachability
// with the same request the health endpoint uses.
func ProbeCommand(cfg *config.Config, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe the upstream generation service",
		Long:  `Send a minimal completion request to the configured upstream and report whether it responds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()

			fmt.Printf("Upstream: %s (model %s, key %s)\n",
				cfg.Upstream.BaseURL, cfg.Upstream.Model, contextutils.MaskAPIKey(cfg.Upstream.APIKey))

			client := services.NewUpstreamClient(&cfg.Upstream, logger)
			if err := client.Probe(ctx); err != nil {
				fmt.Printf("Probe FAILED (%s): %v\n", contextutils.GetErrorCode(err), err)
				return err
			}

			fmt.Println("Probe OK: upstream is reachable")
			return nil
		},
	}
}
