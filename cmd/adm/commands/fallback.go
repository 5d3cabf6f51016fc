package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"examprep/internal/services"
)

// FallbackCommand returns the fallback command, which prints the
// hand-authored question pool after validating it.
func FallbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fallback",
		Short: "Print the fallback question pool",
		Long:  `Validate and print the hand-authored questions served when the upstream is unavailable.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			pool := services.NewFallbackService().Questions()
			out, err := json.MarshalIndent(pool, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			fmt.Printf("%d questions, all schema-valid\n", len(pool))
			return nil
		},
	}
}
