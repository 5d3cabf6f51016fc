package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"examprep/internal/config"
	"examprep/internal/database"
	"examprep/internal/observability"
)

// HistoryCommand returns the history command, which lists recent generation
// attempts from the configured database.
func HistoryCommand(cfg *config.Config, logger *observability.Logger) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generation attempts",
		Long:  `List the most recent generation attempts recorded in the history store. Requires DATABASE_URL.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			if cfg.Database.URL == "" {
				return fmt.Errorf("no DATABASE_URL configured, history is not being recorded")
			}

			db, err := database.NewManager(logger).InitDB(cfg.Database)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := db.Close(); cerr != nil {
					logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": cerr.Error()})
				}
			}()

			store, err := database.NewGenerationStore(ctx, db, logger)
			if err != nil {
				return err
			}

			records, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No generation attempts recorded")
				return nil
			}

			fmt.Printf("%-6s %-10s %-16s %-9s %-28s %s\n", "ID", "TASK", "CLIENT", "OK", "ERROR", "AT")
			for _, rec := range records {
				ok := "yes"
				if !rec.Succeeded {
					ok = "no"
				}
				fmt.Printf("%-6d %-10s %-16s %-9s %-28s %s\n",
					rec.ID, rec.TaskKind, rec.ClientIP, ok, rec.ErrorCode, rec.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of rows to list")
	return cmd
}
