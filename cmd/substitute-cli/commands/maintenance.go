package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// MigrateCmd applies pending schema migrations.
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := app.Migrate(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s):\n", len(applied))
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", name)
			}
			return nil
		},
	}
}

// CompleteElapsedCmd runs the completion sweep once.
func CompleteElapsedCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "complete-elapsed",
		Short: "Mark confirmed substitutions whose lesson has ended as completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Matcher.CompleteElapsed(app.Ctx)
			if err != nil {
				return fmt.Errorf("completion sweep failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %d substitution(s) ending before %s\n",
				result.Completed, result.Cutoff.Format("2006-01-02 15:04"))
			return nil
		},
	}
}

// RefreshPerformanceCmd recomputes the reliability cache for all active teachers.
func RefreshPerformanceCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-performance",
		Short: "Recompute cached reliability scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := app.Reliability.RefreshAll(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to refresh reliability: %w", err)
			}
			app.Logger.Debug("reliability refreshed", zap.Int("teachers", count))
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed reliability for %d teacher(s)\n", count)
			return nil
		},
	}
}
