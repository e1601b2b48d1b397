package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AutoAssignCmd assigns the best qualifying substitute to a pending vacancy.
func AutoAssignCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auto-assign <substitution_id>",
		Short: "Auto-assign a substitute to a pending vacancy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Matcher.AutoAssign(app.Ctx, args[0])
			if err != nil {
				return fmt.Errorf("auto-assign failed: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, skipped := range result.Skipped {
				fmt.Fprintf(out, "  skipped %s: %s\n", skipped.TeacherID, skipped.Reason)
			}
			if result.AssignedTeacher == nil {
				fmt.Fprintf(out, "No substitute assigned (strategy %s); vacancy stays pending\n", result.MatchingStrategy)
				for _, option := range result.EmergencyOptions {
					fmt.Fprintf(out, "  emergency option: %s (%s)\n", option.Teacher.FullName, option.Teacher.ID)
				}
				return nil
			}
			fmt.Fprintf(out, "Assigned %s (%s) with confidence %.2f\n",
				result.AssignedTeacher.FullName,
				result.AssignedTeacher.ID,
				result.ConfidenceScore,
			)
			return nil
		},
	}
}
