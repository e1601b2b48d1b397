package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// CapsCmd groups workload cap commands.
func CapsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caps",
		Short: "Manage per-teacher substitution caps",
	}
	cmd.AddCommand(capsSetCmd(app))
	return cmd
}

func capsSetCmd(app *AppContext) *cobra.Command {
	var daily, weekly int
	cmd := &cobra.Command{
		Use:   "set <teacher_id>",
		Short: "Override a teacher's daily and weekly caps (0 restores the default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caps, err := app.Caps.Upsert(app.Ctx, args[0], dto.UpsertCapsRequest{
				MaxSubstitutionsPerDay:  daily,
				MaxSubstitutionsPerWeek: weekly,
			})
			if err != nil {
				return fmt.Errorf("failed to set caps: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Teacher %s: %d per day, %d per week\n", caps.TeacherID, caps.DailyCap, caps.WeeklyCap)
			return nil
		},
	}
	cmd.Flags().IntVar(&daily, "daily", 0, "Maximum substitutions per day")
	cmd.Flags().IntVar(&weekly, "weekly", 0, "Maximum substitutions per week")
	return cmd
}

// AbsenceCmd groups absence commands.
func AbsenceCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "absence",
		Short: "Manage teacher leave",
	}
	cmd.AddCommand(absenceAddCmd(app))
	return cmd
}

func absenceAddCmd(app *AppContext) *cobra.Command {
	var status, recurrence, reason string
	cmd := &cobra.Command{
		Use:   "add <teacher_id> <date>",
		Short: "Record leave starting on date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.CreateAbsenceRequest{Date: args[1], Status: status}
			if recurrence != "" {
				req.Recurrence = &recurrence
			}
			if reason != "" {
				req.Reason = &reason
			}
			absence, err := app.Absences.Record(app.Ctx, args[0], req)
			if err != nil {
				return fmt.Errorf("failed to record absence: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s absence %s for %s on %s\n",
				absence.Status, absence.ID, absence.TeacherID, absence.AbsenceDate.Format("2006-01-02"))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(models.AbsenceStatusApproved), "pending, approved or rejected")
	cmd.Flags().StringVar(&recurrence, "rrule", "", "Recurrence rule, e.g. FREQ=WEEKLY;BYDAY=FR")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason for the leave")
	return cmd
}
