package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
)

func disableCmd(rt *runtime) *cobra.Command {
	var (
		templateID int64
		from       string
		clientID   string
	)
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Deactivate a milestone from a date on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := calendar.ParseDate("from", from)
			if err != nil {
				return err
			}
			summary, err := rt.calendars.DisableFromDate(cmd.Context(), templateID, fromDate, clientID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Disabled %d occurrence(s)\n", summary.OccurrencesDisabled)
			for _, p := range summary.PeriodsDisabled {
				fmt.Fprintf(out, "  period %d of client %s deactivated\n", p.ID, p.ClientID)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&templateID, "template", 0, "milestone template id")
	cmd.Flags().StringVar(&from, "from", "", "first deadline disabled, YYYY-MM-DD")
	cmd.Flags().StringVar(&clientID, "client", "", "limit to one client")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func syncCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [period-id]",
		Short: "Recompute a period's active flag from its occurrences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("period-id", args[0])
			if err != nil {
				return err
			}
			summary, err := rt.calendars.SynchronizePeriod(cmd.Context(), id)
			if err != nil {
				return err
			}
			printSync(cmd, summary)
			return nil
		},
	}
	return cmd
}

func setActiveCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-active [occurrence-id] [true|false]",
		Short: "Enable or disable one occurrence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("occurrence-id", args[0])
			if err != nil {
				return err
			}
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return calendar.NewValidationError("active", fmt.Sprintf("%q is not a boolean", args[1]))
			}
			summary, err := rt.calendars.SetOccurrenceActive(cmd.Context(), id, active)
			if err != nil {
				return err
			}
			printSync(cmd, summary)
			return nil
		},
	}
	return cmd
}

func printSync(cmd *cobra.Command, s app.SyncSummary) {
	state := "inactive"
	if s.Current {
		state = "active"
	}
	change := "unchanged"
	if s.Changed {
		change = "changed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Period %d is %s (%s, %d active occurrence(s))\n", s.PeriodID, state, change, s.ActiveCount)
}

func parseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, calendar.NewValidationError(field, fmt.Sprintf("%q is not a positive integer", s))
	}
	return id, nil
}
