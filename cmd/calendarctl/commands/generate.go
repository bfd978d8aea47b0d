package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
)

func generateCmd(rt *runtime) *cobra.Command {
	var (
		clientID  string
		processID int64
		startDate string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one year of a process calendar for a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := calendar.ParseOptionalDate("start", startDate)
			if err != nil {
				return err
			}
			res, err := rt.calendars.GenerateCalendar(cmd.Context(), app.GenerateRequest{ClientID: clientID, ProcessID: processID, StartDate: start})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d period(s), %d occurrence(s) in %d\n", res.Message, res.Count, res.Occurrences, res.Year)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id")
	cmd.Flags().Int64Var(&processID, "process", 0, "master process id")
	cmd.Flags().StringVar(&startDate, "start", "", "first period start, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("process")
	return cmd
}
