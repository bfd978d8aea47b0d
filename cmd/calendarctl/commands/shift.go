package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
)

func shiftCmd(rt *runtime) *cobra.Command {
	var (
		templateID int64
		clientIDs  []string
		newDate    string
		newTime    string
		from       string
		until      string
	)
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Move the deadline day of a milestone for several clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.ShiftRequest{TemplateID: templateID, ClientIDs: clientIDs}
			var err error
			if req.NewDate, err = calendar.ParseDate("new-date", newDate); err != nil {
				return err
			}
			if req.NewTime, err = calendar.ParseOptionalTimeOfDay(newTime); err != nil {
				return err
			}
			if req.EffectiveFrom, err = calendar.ParseDate("from", from); err != nil {
				return err
			}
			if req.EffectiveUntil, err = calendar.ParseOptionalDate("until", until); err != nil {
				return err
			}

			n, err := rt.calendars.ShiftDatesBulk(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Shifted %d occurrence(s)\n", n)
			return nil
		},
	}
	cmd.Flags().Int64Var(&templateID, "template", 0, "milestone template id")
	cmd.Flags().StringSliceVar(&clientIDs, "clients", nil, "client ids, comma separated")
	cmd.Flags().StringVar(&newDate, "new-date", "", "date whose day-of-month becomes the new deadline day, YYYY-MM-DD")
	cmd.Flags().StringVar(&newTime, "new-time", "", "new deadline time, HH:MM[:SS]")
	cmd.Flags().StringVar(&from, "from", "", "first deadline affected, YYYY-MM-DD")
	cmd.Flags().StringVar(&until, "until", "", "last deadline affected, YYYY-MM-DD (default December 31)")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("new-date")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
