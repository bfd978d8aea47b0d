package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
)

func fulfillCmd(rt *runtime) *cobra.Command {
	var (
		ids         []int64
		date        string
		at          string
		author      string
		observation string
	)
	cmd := &cobra.Command{
		Use:   "fulfill",
		Short: "Record the fulfillment of occurrences and finalize them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := app.FulfillRequest{OccurrenceIDs: ids, Author: author, Observation: observation}
			var err error
			if req.Date, err = calendar.ParseDate("date", date); err != nil {
				return err
			}
			if req.Time, err = calendar.ParseOptionalTimeOfDay(at); err != nil {
				return err
			}

			n, err := rt.fulfillments.FulfillBulk(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fulfilled %d of %d occurrence(s)\n", n, len(ids))
			return nil
		},
	}
	cmd.Flags().Int64SliceVar(&ids, "occurrences", nil, "occurrence ids, comma separated")
	cmd.Flags().StringVar(&date, "date", "", "fulfillment date, YYYY-MM-DD")
	cmd.Flags().StringVar(&at, "time", "", "fulfillment time, HH:MM[:SS]")
	cmd.Flags().StringVar(&author, "author", "", "who fulfilled it")
	cmd.Flags().StringVar(&observation, "observation", "", "free text note")
	_ = cmd.MarkFlagRequired("occurrences")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
