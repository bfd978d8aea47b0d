package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/domain/compliance"
)

func statusCmd(rt *runtime) *cobra.Command {
	var (
		f        app.ReportFilter
		from     string
		to       string
		asOf     string
		statuses []string
		asCSV    bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List active occurrences with their compliance status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if f.DeadlineFrom, err = calendar.ParseOptionalDate("from", from); err != nil {
				return err
			}
			if f.DeadlineTo, err = calendar.ParseOptionalDate("to", to); err != nil {
				return err
			}
			f.Statuses = f.Statuses[:0]
			for _, s := range statuses {
				st := compliance.Status(s)
				if !compliance.Known(st) {
					return calendar.NewValidationError("status", fmt.Sprintf("unknown status %q", s))
				}
				f.Statuses = append(f.Statuses, st)
			}
			at := rt.now()
			if asOf != "" {
				if at, err = calendar.ParseDate("as-of", asOf); err != nil {
					return err
				}
			}

			rows, err := rt.status.Report(cmd.Context(), f, at)
			if err != nil {
				return err
			}
			if asCSV {
				return app.WriteCSV(cmd.OutOrStdout(), rows)
			}
			return printStatusTable(cmd, rows, at)
		},
	}
	cmd.Flags().StringVar(&f.ClientID, "client", "", "only this client")
	cmd.Flags().Int64Var(&f.TemplateID, "template", 0, "only this milestone template")
	cmd.Flags().StringVar(&from, "from", "", "earliest deadline, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "latest deadline, YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "only these statuses, comma separated")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate statuses on this date, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func printStatusTable(cmd *cobra.Command, rows []app.ReportRow, asOf time.Time) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLIENT\tPROCESS\tMILESTONE\tDEADLINE\tSTATE\tSTATUS")
	for _, r := range rows {
		deadline := "-"
		if r.Deadline != nil {
			deadline = r.Deadline.Format(calendar.DateLayout)
			if r.DeadlineTime != nil {
				deadline += " " + r.DeadlineTime.String()
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.OccurrenceID, r.ClientID, r.ProcessName, r.TemplateName, deadline, r.BaseState, r.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d occurrence(s) as of %s\n", len(rows), asOf.Format(calendar.DateLayout))
	return nil
}
