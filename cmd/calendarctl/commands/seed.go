package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"compliance_calendar/internal/infra/seed"
)

func seedCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Create master processes and their milestone templates from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processes, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := seed.Apply(cmd.Context(), rt.backend.Tx, processes); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range processes {
				fmt.Fprintf(out, "Process %d %q (%s) with %d milestone(s)\n", p.ID, p.Name, p.Temporality, len(p.Templates))
				for _, t := range p.Templates {
					fmt.Fprintf(out, "  template %d %q\n", t.ID, t.Name)
				}
			}
			return nil
		},
	}
	return cmd
}
