package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"compliance_calendar/internal/infra/config"
)

func migrateCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the calendar tables in Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The schema is applied while the root opens storage.
			if rt.cfg.StorageDriver != config.StorageDriverPostgres {
				return fmt.Errorf("migrate needs the %s storage driver, got %s", config.StorageDriverPostgres, rt.cfg.StorageDriver)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied")
			return nil
		},
	}
	return cmd
}
