package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/infra/config"
	"compliance_calendar/internal/infra/logger"
	"compliance_calendar/internal/infra/seed"
	"compliance_calendar/internal/infra/storage"
)

// runtime is what every subcommand works against once the root has wired it.
type runtime struct {
	storageDriver string
	seedPath      string
	now           func() time.Time

	cfg          *config.AppConfig
	backend      *storage.Backend
	calendars    *app.CalendarService
	fulfillments *app.FulfillmentService
	status       *app.StatusService
}

func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the calendarctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(time.Now)
}

func newRootCmd(now func() time.Time) *cobra.Command {
	rt := &runtime{now: now}

	root := &cobra.Command{
		Use:          "calendarctl",
		Short:        "Operate client compliance calendars",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if rt.backend == nil {
				return nil
			}
			return rt.backend.Close()
		},
	}

	root.PersistentFlags().StringVar(&rt.storageDriver, "storage", "", "storage driver, postgres or memory (default $STORAGE_DRIVER)")
	root.PersistentFlags().StringVar(&rt.seedPath, "seed", "", "YAML file of master processes to load before the command runs")

	root.AddCommand(
		migrateCmd(rt),
		seedCmd(rt),
		generateCmd(rt),
		shiftCmd(rt),
		disableCmd(rt),
		syncCmd(rt),
		setActiveCmd(rt),
		fulfillCmd(rt),
		statusCmd(rt),
	)
	return root
}

func (rt *runtime) open(cmd *cobra.Command) error {
	if rt.storageDriver != "" {
		if err := os.Setenv("STORAGE_DRIVER", rt.storageDriver); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	logger.Init(cfg, cmd.ErrOrStderr())
	rt.cfg = cfg

	ctx := cmd.Context()
	backend, err := storage.Open(ctx, cfg, cmd.Name() == "migrate", logger.For("storage"))
	if err != nil {
		return err
	}
	rt.backend = backend

	rt.calendars = app.NewCalendarService(backend.Tx, logger.For("calendar_service"), rt.now)
	rt.fulfillments = app.NewFulfillmentService(backend.Tx, logger.For("fulfillment_service"), rt.now)
	rt.status = app.NewStatusService(backend.Tx, logger.For("status_service"))

	if rt.seedPath != "" {
		processes, err := seed.LoadFile(rt.seedPath)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, backend.Tx, processes); err != nil {
			return err
		}
		logger.For("seed").WithFields(logrus.Fields{"file": rt.seedPath, "processes": len(processes)}).Info("Seed applied")
	}
	return nil
}
