package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one extraction run and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close() //nolint:errcheck

		report, err := application.Scheduler.Tick(ctx)
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		if report.Failed {
			return fmt.Errorf("run %s failed: %s", report.RunID, report.Err)
		}
		logger.Info("run finished",
			zap.String("run_id", report.RunID),
			zap.Int64("extracted", report.Snapshot.Extracted),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
