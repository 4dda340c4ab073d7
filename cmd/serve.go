package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/app"
	"github.com/wbl-labs/leadharvest/internal/extractor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler as a long-lived service with an admin API",
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

		var scheduler *cron.Cron
		if cfg.Server.CronSchedule != "" {
			scheduler = cron.New()
			_, err := scheduler.AddFunc(cfg.Server.CronSchedule, func() {
				tickLogger := logger.Named("cron")
				report, err := application.Scheduler.Tick(ctx)
				switch {
				case errors.Is(err, extractor.ErrTickInFlight):
					tickLogger.Warn("skipping scheduled tick, previous still running")
				case err != nil:
					tickLogger.Error("scheduled tick failed", zap.Error(err))
				default:
					tickLogger.Info("scheduled tick finished",
						zap.String("run_id", report.RunID),
						zap.Int64("extracted", report.Snapshot.Extracted),
					)
				}
			})
			if err != nil {
				return err
			}
			scheduler.Start()
			logger.Info("cron started", zap.String("schedule", cfg.Server.CronSchedule))
		}

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- application.Server.Start()
		}()

		select {
		case err := <-serverErr:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		if scheduler != nil {
			<-scheduler.Stop().Done()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return application.Server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
