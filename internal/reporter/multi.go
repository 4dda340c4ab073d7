package reporter

import (
	"context"

	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// Multi fans a report out to every configured reporter. One reporter
// failing never blocks the others; the first error is returned so the
// scheduler can log it.
type Multi struct {
	reporters []extractor.ActivityReporter
	logger    *zap.Logger
}

// NewMulti builds a fan-out reporter.
func NewMulti(logger *zap.Logger, reporters ...extractor.ActivityReporter) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{reporters: reporters, logger: logger}
}

// Report delivers to all reporters.
func (m *Multi) Report(ctx context.Context, report extractor.Report) error {
	var first error
	for _, r := range m.reporters {
		if err := r.Report(ctx, report); err != nil {
			m.logger.Warn("reporter failed", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Log writes the report to the process log only. Default when no backend or
// Telegram is configured.
type Log struct {
	logger *zap.Logger
}

// NewLog builds a log-only reporter.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Report logs the summary.
func (l *Log) Report(_ context.Context, report extractor.Report) error {
	snap := report.Snapshot
	l.logger.Info("run report",
		zap.String("run_id", report.RunID),
		zap.Bool("failed", report.Failed),
		zap.Int64("seen", snap.Seen),
		zap.Int64("extracted", snap.Extracted),
		zap.Int64("skipped", snap.SkippedTotal()),
		zap.Int64("failures", snap.FailedTotal()),
	)
	return nil
}
