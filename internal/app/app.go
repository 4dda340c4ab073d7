// Package app wires configuration into a runnable service: collaborator
// providers are selected here and nowhere else.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/api"
	"github.com/wbl-labs/leadharvest/internal/browser"
	"github.com/wbl-labs/leadharvest/internal/clock/system"
	"github.com/wbl-labs/leadharvest/internal/config"
	"github.com/wbl-labs/leadharvest/internal/extractor"
	"github.com/wbl-labs/leadharvest/internal/jobsource"
	"github.com/wbl-labs/leadharvest/internal/processed"
	"github.com/wbl-labs/leadharvest/internal/processor"
	"github.com/wbl-labs/leadharvest/internal/reporter"
	"github.com/wbl-labs/leadharvest/internal/storage/csvfile"
	"github.com/wbl-labs/leadharvest/internal/storage/memory"
	"github.com/wbl-labs/leadharvest/internal/storage/postgres"
)

// App holds the assembled service graph.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Scheduler *extractor.Scheduler
	Server    *api.Server

	closers []func() error
}

// New builds the full graph from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	clk := system.New()

	store, err := a.buildContactStore(ctx, clk)
	if err != nil {
		return nil, err
	}
	procStore, err := a.buildProcessedStore(ctx, clk)
	if err != nil {
		return nil, err
	}
	scraper, err := browser.New(browser.Config{
		SearchBaseURL:     cfg.Browser.SearchBaseURL,
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		ProfileBaseDir:    cfg.Browser.ProfileBaseDir,
		MaxPosts:          cfg.Browser.MaxPosts,
		ScrollPasses:      cfg.Browser.ScrollPasses,
		Headless:          cfg.Browser.Headless,
	}, logger.Named("browser"))
	if err != nil {
		return nil, fmt.Errorf("build browser: %w", err)
	}

	retry := extractor.NewRetryPolicy(
		cfg.Retry.MaxAttempts,
		cfg.Retry.BaseDelay,
		cfg.Retry.MaxDelay,
		nil,
	)
	pipeline := extractor.NewPipeline(
		scraper,
		processor.New(cfg.Storage.OwnEmails),
		store,
		procStore,
		retry,
		clk,
		logger.Named("pipeline"),
	)

	source, err := a.buildJobSource()
	if err != nil {
		return nil, err
	}
	rep, err := a.buildReporter()
	if err != nil {
		return nil, err
	}

	a.Scheduler = extractor.NewScheduler(source, pipeline, rep, clk, extractor.SchedulerConfig{
		Concurrency:       cfg.Scheduler.Concurrency,
		MaxContactsPerRun: cfg.Scheduler.MaxContactsPerRun,
		ReportTimeout:     cfg.Scheduler.ReportTimeout,
	}, logger.Named("scheduler"))

	a.Server = api.New(api.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, a.Scheduler, logger.Named("api"))

	return a, nil
}

func (a *App) buildContactStore(ctx context.Context, clk extractor.Clock) (extractor.ContactStore, error) {
	if a.Config.DryRun {
		a.Logger.Info("dry run: contacts go to the in-memory store")
		return memory.New(), nil
	}
	switch a.Config.Storage.Provider {
	case "postgres":
		store, err := postgres.New(ctx, a.Config.Storage.Postgres.ConnString, a.Logger.Named("postgres"))
		if err != nil {
			return nil, fmt.Errorf("build postgres store: %w", err)
		}
		return store, nil
	case "csv":
		dir := a.Config.Storage.CSV.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.Config.DataDir, filepath.Base(dir))
		}
		store, err := csvfile.New(dir, clk, a.Logger.Named("csv"))
		if err != nil {
			return nil, fmt.Errorf("build csv store: %w", err)
		}
		return store, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", a.Config.Storage.Provider)
	}
}

func (a *App) buildProcessedStore(ctx context.Context, clk extractor.Clock) (extractor.ProcessedStore, error) {
	switch a.Config.Processed.Provider {
	case "file":
		dir := a.Config.Processed.File.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.Config.DataDir, filepath.Base(dir))
		}
		store, err := processed.NewFileStore(dir, clk, a.Logger.Named("processed"))
		if err != nil {
			return nil, fmt.Errorf("build processed file store: %w", err)
		}
		return store, nil
	case "redis":
		rc := a.Config.Processed.Redis
		store, err := processed.NewRedisStore(ctx, rc.Addr, rc.Password, rc.DB, clk)
		if err != nil {
			return nil, fmt.Errorf("build processed redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown processed provider %q", a.Config.Processed.Provider)
	}
}

func (a *App) buildJobSource() (extractor.JobSource, error) {
	switch a.Config.JobSource.Provider {
	case "static":
		search := a.Config.Search
		job := extractor.Job{
			ID:       "static",
			Coverage: search.Coverage,
			Constraints: extractor.SearchConstraints{
				Window: extractor.DateWindow(search.DateWindow),
				Sort:   extractor.SortOrder(search.SortBy),
			},
		}
		for _, kw := range search.Keywords {
			job.Keywords = append(job.Keywords, extractor.Keyword(kw))
		}
		for _, c := range search.Candidates {
			job.Candidates = append(job.Candidates, extractor.Candidate{
				ID:            c.ID,
				CredentialRef: c.CredentialRef,
			})
		}
		return jobsource.NewStatic(job), nil
	case "backend":
		b := a.Config.Backend
		return jobsource.NewHTTPSource(b.BaseURL, b.Token, b.Timeout, a.Logger.Named("jobsource"))
	default:
		return nil, fmt.Errorf("unknown job source provider %q", a.Config.JobSource.Provider)
	}
}

// buildReporter assembles the fan-out: backend activity log when a backend
// is configured, Telegram when enabled, the process log always.
func (a *App) buildReporter() (extractor.ActivityReporter, error) {
	reporters := []extractor.ActivityReporter{reporter.NewLog(a.Logger.Named("report"))}

	if a.Config.Backend.BaseURL != "" && !a.Config.DryRun {
		b := a.Config.Backend
		activity, err := reporter.NewActivity(b.BaseURL, b.Token, b.JobTypeName, b.Timeout, a.Logger.Named("activity"))
		if err != nil {
			return nil, fmt.Errorf("build activity reporter: %w", err)
		}
		reporters = append(reporters, activity)
	}
	if a.Config.Telegram.Enabled && !a.Config.DryRun {
		t := a.Config.Telegram
		tg, err := reporter.NewTelegram(t.Token, t.ChatID, a.Logger.Named("telegram"))
		if err != nil {
			return nil, fmt.Errorf("build telegram reporter: %w", err)
		}
		reporters = append(reporters, tg)
	}
	if len(reporters) == 1 {
		return reporters[0], nil
	}
	return reporter.NewMulti(a.Logger.Named("report"), reporters...), nil
}

// Close releases pooled collaborators.
func (a *App) Close() error {
	var first error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
