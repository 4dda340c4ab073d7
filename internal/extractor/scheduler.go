package extractor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wbl-labs/leadharvest/internal/metrics"
)

// SchedulerConfig tunes a Scheduler.
type SchedulerConfig struct {
	// Concurrency caps how many candidates run browser sessions at once.
	// Units belonging to one candidate always run sequentially.
	Concurrency int
	// MaxContactsPerRun stops dispatching new units once the run has
	// extracted this many contacts. Zero means no cap.
	MaxContactsPerRun int
	// StartCursor seeds the keyword assigner so a restarted process resumes
	// rotation where the previous one stopped.
	StartCursor uint64
	// ReportTimeout bounds the end-of-run report call.
	ReportTimeout time.Duration
}

// Scheduler polls the job source, expands jobs into work units, drives the
// pipeline over them, and reports one reconciled snapshot per tick.
type Scheduler struct {
	source   JobSource
	pipeline *Pipeline
	reporter ActivityReporter
	clock    Clock
	logger   *zap.Logger
	cfg      SchedulerConfig

	runMu sync.Mutex // one tick in flight at a time

	mu         sync.Mutex
	state      State
	cursor     uint64
	lastReport *Report
}

// NewScheduler constructs a Scheduler.
func NewScheduler(
	source JobSource,
	pipeline *Pipeline,
	reporter ActivityReporter,
	clock Clock,
	cfg SchedulerConfig,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		source:   source,
		pipeline: pipeline,
		reporter: reporter,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
		state:    StateIdle,
		cursor:   cfg.StartCursor,
	}
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor returns the keyword rotation position after the last tick, for
// persistence by the scheduler-state collaborator.
func (s *Scheduler) Cursor() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// LastReport returns the most recently emitted report.
func (s *Scheduler) LastReport() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return Report{}, false
	}
	return *s.lastReport, true
}

// ErrTickInFlight is returned when Tick is called while a run is executing.
var ErrTickInFlight = errors.New("a tick is already in flight")

// Tick runs one full scheduling cycle. The end-of-run report is always
// emitted, even on partial or fatal failure. Errors at the scheduler
// boundary (job source unreachable, malformed job) are returned to the
// caller; everything below the unit boundary is absorbed into the snapshot.
// Cancellation short-circuits dispatch without counting as a failure.
func (s *Scheduler) Tick(ctx context.Context) (report Report, err error) {
	if !s.runMu.TryLock() {
		return Report{}, ErrTickInFlight
	}
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))
	acc := NewAccumulator(s.clock)
	acc.Start()
	dedup := NewDeduplicator()
	history := newRunHistory()

	report = Report{RunID: runID}
	var tickErr error
	defer func() {
		s.finalize(ctx, &report, acc, history, tickErr, log)
	}()

	s.setState(StatePolling)
	jobs, err := s.source.PollPendingJobs(ctx)
	if err != nil {
		tickErr = fmt.Errorf("poll pending jobs: %w", err)
		return report, tickErr
	}
	log.Info("polled job source", zap.Int("jobs", len(jobs)))

	s.setState(StateDispatching)
	plan, err := s.expand(jobs)
	if err != nil {
		tickErr = err
		return report, tickErr
	}

	s.setState(StateExecuting)
	s.execute(ctx, runID, plan, dedup, acc, history, log)

	if cerr := ctx.Err(); cerr != nil {
		log.Warn("run canceled, reporting partial snapshot")
	}
	return report, nil
}

// candidatePlan holds the sequential unit list for one candidate.
type candidatePlan struct {
	candidate Candidate
	units     []WorkUnit
}

// expand turns the tick's jobs into per-candidate unit lists, rotating
// keywords across the whole candidate pool via the shared cursor.
func (s *Scheduler) expand(jobs []Job) ([]candidatePlan, error) {
	plans := make([]candidatePlan, 0)
	byID := make(map[string]int)

	for _, job := range jobs {
		if len(job.Candidates) == 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("job %s has no candidates", job.ID)}
		}
		coverage := job.Coverage
		if coverage <= 0 {
			coverage = len(job.Keywords)
		}
		assigner, err := NewKeywordAssigner(job.Keywords, s.Cursor())
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.ID, err)
		}
		for round := 0; round < coverage; round++ {
			for _, cand := range job.Candidates {
				unit := WorkUnit{
					Candidate:   cand,
					Keyword:     assigner.Next(cand),
					Constraints: job.Constraints,
				}
				idx, ok := byID[cand.ID]
				if !ok {
					idx = len(plans)
					byID[cand.ID] = idx
					plans = append(plans, candidatePlan{candidate: cand})
				}
				plans[idx].units = append(plans[idx].units, unit)
			}
		}
		s.setCursor(assigner.Cursor())
	}
	return plans, nil
}

// execute fans the plans out across candidates, bounded by the concurrency
// limit. Unit failures are absorbed; cancellation stops dispatch at the next
// unit boundary.
func (s *Scheduler) execute(
	ctx context.Context,
	runID string,
	plans []candidatePlan,
	dedup *Deduplicator,
	acc *Accumulator,
	history *runHistory,
	log *zap.Logger,
) {
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)

	for _, plan := range plans {
		g.Go(func() error {
			metrics.IncActiveCandidates()
			defer metrics.DecActiveCandidates()
			s.runCandidate(ctx, runID, plan, dedup, acc, history, log)
			return nil
		})
	}
	// Goroutines only return nil; Wait is pure synchronization here.
	_ = g.Wait()
}

func (s *Scheduler) runCandidate(
	ctx context.Context,
	runID string,
	plan candidatePlan,
	dedup *Deduplicator,
	acc *Accumulator,
	history *runHistory,
	log *zap.Logger,
) {
	clog := log.With(zap.String("candidate", plan.candidate.ID))
	for _, unit := range plan.units {
		if ctx.Err() != nil {
			clog.Info("cancellation observed, dropping remaining units")
			return
		}
		if s.capReached(acc) {
			clog.Info("contact cap reached, dropping remaining units",
				zap.Int("cap", s.cfg.MaxContactsPerRun))
			metrics.ObserveUnit("capped")
			return
		}

		unit.RunID = runID
		results, err := s.pipeline.Run(ctx, unit, dedup, acc)
		outcome := UnitOutcome{
			Keyword:   unit.Keyword,
			Extracted: len(results),
			DoneAt:    s.clock.Now(),
		}
		switch {
		case err == nil:
			acc.UnitDone()
			metrics.ObserveUnit("ok")
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			// Control signal, not a failure; partial results already counted.
			history.add(plan.candidate.ID, outcome)
			return
		default:
			outcome.Err = err.Error()
			acc.UnitFailed(ReasonFetch)
			metrics.ObserveUnit("failed")
			clog.Error("unit failed", zap.String("keyword", string(unit.Keyword)), zap.Error(err))
		}
		history.add(plan.candidate.ID, outcome)
	}
}

func (s *Scheduler) capReached(acc *Accumulator) bool {
	if s.cfg.MaxContactsPerRun <= 0 {
		return false
	}
	return acc.Snapshot().Extracted >= int64(s.cfg.MaxContactsPerRun)
}

// finalize stamps the snapshot, emits the report, and returns to Idle. It
// runs on every exit path, so a summary goes out even when polling or
// dispatch aborted the tick.
func (s *Scheduler) finalize(
	ctx context.Context,
	report *Report,
	acc *Accumulator,
	history *runHistory,
	tickErr error,
	log *zap.Logger,
) {
	s.setState(StateReporting)
	acc.Stop()
	snapshot := acc.Snapshot()

	report.Snapshot = snapshot
	report.History = history.view()
	if tickErr != nil {
		report.Failed = true
		report.Err = tickErr.Error()
	} else if len(snapshot.UnitsFailed) > 0 && snapshot.UnitsDone == 0 {
		// Every unit died before producing posts: the browser side is gone.
		report.Failed = true
		report.Err = "all units failed"
	}

	status := "ok"
	if report.Failed {
		status = "failed"
	}
	metrics.ObserveRun(status, snapshot.Duration())
	logSummary(log, *report)

	// Report on a detached context so a canceled run still gets summarized.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ReportTimeout)
	defer cancel()
	if err := s.reporter.Report(rctx, *report); err != nil {
		log.Warn("activity report failed", zap.Error(err))
	}

	s.mu.Lock()
	r := *report
	s.lastReport = &r
	s.state = StateIdle
	s.mu.Unlock()
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Scheduler) setCursor(cursor uint64) {
	s.mu.Lock()
	s.cursor = cursor
	s.mu.Unlock()
}

// logSummary prints the end-of-run disposition breakdown, mirroring what
// the activity reporter sends.
func logSummary(log *zap.Logger, report Report) {
	snap := report.Snapshot
	log.Info("run summary",
		zap.Bool("failed", report.Failed),
		zap.Duration("duration", snap.Duration()),
		zap.Int64("seen", snap.Seen),
		zap.Int64("extracted", snap.Extracted),
		zap.Int64("skipped", snap.SkippedTotal()),
		zap.Int64("post_failures", snap.FailedTotal()),
		zap.Int64("units_done", snap.UnitsDone),
		zap.Any("skip_reasons", snap.Skipped),
		zap.Any("failure_reasons", snap.Failed),
		zap.Any("unit_failures", snap.UnitsFailed),
	)
}

// runHistory records unit outcomes per candidate for the report.
type runHistory struct {
	mu   sync.Mutex
	data map[string][]UnitOutcome
}

func newRunHistory() *runHistory {
	return &runHistory{data: make(map[string][]UnitOutcome)}
}

func (h *runHistory) add(candidateID string, outcome UnitOutcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data[candidateID] = append(h.data[candidateID], outcome)
}

func (h *runHistory) view() map[string][]UnitOutcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string][]UnitOutcome, len(h.data))
	for k, v := range h.data {
		out[k] = append([]UnitOutcome(nil), v...)
	}
	return out
}
