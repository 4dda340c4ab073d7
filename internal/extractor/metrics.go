package extractor

import (
	"sync"
	"time"
)

// Reason tags used across skip, retry, and failure counters.
const (
	ReasonNotRelevant      = "not-relevant"
	ReasonNoContact        = "no-contact"
	ReasonDuplicate        = "duplicate"
	ReasonAlreadyProcessed = "already-processed"
	ReasonFetch            = "fetch"
	ReasonStorage          = "storage"
)

// Accumulator collects per-run counters from every pipeline stage. One
// instance is created per scheduler tick and shared, mutably, by all
// concurrently executing units; it never resets.
type Accumulator struct {
	clock Clock

	mu          sync.Mutex
	seen        int64
	extract     int64
	skipped     map[string]int64
	retried     map[string]int64
	failed      map[string]int64
	unitsDone   int64
	unitsFailed map[string]int64
	started     time.Time
	finished    time.Time
}

// NewAccumulator builds an empty accumulator using clock for the run timer.
func NewAccumulator(clock Clock) *Accumulator {
	return &Accumulator{
		clock:       clock,
		skipped:     make(map[string]int64),
		retried:     make(map[string]int64),
		failed:      make(map[string]int64),
		unitsFailed: make(map[string]int64),
	}
}

// Start stamps the run start time.
func (a *Accumulator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = a.clock.Now()
}

// Stop stamps the run end time.
func (a *Accumulator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finished = a.clock.Now()
}

// Seen adds n to the raw-post counter.
func (a *Accumulator) Seen(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen += int64(n)
}

// Extracted counts one successfully persisted result.
func (a *Accumulator) Extracted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.extract++
}

// Skip counts one dropped post under reason.
func (a *Accumulator) Skip(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skipped[reason]++
}

// Retry counts one retry attempt under reason. Retries sit outside the
// seen == extracted + skipped + failed balance.
func (a *Accumulator) Retry(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retried[reason]++
}

// Fail counts one terminally failed post under reason. Posts counted here
// were seen, so the disposition balance stays intact.
func (a *Accumulator) Fail(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed[reason]++
}

// UnitDone counts one completed work unit.
func (a *Accumulator) UnitDone() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unitsDone++
}

// UnitFailed counts a unit that aborted before yielding its posts (fetch
// exhaustion, fatal navigation). Kept apart from the post-level failed map
// because no seen increment ever matched it.
func (a *Accumulator) UnitFailed(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unitsFailed[reason]++
}

// Snapshot is the immutable end-of-run view of the counters. It is finalized
// once at run end and never mutated after the report is emitted.
type Snapshot struct {
	Seen        int64            `json:"seen"`
	Extracted   int64            `json:"extracted"`
	Skipped     map[string]int64 `json:"skipped"`
	Retried     map[string]int64 `json:"retried"`
	Failed      map[string]int64 `json:"failed"`
	UnitsDone   int64            `json:"units_done"`
	UnitsFailed map[string]int64 `json:"units_failed"`
	Started     time.Time        `json:"started"`
	Finished    time.Time        `json:"finished"`
}

// Snapshot returns a consistent point-in-time copy of all counters. The
// single lock guarantees no torn reads even while units are still
// incrementing.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Seen:        a.seen,
		Extracted:   a.extract,
		Skipped:     copyCounts(a.skipped),
		Retried:     copyCounts(a.retried),
		Failed:      copyCounts(a.failed),
		UnitsDone:   a.unitsDone,
		UnitsFailed: copyCounts(a.unitsFailed),
		Started:     a.started,
		Finished:    a.finished,
	}
}

// Duration returns the run wall time, zero until Stop was called.
func (s Snapshot) Duration() time.Duration {
	if s.Started.IsZero() || s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// SkippedTotal sums all skip reasons.
func (s Snapshot) SkippedTotal() int64 { return sumCounts(s.Skipped) }

// FailedTotal sums all failure reasons.
func (s Snapshot) FailedTotal() int64 { return sumCounts(s.Failed) }

// Balanced reports whether seen == extracted + skipped + failed, the
// disposition invariant every run must satisfy.
func (s Snapshot) Balanced() bool {
	return s.Seen == s.Extracted+s.SkippedTotal()+s.FailedTotal()
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func sumCounts(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}
