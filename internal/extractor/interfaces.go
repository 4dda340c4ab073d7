package extractor

import (
	"context"
	"time"
)

// Browser drives an authenticated feed session and returns raw posts for a
// keyword search. Implementations classify their failures with TransientFetch
// or FatalFetch.
type Browser interface {
	FetchPosts(ctx context.Context, candidate Candidate, keyword Keyword, constraints SearchConstraints) ([]RawPost, error)
}

// Processor classifies relevance and pulls contact fields out of a post.
type Processor interface {
	IsRelevant(post RawPost) bool
	ExtractContact(post RawPost) Contact
}

// ContactStore persists extraction results. Implementations classify their
// failures with TransientWrite or FatalWrite; cross-run duplicate handling
// (unique keys, upserts) is theirs, not the core's.
type ContactStore interface {
	Persist(ctx context.Context, result ExtractionResult) error
}

// ProcessedStore remembers post IDs handled in previous runs so the pipeline
// can skip them without re-extraction. Lookups and marks are best-effort;
// the pipeline treats errors as "not processed".
type ProcessedStore interface {
	IsProcessed(ctx context.Context, postID string) (bool, error)
	MarkProcessed(ctx context.Context, postID string) error
}

// ActivityReporter receives the end-of-run report. Fire-and-forget from the
// scheduler's perspective: errors are logged, never escalated.
type ActivityReporter interface {
	Report(ctx context.Context, report Report) error
}

// JobSource supplies pending jobs for a tick. Idempotent job identifiers are
// the source's contract to honor.
type JobSource interface {
	PollPendingJobs(ctx context.Context) ([]Job, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper waits out a backoff, honoring cancellation. Injected so retry
// behavior is unit-testable without real delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}
