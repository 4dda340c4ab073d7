package extractor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/metrics"
)

// Pipeline turns one work unit into persisted extraction results: fetch raw
// posts, classify, extract contacts, dedup, persist. Collaborator failures
// below the post level are absorbed into the accumulator and never abort
// sibling posts.
type Pipeline struct {
	browser   Browser
	processor Processor
	store     ContactStore
	processed ProcessedStore
	retry     *RetryPolicy
	clock     Clock
	logger    *zap.Logger
}

// NewPipeline constructs a Pipeline. processed may be nil when cross-run
// skip tracking is disabled.
func NewPipeline(
	browser Browser,
	processor Processor,
	store ContactStore,
	processed ProcessedStore,
	retry *RetryPolicy,
	clock Clock,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		browser:   browser,
		processor: processor,
		store:     store,
		processed: processed,
		retry:     retry,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes unit against the shared run-scoped dedup cache and
// accumulator. A fetch failure aborts the unit and surfaces the error;
// results persisted before the failure stay persisted. A cancellation
// observed between posts stops the loop and returns the partial results
// with ctx.Err().
func (p *Pipeline) Run(
	ctx context.Context,
	unit WorkUnit,
	dedup *Deduplicator,
	acc *Accumulator,
) ([]ExtractionResult, error) {
	log := p.logger.With(
		zap.String("candidate", unit.Candidate.ID),
		zap.String("keyword", string(unit.Keyword)),
	)

	var posts []RawPost
	err := p.retry.Do(ctx, ReasonFetch, acc, func(ctx context.Context) error {
		var ferr error
		posts, ferr = p.browser.FetchPosts(ctx, unit.Candidate, unit.Keyword, unit.Constraints)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch posts for %q: %w", unit.Keyword, err)
	}

	acc.Seen(len(posts))
	log.Debug("fetched posts", zap.Int("count", len(posts)))

	results := make([]ExtractionResult, 0, len(posts))
	for _, post := range posts {
		if ctx.Err() != nil {
			return results, fmt.Errorf("unit interrupted: %w", ctx.Err())
		}
		if result, ok := p.handlePost(ctx, unit, post, dedup, acc, log); ok {
			results = append(results, result)
		}
	}
	return results, nil
}

// handlePost walks a single post through classification, extraction, dedup,
// and persistence. Returns the result and true only after a successful
// storage write.
func (p *Pipeline) handlePost(
	ctx context.Context,
	unit WorkUnit,
	post RawPost,
	dedup *Deduplicator,
	acc *Accumulator,
	log *zap.Logger,
) (ExtractionResult, bool) {
	if p.wasProcessed(ctx, post.PostID) {
		p.skip(acc, ReasonAlreadyProcessed)
		return ExtractionResult{}, false
	}

	if !p.processor.IsRelevant(post) {
		p.skip(acc, ReasonNotRelevant)
		return ExtractionResult{}, false
	}

	contact := p.processor.ExtractContact(post)
	result := ExtractionResult{
		Contact:     contact,
		Relevant:    true,
		PostID:      post.PostID,
		PostURL:     post.PostURL,
		ProfileURL:  post.ProfileURL,
		Unit:        unit,
		ExtractedAt: p.clock.Now(),
	}
	if contact.Email == "" && contact.Phone == "" {
		p.skip(acc, ReasonNoContact)
		return ExtractionResult{}, false
	}

	key, ok := KeyFor(result)
	if !ok {
		p.skip(acc, ReasonNoContact)
		return ExtractionResult{}, false
	}
	if dedup.Seen(key) {
		p.skip(acc, ReasonDuplicate)
		return ExtractionResult{}, false
	}

	err := p.retry.Do(ctx, ReasonStorage, acc, func(ctx context.Context) error {
		return p.store.Persist(ctx, result)
	})
	if err != nil {
		// A single post's terminal failure never aborts the unit. The key
		// stays unrecorded so a later occurrence can retry the persist.
		acc.Fail(ReasonStorage)
		metrics.ObservePost("failed", ReasonStorage)
		log.Warn("persist failed", zap.String("post_id", post.PostID), zap.Error(err))
		return ExtractionResult{}, false
	}

	dedup.Record(key)
	acc.Extracted()
	metrics.ObservePost("extracted", "")
	p.markProcessed(ctx, post.PostID, log)
	return result, true
}

func (p *Pipeline) skip(acc *Accumulator, reason string) {
	acc.Skip(reason)
	metrics.ObservePost("skipped", reason)
}

// wasProcessed consults the cross-run store; lookup failures read as "not
// processed" so a flaky store can only cause re-work, not data loss.
func (p *Pipeline) wasProcessed(ctx context.Context, postID string) bool {
	if p.processed == nil || postID == "" {
		return false
	}
	seen, err := p.processed.IsProcessed(ctx, postID)
	if err != nil {
		p.logger.Warn("processed-store lookup failed", zap.String("post_id", postID), zap.Error(err))
		return false
	}
	return seen
}

func (p *Pipeline) markProcessed(ctx context.Context, postID string, log *zap.Logger) {
	if p.processed == nil || postID == "" {
		return
	}
	if err := p.processed.MarkProcessed(ctx, postID); err != nil {
		log.Warn("processed-store mark failed", zap.String("post_id", postID), zap.Error(err))
	}
}
