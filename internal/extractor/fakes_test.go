package extractor

import (
	"context"
	"sync"
	"time"
)

// fakeClock hands out a fixed, manually advanced time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

// fakeBrowser serves canned posts keyed by keyword, or scripted errors.
type fakeBrowser struct {
	mu      sync.Mutex
	posts   map[Keyword][]RawPost
	errs    map[Keyword][]error
	fetches int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		posts: make(map[Keyword][]RawPost),
		errs:  make(map[Keyword][]error),
	}
}

func (b *fakeBrowser) FetchPosts(_ context.Context, _ Candidate, keyword Keyword, _ SearchConstraints) ([]RawPost, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if queue := b.errs[keyword]; len(queue) > 0 {
		err := queue[0]
		b.errs[keyword] = queue[1:]
		if err != nil {
			return nil, err
		}
	}
	return b.posts[keyword], nil
}

func (b *fakeBrowser) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

// fakeProcessor marks posts relevant unless their body says otherwise and
// parses "email|phone|name|company" bodies into contacts.
type fakeProcessor struct{}

func (fakeProcessor) IsRelevant(post RawPost) bool {
	return post.Body != "irrelevant"
}

func (fakeProcessor) ExtractContact(post RawPost) Contact {
	return Contact{
		Email:    post.Body,
		FullName: post.AuthorName,
	}
}

// scriptedProcessor gives full control per post ID.
type scriptedProcessor struct {
	relevant map[string]bool
	contacts map[string]Contact
}

func (p *scriptedProcessor) IsRelevant(post RawPost) bool {
	relevant, ok := p.relevant[post.PostID]
	return !ok || relevant
}

func (p *scriptedProcessor) ExtractContact(post RawPost) Contact {
	return p.contacts[post.PostID]
}

// fakeStore captures persisted results and fails on scripted post IDs.
type fakeStore struct {
	mu       sync.Mutex
	persists []ExtractionResult
	failOn   map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{failOn: make(map[string]error)}
}

func (s *fakeStore) Persist(_ context.Context, result ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[result.PostID]; ok {
		return err
	}
	s.persists = append(s.persists, result)
	return nil
}

func (s *fakeStore) stored() []ExtractionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExtractionResult(nil), s.persists...)
}

// fakeProcessedStore is an in-memory processed set.
type fakeProcessedStore struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	marks int
}

func newFakeProcessedStore(ids ...string) *fakeProcessedStore {
	s := &fakeProcessedStore{ids: make(map[string]struct{})}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *fakeProcessedStore) IsProcessed(_ context.Context, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[postID]
	return ok, nil
}

func (s *fakeProcessedStore) MarkProcessed(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[postID] = struct{}{}
	s.marks++
	return nil
}

// fakeReporter captures every report handed to it.
type fakeReporter struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

func (r *fakeReporter) Report(_ context.Context, report Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func (r *fakeReporter) last() (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reports) == 0 {
		return Report{}, false
	}
	return r.reports[len(r.reports)-1], true
}

// fakeJobSource returns a fixed job list or an error.
type fakeJobSource struct {
	jobs []Job
	err  error
}

func (s *fakeJobSource) PollPendingJobs(context.Context) ([]Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.jobs, nil
}
