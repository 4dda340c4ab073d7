package csvfile

import (
	"context"
	"encoding/csv"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func sampleResult(postID, email string) extractor.ExtractionResult {
	return extractor.ExtractionResult{
		Contact: extractor.Contact{
			Email:    email,
			FullName: "Jane Doe",
			Company:  "Acme",
		},
		PostID:  postID,
		PostURL: "https://example.com/" + postID,
		Unit: extractor.WorkUnit{
			RunID:     "run-1",
			Candidate: extractor.Candidate{ID: "cand-a"},
			Keyword:   "golang",
		},
		ExtractedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPersistWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store, err := New(t.TempDir(), clock, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Persist(ctx, sampleResult("p1", "jane@acme.com")))
	require.NoError(t, store.Persist(ctx, sampleResult("p2", "john@globex.com")))

	f, err := os.Open(store.Path())
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, header, rows[0])
	require.Equal(t, "jane@acme.com", rows[1][5])
	require.Equal(t, "john@globex.com", rows[2][5])
}

func TestPersistRollsOverDaily(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)}
	store, err := New(t.TempDir(), clock, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Persist(ctx, sampleResult("p1", "jane@acme.com")))
	firstPath := store.Path()

	clock.set(time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC))
	require.NoError(t, store.Persist(ctx, sampleResult("p2", "john@globex.com")))

	require.NotEqual(t, firstPath, store.Path())
	require.FileExists(t, firstPath)
	require.FileExists(t, store.Path())
}

func TestNewCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir() + "/nested/contacts"
	_, err := New(dir, &fakeClock{now: time.Now()}, nil)
	require.NoError(t, err)
	require.DirExists(t, dir)
}
