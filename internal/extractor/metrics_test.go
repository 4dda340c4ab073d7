package extractor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccumulatorBalance(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	acc := NewAccumulator(clock)
	acc.Start()

	acc.Seen(5)
	acc.Extracted()
	acc.Extracted()
	acc.Skip(ReasonDuplicate)
	acc.Skip(ReasonNotRelevant)
	acc.Fail(ReasonStorage)
	acc.Retry(ReasonFetch)

	clock.Advance(3 * time.Second)
	acc.Stop()

	snap := acc.Snapshot()
	require.True(t, snap.Balanced())
	require.Equal(t, int64(5), snap.Seen)
	require.Equal(t, int64(2), snap.Extracted)
	require.Equal(t, int64(1), snap.Skipped[ReasonDuplicate])
	require.Equal(t, int64(1), snap.Skipped[ReasonNotRelevant])
	require.Equal(t, int64(1), snap.Failed[ReasonStorage])
	require.Equal(t, int64(1), snap.Retried[ReasonFetch])
	require.Equal(t, 3*time.Second, snap.Duration())
}

func TestAccumulatorRetriesOutsideBalance(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator(newFakeClock())
	acc.Seen(1)
	acc.Retry(ReasonFetch)
	acc.Retry(ReasonFetch)
	acc.Extracted()

	snap := acc.Snapshot()
	require.True(t, snap.Balanced())
	require.Equal(t, int64(2), snap.Retried[ReasonFetch])
}

func TestAccumulatorUnitCountersSeparate(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator(newFakeClock())
	acc.UnitDone()
	acc.UnitFailed(ReasonFetch)

	snap := acc.Snapshot()
	require.Equal(t, int64(1), snap.UnitsDone)
	require.Equal(t, int64(1), snap.UnitsFailed[ReasonFetch])
	// Unit failures never leak into the post-level disposition balance.
	require.True(t, snap.Balanced())
}

func TestAccumulatorConcurrentUpdates(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator(newFakeClock())
	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				acc.Seen(1)
				switch j % 3 {
				case 0:
					acc.Extracted()
				case 1:
					acc.Skip(ReasonDuplicate)
				default:
					acc.Fail(ReasonStorage)
				}
			}
		}()
	}
	wg.Wait()

	snap := acc.Snapshot()
	require.Equal(t, int64(workers*perWorker), snap.Seen)
	require.True(t, snap.Balanced())
}

func TestSnapshotIsDetached(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator(newFakeClock())
	acc.Seen(1)
	acc.Skip(ReasonDuplicate)

	snap := acc.Snapshot()
	acc.Skip(ReasonDuplicate)
	require.Equal(t, int64(1), snap.Skipped[ReasonDuplicate])
}
