package reporter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

func sampleReport() extractor.Report {
	return extractor.Report{
		RunID: "run-1",
		Snapshot: extractor.Snapshot{
			Seen:      10,
			Extracted: 4,
			Skipped:   map[string]int64{extractor.ReasonDuplicate: 3, extractor.ReasonNotRelevant: 2},
			Failed:    map[string]int64{extractor.ReasonStorage: 1},
			UnitsDone: 5,
			Started:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Finished:  time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC),
		},
	}
}

func activityBackend(t *testing.T, logStatus int, jobTypeCalls *atomic.Int64, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/job_types":
			if jobTypeCalls != nil {
				jobTypeCalls.Add(1)
			}
			_, _ = w.Write([]byte(`[{"id": 3, "name": "other"}, {"id": 7, "name": "linkedin_extraction"}]`))
		case "/api/v1/job_activity_logs":
			require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			if captured != nil {
				require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
			}
			w.WriteHeader(logStatus)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestActivityReportDelivers(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := activityBackend(t, http.StatusCreated, nil, &captured)
	defer srv.Close()

	activity, err := NewActivity(srv.URL, "secret", "linkedin_extraction", time.Second, nil)
	require.NoError(t, err)

	require.NoError(t, activity.Report(context.Background(), sampleReport()))

	require.Equal(t, float64(7), captured["job_type_id"])
	require.Equal(t, "run-1", captured["run_id"])
	require.Equal(t, "completed", captured["status"])
	require.Equal(t, float64(10), captured["posts_seen"])
	require.Equal(t, float64(4), captured["extracted"])
	require.Equal(t, float64(5), captured["skipped"])
	require.Contains(t, captured["notes"], "seen=10 extracted=4")
}

func TestActivityJobTypeCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := activityBackend(t, http.StatusOK, &calls, nil)
	defer srv.Close()

	activity, err := NewActivity(srv.URL, "secret", "linkedin_extraction", time.Second, nil)
	require.NoError(t, err)

	require.NoError(t, activity.Report(context.Background(), sampleReport()))
	require.NoError(t, activity.Report(context.Background(), sampleReport()))
	require.Equal(t, int64(1), calls.Load())
}

func TestActivityFailedRunStatus(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := activityBackend(t, http.StatusOK, nil, &captured)
	defer srv.Close()

	activity, err := NewActivity(srv.URL, "secret", "linkedin_extraction", time.Second, nil)
	require.NoError(t, err)

	report := sampleReport()
	report.Failed = true
	report.Err = "all units failed"
	require.NoError(t, activity.Report(context.Background(), report))
	require.Equal(t, "failed", captured["status"])
	require.Contains(t, captured["notes"], `error="all units failed"`)
}

func TestActivityUnknownJobType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	activity, err := NewActivity(srv.URL, "", "nope", time.Second, nil)
	require.NoError(t, err)

	err = activity.Report(context.Background(), sampleReport())
	require.Error(t, err)
	require.Contains(t, err.Error(), `job type "nope" not found`)
}

func TestActivityBackendRejection(t *testing.T) {
	t.Parallel()

	srv := activityBackend(t, http.StatusInternalServerError, nil, nil)
	defer srv.Close()

	activity, err := NewActivity(srv.URL, "secret", "linkedin_extraction", time.Second, nil)
	require.NoError(t, err)

	err = activity.Report(context.Background(), sampleReport())
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}
