// Package reporter delivers end-of-run reports to the backend activity log
// and to Telegram. All reporters are fire-and-forget from the scheduler's
// point of view.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// Activity posts one activity-log entry per run to the backend. The numeric
// job-type ID is resolved by name once and cached for the process lifetime.
type Activity struct {
	baseURL     string
	token       string
	jobTypeName string
	client      *http.Client
	logger      *zap.Logger

	mu        sync.Mutex
	jobTypeID int
}

// NewActivity builds an Activity reporter.
func NewActivity(baseURL, token, jobTypeName string, timeout time.Duration, logger *zap.Logger) (*Activity, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if jobTypeName == "" {
		jobTypeName = "linkedin_extraction"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activity{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		jobTypeName: jobTypeName,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

// Report resolves the job-type ID and posts the activity log entry.
func (a *Activity) Report(ctx context.Context, report extractor.Report) error {
	jobTypeID, err := a.resolveJobType(ctx)
	if err != nil {
		return err
	}

	snap := report.Snapshot
	status := "completed"
	if report.Failed {
		status = "failed"
	}
	payload := map[string]any{
		"job_type_id":  jobTypeID,
		"run_id":       report.RunID,
		"status":       status,
		"started_at":   snap.Started.UTC().Format(time.RFC3339),
		"finished_at":  snap.Finished.UTC().Format(time.RFC3339),
		"posts_seen":   snap.Seen,
		"extracted":    snap.Extracted,
		"skipped":      snap.SkippedTotal(),
		"failures":     snap.FailedTotal(),
		"units_done":   snap.UnitsDone,
		"units_failed": unitFailureTotal(snap),
		"notes":        buildNotes(report),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal activity log: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/job_activity_logs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build activity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post activity log: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("activity log: backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	a.logger.Debug("activity log delivered", zap.String("run_id", report.RunID))
	return nil
}

// resolveJobType looks up the numeric ID for the configured job-type name.
func (a *Activity) resolveJobType(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.jobTypeID != 0 {
		return a.jobTypeID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/v1/job_types", nil)
	if err != nil {
		return 0, fmt.Errorf("build job-types request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch job types: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("job types: backend returned %d", resp.StatusCode)
	}

	var types []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&types); err != nil {
		return 0, fmt.Errorf("decode job types: %w", err)
	}
	for _, t := range types {
		if strings.EqualFold(t.Name, a.jobTypeName) {
			a.jobTypeID = t.ID
			return t.ID, nil
		}
	}
	return 0, fmt.Errorf("job type %q not found", a.jobTypeName)
}

func unitFailureTotal(snap extractor.Snapshot) int64 {
	var total int64
	for _, n := range snap.UnitsFailed {
		total += n
	}
	return total
}

// buildNotes renders the human-readable breakdown the backend displays.
func buildNotes(report extractor.Report) string {
	snap := report.Snapshot
	var b strings.Builder
	fmt.Fprintf(&b, "seen=%d extracted=%d", snap.Seen, snap.Extracted)
	for reason, n := range snap.Skipped {
		fmt.Fprintf(&b, " skipped:%s=%d", reason, n)
	}
	for reason, n := range snap.Failed {
		fmt.Fprintf(&b, " failed:%s=%d", reason, n)
	}
	if report.Err != "" {
		fmt.Fprintf(&b, " error=%q", report.Err)
	}
	return b.String()
}
