package jobsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// HTTPSource polls the backend's pending-jobs endpoint with a bearer token.
type HTTPSource struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPSource builds a backend-backed source.
func NewHTTPSource(baseURL, token string, timeout time.Duration, logger *zap.Logger) (*HTTPSource, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// pendingJobsResponse is the backend's wire shape.
type pendingJobsResponse struct {
	Jobs []struct {
		ID         string   `json:"id"`
		Keywords   []string `json:"keywords"`
		Candidates []struct {
			ID            string `json:"id"`
			CredentialRef string `json:"credential_ref"`
		} `json:"candidates"`
		Coverage   int    `json:"coverage"`
		DateWindow string `json:"date_window"`
		SortBy     string `json:"sort_by"`
	} `json:"jobs"`
}

// PollPendingJobs fetches and decodes the pending job list.
func (s *HTTPSource) PollPendingJobs(ctx context.Context) ([]extractor.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/extraction-jobs/pending", nil)
	if err != nil {
		return nil, fmt.Errorf("build pending-jobs request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll pending jobs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pending jobs: backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded pendingJobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode pending jobs: %w", err)
	}

	jobs := make([]extractor.Job, 0, len(decoded.Jobs))
	for _, j := range decoded.Jobs {
		job := extractor.Job{
			ID:       j.ID,
			Coverage: j.Coverage,
			Constraints: extractor.SearchConstraints{
				Window: extractor.DateWindow(j.DateWindow),
				Sort:   extractor.SortOrder(j.SortBy),
			},
		}
		for _, kw := range j.Keywords {
			job.Keywords = append(job.Keywords, extractor.Keyword(kw))
		}
		for _, c := range j.Candidates {
			job.Candidates = append(job.Candidates, extractor.Candidate{
				ID:            c.ID,
				CredentialRef: c.CredentialRef,
			})
		}
		jobs = append(jobs, job)
	}
	s.logger.Debug("polled backend job source", zap.Int("jobs", len(jobs)))
	return jobs, nil
}
