// Package jobsource supplies pending extraction jobs to the scheduler,
// either from static configuration or from the backend API.
package jobsource

import (
	"context"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// Static returns the same configured job on every poll. Used when the
// deployment has no backend and keywords live in the config file.
type Static struct {
	job extractor.Job
}

// NewStatic builds a Static source.
func NewStatic(job extractor.Job) *Static {
	if job.ID == "" {
		job.ID = "static"
	}
	return &Static{job: job}
}

// PollPendingJobs returns the configured job.
func (s *Static) PollPendingJobs(context.Context) ([]extractor.Job, error) {
	return []extractor.Job{s.job}, nil
}
