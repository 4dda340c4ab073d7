// Package extractor defines the core types and orchestration logic for the
// lead extraction service: keyword assignment, the per-unit pipeline, run
// scoped deduplication, metrics accumulation, and the scheduler.
package extractor

import (
	"time"
)

// Keyword is a single search term or boolean query handed to a work unit.
// The keyword set is loaded once per scheduling cycle and never mutated
// during that cycle.
type Keyword string

// Candidate identifies a worker account. The credential reference is an
// opaque handle resolved by the browser collaborator; the core never sees
// passwords or cookies.
type Candidate struct {
	ID            string `json:"id"`
	CredentialRef string `json:"credential_ref"`
}

// DateWindow restricts a feed search to recent posts.
type DateWindow string

// Date window values understood by the browser collaborator.
const (
	WindowPastDay   DateWindow = "past-24h"
	WindowPastWeek  DateWindow = "past-week"
	WindowPastMonth DateWindow = "past-month"
)

// SortOrder controls feed search result ordering.
type SortOrder string

// Sort order values understood by the browser collaborator.
const (
	SortByDate      SortOrder = "date_posted"
	SortByRelevance SortOrder = "relevance"
)

// SearchConstraints narrow a single feed search.
type SearchConstraints struct {
	Window DateWindow `json:"window"`
	Sort   SortOrder  `json:"sort"`
}

// WorkUnit is one (candidate, keyword, constraints) extraction task. Units
// are created by the scheduler per tick and consumed exactly once by the
// pipeline.
type WorkUnit struct {
	RunID       string            `json:"run_id"`
	Candidate   Candidate         `json:"candidate"`
	Keyword     Keyword           `json:"keyword"`
	Constraints SearchConstraints `json:"constraints"`
}

// RawPost is an unvalidated scraped record straight from the browser
// collaborator. It is ephemeral and never persisted directly.
type RawPost struct {
	PostID     string
	AuthorName string
	ProfileURL string
	Body       string
	PostURL    string
	PostedAt   time.Time
}

// Contact holds the fields the processor collaborator managed to pull out
// of a post. Either field may be empty.
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	// Enrichment derived from the email when the post itself is silent.
	FullName string `json:"full_name,omitempty"`
	Company  string `json:"company,omitempty"`
}

// ExtractionResult is the validated record produced per relevant post.
// Invariant: a result either carries at least one contact field or is never
// handed to storage (the pipeline drops and counts it instead).
type ExtractionResult struct {
	Contact     Contact   `json:"contact"`
	Relevant    bool      `json:"relevant"`
	PostID      string    `json:"post_id"`
	PostURL     string    `json:"post_url"`
	ProfileURL  string    `json:"profile_url"`
	Unit        WorkUnit  `json:"unit"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Job is one unit of pending work polled from the job source. Coverage is
// the number of keyword searches each candidate owes this job; the assigner
// hands keywords out round-robin across the whole candidate pool.
type Job struct {
	ID          string            `json:"id"`
	Candidates  []Candidate       `json:"candidates"`
	Keywords    []Keyword         `json:"keywords"`
	Coverage    int               `json:"coverage"`
	Constraints SearchConstraints `json:"constraints"`
}

// UnitOutcome records how one work unit finished, kept per candidate as the
// scheduler's in-memory run history.
type UnitOutcome struct {
	Keyword   Keyword   `json:"keyword"`
	Extracted int       `json:"extracted"`
	Err       string    `json:"error,omitempty"`
	DoneAt    time.Time `json:"done_at"`
}

// Report is what the scheduler hands to the activity reporter at the end of
// every tick, including partial and failed ones.
type Report struct {
	RunID    string                   `json:"run_id"`
	Snapshot Snapshot                 `json:"snapshot"`
	Failed   bool                     `json:"failed"`
	Err      string                   `json:"error,omitempty"`
	History  map[string][]UnitOutcome `json:"history,omitempty"`
}

// State is the scheduler's lifecycle phase for the current tick.
type State string

// Scheduler states, in tick order.
const (
	StateIdle        State = "idle"
	StatePolling     State = "polling"
	StateDispatching State = "dispatching"
	StateExecuting   State = "executing"
	StateReporting   State = "reporting"
)
