package extractor

import "sync/atomic"

// KeywordAssigner hands keywords out in rotating order across the entire
// candidate pool. A single shared cursor advances by one on every call no
// matter which candidate asked, which keeps coverage fair when candidates
// finish units at different speeds.
type KeywordAssigner struct {
	keywords []Keyword
	cursor   atomic.Uint64
}

// NewKeywordAssigner builds an assigner over keywords starting at cursor.
// The starting cursor lets a restarted scheduler resume where the previous
// process left off; persisting it is the scheduler-state collaborator's job.
func NewKeywordAssigner(keywords []Keyword, cursor uint64) (*KeywordAssigner, error) {
	if len(keywords) == 0 {
		return nil, &ConfigurationError{Reason: "keyword list is empty"}
	}
	ks := make([]Keyword, len(keywords))
	copy(ks, keywords)
	a := &KeywordAssigner{keywords: ks}
	a.cursor.Store(cursor)
	return a, nil
}

// Next returns the keyword at the shared cursor and advances it. Safe for
// concurrent use from all in-flight units.
func (a *KeywordAssigner) Next(Candidate) Keyword {
	n := a.cursor.Add(1) - 1
	return a.keywords[n%uint64(len(a.keywords))]
}

// Cursor returns the number of assignments made so far (plus the starting
// offset), for persistence across restarts.
func (a *KeywordAssigner) Cursor() uint64 {
	return a.cursor.Load()
}

// Len returns the keyword list length.
func (a *KeywordAssigner) Len() int {
	return len(a.keywords)
}
