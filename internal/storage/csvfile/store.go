// Package csvfile appends extraction results to one CSV file per day.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

var header = []string{
	"extracted_at", "run_id", "candidate_id", "keyword",
	"full_name", "email", "phone", "company",
	"post_id", "post_url", "profile_url",
}

// Store writes contacts to <dir>/contacts_<YYYY-MM-DD>.csv, creating the
// file with a header row on first write of the day. All failures are
// treated as fatal: the local disk does not get better on retry.
type Store struct {
	dir    string
	clock  extractor.Clock
	logger *zap.Logger

	mu sync.Mutex
}

// New creates the output directory if needed.
func New(dir string, clock extractor.Clock, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, clock: clock, logger: logger}, nil
}

// Path returns today's output file path.
func (s *Store) Path() string {
	day := s.clock.Now().Format("2006-01-02")
	return filepath.Join(s.dir, "contacts_"+day+".csv")
}

// Persist appends one row, writing the header first when the file is new.
func (s *Store) Persist(_ context.Context, result extractor.ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path()
	writeHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return extractor.FatalWrite(fmt.Errorf("open csv: %w", err))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return extractor.FatalWrite(fmt.Errorf("write csv header: %w", err))
		}
	}
	row := []string{
		result.ExtractedAt.UTC().Format(time.RFC3339),
		result.Unit.RunID,
		result.Unit.Candidate.ID,
		string(result.Unit.Keyword),
		result.Contact.FullName,
		result.Contact.Email,
		result.Contact.Phone,
		result.Contact.Company,
		result.PostID,
		result.PostURL,
		result.ProfileURL,
	}
	if err := w.Write(row); err != nil {
		return extractor.FatalWrite(fmt.Errorf("write csv row: %w", err))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return extractor.FatalWrite(fmt.Errorf("flush csv: %w", err))
	}
	return nil
}
