// Package processed remembers post IDs handled in earlier runs so the
// pipeline can skip them without re-extraction.
package processed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// FileStore keeps one newline-delimited ID file per day under dir. The set
// for today's date is loaded into memory on first use; marks rewrite the
// file through a temp file and rename, so a crash never truncates it.
type FileStore struct {
	dir    string
	clock  extractor.Clock
	logger *zap.Logger

	mu     sync.Mutex
	day    string
	ids    map[string]struct{}
	loaded bool
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, clock extractor.Clock, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create processed dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, clock: clock, logger: logger}, nil
}

// IsProcessed reports whether postID was marked today.
func (s *FileStore) IsProcessed(_ context.Context, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	_, ok := s.ids[postID]
	return ok, nil
}

// MarkProcessed records postID and flushes the day file.
func (s *FileStore) MarkProcessed(_ context.Context, postID string) error {
	if postID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if _, ok := s.ids[postID]; ok {
		return nil
	}
	s.ids[postID] = struct{}{}
	return s.flush()
}

// Size returns the number of IDs tracked for today.
func (s *FileStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return 0
	}
	return len(s.ids)
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, "processed_"+s.day+".txt")
}

// ensureLoaded (re)loads the day file, rolling over when the date changes.
func (s *FileStore) ensureLoaded() error {
	day := s.clock.Now().Format("2006-01-02")
	if s.loaded && day == s.day {
		return nil
	}
	s.day = day
	s.ids = make(map[string]struct{})
	s.loaded = true

	f, err := os.Open(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open processed file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			s.ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read processed file: %w", err)
	}
	s.logger.Debug("loaded processed posts", zap.String("day", day), zap.Int("count", len(s.ids)))
	return nil
}

func (s *FileStore) flush() error {
	tmp, err := os.CreateTemp(s.dir, "processed_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp processed file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for id := range s.ids {
		if _, err := w.WriteString(id + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("write processed file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush processed file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close processed file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return fmt.Errorf("replace processed file: %w", err)
	}
	return nil
}
