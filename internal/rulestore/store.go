package rulestore

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"thymus/internal/errors"
)

// Store caches a loaded invariants file and reloads it when the file's
// modification time or size changes.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	result  *Result
	modTime time.Time
	size    int64
	loads   int
}

// NewStore creates a store for the rules file at path. Nothing is read
// until Get.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the file the store reads.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current rules, reloading if the file changed. When a
// reload fails the previous result is dropped and the error returned.
func (s *Store) Get() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		s.result = nil
		if os.IsNotExist(err) {
			return nil, errors.NewThymusError(errors.RulesNotFound, "no invariants file at "+s.path, err,
				errors.GetSuggestedFixes(errors.RulesNotFound))
		}
		return nil, errors.NewFileReadError(s.path, err)
	}

	if s.result != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.result, nil
	}

	result, err := Load(s.path)
	if err != nil {
		s.result = nil
		return nil, err
	}
	s.result, s.modTime, s.size = result, info.ModTime(), info.Size()
	s.loads++

	s.logger.Debug("rules loaded", "path", s.path, "rules", result.Set.Len(), "invalid", len(result.Errors))
	for _, w := range result.Warnings {
		s.logger.Warn(w)
	}
	for _, e := range result.Errors {
		s.logger.Warn("invalid rule skipped", "error", e)
	}
	return result, nil
}

// Invalidate forces the next Get to reload.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.result = nil
	s.mu.Unlock()
}
