package cache

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Store is the process-wide digest cache. It is constructed once and passed
// by reference to the Decider.
//
// Every read reloads the backend so that updates from other processes
// sharing the cache file are seen. Failures never reach the caller of Get or
// Set: the cache only saves work, so the worst outcome is an extra compile.
type Store struct {
	backend Backend
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]Digest // last successfully loaded or saved mapping
}

// NewStore creates a store on top of backend. A nil logger discards logs.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		logger:  logger,
		entries: make(map[string]Digest),
	}
}

// Path returns where the backend keeps entries.
func (s *Store) Path() string {
	return s.backend.Path()
}

// reload refreshes s.entries from the backend. A corrupt store becomes an
// empty mapping; any other read failure keeps the previous mapping and
// returns false. Callers hold s.mu.
func (s *Store) reload() bool {
	entries, err := s.backend.Load()
	switch {
	case err == nil:
		s.entries = entries
		return true
	case errors.Is(err, ErrCorrupt):
		s.logger.Warn("Cache file is corrupt; treating as empty",
			zap.String("path", s.backend.Path()), zap.Error(err))
		s.entries = make(map[string]Digest)
		return true
	default:
		s.logger.Warn("Failed to read cache",
			zap.String("path", s.backend.Path()), zap.Error(err))
		return false
	}
}

// Get returns the digest stored for key.
func (s *Store) Get(key Key) (Digest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reload()
	d, ok := s.entries[key.String()]
	return d, ok && d != ""
}

// Set stores d under key. Failures are logged and otherwise ignored.
func (s *Store) Set(key Key, d Digest) {
	err := s.Update(func(entries map[string]Digest) {
		entries[key.String()] = d
	})
	if err != nil {
		s.logger.Warn("Failed to update cache",
			zap.String("key", key.String()), zap.Error(err))
		return
	}
	s.logger.Debug("Cache updated", zap.String("key", key.String()), zap.String("digest", string(d)))
}

// Update performs lock, reload, mutate, save, unlock. mutate operates on the
// freshly reloaded mapping, never on a stale in-memory copy. If the reload
// fails for a reason other than corruption, nothing is written.
func (s *Store) Update(mutate func(entries map[string]Digest)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.backend.Lock()
	if err != nil {
		return err
	}
	defer unlock()

	if !s.reload() {
		return errors.New("cache could not be read; skipping write")
	}

	next := copyEntries(s.entries)
	mutate(next)
	if err := s.backend.Save(next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

// Entries returns a snapshot of the current mapping.
func (s *Store) Entries() map[string]Digest {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reload()
	return copyEntries(s.entries)
}

// Clear removes every entry. Unlike Set, the error is returned because
// clearing is an explicit user request.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.backend.Lock()
	if err != nil {
		return err
	}
	defer unlock()

	empty := make(map[string]Digest)
	if err := s.backend.Save(empty); err != nil {
		return err
	}
	s.entries = empty
	return nil
}
