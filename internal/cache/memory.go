package cache

import (
	"sync"
)

// MemoryBackend keeps entries in process memory only. It is selected when
// the cache is configured as in-memory, and used by tests.
type MemoryBackend struct {
	entries map[string]Digest
	mu      sync.RWMutex
}

// NewMemoryBackend creates a new in-memory cache backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]Digest),
	}
}

// Path returns a placeholder location.
func (b *MemoryBackend) Path() string {
	return "(memory)"
}

// Load returns a copy of the stored mapping.
func (b *MemoryBackend) Load() (map[string]Digest, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyEntries(b.entries), nil
}

// Save stores a copy of entries.
func (b *MemoryBackend) Save(entries map[string]Digest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = copyEntries(entries)
	return nil
}

// Lock is a no-op; the store serializes in-process access itself.
func (b *MemoryBackend) Lock() (func(), error) {
	return func() {}, nil
}

// Reset clears all entries (for testing).
func (b *MemoryBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]Digest)
}

// Seed adds entries directly (for testing).
func (b *MemoryBackend) Seed(key Key, d Digest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key.String()] = d
}

func copyEntries(src map[string]Digest) map[string]Digest {
	dst := make(map[string]Digest, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
