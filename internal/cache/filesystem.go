package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

// ErrCorrupt is wrapped by Load when the cache file exists but is not a
// valid JSON object of string digests.
var ErrCorrupt = errors.New("corrupt cache file")

// FileBackend stores the whole mapping as one JSON document.
type FileBackend struct {
	fs       afero.Fs
	path     string
	lockPath string
}

// NewFileBackend creates a file-backed cache at path on fs.
// Without WithLock, concurrent writers from different processes can lose
// each other's updates: the last full-mapping write wins.
func NewFileBackend(fs afero.Fs, path string) *FileBackend {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileBackend{fs: fs, path: path}
}

// WithLock enables an advisory lock file around read-modify-write cycles.
// The lock is taken on the real filesystem, so it only makes sense with an
// OS-backed fs.
func (b *FileBackend) WithLock(lockPath string) *FileBackend {
	b.lockPath = lockPath
	return b
}

// Path returns the cache file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads and decodes the cache file. A missing file is an empty mapping.
func (b *FileBackend) Load() (map[string]Digest, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]Digest), nil
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}

	entries := make(map[string]Digest)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorrupt, b.path, err)
	}
	if entries == nil {
		// the file held a JSON null
		entries = make(map[string]Digest)
	}
	return entries, nil
}

// Save writes the mapping to a temp file in the same directory and renames
// it over the cache file, so a failed write never clobbers a valid file.
func (b *FileBackend) Save(entries map[string]Digest) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := b.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := afero.TempFile(b.fs, dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		b.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		b.fs.Remove(tmpPath)
		return err
	}
	if err := b.fs.Rename(tmpPath, b.path); err != nil {
		b.fs.Remove(tmpPath)
		return err
	}
	return nil
}

// Lock takes the advisory lock when one is configured.
func (b *FileBackend) Lock() (func(), error) {
	if b.lockPath == "" {
		return func() {}, nil
	}
	// the lock file sits next to the cache file, whose directory may not exist yet
	if err := os.MkdirAll(filepath.Dir(b.lockPath), 0755); err != nil {
		return func() {}, fmt.Errorf("lock %s: %w", b.lockPath, err)
	}
	fl := flock.New(b.lockPath)
	if err := fl.Lock(); err != nil {
		return func() {}, fmt.Errorf("lock %s: %w", b.lockPath, err)
	}
	return func() { _ = fl.Unlock() }, nil
}
