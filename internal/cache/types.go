// Package cache decides whether a C/C++ source file needs recompiling.
//
// # Overview
//
// The cache maps a (source path, compile options) pair to the digest of
// the source content and options at the time of the last successful
// compile. A rebuild is skipped only when that digest still matches AND the
// expected executable is still on disk.
//
// # Cache File Structure
//
// In external-file mode the mapping lives in a single JSON document in the
// platform temp dir, shared by every cppc process and by the editor
// extension that uses the same file:
//
//	{
//	  "/home/me/a.cpp|-std=c++17": "5d41402abc4b2a76b9719d911017c592",
//	  ...
//	}
//
// There is no schema version. A file that fails to parse is treated as empty
// and is overwritten on the next successful write.
//
// # Validity Rules
//
//   - No entry for the key: rebuild
//   - Expected executable missing: rebuild, even if the digest matches
//   - Digest of current content+options differs: rebuild
//   - Otherwise: up to date
//
// Entries are never deleted by the compile flow, only overwritten after a
// successful compile.
package cache

import (
	"strings"
)

// Digest is the hex checksum of source content concatenated with options.
type Digest string

// Key identifies one cache entry.
type Key struct {
	Path    string
	Options string
}

const keySeparator = "|"

var (
	pathEscaper   = strings.NewReplacer("%", "%25", "|", "%7C")
	pathUnescaper = strings.NewReplacer("%25", "%", "%7C", "|")
)

// String returns the on-disk form of the key: the path with "%" and "|"
// percent-encoded, then "|", then the options verbatim. The escaped path
// never contains "|", so the first "|" always separates the two parts.
func (k Key) String() string {
	return pathEscaper.Replace(k.Path) + keySeparator + k.Options
}

// ParseKey reverses Key.String. It returns false if s has no separator.
// Only "%25" and "%7C" are decoded; any other "%XX" in a key written by an
// older client is kept as part of the path.
func ParseKey(s string) (Key, bool) {
	i := strings.Index(s, keySeparator)
	if i < 0 {
		return Key{}, false
	}
	return Key{Path: pathUnescaper.Replace(s[:i]), Options: s[i+1:]}, true
}

// Backend is the interface for cache storage backends.
// MemoryBackend keeps entries in process memory; FileBackend stores them in
// the shared JSON file.
type Backend interface {
	// Load returns the full mapping. A missing store is an empty mapping,
	// not an error. A store that exists but cannot be decoded returns an
	// error wrapping ErrCorrupt.
	Load() (map[string]Digest, error)

	// Save replaces the full mapping. A failed Save must leave any previous
	// valid mapping readable.
	Save(entries map[string]Digest) error

	// Lock brackets a read-modify-write. Backends without cross-process
	// state return a no-op unlock.
	Lock() (unlock func(), err error)

	// Path describes where entries live (for display).
	Path() string
}
