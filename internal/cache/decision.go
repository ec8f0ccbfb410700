package cache

import (
	"fmt"
	"runtime"

	"github.com/colthorp/cppc-go/internal/core"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonUnreadable      Reason = "source unreadable"
	ReasonNotCached       Reason = "not compiled with these options"
	ReasonArtifactMissing Reason = "executable missing"
	ReasonChanged         Reason = "source or options changed"
	ReasonUpToDate        Reason = "up to date"
)

// Decision is the outcome of checking one source file.
type Decision struct {
	Source   string `json:"source"`
	Options  string `json:"options"`
	Artifact string `json:"artifact"`
	Stale    bool   `json:"stale"`
	Reason   Reason `json:"reason"`
	Current  Digest `json:"current,omitempty"`
	Cached   Digest `json:"cached,omitempty"`
}

// Decider combines the Store, the current source digest and the presence of
// the executable to decide whether a rebuild is needed.
type Decider struct {
	fs     afero.Fs
	store  *Store
	goos   string
	logger *zap.Logger
}

// NewDecider creates a Decider. fs defaults to the OS filesystem, goos to
// runtime.GOOS and logger to a no-op logger.
func NewDecider(fs afero.Fs, store *Store, goos string, logger *zap.Logger) *Decider {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if goos == "" {
		goos = runtime.GOOS
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decider{fs: fs, store: store, goos: goos, logger: logger}
}

// ArtifactFor returns the executable path expected for src.
func (d *Decider) ArtifactFor(src string) string {
	return core.ArtifactPath(core.OutputBase(src), d.goos)
}

// NeedsRecompile reports whether src must be rebuilt with options.
func (d *Decider) NeedsRecompile(src, options string) bool {
	return d.Check(src, options).Stale
}

// Check runs the recompile decision:
//
//  1. Read the source; unreadable means stale.
//  2. Hash content+options (always, the digest is needed either way).
//  3. No cached digest for (src, options) means stale.
//  4. Missing executable means stale.
//  5. Otherwise stale iff the digests differ.
func (d *Decider) Check(src, options string) Decision {
	dec := Decision{
		Source:   src,
		Options:  options,
		Artifact: d.ArtifactFor(src),
		Stale:    true,
	}

	content, err := afero.ReadFile(d.fs, src)
	if err != nil {
		d.logger.Warn("Cannot read source; assuming rebuild needed",
			zap.String("file", src), zap.Error(err))
		dec.Reason = ReasonUnreadable
		return dec
	}
	dec.Current = DigestFor(content, options)

	cached, ok := d.store.Get(Key{Path: src, Options: options})
	if !ok {
		dec.Reason = ReasonNotCached
		return dec
	}
	dec.Cached = cached

	exists, err := afero.Exists(d.fs, dec.Artifact)
	if err != nil || !exists {
		dec.Reason = ReasonArtifactMissing
		return dec
	}

	if dec.Current != cached {
		dec.Reason = ReasonChanged
		return dec
	}

	dec.Stale = false
	dec.Reason = ReasonUpToDate
	return dec
}

// MarkCompiled records a successful compile of src with options. The source
// is re-read rather than reusing a pre-compile read, so an edit made during
// compilation is what gets recorded.
func (d *Decider) MarkCompiled(src, options string) error {
	content, err := afero.ReadFile(d.fs, src)
	if err != nil {
		return fmt.Errorf("re-reading %s after compile: %w", src, err)
	}
	d.store.Set(Key{Path: src, Options: options}, DigestFor(content, options))
	return nil
}
