package toolchain

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/colthorp/cppc-go/internal/cache"
	"github.com/colthorp/cppc-go/internal/core"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Outcome says what Build did.
type Outcome int

const (
	// Compiled means the compiler ran and succeeded.
	Compiled Outcome = iota
	// Skipped means the executable was already up to date.
	Skipped
	// Cancelled means the build was up to date and the user declined a forced rebuild.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Compiled:
		return "compiled"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// BuildOptions controls one Build call.
type BuildOptions struct {
	// Options is the effective compile options string (also the cache key).
	Options string
	// Force rebuilds even when the cache says the executable is current.
	Force bool
	// Confirm, when set, is asked whether to rebuild an up-to-date file.
	Confirm func() bool
}

// Result describes a finished Build.
type Result struct {
	Outcome  Outcome
	Decision cache.Decision
	Artifact string
	Elapsed  time.Duration
}

// Builder ties the recompile decision to the compiler.
type Builder struct {
	compiler Compiler
	decider  *cache.Decider
	fs       afero.Fs
	logger   *zap.Logger
}

// NewBuilder creates a Builder. fs is used to remove stale executables.
func NewBuilder(compiler Compiler, decider *cache.Decider, fs afero.Fs, logger *zap.Logger) *Builder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{compiler: compiler, decider: decider, fs: fs, logger: logger}
}

// Build compiles src if needed. On compiler failure the *CompileError is
// returned and the cache is left untouched, so the next Build retries.
func (b *Builder) Build(ctx context.Context, src string, opts BuildOptions) (Result, error) {
	dec := b.decider.Check(src, opts.Options)
	res := Result{Decision: dec, Artifact: dec.Artifact}

	if !dec.Stale && !opts.Force {
		b.logger.Info("No changes detected", zap.String("file", src))
		if opts.Confirm == nil {
			res.Outcome = Skipped
			return res, nil
		}
		if !opts.Confirm() {
			b.logger.Info("Rebuild declined", zap.String("file", src))
			res.Outcome = Cancelled
			return res, nil
		}
		b.logger.Info("Forcing rebuild of unchanged file", zap.String("file", src))
	}

	if err := b.fs.Remove(dec.Artifact); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.logger.Warn("Failed to remove old executable", zap.String("path", dec.Artifact), zap.Error(err))
	}

	req := Request{Source: src, Output: core.OutputBase(src), Options: opts.Options}
	b.logger.Info("Compiling",
		zap.String("file", src),
		zap.String("options", opts.Options),
		zap.String("reason", string(dec.Reason)))

	start := time.Now()
	err := b.compiler.Compile(ctx, req)
	res.Elapsed = time.Since(start)
	if err != nil {
		b.logger.Error("Compile failed", zap.String("file", src), zap.Error(err))
		return res, err
	}

	if err := b.decider.MarkCompiled(src, opts.Options); err != nil {
		b.logger.Warn("Compiled, but cache not updated", zap.String("file", src), zap.Error(err))
	}
	b.logger.Info("Compile succeeded", zap.String("file", src), zap.Duration("elapsed", res.Elapsed))

	res.Outcome = Compiled
	return res, nil
}
