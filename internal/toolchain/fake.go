package toolchain

import (
	"context"
	"runtime"
	"sync"

	"github.com/colthorp/cppc-go/internal/core"
	"github.com/spf13/afero"
)

// Fake is an in-memory stand-in for the compiler, sufficient for unit
// testing the build flow. On success it writes the executable to FS.
type Fake struct {
	FS   afero.Fs
	GOOS string

	// FailWith makes every compile fail with this diagnostic text.
	FailWith string
	// OnCompile runs before the outcome is decided (e.g. to edit the source
	// mid-compile).
	OnCompile func(req Request)

	mu       sync.Mutex
	Requests []Request
}

// NewFake creates a fake compiler writing executables to fs.
func NewFake(fs afero.Fs, goos string) *Fake {
	if goos == "" {
		goos = runtime.GOOS
	}
	return &Fake{FS: fs, GOOS: goos}
}

// CallCount returns the number of compiles requested so far.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// Compile records req and simulates the compiler.
func (f *Fake) Compile(ctx context.Context, req Request) error {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if f.OnCompile != nil {
		f.OnCompile(req)
	}
	if f.FailWith != "" {
		return &CompileError{Command: "fake " + req.Source, ExitCode: 1, Output: f.FailWith}
	}
	return afero.WriteFile(f.FS, core.ArtifactPath(req.Output, f.GOOS), []byte("\x7fELF"), 0755)
}
