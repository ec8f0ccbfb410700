// Package toolchain invokes the external C/C++ compiler.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/colthorp/cppc-go/internal/core"
	"github.com/mattn/go-shellwords"
)

// Request describes one compile.
type Request struct {
	Source  string
	Output  string // without platform suffix; the compiler adds ".exe" on Windows
	Options string
}

// Compiler runs one compile to completion.
type Compiler interface {
	Compile(ctx context.Context, req Request) error
}

// CompileError is returned when the compiler exits unsuccessfully.
// Output holds the compiler's diagnostics verbatim.
type CompileError struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
	TimedOut bool   `json:"timed_out"`
}

func (e *CompileError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("compile timed out: %s", e.Command)
	case e.Output != "":
		return fmt.Sprintf("compile failed (exit %d):\n%s", e.ExitCode, e.Output)
	default:
		return fmt.Sprintf("compile failed (exit %d): %s", e.ExitCode, e.Command)
	}
}

// GCC runs a gcc-compatible driver as `<path> <source> <options...> -o <output>`.
type GCC struct {
	Path string
	// Timeout of 0 lets the compiler run as long as it needs.
	Timeout time.Duration
}

// NewGCC creates a compiler for the given driver binary.
func NewGCC(path string, timeout time.Duration) *GCC {
	if path == "" {
		path = core.DefaultCompiler
	}
	return &GCC{Path: path, Timeout: timeout}
}

// Args returns the argument list for req. Options are split with shell
// quoting rules, so `-DNAME="a b"` stays one argument.
func (g *GCC) Args(req Request) ([]string, error) {
	opts, err := shellwords.Parse(req.Options)
	if err != nil {
		return nil, fmt.Errorf("invalid compile options %q: %w", req.Options, err)
	}
	args := make([]string, 0, len(opts)+3)
	args = append(args, req.Source)
	args = append(args, opts...)
	args = append(args, "-o", req.Output)
	return args, nil
}

// CommandLine renders the command for logs.
func (g *GCC) CommandLine(req Request) string {
	return fmt.Sprintf("%s %q %s -o %q", g.Path, req.Source, strings.TrimSpace(req.Options), req.Output)
}

// Compile runs the compiler and waits for it to exit.
func (g *GCC) Compile(ctx context.Context, req Request) error {
	args, err := g.Args(req)
	if err != nil {
		return err
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.Path, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		cerr := &CompileError{
			Command:  g.CommandLine(req),
			ExitCode: -1,
			Output:   strings.TrimSpace(output.String()),
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cerr.ExitCode = exitErr.ExitCode()
		} else if cerr.Output == "" {
			cerr.Output = err.Error()
		}
		return cerr
	}
	return nil
}
