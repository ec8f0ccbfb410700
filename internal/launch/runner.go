package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Runner executes plans in the current terminal.
type Runner struct {
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

// NewRunner creates a Runner wired to the given console streams. fs must be
// backed by the real filesystem for redirect files to reach the program.
func NewRunner(fs afero.Fs, stdin io.Reader, stdout, stderr io.Writer, logger *zap.Logger) *Runner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{fs: fs, stdin: stdin, stdout: stdout, stderr: stderr, logger: logger}
}

// Run executes p. A non-zero exit of the program is reported in the Report,
// not as an error; errors mean the program or its redirect files could not
// be set up.
func (r *Runner) Run(ctx context.Context, p Plan) (*Report, error) {
	r.logger.Info("Running program",
		zap.String("executable", p.Executable),
		zap.Bool("forward", p.Forward),
		zap.Bool("reverse", p.Reverse))

	switch {
	case p.Forward && p.Reverse:
		return r.runBoth(ctx, p)
	case p.Forward:
		return r.runForward(ctx, p)
	case p.Reverse:
		return r.runReverse(ctx, p)
	}
	return r.exec(ctx, p, r.stdin, r.stdout)
}

func (r *Runner) runForward(ctx context.Context, p Plan) (*Report, error) {
	in, err := r.fs.Open(p.resolve(p.InputFile))
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer in.Close()

	out, err := r.fs.Create(p.resolve(p.OutputFile))
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	return r.exec(ctx, p, in, out)
}

func (r *Runner) runReverse(ctx context.Context, p Plan) (*Report, error) {
	revIn := p.resolve(p.ReverseInputFile)
	revOut := p.resolve(p.ReverseOutputFile)
	defer r.remove(revIn)
	defer r.remove(revOut)

	// console input goes to the file the program reads
	src := r.stdin
	if src == nil {
		src = strings.NewReader("")
	}
	if err := r.writeFile(revIn, src); err != nil {
		return nil, fmt.Errorf("writing reverse input file: %w", err)
	}

	rep, err := r.exec(ctx, p, nil, r.stdout)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(r.fs, revOut)
	if err != nil {
		return rep, fmt.Errorf("reading reverse output file: %w", err)
	}
	if _, err := r.stdout.Write(data); err != nil {
		return rep, err
	}
	return rep, nil
}

func (r *Runner) runBoth(ctx context.Context, p Plan) (*Report, error) {
	in := p.resolve(p.InputFile)
	revIn := p.resolve(p.ReverseInputFile)
	out := p.resolve(p.OutputFile)
	revOut := p.resolve(p.ReverseOutputFile)

	copied := false
	if in != revIn {
		f, err := r.fs.Open(in)
		if err != nil {
			return nil, fmt.Errorf("opening input file: %w", err)
		}
		err = r.writeFile(revIn, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("copying input file: %w", err)
		}
		copied = true
	}

	rep, err := r.exec(ctx, p, nil, r.stdout)
	if copied {
		r.remove(revIn)
	}
	if err != nil {
		return nil, err
	}

	if revOut != out {
		if err := r.fs.Rename(revOut, out); err != nil {
			return rep, fmt.Errorf("moving output file: %w", err)
		}
	}
	return rep, nil
}

func (r *Runner) exec(ctx context.Context, p Plan, stdin io.Reader, stdout io.Writer) (*Report, error) {
	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Dir
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = r.stderr

	start := time.Now()
	err := cmd.Run()
	wall := time.Since(start)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run %s: %w", p.Executable, err)
		}
	}

	rep := newReport(cmd.ProcessState, wall)
	r.logger.Info("Program exited",
		zap.String("executable", p.Executable),
		zap.Int("exit_code", rep.ExitCode),
		zap.Duration("elapsed", wall))

	if p.ConsoleInfo && r.stdout != nil {
		if err := rep.Print(r.stdout); err != nil {
			r.logger.Warn("Failed to print run info", zap.Error(err))
		}
	}
	return rep, nil
}

func (r *Runner) writeFile(path string, src io.Reader) error {
	f, err := r.fs.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Runner) remove(path string) {
	if err := r.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("Failed to remove redirect file", zap.String("path", path), zap.Error(err))
	}
}
