package toolchain

import (
	"context"
	"errors"
	"testing"

	"github.com/colthorp/cppc-go/internal/cache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	fs       afero.Fs
	compiler *Fake
	store    *cache.Store
	builder  *Builder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := cache.NewStore(cache.NewFileBackend(fs, "/tmp/cache.json"), nil)
	decider := cache.NewDecider(fs, store, "linux", nil)
	compiler := NewFake(fs, "linux")
	require.NoError(t, afero.WriteFile(fs, "/src/a.cpp", []byte("int main(){}"), 0644))
	return &harness{
		fs:       fs,
		compiler: compiler,
		store:    store,
		builder:  NewBuilder(compiler, decider, fs, nil),
	}
}

func TestBuildCompilesThenSkips(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.builder.Build(ctx, "/src/a.cpp", BuildOptions{Options: "-O2"})
	require.NoError(t, err)
	assert.Equal(t, Compiled, res.Outcome)
	assert.Equal(t, "/src/a", res.Artifact)
	require.Equal(t, 1, h.compiler.CallCount())
	assert.Equal(t, Request{Source: "/src/a.cpp", Output: "/src/a", Options: "-O2"}, h.compiler.Requests[0])

	res, err = h.builder.Build(ctx, "/src/a.cpp", BuildOptions{Options: "-O2"})
	require.NoError(t, err)
	assert.Equal(t, Skipped, res.Outcome)
	assert.Equal(t, 1, h.compiler.CallCount())
}

func TestBuildForce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.builder.Build(ctx, "/src/a.cpp", BuildOptions{})
	require.NoError(t, err)

	res, err := h.builder.Build(ctx, "/src/a.cpp", BuildOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, Compiled, res.Outcome)
	assert.Equal(t, 2, h.compiler.CallCount())
}

func TestBuildConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	asked := 0
	no := func() bool { asked++; return false }
	yes := func() bool { asked++; return true }

	// stale files are compiled without asking
	res, err := h.builder.Build(ctx, "/src/a.cpp", BuildOptions{Confirm: no})
	require.NoError(t, err)
	assert.Equal(t, Compiled, res.Outcome)
	assert.Equal(t, 0, asked)

	res, err = h.builder.Build(ctx, "/src/a.cpp", BuildOptions{Confirm: no})
	require.NoError(t, err)
	assert.Equal(t, Cancelled, res.Outcome)
	assert.Equal(t, 1, asked)
	assert.Equal(t, 1, h.compiler.CallCount())

	res, err = h.builder.Build(ctx, "/src/a.cpp", BuildOptions{Confirm: yes})
	require.NoError(t, err)
	assert.Equal(t, Compiled, res.Outcome)
	assert.Equal(t, 2, asked)
	assert.Equal(t, 2, h.compiler.CallCount())
}

func TestBuildFailureLeavesCacheUntouched(t *testing.T) {
	h := newHarness(t)
	h.compiler.FailWith = "a.cpp:1:1: error: expected unqualified-id"

	res, err := h.builder.Build(context.Background(), "/src/a.cpp", BuildOptions{Options: "-O2"})
	require.Error(t, err)

	var cerr *CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Output, "expected unqualified-id")
	assert.True(t, res.Decision.Stale)
	assert.Empty(t, h.store.Entries())

	// the next attempt compiles again
	h.compiler.FailWith = ""
	res, err = h.builder.Build(context.Background(), "/src/a.cpp", BuildOptions{Options: "-O2"})
	require.NoError(t, err)
	assert.Equal(t, Compiled, res.Outcome)
	assert.Equal(t, 2, h.compiler.CallCount())
}

func TestBuildRemovesStaleExecutable(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/src/a", []byte("old"), 0755))
	h.compiler.FailWith = "boom"

	_, err := h.builder.Build(context.Background(), "/src/a.cpp", BuildOptions{})
	require.Error(t, err)

	exists, err := afero.Exists(h.fs, "/src/a")
	require.NoError(t, err)
	assert.False(t, exists, "a failed compile must not leave the previous executable runnable")
}

func TestBuildRecordsContentAfterCompile(t *testing.T) {
	h := newHarness(t)
	h.compiler.OnCompile = func(req Request) {
		_ = afero.WriteFile(h.fs, req.Source, []byte("int main(){return 1;}"), 0644)
	}

	_, err := h.builder.Build(context.Background(), "/src/a.cpp", BuildOptions{})
	require.NoError(t, err)

	got, ok := h.store.Get(cache.Key{Path: "/src/a.cpp"})
	require.True(t, ok)
	assert.Equal(t, cache.ComputeDigest("int main(){return 1;}"), got)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "compiled", Compiled.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
