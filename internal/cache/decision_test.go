package cache

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cachePath = "/tmp/.cpp_compiler_cache.json"

func newTestDecider(t *testing.T, goos string) (*Decider, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := NewStore(NewFileBackend(fs, cachePath), nil)
	return NewDecider(fs, store, goos, nil), fs
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

// simulateCompile stands in for a successful compiler run.
func simulateCompile(t *testing.T, d *Decider, fs afero.Fs, src, options string) {
	t.Helper()
	writeFile(t, fs, d.ArtifactFor(src), "binary")
	require.NoError(t, d.MarkCompiled(src, options))
}

func TestDeciderScenario(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	writeFile(t, fs, "a.cpp", "int main(){}")

	// no cache entry yet
	assert.True(t, d.NeedsRecompile("a.cpp", "-std=c++17"))

	simulateCompile(t, d, fs, "a.cpp", "-std=c++17")

	entries, err := NewFileBackend(fs, cachePath).Load()
	require.NoError(t, err)
	assert.Equal(t, ComputeDigest("int main(){}-std=c++17"), entries["a.cpp|-std=c++17"])

	assert.False(t, d.NeedsRecompile("a.cpp", "-std=c++17"))

	writeFile(t, fs, "a.cpp", "int main(){return 0;}")
	assert.True(t, d.NeedsRecompile("a.cpp", "-std=c++17"))
}

func TestDeciderIdempotence(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	writeFile(t, fs, "/p/a.cpp", "int main(){}")

	assert.True(t, d.NeedsRecompile("/p/a.cpp", ""))
	assert.True(t, d.NeedsRecompile("/p/a.cpp", ""))

	simulateCompile(t, d, fs, "/p/a.cpp", "")
	assert.False(t, d.NeedsRecompile("/p/a.cpp", ""))
	assert.False(t, d.NeedsRecompile("/p/a.cpp", ""))
}

func TestDeciderContentSensitivity(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	writeFile(t, fs, "/p/a.cpp", "int main(){}")
	simulateCompile(t, d, fs, "/p/a.cpp", "-O2")
	require.False(t, d.NeedsRecompile("/p/a.cpp", "-O2"))

	// flip one byte
	writeFile(t, fs, "/p/a.cpp", "int main(){]")
	dec := d.Check("/p/a.cpp", "-O2")
	assert.True(t, dec.Stale)
	assert.Equal(t, ReasonChanged, dec.Reason)
}

func TestDeciderOptionsSensitivity(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	writeFile(t, fs, "/p/a.cpp", "int main(){}")

	simulateCompile(t, d, fs, "/p/a.cpp", "-O2")

	assert.False(t, d.NeedsRecompile("/p/a.cpp", "-O2"))
	dec := d.Check("/p/a.cpp", "-O0")
	assert.True(t, dec.Stale)
	assert.Equal(t, ReasonNotCached, dec.Reason)

	simulateCompile(t, d, fs, "/p/a.cpp", "-O0")
	assert.False(t, d.NeedsRecompile("/p/a.cpp", "-O0"))
	assert.False(t, d.NeedsRecompile("/p/a.cpp", "-O2"))
}

func TestDeciderArtifactDeletion(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	writeFile(t, fs, "/p/a.cpp", "int main(){}")
	simulateCompile(t, d, fs, "/p/a.cpp", "")
	require.False(t, d.NeedsRecompile("/p/a.cpp", ""))

	require.NoError(t, fs.Remove("/p/a"))

	dec := d.Check("/p/a.cpp", "")
	assert.True(t, dec.Stale)
	assert.Equal(t, ReasonArtifactMissing, dec.Reason)
	// the digest still matches; only the executable is gone
	assert.Equal(t, dec.Cached, dec.Current)
}

func TestDeciderWindowsArtifactSuffix(t *testing.T) {
	d, fs := newTestDecider(t, "windows")
	writeFile(t, fs, "/p/a.cpp", "int main(){}")
	assert.Equal(t, "/p/a.exe", d.ArtifactFor("/p/a.cpp"))

	require.NoError(t, d.MarkCompiled("/p/a.cpp", ""))
	// a suffix-less file does not count on windows
	writeFile(t, fs, "/p/a", "binary")
	assert.True(t, d.NeedsRecompile("/p/a.cpp", ""))

	writeFile(t, fs, "/p/a.exe", "binary")
	assert.False(t, d.NeedsRecompile("/p/a.cpp", ""))
}

func TestDeciderCorruptCache(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	writeFile(t, fs, "/p/a.cpp", "int main(){}")
	writeFile(t, fs, "/p/a", "binary")
	writeFile(t, fs, cachePath, "this is { not json")

	var stale bool
	assert.NotPanics(t, func() { stale = d.NeedsRecompile("/p/a.cpp", "") })
	assert.True(t, stale)
}

func TestDeciderUnreadableSource(t *testing.T) {
	d, _ := newTestDecider(t, "linux")

	dec := d.Check("/missing.cpp", "")
	assert.True(t, dec.Stale)
	assert.Equal(t, ReasonUnreadable, dec.Reason)

	assert.Error(t, d.MarkCompiled("/missing.cpp", ""))
	store := d.store
	assert.Empty(t, store.Entries())
}

func TestDeciderMarkCompiledRereadsSource(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	writeFile(t, fs, "/p/a.cpp", "v1")
	before := d.Check("/p/a.cpp", "")

	// edited while the compiler ran
	writeFile(t, fs, "/p/a.cpp", "v2")
	simulateCompile(t, d, fs, "/p/a.cpp", "")

	got, ok := d.store.Get(Key{Path: "/p/a.cpp"})
	require.True(t, ok)
	assert.NotEqual(t, before.Current, got)
	assert.Equal(t, ComputeDigest("v2"), got)
}

func TestDeciderInMemoryMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDecider(fs, NewStore(NewMemoryBackend(), nil), "linux", nil)
	writeFile(t, fs, "/p/a.cpp", "int main(){}")

	simulateCompile(t, d, fs, "/p/a.cpp", "")
	assert.False(t, d.NeedsRecompile("/p/a.cpp", ""))

	exists, err := afero.Exists(fs, cachePath)
	require.NoError(t, err)
	assert.False(t, exists, "in-memory mode must not touch the cache file")
}

func TestCheckAllPreservesOrder(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	files := []string{"/p/a.cpp", "/p/b.cpp", "/p/c.cpp", "/p/missing.cpp"}
	for _, f := range files[:3] {
		writeFile(t, fs, f, "int main(){} // "+f)
	}
	simulateCompile(t, d, fs, "/p/b.cpp", "-O2")

	results := d.CheckAll(context.Background(), files, "-O2", 3)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, files[i], r.Source)
	}
	assert.Equal(t, ReasonNotCached, results[0].Reason)
	assert.Equal(t, ReasonUpToDate, results[1].Reason)
	assert.False(t, results[1].Stale)
	assert.Equal(t, ReasonNotCached, results[2].Reason)
	assert.Equal(t, ReasonUnreadable, results[3].Reason)
}

func TestCheckAllCancelled(t *testing.T) {
	d, fs := newTestDecider(t, "linux")
	writeFile(t, fs, "/p/a.cpp", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := d.CheckAll(ctx, []string{"/p/a.cpp"}, "", 0)
	require.Len(t, results, 1)
	assert.True(t, results[0].Stale)
	assert.Equal(t, Reason(context.Canceled.Error()), results[0].Reason)
}
