package cache

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMemoryBackend(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend, nil)

	key := Key{Path: "/a.cpp", Options: "-O2"}
	_, ok := store.Get(key)
	assert.False(t, ok)

	store.Set(key, "d1")
	got, ok := store.Get(key)
	assert.True(t, ok)
	assert.Equal(t, Digest("d1"), got)

	// Overwrite, never duplicate
	store.Set(key, "d2")
	assert.Len(t, store.Entries(), 1)
	got, _ = store.Get(key)
	assert.Equal(t, Digest("d2"), got)

	backend.Reset()
	_, ok = store.Get(key)
	assert.False(t, ok)
}

func TestStoreEmptyDigestIsAbsent(t *testing.T) {
	backend := NewMemoryBackend()
	key := Key{Path: "/a.cpp"}
	backend.Seed(key, "")

	_, ok := NewStore(backend, nil).Get(key)
	assert.False(t, ok)
}

func TestStoreSeesOtherProcessWrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	first := NewStore(NewFileBackend(fs, "/c.json"), nil)
	second := NewStore(NewFileBackend(fs, "/c.json"), nil)

	k1 := Key{Path: "/a.cpp"}
	k2 := Key{Path: "/b.cpp"}

	first.Set(k1, "one")
	second.Set(k2, "two")

	// second reloaded before writing, so first's entry survived
	got, ok := first.Get(k1)
	assert.True(t, ok)
	assert.Equal(t, Digest("one"), got)
	got, ok = first.Get(k2)
	assert.True(t, ok)
	assert.Equal(t, Digest("two"), got)
}

func TestStoreCorruptFileIsEmptyAndOverwritten(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/c.json", []byte("{{{"), 0644))
	store := NewStore(NewFileBackend(fs, "/c.json"), nil)

	key := Key{Path: "/a.cpp", Options: "-O2"}
	_, ok := store.Get(key)
	assert.False(t, ok)

	store.Set(key, "fresh")

	entries, err := NewFileBackend(fs, "/c.json").Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]Digest{key.String(): "fresh"}, entries)
}

type failingBackend struct {
	*MemoryBackend
	loadErr error
	saveErr error
}

func (b *failingBackend) Load() (map[string]Digest, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.MemoryBackend.Load()
}

func (b *failingBackend) Save(entries map[string]Digest) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.MemoryBackend.Save(entries)
}

func TestStoreWriteFailureIsNotFatal(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend(), saveErr: errors.New("disk full")}
	store := NewStore(backend, nil)

	key := Key{Path: "/a.cpp"}
	assert.NotPanics(t, func() { store.Set(key, "d") })

	_, ok := store.Get(key)
	assert.False(t, ok)
	assert.Error(t, store.Update(func(map[string]Digest) {}))
}

func TestStoreReadFailureSkipsWrite(t *testing.T) {
	mem := NewMemoryBackend()
	mem.Seed(Key{Path: "/keep.cpp"}, "k")
	backend := &failingBackend{MemoryBackend: mem}
	store := NewStore(backend, nil)

	// prime the in-memory mapping
	got, ok := store.Get(Key{Path: "/keep.cpp"})
	require.True(t, ok)
	assert.Equal(t, Digest("k"), got)

	backend.loadErr = errors.New("permission denied")

	// reads fall back to the last mapping
	got, ok = store.Get(Key{Path: "/keep.cpp"})
	assert.True(t, ok)
	assert.Equal(t, Digest("k"), got)

	// writes are skipped rather than clobbering an unreadable store
	store.Set(Key{Path: "/new.cpp"}, "n")
	backend.loadErr = nil
	entries, _ := mem.Load()
	assert.NotContains(t, entries, Key{Path: "/new.cpp"}.String())
}

func TestStoreClear(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(NewFileBackend(fs, "/c.json"), nil)
	store.Set(Key{Path: "/a.cpp"}, "a")
	store.Set(Key{Path: "/b.cpp"}, "b")
	require.Len(t, store.Entries(), 2)

	require.NoError(t, store.Clear())
	assert.Empty(t, store.Entries())
}
