package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "ptscraper/pkg/errors"
	"ptscraper/pkg/logger"
)

func TestNormalize(t *testing.T) {
	cp := &Checkpoint{
		MaxPages: 3,
		Entries:  []string{"b.html", "a.html", "b.html"},
	}
	cp.Normalize()

	assert.Equal(t, []string{"a.html", "b.html"}, cp.Entries)
	assert.NotNil(t, cp.Torrents)
	assert.Empty(t, cp.Torrents)
}

func TestSetters(t *testing.T) {
	cp := New()
	cp.SetTorrents([]string{"z", "y", "z", "x"})
	cp.SetEntries(nil)

	assert.Equal(t, []string{"x", "y", "z"}, cp.Torrents)
	assert.Equal(t, []string{}, cp.Entries)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TORRENTS.JSON")
	store := NewFileStore(path)
	assert.False(t, store.Exists())

	cp := &Checkpoint{MaxPages: 7, Entries: []string{"c", "a"}, Torrents: []string{"t1"}}
	require.NoError(t, store.Save(cp))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.MaxPages)
	assert.Equal(t, []string{"a", "c"}, loaded.Entries)
	assert.Equal(t, []string{"t1"}, loaded.Torrents)

	// the caller's value is not mutated by Save
	assert.Equal(t, []string{"c", "a"}, cp.Entries)
}

func TestSaveIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TORRENTS.JSON")
	store := NewFileStore(path)

	cp := &Checkpoint{MaxPages: 2, Entries: []string{"x"}, Torrents: []string{}}
	require.NoError(t, store.Save(cp))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, string(first), `"max_pages": 2`)
}

func TestLoadOrEmpty(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		log := logger.NewTestLogger()
		cp := LoadOrEmpty(NewFileStore(filepath.Join(dir, "absent.json")), log)
		assert.Equal(t, 0, cp.MaxPages)
		assert.Empty(t, cp.Entries)
		assert.Empty(t, log.GetMessagesByLevel("WARN"))
	})

	t.Run("corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		log := logger.NewTestLogger()
		cp := LoadOrEmpty(NewFileStore(path), log)
		assert.Equal(t, 0, cp.MaxPages)
		assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
	})
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := NewFileStore(filepath.Join(blocker, "TORRENTS.JSON")).Save(New())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypePersistence, errs.TypeOf(err))
	assert.True(t, errs.IsFatal(err))
}

func TestSummarize(t *testing.T) {
	cp := &Checkpoint{MaxPages: 4, Entries: []string{"a", "b"}, Torrents: []string{"t"}}
	s := cp.Summarize("/out/TORRENTS.JSON", true)
	assert.Equal(t, Summary{Path: "/out/TORRENTS.JSON", Exists: true, MaxPages: 4, Entries: 2, Torrents: 1}, s)
}
