package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_WritesAndReleases(t *testing.T) {
	store, err := NewStagingStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	staged, err := store.Stage(strings.NewReader("leaf-bytes"), ".JPG")
	require.NoError(t, err)
	assert.Equal(t, int64(10), staged.Size)
	assert.Equal(t, ".jpg", filepath.Ext(staged.Path))
	assert.Equal(t, store.Dir(), filepath.Dir(staged.Path))

	data, err := staged.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "leaf-bytes", string(data))

	staged.Release()
	_, err = os.Stat(staged.Path)
	assert.True(t, os.IsNotExist(err), "staging file should be gone after Release")

	// second release is a no-op
	staged.Release()
}

func TestStage_UniquePaths(t *testing.T) {
	store, err := NewStagingStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	a, err := store.Stage(strings.NewReader("a"), ".png")
	require.NoError(t, err)
	defer a.Release()
	b, err := store.Stage(strings.NewReader("b"), ".png")
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Path, b.Path)
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestStage_FailedCopyLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStagingStore(dir, zerolog.Nop())
	require.NoError(t, err)

	_, err = store.Stage(failingReader{}, ".png")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeExt(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"png":         ".png",
		".JPEG":       ".jpeg",
		"../etc":      "",
		".tar.gz":     "",
		".verylongext": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeExt(in), "ext=%q", in)
	}
}
