package invoice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt", "c.JPEG", "scan.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested.jpg", "d.jpg"), []byte("x"), 0o644))

	sources, err := Discover(dir)
	require.NoError(t, err)

	var ids []string
	for _, s := range sources {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"a.jpg", "b.png", "c.JPEG"}, ids)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("x.jpg"))
	assert.True(t, IsImageFile("x.Png"))
	assert.False(t, IsImageFile("x.gif"))
	assert.False(t, IsImageFile("jpg"))
}
