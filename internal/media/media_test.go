package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFilesRecursiveSorted(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "armour"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "armour", "b.png"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "armour", "a.png"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.txt"), nil, 0o644))

	files, err := NewLocal().ListFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "armour", "a.png"),
		filepath.Join(root, "armour", "b.png"),
		filepath.Join(root, "c.txt"),
	}, files)
}

func TestListFilesMissingRoot(t *testing.T) {
	_, err := NewLocal().ListFiles(filepath.Join(t.TempDir(), "nie-ma"))
	assert.Error(t, err)
}

func TestReadFileBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lore.txt")
	require.NoError(t, os.WriteFile(path, []byte("treść"), 0o644))

	data, err := NewLocal().ReadFileBytes(path)
	require.NoError(t, err)
	assert.Equal(t, "treść", string(data))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "assets"), ExpandHome("~/assets"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
}
