package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, firstRun, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, firstRun)
	assert.FileExists(t, path)

	// wszystkie operacje pipeline'u mają sekcje od pierwszego startu
	for _, name := range []string{"scan-assets", "classify-subtypes", "build-sets", "import-lore"} {
		assert.Contains(t, cfg.Operations, name)
	}
	assert.Equal(t, "sqlite", cfg.DB.Driver)

	// drugi odczyt już nie tworzy
	cfg2, firstRun, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, firstRun)
	assert.Equal(t, cfg.ReportDir, cfg2.ReportDir)
}

func TestUnmarshalOperation(t *testing.T) {
	cfg := Default()

	var sets SetsDefaults
	require.NoError(t, cfg.UnmarshalOperation("build-sets", &sets))
	assert.Equal(t, 0.10, sets.DiscountRate)
	assert.GreaterOrEqual(t, len(sets.PieceWords), 10)

	var lore LoreDefaults
	require.NoError(t, cfg.UnmarshalOperation("import-lore", &lore))
	assert.Equal(t, 0.93, lore.Threshold)
	assert.Equal(t, 0.75, lore.HardFloor)

	err := cfg.UnmarshalOperation("nie-ma-takiej", &lore)
	assert.Error(t, err)
}

func TestLoadBrokenConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{zepsuty json"), 0o644))

	_, _, err := LoadOrCreate(path)
	assert.Error(t, err)
}
