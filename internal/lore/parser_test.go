package lore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLore = `Alberich's Helm [12010]
Pointed helm of the sorcerer Alberich.
Traitor to the Golden Order.

Alberich's Robe [12011]
Red-stitched robe worn by Alberich.
`

func TestParseBlocks(t *testing.T) {
	entries, orphans := Parse(strings.NewReader(sampleLore))
	require.Len(t, entries, 2)
	assert.Zero(t, orphans)

	assert.Equal(t, "12010", entries[0].SourceKey)
	assert.Equal(t, "Alberich's Helm", entries[0].Name)
	assert.Equal(t, "Pointed helm of the sorcerer Alberich.\nTraitor to the Golden Order.", entries[0].Text)

	assert.Equal(t, "12011", entries[1].SourceKey)
	assert.Equal(t, "Red-stitched robe worn by Alberich.", entries[1].Text)
}

func TestParseOrphanLines(t *testing.T) {
	in := "zgubiona linia\ndruga zgubiona\n\nOmen Hood [333]\nopis\n"
	entries, orphans := Parse(strings.NewReader(in))
	require.Len(t, entries, 1)
	assert.Equal(t, 2, orphans, "pusta linia przed nagłówkiem nie liczy się jako sierota")
	assert.Equal(t, "Omen Hood", entries[0].Name)
}

func TestParseHeaderWithoutBody(t *testing.T) {
	entries, orphans := Parse(strings.NewReader("Omen Hood [333]\n"))
	require.Len(t, entries, 1)
	assert.Zero(t, orphans)
	assert.Empty(t, entries[0].Text)
}

func TestParseEmptyInput(t *testing.T) {
	entries, orphans := Parse(strings.NewReader(""))
	assert.Empty(t, entries)
	assert.Zero(t, orphans)
}

func TestParseHeaderNeedsNumericCode(t *testing.T) {
	// nawias bez kodu liczbowego to zwykła treść, nie nagłówek
	in := "Omen Hood [333]\nwers z [nawiasem] w środku\n"
	entries, _ := Parse(strings.NewReader(in))
	require.Len(t, entries, 1)
	assert.Equal(t, "wers z [nawiasem] w środku", entries[0].Text)
}
