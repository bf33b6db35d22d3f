package lore

import (
	"context"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bartek5186/assets2shop/internal/catalog"
	"github.com/bartek5186/assets2shop/internal/db"
	"github.com/bartek5186/assets2shop/internal/ops"
	"github.com/bartek5186/assets2shop/internal/report"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMedia struct {
	files map[string][]byte
}

func (m fakeMedia) ListFiles(root string) ([]string, error) {
	var out []string
	for p := range m.files {
		out = append(out, p)
	}
	return out, nil
}

func (m fakeMedia) ReadFileBytes(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func newTestStore(t *testing.T) catalog.Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	h := &db.Handle{DB: gdb}
	require.NoError(t, h.Migrate())
	return catalog.NewStore(gdb)
}

func seedProducts(t *testing.T, store catalog.Store, names ...string) {
	t.Helper()
	for _, name := range names {
		sku := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(name, "'", ""), " ", "_"))
		p := db.Product{SKU: sku, Name: name, Category: db.CategoryArmour}
		require.NoError(t, store.UpsertProduct(&p))
	}
}

func loreDeps(t *testing.T, loreText string, names ...string) ops.Deps {
	t.Helper()
	store := newTestStore(t)
	seedProducts(t, store, names...)
	return ops.Deps{
		Store: store,
		Media: fakeMedia{files: map[string][]byte{"data/lore.txt": []byte(loreText)}},
	}
}

func testLoreOp() *loreOp {
	return &loreOp{
		log: zerolog.Nop(),
		cfg: Config{Path: "data/lore.txt", Encoding: "utf-8", Threshold: 0.93, HardFloor: 0.75},
	}
}

func TestLoreAttachesExactMatch(t *testing.T) {
	deps := loreDeps(t, sampleLore, "Alberich's Helm", "Alberich's Robe")

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Count(report.ActionUpdated))
	assert.Zero(t, rep.Warnings())

	p, err := deps.Store.FindProduct("Alberich's Helm")
	require.NoError(t, err)
	assert.Equal(t, "Pointed helm of the sorcerer Alberich.\nTraitor to the Golden Order.", p.LoreText)
	assert.Equal(t, "Pointed helm of the sorcerer Alberich.", p.LoreShort, "short = pierwsza linia")
}

func TestLoreAttachesTypoAboveThreshold(t *testing.T) {
	// nazwa w eksporcie z literówką — ratio 0.96 > 0.93
	deps := loreDeps(t, "Alberic Helm [1]\nopis helmu\n", "Alberich Helm")

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(report.ActionUpdated))

	p, err := deps.Store.FindProduct("Alberich Helm")
	require.NoError(t, err)
	assert.Equal(t, "opis helmu", p.LoreText)
}

func TestLoreLowConfidenceNotAttached(t *testing.T) {
	// podobieństwo między hard_floor a threshold: raport, zero zapisu
	deps := loreDeps(t, "Alberich Hood [1]\nopis\n", "Alberich Helm")

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(report.ActionLowConfidence))

	p, err := deps.Store.FindProduct("Alberich Helm")
	require.NoError(t, err)
	assert.Empty(t, p.LoreText)
}

func TestLoreUnmatchedBelowFloor(t *testing.T) {
	deps := loreDeps(t, "Flask of Crimson Tears [1]\nopis\n", "Alberich Helm")

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(report.ActionUnmatched))
}

func TestLoreThresholdOverride(t *testing.T) {
	deps := loreDeps(t, "Alberich Hood [1]\nopis\n", "Alberich Helm")

	low := 0.76
	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{Threshold: &low})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(report.ActionUpdated), "obniżony próg dopina to samo dopasowanie")
}

func TestLoreOverwriteRefused(t *testing.T) {
	deps := loreDeps(t, "Alberich Helm [1]\nnowy opis\n", "Alberich Helm")

	p, err := deps.Store.FindProduct("Alberich Helm")
	require.NoError(t, err)
	p.LoreText = "ręcznie napisany opis"
	require.NoError(t, deps.Store.UpsertProduct(p))

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Count(report.ActionRefused))
	assert.Equal(t, "ręcznie napisany opis", rep.Rows[0].Before, "stara wartość w raporcie")

	p, err = deps.Store.FindProduct("Alberich Helm")
	require.NoError(t, err)
	assert.Equal(t, "ręcznie napisany opis", p.LoreText, "bez flagi overwrite nic nie ginie")
}

func TestLoreOverwriteFlag(t *testing.T) {
	deps := loreDeps(t, "Alberich Helm [1]\nnowy opis\n", "Alberich Helm")

	p, err := deps.Store.FindProduct("Alberich Helm")
	require.NoError(t, err)
	p.LoreText = "stary opis"
	require.NoError(t, deps.Store.UpsertProduct(p))

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{Overwrite: true})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Count(report.ActionUpdated))
	assert.Equal(t, "stary opis", rep.Rows[0].Before)

	p, err = deps.Store.FindProduct("Alberich Helm")
	require.NoError(t, err)
	assert.Equal(t, "nowy opis", p.LoreText)
}

func TestLoreDuplicateEntryFirstWins(t *testing.T) {
	in := "Alberich Helm [1]\npierwszy opis\n\nAlberich Helm [2]\ndrugi opis\n"
	deps := loreDeps(t, in, "Alberich Helm")

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(report.ActionUpdated))
	assert.Equal(t, 1, rep.Count(report.ActionDupSkipped))

	p, err := deps.Store.FindProduct("Alberich Helm")
	require.NoError(t, err)
	assert.Equal(t, "pierwszy opis", p.LoreText)
}

func TestLoreIdempotent(t *testing.T) {
	deps := loreDeps(t, sampleLore, "Alberich's Helm", "Alberich's Robe")
	op := testLoreOp()

	_, err := op.Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)

	rep, err := op.Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)
	assert.Zero(t, rep.Mutations())
	assert.Equal(t, 2, rep.Count(report.ActionUnchanged))
}

func TestLoreDryRunWritesNothing(t *testing.T) {
	deps := loreDeps(t, sampleLore, "Alberich's Helm", "Alberich's Robe")

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Count(report.ActionUpdated), "dry-run liczy score i raportuje")

	p, err := deps.Store.FindProduct("Alberich's Helm")
	require.NoError(t, err)
	assert.Empty(t, p.LoreText)
}

func TestLoreMissingFileIsFatal(t *testing.T) {
	deps := ops.Deps{Store: newTestStore(t), Media: fakeMedia{files: map[string][]byte{}}}

	_, err := testLoreOp().Run(context.Background(), deps, ops.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ops.ErrUnreadableSource)
}

func TestLoreOrphanLinesReported(t *testing.T) {
	in := "zgubiona linia\nOmen Hood [1]\nopis\n"
	deps := loreDeps(t, in, "Omen Hood")

	rep, err := testLoreOp().Run(context.Background(), deps, ops.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(report.ActionParseSkip))
	assert.Equal(t, 1, rep.Count(report.ActionUpdated))
}

func TestShortDescTruncation(t *testing.T) {
	long := strings.Repeat("a", 250) + "\ndruga linia"
	got := shortDesc(long)
	assert.Len(t, got, 200)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "krótki opis", shortDesc("krótki opis\nreszta"))

	// znaki wielobajtowe: cięcie nie może rozrywać runy w połowie
	multibyte := strings.Repeat("ż", 250)
	got = shortDesc(multibyte)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 200, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestBestMatchTieBreaksByDistanceThenID(t *testing.T) {
	products := []db.Product{
		{ID: 1, Name: "Omen Hoodx"},
		{ID: 2, Name: "Omen Hood"},
	}
	norms := []string{NormName(products[0].Name), NormName(products[1].Name)}

	idx, score := bestMatch(NormName("Omen Hood"), products, norms)
	assert.Equal(t, 1, idx, "pełne dopasowanie wygrywa")
	assert.Equal(t, 1.0, score)

	same := []db.Product{
		{ID: 5, Name: "Omen Hood"},
		{ID: 6, Name: "Omen Hood"},
	}
	sameNorms := []string{"omen hood", "omen hood"}
	idx, _ = bestMatch("omen hood", same, sameNorms)
	assert.Equal(t, 0, idx, "pełny remis — niższe ID")
}
