package classify

import (
	"context"
	"errors"
	"testing"

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

func newTestStore(t *testing.T) catalog.Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	h := &db.Handle{DB: gdb}
	require.NoError(t, h.Migrate())
	return catalog.NewStore(gdb)
}

// store odrzucający zapis jednego SKU — symulacja konfliktu constraintu
type failingStore struct {
	catalog.Store
	failSKU string
}

func (s failingStore) UpsertProduct(p *db.Product) error {
	if p.SKU == s.failSKU {
		return errors.New("UNIQUE constraint failed")
	}
	return s.Store.UpsertProduct(p)
}

func seedProducts(t *testing.T, store catalog.Store, products ...db.Product) {
	t.Helper()
	for i := range products {
		require.NoError(t, store.UpsertProduct(&products[i]))
	}
}

func TestClassifyRun(t *testing.T) {
	store := newTestStore(t)
	seedProducts(t, store,
		db.Product{SKU: "ALBERICHS_ROBE", Name: "Alberich's Robe", Category: db.CategoryArmour, Subtype: db.SubtypeUnclassified},
		db.Product{SKU: "BANISHED_KNIGHT_HELM", Name: "Banished Knight Helm", Category: db.CategoryArmour, Subtype: db.SubtypeUnclassified},
		db.Product{SKU: "CRUCIBLE_AXE", Name: "Crucible Axe", Category: db.CategoryWeapon, Subtype: db.SubtypeUnclassified},
		db.Product{SKU: "CARIAN_KNIGHTS_SHIELD", Name: "Carian Knight's Shield", Category: db.CategoryShield, Subtype: db.SubtypeUnclassified},
		db.Product{SKU: "CRAB_EGGS", Name: "Crab Eggs", Category: db.CategoryConsumable, Subtype: db.SubtypeUnclassified},
	)

	op := &classifyOp{log: zerolog.Nop(), cfg: Config{Rules: DefaultRules()}}
	rep, err := op.Run(context.Background(), ops.Deps{Store: store}, ops.Options{})
	require.NoError(t, err)

	// cały katalog przechodzi przez klasyfikację, nie tylko pancerz
	assert.Equal(t, 5, rep.Count())
	assert.Equal(t, 3, rep.Count(report.ActionUpdated))

	p, err := store.FindProductBySKU("ALBERICHS_ROBE")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypeCloth, p.Subtype)

	p, err = store.FindProductBySKU("BANISHED_KNIGHT_HELM")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypePlate, p.Subtype)

	p, err = store.FindProductBySKU("CRUCIBLE_AXE")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypeAxe, p.Subtype)

	p, err = store.FindProductBySKU("CARIAN_KNIGHTS_SHIELD")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypeUnclassified, p.Subtype, "brak słowa typu broni w nazwie tarczy")

	p, err = store.FindProductBySKU("CRAB_EGGS")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypeUnclassified, p.Subtype, "kategoria bez tabeli reguł")
}

func TestClassifyIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedProducts(t, store,
		db.Product{SKU: "ALBERICHS_ROBE", Name: "Alberich's Robe", Category: db.CategoryArmour, Subtype: db.SubtypeUnclassified},
		db.Product{SKU: "CRUCIBLE_AXE", Name: "Crucible Axe", Category: db.CategoryWeapon, Subtype: db.SubtypeUnclassified},
	)
	op := &classifyOp{log: zerolog.Nop(), cfg: Config{Rules: DefaultRules()}}

	_, err := op.Run(context.Background(), ops.Deps{Store: store}, ops.Options{})
	require.NoError(t, err)

	rep, err := op.Run(context.Background(), ops.Deps{Store: store}, ops.Options{})
	require.NoError(t, err)
	assert.Zero(t, rep.Mutations())
	assert.Equal(t, 2, rep.Count(report.ActionUnchanged))
}

func TestClassifyReclassifiesOnNewEvidence(t *testing.T) {
	store := newTestStore(t)
	seedProducts(t, store,
		db.Product{SKU: "OMEN_GARB", Name: "Omen Garb", Category: db.CategoryArmour, Subtype: db.SubtypeUnclassified},
	)
	op := &classifyOp{log: zerolog.Nop(), cfg: Config{Rules: DefaultRules()}}

	rep, err := op.Run(context.Background(), ops.Deps{Store: store}, ops.Options{})
	require.NoError(t, err)
	assert.Zero(t, rep.Mutations(), "bez dowodów zostaje unclassified")

	// lore dopisane później daje nowy materiał do klasyfikacji
	p, err := store.FindProductBySKU("OMEN_GARB")
	require.NoError(t, err)
	p.LoreText = "Heavy iron plates bolted over cursed flesh."
	require.NoError(t, store.UpsertProduct(p))

	rep, err = op.Run(context.Background(), ops.Deps{Store: store}, ops.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(report.ActionUpdated))

	p, err = store.FindProductBySKU("OMEN_GARB")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypePlate, p.Subtype)
}

func TestClassifyOnlyEmptySkipsClassified(t *testing.T) {
	store := newTestStore(t)
	seedProducts(t, store,
		db.Product{SKU: "ALBERICHS_ROBE", Name: "Alberich's Robe", Category: db.CategoryArmour, Subtype: db.SubtypeLeather}, // ręczna korekta
		db.Product{SKU: "OMEN_HOOD", Name: "Omen Hood", Category: db.CategoryArmour, Subtype: db.SubtypeUnclassified},
	)
	op := &classifyOp{log: zerolog.Nop(), cfg: Config{Rules: DefaultRules(), OnlyEmpty: true}}

	rep, err := op.Run(context.Background(), ops.Deps{Store: store}, ops.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(), "ręcznie sklasyfikowane nie są dotykane")

	p, err := store.FindProductBySKU("ALBERICHS_ROBE")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypeLeather, p.Subtype)
}

func TestClassifyDryRun(t *testing.T) {
	store := newTestStore(t)
	seedProducts(t, store,
		db.Product{SKU: "ALBERICHS_ROBE", Name: "Alberich's Robe", Category: db.CategoryArmour, Subtype: db.SubtypeUnclassified},
	)
	op := &classifyOp{log: zerolog.Nop(), cfg: Config{Rules: DefaultRules()}}

	rep, err := op.Run(context.Background(), ops.Deps{Store: store}, ops.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(report.ActionUpdated))

	p, err := store.FindProductBySKU("ALBERICHS_ROBE")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypeUnclassified, p.Subtype)
}

func TestClassifyPersistFailureContinuesRun(t *testing.T) {
	base := newTestStore(t)
	seedProducts(t, base,
		db.Product{SKU: "ALBERICHS_ROBE", Name: "Alberich's Robe", Category: db.CategoryArmour, Subtype: db.SubtypeUnclassified},
		db.Product{SKU: "CRUCIBLE_AXE", Name: "Crucible Axe", Category: db.CategoryWeapon, Subtype: db.SubtypeUnclassified},
	)
	store := failingStore{Store: base, failSKU: "ALBERICHS_ROBE"}

	op := &classifyOp{log: zerolog.Nop(), cfg: Config{Rules: DefaultRules()}}
	rep, err := op.Run(context.Background(), ops.Deps{Store: store}, ops.Options{})
	require.NoError(t, err, "konflikt zapisu jednego rekordu nie przerywa przebiegu")

	require.Equal(t, 1, rep.Count(report.ActionFailed))
	assert.Equal(t, 1, rep.Count(report.ActionUpdated), "reszta przetworzona mimo konfliktu")

	// odrzucony rekord zostaje bez zmian, reszta zapisana
	p, err := base.FindProductBySKU("ALBERICHS_ROBE")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypeUnclassified, p.Subtype)

	p, err = base.FindProductBySKU("CRUCIBLE_AXE")
	require.NoError(t, err)
	assert.Equal(t, db.SubtypeAxe, p.Subtype)
}
