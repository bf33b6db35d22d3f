// internal/catalog/store.go
package catalog

import (
	"errors"
	"time"

	"github.com/bartek5186/assets2shop/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter — proste filtrowanie listy produktów
type ProductFilter struct {
	Category string
	Subtype  string
	InSet    *bool // true = tylko w zestawie, false = tylko luzem
}

// Store — katalog sklepu widziany przez operacje pipeline'u.
// Pipeline nie dotyka gorm-a bezpośrednio poza tym pakietem.
type Store interface {
	FindProduct(name string) (*db.Product, error)
	FindProductBySKU(sku string) (*db.Product, error)
	UpsertProduct(p *db.Product) error
	ListProducts(f ProductFilter) ([]db.Product, error)

	FindSet(name string) (*db.ProductSet, error)
	UpsertSet(s *db.ProductSet) error
	ListSets() ([]db.ProductSet, error)
	SetMembers(setID uint) ([]db.Product, error)

	ListAvailability(productID uint) ([]uint, error)
	ReplaceAvailability(productID uint, setIDs []uint) error
	ReplaceGallery(setID uint, refs []string) error

	SaveIssue(issue db.CatalogIssue) error
	ClearIssues(reasons ...string) error

	// Tx wykonuje fn na store w jednej transakcji. Grupa zestawu
	// commitowana jako całość albo wcale.
	Tx(fn func(Store) error) error
}

type gormStore struct {
	gdb *gorm.DB
}

func NewStore(gdb *gorm.DB) Store {
	return &gormStore{gdb: gdb}
}

func (s *gormStore) FindProduct(name string) (*db.Product, error) {
	var p db.Product
	err := s.gdb.Where("name = ?", name).Order("id").Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) FindProductBySKU(sku string) (*db.Product, error) {
	var p db.Product
	err := s.gdb.Where("sku = ?", sku).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) UpsertProduct(p *db.Product) error {
	return s.gdb.Save(p).Error
}

func (s *gormStore) ListProducts(f ProductFilter) ([]db.Product, error) {
	q := s.gdb.Model(&db.Product{}).Order("id")
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Subtype != "" {
		q = q.Where("subtype = ?", f.Subtype)
	}
	if f.InSet != nil {
		if *f.InSet {
			q = q.Where("set_id IS NOT NULL")
		} else {
			q = q.Where("set_id IS NULL")
		}
	}
	var out []db.Product
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *gormStore) FindSet(name string) (*db.ProductSet, error) {
	var ps db.ProductSet
	err := s.gdb.Where("name = ?", name).Take(&ps).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ps, nil
}

func (s *gormStore) UpsertSet(ps *db.ProductSet) error {
	return s.gdb.Save(ps).Error
}

func (s *gormStore) ListSets() ([]db.ProductSet, error) {
	var out []db.ProductSet
	if err := s.gdb.Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *gormStore) SetMembers(setID uint) ([]db.Product, error) {
	var out []db.Product
	// kolejność członków = kolejność wstawienia do katalogu
	if err := s.gdb.Where("set_id = ?", setID).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *gormStore) ListAvailability(productID uint) ([]uint, error) {
	var ids []uint
	err := s.gdb.Model(&db.SetAvailability{}).
		Where("product_id = ?", productID).
		Order("set_id").
		Pluck("set_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *gormStore) ReplaceAvailability(productID uint, setIDs []uint) error {
	if err := s.gdb.Where("product_id = ?", productID).Delete(&db.SetAvailability{}).Error; err != nil {
		return err
	}
	if len(setIDs) == 0 {
		return nil
	}
	rows := make([]db.SetAvailability, 0, len(setIDs))
	for _, id := range setIDs {
		rows = append(rows, db.SetAvailability{ProductID: productID, SetID: id})
	}
	return s.gdb.Create(&rows).Error
}

func (s *gormStore) ReplaceGallery(setID uint, refs []string) error {
	if err := s.gdb.Where("set_id = ?", setID).Delete(&db.GalleryImage{}).Error; err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}
	rows := make([]db.GalleryImage, 0, len(refs))
	for n, ref := range refs {
		rows = append(rows, db.GalleryImage{SetID: setID, Ref: ref, SortOrder: n})
	}
	return s.gdb.Create(&rows).Error
}

// SaveIssue — upsert pojedynczego problemu po (subject, reason)
func (s *gormStore) SaveIssue(issue db.CatalogIssue) error {
	return s.gdb.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subject"},
			{Name: "reason"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"details":    issue.Details,
			"with_ids":   issue.WithIDs,
			"updated_at": time.Now(),
		}),
	}).Create(&issue).Error
}

// ClearIssues — pełny rebuild problemów danego typu przed przebiegiem
func (s *gormStore) ClearIssues(reasons ...string) error {
	q := s.gdb.Session(&gorm.Session{AllowGlobalUpdate: true})
	if len(reasons) > 0 {
		q = s.gdb.Where("reason IN ?", reasons)
	}
	return q.Delete(&db.CatalogIssue{}).Error
}

func (s *gormStore) Tx(fn func(Store) error) error {
	return s.gdb.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{gdb: tx})
	})
}
