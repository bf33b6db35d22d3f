// internal/db/models.go
package db

import "time"

// Zamknięta taksonomia podtypów. Wszystko spoza listy = unclassified.
// Materiał dla pancerza, typ broni dla broni i tarcz.
const (
	SubtypeCloth   = "cloth"
	SubtypeLeather = "leather"
	SubtypePlate   = "plate"

	SubtypeStaff   = "staff"
	SubtypeBow     = "bow"
	SubtypeDagger  = "dagger"
	SubtypeWhip    = "whip"
	SubtypeHammer  = "hammer"
	SubtypeAxe     = "axe"
	SubtypePolearm = "polearm"
	SubtypeSword   = "sword"
	SubtypeFist    = "fist"

	SubtypeUnclassified = "unclassified"
)

// Kategorie produktów (z nazwy folderu w bibliotece assetów)
const (
	CategoryWeapon     = "weapon"
	CategoryShield     = "shield"
	CategoryArmour     = "armour"
	CategoryRelic      = "relic"
	CategoryConsumable = "consumable"
)

// products
type Product struct {
	ID         uint   `gorm:"primaryKey"`
	SKU        string `gorm:"uniqueIndex;size:64"`
	Name       string `gorm:"index"`
	Category   string `gorm:"index;default:relic"`
	Subtype    string `gorm:"index;default:unclassified"`
	PricePence uint
	StockQty   uint
	Published  bool
	LoreShort  string
	LoreText   string `gorm:"type:text"`
	ImageRef   string // ścieżka głównego assetu względem źródła
	SetID      *uint  `gorm:"index"` // właścicielski zestaw (max jeden)
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// product_sets
type ProductSet struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"uniqueIndex;size:160"`
	Slug             string `gorm:"uniqueIndex;size:180"`
	HeroImageRef     string
	BundlePricePence uint
	DiscountRate     float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// set_availabilities — element pasuje do zestawu, ale nie jest jego własnością
// (kupno "tylko brakujących części"). Nigdy nie dubluje własności z Product.SetID.
type SetAvailability struct {
	ID        uint `gorm:"primaryKey"`
	ProductID uint `gorm:"index;uniqueIndex:uniq_availability"`
	SetID     uint `gorm:"uniqueIndex:uniq_availability"`
	CreatedAt time.Time
}

// gallery_images — galeria zestawu budowana z assetów członków
type GalleryImage struct {
	ID        uint   `gorm:"primaryKey"`
	SetID     uint   `gorm:"index;uniqueIndex:uniq_gallery"`
	Ref       string `gorm:"size:255;uniqueIndex:uniq_gallery"`
	SortOrder int
	CreatedAt time.Time
}

// catalog_issues — trwały rejestr problemów klasyfikacji/grupowania,
// przebudowywany przy każdym przebiegu (upsert po subject+reason).
type CatalogIssue struct {
	IssueID   uint   `gorm:"primaryKey;column:issue_id"`
	Subject   string `gorm:"size:160;uniqueIndex:uniq_issue_key"`
	Reason    string `gorm:"size:64;uniqueIndex:uniq_issue_key"`
	Details   string `gorm:"type:text"`
	WithIDs   string `gorm:"type:text"` // JSON z id-kami powiązanych rekordów
	CreatedAt time.Time
	UpdatedAt time.Time
}
