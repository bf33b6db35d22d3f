package db

import (
	"fmt"
)

// Migrate tworzy/aktualizuje schemat bazy.
func (h *Handle) Migrate() error {
	gdb := h.DB

	if err := gdb.AutoMigrate(
		&Product{},
		&ProductSet{},
		&SetAvailability{},
		&GalleryImage{},
		&CatalogIssue{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}

	// Wspólny indeks unikalny dla catalog_issues — jeśli tagi w modelu
	// nie zadziałały na starszej bazie, wymuś go tutaj.
	if !gdb.Migrator().HasIndex(&CatalogIssue{}, "uniq_issue_key") {
		if err := gdb.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS uniq_issue_key
			ON catalog_issues(subject, reason);
		`).Error; err != nil {
			return fmt.Errorf("create index uniq_issue_key: %w", err)
		}
	}

	return nil
}
