package db

import (
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Handle struct {
	DB   *gorm.DB
	Path string // opis połączenia do logów (ścieżka pliku lub DSN bez hasła)
}

// Open otwiera bazę wg configa. Sqlite (pure Go) jest domyślny,
// mysql/postgres przez DSN dla instalacji współdzielonych.
func Open(driver, dsn, appDir string) (*Handle, error) {
	switch driver {
	case "", "sqlite":
		path := dsn
		if path == "" {
			path = filepath.Join(appDir, "assets2shop.db")
		}
		gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
			// Logger: logger.Default.LogMode(logger.Info), // włącz jeśli chcesz verbose SQL
		})
		if err != nil {
			return nil, err
		}
		return &Handle{DB: gdb, Path: path}, nil
	case "mysql":
		gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		return &Handle{DB: gdb, Path: "mysql"}, nil
	case "postgres":
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		return &Handle{DB: gdb, Path: "postgres"}, nil
	default:
		return nil, fmt.Errorf("nieznany driver bazy: %q", driver)
	}
}
