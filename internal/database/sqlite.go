package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectSQLite opens a SQLite database, creating the parent directory of
// file-backed DSNs when needed. Foreign keys are enforced so chunks cannot
// outlive their item.
func ConnectSQLite(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "hwplan.db"
	}
	if cfg == nil {
		cfg = &gorm.Config{}
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(withForeignKeys(dsn)), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return db, nil
}

func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir %q: %w", dir, err)
	}
	return nil
}

// withForeignKeys enables SQLite foreign key checks on every pooled
// connection unless the DSN already sets them.
func withForeignKeys(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.Contains(lower, "_foreign_keys=") || strings.Contains(lower, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
