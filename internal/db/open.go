package db

import (
	"os"
	"path/filepath"
	"strings"

	gpostgres "gorm.io/driver/postgres"
	gsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open opens the backoffice database. Postgres is the deployment target and
// is selected by a postgres://, postgresql:// or pgx:// DSN; anything else is
// treated as a SQLite DSN (sqlite:///path, file:path?cache=shared, :memory:).
// An empty DSN falls back to data/backoffice.db so dev setups need no server.
func Open(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.HasPrefix(dsn, "pgx://") {
		return gorm.Open(gpostgres.Open(dsn), &gorm.Config{})
	}
	if dsn == "" {
		_ = os.MkdirAll("data", 0o755)
		dsn = "file:" + filepath.ToSlash(filepath.Join("data", "backoffice.db"))
	}
	if strings.HasPrefix(dsn, "sqlite:///") {
		dsn = "file:" + strings.TrimPrefix(dsn, "sqlite:///")
	}
	return gorm.Open(gsqlite.Open(dsn), &gorm.Config{})
}
