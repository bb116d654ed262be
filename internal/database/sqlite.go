package database

import (
	"context"

	_ "modernc.org/sqlite"
)

// SQLiteDriver keeps the dataset in a single SQLite file, or in memory for
// ":memory:".
type SQLiteDriver struct {
	sqlDriver
}

func (sd *SQLiteDriver) Connect(ctx context.Context, dsn string) error {
	sd.kind = KindSQLite
	sd.dialect = sqliteDialect
	// one connection, so an in-memory database is shared by every query
	sd.maxOpen = 1
	return sd.open(ctx, "sqlite", dsn)
}
