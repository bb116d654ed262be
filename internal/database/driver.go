package database

import (
	"context"
	"fmt"
	"strconv"

	"ecommerce-dashboard/internal/dataset"

	"github.com/cespare/xxhash/v2"
)

// Source serves the six extracts from a database.
type Source interface {
	Connect(ctx context.Context, dsn string) error
	Close() error
	Load(ctx context.Context) (*dataset.Tables, error)
	Fingerprint(ctx context.Context) (string, error)
}

// Importer replaces the dataset held by a database.
type Importer interface {
	// Reset drops and recreates the dataset tables.
	Reset(ctx context.Context) error
	Import(ctx context.Context, t *dataset.Tables) error
}

type Driver interface {
	Source
	Importer
}

const (
	KindPostgres = "postgres"
	KindMySQL    = "mysql"
	KindSQLite   = "sqlite"
	KindMongo    = "mongo"
)

var Kinds = []string{KindPostgres, KindMySQL, KindSQLite, KindMongo}

// New returns an unconnected driver of the given kind.
func New(kind string) (Driver, error) {
	switch kind {
	case KindPostgres:
		return &PostgresDriver{}, nil
	case KindMySQL:
		return &MySQLDriver{}, nil
	case KindSQLite:
		return &SQLiteDriver{}, nil
	case KindMongo:
		return &MongoDriver{}, nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", kind)
}

// countFingerprint hashes per-table row counts. It misses edits that keep
// every count unchanged; those need an explicit cache invalidation.
func countFingerprint(ctx context.Context, count func(ctx context.Context, table dataset.Table) (int64, error), source string) (string, error) {
	h := xxhash.New()
	for _, table := range dataset.AllTables {
		n, err := count(ctx, table)
		if err != nil {
			return "", dataset.Unavailable(table, source, err)
		}
		h.WriteString(string(table) + ":" + strconv.FormatInt(n, 10) + ";")
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

const importBatch = 500

// rowScanner is satisfied by both *sql.Rows and pgx.Rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// appendRows decodes text rows laid out as table.Columns().
func appendRows(rows rowScanner, table dataset.Table, tables *dataset.Tables) error {
	cols := table.Columns()
	vals := make([]string, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		rec := make(dataset.Record, len(cols))
		for i, col := range cols {
			rec[col] = vals[i]
		}
		if err := tables.Append(table, rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
