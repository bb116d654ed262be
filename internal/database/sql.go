package database

import (
	"context"
	"database/sql"
	"fmt"

	"ecommerce-dashboard/internal/dataset"
)

// sqlDriver is the database/sql side shared by MySQL and SQLite.
type sqlDriver struct {
	db      *sql.DB
	kind    string
	dialect dialect
	maxOpen int
}

func (d *sqlDriver) open(ctx context.Context, driverName, dsn string) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return err
	}
	if d.maxOpen > 0 {
		db.SetMaxOpenConns(d.maxOpen)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping %s: %w", d.kind, err)
	}
	d.db = db
	return nil
}

func (d *sqlDriver) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *sqlDriver) Reset(ctx context.Context) error {
	for _, table := range dataset.AllTables {
		if _, err := d.db.ExecContext(ctx, dropTable(table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		if _, err := d.db.ExecContext(ctx, d.dialect.createTable(table)); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	return nil
}

func (d *sqlDriver) executeTx(ctx context.Context, txFunc func(tx *sql.Tx) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	return txFunc(tx)
}

// Import inserts every table in one transaction, in batches of importBatch
// rows.
func (d *sqlDriver) Import(ctx context.Context, t *dataset.Tables) error {
	return d.executeTx(ctx, func(tx *sql.Tx) error {
		for _, table := range dataset.AllTables {
			recs := t.Records(table)
			cols := table.Columns()
			for start := 0; start < len(recs); start += importBatch {
				end := min(start+importBatch, len(recs))
				args := make([]any, 0, (end-start)*(len(cols)+1))
				for i := start; i < end; i++ {
					args = append(args, i)
					for _, col := range cols {
						args = append(args, sqlValue(col, recs[i][col]))
					}
				}
				if _, err := tx.ExecContext(ctx, d.dialect.insertRows(table, end-start), args...); err != nil {
					return fmt.Errorf("insert into %s: %w", table, err)
				}
			}
		}
		return nil
	})
}

func (d *sqlDriver) Load(ctx context.Context) (*dataset.Tables, error) {
	tables := &dataset.Tables{}
	for _, table := range dataset.AllTables {
		if err := d.loadTable(ctx, table, tables); err != nil {
			return nil, dataset.Unavailable(table, d.kind, err)
		}
	}
	return tables, nil
}

func (d *sqlDriver) loadTable(ctx context.Context, table dataset.Table, tables *dataset.Tables) error {
	rows, err := d.db.QueryContext(ctx, d.dialect.selectTable(table))
	if err != nil {
		return err
	}
	defer rows.Close()

	return appendRows(rows, table, tables)
}

func (d *sqlDriver) Fingerprint(ctx context.Context) (string, error) {
	return countFingerprint(ctx, func(ctx context.Context, table dataset.Table) (int64, error) {
		var n int64
		err := d.db.QueryRowContext(ctx, countRows(table)).Scan(&n)
		return n, err
	}, d.kind)
}
