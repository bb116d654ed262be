package database

import (
	"context"
	"fmt"

	"ecommerce-dashboard/internal/dataset"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool is the part of *pgxpool.Pool the driver uses, so tests can swap in
// a mock pool.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type PostgresDriver struct {
	pool DBPool
}

// NewPostgresDriver wraps an already open pool.
func NewPostgresDriver(pool DBPool) *PostgresDriver {
	return &PostgresDriver{pool: pool}
}

func (pd *PostgresDriver) Connect(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	pd.pool = pool
	return nil
}

func (pd *PostgresDriver) Close() error {
	if pd.pool != nil {
		pd.pool.Close()
	}
	return nil
}

func (pd *PostgresDriver) Reset(ctx context.Context) error {
	for _, table := range dataset.AllTables {
		if _, err := pd.pool.Exec(ctx, dropTable(table)+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		if _, err := pd.pool.Exec(ctx, postgresDialect.createTable(table)); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	return nil
}

func (pd *PostgresDriver) executeTx(ctx context.Context, txFunc func(tx pgx.Tx) error) (err error) {
	tx, err := pd.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error while starting transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	return txFunc(tx)
}

// Import streams each table with COPY inside one transaction.
func (pd *PostgresDriver) Import(ctx context.Context, t *dataset.Tables) error {
	return pd.executeTx(ctx, func(tx pgx.Tx) error {
		for _, table := range dataset.AllTables {
			cols := append([]string{rowColumn}, table.Columns()...)
			rows := copyRows(t, table)
			if len(rows) == 0 {
				continue
			}
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{string(table)}, cols, pgx.CopyFromRows(rows)); err != nil {
				return fmt.Errorf("failed to copy into %s: %w", table, err)
			}
		}
		return nil
	})
}

func copyRows(t *dataset.Tables, table dataset.Table) [][]any {
	if table == dataset.TableOrderItems {
		rows := make([][]any, len(t.OrderItems))
		for i, it := range t.OrderItems {
			rows[i] = []any{
				int32(i), it.OrderID, int32(it.Seq), it.ProductID,
				pgtype.Numeric{Int: it.Price.Decimal().Coefficient(), Exp: it.Price.Decimal().Exponent(), Valid: true},
			}
		}
		return rows
	}
	recs := t.Records(table)
	cols := table.Columns()
	rows := make([][]any, len(recs))
	for i, rec := range recs {
		row := make([]any, 0, len(cols)+1)
		row = append(row, int32(i))
		for _, col := range cols {
			v := sqlValue(col, rec[col])
			if n, ok := v.(int); ok {
				v = int32(n)
			}
			row = append(row, v)
		}
		rows[i] = row
	}
	return rows
}

func (pd *PostgresDriver) Load(ctx context.Context) (*dataset.Tables, error) {
	tables := &dataset.Tables{}
	for _, table := range dataset.AllTables {
		if err := pd.loadTable(ctx, table, tables); err != nil {
			return nil, dataset.Unavailable(table, KindPostgres, err)
		}
	}
	return tables, nil
}

func (pd *PostgresDriver) loadTable(ctx context.Context, table dataset.Table, tables *dataset.Tables) error {
	rows, err := pd.pool.Query(ctx, postgresDialect.selectTable(table))
	if err != nil {
		return err
	}
	defer rows.Close()

	return appendRows(rows, table, tables)
}

func (pd *PostgresDriver) Fingerprint(ctx context.Context) (string, error) {
	return countFingerprint(ctx, func(ctx context.Context, table dataset.Table) (int64, error) {
		var n int64
		err := pd.pool.QueryRow(ctx, countRows(table)).Scan(&n)
		return n, err
	}, KindPostgres)
}
