package database

import (
	"context"

	"github.com/go-sql-driver/mysql"
)

type MySQLDriver struct {
	sqlDriver
}

func (md *MySQLDriver) Connect(ctx context.Context, dsn string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return err
	}
	// timestamps are read back as text, never as time.Time
	cfg.ParseTime = false
	md.kind = KindMySQL
	md.dialect = mysqlDialect
	return md.open(ctx, "mysql", cfg.FormatDSN())
}
