// Package redshift registers the Redshift dialect. Redshift speaks the
// Postgres wire protocol, so connections go through pgx's database/sql
// driver; the warehouse-specific part is the COPY statement, which only this
// dialect supports.
package redshift

import (
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"jsonload/internal/warehouse"
)

// Name is the dialect name used in configuration.
const Name = "redshift"

func init() {
	warehouse.Register(warehouse.Dialect{
		Name:        Name,
		Driver:      "pgx",
		TableExists: "SELECT 1 FROM pg_tables WHERE tablename = $1",
		Rename:      warehouse.AlterRename,
		Copy:        true,
		ParseDSN: func(dsn string) error {
			_, err := pgx.ParseConfig(dsn)
			return err
		},
	})
}
