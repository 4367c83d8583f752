// Package mysql registers the MySQL dialect.
//
// MySQL commits DDL implicitly, so staging and promotion are visible before
// the step commits; use it for raw-SQL steps rather than atomic replaces.
package mysql

import (
	"github.com/go-sql-driver/mysql"

	"jsonload/internal/warehouse"
)

// Name is the dialect name used in configuration.
const Name = "mysql"

func init() {
	warehouse.Register(warehouse.Dialect{
		Name:        Name,
		Driver:      "mysql",
		TableExists: "SELECT 1 FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
		Rename: func(from, to string) string {
			return "RENAME TABLE " + from + " TO " + to
		},
		ParseDSN: func(dsn string) error {
			_, err := mysql.ParseDSN(dsn)
			return err
		},
	})
}
