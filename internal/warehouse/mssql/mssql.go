// Package mssql registers the Microsoft SQL Server dialect.
package mssql

import (
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"github.com/microsoft/go-mssqldb/msdsn"

	"jsonload/internal/warehouse"
)

// Name is the dialect name used in configuration.
const Name = "mssql"

func init() {
	warehouse.Register(warehouse.Dialect{
		Name:        Name,
		Driver:      "sqlserver",
		TableExists: "SELECT 1 FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = @p1",
		Rename:      rename,
		ParseDSN: func(dsn string) error {
			_, err := msdsn.Parse(dsn)
			return err
		},
	})
}

// rename uses sp_rename, which takes the new name unqualified.
func rename(from, to string) string {
	if i := strings.LastIndex(to, "."); i >= 0 {
		to = to[i+1:]
	}
	return fmt.Sprintf("EXEC sp_rename '%s', '%s'", from, to)
}
