// Package sqlite registers the SQLite dialect. It backs the relational
// journal and is convenient as a local destination for raw-SQL steps and
// table lifecycle checks.
package sqlite

import (
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"jsonload/internal/warehouse"
)

// Name is the dialect name used in configuration.
const Name = "sqlite"

// Driver is the database/sql driver name.
const Driver = "sqlite"

func init() {
	warehouse.Register(warehouse.Dialect{
		Name:        Name,
		Driver:      Driver,
		TableExists: "SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?",
		Rename:      warehouse.AlterRename,
	})
}
