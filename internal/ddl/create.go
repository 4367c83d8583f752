// Package ddl renders the CREATE TABLE statements used for live and staging
// tables.
//
// The package is dialect-neutral: identifiers and types are emitted verbatim,
// so callers are responsible for passing names the destination accepts.
package ddl

import (
	"fmt"
	"strings"

	"jsonload/internal/schema"
)

// ColumnDef describes a single column.
type ColumnDef struct {
	Name    string
	SQLType string
}

// TableDef holds a table name and its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// FromObject derives a table definition for table from the properties of o,
// in declaration order. table is usually o.Table() or o.UpdateTable().
func FromObject(o *schema.JSONObject, table string) TableDef {
	props := o.Properties()
	cols := make([]ColumnDef, 0, len(props))
	for _, p := range props {
		cols = append(cols, ColumnDef{Name: p.Column(), SQLType: p.Type()})
	}
	return TableDef{FQN: table, Columns: cols}
}

// BuildCreateTableSQL renders
//
//	CREATE TABLE <FQN> (<name> <type>, ...)
//
// on a single line. The FQN and every column name and type must be non-empty.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		cols = append(cols, name+" "+typ)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", fqn, strings.Join(cols, ", ")), nil
}
