package warehouse

import (
	"sort"
	"sync"
)

// Dialect captures the statements that differ between destination engines.
// Backends register their Dialect from an init function; importing
// jsonload/internal/warehouse/all makes every built-in dialect available.
type Dialect struct {
	// Name is the configuration name, e.g. "redshift".
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// TableExists is a query yielding at least one row when the table named
	// by its single bind parameter exists.
	TableExists string
	// Rename renders a statement renaming table from to to.
	Rename func(from, to string) string
	// Copy reports whether the dialect understands the warehouse COPY
	// statement used by the bulk and manifest steps.
	Copy bool
	// ParseDSN checks a connection string without connecting. Optional.
	ParseDSN func(dsn string) error
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// Register registers (or replaces) d under d.Name.
func Register(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[d.Name] = d
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	dialectsMu.RLock()
	d, ok := dialects[name]
	dialectsMu.RUnlock()
	if !ok {
		return Dialect{}, Error.New("no dialect registered for %q", name)
	}
	return d, nil
}

// Dialects lists registered dialect names in sorted order.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AlterRename is the ALTER TABLE ... RENAME TO form shared by Postgres,
// Redshift and SQLite.
func AlterRename(from, to string) string {
	return "ALTER TABLE " + from + " RENAME TO " + to
}

// CheckDSN validates dsn with the dialect's parser, when it has one.
func (d Dialect) CheckDSN(dsn string) error {
	if d.ParseDSN == nil {
		return nil
	}
	if err := d.ParseDSN(dsn); err != nil {
		return Error.New("%s dsn: %v", d.Name, err)
	}
	return nil
}
