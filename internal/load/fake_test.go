package load

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jsonload/internal/warehouse"
)

// fakeDB records statements and tracks which tables exist, so step state
// machines can be checked without a warehouse.
type fakeDB struct {
	tables map[string]bool

	opened    int
	stmts     []string
	args      [][]any
	commits   int
	rollbacks int
	secrets   []string

	failOn   string
	onExec   func(query string)
	onCommit func()
}

var _ warehouse.Executor = (*fakeDB)(nil)

func newFakeDB(tables ...string) *fakeDB {
	db := &fakeDB{tables: map[string]bool{}}
	for _, t := range tables {
		db.tables[t] = true
	}
	return db
}

func (db *fakeDB) Open(ctx context.Context) error {
	db.opened++
	return nil
}

func (db *fakeDB) Exec(ctx context.Context, query string, args ...any) error {
	if db.failOn != "" && strings.Contains(query, db.failOn) {
		return errors.New("exec failed: " + db.failOn)
	}
	db.stmts = append(db.stmts, query)
	db.args = append(db.args, args)
	if db.onExec != nil {
		db.onExec(query)
	}

	var from, to string
	switch {
	case strings.HasPrefix(query, "CREATE TABLE "):
		name := strings.Fields(query)[2]
		db.tables[name] = true
	case strings.HasPrefix(query, "DROP TABLE "):
		delete(db.tables, strings.Fields(query)[2])
	case strings.HasPrefix(query, "ALTER TABLE "):
		if _, err := fmt.Sscanf(query, "ALTER TABLE %s RENAME TO %s", &from, &to); err != nil {
			return err
		}
		delete(db.tables, from)
		db.tables[to] = true
	}
	return nil
}

func (db *fakeDB) HasRows(ctx context.Context, query string, args ...any) (bool, error) {
	name, _ := args[0].(string)
	db.stmts = append(db.stmts, "EXISTS "+name)
	db.args = append(db.args, args)
	return db.tables[name], nil
}

func (db *fakeDB) Commit() error {
	db.commits++
	if db.onCommit != nil {
		db.onCommit()
	}
	return nil
}

func (db *fakeDB) Rollback() error {
	db.rollbacks++
	return nil
}

func (db *fakeDB) Redact(secrets ...string) {
	db.secrets = append(db.secrets, secrets...)
}

// kinds returns the leading keyword pair of every recorded statement.
func (db *fakeDB) kinds() []string {
	out := make([]string, 0, len(db.stmts))
	for _, s := range db.stmts {
		f := strings.Fields(s)
		switch f[0] {
		case "EXISTS":
			out = append(out, s)
		case "COPY":
			out = append(out, "COPY "+f[1])
		default:
			out = append(out, f[0]+" "+f[1]+" "+f[2])
		}
	}
	return out
}
