// Package load drives JSON objects from a bucket into warehouse tables.
//
// It provides the destination table lifecycle (TargetTable), the COPY
// statement builder, and the three step kinds a pipeline is made of:
// a full-replace BulkCopyStep, a journal-driven ManifestCopyStep and a
// SQLStep for raw statements. Loader assembles steps that share one bucket
// and one warehouse connection.
package load

import (
	"context"

	"github.com/zeebo/errs"

	"jsonload/internal/ddl"
	"jsonload/internal/schema"
	"jsonload/internal/warehouse"
)

// Error is the error class for load step failures.
var Error = errs.Class("load")

// TargetTable is the destination of a load: the live table and its staging
// table, both derived from a JSONObject. Nothing is cached; every call
// issues exactly one statement against db.
type TargetTable struct {
	object  *schema.JSONObject
	dialect warehouse.Dialect
	db      warehouse.Executor
}

// NewTargetTable returns the TargetTable for o on db.
func NewTargetTable(o *schema.JSONObject, dialect warehouse.Dialect, db warehouse.Executor) *TargetTable {
	return &TargetTable{object: o, dialect: dialect, db: db}
}

// Name is the live table name.
func (t *TargetTable) Name() string { return t.object.Table() }

// UpdateName is the staging table name.
func (t *TargetTable) UpdateName() string { return t.object.UpdateTable() }

// Exists reports whether the live table is present, queried live.
func (t *TargetTable) Exists(ctx context.Context) (bool, error) {
	ok, err := t.db.HasRows(ctx, t.dialect.TableExists, t.Name())
	return ok, Error.Wrap(err)
}

// Create creates the live table with the object's columns.
func (t *TargetTable) Create(ctx context.Context) error {
	return t.create(ctx, t.Name())
}

// StageUpdate creates the staging table with the object's columns.
func (t *TargetTable) StageUpdate(ctx context.Context) error {
	return t.create(ctx, t.UpdateName())
}

// PromoteUpdate renames the staging table to the live table name. The live
// table must not exist.
func (t *TargetTable) PromoteUpdate(ctx context.Context) error {
	return t.exec(ctx, t.dialect.Rename(t.UpdateName(), t.Name()))
}

// InsertUpdate appends the staging table's rows to the live table.
func (t *TargetTable) InsertUpdate(ctx context.Context) error {
	return t.exec(ctx, "INSERT INTO "+t.Name()+" SELECT * FROM "+t.UpdateName())
}

// Drop drops the live table.
func (t *TargetTable) Drop(ctx context.Context) error {
	return t.exec(ctx, "DROP TABLE "+t.Name())
}

func (t *TargetTable) create(ctx context.Context, table string) error {
	stmt, err := ddl.BuildCreateTableSQL(ddl.FromObject(t.object, table))
	if err != nil {
		return Error.Wrap(err)
	}
	return t.exec(ctx, stmt)
}

func (t *TargetTable) exec(ctx context.Context, stmt string) error {
	return Error.Wrap(t.db.Exec(ctx, stmt))
}
