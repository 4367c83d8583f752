package load

import (
	"context"
	"fmt"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"jsonload/internal/objstore"
	"jsonload/internal/schema"
	"jsonload/internal/warehouse"
)

// copyStep holds what both COPY-based steps share.
type copyStep struct {
	log      *zap.Logger
	bucket   objstore.Bucket
	db       warehouse.Executor
	object   *schema.JSONObject
	table    *TargetTable
	sidecar  sidecar
	metadata string
	source   string
	creds    Credentials
	maxError int
}

// CopyOptions locate a copy step's source objects and artifacts.
type CopyOptions struct {
	// Metadata is the key prefix for the descriptor, manifest and journal.
	Metadata string
	// Source is the key prefix of the JSON objects to load.
	Source string
	// Object maps the JSON objects onto the destination table.
	Object *schema.JSONObject
	// MaxError is the number of rejected rows COPY tolerates. Callers
	// usually start from DefaultMaxError.
	MaxError int
}

func newCopyStep(log *zap.Logger, name string, bucket objstore.Bucket, dialect warehouse.Dialect, db warehouse.Executor, creds Credentials, opts CopyOptions) copyStep {
	if log == nil {
		log = zap.NewNop()
	}
	return copyStep{
		log:      log.Named(name).With(zap.String("table", opts.Object.Table()), zap.String("source", opts.Source)),
		bucket:   bucket,
		db:       db,
		object:   opts.Object,
		table:    NewTargetTable(opts.Object, dialect, db),
		sidecar:  newSidecar(bucket, db, opts.Metadata, opts.Object),
		metadata: opts.Metadata,
		source:   opts.Source,
		creds:    creds,
		maxError: opts.MaxError,
	}
}

func (s *copyStep) exec(ctx context.Context, cmd copyCommand) error {
	query, args := cmd.Statement().Render()
	s.log.Debug("copy", zap.Stringer("command", cmd), zap.Bool("noload", cmd.noLoad))
	return Error.Wrap(s.db.Exec(ctx, query, args...))
}

// BulkCopyStep replaces a table with every object under a source prefix.
// Rows are loaded into the staging table, which is then renamed over the
// live table, so readers see either the old or the new table in full.
type BulkCopyStep struct {
	copyStep
}

// NewBulkCopyStep returns a full-replace step.
func NewBulkCopyStep(log *zap.Logger, bucket objstore.Bucket, dialect warehouse.Dialect, db warehouse.Executor, creds Credentials, opts CopyOptions) *BulkCopyStep {
	return &BulkCopyStep{copyStep: newCopyStep(log, "bulk", bucket, dialect, db, creds, opts)}
}

// SourceURL is the COPY source: the source prefix in the bucket.
func (s *BulkCopyStep) SourceURL() string {
	return objstore.URL(s.bucket, s.source)
}

// Run loads the source into the table and commits.
func (s *BulkCopyStep) Run(ctx context.Context) error {
	if err := s.load(ctx, false); err != nil {
		return err
	}
	if err := s.sidecar.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("table replaced")
	return nil
}

// Validate performs the same statements with a no-load COPY and rolls back.
func (s *BulkCopyStep) Validate(ctx context.Context) error {
	if err := s.load(ctx, true); err != nil {
		return s.abort(ctx, err)
	}
	if err := s.sidecar.Rollback(ctx); err != nil {
		return err
	}
	s.log.Info("validated")
	return nil
}

func (s *BulkCopyStep) load(ctx context.Context, noLoad bool) error {
	if err := s.sidecar.Stage(ctx); err != nil {
		return err
	}
	if err := s.table.StageUpdate(ctx); err != nil {
		return err
	}
	err := s.exec(ctx, copyCommand{
		table:    s.object.UpdateTable(),
		from:     s.SourceURL(),
		paths:    s.sidecar.URL(),
		creds:    s.creds,
		maxError: s.maxError,
		noLoad:   noLoad,
	})
	if err != nil {
		return err
	}
	return s.promote(ctx)
}

func (s *BulkCopyStep) promote(ctx context.Context) error {
	exists, err := s.table.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		if err := s.table.Drop(ctx); err != nil {
			return err
		}
	}
	return s.table.PromoteUpdate(ctx)
}

func (s *copyStep) abort(ctx context.Context, err error) error {
	return errs.Combine(err, s.sidecar.Rollback(ctx))
}

func (s *BulkCopyStep) String() string {
	return fmt.Sprintf("bulk_copy(%s)", s.object.Table())
}
