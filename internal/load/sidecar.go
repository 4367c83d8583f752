package load

import (
	"context"

	"github.com/zeebo/errs"

	"jsonload/internal/objstore"
	"jsonload/internal/schema"
	"jsonload/internal/warehouse"
)

// sidecar publishes the JSON-path descriptor a COPY reads and finishes the
// step's transaction. The descriptor lives only for the duration of a step.
type sidecar struct {
	bucket objstore.Bucket
	db     warehouse.Executor
	object *schema.JSONObject
	key    string
}

func newSidecar(bucket objstore.Bucket, db warehouse.Executor, metadata string, o *schema.JSONObject) sidecar {
	return sidecar{
		bucket: bucket,
		db:     db,
		object: o,
		key:    objstore.Join(metadata, o.FileName()),
	}
}

// URL is the warehouse-facing URL of the descriptor.
func (s sidecar) URL() string { return objstore.URL(s.bucket, s.key) }

// Stage writes the descriptor and opens the connection.
func (s sidecar) Stage(ctx context.Context) error {
	data, err := s.object.Descriptor()
	if err != nil {
		return Error.Wrap(err)
	}
	if err := s.bucket.Save(ctx, s.key, data); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(s.db.Open(ctx))
}

// Commit commits the connection, then removes the descriptor.
func (s sidecar) Commit(ctx context.Context) error {
	if err := s.db.Commit(); err != nil {
		return Error.Wrap(err)
	}
	return s.Cleanup(ctx)
}

// Rollback rolls the connection back and removes the descriptor.
func (s sidecar) Rollback(ctx context.Context) error {
	err := s.db.Rollback()
	return errs.Combine(Error.Wrap(err), s.Cleanup(ctx))
}

// Cleanup removes the descriptor.
func (s sidecar) Cleanup(ctx context.Context) error {
	return Error.Wrap(s.bucket.Delete(ctx, s.key))
}
