package load

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"jsonload/internal/manifest"
	"jsonload/internal/objstore"
	"jsonload/internal/warehouse"
)

// ManifestCopyStep appends only the objects that arrived since its last
// successful run. The manifest publishes the objects missing from the
// journal, COPY loads exactly those, and the journal is advanced to the full
// listing once the load is committed.
type ManifestCopyStep struct {
	copyStep
	manifest manifest.Manifest
}

// NewManifestCopyStep returns an incremental step journaled by m.
func NewManifestCopyStep(log *zap.Logger, bucket objstore.Bucket, dialect warehouse.Dialect, db warehouse.Executor, creds Credentials, m manifest.Manifest, opts CopyOptions) *ManifestCopyStep {
	return &ManifestCopyStep{
		copyStep: newCopyStep(log, "manifestcopy", bucket, dialect, db, creds, opts),
		manifest: m,
	}
}

// Run loads the pending objects, commits the connection and then the
// journal.
func (s *ManifestCopyStep) Run(ctx context.Context) error {
	journal, err := s.load(ctx, false)
	if err != nil {
		return err
	}
	if err := s.db.Commit(); err != nil {
		return Error.Wrap(err)
	}
	if err := s.manifest.Commit(ctx, journal); err != nil {
		return Error.Wrap(err)
	}
	if err := s.sidecar.Cleanup(ctx); err != nil {
		return err
	}
	s.log.Info("objects appended", zap.Int("journal", len(journal)))
	return nil
}

// Validate runs the same statements with a no-load COPY, rolls back and
// leaves the journal untouched.
func (s *ManifestCopyStep) Validate(ctx context.Context) error {
	if _, err := s.load(ctx, true); err != nil {
		return s.abort(ctx, err)
	}
	if err := s.sidecar.Rollback(ctx); err != nil {
		return err
	}
	s.log.Info("validated")
	return nil
}

func (s *ManifestCopyStep) load(ctx context.Context, noLoad bool) ([]string, error) {
	if err := s.sidecar.Stage(ctx); err != nil {
		return nil, err
	}
	journal, err := s.manifest.Save(ctx)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if err := s.provision(ctx); err != nil {
		return nil, err
	}
	err = s.exec(ctx, copyCommand{
		table:    s.object.Table(),
		from:     s.manifest.URL(),
		paths:    s.sidecar.URL(),
		creds:    s.creds,
		manifest: true,
		maxError: s.maxError,
		noLoad:   noLoad,
	})
	return journal, err
}

// provision makes sure the live table can be appended to. A table that
// exists without a journal holds rows of unknown provenance and is
// recreated.
func (s *ManifestCopyStep) provision(ctx context.Context) error {
	exists, err := s.table.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return s.table.Create(ctx)
	}

	journaled, err := s.manifest.JournalExists(ctx)
	if err != nil {
		return Error.Wrap(err)
	}
	if journaled {
		return nil
	}
	s.log.Info("recreating table without journal")
	if err := s.table.Drop(ctx); err != nil {
		return err
	}
	return s.table.Create(ctx)
}

func (s *ManifestCopyStep) String() string {
	return fmt.Sprintf("manifest_copy(%s)", s.object.Table())
}
