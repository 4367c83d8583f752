package load

import (
	"go.uber.org/zap"

	"jsonload/internal/manifest"
	"jsonload/internal/objstore"
	"jsonload/internal/warehouse"
)

// LoaderConfig is what every step built by a Loader shares.
type LoaderConfig struct {
	// Job names the pipeline in logs and metrics.
	Job string
	// Bucket holds the source objects and the step artifacts.
	Bucket objstore.Bucket
	// Dialect is the destination's dialect.
	Dialect warehouse.Dialect
	// DB is the destination connection. Steps never run concurrently, so one
	// connection serves all of them.
	DB warehouse.Executor
	// Credentials are handed to the warehouse in COPY statements.
	Credentials Credentials
	// WorkDir holds the local files of relational journals.
	WorkDir string
}

// Loader builds steps over one bucket and one connection.
type Loader struct {
	log *zap.Logger
	cfg LoaderConfig
}

// NewLoader returns a Loader. When cfg.DB can redact, the credentials are
// registered with it so they never reach the logs.
func NewLoader(log *zap.Logger, cfg LoaderConfig) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if r, ok := cfg.DB.(interface{ Redact(secrets ...string) }); ok {
		r.Redact(cfg.Credentials.Secrets()...)
	}
	return &Loader{log: log.With(zap.String("job", cfg.Job)), cfg: cfg}
}

// BulkCopy returns a full-replace step for opts.
func (l *Loader) BulkCopy(opts CopyOptions) (*BulkCopyStep, error) {
	if err := l.checkCopy(opts); err != nil {
		return nil, err
	}
	return NewBulkCopyStep(l.log, l.cfg.Bucket, l.cfg.Dialect, l.cfg.DB, l.cfg.Credentials, opts), nil
}

// ManifestCopy returns an incremental step journaled in a JSON object.
func (l *Loader) ManifestCopy(opts CopyOptions) (*ManifestCopyStep, error) {
	if err := l.checkCopy(opts); err != nil {
		return nil, err
	}
	m := manifest.NewBlob(l.log, l.cfg.Bucket, opts.Metadata, opts.Source, opts.Object)
	m.SetJob(l.cfg.Job)
	return NewManifestCopyStep(l.log, l.cfg.Bucket, l.cfg.Dialect, l.cfg.DB, l.cfg.Credentials, m, opts), nil
}

// SQLManifestCopy returns an incremental step journaled in a SQLite file.
func (l *Loader) SQLManifestCopy(opts CopyOptions) (*ManifestCopyStep, error) {
	if err := l.checkCopy(opts); err != nil {
		return nil, err
	}
	m := manifest.NewSQL(l.log, l.cfg.Bucket, opts.Metadata, opts.Source, opts.Object, l.cfg.WorkDir)
	m.SetJob(l.cfg.Job)
	return NewManifestCopyStep(l.log, l.cfg.Bucket, l.cfg.Dialect, l.cfg.DB, l.cfg.Credentials, m, opts), nil
}

// SQL returns a raw statement step.
func (l *Loader) SQL(statements ...Statement) *SQLStep {
	return NewSQLStep(l.log, l.cfg.DB, statements...)
}

func (l *Loader) checkCopy(opts CopyOptions) error {
	if opts.Object == nil {
		return Error.New("copy step has no object mapping")
	}
	if !l.cfg.Dialect.Copy {
		return Error.New("dialect %q does not support COPY", l.cfg.Dialect.Name)
	}
	return nil
}
