package main

import (
	"context"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"jsonload/internal/config"
	"jsonload/internal/load"
	"jsonload/internal/metrics"
	"jsonload/internal/metrics/datadog"
	"jsonload/internal/metrics/prompush"
	"jsonload/internal/objstore"
	"jsonload/internal/pipeline"
	"jsonload/internal/warehouse"
)

// run builds the pipeline described by p and runs it, or validates it when
// dryRun is set.
func run(ctx context.Context, log *zap.Logger, p config.Pipeline, dryRun bool) (err error) {
	pl, closeFn, err := build(log, p)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, closeFn()) }()

	if dryRun {
		return pl.Validate(ctx)
	}
	return pl.Run(ctx)
}

// build opens the bucket and the warehouse connection and assembles one step
// per configured step. The returned function closes the connection.
func build(log *zap.Logger, p config.Pipeline) (*pipeline.Pipeline, func() error, error) {
	dialect, err := warehouse.Lookup(p.Warehouse.Kind)
	if err != nil {
		return nil, nil, err
	}
	bucket, err := objstore.Open(log, p.Objstore())
	if err != nil {
		return nil, nil, err
	}

	conn := warehouse.NewConn(log, dialect.Driver, p.Warehouse.DSN)
	loader := load.NewLoader(log, load.LoaderConfig{
		Job:         p.Job,
		Bucket:      bucket,
		Dialect:     dialect,
		DB:          conn,
		Credentials: p.Credentials.LoadCredentials(),
		WorkDir:     p.WorkDir,
	})

	pl := pipeline.New(log, p.Job)
	for i, s := range p.Steps {
		step, err := buildStep(loader, s)
		if err != nil {
			return nil, nil, errs.Combine(config.Error.New("steps[%d]: %v", i, err), conn.Close())
		}
		pl.Append(step)
	}
	return pl, conn.Close, nil
}

func buildStep(loader *load.Loader, s config.Step) (pipeline.Step, error) {
	if s.Kind == config.KindSQL {
		return loader.SQL(s.SQLStatements()...), nil
	}

	opts, err := s.CopyOptions()
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case config.KindBulkCopy:
		return loader.BulkCopy(opts)
	case config.KindManifestCopy:
		return loader.ManifestCopy(opts)
	case config.KindSQLManifestCopy:
		return loader.SQLManifestCopy(opts)
	default:
		return nil, config.Error.New("unsupported step kind %q", s.Kind)
	}
}

// newMetricsBackend returns the configured backend, or nil when metrics are
// disabled.
func newMetricsBackend(p config.Pipeline) (metrics.Backend, error) {
	switch p.Metrics.Backend {
	case "pushgateway":
		return prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog":
		return datadog.NewBackend(datadog.Config{
			Addr:      p.Metrics.DogStatsDAddr,
			Namespace: p.Metrics.Namespace,
			Job:       p.Job,
			Tags:      p.Metrics.Tags,
		})
	default:
		return nil, nil
	}
}
