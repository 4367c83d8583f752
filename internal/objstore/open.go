package objstore

import (
	"go.uber.org/zap"
)

// Config selects and configures a Bucket backend.
type Config struct {
	// Kind is one of "s3", "dir" or "memory".
	Kind string
	// Name is the bucket name.
	Name string
	// Root is the directory used by the "dir" backend.
	Root string

	S3 S3Config
}

// Open constructs the Bucket described by cfg.
func Open(log *zap.Logger, cfg Config) (Bucket, error) {
	switch cfg.Kind {
	case "s3", "":
		s3cfg := cfg.S3
		if s3cfg.Bucket == "" {
			s3cfg.Bucket = cfg.Name
		}
		return NewS3(log, s3cfg)
	case "dir":
		if cfg.Root == "" {
			return nil, Error.New("dir: root is required")
		}
		return NewDir(cfg.Name, cfg.Root)
	case "memory":
		return NewMemory(cfg.Name), nil
	default:
		return nil, Error.New("unknown bucket kind %q", cfg.Kind)
	}
}
