// Package objstore is the object-storage collaborator: listing, reading,
// writing and deleting blobs in a named bucket.
//
// Three backends are provided: S3 (any S3-compatible service via minio-go),
// Dir (a local directory tree) and Memory (an in-process map, mostly for
// tests). All of them present keys with "/" as the delimiter; a key ending in
// "/" denotes a directory-like marker rather than an object.
package objstore

import (
	"context"
	"path"
	"strings"

	"github.com/zeebo/errs"
)

var (
	// Error is the error class for object storage failures.
	Error = errs.Class("objstore")

	// ErrNotExist is returned when a requested object is absent.
	ErrNotExist = errs.Class("object does not exist")
)

// Bucket is a single named bucket.
type Bucket interface {
	// Name is the bucket name used when rendering URLs.
	Name() string
	// Scheme is the URL scheme the warehouse uses to address this bucket.
	Scheme() string

	// List returns every key under prefix in storage order. Directory-like
	// keys end with "/".
	List(ctx context.Context, prefix string) ([]string, error)
	// Exists reports whether key holds an object.
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns the contents of key, or an ErrNotExist error.
	Get(ctx context.Context, key string) ([]byte, error)
	// Save writes data to key, replacing any existing object.
	Save(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Download copies key into the local file at localPath.
	Download(ctx context.Context, key, localPath string) error
	// Upload replaces key with the contents of the local file at localPath.
	Upload(ctx context.Context, key, localPath string) error
}

// NormalizePath cleans p the way object keys are addressed: redundant
// separators and dot segments are removed and the leading "/" is dropped.
// An empty path stays empty.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	return cleaned
}

// Join normalises dir/name into a key.
func Join(dir, name string) string {
	return NormalizePath(dir + "/" + name)
}

// URL renders the warehouse-facing URL of key in b, e.g. s3://bucket/a/b.json.
// key is normalised first; use it for keys built with Join.
func URL(b Bucket, key string) string {
	return ObjectURL(b, NormalizePath(key))
}

// ObjectURL renders the URL of key exactly as the bucket listed it. Object
// stores treat data//a.json and data/a.json as distinct keys.
func ObjectURL(b Bucket, key string) string {
	return b.Scheme() + "://" + b.Name() + "/" + key
}

// IsDir reports whether key is a directory-like marker.
func IsDir(key string) bool {
	return strings.HasSuffix(key, "/")
}
