package objstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/errs"
)

// Dir is a Bucket backed by a local directory. Every key maps to a file
// below root; subdirectories are listed as directory-like keys.
type Dir struct {
	name string
	root string
}

var _ Bucket = (*Dir)(nil)

// NewDir returns a Bucket called name rooted at root. The directory is
// created when missing.
func NewDir(name, root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, Error.Wrap(err)
	}
	return &Dir{name: name, root: root}, nil
}

// Name implements Bucket.
func (d *Dir) Name() string { return d.name }

// Scheme implements Bucket.
func (d *Dir) Scheme() string { return "file" }

func (d *Dir) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(NormalizePath(key)))
}

// List implements Bucket. Keys are produced in lexical walk order.
func (d *Dir) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(d.root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil || rel == "." {
			return err
		}
		key := filepath.ToSlash(rel)
		if e.IsDir() {
			key += "/"
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return keys, nil
}

// Exists implements Bucket.
func (d *Dir) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(d.path(key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, Error.Wrap(err)
	}
	return !info.IsDir(), nil
}

// Get implements Bucket.
func (d *Dir) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist.New("%s", key)
	}
	return data, Error.Wrap(err)
}

// Save implements Bucket.
func (d *Dir) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(os.WriteFile(p, data, 0o644))
}

// Delete implements Bucket.
func (d *Dir) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return Error.Wrap(err)
}

// Download implements Bucket.
func (d *Dir) Download(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotExist.New("%s", key)
	}
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { _ = src.Close() }()
	return copyToFile(localPath, src)
}

// Upload implements Bucket.
func (d *Dir) Upload(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { _ = src.Close() }()

	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Error.Wrap(err)
	}
	return copyToFile(p, src)
}

func copyToFile(dst string, src io.Reader) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, Error.Wrap(f.Close())) }()

	_, err = io.Copy(f, src)
	return Error.Wrap(err)
}
