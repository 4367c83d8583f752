package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                    "",
		"a/b":                 "a/b",
		"/a//b/":              "a/b",
		"meta/./x.json":       "meta/x.json",
		"meta/../x.json":      "x.json",
		"/events_jsonpath.js": "events_jsonpath.js",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePath(in), in)
	}
	require.Equal(t, "events_manifest.json", Join("", "events_manifest.json"))
	require.Equal(t, "meta/events_manifest.json", Join("meta/", "events_manifest.json"))
}

func TestURL(t *testing.T) {
	t.Parallel()

	b := NewMemory("bucket")
	require.Equal(t, "s3://bucket/object_path/a.json", URL(b, "/object_path/a.json"))
	require.Equal(t, "s3://bucket/data//a.json", ObjectURL(b, "data//a.json"))
	require.Equal(t, "s3://bucket/data/./b.json", ObjectURL(b, "data/./b.json"))
}

// testBucket runs the shared Bucket contract against b.
func testBucket(t *testing.T, b Bucket) {
	ctx := context.Background()

	ok, err := b.Exists(ctx, "src/a.json")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = b.Get(ctx, "src/a.json")
	require.True(t, ErrNotExist.Has(err))

	require.NoError(t, b.Save(ctx, "src/a.json", []byte(`{"id":1}`)))
	require.NoError(t, b.Save(ctx, "src/b.json", []byte(`{"id":2}`)))
	require.NoError(t, b.Save(ctx, "other/c.json", []byte(`{}`)))

	ok, err = b.Exists(ctx, "src/a.json")
	require.NoError(t, err)
	require.True(t, ok)

	data, err := b.Get(ctx, "src/a.json")
	require.NoError(t, err)
	require.Equal(t, `{"id":1}`, string(data))

	keys, err := b.List(ctx, "src")
	require.NoError(t, err)
	var objects []string
	for _, k := range keys {
		if !IsDir(k) {
			objects = append(objects, k)
		}
	}
	require.Equal(t, []string{"src/a.json", "src/b.json"}, objects)

	local := filepath.Join(t.TempDir(), "copy.json")
	require.NoError(t, b.Download(ctx, "src/b.json", local))
	got, err := os.ReadFile(local)
	require.NoError(t, err)
	require.Equal(t, `{"id":2}`, string(got))

	require.NoError(t, os.WriteFile(local, []byte(`[]`), 0o644))
	require.NoError(t, b.Upload(ctx, "meta/journal.json", local))
	data, err = b.Get(ctx, "meta/journal.json")
	require.NoError(t, err)
	require.Equal(t, `[]`, string(data))

	require.NoError(t, b.Delete(ctx, "src/a.json"))
	require.NoError(t, b.Delete(ctx, "src/a.json"))
	ok, err = b.Exists(ctx, "src/a.json")
	require.NoError(t, err)
	require.False(t, ok)

	err = b.Download(ctx, "missing", local)
	require.True(t, ErrNotExist.Has(err))
}

func TestMemory(t *testing.T) {
	t.Parallel()
	testBucket(t, NewMemory("bucket"))
}

func TestDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b, err := NewDir("local", root)
	require.NoError(t, err)
	testBucket(t, b)

	keys, err := b.List(context.Background(), "")
	require.NoError(t, err)
	require.Contains(t, keys, "src/")
	require.Contains(t, keys, "meta/journal.json")
}

func TestOpen(t *testing.T) {
	t.Parallel()
	log := zaptest.NewLogger(t)

	b, err := Open(log, Config{Kind: "memory", Name: "m"})
	require.NoError(t, err)
	require.Equal(t, "m", b.Name())

	b, err = Open(log, Config{Kind: "dir", Name: "d", Root: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, "file", b.Scheme())

	b, err = Open(log, Config{Kind: "s3", Name: "warehouse-input", S3: S3Config{Endpoint: "localhost:9000", Insecure: true}})
	require.NoError(t, err)
	require.Equal(t, "warehouse-input", b.Name())

	_, err = Open(log, Config{Kind: "dir", Name: "d"})
	require.True(t, Error.Has(err))

	_, err = Open(log, Config{Kind: "ftp"})
	require.True(t, Error.Has(err))
}
