package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/errs"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"jsonload/internal/objstore"
	"jsonload/internal/schema"
	"jsonload/internal/warehouse"
	"jsonload/internal/warehouse/sqlite"
)

// insertBatch bounds the number of keys per INSERT when rewriting the
// journal table.
const insertBatch = 500

// SQLManifest keeps the journal as a single-column SQLite table,
// journal(key), stored in the bucket as a database file. The file is
// materialised in a local work directory while it is read or rewritten, and
// the manifest document is streamed to disk rather than built in memory.
type SQLManifest struct {
	location
	log *zap.Logger

	workDir string
	db      *warehouse.Conn
}

var _ Manifest = (*SQLManifest)(nil)

// NewSQL returns an SQLManifest for the objects under source, keeping its
// artifacts under metadata and its local files in workDir (os.TempDir()
// when empty).
func NewSQL(log *zap.Logger, bucket objstore.Bucket, metadata, source string, o *schema.JSONObject, workDir string) *SQLManifest {
	if log == nil {
		log = zap.NewNop()
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	m := &SQLManifest{
		location: newLocation(bucket, metadata, source, o),
		log:      log.Named("sqlmanifest").With(zap.String("table", o.Table())),
		workDir:  workDir,
	}
	m.db = warehouse.NewConn(m.log, sqlite.Driver, m.JournalFile())
	return m
}

// JournalKey is the bucket key of the journal database.
func (m *SQLManifest) JournalKey() string {
	return objstore.Join(m.metadata, m.table+"_journal.db")
}

// JournalFile is the local path the journal database is materialised at.
// The name is derived from the journal key so that tables sharing a work
// directory never collide.
func (m *SQLManifest) JournalFile() string {
	return filepath.Join(m.workDir, m.localName("journal", "db"))
}

// ManifestFile is the local path the manifest document is streamed to.
func (m *SQLManifest) ManifestFile() string {
	return filepath.Join(m.workDir, m.localName("manifest", "json"))
}

func (m *SQLManifest) localName(kind, ext string) string {
	sum := xxh3.HashString(m.bucket.Name() + "/" + m.JournalKey())
	return fmt.Sprintf("%s_%s_%016x.%s", m.table, kind, sum, ext)
}

// Journal returns the set of keys recorded by the last commit. When no
// journal has been committed yet, an empty local journal table is created.
func (m *SQLManifest) Journal(ctx context.Context) (_ map[string]struct{}, err error) {
	exists, err := m.JournalExists(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.db.Close(); err != nil {
		return nil, Error.Wrap(err)
	}

	if !exists {
		if err := os.Remove(m.JournalFile()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, Error.Wrap(err)
		}
		if err := m.ensureTable(ctx); err != nil {
			return nil, err
		}
		return map[string]struct{}{}, Error.Wrap(m.db.Close())
	}

	if err := m.bucket.Download(ctx, m.JournalKey(), m.JournalFile()); err != nil {
		return nil, Error.Wrap(err)
	}
	if err := m.db.Open(ctx); err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, Error.Wrap(m.db.Close())) }()

	journal := map[string]struct{}{}
	for row, err := range m.db.FetchAll(ctx, "SELECT key FROM journal") {
		if err != nil {
			return nil, Error.Wrap(err)
		}
		journal[asString(row[0])] = struct{}{}
	}
	return journal, nil
}

// Get reconciles the current listing against the journal.
func (m *SQLManifest) Get(ctx context.Context) (Delta, error) {
	all, err := m.AllKeys(ctx)
	if err != nil {
		return Delta{}, err
	}
	journal, err := m.Journal(ctx)
	if err != nil {
		return Delta{}, err
	}

	d := m.delta(all, journal)
	m.log.Info("reconciled",
		zap.Int("listed", len(all)),
		zap.Int("journal", len(journal)),
		zap.Int("pending", len(d.Pending)))
	return d, nil
}

// Save implements Manifest. The document is streamed to ManifestFile and
// then uploaded.
func (m *SQLManifest) Save(ctx context.Context) ([]string, error) {
	d, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}
	n, err := writeManifest(m.ManifestFile(), d.Entries())
	if err != nil {
		return nil, err
	}
	if err := m.bucket.Upload(ctx, m.ManifestKey(), m.ManifestFile()); err != nil {
		return nil, Error.Wrap(err)
	}
	m.log.Debug("manifest uploaded", zap.String("key", m.ManifestKey()), zap.Int("entries", n))
	return d.UpdatedJournal, nil
}

// Commit implements Manifest: the local journal table is cleared and
// refilled with keys, then uploaded over the remote journal.
func (m *SQLManifest) Commit(ctx context.Context, keys []string) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	if err := m.rewrite(ctx, keys); err != nil {
		_ = m.db.Close()
		return err
	}
	if err := m.db.Close(); err != nil {
		return Error.Wrap(err)
	}
	if err := m.bucket.Upload(ctx, m.JournalKey(), m.JournalFile()); err != nil {
		return Error.Wrap(err)
	}
	m.log.Info("journal committed", zap.Int("keys", len(keys)))
	return nil
}

// JournalExists implements Manifest.
func (m *SQLManifest) JournalExists(ctx context.Context) (bool, error) {
	ok, err := m.bucket.Exists(ctx, m.JournalKey())
	return ok, Error.Wrap(err)
}

// ensureTable opens the local journal and creates the table if needed.
// The connection is left open.
func (m *SQLManifest) ensureTable(ctx context.Context) error {
	if err := m.db.Open(ctx); err != nil {
		return Error.Wrap(err)
	}
	if err := m.db.Exec(ctx, "CREATE TABLE IF NOT EXISTS journal (key TEXT)"); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(m.db.Commit())
}

func (m *SQLManifest) rewrite(ctx context.Context, keys []string) error {
	if err := m.db.Exec(ctx, "DELETE FROM journal"); err != nil {
		return Error.Wrap(err)
	}
	for start := 0; start < len(keys); start += insertBatch {
		end := min(start+insertBatch, len(keys))
		batch := keys[start:end]

		args := make([]any, len(batch))
		for i, k := range batch {
			args[i] = k
		}
		query := "INSERT INTO journal (key) VALUES " +
			strings.TrimSuffix(strings.Repeat("(?),", len(batch)), ",")
		if err := m.db.Exec(ctx, query, args...); err != nil {
			return Error.Wrap(err)
		}
	}
	return Error.Wrap(m.db.Commit())
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
