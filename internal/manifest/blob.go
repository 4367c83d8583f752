package manifest

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"jsonload/internal/objstore"
	"jsonload/internal/schema"
)

// BlobManifest keeps the journal as a JSON array object next to the
// manifest, under the metadata prefix.
type BlobManifest struct {
	location
	log *zap.Logger
}

var _ Manifest = (*BlobManifest)(nil)

// NewBlob returns a BlobManifest for the objects under source, keeping its
// artifacts under metadata.
func NewBlob(log *zap.Logger, bucket objstore.Bucket, metadata, source string, o *schema.JSONObject) *BlobManifest {
	if log == nil {
		log = zap.NewNop()
	}
	return &BlobManifest{
		location: newLocation(bucket, metadata, source, o),
		log:      log.Named("manifest").With(zap.String("table", o.Table())),
	}
}

// JournalKey is the bucket key of the journal object.
func (m *BlobManifest) JournalKey() string {
	return objstore.Join(m.metadata, m.table+"_journal.json")
}

// Journal returns the keys recorded by the last commit; an absent journal
// is empty.
func (m *BlobManifest) Journal(ctx context.Context) ([]string, error) {
	data, err := m.bucket.Get(ctx, m.JournalKey())
	if objstore.ErrNotExist.Has(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, Error.New("decode journal %s: %v", m.JournalKey(), err)
	}
	return keys, nil
}

// Get reconciles the current listing against the journal.
func (m *BlobManifest) Get(ctx context.Context) (Delta, error) {
	all, err := m.AllKeys(ctx)
	if err != nil {
		return Delta{}, err
	}
	journal, err := m.Journal(ctx)
	if err != nil {
		return Delta{}, err
	}
	seen := make(map[string]struct{}, len(journal))
	for _, k := range journal {
		seen[k] = struct{}{}
	}

	d := m.delta(all, seen)
	m.log.Info("reconciled",
		zap.Int("listed", len(all)),
		zap.Int("journal", len(journal)),
		zap.Int("pending", len(d.Pending)))
	return d, nil
}

// Save implements Manifest.
func (m *BlobManifest) Save(ctx context.Context) ([]string, error) {
	d, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(d.Document())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if err := m.bucket.Save(ctx, m.ManifestKey(), data); err != nil {
		return nil, Error.Wrap(err)
	}
	return d.UpdatedJournal, nil
}

// Commit implements Manifest.
func (m *BlobManifest) Commit(ctx context.Context, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return Error.Wrap(err)
	}
	if err := m.bucket.Save(ctx, m.JournalKey(), data); err != nil {
		return Error.Wrap(err)
	}
	m.log.Info("journal committed", zap.Int("keys", len(keys)))
	return nil
}

// JournalExists implements Manifest.
func (m *BlobManifest) JournalExists(ctx context.Context) (bool, error) {
	ok, err := m.bucket.Exists(ctx, m.JournalKey())
	return ok, Error.Wrap(err)
}
