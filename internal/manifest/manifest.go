// Package manifest computes which source objects still need loading and
// records which ones already have been.
//
// A manifest run lists every object under the source prefix, subtracts the
// journal (the keys recorded by the last successful commit) and publishes the
// remainder as a warehouse manifest. After the load succeeds the caller
// commits the full listing, not just the delta, as the next journal, so a
// repeated run with no new objects yields an empty manifest.
//
// Two journal backends share that contract: BlobManifest keeps the journal as
// a JSON array object, SQLManifest keeps it as rows of a SQLite file that is
// round-tripped through the bucket.
package manifest

import (
	"context"
	"iter"

	"github.com/zeebo/errs"

	"jsonload/internal/metrics"
	"jsonload/internal/objstore"
	"jsonload/internal/schema"
)

// Error is the error class for manifest and journal failures.
var Error = errs.Class("manifest")

// Entry is one manifest line.
type Entry struct {
	URL       string `json:"url"`
	Mandatory bool   `json:"mandatory"`
}

// Document is the manifest object consumed by the warehouse COPY.
type Document struct {
	Entries []Entry `json:"entries"`
}

// Manifest is what the incremental copy step needs from a journal backend.
type Manifest interface {
	// Save publishes the manifest of pending objects and returns the journal
	// to commit once the load has succeeded.
	Save(ctx context.Context) ([]string, error)
	// Commit replaces the journal with keys.
	Commit(ctx context.Context, keys []string) error
	// Exists reports whether the manifest object exists.
	Exists(ctx context.Context) (bool, error)
	// JournalExists reports whether a journal has ever been committed.
	JournalExists(ctx context.Context) (bool, error)
	// URL is the warehouse-facing URL of the manifest object.
	URL() string
}

// Delta is the result of reconciling a listing against the journal.
type Delta struct {
	// Pending holds the listed keys absent from the journal, in listing order.
	Pending []string
	// UpdatedJournal is the full listing the delta was computed from.
	UpdatedJournal []string

	bucket objstore.Bucket
}

// Entries yields one mandatory Entry per pending key.
func (d Delta) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, key := range d.Pending {
			if !yield(Entry{URL: objstore.ObjectURL(d.bucket, key), Mandatory: true}) {
				return
			}
		}
	}
}

// Document materialises the manifest document.
func (d Delta) Document() Document {
	doc := Document{Entries: make([]Entry, 0, len(d.Pending))}
	for e := range d.Entries() {
		doc.Entries = append(doc.Entries, e)
	}
	return doc
}

// reconcile returns the keys of all that are not in journal, keeping the
// order of all.
func reconcile(all []string, journal map[string]struct{}) []string {
	pending := make([]string, 0, len(all))
	for _, key := range all {
		if _, seen := journal[key]; !seen {
			pending = append(pending, key)
		}
	}
	return pending
}

// location holds the addressing shared by both backends.
type location struct {
	bucket   objstore.Bucket
	metadata string
	source   string
	table    string
	job      string
}

// SetJob names the job that listing and delta sizes are reported under.
func (l *location) SetJob(job string) { l.job = job }

func newLocation(bucket objstore.Bucket, metadata, source string, o *schema.JSONObject) location {
	return location{
		bucket:   bucket,
		metadata: metadata,
		source:   source,
		table:    o.Table(),
	}
}

// ManifestKey is the bucket key of the manifest object.
func (l location) ManifestKey() string {
	return objstore.Join(l.metadata, l.table+"_manifest.json")
}

// URL implements Manifest.
func (l location) URL() string {
	return objstore.URL(l.bucket, l.ManifestKey())
}

// AllKeys lists every non-directory object under the source prefix.
func (l location) AllKeys(ctx context.Context) ([]string, error) {
	keys, err := l.bucket.List(ctx, objstore.NormalizePath(l.source))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !objstore.IsDir(k) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Exists implements Manifest.
func (l location) Exists(ctx context.Context) (bool, error) {
	ok, err := l.bucket.Exists(ctx, l.ManifestKey())
	return ok, Error.Wrap(err)
}

func (l location) delta(all []string, journal map[string]struct{}) Delta {
	d := Delta{
		Pending:        reconcile(all, journal),
		UpdatedJournal: all,
		bucket:         l.bucket,
	}
	if l.job != "" {
		metrics.RecordObjects(l.job, "listed", len(d.UpdatedJournal))
		metrics.RecordObjects(l.job, "pending", len(d.Pending))
	}
	return d
}
