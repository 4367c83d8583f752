package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"jsonload/internal/load"
	"jsonload/internal/schema"
)

// -----------------------------------------------------------------------------
// Pipeline decoding tests
// -----------------------------------------------------------------------------
//
// These tests validate that the pipeline JSON maps cleanly onto the Go types.
// We prefer parsing from JSON strings here to keep tests hermetic.

const samplePipeline = `{
  "job": "events-nightly",
  "bucket": { "kind": "s3", "name": "acme-events", "region": "eu-west-1" },
  "warehouse": { "kind": "redshift", "dsn": "postgres://loader@warehouse:5439/dw" },
  "work_dir": "/var/tmp/jsonload",
  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://pushgateway:9091" },
  "steps": [
    {
      "kind": "manifest_copy",
      "metadata": "meta/events",
      "source": "raw/events",
      "table": "events",
      "max_error_count": 10,
      "properties": [
        { "name": "id", "type": "VARCHAR(36)", "column": "event_id" },
        { "name": "user", "child": { "name": "id", "type": "VARCHAR(36)" } }
      ]
    },
    {
      "kind": "sql",
      "statements": [
        { "sql": "ANALYZE %s", "values": ["events"] },
        { "sql": "DELETE FROM events WHERE event_id = $1", "args": ["x"] },
        { "sql": "VACUUM" }
      ]
    }
  ]
}`

func TestDecode(t *testing.T) {
	t.Parallel()

	p, err := Decode([]byte(samplePipeline))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if p.Job != "events-nightly" {
		t.Fatalf("Job = %q", p.Job)
	}
	if p.Bucket.Kind != "s3" || p.Bucket.Name != "acme-events" || p.Bucket.Region != "eu-west-1" {
		t.Fatalf("Bucket = %+v", p.Bucket)
	}
	if p.Warehouse.Kind != "redshift" {
		t.Fatalf("Warehouse.Kind = %q", p.Warehouse.Kind)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(p.Steps))
	}

	copyStep := p.Steps[0]
	if !copyStep.IsCopy() || copyStep.MaxErrorCount == nil || *copyStep.MaxErrorCount != 10 {
		t.Fatalf("copy step = %+v", copyStep)
	}
	if copyStep.Properties[1].Child == nil || copyStep.Properties[1].Child.Type != "VARCHAR(36)" {
		t.Fatalf("nested property = %+v", copyStep.Properties[1])
	}

	sqlStep := p.Steps[1]
	if sqlStep.IsCopy() || len(sqlStep.Statements) != 3 {
		t.Fatalf("sql step = %+v", sqlStep)
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"job":"x","stpes":[]}`))
	if err == nil {
		t.Fatal("Decode() error = nil, want unknown field error")
	}
	if !Error.Has(err) {
		t.Fatalf("Decode() error class = %v, want config error", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(path, []byte(samplePipeline), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WAREHOUSE_DSN", "postgres://override@warehouse:5439/dw")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Warehouse.DSN != "postgres://override@warehouse:5439/dw" {
		t.Fatalf("Warehouse.DSN = %q, want env override", p.Warehouse.DSN)
	}
	if p.Credentials.AccessKeyID != "AKID" {
		t.Fatalf("Credentials.AccessKeyID = %q, want env override", p.Credentials.AccessKeyID)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !Error.Has(err) {
		t.Fatalf("Load(missing) error = %v, want config error", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"AWS_ACCESS_KEY_ID":     "AKID",
		"AWS_SECRET_ACCESS_KEY": "SECRET",
		"METRICS_BACKEND":       "datadog",
		"DOGSTATSD_ADDR":        "127.0.0.1:8125",
		"PUSHGATEWAY_URL":       "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	p := Pipeline{
		Warehouse: Warehouse{DSN: "from-file"},
		Metrics:   Metrics{PushgatewayURL: "http://from-file"},
	}
	ApplyEnv(&p, lookup)

	want := Pipeline{
		Warehouse:   Warehouse{DSN: "from-file"},
		Credentials: Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"},
		Metrics: Metrics{
			Backend:        "datadog",
			PushgatewayURL: "http://from-file",
			DogStatsDAddr:  "127.0.0.1:8125",
		},
	}
	if !reflect.DeepEqual(p, want) {
		t.Fatalf("ApplyEnv() = %+v, want %+v", p, want)
	}
}

func TestPropertyConfig_Build(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pc         PropertyConfig
		wantColumn string
		wantPath   string
		wantErr    string
	}{
		{
			name:       "terminal",
			pc:         PropertyConfig{Name: "a", Type: "VARCHAR(10)"},
			wantColumn: "a",
			wantPath:   "$['a']",
		},
		{
			name:       "explicit column",
			pc:         PropertyConfig{Name: "someNumber", Type: "INTEGER", Column: "custom"},
			wantColumn: "custom",
			wantPath:   "$['someNumber']",
		},
		{
			name: "nested chain",
			pc: PropertyConfig{Name: "p", Child: &PropertyConfig{
				Name: "c", Child: &PropertyConfig{Name: "g", Type: "BOOLEAN"},
			}},
			wantColumn: "p_c_g",
			wantPath:   "$['p']['c']['g']",
		},
		{
			name: "innermost name wins",
			pc: PropertyConfig{Name: "p", Column: "outer", Child: &PropertyConfig{
				Name: "g", Type: "BOOLEAN", Column: "flag",
			}},
			wantColumn: "flag",
			wantPath:   "$['p']['g']",
		},
		{
			name:    "invalid type",
			pc:      PropertyConfig{Name: "payload", Type: "BLOB"},
			wantErr: "invalid column type",
		},
		{
			name:    "type and child",
			pc:      PropertyConfig{Name: "x", Type: "TEXT", Child: &PropertyConfig{Name: "y", Type: "TEXT"}},
			wantErr: "both a type and a child",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := tt.pc.Build()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) || !schema.Error.Has(err) {
					t.Fatalf("Build() error = %v, want schema error containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := p.Column(); got != tt.wantColumn {
				t.Fatalf("Column() = %q, want %q", got, tt.wantColumn)
			}
			if got := p.Path(); got != tt.wantPath {
				t.Fatalf("Path() = %q, want %q", got, tt.wantPath)
			}
		})
	}
}

func TestStep_Conversions(t *testing.T) {
	t.Parallel()

	p, err := Decode([]byte(samplePipeline))
	if err != nil {
		t.Fatal(err)
	}

	opts, err := p.Steps[0].CopyOptions()
	if err != nil {
		t.Fatalf("CopyOptions() error = %v", err)
	}
	if opts.MaxError != 10 || opts.Metadata != "meta/events" || opts.Source != "raw/events" {
		t.Fatalf("CopyOptions() = %+v", opts)
	}
	if got := opts.Object.Paths().JSONPaths; !reflect.DeepEqual(got, []string{"$['id']", "$['user']['id']"}) {
		t.Fatalf("JSONPaths = %v", got)
	}

	noMax := p.Steps[0]
	noMax.MaxErrorCount = nil
	opts, err = noMax.CopyOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.MaxError != load.DefaultMaxError {
		t.Fatalf("MaxError = %d, want default %d", opts.MaxError, load.DefaultMaxError)
	}

	stmts := p.Steps[1].SQLStatements()
	var got []string
	for _, st := range stmts {
		q, args := st.Render()
		got = append(got, q)
		if q == "DELETE FROM events WHERE event_id = $1" && !reflect.DeepEqual(args, []any{"x"}) {
			t.Fatalf("bound args = %v", args)
		}
	}
	want := []string{"ANALYZE events", "DELETE FROM events WHERE event_id = $1", "VACUUM"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("statements = %v, want %v", got, want)
	}

	oc := p.Objstore()
	if oc.Kind != "s3" || oc.S3.Bucket != "acme-events" || oc.S3.Region != "eu-west-1" {
		t.Fatalf("Objstore() = %+v", oc)
	}
}
