// Package config defines the JSON-serializable configuration model for load
// pipelines. A pipeline file names a bucket, a warehouse, and an ordered list
// of steps; secrets are usually supplied through the environment (or a .env
// file) rather than written into the file.
//
// Example (trimmed):
//
//	{
//	  "job": "events-nightly",
//	  "bucket":    { "kind": "s3", "name": "acme-events", "region": "us-east-1" },
//	  "warehouse": { "kind": "redshift" },
//	  "steps": [
//	    {
//	      "kind": "manifest_copy",
//	      "metadata": "meta/events", "source": "raw/events", "table": "events",
//	      "properties": [
//	        { "name": "id", "type": "VARCHAR(36)" },
//	        { "name": "user", "child": { "name": "id", "type": "VARCHAR(36)" } }
//	      ]
//	    },
//	    { "kind": "sql", "statements": [ { "sql": "ANALYZE %s", "values": ["events"] } ] }
//	  ]
//	}
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/zeebo/errs"

	"jsonload/internal/load"
	"jsonload/internal/objstore"
	"jsonload/internal/schema"
)

// Error is the error class for unreadable or unusable configuration.
var Error = errs.Class("config")

// Step kinds.
const (
	KindBulkCopy        = "bulk_copy"
	KindManifestCopy    = "manifest_copy"
	KindSQLManifestCopy = "sql_manifest_copy"
	KindSQL             = "sql"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the pipeline in logs and metrics.
	Job string `json:"job"`

	Bucket      Bucket      `json:"bucket"`
	Warehouse   Warehouse   `json:"warehouse"`
	Credentials Credentials `json:"credentials"`

	// WorkDir holds local relational-journal files. Defaults to the system
	// temporary directory.
	WorkDir string `json:"work_dir"`

	Metrics Metrics `json:"metrics"`

	// Steps run in order; the first failure stops the pipeline.
	Steps []Step `json:"steps"`
}

// Bucket selects the object store holding source objects and artifacts.
type Bucket struct {
	// Kind is "s3", "dir" or "memory".
	Kind string `json:"kind"`
	// Name is the bucket name used in URLs.
	Name string `json:"name"`
	// Root is the local directory backing a "dir" bucket.
	Root string `json:"root"`

	// Endpoint, Region and Insecure configure "s3" buckets. Endpoint defaults
	// to AWS.
	Endpoint string `json:"endpoint"`
	Region   string `json:"region"`
	Insecure bool   `json:"insecure"`
}

// Warehouse selects the destination.
type Warehouse struct {
	// Kind is a registered dialect name, e.g. "redshift".
	Kind string `json:"kind"`
	// DSN is the driver connection string. Usually set via WAREHOUSE_DSN.
	DSN string `json:"dsn"`
}

// Credentials are the object-store keys. They are used both to read the
// bucket and in COPY statements.
type Credentials struct {
	AccessKeyID     string `json:"aws_access_key_id"`
	SecretAccessKey string `json:"aws_secret_access_key"`
}

// Metrics selects an optional metrics backend.
type Metrics struct {
	// Backend is "", "none", "pushgateway" or "datadog".
	Backend        string   `json:"backend"`
	PushgatewayURL string   `json:"pushgateway_url"`
	DogStatsDAddr  string   `json:"dogstatsd_addr"`
	Namespace      string   `json:"namespace"`
	Tags           []string `json:"tags"`
}

// Step is one pipeline step. Copy kinds use Metadata, Source, Table,
// Properties and MaxErrorCount; the sql kind uses Statements.
type Step struct {
	Kind string `json:"kind"`

	Metadata   string           `json:"metadata"`
	Source     string           `json:"source"`
	Table      string           `json:"table"`
	Properties []PropertyConfig `json:"properties"`

	// MaxErrorCount defaults to load.DefaultMaxError when omitted.
	MaxErrorCount *int `json:"max_error_count"`

	Statements []StatementConfig `json:"statements"`
}

// PropertyConfig is the JSON form of schema.Property. Exactly one of Type
// and Child is set.
type PropertyConfig struct {
	Name   string          `json:"name"`
	Type   string          `json:"type,omitempty"`
	Column string          `json:"column,omitempty"`
	Child  *PropertyConfig `json:"child,omitempty"`
}

// StatementConfig is one statement of a sql step. Values are spliced
// verbatim into SQL (for identifiers); Args are bound by the driver. At most
// one of them is set.
type StatementConfig struct {
	SQL    string `json:"sql"`
	Values []any  `json:"values,omitempty"`
	Args   []any  `json:"args,omitempty"`
}

// Load reads a pipeline file and applies environment overrides.
func Load(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, Error.Wrap(err)
	}
	p, err := Decode(data)
	if err != nil {
		return Pipeline{}, err
	}
	ApplyEnv(&p, os.LookupEnv)
	return p, nil
}

// Decode parses a pipeline document, rejecting unknown fields.
func Decode(data []byte) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, Error.New("decode pipeline: %v", err)
	}
	return p, nil
}

// ApplyEnv overrides secrets and deployment settings from the environment.
// Only variables that are set take effect.
func ApplyEnv(p *Pipeline, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&p.Credentials.AccessKeyID, "AWS_ACCESS_KEY_ID")
	set(&p.Credentials.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	set(&p.Warehouse.DSN, "WAREHOUSE_DSN")
	set(&p.Metrics.Backend, "METRICS_BACKEND")
	set(&p.Metrics.PushgatewayURL, "PUSHGATEWAY_URL")
	set(&p.Metrics.DogStatsDAddr, "DOGSTATSD_ADDR")
}

// Objstore converts the bucket settings for objstore.Open.
func (p Pipeline) Objstore() objstore.Config {
	return objstore.Config{
		Kind: p.Bucket.Kind,
		Name: p.Bucket.Name,
		Root: p.Bucket.Root,
		S3: objstore.S3Config{
			Endpoint:        p.Bucket.Endpoint,
			Region:          p.Bucket.Region,
			Bucket:          p.Bucket.Name,
			AccessKeyID:     p.Credentials.AccessKeyID,
			SecretAccessKey: p.Credentials.SecretAccessKey,
			Insecure:        p.Bucket.Insecure,
		},
	}
}

// LoadCredentials converts the credentials for COPY statements.
func (c Credentials) LoadCredentials() load.Credentials {
	return load.Credentials{AccessKeyID: c.AccessKeyID, SecretAccessKey: c.SecretAccessKey}
}

// IsCopy reports whether the step loads objects with COPY.
func (s Step) IsCopy() bool {
	switch s.Kind {
	case KindBulkCopy, KindManifestCopy, KindSQLManifestCopy:
		return true
	}
	return false
}

// Object builds the step's table mapping.
func (s Step) Object() (*schema.JSONObject, error) {
	props := make([]schema.Property, 0, len(s.Properties))
	for _, pc := range s.Properties {
		p, err := pc.Build()
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return schema.New(s.Table, props...)
}

// CopyOptions builds the load options of a copy step.
func (s Step) CopyOptions() (load.CopyOptions, error) {
	o, err := s.Object()
	if err != nil {
		return load.CopyOptions{}, err
	}
	maxError := load.DefaultMaxError
	if s.MaxErrorCount != nil {
		maxError = *s.MaxErrorCount
	}
	return load.CopyOptions{
		Metadata: s.Metadata,
		Source:   s.Source,
		Object:   o,
		MaxError: maxError,
	}, nil
}

// SQLStatements converts the statements of a sql step.
func (s Step) SQLStatements() []load.Statement {
	out := make([]load.Statement, 0, len(s.Statements))
	for _, st := range s.Statements {
		out = append(out, st.Statement())
	}
	return out
}

// Statement converts a statement config into its load form.
func (s StatementConfig) Statement() load.Statement {
	switch {
	case len(s.Values) > 0:
		return load.Unsafe(s.SQL, s.Values...)
	case len(s.Args) > 0:
		return load.Bound(s.SQL, s.Args...)
	default:
		return load.Literal(s.SQL)
	}
}

// Build converts pc into a schema.Property, validating its type.
func (pc PropertyConfig) Build() (schema.Property, error) {
	var (
		p   schema.Property
		err error
	)
	switch {
	case pc.Child != nil && pc.Type != "":
		return schema.Property{}, schema.Error.New("property %q has both a type and a child", pc.Name)
	case pc.Child != nil:
		child, cerr := pc.Child.Build()
		if cerr != nil {
			return schema.Property{}, cerr
		}
		p, err = schema.Nest(pc.Name, child)
	default:
		p, err = schema.Field(pc.Name, pc.Type)
	}
	if err != nil {
		return schema.Property{}, err
	}
	if pc.Column != "" {
		p = p.Named(pc.Column)
	}
	return p, nil
}
