package config

import (
	"strings"
	"testing"

	_ "jsonload/internal/warehouse/all"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func intPtr(n int) *int { return &n }

// validPipeline returns a pipeline that produces no issues.
func validPipeline() Pipeline {
	return Pipeline{
		Job:         "events-nightly",
		Bucket:      Bucket{Kind: "s3", Name: "acme-events"},
		Warehouse:   Warehouse{Kind: "redshift", DSN: "postgres://loader@warehouse:5439/dw"},
		Credentials: Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"},
		Steps: []Step{
			{
				Kind:     KindManifestCopy,
				Metadata: "meta/events",
				Source:   "raw/events",
				Table:    "events",
				Properties: []PropertyConfig{
					{Name: "id", Type: "VARCHAR(36)"},
				},
			},
			{
				Kind:       KindSQL,
				Statements: []StatementConfig{{SQL: "ANALYZE events"}},
			},
		},
	}
}

/*
TestValidatePipeline_ValidMinimal verifies that a well-formed pipeline produces
no issues (errors or warnings).
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("expected no issues; got %+v", issues)
	}
}

func TestValidatePipeline_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{
			name:   "missing job",
			mutate: func(p *Pipeline) { p.Job = " " },
			sev:    SeverityError, path: "job", msg: "job must not be empty",
		},
		{
			name:   "no steps",
			mutate: func(p *Pipeline) { p.Steps = nil },
			sev:    SeverityError, path: "steps", msg: "at least one step",
		},
		{
			name:   "s3 bucket without name",
			mutate: func(p *Pipeline) { p.Bucket.Name = "" },
			sev:    SeverityError, path: "bucket.name", msg: "bucket name is required",
		},
		{
			name:   "dir bucket without root",
			mutate: func(p *Pipeline) { p.Bucket = Bucket{Kind: "dir", Name: "local"} },
			sev:    SeverityError, path: "bucket.root", msg: "root is required",
		},
		{
			name:   "memory bucket",
			mutate: func(p *Pipeline) { p.Bucket = Bucket{Kind: "memory", Name: "m"} },
			sev:    SeverityWarning, path: "bucket.kind", msg: "testing only",
		},
		{
			name:   "unknown bucket kind",
			mutate: func(p *Pipeline) { p.Bucket.Kind = "gcs" },
			sev:    SeverityError, path: "bucket.kind", msg: `unsupported bucket kind "gcs"`,
		},
		{
			name:   "unknown warehouse",
			mutate: func(p *Pipeline) { p.Warehouse.Kind = "oracle" },
			sev:    SeverityError, path: "warehouse.kind", msg: "redshift",
		},
		{
			name:   "missing dsn",
			mutate: func(p *Pipeline) { p.Warehouse.DSN = "" },
			sev:    SeverityError, path: "warehouse.dsn", msg: "WAREHOUSE_DSN",
		},
		{
			name:   "malformed dsn",
			mutate: func(p *Pipeline) { p.Warehouse = Warehouse{Kind: "mysql", DSN: "no-slash-here"} },
			sev:    SeverityError, path: "warehouse.dsn", msg: "mysql dsn",
		},
		{
			name:   "copy from a dir bucket",
			mutate: func(p *Pipeline) { p.Bucket = Bucket{Kind: "dir", Name: "local", Root: "/srv/events"} },
			sev:    SeverityWarning, path: "steps[0].kind", msg: "not reachable by COPY",
		},
		{
			name:   "copy from a memory bucket",
			mutate: func(p *Pipeline) { p.Bucket = Bucket{Kind: "memory", Name: "m"} },
			sev:    SeverityWarning, path: "steps[0].kind", msg: "memory bucket",
		},
		{
			name:   "copy on a dialect without COPY",
			mutate: func(p *Pipeline) { p.Warehouse = Warehouse{Kind: "sqlite", DSN: "file.db"} },
			sev:    SeverityError, path: "steps[0].kind", msg: "supporting COPY",
		},
		{
			name:   "missing credentials",
			mutate: func(p *Pipeline) { p.Credentials = Credentials{} },
			sev:    SeverityWarning, path: "credentials", msg: "AWS_ACCESS_KEY_ID",
		},
		{
			name:   "unknown step kind",
			mutate: func(p *Pipeline) { p.Steps[1].Kind = "shell" },
			sev:    SeverityError, path: "steps[1].kind", msg: `unsupported step kind "shell"`,
		},
		{
			name:   "copy without source",
			mutate: func(p *Pipeline) { p.Steps[0].Source = "" },
			sev:    SeverityError, path: "steps[0].source", msg: "source is required",
		},
		{
			name:   "copy without properties",
			mutate: func(p *Pipeline) { p.Steps[0].Properties = nil },
			sev:    SeverityError, path: "steps[0].properties", msg: "at least one property",
		},
		{
			name: "invalid property type",
			mutate: func(p *Pipeline) {
				p.Steps[0].Properties = append(p.Steps[0].Properties, PropertyConfig{Name: "blob", Type: "BLOB"})
			},
			sev: SeverityError, path: "steps[0].properties[1]", msg: "invalid column type: BLOB",
		},
		{
			name: "duplicate column",
			mutate: func(p *Pipeline) {
				p.Steps[0].Properties = append(p.Steps[0].Properties, PropertyConfig{Name: "other", Type: "TEXT", Column: "id"})
			},
			sev: SeverityError, path: "steps[0].properties", msg: "duplicate column of name: id",
		},
		{
			name:   "negative max error count",
			mutate: func(p *Pipeline) { p.Steps[0].MaxErrorCount = intPtr(-1) },
			sev:    SeverityError, path: "steps[0].max_error_count", msg: "must not be negative",
		},
		{
			name:   "sql without statements",
			mutate: func(p *Pipeline) { p.Steps[1].Statements = nil },
			sev:    SeverityError, path: "steps[1].statements", msg: "at least one statement",
		},
		{
			name: "sql with values and args",
			mutate: func(p *Pipeline) {
				p.Steps[1].Statements[0] = StatementConfig{SQL: "x", Values: []any{"a"}, Args: []any{1}}
			},
			sev: SeverityError, path: "steps[1].statements[0]", msg: "cannot be combined",
		},
		{
			name:   "pushgateway without url",
			mutate: func(p *Pipeline) { p.Metrics.Backend = "pushgateway" },
			sev:    SeverityError, path: "metrics.pushgateway_url", msg: "PUSHGATEWAY_URL",
		},
		{
			name:   "datadog without addr",
			mutate: func(p *Pipeline) { p.Metrics.Backend = "datadog" },
			sev:    SeverityError, path: "metrics.dogstatsd_addr", msg: "DOGSTATSD_ADDR",
		},
		{
			name:   "unknown metrics backend",
			mutate: func(p *Pipeline) { p.Metrics.Backend = "graphite" },
			sev:    SeverityWarning, path: "metrics.backend", msg: "disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validPipeline()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tt.sev, tt.path, tt.msg, issues)
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	if HasErrors(nil) {
		t.Fatal("HasErrors(nil) = true")
	}
	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatal("HasErrors(warnings) = true")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatal("HasErrors(with error) = false")
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "job", Message: "bad"}
	if got := iss.Error(); got != "error at job: bad" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestValidatePipeline_SQLOnlyOnDirBucket(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Bucket = Bucket{Kind: "dir", Name: "local", Root: "/srv/events"}
	p.Steps = p.Steps[1:]

	if issues := ValidatePipeline(p); len(issues) != 0 {
		t.Fatalf("expected no issues; got %+v", issues)
	}
}
