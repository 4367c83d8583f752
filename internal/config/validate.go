package config

// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.

import (
	"fmt"
	"strings"

	"jsonload/internal/warehouse"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "warehouse.kind",
// "steps[1].properties[0]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline and performs no I/O. Warehouse kinds are
// checked against the registered dialects, so callers should import
// jsonload/internal/warehouse/all first.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}

	issues = append(issues, validateBucket(p.Bucket)...)
	dialect, dIssues := validateWarehouse(p.Warehouse)
	issues = append(issues, dIssues...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	if len(p.Steps) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "steps",
			Message:  "at least one step is required",
		})
	}
	copies := 0
	for i, s := range p.Steps {
		if s.IsCopy() {
			copies++
		}
		issues = append(issues, validateStep(fmt.Sprintf("steps[%d]", i), s, p.Bucket, dialect)...)
	}

	if copies > 0 && (p.Credentials.AccessKeyID == "" || p.Credentials.SecretAccessKey == "") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "credentials",
			Message:  "copy steps need AWS credentials; set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY",
		})
	}

	return issues
}

func validateBucket(b Bucket) []Issue {
	var issues []Issue

	switch b.Kind {
	case "s3", "":
		if strings.TrimSpace(b.Name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "bucket.name",
				Message:  "bucket name is required for s3 buckets",
			})
		}
	case "dir":
		if strings.TrimSpace(b.Root) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "bucket.root",
				Message:  "root is required for dir buckets",
			})
		}
	case "memory":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "bucket.kind",
			Message:  "memory buckets are empty at start and lost at exit; use for testing only",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "bucket.kind",
			Message:  fmt.Sprintf("unsupported bucket kind %q (want s3, dir or memory)", b.Kind),
		})
	}

	return issues
}

// validateWarehouse returns the resolved dialect (zero when unknown) and any
// issues.
func validateWarehouse(w Warehouse) (warehouse.Dialect, []Issue) {
	var issues []Issue

	dialect, err := warehouse.Lookup(w.Kind)
	if err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.kind",
			Message:  fmt.Sprintf("unknown warehouse %q (registered: %s)", w.Kind, strings.Join(warehouse.Dialects(), ", ")),
		})
		return warehouse.Dialect{}, issues
	}

	if strings.TrimSpace(w.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.dsn",
			Message:  "dsn is required; set it in the file or via WAREHOUSE_DSN",
		})
	} else if err := dialect.CheckDSN(w.DSN); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.dsn",
			Message:  err.Error(),
		})
	}

	return dialect, issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend needs a URL; set it in the file or via PUSHGATEWAY_URL",
			})
		}
	case "datadog":
		if m.DogStatsDAddr == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.dogstatsd_addr",
				Message:  "datadog backend needs an address; set it in the file or via DOGSTATSD_ADDR",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		})
	}

	return issues
}

func validateStep(path string, s Step, bucket Bucket, dialect warehouse.Dialect) []Issue {
	switch {
	case s.IsCopy():
		return validateCopyStep(path, s, bucket, dialect)
	case s.Kind == KindSQL:
		return validateSQLStep(path, s)
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message: fmt.Sprintf("unsupported step kind %q (want %s, %s, %s or %s)",
				s.Kind, KindBulkCopy, KindManifestCopy, KindSQLManifestCopy, KindSQL),
		}}
	}
}

func validateCopyStep(path string, s Step, bucket Bucket, dialect warehouse.Dialect) []Issue {
	var issues []Issue

	if bucket.Kind != "" && bucket.Kind != "s3" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("%s steps read s3:// URLs; objects in a %s bucket are not reachable by COPY", s.Kind, bucket.Kind),
		})
	}

	if dialect.Name != "" && !dialect.Copy {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("%s steps need a warehouse supporting COPY; %q does not", s.Kind, dialect.Name),
		})
	}
	for _, field := range []struct{ name, value string }{
		{"table", s.Table},
		{"source", s.Source},
		{"metadata", s.Metadata},
	} {
		if strings.TrimSpace(field.value) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + "." + field.name,
				Message:  field.name + " is required for copy steps",
			})
		}
	}
	if s.MaxErrorCount != nil && *s.MaxErrorCount < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".max_error_count",
			Message:  "max_error_count must not be negative",
		})
	}
	if len(s.Statements) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path + ".statements",
			Message:  "statements are ignored by copy steps",
		})
	}

	if len(s.Properties) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".properties",
			Message:  "at least one property is required",
		})
		return issues
	}
	built := true
	for i, pc := range s.Properties {
		if _, err := pc.Build(); err != nil {
			built = false
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s.properties[%d]", path, i),
				Message:  err.Error(),
			})
		}
	}
	if built && strings.TrimSpace(s.Table) != "" {
		if _, err := s.Object(); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".properties",
				Message:  err.Error(),
			})
		}
	}

	return issues
}

func validateSQLStep(path string, s Step) []Issue {
	var issues []Issue

	if len(s.Statements) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".statements",
			Message:  "sql steps need at least one statement",
		})
	}
	for i, st := range s.Statements {
		p := fmt.Sprintf("%s.statements[%d]", path, i)
		if strings.TrimSpace(st.SQL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     p + ".sql",
				Message:  "sql must not be empty",
			})
		}
		if len(st.Values) > 0 && len(st.Args) > 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     p,
				Message:  "values (spliced) and args (bound) cannot be combined",
			})
		}
	}
	if s.Table != "" || len(s.Properties) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path,
			Message:  "table and properties are ignored by sql steps",
		})
	}

	return issues
}
