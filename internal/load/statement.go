package load

import (
	"fmt"
	"strings"
)

type statementKind int

const (
	literal statementKind = iota
	unsafe
	bound
)

// Statement is one SQL statement of a SQLStep.
//
// Three forms exist and they differ in how values reach the database:
//
//   - Literal runs the text untouched.
//   - Unsafe splices values into the template with fmt.Sprintf before
//     execution, without quoting or escaping. It exists for identifiers in
//     DDL, which cannot be bound. Values must come from trusted
//     configuration, never from data.
//   - Bound passes args to the driver as bind parameters.
type Statement struct {
	kind  statementKind
	query string
	args  []any
}

// Literal returns a statement executed exactly as written.
func Literal(query string) Statement {
	return Statement{kind: literal, query: query}
}

// Unsafe returns a statement whose values are spliced verbatim into template.
func Unsafe(template string, values ...any) Statement {
	return Statement{kind: unsafe, query: template, args: values}
}

// Bound returns a statement whose args are bound by the driver.
func Bound(query string, args ...any) Statement {
	return Statement{kind: bound, query: query, args: args}
}

// Render returns the text sent to the database and its bind arguments.
func (s Statement) Render() (string, []any) {
	switch s.kind {
	case unsafe:
		return fmt.Sprintf(s.query, s.args...), nil
	case bound:
		return s.query, s.args
	default:
		return s.query, nil
	}
}

// String returns the rendered text, truncated for logging.
func (s Statement) String() string {
	query, _ := s.Render()
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > 80 {
		query = query[:77] + "..."
	}
	return query
}
