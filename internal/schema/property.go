// Package schema describes how JSON object paths map onto warehouse columns.
//
// A Property maps one (possibly nested) JSON path to a single column with a
// declared SQL type. A JSONObject groups Properties into an ordered table
// definition and renders the JSON-path descriptor the warehouse uses while
// ingesting JSON documents.
package schema

import (
	"fmt"
	"strings"

	"github.com/zeebo/errs"
)

// Error is the error class for invalid schema declarations.
var Error = errs.Class("schema")

// supportedTypes is the allow-list of scalar type names. A declared type is
// accepted when any of these appears in it (case-insensitively), which lets
// parameterised types such as VARCHAR(36) or DECIMAL(10,2) through.
var supportedTypes = []string{
	"SMALLINT",
	"INT2",
	"INTEGER",
	"INT",
	"INT4",
	"BIGINT",
	"INT8",
	"DECIMAL",
	"NUMERIC",
	"REAL",
	"FLOAT4",
	"DOUBLE PRECISION",
	"FLOAT8",
	"FLOAT",
	"BOOLEAN",
	"BOOL",
	"CHAR",
	"CHARACTER",
	"NCHAR",
	"BPCHAR",
	"VARCHAR",
	"CHARACTER VARYING",
	"NVARCHAR",
	"TEXT",
	"DATE",
	"TIMESTAMP",
}

// ValidateType returns a schema error when sqlType contains none of the
// supported scalar type names.
func ValidateType(sqlType string) error {
	upper := strings.ToUpper(sqlType)
	for _, name := range supportedTypes {
		if strings.Contains(upper, name) {
			return nil
		}
	}
	return Error.New("invalid column type: %s", sqlType)
}

// Property maps a JSON path to one column. The zero value is not usable;
// build Properties with Field and Nest.
//
// Properties are immutable: Named returns a copy.
type Property struct {
	name    string
	column  string
	sqlType string
	child   *Property
}

// Field declares a terminal property: JSON key name holding a value of the
// given SQL type.
func Field(name, sqlType string) (Property, error) {
	if strings.TrimSpace(name) == "" {
		return Property{}, Error.New("property name must not be empty")
	}
	if err := ValidateType(sqlType); err != nil {
		return Property{}, err
	}
	return Property{name: name, sqlType: sqlType}, nil
}

// Nest declares a property whose value is the object described by child.
// The resulting column is read from the path name → child path.
func Nest(name string, child Property) (Property, error) {
	if strings.TrimSpace(name) == "" {
		return Property{}, Error.New("property name must not be empty")
	}
	if child.name == "" {
		return Property{}, Error.New("nested property %q has no child", name)
	}
	if err := ValidateType(child.Type()); err != nil {
		return Property{}, err
	}
	c := child
	return Property{name: name, child: &c}, nil
}

// MustField is like Field but panics on error. Intended for package-level
// declarations and tests.
func MustField(name, sqlType string) Property {
	p, err := Field(name, sqlType)
	if err != nil {
		panic(err)
	}
	return p
}

// Named returns a copy of p with an explicit column name.
func (p Property) Named(column string) Property {
	p.column = column
	return p
}

// Keys returns the JSON path segments from the outermost key down to the
// terminal one.
func (p Property) Keys() []string {
	var keys []string
	for cur := &p; cur != nil; cur = cur.child {
		keys = append(keys, cur.name)
	}
	return keys
}

// Type returns the SQL type declared on the terminal property.
func (p Property) Type() string {
	cur := &p
	for cur.child != nil {
		cur = cur.child
	}
	return cur.sqlType
}

// Column returns the resolved column name: the innermost explicitly supplied
// name in the chain, or the underscore-joined keys when none was supplied.
func (p Property) Column() string {
	column := ""
	for cur := &p; cur != nil; cur = cur.child {
		if cur.column != "" {
			column = cur.column
		}
	}
	if column != "" {
		return column
	}
	return strings.Join(p.Keys(), "_")
}

// Path renders the JSON-path expression for p, e.g. $['user']['id'].
func (p Property) Path() string {
	var sb strings.Builder
	sb.WriteByte('$')
	for _, key := range p.Keys() {
		fmt.Fprintf(&sb, "['%s']", key)
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (p Property) String() string {
	return fmt.Sprintf("%s %s <- %s", p.Column(), p.Type(), p.Path())
}
