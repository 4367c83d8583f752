package schema

import (
	"encoding/json"
	"strings"
)

// JSONObject is the table-level mapping: a destination table and the ordered
// properties that become its columns. Declaration order defines both column
// order and JSON-path order.
type JSONObject struct {
	table      string
	properties []Property
	columns    map[string]struct{}
}

// Paths is the side-car JSON-path descriptor consumed by the warehouse.
type Paths struct {
	JSONPaths []string `json:"jsonpaths"`
}

// New builds a JSONObject for table from props. It fails with a schema error
// on an empty table name, an invalid property, or a duplicate column.
func New(table string, props ...Property) (*JSONObject, error) {
	if strings.TrimSpace(table) == "" {
		return nil, Error.New("table name must not be empty")
	}
	o := &JSONObject{
		table:   table,
		columns: make(map[string]struct{}, len(props)),
	}
	for _, p := range props {
		if err := o.Add(p); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Add appends p, rejecting a column name already present in o.
func (o *JSONObject) Add(p Property) error {
	if p.name == "" {
		return Error.New("property has no name")
	}
	column := p.Column()
	if _, dup := o.columns[column]; dup {
		return Error.New("cannot define duplicate column of name: %s", column)
	}
	o.columns[column] = struct{}{}
	o.properties = append(o.properties, p)
	return nil
}

// Table is the live destination table name.
func (o *JSONObject) Table() string { return o.table }

// UpdateTable is the staging table name.
func (o *JSONObject) UpdateTable() string { return o.table + "_update" }

// FileName is the side-car descriptor file name.
func (o *JSONObject) FileName() string { return o.table + "_jsonpath.json" }

// Properties returns a copy of the declared properties in order.
func (o *JSONObject) Properties() []Property {
	return append([]Property(nil), o.properties...)
}

// Paths returns one JSON-path expression per property, in declaration order.
func (o *JSONObject) Paths() Paths {
	paths := make([]string, 0, len(o.properties))
	for _, p := range o.properties {
		paths = append(paths, p.Path())
	}
	return Paths{JSONPaths: paths}
}

// Descriptor serialises Paths as the side-car file contents.
func (o *JSONObject) Descriptor() ([]byte, error) {
	b, err := json.Marshal(o.Paths())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return b, nil
}
