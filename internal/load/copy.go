package load

import "fmt"

// DefaultMaxError is the number of rejected rows a COPY tolerates unless the
// step says otherwise.
const DefaultMaxError = 1

// Credentials are the object-store keys the warehouse uses to read source
// objects during COPY.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// Secrets lists the values to redact from logged statements.
func (c Credentials) Secrets() []string {
	return []string{c.AccessKeyID, c.SecretAccessKey}
}

// copyCommand describes one warehouse COPY of JSON objects.
type copyCommand struct {
	table    string
	from     string
	paths    string
	creds    Credentials
	manifest bool
	maxError int
	noLoad   bool
}

// template renders the COPY clause set with a placeholder for every value.
func (c copyCommand) template() string {
	tmpl := "COPY %s FROM '%s' " +
		"CREDENTIALS 'aws_access_key_id=%s;aws_secret_access_key=%s' " +
		"JSON '%s' " +
		"TIMEFORMAT 'auto' "
	if c.manifest {
		tmpl += "MANIFEST "
	}
	tmpl += "MAXERROR %d"
	if c.noLoad {
		tmpl += " NOLOAD"
	}
	return tmpl
}

// Statement returns the COPY as an Unsafe statement: the warehouse does not
// accept bind parameters in COPY, so every value is spliced.
func (c copyCommand) Statement() Statement {
	return Unsafe(c.template(),
		c.table, c.from,
		c.creds.AccessKeyID, c.creds.SecretAccessKey,
		c.paths, c.maxError)
}

func (c copyCommand) String() string {
	return fmt.Sprintf("COPY %s FROM %s", c.table, c.from)
}
