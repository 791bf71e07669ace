package schema

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Warning codes reported while compiling a schema.
const (
	CodeBrokenSubtree     = "broken_subtree"
	CodeBrokenRef         = "broken_ref"
	CodeRecursiveRef      = "recursive_ref"
	CodeMultiplePatterns  = "multiple_pattern_properties"
	CodeMissingType       = "missing_type"
	CodeEmptyObject       = "empty_object"
	CodeUnknownType       = "unknown_type"
	CodeIdentifierTooLong = "identifier_too_long"
	CodeLinkColumnDropped = "link_column_dropped"
)

// Diagnostic is a single non-fatal problem found during compilation.
type Diagnostic struct {
	Code    string
	Message string
	Table   string
	Column  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s.%s: %s", d.Table, d.Column, d.Message)
}

// Diagnostics collects the warnings of one compilation.
type Diagnostics struct {
	Warnings []Diagnostic
}

// AddWarning records and logs a warning.
func (d *Diagnostics) AddWarning(code, message, table, column string) {
	w := Diagnostic{Code: code, Message: message, Table: table, Column: column}
	d.Warnings = append(d.Warnings, w)
	log.WithField("code", code).Warn(w.String())
}

// Has reports whether at least one warning with code was recorded.
func (d Diagnostics) Has(code string) bool {
	return d.Count(code) > 0
}

// Count returns the number of warnings with code.
func (d Diagnostics) Count(code string) int {
	n := 0
	for _, w := range d.Warnings {
		if w.Code == code {
			n++
		}
	}
	return n
}
