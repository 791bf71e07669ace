// Package naming turns schema paths into table and column identifiers.
package naming

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Separator joins the converted path segments.
const Separator = "__"

var (
	firstCap = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	allCap   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Namer compiles paths into identifiers. Table names and column names share
// the same compiler so nested tables and columns never differ in style.
type Namer struct {
	abbreviations map[string]string
}

// New returns a Namer that substitutes whole path segments using abbreviations
// before case conversion.
func New(abbreviations map[string]string) *Namer {
	abbr := make(map[string]string, len(abbreviations))
	for k, v := range abbreviations {
		abbr[k] = v
	}
	return &Namer{abbreviations: abbr}
}

// Name converts every segment and joins them with Separator.
func (n *Namer) Name(path ...string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		if a, ok := n.abbreviations[p]; ok {
			p = a
		}
		parts[i] = CamelToSnake(p)
	}
	return strings.Join(parts, Separator)
}

// CamelToSnake converts "SubjectProperty" to "subject_property" and
// "AbbTRLC" to "abb_trlc".
func CamelToSnake(s string) string {
	s = firstCap.ReplaceAllString(s, "${1}_${2}")
	s = allCap.ReplaceAllString(s, "${1}_${2}")
	return cases.Lower(language.Und).String(s)
}
