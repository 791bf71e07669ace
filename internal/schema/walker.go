package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"schema2db/internal/naming"

	"github.com/google/jsonschema-go/jsonschema"
)

// DefaultRootTable is the table holding the top level properties.
const DefaultRootTable = "root"

// DefaultMaxIdentifierLength matches the Postgres identifier limit.
const DefaultMaxIdentifierLength = 63

// Options controls schema compilation.
type Options struct {
	RootTable           string
	Abbreviations       map[string]string
	MaxIdentifierLength int
	// ExtraColumns are added to the root table as is.
	ExtraColumns []Column
}

// backlink is a candidate parent pointer for a child table.
type backlink struct {
	parent string
	column string
	origin string
}

// builder accumulates tables, links and back-link candidates while the
// schema is walked.
type builder struct {
	root  *jsonschema.Schema
	namer *naming.Namer

	columns        map[string]map[string]ColumnType
	tableComments  map[string]string
	columnComments map[string]map[string]string
	links          map[string]map[string]Link
	backlinks      map[string]map[backlink]struct{}
	jsonPaths      map[string]struct{}

	defs       map[string]map[string]*Node
	inProgress map[string]bool

	diags Diagnostics
}

func newBuilder(root *jsonschema.Schema, namer *naming.Namer) *builder {
	return &builder{
		root:           root,
		namer:          namer,
		columns:        make(map[string]map[string]ColumnType),
		tableComments:  make(map[string]string),
		columnComments: make(map[string]map[string]string),
		links:          make(map[string]map[string]Link),
		backlinks:      make(map[string]map[backlink]struct{}),
		jsonPaths:      make(map[string]struct{}),
		defs:           make(map[string]map[string]*Node),
		inProgress:     make(map[string]bool),
	}
}

// Compile walks s and returns the table catalog together with the
// translation tree used to map data onto it.
func Compile(s *jsonschema.Schema, opts Options) (*Catalog, error) {
	if s == nil {
		return nil, errors.New("schema: nil schema")
	}
	if opts.RootTable == "" {
		opts.RootTable = DefaultRootTable
	}
	if opts.MaxIdentifierLength <= 0 {
		opts.MaxIdentifierLength = DefaultMaxIdentifierLength
	}

	b := newBuilder(s, naming.New(opts.Abbreviations))
	tree := b.walk(s, nil, opts.RootTable, nil, commentOf(s), nil)
	if tree == nil {
		tree = &Node{Table: opts.RootTable}
	}
	b.ensureTable(opts.RootTable, "")

	b.resolveBacklinks()
	return b.finalize(tree, opts), nil
}

func (b *builder) warn(code, table string, path []string, format string, args ...any) {
	b.diags.AddWarning(code, fmt.Sprintf(format, args...), table, b.namer.Name(path...))
}

func (b *builder) ensureTable(table, comment string) {
	if _, ok := b.columns[table]; ok {
		return
	}
	b.columns[table] = make(map[string]ColumnType)
	if comment != "" {
		b.tableComments[table] = comment
	}
}

func (b *builder) addColumn(table, column string, t ColumnType, comment string) {
	b.columns[table][column] = t
	if comment == "" {
		return
	}
	if b.columnComments[table] == nil {
		b.columnComments[table] = make(map[string]string)
	}
	b.columnComments[table][column] = comment
}

func (b *builder) addBacklink(table string, bl backlink) {
	if b.backlinks[table] == nil {
		b.backlinks[table] = make(map[backlink]struct{})
	}
	b.backlinks[table][bl] = struct{}{}
}

// walk compiles one schema node found at path inside table. A nil result
// means the branch is discarded.
func (b *builder) walk(s *jsonschema.Schema, path []string, table string, parent *backlink, comment string, jsonPath []string) *Node {
	if s == nil {
		b.warn(CodeBrokenSubtree, table, path, "broken subtree")
		return nil
	}
	if parent != nil {
		b.addBacklink(table, *parent)
	}
	b.ensureTable(table, comment)

	column := b.namer.Name(path...)
	refPath := jsonPath
	var definition string
	seen := make(map[string]bool)
	for s.Ref != "" {
		if seen[s.Ref] {
			b.warn(CodeRecursiveRef, table, path, "reference cycle: %s", s.Ref)
			return nil
		}
		seen[s.Ref] = true
		target, segments, err := b.resolve(s.Ref)
		if err != nil {
			b.warn(CodeBrokenRef, table, path, "broken definition: %s", s.Ref)
			return nil
		}
		s = target
		refPath = append([]string{"#"}, segments...)
		definition = segments[len(segments)-1]
	}

	if len(s.AllOf)+len(s.AnyOf)+len(s.OneOf) > 0 {
		var merged *Node
		for _, branches := range [][]*jsonschema.Schema{s.AllOf, s.AnyOf, s.OneOf} {
			for _, branch := range branches {
				merged = merge(merged, b.walk(branch, path, table, nil, "", refPath))
			}
		}
		return merged
	}

	n := &Node{}
	switch {
	case s.Enum != nil:
		b.addColumn(table, column, TypeEnum, commentOf(s))
		n.Leaf = &Leaf{Column: column, Type: TypeEnum}
	default:
		typ, ok := typeOf(s)
		if !ok {
			b.warn(CodeMissingType, table, path, "type info missing")
			break
		}
		switch typ {
		case "object":
			b.walkObject(n, s, path, table, parent, definition, refPath)
		case "null":
		case "string", "boolean", "number", "integer":
			t := ColumnType(typ)
			if definition == string(TypeDate) || definition == string(TypeTimestamp) {
				t = ColumnType(definition)
			}
			b.addColumn(table, column, t, commentOf(s))
			n.Leaf = &Leaf{Column: column, Type: t}
		default:
			b.warn(CodeUnknownType, table, path, "type error: %s", typ)
		}
	}

	n.Table = table
	n.Suffix = strings.Join(path, "/")
	n.JSONPath = strings.Join(jsonPath, "/")
	b.jsonPaths[n.JSONPath] = struct{}{}
	return n
}

func (b *builder) walkObject(n *Node, s *jsonschema.Schema, path []string, table string, parent *backlink, definition string, refPath []string) {
	column := b.namer.Name(path...)

	switch {
	case s.PatternProperties != nil:
		patterns := patternKeys(s)
		if len(patterns) > 1 {
			b.warn(CodeMultiplePatterns, table, path, "multiple patternProperties, will ignore all except %s", patterns[0])
		}
		if len(patterns) == 0 {
			return
		}
		child := b.namer.Name(path...)
		if child == "" {
			child = table + "_entries"
		}
		bl := &backlink{parent: table, column: table + "_id", origin: column}
		n.Wildcard = b.walk(s.PatternProperties[patterns[0]], nil, child, bl, commentOf(s), extend(refPath, patterns[0]))

	case s.Properties != nil && definition != "":
		defTable := b.namer.Name(definition)
		refColumn := column + "_id"
		if len(path) == 0 {
			refColumn = defTable + "_id"
		}
		children, ok := b.definition(definition, s, defTable, backlink{parent: table, column: refColumn, origin: column}, refPath)
		if !ok {
			return
		}
		n.Children = children
		b.addColumn(table, refColumn, TypeLink, "")
		if b.links[table] == nil {
			b.links[table] = make(map[string]Link)
		}
		b.links[table][refColumn] = Link{Table: table, Column: refColumn, Target: defTable, Prefix: strings.Join(path, "/")}

	case s.Properties != nil:
		n.Children = make(map[string]*Node, len(s.Properties))
		for _, p := range sortedKeys(s.Properties) {
			if c := b.walk(s.Properties[p], extend(path, p), table, parent, commentOf(s), extend(refPath, p)); c != nil {
				n.Children[p] = c
			}
		}

	default:
		b.warn(CodeEmptyObject, table, path, "object with neither properties nor patternProperties")
	}
}

// definition compiles the properties of a shared definition into its own
// table. The children are compiled once per definition name and reused by
// every later reference.
func (b *builder) definition(name string, s *jsonschema.Schema, defTable string, parent backlink, jsonPath []string) (map[string]*Node, bool) {
	if b.inProgress[name] {
		b.diags.AddWarning(CodeRecursiveRef, "recursive definition: "+name, parent.parent, parent.column)
		return nil, false
	}
	b.ensureTable(defTable, commentOf(s))
	if cached, ok := b.defs[name]; ok {
		if len(s.Properties) > 0 {
			b.addBacklink(defTable, parent)
		}
		return cached, true
	}

	b.inProgress[name] = true
	defer delete(b.inProgress, name)

	children := make(map[string]*Node, len(s.Properties))
	for _, p := range sortedKeys(s.Properties) {
		if c := b.walk(s.Properties[p], []string{p}, defTable, &parent, commentOf(s), extend(jsonPath, p)); c != nil {
			children[p] = c
		}
	}
	b.defs[name] = children
	return children, true
}

// resolve follows a local JSON pointer reference such as
// "#/definitions/address" or "#/$defs/address".
func (b *builder) resolve(ref string) (*jsonschema.Schema, []string, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, nil, fmt.Errorf("unsupported reference %q", ref)
	}
	segments := strings.Split(strings.TrimPrefix(ref, "#/"), "/")
	for i, seg := range segments {
		segments[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(seg)
	}

	cur := b.root
	for i := 0; i < len(segments); i += 2 {
		var m map[string]*jsonschema.Schema
		switch segments[i] {
		case "definitions":
			m = cur.Definitions
		case "$defs":
			m = cur.Defs
		case "properties":
			m = cur.Properties
		case "patternProperties":
			m = cur.PatternProperties
		default:
			return nil, nil, fmt.Errorf("unsupported reference segment %q", segments[i])
		}
		if i+1 >= len(segments) {
			return nil, nil, fmt.Errorf("reference %q ends at a keyword", ref)
		}
		next, ok := m[segments[i+1]]
		if !ok || next == nil {
			return nil, nil, fmt.Errorf("reference %q not found", ref)
		}
		cur = next
	}
	return cur, segments, nil
}

// merge overlays b onto a the way union branches are combined: later
// branches win on conflicting keys.
func merge(a, b *Node) *Node {
	if b == nil {
		return a
	}
	if a == nil {
		c := *b
		c.Children = copyChildren(b.Children, nil)
		return &c
	}
	a.Table, a.Suffix, a.JSONPath = b.Table, b.Suffix, b.JSONPath
	if b.Leaf != nil {
		a.Leaf = b.Leaf
	}
	if b.Wildcard != nil {
		a.Wildcard = b.Wildcard
	}
	a.Children = copyChildren(a.Children, b.Children)
	return a
}

func copyChildren(a, b map[string]*Node) map[string]*Node {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[string]*Node, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// typeOf returns the declared type. A type list with a single non-null entry
// counts as that entry.
func typeOf(s *jsonschema.Schema) (string, bool) {
	if s.Type != "" {
		return s.Type, true
	}
	if len(s.Types) == 0 {
		return "", false
	}
	var nonNull []string
	for _, t := range s.Types {
		if t != "null" {
			nonNull = append(nonNull, t)
		}
	}
	switch len(nonNull) {
	case 0:
		return "null", true
	case 1:
		return nonNull[0], true
	}
	return strings.Join(s.Types, ","), true
}

func commentOf(s *jsonschema.Schema) string {
	if s.Comment != "" {
		return s.Comment
	}
	return s.Description
}

func extend(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

func sortedKeys(m map[string]*jsonschema.Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
