package schema_test

import (
	"sort"
	"testing"

	"schema2db/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loanAbbreviations = map[string]string{"AbbreviateThisReallyLongColumn": "AbbTRLC"}

func compileFile(t *testing.T, path string, opts schema.Options) *schema.Catalog {
	t.Helper()
	s, err := schema.LoadFile(path)
	require.NoError(t, err)
	cat, err := schema.Compile(s, opts)
	require.NoError(t, err)
	return cat
}

func compileJSON(t *testing.T, doc string, opts schema.Options) *schema.Catalog {
	t.Helper()
	s, err := schema.Parse([]byte(doc), ".json")
	require.NoError(t, err)
	cat, err := schema.Compile(s, opts)
	require.NoError(t, err)
	return cat
}

func columnNames(t *testing.T, cat *schema.Catalog, table string) []string {
	t.Helper()
	tbl, ok := cat.Table(table)
	require.True(t, ok, "table %s missing", table)
	return tbl.ColumnNames()
}

func TestCompile_LoanSchema(t *testing.T) {
	cat := compileFile(t, "testdata/loan.json", schema.Options{Abbreviations: loanAbbreviations})

	assert.Equal(t, "root", cat.Root)
	assert.Equal(t, []string{"basic_address", "real_estate_owned", "root"}, cat.TableNames())

	assert.Equal(t, []string{
		"loan__abb_trlc",
		"loan__amount",
		"subject_property__acreage",
		"subject_property__address__latitude",
		"subject_property__address_id",
	}, columnNames(t, cat, "root"))
	assert.Equal(t, []string{"city", "zip_code"}, columnNames(t, cat, "basic_address"))
	assert.Equal(t, []string{"address_id", "rental_income", "root_id"}, columnNames(t, cat, "real_estate_owned"))

	assert.Equal(t, []schema.Link{
		{Table: "real_estate_owned", Column: "address_id", Target: "basic_address", Prefix: "Address"},
		{Table: "real_estate_owned", Column: "root_id", Target: "root", Back: true},
		{Table: "root", Column: "subject_property__address_id", Target: "basic_address", Prefix: "SubjectProperty/Address"},
	}, cat.Links)

	assert.Empty(t, cat.Diagnostics.Warnings)
}

func TestCompile_ColumnTypesAndComments(t *testing.T) {
	cat := compileFile(t, "testdata/loan.json", schema.Options{Abbreviations: loanAbbreviations})

	root, _ := cat.Table("root")
	assert.Equal(t, "a loan file", root.Comment)
	types := map[string]schema.ColumnType{}
	for _, c := range root.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, schema.TypeInteger, types["loan__amount"])
	assert.Equal(t, schema.TypeNumber, types["subject_property__acreage"])
	assert.Equal(t, schema.TypeString, types["loan__abb_trlc"])
	assert.Equal(t, schema.TypeLink, types["subject_property__address_id"])

	addr, _ := cat.Table("basic_address")
	assert.Equal(t, "a postal address", addr.Comment)
	assert.Equal(t, "city name", addr.Columns[0].Comment)
}

func TestCompile_TranslationTree(t *testing.T) {
	cat := compileFile(t, "testdata/loan.json", schema.Options{Abbreviations: loanAbbreviations})

	sp, ok := cat.Tree.Next("SubjectProperty")
	require.True(t, ok)
	addr, ok := sp.Next("Address")
	require.True(t, ok)
	assert.Equal(t, "root", addr.Table)
	assert.Equal(t, "SubjectProperty/Address", addr.Suffix)
	assert.Nil(t, addr.Leaf)

	city, ok := addr.Next("City")
	require.True(t, ok)
	require.NotNil(t, city.Leaf)
	assert.Equal(t, "basic_address", city.Table)
	assert.Equal(t, "City", city.Suffix)
	assert.Equal(t, "city", city.Leaf.Column)
	assert.Equal(t, "#/definitions/basicAddress/City", city.JSONPath)

	lat, ok := addr.Next("Latitude")
	require.True(t, ok)
	assert.Equal(t, "root", lat.Table)
	assert.Equal(t, "SubjectProperty/Address/Latitude", lat.Suffix)

	reo, ok := cat.Tree.Next("RealEstateOwned")
	require.True(t, ok)
	entry, ok := reo.Next("any-key")
	require.True(t, ok)
	assert.Equal(t, "real_estate_owned", entry.Table)
	assert.Equal(t, "", entry.Suffix)

	_, ok = cat.Tree.Next("Unknown")
	assert.False(t, ok)
}

func TestCompile_SharedDefinitionCompiledOnce(t *testing.T) {
	cat := compileFile(t, "testdata/loan.json", schema.Options{})

	sp, _ := cat.Tree.Next("SubjectProperty")
	a1, _ := sp.Next("Address")
	reo, _ := cat.Tree.Next("RealEstateOwned")
	entry, _ := reo.Next("1")
	a2, _ := entry.Next("Address")

	c1, _ := a1.Next("City")
	c2, _ := a2.Next("City")
	assert.Same(t, c1, c2)
}

func TestCompile_BackLinks(t *testing.T) {
	cat := compileFile(t, "testdata/pp_to_def.json", schema.Options{})

	assert.Equal(t, []string{"a_bunch_of_documents", "file", "more_documents", "root"}, cat.TableNames())
	assert.Equal(t, []string{"file_id", "root_id"}, columnNames(t, cat, "a_bunch_of_documents"))
	assert.Equal(t, []string{"file_id", "root_id"}, columnNames(t, cat, "more_documents"))
	// file is reachable from two contexts, so it gets no parent column
	assert.Equal(t, []string{"url"}, columnNames(t, cat, "file"))
	assert.Empty(t, columnNames(t, cat, "root"))

	for _, l := range cat.Links {
		assert.NotEqual(t, "file", l.Table)
	}
}

func TestCompile_UniqueParentGetsBackLink(t *testing.T) {
	cat := compileJSON(t, `{
		"type": "object",
		"properties": {
			"items": {"type": "object", "patternProperties": {".*": {"type": "object", "properties": {"n": {"type": "integer"}}}}}
		}
	}`, schema.Options{})

	assert.Equal(t, []string{"n", "root_id"}, columnNames(t, cat, "items"))
	require.Len(t, cat.Links, 1)
	assert.Equal(t, schema.Link{Table: "items", Column: "root_id", Target: "root", Back: true}, cat.Links[0])
}

func TestCompile_TableComments(t *testing.T) {
	cat := compileFile(t, "testdata/pp_to_def.json", schema.Options{})

	comments := map[string]string{}
	for _, name := range cat.TableNames() {
		tbl, _ := cat.Table(name)
		if tbl.Comment != "" {
			comments[name] = tbl.Comment
		}
	}
	assert.Equal(t, map[string]string{
		"root":                 "the root of everything",
		"file":                 "this is a file",
		"a_bunch_of_documents": "this is a bunch of documents",
	}, comments)

	file, _ := cat.Table("file")
	assert.Equal(t, "the url of the file", file.Columns[0].Comment)
}

func TestCompile_TimeDefinitionsFromYAML(t *testing.T) {
	cat := compileFile(t, "testdata/time.yaml", schema.Options{})

	root, _ := cat.Table("root")
	require.Len(t, root.Columns, 2)
	assert.Equal(t, schema.Column{Name: "d", Type: schema.TypeDate}, root.Columns[0])
	assert.Equal(t, schema.Column{Name: "ts", Type: schema.TypeTimestamp}, root.Columns[1])
}

func TestCompile_IdentifierLengthCeiling(t *testing.T) {
	cat := compileFile(t, "testdata/loan.json", schema.Options{MaxIdentifierLength: 14})

	for _, name := range cat.TableNames() {
		cols := columnNames(t, cat, name)
		assert.True(t, sort.StringsAreSorted(cols), name)
		for _, c := range cols {
			assert.LessOrEqual(t, len(c), 14, c)
		}
	}
	assert.Equal(t, []string{"loan__amount"}, columnNames(t, cat, "root"))
	assert.True(t, cat.Diagnostics.Has(schema.CodeIdentifierTooLong))
	assert.True(t, cat.Diagnostics.Has(schema.CodeLinkColumnDropped))
	for _, l := range cat.Links {
		assert.NotEqual(t, "subject_property__address_id", l.Column)
	}
}

func TestCompile_ExtraColumns(t *testing.T) {
	cat := compileFile(t, "testdata/loan.json", schema.Options{
		ExtraColumns: []schema.Column{{Name: "loan_period", Type: schema.TypeInteger}},
	})

	assert.Contains(t, columnNames(t, cat, "root"), "loan_period")
}

func TestCompile_UnionMerge(t *testing.T) {
	cat := compileJSON(t, `{
		"type": "object",
		"properties": {
			"nullable": {"oneOf": [{"type": "string"}, {"type": "null"}]},
			"conflict": {"anyOf": [{"type": "string"}, {"type": "integer"}]},
			"typeList": {"type": ["null", "boolean"]}
		}
	}`, schema.Options{})

	root, _ := cat.Table("root")
	types := map[string]schema.ColumnType{}
	for _, c := range root.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, schema.TypeString, types["nullable"])
	assert.Equal(t, schema.TypeInteger, types["conflict"])
	assert.Equal(t, schema.TypeBoolean, types["type_list"])

	n, ok := cat.Tree.Next("nullable")
	require.True(t, ok)
	require.NotNil(t, n.Leaf)
	assert.Equal(t, schema.TypeString, n.Leaf.Type)
}

func TestCompile_Warnings(t *testing.T) {
	cat := compileJSON(t, `{
		"type": "object",
		"properties": {
			"broken": {"$ref": "#/definitions/nope"},
			"external": {"$ref": "other.json"},
			"untyped": {"title": "no type"},
			"weird": {"type": "array"},
			"bare": {"type": "object"},
			"multi": {"type": "object", "patternProperties": {"a": {"type": "string"}, "b": {"type": "string"}}},
			"enumerated": {"enum": ["x", "y"]},
			"nothing": {"type": "null"}
		}
	}`, schema.Options{})

	d := cat.Diagnostics
	assert.Equal(t, 2, d.Count(schema.CodeBrokenRef))
	assert.Equal(t, 1, d.Count(schema.CodeMissingType))
	assert.Equal(t, 1, d.Count(schema.CodeUnknownType))
	assert.Equal(t, 1, d.Count(schema.CodeEmptyObject))
	assert.Equal(t, 1, d.Count(schema.CodeMultiplePatterns))

	_, ok := cat.Tree.Next("broken")
	assert.False(t, ok)
	untyped, ok := cat.Tree.Next("untyped")
	require.True(t, ok)
	assert.Nil(t, untyped.Leaf)

	assert.Equal(t, []string{"enumerated"}, columnNames(t, cat, "root"))
	assert.Equal(t, []string{"root_id"}, columnNames(t, cat, "multi"))
}

func TestCompile_RecursiveDefinition(t *testing.T) {
	cat := compileJSON(t, `{
		"definitions": {
			"node": {"type": "object", "properties": {"name": {"type": "string"}, "child": {"$ref": "#/definitions/node"}}},
			"loop": {"$ref": "#/definitions/loop"}
		},
		"type": "object",
		"properties": {
			"tree": {"$ref": "#/definitions/node"},
			"cycle": {"$ref": "#/definitions/loop"}
		}
	}`, schema.Options{})

	assert.Equal(t, 2, cat.Diagnostics.Count(schema.CodeRecursiveRef))
	assert.Equal(t, []string{"name", "tree_id"}, columnNames(t, cat, "node"))
	assert.Equal(t, []string{"tree_id"}, columnNames(t, cat, "root"))
}

func TestCompile_DefsKeyword(t *testing.T) {
	cat := compileJSON(t, `{
		"$defs": {"Point": {"type": "object", "properties": {"x": {"type": "number"}}}},
		"type": "object",
		"properties": {"origin": {"$ref": "#/$defs/Point"}}
	}`, schema.Options{})

	assert.Equal(t, []string{"point", "root"}, cat.TableNames())
	assert.Equal(t, []string{"origin_id"}, columnNames(t, cat, "root"))
	assert.Equal(t, []string{"origin_id", "x"}, columnNames(t, cat, "point"))
}

func TestCompile_JSONPathsCoverEveryNode(t *testing.T) {
	cat := compileFile(t, "testdata/loan.json", schema.Options{})

	assert.Contains(t, cat.JSONPaths, "")
	assert.Contains(t, cat.JSONPaths, "Loan/Amount")
	assert.Contains(t, cat.JSONPaths, "#/definitions/basicAddress/City")
	assert.Contains(t, cat.JSONPaths, "RealEstateOwned/^[0-9]+$/RentalIncome")
}

func TestCompile_NilSchema(t *testing.T) {
	_, err := schema.Compile(nil, schema.Options{})
	assert.Error(t, err)
}

func TestCatalog_Ordered(t *testing.T) {
	cat := compileFile(t, "testdata/loan.json", schema.Options{})

	var names []string
	for _, tbl := range cat.Ordered() {
		names = append(names, tbl.Name)
	}
	assert.Equal(t, []string{"basic_address", "root", "real_estate_owned"}, names)
}

func TestCompile_YAMLNonStringKeys(t *testing.T) {
	cat := compileFile(t, "testdata/numeric_keys.yaml", schema.Options{})

	assert.Equal(t, []string{"1", "true"}, columnNames(t, cat, "root"))
	_, ok := cat.Tree.Next("1")
	assert.True(t, ok)
}

func TestCompile_FirstPatternInDocumentOrder(t *testing.T) {
	cat := compileFile(t, "testdata/numeric_keys.yaml", schema.Options{})

	assert.Equal(t, []string{"root_id", "url"}, columnNames(t, cat, "docs"))
	require.Equal(t, 1, cat.Diagnostics.Count(schema.CodeMultiplePatterns))
	for _, w := range cat.Diagnostics.Warnings {
		if w.Code == schema.CodeMultiplePatterns {
			assert.Contains(t, w.Message, "^z")
		}
	}

	cat = compileJSON(t, `{
  "type": "object",
  "properties": {
    "multi": {"type": "object", "patternProperties": {
      "^z": {"type": "object", "properties": {"late": {"type": "string"}}},
      "^a": {"type": "object", "properties": {"early": {"type": "string"}}}
    }}
  }
}`, schema.Options{})
	assert.Equal(t, []string{"late", "root_id"}, columnNames(t, cat, "multi"))
}

func TestParse_YAMLNumericPropertyName(t *testing.T) {
	s, err := schema.Parse([]byte("type: object\nproperties:\n  1:\n    type: string\n"), ".yaml")
	require.NoError(t, err)
	require.Contains(t, s.Properties, "1")
	assert.Equal(t, "string", s.Properties["1"].Type)
}
