package mapper_test

import (
	"strings"
	"sync"
	"testing"

	"schema2db/internal/mapper"
	"schema2db/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, file string) *schema.Catalog {
	t.Helper()
	s, err := schema.LoadFile("../schema/testdata/" + file)
	require.NoError(t, err)
	cat, err := schema.Compile(s, schema.Options{
		Abbreviations: map[string]string{"AbbreviateThisReallyLongColumn": "AbbTRLC"},
		ExtraColumns:  []schema.Column{{Name: "loan_period", Type: schema.TypeInteger}},
	})
	require.NoError(t, err)
	return cat
}

// value returns the value of column col in row r.
func value(t *testing.T, cat *schema.Catalog, r mapper.Row, col string) any {
	t.Helper()
	tbl, ok := cat.Table(r.Table)
	require.True(t, ok)
	i, ok := tbl.ColumnIndex(col)
	require.True(t, ok, "column %s.%s missing", r.Table, col)
	return r.Values[i]
}

func TestMapItem_LoanExample(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItem(mapper.Item{
		ID: 1,
		Data: map[string]any{
			"Loan":            map[string]any{"Amount": 500000},
			"SubjectProperty": map[string]any{"Address": map[string]any{"City": "New York"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	addr, root := rows[0], rows[1]
	assert.Equal(t, "basic_address", addr.Table)
	assert.Equal(t, "/SubjectProperty/Address", addr.Prefix)
	assert.Equal(t, int64(1), addr.ItemID)
	assert.Equal(t, []any{"New York", nil}, addr.Values)

	assert.Equal(t, "root", root.Table)
	assert.Equal(t, "", root.Prefix)
	assert.Equal(t, int64(500000), value(t, cat, root, "loan__amount"))
	assert.Nil(t, value(t, cat, root, "subject_property__address_id"))
	assert.Equal(t, []any{int64(1), ""}, root.Args()[:2])

	assert.Empty(t, m.Failures())
}

func TestMapItem_PatternPropertiesRows(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItem(mapper.Item{
		ID: 7,
		Data: map[string]any{
			"RealEstateOwned": map[string]any{
				"1": map[string]any{"RentalIncome": 10, "Address": map[string]any{"City": "A"}},
				"2": map[string]any{"RentalIncome": 20.5},
			},
		},
	})
	require.NoError(t, err)

	var got []string
	for _, r := range rows {
		got = append(got, r.Table+":"+r.Prefix)
	}
	assert.Equal(t, []string{
		"basic_address:/RealEstateOwned/1/Address",
		"real_estate_owned:/RealEstateOwned/1",
		"real_estate_owned:/RealEstateOwned/2",
		"root:",
	}, got)

	assert.Equal(t, 10.0, value(t, cat, rows[1], "rental_income"))
	assert.Equal(t, 20.5, value(t, cat, rows[2], "rental_income"))
}

func TestMapItem_PrefixPlusSuffixIsPath(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	fields := []mapper.Field{
		{Path: []string{"RealEstateOwned", "3", "Address", "ZipCode"}, Value: "10001"},
		{Path: []string{"RealEstateOwned", "3", "RentalIncome"}, Value: 1},
		{Path: []string{"SubjectProperty", "Address", "City"}, Value: "Boston"},
		{Path: []string{"SubjectProperty", "Address", "Latitude"}, Value: 42.3},
	}
	rows, err := m.MapItem(mapper.Item{ID: 1, Fields: fields})
	require.NoError(t, err)

	for _, f := range fields {
		node := cat.Tree
		for _, seg := range f.Path {
			next, ok := node.Next(seg)
			require.True(t, ok)
			node = next
		}
		if node.Table == cat.Root {
			continue
		}
		found := false
		for _, r := range rows {
			if r.Table != node.Table || value(t, cat, r, node.Leaf.Column) == nil {
				continue
			}
			if r.Prefix+"/"+node.Suffix == "/"+strings.Join(f.Path, "/") {
				found = true
			}
		}
		assert.True(t, found, "no row reconstructs %v", f.Path)
	}
}

func TestMapItem_Failures(t *testing.T) {
	cat := compile(t, "pp_to_def.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItem(mapper.Item{
		ID: 33,
		Fields: []mapper.Field{
			{Path: []string{"aBunchOfDocuments", "xyz", "url"}, Value: "http://baz.bar"},
			{Path: []string{"moreDocuments", "abc", "url"}, Value: "https://banana"},
			{Path: []string{"moreDocuments", "abc", "url"}, Value: []any{"wrong-type"}},
			{Path: []string{"moreDocuments", "abc"}, Value: "broken-value-ignore"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"moreDocuments/abc":     1,
		"moreDocuments/abc/url": 1,
	}, m.Failures())

	var files []string
	for _, r := range rows {
		if r.Table == "file" {
			files = append(files, r.Prefix+"="+value(t, cat, r, "url").(string))
		}
	}
	assert.Equal(t, []string{"/aBunchOfDocuments/xyz=http://baz.bar", "/moreDocuments/abc=https://banana"}, files)
}

func TestMapItem_UnknownPathCountsOnce(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItem(mapper.Item{ID: 1, Data: map[string]any{
		"Loan": map[string]any{"Unknown": map[string]any{"Deep": 1}},
	}})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Loan/Unknown/Deep": 1}, m.Failures())
	require.Len(t, rows, 1)
	for _, v := range rows[0].Values {
		assert.Nil(t, v)
	}
}

func TestMapItem_BooleanRejectedForNumbers(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItem(mapper.Item{ID: 1, Data: map[string]any{
		"Loan":            map[string]any{"Amount": true},
		"SubjectProperty": map[string]any{"Acreage": false},
	}})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Loan/Amount": 1, "SubjectProperty/Acreage": 1}, m.Failures())
	assert.Nil(t, value(t, cat, rows[0], "loan__amount"))
}

func TestMapItem_LastWriteWins(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItem(mapper.Item{ID: 1, Fields: []mapper.Field{
		{Path: []string{"Loan", "Amount"}, Value: 1},
		{Path: []string{"Loan", "Amount"}, Value: nil},
		{Path: []string{"Loan", "Amount"}, Value: "2"},
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), value(t, cat, rows[0], "loan__amount"))
}

func TestMapItem_ExtraColumns(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItem(mapper.Item{ID: 1, Extra: map[string]any{"loan_period": 30}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 30, value(t, cat, rows[0], "loan_period"))
}

func TestMapItem_StructuralRows(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItem(mapper.Item{ID: 5, Data: map[string]any{"Loan": map[string]any{"Amount": nil}}})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = m.MapItem(mapper.Item{ID: 5, Data: map[string]any{"RealEstateOwned": map[string]any{"9": map[string]any{"Unknown": 1}}}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "real_estate_owned", rows[0].Table)
	assert.Equal(t, "/RealEstateOwned/9", rows[0].Prefix)
	assert.Equal(t, "root", rows[1].Table)
}

func TestMapItem_InvalidItemID(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	_, err := m.MapItem(mapper.Item{ID: "abc"})
	assert.ErrorIs(t, err, mapper.ErrInvalidItemID)

	m = mapper.New(cat, schema.TypeString)
	rows, err := m.MapItem(mapper.Item{ID: "abc", Data: map[string]any{"Loan": map[string]any{"Amount": 1}}})
	require.NoError(t, err)
	assert.Equal(t, "abc", rows[0].ItemID)
}

func TestMapItem_PrefixInvariant(t *testing.T) {
	cat := &schema.Catalog{
		Root: "root",
		Tree: &schema.Node{Table: "root", Children: map[string]*schema.Node{
			"a": {Table: "root", Suffix: "b", Leaf: &schema.Leaf{Column: "a", Type: schema.TypeString}},
		}},
		Tables: map[string]*schema.Table{"root": {Name: "root"}},
	}
	m := mapper.New(cat, schema.TypeInteger)
	_, err := m.MapItem(mapper.Item{ID: 1, Data: map[string]any{"a": "x"}})
	assert.ErrorIs(t, err, mapper.ErrPrefixInvariant)
}

func TestMapper_HitsIncludeUnvisitedNodes(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	_, err := m.MapItem(mapper.Item{ID: 1, Data: map[string]any{"Loan": map[string]any{"Amount": 1}}})
	require.NoError(t, err)

	hits := m.Hits()
	assert.Len(t, hits, len(cat.JSONPaths))
	assert.Equal(t, 1, hits["Loan/Amount"])
	assert.Equal(t, 0, hits["SubjectProperty/Acreage"])
}

func TestMapper_ConcurrentCounters(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := m.MapItem(mapper.Item{ID: id, Data: map[string]any{"Nope": 1}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, m.Failures()["Nope"])
}

func TestMapItems_GroupByTable(t *testing.T) {
	cat := compile(t, "loan.json")
	m := mapper.New(cat, schema.TypeInteger)

	rows, err := m.MapItems([]mapper.Item{
		{ID: 1, Data: map[string]any{"Loan": map[string]any{"Amount": 1}}},
		{ID: 2, Data: map[string]any{"SubjectProperty": map[string]any{"Address": map[string]any{"City": "X"}}}},
	})
	require.NoError(t, err)

	groups := mapper.GroupByTable(rows)
	require.Len(t, groups["root"], 2)
	assert.Equal(t, int64(1), groups["root"][0].ItemID)
	assert.Equal(t, int64(2), groups["root"][1].ItemID)
	assert.Len(t, groups["basic_address"], 1)
}

func TestFlatten(t *testing.T) {
	fields := mapper.Flatten(map[string]any{
		"b": 1,
		"a": map[string]any{"y": []any{1, 2}, "x": "s"},
		"c": map[string]any{},
	})
	assert.Equal(t, []mapper.Field{
		{Path: []string{"a", "x"}, Value: "s"},
		{Path: []string{"a", "y"}, Value: []any{1, 2}},
		{Path: []string{"b"}, Value: 1},
	}, fields)
}
