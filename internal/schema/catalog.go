package schema

import (
	"fmt"
	"sort"
)

// resolveBacklinks commits a parent pointer for every child table reached
// from exactly one structural context. Tables with several distinct parents
// get no parent column.
func (b *builder) resolveBacklinks() {
	for child, candidates := range b.backlinks {
		if len(candidates) != 1 {
			continue
		}
		for bl := range candidates {
			b.columns[child][bl.column] = TypeLink
			if b.links[child] == nil {
				b.links[child] = make(map[string]Link)
			}
			b.links[child][bl.column] = Link{Table: child, Column: bl.column, Target: bl.parent, Back: true}
		}
	}
}

// finalize builds the sorted, length-filtered column lists and the catalog.
func (b *builder) finalize(tree *Node, opts Options) *Catalog {
	maxLen := opts.MaxIdentifierLength
	for _, c := range opts.ExtraColumns {
		if len(c.Name) > 0 && len(c.Name) <= maxLen {
			b.columns[opts.RootTable][c.Name] = c.Type
		}
	}

	cat := &Catalog{
		Root:   opts.RootTable,
		Tree:   tree,
		Tables: make(map[string]*Table, len(b.columns)),
	}

	for name, types := range b.columns {
		t := &Table{Name: name, Comment: b.tableComments[name], index: make(map[string]int)}
		names := make([]string, 0, len(types))
		for col := range types {
			if len(col) > maxLen {
				b.diags.AddWarning(CodeIdentifierTooLong, fmt.Sprintf("ignoring column because it is too long (%d > %d)", len(col), maxLen), name, col)
				continue
			}
			if col == "" {
				continue
			}
			names = append(names, col)
		}
		sort.Strings(names)
		for i, col := range names {
			t.Columns = append(t.Columns, Column{Name: col, Type: types[col], Comment: b.columnComments[name][col]})
			t.index[col] = i
		}
		cat.Tables[name] = t
	}

	for _, table := range sortedTableKeys(b.links) {
		cols := b.links[table]
		colNames := make([]string, 0, len(cols))
		for col := range cols {
			colNames = append(colNames, col)
		}
		sort.Strings(colNames)
		for _, col := range colNames {
			l := cols[col]
			t, ok := cat.Tables[l.Table]
			if !ok {
				continue
			}
			if _, ok := t.ColumnIndex(l.Column); !ok {
				b.diags.AddWarning(CodeLinkColumnDropped, "link to "+l.Target+" dropped with its column", l.Table, l.Column)
				continue
			}
			if _, ok := cat.Tables[l.Target]; !ok {
				continue
			}
			cat.Links = append(cat.Links, l)
			if l.Target != l.Table {
				t.Dependencies = append(t.Dependencies, l.Target)
			}
		}
	}

	for p := range b.jsonPaths {
		cat.JSONPaths = append(cat.JSONPaths, p)
	}
	sort.Strings(cat.JSONPaths)

	cat.Diagnostics = b.diags
	return cat
}

func sortedTableKeys(m map[string]map[string]Link) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
