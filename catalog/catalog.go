// Package catalog holds the table metadata model shared by the schema
// reader, the IR builder, and the interpreter (SPEC_FULL.md §3).
package catalog

import "github.com/kavelabs/litesql/sqlvalue"

// TableMeta describes one table: its name, whether it is STRICT, its
// column names and declared types in order, and its root page (absent,
// i.e. zero, for temp tables that only ever exist as IR TempTables).
type TableMeta struct {
	Name        string
	Strict      bool
	ColumnNames []string
	ColumnTypes []sqlvalue.ColumnType
	RootPage    uint32
}

// Catalog maps (db, table name) to TableMeta. Database names are the
// literal "main" or "temp"; temp tables live only in process memory and
// are never looked up here (the IR builder materializes them directly).
type Catalog struct {
	tables map[string]map[string]*TableMeta
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[string]map[string]*TableMeta)}
}

// Put registers a table under the given database name.
func (c *Catalog) Put(db string, meta *TableMeta) {
	if c.tables[db] == nil {
		c.tables[db] = make(map[string]*TableMeta)
	}
	c.tables[db][meta.Name] = meta
}

// Get looks up a table by database and name.
func (c *Catalog) Get(db, name string) (*TableMeta, bool) {
	m, ok := c.tables[db]
	if !ok {
		return nil, false
	}
	t, ok := m[name]
	return t, ok
}

// TableNames returns all table names registered under db, unordered.
func (c *Catalog) TableNames(db string) []string {
	m := c.tables[db]
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}
