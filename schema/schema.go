// Package schema reads the sqlite_schema table (root page 1) and builds
// the table catalog consumed by the IR builder, per SPEC_FULL.md §4.5.
// It is grounded on app/database.go's LoadSchema/parseTableSchema, reusing
// its general shape: walk the root table, parse each row's sql text, and
// collect a column catalog, but it builds a catalog.Catalog from this
// module's own ast and btree packages rather than the teacher's bespoke
// parser.
package schema

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kavelabs/litesql/ast"
	"github.com/kavelabs/litesql/btree"
	"github.com/kavelabs/litesql/catalog"
	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/pager"
	"github.com/kavelabs/litesql/record"
	"github.com/kavelabs/litesql/sqlvalue"
)

const schemaRootPage = 1

var log = logrus.WithField("component", "schema")

// schemaRow mirrors one row of sqlite_schema: (type, name, tbl_name, rootpage, sql).
type schemaRow struct {
	Type     string
	Name     string
	TblName  string
	RootPage int64
	SQL      string
}

// Load reads sqlite_schema from p and returns a populated catalog. Only
// rows with type = "table" are interpreted as tables; everything else
// (indexes, triggers, views) is skipped, since index and view support are
// non-goals.
func Load(ctx context.Context, p *pager.Pager) (*catalog.Catalog, error) {
	cur := btree.NewTableCursor(p, schemaRootPage)
	if err := cur.Open(ctx); err != nil {
		return nil, err
	}
	defer cur.Close()

	cat := catalog.New()
	for {
		cell, err := cur.Next(ctx)
		if err != nil {
			return nil, err
		}
		if cell == nil {
			break
		}

		row, err := decodeSchemaRow(cell.Payload)
		if err != nil {
			return nil, err
		}
		if row.Type != "table" {
			continue
		}
		if row.Name == "sqlite_sequence" {
			continue
		}

		meta, err := parseTableSchema(row)
		if err != nil {
			return nil, err
		}
		log.WithField("table", meta.Name).Debug("registered table")
		cat.Put("main", meta)
	}
	return cat, nil
}

func decodeSchemaRow(payload []byte) (*schemaRow, error) {
	values, err := record.Decode(payload)
	if err != nil {
		return nil, err
	}
	if len(values) < 5 {
		return nil, dberr.New(dberr.KindCorrupt, "schema.decodeSchemaRow").WithContext(map[string]interface{}{"reason": "sqlite_schema row has fewer than 5 columns", "columns": len(values)})
	}
	return &schemaRow{
		Type:     values[0].String(),
		Name:     values[1].String(),
		TblName:  values[2].String(),
		RootPage: values[3].AsInt64(),
		SQL:      values[4].String(),
	}, nil
}

// parseTableSchema recovers column names, declared types, and the STRICT
// flag by parsing the row's own CREATE TABLE text with the SQL front end,
// then attaches the row's root page.
func parseTableSchema(row *schemaRow) (*catalog.TableMeta, error) {
	parsed, err := ast.Parse(row.SQL)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindCorrupt, "schema.parseTableSchema", err).WithContext(map[string]interface{}{"table": row.Name})
	}
	create, ok := parsed.(*ast.CreateStmt)
	if !ok {
		return nil, dberr.New(dberr.KindCorrupt, "schema.parseTableSchema").WithContext(map[string]interface{}{"table": row.Name, "reason": "sql column did not parse as CREATE TABLE"})
	}

	names := make([]string, len(create.Columns))
	types := make([]sqlvalue.ColumnType, len(create.Columns))
	for i, c := range create.Columns {
		names[i] = c.Name
		types[i] = c.Type
	}

	return &catalog.TableMeta{
		Name:        row.Name,
		Strict:      create.Strict,
		ColumnNames: names,
		ColumnTypes: types,
		RootPage:    uint32(row.RootPage),
	}, nil
}
