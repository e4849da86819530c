// Package engine ties the pager, schema reader, SQL front end, optimizer,
// IR builder, and streaming interpreter into a single entry point, the way
// app/sqlite_engine.go's SqliteEngine dispatches ExecuteCommand over the
// teacher's own layers.
package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kavelabs/litesql/ast"
	"github.com/kavelabs/litesql/btree"
	"github.com/kavelabs/litesql/catalog"
	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/exec"
	"github.com/kavelabs/litesql/ir"
	"github.com/kavelabs/litesql/pager"
	"github.com/kavelabs/litesql/record"
	"github.com/kavelabs/litesql/schema"
	"github.com/kavelabs/litesql/sqlvalue"
)

// ResultSet is the output of a SELECT: column names and every produced row.
type ResultSet struct {
	Columns []string
	Rows    [][]sqlvalue.Value
}

// Engine is one open database: a Pager plus the table catalog read from it.
type Engine struct {
	cfg Config
	res resourceManager
	p   *pager.Pager
	cat *catalog.Catalog
	log *logrus.Entry
}

// Open opens path and loads its schema.
func Open(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := pager.Open(path, cfg.ReadOnly, pager.WithCacheLimit(cfg.PageCacheSize), pager.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, p: p, log: cfg.Logger.WithField("component", "engine")}
	e.res.add(p)

	cat, err := schema.Load(ctx, p)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.cat = cat
	return e, nil
}

// Close releases every resource the engine opened, in LIFO order.
func (e *Engine) Close() error {
	return e.res.Close()
}

// Tables lists the catalog's known table names.
func (e *Engine) Tables() []string {
	return e.cat.TableNames("main")
}

// Run parses, lowers, optimizes, and executes one SQL statement, recovering
// from any internal-invariant panic as a KindCorrupt error (SPEC_FULL.md
// §7) so a single malformed page cannot crash a long-running caller.
func (e *Engine) Run(ctx context.Context, sql string) (result *ResultSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dberr.New(dberr.KindCorrupt, "engine.Run").WithContext(map[string]interface{}{"panic": fmt.Sprint(r)})
		}
	}()

	parsed, err := ast.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch stmt := parsed.(type) {
	case *ast.SelectStmt:
		return e.runSelect(ctx, stmt)
	case *ast.InsertStmt:
		return nil, e.runInsert(ctx, stmt)
	case *ast.CreateStmt:
		return nil, e.runCreate(ctx, stmt)
	default:
		return nil, dberr.New(dberr.KindUnsupported, "engine.Run").WithContext(map[string]interface{}{"reason": "unsupported statement"})
	}
}

func (e *Engine) runSelect(ctx context.Context, stmt *ast.SelectStmt) (*ResultSet, error) {
	node, err := ir.Build(stmt, e.cat, e.cfg.StrictDefault)
	if err != nil {
		return nil, err
	}

	block, err := exec.Build(node, e.p, e.cfg.StrictDefault)
	if err != nil {
		return nil, err
	}
	if err := block.Open(ctx); err != nil {
		return nil, err
	}
	defer block.Close()

	rs := &ResultSet{Columns: node.Schema().Names}
	for {
		row, err := block.Next(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		cp := make([]sqlvalue.Value, len(row.Values))
		copy(cp, row.Values)
		rs.Rows = append(rs.Rows, cp)
	}
	return rs, nil
}

func (e *Engine) runInsert(ctx context.Context, stmt *ast.InsertStmt) error {
	table, ok := e.cat.Get(stmt.Db, stmt.Table)
	if !ok {
		return dberr.New(dberr.KindUnknownTable, "engine.runInsert").WithContext(map[string]interface{}{"table": stmt.Table})
	}

	for _, row := range stmt.Rows {
		if len(row) != len(table.ColumnNames) {
			return dberr.New(dberr.KindParse, "engine.runInsert").WithContext(map[string]interface{}{"reason": "column count mismatch", "table": stmt.Table})
		}
		values := make([]sqlvalue.Value, len(row))
		for i, expr := range row {
			c, ok := expr.(ast.Const)
			if !ok {
				return dberr.New(dberr.KindUnsupported, "engine.runInsert").WithContext(map[string]interface{}{"reason": "INSERT values must be literals"})
			}
			values[i] = c.Value
		}
		if table.Strict {
			if err := checkStrictTypes(table, values); err != nil {
				return err
			}
		}
		rowid, err := e.nextRowid(ctx, table.RootPage)
		if err != nil {
			return err
		}
		payload := record.Encode(values)
		if err := btree.AppendLeaf(ctx, e.p, table.RootPage, rowid, payload); err != nil {
			return err
		}
	}
	return nil
}

// checkStrictTypes enforces STRICT tables' declared column types
// (SPEC_FULL.md §8.e): Null is accepted for any column, but every other
// value's runtime tag must match the column's declared type exactly.
func checkStrictTypes(table *catalog.TableMeta, values []sqlvalue.Value) error {
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		want := table.ColumnTypes[i]
		if strictTypeMatches(want, v.Typ) {
			continue
		}
		return dberr.New(dberr.KindTypeMismatch, "engine.checkStrictTypes").WithContext(map[string]interface{}{
			"table":  table.Name,
			"column": table.ColumnNames[i],
			"want":   want.String(),
			"got":    v.Typ.String(),
		})
	}
	return nil
}

func strictTypeMatches(want sqlvalue.ColumnType, got sqlvalue.Type) bool {
	switch want {
	case sqlvalue.ColumnInt:
		return got == sqlvalue.TypeInt
	case sqlvalue.ColumnReal:
		return got == sqlvalue.TypeReal
	case sqlvalue.ColumnText:
		return got == sqlvalue.TypeText
	case sqlvalue.ColumnBlob:
		return got == sqlvalue.TypeBlob
	default:
		return true
	}
}

func (e *Engine) nextRowid(ctx context.Context, root uint32) (int64, error) {
	cur := btree.NewTableCursor(e.p, root)
	if err := cur.Open(ctx); err != nil {
		return 0, err
	}
	defer cur.Close()

	var max int64
	for {
		cell, err := cur.Next(ctx)
		if err != nil {
			return 0, err
		}
		if cell == nil {
			break
		}
		if cell.Rowid > max {
			max = cell.Rowid
		}
	}
	return max + 1, nil
}

func (e *Engine) runCreate(ctx context.Context, stmt *ast.CreateStmt) error {
	return dberr.New(dberr.KindUnsupported, "engine.runCreate").WithContext(map[string]interface{}{"reason": "CREATE TABLE requires allocating a new root page, which is a non-goal for this engine"})
}
