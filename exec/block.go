// Package exec implements the pull-based streaming interpreter over the IR
// tree (SPEC_FULL.md §4.9, §9). Each Block mirrors the btree.TableCursor
// protocol it ultimately sits on: Open, then repeated Next until a nil
// row, then Close. A Block's returned Row is only valid until the
// following call to Next or Close, matching the B-tree cursor's own
// buffer-reuse contract; there is no teacher analogue for this chain, so
// its shape is original, but the naming and Open/Next/Close rhythm follows
// btree.TableCursor and query_optimizer.go's small-closure style.
package exec

import (
	"context"

	"github.com/kavelabs/litesql/ast"
	"github.com/kavelabs/litesql/btree"
	"github.com/kavelabs/litesql/catalog"
	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/ir"
	"github.com/kavelabs/litesql/pager"
	"github.com/kavelabs/litesql/record"
	"github.com/kavelabs/litesql/sqlvalue"
)

// Row is one output tuple. Its Values slice is owned by the block that
// produced it and is invalidated by the block's next Next or Close call.
type Row struct {
	Values []sqlvalue.Value
}

// Block is the streaming execution interface every IR node compiles to.
type Block interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (*Row, error)
	Close() error
}

// Build compiles an IR node into a Block tree, wiring a *pager.Pager for
// any Scan leaves.
func Build(node ir.Node, p *pager.Pager, strict bool) (Block, error) {
	switch n := node.(type) {
	case ir.TempTable:
		return &TempTableBlock{rows: n.Rows}, nil
	case ir.Scan:
		return &ScanBlock{table: n.Table, p: p}, nil
	case ir.Filter:
		child, err := Build(n.Child, p, strict)
		if err != nil {
			return nil, err
		}
		return &FilterBlock{pred: n.Predicate, child: child, childSchema: n.Child.Schema(), strict: strict}, nil
	case ir.Project:
		child, err := Build(n.Child, p, strict)
		if err != nil {
			return nil, err
		}
		return &ProjectBlock{exprs: n.Exprs, child: child, childSchema: n.Child.Schema(), strict: strict}, nil
	default:
		return nil, dberr.New(dberr.KindUnsupported, "exec.Build").WithContext(map[string]interface{}{"reason": "unknown IR node"})
	}
}

// TempTableBlock replays a fixed, already-materialized row set.
type TempTableBlock struct {
	rows   [][]sqlvalue.Value
	pos    int
	row    Row
	opened bool
}

func (b *TempTableBlock) Open(ctx context.Context) error { b.opened = true; return nil }

func (b *TempTableBlock) Next(ctx context.Context) (*Row, error) {
	if !b.opened {
		return nil, dberr.New(dberr.KindClosed, "exec.TempTableBlock.Next")
	}
	if b.pos >= len(b.rows) {
		return nil, nil
	}
	b.row.Values = b.rows[b.pos]
	b.pos++
	return &b.row, nil
}

func (b *TempTableBlock) Close() error { b.opened = false; return nil }

// ScanBlock streams every row of one table in rowid order, decoding each
// leaf cell's payload via record.Decode.
type ScanBlock struct {
	table  *catalog.TableMeta
	p      *pager.Pager
	cursor *btree.TableCursor
	row    Row
}

func (b *ScanBlock) Open(ctx context.Context) error {
	b.cursor = btree.NewTableCursor(b.p, b.table.RootPage)
	return b.cursor.Open(ctx)
}

func (b *ScanBlock) Next(ctx context.Context) (*Row, error) {
	cell, err := b.cursor.Next(ctx)
	if err != nil {
		return nil, err
	}
	if cell == nil {
		return nil, nil
	}
	values, err := record.Decode(cell.Payload)
	if err != nil {
		return nil, err
	}
	if len(values) < len(b.table.ColumnNames) {
		padded := make([]sqlvalue.Value, len(b.table.ColumnNames))
		copy(padded, values)
		for i := len(values); i < len(padded); i++ {
			padded[i] = sqlvalue.Null()
		}
		values = padded
	}
	b.row.Values = values
	return &b.row, nil
}

func (b *ScanBlock) Close() error {
	if b.cursor == nil {
		return nil
	}
	return b.cursor.Close()
}

// FilterBlock passes through only rows of child for which pred evaluates
// truthy, skipping rows where pred evaluates to Null.
type FilterBlock struct {
	pred        ast.Expr
	child       Block
	childSchema ir.Schema
	strict      bool
}

func (b *FilterBlock) Open(ctx context.Context) error { return b.child.Open(ctx) }
func (b *FilterBlock) Close() error                   { return b.child.Close() }

func (b *FilterBlock) Next(ctx context.Context) (*Row, error) {
	for {
		row, err := b.child.Next(ctx)
		if err != nil || row == nil {
			return row, err
		}
		v, err := evalExpr(b.pred, row.Values, b.childSchema, b.strict)
		if err != nil {
			return nil, err
		}
		if v.Truthy() {
			return row, nil
		}
	}
}

// ProjectBlock evaluates exprs against each child row into a reusable
// output buffer.
type ProjectBlock struct {
	exprs       []ast.Expr
	child       Block
	childSchema ir.Schema
	strict      bool
	out         Row
}

func (b *ProjectBlock) Open(ctx context.Context) error {
	b.out.Values = make([]sqlvalue.Value, len(b.exprs))
	return b.child.Open(ctx)
}

func (b *ProjectBlock) Close() error { return b.child.Close() }

func (b *ProjectBlock) Next(ctx context.Context) (*Row, error) {
	row, err := b.child.Next(ctx)
	if err != nil || row == nil {
		return row, err
	}
	for i, e := range b.exprs {
		v, err := evalExpr(e, row.Values, b.childSchema, b.strict)
		if err != nil {
			return nil, err
		}
		b.out.Values[i] = v
	}
	return &b.out, nil
}

func evalExpr(e ast.Expr, row []sqlvalue.Value, schema ir.Schema, strict bool) (sqlvalue.Value, error) {
	switch v := e.(type) {
	case ast.Const:
		return v.Value, nil
	case ast.ColRef:
		i := schema.IndexOf(v.Name)
		if i < 0 {
			return sqlvalue.Value{}, dberr.New(dberr.KindUnknownColumn, "exec.evalExpr").WithContext(map[string]interface{}{"column": v.Name})
		}
		return row[i], nil
	case ast.UnOp:
		x, err := evalExpr(v.X, row, schema, strict)
		if err != nil {
			return sqlvalue.Value{}, err
		}
		return ast.EvalUnOp(v.Op, x)
	case ast.BinOp:
		l, err := evalExpr(v.Left, row, schema, strict)
		if err != nil {
			return sqlvalue.Value{}, err
		}
		r, err := evalExpr(v.Right, row, schema, strict)
		if err != nil {
			return sqlvalue.Value{}, err
		}
		return ast.EvalBinOp(v.Op, l, r, strict)
	default:
		return sqlvalue.Value{}, dberr.New(dberr.KindUnsupported, "exec.evalExpr").WithContext(map[string]interface{}{"reason": "unknown expression node"})
	}
}
