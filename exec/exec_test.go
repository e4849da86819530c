package exec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kavelabs/litesql/ast"
	"github.com/kavelabs/litesql/catalog"
	"github.com/kavelabs/litesql/internal/sqlitetest"
	"github.com/kavelabs/litesql/ir"
	"github.com/kavelabs/litesql/pager"
	"github.com/kavelabs/litesql/sqlvalue"
)

func openTestPager(t *testing.T, tables []sqlitetest.Table) *pager.Pager {
	t.Helper()
	buf := sqlitetest.Build(512, tables)
	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	p, err := pager.Open(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func drain(t *testing.T, b Block) [][]sqlvalue.Value {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.Open(ctx))
	defer b.Close()
	var out [][]sqlvalue.Value
	for {
		row, err := b.Next(ctx)
		require.NoError(t, err)
		if row == nil {
			break
		}
		cp := make([]sqlvalue.Value, len(row.Values))
		copy(cp, row.Values)
		out = append(out, cp)
	}
	return out
}

func TestTempTableBlockReplaysRows(t *testing.T) {
	tt := ir.TempTable{
		Sch:  ir.Schema{Names: []string{"_expr0"}},
		Rows: [][]sqlvalue.Value{{sqlvalue.Int(3)}},
	}
	block, err := Build(tt, nil, false)
	require.NoError(t, err)
	rows := drain(t, block)
	require.Len(t, rows, 1)
	require.Equal(t, int64(3), rows[0][0].I)
}

func TestScanBlockDecodesEveryRow(t *testing.T) {
	p := openTestPager(t, []sqlitetest.Table{{
		Name: "t", RootPage: 2, SQL: "CREATE TABLE t (a INT)",
		Rows: []sqlitetest.Row{
			{Rowid: 1, Values: []sqlvalue.Value{sqlvalue.Int(10)}},
			{Rowid: 2, Values: []sqlvalue.Value{sqlvalue.Int(20)}},
		},
	}})
	table := &catalog.TableMeta{Name: "t", ColumnNames: []string{"a"}, RootPage: 2}
	block, err := Build(ir.Scan{Table: table}, p, false)
	require.NoError(t, err)
	rows := drain(t, block)
	require.Len(t, rows, 2)
	require.Equal(t, int64(10), rows[0][0].I)
	require.Equal(t, int64(20), rows[1][0].I)
}

func TestFilterBlockSkipsNonMatchingRows(t *testing.T) {
	p := openTestPager(t, []sqlitetest.Table{{
		Name: "t", RootPage: 2, SQL: "CREATE TABLE t (a INT)",
		Rows: []sqlitetest.Row{
			{Rowid: 1, Values: []sqlvalue.Value{sqlvalue.Int(10)}},
			{Rowid: 2, Values: []sqlvalue.Value{sqlvalue.Int(20)}},
		},
	}})
	table := &catalog.TableMeta{Name: "t", ColumnNames: []string{"a"}, RootPage: 2}
	scan := ir.Scan{Table: table}
	filter := ir.Filter{
		Predicate: ast.BinOp{Op: "=", Left: ast.ColRef{Name: "a"}, Right: ast.Const{Value: sqlvalue.Int(20)}},
		Child:     scan,
	}
	block, err := Build(filter, p, false)
	require.NoError(t, err)
	rows := drain(t, block)
	require.Len(t, rows, 1)
	require.Equal(t, int64(20), rows[0][0].I)
}

func TestProjectBlockEvaluatesExpressions(t *testing.T) {
	p := openTestPager(t, []sqlitetest.Table{{
		Name: "t", RootPage: 2, SQL: "CREATE TABLE t (a INT)",
		Rows: []sqlitetest.Row{{Rowid: 1, Values: []sqlvalue.Value{sqlvalue.Int(5)}}},
	}})
	table := &catalog.TableMeta{Name: "t", ColumnNames: []string{"a"}, RootPage: 2}
	scan := ir.Scan{Table: table}
	proj := ir.Project{
		Names: []string{"doubled"},
		Exprs: []ast.Expr{ast.BinOp{Op: "*", Left: ast.ColRef{Name: "a"}, Right: ast.Const{Value: sqlvalue.Int(2)}}},
		Child: scan,
	}
	block, err := Build(proj, p, false)
	require.NoError(t, err)
	rows := drain(t, block)
	require.Len(t, rows, 1)
	require.Equal(t, int64(10), rows[0][0].I)
}

func TestProjectBlockReusesOutputBuffer(t *testing.T) {
	p := openTestPager(t, []sqlitetest.Table{{
		Name: "t", RootPage: 2, SQL: "CREATE TABLE t (a INT)",
		Rows: []sqlitetest.Row{
			{Rowid: 1, Values: []sqlvalue.Value{sqlvalue.Int(1)}},
			{Rowid: 2, Values: []sqlvalue.Value{sqlvalue.Int(2)}},
		},
	}})
	table := &catalog.TableMeta{Name: "t", ColumnNames: []string{"a"}, RootPage: 2}
	proj := ir.Project{
		Names: []string{"a"},
		Exprs: []ast.Expr{ast.ColRef{Name: "a"}},
		Child: ir.Scan{Table: table},
	}
	block, err := Build(proj, p, false)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, block.Open(ctx))
	defer block.Close()

	first, err := block.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Values[0].I)

	second, err := block.Next(ctx)
	require.NoError(t, err)
	// The block reuses its output row: the reference returned for the
	// first row now reflects the second row's value, since both calls
	// return the same backing Row.
	require.Equal(t, int64(2), first.Values[0].I)
	require.Equal(t, int64(2), second.Values[0].I)
}
