package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kavelabs/litesql/ast"
	"github.com/kavelabs/litesql/catalog"
	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/sqlvalue"
)

func testCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.Put("main", &catalog.TableMeta{
		Name:        "t",
		ColumnNames: []string{"a", "b"},
		ColumnTypes: []sqlvalue.ColumnType{sqlvalue.ColumnInt, sqlvalue.ColumnText},
		RootPage:    2,
	})
	return cat
}

func TestBuildTempTableFromFromLessSelect(t *testing.T) {
	sel := &ast.SelectStmt{
		Items: []ast.SelectItem{{Expr: ast.BinOp{Op: "+", Left: ast.Const{Value: sqlvalue.Int(1)}, Right: ast.Const{Value: sqlvalue.Int(2)}}}},
	}
	node, err := Build(sel, testCatalog(), false)
	require.NoError(t, err)
	tt, ok := node.(TempTable)
	require.True(t, ok)
	require.Len(t, tt.Rows, 1)
	require.Equal(t, int64(3), tt.Rows[0][0].I)
	require.Equal(t, "_expr0", tt.Sch.Names[0])
}

func TestBuildScanForSelectStar(t *testing.T) {
	sel := &ast.SelectStmt{
		Items: []ast.SelectItem{{Star: true}},
		From:  &ast.TableRef{Db: "main", Table: "t"},
	}
	node, err := Build(sel, testCatalog(), false)
	require.NoError(t, err)
	scan, ok := node.(Scan)
	require.True(t, ok)
	require.Equal(t, "t", scan.Table.Name)
}

func TestBuildProjectForSelectColumns(t *testing.T) {
	sel := &ast.SelectStmt{
		Items: []ast.SelectItem{{Expr: ast.ColRef{Name: "a"}}},
		From:  &ast.TableRef{Db: "main", Table: "t"},
	}
	node, err := Build(sel, testCatalog(), false)
	require.NoError(t, err)
	proj, ok := node.(Project)
	require.True(t, ok)
	require.Equal(t, []string{"a"}, proj.Names)
	_, isScan := proj.Child.(Scan)
	require.True(t, isScan)
}

func TestBuildFilterForWhereClause(t *testing.T) {
	sel := &ast.SelectStmt{
		Items: []ast.SelectItem{{Star: true}},
		From:  &ast.TableRef{Db: "main", Table: "t"},
		Where: ast.BinOp{Op: "=", Left: ast.ColRef{Name: "a"}, Right: ast.Const{Value: sqlvalue.Int(1)}},
	}
	node, err := Build(sel, testCatalog(), false)
	require.NoError(t, err)
	filter, ok := node.(Filter)
	require.True(t, ok)
	_, isScan := filter.Child.(Scan)
	require.True(t, isScan)
}

func TestBuildUnknownTableFails(t *testing.T) {
	sel := &ast.SelectStmt{
		Items: []ast.SelectItem{{Star: true}},
		From:  &ast.TableRef{Db: "main", Table: "missing"},
	}
	_, err := Build(sel, testCatalog(), false)
	require.Error(t, err)
	require.True(t, dberr.Is(err, dberr.KindUnknownTable))
}

func TestBuildUnknownColumnFails(t *testing.T) {
	sel := &ast.SelectStmt{
		Items: []ast.SelectItem{{Expr: ast.ColRef{Name: "nope"}}},
		From:  &ast.TableRef{Db: "main", Table: "t"},
	}
	_, err := Build(sel, testCatalog(), false)
	require.Error(t, err)
	require.True(t, dberr.Is(err, dberr.KindUnknownColumn))
}
