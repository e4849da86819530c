package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kavelabs/litesql/ast"
	"github.com/kavelabs/litesql/sqlvalue"
)

func TestFoldConstantArithmetic(t *testing.T) {
	// 1 + 2*3
	e := ast.BinOp{
		Op:   "+",
		Left: ast.Const{Value: sqlvalue.Int(1)},
		Right: ast.BinOp{
			Op:    "*",
			Left:  ast.Const{Value: sqlvalue.Int(2)},
			Right: ast.Const{Value: sqlvalue.Int(3)},
		},
	}
	folded, err := Fold(e, false)
	require.NoError(t, err)
	c, ok := folded.(ast.Const)
	require.True(t, ok)
	require.Equal(t, int64(7), c.Value.I)
}

func TestFoldLeavesColRefUnevaluated(t *testing.T) {
	e := ast.BinOp{
		Op:    "+",
		Left:  ast.ColRef{Name: "a"},
		Right: ast.Const{Value: sqlvalue.Int(1)},
	}
	folded, err := Fold(e, false)
	require.NoError(t, err)
	bin, ok := folded.(ast.BinOp)
	require.True(t, ok)
	require.Equal(t, ast.ColRef{Name: "a"}, bin.Left)
}

func TestFoldIsIdempotent(t *testing.T) {
	e := ast.UnOp{Op: "-", X: ast.Const{Value: sqlvalue.Int(4)}}
	once, err := Fold(e, false)
	require.NoError(t, err)
	twice, err := Fold(once, false)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestFoldPropagatesEvalErrors(t *testing.T) {
	e := ast.BinOp{
		Op:    "+",
		Left:  ast.Const{Value: sqlvalue.Text("abc")},
		Right: ast.Const{Value: sqlvalue.Int(1)},
	}
	_, err := Fold(e, true)
	require.Error(t, err)
}
