// Package optimize implements the AST optimizer: a pure, idempotent
// constant-folding pass over expressions (SPEC_FULL.md §4.7). Where the
// teacher's query_optimizer.go analyzes a WHERE clause to pick an index
// strategy, this pass instead folds literal subexpressions anywhere in the
// tree ahead of IR lowering; index selection is out of scope here.
package optimize

import (
	"github.com/kavelabs/litesql/ast"
)

// Fold recursively evaluates subtrees whose operands are both Const,
// replacing them with their folded value. It is idempotent: Fold(Fold(e))
// == Fold(e), since a fully-folded tree has no more Const-Const pairs to
// collapse.
func Fold(e ast.Expr, strict bool) (ast.Expr, error) {
	switch v := e.(type) {
	case ast.Const:
		return v, nil
	case ast.ColRef:
		return v, nil
	case ast.UnOp:
		x, err := Fold(v.X, strict)
		if err != nil {
			return nil, err
		}
		if c, ok := x.(ast.Const); ok {
			val, err := ast.EvalUnOp(v.Op, c.Value)
			if err != nil {
				return nil, err
			}
			return ast.Const{Value: val}, nil
		}
		return ast.UnOp{Op: v.Op, X: x}, nil
	case ast.BinOp:
		l, err := Fold(v.Left, strict)
		if err != nil {
			return nil, err
		}
		r, err := Fold(v.Right, strict)
		if err != nil {
			return nil, err
		}
		lc, lok := l.(ast.Const)
		rc, rok := r.(ast.Const)
		if lok && rok {
			val, err := ast.EvalBinOp(v.Op, lc.Value, rc.Value, strict)
			if err != nil {
				return nil, err
			}
			return ast.Const{Value: val}, nil
		}
		return ast.BinOp{Op: v.Op, Left: l, Right: r}, nil
	default:
		return e, nil
	}
}
