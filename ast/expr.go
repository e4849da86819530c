// Package ast lowers the parse tree produced by github.com/xwb1989/sqlparser
// into the narrow AST this engine understands: CREATE / INSERT / SELECT
// statements over a small expression language, per SPEC_FULL.md §4.6.
package ast

import "github.com/kavelabs/litesql/sqlvalue"

// Expr is the sum type over {Const, ColRef, BinOp, UnOp}.
type Expr interface {
	exprNode()
}

// Const is a literal value, known at parse time.
type Const struct {
	Value sqlvalue.Value
}

// ColRef is a reference to a column, resolved to a name at parse time and
// to a positional index during IR building.
type ColRef struct {
	Name string
}

// BinOp is a binary arithmetic or comparison expression.
type BinOp struct {
	Op          string // "+", "-", "*", "/", "=", "!=", "<", "<=", ">", ">=", "AND", "OR"
	Left, Right Expr
}

// UnOp is a unary expression; the evaluator supports "-", "+", and the
// logical negations "NOT" and "!".
type UnOp struct {
	Op string
	X  Expr
}

func (Const) exprNode() {}
func (ColRef) exprNode() {}
func (BinOp) exprNode() {}
func (UnOp) exprNode() {}
