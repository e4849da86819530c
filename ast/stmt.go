package ast

import "github.com/kavelabs/litesql/sqlvalue"

// CreateStmt is a lowered CREATE [TEMP] TABLE statement.
type CreateStmt struct {
	Db      string // "main" or "temp"
	Name    string
	Strict  bool
	Columns []ColumnDef
}

// ColumnDef is one declared column of a CreateStmt.
type ColumnDef struct {
	Name string
	Type sqlvalue.ColumnType
}

// InsertStmt is a lowered INSERT statement.
type InsertStmt struct {
	Db    string
	Table string
	Rows  [][]Expr
}

// SelectItem is one projected item of a SELECT list.
type SelectItem struct {
	Star  bool
	Expr  Expr
	Alias string // empty if unaliased; IR builder synthesizes _expr<k>
}

// TableRef names the source table of a SELECT's FROM clause.
type TableRef struct {
	Db, Table string
}

// SelectStmt is a lowered SELECT statement.
type SelectStmt struct {
	Items []SelectItem
	From  *TableRef // nil if no FROM clause
	Where Expr      // nil if no WHERE clause
}
