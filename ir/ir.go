// Package ir defines the relational intermediate representation that
// SelectStmt is lowered into (SPEC_FULL.md §4.8): TempTable, Scan, Filter,
// and Project nodes, each advertising an output schema. There is no
// analogue in the teacher repo, which interprets ASTs directly; this tree
// exists to give the exec package a uniform, schema-carrying shape to
// walk, and its node naming follows the constant-folding style of
// query_optimizer.go (small, single-purpose structs built by a top-level
// Build function).
package ir

import (
	"github.com/kavelabs/litesql/ast"
	"github.com/kavelabs/litesql/catalog"
	"github.com/kavelabs/litesql/sqlvalue"
)

// Schema is the ordered column names and declared types a Node produces.
type Schema struct {
	Names []string
	Types []sqlvalue.ColumnType
}

// IndexOf returns the position of name in the schema, or -1.
func (s Schema) IndexOf(name string) int {
	for i, n := range s.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Node is the relational IR sum type.
type Node interface {
	Schema() Schema
	irNode()
}

// TempTable is a materialized, in-memory row source: the lowering of a
// FROM-less SELECT of constant expressions.
type TempTable struct {
	Sch  Schema
	Rows [][]sqlvalue.Value
}

func (t TempTable) Schema() Schema { return t.Sch }
func (TempTable) irNode()          {}

// Scan reads every row of one catalog table in rowid order.
type Scan struct {
	Table *catalog.TableMeta
}

func (s Scan) Schema() Schema {
	return Schema{Names: s.Table.ColumnNames, Types: s.Table.ColumnTypes}
}
func (Scan) irNode() {}

// Filter passes through only rows of Child for which Predicate is truthy.
type Filter struct {
	Predicate ast.Expr
	Child     Node
}

func (f Filter) Schema() Schema { return f.Child.Schema() }
func (Filter) irNode()          {}

// Project evaluates Exprs against each row of Child, producing Names as
// the output schema.
type Project struct {
	Names []string
	Exprs []ast.Expr
	Child Node
}

func (p Project) Schema() Schema {
	types := make([]sqlvalue.ColumnType, len(p.Names))
	for i := range types {
		types[i] = sqlvalue.ColumnNull
	}
	return Schema{Names: p.Names, Types: types}
}
func (Project) irNode() {}
