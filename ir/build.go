package ir

import (
	"fmt"

	"github.com/kavelabs/litesql/ast"
	"github.com/kavelabs/litesql/catalog"
	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/optimize"
	"github.com/kavelabs/litesql/sqlvalue"
)

// Build lowers a parsed SelectStmt into an IR tree, implementing the
// lowering-rule table of SPEC_FULL.md §4.8:
//
//	no FROM                 -> TempTable of one constant-folded row
//	SELECT * FROM t         -> Scan(t)
//	SELECT cols FROM t      -> Project(Scan(t))
//	SELECT * FROM t WHERE p -> Filter(p, Scan(t))
//	SELECT cols FROM t WHERE p -> Project(Filter(p, Scan(t)))
//
// Every expression is constant-folded before being attached to the tree,
// so arithmetic on literals is evaluated once at build time rather than
// once per row.
func Build(sel *ast.SelectStmt, cat *catalog.Catalog, strict bool) (Node, error) {
	if sel.From == nil {
		return buildTempTable(sel, strict)
	}

	table, ok := cat.Get(sel.From.Db, sel.From.Table)
	if !ok {
		return nil, dberr.New(dberr.KindUnknownTable, "ir.Build").WithContext(map[string]interface{}{"table": sel.From.Table})
	}

	var node Node = Scan{Table: table}

	if sel.Where != nil {
		pred, err := foldAgainstSchema(sel.Where, node.Schema(), strict)
		if err != nil {
			return nil, err
		}
		node = Filter{Predicate: pred, Child: node}
	}

	if isStarOnly(sel.Items) {
		return node, nil
	}

	return buildProject(sel.Items, node, strict)
}

func isStarOnly(items []ast.SelectItem) bool {
	return len(items) == 1 && items[0].Star
}

func buildTempTable(sel *ast.SelectStmt, strict bool) (Node, error) {
	names := make([]string, len(sel.Items))
	types := make([]sqlvalue.ColumnType, len(sel.Items))
	row := make([]sqlvalue.Value, len(sel.Items))

	for i, item := range sel.Items {
		if item.Star {
			return nil, dberr.New(dberr.KindParse, "ir.buildTempTable").WithContext(map[string]interface{}{"reason": "SELECT * requires a FROM clause"})
		}
		folded, err := optimize.Fold(item.Expr, strict)
		if err != nil {
			return nil, err
		}
		c, ok := folded.(ast.Const)
		if !ok {
			return nil, dberr.New(dberr.KindUnsupported, "ir.buildTempTable").WithContext(map[string]interface{}{"reason": "FROM-less SELECT items must be constant expressions"})
		}
		names[i] = columnName(item, i)
		types[i] = columnTypeOf(c.Value)
		row[i] = c.Value
	}

	return TempTable{Sch: Schema{Names: names, Types: types}, Rows: [][]sqlvalue.Value{row}}, nil
}

func buildProject(items []ast.SelectItem, child Node, strict bool) (Node, error) {
	childSchema := child.Schema()
	names := make([]string, 0, len(items))
	exprs := make([]ast.Expr, 0, len(items))

	for i, item := range items {
		if item.Star {
			names = append(names, childSchema.Names...)
			for _, n := range childSchema.Names {
				exprs = append(exprs, ast.ColRef{Name: n})
			}
			continue
		}
		folded, err := foldAgainstSchema(item.Expr, childSchema, strict)
		if err != nil {
			return nil, err
		}
		names = append(names, columnName(item, i))
		exprs = append(exprs, folded)
	}

	return Project{Names: names, Exprs: exprs, Child: child}, nil
}

// foldAgainstSchema constant-folds e and validates that every ColRef it
// contains resolves against schema, surfacing KindUnknownColumn early
// rather than at row-evaluation time.
func foldAgainstSchema(e ast.Expr, schema Schema, strict bool) (ast.Expr, error) {
	if err := checkColumnRefs(e, schema); err != nil {
		return nil, err
	}
	return optimize.Fold(e, strict)
}

func checkColumnRefs(e ast.Expr, schema Schema) error {
	switch v := e.(type) {
	case ast.ColRef:
		if schema.IndexOf(v.Name) < 0 {
			return dberr.New(dberr.KindUnknownColumn, "ir.checkColumnRefs").WithContext(map[string]interface{}{"column": v.Name})
		}
	case ast.UnOp:
		return checkColumnRefs(v.X, schema)
	case ast.BinOp:
		if err := checkColumnRefs(v.Left, schema); err != nil {
			return err
		}
		return checkColumnRefs(v.Right, schema)
	}
	return nil
}

func columnName(item ast.SelectItem, i int) string {
	if item.Alias != "" {
		return item.Alias
	}
	if ref, ok := item.Expr.(ast.ColRef); ok {
		return ref.Name
	}
	return fmt.Sprintf("_expr%d", i)
}

func columnTypeOf(v sqlvalue.Value) sqlvalue.ColumnType {
	switch v.Typ {
	case sqlvalue.TypeInt, sqlvalue.TypeBool:
		return sqlvalue.ColumnInt
	case sqlvalue.TypeReal:
		return sqlvalue.ColumnReal
	case sqlvalue.TypeBlob:
		return sqlvalue.ColumnBlob
	case sqlvalue.TypeText:
		return sqlvalue.ColumnText
	default:
		return sqlvalue.ColumnNull
	}
}
