package ast

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/sqlvalue"
)

var (
	strictSuffixRe = regexp.MustCompile(`(?i)\s+strict\s*;?\s*$`)
	tempKeywordRe  = regexp.MustCompile(`(?i)^(\s*create\s+)temp\s+(table)`)
	autoIncPlaceRe = regexp.MustCompile(`(?i)primary\s+key\s+autoincrement`)
)

// Parse consumes a single SQL statement and returns one of *CreateStmt,
// *InsertStmt, *SelectStmt. It never hand-tokenizes the SQL text itself:
// normalization below only rewrites SQLite-specific spellings that
// sqlparser's MySQL-family grammar does not accept syntactically, then
// hands the result to sqlparser.Parse and walks its tree.
func Parse(sql string) (interface{}, error) {
	if strings.ContainsRune(sql, '"') {
		return nil, dberr.New(dberr.KindParse, "ast.Parse").WithContext(map[string]interface{}{
			"reason": "double-quoted identifiers are not accepted; use single-quoted strings and unquoted identifiers",
		})
	}

	isTemp := tempKeywordRe.MatchString(sql)
	normalized := tempKeywordRe.ReplaceAllString(sql, "${1}TEMPORARY $2")

	isStrict := strictSuffixRe.MatchString(normalized)
	normalized = strictSuffixRe.ReplaceAllString(normalized, ";")

	normalized = autoIncPlaceRe.ReplaceAllString(normalized, "AUTO_INCREMENT PRIMARY KEY")

	stmt, err := sqlparser.Parse(normalized)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindParse, "ast.Parse", err).WithContext(map[string]interface{}{"sql": sql})
	}

	switch s := stmt.(type) {
	case *sqlparser.DDL:
		return lowerCreate(s, isTemp, isStrict)
	case *sqlparser.Insert:
		return lowerInsert(s)
	case *sqlparser.Select:
		return lowerSelect(s)
	default:
		return nil, dberr.New(dberr.KindParse, "ast.Parse").WithContext(map[string]interface{}{"reason": "unsupported statement type"})
	}
}

func lowerCreate(ddl *sqlparser.DDL, isTemp, isStrict bool) (*CreateStmt, error) {
	if ddl.Action != "create" || ddl.TableSpec == nil {
		return nil, dberr.New(dberr.KindParse, "ast.lowerCreate").WithContext(map[string]interface{}{"action": ddl.Action})
	}

	db := "main"
	if isTemp {
		db = "temp"
	}

	cols := make([]ColumnDef, len(ddl.TableSpec.Columns))
	for i, c := range ddl.TableSpec.Columns {
		cols[i] = ColumnDef{Name: c.Name.String(), Type: mapColumnType(c.Type.Type)}
	}

	return &CreateStmt{
		Db:      db,
		Name:    ddl.Table.Name.String(),
		Strict:  isStrict,
		Columns: cols,
	}, nil
}

func mapColumnType(t string) sqlvalue.ColumnType {
	switch strings.ToUpper(t) {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "BIGINT":
		return sqlvalue.ColumnInt
	case "REAL", "FLOAT", "DOUBLE", "DECIMAL", "NUMERIC":
		return sqlvalue.ColumnReal
	case "BLOB", "BINARY", "VARBINARY":
		return sqlvalue.ColumnBlob
	default:
		return sqlvalue.ColumnText
	}
}

func lowerInsert(ins *sqlparser.Insert) (*InsertStmt, error) {
	values, ok := ins.Rows.(sqlparser.Values)
	if !ok {
		return nil, dberr.New(dberr.KindParse, "ast.lowerInsert").WithContext(map[string]interface{}{"reason": "only VALUES(...) inserts are supported"})
	}

	rows := make([][]Expr, len(values))
	for i, tuple := range values {
		row := make([]Expr, len(tuple))
		for j, e := range tuple {
			expr, err := lowerExpr(e)
			if err != nil {
				return nil, err
			}
			row[j] = expr
		}
		rows[i] = row
	}

	return &InsertStmt{Db: "main", Table: ins.Table.Name.String(), Rows: rows}, nil
}

func lowerSelect(sel *sqlparser.Select) (*SelectStmt, error) {
	items := make([]SelectItem, 0, len(sel.SelectExprs))
	for _, se := range sel.SelectExprs {
		switch e := se.(type) {
		case *sqlparser.StarExpr:
			items = append(items, SelectItem{Star: true})
		case *sqlparser.AliasedExpr:
			expr, err := lowerExpr(e.Expr)
			if err != nil {
				return nil, err
			}
			items = append(items, SelectItem{Expr: expr, Alias: e.As.String()})
		default:
			return nil, dberr.New(dberr.KindParse, "ast.lowerSelect").WithContext(map[string]interface{}{"reason": "unsupported select item"})
		}
	}

	var from *TableRef
	if len(sel.From) > 0 {
		ate, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
		if !ok {
			return nil, dberr.New(dberr.KindParse, "ast.lowerSelect").WithContext(map[string]interface{}{"reason": "unsupported FROM clause"})
		}
		tn, ok := ate.Expr.(sqlparser.TableName)
		if !ok {
			return nil, dberr.New(dberr.KindParse, "ast.lowerSelect").WithContext(map[string]interface{}{"reason": "unsupported FROM clause"})
		}
		from = &TableRef{Db: "main", Table: tn.Name.String()}
	}

	var where Expr
	if sel.Where != nil {
		w, err := lowerExpr(sel.Where.Expr)
		if err != nil {
			return nil, err
		}
		where = w
	}

	return &SelectStmt{Items: items, From: from, Where: where}, nil
}

func lowerExpr(e sqlparser.Expr) (Expr, error) {
	switch v := e.(type) {
	case *sqlparser.SQLVal:
		return lowerSQLVal(v)
	case *sqlparser.NullVal:
		return Const{Value: sqlvalue.Null()}, nil
	case sqlparser.BoolVal:
		return Const{Value: sqlvalue.Bool(bool(v))}, nil
	case *sqlparser.ColName:
		return ColRef{Name: v.Name.String()}, nil
	case *sqlparser.ParenExpr:
		return lowerExpr(v.Expr)
	case *sqlparser.BinaryExpr:
		l, err := lowerExpr(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := lowerExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return BinOp{Op: v.Operator, Left: l, Right: r}, nil
	case *sqlparser.ComparisonExpr:
		l, err := lowerExpr(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := lowerExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return BinOp{Op: v.Operator, Left: l, Right: r}, nil
	case *sqlparser.AndExpr:
		l, err := lowerExpr(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := lowerExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return BinOp{Op: "AND", Left: l, Right: r}, nil
	case *sqlparser.OrExpr:
		l, err := lowerExpr(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := lowerExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return BinOp{Op: "OR", Left: l, Right: r}, nil
	case *sqlparser.UnaryExpr:
		x, err := lowerExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		return UnOp{Op: v.Operator, X: x}, nil
	default:
		return nil, dberr.New(dberr.KindParse, "ast.lowerExpr").WithContext(map[string]interface{}{"reason": "unsupported expression", "type": e})
	}
}

func lowerSQLVal(v *sqlparser.SQLVal) (Expr, error) {
	switch v.Type {
	case sqlparser.StrVal:
		return Const{Value: sqlvalue.Text(string(v.Val))}, nil
	case sqlparser.IntVal:
		i, err := strconv.ParseInt(string(v.Val), 10, 64)
		if err != nil {
			return nil, dberr.Wrap(dberr.KindParse, "ast.lowerSQLVal", err)
		}
		return Const{Value: sqlvalue.Int(i)}, nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(string(v.Val), 64)
		if err != nil {
			return nil, dberr.Wrap(dberr.KindParse, "ast.lowerSQLVal", err)
		}
		return Const{Value: sqlvalue.Real(f)}, nil
	default:
		return Const{Value: sqlvalue.Text(string(v.Val))}, nil
	}
}
