package ast

import (
	"github.com/kavelabs/litesql/dberr"
	"github.com/kavelabs/litesql/sqlvalue"
)

// EvalBinOp applies a binary operator to two already-evaluated operands,
// implementing the arithmetic and comparison rules of SPEC_FULL.md §4.9:
// Int op Int stays Int with 64-bit wraparound; any Real operand promotes
// the result to Real; division by zero yields Null; Null propagates
// through every arithmetic and comparison operator; Text mixed with a
// number is a TypeMismatch in strict mode, otherwise coerced via
// SQLite-style numeric affinity.
func EvalBinOp(op string, l, r sqlvalue.Value, strict bool) (sqlvalue.Value, error) {
	if op == "AND" || op == "OR" {
		return evalLogical(op, l, r), nil
	}

	if l.IsNull() || r.IsNull() {
		return sqlvalue.Null(), nil
	}

	if strict && (isTextLike(l) != isTextLike(r)) {
		return sqlvalue.Value{}, dberr.New(dberr.KindTypeMismatch, "ast.EvalBinOp").WithContext(map[string]interface{}{"op": op, "left": l.Typ.String(), "right": r.Typ.String()})
	}

	switch op {
	case "=", "!=", "<>", "<", "<=", ">", ">=":
		return evalComparison(op, l, r), nil
	case "+", "-", "*", "/":
		return evalArith(op, l, r)
	default:
		return sqlvalue.Value{}, dberr.New(dberr.KindUnsupported, "ast.EvalBinOp").WithContext(map[string]interface{}{"op": op})
	}
}

// EvalUnOp applies a unary operator.
func EvalUnOp(op string, x sqlvalue.Value) (sqlvalue.Value, error) {
	if x.IsNull() {
		return sqlvalue.Null(), nil
	}
	switch op {
	case "-":
		if x.Typ == sqlvalue.TypeInt {
			return sqlvalue.Int(-x.I), nil
		}
		return sqlvalue.Real(-x.AsFloat64()), nil
	case "+":
		return x, nil
	case "NOT", "!":
		return sqlvalue.Bool(!x.Truthy()), nil
	default:
		return sqlvalue.Value{}, dberr.New(dberr.KindUnsupported, "ast.EvalUnOp").WithContext(map[string]interface{}{"op": op})
	}
}

func isTextLike(v sqlvalue.Value) bool {
	return v.Typ == sqlvalue.TypeText || v.Typ == sqlvalue.TypeBlob
}

func evalArith(op string, l, r sqlvalue.Value) (sqlvalue.Value, error) {
	// Text operands participate via numeric-affinity coercion (best-effort,
	// per the open question resolved in SPEC_FULL.md §4.9/§9) and do not by
	// themselves force a Real result unless an actual Real operand does.
	useReal := l.Typ == sqlvalue.TypeReal || r.Typ == sqlvalue.TypeReal

	if op == "/" {
		rf := r.AsFloat64()
		if rf == 0 {
			return sqlvalue.Null(), nil
		}
	}

	if useReal {
		lf, rf := l.AsFloat64(), r.AsFloat64()
		switch op {
		case "+":
			return sqlvalue.Real(lf + rf), nil
		case "-":
			return sqlvalue.Real(lf - rf), nil
		case "*":
			return sqlvalue.Real(lf * rf), nil
		case "/":
			return sqlvalue.Real(lf / rf), nil
		}
	}

	li, ri := l.AsInt64(), r.AsInt64()
	switch op {
	case "+":
		return sqlvalue.Int(li + ri), nil
	case "-":
		return sqlvalue.Int(li - ri), nil
	case "*":
		return sqlvalue.Int(li * ri), nil
	case "/":
		if ri == 0 {
			return sqlvalue.Null(), nil
		}
		return sqlvalue.Int(li / ri), nil
	}
	return sqlvalue.Value{}, dberr.New(dberr.KindUnsupported, "ast.evalArith").WithContext(map[string]interface{}{"op": op})
}

func evalComparison(op string, l, r sqlvalue.Value) sqlvalue.Value {
	var cmp int
	if isTextLike(l) && isTextLike(r) {
		ls, rs := l.String(), r.String()
		switch {
		case ls < rs:
			cmp = -1
		case ls > rs:
			cmp = 1
		}
	} else {
		lf, rf := l.AsFloat64(), r.AsFloat64()
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	}

	switch op {
	case "=":
		return sqlvalue.Bool(cmp == 0)
	case "!=", "<>":
		return sqlvalue.Bool(cmp != 0)
	case "<":
		return sqlvalue.Bool(cmp < 0)
	case "<=":
		return sqlvalue.Bool(cmp <= 0)
	case ">":
		return sqlvalue.Bool(cmp > 0)
	case ">=":
		return sqlvalue.Bool(cmp >= 0)
	}
	return sqlvalue.Bool(false)
}

func evalLogical(op string, l, r sqlvalue.Value) sqlvalue.Value {
	switch op {
	case "AND":
		return sqlvalue.Bool(l.Truthy() && r.Truthy())
	case "OR":
		return sqlvalue.Bool(l.Truthy() || r.Truthy())
	}
	return sqlvalue.Bool(false)
}
