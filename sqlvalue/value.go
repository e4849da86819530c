// Package sqlvalue defines the tagged value and declared-type model shared
// across the SQL front end, the record codec, and the interpreter.
package sqlvalue

import (
	"fmt"
	"strconv"
)

// Type is an SqlValue's runtime tag.
type Type int

const (
	TypeNull Type = iota
	TypeInt
	TypeReal
	TypeText
	TypeBlob
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeInt:
		return "Int"
	case TypeReal:
		return "Real"
	case TypeText:
		return "Text"
	case TypeBlob:
		return "Blob"
	case TypeBool:
		return "Bool"
	default:
		return "Unknown"
	}
}

// ColumnType is a column's declared type, as recorded in a CREATE TABLE.
type ColumnType int

const (
	ColumnInt ColumnType = iota
	ColumnReal
	ColumnText
	ColumnBlob
	ColumnNull
)

func (c ColumnType) String() string {
	switch c {
	case ColumnInt:
		return "INT"
	case ColumnReal:
		return "REAL"
	case ColumnText:
		return "TEXT"
	case ColumnBlob:
		return "BLOB"
	default:
		return "NULL"
	}
}

// Value is a tagged SqlValue: exactly one of the typed fields is meaningful,
// selected by Typ.
type Value struct {
	Typ  Type
	I    int64
	R    float64
	S    string
	B    []byte
	Bool bool
}

func Null() Value              { return Value{Typ: TypeNull} }
func Int(i int64) Value        { return Value{Typ: TypeInt, I: i} }
func Real(r float64) Value     { return Value{Typ: TypeReal, R: r} }
func Text(s string) Value      { return Value{Typ: TypeText, S: s} }
func Blob(b []byte) Value      { return Value{Typ: TypeBlob, B: b} }
func Bool(b bool) Value        { return Value{Typ: TypeBool, Bool: b} }

// IsNull reports whether v is the Null value.
func (v Value) IsNull() bool { return v.Typ == TypeNull }

// String renders v for display and for text-position equality checks.
func (v Value) String() string {
	switch v.Typ {
	case TypeNull:
		return "NULL"
	case TypeInt:
		return strconv.FormatInt(v.I, 10)
	case TypeReal:
		return strconv.FormatFloat(v.R, 'g', -1, 64)
	case TypeText:
		return v.S
	case TypeBlob:
		return fmt.Sprintf("%x", v.B)
	case TypeBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Equal compares two values by tag and payload; Int/Real are compared
// numerically across tags (so Int(2) == Real(2.0)) since this is used by
// round-trip property tests that may promote a type during arithmetic.
func Equal(a, b Value) bool {
	if a.Typ == TypeNull || b.Typ == TypeNull {
		return a.Typ == TypeNull && b.Typ == TypeNull
	}
	if (a.Typ == TypeInt || a.Typ == TypeReal) && (b.Typ == TypeInt || b.Typ == TypeReal) {
		return asFloat(a) == asFloat(b)
	}
	if a.Typ != b.Typ {
		return false
	}
	switch a.Typ {
	case TypeText:
		return a.S == b.S
	case TypeBlob:
		if len(a.B) != len(b.B) {
			return false
		}
		for i := range a.B {
			if a.B[i] != b.B[i] {
				return false
			}
		}
		return true
	case TypeBool:
		return a.Bool == b.Bool
	default:
		return true
	}
}

func asFloat(v Value) float64 {
	if v.Typ == TypeInt {
		return float64(v.I)
	}
	return v.R
}

// AsFloat64 coerces v to float64 following SQLite numeric-affinity rules:
// Int and Real convert directly, Text parses as a float (unparsable text is
// 0), Null and Blob are 0, Bool is 1/0.
func (v Value) AsFloat64() float64 {
	switch v.Typ {
	case TypeInt:
		return float64(v.I)
	case TypeReal:
		return v.R
	case TypeText:
		f, err := strconv.ParseFloat(v.S, 64)
		if err != nil {
			return 0
		}
		return f
	case TypeBool:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// AsInt64 coerces v to int64 following the same affinity rules as
// AsFloat64, truncating any fractional part.
func (v Value) AsInt64() int64 {
	switch v.Typ {
	case TypeInt:
		return v.I
	case TypeReal:
		return int64(v.R)
	case TypeText:
		if i, err := strconv.ParseInt(v.S, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(v.S, 64); err == nil {
			return int64(f)
		}
		return 0
	case TypeBool:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Truthy implements the interpreter's predicate rule: Int != 0, Real != 0
// or Bool true; Null, Text and Blob are not truthy.
func (v Value) Truthy() bool {
	switch v.Typ {
	case TypeInt:
		return v.I != 0
	case TypeReal:
		return v.R != 0
	case TypeBool:
		return v.Bool
	default:
		return false
	}
}
