package value

import "strconv"

type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is the tagged union stored in constant pools and on the VM stack.
// It is copied by value; objects are shared by reference.
type Value struct {
	Kind Kind
	Num  float64
	B    bool
	Obj  Object
}

// Object is a heap-allocated value. Strings are the only objects today.
type Object interface {
	Type() string
	String() string
}

func Nil() Value { return Value{Kind: KindNil} }
func Bool(b bool) Value {
	return Value{Kind: KindBool, B: b}
}
func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}
func FromObject(o Object) Value {
	return Value{Kind: KindObject, Obj: o}
}

func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsNil() bool    { return v.Kind == KindNil }

// AsString returns the interned string held by v, if any.
func (v Value) AsString() (*String, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	s, ok := v.Obj.(*String)
	return s, ok
}

// Falsey reports whether v counts as false in a condition: only nil and false do.
func Falsey(v Value) bool {
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return !v.B
	default:
		return false
	}
}

// Equal compares kinds first, then payloads. Objects compare by identity,
// which is value equality for interned strings.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.B == b.B
	case KindNumber:
		return a.Num == b.Num
	case KindObject:
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String renders v the way print shows it.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindNumber:
		return FormatNumber(v.Num)
	case KindObject:
		if v.Obj == nil {
			return "<nil object>"
		}
		return v.Obj.String()
	default:
		return "<unknown>"
	}
}

// FormatNumber prints n with six significant digits, dropping trailing
// zeros: 1.0/3 is "0.333333", 45000 is "45000", 1e6 is "1e+06".
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', 6, 64)
}

// TypeName reports the dynamic type name for a value.
func TypeName(v Value) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObject:
		if v.Obj == nil {
			return "object"
		}
		return v.Obj.Type()
	default:
		return "unknown"
	}
}
