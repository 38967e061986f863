package dataset

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the scalar type held by a Value or declared for a Column.
type Kind int

const (
	Null Kind = iota
	String
	Int
	Float
	Time
)

// String returns the lowercase name used in schema files and logs.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Time:
		return "time"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind maps a schema type name, including common synonyms, to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text":
		return String, nil
	case "int", "integer", "int64":
		return Int, nil
	case "float", "double", "number", "numeric", "decimal", "float64":
		return Float, nil
	case "time", "timestamp", "datetime", "date":
		return Time, nil
	default:
		return Null, fmt.Errorf("unknown column kind %q", s)
	}
}

// Value is one cell of a Dataset. The zero Value is the missing marker.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
}

// NullValue returns the missing marker.
func NullValue() Value { return Value{} }

func StringValue(s string) Value { return Value{kind: String, s: s} }
func IntValue(i int64) Value { return Value{kind: Int, i: i} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }
func TimeValue(t time.Time) Value { return Value{kind: Time, t: t} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }

// Str returns the string payload and whether v holds a string.
func (v Value) Str() (string, bool) { return v.s, v.kind == String }

func (v Value) Int() (int64, bool) { return v.i, v.kind == Int }
func (v Value) Float() (float64, bool) { return v.f, v.kind == Float }
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == Time }

// Interface returns the payload as a plain Go value: nil, string, int64,
// float64 or time.Time.
func (v Value) Interface() any {
	switch v.kind {
	case String:
		return v.s
	case Int:
		return v.i
	case Float:
		return v.f
	case Time:
		return v.t
	default:
		return nil
	}
}

// String renders the value for logs and CSV-like output. Null renders empty.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.s
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Time:
		return v.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case String:
		return v.s == o.s
	case Int:
		return v.i == o.i
	case Float:
		return v.f == o.f
	case Time:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// rank orders kinds for cross-kind comparison. Int and Float share a rank so
// they compare numerically.
func (k Kind) rank() int {
	switch k {
	case Null:
		return 0
	case Int, Float:
		return 1
	case Time:
		return 2
	default:
		return 3
	}
}

// Compare returns -1, 0 or +1. Numbers compare numerically, times
// chronologically and strings lexicographically by byte. Values of different
// kinds order Null < numbers < times < strings.
func (v Value) Compare(o Value) int {
	if rv, ro := v.kind.rank(), o.kind.rank(); rv != ro {
		return cmp.Compare(rv, ro)
	}
	switch v.kind {
	case Null:
		return 0
	case Int, Float:
		if v.kind == Int && o.kind == Int {
			return cmp.Compare(v.i, o.i)
		}
		return cmp.Compare(v.number(), o.number())
	case Time:
		return v.t.Compare(o.t)
	default:
		return strings.Compare(v.s, o.s)
	}
}

func (v Value) number() float64 {
	if v.kind == Int {
		return float64(v.i)
	}
	return v.f
}

// key encodes the value unambiguously for row identity.
func (v Value) key(b *strings.Builder) {
	switch v.kind {
	case String:
		b.WriteString("s")
		b.WriteString(strconv.Itoa(len(v.s)))
		b.WriteByte(':')
		b.WriteString(v.s)
	case Int:
		b.WriteString("i")
		b.WriteString(strconv.FormatInt(v.i, 10))
	case Float:
		b.WriteString("f")
		b.WriteString(strconv.FormatUint(floatBits(v.f), 16))
	case Time:
		b.WriteString("t")
		b.WriteString(strconv.FormatInt(v.t.Unix(), 10))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(v.t.Nanosecond()))
	default:
		b.WriteString("n")
	}
	b.WriteByte(';')
}
