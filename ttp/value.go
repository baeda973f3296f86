package ttp

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	// KindInt is a whole number written without a fractional
	// separator or exponent.
	KindInt Kind = iota

	// KindFloat is a number written with a fractional separator or
	// exponent. Devices render floats with six decimals ("0.000000").
	KindFloat

	// KindBool is one of the literals "true" or "false".
	KindBool

	// KindString is a double-quoted string. The grammar has no escape
	// sequences, so a string can never contain a double quote.
	KindString

	// KindConstant is a bare enumeration word such as "DHCP" or
	// "LINK_1_GB".
	KindConstant

	// KindList is an ordered, possibly heterogeneous sequence:
	// [2 "host" true].
	KindList

	// KindRecord is a key-value map with unique keys:
	// {"units":Milliseconds "delay":100}.
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	case KindConstant:
		return "constant"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Value is one structured TTP value: a scalar, a list or a record.
// Values are immutable once constructed and safe to copy.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	list []Value
	rec  map[string]Value
}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String returns a quoted string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Constant returns a bare enumeration word value.
func Constant(s string) Value { return Value{kind: KindConstant, s: s} }

// List returns a list value holding the given items in order.
func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// Record returns a record value holding a copy of the given fields.
func Record(fields map[string]Value) Value {
	rec := make(map[string]Value, len(fields))
	for k, v := range fields {
		rec[k] = v
	}
	return Value{kind: KindRecord, rec: rec}
}

// Kind returns the variant held by v. The zero Value is Int(0).
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload. Zero unless Kind is KindInt.
func (v Value) Int() int64 { return v.i }

// Float returns the numeric payload as float64. Integer values are
// widened, so callers reading device numbers can use Float regardless
// of the lexical form the device chose.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Bool returns the boolean payload. False unless Kind is KindBool.
func (v Value) Bool() bool { return v.b }

// Str returns the text payload of a string or constant value.
func (v Value) Str() string { return v.s }

// List returns the items of a list value. Nil for other kinds.
func (v Value) List() []Value { return v.list }

// Record returns the fields of a record value. Nil for other kinds.
// The returned map must not be modified.
func (v Value) Record() map[string]Value { return v.rec }

// Equal reports whether v and o are structurally identical: same kind
// and same payload, element-wise for lists and records.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString, KindConstant:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.rec) != len(o.rec) {
			return false
		}
		for k, item := range v.rec {
			other, ok := o.rec[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders v in wire form, substituting a placeholder when the
// value cannot be represented. Intended for logs and error messages;
// use EncodeValue for wire output.
func (v Value) String() string {
	s, err := EncodeValue(v)
	if err != nil {
		return "<illegal value>"
	}
	return s
}

// EncodeValue renders v in wire textual form. It fails with an
// IllegalValueError when v cannot be represented unambiguously: a
// string holding a quote or line terminator, a non-finite float, a
// constant that would parse back as something else.
func EncodeValue(v Value) (string, error) {
	b, err := appendValue(nil, v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func appendValue(dst []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindInt:
		return strconv.AppendInt(dst, v.i, 10), nil

	case KindFloat:
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return nil, &IllegalValueError{Reason: "non-finite float"}
		}
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		// A float must keep its fractional separator or it would
		// decode as an integer.
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return append(dst, s...), nil

	case KindBool:
		if v.b {
			return append(dst, "true"...), nil
		}
		return append(dst, "false"...), nil

	case KindString:
		if strings.ContainsAny(v.s, "\"\r\n") {
			return nil, &IllegalValueError{Reason: "string contains a quote or line terminator"}
		}
		dst = append(dst, '"')
		dst = append(dst, v.s...)
		return append(dst, '"'), nil

	case KindConstant:
		if !isConstantWord(v.s) {
			return nil, &IllegalValueError{Reason: "constant is not a bare word: " + strconv.Quote(v.s)}
		}
		return append(dst, v.s...), nil

	case KindList:
		dst = append(dst, '[')
		for i, item := range v.list {
			if i > 0 {
				dst = append(dst, ' ')
			}
			var err error
			dst, err = appendValue(dst, item)
			if err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil

	case KindRecord:
		keys := make([]string, 0, len(v.rec))
		for k := range v.rec {
			if k == "" || strings.ContainsAny(k, "\" \t\r\n") {
				return nil, &IllegalValueError{Reason: "record key is not representable: " + strconv.Quote(k)}
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dst = append(dst, '{')
		for i, k := range keys {
			if i > 0 {
				dst = append(dst, ' ')
			}
			dst = append(dst, '"')
			dst = append(dst, k...)
			dst = append(dst, '"', ':')
			var err error
			dst, err = appendValue(dst, v.rec[k])
			if err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil

	default:
		return nil, &IllegalValueError{Reason: "unknown value kind"}
	}
}

// isConstantWord reports whether s is a bare word that the decoder
// would classify back as a constant: it starts with a letter or
// underscore and continues with letters, digits, '_', '-' or '.'.
// The hyphen covers device enumerations like "Linkwitz-Riley".
func isConstantWord(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return s != "true" && s != "false"
}
