package hop

import (
	"fmt"
	"strconv"
)

// ValueKind is the dynamic type tag of a Value. It doubles as the declared
// type of a variable.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInteger
	KindFloat
	KindBool
	KindWord
	KindErr
)

var kindNames = [...]string{
	KindString:  "string",
	KindInteger: "integer",
	KindFloat:   "float",
	KindBool:    "bool",
	KindWord:    "word",
	KindErr:     "err",
}

func (k ValueKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "err"
	}
	return kindNames[k]
}

// ParseKind maps a type name as written after let to its kind. Unknown
// names yield KindErr.
func ParseKind(name string) ValueKind {
	switch name {
	case "string":
		return KindString
	case "integer":
		return KindInteger
	case "float":
		return KindFloat
	case "bool":
		return KindBool
	case "word":
		return KindWord
	default:
		return KindErr
	}
}

// TypeNames returns the type names accepted by let.
func TypeNames() []string {
	return []string{"string", "integer", "float", "bool", "word"}
}

// Value is a dynamically tagged scalar shared by variables, arguments and
// results.
type Value struct {
	kind ValueKind
	data any
}

func NewString(s string) Value  { return Value{kind: KindString, data: s} }
func NewInteger(i int32) Value  { return Value{kind: KindInteger, data: i} }
func NewFloat(f float64) Value  { return Value{kind: KindFloat, data: f} }
func NewBool(b bool) Value      { return Value{kind: KindBool, data: b} }
func NewWord(w uint64) Value    { return Value{kind: KindWord, data: w} }
func NewErr(msg string) Value   { return Value{kind: KindErr, data: msg} }
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string payload, or "" for other kinds.
func (v Value) Str() string {
	if v.kind == KindString {
		return v.data.(string)
	}
	return ""
}

func (v Value) Integer() int32 {
	if v.kind == KindInteger {
		return v.data.(int32)
	}
	return 0
}

func (v Value) Float() float64 {
	if v.kind == KindFloat {
		return v.data.(float64)
	}
	return 0
}

func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.data.(bool)
	}
	return false
}

func (v Value) Word() uint64 {
	if v.kind == KindWord {
		return v.data.(uint64)
	}
	return 0
}

// String formats the value the way print writes it.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.data.(string)
	case KindInteger:
		return strconv.FormatInt(int64(v.data.(int32)), 10)
	case KindFloat:
		return fmt.Sprintf("%f", v.data.(float64))
	case KindBool:
		if v.data.(bool) {
			return "true"
		}
		return "false"
	case KindWord:
		return strconv.FormatUint(v.data.(uint64), 10)
	default:
		return "[ERR]"
	}
}

// Inspect formats the value for display in the REPL, quoting strings.
func (v Value) Inspect() string {
	if v.kind == KindString {
		return strconv.Quote(v.data.(string))
	}
	return v.String()
}

// Equal reports whether both values carry the same tag and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.data.(string) == other.data.(string)
	case KindInteger:
		return v.data.(int32) == other.data.(int32)
	case KindFloat:
		return v.data.(float64) == other.data.(float64)
	case KindBool:
		return v.data.(bool) == other.data.(bool)
	case KindWord:
		return v.data.(uint64) == other.data.(uint64)
	default:
		return false
	}
}

// Truthy reports whether the value satisfies a conditional jump: true for a
// true Bool or a nonzero Integer. ok is false for kinds that cannot drive a
// jump.
func (v Value) Truthy() (truth bool, ok bool) {
	switch v.kind {
	case KindBool:
		return v.data.(bool), true
	case KindInteger:
		return v.data.(int32) != 0, true
	default:
		return false, false
	}
}

// Variable is a named, typed binding. Its value's kind always equals Type.
type Variable struct {
	Name  string
	Type  ValueKind
	Value Value
}
