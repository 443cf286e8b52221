// Package value implements the runtime value model of the fvm virtual
// machine: a small closed tagged sum (Null, Int, Float, Bool, String, Ident,
// Boxed, Array, Function) plus the reference-shared compound variants
// (String, Boxed, Array).
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Tag identifies which variant a Value holds.
type Tag uint8

const (
	Null Tag = iota
	Int
	Float
	Bool
	String
	// Ident is assembler-only: it never reaches the interpreter.
	Ident
	Boxed
	Array
	Function
)

var tagNames = [...]string{
	Null:     "null",
	Int:      "int",
	Float:    "float",
	Bool:     "bool",
	String:   "string",
	Ident:    "ident",
	Boxed:    "boxed",
	Array:    "array",
	Function: "function",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", t)
}

// Value is a single machine value. It is kept small and copyable: the
// scalar variants store their bits in num, and the reference-shared variants
// (String, Boxed, Array) store a pointer-sized payload in ref, so copying a
// Value never copies the shared data behind ref.
type Value struct {
	tag Tag
	num uint64 // Int (as bits), Float (as bits), Bool (0/1)
	ref any    // *string (String, Ident), *Cell (Boxed), *Arr (Array), int (Function index)
}

// NullValue is the default, uninitialized Value.
var NullValue = Value{tag: Null}

// NewInt returns an Int value.
func NewInt(i int64) Value { return Value{tag: Int, num: uint64(i)} }

// NewFloat returns a Float value.
func NewFloat(f float64) Value { return Value{tag: Float, num: math.Float64bits(f)} }

// NewBool returns a Bool value.
func NewBool(b bool) Value {
	if b {
		return Value{tag: Bool, num: 1}
	}
	return Value{tag: Bool, num: 0}
}

// NewString returns a String value. The backing string is shared (cheaply
// cloned) by every copy of the returned Value.
func NewString(s string) Value {
	return Value{tag: String, ref: &s}
}

// NewIdent returns an assembler-only Ident value; it must never be emitted
// into a constant pool reachable by the interpreter.
func NewIdent(s string) Value {
	return Value{tag: Ident, ref: &s}
}

// NewBoxed wraps v in a fresh, shared, mutable Cell.
func NewBoxed(v Value) Value {
	return Value{tag: Boxed, ref: &Cell{v: v}}
}

// NewBoxedCell wraps an existing Cell, aliasing it.
func NewBoxedCell(c *Cell) Value {
	return Value{tag: Boxed, ref: c}
}

// NewArray constructs an Array value from elems (which becomes owned by the
// returned value; callers should not retain a mutable reference to the
// backing slice header, though the elements themselves are shared Values).
func NewArray(elems []Value) Value {
	return Value{tag: Array, ref: &Arr{elems: elems}}
}

// NewFunction returns a Function value referring to the function table entry
// at idx.
func NewFunction(idx int) Value {
	return Value{tag: Function, ref: idx}
}

// Tag returns the variant discriminant of v.
func (v Value) Tag() Tag { return v.tag }

// IsNull reports whether v holds the Null variant.
func (v Value) IsNull() bool { return v.tag == Null }

// AsInt returns the Int payload; the caller must have checked Tag() == Int.
func (v Value) AsInt() int64 { return int64(v.num) }

// AsFloat returns the Float payload; the caller must have checked
// Tag() == Float.
func (v Value) AsFloat() float64 { return math.Float64frombits(v.num) }

// AsBool returns the Bool payload; the caller must have checked
// Tag() == Bool.
func (v Value) AsBool() bool { return v.num != 0 }

// AsString returns the String (or Ident) payload; the caller must have
// checked the tag first.
func (v Value) AsString() string { return *(v.ref.(*string)) }

// AsCell returns the shared Cell backing a Boxed value; the caller must have
// checked Tag() == Boxed.
func (v Value) AsCell() *Cell { return v.ref.(*Cell) }

// AsArray returns the shared Arr backing an Array value; the caller must have
// checked Tag() == Array.
func (v Value) AsArray() *Arr { return v.ref.(*Arr) }

// AsFunctionIndex returns the function-table index; the caller must have
// checked Tag() == Function.
func (v Value) AsFunctionIndex() int { return v.ref.(int) }

// Equal reports structural equality. Cross-variant equality is always false.
// Float equality follows IEEE-754 (NaN != NaN, including NaN != itself).
func (v Value) Equal(other Value) bool {
	if v.tag != other.tag {
		return false
	}
	switch v.tag {
	case Null:
		return true
	case Int, Bool:
		return v.num == other.num
	case Float:
		return v.AsFloat() == other.AsFloat()
	case String, Ident:
		return v.AsString() == other.AsString()
	case Function:
		return v.AsFunctionIndex() == other.AsFunctionIndex()
	case Boxed:
		return v.AsCell() == other.AsCell() || v.AsCell().Get().Equal(other.AsCell().Get())
	case Array:
		a, b := v.AsArray(), other.AsArray()
		if a == b {
			return true
		}
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !a.Get(i).Equal(b.Get(i)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a cheap copy of v. For String it shares the backing pointer;
// for Boxed and Array it shares the underlying mutable handle (so mutation
// through either value is observed by the other), matching the interior
// mutability/aliasing model of spec.md.
func (v Value) Clone() Value { return v }

// String renders a diagnostic, implementation-defined but stable
// representation of v, used by the Print opcode and error messages.
func (v Value) String() string {
	switch v.tag {
	case Null:
		return "null"
	case Int:
		return strconv.FormatInt(v.AsInt(), 10)
	case Float:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case Bool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case String:
		return strconv.Quote(v.AsString())
	case Ident:
		return v.AsString()
	case Boxed:
		return fmt.Sprintf("box(%s)", v.AsCell().Get().String())
	case Array:
		return v.AsArray().String()
	case Function:
		return fmt.Sprintf("function(%d)", v.AsFunctionIndex())
	default:
		return fmt.Sprintf("<invalid value, tag %d>", v.tag)
	}
}
