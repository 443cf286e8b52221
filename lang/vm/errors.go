// Package vm implements the execution engine: the operand/call stack with
// frames, and the fetch-decode-execute interpreter loop over a
// bytecode.Program.
package vm

import (
	"fmt"

	"github.com/shlocko/fvm/lang/value"
)

// Error is implemented by every interpreter error of the taxonomy below. There
// is no recovery and no try/catch in the bytecode: execution aborts on the
// first error and it is surfaced to the host. Exceeding Options.MaxSteps and a
// truncated operand at the end of the code are also fatal, but are reported as
// plain errors that do not implement Error.
type Error interface {
	error
	vmError()
}

type baseErr struct{}

func (baseErr) vmError() {}

// StackOverflowError reports that the value stack exceeded its configured
// capacity.
type StackOverflowError struct{ baseErr }

func (e *StackOverflowError) Error() string { return "stack overflow" }

// StackUnderflowError reports a pop against an empty value stack.
type StackUnderflowError struct{ baseErr }

func (e *StackUnderflowError) Error() string { return "stack underflow" }

// CallStackOverflowError reports a call nesting deeper than the configured
// maximum frame count.
type CallStackOverflowError struct{ baseErr }

func (e *CallStackOverflowError) Error() string { return "call stack overflow" }

// NotInFrameError reports a local access with no active call frame.
type NotInFrameError struct{ baseErr }

func (e *NotInFrameError) Error() string { return "local access outside of an active frame" }

// InvalidLocalIndexError reports an out-of-range local slot.
type InvalidLocalIndexError struct {
	baseErr
	Index int
}

func (e *InvalidLocalIndexError) Error() string {
	return fmt.Sprintf("invalid local index %d", e.Index)
}

// InvalidGlobalIndexError reports an out-of-range global index.
type InvalidGlobalIndexError struct {
	baseErr
	Index int
}

func (e *InvalidGlobalIndexError) Error() string {
	return fmt.Sprintf("invalid global index %d", e.Index)
}

// InvalidConstantIndexError reports an out-of-range constant pool index.
type InvalidConstantIndexError struct {
	baseErr
	Index int
}

func (e *InvalidConstantIndexError) Error() string {
	return fmt.Sprintf("invalid constant index %d", e.Index)
}

// InvalidFunctionIndexError reports an out-of-range function table index.
type InvalidFunctionIndexError struct {
	baseErr
	Index int
}

func (e *InvalidFunctionIndexError) Error() string {
	return fmt.Sprintf("invalid function index %d", e.Index)
}

// InvalidOpcodeError reports an unrecognized byte in the code stream.
type InvalidOpcodeError struct {
	baseErr
	Byte byte
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode byte 0x%02x", e.Byte)
}

// InvalidOperandTypeError reports a binary opcode applied to mismatched or
// non-numeric operand tags.
type InvalidOperandTypeError struct {
	baseErr
	Left, Right value.Tag
}

func (e *InvalidOperandTypeError) Error() string {
	return fmt.Sprintf("invalid operand types: %s and %s", e.Left, e.Right)
}

// InvalidUnaryOperandTypeError reports a unary opcode applied to the wrong
// tag.
type InvalidUnaryOperandTypeError struct {
	baseErr
	Operand value.Tag
}

func (e *InvalidUnaryOperandTypeError) Error() string {
	return fmt.Sprintf("invalid operand type: %s", e.Operand)
}

// InvalidStackValueTypeError reports a stack value of the wrong tag at a
// point where the interpreter requires a specific one (e.g. an Array,
// or a Boxed cell).
type InvalidStackValueTypeError struct {
	baseErr
	Expected, Got value.Tag
}

func (e *InvalidStackValueTypeError) Error() string {
	return fmt.Sprintf("expected a %s value, got %s", e.Expected, e.Got)
}

// DivisionByZeroError reports a Div/DivInt/Mod with a zero-valued operand.
type DivisionByZeroError struct{ baseErr }

func (e *DivisionByZeroError) Error() string { return "division by zero" }

// IndexOutsideRangeOfArrayError reports an out-of-bounds array access.
type IndexOutsideRangeOfArrayError struct {
	baseErr
	Index, Len int
}

func (e *IndexOutsideRangeOfArrayError) Error() string {
	return fmt.Sprintf("index %d outside range of array with length %d", e.Index, e.Len)
}

// CouldNotPopArrayError reports ArrayPop against an empty array.
type CouldNotPopArrayError struct{ baseErr }

func (e *CouldNotPopArrayError) Error() string { return "could not pop from an empty array" }
