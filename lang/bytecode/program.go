package bytecode

import "github.com/shlocko/fvm/lang/value"

// FuncDesc describes one entry in a Program's function table.
type FuncDesc struct {
	// Address is the absolute byte offset of the function's first
	// instruction in Code.
	Address uint32
	// Arity is the number of parameters popped (in reverse push order) off
	// the caller's stack and bound to locals 0..Arity-1 on call.
	Arity uint8
	// Locals is the total number of local slots the frame allocates,
	// including the Arity parameter slots.
	Locals uint8
}

// Program is the fully linked, directly executable binary form produced by
// both assemblers: a constant pool, a function table, and a flat code
// stream addressed by absolute byte offset.
type Program struct {
	// Entry is the absolute byte offset of the first instruction to
	// execute.
	Entry uint32
	// Consts is the constant pool, indexed by PushConst's u16 operand.
	Consts []value.Value
	// Functions is the function table, indexed by CallFunction's u16
	// operand.
	Functions []FuncDesc
	// Code is the flat instruction stream: opcode bytes interleaved with
	// their little-endian operand bytes.
	Code []byte
}

// ConstAt returns the constant at idx and whether idx was in range.
func (p *Program) ConstAt(idx int) (value.Value, bool) {
	if idx < 0 || idx >= len(p.Consts) {
		return value.Value{}, false
	}
	return p.Consts[idx], true
}

// FuncAt returns the function descriptor at idx and whether idx was in
// range.
func (p *Program) FuncAt(idx int) (FuncDesc, bool) {
	if idx < 0 || idx >= len(p.Functions) {
		return FuncDesc{}, false
	}
	return p.Functions[idx], true
}
