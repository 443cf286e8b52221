// Package bytecode defines the opcode table and the binary program model
// shared by the assemblers (lang/asm) and the interpreter (lang/vm).
package bytecode

import "fmt"

// Opcode is a single fetch-decode-execute instruction's numeric code.
type Opcode uint8

// OperandKind describes the shape of an opcode's in-stream operand.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandU8
	OperandU16
	OperandI16
	OperandU32
)

// Size returns the number of bytes this operand kind occupies in the code
// stream, not counting the opcode byte itself.
func (k OperandKind) Size() int {
	switch k {
	case OperandU8:
		return 1
	case OperandU16, OperandI16:
		return 2
	case OperandU32:
		return 4
	default:
		return 0
	}
}

const ( //nolint:revive
	// Arithmetic: pop 2, push 1. Both operands must share a numeric tag.
	Add Opcode = iota
	Sub
	Mul
	Div
	DivInt
	Mod

	// Comparisons: pop 2, push 1 Bool.
	Equal
	NotEqual
	LessThan
	GreaterThan
	LessEqual
	GreaterEqual

	// Logical.
	Not
	LogicalAnd
	LogicalOr

	// Stack/memory.
	PushConst     // u16: consts[idx]
	PushImmediate // i16, sign-extended to Int
	PushLocal     // u8: local slot
	StoreLocal    // u8: local slot
	PushGlobal    // u16: global id
	StoreGlobal   // u16: global id
	Pop
	Box
	Unbox
	SetBox
	MakeArray // u8: element count
	ArraySet
	ArrayGet
	ArrayPush
	ArrayPop
	ArrayLen

	// Control flow: u32 absolute byte offsets, always landing on a NoOp.
	Jump
	JumpIfFalse
	JumpIfTrue

	// Functions.
	CallFunction // u16: function table index
	Return

	// Misc.
	NoOp
	Print

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	Add:           "add",
	Sub:           "sub",
	Mul:           "mul",
	Div:           "div",
	DivInt:        "divi",
	Mod:           "mod",
	Equal:         "eq",
	NotEqual:      "neq",
	LessThan:      "lsth",
	GreaterThan:   "grth",
	LessEqual:     "lseq",
	GreaterEqual:  "greq",
	Not:           "not",
	LogicalAnd:    "and",
	LogicalOr:     "or",
	PushConst:     "pshc",
	PushImmediate: "pshi",
	PushLocal:     "pshl",
	StoreLocal:    "strl",
	PushGlobal:    "pshg",
	StoreGlobal:   "strg",
	Pop:           "pop",
	Box:           "box",
	Unbox:         "unbox",
	SetBox:        "setbox",
	MakeArray:     "array",
	ArraySet:      "arrayset",
	ArrayGet:      "arrayget",
	ArrayPush:     "arraypush",
	ArrayPop:      "arraypop",
	ArrayLen:      "arraylen",
	Jump:          "jump",
	JumpIfFalse:   "jmpf",
	JumpIfTrue:    "jmpt",
	CallFunction:  "callf",
	Return:        "ret",
	NoOp:          "noop",
	Print:         "prnt",
}

var operandKinds = [opcodeCount]OperandKind{
	PushConst:     OperandU16,
	PushImmediate: OperandI16,
	PushLocal:     OperandU8,
	StoreLocal:    OperandU8,
	PushGlobal:    OperandU16,
	StoreGlobal:   OperandU16,
	MakeArray:     OperandU8,
	Jump:          OperandU32,
	JumpIfFalse:   OperandU32,
	JumpIfTrue:    OperandU32,
	CallFunction:  OperandU16,
}

var mnemonicToOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// String returns the mnemonic for op, or a placeholder for an invalid code.
func (op Opcode) String() string {
	if op < opcodeCount && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", uint8(op))
}

// Operand returns the operand shape expected in the code stream after op.
func (op Opcode) Operand() OperandKind {
	if op < opcodeCount {
		return operandKinds[op]
	}
	return OperandNone
}

// Valid reports whether op is a known, in-range opcode.
func (op Opcode) Valid() bool { return op < opcodeCount }

// Lookup resolves a text-assembler mnemonic to its Opcode.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := mnemonicToOpcode[mnemonic]
	return op, ok
}

// IsJump reports whether op is one of the three absolute-offset jump
// instructions, which always land on a NoOp.
func IsJump(op Opcode) bool {
	return op == Jump || op == JumpIfFalse || op == JumpIfTrue
}
