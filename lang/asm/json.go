package asm

import (
	"encoding/json"
	"fmt"

	"github.com/shlocko/fvm/lang/bytecode"
	"github.com/shlocko/fvm/lang/value"
)

// jsonDoc is the top-level JSON assembler document: { consts, functions,
// code }.
type jsonDoc struct {
	Consts    []jsonTypedLiteral `json:"consts"`
	Functions []jsonFuncDesc     `json:"functions"`
	Code      []jsonInstruction  `json:"code"`
}

type jsonTypedLiteral struct {
	Tag   string          `json:"tag"`
	Value json.RawMessage `json:"value"`
}

func (l jsonTypedLiteral) toValue() (value.Value, error) {
	switch l.Tag {
	case "Int":
		var i int64
		if err := json.Unmarshal(l.Value, &i); err != nil {
			return value.Value{}, &InvalidLiteralError{Message: "Int constant: " + err.Error()}
		}
		return value.NewInt(i), nil
	case "Float":
		var f float64
		if err := json.Unmarshal(l.Value, &f); err != nil {
			return value.Value{}, &InvalidLiteralError{Message: "Float constant: " + err.Error()}
		}
		return value.NewFloat(f), nil
	case "Bool":
		var b bool
		if err := json.Unmarshal(l.Value, &b); err != nil {
			return value.Value{}, &InvalidLiteralError{Message: "Bool constant: " + err.Error()}
		}
		return value.NewBool(b), nil
	case "String":
		var s string
		if err := json.Unmarshal(l.Value, &s); err != nil {
			return value.Value{}, &InvalidLiteralError{Message: "String constant: " + err.Error()}
		}
		return value.NewString(s), nil
	default:
		return value.Value{}, &InvalidLiteralError{Message: fmt.Sprintf("unknown constant tag %q", l.Tag)}
	}
}

type jsonFuncDesc struct {
	Address uint32 `json:"address"`
	Arity   uint8  `json:"arity"`
	Locals  uint8  `json:"locals"`
}

// jsonInstruction is one [mnemonic, [arg, ...]] tuple.
type jsonInstruction struct {
	Mnemonic string
	Args     []json.RawMessage
}

func (ji *jsonInstruction) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &ji.Mnemonic); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &ji.Args)
}

// jsonMnemonics maps the JSON tuple form's PascalCase mnemonics to opcodes,
// for every instruction handled generically (no identifier resolution, no
// entry/function table side effects).
var jsonMnemonics = map[string]bytecode.Opcode{
	"Add": bytecode.Add, "Sub": bytecode.Sub, "Mul": bytecode.Mul,
	"Div": bytecode.Div, "DivInt": bytecode.DivInt, "Mod": bytecode.Mod,
	"Equal": bytecode.Equal, "NotEqual": bytecode.NotEqual,
	"LessThan": bytecode.LessThan, "GreaterThan": bytecode.GreaterThan,
	"LessEqual": bytecode.LessEqual, "GreaterEqual": bytecode.GreaterEqual,
	"Not": bytecode.Not, "LogicalAnd": bytecode.LogicalAnd, "LogicalOr": bytecode.LogicalOr,
	"PushConst": bytecode.PushConst, "PushImmediate": bytecode.PushImmediate,
	"PushLocal": bytecode.PushLocal, "StoreLocal": bytecode.StoreLocal,
	"PushGlobal": bytecode.PushGlobal, "StoreGlobal": bytecode.StoreGlobal,
	"Pop": bytecode.Pop, "Box": bytecode.Box, "Unbox": bytecode.Unbox, "SetBox": bytecode.SetBox,
	"Array": bytecode.MakeArray, "ArraySet": bytecode.ArraySet, "ArrayGet": bytecode.ArrayGet,
	"ArrayPush": bytecode.ArrayPush, "ArrayPop": bytecode.ArrayPop, "ArrayLen": bytecode.ArrayLen,
	"Return": bytecode.Return, "Print": bytecode.Print, "NoOp": bytecode.NoOp,
}

// AsmJSON assembles the structured JSON tuple form into a linked Program.
// Unlike Asm, the constant pool is taken verbatim (no deduplication), and
// every CallFunction instruction overwrites its target function's recorded
// address with the offset at which the call itself was emitted: the last
// call site to a given function wins. This quirk is preserved from the
// source format rather than fixed (see the design notes).
func AsmJSON(src []byte) (*bytecode.Program, error) {
	var doc jsonDoc
	if err := json.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON program: %w", err)
	}

	consts := make([]value.Value, len(doc.Consts))
	for i, lit := range doc.Consts {
		v, err := lit.toValue()
		if err != nil {
			return nil, err
		}
		consts[i] = v
	}

	funcDescs := make([]bytecode.FuncDesc, len(doc.Functions))
	for i, f := range doc.Functions {
		funcDescs[i] = bytecode.FuncDesc{Address: f.Address, Arity: f.Arity, Locals: f.Locals}
	}

	b := newBuilder()
	var entry uint32
	seenLabels := make(map[string]bool)

	for i, instr := range doc.Code {
		switch instr.Mnemonic {
		case "Main":
			if err := checkArgCount(instr, 0, i); err != nil {
				return nil, err
			}
			entry = b.offset()
			b.emitOpcode(bytecode.NoOp)

		case "Label":
			if err := checkArgCount(instr, 1, i); err != nil {
				return nil, err
			}
			name, err := jsonString(instr.Args[0], i)
			if err != nil {
				return nil, err
			}
			if seenLabels[name] {
				return nil, &DuplicateLabelError{Name: name}
			}
			seenLabels[name] = true
			b.defineLabel(name)

		case "Jump", "JumpIfFalse", "JumpIfTrue":
			if err := checkArgCount(instr, 1, i); err != nil {
				return nil, err
			}
			name, err := jsonString(instr.Args[0], i)
			if err != nil {
				return nil, err
			}
			op := map[string]bytecode.Opcode{"Jump": bytecode.Jump, "JumpIfFalse": bytecode.JumpIfFalse, "JumpIfTrue": bytecode.JumpIfTrue}[instr.Mnemonic]
			b.emitOpcode(op)
			b.emitJumpTarget(name)

		case "CallFunction":
			if err := checkArgCount(instr, 1, i); err != nil {
				return nil, err
			}
			idx, err := jsonInt(instr.Args[0], i)
			if err != nil {
				return nil, err
			}
			if idx < 0 || int(idx) >= len(funcDescs) {
				return nil, &InvalidArgumentError{Message: fmt.Sprintf("CallFunction: function index %d out of range at position %d", idx, i)}
			}
			funcDescs[idx].Address = b.offset()
			b.emitOpcode(bytecode.CallFunction)
			b.emitU16(uint16(idx))

		default:
			op, ok := jsonMnemonics[instr.Mnemonic]
			if !ok {
				return nil, &InvalidOpcodeError{Mnemonic: instr.Mnemonic}
			}
			switch op.Operand() {
			case bytecode.OperandNone:
				if err := checkArgCount(instr, 0, i); err != nil {
					return nil, err
				}
				b.emitOpcode(op)
			case bytecode.OperandU8:
				if err := checkArgCount(instr, 1, i); err != nil {
					return nil, err
				}
				n, err := jsonInt(instr.Args[0], i)
				if err != nil {
					return nil, err
				}
				b.emitOpcode(op)
				b.emitU8(uint8(n))
			case bytecode.OperandU16:
				if err := checkArgCount(instr, 1, i); err != nil {
					return nil, err
				}
				n, err := jsonInt(instr.Args[0], i)
				if err != nil {
					return nil, err
				}
				b.emitOpcode(op)
				b.emitU16(uint16(n))
			case bytecode.OperandI16:
				if err := checkArgCount(instr, 1, i); err != nil {
					return nil, err
				}
				n, err := jsonInt(instr.Args[0], i)
				if err != nil {
					return nil, err
				}
				b.emitOpcode(op)
				b.emitI16(int16(n))
			}
		}
	}

	if err := b.resolveFixups(); err != nil {
		return nil, err
	}

	return &bytecode.Program{
		Entry:     entry,
		Consts:    consts,
		Functions: funcDescs,
		Code:      b.code,
	}, nil
}

func checkArgCount(instr jsonInstruction, expected, position int) error {
	if len(instr.Args) != expected {
		return &InvalidArgumentError{Message: fmt.Sprintf("expected %d arguments for opcode %s at position %d, got %d", expected, instr.Mnemonic, position, len(instr.Args))}
	}
	return nil
}

func jsonInt(raw json.RawMessage, position int) (int64, error) {
	var i int64
	if err := json.Unmarshal(raw, &i); err != nil {
		return 0, &InvalidArgumentError{Message: fmt.Sprintf("expected integer argument at position %d", position)}
	}
	return i, nil
}

func jsonString(raw json.RawMessage, position int) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &InvalidArgumentError{Message: fmt.Sprintf("expected string argument at position %d", position)}
	}
	return s, nil
}
