package asm

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/shlocko/fvm/lang/bytecode"
	"github.com/shlocko/fvm/lang/value"
)

// Dasm disassembles a Program back into the line-oriented text form. It is
// the formal inverse of Asm: reassembling Dasm's output reproduces an
// equivalent Program (same constant pool content, same function table,
// same code stream modulo synthesized global/local/label/function names).
//
// Function boundaries are recovered from the function table's recorded
// addresses, and the first Return encountered after entering one closes it
// with endf. The bytecode carries no endf-equivalent marker, so a function
// with more than one Return (for example an explicit ret before its endf, in
// either source form) does not round-trip: the code after its first Return
// is disassembled as if it were outside the function.
func Dasm(p *bytecode.Program) ([]byte, error) {
	targets, err := scanJumpTargets(p.Code)
	if err != nil {
		return nil, err
	}

	funcByAddr := make(map[uint32]int, len(p.Functions))
	for i, f := range p.Functions {
		funcByAddr[f.Address] = i
	}

	var out bytes.Buffer
	var offset uint32
	var inFunc bool
	var curArity uint8

	for int(offset) < len(p.Code) {
		op := bytecode.Opcode(p.Code[offset])
		if !op.Valid() {
			return nil, fmt.Errorf("invalid opcode byte 0x%02x at offset %d", p.Code[offset], offset)
		}
		size := op.Operand().Size()
		if int(offset)+1+size > len(p.Code) {
			return nil, fmt.Errorf("truncated operand for %s at offset %d", op, offset)
		}

		if op == bytecode.NoOp {
			if idx, ok := funcByAddr[offset]; offset != p.Entry && ok {
				fmt.Fprintf(&out, "func fn%d %d\n", idx, p.Functions[idx].Arity)
				inFunc = true
				curArity = p.Functions[idx].Arity
			} else if offset == p.Entry {
				fmt.Fprintln(&out, "main")
			} else if name, ok := targets[offset]; ok {
				fmt.Fprintf(&out, "label %s\n", name)
			} else {
				fmt.Fprintln(&out, "noop")
			}
			offset++
			continue
		}

		if op == bytecode.Return && inFunc {
			fmt.Fprintln(&out, "endf")
			inFunc = false
			offset++
			continue
		}

		switch op {
		case bytecode.PushConst:
			idx := bytecode.U16At(p.Code, int(offset)+1)
			lit, ok := p.ConstAt(int(idx))
			if !ok {
				return nil, fmt.Errorf("pshc at offset %d: constant index %d out of range", offset, idx)
			}
			tok, err := literalToken(lit)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&out, "pshc %s\n", tok)

		case bytecode.PushImmediate:
			imm := bytecode.I16At(p.Code, int(offset)+1)
			fmt.Fprintf(&out, "pshi %d\n", imm)

		case bytecode.PushLocal, bytecode.StoreLocal:
			slot := bytecode.U8At(p.Code, int(offset)+1)
			mnemonic := "pshl"
			if op == bytecode.StoreLocal {
				mnemonic = "strl"
			}
			fmt.Fprintf(&out, "%s %s\n", mnemonic, localName(slot, curArity))

		case bytecode.PushGlobal, bytecode.StoreGlobal:
			idx := bytecode.U16At(p.Code, int(offset)+1)
			mnemonic := "pshg"
			if op == bytecode.StoreGlobal {
				mnemonic = "strg"
			}
			fmt.Fprintf(&out, "%s g%d\n", mnemonic, idx)

		case bytecode.MakeArray:
			n := bytecode.U8At(p.Code, int(offset)+1)
			fmt.Fprintf(&out, "array %d\n", n)

		case bytecode.Jump, bytecode.JumpIfFalse, bytecode.JumpIfTrue:
			target := bytecode.U32At(p.Code, int(offset)+1)
			name, ok := targets[target]
			if !ok {
				return nil, fmt.Errorf("%s at offset %d: target %d has no landing NoOp", op, offset, target)
			}
			fmt.Fprintf(&out, "%s %s\n", op.String(), name)

		case bytecode.CallFunction:
			idx := bytecode.U16At(p.Code, int(offset)+1)
			fmt.Fprintf(&out, "callf fn%d\n", idx)

		default:
			fmt.Fprintln(&out, op.String())
		}

		offset += uint32(1 + size)
	}

	return out.Bytes(), nil
}

func localName(slot, arity uint8) string {
	if slot < arity {
		return fmt.Sprintf("arg%d", slot)
	}
	return fmt.Sprintf("local%d", slot)
}

func literalToken(v value.Value) (string, error) {
	switch v.Tag() {
	case value.Int:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case value.Float:
		s := strconv.FormatFloat(v.AsFloat(), 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s, nil
	case value.Bool:
		if v.AsBool() {
			return "true", nil
		}
		return "false", nil
	case value.String:
		return strconv.Quote(v.AsString()), nil
	default:
		return "", fmt.Errorf("cannot render a %s constant as a text literal", v.Tag())
	}
}

// scanJumpTargets makes a linear forward pass over code, decoding each
// instruction only far enough to find its operand width, and records a
// synthesized label name for every jump target offset.
func scanJumpTargets(code []byte) (map[uint32]string, error) {
	targets := make(map[uint32]string)
	var offset uint32
	for int(offset) < len(code) {
		op := bytecode.Opcode(code[offset])
		if !op.Valid() {
			return nil, fmt.Errorf("invalid opcode byte 0x%02x at offset %d", code[offset], offset)
		}
		size := op.Operand().Size()
		if int(offset)+1+size > len(code) {
			return nil, fmt.Errorf("truncated operand for %s at offset %d", op, offset)
		}
		if bytecode.IsJump(op) {
			target := bytecode.U32At(code, int(offset)+1)
			if _, ok := targets[target]; !ok {
				targets[target] = fmt.Sprintf("L%d", target)
			}
		}
		offset += uint32(1 + size)
	}
	return targets, nil
}
