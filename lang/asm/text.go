// Package asm implements the two textual/structured front ends that
// produce a bytecode.Program: the line-oriented text assembler (Asm) and
// the JSON tuple-form assembler (AsmJSON), plus their formal inverse, the
// disassembler (Dasm).
package asm

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dolthub/swiss"

	"github.com/shlocko/fvm/lang/bytecode"
	"github.com/shlocko/fvm/lang/value"
)

// Asm assembles the line-oriented text form into a linked, directly
// executable Program. Assembly is all-or-nothing: the first error aborts
// and no partial program is returned.
func Asm(src []byte) (*bytecode.Program, error) {
	b := newBuilder()

	var consts []value.Value
	constIdx := make(map[string]uint16)

	globals := swiss.NewMap[string, uint16](8)
	var globalCount uint16

	functions := swiss.NewMap[string, int](8)
	var funcDescs []bytecode.FuncDesc

	var inFunc bool
	var curFuncIdx int
	var curLocals *swiss.Map[string, uint8]
	var localCount uint8

	var entry uint32

	sc := bufio.NewScanner(bytes.NewReader(src))
	line := 0
	for sc.Scan() {
		line++
		trimmed := strings.TrimSpace(strings.TrimRight(sc.Text(), "\r"))
		if trimmed == "" {
			continue
		}
		tokens := strings.Split(trimmed, " ")
		mnemonic := tokens[0]
		if mnemonic == "#" || mnemonic == ";" {
			continue
		}
		args := tokens[1:]

		switch mnemonic {
		case "pshc":
			if len(args) != 1 {
				return nil, &InvalidArgumentError{Message: "pshc requires exactly one argument", Line: line}
			}
			lit, err := parseLiteral(args[0], line)
			if err != nil {
				return nil, err
			}
			if lit.Tag() == value.Ident {
				return nil, &InvalidLiteralError{Message: "pshc cannot push a bare identifier " + args[0], Line: line}
			}
			key := constKey(lit)
			idx, ok := constIdx[key]
			if !ok {
				idx = uint16(len(consts))
				consts = append(consts, lit)
				constIdx[key] = idx
			}
			b.emitOpcode(bytecode.PushConst)
			b.emitU16(idx)

		case "pshi":
			if len(args) != 1 {
				return nil, &InvalidArgumentError{Message: "pshi requires exactly one argument", Line: line}
			}
			i, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return nil, &InvalidLiteralError{Message: "invalid integer " + args[0], Line: line}
			}
			b.emitOpcode(bytecode.PushImmediate)
			b.emitI16(int16(i))

		case "strg", "pshg":
			if len(args) != 1 {
				return nil, &InvalidArgumentError{Message: mnemonic + " requires exactly one argument", Line: line}
			}
			name := args[0]
			if !validIdentifier(name) {
				return nil, &InvalidIdentifierError{Name: name, Line: line}
			}
			if mnemonic == "strg" {
				idx, ok := globals.Get(name)
				if !ok {
					idx = globalCount
					globals.Put(name, idx)
					globalCount++
				}
				b.emitOpcode(bytecode.StoreGlobal)
				b.emitU16(idx)
			} else {
				idx, ok := globals.Get(name)
				if !ok {
					return nil, &InvalidIdentifierError{Name: name, Line: line}
				}
				b.emitOpcode(bytecode.PushGlobal)
				b.emitU16(idx)
			}

		case "strl", "pshl":
			if len(args) != 1 {
				return nil, &InvalidArgumentError{Message: mnemonic + " requires exactly one argument", Line: line}
			}
			if !inFunc {
				return nil, &AccessLocalOutsideFunctionError{Line: line}
			}
			name := args[0]
			if !validIdentifier(name) {
				return nil, &InvalidIdentifierError{Name: name, Line: line}
			}
			if mnemonic == "strl" {
				slot, ok := curLocals.Get(name)
				if !ok {
					slot = localCount
					curLocals.Put(name, slot)
					localCount++
				}
				b.emitOpcode(bytecode.StoreLocal)
				b.emitU8(slot)
			} else {
				slot, ok := curLocals.Get(name)
				if !ok {
					return nil, &InvalidIdentifierError{Name: name, Line: line}
				}
				b.emitOpcode(bytecode.PushLocal)
				b.emitU8(slot)
			}

		case "label":
			if len(args) != 1 {
				return nil, &InvalidArgumentError{Message: "label requires exactly one argument", Line: line}
			}
			if !validIdentifier(args[0]) {
				return nil, &InvalidIdentifierError{Name: args[0], Line: line}
			}
			b.defineLabel(args[0])

		case "jump", "jmpf", "jmpt":
			if len(args) != 1 {
				return nil, &InvalidArgumentError{Message: mnemonic + " requires exactly one argument", Line: line}
			}
			if !validIdentifier(args[0]) {
				return nil, &InvalidIdentifierError{Name: args[0], Line: line}
			}
			op := map[string]bytecode.Opcode{"jump": bytecode.Jump, "jmpf": bytecode.JumpIfFalse, "jmpt": bytecode.JumpIfTrue}[mnemonic]
			b.emitOpcode(op)
			b.emitJumpTarget(args[0])

		case "func":
			if len(args) != 2 {
				return nil, &InvalidArgumentError{Message: "func requires exactly two arguments", Line: line}
			}
			if inFunc {
				return nil, &InvalidFunctionLocationError{Line: line}
			}
			name := args[0]
			if !validIdentifier(name) {
				return nil, &InvalidIdentifierError{Name: name, Line: line}
			}
			arity64, err := strconv.ParseUint(args[1], 10, 8)
			if err != nil {
				return nil, &InvalidArgumentError{Message: "func arity must be an 8-bit integer", Line: line}
			}
			arity := uint8(arity64)

			idx := len(funcDescs)
			functions.Put(name, idx)
			funcDescs = append(funcDescs, bytecode.FuncDesc{Address: b.offset(), Arity: arity})
			b.emitOpcode(bytecode.NoOp)

			curLocals = swiss.NewMap[string, uint8](8)
			for i := uint8(0); i < arity; i++ {
				curLocals.Put(fmt.Sprintf("arg%d", i), i)
			}
			localCount = arity
			inFunc = true
			curFuncIdx = idx

		case "endf":
			if !inFunc {
				return nil, &InvalidFunctionEndError{Line: line}
			}
			funcDescs[curFuncIdx].Locals = localCount
			b.emitOpcode(bytecode.Return)
			inFunc = false
			curLocals = nil
			localCount = 0

		case "callf":
			if len(args) != 1 {
				return nil, &InvalidArgumentError{Message: "callf requires exactly one argument", Line: line}
			}
			idx, ok := functions.Get(args[0])
			if !ok {
				return nil, &InvalidFunctionCallError{Name: args[0], Line: line}
			}
			b.emitOpcode(bytecode.CallFunction)
			b.emitU16(uint16(idx))

		case "main":
			if len(args) != 0 {
				return nil, &InvalidArgumentError{Message: "main takes no arguments", Line: line}
			}
			entry = b.offset()
			b.emitOpcode(bytecode.NoOp)

		default:
			op, ok := bytecode.Lookup(mnemonic)
			if !ok {
				return nil, &InvalidOpcodeError{Mnemonic: mnemonic, Line: line}
			}
			switch op.Operand() {
			case bytecode.OperandNone:
				if len(args) != 0 {
					return nil, &InvalidArgumentError{Message: mnemonic + " takes no arguments", Line: line}
				}
				b.emitOpcode(op)
			case bytecode.OperandU8:
				if len(args) != 1 {
					return nil, &InvalidArgumentError{Message: mnemonic + " requires exactly one argument", Line: line}
				}
				n, err := strconv.ParseUint(args[0], 10, 8)
				if err != nil {
					return nil, &InvalidLiteralError{Message: "invalid integer " + args[0], Line: line}
				}
				b.emitOpcode(op)
				b.emitU8(uint8(n))
			default:
				// every opcode with a wider operand is handled by a dedicated
				// mnemonic case above, and the OperandU8 case only ever serves
				// MakeArray, so this default is not reached by any known mnemonic.
				return nil, &InvalidOpcodeError{Mnemonic: mnemonic, Line: line}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if inFunc {
		return nil, &UnexpectedEOFError{Message: "func not closed with endf"}
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
