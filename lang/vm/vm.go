package vm

import (
	"fmt"
	"io"
	"math"

	"github.com/shlocko/fvm/lang/bytecode"
	"github.com/shlocko/fvm/lang/value"
)

// Options configures resource limits and diagnostic output for a single
// VM run.
type Options struct {
	// Stdout receives the diagnostic representation written by Print. A nil
	// Stdout discards Print output.
	Stdout io.Writer
	// MaxStack bounds the operand/local stack height. 0 means unbounded.
	MaxStack int
	// MaxCallDepth bounds the call-frame nesting depth. 0 means unbounded.
	MaxCallDepth int
	// MaxSteps bounds the number of fetch-decode-execute cycles, guarding
	// against runaway loops in untrusted programs. 0 means unbounded.
	MaxSteps int
}

// VM executes a single linked bytecode.Program. It holds no state beyond
// one run: construct a fresh VM per Program execution.
type VM struct {
	prog     *bytecode.Program
	stack    *Stack
	globals  []value.Value
	stdout   io.Writer
	maxSteps int
}

// New returns a VM ready to execute prog.
func New(prog *bytecode.Program, opts Options) *VM {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	return &VM{
		prog:     prog,
		stack:    NewStack(opts.MaxStack, opts.MaxCallDepth),
		stdout:   stdout,
		maxSteps: opts.MaxSteps,
	}
}

// Globals returns the current global table, densely grown as the program
// executed StoreGlobal. Exposed mainly so tests and the CLI can report
// final state.
func (m *VM) Globals() []value.Value { return m.globals }

// Run executes the program from its entry point to completion. Any
// interpreter error aborts execution immediately and is returned as-is; the
// caller's Error type assertion (errors.As) can recover the specific kind
// from the taxonomy in errors.go.
func (m *VM) Run() error {
	code := m.prog.Code
	ip := m.prog.Entry
	var steps int

	for int(ip) < len(code) {
		if m.maxSteps > 0 {
			steps++
			if steps > m.maxSteps {
				return fmt.Errorf("exceeded step budget of %d instructions", m.maxSteps)
			}
		}

		opByte := code[ip]
		op := bytecode.Opcode(opByte)
		if !op.Valid() {
			return &InvalidOpcodeError{Byte: opByte}
		}
		size := op.Operand().Size()
		operandStart := int(ip) + 1
		if operandStart+size > len(code) {
			return fmt.Errorf("truncated operand for %s at offset %d", op, ip)
		}

		switch op {
		case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.DivInt, bytecode.Mod:
			if err := m.execArith(op); err != nil {
				return err
			}

		case bytecode.Equal, bytecode.NotEqual, bytecode.LessThan, bytecode.GreaterThan, bytecode.LessEqual, bytecode.GreaterEqual:
			if err := m.execCompare(op); err != nil {
				return err
			}

		case bytecode.Not:
			v, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if v.Tag() != value.Bool {
				return &InvalidUnaryOperandTypeError{Operand: v.Tag()}
			}
			if err := m.stack.Push(value.NewBool(!v.AsBool())); err != nil {
				return err
			}

		case bytecode.LogicalAnd, bytecode.LogicalOr:
			r, err := m.stack.Pop()
			if err != nil {
				return err
			}
			l, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if l.Tag() != value.Bool || r.Tag() != value.Bool {
				return &InvalidOperandTypeError{Left: l.Tag(), Right: r.Tag()}
			}
			var result bool
			if op == bytecode.LogicalAnd {
				result = l.AsBool() && r.AsBool()
			} else {
				result = l.AsBool() || r.AsBool()
			}
			if err := m.stack.Push(value.NewBool(result)); err != nil {
				return err
			}

		case bytecode.PushConst:
			idx := int(bytecode.U16At(code, operandStart))
			c, ok := m.prog.ConstAt(idx)
			if !ok {
				return &InvalidConstantIndexError{Index: idx}
			}
			if err := m.stack.Push(c.Clone()); err != nil {
				return err
			}

		case bytecode.PushImmediate:
			imm := bytecode.I16At(code, operandStart)
			if err := m.stack.Push(value.NewInt(int64(imm))); err != nil {
				return err
			}

		case bytecode.PushLocal:
			slot := int(bytecode.U8At(code, operandStart))
			v, err := m.stack.GetLocal(slot)
			if err != nil {
				return err
			}
			if err := m.stack.Push(v.Clone()); err != nil {
				return err
			}

		case bytecode.StoreLocal:
			slot := int(bytecode.U8At(code, operandStart))
			v, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if err := m.stack.SetLocal(slot, v); err != nil {
				return err
			}

		case bytecode.PushGlobal:
			idx := int(bytecode.U16At(code, operandStart))
			if idx < 0 || idx >= len(m.globals) {
				return &InvalidGlobalIndexError{Index: idx}
			}
			if err := m.stack.Push(m.globals[idx].Clone()); err != nil {
				return err
			}

		case bytecode.StoreGlobal:
			idx := int(bytecode.U16At(code, operandStart))
			v, err := m.stack.Pop()
			if err != nil {
				return err
			}
			switch {
			case idx == len(m.globals):
				m.globals = append(m.globals, v)
			case idx >= 0 && idx < len(m.globals):
				m.globals[idx] = v
			default:
				return &InvalidGlobalIndexError{Index: idx}
			}

		case bytecode.Pop:
			if _, err := m.stack.Pop(); err != nil {
				return err
			}

		case bytecode.Box:
			v, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if err := m.stack.Push(value.NewBoxed(v)); err != nil {
				return err
			}

		case bytecode.Unbox:
			v, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if v.Tag() != value.Boxed {
				return &InvalidStackValueTypeError{Expected: value.Boxed, Got: v.Tag()}
			}
			if err := m.stack.Push(v.AsCell().Get().Clone()); err != nil {
				return err
			}

		case bytecode.SetBox:
			nv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			cv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if cv.Tag() != value.Boxed {
				return &InvalidStackValueTypeError{Expected: value.Boxed, Got: cv.Tag()}
			}
			cv.AsCell().Set(nv)

		case bytecode.MakeArray:
			n := int(bytecode.U8At(code, operandStart))
			elems := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				v, err := m.stack.Pop()
				if err != nil {
					return err
				}
				elems[i] = v
			}
			if err := m.stack.Push(value.NewArray(elems)); err != nil {
				return err
			}

		case bytecode.ArraySet:
			v, err := m.stack.Pop()
			if err != nil {
				return err
			}
			idxv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if idxv.Tag() != value.Int {
				return &InvalidStackValueTypeError{Expected: value.Int, Got: idxv.Tag()}
			}
			arrv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if arrv.Tag() != value.Array {
				return &InvalidStackValueTypeError{Expected: value.Array, Got: arrv.Tag()}
			}
			arr := arrv.AsArray()
			idx := int(idxv.AsInt())
			if idx < 0 || idx >= arr.Len() {
				return &IndexOutsideRangeOfArrayError{Index: idx, Len: arr.Len()}
			}
			arr.Set(idx, v)

		case bytecode.ArrayGet:
			idxv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if idxv.Tag() != value.Int {
				return &InvalidStackValueTypeError{Expected: value.Int, Got: idxv.Tag()}
			}
			arrv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if arrv.Tag() != value.Array {
				return &InvalidStackValueTypeError{Expected: value.Array, Got: arrv.Tag()}
			}
			arr := arrv.AsArray()
			idx := int(idxv.AsInt())
			if idx < 0 || idx >= arr.Len() {
				return &IndexOutsideRangeOfArrayError{Index: idx, Len: arr.Len()}
			}
			if err := m.stack.Push(arr.Get(idx).Clone()); err != nil {
				return err
			}

		case bytecode.ArrayPush:
			v, err := m.stack.Pop()
			if err != nil {
				return err
			}
			arrv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if arrv.Tag() != value.Array {
				return &InvalidStackValueTypeError{Expected: value.Array, Got: arrv.Tag()}
			}
			arrv.AsArray().Push(v)

		case bytecode.ArrayPop:
			arrv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if arrv.Tag() != value.Array {
				return &InvalidStackValueTypeError{Expected: value.Array, Got: arrv.Tag()}
			}
			last, ok := arrv.AsArray().PopLast()
			if !ok {
				return &CouldNotPopArrayError{}
			}
			if err := m.stack.Push(last); err != nil {
				return err
			}

		case bytecode.ArrayLen:
			arrv, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if arrv.Tag() != value.Array {
				return &InvalidStackValueTypeError{Expected: value.Array, Got: arrv.Tag()}
			}
			if err := m.stack.Push(value.NewInt(int64(arrv.AsArray().Len()))); err != nil {
				return err
			}

		case bytecode.Jump:
			ip = bytecode.U32At(code, operandStart)
			continue

		case bytecode.JumpIfFalse, bytecode.JumpIfTrue:
			cond, err := m.stack.Pop()
			if err != nil {
				return err
			}
			if cond.Tag() != value.Bool {
				return &InvalidStackValueTypeError{Expected: value.Bool, Got: cond.Tag()}
			}
			target := bytecode.U32At(code, operandStart)
			take := (op == bytecode.JumpIfFalse) != cond.AsBool()
			if take {
				ip = target
				continue
			}

		case bytecode.CallFunction:
			idx := int(bytecode.U16At(code, operandStart))
			fn, ok := m.prog.FuncAt(idx)
			if !ok {
				return &InvalidFunctionIndexError{Index: idx}
			}
			args := make([]value.Value, fn.Arity)
			for i := int(fn.Arity) - 1; i >= 0; i-- {
				v, err := m.stack.Pop()
				if err != nil {
					return err
				}
				args[i] = v
			}
			returnAddr := uint32(operandStart + size)
			if err := m.stack.PushFrame(args, int(fn.Locals), returnAddr); err != nil {
				return err
			}
			ip = fn.Address
			continue

		case bytecode.Return:
			retVal, err := m.stack.Pop()
			if err != nil {
				return err
			}
			frame, err := m.stack.PopFrame()
			if err != nil {
				return err
			}
			if err := m.stack.Push(retVal); err != nil {
				return err
			}
			ip = frame.ReturnAddress()
			continue

		case bytecode.NoOp:
			// semantic anchor only: entry marker, label landing, function
			// entry. No effect at runtime.

		case bytecode.Print:
			v, err := m.stack.Pop()
			if err != nil {
				return err
			}
			fmt.Fprintln(m.stdout, v.String())
		}

		ip += uint32(1 + size)
	}

	return nil
}

func (m *VM) execArith(op bytecode.Opcode) error {
	r, err := m.stack.Pop()
	if err != nil {
		return err
	}
	l, err := m.stack.Pop()
	if err != nil {
		return err
	}

	switch {
	case l.Tag() == value.Int && r.Tag() == value.Int:
		li, ri := l.AsInt(), r.AsInt()
		switch op {
		case bytecode.Add:
			return m.stack.Push(value.NewInt(li + ri))
		case bytecode.Sub:
			return m.stack.Push(value.NewInt(li - ri))
		case bytecode.Mul:
			return m.stack.Push(value.NewInt(li * ri))
		case bytecode.Div:
			if ri == 0 {
				return &DivisionByZeroError{}
			}
			return m.stack.Push(value.NewInt(li / ri))
		case bytecode.DivInt:
			if ri == 0 {
				return &DivisionByZeroError{}
			}
			return m.stack.Push(value.NewInt(floorDivInt(li, ri)))
		case bytecode.Mod:
			if ri == 0 {
				return &DivisionByZeroError{}
			}
			return m.stack.Push(value.NewInt(li % ri))
		}

	case l.Tag() == value.Float && r.Tag() == value.Float:
		lf, rf := l.AsFloat(), r.AsFloat()
		switch op {
		case bytecode.Add:
			return m.stack.Push(value.NewFloat(lf + rf))
		case bytecode.Sub:
			return m.stack.Push(value.NewFloat(lf - rf))
		case bytecode.Mul:
			return m.stack.Push(value.NewFloat(lf * rf))
		case bytecode.Div:
			if rf == 0 {
				return &DivisionByZeroError{}
			}
			return m.stack.Push(value.NewFloat(lf / rf))
		case bytecode.DivInt:
			if rf == 0 {
				return &DivisionByZeroError{}
			}
			return m.stack.Push(value.NewInt(int64(math.Floor(lf / rf))))
		case bytecode.Mod:
			if rf == 0 {
				return &DivisionByZeroError{}
			}
			return m.stack.Push(value.NewFloat(math.Mod(lf, rf)))
		}
	}

	return &InvalidOperandTypeError{Left: l.Tag(), Right: r.Tag()}
}

func floorDivInt(l, r int64) int64 {
	q := l / r
	if (l%r != 0) && ((l < 0) != (r < 0)) {
		q--
	}
	return q
}

func (m *VM) execCompare(op bytecode.Opcode) error {
	r, err := m.stack.Pop()
	if err != nil {
		return err
	}
	l, err := m.stack.Pop()
	if err != nil {
		return err
	}

	if op == bytecode.Equal || op == bytecode.NotEqual {
		if !((l.Tag() == value.Int && r.Tag() == value.Int) || (l.Tag() == value.Bool && r.Tag() == value.Bool)) {
			return &InvalidOperandTypeError{Left: l.Tag(), Right: r.Tag()}
		}
		eq := l.Equal(r)
		if op == bytecode.NotEqual {
			eq = !eq
		}
		return m.stack.Push(value.NewBool(eq))
	}

	switch {
	case l.Tag() == value.Int && r.Tag() == value.Int:
		return m.stack.Push(value.NewBool(compareOrderedInt(op, l.AsInt(), r.AsInt())))
	case l.Tag() == value.Float && r.Tag() == value.Float:
		return m.stack.Push(value.NewBool(compareOrderedFloat(op, l.AsFloat(), r.AsFloat())))
	default:
		return &InvalidOperandTypeError{Left: l.Tag(), Right: r.Tag()}
	}
}

// compareOrderedInt compares int64 operands directly: routing Int through
// float64 (53 bits of mantissa) would lose precision for magnitudes beyond
// 2^53, well within the 64-bit signed range spec.md §3 declares for Int.
func compareOrderedInt(op bytecode.Opcode, l, r int64) bool {
	switch op {
	case bytecode.LessThan:
		return l < r
	case bytecode.GreaterThan:
		return l > r
	case bytecode.LessEqual:
		return l <= r
	case bytecode.GreaterEqual:
		return l >= r
	default:
		return false
	}
}

func compareOrderedFloat(op bytecode.Opcode, l, r float64) bool {
	switch op {
	case bytecode.LessThan:
		return l < r
	case bytecode.GreaterThan:
		return l > r
	case bytecode.LessEqual:
		return l <= r
	case bytecode.GreaterEqual:
		return l >= r
	default:
		return false
	}
}
