package asm

import (
	"github.com/dolthub/swiss"

	"github.com/shlocko/fvm/lang/bytecode"
)

// fixup is a pending jump operand: the instruction stream offset of its
// 4-byte placeholder, and the label name it must resolve to.
type fixup struct {
	offset uint32
	name   string
}

// builder accumulates a flat instruction stream and the label/fixup
// bookkeeping shared, verbatim, by both the text and JSON assemblers.
type builder struct {
	code   []byte
	labels *swiss.Map[string, uint32]
	fixups []fixup
}

func newBuilder() *builder {
	return &builder{labels: swiss.NewMap[string, uint32](8)}
}

func (b *builder) offset() uint32 { return uint32(len(b.code)) }

func (b *builder) emitOpcode(op bytecode.Opcode) uint32 {
	off := b.offset()
	b.code = append(b.code, byte(op))
	return off
}

func (b *builder) emitU8(v uint8)   { b.code = bytecode.PutU8(b.code, v) }
func (b *builder) emitU16(v uint16) { b.code = bytecode.PutU16(b.code, v) }
func (b *builder) emitI16(v int16)  { b.code = bytecode.PutI16(b.code, v) }

// emitJumpTarget emits the resolved offset of label if it is already known,
// else a 4-byte placeholder plus a fix-up record to patch once the whole
// program has been scanned.
func (b *builder) emitJumpTarget(label string) {
	if off, ok := b.labels.Get(label); ok {
		b.code = bytecode.PutU32(b.code, off)
		return
	}
	b.fixups = append(b.fixups, fixup{offset: b.offset(), name: label})
	b.code = bytecode.PutU32(b.code, 0)
}

// defineLabel records name at the current offset and emits its landing
// NoOp.
func (b *builder) defineLabel(name string) {
	b.labels.Put(name, b.offset())
	b.emitOpcode(bytecode.NoOp)
}

// resolveFixups patches every pending jump placeholder with its label's
// final offset. Must run only after the whole program has been scanned.
func (b *builder) resolveFixups() error {
	for _, f := range b.fixups {
		off, ok := b.labels.Get(f.name)
		if !ok {
			return &InvalidJumpTargetError{Name: f.name}
		}
		target := bytecode.PutU32(nil, off)
		copy(b.code[f.offset:f.offset+4], target)
	}
	return nil
}
