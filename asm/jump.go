// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// Return the distance from the start of the instruction to the jump
// target. A numeric target is already such a distance. A target whose
// address is still unknown is treated as adjacent so that the short form
// is tried first.
func (e *emitter) distance(ins *instruction, o *operand) (int, *CompileError) {
	switch {
	case o.kind != opndImm:
		return 0, spanError(SyntaxError, o.first, o.last, "%s needs a label or a displacement, got a %s", ins.upper(), o.kind)
	case len(o.vars) > 0:
		return 0, spanError(SemanticError, o.first, o.last, "%s cannot jump to variable %s", ins.upper(), o.vars[0])
	case o.unresolved:
		return 0, nil
	case len(o.labels) > 0:
		return o.value - e.addr, nil
	default:
		return int(int16(o.value)), nil
	}
}

// Emit an 8-bit displacement relative to the end of an instruction of
// length n, returning false if it does not fit.
func (e *emitter) rel8(o *operand, d, n int) bool {
	rel := d - n
	if !fitsInt8(rel) || e.forceLong(o) {
		return false
	}
	e.reference(o)
	e.emit(o.first, byte(rel))
	return true
}

// Emit a 16-bit displacement relative to the end of an instruction of
// length n.
func (e *emitter) rel16(o *operand, d, n int) {
	e.reference(o)
	e.word(o.first, d-n)
}

func encodeJump(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeImm:
		d, err := e.distance(ins, m.dst)
		if err != nil {
			return err
		}
		if fitsInt8(d-2) && !e.forceLong(m.dst) {
			e.opcode(ins.op)
			e.rel8(m.dst, d, 2)
			return nil
		}
		e.opcode(ins.alt)
		e.rel16(m.dst, d, 3)
	case modeFar:
		e.opcode(0xea)
		e.reference(m.dst)
		e.word(m.dst.first, m.dst.value)
		e.word(m.dst.first, m.dst.segment)
	case modeReg, modeMem:
		return encodeIndirect(e, ins, m)
	default:
		return modeError(ins, m)
	}
	return nil
}

func encodeCall(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeImm:
		d, err := e.distance(ins, m.dst)
		if err != nil {
			return err
		}
		e.opcode(ins.op)
		e.rel16(m.dst, d, 3)
	case modeFar:
		e.opcode(ins.alt)
		e.reference(m.dst)
		e.word(m.dst.first, m.dst.value)
		e.word(m.dst.first, m.dst.segment)
	case modeReg, modeMem:
		return encodeIndirect(e, ins, m)
	default:
		return modeError(ins, m)
	}
	return nil
}

// Emit an FF /ext jump or call through a register or memory word.
func encodeIndirect(e *emitter, ins *instruction, m mode) *CompileError {
	if m.kind == modeReg && !m.wide {
		return tokenError(SyntaxError, m.dst.first, "%s needs a 16-bit register, got %s", ins.upper(), reg8Names[m.dst.reg]).
			suggest(reg16Names...)
	}
	if m.kind == modeMem && m.dst.size == 1 {
		return spanError(SyntaxError, m.dst.first, m.dst.last, "%s needs word memory, got byte memory", ins.upper())
	}
	e.opcode(0xff)
	e.modrm(ins.ext, m.dst)
	return nil
}

// Conditional jumps that cannot reach their target are rewritten to jump
// over a near JMP using the inverse condition.
func encodeBranch(e *emitter, ins *instruction, m mode) *CompileError {
	if m.kind != modeImm {
		return modeError(ins, m)
	}
	d, err := e.distance(ins, m.dst)
	if err != nil {
		return err
	}
	if fitsInt8(d-2) && !e.forceLong(m.dst) {
		e.opcode(ins.op)
		e.rel8(m.dst, d, 2)
		return nil
	}

	if ins.alt == 0 {
		// JCXZ: OR CX,CX; JNZ +3; JMP near
		e.opcode(0x0b, 0xc9, 0x75, 0x03, 0xe9)
		e.rel16(m.dst, d, 7)
		return nil
	}
	e.opcode(ins.alt, 0x03, 0xe9)
	e.rel16(m.dst, d, 5)
	return nil
}

func encodeLoop(e *emitter, ins *instruction, m mode) *CompileError {
	if m.kind != modeImm {
		return modeError(ins, m)
	}
	d, err := e.distance(ins, m.dst)
	if err != nil {
		return err
	}
	if fitsInt8(d-2) && !e.forceLong(m.dst) {
		e.opcode(ins.op)
		e.rel8(m.dst, d, 2)
		return nil
	}

	if ins.alt == 0 {
		return spanError(SemanticError, m.dst.first, m.dst.last, "%s target is out of range (%d bytes)", ins.upper(), d)
	}
	// DEC CX; JCXZ +3; JMP near
	e.opcode(ins.alt, 0xe3, 0x03, 0xe9)
	e.rel16(m.dst, d, 6)
	return nil
}
