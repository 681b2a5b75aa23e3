// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// An emitter collects the bytes generated for one source line along with
// the token each byte came from.
type emitter struct {
	addr      int   // address of the first byte
	long      bool  // use the longest form for symbol-dependent values
	mnemonic  Token // token that opcode bytes are attributed to
	bytes     []byte
	refs      []ByteRef
	labelRefs map[Ident]labelRef
}

// A labelRef records where a symbol's value was written within a line.
type labelRef struct {
	index  int  // offset of the value within the line's bytes
	offset bool // the symbol was used with OFFSET
}

func newEmitter(addr int, long bool, mnemonic Token) *emitter {
	return &emitter{addr: addr, long: long, mnemonic: mnemonic}
}

func (e *emitter) emit(t Token, b ...byte) {
	e.bytes = append(e.bytes, b...)
	if n := len(e.refs); n > 0 && e.refs[n-1].Line == t.Line && e.refs[n-1].Column == t.Column {
		e.refs[n-1].Bytes = append(e.refs[n-1].Bytes, b...)
		return
	}
	e.refs = append(e.refs, ByteRef{
		Bytes:  append([]byte{}, b...),
		Line:   t.Line,
		Column: t.Column,
	})
}

// Emit opcode bytes attributed to the mnemonic.
func (e *emitter) opcode(b ...byte) {
	e.emit(e.mnemonic, b...)
}

func (e *emitter) word(t Token, v int) {
	e.emit(t, byte(v), byte(v>>8))
}

// Note that the symbols of an operand are written at the current position.
func (e *emitter) reference(o *operand) {
	if !o.symbolic() {
		return
	}
	if e.labelRefs == nil {
		e.labelRefs = make(map[Ident]labelRef)
	}
	for _, id := range o.labels {
		e.labelRefs[id] = labelRef{index: len(e.bytes), offset: o.offset}
	}
	for _, id := range o.vars {
		e.labelRefs[id] = labelRef{index: len(e.bytes), offset: o.offset}
	}
}

// Report whether the operand's value may change between passes and the
// longest form must be used.
func (e *emitter) forceLong(o *operand) bool {
	return e.long && o.symbolic()
}

// Emit an immediate value of the requested width.
func (e *emitter) immediate(o *operand, wide bool) {
	e.reference(o)
	if wide {
		e.word(o.first, o.value)
	} else {
		e.emit(o.first, byte(o.value))
	}
}

// Emit a ModRM byte selecting register field reg and the register or
// memory operand rm, followed by any displacement.
func (e *emitter) modrm(reg byte, rm *operand) {
	reg = (reg & 7) << 3
	if rm.kind == opndReg || rm.kind == opndSeg {
		e.emit(rm.first, 0xc0|reg|byte(rm.reg))
		return
	}

	disp := int(int16(rm.value))
	switch {
	case rm.direct:
		e.emit(rm.first, reg|6)
		e.reference(rm)
		e.word(rm.first, rm.value)
	case disp == 0 && rm.rm != 6 && !e.forceLong(rm):
		e.emit(rm.first, reg|rm.rm)
	case fitsInt8(disp) && !e.forceLong(rm):
		e.emit(rm.first, 0x40|reg|rm.rm)
		e.reference(rm)
		e.emit(rm.first, byte(disp))
	default:
		e.emit(rm.first, 0x80|reg|rm.rm)
		e.reference(rm)
		e.word(rm.first, disp)
	}
}

// Return the width bit that is or'ed into byte/word opcode pairs.
func w(wide bool) byte {
	if wide {
		return 1
	}
	return 0
}

//
// family encoders
//

func encodeALU(e *emitter, ins *instruction, m mode) *CompileError {
	base := ins.op
	switch m.kind {
	case modeRegReg, modeRegMem:
		e.opcode(base | 2 | w(m.wide))
		e.modrm(byte(m.dst.reg), m.src)
	case modeMemReg:
		e.opcode(base | w(m.wide))
		e.modrm(byte(m.src.reg), m.dst)
	case modeRegImm, modeMemImm:
		switch {
		case m.kind == modeRegImm && m.dst.isAccumulator():
			e.opcode(base | 4 | w(m.wide))
			e.immediate(m.src, m.wide)
		case !m.wide:
			e.opcode(0x80)
			e.modrm(ins.ext, m.dst)
			e.immediate(m.src, false)
		case fitsInt8(int(int16(m.src.value))) && !e.forceLong(m.src):
			e.opcode(0x83)
			e.modrm(ins.ext, m.dst)
			e.immediate(m.src, false)
		default:
			e.opcode(0x81)
			e.modrm(ins.ext, m.dst)
			e.immediate(m.src, true)
		}
	default:
		return modeError(ins, m)
	}
	return nil
}

func encodeMov(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeRegReg:
		e.opcode(0x8a | w(m.wide))
		e.modrm(byte(m.dst.reg), m.src)
	case modeRegMem:
		if m.dst.isAccumulator() && m.src.direct {
			e.opcode(0xa0 | w(m.wide))
			e.reference(m.src)
			e.word(m.src.first, m.src.value)
			return nil
		}
		e.opcode(0x8a | w(m.wide))
		e.modrm(byte(m.dst.reg), m.src)
	case modeMemReg:
		if m.src.isAccumulator() && m.dst.direct {
			e.opcode(0xa2 | w(m.wide))
			e.reference(m.dst)
			e.word(m.dst.first, m.dst.value)
			return nil
		}
		e.opcode(0x88 | w(m.wide))
		e.modrm(byte(m.src.reg), m.dst)
	case modeRegImm:
		e.opcode(0xb0 | w(m.wide)<<3 | byte(m.dst.reg))
		e.immediate(m.src, m.wide)
	case modeMemImm:
		e.opcode(0xc6 | w(m.wide))
		e.modrm(0, m.dst)
		e.immediate(m.src, m.wide)
	case modeSegReg, modeSegMem:
		if m.dst.reg == segCS {
			return tokenError(SyntaxError, m.dst.first, "CS cannot be the destination of MOV").
				suggest("ES", "SS", "DS")
		}
		e.opcode(0x8e)
		e.modrm(byte(m.dst.reg), m.src)
	case modeRegSeg, modeMemSeg:
		e.opcode(0x8c)
		e.modrm(byte(m.src.reg), m.dst)
	default:
		return modeError(ins, m)
	}
	return nil
}

func encodeTest(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeRegReg, modeRegMem:
		e.opcode(0x84 | w(m.wide))
		e.modrm(byte(m.dst.reg), m.src)
	case modeMemReg:
		e.opcode(0x84 | w(m.wide))
		e.modrm(byte(m.src.reg), m.dst)
	case modeRegImm:
		if m.dst.isAccumulator() {
			e.opcode(0xa8 | w(m.wide))
			e.immediate(m.src, m.wide)
			return nil
		}
		fallthrough
	case modeMemImm:
		e.opcode(0xf6 | w(m.wide))
		e.modrm(0, m.dst)
		e.immediate(m.src, m.wide)
	default:
		return modeError(ins, m)
	}
	return nil
}

func encodeXchg(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeRegReg:
		switch {
		case m.wide && m.dst.reg == regAX:
			e.opcode(0x90 | byte(m.src.reg))
		case m.wide && m.src.reg == regAX:
			e.opcode(0x90 | byte(m.dst.reg))
		default:
			e.opcode(0x86 | w(m.wide))
			e.modrm(byte(m.dst.reg), m.src)
		}
	case modeRegMem:
		e.opcode(0x86 | w(m.wide))
		e.modrm(byte(m.dst.reg), m.src)
	case modeMemReg:
		e.opcode(0x86 | w(m.wide))
		e.modrm(byte(m.src.reg), m.dst)
	default:
		return modeError(ins, m)
	}
	return nil
}

func encodeLoad(e *emitter, ins *instruction, m mode) *CompileError {
	if m.kind != modeRegMem {
		return modeError(ins, m)
	}
	if !m.dst.wide {
		return tokenError(SyntaxError, m.dst.first, "%s needs a 16-bit destination register, got %s",
			ins.upper(), reg8Names[m.dst.reg]).
			suggest(reg16Names...)
	}
	e.opcode(ins.op)
	e.modrm(byte(m.dst.reg), m.src)
	return nil
}

func encodeUnary(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeReg:
		if m.wide && ins.alt != 0 {
			e.opcode(ins.alt | byte(m.dst.reg))
			return nil
		}
		e.opcode(ins.op | w(m.wide))
		e.modrm(ins.ext, m.dst)
	case modeMem:
		// Unsized memory defaults to a word operation.
		wide := m.dst.size != 1
		e.opcode(ins.op | w(wide))
		e.modrm(ins.ext, m.dst)
	default:
		return modeError(ins, m)
	}
	return nil
}

func encodeShift(e *emitter, ins *instruction, m mode) *CompileError {
	var dst *operand
	var wide bool
	switch m.kind {
	case modeRegReg, modeRegImm:
		dst, wide = m.dst, m.dst.wide
	case modeMemReg, modeMemImm:
		dst, wide = m.dst, m.dst.size != 1
	default:
		return modeError(ins, m)
	}

	src := m.src
	if src.kind == opndReg {
		if src.wide || src.reg != regCL {
			return tokenError(SyntaxError, src.first, "the shift count must be CL or a number").
				suggest("CL")
		}
		e.opcode(0xd2 | w(wide))
		e.modrm(ins.ext, dst)
		return nil
	}

	if src.symbolic() || src.value < 1 || src.value > 0xff {
		return spanError(SyntaxError, src.first, src.last, "the shift count must be a number from 1 to 255").
			suggest("CL")
	}

	// Each shift by one is emitted as its own instruction.
	for i := 0; i < src.value; i++ {
		e.opcode(0xd0 | w(wide))
		e.modrm(ins.ext, dst)
	}
	return nil
}

func encodePush(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeReg:
		if !m.wide {
			return tokenError(SyntaxError, m.dst.first, "PUSH needs a 16-bit register, got %s", reg8Names[m.dst.reg]).
				suggest(reg16Names...)
		}
		e.opcode(0x50 | byte(m.dst.reg))
	case modeSeg:
		e.opcode(0x06 | byte(m.dst.reg)<<3)
	case modeMem:
		if m.dst.size == 1 {
			return spanError(SyntaxError, m.dst.first, m.dst.last, "PUSH needs word memory, got byte memory")
		}
		e.opcode(0xff)
		e.modrm(ins.ext, m.dst)
	case modeImm:
		if fitsInt8(int(int16(m.dst.value))) && !e.forceLong(m.dst) {
			e.opcode(0x6a)
			e.immediate(m.dst, false)
			return nil
		}
		e.opcode(0x68)
		e.immediate(m.dst, true)
	default:
		return modeError(ins, m)
	}
	return nil
}

func encodePop(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeReg:
		if !m.wide {
			return tokenError(SyntaxError, m.dst.first, "POP needs a 16-bit register, got %s", reg8Names[m.dst.reg]).
				suggest(reg16Names...)
		}
		e.opcode(0x58 | byte(m.dst.reg))
	case modeSeg:
		if m.dst.reg == segCS {
			return tokenError(SyntaxError, m.dst.first, "CS cannot be popped").
				suggest("ES", "SS", "DS")
		}
		e.opcode(0x07 | byte(m.dst.reg)<<3)
	case modeMem:
		if m.dst.size == 1 {
			return spanError(SyntaxError, m.dst.first, m.dst.last, "POP needs word memory, got byte memory")
		}
		e.opcode(0x8f)
		e.modrm(ins.ext, m.dst)
	default:
		return modeError(ins, m)
	}
	return nil
}

func encodeRet(e *emitter, ins *instruction, m mode) *CompileError {
	switch m.kind {
	case modeNone:
		e.opcode(ins.op)
	case modeImm:
		if m.dst.symbolic() {
			return spanError(SyntaxError, m.dst.first, m.dst.last, "RET takes a number of bytes to release")
		}
		e.opcode(ins.alt)
		e.immediate(m.dst, true)
	default:
		return modeError(ins, m)
	}
	return nil
}

// Validate the port operand of IN or OUT.
func portOperand(port *operand) *CompileError {
	switch {
	case port.kind == opndReg && port.wide && port.reg == regDX:
		return nil
	case port.kind == opndImm && !port.symbolic() && port.value >= 0 && port.value <= 0xff:
		return nil
	default:
		return spanError(SyntaxError, port.first, port.last, "the port must be DX or a number from 0 to 255").
			suggest("DX")
	}
}

func accumulatorOperand(o *operand) *CompileError {
	if o.kind != opndReg || o.reg != regAX {
		return spanError(SyntaxError, o.first, o.last, "expected AL or AX, got %s", o.kind).
			suggest("AL", "AX")
	}
	return nil
}

func encodeIn(e *emitter, ins *instruction, m mode) *CompileError {
	if m.kind != modeRegImm && m.kind != modeRegReg {
		return modeError(ins, m)
	}
	if err := accumulatorOperand(m.dst); err != nil {
		return err
	}
	if err := portOperand(m.src); err != nil {
		return err
	}
	if m.src.kind == opndReg {
		e.opcode(ins.alt | w(m.dst.wide))
		return nil
	}
	e.opcode(ins.op | w(m.dst.wide))
	e.immediate(m.src, false)
	return nil
}

func encodeOut(e *emitter, ins *instruction, m mode) *CompileError {
	if m.kind != modeImmReg && m.kind != modeRegReg {
		return modeError(ins, m)
	}
	if err := portOperand(m.dst); err != nil {
		return err
	}
	if err := accumulatorOperand(m.src); err != nil {
		return err
	}
	if m.dst.kind == opndReg {
		e.opcode(ins.alt | w(m.src.wide))
		return nil
	}
	e.opcode(ins.op | w(m.src.wide))
	e.immediate(m.dst, false)
	return nil
}

func encodeImplied(e *emitter, ins *instruction, m mode) *CompileError {
	e.opcode(ins.op)
	return nil
}

// Report an addressing mode the instruction does not support.
func modeError(ins *instruction, m mode) *CompileError {
	first, last := m.dst.first, m.dst.last
	if m.src != nil {
		last = m.src.last
	}
	return spanError(SyntaxError, first, last, "%s does not support %s operands", ins.upper(), m.kind)
}
