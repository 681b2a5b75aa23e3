// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"sort"
)

// A modeKind identifies the shape of an instruction's operands.
type modeKind byte

// Operand shapes, destination first.
const (
	modeNone   modeKind = iota // no operands
	modeReg                    // r
	modeMem                    // m
	modeImm                    // imm or label
	modeSeg                    // sreg
	modeFar                    // seg:off
	modeRegReg                 // r, r
	modeRegMem                 // r, m
	modeMemReg                 // m, r
	modeRegImm                 // r, imm
	modeMemImm                 // m, imm
	modeImmReg                 // imm, r (OUT only)
	modeSegReg                 // sreg, r
	modeRegSeg                 // r, sreg
	modeSegMem                 // sreg, m
	modeMemSeg                 // m, sreg
)

var modeName = []string{
	"none",
	"reg",
	"mem",
	"imm",
	"sreg",
	"far",
	"reg,reg",
	"reg,mem",
	"mem,reg",
	"reg,imm",
	"mem,imm",
	"imm,reg",
	"sreg,reg",
	"reg,sreg",
	"sreg,mem",
	"mem,sreg",
}

func (k modeKind) String() string {
	return modeName[k]
}

// A mode is the classified addressing mode of an instruction.
type mode struct {
	kind modeKind
	dst  *operand
	src  *operand
	wide bool // operation width, when it can be determined
}

// The widths an immediate value can take for a given operation size.
func fitsByte(v int) bool {
	return v >= -0x80 && v <= 0xff
}

func fitsInt8(v int) bool {
	return v >= -0x80 && v <= 0x7f
}

// Classify the operands of an instruction. The mnemonic token is used to
// position errors when there are no operands to point at.
func (a *assembler) classify(ins *instruction, mnemonic Token, ops []*operand) (mode, *CompileError) {
	info := &families[ins.fam]
	if len(ops) < info.minOperands || len(ops) > info.maxOperands {
		return mode{}, operandCountError(ins, mnemonic, ops, info)
	}

	switch len(ops) {
	case 0:
		return mode{kind: modeNone}, nil
	case 1:
		return classifyOne(ops[0])
	default:
		return a.classifyTwo(ins, ops[0], ops[1])
	}
}

func operandCountError(ins *instruction, mnemonic Token, ops []*operand, info *familyInfo) *CompileError {
	var want string
	switch {
	case info.minOperands == info.maxOperands:
		want = fmt.Sprintf("%d", info.minOperands)
	default:
		want = fmt.Sprintf("%d or %d", info.minOperands, info.maxOperands)
	}
	if len(ops) > info.maxOperands {
		extra := ops[info.maxOperands]
		return spanError(SyntaxError, extra.first, ops[len(ops)-1].last,
			"%s takes %s operand(s), got %d", ins.upper(), want, len(ops))
	}
	return tokenError(SyntaxError, mnemonic, "%s takes %s operand(s), got %d", ins.upper(), want, len(ops))
}

func classifyOne(o *operand) (mode, *CompileError) {
	m := mode{dst: o, wide: o.width() != 1}
	switch o.kind {
	case opndReg:
		m.kind = modeReg
	case opndSeg:
		m.kind = modeSeg
	case opndMem:
		m.kind = modeMem
	case opndImm:
		m.kind = modeImm
	case opndFar:
		m.kind = modeFar
	}
	return m, nil
}

func (a *assembler) classifyTwo(ins *instruction, dst, src *operand) (mode, *CompileError) {
	info := &families[ins.fam]
	m := mode{dst: dst, src: src}

	if dst.kind == opndFar || src.kind == opndFar {
		o := dst
		if src.kind == opndFar {
			o = src
		}
		return m, spanError(SyntaxError, o.first, o.last, "a far address can only be the target of JMP or CALL")
	}

	switch dst.kind {
	case opndReg:
		switch src.kind {
		case opndReg:
			m.kind = modeRegReg
		case opndMem:
			m.kind = modeRegMem
		case opndImm:
			m.kind = modeRegImm
		case opndSeg:
			m.kind = modeRegSeg
		}
	case opndMem:
		switch src.kind {
		case opndReg:
			m.kind = modeMemReg
		case opndMem:
			return m, spanError(SyntaxError, dst.first, src.last, "an instruction cannot have two memory operands").
				suggest(a.registerSuggestions(dst.size != 1)...)
		case opndImm:
			m.kind = modeMemImm
		case opndSeg:
			m.kind = modeMemSeg
		}
	case opndSeg:
		switch src.kind {
		case opndReg:
			m.kind = modeSegReg
		case opndMem:
			m.kind = modeSegMem
		case opndImm:
			return m, spanError(SyntaxError, src.first, src.last, "a segment register cannot be loaded with an immediate value").
				suggest(a.registerSuggestions(true)...)
		case opndSeg:
			return m, spanError(SyntaxError, src.first, src.last, "expected a general register or memory, got segment register %s", segNames[src.reg]).
				suggest(a.registerSuggestions(true)...)
		}
	case opndImm:
		if !info.immDst || src.kind != opndReg {
			return m, spanError(SyntaxError, dst.first, dst.last, "an immediate value cannot be a destination").
				suggest(a.registerSuggestions(true)...)
		}
		m.kind = modeImmReg
	}

	return m, a.checkWidths(info, &m)
}

// Make sure the operand widths of a two-operand mode agree and record the
// operation width.
func (a *assembler) checkWidths(info *familyInfo, m *mode) *CompileError {
	dst, src := m.dst, m.src
	switch m.kind {
	case modeRegReg:
		m.wide = dst.wide
		if info.matchWidth && dst.wide != src.wide {
			return a.widthError(src, dst.wide)
		}

	case modeRegMem, modeMemReg:
		reg, mem := dst, src
		if m.kind == modeMemReg {
			reg, mem = src, dst
		}
		m.wide = reg.wide
		if info.matchWidth && mem.size != 0 && mem.size != reg.width() {
			return spanError(SyntaxError, mem.first, mem.last, "expected %s memory to match register %s, got %s memory",
				sizeName(reg.width()), registerName(regKind(reg), reg.reg), sizeName(mem.size)).
				suggest(a.variableSuggestions(reg.width())...)
		}

	case modeRegImm:
		m.wide = dst.wide
		if !dst.wide && !src.symbolic() && !fitsByte(src.value) {
			return spanError(SyntaxError, src.first, src.last, "expected an 8-bit number for register %s, got %s",
				reg8Names[dst.reg], signedHex(src.value))
		}
		if !dst.wide && src.symbolic() {
			return spanError(SyntaxError, src.first, src.last, "an address cannot be loaded into 8-bit register %s",
				reg8Names[dst.reg]).
				suggest(a.registerSuggestions(true)...)
		}

	case modeMemImm:
		switch dst.size {
		case 0:
			// Infer the operation size from the immediate.
			m.wide = src.symbolic() || !fitsByte(src.value)
		case 1:
			if src.symbolic() || !fitsByte(src.value) {
				return spanError(SyntaxError, src.first, src.last, "expected an 8-bit number for byte memory, got %s", signedHex(src.value))
			}
		default:
			m.wide = true
		}

	case modeImmReg:
		m.wide = src.wide

	case modeSegReg, modeRegSeg:
		reg := dst
		if m.kind == modeSegReg {
			reg = src
		}
		m.wide = true
		if !reg.wide {
			return a.widthError(reg, true)
		}

	case modeSegMem, modeMemSeg:
		mem := dst
		if m.kind == modeSegMem {
			mem = src
		}
		m.wide = true
		if mem.size == 1 {
			return spanError(SyntaxError, mem.first, mem.last, "expected word memory for a segment register, got byte memory").
				suggest(a.variableSuggestions(2)...)
		}
	}
	return nil
}

func (a *assembler) widthError(o *operand, wide bool) *CompileError {
	article := "a"
	if !wide {
		article = "an"
	}
	return tokenError(SyntaxError, o.first, "expected %s %s register, got %s register %s",
		article, regWidthName(wide), regWidthName(o.wide), registerName(regKind(o), o.reg)).
		suggest(a.registerSuggestions(wide)...)
}

func regKind(o *operand) TokenKind {
	switch {
	case o.kind == opndSeg:
		return TokSegReg
	case o.wide:
		return TokReg16
	default:
		return TokReg8
	}
}

func regWidthName(wide bool) string {
	if wide {
		return "16-bit"
	}
	return "8-bit"
}

func sizeName(size int) string {
	switch size {
	case 1:
		return "byte"
	case 2:
		return "word"
	default:
		return "unsized"
	}
}

func (a *assembler) registerSuggestions(wide bool) []string {
	if wide {
		return append([]string{}, reg16Names...)
	}
	return append([]string{}, reg8Names...)
}

// Return the names of variables with the requested element size.
func (a *assembler) variableSuggestions(size int) []string {
	var names []string
	for _, s := range a.symbols {
		if s.Kind == SymVariable && s.Size == size {
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}
