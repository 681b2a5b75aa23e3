// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/beevik/prefixtree/v2"
)

// A family groups instructions that share one encoding routine.
type family byte

const (
	famALU     family = iota // ADD OR ADC SBB AND SUB XOR CMP
	famMov                   // MOV
	famTest                  // TEST
	famXchg                  // XCHG
	famLoad                  // LEA LES LDS
	famUnary                 // INC DEC NOT NEG MUL IMUL DIV IDIV
	famShift                 // ROL ROR RCL RCR SHL SAL SHR SAR
	famPush                  // PUSH
	famPop                   // POP
	famJump                  // JMP
	famCall                  // CALL
	famBranch                // Jcc and JCXZ
	famLoop                  // LOOP LOOPE LOOPNE
	famRet                   // RET
	famIn                    // IN
	famOut                   // OUT
	famImplied               // single-byte instructions without operands
)

type familyInfo struct {
	minOperands int
	maxOperands int
	matchWidth  bool // both operands must have the same width
	immDst      bool // the destination may be an immediate
	encode      func(e *emitter, ins *instruction, m mode) *CompileError
}

var families []familyInfo

func init() {
	// Assigned in init to avoid an initialization cycle through the
	// instruction table.
	families = []familyInfo{
		famALU:     {2, 2, true, false, encodeALU},
		famMov:     {2, 2, true, false, encodeMov},
		famTest:    {2, 2, true, false, encodeTest},
		famXchg:    {2, 2, true, false, encodeXchg},
		famLoad:    {2, 2, false, false, encodeLoad},
		famUnary:   {1, 1, false, false, encodeUnary},
		famShift:   {2, 2, false, false, encodeShift},
		famPush:    {1, 1, false, false, encodePush},
		famPop:     {1, 1, false, false, encodePop},
		famJump:    {1, 1, false, false, encodeJump},
		famCall:    {1, 1, false, false, encodeCall},
		famBranch:  {1, 1, false, false, encodeBranch},
		famLoop:    {1, 1, false, false, encodeLoop},
		famRet:     {0, 1, false, false, encodeRet},
		famIn:      {2, 2, false, false, encodeIn},
		famOut:     {2, 2, false, true, encodeOut},
		famImplied: {0, 0, false, false, encodeImplied},
	}
}

// An instruction describes the opcode set of one mnemonic.
type instruction struct {
	name string // lower-case mnemonic
	fam  family // encoding family
	ext  byte   // ModRM reg field extension, or ALU row
	op   byte   // primary opcode
	alt  byte   // secondary opcode: inverse branch, short register form
}

func (i *instruction) upper() string {
	return strings.ToUpper(i.name)
}

// The instruction table, keyed by lower-case mnemonic.
var instructions = map[string]*instruction{}

// Mnemonics keyed by lower-case name, for unique-prefix suggestions.
var mnemonics = prefixtree.New[string]()

func addInstruction(name string, fam family, ext, op, alt byte) {
	instructions[name] = &instruction{name: name, fam: fam, ext: ext, op: op, alt: alt}
	mnemonics.Add(name, strings.ToUpper(name))
}

func init() {
	for i, name := range []string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"} {
		addInstruction(name, famALU, byte(i), byte(i)<<3, 0)
	}

	addInstruction("mov", famMov, 0, 0x88, 0)
	addInstruction("test", famTest, 0, 0x84, 0)
	addInstruction("xchg", famXchg, 0, 0x86, 0)
	addInstruction("lea", famLoad, 0, 0x8d, 0)
	addInstruction("les", famLoad, 0, 0xc4, 0)
	addInstruction("lds", famLoad, 0, 0xc5, 0)

	addInstruction("inc", famUnary, 0, 0xfe, 0x40)
	addInstruction("dec", famUnary, 1, 0xfe, 0x48)
	addInstruction("not", famUnary, 2, 0xf6, 0)
	addInstruction("neg", famUnary, 3, 0xf6, 0)
	addInstruction("mul", famUnary, 4, 0xf6, 0)
	addInstruction("imul", famUnary, 5, 0xf6, 0)
	addInstruction("div", famUnary, 6, 0xf6, 0)
	addInstruction("idiv", famUnary, 7, 0xf6, 0)

	addInstruction("rol", famShift, 0, 0xd0, 0)
	addInstruction("ror", famShift, 1, 0xd0, 0)
	addInstruction("rcl", famShift, 2, 0xd0, 0)
	addInstruction("rcr", famShift, 3, 0xd0, 0)
	addInstruction("shl", famShift, 4, 0xd0, 0)
	addInstruction("sal", famShift, 4, 0xd0, 0)
	addInstruction("shr", famShift, 5, 0xd0, 0)
	addInstruction("sar", famShift, 7, 0xd0, 0)

	addInstruction("push", famPush, 6, 0x50, 0)
	addInstruction("pop", famPop, 0, 0x58, 0)

	addInstruction("jmp", famJump, 4, 0xeb, 0xe9)
	addInstruction("call", famCall, 2, 0xe8, 0x9a)
	addInstruction("ret", famRet, 0, 0xc3, 0xc2)

	// Conditional jumps carry their inverse for the long form.
	branches := []struct {
		names []string
		op    byte
	}{
		{[]string{"jo"}, 0x70},
		{[]string{"jno"}, 0x71},
		{[]string{"jb", "jc", "jnae"}, 0x72},
		{[]string{"jae", "jnb", "jnc"}, 0x73},
		{[]string{"je", "jz"}, 0x74},
		{[]string{"jne", "jnz"}, 0x75},
		{[]string{"jbe", "jna"}, 0x76},
		{[]string{"ja", "jnbe"}, 0x77},
		{[]string{"js"}, 0x78},
		{[]string{"jns"}, 0x79},
		{[]string{"jp", "jpe"}, 0x7a},
		{[]string{"jnp", "jpo"}, 0x7b},
		{[]string{"jl", "jnge"}, 0x7c},
		{[]string{"jge", "jnl"}, 0x7d},
		{[]string{"jle", "jng"}, 0x7e},
		{[]string{"jg", "jnle"}, 0x7f},
	}
	for _, b := range branches {
		for _, name := range b.names {
			addInstruction(name, famBranch, 0, b.op, b.op^1)
		}
	}
	addInstruction("jcxz", famBranch, 0, 0xe3, 0)

	addInstruction("loop", famLoop, 0, 0xe2, 0x49)
	addInstruction("loope", famLoop, 0, 0xe1, 0)
	addInstruction("loopz", famLoop, 0, 0xe1, 0)
	addInstruction("loopne", famLoop, 0, 0xe0, 0)
	addInstruction("loopnz", famLoop, 0, 0xe0, 0)

	addInstruction("in", famIn, 0, 0xe4, 0xec)
	addInstruction("out", famOut, 0, 0xe6, 0xee)

	implied := map[string]byte{
		"nop":   0x90,
		"hlt":   0xf4,
		"cmc":   0xf5,
		"clc":   0xf8,
		"stc":   0xf9,
		"cli":   0xfa,
		"sti":   0xfb,
		"cld":   0xfc,
		"std":   0xfd,
		"cbw":   0x98,
		"cwd":   0x99,
		"pushf": 0x9c,
		"popf":  0x9d,
	}
	for name, op := range implied {
		addInstruction(name, famImplied, 0, op, 0)
	}
}
