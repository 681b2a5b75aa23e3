// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

type operandKind byte

const (
	opndReg operandKind = iota // general register
	opndSeg                    // segment register
	opndImm                    // immediate value, label or OFFSET
	opndMem                    // memory reference
	opndFar                    // segment:offset pair
)

var operandKindName = []string{
	"register",
	"segment register",
	"immediate value",
	"memory reference",
	"far address",
}

func (k operandKind) String() string {
	return operandKindName[k]
}

// An operand is the folded form of one comma-separated operand position.
type operand struct {
	kind       operandKind
	reg        int  // register index for opndReg and opndSeg
	wide       bool // 16-bit register
	size       int  // memory or immediate size: 0 unknown, 1 byte, 2 word
	value      int  // immediate, displacement, or far offset
	segment    int  // far segment
	direct     bool // memory: absolute address with no index registers
	rm         byte // memory: r/m field when not direct
	labels     []Ident
	vars       []Ident
	unresolved bool // depends on a symbol whose address is not known yet
	offset     bool // preceded by OFFSET
	first      Token
	last       Token
}

func (o *operand) symbolic() bool {
	return len(o.labels) > 0 || len(o.vars) > 0
}

func (o *operand) isReg8() bool {
	return o.kind == opndReg && !o.wide
}

func (o *operand) isReg16() bool {
	return o.kind == opndReg && o.wide
}

func (o *operand) isAccumulator() bool {
	return o.kind == opndReg && o.reg == regAX
}

// Return 1 or 2 for an operand with a known width, or 0.
func (o *operand) width() int {
	switch o.kind {
	case opndReg:
		if o.wide {
			return 2
		}
		return 1
	case opndSeg:
		return 2
	case opndMem:
		return o.size
	}
	return 0
}

// The r/m field for the base and index register combination.
func rmField(base, index int) byte {
	switch {
	case base == regBX && index == regSI:
		return 0
	case base == regBX && index == regDI:
		return 1
	case base == regBP && index == regSI:
		return 2
	case base == regBP && index == regDI:
		return 3
	case index == regSI:
		return 4
	case index == regDI:
		return 5
	case base == regBP:
		return 6
	default:
		return 7
	}
}

// Parse the tokens of a single operand position.
func (a *assembler) parseOperand(tokens []Token) (*operand, *CompileError) {
	o := &operand{first: tokens[0], last: tokens[len(tokens)-1]}

	// A lone register.
	if len(tokens) == 1 && tokens[0].isRegister() {
		t := tokens[0]
		o.reg = t.Value
		switch t.Kind {
		case TokReg16:
			o.kind, o.wide = opndReg, true
		case TokReg8:
			o.kind = opndReg
		case TokSegReg:
			o.kind, o.wide = opndSeg, true
		}
		return o, nil
	}

	// Size override and OFFSET prefixes.
	for len(tokens) > 0 && tokens[0].Kind == TokDirective {
		t := tokens[0]
		switch t.Directive {
		case DirByte:
			o.size = 1
		case DirWord:
			o.size = 2
		case DirOffset:
			o.offset = true
		default:
			return nil, syntaxError(t, "unexpected directive %s in operand", t.Directive)
		}
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return nil, syntaxError(o.last, "missing expression after %s", o.last.Upper())
	}

	// A segment:offset pair.
	for i, t := range tokens {
		if t.Kind == TokColon {
			return a.parseFar(o, tokens[:i], tokens[i+1:], t)
		}
	}

	if len(tokens) == 1 && tokens[0].isRegister() {
		return nil, syntaxError(tokens[0], "a size or OFFSET prefix cannot be applied to register %s", tokens[0].Upper())
	}

	t, bracketed, err := a.expr.parse(tokens)
	if err != nil {
		return nil, err
	}
	o.value = t.value
	o.labels, o.vars = t.labels, t.vars
	o.unresolved = t.unresolved

	switch {
	case o.offset:
		if bracketed {
			return nil, spanError(SyntaxError, tokens[0], o.last, "OFFSET cannot be applied to a memory reference")
		}
		o.kind = opndImm

	case bracketed:
		o.kind = opndMem
		if t.hasRegisters() {
			o.rm = rmField(t.base, t.index)
		} else {
			o.direct = true
		}
		if o.size == 0 {
			o.size = t.varSize
		}

	case len(t.vars) > 0:
		// A bare variable name refers to its contents.
		o.kind, o.direct = opndMem, true
		if o.size == 0 {
			o.size = t.varSize
		}

	default:
		if o.size != 0 {
			return nil, spanError(SyntaxError, o.first, o.last, "a size prefix can only be applied to a memory reference")
		}
		o.kind = opndImm
	}

	if o.kind == opndMem && o.direct {
		o.value &= 0xffff
	}
	return o, nil
}

func (a *assembler) parseFar(o *operand, seg, off []Token, colon Token) (*operand, *CompileError) {
	if len(seg) == 0 || len(off) == 0 {
		return nil, syntaxError(colon, "a far address needs both a segment and an offset")
	}
	if seg[0].Kind == TokSegReg {
		return nil, syntaxError(seg[0], "segment override prefixes are not supported")
	}
	if o.size != 0 || o.offset {
		return nil, spanError(SyntaxError, o.first, o.last, "a far address cannot take a size or OFFSET prefix")
	}

	s, sb, err := a.expr.parse(seg)
	if err != nil {
		return nil, err
	}
	f, fb, err := a.expr.parse(off)
	if err != nil {
		return nil, err
	}
	if sb || fb || s.hasRegisters() || f.hasRegisters() || len(s.vars) > 0 || len(s.labels) > 0 {
		return nil, spanError(SyntaxError, o.first, o.last, "a far address must be a pair of numbers")
	}

	o.kind = opndFar
	o.segment = s.value & 0xffff
	o.value = f.value
	o.labels, o.vars = f.labels, f.vars
	o.unresolved = f.unresolved
	return o, nil
}
