// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

//
// exprOp
//

type exprOp byte

const (
	// unary operations
	opUnaryMinus exprOp = iota
	opUnaryPlus

	// binary operations
	opAdd
	opSubtract
)

type opdata struct {
	precedence      byte
	binary          bool
	leftAssociative bool
	symbol          string
}

var ops = []opdata{
	{2, false, false, "-"}, // uminus
	{2, false, false, "+"}, // uplus
	{1, true, true, "+"},   // add
	{1, true, true, "-"},   // subtract
}

func (op exprOp) isBinary() bool {
	return ops[op].binary
}

// Compare the precedence and associativity of 'op' to 'other'. Return
// true if the shunting yard algorithm should collapse 'other' first.
func (op exprOp) collapses(other exprOp) bool {
	if ops[op].leftAssociative {
		return ops[op].precedence <= ops[other].precedence
	}
	return ops[op].precedence < ops[other].precedence
}

//
// term
//

// A term is a partially folded operand expression: a numeric value plus
// the index registers and symbols that contributed to it.
type term struct {
	value      int
	base       int // regBX, regBP or -1
	index      int // regSI, regDI or -1
	labels     []Ident
	vars       []Ident
	varSize    int  // element size of the first variable referenced
	unresolved bool // a referenced symbol has no address yet
	first      Token
	last       Token
}

func newTerm(t Token) *term {
	return &term{base: -1, index: -1, first: t, last: t}
}

func (t *term) hasRegisters() bool {
	return t.base >= 0 || t.index >= 0
}

func (t *term) symbolic() bool {
	return len(t.labels) > 0 || len(t.vars) > 0
}

// The smallest and largest values an operand expression may fold to.
const (
	minExprValue = -0x8000
	maxExprValue = 0xffff
)

// Combine two terms with addition or subtraction.
func combine(op exprOp, a, b *term) (*term, *CompileError) {
	r := &term{
		base:       a.base,
		index:      a.index,
		labels:     append(append([]Ident{}, a.labels...), b.labels...),
		vars:       append(append([]Ident{}, a.vars...), b.vars...),
		varSize:    a.varSize,
		unresolved: a.unresolved || b.unresolved,
		first:      a.first,
		last:       b.last,
	}
	if r.varSize == 0 {
		r.varSize = b.varSize
	}

	switch op {
	case opAdd:
		r.value = a.value + b.value
		if b.base >= 0 {
			if a.base >= 0 {
				if a.base != b.base {
					return nil, spanError(SyntaxError, a.first, b.last, "BX and BP cannot be used together")
				}
				return nil, spanError(SyntaxError, a.first, b.last, "%s is used twice", reg16Names[b.base])
			}
			r.base = b.base
		}
		if b.index >= 0 {
			if a.index >= 0 {
				if a.index != b.index {
					return nil, spanError(SyntaxError, a.first, b.last, "SI and DI cannot be used together")
				}
				return nil, spanError(SyntaxError, a.first, b.last, "%s is used twice", reg16Names[b.index])
			}
			r.index = b.index
		}
	case opSubtract:
		if b.hasRegisters() {
			return nil, spanError(SyntaxError, b.first, b.last, "a register cannot be subtracted")
		}
		r.value = a.value - b.value
	}

	if len(r.labels) > 0 && len(r.vars) > 0 {
		return nil, spanError(SemanticError, r.first, r.last, "a label and a variable cannot be mixed in one expression")
	}
	if r.value < minExprValue || r.value > maxExprValue {
		return nil, spanError(SemanticError, r.first, r.last, "the sum of the values overflows a 16-bit word")
	}
	return r, nil
}

func negate(t *term) (*term, *CompileError) {
	if t.hasRegisters() {
		return nil, spanError(SyntaxError, t.first, t.last, "a register cannot be negated")
	}
	r := *t
	r.value = -t.value
	if r.value < minExprValue {
		return nil, spanError(SemanticError, r.first, r.last, "the sum of the values overflows a 16-bit word")
	}
	return &r, nil
}

//
// exprParser
//

// The exprParser folds an operand expression such as [bx+si+0x10] or
// var+2 into a single term using Dijkstra's shunting-yard algorithm.
// Brackets act as implicit addition.
type exprParser struct {
	operandStack  termStack
	operatorStack opStack
	bracketDepth  int
	bracketed     bool
	prevValue     bool
	lookup        func(t Token) *term
}

func (p *exprParser) reset() {
	p.operandStack.data, p.operatorStack.data = nil, nil
	p.bracketDepth = 0
	p.bracketed = false
	p.prevValue = false
}

// Parse an expression from a token range. The result reports whether any
// part of the expression was enclosed in brackets.
func (p *exprParser) parse(tokens []Token) (t *term, bracketed bool, err *CompileError) {
	p.reset()
	defer p.reset()

	for _, tok := range tokens {
		switch tok.Kind {
		case TokNumber8, TokNumber16:
			err = p.pushValue(tok, &term{value: tok.Value, base: -1, index: -1, first: tok, last: tok})

		case TokReg16:
			v := newTerm(tok)
			switch tok.Value {
			case regBX, regBP:
				v.base = tok.Value
			case regSI, regDI:
				v.index = tok.Value
			default:
				return nil, false, syntaxError(tok, "%s cannot be used to address memory", tok.Upper()).
					suggest("BX", "BP", "SI", "DI")
			}
			if p.bracketDepth == 0 {
				return nil, false, syntaxError(tok, "register %s must be enclosed in brackets", tok.Upper())
			}
			err = p.pushValue(tok, v)

		case TokIdent:
			err = p.pushValue(tok, p.lookup(tok))

		case TokPlus, TokMinus:
			op := opAdd
			if tok.Kind == TokMinus {
				op = opSubtract
			}
			if !p.prevValue {
				op = opUnaryPlus
				if tok.Kind == TokMinus {
					op = opUnaryMinus
				}
			}
			err = p.pushOperator(tok, op)
			p.prevValue = false

		case TokLeftBracket:
			// A bracket following a value adds to it, as in var[bx].
			if p.prevValue {
				err = p.pushOperator(tok, opAdd)
			}
			p.bracketDepth++
			p.bracketed = true
			p.prevValue = false

		case TokRightBracket:
			if p.bracketDepth == 0 {
				return nil, false, syntaxError(tok, "unmatched ']'")
			}
			p.bracketDepth--

		default:
			return nil, false, syntaxError(tok, "unexpected %s in operand", tok)
		}
		if err != nil {
			return nil, false, err
		}
	}

	if !p.prevValue {
		return nil, false, syntaxError(tokens[len(tokens)-1], "expression ends with an operator")
	}
	if p.bracketDepth != 0 {
		return nil, false, syntaxError(tokens[len(tokens)-1], "missing ']'")
	}

	// Collapse any operators (and operands) remaining on the stack.
	for !p.operatorStack.empty() {
		if err = p.collapse(p.operatorStack.pop()); err != nil {
			return nil, false, err
		}
	}

	t = p.operandStack.pop()
	if t.value < minExprValue || t.value > maxExprValue {
		if t.first == t.last {
			return nil, false, spanError(SemanticError, t.first, t.last, "the value %s overflows a 16-bit word", t.first.Text)
		}
		return nil, false, spanError(SemanticError, t.first, t.last, "the sum of the values overflows a 16-bit word")
	}
	return t, p.bracketed, nil
}

func (p *exprParser) pushValue(tok Token, v *term) *CompileError {
	if p.prevValue {
		return syntaxError(tok, "missing operator before %s", tok)
	}
	p.operandStack.push(v)
	p.prevValue = true
	return nil
}

func (p *exprParser) pushOperator(tok Token, op exprOp) *CompileError {
	for !p.operatorStack.empty() && op.collapses(p.operatorStack.peek()) {
		if err := p.collapse(p.operatorStack.pop()); err != nil {
			return err
		}
	}
	p.operatorStack.push(op)
	return nil
}

// Collapse the top one or two terms on the operand stack using the
// operator, and push the result back onto the stack.
func (p *exprParser) collapse(op exprOp) *CompileError {
	var r *term
	var err *CompileError
	switch {
	case op.isBinary():
		b, a := p.operandStack.pop(), p.operandStack.pop()
		r, err = combine(op, a, b)
	case op == opUnaryMinus:
		r, err = negate(p.operandStack.pop())
	default:
		r = p.operandStack.pop()
	}
	if err != nil {
		return err
	}
	p.operandStack.push(r)
	return nil
}

//
// termStack
//

type termStack struct {
	data []*term
}

func (s *termStack) push(t *term) {
	s.data = append(s.data, t)
}

func (s *termStack) pop() *term {
	l := len(s.data)
	t := s.data[l-1]
	s.data = s.data[:l-1]
	return t
}

//
// opStack
//

type opStack struct {
	data []exprOp
}

func (s *opStack) push(op exprOp) {
	s.data = append(s.data, op)
}

func (s *opStack) pop() exprOp {
	op := s.data[len(s.data)-1]
	s.data = s.data[0 : len(s.data)-1]
	return op
}

func (s *opStack) empty() bool {
	return len(s.data) == 0
}

func (s *opStack) peek() exprOp {
	return s.data[len(s.data)-1]
}
