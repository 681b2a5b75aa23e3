// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// The only origin supported by ORG.
const comOrigin = 0x100

// The label defined by .CODE and targeted by the jump emitted for .DATA.
var codeLabel = NewIdent("code")

// Validate the ORG directive and its position relative to .DATA.
func (a *assembler) checkOrigin() error {
	a.logSection("Checking origin")

	dataLine := -1
	for _, cl := range a.lines {
		if t, ok := cl.line.get(0); ok && t.isDirective(DirData) {
			dataLine = cl.line.Number
			break
		}
	}

	var seen *Token
	for _, cl := range a.lines {
		l := cl.line
		t, ok := l.get(0)
		if !ok || !t.isDirective(DirOrg) {
			continue
		}

		switch {
		case seen != nil:
			a.addError(semanticError(t, "ORG is already defined on line %d", seen.Line))
			continue
		case dataLine >= 0 && dataLine < l.Number:
			a.addError(semanticError(t, "ORG must be defined before the .DATA directive on line %d", dataLine))
			continue
		case len(l.Tokens) != 2:
			a.addError(syntaxError(t, "ORG takes exactly one argument").suggest("0x100"))
			continue
		}
		seen = &l.Tokens[0]

		arg := l.Tokens[1]
		switch {
		case arg.isNumber() && arg.Value == comOrigin:
			a.origin, a.orgDefined = comOrigin, true
			a.log("Origin set to %04X", a.origin)
		case arg.Kind == TokReg16:
			a.log("Origin not set")
		default:
			a.addError(semanticError(arg, "ORG only supports 0x100 as an argument, got %s", arg.Text).suggest("0x100"))
		}
	}
	return nil
}

// Record every label, variable and procedure name along with its kind.
// Addresses are assigned later.
func (a *assembler) collectSymbols() error {
	a.logSection("Collecting symbols")

	var proc *Token
	for _, cl := range a.lines {
		l := cl.line
		if l.Label != "" {
			a.defineSymbol(cl, l.LabelTok, SymLabel, 0)
		}

		t, ok := l.get(0)
		if !ok {
			continue
		}

		switch {
		case t.Kind == TokIdent:
			if d, ok := l.get(1); ok && d.Kind == TokDefine {
				a.defineSymbol(cl, t, SymVariable, d.Value)
			}

		case t.isDirective(DirCode):
			code := t
			code.Text = codeLabel.String()
			a.defineSymbol(cl, code, SymLabel, 0)

		case t.isDirective(DirProc):
			name, ok := l.get(1)
			switch {
			case !ok || name.Kind != TokIdent:
				a.addError(syntaxError(t, "PROC needs a procedure name"))
			case proc != nil:
				a.addError(semanticError(name, "procedure %s is nested inside %s, which has no ENDP", name.Text, proc.Text))
			default:
				a.defineSymbol(cl, name, SymProc, 0)
				p := name
				proc = &p
			}

		case t.isDirective(DirEndp):
			name, ok := l.get(1)
			switch {
			case !ok || name.Kind != TokIdent:
				a.addError(syntaxError(t, "ENDP needs a procedure name"))
			case proc == nil:
				a.addError(semanticError(name, "ENDP %s has no matching PROC", name.Text))
			case NewIdent(name.Text) != NewIdent(proc.Text):
				a.addError(semanticError(name, "ENDP %s does not match PROC %s", name.Text, proc.Text).suggest(proc.Text))
				proc = nil
			default:
				proc = nil
			}
		}
	}

	if proc != nil {
		a.addError(semanticError(*proc, "procedure %s has no ENDP", proc.Text))
	}

	for _, s := range a.sortedSymbols() {
		a.log("%-15s %-9s line %d", s.Name, s.Kind, s.Line)
	}
	return nil
}

func (a *assembler) defineSymbol(cl *compiledLine, t Token, kind SymbolKind, size int) {
	id := NewIdent(t.Text)
	if prev, ok := a.symbols[id]; ok {
		a.addError(semanticError(t, "%s is already defined as a %s on line %d", t.Text, prev.Kind, prev.Line))
		return
	}
	a.symbols[id] = &Symbol{
		Name:    t.Text,
		Kind:    kind,
		Line:    t.Line,
		Column:  t.Column,
		Address: -1,
		Size:    size,
	}
	a.names.Add(string(id), t.Text)
	cl.labels = append(cl.labels, id)
}

// Encode a line that starts with a directive.
func (a *assembler) encodeDirective(cl *compiledLine, t Token) (*emitter, *CompileError) {
	l := cl.line
	e := newEmitter(cl.addr, cl.long, t)

	switch t.Directive {
	case DirOrg:
		// Validated by checkOrigin.
		return e, nil

	case DirData:
		if len(l.Tokens) > 1 {
			return nil, spanError(SyntaxError, l.Tokens[1], l.Tokens[len(l.Tokens)-1], ".DATA takes no arguments")
		}
		// Jump over the data to the .CODE label.
		code := t
		code.Kind, code.Text = TokIdent, codeLabel.String()
		tm := a.lookupSymbol(code)
		o := &operand{
			kind:       opndImm,
			value:      tm.value,
			labels:     tm.labels,
			unresolved: tm.unresolved,
			first:      t,
			last:       t,
		}
		return e, encodeJump(e, instructions["jmp"], mode{kind: modeImm, dst: o, wide: true})

	case DirCode:
		if len(l.Tokens) > 1 {
			return nil, spanError(SyntaxError, l.Tokens[1], l.Tokens[len(l.Tokens)-1], ".CODE takes no arguments")
		}
		return e, nil

	case DirProc, DirEndp:
		// Validated by collectSymbols.
		if len(l.Tokens) > 2 {
			return nil, spanError(SyntaxError, l.Tokens[2], l.Tokens[len(l.Tokens)-1], "%s takes only a procedure name", t.Directive)
		}
		return e, nil

	default:
		return nil, syntaxError(t, "%s can only be used inside an operand", t.Directive)
	}
}

// Encode a DB or DW data definition whose define keyword is at index i.
func (a *assembler) encodeData(cl *compiledLine, i int) (*emitter, *CompileError) {
	l := cl.line
	def := l.Tokens[i]
	e := newEmitter(cl.addr, cl.long, def)

	items := l.operands(i + 1)
	if len(items) == 0 {
		return nil, syntaxError(def, "%s needs at least one value", def.Upper())
	}

	for _, toks := range items {
		if len(toks) == 0 {
			return nil, syntaxError(def, "%s has an empty value", def.Upper())
		}
		t, bracketed, err := a.expr.parse(toks)
		if err != nil {
			return nil, err
		}
		first, last := toks[0], toks[len(toks)-1]
		if bracketed || t.hasRegisters() {
			return nil, spanError(SyntaxError, first, last, "%s values must be numbers or addresses", def.Upper())
		}

		o := &operand{kind: opndImm, value: t.value, labels: t.labels, vars: t.vars, unresolved: t.unresolved, first: first, last: last}
		if def.Value == 1 {
			if o.symbolic() {
				return nil, spanError(SyntaxError, first, last, "an address does not fit in a byte").suggest("DW")
			}
			if !fitsByte(o.value) {
				return nil, spanError(SyntaxError, first, last, "expected an 8-bit number, got %s", signedHex(o.value)).suggest("DW")
			}
		}
		e.immediate(o, def.Value == 2)
	}
	return e, nil
}
