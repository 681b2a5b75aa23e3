// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements an assembler for a subset of the 8086
// instruction set.
package asm

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

// A compiledLine holds the encoding of a single source line.
type compiledLine struct {
	line      *Line
	addr      int                 // address assigned to the first byte
	bytes     []byte              // machine code for the line
	refs      []ByteRef           // bytes grouped by originating token
	labelRefs map[Ident]labelRef  // symbol values written into bytes
	labels    []Ident             // symbols defined at this line
	symbolic  bool                // encoding depends on symbol addresses
	long      bool                // grown to its longest form, never shrinks
	failed    bool                // encoding produced an error
}

// A ByteRef ties a run of emitted bytes to the source token that produced
// them.
type ByteRef struct {
	Bytes  []byte
	Line   int // 1-based source line
	Column int // 0-based source column
}

// Assembly contains the assembled machine code and other data associated
// with it.
type Assembly struct {
	Code       []byte           // Assembled machine code
	Origin     uint16           // Address of the first byte
	OrgDefined bool             // ORG 0x100 was present
	Refs       []ByteRef        // Per-token byte references
	Symbols    map[Ident]Symbol // Labels, variables and procedures
}

// Option type used by the Assemble function.
type Option uint

// Options for the Assemble function.
const (
	Verbose Option = 1 << iota // verbose output during assembly
)

type assembler struct {
	origin     int                      // 0, or 0x100 when ORG is present
	orgDefined bool                     // ORG 0x100 was found
	r          io.Reader                // the reader passed to Assemble
	filename   string                   // name used in messages
	lines      []*compiledLine          // one entry per source line
	symbols    map[Ident]*Symbol        // every defined name
	names      *prefixtree.Tree[string] // symbol names for suggestions
	undefined  []Token                  // first reference to each undefined name
	undefSeen  map[Ident]bool           // names already in undefined
	symbolic   bool                     // the line being encoded used a symbol
	passes     int                      // relaxation passes performed
	code       []byte                   // generated machine code
	refs       []ByteRef                // generated byte references
	out        io.Writer                // used for verbose output
	verbose    bool                     // verbose output
	expr       exprParser               // used to fold operand expressions
	errors     ErrorList                // errors encountered during assembly
}

// Assemble reads 8086 assembly source from the provided stream and
// assembles it into machine code. On failure the returned error is an
// ErrorList holding every problem found.
func Assemble(r io.Reader, filename string, out io.Writer, options Option) (*Assembly, *SourceMap, error) {
	if out == nil {
		out = os.Stdout
	}

	a := &assembler{
		r:         r,
		filename:  filename,
		symbols:   make(map[Ident]*Symbol),
		names:     prefixtree.New[string](),
		undefSeen: make(map[Ident]bool),
		out:       out,
		verbose:   (options & Verbose) != 0,
	}
	a.expr.lookup = a.lookupSymbol

	// Assembly consists of the following steps
	steps := []func(a *assembler) error{
		(*assembler).parse,          // Tokenize the source lines
		(*assembler).checkOrigin,    // Validate ORG and its placement
		(*assembler).collectSymbols, // Record label, variable & procedure names
		(*assembler).encodeLines,    // Encode every line once
		(*assembler).relax,          // Re-encode until instruction sizes settle
		(*assembler).generateCode,   // Generate the machine code
	}

	// Execute assembler steps, breaking if an error is encountered
	// in any one of them.
	var err error
	for _, step := range steps {
		err = step(a)
		if err != nil {
			break
		}
		if len(a.errors) > 0 {
			err = errParse
			break
		}
	}

	if errors.Is(err, ErrNotConverged) {
		a.addError(&CompileError{
			Kind:    SemanticError,
			Line:    1,
			Message: fmt.Sprintf("%v after %d passes", err, a.passes),
			cause:   err,
		})
	}
	if err != nil && len(a.errors) > 0 {
		a.errors.Sort()
		err = a.errors
	}

	assembly := &Assembly{
		Code:       a.code,
		Origin:     uint16(a.origin),
		OrgDefined: a.orgDefined,
		Refs:       a.refs,
		Symbols:    make(map[Ident]Symbol, len(a.symbols)),
	}
	for id, s := range a.symbols {
		assembly.Symbols[id] = *s
	}

	sourceMap := &SourceMap{
		Filename: filename,
		Origin:   uint16(a.origin),
		Size:     uint32(len(a.code)),
		CRC:      crc32.ChecksumIEEE(a.code),
	}
	for _, cl := range a.lines {
		if len(cl.bytes) > 0 {
			sourceMap.Lines = append(sourceMap.Lines, SourceLine{Address: cl.addr, Line: cl.line.Number})
		}
	}

	return assembly, sourceMap, err
}

// AssembleString assembles source text without verbose output.
func AssembleString(src string) (*Assembly, error) {
	assembly, _, err := Assemble(strings.NewReader(src), "", io.Discard, 0)
	return assembly, err
}

// Read the assembly code and split it into tokenized lines.
func (a *assembler) parse() error {
	a.logSection("Parsing assembly code")

	b, err := io.ReadAll(a.r)
	if err != nil {
		return err
	}

	src := string(b)
	rows := strings.Split(src, "\n")
	for i, tokens := range Tokenize(src) {
		l := newLine(i+1, strings.TrimRight(rows[i], "\r"), tokens)
		a.lines = append(a.lines, &compiledLine{line: &l})
		if !l.isEmpty() || l.Label != "" {
			a.logLine(&l, "%s", tokenSummary(&l))
		}
	}
	return nil
}

func tokenSummary(l *Line) string {
	var s []string
	if l.Label != "" {
		s = append(s, "label="+l.Label)
	}
	if t, ok := l.get(0); ok {
		s = append(s, t.Kind.String())
	}
	if n := len(l.operands(1)); n > 0 {
		s = append(s, fmt.Sprintf("%d args", n))
	}
	return strings.Join(s, " ")
}

// Resolve an identifier inside an operand expression.
func (a *assembler) lookupSymbol(t Token) *term {
	v := newTerm(t)
	id := NewIdent(t.Text)
	a.symbolic = true

	s, ok := a.symbols[id]
	if !ok {
		if !a.undefSeen[id] {
			a.undefSeen[id] = true
			a.undefined = append(a.undefined, t)
		}
		v.labels = []Ident{id}
		v.unresolved = true
		return v
	}

	if s.Kind == SymVariable {
		v.vars, v.varSize = []Ident{id}, s.Size
	} else {
		v.labels = []Ident{id}
	}
	if s.Address < 0 {
		v.unresolved = true
	} else {
		v.value = s.Address
	}
	return v
}

// First encoding pass. Addresses are assigned as lines are encoded, so
// backward references are exact and forward references are placeholders.
func (a *assembler) encodeLines() error {
	a.logSection("Encoding instructions")

	addr := a.origin
	for _, cl := range a.lines {
		a.place(cl, addr)
		if err := a.encodeLine(cl); err != nil {
			a.addError(err)
		}
		addr += len(cl.bytes)
	}

	a.checkUndefined()
	return nil
}

// Produce one error per name that was referenced but never defined.
func (a *assembler) checkUndefined() {
	for _, t := range a.undefined {
		err := semanticError(t, "label %s is not defined", t.Text)
		if NewIdent(t.Text) == codeLabel {
			err.Message = ".DATA needs a code: label or a .CODE directive to jump to"
			err.suggest(".CODE")
		} else {
			err.suggest(a.symbolSuggestions(t.Text)...)
		}
		a.addError(err)
	}
}

// Assign an address to a line and to the symbols it defines.
func (a *assembler) place(cl *compiledLine, addr int) {
	cl.addr = addr
	for _, id := range cl.labels {
		a.symbols[id].Address = addr
	}
}

// The relaxation pass limit for a program of n lines.
var maxPasses = func(n int) int {
	return 2*n + 8
}

// Re-encode symbol-dependent lines until no line changes size. A line
// that would shrink is switched to its longest form instead, so sizes only
// grow and the loop terminates.
func (a *assembler) relax() error {
	a.logSection("Resolving symbols")

	limit := maxPasses(len(a.lines))
	for a.passes = 1; a.passes <= limit; a.passes++ {
		addr := a.origin
		for _, cl := range a.lines {
			a.place(cl, addr)
			addr += len(cl.bytes)
		}

		changed := 0
		for _, cl := range a.lines {
			if !cl.symbolic || cl.failed {
				continue
			}
			size := len(cl.bytes)
			err := a.encodeLine(cl)
			if err == nil && len(cl.bytes) < size {
				cl.long = true
				err = a.encodeLine(cl)
			}
			if err != nil {
				a.addError(err)
				continue
			}
			if len(cl.bytes) != size {
				a.logLine(cl.line, "%d -> %d bytes", size, len(cl.bytes))
				changed++
			}
		}

		if len(a.errors) > 0 {
			return nil
		}
		a.log("Pass %d: %d lines changed size", a.passes, changed)
		if changed == 0 {
			return nil
		}
	}
	a.passes = limit
	return ErrNotConverged
}

// Encode a single line, replacing any previous encoding.
func (a *assembler) encodeLine(cl *compiledLine) *CompileError {
	a.symbolic = false
	e, err := a.encodeTokens(cl)
	cl.symbolic = a.symbolic
	if err != nil {
		cl.bytes, cl.refs, cl.labelRefs, cl.failed = nil, nil, nil, true
		return err
	}
	cl.bytes, cl.refs, cl.labelRefs = e.bytes, e.refs, e.labelRefs
	return nil
}

func (a *assembler) encodeTokens(cl *compiledLine) (*emitter, *CompileError) {
	l := cl.line
	t, ok := l.get(0)
	if !ok {
		return newEmitter(cl.addr, cl.long, l.LabelTok), nil
	}

	switch t.Kind {
	case TokMnemonic:
		return a.encodeInstruction(cl, t)
	case TokDirective:
		return a.encodeDirective(cl, t)
	case TokDefine:
		return a.encodeData(cl, 0)
	case TokIdent:
		if d, ok := l.get(1); ok && d.Kind == TokDefine {
			return a.encodeData(cl, 1)
		}
		err := syntaxError(t, "unknown instruction %s", t.Text)
		if s, e := mnemonics.FindValue(strings.ToLower(t.Text)); e == nil {
			err.suggest(s)
		}
		return nil, err
	default:
		return nil, syntaxError(t, "expected an instruction, directive or data definition, got %s", t)
	}
}

func (a *assembler) encodeInstruction(cl *compiledLine, t Token) (*emitter, *CompileError) {
	ins := instructions[strings.ToLower(t.Text)]

	var ops []*operand
	prev := t
	for _, toks := range cl.line.operands(1) {
		if len(toks) == 0 {
			return nil, syntaxError(prev, "missing operand after %s", prev.Text)
		}
		o, err := a.parseOperand(toks)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o)
		prev = toks[len(toks)-1]
	}

	m, err := a.classify(ins, t, ops)
	if err != nil {
		return nil, err
	}

	e := newEmitter(cl.addr, cl.long, t)
	if err := families[ins.fam].encode(e, ins, m); err != nil {
		return nil, err
	}
	return e, nil
}

// Flatten the encoded lines into the final byte stream.
func (a *assembler) generateCode() error {
	a.logSection("Generating code")
	for _, cl := range a.lines {
		a.code = append(a.code, cl.bytes...)
		a.refs = append(a.refs, cl.refs...)
		if len(cl.bytes) > 0 {
			a.log("%04X-   %-20s %s", cl.addr, byteString(cl.bytes), strings.TrimSpace(cl.line.Text))
		}
	}
	return nil
}

func (a *assembler) sortedSymbols() []*Symbol {
	syms := make([]*Symbol, 0, len(a.symbols))
	for _, s := range a.symbols {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].Line < syms[j].Line
	})
	return syms
}

// Suggest known names for an identifier that is not defined. A unique
// prefix match is preferred over the full list.
func (a *assembler) symbolSuggestions(name string) []string {
	if s, err := a.names.FindValue(string(NewIdent(name))); err == nil {
		return []string{s}
	}
	var names []string
	for _, s := range a.sortedSymbols() {
		if s.Kind != SymVariable {
			names = append(names, s.Name)
		}
	}
	return names
}

func (a *assembler) addError(err *CompileError) {
	if err.Line > 0 && err.Line <= len(a.lines) {
		err.Source = a.lines[err.Line-1].line.Text
	}
	a.errors = append(a.errors, err)
	if a.verbose {
		if a.filename != "" {
			fmt.Fprintf(a.out, "%s: ", a.filename)
		}
		fmt.Fprintln(a.out, err.Render())
	}
}

func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintf(a.out, "\n")
	}
}

func (a *assembler) logLine(l *Line, format string, args ...any) {
	if a.verbose {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.out, "%-3d | %-20s | %s\n", l.Number, detail, l.Text)
	}
}

func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
