// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors
var (
	errParse = errors.New("parse error")

	// ErrNotConverged is reported when instruction sizes keep changing
	// after the maximum number of relaxation passes.
	ErrNotConverged = errors.New("label resolution did not converge")
)

// ErrorKind classifies a compile error.
type ErrorKind byte

// Kinds of compile error.
const (
	SyntaxError   ErrorKind = iota // wrong operand kind or count
	SemanticError                  // ordering, undefined labels, overflow
)

func (k ErrorKind) String() string {
	if k == SyntaxError {
		return "syntax error"
	}
	return "semantic error"
}

// A CompileError describes a single problem found in the source, with the
// position of the offending text.
type CompileError struct {
	Kind        ErrorKind
	Line        int      // 1-based line number
	Column      int      // 0-based column
	Length      int      // number of characters to underline
	Message     string   // description of the problem
	Suggestions []string // possible replacements, if any
	Source      string   // text of the offending line
	cause       error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Column+1, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.cause
}

// Render formats the error with the offending source line and a caret
// marker underneath the erroneous text.
func (e *CompileError) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on line %d, col %d: %s\n", capitalize(e.Kind.String()), e.Line, e.Column+1, e.Message)
	fmt.Fprintln(&b, e.Source)
	for i := 0; i < e.Column; i++ {
		if i < len(e.Source) && e.Source[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte('-')
		}
	}
	b.WriteString(strings.Repeat("^", max(e.Length, 1)))
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, "\nSuggestions: %s", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// An ErrorList holds every error found while assembling a program.
type ErrorList []*CompileError

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
	}
}

func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Sort orders the errors by source position.
func (l ErrorList) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		if l[i].Line != l[j].Line {
			return l[i].Line < l[j].Line
		}
		return l[i].Column < l[j].Column
	})
}

// Build an error spanning tokens first through last.
func spanError(kind ErrorKind, first, last Token, format string, args ...any) *CompileError {
	length := last.End() - first.Column
	if length < first.Length {
		length = first.Length
	}
	return &CompileError{
		Kind:    kind,
		Line:    first.Line,
		Column:  first.Column,
		Length:  length,
		Message: fmt.Sprintf(format, args...),
	}
}

func tokenError(kind ErrorKind, t Token, format string, args ...any) *CompileError {
	return spanError(kind, t, t, format, args...)
}

func syntaxError(t Token, format string, args ...any) *CompileError {
	return tokenError(SyntaxError, t, format, args...)
}

func semanticError(t Token, format string, args ...any) *CompileError {
	return tokenError(SemanticError, t, format, args...)
}

func (e *CompileError) suggest(s ...string) *CompileError {
	e.Suggestions = append(e.Suggestions, s...)
	return e
}
