// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// A Line is the tokenized view of a single source line with spaces and
// comments stripped. A leading "label:" is removed from Tokens and kept
// separately.
type Line struct {
	Number   int     // 1-based source line number
	Text     string  // full text of the source line
	Label    string  // leading label, if any
	LabelTok Token   // token of the leading label
	Tokens   []Token // remaining tokens
}

func newLine(number int, text string, tokens []Token) Line {
	l := Line{Number: number, Text: text}
	for _, t := range tokens {
		if t.Kind != TokSpace && t.Kind != TokComment {
			l.Tokens = append(l.Tokens, t)
		}
	}
	if len(l.Tokens) >= 2 && l.Tokens[0].Kind == TokIdent && l.Tokens[1].Kind == TokColon {
		l.Label, l.LabelTok = l.Tokens[0].Text, l.Tokens[0]
		l.Tokens = l.Tokens[2:]
	}
	return l
}

func (l *Line) isEmpty() bool {
	return len(l.Tokens) == 0
}

// Return the token at index i, or false if the line is too short.
func (l *Line) get(i int) (Token, bool) {
	if i < len(l.Tokens) {
		return l.Tokens[i], true
	}
	return Token{}, false
}

// Split the tokens starting at index i into comma-separated operand
// ranges. Colons inside an operand (seg:off) are kept.
func (l *Line) operands(i int) [][]Token {
	var ops [][]Token
	if i >= len(l.Tokens) {
		return ops
	}
	start := i
	for j := i; j < len(l.Tokens); j++ {
		if l.Tokens[j].Kind == TokComma {
			ops = append(ops, l.Tokens[start:j])
			start = j + 1
		}
	}
	ops = append(ops, l.Tokens[start:])
	return ops
}

// Return the column just past the last token, or the label end when the
// line has no other tokens.
func (l *Line) end() int {
	if len(l.Tokens) > 0 {
		return l.Tokens[len(l.Tokens)-1].End()
	}
	return l.LabelTok.End()
}
