// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"math"
	"strconv"
	"strings"
)

// Tokenize splits assembly source into one token slice per source line.
// Lexing never fails: text that is not a register, number, mnemonic,
// directive or data definition becomes an identifier, and its validity is
// decided later.
func Tokenize(src string) [][]Token {
	rows := strings.Split(src, "\n")
	lines := make([][]Token, len(rows))
	for i, row := range rows {
		lines[i] = tokenizeLine(newFstring(i+1, row))
	}
	return lines
}

func tokenizeLine(l fstring) []Token {
	var tokens []Token
	for !l.isEmpty() {
		var t Token
		t, l = nextToken(l)
		tokens = append(tokens, t)
	}
	return tokens
}

func nextToken(l fstring) (Token, fstring) {
	var word fstring
	switch {
	case l.startsWith(whitespace):
		word, l = l.consumeWhile(whitespace)
		return newToken(TokSpace, word), l

	case l.startsWithChar(';'):
		return newToken(TokComment, l), l.consume(len(l.str))

	case l.startsWith(delimiter):
		word, l = l.trunc(1), l.consume(1)
		return newToken(punctuation[word.str[0]], word), l
	}

	if q, remain, ok := l.consumeQuoted(); ok {
		t := newToken(TokNumber8, q)
		t.Value = int(q.str[1])
		return t, remain
	}

	word, l = l.consumeUntil(delimiter)
	return classifyWord(word), l
}

var punctuation = map[byte]TokenKind{
	',': TokComma,
	':': TokColon,
	'[': TokLeftBracket,
	']': TokRightBracket,
	'+': TokPlus,
	'-': TokMinus,
}

func newToken(kind TokenKind, s fstring) Token {
	return Token{
		Kind:   kind,
		Line:   s.row,
		Column: s.column,
		Length: len(s.str),
		Text:   s.str,
	}
}

// Classify a maximal run of non-delimiter characters. Lookup order is
// directives, mnemonics, registers, data definitions, then numbers.
func classifyWord(word fstring) Token {
	lower := strings.ToLower(word.str)

	if d, ok := directives[lower]; ok {
		t := newToken(TokDirective, word)
		t.Directive = d
		return t
	}

	if _, ok := instructions[lower]; ok {
		return newToken(TokMnemonic, word)
	}

	if r, ok := registers[lower]; ok {
		t := newToken(r.kind, word)
		t.Value = r.index
		return t
	}

	if w, ok := defines[lower]; ok {
		t := newToken(TokDefine, word)
		t.Value = w
		return t
	}

	if v, ok := parseNumber(lower); ok {
		t := newToken(TokNumber16, word)
		if v <= 0xff {
			t.Kind = TokNumber8
		}
		t.Value = v
		return t
	}

	return newToken(TokIdent, word)
}

// Parse a numeric literal. The following formats are recognized:
//
//	0x[0-9a-f]+   hexadecimal
//	[0-9][0-9a-f]*h  hexadecimal
//	[01]+b        binary
//	[0-7]+o       octal
//	[0-9]+        decimal
//
// Values too large for an int are returned as math.MaxInt32 so that the
// evaluator reports them as an overflow.
func parseNumber(s string) (int, bool) {
	if len(s) == 0 || !decimal(s[0]) {
		return 0, false
	}

	digits, base, fn := s, 10, decimal
	last := s[len(s)-1]
	switch {
	case strings.HasPrefix(s, "0x"):
		digits, base, fn = s[2:], 16, hexadecimal
	case last == 'h':
		digits, base, fn = s[:len(s)-1], 16, hexadecimal
	case last == 'b' && allChars(s[:len(s)-1], binarynum):
		digits, base, fn = s[:len(s)-1], 2, binarynum
	case last == 'o':
		digits, base, fn = s[:len(s)-1], 8, octal
	}

	if len(digits) == 0 || !allChars(digits, fn) {
		return 0, false
	}

	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil || v > math.MaxInt32 {
		return math.MaxInt32, true
	}
	return int(v), true
}

func allChars(s string, fn func(c byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !fn(s[i]) {
			return false
		}
	}
	return true
}
