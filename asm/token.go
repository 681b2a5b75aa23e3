// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"
)

// TokenKind identifies the lexical class of a token.
type TokenKind byte

// Token kinds produced by the lexer.
const (
	TokSpace        TokenKind = iota // run of blanks
	TokComma                         // ,
	TokColon                         // :
	TokComment                       // ; through end of line
	TokLeftBracket                   // [
	TokRightBracket                  // ]
	TokPlus                          // +
	TokMinus                         // -
	TokReg16                         // AX..DI
	TokReg8                          // AL..BH
	TokSegReg                        // ES, CS, SS, DS
	TokMnemonic                      // instruction mnemonic
	TokDirective                     // assembler directive
	TokNumber8                       // number that fits in a byte
	TokNumber16                      // number that needs a word
	TokDefine                        // DB or DW
	TokIdent                         // label, variable or procedure name
)

var tokenKindName = []string{
	"space",
	"comma",
	"colon",
	"comment",
	"left bracket",
	"right bracket",
	"plus",
	"minus",
	"16-bit register",
	"8-bit register",
	"segment register",
	"instruction",
	"directive",
	"8-bit number",
	"16-bit number",
	"data definition",
	"identifier",
}

func (k TokenKind) String() string {
	return tokenKindName[k]
}

// Directive identifies an assembler directive.
type Directive byte

// Assembler directives.
const (
	DirOrg    Directive = iota // ORG 100h
	DirData                    // .DATA
	DirCode                    // .CODE
	DirOffset                  // OFFSET name
	DirProc                    // PROC name
	DirEndp                    // ENDP name
	DirByte                    // b. size override
	DirWord                    // w. size override
)

var directives = map[string]Directive{
	"org":    DirOrg,
	".data":  DirData,
	".code":  DirCode,
	"offset": DirOffset,
	"proc":   DirProc,
	"endp":   DirEndp,
	"b.":     DirByte,
	"w.":     DirWord,
}

var directiveName = []string{"ORG", ".DATA", ".CODE", "OFFSET", "PROC", "ENDP", "b.", "w."}

func (d Directive) String() string {
	return directiveName[d]
}

// A Token is one lexical element of a source line.
type Token struct {
	Kind      TokenKind
	Line      int       // 1-based source line number
	Column    int       // 0-based byte column within the line
	Length    int       // length of the token text
	Text      string    // the token text as written
	Value     int       // numeric value, register index or define width
	Directive Directive // directive, when Kind is TokDirective
}

// End returns the column just past the token.
func (t Token) End() int {
	return t.Column + t.Length
}

func (t Token) String() string {
	switch t.Kind {
	case TokNumber8, TokNumber16:
		return fmt.Sprintf("%s 0x%X", t.Kind, t.Value)
	case TokSpace, TokComment:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%s '%s'", t.Kind, t.Text)
	}
}

// Upper returns the token text in upper case, as used in messages.
func (t Token) Upper() string {
	return strings.ToUpper(t.Text)
}

func (t Token) isNumber() bool {
	return t.Kind == TokNumber8 || t.Kind == TokNumber16
}

func (t Token) isRegister() bool {
	return t.Kind == TokReg16 || t.Kind == TokReg8 || t.Kind == TokSegReg
}

func (t Token) isDirective(d Directive) bool {
	return t.Kind == TokDirective && t.Directive == d
}

// Register indices as they appear in the reg and r/m fields of a ModRM
// byte.
const (
	regAX = 0
	regCX = 1
	regDX = 2
	regBX = 3
	regSP = 4
	regBP = 5
	regSI = 6
	regDI = 7

	regAL = 0
	regCL = 1

	segES = 0
	segCS = 1
	segSS = 2
	segDS = 3
)

var reg16Names = []string{"AX", "CX", "DX", "BX", "SP", "BP", "SI", "DI"}
var reg8Names = []string{"AL", "CL", "DL", "BL", "AH", "CH", "DH", "BH"}
var segNames = []string{"ES", "CS", "SS", "DS"}

type regInfo struct {
	kind  TokenKind
	index int
}

var registers = map[string]regInfo{}

func init() {
	for i, n := range reg16Names {
		registers[strings.ToLower(n)] = regInfo{TokReg16, i}
	}
	for i, n := range reg8Names {
		registers[strings.ToLower(n)] = regInfo{TokReg8, i}
	}
	for i, n := range segNames {
		registers[strings.ToLower(n)] = regInfo{TokSegReg, i}
	}
}

func registerName(kind TokenKind, index int) string {
	switch kind {
	case TokReg16:
		return reg16Names[index]
	case TokReg8:
		return reg8Names[index]
	default:
		return segNames[index]
	}
}

var defines = map[string]int{
	"db": 1,
	"dw": 2,
}
