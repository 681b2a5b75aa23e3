// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(code string) ([]byte, error) {
	r := bytes.NewReader([]byte(code))
	assembly, _, err := Assemble(r, "test", io.Discard, 0)
	if err != nil {
		return []byte{}, err
	}
	return assembly.Code, nil
}

func hexString(code []byte) string {
	b := make([]byte, len(code)*2)
	for i, j := 0, 0; i < len(code); i, j = i+1, j+2 {
		v := code[i]
		b[j+0] = hex[v>>4]
		b[j+1] = hex[v&0x0f]
	}
	return string(b)
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	code, err := assemble(asm)
	if err != nil {
		t.Error(err)
		return
	}

	s := hexString(code)
	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASMError(t *testing.T, asm string, errString string) {
	t.Helper()
	_, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if errString != err.Error() {
		t.Errorf("Expected '%s', got '%v'\n", errString, err)
	}
}

func assembleErrors(t *testing.T, asm string) ErrorList {
	t.Helper()
	_, err := AssembleString(asm)
	require.Error(t, err)
	var list ErrorList
	require.True(t, errors.As(err, &list), "expected an ErrorList, got %T", err)
	return list
}

// Return n single-byte instructions.
func filler(n int) string {
	return strings.Repeat("inc ax\n", n)
}

func TestMov(t *testing.T) {
	asm := `
	mov bx, cx
	mov ax, 0x1234
	mov al, 5
	mov cl, [bx]
	mov [bx+si+0x10], dx
	mov ax, [0x1234]
	mov [0x1234], al
	mov bx, [bp]
	mov w.[bx], 5
	mov b.[di+0x200], 7
	mov ds, ax
	mov ax, es
	mov al, 'A'`

	checkASM(t, asm, "8BD9"+"B83412"+"B005"+"8A0F"+"895010"+"A13412"+"A23412"+
		"8B5E00"+"C7070500"+"C685000207"+"8ED8"+"8CC0"+"B041")
}

func TestALU(t *testing.T) {
	asm := `
	add ax, sp
	sub cx, ax
	add ax, 0xffff
	add bx, 5
	add bx, 0x100
	cmp al, 0x10
	and cl, 0x0f
	xor [bx], ax
	or dx, [si+4]
	sbb b.[bx], 1
	adc ax, -1
	cmp [0x100], 0x1000
	add bx, -2`

	checkASM(t, asm, "03C4"+"2BC8"+"05FFFF"+"83C305"+"81C30001"+"3C10"+"80E10F"+
		"3107"+"0B5404"+"801F01"+"15FFFF"+"813E00010010"+"83C3FE")
}

func TestUnary(t *testing.T) {
	asm := `
	inc ax
	dec bl
	inc b.[bx]
	neg ax
	mul cl
	div [0x100]
	not w.[bx+di]
	idiv bx
	dec di`

	checkASM(t, asm, "40"+"FECB"+"FE07"+"F7D8"+"F6E1"+"F7360001"+"F711"+"F7FB"+"4F")
}

func TestShift(t *testing.T) {
	asm := `
	shl ax, 1
	shr al, cl
	sar bx, 2
	rol b.[si], 1
	sal dx, 1
	rcr cx, cl`

	checkASM(t, asm, "D1E0"+"D2E8"+"D1FBD1FB"+"D004"+"D1E2"+"D3D9")
}

func TestStack(t *testing.T) {
	asm := `
	push ax
	push ds
	pop es
	push [bx]
	pop [bx]
	push 5
	push 0x1234
	pop di
	push cs`

	checkASM(t, asm, "50"+"1E"+"07"+"FF37"+"8F07"+"6A05"+"683412"+"5F"+"0E")
}

func TestMisc(t *testing.T) {
	asm := `
	xchg ax, bx
	xchg cx, ax
	xchg bl, cl
	lea si, [bx+0x10]
	les ax, [bx+si+0x1234]
	lds di, [0x100]
	test al, 1
	test bx, cx
	test b.[bx], 0x80
	in al, 0x60
	in ax, dx
	out 0x61, al
	out dx, ax
	ret
	ret 4`

	checkASM(t, asm, "93"+"91"+"86D9"+"8D7710"+"C4803412"+"C53E0001"+"A801"+"85D9"+
		"F60780"+"E460"+"ED"+"E661"+"EF"+"C3"+"C20400")
}

func TestImplied(t *testing.T) {
	asm := `
	nop
	hlt
	clc
	stc
	cmc
	cld
	std
	cli
	sti
	cbw
	cwd
	pushf
	popf`

	checkASM(t, asm, "90F4F8F9F5FCFDFAFB98999C9D")
}

func TestCaseInsensitive(t *testing.T) {
	asm := `
	MOV BX, CX
	Start:
	Sub Cx, Ax
	JMP start`

	checkASM(t, asm, "8BD92BC8EBFC")
}

func TestNumberFormats(t *testing.T) {
	asm := `
	mov ax, 0x10
	mov ax, 10h
	mov ax, 1010b
	mov ax, 17o
	mov ax, 16
	mov ax, 0ffh`

	checkASM(t, asm, "B81000"+"B81000"+"B80A00"+"B80F00"+"B81000"+"B8FF00")
}

func TestJumpShortForward(t *testing.T) {
	asm := `
	jmp label
	mov ax, bx
	mov bx, cx
	label:
	mov ax, bx
	mov cx, dx`

	checkASM(t, asm, "EB04"+"8BC3"+"8BD9"+"8BC3"+"8BCA")
}

func TestJumpShortBackward(t *testing.T) {
	asm := `
	mov bx, cx
	label:
	sub cx, ax
	jmp label`

	checkASM(t, asm, "8BD92BC8EBFC")
}

func TestJumpRelaxation(t *testing.T) {
	tests := []struct {
		name   string
		asm    string
		prefix string
		suffix string
	}{
		{"forward-short", "jmp l\n" + filler(0x7f) + "l:\n", "EB7F", ""},
		{"forward-near", "jmp l\n" + filler(0x80) + "l:\n", "E98000", ""},
		{"backward-short", "l:\n" + filler(0x7e) + "jmp l\n", "", "EB80"},
		{"backward-near", "l:\n" + filler(0x80) + "jmp l\n", "", "E97DFF"},
		{"jz-long", "jz l\n" + filler(0x80) + "l:\n", "7503E98000", ""},
		{"jcxz-long", "jcxz l\n" + filler(0x80) + "l:\n", "0BC97503E98000", ""},
		{"jg-long", "jg l\n" + filler(0x80) + "l:\n", "7E03E98000", ""},
		{"loop-long", "l:\n" + filler(0x80) + "loop l\n", "", "49E303E97AFF"},
		{"loop-short", "l:\ninc ax\nloop l\n", "", "E2FD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := assemble(tt.asm)
			require.NoError(t, err)
			s := hexString(code)
			assert.True(t, strings.HasPrefix(s, tt.prefix), "prefix of %s", s)
			assert.True(t, strings.HasSuffix(s, tt.suffix), "suffix of %s", s)
		})
	}
}

func TestJumpNumeric(t *testing.T) {
	checkASM(t, "jz 0x10", "740E")
	checkASM(t, "jz 0x00", "74FE")
	checkASM(t, "org 0x100\njz 0x00", "74FE")
	checkASM(t, "jnz 0x10\njc 0x10", "750E720E")
}

func TestJumpIndirect(t *testing.T) {
	asm := `
	jmp ax
	jmp [bx]
	call si
	call [0x200]
	jmp 0x1000:0x20
	call 0xf000:0xfff0`

	checkASM(t, asm, "FFE0"+"FF27"+"FFD6"+"FF160002"+"EA20000010"+"9AF0FF00F0")
}

func TestLoopOutOfRange(t *testing.T) {
	errs := assembleErrors(t, "l:\n"+filler(0x80)+"loope l\n")
	require.Len(t, errs, 1)
	assert.Equal(t, SemanticError, errs[0].Kind)
	assert.Contains(t, errs[0].Message, "out of range")
}

func TestCallProc(t *testing.T) {
	asm := `
	PROC main
	ADD AX, SP
	RET
	ENDP main
	` + filler(0x80) + `
	CALL main
	inc ax`

	code, err := assemble(asm)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe8, 0x7a, 0xff, 0x40}, code[len(code)-4:])
}

func TestCallBeforeProc(t *testing.T) {
	asm := `
	CALL main
	` + filler(0x80) + `
	PROC main
	ADD AX, SP
	RET
	ENDP main
	inc ax`

	code, err := assemble(asm)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe8, 0x80, 0x00}, code[:3])
}

func TestCallAfterProc(t *testing.T) {
	asm := `
	PROC main
		ADD AX, SP
	RET
	ENDP main

	CALL main
	; this is a comment
	inc ax`

	checkASM(t, asm, "03C4C3E8FAFF40")
}

func TestCallAndJumpMixed(t *testing.T) {
	asm := `
	CALL main
	inc ax
	mov ax, bx

	label:

	add ax, sp

	PROC main
	ADD AX, SP ; this is a comment
	RET
	ENDP main
	inc ax
	jmp label`

	checkASM(t, asm, "E80500"+"40"+"8BC3"+"03C4"+"03C4C3"+"40"+"EBF8")
}

func TestProcErrors(t *testing.T) {
	errs := assembleErrors(t, "PROC main\nret\nENDP other")
	require.Len(t, errs, 1)
	assert.Equal(t, SemanticError, errs[0].Kind)
	assert.Equal(t, []string{"main"}, errs[0].Suggestions)

	errs = assembleErrors(t, "PROC main\nret")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "has no ENDP")
}

func TestVariables(t *testing.T) {
	checkASM(t, "var1 db 0x12", "12")
	checkASM(t, "var db 0x12, 0x13, 0x14, 0x15, 0x16", "1213141516")
	checkASM(t, "var db 0x12\nvar2 db 0x13", "1213")
	checkASM(t, "var dw 0x1234, 5", "34120500")

	asm := `
	mov al, b1
	mov ax, w1
	b1 db 0x12
	w1 dw 0x3456`

	checkASM(t, asm, "A00600"+"A10700"+"12"+"5634")
}

func TestVariableSizeMismatch(t *testing.T) {
	errs := assembleErrors(t, "mov al, w1\nw1 dw 5")
	require.Len(t, errs, 1)
	assert.Equal(t, SyntaxError, errs[0].Kind)
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, 8, errs[0].Column)
	assert.Equal(t, 2, errs[0].Length)
}

func TestOffset(t *testing.T) {
	asm := `
	org 100h
	start: mov ax, offset w1
	mov bx, start
	w1 dw 5`

	checkASM(t, asm, "B80601"+"BB0001"+"0500")
}

func TestDataDirective(t *testing.T) {
	asm := `
	org 100h
	.data
	var dw 0x101
	code:
	les ax, [bx+si+0x1234]
	les cx, [si+0x10]
	les si, [0x100]
	les di, var`

	checkASM(t, asm, "EB020101"+"C4803412"+"C44C10"+"C4360001"+"C43E0201")
}

func TestCodeDirective(t *testing.T) {
	asm := `
	.data
	n db 7
	.code
	mov al, n`

	checkASM(t, asm, "EB01"+"07"+"A00200")
}

func TestDataWithoutCode(t *testing.T) {
	errs := assembleErrors(t, ".data\nn db 7")
	require.Len(t, errs, 1)
	assert.Equal(t, []string{".CODE"}, errs[0].Suggestions)
}

func TestOrigin(t *testing.T) {
	assembly, err := AssembleString("org 0x100\nmov ax, 0x1234")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xb8, 0x34, 0x12}, assembly.Code)
	assert.True(t, assembly.OrgDefined)
	assert.Equal(t, uint16(0x100), assembly.Origin)

	assembly, err = AssembleString("org ax\nmov ax, 0x1234")
	require.NoError(t, err)
	assert.False(t, assembly.OrgDefined)
	assert.Equal(t, uint16(0), assembly.Origin)
}

func TestOriginErrors(t *testing.T) {
	errs := assembleErrors(t, ".data\norg 0x100\ncode:")
	require.Len(t, errs, 1)
	assert.Equal(t, SemanticError, errs[0].Kind)
	assert.Equal(t, 2, errs[0].Line)
	assert.Contains(t, errs[0].Message, "before the .DATA directive")

	checkASMError(t, "org 0x200", "line 1, col 5: ORG only supports 0x100 as an argument, got 0x200")
	checkASMError(t, "org", "line 1, col 1: ORG takes exactly one argument")
}

func TestUndefinedLabel(t *testing.T) {
	asm := `jmp nowhere
jmp nowhere
call missing
inc ax`

	errs := assembleErrors(t, asm)
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.Equal(t, SemanticError, e.Kind)
	}
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, 3, errs[1].Line)
	assert.Equal(t, "label missing is not defined", errs[1].Message)
}

func TestUndefinedSuggestion(t *testing.T) {
	errs := assembleErrors(t, "mainloop:\njmp main")
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"mainloop"}, errs[0].Suggestions)
}

func TestDuplicateSymbol(t *testing.T) {
	errs := assembleErrors(t, "a:\na:\njmp a")
	require.Len(t, errs, 1)
	assert.Equal(t, "a is already defined as a label on line 1", errs[0].Message)

	errs = assembleErrors(t, "x db 1\nx:")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "variable")
}

func TestErrorsAccumulate(t *testing.T) {
	asm := `mov al, bx
add [bx], [si]
push al
mov ax, 1`

	errs := assembleErrors(t, asm)
	require.Len(t, errs, 3)
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, 2, errs[1].Line)
	assert.Equal(t, 3, errs[2].Line)
	assert.Contains(t, errs[0].Suggestions, "BL")
}

func TestOperandErrors(t *testing.T) {
	tests := []struct {
		asm string
		msg string
	}{
		{"mov ax, [bx+bp]", "BX and BP cannot be used together"},
		{"mov ax, [si+di]", "SI and DI cannot be used together"},
		{"mov ax, [ax]", "AX cannot be used to address memory"},
		{"mov ax, [bx-si]", "a register cannot be subtracted"},
		{"mov ax, 0xffff+1", "the sum of the values overflows a 16-bit word"},
		{"mov ax, bx+1", "register BX must be enclosed in brackets"},
		{"mov ax, [bx", "missing ']'"},
		{"mov al, 0x100", "expected an 8-bit number for register AL, got 0x100"},
		{"mov al, -129", "expected an 8-bit number for register AL, got -0x81"},
		{"mov b.[bx], -200", "expected an 8-bit number for byte memory, got -0xC8"},
		{"v db 300", "expected an 8-bit number, got 0x12C"},
		{"add bx, 0x1ffff", "the value 0x1ffff overflows a 16-bit word"},
		{"mov ax, -0x8001", "the sum of the values overflows a 16-bit word"},
		{"mov ax, [bx+", "expression ends with an operator"},
		{"l: v db 1\nmov ax, [l+v]", "a label and a variable cannot be mixed in one expression"},
		{"mov 5, ax", "an immediate value cannot be a destination"},
		{"mov cs, ax", "CS cannot be the destination of MOV"},
		{"pop cs", "CS cannot be popped"},
		{"mov", "MOV takes 2 operand(s), got 0"},
		{"inc ax, bx", "INC takes 1 operand(s), got 2"},
		{"jz offset v\nv db 1", "JZ cannot jump to variable v"},
		{"jz v\nv db 1", "JZ does not support mem operands"},
		{"shl ax, dx", "the shift count must be CL or a number"},
		{"in bx, dx", "expected AL or AX, got register"},
		{"movv ax, bx", "unknown instruction movv"},
	}

	for _, tt := range tests {
		t.Run(tt.asm, func(t *testing.T) {
			errs := assembleErrors(t, tt.asm)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.msg, errs[0].Message)
		})
	}
}

func TestLiteralRange(t *testing.T) {
	checkASMError(t, "mov ax, 0x10000", "line 1, col 9: the value 0x10000 overflows a 16-bit word")
	checkASMError(t, "mov ax, 99999999999", "line 1, col 9: the value 99999999999 overflows a 16-bit word")
	checkASMError(t, "v dw 70000", "line 1, col 6: the value 70000 overflows a 16-bit word")
	checkASMError(t, "push 0x12345", "line 1, col 6: the value 0x12345 overflows a 16-bit word")

	errs := assembleErrors(t, "mov ax, 0x10000")
	require.Len(t, errs, 1)
	assert.Equal(t, SemanticError, errs[0].Kind)

	checkASM(t, "mov ax, 0xffff\nmov ax, -0x8000", "B8FFFF"+"B80080")
}

func TestRelaxationLimit(t *testing.T) {
	// Growing the second jump pushes the first one out of short range.
	src := "jmp a\n" + filler(0x7d) + "jmp b\na:\n" + filler(0x80) + "b:\n"

	code, err := assemble(src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hexString(code), "E98000"))

	defer func(f func(int) int) { maxPasses = f }(maxPasses)
	maxPasses = func(int) int { return 2 }

	errs := assembleErrors(t, src)
	require.Len(t, errs, 1)
	assert.Equal(t, SemanticError, errs[0].Kind)
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, "label resolution did not converge after 2 passes", errs[0].Message)
	assert.ErrorIs(t, errs[0], ErrNotConverged)
}

func TestUnknownInstructionSuggestion(t *testing.T) {
	errs := assembleErrors(t, "loopn l\nl:")
	require.Len(t, errs, 1)
	assert.Equal(t, SyntaxError, errs[0].Kind)
	assert.Empty(t, errs[0].Suggestions)

	errs = assembleErrors(t, "xch ax, bx")
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"XCHG"}, errs[0].Suggestions)
}

func TestRender(t *testing.T) {
	errs := assembleErrors(t, "\tmov al, bx")
	require.Len(t, errs, 1)
	lines := strings.Split(errs[0].Render(), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "Syntax error on line 1, col 10: expected an 8-bit register, got 16-bit register BX", lines[0])
	assert.Equal(t, "\tmov al, bx", lines[1])
	assert.Equal(t, "\t--------^^", lines[2])
}

func TestIdempotent(t *testing.T) {
	asm := `
	org 100h
	.data
	table dw 1, 2, 3
	code:
	mov si, offset table
	again:
	` + filler(0x90) + `
	loop again
	jz again
	call done
	done: ret`

	a1, err := AssembleString(asm)
	require.NoError(t, err)
	a2, err := AssembleString(asm)
	require.NoError(t, err)
	assert.Equal(t, a1.Code, a2.Code)
	assert.Equal(t, a1.Refs, a2.Refs)
}

func TestByteRefs(t *testing.T) {
	assembly, err := AssembleString("mov ax, 0x1234")
	require.NoError(t, err)
	require.Len(t, assembly.Refs, 2)
	assert.Equal(t, ByteRef{Bytes: []byte{0xb8}, Line: 1, Column: 0}, assembly.Refs[0])
	assert.Equal(t, ByteRef{Bytes: []byte{0x34, 0x12}, Line: 1, Column: 8}, assembly.Refs[1])
}

func TestSourceMap(t *testing.T) {
	src := "org 100h\nmov ax, bx\n\ninc ax\n"
	_, sm, err := Assemble(strings.NewReader(src), "prog.asm", io.Discard, 0)
	require.NoError(t, err)

	file, line := sm.Search(0x102)
	assert.Equal(t, "prog.asm", file)
	assert.Equal(t, 4, line)

	_, line = sm.Search(0x101)
	assert.Equal(t, -1, line)
	assert.True(t, sm.Contains(0x102))
	assert.False(t, sm.Contains(0x103))
}

func TestVerbose(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Assemble(strings.NewReader("l: jmp l"), "v.asm", &out, Verbose)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "-- Resolving symbols --")
	assert.Contains(t, out.String(), "EB FE")
}

func TestSymbols(t *testing.T) {
	assembly, err := AssembleString("org 100h\nstart: inc ax\nv dw 1\nPROC p\nret\nENDP p")
	require.NoError(t, err)
	assert.Equal(t, Symbol{Name: "start", Kind: SymLabel, Line: 2, Column: 0, Address: 0x100}, assembly.Symbols[NewIdent("START")])
	assert.Equal(t, 0x101, assembly.Symbols["v"].Address)
	assert.Equal(t, 2, assembly.Symbols["v"].Size)
	assert.Equal(t, SymProc, assembly.Symbols["p"].Kind)
	assert.Equal(t, 0x103, assembly.Symbols["p"].Address)
}
