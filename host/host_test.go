// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/beevik/go8086/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Write source files into a fresh working directory.
func writeSources(t *testing.T, files map[string]string) {
	t.Helper()
	t.Chdir(t.TempDir())
	for name, src := range files {
		require.NoError(t, os.WriteFile(name, []byte(src), 0600))
	}
}

// Run host commands non-interactively and return the output.
func runScript(h *Host, lines ...string) string {
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, false)
	return out.String()
}

func TestHostCompileAndRun(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "mov ax, 1\nadd ax, 2\nhlt"})

	h := New()
	out := runScript(h, "compile prog", "run", "registers")

	assert.Contains(t, out, "Compiled 'prog.asm' to 0100:0000, 7 bytes.")
	assert.Contains(t, out, "CPU halted at 0100:0006.")
	assert.Contains(t, out, "AX=0003")
	assert.Equal(t, uint16(3), h.session.cpu.Reg.AX)
}

func TestHostCompileErrors(t *testing.T) {
	writeSources(t, map[string]string{"bad.asm": "mov al, bx"})

	h := New()
	out := runScript(h, "compile bad.asm")

	assert.Contains(t, out, "Failed to compile 'bad.asm'.")
	assert.Contains(t, out, "Syntax error on line 1, col 9")
	assert.Contains(t, out, "1 error(s).")
	assert.Nil(t, h.session.assembly)
}

func TestHostValidate(t *testing.T) {
	writeSources(t, map[string]string{
		"prog.asm": "mov ax, 1",
		"bad.asm":  "mov al, bx\npush al",
	})

	h := New()
	out := runScript(h, "validate prog", "validate bad")

	assert.Contains(t, out, "No errors found in 'prog.asm'.")
	assert.Contains(t, out, "2 error(s).")
	assert.Nil(t, h.session.assembly)
}

func TestHostBreakpoint(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "mov ax, 1\nadd ax, 2\nhlt"})

	h := New()
	out := runScript(h, "compile prog", "breakpoint add 3", "run", "breakpoint list")
	assert.Contains(t, out, "Breakpoint added at 0003.")
	assert.Contains(t, out, "Breakpoint hit at 0100:0003.")
	assert.Contains(t, out, "0003 true")
	assert.Equal(t, uint16(1), h.session.cpu.Reg.AX)
	assert.Equal(t, uint16(3), h.session.cpu.Reg.IP)

	out = runScript(h, "breakpoint disable 3", "run")
	assert.Contains(t, out, "Breakpoint at 0003 disabled.")
	assert.Contains(t, out, "CPU halted")
	assert.Equal(t, uint16(3), h.session.cpu.Reg.AX)

	out = runScript(h, "breakpoint remove 3", "breakpoint remove 3")
	assert.Contains(t, out, "Breakpoint at 0003 removed.")
	assert.Contains(t, out, "No breakpoint was set on 0003.")
	assert.Empty(t, h.debugger.GetBreakpoints())
}

func TestHostDataBreakpoint(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "mov b.[0x20], 7\nmov b.[0x21], 8\nhlt"})

	h := New()
	out := runScript(h,
		"compile prog",
		"databreakpoint add 0x20 9",
		"databreakpoint add 0x100:0x21 8",
		"run",
		"databreakpoint list")

	assert.Contains(t, out, "Conditional data breakpoint added at 01020 for value 09.")
	assert.Contains(t, out, "Data breakpoint hit on address 01021.")
	assert.NotContains(t, out, "Data breakpoint hit on address 01020.")
	assert.Contains(t, out, "01021 true     08")
	assert.Equal(t, uint16(10), h.session.cpu.Reg.IP)
	assert.Equal(t, byte(8), h.session.mem.LoadByte(cpu.Physical(0x100, 0x21)))
}

func TestHostEndOfProgram(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "mov ax, 1"})

	h := New()
	out := runScript(h, "compile prog", "run")
	assert.Contains(t, out, "Reached the end of the program at 0100:0003.")
}

func TestHostRunStepLimit(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "top: jmp top"})

	h := New()
	out := runScript(h, "compile prog", "set maxrunsteps 5", "run")
	assert.Contains(t, out, "Setting MaxRunSteps updated.")
	assert.Contains(t, out, "Stopped after 5 steps.")
	assert.Equal(t, uint64(5), h.session.cpu.Steps)
}

func TestHostStep(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "mov ax, 1\nmov bx, 2\nhlt"})

	h := New()
	runScript(h, "compile prog", "step 2")
	assert.Equal(t, uint16(2), h.session.cpu.Reg.BX)
	assert.Equal(t, uint16(6), h.session.cpu.Reg.IP)
	assert.Equal(t, uint16(6), h.settings.NextDisasmAddr)

	out := runScript(h, "s", "s")
	assert.Contains(t, out, "CPU halted at 0100:0006.")
	assert.Contains(t, out, "CPU is halted at 0100:0007.")
}

func TestHostNext(t *testing.T) {
	src := `call sub
mov bx, ax
hlt
proc sub
mov ax, 5
ret
endp sub`
	writeSources(t, map[string]string{"prog.asm": src})

	h := New()
	runScript(h, "compile prog", "next")
	assert.Equal(t, uint16(5), h.session.cpu.Reg.AX)
	assert.Equal(t, uint16(3), h.session.cpu.Reg.IP)
	assert.Equal(t, uint16(0xfffe), h.session.cpu.Reg.SP)
	assert.Empty(t, h.debugger.GetBreakpoints())

	runScript(h, "step")
	assert.Equal(t, uint16(5), h.session.cpu.Reg.BX)
}

func TestHostEvaluate(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "start: mov ax, 5\nlast: hlt"})

	h := New()
	out := runScript(h,
		"compile prog",
		"step",
		"evaluate ax * 2",
		"evaluate last",
		"evaluate $10 + 1",
		"evaluate 0 - 1",
		"set hexmode on",
		"evaluate 10")

	assert.Contains(t, out, "0x000A (10)")
	assert.Contains(t, out, "0x0003 (3)")
	assert.Contains(t, out, "0x0011 (17)")
	assert.Contains(t, out, "0xFFFF (-1)")
	assert.Contains(t, out, "Setting HexMode updated.")
	assert.Contains(t, out, "0x0010 (16)")
}

func TestHostRegisters(t *testing.T) {
	h := New()
	out := runScript(h, "registers ax 0x42", "set zf 1", "registers carry 1", "registers ds 0x2000", "r")

	r := &h.session.cpu.Reg
	assert.Contains(t, out, "Register AX set to 0042.")
	assert.Contains(t, out, "Flag ZF set to true.")
	assert.Contains(t, out, "Flag CF set to true.")
	assert.Contains(t, out, "DS=2000")
	assert.Equal(t, uint16(0x42), r.AX)
	assert.Equal(t, uint16(0x2000), r.DS)
	assert.True(t, r.Zero)
	assert.True(t, r.Carry)
}

func TestHostMemoryDump(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "mov ax, 1"})

	h := New()
	out := runScript(h, "compile prog", "memory dump 0x100:0 4", "m $ 2")
	assert.Contains(t, out, "01000  B8 01 00 90")
	assert.Contains(t, out, "01000              90 90")
	assert.Equal(t, uint32(0x1006), h.settings.NextMemDumpAddr)
}

func TestHostDisassemble(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "mov ax, 1\nadd ax, 2\nhlt"})

	h := New()
	out := runScript(h, "compile prog", "disassemble 0 3")
	assert.Contains(t, out, "0100:0000  B8 01 00")
	assert.Contains(t, out, "mov ax, 0x0001")
	assert.Contains(t, out, "; line 2")
	assert.Contains(t, out, "hlt")
	assert.Equal(t, uint16(7), h.settings.NextDisasmAddr)
}

func TestHostReset(t *testing.T) {
	writeSources(t, map[string]string{"prog.asm": "mov ax, 1"})

	h := New()
	out := runScript(h, "compile prog", "step", "reset")
	assert.Contains(t, out, "Machine reset.")
	assert.Equal(t, uint16(0), h.session.cpu.Reg.AX)
	assert.Nil(t, h.session.assembly)
}

func TestHostSettings(t *testing.T) {
	h := New()
	out := runScript(h, "set", "set disasm 3", "set nosuch 1")
	assert.Contains(t, out, "Variables:")
	assert.Contains(t, out, "MaxRunSteps")
	assert.Contains(t, out, "Setting DisasmLines updated.")
	assert.Contains(t, out, "setting 'nosuch' not found")
	assert.Equal(t, 3, h.settings.DisasmLines)
}

func TestHostHelp(t *testing.T) {
	h := New()
	out := runScript(h, "help", "help run", "help breakpoint")
	assert.Contains(t, out, "go8086 commands:")
	assert.Contains(t, out, "compile")
	assert.Contains(t, out, "Syntax: run")
	assert.Contains(t, out, "breakpoint commands:")
	assert.Contains(t, out, "Add a breakpoint")
}

func TestHostCommandErrors(t *testing.T) {
	h := New()
	out := runScript(h, "frobnicate", "quit", "registers")
	assert.Contains(t, out, "Command not found.")
	assert.NotContains(t, out, "AX=")
}

func TestAssembleFile(t *testing.T) {
	writeSources(t, map[string]string{
		"prog.asm": "; listing\nmov ax, 1\nhlt",
		"bad.asm":  "jmp nowhere",
	})

	h := New()
	var out bytes.Buffer
	require.NoError(t, h.AssembleFile(&out, "prog.asm", false))
	assert.Contains(t, out.String(), "; listing")
	assert.Contains(t, out.String(), "0000  B8 01 00")
	assert.Contains(t, out.String(), "0003  F4")
	assert.Contains(t, out.String(), "4 bytes.")

	out.Reset()
	assert.Error(t, h.AssembleFile(&out, "bad.asm", false))
	assert.Contains(t, out.String(), "Failed to assemble 'bad.asm'.")
	assert.Contains(t, out.String(), "Semantic error on line 1")
}
