// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/beevik/go8086/asm"
	"github.com/beevik/go8086/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCPU(t *testing.T, src string) (*cpu.CPU, *cpu.FlatMemory) {
	t.Helper()
	a, err := asm.AssembleString(src)
	require.NoError(t, err)

	mem := cpu.NewFlatMemory()
	c := cpu.NewCPU(mem)
	c.Load(a.Code, a.OrgDefined)
	return c, mem
}

func stepCPU(t *testing.T, c *cpu.CPU, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		require.NoError(t, c.Step())
	}
}

func runCPU(t *testing.T, src string, steps int) *cpu.CPU {
	t.Helper()
	c, _ := loadCPU(t, src)
	stepCPU(t, c, steps)
	return c
}

// Step until a HLT instruction has executed.
func runUntilHalt(t *testing.T, c *cpu.CPU) {
	t.Helper()
	for i := 0; i < 100000; i++ {
		err := c.Step()
		if errors.Is(err, cpu.ErrHalted) {
			return
		}
		require.NoError(t, err)
	}
	t.Fatal("cpu did not halt")
}

func runToHalt(t *testing.T, src string) *cpu.CPU {
	t.Helper()
	c, _ := loadCPU(t, src)
	runUntilHalt(t, c)
	return c
}

func nops(n int) string {
	return strings.Repeat("\tnop\n", n)
}

func TestMovImmediate(t *testing.T) {
	a, err := asm.AssembleString("mov ax, 0x1234")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xb8, 0x34, 0x12}, a.Code)

	c := runCPU(t, "mov ax, 0x1234", 1)
	assert.Equal(t, uint16(0x1234), c.Reg.AX)
	assert.Equal(t, uint16(3), c.Reg.IP)
	assert.Equal(t, uint64(1), c.Steps)
}

func TestAddFlags(t *testing.T) {
	a, err := asm.AssembleString("add ax, 0xffff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0xff, 0xff}, a.Code)

	c := runCPU(t, "mov ax, 0xffff\nadd ax, 0xffff", 2)
	assert.Equal(t, uint16(0xfffe), c.Reg.AX)
	assert.True(t, c.Reg.Carry)
	assert.False(t, c.Reg.Overflow)
	assert.True(t, c.Reg.Sign)
	assert.False(t, c.Reg.Zero)
	assert.False(t, c.Reg.Parity)
	assert.True(t, c.Reg.Aux)
}

func TestSignedOverflow(t *testing.T) {
	c := runCPU(t, "mov al, 0x7f\nadd al, 1", 2)
	assert.Equal(t, uint16(0x80), c.Reg.AX)
	assert.True(t, c.Reg.Overflow)
	assert.True(t, c.Reg.Sign)
	assert.False(t, c.Reg.Carry)
	assert.True(t, c.Reg.Aux)
}

func TestSubFlags(t *testing.T) {
	c := runCPU(t, "mov al, 1\nsub al, 2", 2)
	assert.Equal(t, uint16(0xff), c.Reg.AX)
	assert.True(t, c.Reg.Carry)
	assert.True(t, c.Reg.Sign)
	assert.False(t, c.Reg.Overflow)
	assert.False(t, c.Reg.Zero)

	c = runCPU(t, "mov ax, 5\ncmp ax, 5", 2)
	assert.Equal(t, uint16(5), c.Reg.AX)
	assert.True(t, c.Reg.Zero)
	assert.False(t, c.Reg.Carry)
}

func TestCarryChain(t *testing.T) {
	src := `
	mov ax, 0xffff
	mov dx, 0
	add ax, 1
	adc dx, 0
	sub ax, 1
	sbb dx, 0`

	c := runCPU(t, src, 4)
	assert.Equal(t, uint16(0), c.Reg.AX)
	assert.Equal(t, uint16(1), c.Reg.DX)

	stepCPU(t, c, 2)
	assert.Equal(t, uint16(0xffff), c.Reg.AX)
	assert.Equal(t, uint16(0), c.Reg.DX)
}

func TestLogic(t *testing.T) {
	c := runCPU(t, "stc\nmov ax, 0xf0f0\nand ax, 0x0ff0", 3)
	assert.Equal(t, uint16(0x00f0), c.Reg.AX)
	assert.False(t, c.Reg.Carry)
	assert.False(t, c.Reg.Overflow)

	c = runCPU(t, "mov ax, 0x1234\nxor ax, ax", 2)
	assert.Equal(t, uint16(0), c.Reg.AX)
	assert.True(t, c.Reg.Zero)
	assert.True(t, c.Reg.Parity)

	c = runCPU(t, "mov bl, 0x0f\nor bl, 0xf0\nnot bx", 3)
	assert.Equal(t, uint16(0xff00), c.Reg.BX)

	c = runCPU(t, "mov al, 0x80\ntest al, 0x80", 2)
	assert.Equal(t, uint16(0x80), c.Reg.AX)
	assert.True(t, c.Reg.Sign)
	assert.False(t, c.Reg.Zero)
}

func TestIncDec(t *testing.T) {
	c := runCPU(t, "stc\nmov ax, 0xffff\ninc ax", 3)
	assert.Equal(t, uint16(0), c.Reg.AX)
	assert.True(t, c.Reg.Zero)
	assert.True(t, c.Reg.Carry)

	c = runCPU(t, "mov cl, 0\ndec cl", 2)
	assert.Equal(t, uint16(0xff), c.Reg.CX)
	assert.True(t, c.Reg.Sign)

	c = runCPU(t, "mov ax, 1\nneg ax", 2)
	assert.Equal(t, uint16(0xffff), c.Reg.AX)
	assert.True(t, c.Reg.Carry)
}

func TestMul(t *testing.T) {
	c := runCPU(t, "mov al, 0x80\nmov bl, 2\nmul bl", 3)
	assert.Equal(t, uint16(0x100), c.Reg.AX)
	assert.True(t, c.Reg.Carry)
	assert.True(t, c.Reg.Overflow)

	c = runCPU(t, "mov ax, 0x1000\nmov cx, 0x20\nmul cx", 3)
	assert.Equal(t, uint16(0), c.Reg.AX)
	assert.Equal(t, uint16(2), c.Reg.DX)

	c = runCPU(t, "mov al, -2\nmov bl, 3\nimul bl", 3)
	assert.Equal(t, uint16(0xfffa), c.Reg.AX)
	assert.False(t, c.Reg.Carry)
}

func TestDiv(t *testing.T) {
	c := runCPU(t, "mov ax, 100\nmov bl, 7\ndiv bl", 3)
	assert.Equal(t, uint16(0x020e), c.Reg.AX)

	c = runCPU(t, "mov dx, 1\nmov ax, 0\nmov cx, 0x10\ndiv cx", 4)
	assert.Equal(t, uint16(0x1000), c.Reg.AX)
	assert.Equal(t, uint16(0), c.Reg.DX)

	c = runCPU(t, "mov ax, -7\nmov bl, 2\nidiv bl", 3)
	assert.Equal(t, uint16(0xfffd), c.Reg.AX)
}

func TestDivOverflowTruncates(t *testing.T) {
	c := runCPU(t, "mov ax, 0x1000\nmov bl, 2\ndiv bl", 3)
	assert.Equal(t, uint16(0), c.Reg.AX)

	c = runCPU(t, "mov ax, 0x0203\nmov bl, 1\ndiv bl", 3)
	assert.Equal(t, uint16(0x0003), c.Reg.AX)
}

func TestDivideByZero(t *testing.T) {
	c, _ := loadCPU(t, "mov ax, 5\nmov bl, 0\ndiv bl")
	stepCPU(t, c, 2)

	err := c.Step()
	require.Error(t, err)
	assert.True(t, errors.Is(err, cpu.ErrDivideByZero))

	var execErr *cpu.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, uint16(5), execErr.IP)
	assert.Equal(t, byte(0xf6), execErr.Opcode)

	assert.Equal(t, uint16(5), c.Reg.IP)
	assert.Equal(t, uint16(5), c.Reg.AX)
}

func TestShift(t *testing.T) {
	c := runCPU(t, "mov al, 0x81\nshl al, 1", 2)
	assert.Equal(t, uint16(0x02), c.Reg.AX)
	assert.True(t, c.Reg.Carry)

	c = runCPU(t, "mov ax, 4\nmov cl, 2\nshr ax, cl", 3)
	assert.Equal(t, uint16(1), c.Reg.AX)
	assert.False(t, c.Reg.Carry)

	c = runCPU(t, "mov al, 0x80\nrol al, 1", 2)
	assert.Equal(t, uint16(1), c.Reg.AX)
	assert.True(t, c.Reg.Carry)

	c = runCPU(t, "mov ax, 0x8000\nsar ax, 1", 2)
	assert.Equal(t, uint16(0xc000), c.Reg.AX)

	c = runCPU(t, "stc\nmov bl, 0\nrcr bl, 1", 3)
	assert.Equal(t, uint16(0x80), c.Reg.BX)
	assert.False(t, c.Reg.Carry)
}

func TestXchgAndLea(t *testing.T) {
	c := runCPU(t, "mov ax, 1\nmov bx, 2\nxchg ax, bx", 3)
	assert.Equal(t, uint16(2), c.Reg.AX)
	assert.Equal(t, uint16(1), c.Reg.BX)

	c = runCPU(t, "mov bx, 0x10\nmov si, 4\nlea ax, [bx+si+2]", 3)
	assert.Equal(t, uint16(0x16), c.Reg.AX)
}

func TestCbwCwd(t *testing.T) {
	c := runCPU(t, "mov al, 0x80\ncbw\ncwd", 3)
	assert.Equal(t, uint16(0xff80), c.Reg.AX)
	assert.Equal(t, uint16(0xffff), c.Reg.DX)
}

func TestStack(t *testing.T) {
	src := `
	mov ax, 0x1234
	push ax
	mov bx, 0x5678
	push bx
	pop ax
	pop bx`

	c, mem := loadCPU(t, src)
	stepCPU(t, c, 4)
	assert.Equal(t, uint16(0xfffa), c.Reg.SP)
	assert.Equal(t, uint16(0x1234), mem.LoadWord(cpu.Physical(c.Reg.SS, 0xfffc)))
	assert.Equal(t, uint16(0x5678), mem.LoadWord(cpu.Physical(c.Reg.SS, 0xfffa)))

	stepCPU(t, c, 2)
	assert.Equal(t, uint16(0x5678), c.Reg.AX)
	assert.Equal(t, uint16(0x1234), c.Reg.BX)
	assert.Equal(t, uint16(0xfffe), c.Reg.SP)
}

func TestPushfPopf(t *testing.T) {
	c := runCPU(t, "stc\npushf\nclc\npopf", 4)
	assert.True(t, c.Reg.Carry)
	assert.Equal(t, uint16(0xfffe), c.Reg.SP)

	c = runCPU(t, "push 5\npush 0x1234\npop ax\npop bx", 4)
	assert.Equal(t, uint16(0x1234), c.Reg.AX)
	assert.Equal(t, uint16(5), c.Reg.BX)
}

func TestJumpShort(t *testing.T) {
	src := `
	mov ax, 1
	jmp skip
	mov ax, 2
skip:
	inc ax`

	c := runCPU(t, src, 3)
	assert.Equal(t, uint16(2), c.Reg.AX)
}

func TestJumpFormsReachTarget(t *testing.T) {
	for _, n := range []int{10, 200} {
		src := "jmp target\n" + nops(n) + "target:\nmov bx, 7\nhlt"
		a, err := asm.AssembleString(src)
		require.NoError(t, err)
		if n < 0x7f {
			assert.Equal(t, byte(0xeb), a.Code[0])
		} else {
			assert.Equal(t, byte(0xe9), a.Code[0])
		}

		c := runCPU(t, src, 2)
		assert.Equal(t, uint16(7), c.Reg.BX)
		assert.Equal(t, uint16(len(a.Code)-1), c.Reg.IP)
	}
}

func TestJumpBackward(t *testing.T) {
	src := `
	mov cx, 3
	mov ax, 0
again:
	add ax, 2
	dec cx
	jnz again
	hlt`

	c := runToHalt(t, src)
	assert.Equal(t, uint16(6), c.Reg.AX)
	assert.Equal(t, uint16(0), c.Reg.CX)
}

func TestBranchLongForm(t *testing.T) {
	for _, n := range []int{4, 200} {
		src := "mov ax, 0\ncmp ax, 0\njz target\nmov bx, 1\n" + nops(n) + "hlt\ntarget:\nmov bx, 9\nhlt"
		c := runToHalt(t, src)
		assert.Equal(t, uint16(9), c.Reg.BX, "distance %d", n)
	}
}

func TestSignedBranches(t *testing.T) {
	src := `
	mov ax, -1
	cmp ax, 1
	jl less
	mov bx, 1
	hlt
less:
	mov bx, 2
	cmp ax, 1
	ja above
	hlt
above:
	mov cx, 3
	hlt`

	c := runToHalt(t, src)
	assert.Equal(t, uint16(2), c.Reg.BX)
	assert.Equal(t, uint16(3), c.Reg.CX)
}

func TestLoop(t *testing.T) {
	c := runToHalt(t, "mov cx, 4\nmov ax, 0\ntop:\ninc ax\nloop top\nhlt")
	assert.Equal(t, uint16(4), c.Reg.AX)
	assert.Equal(t, uint16(0), c.Reg.CX)

	c = runToHalt(t, "mov cx, 3\nmov ax, 0\ntop:\ninc ax\n"+nops(200)+"loop top\nhlt")
	assert.Equal(t, uint16(3), c.Reg.AX)
	assert.Equal(t, uint16(0), c.Reg.CX)

	c = runToHalt(t, "mov cx, 0\njcxz done\nmov ax, 1\ndone:\nhlt")
	assert.Equal(t, uint16(0), c.Reg.AX)
}

func TestCallRet(t *testing.T) {
	src := `
	mov ax, 1
	call double
	call double
	hlt
proc double
	add ax, ax
	ret
endp double`

	c := runToHalt(t, src)
	assert.Equal(t, uint16(4), c.Reg.AX)
	assert.Equal(t, uint16(0xfffe), c.Reg.SP)
}

func TestCallIndirect(t *testing.T) {
	src := `
	mov bx, offset triple
	call bx
	hlt
triple:
	mov ax, 3
	ret`

	c := runToHalt(t, src)
	assert.Equal(t, uint16(3), c.Reg.AX)
}

func TestVariables(t *testing.T) {
	src := `
	.data
	total dw 0x1234
	count db 5
	.code
	mov ax, total
	add ax, 1
	mov total, ax
	mov bl, count`

	c, mem := loadCPU(t, src)
	stepCPU(t, c, 5)
	assert.Equal(t, uint16(0x1235), c.Reg.AX)
	assert.Equal(t, uint16(5), c.Reg.BX)
	assert.Equal(t, uint16(0x1235), mem.LoadWord(cpu.Physical(c.Reg.DS, 2)))
}

func TestOrigin(t *testing.T) {
	src := `
	org 0x100
	.data
	total dw 7
	.code
	mov ax, total
	mov bx, offset total`

	c, mem := loadCPU(t, src)
	assert.Equal(t, uint16(0x700), c.Reg.CS)
	assert.Equal(t, uint16(0x100), c.Reg.IP)
	assert.Equal(t, uint16(7), mem.LoadWord(0x7102))

	stepCPU(t, c, 3)
	assert.Equal(t, uint16(7), c.Reg.AX)
	assert.Equal(t, uint16(0x102), c.Reg.BX)
}

func TestIndexedMemory(t *testing.T) {
	src := `
	mov bx, 0x200
	mov w.[bx+2], 0x55aa
	mov ax, [bx+2]
	mov b.[bx], 1
	add b.[bx], 2`

	c, mem := loadCPU(t, src)
	mem.Delta()

	stepCPU(t, c, 5)
	assert.Equal(t, uint16(0x55aa), c.Reg.AX)
	assert.Equal(t, byte(3), mem.LoadByte(cpu.Physical(c.Reg.DS, 0x200)))

	ds := cpu.Physical(c.Reg.DS, 0)
	assert.Equal(t, []cpu.Change{
		{Addr: ds.Add(0x200), Value: 3},
		{Addr: ds.Add(0x202), Value: 0xaa},
		{Addr: ds.Add(0x203), Value: 0x55},
	}, mem.Delta())
}

func TestPorts(t *testing.T) {
	src := `
	mov al, 0x42
	out 0x60, al
	mov al, 0
	in al, 0x60
	mov dx, 0x3f8
	mov ax, 0x1234
	out dx, ax
	in ax, dx`

	c := runCPU(t, src, 4)
	assert.Equal(t, uint16(0x42), c.Reg.AX)

	stepCPU(t, c, 4)
	assert.Equal(t, uint16(0x1234), c.Reg.AX)
	assert.Equal(t, uint16(0x1234), c.Ports.(cpu.PortMap)[0x3f8])
}

func TestHalt(t *testing.T) {
	c := runCPU(t, "nop\nhlt", 2)
	assert.True(t, c.Halted)
	assert.Equal(t, uint16(2), c.Reg.IP)
	assert.Equal(t, cpu.ErrHalted, c.Step())

	c.Reset()
	assert.False(t, c.Halted)
}

func TestDecodeError(t *testing.T) {
	mem := cpu.NewFlatMemory()
	c := cpu.NewCPU(mem)

	c.Load([]byte{0x0f}, false)
	err := c.Step()
	var decErr *cpu.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, byte(0x0f), decErr.Opcode)
	assert.Equal(t, -1, decErr.Ext)
	assert.Equal(t, cpu.Physical(0x100, 0), decErr.Addr)
	assert.Equal(t, uint16(0), c.Reg.IP)

	c.Load([]byte{0xff, 0xf8}, false)
	err = c.Step()
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, 7, decErr.Ext)

	c.Load([]byte{0x8d, 0xc0}, false)
	require.Error(t, c.Step())
}

func TestReset(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	assert.Equal(t, uint16(0x100), c.Reg.CS)
	assert.Equal(t, uint16(0x100), c.Reg.DS)
	assert.Equal(t, uint16(0x100), c.Reg.SS)
	assert.Equal(t, uint16(0x100), c.Reg.ES)
	assert.Equal(t, uint16(0xfffe), c.Reg.SP)
	assert.Equal(t, uint16(0), c.Reg.IP)
	assert.Equal(t, uint16(cpu.ReservedBit), c.Reg.Flags())
}

type recorder struct {
	hits []uint16
	data []cpu.Addr
}

func (r *recorder) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	r.hits = append(r.hits, b.Address)
}

func (r *recorder) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	r.data = append(r.data, b.Address)
}

func TestDebugger(t *testing.T) {
	c, _ := loadCPU(t, "mov ax, 1\nmov [0x200], ax\nmov [0x300], ax\nhlt")

	r := &recorder{}
	d := cpu.NewDebugger(r)
	c.AttachDebugger(d)

	d.AddBreakpoint(3)
	d.AddBreakpoint(9).Disabled = true
	d.AddDataBreakpoint(cpu.Physical(c.Reg.DS, 0x200))
	d.AddConditionalDataBreakpoint(cpu.Physical(c.Reg.DS, 0x301), 0x02)

	runUntilHalt(t, c)
	assert.Equal(t, []uint16{3}, r.hits)
	assert.Equal(t, []cpu.Addr{cpu.Physical(c.Reg.DS, 0x200)}, r.data)

	bps := d.GetBreakpoints()
	require.Len(t, bps, 2)
	assert.Equal(t, uint16(3), bps[0].Address)

	d.RemoveBreakpoint(3)
	assert.Nil(t, d.GetBreakpoint(3))

	c.DetachDebugger()
	c.Load([]byte{0xa3, 0x00, 0x02}, false)
	stepCPU(t, c, 1)
	assert.Len(t, r.data, 1)
}
