// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

type execFunc func(c *CPU, inst *Instruction) error

// An opcode describes the first byte of an instruction.
type opcode struct {
	name  string
	form  form
	wide  bool
	sext  bool // byte immediate sign-extended to a word
	exec  execFunc
	group *[8]groupOp
}

// A groupOp is one operation of a group opcode, selected by the ModRM
// reg field.
type groupOp struct {
	name string
	form form
	exec execFunc
}

var opcodes [256]opcode

func set(op byte, name string, f form, wide bool, exec execFunc) {
	opcodes[op] = opcode{name: name, form: f, wide: wide, exec: exec}
}

// Set a byte/word opcode pair.
func pair(op byte, name string, f form, exec execFunc) {
	set(op, name, f, false, exec)
	set(op|1, name, f, true, exec)
}

func group(op byte, wide, sext bool, g *[8]groupOp) {
	opcodes[op] = opcode{form: formGroup, wide: wide, sext: sext, group: g}
}

func init() {
	for i := range aluOps {
		base := byte(i) << 3
		exec := aluExec(&aluOps[i])
		pair(base, aluOps[i].name, formRMReg, exec)
		pair(base+2, aluOps[i].name, formRegRM, exec)
		pair(base+4, aluOps[i].name, formAccImm, exec)
	}

	for _, seg := range []byte{ES, CS, SS, DS} {
		set(0x06|seg<<3, "push", formSeg, true, execPush)
		if seg != CS {
			set(0x07|seg<<3, "pop", formSeg, true, execPop)
		}
	}

	for r := byte(0); r < 8; r++ {
		set(0x40+r, "inc", formReg, true, execInc)
		set(0x48+r, "dec", formReg, true, execDec)
		set(0x50+r, "push", formReg, true, execPush)
		set(0x58+r, "pop", formReg, true, execPop)
		set(0x90+r, "xchg", formAccReg, true, execXchg)
		set(0xb0+r, "mov", formRegImm, false, execMov)
		set(0xb8+r, "mov", formRegImm, true, execMov)
	}
	set(0x90, "nop", formNone, true, execNop)

	set(0x68, "push", formImm, true, execPush)
	opcodes[0x6a] = opcode{name: "push", form: formImm, wide: true, sext: true, exec: execPush}

	for cc := range conditions {
		set(0x70+byte(cc), conditions[cc].name, formRel8, false, jumpIf(conditions[cc].test))
	}

	grp1 := new([8]groupOp)
	for i := range aluOps {
		grp1[i] = groupOp{aluOps[i].name, formRMImm, aluExec(&aluOps[i])}
	}
	group(0x80, false, false, grp1)
	group(0x81, true, false, grp1)
	group(0x82, false, false, grp1)
	group(0x83, true, true, grp1)

	pair(0x84, "test", formRMReg, execTest)
	pair(0x86, "xchg", formRMReg, execXchg)
	pair(0x88, "mov", formRMReg, execMov)
	pair(0x8a, "mov", formRegRM, execMov)
	set(0x8c, "mov", formRMSeg, true, execMov)
	set(0x8d, "lea", formRegMem, true, execLea)
	set(0x8e, "mov", formSegRM, true, execMov)
	group(0x8f, true, false, &[8]groupOp{{"pop", formRM, execPop}})

	set(0x98, "cbw", formNone, false, execCbw)
	set(0x99, "cwd", formNone, true, execCwd)
	set(0x9a, "call", formFar, true, execCallFar)
	set(0x9c, "pushf", formNone, true, execPushf)
	set(0x9d, "popf", formNone, true, execPopf)

	pair(0xa0, "mov", formAccMem, execMov)
	pair(0xa2, "mov", formMemAcc, execMov)
	pair(0xa8, "test", formAccImm, execTest)

	set(0xc2, "ret", formImm, true, execRet)
	set(0xc3, "ret", formNone, true, execRet)
	set(0xc4, "les", formRegMem, true, loadFar(ES))
	set(0xc5, "lds", formRegMem, true, loadFar(DS))
	mov := &[8]groupOp{{"mov", formRMImm, execMov}}
	group(0xc6, false, false, mov)
	group(0xc7, true, false, mov)
	set(0xca, "retf", formImm, true, execRetf)
	set(0xcb, "retf", formNone, true, execRetf)

	one, cl := new([8]groupOp), new([8]groupOp)
	for i := range shiftOps {
		if shiftOps[i].fn != nil {
			one[i] = groupOp{shiftOps[i].name, formRMOne, shift(shiftOps[i].fn)}
			cl[i] = groupOp{shiftOps[i].name, formRMCL, shift(shiftOps[i].fn)}
		}
	}
	group(0xd0, false, false, one)
	group(0xd1, true, false, one)
	group(0xd2, false, false, cl)
	group(0xd3, true, false, cl)

	set(0xe0, "loopne", formRel8, false, loopIf(func(r *Registers) bool { return !r.Zero }))
	set(0xe1, "loope", formRel8, false, loopIf(func(r *Registers) bool { return r.Zero }))
	set(0xe2, "loop", formRel8, false, loopIf(func(r *Registers) bool { return true }))
	set(0xe3, "jcxz", formRel8, false, jumpIf(func(r *Registers) bool { return r.CX == 0 }))
	pair(0xe4, "in", formAccPort, execIn)
	pair(0xe6, "out", formPortAcc, execOut)
	set(0xe8, "call", formRel16, true, execCall)
	set(0xe9, "jmp", formRel16, true, execJmp)
	set(0xea, "jmp", formFar, true, execJmpFar)
	set(0xeb, "jmp", formRel8, false, execJmp)
	pair(0xec, "in", formAccDX, execIn)
	pair(0xee, "out", formDXAcc, execOut)

	set(0xf4, "hlt", formNone, false, execHlt)
	set(0xf5, "cmc", formNone, false, flag(func(r *Registers) { r.Carry = !r.Carry }))
	grp3 := &[8]groupOp{
		0: {"test", formRMImm, execTest},
		2: {"not", formRM, execNot},
		3: {"neg", formRM, execNeg},
		4: {"mul", formRM, execMul},
		5: {"imul", formRM, execImul},
		6: {"div", formRM, execDiv},
		7: {"idiv", formRM, execIdiv},
	}
	group(0xf6, false, false, grp3)
	group(0xf7, true, false, grp3)
	set(0xf8, "clc", formNone, false, flag(func(r *Registers) { r.Carry = false }))
	set(0xf9, "stc", formNone, false, flag(func(r *Registers) { r.Carry = true }))
	set(0xfa, "cli", formNone, false, flag(func(r *Registers) { r.Interrupt = false }))
	set(0xfb, "sti", formNone, false, flag(func(r *Registers) { r.Interrupt = true }))
	set(0xfc, "cld", formNone, false, flag(func(r *Registers) { r.Direction = false }))
	set(0xfd, "std", formNone, false, flag(func(r *Registers) { r.Direction = true }))
	group(0xfe, false, false, &[8]groupOp{
		0: {"inc", formRM, execInc},
		1: {"dec", formRM, execDec},
	})
	group(0xff, true, false, &[8]groupOp{
		0: {"inc", formRM, execInc},
		1: {"dec", formRM, execDec},
		2: {"call", formRM, execCallIndirect},
		4: {"jmp", formRM, execJmpIndirect},
		6: {"push", formRM, execPush},
	})
}

// Jump conditions indexed by the low nibble of opcodes 70-7F.
var conditions = [16]struct {
	name string
	test func(r *Registers) bool
}{
	{"jo", func(r *Registers) bool { return r.Overflow }},
	{"jno", func(r *Registers) bool { return !r.Overflow }},
	{"jb", func(r *Registers) bool { return r.Carry }},
	{"jae", func(r *Registers) bool { return !r.Carry }},
	{"je", func(r *Registers) bool { return r.Zero }},
	{"jne", func(r *Registers) bool { return !r.Zero }},
	{"jbe", func(r *Registers) bool { return r.Carry || r.Zero }},
	{"ja", func(r *Registers) bool { return !r.Carry && !r.Zero }},
	{"js", func(r *Registers) bool { return r.Sign }},
	{"jns", func(r *Registers) bool { return !r.Sign }},
	{"jp", func(r *Registers) bool { return r.Parity }},
	{"jnp", func(r *Registers) bool { return !r.Parity }},
	{"jl", func(r *Registers) bool { return r.Sign != r.Overflow }},
	{"jge", func(r *Registers) bool { return r.Sign == r.Overflow }},
	{"jle", func(r *Registers) bool { return r.Zero || r.Sign != r.Overflow }},
	{"jg", func(r *Registers) bool { return !r.Zero && r.Sign == r.Overflow }},
}

//
// execution functions
//

func aluExec(op *aluOp) execFunc {
	return func(c *CPU, inst *Instruction) error {
		a := c.read(&inst.Dst, inst.Wide)
		b := c.read(&inst.Src, inst.Wide)
		v := op.fn(&c.Reg, a, b, widthOf(inst.Wide))
		if op.store {
			c.write(&inst.Dst, inst.Wide, v)
		}
		return nil
	}
}

func shift(fn func(r *Registers, v uint16, w width) uint16) execFunc {
	return func(c *CPU, inst *Instruction) error {
		count := c.read(&inst.Src, false) & 0xff
		if count == 0 {
			return nil
		}
		v := c.read(&inst.Dst, inst.Wide)
		w := widthOf(inst.Wide)
		for i := uint16(0); i < count; i++ {
			v = fn(&c.Reg, v, w)
		}
		c.write(&inst.Dst, inst.Wide, v)
		return nil
	}
}

func flag(fn func(r *Registers)) execFunc {
	return func(c *CPU, inst *Instruction) error {
		fn(&c.Reg)
		return nil
	}
}

func jumpIf(test func(r *Registers) bool) execFunc {
	return func(c *CPU, inst *Instruction) error {
		if test(&c.Reg) {
			c.Reg.IP = inst.Dst.Value
		}
		return nil
	}
}

// Decrement CX without touching the flags and jump while it is non-zero
// and the test passes.
func loopIf(test func(r *Registers) bool) execFunc {
	return func(c *CPU, inst *Instruction) error {
		c.Reg.CX--
		if c.Reg.CX != 0 && test(&c.Reg) {
			c.Reg.IP = inst.Dst.Value
		}
		return nil
	}
}

func loadFar(seg byte) execFunc {
	return func(c *CPU, inst *Instruction) error {
		a := c.address(&inst.Src)
		c.Reg.SetReg16(inst.Dst.Reg, c.Mem.LoadWord(a))
		c.Reg.SetSeg(seg, c.Mem.LoadWord(a.Add(2)))
		return nil
	}
}

func execNop(c *CPU, inst *Instruction) error {
	return nil
}

func execMov(c *CPU, inst *Instruction) error {
	c.write(&inst.Dst, inst.Wide, c.read(&inst.Src, inst.Wide))
	return nil
}

func execXchg(c *CPU, inst *Instruction) error {
	a := c.read(&inst.Dst, inst.Wide)
	b := c.read(&inst.Src, inst.Wide)
	c.write(&inst.Dst, inst.Wide, b)
	c.write(&inst.Src, inst.Wide, a)
	return nil
}

func execTest(c *CPU, inst *Instruction) error {
	a := c.read(&inst.Dst, inst.Wide)
	b := c.read(&inst.Src, inst.Wide)
	c.Reg.logic(a&b, widthOf(inst.Wide))
	return nil
}

func execLea(c *CPU, inst *Instruction) error {
	_, off := c.effective(&inst.Src)
	c.Reg.SetReg16(inst.Dst.Reg, off)
	return nil
}

// INC and DEC leave the carry flag untouched.
func execInc(c *CPU, inst *Instruction) error {
	carry := c.Reg.Carry
	v := c.Reg.add(c.read(&inst.Dst, inst.Wide), 1, 0, widthOf(inst.Wide))
	c.write(&inst.Dst, inst.Wide, v)
	c.Reg.Carry = carry
	return nil
}

func execDec(c *CPU, inst *Instruction) error {
	carry := c.Reg.Carry
	v := c.Reg.sub(c.read(&inst.Dst, inst.Wide), 1, 0, widthOf(inst.Wide))
	c.write(&inst.Dst, inst.Wide, v)
	c.Reg.Carry = carry
	return nil
}

func execNot(c *CPU, inst *Instruction) error {
	c.write(&inst.Dst, inst.Wide, ^c.read(&inst.Dst, inst.Wide))
	return nil
}

func execNeg(c *CPU, inst *Instruction) error {
	v := c.Reg.sub(0, c.read(&inst.Dst, inst.Wide), 0, widthOf(inst.Wide))
	c.write(&inst.Dst, inst.Wide, v)
	return nil
}

func execMul(c *CPU, inst *Instruction) error {
	c.Reg.mul(c.read(&inst.Dst, inst.Wide), inst.Wide)
	return nil
}

func execImul(c *CPU, inst *Instruction) error {
	c.Reg.imul(c.read(&inst.Dst, inst.Wide), inst.Wide)
	return nil
}

func execDiv(c *CPU, inst *Instruction) error {
	return c.Reg.div(c.read(&inst.Dst, inst.Wide), inst.Wide)
}

func execIdiv(c *CPU, inst *Instruction) error {
	return c.Reg.idiv(c.read(&inst.Dst, inst.Wide), inst.Wide)
}

func execPush(c *CPU, inst *Instruction) error {
	c.push(c.read(&inst.Dst, true))
	return nil
}

func execPop(c *CPU, inst *Instruction) error {
	c.write(&inst.Dst, true, c.pop())
	return nil
}

func execPushf(c *CPU, inst *Instruction) error {
	c.push(c.Reg.Flags())
	return nil
}

func execPopf(c *CPU, inst *Instruction) error {
	c.Reg.SetFlags(c.pop())
	return nil
}

func execCbw(c *CPU, inst *Instruction) error {
	c.Reg.AX = uint16(int8(c.Reg.AX))
	return nil
}

func execCwd(c *CPU, inst *Instruction) error {
	if c.Reg.AX&0x8000 != 0 {
		c.Reg.DX = 0xffff
	} else {
		c.Reg.DX = 0
	}
	return nil
}

func execJmp(c *CPU, inst *Instruction) error {
	c.Reg.IP = inst.Dst.Value
	return nil
}

func execJmpFar(c *CPU, inst *Instruction) error {
	c.Reg.CS, c.Reg.IP = inst.Dst.Seg, inst.Dst.Value
	return nil
}

func execJmpIndirect(c *CPU, inst *Instruction) error {
	c.Reg.IP = c.read(&inst.Dst, true)
	return nil
}

func execCall(c *CPU, inst *Instruction) error {
	c.push(c.Reg.IP)
	c.Reg.IP = inst.Dst.Value
	return nil
}

func execCallFar(c *CPU, inst *Instruction) error {
	c.push(c.Reg.CS)
	c.push(c.Reg.IP)
	c.Reg.CS, c.Reg.IP = inst.Dst.Seg, inst.Dst.Value
	return nil
}

func execCallIndirect(c *CPU, inst *Instruction) error {
	target := c.read(&inst.Dst, true)
	c.push(c.Reg.IP)
	c.Reg.IP = target
	return nil
}

// RET with an immediate releases that many bytes of arguments.
func execRet(c *CPU, inst *Instruction) error {
	c.Reg.IP = c.pop()
	if inst.Dst.Kind == OpImm {
		c.Reg.SP += inst.Dst.Value
	}
	return nil
}

func execRetf(c *CPU, inst *Instruction) error {
	c.Reg.IP = c.pop()
	c.Reg.CS = c.pop()
	if inst.Dst.Kind == OpImm {
		c.Reg.SP += inst.Dst.Value
	}
	return nil
}

func execIn(c *CPU, inst *Instruction) error {
	port := c.read(&inst.Src, true)
	c.write(&inst.Dst, inst.Wide, c.Ports.In(port, inst.Wide))
	return nil
}

func execOut(c *CPU, inst *Instruction) error {
	port := c.read(&inst.Dst, true)
	c.Ports.Out(port, inst.Wide, c.read(&inst.Src, inst.Wide))
	return nil
}

func execHlt(c *CPU, inst *Instruction) error {
	c.Halted = true
	return nil
}
