// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// An OperandKind identifies the type of an instruction operand.
type OperandKind byte

// All possible operand kinds.
const (
	OpNone  OperandKind = iota
	OpReg8              // 8-bit register
	OpReg16             // 16-bit register
	OpSeg               // segment register
	OpMem               // memory reference
	OpImm               // immediate value
	OpRel               // near jump target
	OpFar               // far jump target
)

// An Operand is one decoded instruction operand.
type Operand struct {
	Kind   OperandKind
	Reg    byte   // register index of a register operand
	RM     byte   // ModRM r/m field of a memory operand
	Direct bool   // memory operand addressed by Value alone
	Value  uint16 // displacement, direct address, immediate or target offset
	Seg    uint16 // far target segment
}

// An Instruction is one decoded instruction.
type Instruction struct {
	CS, IP uint16 // address of the first byte
	Opcode byte
	Ext    int    // ModRM reg field for group opcodes, or -1
	Name   string // lower-case mnemonic
	Wide   bool   // operates on words
	Dst    Operand
	Src    Operand
	Bytes  []byte
	exec   execFunc
}

// Length returns the number of bytes in the instruction.
func (inst *Instruction) Length() int {
	return len(inst.Bytes)
}

// Next returns the offset of the following instruction.
func (inst *Instruction) Next() uint16 {
	return inst.IP + uint16(len(inst.Bytes))
}

// A form describes the operands encoded by an opcode.
type form byte

const (
	formNone    form = iota
	formGroup        // ModRM reg field selects the operation
	formRMReg        // r/m, reg
	formRegRM        // reg, r/m
	formRegMem       // reg, mem (word only)
	formAccImm       // AL/AX, imm
	formSeg          // segment register in bits 3-4
	formReg          // 16-bit register in bits 0-2
	formAccReg       // AX, 16-bit register in bits 0-2
	formRegImm       // register in bits 0-2, imm; width in bit 3
	formImm          // imm
	formRel8         // 8-bit displacement
	formRel16        // 16-bit displacement
	formFar          // offset, segment
	formAccMem       // AL/AX, [addr]
	formMemAcc       // [addr], AL/AX
	formRMSeg        // r/m, segment register
	formSegRM        // segment register, r/m
	formRM           // r/m
	formRMImm        // r/m, imm
	formRMOne        // r/m, 1
	formRMCL         // r/m, CL
	formAccPort      // AL/AX, imm8
	formPortAcc      // imm8, AL/AX
	formAccDX        // AL/AX, DX
	formDXAcc        // DX, AL/AX
)

// A decoder fetches the bytes of one instruction.
type decoder struct {
	m     Memory
	inst  *Instruction
	modrm byte
	hasRM bool
	undef bool
}

func (d *decoder) fetch() byte {
	b := d.m.LoadByte(Physical(d.inst.CS, d.inst.IP+uint16(len(d.inst.Bytes))))
	d.inst.Bytes = append(d.inst.Bytes, b)
	return b
}

func (d *decoder) fetchWord() uint16 {
	lo := d.fetch()
	hi := d.fetch()
	return uint16(lo) | uint16(hi)<<8
}

// Fetch the ModRM byte on first use and return its reg field.
func (d *decoder) reg() byte {
	if !d.hasRM {
		d.modrm = d.fetch()
		d.hasRM = true
	}
	return (d.modrm >> 3) & 7
}

// Decode the r/m half of the ModRM byte along with its displacement.
func (d *decoder) rm(wide bool) Operand {
	d.reg()
	mod, rm := d.modrm>>6, d.modrm&7
	switch mod {
	case 3:
		return register(rm, wide)
	case 0:
		if rm == 6 {
			return Operand{Kind: OpMem, RM: rm, Direct: true, Value: d.fetchWord()}
		}
		return Operand{Kind: OpMem, RM: rm}
	case 1:
		return Operand{Kind: OpMem, RM: rm, Value: uint16(int8(d.fetch()))}
	default:
		return Operand{Kind: OpMem, RM: rm, Value: d.fetchWord()}
	}
}

func (d *decoder) imm(wide, sext bool) Operand {
	switch {
	case sext:
		return Operand{Kind: OpImm, Value: uint16(int8(d.fetch()))}
	case wide:
		return Operand{Kind: OpImm, Value: d.fetchWord()}
	default:
		return Operand{Kind: OpImm, Value: uint16(d.fetch())}
	}
}

func register(i byte, wide bool) Operand {
	if wide {
		return Operand{Kind: OpReg16, Reg: i}
	}
	return Operand{Kind: OpReg8, Reg: i}
}

// Decode the operands of form f.
func (d *decoder) operands(f form, wide, sext bool) {
	inst, op := d.inst, d.inst.Opcode
	switch f {
	case formRMReg:
		reg := d.reg()
		inst.Dst = d.rm(wide)
		inst.Src = register(reg, wide)
	case formRegRM:
		reg := d.reg()
		inst.Src = d.rm(wide)
		inst.Dst = register(reg, wide)
	case formRegMem:
		reg := d.reg()
		inst.Src = d.rm(true)
		inst.Dst = register(reg, true)
		d.undef = inst.Src.Kind != OpMem
	case formAccImm:
		inst.Dst = register(AX, wide)
		inst.Src = d.imm(wide, sext)
	case formSeg:
		inst.Dst = Operand{Kind: OpSeg, Reg: (op >> 3) & 3}
	case formReg:
		inst.Dst = register(op&7, true)
	case formAccReg:
		inst.Dst = register(AX, true)
		inst.Src = register(op&7, true)
	case formRegImm:
		inst.Dst = register(op&7, wide)
		inst.Src = d.imm(wide, false)
	case formImm:
		inst.Dst = d.imm(wide, sext)
	case formRel8:
		rel := int8(d.fetch())
		inst.Dst = Operand{Kind: OpRel, Value: inst.Next() + uint16(rel)}
	case formRel16:
		rel := d.fetchWord()
		inst.Dst = Operand{Kind: OpRel, Value: inst.Next() + rel}
	case formFar:
		off := d.fetchWord()
		inst.Dst = Operand{Kind: OpFar, Value: off, Seg: d.fetchWord()}
	case formAccMem:
		inst.Dst = register(AX, wide)
		inst.Src = Operand{Kind: OpMem, RM: 6, Direct: true, Value: d.fetchWord()}
	case formMemAcc:
		inst.Dst = Operand{Kind: OpMem, RM: 6, Direct: true, Value: d.fetchWord()}
		inst.Src = register(AX, wide)
	case formRMSeg:
		reg := d.reg()
		inst.Dst = d.rm(true)
		inst.Src = Operand{Kind: OpSeg, Reg: reg & 3}
		d.undef = reg > 3
	case formSegRM:
		reg := d.reg()
		inst.Src = d.rm(true)
		inst.Dst = Operand{Kind: OpSeg, Reg: reg & 3}
		d.undef = reg > 3
	case formRM:
		inst.Dst = d.rm(wide)
	case formRMImm:
		inst.Dst = d.rm(wide)
		inst.Src = d.imm(wide, sext)
	case formRMOne:
		inst.Dst = d.rm(wide)
		inst.Src = Operand{Kind: OpImm, Value: 1}
	case formRMCL:
		inst.Dst = d.rm(wide)
		inst.Src = register(CX, false)
	case formAccPort:
		inst.Dst = register(AX, wide)
		inst.Src = d.imm(false, false)
	case formPortAcc:
		inst.Dst = d.imm(false, false)
		inst.Src = register(AX, wide)
	case formAccDX:
		inst.Dst = register(AX, wide)
		inst.Src = register(DX, true)
	case formDXAcc:
		inst.Dst = register(DX, true)
		inst.Src = register(AX, wide)
	}
}

// Decode decodes the instruction at cs:ip without executing it.
func Decode(m Memory, cs, ip uint16) (Instruction, error) {
	inst := Instruction{CS: cs, IP: ip, Ext: -1}
	d := decoder{m: m, inst: &inst}

	inst.Opcode = d.fetch()
	op := &opcodes[inst.Opcode]
	if op.exec == nil && op.form != formGroup {
		return inst, &DecodeError{Addr: Physical(cs, ip), Opcode: inst.Opcode, Ext: -1}
	}

	inst.Name, inst.Wide, inst.exec = op.name, op.wide, op.exec
	f, sext := op.form, op.sext
	if f == formGroup {
		ext := d.reg()
		inst.Ext = int(ext)
		g := &op.group[ext]
		if g.exec == nil {
			return inst, &DecodeError{Addr: Physical(cs, ip), Opcode: inst.Opcode, Ext: inst.Ext}
		}
		inst.Name, inst.exec, f = g.name, g.exec, g.form
	}

	d.operands(f, inst.Wide, sext)
	if d.undef {
		return inst, &DecodeError{Addr: Physical(cs, ip), Opcode: inst.Opcode, Ext: inst.Ext}
	}
	return inst, nil
}
