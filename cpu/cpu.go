// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements an 8086 CPU instruction set and emulator.
package cpu

// CPU represents a single 8086 CPU. It contains a pointer to the
// memory associated with the CPU.
type CPU struct {
	Reg       Registers // CPU registers
	Mem       Memory    // assigned memory
	Ports     Ports     // I/O port space
	Steps     uint64    // total executed instructions
	LastIP    uint16    // previous instruction pointer
	Halted    bool      // a HLT instruction was executed
	debugger  *Debugger
	storeByte func(c *CPU, a Addr, v byte)
}

// NewCPU creates an emulated 8086 CPU bound to the specified memory.
func NewCPU(m Memory) *CPU {
	c := &CPU{
		Mem:       m,
		Ports:     make(PortMap),
		storeByte: (*CPU).storeByteNormal,
	}
	c.Reset()
	return c
}

// Reset initializes the registers and clears the halted state. Memory is
// left unchanged.
func (c *CPU) Reset() {
	c.Reg.Init()
	c.Steps = 0
	c.LastIP = 0
	c.Halted = false
}

// Load resets the CPU and copies the code to the program entry point.
// Code assembled with ORG 0x100 starts at 0700:0100 with every segment
// register set to 0x700. Other code starts at 0100:0000.
func (c *CPU) Load(code []byte, orgDefined bool) {
	c.Reset()
	if orgDefined {
		c.Reg.ES, c.Reg.CS, c.Reg.SS, c.Reg.DS = comSegment, comSegment, comSegment, comSegment
		c.Reg.IP = comOrigin
	}
	c.Mem.StoreBytes(c.Entry(), code)
}

// Entry returns the physical address of the current instruction.
func (c *CPU) Entry() Addr {
	return Physical(c.Reg.CS, c.Reg.IP)
}

// Step the cpu by one instruction. A DecodeError or ExecutionError leaves
// the instruction pointer on the failing instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return ErrHalted
	}

	inst, err := Decode(c.Mem, c.Reg.CS, c.Reg.IP)
	if err != nil {
		return err
	}

	c.LastIP = c.Reg.IP
	c.Reg.IP = inst.Next()
	if err := inst.exec(c, &inst); err != nil {
		c.Reg.IP = inst.IP
		return &ExecutionError{CS: inst.CS, IP: inst.IP, Opcode: inst.Opcode, Err: err}
	}
	c.Steps++

	// Update the debugger so it can handle breakpoints.
	if c.debugger != nil {
		c.debugger.onUpdateIP(c, c.Reg.IP)
	}
	return nil
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU executes an instruction or stores a byte
// to memory.
func (c *CPU) AttachDebugger(debugger *Debugger) {
	c.debugger = debugger
	c.storeByte = (*CPU).storeByteDebugger
}

// DetachDebugger detaches the current debugger from the CPU.
func (c *CPU) DetachDebugger() {
	c.debugger = nil
	c.storeByte = (*CPU).storeByteNormal
}

// Return the segment and offset addressed by a memory operand. Operands
// based on BP use the stack segment.
func (c *CPU) effective(o *Operand) (seg, off uint16) {
	r := &c.Reg
	if o.Direct {
		return r.DS, o.Value
	}
	switch o.RM {
	case 0:
		return r.DS, r.BX + r.SI + o.Value
	case 1:
		return r.DS, r.BX + r.DI + o.Value
	case 2:
		return r.SS, r.BP + r.SI + o.Value
	case 3:
		return r.SS, r.BP + r.DI + o.Value
	case 4:
		return r.DS, r.SI + o.Value
	case 5:
		return r.DS, r.DI + o.Value
	case 6:
		return r.SS, r.BP + o.Value
	default:
		return r.DS, r.BX + o.Value
	}
}

func (c *CPU) address(o *Operand) Addr {
	return Physical(c.effective(o))
}

// Load an operand value.
func (c *CPU) read(o *Operand, wide bool) uint16 {
	switch o.Kind {
	case OpReg8:
		return uint16(c.Reg.Reg8(o.Reg))
	case OpReg16:
		return c.Reg.Reg16(o.Reg)
	case OpSeg:
		return c.Reg.Seg(o.Reg)
	case OpMem:
		a := c.address(o)
		if wide {
			return c.Mem.LoadWord(a)
		}
		return uint16(c.Mem.LoadByte(a))
	default:
		return o.Value
	}
}

// Store a value to a register or memory operand.
func (c *CPU) write(o *Operand, wide bool, v uint16) {
	switch o.Kind {
	case OpReg8:
		c.Reg.SetReg8(o.Reg, byte(v))
	case OpReg16:
		c.Reg.SetReg16(o.Reg, v)
	case OpSeg:
		c.Reg.SetSeg(o.Reg, v)
	case OpMem:
		a := c.address(o)
		c.storeByte(c, a, byte(v))
		if wide {
			c.storeByte(c, a.Add(1), byte(v>>8))
		}
	default:
		panic("cpu: write to a read-only operand")
	}
}

// Store the byte value 'v' at the address 'a'.
func (c *CPU) storeByteNormal(a Addr, v byte) {
	c.Mem.StoreByte(a, v)
}

// Store the byte value 'v' at the address 'a', notifying the debugger.
func (c *CPU) storeByteDebugger(a Addr, v byte) {
	c.debugger.onDataStore(c, a, v)
	c.Mem.StoreByte(a, v)
}

// Push a word onto the stack.
func (c *CPU) push(v uint16) {
	c.Reg.SP -= 2
	a := Physical(c.Reg.SS, c.Reg.SP)
	c.storeByte(c, a, byte(v))
	c.storeByte(c, a.Add(1), byte(v>>8))
}

// Pop a word from the stack and return it.
func (c *CPU) pop() uint16 {
	v := c.Mem.LoadWord(Physical(c.Reg.SS, c.Reg.SP))
	c.Reg.SP += 2
	return v
}
