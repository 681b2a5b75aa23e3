// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Registers contains the state of all 8086 registers.
type Registers struct {
	AX, CX, DX, BX uint16 // general purpose registers
	SP, BP, SI, DI uint16 // pointer and index registers
	ES, CS, SS, DS uint16 // segment registers
	IP             uint16 // instruction pointer

	Carry     bool // FLAGS: carry
	Parity    bool // FLAGS: even parity of the low result byte
	Aux       bool // FLAGS: carry out of the low nibble
	Zero      bool // FLAGS: zero
	Sign      bool // FLAGS: sign
	Trap      bool // FLAGS: single-step trap
	Interrupt bool // FLAGS: interrupt enable
	Direction bool // FLAGS: string direction
	Overflow  bool // FLAGS: signed overflow
}

// Bits assigned to the FLAGS word
const (
	CarryBit     = 1 << 0
	ReservedBit  = 1 << 1
	ParityBit    = 1 << 2
	AuxBit       = 1 << 4
	ZeroBit      = 1 << 6
	SignBit      = 1 << 7
	TrapBit      = 1 << 8
	InterruptBit = 1 << 9
	DirectionBit = 1 << 10
	OverflowBit  = 1 << 11
)

// Register indices as they appear in ModRM fields.
const (
	AX = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
)

// Segment register indices as they appear in ModRM fields.
const (
	ES = iota
	CS
	SS
	DS
)

// Reset values of the segment registers and stack pointer.
const (
	defaultSegment = 0x100
	comSegment     = 0x700
	comOrigin      = 0x100
	stackTop       = 0xfffe
)

// Flags saves the CPU flags into a FLAGS word.
func (r *Registers) Flags() uint16 {
	var f uint16 = ReservedBit // always set
	if r.Carry {
		f |= CarryBit
	}
	if r.Parity {
		f |= ParityBit
	}
	if r.Aux {
		f |= AuxBit
	}
	if r.Zero {
		f |= ZeroBit
	}
	if r.Sign {
		f |= SignBit
	}
	if r.Trap {
		f |= TrapBit
	}
	if r.Interrupt {
		f |= InterruptBit
	}
	if r.Direction {
		f |= DirectionBit
	}
	if r.Overflow {
		f |= OverflowBit
	}
	return f
}

// SetFlags restores the CPU flags from a FLAGS word.
func (r *Registers) SetFlags(f uint16) {
	r.Carry = f&CarryBit != 0
	r.Parity = f&ParityBit != 0
	r.Aux = f&AuxBit != 0
	r.Zero = f&ZeroBit != 0
	r.Sign = f&SignBit != 0
	r.Trap = f&TrapBit != 0
	r.Interrupt = f&InterruptBit != 0
	r.Direction = f&DirectionBit != 0
	r.Overflow = f&OverflowBit != 0
}

func (r *Registers) reg16(i byte) *uint16 {
	switch i & 7 {
	case AX:
		return &r.AX
	case CX:
		return &r.CX
	case DX:
		return &r.DX
	case BX:
		return &r.BX
	case SP:
		return &r.SP
	case BP:
		return &r.BP
	case SI:
		return &r.SI
	default:
		return &r.DI
	}
}

// Reg16 returns the 16-bit register with ModRM index i.
func (r *Registers) Reg16(i byte) uint16 {
	return *r.reg16(i)
}

// SetReg16 updates the 16-bit register with ModRM index i.
func (r *Registers) SetReg16(i byte, v uint16) {
	*r.reg16(i) = v
}

// Reg8 returns the 8-bit register with ModRM index i. Indices 0-3 select
// AL, CL, DL and BL. Indices 4-7 select AH, CH, DH and BH.
func (r *Registers) Reg8(i byte) byte {
	v := *r.reg16(i & 3)
	if i&4 != 0 {
		return byte(v >> 8)
	}
	return byte(v)
}

// SetReg8 updates the 8-bit register with ModRM index i.
func (r *Registers) SetReg8(i byte, v byte) {
	p := r.reg16(i & 3)
	if i&4 != 0 {
		*p = *p&0x00ff | uint16(v)<<8
	} else {
		*p = *p&0xff00 | uint16(v)
	}
}

func (r *Registers) seg(i byte) *uint16 {
	switch i & 3 {
	case ES:
		return &r.ES
	case CS:
		return &r.CS
	case SS:
		return &r.SS
	default:
		return &r.DS
	}
}

// Seg returns the segment register with ModRM index i.
func (r *Registers) Seg(i byte) uint16 {
	return *r.seg(i)
}

// SetSeg updates the segment register with ModRM index i.
func (r *Registers) SetSeg(i byte, v uint16) {
	*r.seg(i) = v
}

func boolToUint16(v bool) uint16 {
	if v {
		return 1
	}
	return 0
}

// Init initializes all registers. General purpose registers and flags are
// cleared, every segment register is 0x100, SP is 0xFFFE and IP is 0.
func (r *Registers) Init() {
	*r = Registers{
		ES: defaultSegment,
		CS: defaultSegment,
		SS: defaultSegment,
		DS: defaultSegment,
		SP: stackTop,
	}
}
