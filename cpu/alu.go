// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "math/bits"

// A width holds the masks of an 8- or 16-bit operation.
type width struct {
	mask uint16
	sign uint16
	bits uint
}

var (
	byteWidth = width{mask: 0xff, sign: 0x80, bits: 8}
	wordWidth = width{mask: 0xffff, sign: 0x8000, bits: 16}
)

func widthOf(wide bool) width {
	if wide {
		return wordWidth
	}
	return byteWidth
}

// Update the Zero, Sign and Parity flags based on the value of 'v'.
func (r *Registers) updateSZP(v uint16, w width) {
	v &= w.mask
	r.Zero = v == 0
	r.Sign = v&w.sign != 0
	r.Parity = bits.OnesCount8(byte(v))%2 == 0
}

// Add a, b and the carry-in, updating all arithmetic flags.
func (r *Registers) add(a, b, carry uint16, w width) uint16 {
	a, b = a&w.mask, b&w.mask
	sum := uint32(a) + uint32(b) + uint32(carry)
	v := uint16(sum) & w.mask
	r.Carry = sum > uint32(w.mask)
	r.Overflow = ^(a^b)&(a^v)&w.sign != 0
	r.Aux = (a^b^v)&0x10 != 0
	r.updateSZP(v, w)
	return v
}

// Subtract b and the borrow-in from a, updating all arithmetic flags.
func (r *Registers) sub(a, b, borrow uint16, w width) uint16 {
	a, b = a&w.mask, b&w.mask
	diff := uint32(a) - uint32(b) - uint32(borrow)
	v := uint16(diff) & w.mask
	r.Carry = diff > uint32(w.mask)
	r.Overflow = (a^b)&(a^v)&w.sign != 0
	r.Aux = (a^b^v)&0x10 != 0
	r.updateSZP(v, w)
	return v
}

// Set the flags of a boolean operation that produced v.
func (r *Registers) logic(v uint16, w width) uint16 {
	r.Carry, r.Overflow, r.Aux = false, false, false
	r.updateSZP(v, w)
	return v & w.mask
}

// An aluOp is one of the eight operations selected by bits 3-5 of opcodes
// 00-3F and by the reg field of opcodes 80-83.
type aluOp struct {
	name  string
	fn    func(r *Registers, a, b uint16, w width) uint16
	store bool // write the result back to the destination
}

var aluOps = [8]aluOp{
	{"add", func(r *Registers, a, b uint16, w width) uint16 { return r.add(a, b, 0, w) }, true},
	{"or", func(r *Registers, a, b uint16, w width) uint16 { return r.logic(a|b, w) }, true},
	{"adc", func(r *Registers, a, b uint16, w width) uint16 { return r.add(a, b, boolToUint16(r.Carry), w) }, true},
	{"sbb", func(r *Registers, a, b uint16, w width) uint16 { return r.sub(a, b, boolToUint16(r.Carry), w) }, true},
	{"and", func(r *Registers, a, b uint16, w width) uint16 { return r.logic(a&b, w) }, true},
	{"sub", func(r *Registers, a, b uint16, w width) uint16 { return r.sub(a, b, 0, w) }, true},
	{"xor", func(r *Registers, a, b uint16, w width) uint16 { return r.logic(a^b, w) }, true},
	{"cmp", func(r *Registers, a, b uint16, w width) uint16 { return r.sub(a, b, 0, w) }, false},
}

// A shiftOp shifts or rotates a value by one bit.
type shiftOp struct {
	name string
	fn   func(r *Registers, v uint16, w width) uint16
}

// Indexed by the reg field of opcodes D0-D3. Slot 6 is undefined.
var shiftOps = [8]shiftOp{
	{"rol", rol},
	{"ror", ror},
	{"rcl", rcl},
	{"rcr", rcr},
	{"shl", shl},
	{"shr", shr},
	{},
	{"sar", sar},
}

func rol(r *Registers, v uint16, w width) uint16 {
	r.Carry = v&w.sign != 0
	v = (v<<1 | boolToUint16(r.Carry)) & w.mask
	r.Overflow = (v&w.sign != 0) != r.Carry
	return v
}

func ror(r *Registers, v uint16, w width) uint16 {
	r.Carry = v&1 != 0
	v = (v>>1 | boolToUint16(r.Carry)<<(w.bits-1)) & w.mask
	r.Overflow = (v&w.sign != 0) != (v&(w.sign>>1) != 0)
	return v
}

func rcl(r *Registers, v uint16, w width) uint16 {
	msb := v&w.sign != 0
	v = (v<<1 | boolToUint16(r.Carry)) & w.mask
	r.Carry = msb
	r.Overflow = (v&w.sign != 0) != msb
	return v
}

func rcr(r *Registers, v uint16, w width) uint16 {
	r.Overflow = (v&w.sign != 0) != r.Carry
	lsb := v&1 != 0
	v = (v>>1 | boolToUint16(r.Carry)<<(w.bits-1)) & w.mask
	r.Carry = lsb
	return v
}

func shl(r *Registers, v uint16, w width) uint16 {
	r.Carry = v&w.sign != 0
	v = (v << 1) & w.mask
	r.Overflow = (v&w.sign != 0) != r.Carry
	r.updateSZP(v, w)
	return v
}

func shr(r *Registers, v uint16, w width) uint16 {
	r.Overflow = v&w.sign != 0
	r.Carry = v&1 != 0
	v = (v & w.mask) >> 1
	r.updateSZP(v, w)
	return v
}

func sar(r *Registers, v uint16, w width) uint16 {
	r.Overflow = false
	r.Carry = v&1 != 0
	v = (v&w.mask)>>1 | v&w.sign
	r.updateSZP(v, w)
	return v
}

// Multiply AL or AX by src. The product goes to AX or DX:AX. Carry and
// Overflow report a non-zero upper half.
func (r *Registers) mul(src uint16, wide bool) {
	if wide {
		p := uint32(r.AX) * uint32(src)
		r.AX, r.DX = uint16(p), uint16(p>>16)
		r.Carry = r.DX != 0
	} else {
		p := uint16(byte(r.AX)) * uint16(byte(src))
		r.AX = p
		r.Carry = p>>8 != 0
	}
	r.Overflow = r.Carry
}

// Signed multiply. Carry and Overflow report that the upper half is not a
// sign extension of the lower half.
func (r *Registers) imul(src uint16, wide bool) {
	if wide {
		p := int32(int16(r.AX)) * int32(int16(src))
		r.AX, r.DX = uint16(p), uint16(p>>16)
		r.Carry = p != int32(int16(p))
	} else {
		p := int16(int8(r.AX)) * int16(int8(src))
		r.AX = uint16(p)
		r.Carry = p != int16(int8(p))
	}
	r.Overflow = r.Carry
}

// Divide AX or DX:AX by src. The quotient goes to AL or AX and the
// remainder to AH or DX. A quotient too large for its register is
// truncated.
func (r *Registers) div(src uint16, wide bool) error {
	if wide {
		if src == 0 {
			return ErrDivideByZero
		}
		n := uint32(r.DX)<<16 | uint32(r.AX)
		r.AX, r.DX = uint16(n/uint32(src)), uint16(n%uint32(src))
		return nil
	}

	d := uint16(byte(src))
	if d == 0 {
		return ErrDivideByZero
	}
	q, rem := r.AX/d, r.AX%d
	r.AX = uint16(byte(rem))<<8 | uint16(byte(q))
	return nil
}

// Signed divide. The quotient rounds toward zero and the remainder takes
// the sign of the dividend.
func (r *Registers) idiv(src uint16, wide bool) error {
	if wide {
		d := int64(int16(src))
		if d == 0 {
			return ErrDivideByZero
		}
		n := int64(int32(uint32(r.DX)<<16 | uint32(r.AX)))
		r.AX, r.DX = uint16(n/d), uint16(n%d)
		return nil
	}

	d := int32(int8(src))
	if d == 0 {
		return ErrDivideByZero
	}
	n := int32(int16(r.AX))
	q, rem := n/d, n%d
	r.AX = uint16(byte(rem))<<8 | uint16(byte(q))
	return nil
}
