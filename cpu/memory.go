// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"
	"sort"
)

// MemorySize is the size of the 20-bit physical address space.
const MemorySize = 1 << 20

// The byte every memory cell holds after a clear (NOP).
const fillByte = 0x90

// An Addr is a 20-bit physical address.
type Addr uint32

// Physical combines a segment and an offset into a physical address.
func Physical(seg, off uint16) Addr {
	return (Addr(seg)<<4 + Addr(off)) & (MemorySize - 1)
}

// Add returns the address n bytes away from a, wrapping at 1 MiB.
func (a Addr) Add(n int) Addr {
	return Addr(int(a)+n) & (MemorySize - 1)
}

// SegmentOffset returns the canonical segment:offset pair for a, with the
// offset in the range 0-15.
func (a Addr) SegmentOffset() (seg, off uint16) {
	return uint16(a >> 4), uint16(a & 0xf)
}

func (a Addr) String() string {
	return fmt.Sprintf("%05X", uint32(a))
}

// The Memory interface presents an interface to the CPU through which all
// memory accesses occur.
type Memory interface {
	// LoadByte loads a single byte from the address and returns it.
	LoadByte(a Addr) byte

	// LoadBytes loads multiple bytes from the address and stores them into
	// the buffer 'b'.
	LoadBytes(a Addr, b []byte)

	// LoadWord loads a little-endian 16-bit value from the address.
	LoadWord(a Addr) uint16

	// StoreByte stores a byte to the requested address.
	StoreByte(a Addr, v byte)

	// StoreBytes stores multiple bytes to the requested address.
	StoreBytes(a Addr, b []byte)

	// StoreWord stores a little-endian 16-bit value to the address.
	StoreWord(a Addr, v uint16)
}

// A Change records the new value of a memory cell.
type Change struct {
	Addr  Addr
	Value byte
}

// FlatMemory represents the entire 20-bit address space as a singular
// 1 MiB buffer. It remembers which cells were written since the last call
// to Delta.
type FlatMemory struct {
	b     [MemorySize]byte
	dirty map[Addr]struct{}
}

// NewFlatMemory creates a new 20-bit memory space filled with NOPs.
func NewFlatMemory() *FlatMemory {
	m := &FlatMemory{}
	m.Clear()
	return m
}

// Clear fills the memory with NOPs and forgets all changes.
func (m *FlatMemory) Clear() {
	for i := range m.b {
		m.b[i] = fillByte
	}
	m.dirty = make(map[Addr]struct{})
}

// LoadByte loads a single byte from the address and returns it.
func (m *FlatMemory) LoadByte(a Addr) byte {
	return m.b[a&(MemorySize-1)]
}

// LoadBytes loads multiple bytes from the address, wrapping at 1 MiB.
func (m *FlatMemory) LoadBytes(a Addr, b []byte) {
	for i := range b {
		b[i] = m.LoadByte(a.Add(i))
	}
}

// LoadWord loads a little-endian 16-bit value from the address.
func (m *FlatMemory) LoadWord(a Addr) uint16 {
	return uint16(m.LoadByte(a)) | uint16(m.LoadByte(a.Add(1)))<<8
}

// StoreByte stores a byte at the requested address.
func (m *FlatMemory) StoreByte(a Addr, v byte) {
	a &= MemorySize - 1
	m.b[a] = v
	m.dirty[a] = struct{}{}
}

// StoreBytes stores multiple bytes to the requested address.
func (m *FlatMemory) StoreBytes(a Addr, b []byte) {
	for i, v := range b {
		m.StoreByte(a.Add(i), v)
	}
}

// StoreWord stores a little-endian 16-bit value to the address.
func (m *FlatMemory) StoreWord(a Addr, v uint16) {
	m.StoreByte(a, byte(v))
	m.StoreByte(a.Add(1), byte(v>>8))
}

// Delta returns the cells written since the previous call, ordered by
// address, and forgets them.
func (m *FlatMemory) Delta() []Change {
	changes := make([]Change, 0, len(m.dirty))
	for a := range m.dirty {
		changes = append(changes, Change{Addr: a, Value: m.b[a]})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Addr < changes[j].Addr
	})
	m.dirty = make(map[Addr]struct{})
	return changes
}
