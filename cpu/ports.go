// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// The Ports interface presents the I/O port space to the IN and OUT
// instructions.
type Ports interface {
	In(port uint16, wide bool) uint16
	Out(port uint16, wide bool, v uint16)
}

// PortMap is a Ports implementation in which every port holds the last
// value written to it.
type PortMap map[uint16]uint16

// In returns the value last written to the port.
func (p PortMap) In(port uint16, wide bool) uint16 {
	v := p[port]
	if !wide {
		v &= 0xff
	}
	return v
}

// Out stores a value to the port.
func (p PortMap) Out(port uint16, wide bool, v uint16) {
	if !wide {
		v &= 0xff
	}
	p[port] = v
}
