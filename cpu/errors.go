// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrHalted       = errors.New("cpu is halted")
	ErrDivideByZero = errors.New("divide by zero")
)

// A DecodeError is returned when the bytes at an address do not form an
// instruction the CPU implements.
type DecodeError struct {
	Addr   Addr // physical address of the first instruction byte
	Opcode byte // first instruction byte
	Ext    int  // ModRM reg field for group opcodes, or -1
}

func (e *DecodeError) Error() string {
	if e.Ext >= 0 {
		return fmt.Sprintf("unsupported instruction %02X /%d at %s", e.Opcode, e.Ext, e.Addr)
	}
	return fmt.Sprintf("unsupported instruction %02X at %s", e.Opcode, e.Addr)
}

// An ExecutionError wraps a fault raised while executing an instruction.
// The registers are left as they were before the instruction started.
type ExecutionError struct {
	CS, IP uint16 // address of the faulting instruction
	Opcode byte
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%04X:%04X: opcode %02X: %v", e.CS, e.IP, e.Opcode, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
