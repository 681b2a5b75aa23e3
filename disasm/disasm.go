// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements an 8086 instruction set
// disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/beevik/go8086/cpu"
)

var reg8Names = []string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
var reg16Names = []string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}
var segNames = []string{"es", "cs", "ss", "ds"}

// Base and index registers selected by the ModRM r/m field
var rmNames = []string{"bx+si", "bx+di", "bp+si", "bp+di", "si", "di", "bp", "bx"}

// Disassemble the machine code in memory 'm' at address cs:ip. Return a
// 'line' string representing the disassembled instruction and a 'next'
// offset that starts the following line of machine code. Bytes that do
// not decode are returned as a one-byte DB line along with the error.
func Disassemble(m cpu.Memory, cs, ip uint16) (line string, next uint16, err error) {
	inst, err := cpu.Decode(m, cs, ip)
	if err != nil {
		return fmt.Sprintf("db 0x%02X", inst.Opcode), ip + 1, err
	}
	return Format(&inst), inst.Next(), nil
}

// Format returns the assembly language text of a decoded instruction.
func Format(inst *cpu.Instruction) string {
	var ops []string

	// A memory operand needs a size prefix when no register implies it.
	// Shift counts in CL do not imply the width.
	sized := isRegister(&inst.Dst) || isRegister(&inst.Src)
	if inst.Opcode == 0xd2 || inst.Opcode == 0xd3 {
		sized = isRegister(&inst.Dst)
	}

	for _, o := range []*cpu.Operand{&inst.Dst, &inst.Src} {
		if o.Kind == cpu.OpNone {
			break
		}
		wide := inst.Wide
		if o.Kind == cpu.OpImm && inst.Opcode&0xfc == 0xe4 {
			// IN and OUT port numbers are always a byte.
			wide = false
		}
		ops = append(ops, operand(o, wide, sized))
	}

	if len(ops) == 0 {
		return inst.Name
	}
	return inst.Name + " " + strings.Join(ops, ", ")
}

func isRegister(o *cpu.Operand) bool {
	return o.Kind == cpu.OpReg8 || o.Kind == cpu.OpReg16 || o.Kind == cpu.OpSeg
}

func operand(o *cpu.Operand, wide, sized bool) string {
	switch o.Kind {
	case cpu.OpReg8:
		return reg8Names[o.Reg]
	case cpu.OpReg16:
		return reg16Names[o.Reg]
	case cpu.OpSeg:
		return segNames[o.Reg]
	case cpu.OpImm:
		if wide {
			return fmt.Sprintf("0x%04X", o.Value)
		}
		return fmt.Sprintf("0x%02X", o.Value&0xff)
	case cpu.OpRel:
		return fmt.Sprintf("0x%04X", o.Value)
	case cpu.OpFar:
		return fmt.Sprintf("0x%04X:0x%04X", o.Seg, o.Value)
	case cpu.OpMem:
		var prefix string
		if !sized {
			prefix = "b."
			if wide {
				prefix = "w."
			}
		}
		return prefix + memory(o)
	default:
		return "?"
	}
}

func memory(o *cpu.Operand) string {
	if o.Direct {
		return fmt.Sprintf("[0x%04X]", o.Value)
	}
	disp := int16(o.Value)
	switch {
	case disp == 0:
		return "[" + rmNames[o.RM] + "]"
	case disp < 0:
		return fmt.Sprintf("[%s-0x%X]", rmNames[o.RM], -int(disp))
	default:
		return fmt.Sprintf("[%s+0x%X]", rmNames[o.RM], disp)
	}
}
