// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"fmt"

	"github.com/beevik/go8086/cpu"
)

// Flag letters in display order, paired with their FLAGS bits.
var flagLetters = []struct {
	letter byte
	bit    uint16
}{
	{'O', cpu.OverflowBit},
	{'D', cpu.DirectionBit},
	{'I', cpu.InterruptBit},
	{'T', cpu.TrapBit},
	{'S', cpu.SignBit},
	{'Z', cpu.ZeroBit},
	{'A', cpu.AuxBit},
	{'P', cpu.ParityBit},
	{'C', cpu.CarryBit},
}

// RegisterString returns a one-line string describing the register file.
// Set flags appear as capital letters and clear flags as dashes.
func RegisterString(r *cpu.Registers) string {
	return fmt.Sprintf("AX=%04X BX=%04X CX=%04X DX=%04X SP=%04X BP=%04X SI=%04X DI=%04X "+
		"DS=%04X ES=%04X SS=%04X CS=%04X IP=%04X %s",
		r.AX, r.BX, r.CX, r.DX, r.SP, r.BP, r.SI, r.DI,
		r.DS, r.ES, r.SS, r.CS, r.IP, FlagString(r.Flags()))
}

// FlagString formats the FLAGS word as ODITSZAPC letters.
func FlagString(flags uint16) string {
	b := make([]byte, len(flagLetters))
	for i, f := range flagLetters {
		if flags&f.bit != 0 {
			b[i] = f.letter
		} else {
			b[i] = '-'
		}
	}
	return string(b)
}
