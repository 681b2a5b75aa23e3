// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"strings"

	"github.com/beevik/go8086/cpu"
	"go.starlark.net/starlark"
)

var reg16Index = map[string]byte{
	"ax": cpu.AX, "cx": cpu.CX, "dx": cpu.DX, "bx": cpu.BX,
	"sp": cpu.SP, "bp": cpu.BP, "si": cpu.SI, "di": cpu.DI,
}

var reg8Index = map[string]byte{
	"al": 0, "cl": 1, "dl": 2, "bl": 3,
	"ah": 4, "ch": 5, "dh": 6, "bh": 7,
}

var segIndex = map[string]byte{
	"es": cpu.ES, "cs": cpu.CS, "ss": cpu.SS, "ds": cpu.DS,
}

var flagBits = map[string]uint16{
	"cf": cpu.CarryBit,
	"pf": cpu.ParityBit,
	"af": cpu.AuxBit,
	"zf": cpu.ZeroBit,
	"sf": cpu.SignBit,
	"tf": cpu.TrapBit,
	"if": cpu.InterruptBit,
	"df": cpu.DirectionBit,
	"of": cpu.OverflowBit,
}

// Long flag names accepted when setting a flag.
var flagAliases = map[string]string{
	"carry":     "cf",
	"parity":    "pf",
	"aux":       "af",
	"zero":      "zf",
	"sign":      "sf",
	"trap":      "tf",
	"interrupt": "if",
	"direction": "df",
	"overflow":  "of",
}

// Return the names usable in host expressions: the registers, the flags
// and the symbols of the compiled program. Registers shadow symbols of
// the same name.
func (h *Host) identifiers() starlark.StringDict {
	d := make(starlark.StringDict)

	if a := h.session.assembly; a != nil {
		for id, sym := range a.Symbols {
			if sym.Address >= 0 {
				d[id.String()] = starlark.MakeInt(sym.Address)
			}
		}
	}

	r := &h.session.cpu.Reg
	for name, i := range reg16Index {
		d[name] = starlark.MakeInt(int(r.Reg16(i)))
	}
	for name, i := range reg8Index {
		d[name] = starlark.MakeInt(int(r.Reg8(i)))
	}
	for name, i := range segIndex {
		d[name] = starlark.MakeInt(int(r.Seg(i)))
	}
	flags := r.Flags()
	for name, bit := range flagBits {
		d[name] = starlark.MakeInt(boolToInt(flags&bit != 0))
	}
	d["ip"] = starlark.MakeInt(int(r.IP))
	d["flags"] = starlark.MakeInt(int(flags))
	return d
}

// Assign a value to the named register or flag. Return a message for the
// user and whether the name was a register.
func (h *Host) setRegister(name string, v int64) (string, bool) {
	name = strings.ToLower(name)
	if alias, ok := flagAliases[name]; ok {
		name = alias
	}

	r := &h.session.cpu.Reg
	upper := strings.ToUpper(name)
	if i, ok := reg16Index[name]; ok {
		r.SetReg16(i, uint16(v))
		return fmt.Sprintf("Register %s set to %04X.", upper, uint16(v)), true
	}
	if i, ok := reg8Index[name]; ok {
		r.SetReg8(i, byte(v))
		return fmt.Sprintf("Register %s set to %02X.", upper, byte(v)), true
	}
	if i, ok := segIndex[name]; ok {
		r.SetSeg(i, uint16(v))
		return fmt.Sprintf("Register %s set to %04X.", upper, uint16(v)), true
	}
	if bit, ok := flagBits[name]; ok {
		flags := r.Flags() &^ bit
		if v != 0 {
			flags |= bit
		}
		r.SetFlags(flags)
		return fmt.Sprintf("Flag %s set to %v.", upper, v != 0), true
	}

	switch name {
	case "ip", ".":
		r.IP = uint16(v)
		h.settings.NextDisasmAddr = r.IP
		return fmt.Sprintf("Register IP set to %04X.", r.IP), true
	case "flags":
		r.SetFlags(uint16(v))
		return fmt.Sprintf("Register FLAGS set to %04X.", r.Flags()), true
	}
	return "", false
}
