// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"strings"
)

// Maximum instruction length shown in the code column of a listing.
const codeColumnBytes = 6

func codeString(b []byte) string {
	if len(b) > codeColumnBytes {
		b = b[:codeColumnBytes]
	}
	var s strings.Builder
	for i, v := range b {
		if i > 0 {
			s.WriteByte(' ')
		}
		s.WriteByte(hexString[v>>4])
		s.WriteByte(hexString[v&0xf])
	}
	return s.String()
}

func stringToBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "0", "false", "off":
		return false, nil
	case "1", "true", "on":
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value '%s'", s)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var hexString = "0123456789ABCDEF"

// Write a 20-bit physical address as five hex digits.
func addrToBuf(addr uint32, b []byte) {
	b[0] = hexString[(addr>>16)&0xf]
	b[1] = hexString[(addr>>12)&0xf]
	b[2] = hexString[(addr>>8)&0xf]
	b[3] = hexString[(addr>>4)&0xf]
	b[4] = hexString[addr&0xf]
}

func byteToBuf(v byte, b []byte) {
	b[0] = hexString[(v>>4)&0xf]
	b[1] = hexString[v&0xf]
}

func toPrintableChar(v byte) byte {
	if v >= 32 && v < 127 {
		return v
	}
	return '.'
}

// Width of wrapped help text.
const wrapColumns = 80

// Word-wrap s to wrapColumns, indenting every line.
func indentWrap(indent int, s string) string {
	pad := strings.Repeat(" ", indent)

	var b strings.Builder
	col := 0
	for _, word := range strings.Fields(s) {
		switch {
		case col == 0:
			b.WriteString(pad)
			col = indent
		case col+1+len(word) > wrapColumns:
			b.WriteString("\n")
			b.WriteString(pad)
			col = indent
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(word)
		col += len(word)
	}
	return b.String()
}
