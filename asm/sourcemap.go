// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "sort"

// A SourceMap describes the mapping between source code line numbers and
// assembly code addresses.
type SourceMap struct {
	Filename string
	Origin   uint16
	Size     uint32
	CRC      uint32
	Lines    []SourceLine
}

// A SourceLine represents a mapping between a machine code address and
// the source code line used to generate it.
type SourceLine struct {
	Address int // Machine code address
	Line    int // Source code line number
}

// Search searches the source map for a mapping with the requested address.
func (s *SourceMap) Search(addr int) (filename string, line int) {
	i := sort.Search(len(s.Lines), func(i int) bool {
		return s.Lines[i].Address >= addr
	})
	if i < len(s.Lines) && s.Lines[i].Address == addr {
		return s.Filename, s.Lines[i].Line
	}
	return "", -1
}

// Contains reports whether the address lies within the assembled code.
func (s *SourceMap) Contains(addr int) bool {
	return addr >= int(s.Origin) && addr < int(s.Origin)+int(s.Size)
}
