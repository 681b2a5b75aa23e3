// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"io"
	"strings"
	"sync"

	"github.com/beevik/go8086/asm"
	"github.com/beevik/go8086/cpu"
)

// A Snapshot captures the machine state returned by Session calls.
type Snapshot struct {
	Registers cpu.Registers // register file after the call
	Flags     uint16        // FLAGS word built from Registers
	Refs      []asm.ByteRef // per-token byte references (Compile only)
	Delta     []cpu.Change  // bytes stored since the previous call
}

// A Session owns one emulated machine and serializes the compile, step
// and validate requests made against it.
type Session struct {
	mu        sync.Mutex
	mem       *cpu.FlatMemory
	cpu       *cpu.CPU
	assembly  *asm.Assembly
	sourceMap *asm.SourceMap
	out       io.Writer  // verbose assembler output
	options   asm.Option // assembler options
}

// NewSession creates a session with cleared memory and reset registers.
func NewSession() *Session {
	mem := cpu.NewFlatMemory()
	return &Session{
		mem: mem,
		cpu: cpu.NewCPU(mem),
		out: io.Discard,
	}
}

// Compile assembles the source, loads the machine code at the program
// entry point and returns the resulting state. On failure the machine is
// left untouched and the error is an asm.ErrorList.
func (s *Session) Compile(src string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compile(strings.NewReader(src), "")
}

// CompileReader is like Compile but reads the source from r. The filename
// is used in verbose assembler output.
func (s *Session) CompileReader(r io.Reader, filename string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compile(r, filename)
}

// Step executes exactly one instruction. The snapshot is returned even
// when the step fails, so the caller sees the state at the fault.
func (s *Session) Step() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cpu.Step()
	return s.snapshot(nil), err
}

// Validate assembles the source without touching the machine.
func (s *Session) Validate(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, err := asm.Assemble(strings.NewReader(src), "", io.Discard, 0)
	return err
}

// Reset clears memory and registers and discards the loaded program.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem.Clear()
	s.cpu.Reset()
	s.assembly, s.sourceMap = nil, nil
}

func (s *Session) compile(r io.Reader, filename string) (*Snapshot, error) {
	assembly, sourceMap, err := asm.Assemble(r, filename, s.out, s.options)
	if err != nil {
		return nil, err
	}

	s.mem.Clear()
	s.cpu.Load(assembly.Code, assembly.OrgDefined)
	s.assembly, s.sourceMap = assembly, sourceMap
	return s.snapshot(assembly.Refs), nil
}

func (s *Session) snapshot(refs []asm.ByteRef) *Snapshot {
	return &Snapshot{
		Registers: s.cpu.Reg,
		Flags:     s.cpu.Reg.Flags(),
		Refs:      refs,
		Delta:     s.mem.Delta(),
	}
}
