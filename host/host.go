// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements a debugger-like command interface for the 8086
// assembler and emulator.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/go8086/asm"
	"github.com/beevik/go8086/cpu"
	"github.com/beevik/go8086/disasm"
)

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displaySource

	displayAll = displayRegisters | displaySource
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
	stateStopped
)

// Maximum number of memory changes listed after a step.
const maxDeltaLines = 8

var errQuit = errors.New("exiting program")

// The Host represents a fully emulated 8086 system and the command
// interface used to drive it.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	session     *Session
	debugger    *cpu.Debugger
	lastCmd     *cmd.Selection
	state       state
	exprParser  *exprParser
	settings    *settings
	delta       []cpu.Change // memory changed by the last step
}

// New creates a new 8086 host environment.
func New() *Host {
	h := &Host{
		output:     bufio.NewWriter(os.Stdout),
		session:    NewSession(),
		state:      stateProcessingCommands,
		exprParser: newExprParser(),
		settings:   newSettings(),
	}

	// Create a CPU debugger and attach it to the CPU.
	h.debugger = cpu.NewDebugger(newDebugHandler(h))
	h.session.cpu.AttachDebugger(h.debugger)

	h.onSettingsUpdate()
	return h
}

// Session returns the session holding the host's emulated machine.
func (h *Host) Session() *Session {
	return h.session
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive
	h.onSettingsUpdate()

	if interactive {
		h.println()
	}

	h.displayPC()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}

		var c cmd.Selection
		line = strings.TrimSpace(line)
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		command := c.Command.Data.(*command)
		err = command.handler(h, c)
		if err != nil {
			break
		}
	}
	h.flush()
}

// AssembleFile assembles a source file and writes a listing of the
// machine code to w. Errors are rendered with their source excerpt.
func (h *Host) AssembleFile(w io.Writer, filename string, verbose bool) error {
	h.output = bufio.NewWriter(w)
	defer h.flush()

	src, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return err
	}

	var options asm.Option
	if verbose {
		options |= asm.Verbose
	}
	assembly, sourceMap, err := asm.Assemble(strings.NewReader(string(src)), filename, h.output, options)
	if err != nil {
		h.printf("Failed to assemble '%s'.\n", filepath.Base(filename))
		h.displayErrors(err)
		return err
	}

	h.displayListing(string(src), assembly, sourceMap)
	return nil
}

// Break interrupts a running CPU.
func (h *Host) Break() {
	h.println()

	if h.state == stateRunning {
		h.displayPC()
	}
	if h.state == stateProcessingCommands {
		h.prompt()
	}
	h.state = stateProcessingCommands
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.print("* ")
		h.flush()
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.session.cpu.Reg.IP, displayAll)
		h.println(d)
	}
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Addr Enabled")
	h.println("---- -------")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("%04X %v\n", b.Address, !b.Disabled)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at %04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	b := h.findBreakpoint(c)
	if b == nil {
		return nil
	}

	h.debugger.RemoveBreakpoint(b.Address)
	h.printf("Breakpoint at %04X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointEnable(c cmd.Selection) error {
	b := h.findBreakpoint(c)
	if b == nil {
		return nil
	}

	b.Disabled = false
	h.printf("Breakpoint at %04X enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointDisable(c cmd.Selection) error {
	b := h.findBreakpoint(c)
	if b == nil {
		return nil
	}

	b.Disabled = true
	h.printf("Breakpoint at %04X disabled.\n", b.Address)
	return nil
}

// Look up the breakpoint named by the first argument, reporting problems
// to the user.
func (h *Host) findBreakpoint(c cmd.Selection) *cpu.Breakpoint {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on %04X.\n", addr)
	}
	return b
}

func (h *Host) cmdDataBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled  Value")
	h.println("----- -------  -----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("%s %-5v    %02X\n", b.Address, !b.Disabled, b.Value)
		} else {
			h.printf("%s %-5v    <none>\n", b.Address, !b.Disabled)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, byte(value))
		h.printf("Conditional data breakpoint added at %s for value %02X.\n", addr, byte(value))
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at %s.\n", addr)
	}

	return nil
}

func (h *Host) cmdDataBreakpointRemove(c cmd.Selection) error {
	b := h.findDataBreakpoint(c)
	if b == nil {
		return nil
	}

	h.debugger.RemoveDataBreakpoint(b.Address)
	h.printf("Data breakpoint at %s removed.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c cmd.Selection) error {
	b := h.findDataBreakpoint(c)
	if b == nil {
		return nil
	}

	b.Disabled = false
	h.printf("Data breakpoint at %s enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointDisable(c cmd.Selection) error {
	b := h.findDataBreakpoint(c)
	if b == nil {
		return nil
	}

	b.Disabled = true
	h.printf("Data breakpoint at %s disabled.\n", b.Address)
	return nil
}

func (h *Host) findDataBreakpoint(c cmd.Selection) *cpu.DataBreakpoint {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on %s.\n", addr)
	}
	return b
}

func (h *Host) cmdCompile(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	filename := sourceFilename(c.Args[0])
	file, err := os.Open(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return nil
	}
	defer file.Close()

	snapshot, err := h.session.CompileReader(file, filename)
	if err != nil {
		h.printf("Failed to compile '%s'.\n", filepath.Base(filename))
		h.displayErrors(err)
		return nil
	}

	r := &snapshot.Registers
	h.printf("Compiled '%s' to %04X:%04X, %d bytes.\n",
		filepath.Base(filename), r.CS, r.IP, len(h.session.assembly.Code))
	h.settings.NextDisasmAddr = r.IP
	h.settings.NextMemDumpAddr = uint32(cpu.Physical(r.CS, r.IP))
	h.displayPC()
	return nil
}

func (h *Host) cmdValidate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	filename := sourceFilename(c.Args[0])
	src, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	if err := h.session.Validate(string(src)); err != nil {
		h.displayErrors(err)
		return nil
	}
	h.printf("No errors found in '%s'.\n", filepath.Base(filename))
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextDisasmAddr
	case ".":
		addr = h.session.cpu.Reg.IP
	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines; i++ {
		d, next := h.disassemble(addr, displaySource)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdEvaluate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	expr := strings.Join(c.Args, " ")
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	switch {
	case v < 0 && v >= -0x8000:
		h.printf("0x%04X (%d)\n", uint16(v), v)
	default:
		h.printf("0x%04X (%d)\n", v, v)
	}
	return nil
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands("go8086", helpEntries())
		return nil
	}

	name := strings.ToLower(strings.Join(c.Args, " "))
	if g, ok := groups[name]; ok {
		var entries []helpEntry
		for _, gc := range g.commands {
			entries = append(entries, helpEntry{gc.name, gc.brief})
		}
		h.displayCommands(g.name, entries)
		return nil
	}

	s, err := cmds.Lookup(name)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	if s.Command == nil {
		return nil
	}

	command := s.Command.Data.(*command)
	if command.usage != "" {
		h.printf("Syntax: %s\n\n", command.usage)
	}
	switch {
	case command.description != "":
		h.printf("Description:\n%s\n\n", indentWrap(3, command.description))
	case command.brief != "":
		h.printf("Description:\n%s.\n\n", indentWrap(3, command.brief))
	}
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr cpu.Addr
	switch c.Args[0] {
	case "$":
		addr = cpu.Addr(h.settings.NextMemDumpAddr)
	case ".":
		addr = h.session.cpu.Entry()
	default:
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := h.settings.MemDumpBytes
	if len(c.Args) >= 2 {
		n, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		bytes = int(n)
	}

	next := h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = uint32(next)
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdRegisters(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println(disasm.RegisterString(&h.session.cpu.Reg))
		d, _ := h.disassemble(h.session.cpu.Reg.IP, displaySource)
		h.println(d)
	case 1:
		h.displayHelpText(c)
	default:
		v, err := h.exprParser.Parse(strings.Join(c.Args[1:], " "), h)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		msg, ok := h.setRegister(c.Args[0], v)
		if !ok {
			h.printf("Register '%s' not found.\n", c.Args[0])
			return nil
		}
		h.println(msg)
	}
	return nil
}

func (h *Host) cmdReset(c cmd.Selection) error {
	h.session.Reset()
	h.settings.NextDisasmAddr = 0
	h.settings.NextMemDumpAddr = 0
	h.println("Machine reset.")
	h.displayPC()
	return nil
}

func (h *Host) cmdRun(c cmd.Selection) error {
	r := &h.session.cpu.Reg
	h.printf("Running from %04X:%04X. Press ctrl-C to break.\n", r.CS, r.IP)

	h.state = stateRunning
	h.runUntilStopped()
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = r.IP
	return nil
}

// Step the CPU until a breakpoint, a fault, the end of the program or the
// run step limit stops it.
func (h *Host) runUntilStopped() {
	for n := 0; h.state == stateRunning; n++ {
		if limit := h.settings.MaxRunSteps; limit > 0 && n >= limit {
			h.printf("Stopped after %d steps.\n", n)
			h.state = stateStopped
			break
		}
		h.step()
	}
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayHelpText(c)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")
		v, errV := h.exprParser.Parse(value, h)

		// Setting a register?
		if errV == nil {
			if msg, ok := h.setRegister(key, v); ok {
				h.println(msg)
				return nil
			}
		}

		// Setting a debugger setting?
		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.Bool:
			var b bool
			b, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, b)
			}
		default:
			err = errV
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			name, _ := h.settings.Name(key)
			h.printf("Setting %s updated.\n", name)
		} else {
			h.printf("%v\n", err)
		}

		h.onSettingsUpdate()
	}

	return nil
}

func (h *Host) cmdStep(c cmd.Selection) error {
	return h.stepCount(c, (*Host).step)
}

func (h *Host) cmdNext(c cmd.Selection) error {
	return h.stepCount(c, (*Host).stepOver)
}

// Run the step function the number of times given by the optional count
// argument, displaying the last MaxStepLines instructions.
func (h *Host) stepCount(c cmd.Selection, step func(h *Host)) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err == nil {
			count = int(n)
		}
	}

	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		step(h)
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayStep()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.session.cpu.Reg.IP
	return nil
}

// Step the CPU by one instruction. Faults, HLT and leaving the compiled
// program stop any run in progress.
func (h *Host) step() {
	c := h.session.cpu
	snapshot, err := h.session.Step()
	h.delta = snapshot.Delta

	switch {
	case errors.Is(err, cpu.ErrHalted):
		h.printf("CPU is halted at %04X:%04X.\n", c.Reg.CS, c.Reg.IP)
		h.state = stateStopped
	case err != nil:
		h.printf("ERROR: %v.\n", err)
		h.state = stateStopped
	case c.Halted:
		h.printf("CPU halted at %04X:%04X.\n", c.Reg.CS, c.LastIP)
		h.state = stateStopped
	case h.state == stateRunning && !h.inProgram(c.Reg.IP):
		h.printf("Reached the end of the program at %04X:%04X.\n", c.Reg.CS, c.Reg.IP)
		h.state = stateStopped
	}
}

// Step over the next instruction. Calls run until they return to the
// following instruction.
func (h *Host) stepOver() {
	c := h.session.cpu

	inst, err := cpu.Decode(c.Mem, c.Reg.CS, c.Reg.IP)
	if err != nil || !isCall(&inst) {
		h.step()
		return
	}

	// Place a step-over breakpoint on the instruction following the call.
	// Either modify an already existing breakpoint on that instruction, or
	// create a temporary one.
	next := inst.Next()
	tmpBreakpointCreated := false
	b := h.debugger.GetBreakpoint(next)
	if b == nil {
		b = h.debugger.AddBreakpoint(next)
		tmpBreakpointCreated = true
	}
	b.StepOver = true

	h.runUntilStopped()
	b.StepOver = false

	// If we were interrupted by the temporary step-over breakpoint,
	// then continue as normal.
	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}

	if tmpBreakpointCreated {
		h.debugger.RemoveBreakpoint(next)
	}
}

func isCall(inst *cpu.Instruction) bool {
	switch inst.Opcode {
	case 0xe8, 0x9a:
		return true
	case 0xff:
		return inst.Ext == 2
	default:
		return false
	}
}

// Report whether an offset lies within the compiled program. Without a
// compiled program every offset does.
func (h *Host) inProgram(ip uint16) bool {
	sm := h.session.sourceMap
	return sm == nil || sm.Contains(int(ip))
}

func (h *Host) onSettingsUpdate() {
	h.exprParser.hexMode = h.settings.HexMode
	h.session.out = h.output
	h.session.options = 0
	if h.settings.VerboseAssembly {
		h.session.options |= asm.Verbose
	}
}

func (h *Host) parseExpr(expr string) (uint16, error) {
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		return 0, err
	}

	if v < 0 {
		v = 0x10000 + v
	}
	return uint16(v), nil
}

// Parse a memory address given as seg:off, or as an offset in the data
// segment.
func (h *Host) parseAddr(s string) (cpu.Addr, error) {
	seg := h.session.cpu.Reg.DS
	off := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		v, err := h.parseExpr(s[:i])
		if err != nil {
			return 0, err
		}
		seg, off = v, s[i+1:]
	}

	v, err := h.parseExpr(off)
	if err != nil {
		return 0, err
	}
	return cpu.Physical(seg, v), nil
}

func (h *Host) disassemble(ip uint16, flags displayFlags) (str string, next uint16) {
	c := h.session.cpu

	line, next, _ := disasm.Disassemble(c.Mem, c.Reg.CS, ip)

	b := make([]byte, next-ip)
	c.Mem.LoadBytes(cpu.Physical(c.Reg.CS, ip), b)

	str = fmt.Sprintf("%04X:%04X  %-17s  %-24s", c.Reg.CS, ip, codeString(b), line)

	if (flags & displayRegisters) != 0 {
		str += " " + disasm.RegisterString(&c.Reg)
	}

	if (flags & displaySource) != 0 {
		if sm := h.session.sourceMap; sm != nil {
			if _, n := sm.Search(int(ip)); n > 0 {
				str += fmt.Sprintf(" ; line %d", n)
			}
		}
	}

	return strings.TrimRight(str, " "), next
}

// Display the next instruction and any memory the last step changed.
func (h *Host) displayStep() {
	if !h.interactive {
		return
	}
	h.displayPC()
	for i, ch := range h.delta {
		if i == maxDeltaLines {
			h.printf("    ... %d more\n", len(h.delta)-i)
			break
		}
		h.printf("    [%s] = %02X\n", ch.Addr, ch.Value)
	}
}

// Dump memory in rows of 16 bytes aligned to 16-byte boundaries. Return
// the address following the last byte dumped.
func (h *Host) dumpMemory(addr0 cpu.Addr, bytes int) cpu.Addr {
	if bytes <= 0 {
		return addr0
	}

	first := uint32(addr0)
	stop := first + uint32(bytes)
	if stop > cpu.MemorySize {
		stop = cpu.MemorySize
	}

	// Address, 16 hex bytes, a separator, then 16 characters.
	const hexCol, charCol = 7, 7 + 16*3 + 1
	buf := []byte(strings.Repeat(" ", charCol+16))

	m := h.session.cpu.Mem
	for row := first &^ 0xf; row < stop; row += 16 {
		addrToBuf(row, buf[0:5])
		for i := uint32(0); i < 16; i++ {
			c1, c2 := hexCol+3*i, charCol+i
			if a := row + i; a >= first && a < stop {
				v := m.LoadByte(cpu.Addr(a))
				byteToBuf(v, buf[c1:c1+2])
				buf[c2] = toPrintableChar(v)
			} else {
				buf[c1], buf[c1+1], buf[c2] = ' ', ' ', ' '
			}
		}
		h.println(string(buf))
	}
	return cpu.Addr(stop & (cpu.MemorySize - 1))
}

// Display a listing of assembled source with addresses and code bytes.
func (h *Host) displayListing(src string, assembly *asm.Assembly, sourceMap *asm.SourceMap) {
	code := make(map[int][]byte)
	for _, r := range assembly.Refs {
		code[r.Line] = append(code[r.Line], r.Bytes...)
	}
	addrs := make(map[int]int)
	for _, l := range sourceMap.Lines {
		addrs[l.Line] = l.Address
	}

	for i, text := range strings.Split(src, "\n") {
		n := i + 1
		text = strings.TrimRight(text, "\r")
		b, ok := code[n]
		if !ok {
			h.print(strings.Repeat(" ", 6+20), text, "\n")
			continue
		}
		for len(b) > 0 {
			chunk := b[:min(len(b), codeColumnBytes)]
			b = b[len(chunk):]
			h.printf("%04X  %-20s%s\n", addrs[n], asm.ByteString(chunk), text)
			addrs[n] += len(chunk)
			text = ""
		}
	}
	h.printf("%d bytes.\n", len(assembly.Code))
}

func (h *Host) displayErrors(err error) {
	var list asm.ErrorList
	if !errors.As(err, &list) {
		h.printf("%v\n", err)
		return
	}
	for _, e := range list {
		h.println(e.Render())
	}
	h.printf("%d error(s).\n", len(list))
}

func (h *Host) displayHelpText(c cmd.Selection) {
	command := c.Command.Data.(*command)
	if command.usage != "" {
		h.printf("Syntax: %s\n", command.usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands(title string, entries []helpEntry) {
	h.printf("%s commands:\n", title)
	for _, e := range entries {
		if e.brief != "" {
			h.printf("    %-15s  %s\n", e.name, e.brief)
		}
	}
}

func (h *Host) onBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	if b.StepOver {
		h.state = stateStepOverBreakpoint
	} else {
		h.state = stateBreakpoint
		h.printf("Breakpoint hit at %04X:%04X.\n", c.Reg.CS, b.Address)
		h.displayPC()
	}
}

func (h *Host) onDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address %s.\n", b.Address)

	h.state = stateBreakpoint

	if c.LastIP != c.Reg.IP {
		d, _ := h.disassemble(c.LastIP, displayAll)
		h.println(d)
	}

	h.displayPC()
}

func sourceFilename(name string) string {
	if filepath.Ext(name) == "" {
		name += ".asm"
	}
	return name
}
