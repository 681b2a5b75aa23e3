// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"sort"

	"github.com/beevik/cmd"
)

type cmdHandler func(*Host, cmd.Selection) error

// A command carries the handler and help text of a host command. It is
// stored as the Data of each descriptor in the command tree.
type command struct {
	name        string
	brief       string
	description string
	usage       string
	handler     cmdHandler
}

// A commandGroup is a named subtree of commands.
type commandGroup struct {
	name     string
	brief    string
	commands []*command
}

var cmds *cmd.Tree

// Top-level commands and command subtrees, for help output.
var (
	commands []*command
	groups   = make(map[string]*commandGroup)
)

func addCommand(t *cmd.Tree, group *commandGroup, c *command) {
	t.AddCommand(cmd.CommandDescriptor{
		Name:        c.name,
		Brief:       c.brief,
		Description: c.description,
		Usage:       c.usage,
		Data:        c,
	})
	if group != nil {
		group.commands = append(group.commands, c)
	} else {
		commands = append(commands, c)
	}
}

func addGroup(t *cmd.Tree, name, brief string) (*cmd.Tree, *commandGroup) {
	g := &commandGroup{name: name, brief: brief}
	groups[name] = g
	return t.AddSubtree(cmd.TreeDescriptor{Name: name, Brief: brief}), g
}

// A sorted view of the top-level commands and groups for help output.
type helpEntry struct {
	name  string
	brief string
}

func helpEntries() []helpEntry {
	var entries []helpEntry
	for _, c := range commands {
		if c.brief != "" {
			entries = append(entries, helpEntry{c.name, c.brief})
		}
	}
	for _, g := range groups {
		entries = append(entries, helpEntry{g.name, g.brief})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})
	return entries
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "go8086"})
	addCommand(root, nil, &command{
		name:        "help",
		description: "Display help for a command.",
		usage:       "help [<command>]",
		handler:     (*Host).cmdHelp,
	})

	// Breakpoint commands
	bp, bpg := addGroup(root, "breakpoint", "Breakpoint commands")
	addCommand(bp, bpg, &command{
		name:        "list",
		brief:       "List breakpoints",
		description: "List all current breakpoints.",
		usage:       "breakpoint list",
		handler:     (*Host).cmdBreakpointList,
	})
	addCommand(bp, bpg, &command{
		name:  "add",
		brief: "Add a breakpoint",
		description: "Add a breakpoint at the specified offset in the code" +
			" segment. The breakpoint starts enabled.",
		usage:   "breakpoint add <offset>",
		handler: (*Host).cmdBreakpointAdd,
	})
	addCommand(bp, bpg, &command{
		name:        "remove",
		brief:       "Remove a breakpoint",
		description: "Remove a breakpoint at the specified offset.",
		usage:       "breakpoint remove <offset>",
		handler:     (*Host).cmdBreakpointRemove,
	})
	addCommand(bp, bpg, &command{
		name:        "enable",
		brief:       "Enable a breakpoint",
		description: "Enable a previously added breakpoint.",
		usage:       "breakpoint enable <offset>",
		handler:     (*Host).cmdBreakpointEnable,
	})
	addCommand(bp, bpg, &command{
		name:  "disable",
		brief: "Disable a breakpoint",
		description: "Disable a previously added breakpoint. This" +
			" prevents the breakpoint from being hit when running the" +
			" CPU.",
		usage:   "breakpoint disable <offset>",
		handler: (*Host).cmdBreakpointDisable,
	})

	addCommand(root, nil, &command{
		name:  "compile",
		brief: "Compile a source file and load it",
		description: "Assemble the specified source file and load the machine" +
			" code at the program entry point. Programs starting with" +
			" ORG 0x100 load at 0700:0100, others at 0100:0000. Every" +
			" error found in the source is displayed.",
		usage:   "compile <filename>",
		handler: (*Host).cmdCompile,
	})

	// Data breakpoint commands
	db, dbg := addGroup(root, "databreakpoint", "Data breakpoint commands")
	addCommand(db, dbg, &command{
		name:        "list",
		brief:       "List data breakpoints",
		description: "List all current data breakpoints.",
		usage:       "databreakpoint list",
		handler:     (*Host).cmdDataBreakpointList,
	})
	addCommand(db, dbg, &command{
		name:  "add",
		brief: "Add a data breakpoint",
		description: "Add a new data breakpoint at the specified" +
			" memory address. When the CPU stores data at this address, the" +
			" breakpoint will stop the CPU. Optionally, a byte" +
			" value may be specified, and the CPU will stop only" +
			" when this value is stored. The address may be given as" +
			" seg:off or as an offset in the data segment.",
		usage:   "databreakpoint add <address> [<value>]",
		handler: (*Host).cmdDataBreakpointAdd,
	})
	addCommand(db, dbg, &command{
		name:  "remove",
		brief: "Remove a data breakpoint",
		description: "Remove a previously added data breakpoint at" +
			" the specified memory address.",
		usage:   "databreakpoint remove <address>",
		handler: (*Host).cmdDataBreakpointRemove,
	})
	addCommand(db, dbg, &command{
		name:        "enable",
		brief:       "Enable a data breakpoint",
		description: "Enable a previously added data breakpoint.",
		usage:       "databreakpoint enable <address>",
		handler:     (*Host).cmdDataBreakpointEnable,
	})
	addCommand(db, dbg, &command{
		name:        "disable",
		brief:       "Disable a data breakpoint",
		description: "Disable a previously added data breakpoint.",
		usage:       "databreakpoint disable <address>",
		handler:     (*Host).cmdDataBreakpointDisable,
	})

	addCommand(root, nil, &command{
		name:  "disassemble",
		brief: "Disassemble code",
		description: "Disassemble machine code starting at the requested" +
			" offset in the code segment. The number of instruction lines to" +
			" disassemble may be specified as an option. If no offset is" +
			" specified, the disassembly continues from where the last" +
			" disassembly left off.",
		usage:   "disassemble [<offset>] [<lines>]",
		handler: (*Host).cmdDisassemble,
	})
	addCommand(root, nil, &command{
		name:  "evaluate",
		brief: "Evaluate an expression",
		description: "Evaluate an expression. Register names and the" +
			" labels, variables and procedures of the compiled program may" +
			" be used.",
		usage:   "evaluate <expression>",
		handler: (*Host).cmdEvaluate,
	})

	// Memory commands
	me, meg := addGroup(root, "memory", "Memory commands")
	addCommand(me, meg, &command{
		name:  "dump",
		brief: "Dump memory at address",
		description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option. If no address is specified, the" +
			" memory dump continues from where the last dump left off.",
		usage:   "memory dump [<address>] [<bytes>]",
		handler: (*Host).cmdMemoryDump,
	})

	addCommand(root, nil, &command{
		name:        "quit",
		brief:       "Quit the program",
		description: "Quit the program.",
		usage:       "quit",
		handler:     (*Host).cmdQuit,
	})
	addCommand(root, nil, &command{
		name:  "registers",
		brief: "View or change register values",
		description: "When used without arguments, this command displays the current" +
			" contents of the CPU registers. When used with arguments, this" +
			" command changes the value of a register or one of the CPU's status" +
			" flags. Allowed register names include AX through DI, AL through BH," +
			" the segment registers and IP. Allowed status flag names include" +
			" CF (Carry), PF (Parity), AF (Aux), ZF (Zero), SF (Sign), TF (Trap)," +
			" IF (Interrupt), DF (Direction) and OF (Overflow).",
		usage:   "registers [<name> <value>]",
		handler: (*Host).cmdRegisters,
	})
	addCommand(root, nil, &command{
		name:  "reset",
		brief: "Reset the machine",
		description: "Clear memory and registers and discard the compiled" +
			" program. Breakpoints are kept.",
		usage:   "reset",
		handler: (*Host).cmdReset,
	})
	addCommand(root, nil, &command{
		name:  "run",
		brief: "Run the CPU",
		description: "Run the CPU until a breakpoint is hit, the CPU halts," +
			" execution leaves the compiled program or the user types" +
			" Ctrl-C. The MaxRunSteps setting bounds the number of" +
			" instructions executed.",
		usage:   "run",
		handler: (*Host).cmdRun,
	})
	addCommand(root, nil, &command{
		name:  "set",
		brief: "Set a configuration variable",
		description: "Set the value of a configuration variable or register." +
			" To see the current values of all configuration variables, type" +
			" set without any arguments.",
		usage:   "set [<var> <value>]",
		handler: (*Host).cmdSet,
	})
	addCommand(root, nil, &command{
		name:  "step",
		brief: "Step into next instruction",
		description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, step into the subroutine." +
			" The number of steps may be specified as an option.",
		usage:   "step [<count>]",
		handler: (*Host).cmdStep,
	})
	addCommand(root, nil, &command{
		name:  "next",
		brief: "Step over next instruction",
		description: "Step the CPU by a single instruction. If the" +
			" instruction is a near call, run until the call returns." +
			" The number of steps may be specified as an option.",
		usage:   "next [<count>]",
		handler: (*Host).cmdNext,
	})
	addCommand(root, nil, &command{
		name:  "validate",
		brief: "Check a source file for errors",
		description: "Assemble the specified source file and report every" +
			" error found, without loading the machine code.",
		usage:   "validate <filename>",
		handler: (*Host).cmdValidate,
	})

	// Add command shortcuts.
	root.AddShortcut("b", "breakpoint")
	root.AddShortcut("bp", "breakpoint")
	root.AddShortcut("ba", "breakpoint add")
	root.AddShortcut("br", "breakpoint remove")
	root.AddShortcut("bl", "breakpoint list")
	root.AddShortcut("be", "breakpoint enable")
	root.AddShortcut("bd", "breakpoint disable")
	root.AddShortcut("c", "compile")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("db", "databreakpoint")
	root.AddShortcut("dbp", "databreakpoint")
	root.AddShortcut("dbl", "databreakpoint list")
	root.AddShortcut("dba", "databreakpoint add")
	root.AddShortcut("dbr", "databreakpoint remove")
	root.AddShortcut("dbe", "databreakpoint enable")
	root.AddShortcut("dbd", "databreakpoint disable")
	root.AddShortcut("e", "evaluate")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("n", "next")
	root.AddShortcut("r", "registers")
	root.AddShortcut("s", "step")
	root.AddShortcut("v", "validate")
	root.AddShortcut("?", "help")
	root.AddShortcut(".", "registers")

	cmds = root
}
