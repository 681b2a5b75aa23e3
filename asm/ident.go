// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "golang.org/x/text/cases"

// An Ident is a case-folded assembly identifier. Labels, variables and
// procedures are all keyed by Ident, so "Start", "START" and "start" name
// the same symbol.
type Ident string

// NewIdent folds the case of an identifier string.
func NewIdent(s string) Ident {
	return Ident(cases.Fold().String(s))
}

func (id Ident) String() string {
	return string(id)
}

// SymbolKind identifies what an identifier was defined as.
type SymbolKind byte

// Symbol kinds. A name may be defined as exactly one of these.
const (
	SymLabel SymbolKind = iota
	SymVariable
	SymProc
)

var symbolKindName = []string{"label", "variable", "procedure"}

func (k SymbolKind) String() string {
	return symbolKindName[k]
}

// A Symbol is a named address within the assembled program.
type Symbol struct {
	Name    string     // name as first spelled in the source
	Kind    SymbolKind // label, variable or procedure
	Line    int        // 1-based line of the definition
	Address int        // address assigned by the resolver, -1 if unknown
	Size    int        // element size in bytes for variables (1 or 2)
	Column  int        // column of the definition
}
