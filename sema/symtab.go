// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package sema runs the three ordered passes between parsing and TAC
// lowering: identifier resolution, loop labeling, and type checking (§4.3-
// §4.5). A single symbol table, keyed by resolved Identifier, is built
// during type checking and read by every pass downstream of it, per
// original_source's shared_context/symbol_table.rs design (one table with a
// Kind tag rather than the source repo's split scalar/function tables).
package sema

import "minic/arena"

// EntryType is either a scalar variable's Type or a function's interned
// FunctionType.
type EntryType struct {
	IsFunc   bool
	Scalar   arena.Type
	FuncType arena.TypeId
}

func ScalarEntry(t arena.Type) EntryType   { return EntryType{Scalar: t} }
func FuncEntry(id arena.TypeId) EntryType  { return EntryType{IsFunc: true, FuncType: id} }

// InitKind is the closed set of static-initializer states (§3).
type InitKind int

const (
	NoInitializer InitKind = iota
	Tentative
	Initial
)

// Attributes is the closed sum of attribute kinds an identifier carries:
// Function, Static (file/static-storage scalar), or Local (automatic
// storage, no linkage).
type Attributes struct {
	Kind AttrKind

	// Function
	Defined  bool
	External bool

	// Static
	Init InitKind
	Val  arena.StaticInit
}

type AttrKind int

const (
	AttrFunction AttrKind = iota
	AttrStatic
	AttrLocal
)

// SymbolEntry is the value type of the symbol table (§3).
type SymbolEntry struct {
	Type  EntryType
	Attrs Attributes
	Span  arena.Span
}

// SymbolTable maps resolved identifiers to their entry. It is write-once per
// identifier during type checking (declarations may be merged/refined, never
// silently overwritten with conflicting info -- see checkFunctionDecl/
// checkFileVarDecl in typecheck.go) and read-only afterward (§5).
type SymbolTable struct {
	entries map[arena.Identifier]*SymbolEntry
	order   []arena.Identifier // first-seen insertion order, for deterministic emission
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[arena.Identifier]*SymbolEntry)}
}

func (st *SymbolTable) Get(id arena.Identifier) (*SymbolEntry, bool) {
	e, ok := st.entries[id]
	return e, ok
}

// Set inserts or overwrites the entry for id, recording id in declaration
// order the first time it is seen so downstream passes can emit
// static-storage objects deterministically (§8 "Determinism") instead of
// relying on Go's randomized map iteration order.
func (st *SymbolTable) Set(id arena.Identifier, e *SymbolEntry) {
	if _, ok := st.entries[id]; !ok {
		st.order = append(st.order, id)
	}
	st.entries[id] = e
}

// Order returns every identifier ever Set, in first-declaration order.
func (st *SymbolTable) Order() []arena.Identifier {
	return st.order
}

func (st *SymbolTable) MustGet(id arena.Identifier) *SymbolEntry {
	e, ok := st.entries[id]
	if !ok {
		panic("sema: symbol table missing entry for " + id.String())
	}
	return e
}
