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
package sema

import (
	"testing"

	"minic/arena"
	"minic/ast"
	"minic/srcmap"
)

// parseAndResolve runs the parser followed by identifier resolution only,
// for tests that exercise resolution errors in isolation.
func parseAndResolve(t *testing.T, src string) (*ast.Program, *arena.Arena, error) {
	t.Helper()
	ar := arena.New()
	sm := srcmap.New("test.c", []byte(src))
	prog, err := ast.ParseProgram([]byte(src), sm, ar)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog, ar, Resolve(prog, ar, sm)
}

// checkAll runs the full three-pass pipeline (resolve, label loops, type
// check) and fails the test on any unexpected error.
func checkAll(t *testing.T, src string) (*ast.Program, *arena.Arena, *SymbolTable) {
	t.Helper()
	ar := arena.New()
	sm := srcmap.New("test.c", []byte(src))
	prog, err := ast.ParseProgram([]byte(src), sm, ar)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := Resolve(prog, ar, sm); err != nil {
		t.Fatalf("unexpected resolution error: %v", err)
	}
	if err := LabelLoops(prog, ar, sm); err != nil {
		t.Fatalf("unexpected label error: %v", err)
	}
	sym, err := TypeCheck(prog, ar, sm)
	if err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}
	return prog, ar, sym
}
