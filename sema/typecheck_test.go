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

func checkOnly(t *testing.T, src string) error {
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
	_, err = TypeCheck(prog, ar, sm)
	return err
}

func TestCallArityMismatchIsAnError(t *testing.T) {
	err := checkOnly(t, "int f(int a, int b); int main(void) { return f(1); }")
	if err == nil {
		t.Fatalf("expected a type error for a call-argument arity mismatch")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Fatalf("expected a *TypeError, got %T", err)
	}
}

func TestCallingAVariableIsAnError(t *testing.T) {
	err := checkOnly(t, "int main(void) { int x = 0; return x(); }")
	if err == nil {
		t.Fatalf("expected a type error for calling a non-function")
	}
}

func TestUsingAFunctionAsAVariableIsAnError(t *testing.T) {
	err := checkOnly(t, "int f(void); int main(void) { return f + 1; }")
	if err == nil {
		t.Fatalf("expected a type error for using a function designator as a value")
	}
}

func TestConflictingFunctionReturnTypesIsAnError(t *testing.T) {
	err := checkOnly(t, "int f(void); long f(void) { return 0; }")
	if err == nil {
		t.Fatalf("expected a type error for conflicting declarations of f")
	}
}

func TestFunctionRedefinitionIsAnError(t *testing.T) {
	err := checkOnly(t, "int f(void) { return 0; } int f(void) { return 1; }")
	if err == nil {
		t.Fatalf("expected a type error for redefining f")
	}
}

// TestCallArgumentIsImplicitlyCast checks that a narrower argument gets an
// explicit CastExpr inserted to match the parameter's declared type (§4.5,
// §9's explicit-cast-insertion design), rather than being left as-is.
func TestCallArgumentIsImplicitlyCast(t *testing.T) {
	ar := arena.New()
	src := []byte("int f(long a); int main(void) { return f(1); }")
	sm := srcmap.New("test.c", src)
	prog, err := ast.ParseProgram(src, sm, ar)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := Resolve(prog, ar, sm); err != nil {
		t.Fatalf("unexpected resolution error: %v", err)
	}
	if err := LabelLoops(prog, ar, sm); err != nil {
		t.Fatalf("unexpected label error: %v", err)
	}
	if _, err := TypeCheck(prog, ar, sm); err != nil {
		t.Fatalf("unexpected type error: %v", err)
	}

	mainFd := prog.Decls[1].(*ast.FunctionDecl)
	ret := mainFd.Body.Items[0].(*ast.ReturnStmt)
	call := ret.Expr.(*ast.CallExpr)
	if _, ok := call.Args[0].(*ast.CastExpr); !ok {
		t.Fatalf("expected the int literal argument to be wrapped in a CastExpr, got %#v", call.Args[0])
	}
}

// TestSymbolTablePreservesDeclarationOrder checks the determinism guarantee
// (§8): Order() must return identifiers in first-declaration order, not
// Go's randomized map order.
func TestSymbolTablePreservesDeclarationOrder(t *testing.T) {
	prog, _, sym := checkAll(t, `
		int a;
		int b;
		int c;
		int main(void) { return a + b + c; }
	`)
	order := sym.Order()
	if len(order) < 3 {
		t.Fatalf("expected at least 3 symbol table entries, got %d", len(order))
	}
	for i := 0; i < 3; i++ {
		want := prog.Decls[i].(*ast.VariableDecl).Resolved
		if order[i] != want {
			t.Fatalf("expected entry %d in declaration order to be %v, got %v", i, want, order[i])
		}
	}
}
