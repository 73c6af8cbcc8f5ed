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
package ast

import (
	"testing"

	"minic/arena"
	"minic/srcmap"
)

func parse(t *testing.T, src string) *Program {
	t.Helper()
	ar := arena.New()
	sm := srcmap.New("test.c", []byte(src))
	prog, err := ParseProgram([]byte(src), sm, ar)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog
}

func mainReturnExpr(t *testing.T, prog *Program) Expr {
	t.Helper()
	if len(prog.Decls) != 1 {
		t.Fatalf("expected 1 top-level decl, got %d", len(prog.Decls))
	}
	fd, ok := prog.Decls[0].(*FunctionDecl)
	if !ok || fd.Body == nil {
		t.Fatalf("expected a function definition")
	}
	if len(fd.Body.Items) != 1 {
		t.Fatalf("expected 1 statement in body, got %d", len(fd.Body.Items))
	}
	ret, ok := fd.Body.Items[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("expected a return statement")
	}
	return ret.Expr
}

// TestPrecedenceMultiplicationOverAddition checks §4.2's table: `1 + 2 * 3`
// parses as `1 + (2 * 3)`, the multiplication binding tighter.
func TestPrecedenceMultiplicationOverAddition(t *testing.T) {
	prog := parse(t, "int main(void) { return 1 + 2 * 3; }")
	e := mainReturnExpr(t, prog)
	add, ok := e.(*BinaryExpr)
	if !ok || add.Op != BinAdd {
		t.Fatalf("expected top-level +, got %#v", e)
	}
	mul, ok := add.Right.(*BinaryExpr)
	if !ok || mul.Op != BinMul {
		t.Fatalf("expected * nested on the right of +, got %#v", add.Right)
	}
}

// TestLeftAssociativeSubtraction checks `1 - 2 - 3` parses as `(1 - 2) - 3`.
func TestLeftAssociativeSubtraction(t *testing.T) {
	prog := parse(t, "int main(void) { return 1 - 2 - 3; }")
	e := mainReturnExpr(t, prog)
	outer, ok := e.(*BinaryExpr)
	if !ok || outer.Op != BinSub {
		t.Fatalf("expected top-level -, got %#v", e)
	}
	if _, ok := outer.Left.(*BinaryExpr); !ok {
		t.Fatalf("expected - nested on the left, got %#v", outer.Left)
	}
	if _, ok := outer.Right.(*ConstantExpr); !ok {
		t.Fatalf("expected a bare constant on the right, got %#v", outer.Right)
	}
}

// TestConditionalIsRightAssociative checks `a ? b : c ? d : e` parses as
// `a ? b : (c ? d : e)`.
func TestConditionalIsRightAssociative(t *testing.T) {
	prog := parse(t, "int main(void) { int a; int b; int c; int d; int e; return a ? b : c ? d : e; }")
	e := mainReturnExpr(t, prog)
	outer, ok := e.(*ConditionalExpr)
	if !ok {
		t.Fatalf("expected top-level conditional, got %#v", e)
	}
	if _, ok := outer.Else.(*ConditionalExpr); !ok {
		t.Fatalf("expected the else-branch to be nested conditional, got %#v", outer.Else)
	}
}

// TestAssignmentIsRightAssociative checks `a = b = 3` parses as `a = (b = 3)`.
func TestAssignmentIsRightAssociative(t *testing.T) {
	prog := parse(t, "int main(void) { int a; int b; return a = b = 3; }")
	e := mainReturnExpr(t, prog)
	outer, ok := e.(*AssignmentExpr)
	if !ok {
		t.Fatalf("expected top-level assignment, got %#v", e)
	}
	if _, ok := outer.Right.(*AssignmentExpr); !ok {
		t.Fatalf("expected nested assignment on the right, got %#v", outer.Right)
	}
}

// TestLogicalOrLooserThanLogicalAnd checks `a && b || c` parses as
// `(a && b) || c` per §4.2's precedence table.
func TestLogicalOrLooserThanLogicalAnd(t *testing.T) {
	prog := parse(t, "int main(void) { int a; int b; int c; return a && b || c; }")
	e := mainReturnExpr(t, prog)
	or, ok := e.(*BinaryExpr)
	if !ok || or.Op != BinLogicalOr {
		t.Fatalf("expected top-level ||, got %#v", e)
	}
	if and, ok := or.Left.(*BinaryExpr); !ok || and.Op != BinLogicalAnd {
		t.Fatalf("expected && nested on the left of ||, got %#v", or.Left)
	}
}

func TestMultipleStorageClassesIsAnError(t *testing.T) {
	ar := arena.New()
	src := []byte("static extern int x;")
	sm := srcmap.New("test.c", src)
	if _, err := ParseProgram(src, sm, ar); err == nil {
		t.Fatalf("expected a parse error for multiple storage classes")
	}
}

func TestIntLiteralSuffixes(t *testing.T) {
	prog := parse(t, "long main(void) { return 5L; }")
	e := mainReturnExpr(t, prog)
	c, ok := e.(*ConstantExpr)
	if !ok {
		t.Fatalf("expected a constant, got %#v", e)
	}
	if c.Value.Type != arena.TypeLong {
		t.Fatalf("expected 5L to have type Long, got %v", c.Value.Type)
	}
}

func TestUnsignedIntLiteralSuffix(t *testing.T) {
	prog := parse(t, "unsigned int main(void) { return 5u; }")
	e := mainReturnExpr(t, prog)
	c, ok := e.(*ConstantExpr)
	if !ok {
		t.Fatalf("expected a constant, got %#v", e)
	}
	if c.Value.Type != arena.TypeUint {
		t.Fatalf("expected 5u to have type Uint, got %v", c.Value.Type)
	}
}

// TestUnsuffixedLiteralPromotesToLongWhenItOverflowsInt checks that a value
// too large for int but within long's range widens silently, per §4.2.
func TestUnsuffixedLiteralPromotesToLongWhenItOverflowsInt(t *testing.T) {
	prog := parse(t, "long main(void) { return 9999999999; }")
	e := mainReturnExpr(t, prog)
	c, ok := e.(*ConstantExpr)
	if !ok {
		t.Fatalf("expected a constant, got %#v", e)
	}
	if c.Value.Type != arena.TypeLong {
		t.Fatalf("expected 9999999999 to widen to Long, got %v", c.Value.Type)
	}
}

// TestUnsuffixedLiteralOverflowingLongIsAnError checks that a value beyond
// every candidate type for an unsuffixed literal (int, then long) is a
// parse error rather than a silent wrap or promotion to an unsigned type.
func TestUnsuffixedLiteralOverflowingLongIsAnError(t *testing.T) {
	ar := arena.New()
	src := []byte("int main(void) { return 99999999999999999999; }")
	sm := srcmap.New("test.c", src)
	if _, err := ParseProgram(src, sm, ar); err == nil {
		t.Fatalf("expected a parse error for an unsuffixed literal overflowing long")
	}
}

// TestLongSuffixedLiteralOverflowingInt64IsAnError checks that an
// `L`-suffixed literal beyond long's range errors directly instead of
// wrapping, since long is its only candidate type.
func TestLongSuffixedLiteralOverflowingInt64IsAnError(t *testing.T) {
	ar := arena.New()
	src := []byte("int main(void) { return 99999999999999999999L; }")
	sm := srcmap.New("test.c", src)
	if _, err := ParseProgram(src, sm, ar); err == nil {
		t.Fatalf("expected a parse error for a long literal overflowing int64")
	}
}

// TestUnsignedLongSuffixedLiteralOverflowingUint64IsAnError checks that a
// `ul`-suffixed literal beyond unsigned long's range -- the widest type --
// errors rather than silently wrapping through the big.Int accumulator.
func TestUnsignedLongSuffixedLiteralOverflowingUint64IsAnError(t *testing.T) {
	ar := arena.New()
	src := []byte("int main(void) { return 99999999999999999999ul; }")
	sm := srcmap.New("test.c", src)
	if _, err := ParseProgram(src, sm, ar); err == nil {
		t.Fatalf("expected a parse error for a ulong literal overflowing uint64")
	}
}
