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
package asmgen

import (
	"testing"

	"minic/arena"
	"minic/compile/tac"
)

func intArg(ar *arena.Arena, n int) tac.Value {
	return tac.VarValue(ar.Temp(arena.Span{}), arena.TypeInt)
}

// TestGenCallWithEightArgsPushesTheLastTwo checks that a call with more
// than six arguments moves the first six into ArgRegs and pushes the rest,
// right to left, rather than panicking (§4.7); two stack arguments is an
// even count, so no alignment padding is needed.
func TestGenCallWithEightArgsPushesTheLastTwo(t *testing.T) {
	ar := arena.New()
	args := make([]tac.Value, 8)
	for i := range args {
		args[i] = intArg(ar, i)
	}
	call := &tac.FunCall{
		Name: ar.SourceIdentifier("f", arena.Span{}),
		Args: args,
		Dst:  tac.VarValue(ar.Temp(arena.Span{}), arena.TypeInt),
	}
	g := &generator{ar: ar}
	g.lowerCall(call)

	var pushes, subs, adds, regMoves int
	for _, instr := range g.body {
		switch v := instr.(type) {
		case *Push:
			pushes++
		case *Binary:
			if v.Op == Sub && v.Dst.Kind == OpReg && v.Dst.Reg == SP {
				subs++
			}
			if v.Op == Add && v.Dst.Kind == OpReg && v.Dst.Reg == SP {
				adds++
			}
		case *Mov:
			if v.Dst.Kind == OpReg && v.Dst.Reg != AX {
				regMoves++
			}
		}
	}
	if pushes != 2 {
		t.Fatalf("expected exactly 2 Push instructions for the two stack arguments, got %d", pushes)
	}
	if regMoves != 6 {
		t.Fatalf("expected exactly 6 register-argument moves, got %d", regMoves)
	}
	if subs != 0 {
		t.Fatalf("expected no alignment padding for an even (2) stack-argument count, got %d Sub SP instructions", subs)
	}
	if adds != 1 {
		t.Fatalf("expected exactly 1 stack-cleanup Add SP instruction, got %d", adds)
	}
}

// TestGenCallWithOddStackArgCountPads checks that an odd number of
// stack-passed arguments gets a leading `Sub SP, 8` to keep the stack
// 16-byte aligned at the call (§4.7).
func TestGenCallWithOddStackArgCountPads(t *testing.T) {
	ar := arena.New()
	args := make([]tac.Value, 9)
	for i := range args {
		args[i] = intArg(ar, i)
	}
	call := &tac.FunCall{
		Name: ar.SourceIdentifier("f", arena.Span{}),
		Args: args,
		Dst:  tac.VarValue(ar.Temp(arena.Span{}), arena.TypeInt),
	}
	g := &generator{ar: ar}
	g.lowerCall(call)

	var pushes, subs int
	var addAmount int64
	for _, instr := range g.body {
		switch v := instr.(type) {
		case *Push:
			pushes++
		case *Binary:
			if v.Op == Sub && v.Dst.Kind == OpReg && v.Dst.Reg == SP {
				subs++
			}
			if v.Op == Add && v.Dst.Kind == OpReg && v.Dst.Reg == SP {
				addAmount = v.Src.Imm
			}
		}
	}
	if pushes != 3 {
		t.Fatalf("expected 3 pushed stack arguments, got %d", pushes)
	}
	if subs != 1 {
		t.Fatalf("expected 1 alignment-padding Sub SP for an odd stack-arg count, got %d", subs)
	}
	if addAmount != 8*3+8 {
		t.Fatalf("expected stack cleanup to remove %d bytes (args + padding), got %d", 8*3+8, addAmount)
	}
}

// TestGenFunctionWithSevenParamsReadsSeventhFromStack checks that a
// definition's seventh parameter is copied in from an incoming stack slot
// above the saved frame pointer, not from a register (§4.7).
func TestGenFunctionWithSevenParamsReadsSeventhFromStack(t *testing.T) {
	ar := arena.New()
	params := make([]arena.Identifier, 7)
	paramTypes := make([]arena.Type, 7)
	for i := range params {
		params[i] = ar.NewIdentifier("p", arena.Span{})
		paramTypes[i] = arena.TypeInt
	}
	fn := &tac.Function{
		Name:       ar.SourceIdentifier("f", arena.Span{}),
		Global:     true,
		Params:     params,
		ParamTypes: paramTypes,
		Body:       []tac.Instruction{&tac.Ret{Src: tac.VarValue(params[6], arena.TypeInt)}},
	}
	asmFn := GenFunction(fn, ar)

	var sawStackRead bool
	for _, instr := range asmFn.Body {
		mov, ok := instr.(*Mov)
		if !ok {
			continue
		}
		if mov.Src.Kind == OpStack && mov.Src.Offset == incomingStackArgOffset(0) {
			sawStackRead = true
		}
	}
	if !sawStackRead {
		t.Fatalf("expected the seventh parameter to be read from %d(%%rbp), got %#v", incomingStackArgOffset(0), asmFn.Body)
	}
}
