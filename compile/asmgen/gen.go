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
	"fmt"

	"github.com/samber/lo"

	"minic/arena"
	"minic/compile/tac"
)

// generator lowers one function's TAC body into assembly instructions over
// Pseudo operands, leaving Pseudo-to-Stack assignment and illegal-operand
// rewriting to the legalization pass (§4.7, §4.8). The one-big-switch
// dispatch mirrors the teacher's lowerBlock/lowerValue shape in
// falcon/compile/codegen/lower_x86.go.
type generator struct {
	ar   *arena.Arena
	body []Instruction
}

func (g *generator) emit(i Instruction) { g.body = append(g.body, i) }

// mangleName renders an Identifier as an assembly symbol: the bare source
// name for anything with linkage (Disambiguator == 0, per arena's
// SourceIdentifier), or `name.<n>` for a compiler-generated or no-linkage
// name, so two block-scope statics with the same spelling in different
// functions never collide (§9).
func mangleName(ar *arena.Arena, id arena.Identifier) string {
	name := ar.Text(id.Sym)
	if id.Disambiguator == 0 {
		return name
	}
	return fmt.Sprintf("%s.%d", name, id.Disambiguator)
}

func sizeOfType(t arena.Type) arena.OperandSize { return arena.SizeOf(t) }

func (g *generator) val(v tac.Value) Operand {
	if v.Kind == tac.ValConstant {
		return Imm(v.Const.AsInt64())
	}
	return Pseudo(v.Var)
}

// GenProgram lowers a whole TAC program to the (pre-legalization) assembly
// AST (§4.7).
func GenProgram(prog *tac.Program, ar *arena.Arena) *Program {
	out := &Program{}
	for _, tl := range prog.TopLevels {
		switch v := tl.(type) {
		case *tac.Function:
			out.TopLevels = append(out.TopLevels, GenFunction(v, ar))
		case *tac.StaticVariable:
			out.TopLevels = append(out.TopLevels, GenStaticVar(v, ar))
		}
	}
	return out
}

// alignOf returns the ELF object-file alignment of a static's storage
// (original_source's `static_var_properties`: Int -> 4, everything wider
// -> 8).
func alignOf(t arena.Type) int {
	if t.Size() == 8 {
		return 8
	}
	return 4
}

func GenStaticVar(tv *tac.StaticVariable, ar *arena.Arena) *StaticVariable {
	return &StaticVariable{
		Name:      mangleName(ar, tv.Name),
		Global:    tv.Global,
		Alignment: alignOf(tv.Type),
		Size:      arena.SizeOf(tv.Type),
		Zero:      tv.Init.IsZero(),
		InitValue: tv.Init.AsInt64(),
	}
}

// incomingStackArgOffset returns the %rbp-relative offset of the stackIdx'th
// (0-based, among stack-passed args only) incoming argument: 16 skips the
// return address and the saved frame pointer, and each later argument sits
// 8 bytes further out, mirroring the caller's Push sequence in lowerCall.
func incomingStackArgOffset(stackIdx int) int {
	return 16 + 8*stackIdx
}

// GenFunction lowers one TAC function, including the System V AMD64
// parameter-passing prologue that copies incoming argument registers -- and,
// for the seventh parameter and beyond, incoming stack slots above the
// saved frame pointer -- into each parameter's Pseudo slot (§4.7).
func GenFunction(fn *tac.Function, ar *arena.Arena) *Function {
	g := &generator{ar: ar}
	for i, pid := range fn.Params {
		if i < len(ArgRegs) {
			g.emit(&Mov{Size: sizeOfType(fn.ParamTypes[i]), Src: Reg(ArgReg(i)), Dst: Pseudo(pid)})
			continue
		}
		src := Stack(incomingStackArgOffset(i - len(ArgRegs)))
		g.emit(&Mov{Size: sizeOfType(fn.ParamTypes[i]), Src: src, Dst: Pseudo(pid)})
	}
	for _, instr := range fn.Body {
		g.lowerInstr(instr)
	}
	return &Function{
		Name:   mangleName(ar, fn.Name),
		Global: fn.Global,
		Params: fn.Params,
		Body:   g.body,
	}
}

func (g *generator) lowerInstr(instr tac.Instruction) {
	switch i := instr.(type) {
	case *tac.Ret:
		g.emit(&Mov{Size: sizeOfType(i.Src.Type), Src: g.val(i.Src), Dst: Reg(ReturnReg)})
		g.emit(&Ret{})
	case *tac.Unary:
		g.lowerUnary(i)
	case *tac.Binary:
		g.lowerBinary(i)
	case *tac.Copy:
		g.emit(&Mov{Size: sizeOfType(i.Src.Type), Src: g.val(i.Src), Dst: g.val(i.Dst)})
	case *tac.Jump:
		g.emit(&Jmp{Target: i.Target})
	case *tac.JumpIfZero:
		g.emit(&Cmp{Size: sizeOfType(i.Cond.Type), Src: Imm(0), Dst: g.val(i.Cond)})
		g.emit(&JmpCC{Cond: CC_E, Target: i.Target})
	case *tac.JumpIfNotZero:
		g.emit(&Cmp{Size: sizeOfType(i.Cond.Type), Src: Imm(0), Dst: g.val(i.Cond)})
		g.emit(&JmpCC{Cond: CC_NE, Target: i.Target})
	case *tac.Label:
		g.emit(&Label{Name: i.Name})
	case *tac.FunCall:
		g.lowerCall(i)
	case *tac.SignExtend:
		g.emit(&Movsx{SrcSize: sizeOfType(i.Src.Type), DstSize: sizeOfType(i.Dst.Type), Src: g.val(i.Src), Dst: g.val(i.Dst)})
	case *tac.ZeroExtend:
		g.emit(&Movzx{SrcSize: sizeOfType(i.Src.Type), DstSize: sizeOfType(i.Dst.Type), Src: g.val(i.Src), Dst: g.val(i.Dst)})
	case *tac.Truncate:
		g.emit(&Mov{Size: sizeOfType(i.Dst.Type), Src: g.val(i.Src), Dst: g.val(i.Dst)})
	default:
		panic(fmt.Sprintf("asmgen: unknown TAC instruction kind %T", instr))
	}
}

// lowerUnary special-cases logical not, which has no single machine
// instruction: it compares the operand to zero and materializes the result
// as a 0/1 byte (§4.7).
func (g *generator) lowerUnary(i *tac.Unary) {
	sz := sizeOfType(i.Src.Type)
	if i.Op == tac.UnaryNot {
		g.emit(&Cmp{Size: sz, Src: Imm(0), Dst: g.val(i.Src)})
		g.emit(&Mov{Size: arena.LongWord, Src: Imm(0), Dst: g.val(i.Dst)})
		g.emit(&SetCC{Cond: CC_E, Dst: g.val(i.Dst)})
		return
	}
	g.emit(&Mov{Size: sz, Src: g.val(i.Src), Dst: g.val(i.Dst)})
	g.emit(&Unary{Op: mapUnaryOp(i.Op), Size: sz, Operand: g.val(i.Dst)})
}

func mapUnaryOp(op tac.UnaryOp) UnaryOp {
	switch op {
	case tac.UnaryNegate:
		return Neg
	case tac.UnaryComplement:
		return Not
	default:
		panic("asmgen: unary not should be handled by lowerUnary, not mapUnaryOp")
	}
}

// lowerBinary dispatches §4.7's three instruction shapes: division/modulo
// (Cdq + Idiv, reading the quotient from %(e|r)ax and the remainder from
// %(e|r)dx), comparisons (Cmp + SetCC with a signedness-dependent condition
// code), and plain arithmetic (Mov then a two-operand Binary instruction).
func (g *generator) lowerBinary(i *tac.Binary) {
	switch i.Op {
	case tac.BinDiv, tac.BinMod:
		sz := sizeOfType(i.Left.Type)
		signed := i.Left.Type.IsSigned()
		g.emit(&Mov{Size: sz, Src: g.val(i.Left), Dst: Reg(AX)})
		g.emit(&Cdq{Size: sz, Signed: signed})
		g.emit(&Idiv{Size: sz, Signed: signed, Operand: g.val(i.Right)})
		if i.Op == tac.BinDiv {
			g.emit(&Mov{Size: sz, Src: Reg(AX), Dst: g.val(i.Dst)})
		} else {
			g.emit(&Mov{Size: sz, Src: Reg(DX), Dst: g.val(i.Dst)})
		}
	case tac.BinEqual, tac.BinNotEqual, tac.BinLess, tac.BinLessEq, tac.BinGreater, tac.BinGreaterEq:
		sz := sizeOfType(i.Left.Type)
		signed := i.Left.Type.IsSigned()
		g.emit(&Cmp{Size: sz, Src: g.val(i.Right), Dst: g.val(i.Left)})
		g.emit(&Mov{Size: arena.LongWord, Src: Imm(0), Dst: g.val(i.Dst)})
		g.emit(&SetCC{Cond: condCodeFor(i.Op, signed), Dst: g.val(i.Dst)})
	default:
		sz := sizeOfType(i.Left.Type)
		g.emit(&Mov{Size: sz, Src: g.val(i.Left), Dst: g.val(i.Dst)})
		g.emit(&Binary{Op: mapBinaryOp(i.Op), Size: sz, Src: g.val(i.Right), Dst: g.val(i.Dst)})
	}
}

func condCodeFor(op tac.BinaryOp, signed bool) CondCode {
	switch op {
	case tac.BinEqual:
		return CC_E
	case tac.BinNotEqual:
		return CC_NE
	case tac.BinLess:
		return lo.Ternary(signed, CC_L, CC_B)
	case tac.BinLessEq:
		return lo.Ternary(signed, CC_LE, CC_BE)
	case tac.BinGreater:
		return lo.Ternary(signed, CC_G, CC_A)
	case tac.BinGreaterEq:
		return lo.Ternary(signed, CC_GE, CC_AE)
	default:
		panic("asmgen: not a comparison operator")
	}
}

func mapBinaryOp(op tac.BinaryOp) BinaryOp {
	switch op {
	case tac.BinAdd:
		return Add
	case tac.BinSub:
		return Sub
	case tac.BinMul:
		return Mul
	default:
		panic("asmgen: division/modulo/comparison should not reach mapBinaryOp")
	}
}

// lowerCall implements the System V AMD64 call sequence (§4.7): up to six
// arguments go in registers; the rest are pushed on the stack, right to
// left, with a leading `Sub SP, 8` when the stack-argument count is odd so
// the stack stays 16-byte aligned at the `Call`, and a matching `Add SP,
// ...` afterward to pop everything back off. Grounded on
// `_examples/original_source/codegen/src/asm_gen.rs`'s
// handle_function_call/push_stack_args/cleanup_stack.
func (g *generator) lowerCall(i *tac.FunCall) {
	registerArgs, stackArgs := i.Args, []tac.Value(nil)
	if len(i.Args) > len(ArgRegs) {
		registerArgs, stackArgs = i.Args[:len(ArgRegs)], i.Args[len(ArgRegs):]
	}

	padding := 0
	if len(stackArgs)%2 != 0 {
		padding = 8
	}
	if padding != 0 {
		g.emit(&Binary{Op: Sub, Size: arena.QuadWord, Src: Imm(int64(padding)), Dst: Reg(SP)})
	}

	lo.ForEach(registerArgs, func(a tac.Value, idx int) {
		g.emit(&Mov{Size: sizeOfType(a.Type), Src: g.val(a), Dst: Reg(ArgReg(idx))})
	})

	for idx := len(stackArgs) - 1; idx >= 0; idx-- {
		a := stackArgs[idx]
		operand := g.val(a)
		if operand.IsImmediate() {
			g.emit(&Push{Operand: operand})
			continue
		}
		g.emit(&Mov{Size: sizeOfType(a.Type), Src: operand, Dst: Reg(AX)})
		g.emit(&Push{Operand: Reg(AX)})
	}

	g.emit(&Call{Target: mangleName(g.ar, i.Name)})

	bytesToRemove := 8*len(stackArgs) + padding
	if bytesToRemove != 0 {
		g.emit(&Binary{Op: Add, Size: arena.QuadWord, Src: Imm(int64(bytesToRemove)), Dst: Reg(SP)})
	}

	g.emit(&Mov{Size: sizeOfType(i.Dst.Type), Src: Reg(ReturnReg), Dst: g.val(i.Dst)})
}
