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
package tac

import (
	"fmt"

	"github.com/samber/lo"

	"minic/arena"
	"minic/ast"
	"minic/sema"
)

// lowering carries the per-compilation state (arena for fresh temps/labels)
// and the instruction buffer of the function currently being lowered. The
// dispatch shape -- one big switch per node kind, each case delegating to a
// small helper -- mirrors the teacher's lowerValue/lowerBlock design in
// falcon/compile/codegen/lower_x86.go, adapted from SSA-value lowering to
// flat-AST-to-TAC lowering.
type lowering struct {
	ar   *arena.Arena
	sym  *sema.SymbolTable
	body []Instruction
}

func (lw *lowering) emit(instr Instruction) { lw.body = append(lw.body, instr) }

func (lw *lowering) temp(t arena.Type) Value {
	return VarValue(lw.ar.Temp(arena.Span{}), t)
}

// Lower runs TAC lowering over a fully checked program (§4.6). Must run
// after Resolve, LabelLoops, and TypeCheck.
func Lower(prog *ast.Program, sym *sema.SymbolTable, ar *arena.Arena) *Program {
	out := &Program{}
	for _, d := range prog.Decls {
		if fd, ok := d.(*ast.FunctionDecl); ok && fd.Body != nil {
			out.TopLevels = append(out.TopLevels, lowerFunction(fd, sym, ar))
		}
	}
	for _, id := range sym.Order() {
		entry := sym.MustGet(id)
		if entry.Attrs.Kind == sema.AttrStatic && entry.Attrs.Init != sema.NoInitializer {
			out.TopLevels = append(out.TopLevels, &StaticVariable{
				Name:   id,
				Global: entry.Attrs.External,
				Type:   entry.Type.Scalar,
				Init:   entry.Attrs.Val,
			})
		}
	}
	return out
}

func lowerFunction(fd *ast.FunctionDecl, sym *sema.SymbolTable, ar *arena.Arena) *Function {
	entry := sym.MustGet(fd.Resolved)
	lw := &lowering{ar: ar, sym: sym}
	lw.lowerBlock(fd.Body)
	// Every function falls through to an implicit `return 0` if control
	// reaches the end without an explicit return (undefined by C for
	// non-void functions other than main, but harmless and matches the
	// common compiler convention of never leaving a function body without
	// a terminating Ret).
	lw.emit(&Ret{Src: ConstValue(arena.ConstInt(0))})
	return &Function{
		Name:       fd.Resolved,
		Params:     fd.ParamIdents,
		ParamTypes: fd.ParamTypes,
		RetType:    fd.RetType,
		Global:     entry.Attrs.External,
		Body:       lw.body,
	}
}

func (lw *lowering) lowerBlock(b *ast.Block) {
	for _, item := range b.Items {
		lw.lowerBlockItem(item)
	}
}

func (lw *lowering) lowerBlockItem(item ast.BlockItem) {
	switch it := item.(type) {
	case *ast.FunctionDecl:
		// A nested prototype carries no code of its own.
	case *ast.VariableDecl:
		lw.lowerLocalVarDecl(it)
	case ast.Statement:
		lw.lowerStatement(it)
	default:
		panic(fmt.Sprintf("tac: unknown block item kind %T", item))
	}
}

func (lw *lowering) lowerLocalVarDecl(vd *ast.VariableDecl) {
	if vd.Storage != ast.StorageNone {
		// static/extern locals are emitted as StaticVariable top-levels,
		// driven off the symbol table in Lower, not from the body.
		return
	}
	if vd.Init != nil {
		src := lw.lowerExpr(vd.Init)
		lw.emit(&Copy{Src: src, Dst: VarValue(vd.Resolved, vd.Type)})
	}
}

func (lw *lowering) lowerStatement(s ast.Statement) {
	switch st := s.(type) {
	case *ast.ReturnStmt:
		if st.Expr == nil {
			lw.emit(&Ret{Src: ConstValue(arena.ConstInt(0))})
			return
		}
		lw.emit(&Ret{Src: lw.lowerExpr(st.Expr)})
	case *ast.ExprStmt:
		lw.lowerExpr(st.Expr)
	case *ast.NullStmt:
	case *ast.IfStmt:
		lw.lowerIf(st)
	case *ast.CompoundStmt:
		lw.lowerBlock(st.Block)
	case *ast.WhileStmt:
		lw.lowerWhile(st)
	case *ast.DoWhileStmt:
		lw.lowerDoWhile(st)
	case *ast.ForStmt:
		lw.lowerFor(st)
	case *ast.BreakStmt:
		lw.emit(&Jump{Target: "break." + st.Label.Name})
	case *ast.ContinueStmt:
		lw.emit(&Jump{Target: "continue." + st.Label.Name})
	default:
		panic(fmt.Sprintf("tac: unknown statement kind %T", s))
	}
}

func (lw *lowering) lowerIf(st *ast.IfStmt) {
	cond := lw.lowerExpr(st.Cond)
	if st.Else == nil {
		end := lw.ar.Label(st.Span)
		lw.emit(&JumpIfZero{Cond: cond, Target: end})
		lw.lowerStatement(st.Then)
		lw.emit(&Label{Name: end})
		return
	}
	elseLbl := lw.ar.Label(st.Span)
	end := lw.ar.Label(st.Span)
	lw.emit(&JumpIfZero{Cond: cond, Target: elseLbl})
	lw.lowerStatement(st.Then)
	lw.emit(&Jump{Target: end})
	lw.emit(&Label{Name: elseLbl})
	lw.lowerStatement(st.Else)
	lw.emit(&Label{Name: end})
}

// lowerWhile follows §9's loop templates: the continue target re-evaluates
// the condition, the break target follows the loop entirely.
func (lw *lowering) lowerWhile(st *ast.WhileStmt) {
	label := st.Label.Name
	continueLbl := "continue." + label
	breakLbl := "break." + label
	lw.emit(&Label{Name: continueLbl})
	cond := lw.lowerExpr(st.Cond)
	lw.emit(&JumpIfZero{Cond: cond, Target: breakLbl})
	lw.lowerStatement(st.Body)
	lw.emit(&Jump{Target: continueLbl})
	lw.emit(&Label{Name: breakLbl})
}

func (lw *lowering) lowerDoWhile(st *ast.DoWhileStmt) {
	label := st.Label.Name
	start := lw.ar.Label(st.Span)
	continueLbl := "continue." + label
	breakLbl := "break." + label
	lw.emit(&Label{Name: start})
	lw.lowerStatement(st.Body)
	lw.emit(&Label{Name: continueLbl})
	cond := lw.lowerExpr(st.Cond)
	lw.emit(&JumpIfNotZero{Cond: cond, Target: start})
	lw.emit(&Label{Name: breakLbl})
}

// lowerFor places the continue target immediately before the post
// expression, per §9's two-counter invariant: `continue` in a for-loop runs
// the post-expression before re-testing the condition, rather than skipping
// straight back to the condition the way while's continue does.
func (lw *lowering) lowerFor(st *ast.ForStmt) {
	if st.Init.Decl != nil {
		lw.lowerLocalVarDecl(st.Init.Decl)
	} else if st.Init.Expr != nil {
		lw.lowerExpr(st.Init.Expr)
	}
	label := st.Label.Name
	start := lw.ar.Label(st.Span)
	continueLbl := "continue." + label
	breakLbl := "break." + label
	lw.emit(&Label{Name: start})
	if st.Cond != nil {
		cond := lw.lowerExpr(st.Cond)
		lw.emit(&JumpIfZero{Cond: cond, Target: breakLbl})
	}
	lw.lowerStatement(st.Body)
	lw.emit(&Label{Name: continueLbl})
	if st.Post != nil {
		lw.lowerExpr(st.Post)
	}
	lw.emit(&Jump{Target: start})
	lw.emit(&Label{Name: breakLbl})
}

func mapUnaryOp(op ast.UnaryOp) UnaryOp {
	switch op {
	case ast.UnaryNegate:
		return UnaryNegate
	case ast.UnaryComplement:
		return UnaryComplement
	case ast.UnaryLogicalNot:
		return UnaryNot
	default:
		panic("tac: unknown unary operator")
	}
}

func mapBinaryOp(op ast.BinaryOp) BinaryOp {
	switch op {
	case ast.BinAdd:
		return BinAdd
	case ast.BinSub:
		return BinSub
	case ast.BinMul:
		return BinMul
	case ast.BinDiv:
		return BinDiv
	case ast.BinMod:
		return BinMod
	case ast.BinLess:
		return BinLess
	case ast.BinLessEq:
		return BinLessEq
	case ast.BinGreater:
		return BinGreater
	case ast.BinGreaterEq:
		return BinGreaterEq
	case ast.BinEqual:
		return BinEqual
	case ast.BinNotEqual:
		return BinNotEqual
	default:
		panic("tac: unknown binary operator")
	}
}

func (lw *lowering) lowerExpr(e ast.Expr) Value {
	switch ex := e.(type) {
	case *ast.ConstantExpr:
		return ConstValue(ex.Value)
	case *ast.VarExpr:
		return VarValue(ex.Resolved, ex.Type)
	case *ast.UnaryExpr:
		src := lw.lowerExpr(ex.Operand)
		dst := lw.temp(ex.Type)
		lw.emit(&Unary{Op: mapUnaryOp(ex.Op), Src: src, Dst: dst})
		return dst
	case *ast.BinaryExpr:
		if ex.Op == ast.BinLogicalAnd {
			return lw.lowerLogicalAnd(ex)
		}
		if ex.Op == ast.BinLogicalOr {
			return lw.lowerLogicalOr(ex)
		}
		left := lw.lowerExpr(ex.Left)
		right := lw.lowerExpr(ex.Right)
		dst := lw.temp(ex.Type)
		lw.emit(&Binary{Op: mapBinaryOp(ex.Op), Left: left, Right: right, Dst: dst})
		return dst
	case *ast.ConditionalExpr:
		return lw.lowerConditional(ex)
	case *ast.AssignmentExpr:
		rhs := lw.lowerExpr(ex.Right)
		lhs := ex.Left.(*ast.VarExpr)
		dst := VarValue(lhs.Resolved, lhs.Type)
		lw.emit(&Copy{Src: rhs, Dst: dst})
		return dst
	case *ast.CallExpr:
		args := lo.Map(ex.Args, func(a ast.Expr, _ int) Value { return lw.lowerExpr(a) })
		dst := lw.temp(ex.Type)
		lw.emit(&FunCall{Name: ex.Resolved, Args: args, Dst: dst})
		return dst
	case *ast.CastExpr:
		return lw.lowerCast(ex)
	default:
		panic(fmt.Sprintf("tac: unknown expression kind %T", e))
	}
}

// lowerLogicalAnd short-circuits: if either operand is falsy, the result is
// 0 without evaluating the remainder (§4.6).
func (lw *lowering) lowerLogicalAnd(ex *ast.BinaryExpr) Value {
	falseLbl := lw.ar.Label(ex.Span)
	end := lw.ar.Label(ex.Span)
	result := lw.temp(ex.Type)
	left := lw.lowerExpr(ex.Left)
	lw.emit(&JumpIfZero{Cond: left, Target: falseLbl})
	right := lw.lowerExpr(ex.Right)
	lw.emit(&JumpIfZero{Cond: right, Target: falseLbl})
	lw.emit(&Copy{Src: ConstValue(arena.ConstInt(1)), Dst: result})
	lw.emit(&Jump{Target: end})
	lw.emit(&Label{Name: falseLbl})
	lw.emit(&Copy{Src: ConstValue(arena.ConstInt(0)), Dst: result})
	lw.emit(&Label{Name: end})
	return result
}

// lowerLogicalOr short-circuits: if either operand is truthy, the result is
// 1 without evaluating the remainder (§4.6).
func (lw *lowering) lowerLogicalOr(ex *ast.BinaryExpr) Value {
	trueLbl := lw.ar.Label(ex.Span)
	end := lw.ar.Label(ex.Span)
	result := lw.temp(ex.Type)
	left := lw.lowerExpr(ex.Left)
	lw.emit(&JumpIfNotZero{Cond: left, Target: trueLbl})
	right := lw.lowerExpr(ex.Right)
	lw.emit(&JumpIfNotZero{Cond: right, Target: trueLbl})
	lw.emit(&Copy{Src: ConstValue(arena.ConstInt(0)), Dst: result})
	lw.emit(&Jump{Target: end})
	lw.emit(&Label{Name: trueLbl})
	lw.emit(&Copy{Src: ConstValue(arena.ConstInt(1)), Dst: result})
	lw.emit(&Label{Name: end})
	return result
}

func (lw *lowering) lowerConditional(ex *ast.ConditionalExpr) Value {
	elseLbl := lw.ar.Label(ex.Span)
	end := lw.ar.Label(ex.Span)
	result := lw.temp(ex.Type)
	cond := lw.lowerExpr(ex.Cond)
	lw.emit(&JumpIfZero{Cond: cond, Target: elseLbl})
	thenVal := lw.lowerExpr(ex.Then)
	lw.emit(&Copy{Src: thenVal, Dst: result})
	lw.emit(&Jump{Target: end})
	lw.emit(&Label{Name: elseLbl})
	elseVal := lw.lowerExpr(ex.Else)
	lw.emit(&Copy{Src: elseVal, Dst: result})
	lw.emit(&Label{Name: end})
	return result
}

// lowerCast picks SignExtend/ZeroExtend/Truncate/Copy by comparing operand
// sizes, per §4.6: widening a signed source sign-extends, widening an
// unsigned source zero-extends, narrowing always truncates, and a same-size
// reinterpretation (e.g. int<->unsigned int) is a plain Copy.
func (lw *lowering) lowerCast(ex *ast.CastExpr) Value {
	src := lw.lowerExpr(ex.Inner)
	dst := lw.temp(ex.Target)
	fromSize := arena.SizeOf(ex.Inner.GetType())
	toSize := arena.SizeOf(ex.Target)
	switch {
	case toSize == fromSize:
		lw.emit(&Copy{Src: src, Dst: dst})
	case toSize < fromSize:
		lw.emit(&Truncate{Src: src, Dst: dst})
	case ex.Inner.GetType().IsSigned():
		lw.emit(&SignExtend{Src: src, Dst: dst})
	default:
		lw.emit(&ZeroExtend{Src: src, Dst: dst})
	}
	return dst
}
