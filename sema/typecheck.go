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
	"fmt"

	"github.com/samber/lo"

	"minic/arena"
	"minic/ast"
	"minic/srcmap"
)

// TypeError is a fatal type-checking failure (§4.5, §7).
type TypeError struct{ Message string }

func (e *TypeError) Error() string { return e.Message }

type checker struct {
	ar     *arena.Arena
	sm     *srcmap.SourceMap
	sym    *SymbolTable
	retTyp arena.Type // return type of the function currently being checked
	isVoid bool
}

func (c *checker) fail(span arena.Span, format string, args ...interface{}) {
	panic(&TypeError{Message: c.sm.Format("type error", span, format, args...)})
}

// TypeCheck runs type checking over prog in place (§4.5): it builds the
// symbol table, inserts explicit Cast nodes everywhere an implicit
// conversion occurs, and rejects every ill-typed construct. Must run after
// Resolve and LabelLoops.
func TypeCheck(prog *ast.Program, ar *arena.Arena, sm *srcmap.SourceMap) (sym *SymbolTable, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if te, ok := rec.(*TypeError); ok {
				err = te
				return
			}
			panic(rec)
		}
	}()
	c := &checker{ar: ar, sm: sm, sym: NewSymbolTable()}
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.FunctionDecl:
			c.checkFunctionDecl(decl, true)
		case *ast.VariableDecl:
			c.checkFileVarDecl(decl)
		}
	}
	return c.sym, nil
}

func funcTypeOf(ar *arena.Arena, fd *ast.FunctionDecl) arena.TypeId {
	return ar.InternFuncType(arena.FunctionType{Ret: fd.RetType, Params: append([]arena.Type(nil), fd.ParamTypes...)})
}

func (c *checker) checkFunctionDecl(fd *ast.FunctionDecl, atFileScope bool) {
	_ = atFileScope
	ftid := funcTypeOf(c.ar, fd)
	hasBody := fd.Body != nil
	external := fd.Storage != ast.StorageStatic

	if prior, ok := c.sym.Get(fd.Resolved); ok {
		if !prior.Type.IsFunc {
			c.fail(fd.Span, "%q redeclared as a different kind of symbol", fd.Name)
		}
		priorFt := c.ar.FuncType(prior.Type.FuncType)
		newFt := c.ar.FuncType(ftid)
		if priorFt.Ret != newFt.Ret || len(priorFt.Params) != len(newFt.Params) {
			c.fail(fd.Span, "conflicting declarations of function %q", fd.Name)
		}
		if prior.Attrs.Defined && hasBody {
			c.fail(fd.Span, "redefinition of function %q", fd.Name)
		}
		if !prior.Attrs.External && external && prior.Attrs.Defined {
			// a static definition followed by a non-static declaration is fine
			// so long as the earlier, stricter linkage wins (§4.5).
			external = false
		}
		entry := &SymbolEntry{
			Type: FuncEntry(ftid),
			Attrs: Attributes{
				Kind:     AttrFunction,
				Defined:  prior.Attrs.Defined || hasBody,
				External: prior.Attrs.External && external,
			},
			Span: fd.Span,
		}
		c.sym.Set(fd.Resolved, entry)
	} else {
		c.sym.Set(fd.Resolved, &SymbolEntry{
			Type: FuncEntry(ftid),
			Attrs: Attributes{
				Kind:     AttrFunction,
				Defined:  hasBody,
				External: external,
			},
			Span: fd.Span,
		})
	}

	if !hasBody {
		return
	}
	for i, pid := range fd.ParamIdents {
		c.sym.Set(pid, &SymbolEntry{
			Type:  ScalarEntry(fd.ParamTypes[i]),
			Attrs: Attributes{Kind: AttrLocal},
			Span:  fd.Span,
		})
	}
	savedRet, savedVoid := c.retTyp, c.isVoid
	c.retTyp, c.isVoid = fd.RetType, fd.RetType == arena.TypeInvalid
	c.checkBlock(fd.Body)
	c.retTyp, c.isVoid = savedRet, savedVoid
}

func (c *checker) checkFileVarDecl(vd *ast.VariableDecl) {
	external := vd.Storage != ast.StorageStatic
	var initKind InitKind
	var val arena.StaticInit

	switch {
	case vd.Init != nil:
		lit, ok := vd.Init.(*ast.ConstantExpr)
		if !ok {
			c.fail(vd.Span, "file-scope initializer for %q must be a constant expression", vd.Name)
		}
		val = convertConstToStatic(lit.Value, vd.Type)
		initKind = Initial
	case vd.Storage == ast.StorageExtern:
		initKind = NoInitializer
	default:
		initKind = Tentative
	}

	if prior, ok := c.sym.Get(vd.Resolved); ok {
		if prior.Type.IsFunc {
			c.fail(vd.Span, "%q redeclared as a different kind of symbol", vd.Name)
		}
		if prior.Type.Scalar != vd.Type {
			c.fail(vd.Span, "conflicting types for %q", vd.Name)
		}
		if vd.Storage == ast.StorageExtern {
			external = prior.Attrs.External
		} else if prior.Attrs.External != external {
			c.fail(vd.Span, "conflicting linkage for %q", vd.Name)
		}
		if prior.Attrs.Init == Initial && initKind == Initial {
			c.fail(vd.Span, "redefinition of %q", vd.Name)
		}
		if initKind == NoInitializer {
			initKind = prior.Attrs.Init
			val = prior.Attrs.Val
		} else if prior.Attrs.Init == Initial {
			initKind = Initial
			val = prior.Attrs.Val
		} else if prior.Attrs.Init == Tentative && initKind == Tentative {
			initKind = Tentative
		}
	}

	c.sym.Set(vd.Resolved, &SymbolEntry{
		Type:  ScalarEntry(vd.Type),
		Attrs: Attributes{Kind: AttrStatic, External: external, Init: initKind, Val: val},
		Span:  vd.Span,
	})
}

func (c *checker) checkBlock(b *ast.Block) {
	for _, item := range b.Items {
		c.checkBlockItem(item)
	}
}

func (c *checker) checkBlockItem(item ast.BlockItem) {
	switch it := item.(type) {
	case *ast.FunctionDecl:
		c.checkFunctionDecl(it, false)
	case *ast.VariableDecl:
		c.checkLocalVarDecl(it)
	case ast.Statement:
		c.checkStatement(it)
	default:
		panic(fmt.Sprintf("sema: unknown block item kind %T", item))
	}
}

func (c *checker) checkLocalVarDecl(vd *ast.VariableDecl) {
	switch vd.Storage {
	case ast.StorageExtern:
		if prior, ok := c.sym.Get(vd.Resolved); ok {
			if prior.Type.IsFunc || prior.Type.Scalar != vd.Type {
				c.fail(vd.Span, "conflicting types for %q", vd.Name)
			}
			return
		}
		c.sym.Set(vd.Resolved, &SymbolEntry{
			Type:  ScalarEntry(vd.Type),
			Attrs: Attributes{Kind: AttrStatic, External: true, Init: NoInitializer},
			Span:  vd.Span,
		})
	case ast.StorageStatic:
		var val arena.StaticInit
		if vd.Init != nil {
			lit, ok := vd.Init.(*ast.ConstantExpr)
			if !ok {
				c.fail(vd.Span, "static local initializer for %q must be a constant expression", vd.Name)
			}
			val = convertConstToStatic(lit.Value, vd.Type)
		}
		c.sym.Set(vd.Resolved, &SymbolEntry{
			Type:  ScalarEntry(vd.Type),
			Attrs: Attributes{Kind: AttrStatic, External: false, Init: Initial, Val: val},
			Span:  vd.Span,
		})
	default:
		c.sym.Set(vd.Resolved, &SymbolEntry{
			Type:  ScalarEntry(vd.Type),
			Attrs: Attributes{Kind: AttrLocal},
			Span:  vd.Span,
		})
		if vd.Init != nil {
			vd.Init = c.checkExpr(vd.Init)
			vd.Init = c.convertTo(vd.Init, vd.Type)
		}
	}
}

func (c *checker) checkStatement(s ast.Statement) {
	switch st := s.(type) {
	case *ast.ReturnStmt:
		if st.Expr == nil {
			return
		}
		st.Expr = c.checkExpr(st.Expr)
		if c.isVoid {
			c.fail(st.Span, "returning a value from a void function")
		}
		st.Expr = c.convertTo(st.Expr, c.retTyp)
	case *ast.ExprStmt:
		st.Expr = c.checkExpr(st.Expr)
	case *ast.NullStmt:
	case *ast.IfStmt:
		st.Cond = c.checkExpr(st.Cond)
		c.checkStatement(st.Then)
		if st.Else != nil {
			c.checkStatement(st.Else)
		}
	case *ast.CompoundStmt:
		c.checkBlock(st.Block)
	case *ast.WhileStmt:
		st.Cond = c.checkExpr(st.Cond)
		c.checkStatement(st.Body)
	case *ast.DoWhileStmt:
		c.checkStatement(st.Body)
		st.Cond = c.checkExpr(st.Cond)
	case *ast.ForStmt:
		if st.Init.Decl != nil {
			c.checkLocalVarDecl(st.Init.Decl)
		} else if st.Init.Expr != nil {
			st.Init.Expr = c.checkExpr(st.Init.Expr)
		}
		if st.Cond != nil {
			st.Cond = c.checkExpr(st.Cond)
		}
		if st.Post != nil {
			st.Post = c.checkExpr(st.Post)
		}
		c.checkStatement(st.Body)
	case *ast.BreakStmt, *ast.ContinueStmt:
	default:
		panic(fmt.Sprintf("sema: unknown statement kind %T", s))
	}
}

// convertTo wraps e in a CastExpr to target if its checked type differs,
// the explicit-Cast-insertion design of §4.5/§9.
func (c *checker) convertTo(e ast.Expr, target arena.Type) ast.Expr {
	if e.GetType() == target {
		return e
	}
	cast := &ast.CastExpr{Target: target, Inner: e}
	cast.Span = e.GetSpan()
	cast.Type = target
	return cast
}

func (c *checker) checkExpr(e ast.Expr) ast.Expr {
	switch ex := e.(type) {
	case *ast.ConstantExpr:
		ex.Type = ex.Value.Type
		return ex
	case *ast.VarExpr:
		entry, ok := c.sym.Get(ex.Resolved)
		if !ok || entry.Type.IsFunc {
			c.fail(ex.Span, "%q does not name a variable", ex.Name)
		}
		ex.Type = entry.Type.Scalar
		return ex
	case *ast.UnaryExpr:
		ex.Operand = c.checkExpr(ex.Operand)
		if ex.Op == ast.UnaryLogicalNot {
			ex.Type = arena.TypeInt
		} else {
			ex.Type = ex.Operand.GetType()
		}
		return ex
	case *ast.BinaryExpr:
		ex.Left = c.checkExpr(ex.Left)
		ex.Right = c.checkExpr(ex.Right)
		if ex.Op == ast.BinLogicalAnd || ex.Op == ast.BinLogicalOr {
			ex.Type = arena.TypeInt
			return ex
		}
		common := arena.CommonType(ex.Left.GetType(), ex.Right.GetType())
		ex.Left = c.convertTo(ex.Left, common)
		ex.Right = c.convertTo(ex.Right, common)
		switch ex.Op {
		case ast.BinLess, ast.BinLessEq, ast.BinGreater, ast.BinGreaterEq, ast.BinEqual, ast.BinNotEqual:
			ex.Type = arena.TypeInt
		default:
			ex.Type = common
		}
		return ex
	case *ast.ConditionalExpr:
		ex.Cond = c.checkExpr(ex.Cond)
		ex.Then = c.checkExpr(ex.Then)
		ex.Else = c.checkExpr(ex.Else)
		common := arena.CommonType(ex.Then.GetType(), ex.Else.GetType())
		ex.Then = c.convertTo(ex.Then, common)
		ex.Else = c.convertTo(ex.Else, common)
		ex.Type = common
		return ex
	case *ast.AssignmentExpr:
		ex.Left = c.checkExpr(ex.Left)
		ex.Right = c.checkExpr(ex.Right)
		ex.Right = c.convertTo(ex.Right, ex.Left.GetType())
		ex.Type = ex.Left.GetType()
		return ex
	case *ast.CallExpr:
		entry, ok := c.sym.Get(ex.Resolved)
		if !ok || !entry.Type.IsFunc {
			c.fail(ex.Span, "%q does not name a function", ex.Name)
		}
		ft := c.ar.FuncType(entry.Type.FuncType)
		if len(ex.Args) != len(ft.Params) {
			c.fail(ex.Span, "function %q expects %d argument(s) but got %d", ex.Name, len(ft.Params), len(ex.Args))
		}
		ex.Args = lo.Map(ex.Args, func(a ast.Expr, i int) ast.Expr {
			return c.convertTo(c.checkExpr(a), ft.Params[i])
		})
		ex.Type = ft.Ret
		return ex
	case *ast.CastExpr:
		ex.Inner = c.checkExpr(ex.Inner)
		ex.Type = ex.Target
		return ex
	default:
		panic(fmt.Sprintf("sema: unknown expression kind %T", e))
	}
}

// convertConstToStatic narrows/widens a literal constant to the static
// storage type it is initializing (§3 StaticInit, §4.5).
func convertConstToStatic(c arena.Const, t arena.Type) arena.StaticInit {
	v := c.AsInt64()
	switch t {
	case arena.TypeInt:
		return arena.StaticInit{Type: t, I32: int32(v)}
	case arena.TypeLong:
		return arena.StaticInit{Type: t, I64: v}
	case arena.TypeUint:
		return arena.StaticInit{Type: t, U32: uint32(v)}
	case arena.TypeUlong:
		return arena.StaticInit{Type: t, U64: uint64(v)}
	default:
		return arena.StaticInit{Type: t}
	}
}
