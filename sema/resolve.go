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

	"minic/arena"
	"minic/ast"
	"minic/srcmap"
)

// ResolutionError is a fatal identifier-resolution failure (§4.3, §7).
type ResolutionError struct{ Message string }

func (e *ResolutionError) Error() string { return e.Message }

// scopeEntry records what a name means in one lexical scope: the resolved
// identifier it was declared with, and whether that identifier has linkage
// (so a repeated `extern` declaration of it is legal, where a repeated
// plain declaration is a conflict).
type scopeEntry struct {
	id         arena.Identifier
	hasLinkage bool
}

type scope struct {
	parent  *scope
	names   map[string]scopeEntry
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]scopeEntry)}
}

func (s *scope) lookup(name string) (scopeEntry, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if e, ok := sc.names[name]; ok {
			return e, true
		}
	}
	return scopeEntry{}, false
}

func (s *scope) lookupCurrent(name string) (scopeEntry, bool) {
	e, ok := s.names[name]
	return e, ok
}

// resolver threads the arena (for fresh identifiers) and source map (for
// diagnostics) through the identifier-resolution pass.
type resolver struct {
	ar *arena.Arena
	sm *srcmap.SourceMap
}

func (r *resolver) fail(span arena.Span, format string, args ...interface{}) {
	panic(&ResolutionError{Message: r.sm.Format("resolution error", span, format, args...)})
}

// Resolve runs identifier resolution over prog in place (§4.3): every
// VarExpr/CallExpr/VariableDecl/FunctionDecl gets its Resolved identifier
// set, scoped per C block-scoping rules, with linkage determining whether a
// declaration reuses an existing identifier or mints a fresh disambiguated
// one.
func Resolve(prog *ast.Program, ar *arena.Arena, sm *srcmap.SourceMap) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if re, ok := rec.(*ResolutionError); ok {
				err = re
				return
			}
			panic(rec)
		}
	}()
	r := &resolver{ar: ar, sm: sm}
	file := newScope(nil)
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.FunctionDecl:
			r.resolveFunctionDecl(decl, file)
		case *ast.VariableDecl:
			r.resolveFileVarDecl(decl, file)
		}
	}
	return nil
}

func (r *resolver) resolveFileVarDecl(vd *ast.VariableDecl, sc *scope) {
	if prior, ok := sc.lookupCurrent(vd.Name); ok {
		vd.Resolved = prior.id
	} else {
		id := r.ar.SourceIdentifier(vd.Name, vd.Span)
		sc.names[vd.Name] = scopeEntry{id: id, hasLinkage: true}
		vd.Resolved = id
	}
	if vd.Init != nil {
		vd.Init = r.resolveExpr(vd.Init, sc)
	}
}

func (r *resolver) resolveFunctionDecl(fd *ast.FunctionDecl, sc *scope) {
	if prior, ok := sc.lookupCurrent(fd.Name); ok {
		if !prior.hasLinkage {
			r.fail(fd.Span, "redeclaration of %q as a function", fd.Name)
		}
		fd.Resolved = prior.id
	} else {
		id := r.ar.SourceIdentifier(fd.Name, fd.Span)
		sc.names[fd.Name] = scopeEntry{id: id, hasLinkage: true}
		fd.Resolved = id
	}
	if fd.Body == nil {
		return
	}
	fnScope := newScope(sc)
	fd.ParamIdents = make([]arena.Identifier, len(fd.ParamNames))
	for i, pname := range fd.ParamNames {
		if _, ok := fnScope.lookupCurrent(pname); ok {
			r.fail(fd.Span, "duplicate parameter name %q", pname)
		}
		id := r.ar.NewIdentifier(pname, fd.Span)
		fnScope.names[pname] = scopeEntry{id: id, hasLinkage: false}
		fd.ParamIdents[i] = id
	}
	r.resolveBlock(fd.Body, fnScope)
}

func (r *resolver) resolveBlock(b *ast.Block, sc *scope) {
	for _, item := range b.Items {
		r.resolveBlockItem(item, sc)
	}
}

func (r *resolver) resolveBlockItem(item ast.BlockItem, sc *scope) {
	switch it := item.(type) {
	case *ast.FunctionDecl:
		if it.Storage == ast.StorageStatic {
			r.fail(it.Span, "static function declarations are not permitted inside a function body")
		}
		if it.Body != nil {
			r.fail(it.Span, "nested function definitions are not permitted")
		}
		r.resolveFunctionDecl(it, sc)
	case *ast.VariableDecl:
		r.resolveLocalVarDecl(it, sc)
	case ast.Statement:
		r.resolveStatement(it, sc)
	default:
		panic("sema: unknown block item kind")
	}
}

func (r *resolver) resolveLocalVarDecl(vd *ast.VariableDecl, sc *scope) {
	hasLinkage := vd.Storage == ast.StorageExtern
	if prior, ok := sc.lookupCurrent(vd.Name); ok {
		if !(prior.hasLinkage && hasLinkage) {
			r.fail(vd.Span, "redeclaration of %q in this scope", vd.Name)
		}
		vd.Resolved = prior.id
	} else {
		var id arena.Identifier
		if hasLinkage {
			id = r.ar.SourceIdentifier(vd.Name, vd.Span)
			if outer, ok := sc.lookup(vd.Name); ok && outer.hasLinkage {
				id = outer.id
			}
		} else {
			id = r.ar.NewIdentifier(vd.Name, vd.Span)
		}
		sc.names[vd.Name] = scopeEntry{id: id, hasLinkage: hasLinkage}
		vd.Resolved = id
	}
	if vd.Init != nil {
		if vd.Storage == ast.StorageExtern {
			r.fail(vd.Span, "block-scope extern variable %q cannot have an initializer", vd.Name)
		}
		vd.Init = r.resolveExpr(vd.Init, sc)
	}
}

func (r *resolver) resolveStatement(s ast.Statement, sc *scope) {
	switch st := s.(type) {
	case *ast.ReturnStmt:
		st.Expr = r.resolveExpr(st.Expr, sc)
	case *ast.ExprStmt:
		st.Expr = r.resolveExpr(st.Expr, sc)
	case *ast.NullStmt:
	case *ast.IfStmt:
		st.Cond = r.resolveExpr(st.Cond, sc)
		r.resolveStatement(st.Then, sc)
		if st.Else != nil {
			r.resolveStatement(st.Else, sc)
		}
	case *ast.CompoundStmt:
		r.resolveBlock(st.Block, newScope(sc))
	case *ast.WhileStmt:
		st.Cond = r.resolveExpr(st.Cond, sc)
		r.resolveStatement(st.Body, sc)
	case *ast.DoWhileStmt:
		r.resolveStatement(st.Body, sc)
		st.Cond = r.resolveExpr(st.Cond, sc)
	case *ast.ForStmt:
		forScope := newScope(sc)
		if st.Init.Decl != nil {
			if st.Init.Decl.Storage != ast.StorageNone {
				r.fail(st.Init.Decl.Span, "for-loop initializer cannot have a storage-class specifier")
			}
			r.resolveLocalVarDecl(st.Init.Decl, forScope)
		} else if st.Init.Expr != nil {
			st.Init.Expr = r.resolveExpr(st.Init.Expr, forScope)
		}
		if st.Cond != nil {
			st.Cond = r.resolveExpr(st.Cond, forScope)
		}
		if st.Post != nil {
			st.Post = r.resolveExpr(st.Post, forScope)
		}
		r.resolveStatement(st.Body, forScope)
	case *ast.BreakStmt:
	case *ast.ContinueStmt:
	default:
		panic(fmt.Sprintf("sema: unknown statement kind %T", s))
	}
}

func (r *resolver) resolveExpr(e ast.Expr, sc *scope) ast.Expr {
	switch ex := e.(type) {
	case *ast.ConstantExpr:
		return ex
	case *ast.VarExpr:
		entry, ok := sc.lookup(ex.Name)
		if !ok {
			r.fail(ex.Span, "use of undeclared identifier %q", ex.Name)
		}
		ex.Resolved = entry.id
		return ex
	case *ast.UnaryExpr:
		ex.Operand = r.resolveExpr(ex.Operand, sc)
		return ex
	case *ast.BinaryExpr:
		ex.Left = r.resolveExpr(ex.Left, sc)
		ex.Right = r.resolveExpr(ex.Right, sc)
		return ex
	case *ast.ConditionalExpr:
		ex.Cond = r.resolveExpr(ex.Cond, sc)
		ex.Then = r.resolveExpr(ex.Then, sc)
		ex.Else = r.resolveExpr(ex.Else, sc)
		return ex
	case *ast.AssignmentExpr:
		if _, ok := ex.Left.(*ast.VarExpr); !ok {
			r.fail(ex.Span, "left-hand side of assignment is not a variable")
		}
		ex.Left = r.resolveExpr(ex.Left, sc)
		ex.Right = r.resolveExpr(ex.Right, sc)
		return ex
	case *ast.CallExpr:
		entry, ok := sc.lookup(ex.Name)
		if !ok {
			r.fail(ex.Span, "call to undeclared function %q", ex.Name)
		}
		ex.Resolved = entry.id
		for i, a := range ex.Args {
			ex.Args[i] = r.resolveExpr(a, sc)
		}
		return ex
	case *ast.CastExpr:
		ex.Inner = r.resolveExpr(ex.Inner, sc)
		return ex
	default:
		panic(fmt.Sprintf("sema: unknown expression kind %T", e))
	}
}
