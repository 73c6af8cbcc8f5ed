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

// LabelError is raised when break/continue appears outside any enclosing
// loop (§4.4, §7).
type LabelError struct{ Message string }

func (e *LabelError) Error() string { return e.Message }

type labeler struct {
	ar     *arena.Arena
	sm     *srcmap.SourceMap
	labels []string // stack of enclosing loop labels, innermost last
}

func (l *labeler) fail(span arena.Span, format string, args ...interface{}) {
	panic(&LabelError{Message: l.sm.Format("label error", span, format, args...)})
}

// LabelLoops runs loop labeling over prog in place (§4.4): every loop
// statement gets a fresh unique label, and every Break/Continue is stamped
// with the label of its innermost enclosing loop (two independent target
// symbols, `break.<L>`/`continue.<L>`, are derived from it downstream in
// TAC lowering -- see §9).
func LabelLoops(prog *ast.Program, ar *arena.Arena, sm *srcmap.SourceMap) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if le, ok := rec.(*LabelError); ok {
				err = le
				return
			}
			panic(rec)
		}
	}()
	l := &labeler{ar: ar, sm: sm}
	for _, d := range prog.Decls {
		if fd, ok := d.(*ast.FunctionDecl); ok && fd.Body != nil {
			l.labelBlock(fd.Body)
		}
	}
	return nil
}

func (l *labeler) labelBlock(b *ast.Block) {
	for _, item := range b.Items {
		if st, ok := item.(ast.Statement); ok {
			l.labelStatement(st)
		}
	}
}

func (l *labeler) push(label string) { l.labels = append(l.labels, label) }
func (l *labeler) pop()              { l.labels = l.labels[:len(l.labels)-1] }
func (l *labeler) top() (string, bool) {
	if len(l.labels) == 0 {
		return "", false
	}
	return l.labels[len(l.labels)-1], true
}

func (l *labeler) labelStatement(s ast.Statement) {
	switch st := s.(type) {
	case *ast.ReturnStmt, *ast.ExprStmt, *ast.NullStmt:
	case *ast.IfStmt:
		l.labelStatement(st.Then)
		if st.Else != nil {
			l.labelStatement(st.Else)
		}
	case *ast.CompoundStmt:
		l.labelBlock(st.Block)
	case *ast.WhileStmt:
		label := l.ar.Label(st.Span)
		st.Label = ast.LoopLabel{Name: label, Set: true}
		l.push(label)
		l.labelStatement(st.Body)
		l.pop()
	case *ast.DoWhileStmt:
		label := l.ar.Label(st.Span)
		st.Label = ast.LoopLabel{Name: label, Set: true}
		l.push(label)
		l.labelStatement(st.Body)
		l.pop()
	case *ast.ForStmt:
		label := l.ar.Label(st.Span)
		st.Label = ast.LoopLabel{Name: label, Set: true}
		l.push(label)
		l.labelStatement(st.Body)
		l.pop()
	case *ast.BreakStmt:
		label, ok := l.top()
		if !ok {
			l.fail(st.Span, "'break' statement not within a loop")
		}
		st.Label = ast.LoopLabel{Name: label, Set: true}
	case *ast.ContinueStmt:
		label, ok := l.top()
		if !ok {
			l.fail(st.Span, "'continue' statement not within a loop")
		}
		st.Label = ast.LoopLabel{Name: label, Set: true}
	default:
		panic(fmt.Sprintf("sema: unknown statement kind %T", s))
	}
}
