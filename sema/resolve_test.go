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

	"minic/ast"
)

func TestResolveUndeclaredIdentifierIsAnError(t *testing.T) {
	_, _, err := parseAndResolve(t, "int main(void) { return x; }")
	if err == nil {
		t.Fatalf("expected a resolution error for undeclared identifier")
	}
	if _, ok := err.(*ResolutionError); !ok {
		t.Fatalf("expected a *ResolutionError, got %T", err)
	}
}

func TestResolveDuplicateLocalDeclarationIsAnError(t *testing.T) {
	_, _, err := parseAndResolve(t, "int main(void) { int x; int x; return 0; }")
	if err == nil {
		t.Fatalf("expected a resolution error for duplicate declaration")
	}
}

func TestResolveInvalidAssignmentTargetIsAnError(t *testing.T) {
	_, _, err := parseAndResolve(t, "int main(void) { return 1 = 2; }")
	if err == nil {
		t.Fatalf("expected a resolution error for assigning to a non-variable")
	}
}

func TestResolveNestedFunctionDefinitionIsAnError(t *testing.T) {
	_, _, err := parseAndResolve(t, "int main(void) { int f(void) { return 0; } return f(); }")
	if err == nil {
		t.Fatalf("expected a resolution error for a nested function definition")
	}
}

// TestResolveStaticFunctionDeclarationInsideFunctionBodyIsAnError checks
// that a `static` function declaration nested inside a function body is
// rejected even when it is only a prototype, not a definition.
func TestResolveStaticFunctionDeclarationInsideFunctionBodyIsAnError(t *testing.T) {
	_, _, err := parseAndResolve(t, `
		int main(void) {
			static int f(void);
			return 0;
		}
	`)
	if err == nil {
		t.Fatalf("expected a resolution error for a static function declaration inside a function body")
	}
	if _, ok := err.(*ResolutionError); !ok {
		t.Fatalf("expected a *ResolutionError, got %T", err)
	}
}

// TestResolveBlockScopeExternSharesIdentifierAcrossScopes checks that a
// block-scope `extern` declaration resolves to the same identifier as the
// matching file-scope declaration, rather than minting a fresh one.
func TestResolveBlockScopeExternSharesIdentifierAcrossScopes(t *testing.T) {
	prog, _, err := parseAndResolve(t, `
		int x;
		int main(void) {
			extern int x;
			return x;
		}
	`)
	if err != nil {
		t.Fatalf("unexpected resolution error: %v", err)
	}
	fileVar, ok := prog.Decls[0].(*ast.VariableDecl)
	if !ok {
		t.Fatalf("expected a file-scope variable decl, got %#v", prog.Decls[0])
	}
	fd, ok := prog.Decls[1].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("expected a function decl, got %#v", prog.Decls[1])
	}
	localExtern, ok := fd.Body.Items[0].(*ast.VariableDecl)
	if !ok {
		t.Fatalf("expected the first block item to be a variable decl, got %#v", fd.Body.Items[0])
	}
	if localExtern.Resolved != fileVar.Resolved {
		t.Fatalf("expected block-scope extern %v to share the file-scope identifier %v", localExtern.Resolved, fileVar.Resolved)
	}
}

// TestResolveShadowingInNestedScopeMintsFreshIdentifier checks that an inner
// block's own declaration of a name already used by an outer scope resolves
// to a distinct identifier (no linkage, so it must never collide).
func TestResolveShadowingInNestedScopeMintsFreshIdentifier(t *testing.T) {
	prog, _, err := parseAndResolve(t, `
		int main(void) {
			int x = 1;
			{
				int x = 2;
				return x;
			}
		}
	`)
	if err != nil {
		t.Fatalf("unexpected resolution error: %v", err)
	}
	fd := prog.Decls[0].(*ast.FunctionDecl)
	outer := fd.Body.Items[0].(*ast.VariableDecl)
	inner := fd.Body.Items[1].(*ast.CompoundStmt).Block.Items[0].(*ast.VariableDecl)
	if outer.Resolved == inner.Resolved {
		t.Fatalf("expected the shadowing declaration to get a fresh identifier, both resolved to %v", inner.Resolved)
	}
}
