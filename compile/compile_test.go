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
package compile

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"minic/utils"
)

// requireHostToolchain skips the test unless both `cpp` and `cc` are on
// PATH: Run shells out to them directly (§6), and utils.ExecuteCmd aborts
// the whole process on a failed invocation rather than returning an error,
// so there is no way to exercise end-to-end compilation without them.
func requireHostToolchain(t *testing.T) {
	t.Helper()
	if !utils.CommandExists("cpp") || !utils.CommandExists("cc") {
		t.Skip("host cpp/cc not found on PATH; skipping end-to-end compilation test")
	}
}

// compileAndRun writes src to a temp .c file, compiles it through Run, runs
// the resulting binary, and returns its exit code.
func compileAndRun(t *testing.T, src string) int {
	t.Helper()
	dir := t.TempDir()
	cPath := filepath.Join(dir, "prog.c")
	if err := os.WriteFile(cPath, []byte(src), 0o644); err != nil {
		t.Fatalf("writing source fixture: %v", err)
	}
	if err := Run(Options{Stage: StageFull, Source: cPath}); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	binPath := filepath.Join(dir, "prog")
	cmd := exec.Command(binPath)
	err := cmd.Run()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	t.Fatalf("running compiled binary: %v", err)
	return -1
}

// The following scenarios are §8's concrete end-to-end test cases.

func TestEndToEndSimpleReturn(t *testing.T) {
	requireHostToolchain(t)
	if got := compileAndRun(t, "int main(void) { return 2; }"); got != 2 {
		t.Fatalf("expected exit code 2, got %d", got)
	}
}

func TestEndToEndArithmeticPrecedence(t *testing.T) {
	requireHostToolchain(t)
	if got := compileAndRun(t, "int main(void) { return 1 + 2 * 3; }"); got != 7 {
		t.Fatalf("expected exit code 7, got %d", got)
	}
}

func TestEndToEndWhileLoopAccumulates(t *testing.T) {
	requireHostToolchain(t)
	src := `
		int main(void) {
			int i = 0;
			int sum = 0;
			while (i < 10) {
				sum = sum + i;
				i = i + 1;
			}
			return sum;
		}
	`
	if got := compileAndRun(t, src); got != 45 {
		t.Fatalf("expected exit code 45, got %d", got)
	}
}

func TestEndToEndFunctionCallWithTwoArguments(t *testing.T) {
	requireHostToolchain(t)
	src := `
		int add(int a, int b) {
			return a + b;
		}
		int main(void) {
			return add(40, 2);
		}
	`
	if got := compileAndRun(t, src); got != 42 {
		t.Fatalf("expected exit code 42, got %d", got)
	}
}

func TestEndToEndWideningThenNarrowingCast(t *testing.T) {
	requireHostToolchain(t)
	src := `
		int main(void) {
			long big = 4294967297;
			int truncated = (int) big;
			return truncated;
		}
	`
	if got := compileAndRun(t, src); got != 1 {
		t.Fatalf("expected exit code 1, got %d", got)
	}
}

// TestEndToEndSevenArgumentCallPassesOneOnTheStack exercises §4.7's
// stack-argument sequence: the System V AMD64 convention only passes six
// integer arguments in registers, so the seventh must be pushed by the
// caller and read back from the stack by the callee.
func TestEndToEndSevenArgumentCallPassesOneOnTheStack(t *testing.T) {
	requireHostToolchain(t)
	src := `
		int sum7(int a, int b, int c, int d, int e, int f, int g) {
			return a + b + c + d + e + f + g;
		}
		int main(void) {
			return sum7(1, 2, 3, 4, 5, 6, 7);
		}
	`
	if got := compileAndRun(t, src); got != 28 {
		t.Fatalf("expected exit code 28, got %d", got)
	}
}

// TestEndToEndNineArgumentCallPadsOddStackArgCount checks the alignment
// padding path (§4.7): nine arguments leave 3 on the stack, an odd count,
// requiring the extra `Sub SP, 8` before the call.
func TestEndToEndNineArgumentCallPadsOddStackArgCount(t *testing.T) {
	requireHostToolchain(t)
	src := `
		int sum9(int a, int b, int c, int d, int e, int f, int g, int h, int i) {
			return a + b + c + d + e + f + g + h + i;
		}
		int main(void) {
			return sum9(1, 2, 3, 4, 5, 6, 7, 8, 9);
		}
	`
	if got := compileAndRun(t, src); got != 45 {
		t.Fatalf("expected exit code 45, got %d", got)
	}
}

func TestEndToEndShortCircuitLogicalOperators(t *testing.T) {
	requireHostToolchain(t)
	src := `
		int side_effect(int x) {
			return x;
		}
		int main(void) {
			int result = (0 && side_effect(1)) || (1 || side_effect(0));
			return result;
		}
	`
	if got := compileAndRun(t, src); got != 1 {
		t.Fatalf("expected exit code 1, got %d", got)
	}
}

func TestRejectsUndeclaredIdentifier(t *testing.T) {
	dir := t.TempDir()
	cPath := filepath.Join(dir, "bad.c")
	if err := os.WriteFile(cPath, []byte("int main(void) { return undeclared; }"), 0o644); err != nil {
		t.Fatalf("writing source fixture: %v", err)
	}
	requireHostToolchain(t)
	if err := Run(Options{Stage: StageFull, Source: cPath}); err == nil {
		t.Fatalf("expected a resolution error for an undeclared identifier")
	}
}

func TestRejectsCallArityMismatch(t *testing.T) {
	dir := t.TempDir()
	cPath := filepath.Join(dir, "bad.c")
	src := "int f(int a, int b); int main(void) { return f(1); }"
	if err := os.WriteFile(cPath, []byte(src), 0o644); err != nil {
		t.Fatalf("writing source fixture: %v", err)
	}
	requireHostToolchain(t)
	if err := Run(Options{Stage: StageFull, Source: cPath}); err == nil {
		t.Fatalf("expected a type error for a call-argument arity mismatch")
	}
}
