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
	"strings"
	"testing"

	"minic/arena"
)

func TestEmitSimpleReturnFunction(t *testing.T) {
	prog := &Program{
		TopLevels: []TopLevel{
			&Function{
				Name:   "main",
				Global: true,
				Body: []Instruction{
					&Mov{Size: arena.LongWord, Src: Imm(2), Dst: Reg(AX)},
					&Ret{},
				},
			},
		},
	}
	text := Emit(prog)

	for _, want := range []string{
		"\t.globl main\n",
		"main:\n",
		"\tpushq\t%rbp\n",
		"\tmovq\t%rsp, %rbp\n",
		"\tmovl\t$2, %eax\n",
		"\tmovq\t%rbp, %rsp\n",
		"\tpopq\t%rbp\n",
		"\tret\n",
		"\t.section .note.GNU-stack,\"\",@progbits\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected emitted text to contain %q, got:\n%s", want, text)
		}
	}
}

func TestEmitFunctionWithStackSizeEmitsSub(t *testing.T) {
	prog := &Program{
		TopLevels: []TopLevel{
			&Function{Name: "f", Body: []Instruction{&Ret{}}, StackSize: 16},
		},
	}
	text := Emit(prog)
	if !strings.Contains(text, "\tsubq\t$16, %rsp\n") {
		t.Fatalf("expected a stack-allocating subq, got:\n%s", text)
	}
}

func TestEmitZeroStaticVariableUsesBss(t *testing.T) {
	prog := &Program{
		TopLevels: []TopLevel{
			&StaticVariable{Name: "g", Global: true, Alignment: 4, Size: arena.LongWord, Zero: true},
		},
	}
	text := Emit(prog)
	if !strings.Contains(text, "\t.bss\n") {
		t.Fatalf("expected a zero-initialized static to use .bss, got:\n%s", text)
	}
}

func TestEmitInitializedStaticVariableUsesData(t *testing.T) {
	prog := &Program{
		TopLevels: []TopLevel{
			&StaticVariable{Name: "g", Alignment: 8, Size: arena.QuadWord, InitValue: 42},
		},
	}
	text := Emit(prog)
	if !strings.Contains(text, "\t.data\n") || !strings.Contains(text, "\t.quad 42\n") {
		t.Fatalf("expected an initialized 8-byte static to use .data/.quad, got:\n%s", text)
	}
}

func TestEmitUnsignedDivisionZeroesRemainderRegister(t *testing.T) {
	prog := &Program{
		TopLevels: []TopLevel{
			&Function{Name: "f", Body: []Instruction{
				&Cdq{Size: arena.LongWord, Signed: false},
				&Idiv{Size: arena.LongWord, Signed: false, Operand: Reg(CX)},
				&Ret{},
			}},
		},
	}
	text := Emit(prog)
	if !strings.Contains(text, "\txorl\t%edx, %edx\n") {
		t.Fatalf("expected unsigned division to zero %%edx instead of sign-extending, got:\n%s", text)
	}
	if !strings.Contains(text, "\tdivl\t%ecx\n") {
		t.Fatalf("expected an unsigned div instruction, got:\n%s", text)
	}
}
