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
	"strings"

	"minic/arena"
)

// Emit renders a legalized program as AT&T-syntax text (§4.9), one function
// or static variable at a time. Instruction formatting follows the
// teacher's Assembler.emit1/emit2 shape (falcon/compile/codegen/asm_x86.go)
// -- a size-suffixed mnemonic followed by comma-separated operands -- but
// runs as a standalone pass over the already-legalized instruction AST
// instead of appending to a string buffer while codegen walks LIR.
func Emit(prog *Program) string {
	var buf strings.Builder
	for _, tl := range prog.TopLevels {
		switch v := tl.(type) {
		case *Function:
			emitFunction(&buf, v)
		case *StaticVariable:
			emitStaticVariable(&buf, v)
		}
	}
	buf.WriteString("\t.section .note.GNU-stack,\"\",@progbits\n")
	return buf.String()
}

func suffix(size arena.OperandSize) string {
	if size == arena.QuadWord {
		return "q"
	}
	return "l"
}

func emitFunction(buf *strings.Builder, fn *Function) {
	if fn.Global {
		fmt.Fprintf(buf, "\t.globl %s\n", fn.Name)
	}
	buf.WriteString("\t.text\n")
	fmt.Fprintf(buf, "%s:\n", fn.Name)
	buf.WriteString("\tpushq\t%rbp\n")
	buf.WriteString("\tmovq\t%rsp, %rbp\n")
	if fn.StackSize > 0 {
		fmt.Fprintf(buf, "\tsubq\t$%d, %%rsp\n", fn.StackSize)
	}
	for _, instr := range fn.Body {
		emitInstruction(buf, instr)
	}
}

// emitInstruction writes one instruction. Ret is special-cased to the
// function epilogue (tear down the frame pointer before returning); every
// other instruction maps to a single mnemonic line.
func emitInstruction(buf *strings.Builder, instr Instruction) {
	switch i := instr.(type) {
	case *Mov:
		fmt.Fprintf(buf, "\tmov%s\t%s, %s\n", suffix(i.Size), i.Src.String(i.Size), i.Dst.String(i.Size))
	case *Movsx:
		fmt.Fprintf(buf, "\tmovs%s%s\t%s, %s\n", suffix(i.SrcSize), suffix(i.DstSize), i.Src.String(i.SrcSize), i.Dst.String(i.DstSize))
	case *Movzx:
		fmt.Fprintf(buf, "\tmovz%s%s\t%s, %s\n", suffix(i.SrcSize), suffix(i.DstSize), i.Src.String(i.SrcSize), i.Dst.String(i.DstSize))
	case *Unary:
		fmt.Fprintf(buf, "\t%s%s\t%s\n", i.Op.Mnemonic(), suffix(i.Size), i.Operand.String(i.Size))
	case *Binary:
		fmt.Fprintf(buf, "\t%s%s\t%s, %s\n", i.Op.Mnemonic(), suffix(i.Size), i.Src.String(i.Size), i.Dst.String(i.Size))
	case *Cmp:
		fmt.Fprintf(buf, "\tcmp%s\t%s, %s\n", suffix(i.Size), i.Src.String(i.Size), i.Dst.String(i.Size))
	case *Idiv:
		mnemonic := "idiv"
		if !i.Signed {
			mnemonic = "div"
		}
		fmt.Fprintf(buf, "\t%s%s\t%s\n", mnemonic, suffix(i.Size), i.Operand.String(i.Size))
	case *Cdq:
		if i.Signed {
			if i.Size == arena.QuadWord {
				buf.WriteString("\tcqto\n")
			} else {
				buf.WriteString("\tcltd\n")
			}
		} else {
			fmt.Fprintf(buf, "\txor%s\t%%%s, %%%s\n", suffix(i.Size), DX.Name(i.Size), DX.Name(i.Size))
		}
	case *Jmp:
		fmt.Fprintf(buf, "\tjmp\t%s\n", i.Target)
	case *JmpCC:
		fmt.Fprintf(buf, "\tj%s\t%s\n", i.Cond, i.Target)
	case *SetCC:
		fmt.Fprintf(buf, "\tset%s\t%s\n", i.Cond, setCCOperand(i.Dst))
	case *Label:
		fmt.Fprintf(buf, "%s:\n", i.Name)
	case *Push:
		fmt.Fprintf(buf, "\tpushq\t%s\n", i.Operand.String(arena.QuadWord))
	case *Call:
		fmt.Fprintf(buf, "\tcall\t%s\n", i.Target)
	case *Ret:
		buf.WriteString("\tmovq\t%rbp, %rsp\n")
		buf.WriteString("\tpopq\t%rbp\n")
		buf.WriteString("\tret\n")
	default:
		panic(fmt.Sprintf("asmgen: unknown instruction kind %T in emitter", instr))
	}
}

// setCCOperand renders a SetCC destination, which always writes a single
// byte: a register operand uses its byte-sized name, a memory operand's
// addressing form is already size-independent.
func setCCOperand(o Operand) string {
	if o.Kind == OpReg {
		return "%" + o.Reg.Byte1Name()
	}
	return o.String(arena.LongWord)
}

func emitStaticVariable(buf *strings.Builder, sv *StaticVariable) {
	if sv.Global {
		fmt.Fprintf(buf, "\t.globl %s\n", sv.Name)
	}
	if sv.Zero {
		buf.WriteString("\t.bss\n")
		fmt.Fprintf(buf, "\t.align %d\n", sv.Alignment)
		fmt.Fprintf(buf, "%s:\n", sv.Name)
		fmt.Fprintf(buf, "\t.zero %d\n", sv.Alignment)
		return
	}
	buf.WriteString("\t.data\n")
	fmt.Fprintf(buf, "\t.align %d\n", sv.Alignment)
	fmt.Fprintf(buf, "%s:\n", sv.Name)
	directive := "long"
	if sv.Size == arena.QuadWord {
		directive = "quad"
	}
	fmt.Fprintf(buf, "\t.%s %d\n", directive, sv.InitValue)
}
