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
	"github.com/samber/lo"

	"minic/arena"
	"minic/utils"
)

// legalizer assigns every Pseudo operand a Stack slot and rewrites illegal
// instruction forms into sequences the host assembler accepts (§4.8): no
// instruction may read two memory operands, multiply into a memory
// destination, divide by an immediate, or move a 64-bit immediate directly
// into memory. Each is drained and rebuilt via ScratchRegs, the same shape
// as original_source's fix_instructions.rs.
type legalizer struct {
	ar         *arena.Arena
	slots      map[arena.Identifier]int
	nextOffset int
}

func newLegalizer(ar *arena.Arena) *legalizer {
	return &legalizer{ar: ar, slots: make(map[arena.Identifier]int)}
}

// slotFor assigns id a fresh 8-byte-aligned stack slot the first time it is
// seen, and returns the same slot on every later reference. Every slot is 8
// bytes regardless of the value's actual size, trading a little stack space
// for the alignment simplicity of the teacher's fp-8/fp-16 scheme.
func (lz *legalizer) slotFor(id arena.Identifier) int {
	if off, ok := lz.slots[id]; ok {
		return off
	}
	lz.nextOffset -= 8
	lz.slots[id] = lz.nextOffset
	return lz.nextOffset
}

func (lz *legalizer) resolve(o Operand) Operand {
	if o.Kind == OpPseudo {
		return Stack(lz.slotFor(o.Pseudo))
	}
	return o
}

// LegalizeProgram runs instruction legalization over every function in
// prog; static variables need no legalization.
func LegalizeProgram(prog *Program, ar *arena.Arena) *Program {
	out := &Program{}
	for _, tl := range prog.TopLevels {
		switch v := tl.(type) {
		case *Function:
			out.TopLevels = append(out.TopLevels, LegalizeFunction(v, ar))
		case *StaticVariable:
			out.TopLevels = append(out.TopLevels, v)
		}
	}
	return out
}

func LegalizeFunction(fn *Function, ar *arena.Arena) *Function {
	lz := newLegalizer(ar)
	body := lo.FlatMap(fn.Body, func(instr Instruction, _ int) []Instruction { return lz.fix(instr) })
	return &Function{
		Name:      fn.Name,
		Global:    fn.Global,
		Params:    fn.Params,
		Body:      body,
		StackSize: utils.Align16(utils.Abs(lz.nextOffset)),
	}
}

func (lz *legalizer) fix(instr Instruction) []Instruction {
	switch i := instr.(type) {
	case *Mov:
		return lz.fixMov(i)
	case *Movsx:
		return lz.fixMovsx(i)
	case *Movzx:
		return lz.fixMovzx(i)
	case *Unary:
		return []Instruction{&Unary{Op: i.Op, Size: i.Size, Operand: lz.resolve(i.Operand)}}
	case *Binary:
		return lz.fixBinary(i)
	case *Cmp:
		return lz.fixCmp(i)
	case *Idiv:
		return lz.fixIdiv(i)
	case *Cdq:
		return []Instruction{i}
	case *Jmp, *JmpCC, *Label, *Call, *Ret:
		return []Instruction{instr}
	case *SetCC:
		return []Instruction{&SetCC{Cond: i.Cond, Dst: lz.resolve(i.Dst)}}
	case *Push:
		return lz.fixPush(i)
	default:
		panic("asmgen: unknown instruction kind in legalization")
	}
}

func (lz *legalizer) fixMov(i *Mov) []Instruction {
	src, dst := lz.resolve(i.Src), lz.resolve(i.Dst)
	if src.IsMemory() && dst.IsMemory() {
		return []Instruction{
			&Mov{Size: i.Size, Src: src, Dst: Reg(ScratchRegs[0])},
			&Mov{Size: i.Size, Src: Reg(ScratchRegs[0]), Dst: dst},
		}
	}
	if src.IsLargeImmediate() && dst.IsMemory() && i.Size == arena.QuadWord {
		return []Instruction{
			&Mov{Size: arena.QuadWord, Src: src, Dst: Reg(ScratchRegs[0])},
			&Mov{Size: arena.QuadWord, Src: Reg(ScratchRegs[0]), Dst: dst},
		}
	}
	return []Instruction{&Mov{Size: i.Size, Src: src, Dst: dst}}
}

// fixMovsx and fixMovzx share a shape: the source operand of a sign/zero
// extension cannot be an immediate, and the destination must be a register,
// since both instructions only exist in reg<-reg/mem forms. A 32-to-64-bit
// zero extension has no movz form at all, so fixMovzx turns it into plain
// 32-bit moves instead.
func (lz *legalizer) fixMovsx(i *Movsx) []Instruction {
	src, dst := lz.resolve(i.Src), lz.resolve(i.Dst)
	var out []Instruction
	if src.IsImmediate() {
		out = append(out, &Mov{Size: i.SrcSize, Src: src, Dst: Reg(ScratchRegs[0])})
		src = Reg(ScratchRegs[0])
	}
	if dst.IsMemory() {
		out = append(out, &Movsx{SrcSize: i.SrcSize, DstSize: i.DstSize, Src: src, Dst: Reg(ScratchRegs[1])})
		out = append(out, &Mov{Size: i.DstSize, Src: Reg(ScratchRegs[1]), Dst: dst})
		return out
	}
	return append(out, &Movsx{SrcSize: i.SrcSize, DstSize: i.DstSize, Src: src, Dst: dst})
}

func (lz *legalizer) fixMovzx(i *Movzx) []Instruction {
	src, dst := lz.resolve(i.Src), lz.resolve(i.Dst)
	if i.SrcSize == arena.LongWord && i.DstSize == arena.QuadWord {
		// A 32-bit mov into a register zeroes the register's upper half.
		if dst.IsMemory() {
			return []Instruction{
				&Mov{Size: arena.LongWord, Src: src, Dst: Reg(ScratchRegs[1])},
				&Mov{Size: arena.QuadWord, Src: Reg(ScratchRegs[1]), Dst: dst},
			}
		}
		return []Instruction{&Mov{Size: arena.LongWord, Src: src, Dst: dst}}
	}
	var out []Instruction
	if src.IsImmediate() {
		out = append(out, &Mov{Size: i.SrcSize, Src: src, Dst: Reg(ScratchRegs[0])})
		src = Reg(ScratchRegs[0])
	}
	if dst.IsMemory() {
		out = append(out, &Movzx{SrcSize: i.SrcSize, DstSize: i.DstSize, Src: src, Dst: Reg(ScratchRegs[1])})
		out = append(out, &Mov{Size: i.DstSize, Src: Reg(ScratchRegs[1]), Dst: dst})
		return out
	}
	return append(out, &Movzx{SrcSize: i.SrcSize, DstSize: i.DstSize, Src: src, Dst: dst})
}

func (lz *legalizer) fixBinary(i *Binary) []Instruction {
	src, dst := lz.resolve(i.Src), lz.resolve(i.Dst)
	switch i.Op {
	case Add, Sub:
		if src.IsMemory() && dst.IsMemory() {
			return []Instruction{
				&Mov{Size: i.Size, Src: src, Dst: Reg(ScratchRegs[0])},
				&Binary{Op: i.Op, Size: i.Size, Src: Reg(ScratchRegs[0]), Dst: dst},
			}
		}
		if src.IsLargeImmediate() && i.Size == arena.QuadWord {
			return []Instruction{
				&Mov{Size: arena.QuadWord, Src: src, Dst: Reg(ScratchRegs[0])},
				&Binary{Op: i.Op, Size: i.Size, Src: Reg(ScratchRegs[0]), Dst: dst},
			}
		}
		return []Instruction{&Binary{Op: i.Op, Size: i.Size, Src: src, Dst: dst}}
	case Mul:
		// imul's destination must be a register.
		if dst.IsMemory() {
			if src.IsLargeImmediate() && i.Size == arena.QuadWord {
				return []Instruction{
					&Mov{Size: arena.QuadWord, Src: src, Dst: Reg(ScratchRegs[0])},
					&Mov{Size: i.Size, Src: dst, Dst: Reg(ScratchRegs[1])},
					&Binary{Op: Mul, Size: i.Size, Src: Reg(ScratchRegs[0]), Dst: Reg(ScratchRegs[1])},
					&Mov{Size: i.Size, Src: Reg(ScratchRegs[1]), Dst: dst},
				}
			}
			return []Instruction{
				&Mov{Size: i.Size, Src: dst, Dst: Reg(ScratchRegs[1])},
				&Binary{Op: Mul, Size: i.Size, Src: src, Dst: Reg(ScratchRegs[1])},
				&Mov{Size: i.Size, Src: Reg(ScratchRegs[1]), Dst: dst},
			}
		}
		if src.IsLargeImmediate() && i.Size == arena.QuadWord {
			return []Instruction{
				&Mov{Size: arena.QuadWord, Src: src, Dst: Reg(ScratchRegs[0])},
				&Binary{Op: Mul, Size: i.Size, Src: Reg(ScratchRegs[0]), Dst: dst},
			}
		}
		return []Instruction{&Binary{Op: Mul, Size: i.Size, Src: src, Dst: dst}}
	default:
		panic("asmgen: unknown binary op in legalization")
	}
}

func (lz *legalizer) fixCmp(i *Cmp) []Instruction {
	src, dst := lz.resolve(i.Src), lz.resolve(i.Dst)
	var out []Instruction
	if src.IsMemory() && dst.IsMemory() {
		out = append(out, &Mov{Size: i.Size, Src: src, Dst: Reg(ScratchRegs[0])})
		src = Reg(ScratchRegs[0])
	} else if src.IsLargeImmediate() && i.Size == arena.QuadWord {
		out = append(out, &Mov{Size: arena.QuadWord, Src: src, Dst: Reg(ScratchRegs[0])})
		src = Reg(ScratchRegs[0])
	}
	// cmp's second operand can never be an immediate.
	if dst.IsImmediate() {
		out = append(out, &Mov{Size: i.Size, Src: dst, Dst: Reg(ScratchRegs[1])})
		dst = Reg(ScratchRegs[1])
	}
	return append(out, &Cmp{Size: i.Size, Src: src, Dst: dst})
}

func (lz *legalizer) fixIdiv(i *Idiv) []Instruction {
	o := lz.resolve(i.Operand)
	if o.IsImmediate() {
		return []Instruction{
			&Mov{Size: i.Size, Src: o, Dst: Reg(ScratchRegs[0])},
			&Idiv{Size: i.Size, Signed: i.Signed, Operand: Reg(ScratchRegs[0])},
		}
	}
	return []Instruction{&Idiv{Size: i.Size, Signed: i.Signed, Operand: o}}
}

func (lz *legalizer) fixPush(i *Push) []Instruction {
	o := lz.resolve(i.Operand)
	if o.IsLargeImmediate() {
		return []Instruction{
			&Mov{Size: arena.QuadWord, Src: o, Dst: Reg(ScratchRegs[0])},
			&Push{Operand: Reg(ScratchRegs[0])},
		}
	}
	return []Instruction{&Push{Operand: o}}
}
