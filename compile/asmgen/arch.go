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

import "minic/arena"

// Reference
// https://web.stanford.edu/class/cs107/resources/x86-64-reference.pdf

// Register is the closed set of machine registers this backend names (§3):
// the six System V argument registers, the two scratch registers the
// legalization pass uses to fix up illegal operand combinations, AX for
// return values and division, and SP for the stack pointer. There is no
// register allocator (§1 Non-goals): every Pseudo operand becomes a Stack
// slot, never one of these, so the set stays this small on purpose.
type Register int

const (
	AX Register = iota
	CX
	DX
	DI
	SI
	R8
	R9
	R10
	R11
	SP
)

// Name renders r at the given operand size, in AT&T register syntax
// (without the leading `%`, which Operand.String adds).
func (r Register) Name(size arena.OperandSize) string {
	is64 := size == arena.QuadWord
	switch r {
	case AX:
		if is64 {
			return "rax"
		}
		return "eax"
	case CX:
		if is64 {
			return "rcx"
		}
		return "ecx"
	case DX:
		if is64 {
			return "rdx"
		}
		return "edx"
	case DI:
		if is64 {
			return "rdi"
		}
		return "edi"
	case SI:
		if is64 {
			return "rsi"
		}
		return "esi"
	case R8:
		if is64 {
			return "r8"
		}
		return "r8d"
	case R9:
		if is64 {
			return "r9"
		}
		return "r9d"
	case R10:
		if is64 {
			return "r10"
		}
		return "r10d"
	case R11:
		if is64 {
			return "r11"
		}
		return "r11d"
	case SP:
		if is64 {
			return "rsp"
		}
		return "esp"
	default:
		return "<badreg>"
	}
}

// Byte1Name renders r as its single-byte AT&T form, used for SetCC
// destinations (§4.7), which always write one byte.
func (r Register) Byte1Name() string {
	switch r {
	case AX:
		return "al"
	case CX:
		return "cl"
	case DX:
		return "dl"
	case DI:
		return "dil"
	case SI:
		return "sil"
	case R8:
		return "r8b"
	case R9:
		return "r9b"
	case R10:
		return "r10b"
	case R11:
		return "r11b"
	default:
		return "<badreg>"
	}
}

// ReturnReg is the register a function's scalar result is passed back in
// (§4.7 System V AMD64 convention).
const ReturnReg = AX

// ScratchRegs are the two registers the legalization pass may clobber
// freely to rewrite an illegal instruction into a legal sequence (§4.8),
// never assigned to a live TAC value.
var ScratchRegs = [2]Register{R10, R11}

// ArgRegs is the System V AMD64 integer argument-register order (§4.7). The
// seventh argument and beyond are passed on the stack (§4.7's stack-argument
// sequence), handled separately in gen.go.
var ArgRegs = []Register{DI, SI, DX, CX, R8, R9}

// ArgReg returns the idx'th integer argument register, panicking if a call
// needs more than ArgRegs provides.
func ArgReg(idx int) Register {
	return ArgRegs[idx]
}
