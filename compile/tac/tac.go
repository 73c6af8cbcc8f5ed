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

// Package tac defines the three-address code IR (§3, §4.6): a flat,
// non-SSA instruction list per function, produced by lowering the checked
// AST and consumed by assembly-AST generation. Grounded on the teacher's
// falcon/compile/ssa HIR in shape (a closed instruction-kind enum plus a
// String() method per value) but deliberately flat instead of SSA, since
// this system performs no optimization passes that would need phi nodes.
package tac

import (
	"fmt"

	"minic/arena"
)

// ValueKind is the closed set of TAC operand kinds (§3).
type ValueKind int

const (
	ValConstant ValueKind = iota
	ValVar
)

// Value is either a compile-time Constant or a reference to a Var
// (identifier), possibly a compiler-generated temporary. Type records the
// checked scalar type so assembly generation can pick an operand size
// without re-deriving it from the symbol table.
type Value struct {
	Kind  ValueKind
	Const arena.Const
	Var   arena.Identifier
	Type  arena.Type
}

func ConstValue(c arena.Const) Value { return Value{Kind: ValConstant, Const: c, Type: c.Type} }
func VarValue(id arena.Identifier, t arena.Type) Value {
	return Value{Kind: ValVar, Var: id, Type: t}
}

func (v Value) String() string {
	if v.Kind == ValConstant {
		return fmt.Sprintf("%d", v.Const.AsInt64())
	}
	return v.Var.String()
}

// UnaryOp is the closed set of TAC unary operators.
type UnaryOp int

const (
	UnaryNegate UnaryOp = iota
	UnaryComplement
	UnaryNot
)

// BinaryOp is the closed set of TAC binary operators. Logical && and || are
// never represented as a BinaryOp: they lower to explicit short-circuit
// control flow instead (§4.6).
type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEqual
	BinNotEqual
	BinLess
	BinLessEq
	BinGreater
	BinGreaterEq
)

// Instruction is the closed set from §3: Ret, Unary, Binary, Copy, Jump,
// JumpIfZero, JumpIfNotZero, Label, FunCall, SignExtend, ZeroExtend,
// Truncate. Each concrete instruction type implements instrNode to form a
// closed sum type, matching the teacher's tagged-variant-over-class-
// hierarchy style (§9 Design Notes).
type Instruction interface {
	instrNode()
	String() string
}

type Ret struct{ Src Value }

type Unary struct {
	Op       UnaryOp
	Src, Dst Value
}

type Binary struct {
	Op          BinaryOp
	Left, Right Value
	Dst         Value
}

type Copy struct{ Src, Dst Value }

type Jump struct{ Target string }

type JumpIfZero struct {
	Cond   Value
	Target string
}

type JumpIfNotZero struct {
	Cond   Value
	Target string
}

type Label struct{ Name string }

type FunCall struct {
	Name arena.Identifier
	Args []Value
	Dst  Value
}

type SignExtend struct{ Src, Dst Value }
type ZeroExtend struct{ Src, Dst Value }
type Truncate struct{ Src, Dst Value }

func (*Ret) instrNode()           {}
func (*Unary) instrNode()         {}
func (*Binary) instrNode()        {}
func (*Copy) instrNode()          {}
func (*Jump) instrNode()          {}
func (*JumpIfZero) instrNode()    {}
func (*JumpIfNotZero) instrNode() {}
func (*Label) instrNode()         {}
func (*FunCall) instrNode()       {}
func (*SignExtend) instrNode()    {}
func (*ZeroExtend) instrNode()    {}
func (*Truncate) instrNode()      {}

func (i *Ret) String() string           { return fmt.Sprintf("ret %s", i.Src) }
func (i *Unary) String() string         { return fmt.Sprintf("%s = %v %s", i.Dst, i.Op, i.Src) }
func (i *Binary) String() string        { return fmt.Sprintf("%s = %s %v %s", i.Dst, i.Left, i.Op, i.Right) }
func (i *Copy) String() string          { return fmt.Sprintf("%s = %s", i.Dst, i.Src) }
func (i *Jump) String() string          { return fmt.Sprintf("jump %s", i.Target) }
func (i *JumpIfZero) String() string    { return fmt.Sprintf("jz %s, %s", i.Cond, i.Target) }
func (i *JumpIfNotZero) String() string { return fmt.Sprintf("jnz %s, %s", i.Cond, i.Target) }
func (i *Label) String() string         { return fmt.Sprintf("%s:", i.Name) }
func (i *FunCall) String() string       { return fmt.Sprintf("%s = call %s", i.Dst, i.Name) }
func (i *SignExtend) String() string    { return fmt.Sprintf("%s = sext %s", i.Dst, i.Src) }
func (i *ZeroExtend) String() string    { return fmt.Sprintf("%s = zext %s", i.Dst, i.Src) }
func (i *Truncate) String() string      { return fmt.Sprintf("%s = trunc %s", i.Dst, i.Src) }

func (op UnaryOp) String() string {
	switch op {
	case UnaryNegate:
		return "neg"
	case UnaryComplement:
		return "not"
	case UnaryNot:
		return "!"
	default:
		return "?"
	}
}

func (op BinaryOp) String() string {
	switch op {
	case BinAdd:
		return "+"
	case BinSub:
		return "-"
	case BinMul:
		return "*"
	case BinDiv:
		return "/"
	case BinMod:
		return "%"
	case BinEqual:
		return "=="
	case BinNotEqual:
		return "!="
	case BinLess:
		return "<"
	case BinLessEq:
		return "<="
	case BinGreater:
		return ">"
	case BinGreaterEq:
		return ">="
	default:
		return "?"
	}
}

// Function is one function's TAC body.
type Function struct {
	Name     arena.Identifier
	Params   []arena.Identifier
	ParamTypes []arena.Type
	RetType  arena.Type
	Global   bool
	Body     []Instruction
}

// StaticVariable is one file/static-storage object.
type StaticVariable struct {
	Name   arena.Identifier
	Global bool
	Type   arena.Type
	Init   arena.StaticInit
}

// TopLevel is either a Function or a StaticVariable.
type TopLevel interface{ topLevelNode() }

func (*Function) topLevelNode()       {}
func (*StaticVariable) topLevelNode() {}

// Program is the whole compilation unit's TAC.
type Program struct {
	TopLevels []TopLevel
}
