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

// Package arena owns the two interned stores that live for the entire
// compilation: the string interner backing Symbol, and the function-type
// interner backing TypeId. Both are insertion-only and held by a single
// exclusive owner, the *Arena itself.
package arena

import (
	"fmt"

	"github.com/samber/lo"
)

// Symbol is an opaque index into the string interner. Equality is identity.
type Symbol int32

// Identifier is a resolved name: symbol + disambiguator + source span. The
// disambiguator is zero for source names and non-zero for compiler-generated
// renames; two source variables with the same name in different scopes
// become distinct Identifiers after identifier resolution.
type Identifier struct {
	Sym           Symbol
	Disambiguator uint32
	Span          Span
}

// Span is a half-open byte range into the source buffer, plus the logical
// line it starts on (which may have been adjusted by a `#` line directive
// and so need not match the physical line in the file).
type Span struct {
	Start, End uint32
	Line       uint32
}

func (id Identifier) String() string {
	if id.Disambiguator == 0 {
		return fmt.Sprintf("sym%d", id.Sym)
	}
	return fmt.Sprintf("sym%d.%d", id.Sym, id.Disambiguator)
}

// Type is the closed set of scalar types this compiler supports.
type Type int

const (
	TypeInvalid Type = iota
	TypeInt
	TypeLong
	TypeUint
	TypeUlong
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeUint:
		return "unsigned int"
	case TypeUlong:
		return "unsigned long"
	default:
		return "<invalid type>"
	}
}

func (t Type) IsSigned() bool {
	return t == TypeInt || t == TypeLong
}

func (t Type) Size() int {
	switch t {
	case TypeInt, TypeUint:
		return 4
	case TypeLong, TypeUlong:
		return 8
	default:
		return 0
	}
}

// OperandSize is the assembly-level projection of a Type's width.
type OperandSize int

const (
	LongWord OperandSize = 4
	QuadWord OperandSize = 8
)

func SizeOf(t Type) OperandSize {
	if t.Size() == 8 {
		return QuadWord
	}
	return LongWord
}

// CommonType implements the arithmetic common-type rule (§4.5): widen to the
// operand of larger size; break ties toward the unsigned type.
func CommonType(a, b Type) Type {
	if a == b {
		return a
	}
	if a.Size() == b.Size() {
		if !a.IsSigned() {
			return a
		}
		return b
	}
	if a.Size() > b.Size() {
		return a
	}
	return b
}

// FunctionType is interned once per distinct (ret, params) shape.
type FunctionType struct {
	Ret    Type
	Params []Type
}

func (ft FunctionType) key() string {
	parts := lo.Map(ft.Params, func(t Type, _ int) string { return t.String() })
	return fmt.Sprintf("%s(%v)", ft.Ret, parts)
}

// TypeId is a handle to an interned FunctionType.
type TypeId int32

// Const is a typed scalar literal value.
type Const struct {
	Type Type
	I32  int32
	I64  int64
	U32  uint32
	U64  uint64
}

func ConstInt(v int32) Const  { return Const{Type: TypeInt, I32: v} }
func ConstLong(v int64) Const { return Const{Type: TypeLong, I64: v} }
func ConstUint(v uint32) Const { return Const{Type: TypeUint, U32: v} }
func ConstUlong(v uint64) Const { return Const{Type: TypeUlong, U64: v} }

// AsInt64 widens the const's payload to a plain int64 for arithmetic done by
// passes that don't care about the original width/signedness (e.g. the
// emitter deciding whether a static initializer is the zero value).
func (c Const) AsInt64() int64 {
	switch c.Type {
	case TypeInt:
		return int64(c.I32)
	case TypeLong:
		return c.I64
	case TypeUint:
		return int64(c.U32)
	case TypeUlong:
		return int64(c.U64)
	default:
		return 0
	}
}

// StaticInit is the initializer payload of a file/static-storage variable.
type StaticInit struct {
	Type Type
	I32  int32
	I64  int64
	U32  uint32
	U64  uint64
}

func (s StaticInit) IsZero() bool {
	return s.I32 == 0 && s.I64 == 0 && s.U32 == 0 && s.U64 == 0
}

func (s StaticInit) AsInt64() int64 {
	switch s.Type {
	case TypeInt:
		return int64(s.I32)
	case TypeLong:
		return s.I64
	case TypeUint:
		return int64(s.U32)
	case TypeUlong:
		return int64(s.U64)
	default:
		return 0
	}
}

// Arena is the bump allocator owning the string interner and the
// function-type interner for the duration of one compilation.
type Arena struct {
	strings    []string
	stringIdx  map[string]Symbol
	funcTypes  []FunctionType
	funcTypeIdx map[string]TypeId

	// counter is the single shared counter threaded across identifier
	// resolution, loop labeling, and TAC lowering (§3 "Lifecycles",
	// §9 "Counter continuity") so that every compiler-generated name is
	// globally unique within the compilation without a separate rename pass.
	counter uint32
}

func New() *Arena {
	return &Arena{
		stringIdx:   make(map[string]Symbol),
		funcTypeIdx: make(map[string]TypeId),
	}
}

// Intern returns the Symbol for s, creating a new entry if s was never seen.
func (a *Arena) Intern(s string) Symbol {
	if sym, ok := a.stringIdx[s]; ok {
		return sym
	}
	sym := Symbol(len(a.strings))
	a.strings = append(a.strings, s)
	a.stringIdx[s] = sym
	return sym
}

func (a *Arena) Text(sym Symbol) string {
	return a.strings[sym]
}

// InternFuncType returns the TypeId for ft, canonicalizing structurally
// identical function types to the same handle.
func (a *Arena) InternFuncType(ft FunctionType) TypeId {
	k := ft.key()
	if id, ok := a.funcTypeIdx[k]; ok {
		return id
	}
	id := TypeId(len(a.funcTypes))
	a.funcTypes = append(a.funcTypes, ft)
	a.funcTypeIdx[k] = id
	return id
}

func (a *Arena) FuncType(id TypeId) FunctionType {
	return a.funcTypes[id]
}

// NextDisambiguator returns a fresh, globally unique disambiguator value.
func (a *Arena) NextDisambiguator() uint32 {
	a.counter++
	return a.counter
}

// NewIdentifier interns name and mints a fresh disambiguator for a
// compiler-generated or newly declared identifier.
func (a *Arena) NewIdentifier(name string, span Span) Identifier {
	return Identifier{Sym: a.Intern(name), Disambiguator: a.NextDisambiguator(), Span: span}
}

// SourceIdentifier interns name with disambiguator zero, the form every
// surface-syntax reference starts out as before resolution rewrites it.
func (a *Arena) SourceIdentifier(name string, span Span) Identifier {
	return Identifier{Sym: a.Intern(name), Disambiguator: 0, Span: span}
}

// Temp mints a fresh `tmp.<n>` identifier, per §4.6.
func (a *Arena) Temp(span Span) Identifier {
	n := a.NextDisambiguator()
	return Identifier{Sym: a.Intern(fmt.Sprintf("tmp.%d", n)), Disambiguator: n, Span: span}
}

// Label mints a fresh `L<n>` name, per §4.6.
func (a *Arena) Label(span Span) string {
	return fmt.Sprintf("L%d", a.NextDisambiguator())
}
