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
package ast

// TokenKind is the closed set of lexical categories recognized by the
// lexer (§4.1).
type TokenKind int

const (
	TK_EOF TokenKind = iota
	TK_ERROR

	TK_IDENT
	TK_INT_LITERAL

	// Keywords
	KW_RETURN
	KW_INT
	KW_LONG
	KW_VOID
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_DO
	KW_FOR
	KW_BREAK
	KW_CONTINUE
	KW_STATIC
	KW_EXTERN
	KW_UNSIGNED

	// Operators
	TK_PLUS
	TK_MINUS
	TK_STAR
	TK_SLASH
	TK_PERCENT
	TK_ASSIGN
	TK_EQ
	TK_NE
	TK_LT
	TK_GT
	TK_LE
	TK_GE
	TK_AND_AND
	TK_OR_OR
	TK_BANG
	TK_TILDE
	TK_QUESTION

	// Punctuation
	TK_LPAREN
	TK_RPAREN
	TK_LBRACE
	TK_RBRACE
	TK_SEMI
	TK_COLON
	TK_COMMA
)

var Keywords = map[string]TokenKind{
	"return":   KW_RETURN,
	"int":      KW_INT,
	"long":     KW_LONG,
	"void":     KW_VOID,
	"if":       KW_IF,
	"else":     KW_ELSE,
	"while":    KW_WHILE,
	"do":       KW_DO,
	"for":      KW_FOR,
	"break":    KW_BREAK,
	"continue": KW_CONTINUE,
	"static":   KW_STATIC,
	"extern":   KW_EXTERN,
	"unsigned": KW_UNSIGNED,
}

func (k TokenKind) String() string {
	switch k {
	case TK_EOF:
		return "<eof>"
	case TK_ERROR:
		return "<error>"
	case TK_IDENT:
		return "identifier"
	case TK_INT_LITERAL:
		return "integer literal"
	case KW_RETURN:
		return "'return'"
	case KW_INT:
		return "'int'"
	case KW_LONG:
		return "'long'"
	case KW_VOID:
		return "'void'"
	case KW_IF:
		return "'if'"
	case KW_ELSE:
		return "'else'"
	case KW_WHILE:
		return "'while'"
	case KW_DO:
		return "'do'"
	case KW_FOR:
		return "'for'"
	case KW_BREAK:
		return "'break'"
	case KW_CONTINUE:
		return "'continue'"
	case KW_STATIC:
		return "'static'"
	case KW_EXTERN:
		return "'extern'"
	case KW_UNSIGNED:
		return "'unsigned'"
	case TK_PLUS:
		return "'+'"
	case TK_MINUS:
		return "'-'"
	case TK_STAR:
		return "'*'"
	case TK_SLASH:
		return "'/'"
	case TK_PERCENT:
		return "'%'"
	case TK_ASSIGN:
		return "'='"
	case TK_EQ:
		return "'=='"
	case TK_NE:
		return "'!='"
	case TK_LT:
		return "'<'"
	case TK_GT:
		return "'>'"
	case TK_LE:
		return "'<='"
	case TK_GE:
		return "'>='"
	case TK_AND_AND:
		return "'&&'"
	case TK_OR_OR:
		return "'||'"
	case TK_BANG:
		return "'!'"
	case TK_TILDE:
		return "'~'"
	case TK_QUESTION:
		return "'?'"
	case TK_LPAREN:
		return "'('"
	case TK_RPAREN:
		return "')'"
	case TK_LBRACE:
		return "'{'"
	case TK_RBRACE:
		return "'}'"
	case TK_SEMI:
		return "';'"
	case TK_COLON:
		return "':'"
	case TK_COMMA:
		return "','"
	default:
		return "<unknown>"
	}
}

// IntSuffix is the closed set of legal integer-literal suffix classes
// (§4.1): none, `long`, `unsigned`, or `unsigned long`.
type IntSuffix int

const (
	SuffixNone IntSuffix = iota
	SuffixLong
	SuffixUnsigned
	SuffixUnsignedLong
)

var longLongSuffixes = map[string]IntSuffix{
	"":    SuffixNone,
	"l":   SuffixLong,
	"L":   SuffixLong,
	"u":   SuffixUnsigned,
	"U":   SuffixUnsigned,
	"ul":  SuffixUnsignedLong,
	"uL":  SuffixUnsignedLong,
	"Ul":  SuffixUnsignedLong,
	"UL":  SuffixUnsignedLong,
	"lu":  SuffixUnsignedLong,
	"Lu":  SuffixUnsignedLong,
	"lU":  SuffixUnsignedLong,
	"LU":  SuffixUnsignedLong,
}

// ParseSuffix looks up one of the twelve legal spellings from §4.1; ok is
// false for anything else (a lex error).
func ParseSuffix(s string) (IntSuffix, bool) {
	suf, ok := longLongSuffixes[s]
	return suf, ok
}
