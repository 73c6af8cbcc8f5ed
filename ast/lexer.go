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

import (
	"fmt"

	"minic/arena"
	"minic/utils"
)

// Token is a single (kind, lexeme, span) record. For TK_INT_LITERAL,
// Lexeme holds the digit text and Suffix the parsed suffix class.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Suffix IntSuffix
	Span   arena.Span
}

// Lexer is a longest-match tokenizer over a UTF-8 source buffer, producing
// a lazy sequence of (Token, span) records (§4.1). It tracks a logical line
// counter that `# N "file"` directives can reset, independent of the
// physical line count srcmap.SourceMap derives from the raw bytes.
type Lexer struct {
	src  []byte
	pos  int
	line uint32
}

const eof = -1

func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src, pos: 0, line: 1}
}

func (lx *Lexer) peekByte(off int) int {
	if lx.pos+off >= len(lx.src) {
		return eof
	}
	return int(lx.src[lx.pos+off])
}

func (lx *Lexer) advance() int {
	c := lx.peekByte(0)
	if c != eof {
		lx.pos++
	}
	return c
}

func isDigit(c int) bool  { return c >= '0' && c <= '9' }
func isAlpha(c int) bool  { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' }
func isAlnum(c int) bool  { return isAlpha(c) || isDigit(c) }

// skipTrivia consumes whitespace, `//`/`/* */` comments, and `# N "file"`
// line directives, which reset the logical line number to N (§4.1).
func (lx *Lexer) skipTrivia() {
	for {
		c := lx.peekByte(0)
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			lx.advance()
		case c == '\n':
			lx.advance()
			lx.line++
		case c == '/' && lx.peekByte(1) == '/':
			for lx.peekByte(0) != '\n' && lx.peekByte(0) != eof {
				lx.advance()
			}
		case c == '/' && lx.peekByte(1) == '*':
			lx.advance()
			lx.advance()
			for !(lx.peekByte(0) == '*' && lx.peekByte(1) == '/') && lx.peekByte(0) != eof {
				if lx.peekByte(0) == '\n' {
					lx.line++
				}
				lx.advance()
			}
			lx.advance()
			lx.advance()
		case c == '#' && lx.atLineStart():
			lx.consumeLineDirective()
		default:
			return
		}
	}
}

// atLineStart reports whether pos is the first non-whitespace byte on its
// physical line, the only place a `#` introduces a line directive.
func (lx *Lexer) atLineStart() bool {
	i := lx.pos - 1
	for i >= 0 && lx.src[i] != '\n' {
		if lx.src[i] != ' ' && lx.src[i] != '\t' {
			return false
		}
		i--
	}
	return true
}

// consumeLineDirective parses `# N "file"` and sets the logical line number
// that the *next* token is reported on to N (§4.1, confirmed by
// original_source's logos_line_directive).
func (lx *Lexer) consumeLineDirective() {
	lx.advance() // '#'
	for lx.peekByte(0) == ' ' || lx.peekByte(0) == '\t' {
		lx.advance()
	}
	start := lx.pos
	for isDigit(lx.peekByte(0)) {
		lx.advance()
	}
	numbered := lx.pos > start
	if numbered {
		n := 0
		for _, b := range lx.src[start:lx.pos] {
			n = n*10 + int(b-'0')
		}
		lx.line = uint32(n)
	}
	for lx.peekByte(0) != '\n' && lx.peekByte(0) != eof {
		lx.advance()
	}
	// The directive's own newline does not advance the logical line, so the
	// line that follows the directive is reported as N.
	if numbered && lx.peekByte(0) == '\n' {
		lx.advance()
	}
}

// Next returns the next token in the stream, or a TK_EOF token at the end
// of input.
func (lx *Lexer) Next() Token {
	lx.skipTrivia()
	start := lx.pos
	line := lx.line
	c := lx.peekByte(0)

	mk := func(kind TokenKind, lexeme string) Token {
		return Token{Kind: kind, Lexeme: lexeme, Span: arena.Span{Start: uint32(start), End: uint32(lx.pos), Line: line}}
	}

	if c == eof {
		return mk(TK_EOF, "")
	}

	if isDigit(c) {
		for isDigit(lx.peekByte(0)) {
			lx.advance()
		}
		digits := string(lx.src[start:lx.pos])
		sufStart := lx.pos
		for isAlpha(lx.peekByte(0)) {
			lx.advance()
		}
		sufText := string(lx.src[sufStart:lx.pos])
		suf, ok := ParseSuffix(sufText)
		tok := mk(TK_INT_LITERAL, digits)
		if !ok {
			tok.Kind = TK_ERROR
			tok.Lexeme = string(lx.src[start:lx.pos])
			return tok
		}
		tok.Suffix = suf
		return tok
	}

	if isAlpha(c) {
		for isAlnum(lx.peekByte(0)) {
			lx.advance()
		}
		text := string(lx.src[start:lx.pos])
		if kw, ok := Keywords[text]; ok {
			return mk(kw, text)
		}
		return mk(TK_IDENT, text)
	}

	two := func(second int, twoKind TokenKind, oneKind TokenKind, lexeme1, lexeme2 string) Token {
		lx.advance()
		if lx.peekByte(0) == second {
			lx.advance()
			return mk(twoKind, lexeme2)
		}
		return mk(oneKind, lexeme1)
	}

	switch c {
	case '(':
		lx.advance()
		return mk(TK_LPAREN, "(")
	case ')':
		lx.advance()
		return mk(TK_RPAREN, ")")
	case '{':
		lx.advance()
		return mk(TK_LBRACE, "{")
	case '}':
		lx.advance()
		return mk(TK_RBRACE, "}")
	case ';':
		lx.advance()
		return mk(TK_SEMI, ";")
	case ':':
		lx.advance()
		return mk(TK_COLON, ":")
	case ',':
		lx.advance()
		return mk(TK_COMMA, ",")
	case '+':
		lx.advance()
		return mk(TK_PLUS, "+")
	case '-':
		lx.advance()
		return mk(TK_MINUS, "-")
	case '*':
		lx.advance()
		return mk(TK_STAR, "*")
	case '/':
		lx.advance()
		return mk(TK_SLASH, "/")
	case '%':
		lx.advance()
		return mk(TK_PERCENT, "%")
	case '~':
		lx.advance()
		return mk(TK_TILDE, "~")
	case '?':
		lx.advance()
		return mk(TK_QUESTION, "?")
	case '=':
		return two('=', TK_EQ, TK_ASSIGN, "=", "==")
	case '!':
		return two('=', TK_NE, TK_BANG, "!", "!=")
	case '<':
		return two('=', TK_LE, TK_LT, "<", "<=")
	case '>':
		return two('=', TK_GE, TK_GT, ">", ">=")
	case '&':
		if lx.peekByte(1) == '&' {
			lx.advance()
			lx.advance()
			return mk(TK_AND_AND, "&&")
		}
		lx.advance()
		return mk(TK_ERROR, "&")
	case '|':
		if lx.peekByte(1) == '|' {
			lx.advance()
			lx.advance()
			return mk(TK_OR_OR, "||")
		}
		lx.advance()
		return mk(TK_ERROR, "|")
	default:
		lx.advance()
		return mk(TK_ERROR, string(rune(c)))
	}
}

// Dump tokenizes the entire buffer and prints it, for `--lex` (§6).
func Dump(src []byte) {
	lx := NewLexer(src)
	for {
		tok := lx.Next()
		if tok.Kind == TK_EOF {
			return
		}
		if tok.Kind == TK_ERROR {
			utils.Fatal("lex error at line %d: unrecognized byte sequence %q", tok.Span.Line, tok.Lexeme)
		}
		fmt.Printf("%v %q\n", tok.Kind, tok.Lexeme)
	}
}
