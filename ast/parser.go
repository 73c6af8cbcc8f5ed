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
	"math/big"

	"minic/arena"
	"minic/srcmap"
)

// ParseError is a fatal syntax error carrying its source span, rendered via
// the source map's caret-underlined snippet (§7).
type ParseError struct {
	Span    arena.Span
	Message string
}

func (e *ParseError) Error() string { return e.Message }

// Parser is a one-token-lookahead recursive-descent parser over a Lexer,
// building declarations and statements directly, and expressions through a
// single precedence-climbing function driven by a fixed binding-power table
// (§4.2).
type Parser struct {
	lx   *Lexer
	sm   *srcmap.SourceMap
	tok  Token
	prev Token
}

func NewParser(src []byte, sm *srcmap.SourceMap) *Parser {
	p := &Parser{lx: NewLexer(src), sm: sm}
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.prev = p.tok
	p.tok = p.lx.Next()
}

// fail raises a *ParseError at the current token's span.
func (p *Parser) fail(format string, args ...interface{}) {
	p.failAt(p.tok.Span, format, args...)
}

// failAt raises a *ParseError at an explicit span, for diagnostics about a
// token the parser has already advanced past.
func (p *Parser) failAt(span arena.Span, format string, args ...interface{}) {
	panic(&ParseError{Span: span, Message: p.sm.Format("parse error", span, format, args...)})
}

// guarantee consumes the current token if it matches kind, else fails.
func (p *Parser) guarantee(kind TokenKind) Token {
	if p.tok.Kind != kind {
		p.fail("expected %v but found %v", kind, p.tok.Kind)
	}
	t := p.tok
	p.advance()
	return t
}

func (p *Parser) at(kinds ...TokenKind) bool {
	for _, k := range kinds {
		if p.tok.Kind == k {
			return true
		}
	}
	return false
}

// ParseProgram parses an entire translation unit: zero or more top-level
// function or variable declarations (§4.2).
func ParseProgram(src []byte, sm *srcmap.SourceMap, ar *arena.Arena) (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	p := &Parser{lx: NewLexer(src), sm: sm}
	p.advance()
	prog = &Program{}
	for !p.at(TK_EOF) {
		prog.Decls = append(prog.Decls, p.parseTopLevelDecl(ar))
	}
	return prog, nil
}

// isTypeSpecifier reports whether kind starts a type-specifier sequence.
func isTypeSpecifier(kind TokenKind) bool {
	return kind == KW_INT || kind == KW_LONG || kind == KW_VOID || kind == KW_UNSIGNED
}

// parseSpecifiers consumes an arbitrary-order run of type specifiers and at
// most one storage-class specifier, combining the specifiers per §4.2's
// type-specifier-combination rule: {int}->Int, {long}|{int,long}->Long,
// {unsigned}|{unsigned,int}->Uint, {unsigned,long}|{unsigned,int,long}->Ulong.
func (p *Parser) parseSpecifiers() (arena.Type, StorageClass, bool) {
	var sawInt, sawLong, sawUnsigned, sawVoid bool
	var storage StorageClass = StorageNone
	sawStorage := false
	for isTypeSpecifier(p.tok.Kind) || p.at(KW_STATIC, KW_EXTERN) {
		switch p.tok.Kind {
		case KW_INT:
			sawInt = true
		case KW_LONG:
			sawLong = true
		case KW_UNSIGNED:
			sawUnsigned = true
		case KW_VOID:
			sawVoid = true
		case KW_STATIC:
			if sawStorage {
				p.fail("multiple storage classes specified")
			}
			storage, sawStorage = StorageStatic, true
		case KW_EXTERN:
			if sawStorage {
				p.fail("multiple storage classes specified")
			}
			storage, sawStorage = StorageExtern, true
		}
		p.advance()
	}
	if sawVoid {
		return arena.TypeInvalid, storage, true
	}
	switch {
	case sawUnsigned && sawLong:
		return arena.TypeUlong, storage, false
	case sawUnsigned:
		return arena.TypeUint, storage, false
	case sawLong:
		return arena.TypeLong, storage, false
	case sawInt:
		return arena.TypeInt, storage, false
	default:
		p.fail("expected a type specifier but found %v", p.tok.Kind)
		return arena.TypeInvalid, storage, false
	}
}

// parseTopLevelDecl parses a function declaration/definition or a file-scope
// variable declaration, disambiguated by whether `(` follows the name.
func (p *Parser) parseTopLevelDecl(ar *arena.Arena) Decl {
	span := p.tok.Span
	typ, storage, isVoid := p.parseSpecifiers()
	name := p.guarantee(TK_IDENT).Lexeme
	if p.at(TK_LPAREN) {
		return p.parseFunctionDecl(span, name, typ, isVoid, storage)
	}
	if isVoid {
		p.fail("variable %q cannot have type void", name)
	}
	decl := p.parseVariableDeclTail(span, name, typ, storage)
	return decl
}

func (p *Parser) parseFunctionDecl(span arena.Span, name string, retType arena.Type, voidRet bool, storage StorageClass) *FunctionDecl {
	_ = voidRet
	p.guarantee(TK_LPAREN)
	fd := &FunctionDecl{Span: span, Name: name, RetType: retType, Storage: storage}
	if p.at(KW_VOID) {
		p.advance()
	} else {
		for !p.at(TK_RPAREN) {
			pt, _, _ := p.parseSpecifiers()
			pname := p.guarantee(TK_IDENT).Lexeme
			fd.ParamNames = append(fd.ParamNames, pname)
			fd.ParamTypes = append(fd.ParamTypes, pt)
			if p.at(TK_COMMA) {
				p.advance()
			} else {
				break
			}
		}
	}
	p.guarantee(TK_RPAREN)
	if p.at(TK_SEMI) {
		p.advance()
		return fd
	}
	fd.Body = p.parseBlock()
	return fd
}

func (p *Parser) parseVariableDeclTail(span arena.Span, name string, typ arena.Type, storage StorageClass) *VariableDecl {
	vd := &VariableDecl{Span: span, Name: name, Type: typ, Storage: storage}
	if p.at(TK_ASSIGN) {
		p.advance()
		vd.Init = p.parseExpression(0)
	}
	p.guarantee(TK_SEMI)
	return vd
}

func (p *Parser) parseBlock() *Block {
	p.guarantee(TK_LBRACE)
	b := &Block{}
	for !p.at(TK_RBRACE) {
		b.Items = append(b.Items, p.parseBlockItem())
	}
	p.guarantee(TK_RBRACE)
	return b
}

func (p *Parser) parseBlockItem() BlockItem {
	if isTypeSpecifier(p.tok.Kind) || p.at(KW_STATIC, KW_EXTERN) {
		span := p.tok.Span
		typ, storage, isVoid := p.parseSpecifiers()
		name := p.guarantee(TK_IDENT).Lexeme
		if p.at(TK_LPAREN) {
			return p.parseFunctionDecl(span, name, typ, isVoid, storage)
		}
		return p.parseVariableDeclTail(span, name, typ, storage)
	}
	return p.parseStatement()
}

func (p *Parser) parseStatement() Statement {
	span := p.tok.Span
	switch p.tok.Kind {
	case KW_RETURN:
		p.advance()
		e := p.parseExpression(0)
		p.guarantee(TK_SEMI)
		return &ReturnStmt{Span: span, Expr: e}
	case TK_SEMI:
		p.advance()
		return &NullStmt{Span: span}
	case KW_IF:
		return p.parseIfStmt()
	case TK_LBRACE:
		return &CompoundStmt{Span: span, Block: p.parseBlock()}
	case KW_WHILE:
		return p.parseWhileStmt()
	case KW_DO:
		return p.parseDoWhileStmt()
	case KW_FOR:
		return p.parseForStmt()
	case KW_BREAK:
		p.advance()
		p.guarantee(TK_SEMI)
		return &BreakStmt{Span: span}
	case KW_CONTINUE:
		p.advance()
		p.guarantee(TK_SEMI)
		return &ContinueStmt{Span: span}
	default:
		e := p.parseExpression(0)
		p.guarantee(TK_SEMI)
		return &ExprStmt{Span: span, Expr: e}
	}
}

func (p *Parser) parseIfStmt() Statement {
	span := p.tok.Span
	p.guarantee(KW_IF)
	p.guarantee(TK_LPAREN)
	cond := p.parseExpression(0)
	p.guarantee(TK_RPAREN)
	then := p.parseStatement()
	stmt := &IfStmt{Span: span, Cond: cond, Then: then}
	if p.at(KW_ELSE) {
		p.advance()
		stmt.Else = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhileStmt() Statement {
	span := p.tok.Span
	p.guarantee(KW_WHILE)
	p.guarantee(TK_LPAREN)
	cond := p.parseExpression(0)
	p.guarantee(TK_RPAREN)
	body := p.parseStatement()
	return &WhileStmt{Span: span, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhileStmt() Statement {
	span := p.tok.Span
	p.guarantee(KW_DO)
	body := p.parseStatement()
	p.guarantee(KW_WHILE)
	p.guarantee(TK_LPAREN)
	cond := p.parseExpression(0)
	p.guarantee(TK_RPAREN)
	p.guarantee(TK_SEMI)
	return &DoWhileStmt{Span: span, Body: body, Cond: cond}
}

func (p *Parser) parseForStmt() Statement {
	span := p.tok.Span
	p.guarantee(KW_FOR)
	p.guarantee(TK_LPAREN)
	var init ForInit
	if isTypeSpecifier(p.tok.Kind) || p.at(KW_STATIC, KW_EXTERN) {
		dspan := p.tok.Span
		typ, storage, _ := p.parseSpecifiers()
		name := p.guarantee(TK_IDENT).Lexeme
		init.Decl = p.parseVariableDeclTail(dspan, name, typ, storage)
	} else if !p.at(TK_SEMI) {
		init.Expr = p.parseExpression(0)
		p.guarantee(TK_SEMI)
	} else {
		p.advance()
	}
	var cond, post Expr
	if !p.at(TK_SEMI) {
		cond = p.parseExpression(0)
	}
	p.guarantee(TK_SEMI)
	if !p.at(TK_RPAREN) {
		post = p.parseExpression(0)
	}
	p.guarantee(TK_RPAREN)
	body := p.parseStatement()
	return &ForStmt{Span: span, Init: init, Cond: cond, Post: post, Body: body}
}

// binOp maps a binary operator token to (BinaryOp, precedence). Precedences
// are the exact values from §4.2: `* / % :50`, `+ - :45`, relational `:35`,
// equality `:30`, `&& :10`, `|| :5`.
func binOp(kind TokenKind) (BinaryOp, int, bool) {
	switch kind {
	case TK_STAR:
		return BinMul, 50, true
	case TK_SLASH:
		return BinDiv, 50, true
	case TK_PERCENT:
		return BinMod, 50, true
	case TK_PLUS:
		return BinAdd, 45, true
	case TK_MINUS:
		return BinSub, 45, true
	case TK_LT:
		return BinLess, 35, true
	case TK_LE:
		return BinLessEq, 35, true
	case TK_GT:
		return BinGreater, 35, true
	case TK_GE:
		return BinGreaterEq, 35, true
	case TK_EQ:
		return BinEqual, 30, true
	case TK_NE:
		return BinNotEqual, 30, true
	case TK_AND_AND:
		return BinLogicalAnd, 10, true
	case TK_OR_OR:
		return BinLogicalOr, 5, true
	default:
		return 0, 0, false
	}
}

// parseExpression is a single precedence-climbing function covering the
// entire table in §4.2, including the right-associative `?:` (prec 3) and
// `=` (prec 1) forms folded into the same loop as the left-associative
// binary operators.
func (p *Parser) parseExpression(minPrec int) Expr {
	left := p.parseUnary()
	for {
		if p.at(TK_ASSIGN) && minPrec <= 1 {
			span := p.tok.Span
			p.advance()
			right := p.parseExpression(1) // right-assoc: same prec repeats
			left = &AssignmentExpr{exprBase: exprBase{Span: span}, Left: left, Right: right}
			continue
		}
		if p.at(TK_QUESTION) && minPrec <= 3 {
			span := p.tok.Span
			p.advance()
			then := p.parseExpression(0)
			p.guarantee(TK_COLON)
			els := p.parseExpression(3) // right-assoc
			left = &ConditionalExpr{exprBase: exprBase{Span: span}, Cond: left, Then: then, Else: els}
			continue
		}
		op, prec, ok := binOp(p.tok.Kind)
		if !ok || prec < minPrec {
			break
		}
		span := p.tok.Span
		p.advance()
		right := p.parseExpression(prec + 1) // left-assoc: strictly higher prec
		left = &BinaryExpr{exprBase: exprBase{Span: span}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	span := p.tok.Span
	switch p.tok.Kind {
	case TK_MINUS:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Span: span}, Op: UnaryNegate, Operand: p.parseUnary()}
	case TK_TILDE:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Span: span}, Op: UnaryComplement, Operand: p.parseUnary()}
	case TK_BANG:
		p.advance()
		return &UnaryExpr{exprBase: exprBase{Span: span}, Op: UnaryLogicalNot, Operand: p.parseUnary()}
	case TK_LPAREN:
		if p.isCastAhead() {
			p.advance()
			typ, _, _ := p.parseSpecifiers()
			p.guarantee(TK_RPAREN)
			return &CastExpr{exprBase: exprBase{Span: span}, Target: typ, Inner: p.parseUnary()}
		}
	}
	return p.parsePostfix()
}

// isCastAhead peeks at the single token after `(`: if it is a type specifier,
// the parenthesis is taken to open a cast, otherwise a parenthesized
// expression. The parser has only one token of lookahead, so this lexes that
// one token with a throwaway copy of the lexer.
func (p *Parser) isCastAhead() bool {
	clone := *p.lx
	tok := clone.Next()
	return isTypeSpecifier(tok.Kind)
}

func (p *Parser) parsePostfix() Expr {
	span := p.tok.Span
	switch p.tok.Kind {
	case TK_INT_LITERAL:
		lit := p.tok
		p.advance()
		return &ConstantExpr{exprBase: exprBase{Span: span}, Value: p.parseIntLiteral(lit)}
	case TK_IDENT:
		name := p.tok.Lexeme
		p.advance()
		if p.at(TK_LPAREN) {
			p.advance()
			call := &CallExpr{exprBase: exprBase{Span: span}, Name: name}
			for !p.at(TK_RPAREN) {
				call.Args = append(call.Args, p.parseExpression(0))
				if p.at(TK_COMMA) {
					p.advance()
				} else {
					break
				}
			}
			p.guarantee(TK_RPAREN)
			return call
		}
		return &VarExpr{exprBase: exprBase{Span: span}, Name: name}
	case TK_LPAREN:
		p.advance()
		e := p.parseExpression(0)
		p.guarantee(TK_RPAREN)
		return e
	default:
		p.fail("expected an expression but found %v", p.tok.Kind)
		return nil
	}
}

var (
	maxInt32  = big.NewInt(0x7FFFFFFF)
	maxInt64  = new(big.Int).SetUint64(0x7FFFFFFFFFFFFFFF)
	maxUint32 = big.NewInt(0xFFFFFFFF)
	maxUint64 = new(big.Int).SetUint64(0xFFFFFFFFFFFFFFFF)
)

// parseIntLiteral narrows the decimal digit text per the literal's suffix
// class, per §4.2: an unsuffixed literal is int if it fits, else long if it
// fits, else a parse error; a `u`-suffixed literal is uint if it fits, else
// ulong if it fits, else a parse error; an `L`/`ul` literal errors directly
// if it does not fit the one candidate type its suffix allows. Matches
// `_examples/original_source/parser/src/parse_expressions/parse_factor.rs`'s
// try-widen-then-error sequence exactly, parsing into a big.Int first so
// that overflow past even unsigned long is detected rather than wrapped.
func (p *Parser) parseIntLiteral(tok Token) arena.Const {
	v, ok := new(big.Int).SetString(tok.Lexeme, 10)
	if !ok {
		p.failAt(tok.Span, "failed to parse integer constant %q", tok.Lexeme)
	}
	switch tok.Suffix {
	case SuffixUnsignedLong:
		if v.Cmp(maxUint64) > 0 {
			p.failAt(tok.Span, "integer value too large to represent")
		}
		return arena.ConstUlong(v.Uint64())
	case SuffixUnsigned:
		if v.Cmp(maxUint32) <= 0 {
			return arena.ConstUint(uint32(v.Uint64()))
		}
		if v.Cmp(maxUint64) > 0 {
			p.failAt(tok.Span, "integer value too large to represent")
		}
		return arena.ConstUlong(v.Uint64())
	case SuffixLong:
		if v.Cmp(maxInt64) > 0 {
			p.failAt(tok.Span, "integer value too large to represent")
		}
		return arena.ConstLong(v.Int64())
	default:
		if v.Cmp(maxInt32) <= 0 {
			return arena.ConstInt(int32(v.Int64()))
		}
		if v.Cmp(maxInt64) <= 0 {
			return arena.ConstLong(v.Int64())
		}
		p.failAt(tok.Span, "integer value too large to represent")
		return arena.Const{}
	}
}
