package compiler

import (
	"fmt"

	"github.com/xirelogy/go-lox/internal/lexer"
	"github.com/xirelogy/go-lox/internal/token"
)

// Parser holds the token window and error state of one compilation.
type Parser struct {
	lex       *lexer.Lexer
	current   token.Token
	previous  token.Token
	hadError  bool
	panicMode bool

	errors   ErrorList
	reporter Reporter
}

func newParser(source string, reporter Reporter) *Parser {
	return &Parser{lex: lexer.New(source), reporter: reporter}
}

// advance moves to the next non-error token, reporting every lexical error
// it skips over.
func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lex.NextToken()
		if p.current.Type != token.Error {
			return
		}
		p.errorAt(p.current, KindSyntax, p.current.Literal)
	}
}

func (p *Parser) check(t token.Type) bool {
	return p.current.Type == t
}

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t token.Type, message string) {
	if p.check(t) {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *Parser) error(kind Kind, message string) {
	p.errorAt(p.previous, kind, message)
}

func (p *Parser) errorAtCurrent(message string) {
	p.errorAt(p.current, KindSyntax, message)
}

// errorAt records an error unless the parser is already in panic mode.
func (p *Parser) errorAt(tok token.Token, kind Kind, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	err := &Error{
		Kind:    kind,
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
		Message: message,
	}
	switch tok.Type {
	case token.EOF:
		err.Where = "at end"
	case token.Error:
	default:
		err.Where = fmt.Sprintf("at '%s'", tok.Literal)
	}
	p.errors = append(p.errors, err)
	if p.reporter != nil {
		p.reporter(err)
	}
}

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != token.EOF {
		if p.previous.Type == token.Semicolon {
			return
		}
		if token.StartsStatement(p.current.Type) {
			return
		}
		p.advance()
	}
}
