package compiler

import (
	"strconv"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/token"
	"github.com/xirelogy/go-lox/internal/value"
)

// Precedence is the binding power of an operator, lowest first.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LParen:       {prefix: (*compiler).grouping},
		token.Minus:        {prefix: (*compiler).unary, infix: (*compiler).binary, precedence: PrecTerm},
		token.Plus:         {infix: (*compiler).binary, precedence: PrecTerm},
		token.Slash:        {infix: (*compiler).binary, precedence: PrecFactor},
		token.Star:         {infix: (*compiler).binary, precedence: PrecFactor},
		token.Bang:         {prefix: (*compiler).unary},
		token.NotEqual:     {infix: (*compiler).binary, precedence: PrecEquality},
		token.Equal:        {infix: (*compiler).binary, precedence: PrecEquality},
		token.Greater:      {infix: (*compiler).binary, precedence: PrecComparison},
		token.GreaterEqual: {infix: (*compiler).binary, precedence: PrecComparison},
		token.Less:         {infix: (*compiler).binary, precedence: PrecComparison},
		token.LessEqual:    {infix: (*compiler).binary, precedence: PrecComparison},
		token.Ident:        {prefix: (*compiler).variable},
		token.String:       {prefix: (*compiler).string},
		token.Number:       {prefix: (*compiler).number},
		token.And:          {infix: (*compiler).and, precedence: PrecAnd},
		token.Or:           {infix: (*compiler).or, precedence: PrecOr},
		token.False:        {prefix: (*compiler).literal},
		token.Nil:          {prefix: (*compiler).literal},
		token.True:         {prefix: (*compiler).literal},
	}
}

// getRule returns the zero rule (no prefix, no infix, PrecNone) for tokens
// that play no part in expressions.
func getRule(t token.Type) parseRule {
	return rules[t]
}

func (c *compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence compiles an expression whose operators all bind at least
// as tightly as prec.
func (c *compiler) parsePrecedence(prec Precedence) {
	c.parser.advance()
	prefix := getRule(c.parser.previous.Type).prefix
	if prefix == nil {
		c.parser.error(KindSyntax, "Expect expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.parser.current.Type).precedence {
		c.parser.advance()
		getRule(c.parser.previous.Type).infix(c, canAssign)
	}

	if canAssign && c.parser.match(token.Assign) {
		c.parser.error(KindInvalidAssignmentTarget, "Invalid assignment target.")
	}
}

func (c *compiler) grouping(bool) {
	c.expression()
	c.parser.consume(token.RParen, "Expect ')' after expression.")
}

func (c *compiler) number(bool) {
	n, err := strconv.ParseFloat(c.parser.previous.Literal, 64)
	if err != nil {
		c.parser.error(KindSyntax, "Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n))
}

// string strips the surrounding quotes kept by the scanner.
func (c *compiler) string(bool) {
	lit := c.parser.previous.Literal
	c.emitConstant(c.strings.StringValue(lit[1 : len(lit)-1]))
}

func (c *compiler) literal(bool) {
	switch c.parser.previous.Type {
	case token.False:
		c.emitOp(bytecode.OP_FALSE)
	case token.Nil:
		c.emitOp(bytecode.OP_NIL)
	case token.True:
		c.emitOp(bytecode.OP_TRUE)
	}
}

func (c *compiler) unary(bool) {
	op := c.parser.previous.Type
	c.parsePrecedence(PrecUnary)
	switch op {
	case token.Bang:
		c.emitOp(bytecode.OP_NOT)
	case token.Minus:
		c.emitOp(bytecode.OP_NEGATE)
	}
}

func (c *compiler) binary(bool) {
	op := c.parser.previous.Type
	c.parsePrecedence(getRule(op).precedence + 1)

	switch op {
	case token.NotEqual:
		c.emitOps(bytecode.OP_EQUAL, bytecode.OP_NOT)
	case token.Equal:
		c.emitOp(bytecode.OP_EQUAL)
	case token.Greater:
		c.emitOp(bytecode.OP_GREATER)
	case token.GreaterEqual:
		c.emitOps(bytecode.OP_LESS, bytecode.OP_NOT)
	case token.Less:
		c.emitOp(bytecode.OP_LESS)
	case token.LessEqual:
		c.emitOps(bytecode.OP_GREATER, bytecode.OP_NOT)
	case token.Plus:
		c.emitOp(bytecode.OP_ADD)
	case token.Minus:
		c.emitOp(bytecode.OP_SUBTRACT)
	case token.Star:
		c.emitOp(bytecode.OP_MULTIPLY)
	case token.Slash:
		c.emitOp(bytecode.OP_DIVIDE)
	}
}

// and leaves a falsey left operand on the stack and skips the right one.
func (c *compiler) and(bool) {
	endJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emitOp(bytecode.OP_POP)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

// or leaves a truthy left operand on the stack and skips the right one.
func (c *compiler) or(bool) {
	elseJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	endJump := c.emitJump(bytecode.OP_JUMP)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OP_POP)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *compiler) variable(canAssign bool) {
	c.namedVariable(c.parser.previous, canAssign)
}

// namedVariable emits a read of name, or a write when an assignment follows
// and the context allows one. Locals are addressed by slot, globals through
// a string constant; either way the short or long opcode is picked by index.
func (c *compiler) namedVariable(name token.Token, canAssign bool) {
	var (
		getOp, setOp bytecode.OpCode
		index        int
		final        bool
	)
	if slot, l, ok := c.scope.resolve(name.Literal); ok {
		if l.depth == uninitialized {
			c.parser.error(KindUninitializedSelfReference, "Can't read local variable in its own initializer.")
		}
		getOp, setOp = bytecode.OP_GET_LOCAL, bytecode.OP_SET_LOCAL
		index, final = int(slot), l.final
	} else {
		getOp, setOp = bytecode.OP_GET_GLOBAL, bytecode.OP_SET_GLOBAL
		index, final = c.identifierConstant(name.Literal), c.finals[name.Literal]
	}

	if canAssign && c.parser.match(token.Assign) {
		if final {
			c.parser.error(KindImmutableReassignment, "Can't reassign final variable.")
		}
		c.expression()
		c.emitIndexed(setOp, index)
		return
	}
	c.emitIndexed(getOp, index)
}
