package compiler

import (
	"errors"
	"io"
	"maps"

	"github.com/tliron/commonlog"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/token"
	"github.com/xirelogy/go-lox/internal/value"
)

var log = commonlog.GetLogger("lox.compiler")

// Options controls a single compilation.
type Options struct {
	// Name labels the chunk in disassembly output.
	Name string
	// Disassemble, when set, receives a listing of the chunk after a
	// successful compile.
	Disassemble io.Writer
	// Reporter receives each error as it is recorded.
	Reporter Reporter
	// Finals holds the global names bound with val by earlier compilations
	// of the same session. A successful compile updates it in place; a
	// failed one leaves it untouched.
	Finals map[string]bool
}

// Compile translates source into a chunk in a single pass. String constants
// and global names are interned through strings, which must be the interner
// of the VM that will run the chunk.
//
// When any error is recorded the returned error is an ErrorList; the chunk is
// still returned for inspection but must not be executed.
func Compile(source string, strings *value.Interner, opts Options) (*bytecode.Chunk, error) {
	c := &compiler{
		parser:  newParser(source, opts.Reporter),
		chunk:   bytecode.NewChunk(opts.Name),
		strings: strings,
		scope:   newScope(),
		finals:  maps.Clone(opts.Finals),
	}
	if c.finals == nil {
		c.finals = make(map[string]bool)
	}
	log.Debugf("compiling %q (%d bytes of source)", opts.Name, len(source))

	c.parser.advance()
	for !c.parser.match(token.EOF) {
		c.declaration()
	}
	c.end()

	if c.parser.hadError {
		log.Debugf("compile of %q failed with %d errors", opts.Name, len(c.parser.errors))
		return c.chunk, c.parser.errors
	}
	log.Debugf("compiled %q: %d bytes, %d constants", opts.Name, c.chunk.Len(), len(c.chunk.Constants))
	if opts.Finals != nil {
		clear(opts.Finals)
		maps.Copy(opts.Finals, c.finals)
	}
	if opts.Disassemble != nil {
		if err := bytecode.NewDisassembler(opts.Disassemble).DisassembleChunk(c.chunk); err != nil {
			return c.chunk, err
		}
	}
	return c.chunk, nil
}

type compiler struct {
	parser  *Parser
	chunk   *bytecode.Chunk
	strings *value.Interner
	scope   *scope

	// finals holds global names currently bound with val.
	finals map[string]bool
}

func (c *compiler) end() {
	c.emitOp(bytecode.OP_RETURN)
}

// --- emission ---

func (c *compiler) line() int {
	return c.parser.previous.Pos.Line
}

func (c *compiler) emitByte(b byte) {
	c.chunk.Write(b, c.line())
}

func (c *compiler) emitOp(op bytecode.OpCode) {
	c.chunk.WriteOp(op, c.line())
}

func (c *compiler) emitOps(ops ...bytecode.OpCode) {
	for _, op := range ops {
		c.emitOp(op)
	}
}

// emitIndexed writes op, or the long member of its family when index does
// not fit in one byte.
func (c *compiler) emitIndexed(op bytecode.OpCode, index int) {
	c.chunk.WriteIndexed(op, index, c.line())
}

func (c *compiler) emitConstant(v value.Value) {
	if _, err := c.chunk.WriteConstant(v, c.line()); err != nil {
		if errors.Is(err, bytecode.ErrTooManyConstants) {
			c.parser.error(KindConstantPoolOverflow, "Too many constants in one chunk.")
			return
		}
		c.parser.error(KindSyntax, err.Error())
	}
}

// identifierConstant adds name to the pool as an interned string. Each
// reference adds its own entry.
func (c *compiler) identifierConstant(name string) int {
	index := c.chunk.AddConstant(c.strings.StringValue(name))
	if uint64(index) > bytecode.MaxLongIndex {
		c.parser.error(KindConstantPoolOverflow, "Too many constants in one chunk.")
		return 0
	}
	return index
}

// emitJump writes op with a placeholder offset and returns the position of
// the offset bytes for patchJump.
func (c *compiler) emitJump(op bytecode.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.chunk.Len() - bytecode.OperandJump
}

// patchJump points the jump whose operand sits at pos to the next instruction.
func (c *compiler) patchJump(pos int) {
	jump := c.chunk.Len() - pos - bytecode.OperandJump
	if jump > bytecode.MaxJump {
		c.parser.error(KindJumpTooFar, "Too much code to jump over.")
		return
	}
	bytecode.PutJump(c.chunk.Code, pos, jump)
}

func (c *compiler) emitLoop(start int) {
	c.emitOp(bytecode.OP_LOOP)
	offset := c.chunk.Len() - start + bytecode.OperandJump
	if offset > bytecode.MaxJump {
		c.parser.error(KindJumpTooFar, "Loop body too large.")
		offset = 0
	}
	c.emitByte(0)
	c.emitByte(0)
	bytecode.PutJump(c.chunk.Code, c.chunk.Len()-bytecode.OperandJump, offset)
}

// --- declarations and statements ---

func (c *compiler) declaration() {
	switch {
	case c.parser.match(token.Var):
		c.varDeclaration(false)
	case c.parser.match(token.Val):
		c.varDeclaration(true)
	default:
		c.statement()
	}
	if c.parser.panicMode {
		c.parser.synchronize()
	}
}

func (c *compiler) varDeclaration(final bool) {
	global := c.parseVariable(final, "Expect variable name.")
	name := c.parser.previous.Literal

	if c.parser.match(token.Assign) {
		c.expression()
	} else {
		c.emitOp(bytecode.OP_NIL)
	}
	c.parser.consume(token.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global, name, final)
}

// parseVariable consumes the variable name and declares it. At global scope
// it returns the constant index of the name.
func (c *compiler) parseVariable(final bool, message string) int {
	c.parser.consume(token.Ident, message)
	c.declareVariable(final)
	if c.scope.depth > 0 {
		return 0
	}
	return c.identifierConstant(c.parser.previous.Literal)
}

func (c *compiler) declareVariable(final bool) {
	if c.scope.depth == 0 {
		return
	}
	name := c.parser.previous.Literal
	if c.scope.declaredHere(name) {
		c.parser.error(KindRedeclaration, "Already a variable with this name in this scope.")
	}
	if c.scope.full() {
		c.parser.error(KindTooManyLocals, "Too many local variables in function.")
		return
	}
	c.scope.addLocal(name, final)
}

func (c *compiler) defineVariable(global int, name string, final bool) {
	if c.scope.depth > 0 {
		c.scope.markInitialized()
		return
	}
	if final {
		c.finals[name] = true
	} else {
		delete(c.finals, name)
	}
	c.emitIndexed(bytecode.OP_DEFINE_GLOBAL, global)
}

func (c *compiler) statement() {
	switch {
	case c.parser.match(token.Print):
		c.printStatement()
	case c.parser.match(token.If):
		c.ifStatement()
	case c.parser.match(token.While):
		c.whileStatement()
	case c.parser.match(token.LBrace):
		c.scope.begin()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *compiler) printStatement() {
	c.expression()
	c.parser.consume(token.Semicolon, "Expect ';' after value.")
	c.emitOp(bytecode.OP_PRINT)
}

func (c *compiler) expressionStatement() {
	c.expression()
	c.parser.consume(token.Semicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OP_POP)
}

func (c *compiler) block() {
	for !c.parser.check(token.RBrace) && !c.parser.check(token.EOF) {
		c.declaration()
	}
	c.parser.consume(token.RBrace, "Expect '}' after block.")
}

// endScope closes a block, popping every local declared inside it.
func (c *compiler) endScope() {
	for n := c.scope.end(); n > 0; n-- {
		c.emitOp(bytecode.OP_POP)
	}
}

func (c *compiler) ifStatement() {
	c.parser.consume(token.LParen, "Expect '(' after 'if'.")
	c.expression()
	c.parser.consume(token.RParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emitOp(bytecode.OP_POP)
	c.statement()

	elseJump := c.emitJump(bytecode.OP_JUMP)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OP_POP)

	if c.parser.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *compiler) whileStatement() {
	loopStart := c.chunk.Len()
	c.parser.consume(token.LParen, "Expect '(' after 'while'.")
	c.expression()
	c.parser.consume(token.RParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emitOp(bytecode.OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OP_POP)
}
