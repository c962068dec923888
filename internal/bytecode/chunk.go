package bytecode

import (
	"errors"

	"github.com/xirelogy/go-lox/internal/value"
)

// ErrTooManyConstants is returned once the pool outgrows the long index space.
var ErrTooManyConstants = errors.New("too many constants in one chunk")

// Chunk is a compiled bytecode sequence with its constant pool and line index.
type Chunk struct {
	Name      string
	Code      []byte
	Constants []value.Value
	Lines     LineIndex
}

// NewChunk returns an empty chunk labelled name.
func NewChunk(name string) *Chunk {
	return &Chunk{Name: name}
}

// Write appends one code byte and records the source line it came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines.Add(line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// WriteIndexed appends op (switched to its long form when index needs it)
// followed by the encoded index.
func (c *Chunk) WriteIndexed(op OpCode, index int, line int) {
	op = op.ForIndex(index)
	c.WriteOp(op, line)
	var buf [OperandLong]byte
	for _, b := range AppendIndex(buf[:0], op, index) {
		c.Write(b, line)
	}
}

// AddConstant appends v to the pool and returns its index. Duplicates are kept.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// WriteConstant adds v to the pool and emits the load instruction for it,
// short while the pool holds at most 256 entries and long afterwards.
func (c *Chunk) WriteConstant(v value.Value, line int) (int, error) {
	index := c.AddConstant(v)
	if uint64(index) > MaxLongIndex {
		return index, ErrTooManyConstants
	}
	c.WriteIndexed(OP_CONSTANT, index, line)
	return index, nil
}

// LineFor returns the source line of the byte at offset, or NoLine.
func (c *Chunk) LineFor(offset int) int {
	return c.Lines.LineFor(offset)
}

// Len returns the number of bytes in the chunk.
func (c *Chunk) Len() int {
	return len(c.Code)
}
