package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xirelogy/go-lox/internal/value"
)

func sampleChunk(strs *value.Interner) *Chunk {
	c := NewChunk("sample")
	c.WriteConstant(value.Number(1.5), 1)
	name := c.AddConstant(strs.StringValue("x"))
	c.WriteIndexed(OP_DEFINE_GLOBAL, name, 1)
	c.WriteIndexed(OP_GET_GLOBAL, name, 2)
	c.WriteOp(OP_JUMP_IF_FALSE, 2)
	c.Write(0, 2)
	c.Write(1, 2)
	c.WriteOp(OP_POP, 2)
	c.WriteOp(OP_LOOP, 3)
	c.Write(0, 3)
	c.Write(10, 3)
	c.WriteOp(OP_RETURN, 3)
	return c
}

func TestDisassembleChunk(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDisassembler(&buf).DisassembleChunk(sampleChunk(value.NewInterner())); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"== sample (bytes=14, constants=2) ==",
		"0000    1 OP_CONSTANT              0 '1.5'",
		"0002    | OP_DEFINE_GLOBAL         1 'x'",
		"0004    2 OP_GET_GLOBAL            1 'x'",
		"0006    | OP_JUMP_IF_FALSE         6 -> 10",
		"0010    3 OP_LOOP                 10 -> 3",
		"0013    | OP_RETURN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDisassembleRejectsUnknownOpcode(t *testing.T) {
	c := NewChunk("bad")
	c.Write(0xee, 1)
	var buf bytes.Buffer
	if err := NewDisassembler(&buf).DisassembleChunk(c); err == nil {
		t.Fatalf("expected error for unknown opcode")
	}
}
