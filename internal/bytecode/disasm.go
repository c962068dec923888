package bytecode

import (
	"fmt"
	"io"
	"strconv"
)

// Disassembler formats bytecode as a readable assembly-style dump.
type Disassembler struct {
	w       io.Writer
	printed bool
}

// NewDisassembler constructs a disassembler that writes to w.
func NewDisassembler(w io.Writer) *Disassembler {
	return &Disassembler{w: w}
}

// DisassembleChunk emits a header followed by every instruction in chunk.
func (d *Disassembler) DisassembleChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("nil chunk")
	}
	d.startSection()
	name := chunk.Name
	if name == "" {
		name = "<script>"
	}
	fmt.Fprintf(d.w, "== %s (bytes=%d, constants=%d) ==\n", name, len(chunk.Code), len(chunk.Constants))
	for offset := 0; offset < len(chunk.Code); {
		next, err := d.Instruction(chunk, offset)
		if err != nil {
			return err
		}
		offset = next
	}
	return nil
}

// Instruction prints the instruction at offset and returns the offset of
// the one after it.
func (d *Disassembler) Instruction(chunk *Chunk, offset int) (int, error) {
	if offset < 0 || offset >= len(chunk.Code) {
		return offset, fmt.Errorf("offset %d outside chunk of %d bytes", offset, len(chunk.Code))
	}
	op := OpCode(chunk.Code[offset])
	if !op.Valid() {
		return offset, fmt.Errorf("unknown opcode 0x%02X at %d", byte(op), offset)
	}
	if offset+op.Size() > len(chunk.Code) {
		return offset, fmt.Errorf("unexpected end of bytecode in %s at %d", op, offset)
	}

	lineStr := "-"
	if line := chunk.LineFor(offset); line != NoLine {
		lineStr = strconv.Itoa(line)
		if offset > 0 && chunk.LineFor(offset-1) == line {
			lineStr = "|"
		}
	}

	detail, err := d.decodeOperands(op, chunk, offset)
	if err != nil {
		return offset, err
	}
	fmt.Fprintf(d.w, "%04d %4s %-21s", offset, lineStr, op)
	if detail != "" {
		fmt.Fprintf(d.w, " %s", detail)
	}
	fmt.Fprintln(d.w)
	return offset + op.Size(), nil
}

func (d *Disassembler) decodeOperands(op OpCode, chunk *Chunk, offset int) (string, error) {
	switch op {
	case OP_CONSTANT, OP_CONSTANT_LONG,
		OP_GET_GLOBAL, OP_GET_GLOBAL_LONG,
		OP_DEFINE_GLOBAL, OP_DEFINE_GLOBAL_LONG,
		OP_SET_GLOBAL, OP_SET_GLOBAL_LONG:
		idx, _, err := ReadIndex(chunk.Code, offset)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%4d '%s'", idx, formatConstRef(chunk, idx)), nil
	case OP_GET_LOCAL, OP_GET_LOCAL_LONG, OP_SET_LOCAL, OP_SET_LOCAL_LONG:
		slot, _, err := ReadIndex(chunk.Code, offset)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%4d", slot), nil
	case OP_JUMP, OP_JUMP_IF_FALSE:
		jump := Jump(chunk.Code, offset+1)
		return fmt.Sprintf("%4d -> %d", offset, offset+op.Size()+jump), nil
	case OP_LOOP:
		jump := Jump(chunk.Code, offset+1)
		return fmt.Sprintf("%4d -> %d", offset, offset+op.Size()-jump), nil
	default:
		return "", nil
	}
}

func (d *Disassembler) startSection() {
	if d.printed {
		fmt.Fprintln(d.w)
	}
	d.printed = true
}

func formatConstRef(chunk *Chunk, idx int) string {
	if chunk == nil || idx < 0 || idx >= len(chunk.Constants) {
		return "<invalid>"
	}
	return chunk.Constants[idx].String()
}
