package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Operand limits. Long indices and jump offsets are big-endian, most
// significant byte first.
const (
	MaxShortIndex = math.MaxUint8
	MaxLongIndex  = math.MaxUint32
	MaxJump       = math.MaxUint16
)

// AppendIndex encodes index in the width op expects and appends it to dst.
func AppendIndex(dst []byte, op OpCode, index int) []byte {
	if op.IsLong() {
		return binary.BigEndian.AppendUint32(dst, uint32(index))
	}
	return append(dst, byte(index))
}

// ReadIndex decodes the index operand of the instruction at offset.
// It returns the index and the offset of the next instruction.
func ReadIndex(code []byte, offset int) (int, int, error) {
	op := OpCode(code[offset])
	width := op.OperandWidth()
	start := offset + 1
	if start+width > len(code) {
		return 0, offset, fmt.Errorf("truncated %s operand at %d", op, offset)
	}
	switch width {
	case OperandShort:
		return int(code[start]), start + 1, nil
	case OperandLong:
		return int(binary.BigEndian.Uint32(code[start:])), start + 4, nil
	default:
		return 0, offset, fmt.Errorf("%s has no index operand", op)
	}
}

// PutJump overwrites the two jump-offset bytes at pos.
func PutJump(code []byte, pos int, offset int) {
	binary.BigEndian.PutUint16(code[pos:], uint16(offset))
}

// Jump decodes a two-byte jump offset starting at pos.
func Jump(code []byte, pos int) int {
	return int(binary.BigEndian.Uint16(code[pos:]))
}
