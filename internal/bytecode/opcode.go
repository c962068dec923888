package bytecode

import "fmt"

// OpCode enumerates bytecode operations.
// Every family that addresses the constant pool or a local slot has a
// short (1-byte operand) and a long (4-byte operand) form.
type OpCode byte

const (
	OP_CONSTANT OpCode = iota
	OP_CONSTANT_LONG
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP

	OP_GET_LOCAL
	OP_GET_LOCAL_LONG
	OP_SET_LOCAL
	OP_SET_LOCAL_LONG
	OP_GET_GLOBAL
	OP_GET_GLOBAL_LONG
	OP_DEFINE_GLOBAL
	OP_DEFINE_GLOBAL_LONG
	OP_SET_GLOBAL
	OP_SET_GLOBAL_LONG

	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE

	OP_PRINT
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP
	OP_RETURN

	opCount
)

// Operand kinds. The opcode alone determines the operand width.
const (
	OperandNone  = 0
	OperandShort = 1
	OperandJump  = 2
	OperandLong  = 4
)

type opInfo struct {
	name  string
	width int
	long  OpCode // long form for short members of a family, else the op itself
}

var opTable = [opCount]opInfo{
	OP_CONSTANT:           {"OP_CONSTANT", OperandShort, OP_CONSTANT_LONG},
	OP_CONSTANT_LONG:      {"OP_CONSTANT_LONG", OperandLong, OP_CONSTANT_LONG},
	OP_NIL:                {"OP_NIL", OperandNone, OP_NIL},
	OP_TRUE:               {"OP_TRUE", OperandNone, OP_TRUE},
	OP_FALSE:              {"OP_FALSE", OperandNone, OP_FALSE},
	OP_POP:                {"OP_POP", OperandNone, OP_POP},
	OP_GET_LOCAL:          {"OP_GET_LOCAL", OperandShort, OP_GET_LOCAL_LONG},
	OP_GET_LOCAL_LONG:     {"OP_GET_LOCAL_LONG", OperandLong, OP_GET_LOCAL_LONG},
	OP_SET_LOCAL:          {"OP_SET_LOCAL", OperandShort, OP_SET_LOCAL_LONG},
	OP_SET_LOCAL_LONG:     {"OP_SET_LOCAL_LONG", OperandLong, OP_SET_LOCAL_LONG},
	OP_GET_GLOBAL:         {"OP_GET_GLOBAL", OperandShort, OP_GET_GLOBAL_LONG},
	OP_GET_GLOBAL_LONG:    {"OP_GET_GLOBAL_LONG", OperandLong, OP_GET_GLOBAL_LONG},
	OP_DEFINE_GLOBAL:      {"OP_DEFINE_GLOBAL", OperandShort, OP_DEFINE_GLOBAL_LONG},
	OP_DEFINE_GLOBAL_LONG: {"OP_DEFINE_GLOBAL_LONG", OperandLong, OP_DEFINE_GLOBAL_LONG},
	OP_SET_GLOBAL:         {"OP_SET_GLOBAL", OperandShort, OP_SET_GLOBAL_LONG},
	OP_SET_GLOBAL_LONG:    {"OP_SET_GLOBAL_LONG", OperandLong, OP_SET_GLOBAL_LONG},
	OP_EQUAL:              {"OP_EQUAL", OperandNone, OP_EQUAL},
	OP_GREATER:            {"OP_GREATER", OperandNone, OP_GREATER},
	OP_LESS:               {"OP_LESS", OperandNone, OP_LESS},
	OP_ADD:                {"OP_ADD", OperandNone, OP_ADD},
	OP_SUBTRACT:           {"OP_SUBTRACT", OperandNone, OP_SUBTRACT},
	OP_MULTIPLY:           {"OP_MULTIPLY", OperandNone, OP_MULTIPLY},
	OP_DIVIDE:             {"OP_DIVIDE", OperandNone, OP_DIVIDE},
	OP_NOT:                {"OP_NOT", OperandNone, OP_NOT},
	OP_NEGATE:             {"OP_NEGATE", OperandNone, OP_NEGATE},
	OP_PRINT:              {"OP_PRINT", OperandNone, OP_PRINT},
	OP_JUMP:               {"OP_JUMP", OperandJump, OP_JUMP},
	OP_JUMP_IF_FALSE:      {"OP_JUMP_IF_FALSE", OperandJump, OP_JUMP_IF_FALSE},
	OP_LOOP:               {"OP_LOOP", OperandJump, OP_LOOP},
	OP_RETURN:             {"OP_RETURN", OperandNone, OP_RETURN},
}

// Valid reports whether op is a defined opcode.
func (op OpCode) Valid() bool {
	return op < opCount
}

func (op OpCode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("OP_0x%02X", byte(op))
	}
	return opTable[op].name
}

// OperandWidth returns the number of operand bytes following op.
func (op OpCode) OperandWidth() int {
	if !op.Valid() {
		return 0
	}
	return opTable[op].width
}

// Size is the total encoded length of the instruction, opcode included.
func (op OpCode) Size() int {
	return 1 + op.OperandWidth()
}

// IsLong reports whether op takes a 4-byte index operand.
func (op OpCode) IsLong() bool {
	return op.OperandWidth() == OperandLong
}

// Long returns the long member of op's family. Ops without a long form return themselves.
func (op OpCode) Long() OpCode {
	if !op.Valid() {
		return op
	}
	return opTable[op].long
}

// ForIndex picks the short or long member of op's family for an operand index.
func (op OpCode) ForIndex(index int) OpCode {
	if index <= MaxShortIndex {
		return op
	}
	return op.Long()
}
