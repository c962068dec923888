package bytecode

import "fmt"

// Verify walks every instruction of c and checks that it decodes: opcodes
// are known, operands are complete, constant indices are in range, global
// names are strings and jump targets land on an instruction start or the
// end of the code. The compiler's output always verifies; chunks loaded from
// outside must be checked before they are run.
func Verify(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("bytecode: nil chunk")
	}
	if covered := c.Lines.Len(); covered != len(c.Code) {
		return fmt.Errorf("bytecode: line index covers %d bytes, code has %d", covered, len(c.Code))
	}
	type jump struct {
		op             OpCode
		offset, target int
	}
	var jumps []jump
	starts := make(map[int]bool)
	for offset := 0; offset < len(c.Code); {
		starts[offset] = true
		op := OpCode(c.Code[offset])
		if !op.Valid() {
			return fmt.Errorf("bytecode: unknown opcode 0x%02X at %d", byte(op), offset)
		}
		next := offset + op.Size()
		if next > len(c.Code) {
			return fmt.Errorf("bytecode: truncated %s at %d", op, offset)
		}
		switch op {
		case OP_CONSTANT, OP_CONSTANT_LONG:
			idx, _, _ := ReadIndex(c.Code, offset)
			if idx >= len(c.Constants) {
				return fmt.Errorf("bytecode: %s at %d: constant %d out of range", op, offset, idx)
			}
		case OP_GET_GLOBAL, OP_GET_GLOBAL_LONG,
			OP_DEFINE_GLOBAL, OP_DEFINE_GLOBAL_LONG,
			OP_SET_GLOBAL, OP_SET_GLOBAL_LONG:
			idx, _, _ := ReadIndex(c.Code, offset)
			if idx >= len(c.Constants) {
				return fmt.Errorf("bytecode: %s at %d: constant %d out of range", op, offset, idx)
			}
			if _, ok := c.Constants[idx].AsString(); !ok {
				return fmt.Errorf("bytecode: %s at %d: name constant %d is not a string", op, offset, idx)
			}
		case OP_JUMP, OP_JUMP_IF_FALSE:
			target := next + Jump(c.Code, offset+1)
			if target > len(c.Code) {
				return fmt.Errorf("bytecode: %s at %d jumps past end (%d)", op, offset, target)
			}
			jumps = append(jumps, jump{op, offset, target})
		case OP_LOOP:
			target := next - Jump(c.Code, offset+1)
			if target < 0 {
				return fmt.Errorf("bytecode: %s at %d loops before start (%d)", op, offset, target)
			}
			jumps = append(jumps, jump{op, offset, target})
		}
		offset = next
	}
	for _, j := range jumps {
		if j.target != len(c.Code) && !starts[j.target] {
			return fmt.Errorf("bytecode: %s at %d targets %d, inside an instruction", j.op, j.offset, j.target)
		}
	}
	return nil
}
