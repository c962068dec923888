package vm

import (
	"fmt"
	"io"

	"github.com/xirelogy/go-lox/internal/bytecode"
)

// Disassemble emits assembly-style output for the most recently run chunk.
func (vm *VM) Disassemble(w io.Writer) error {
	if vm == nil {
		return fmt.Errorf("nil VM")
	}
	if w == nil {
		return fmt.Errorf("nil writer")
	}
	if vm.chunk == nil {
		return fmt.Errorf("no chunk loaded")
	}
	return bytecode.NewDisassembler(w).DisassembleChunk(vm.chunk)
}
