package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xirelogy/go-lox/internal/bytecode"
)

// Sentinel causes carried by RuntimeError.
var (
	ErrStackOverflow     = errors.New("stack overflow")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrOperandType       = errors.New("operand type mismatch")
	ErrInstructionLimit  = errors.New("instruction limit exceeded")
)

// TraceInfo describes a single instruction dispatch for debugging/tracing.
type TraceInfo struct {
	Op         bytecode.OpCode
	Chunk      string
	Line       int
	IP         int
	StackDepth int
}

// TraceHook observes instruction dispatch for debugging/profiling.
type TraceHook func(TraceInfo)

// RuntimeError carries source information for VM failures.
type RuntimeError struct {
	Message string
	Chunk   string
	Line    int // 0 when unknown
	IP      int
	Cause   error
}

func (e *RuntimeError) Error() string {
	locParts := []string{}
	if e.Chunk != "" {
		if e.Line > 0 {
			locParts = append(locParts, fmt.Sprintf("%s:%d", e.Chunk, e.Line))
		} else {
			locParts = append(locParts, e.Chunk)
		}
	} else if e.Line > 0 {
		locParts = append(locParts, fmt.Sprintf("line %d", e.Line))
	}
	loc := strings.Join(locParts, " ")
	if loc != "" {
		return fmt.Sprintf("%s: %s", loc, e.Message)
	}
	return e.Message
}

// Unwrap exposes the sentinel cause, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

func (vm *VM) runtimeError(cause error, format string, args ...interface{}) *RuntimeError {
	err := &RuntimeError{
		Message: fmt.Sprintf(format, args...),
		IP:      vm.lastOp,
		Cause:   cause,
	}
	if vm.chunk != nil {
		err.Chunk = vm.chunk.Name
		err.Line = lineForOffset(vm.chunk, vm.lastOp)
	}
	return err
}

func (vm *VM) trace(op bytecode.OpCode) {
	if vm.tracer != nil {
		var b strings.Builder
		b.WriteString("          ")
		for _, v := range vm.stack[:vm.sp] {
			fmt.Fprintf(&b, "[ %s ]", v)
		}
		fmt.Fprintln(vm.traceOut, b.String())
		if _, err := vm.tracer.Instruction(vm.chunk, vm.lastOp); err != nil {
			fmt.Fprintf(vm.traceOut, "%04d <%v>\n", vm.lastOp, err)
		}
	}
	if vm.traceHook != nil {
		vm.traceHook(TraceInfo{
			Op:         op,
			Chunk:      vm.chunk.Name,
			Line:       lineForOffset(vm.chunk, vm.lastOp),
			IP:         vm.lastOp,
			StackDepth: vm.sp,
		})
	}
}

// lineForOffset maps the chunk's NoLine sentinel to 0.
func lineForOffset(chunk *bytecode.Chunk, offset int) int {
	line := chunk.LineFor(offset)
	if line == bytecode.NoLine {
		return 0
	}
	return line
}
