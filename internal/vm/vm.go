package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/value"
)

var log = commonlog.GetLogger("lox.vm")

// DefaultStackSize is the operand stack capacity when none is configured.
const DefaultStackSize = 256

// VM is a stack-based bytecode interpreter. Globals persist across Run
// calls; the operand stack does not.
type VM struct {
	strings *value.Interner
	globals map[*value.String]value.Value

	chunk  *bytecode.Chunk
	ip     int
	lastOp int

	stack []value.Value // fixed capacity
	sp    int

	instLimit int
	instCount int

	out       io.Writer
	traceOut  io.Writer
	traceHook TraceHook
	tracer    *bytecode.Disassembler
}

// Option configures a VM.
type Option func(*VM)

// WithStackSize sets the operand stack capacity. Values below one are ignored.
func WithStackSize(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.stack = make([]value.Value, n)
		}
	}
}

// WithOutput directs print statements to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		if w != nil {
			vm.out = w
		}
	}
}

// WithTrace writes the stack and the next instruction to w before each dispatch.
func WithTrace(w io.Writer) Option {
	return func(vm *VM) {
		vm.traceOut = w
	}
}

// WithTraceHook registers a callback for instruction-level tracing.
func WithTraceHook(h TraceHook) Option {
	return func(vm *VM) {
		vm.traceHook = h
	}
}

// WithInstructionLimit caps the number of instructions a single Run may
// execute (0 for unlimited).
func WithInstructionLimit(limit int) Option {
	return func(vm *VM) {
		vm.SetInstructionLimit(limit)
	}
}

// New constructs an empty VM. strings must be the interner the chunks it
// runs were compiled with.
func New(strings *value.Interner, opts ...Option) *VM {
	if strings == nil {
		strings = value.NewInterner()
	}
	vm := &VM{
		strings: strings,
		globals: make(map[*value.String]value.Value),
		stack:   make([]value.Value, DefaultStackSize),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.traceOut != nil {
		vm.tracer = bytecode.NewDisassembler(vm.traceOut)
	}
	return vm
}

// SetTraceHook registers a callback for instruction-level tracing.
func (vm *VM) SetTraceHook(h TraceHook) {
	vm.traceHook = h
}

// SetInstructionLimit caps the number of instructions per Run (0 for unlimited).
func (vm *VM) SetInstructionLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	vm.instLimit = limit
}

// ResetState clears transient execution state. Globals are kept.
func (vm *VM) ResetState() {
	clear(vm.stack[:vm.sp])
	vm.sp = 0
	vm.ip = 0
	vm.lastOp = 0
	vm.instCount = 0
}

// Run executes chunk from its first instruction until OP_RETURN or the end
// of the code. A runtime error halts execution and is returned as a
// *RuntimeError.
func (vm *VM) Run(chunk *bytecode.Chunk) error {
	if chunk == nil {
		return fmt.Errorf("vm: nil chunk")
	}
	vm.chunk = chunk
	vm.ResetState()
	if err := vm.run(); err != nil {
		log.Infof("runtime error in %q: %s", chunk.Name, err)
		return err
	}
	return nil
}

func (vm *VM) run() error {
	code := vm.chunk.Code
	for vm.ip < len(code) {
		vm.lastOp = vm.ip
		op := bytecode.OpCode(code[vm.ip])
		vm.instCount++
		if vm.instLimit > 0 && vm.instCount > vm.instLimit {
			return vm.runtimeError(ErrInstructionLimit, "Instruction limit exceeded.")
		}
		vm.trace(op)
		vm.ip++

		switch op {
		case bytecode.OP_CONSTANT, bytecode.OP_CONSTANT_LONG:
			if err := vm.push(vm.readConstant()); err != nil {
				return err
			}
		case bytecode.OP_NIL:
			if err := vm.push(value.Nil()); err != nil {
				return err
			}
		case bytecode.OP_TRUE:
			if err := vm.push(value.Bool(true)); err != nil {
				return err
			}
		case bytecode.OP_FALSE:
			if err := vm.push(value.Bool(false)); err != nil {
				return err
			}
		case bytecode.OP_POP:
			if _, err := vm.pop(); err != nil {
				return err
			}

		case bytecode.OP_GET_LOCAL, bytecode.OP_GET_LOCAL_LONG:
			slot := vm.readIndex()
			if slot >= vm.sp {
				return vm.runtimeError(nil, "Local slot %d out of range.", slot)
			}
			if err := vm.push(vm.stack[slot]); err != nil {
				return err
			}
		case bytecode.OP_SET_LOCAL, bytecode.OP_SET_LOCAL_LONG:
			slot := vm.readIndex()
			v, err := vm.peek(0)
			if err != nil {
				return err
			}
			if slot >= vm.sp {
				return vm.runtimeError(nil, "Local slot %d out of range.", slot)
			}
			vm.stack[slot] = v

		case bytecode.OP_GET_GLOBAL, bytecode.OP_GET_GLOBAL_LONG:
			name := vm.readName()
			v, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError(ErrUndefinedVariable, "Undefined variable '%s'.", name.Chars)
			}
			if err := vm.push(v); err != nil {
				return err
			}
		case bytecode.OP_DEFINE_GLOBAL, bytecode.OP_DEFINE_GLOBAL_LONG:
			name := vm.readName()
			v, err := vm.pop()
			if err != nil {
				return err
			}
			vm.globals[name] = v
		case bytecode.OP_SET_GLOBAL, bytecode.OP_SET_GLOBAL_LONG:
			name := vm.readName()
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError(ErrUndefinedVariable, "Undefined variable '%s'.", name.Chars)
			}
			v, err := vm.peek(0)
			if err != nil {
				return err
			}
			vm.globals[name] = v

		case bytecode.OP_EQUAL:
			b, err := vm.pop()
			if err != nil {
				return err
			}
			a, err := vm.pop()
			if err != nil {
				return err
			}
			if err := vm.push(value.Bool(value.Equal(a, b))); err != nil {
				return err
			}
		case bytecode.OP_GREATER, bytecode.OP_LESS,
			bytecode.OP_ADD, bytecode.OP_SUBTRACT, bytecode.OP_MULTIPLY, bytecode.OP_DIVIDE:
			if err := vm.binaryOp(op); err != nil {
				return err
			}
		case bytecode.OP_NOT:
			v, err := vm.pop()
			if err != nil {
				return err
			}
			if err := vm.push(value.Bool(value.Falsey(v))); err != nil {
				return err
			}
		case bytecode.OP_NEGATE:
			v, err := vm.peek(0)
			if err != nil {
				return err
			}
			if !v.IsNumber() {
				return vm.runtimeError(ErrOperandType, "Operand must be a number.")
			}
			vm.stack[vm.sp-1] = value.Number(-v.Num)

		case bytecode.OP_PRINT:
			v, err := vm.pop()
			if err != nil {
				return err
			}
			fmt.Fprintln(vm.out, v.String())

		case bytecode.OP_JUMP:
			vm.ip += vm.readJump()
		case bytecode.OP_JUMP_IF_FALSE:
			offset := vm.readJump()
			cond, err := vm.peek(0)
			if err != nil {
				return err
			}
			if value.Falsey(cond) {
				vm.ip += offset
			}
		case bytecode.OP_LOOP:
			vm.ip -= vm.readJump()

		case bytecode.OP_RETURN:
			return nil

		default:
			panic(fmt.Sprintf("vm: unknown opcode 0x%02X at %d", byte(op), vm.lastOp))
		}
	}
	return nil
}

// binaryOp applies a numeric operator to the two topmost values.
func (vm *VM) binaryOp(op bytecode.OpCode) error {
	b, err := vm.peek(0)
	if err != nil {
		return err
	}
	a, err := vm.peek(1)
	if err != nil {
		return err
	}
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError(ErrOperandType, "Operands must be numbers.")
	}
	var res value.Value
	switch op {
	case bytecode.OP_GREATER:
		res = value.Bool(a.Num > b.Num)
	case bytecode.OP_LESS:
		res = value.Bool(a.Num < b.Num)
	case bytecode.OP_ADD:
		res = value.Number(a.Num + b.Num)
	case bytecode.OP_SUBTRACT:
		res = value.Number(a.Num - b.Num)
	case bytecode.OP_MULTIPLY:
		res = value.Number(a.Num * b.Num)
	case bytecode.OP_DIVIDE:
		res = value.Number(a.Num / b.Num)
	}
	vm.sp--
	vm.stack[vm.sp] = value.Value{}
	vm.stack[vm.sp-1] = res
	return nil
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= len(vm.stack) {
		return vm.runtimeError(ErrStackOverflow, "Stack overflow.")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (value.Value, error) {
	if vm.sp == 0 {
		return value.Value{}, vm.runtimeError(ErrStackUnderflow, "Stack underflow.")
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = value.Value{}
	return v, nil
}

// peek returns the value distance slots below the top.
func (vm *VM) peek(distance int) (value.Value, error) {
	if distance >= vm.sp {
		return value.Value{}, vm.runtimeError(ErrStackUnderflow, "Stack underflow.")
	}
	return vm.stack[vm.sp-1-distance], nil
}

// readIndex decodes the index operand of the current instruction and moves
// ip past it. A truncated operand means the chunk is corrupt.
func (vm *VM) readIndex() int {
	index, next, err := bytecode.ReadIndex(vm.chunk.Code, vm.lastOp)
	if err != nil {
		panic(fmt.Sprintf("vm: %v", err))
	}
	vm.ip = next
	return index
}

func (vm *VM) readConstant() value.Value {
	index := vm.readIndex()
	if index >= len(vm.chunk.Constants) {
		panic(fmt.Sprintf("vm: constant %d out of range at %d", index, vm.lastOp))
	}
	return vm.chunk.Constants[index]
}

func (vm *VM) readName() *value.String {
	v := vm.readConstant()
	name, ok := v.AsString()
	if !ok {
		panic(fmt.Sprintf("vm: global name at %d is a %s", vm.lastOp, value.TypeName(v)))
	}
	return name
}

func (vm *VM) readJump() int {
	offset := bytecode.Jump(vm.chunk.Code, vm.ip)
	vm.ip += bytecode.OperandJump
	return offset
}
