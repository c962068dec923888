package vm_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/compiler"
	"github.com/xirelogy/go-lox/internal/value"
	"github.com/xirelogy/go-lox/internal/vm"
)

// run compiles src and executes it on a fresh VM, returning printed output.
func run(t *testing.T, src string, opts ...vm.Option) (string, *vm.VM, error) {
	t.Helper()
	strs := value.NewInterner()
	chunk, err := compiler.Compile(src, strs, compiler.Options{Name: "test"})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	var out bytes.Buffer
	machine := vm.New(strs, append([]vm.Option{vm.WithOutput(&out)}, opts...)...)
	err = machine.Run(chunk)
	return out.String(), machine, err
}

func mustRun(t *testing.T, src string) string {
	t.Helper()
	out, _, err := run(t, src)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return out
}

func TestVMPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"sum of globals", "var a = 1; var b = 2; print a + b;", "3\n"},
		{"equality true", "print 1 == 1;", "true\n"},
		{"equality false", "print 1 == 2;", "false\n"},
		{"arithmetic", "print (1 + 2) * 3 - 4 / 2;", "7\n"},
		{"negate", "print -(3);", "-3\n"},
		{"comparisons", "print 1 < 2; print 2 <= 1; print 3 > 2; print 3 >= 4; print 1 != 2;", "true\nfalse\ntrue\nfalse\ntrue\n"},
		{"not", "print !nil; print !0;", "true\nfalse\n"},
		{"strings", `var s = "hi"; print s; print s == "hi";`, "hi\ntrue\n"},
		{"nil default", "var a; print a;", "nil\n"},
		{"fractions", "print 1 / 4;", "0.25\n"},
		{"if else takes else", "if (false) { print 1; } else { print 2; }", "2\n"},
		{"if without else", "if (true) print 1; print 3;", "1\n3\n"},
		{"while false runs zero times", "while (false) print 1; print 2;", "2\n"},
		{"while counts", "var i = 0; while (i < 3) { print i; i = i + 1; }", "0\n1\n2\n"},
		{"and short circuits", "var x = 0; false and (x = 1); print x;", "0\n"},
		{"or short circuits", "var x = 0; true or (x = 1); print x;", "0\n"},
		{"and evaluates right", "print true and 2;", "2\n"},
		{"or evaluates right", "print nil or 3;", "3\n"},
		{"locals and shadowing", "var a = 1; { var a = 2; { var a = 3; print a; } print a; } print a;", "3\n2\n1\n"},
		{"local assignment", "{ var a = 1; a = a + 1; print a; }", "2\n"},
		{"global reassignment", "var a = 1; a = 5; print a;", "5\n"},
		{"assignment is an expression", "var a; var b; a = b = 4; print a; print b;", "4\n4\n"},
		{"block pops locals", "{ var a = 1; var b = 2; } var c = 3; print c;", "3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustRun(t, tt.src); got != tt.want {
				t.Fatalf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVMLongConstants(t *testing.T) {
	var b strings.Builder
	var want strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&b, "print %d;\n", i)
		fmt.Fprintf(&want, "%d\n", i)
	}
	b.WriteString("var g = 7; g = g + 1; print g;\n")
	want.WriteString("8\n")
	if got := mustRun(t, b.String()); got != want.String() {
		t.Fatalf("long constant output mismatch")
	}
}

func TestVMRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		msg   string
		cause error
		line  int
	}{
		{"negate string", "print -\"a\";", "Operand must be a number.", vm.ErrOperandType, 1},
		{"add bool", "var a = 1;\nprint a + true;", "Operands must be numbers.", vm.ErrOperandType, 2},
		{"compare nil", "print nil < 1;", "Operands must be numbers.", vm.ErrOperandType, 1},
		{"undefined read", "print x;", "Undefined variable 'x'.", vm.ErrUndefinedVariable, 1},
		{"undefined write", "\n\ny = 1;", "Undefined variable 'y'.", vm.ErrUndefinedVariable, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.src)
			var rerr *vm.RuntimeError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected RuntimeError, got %v", err)
			}
			if rerr.Message != tt.msg {
				t.Fatalf("message = %q, want %q", rerr.Message, tt.msg)
			}
			if !errors.Is(err, tt.cause) {
				t.Fatalf("cause = %v, want %v", rerr.Cause, tt.cause)
			}
			if rerr.Line != tt.line {
				t.Fatalf("line = %d, want %d", rerr.Line, tt.line)
			}
		})
	}
}

func TestVMRuntimeErrorHaltsExecution(t *testing.T) {
	out, _, err := run(t, "print 1; print -nil; print 2;")
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	if out != "1\n" {
		t.Fatalf("output = %q, want only the first print", out)
	}
	if got := err.Error(); got != "test:1: Operand must be a number." {
		t.Fatalf("error = %q", got)
	}
}

func TestVMStackOverflow(t *testing.T) {
	_, _, err := run(t, "print 1 + (2 + (3 + 4));", vm.WithStackSize(3))
	if !errors.Is(err, vm.ErrStackOverflow) {
		t.Fatalf("expected stack overflow, got %v", err)
	}
	if _, _, err := run(t, "print 1 + (2 + (3 + 4));", vm.WithStackSize(4)); err != nil {
		t.Fatalf("four slots should suffice: %v", err)
	}
}

func TestVMStackUnderflow(t *testing.T) {
	c := bytecode.NewChunk("bad")
	c.WriteOp(bytecode.OP_POP, 1)
	err := vm.New(value.NewInterner()).Run(c)
	if !errors.Is(err, vm.ErrStackUnderflow) {
		t.Fatalf("expected stack underflow, got %v", err)
	}
}

func TestVMUnknownOpcodePanics(t *testing.T) {
	c := bytecode.NewChunk("bad")
	c.Write(0xee, 1)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on unknown opcode")
		}
	}()
	vm.New(value.NewInterner()).Run(c)
}

func TestVMLongLocalOperands(t *testing.T) {
	strs := value.NewInterner()
	c := bytecode.NewChunk("locals")
	c.WriteConstant(value.Number(41), 1)
	c.WriteOp(bytecode.OP_GET_LOCAL_LONG, 1)
	for _, b := range bytecode.AppendIndex(nil, bytecode.OP_GET_LOCAL_LONG, 0) {
		c.Write(b, 1)
	}
	c.WriteConstant(value.Number(1), 1)
	c.WriteOp(bytecode.OP_ADD, 1)
	c.WriteOp(bytecode.OP_SET_LOCAL_LONG, 1)
	for _, b := range bytecode.AppendIndex(nil, bytecode.OP_SET_LOCAL_LONG, 0) {
		c.Write(b, 1)
	}
	c.WriteOp(bytecode.OP_POP, 1)
	c.WriteOp(bytecode.OP_PRINT, 1)
	c.WriteOp(bytecode.OP_RETURN, 1)
	if err := bytecode.Verify(c); err != nil {
		t.Fatalf("verify: %v", err)
	}

	var out bytes.Buffer
	if err := vm.New(strs, vm.WithOutput(&out)).Run(c); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "42\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestVMGlobalsPersistAcrossRuns(t *testing.T) {
	strs := value.NewInterner()
	var out bytes.Buffer
	machine := vm.New(strs, vm.WithOutput(&out))
	for _, src := range []string{"var a = 1;", "a = a + 1;", "print a;"} {
		chunk, err := compiler.Compile(src, strs, compiler.Options{})
		if err != nil {
			t.Fatalf("compile %q: %v", src, err)
		}
		if err := machine.Run(chunk); err != nil {
			t.Fatalf("run %q: %v", src, err)
		}
	}
	if out.String() != "2\n" {
		t.Fatalf("output = %q", out.String())
	}
	v, ok := machine.Global("a")
	if !ok || v.Num != 2 {
		t.Fatalf("global a = %v, %v", v, ok)
	}
	if _, ok := machine.Global("missing"); ok {
		t.Fatalf("unexpected global")
	}
	if len(machine.Stack()) != 0 {
		t.Fatalf("stack not empty after run: %v", machine.Stack())
	}
}

func TestVMDefineGlobalFromHost(t *testing.T) {
	strs := value.NewInterner()
	chunk, err := compiler.Compile("print greeting;", strs, compiler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	machine := vm.New(strs, vm.WithOutput(&out))
	machine.DefineGlobal("greeting", strs.StringValue("hello"))
	if err := machine.Run(chunk); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hello\n" {
		t.Fatalf("output = %q", out.String())
	}
	if names := machine.GlobalNames(); len(names) != 1 || names[0] != "greeting" {
		t.Fatalf("globals = %v", names)
	}
}

func TestVMTrace(t *testing.T) {
	var trace bytes.Buffer
	var seen []bytecode.OpCode
	hook := func(info vm.TraceInfo) { seen = append(seen, info.Op) }
	if _, _, err := run(t, "print 1 + 2;", vm.WithTrace(&trace), vm.WithTraceHook(hook)); err != nil {
		t.Fatal(err)
	}
	out := trace.String()
	for _, want := range []string{"OP_CONSTANT", "[ 1 ][ 2 ]", "OP_ADD", "[ 3 ]", "OP_RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
	want := []bytecode.OpCode{
		bytecode.OP_CONSTANT, bytecode.OP_CONSTANT, bytecode.OP_ADD,
		bytecode.OP_PRINT, bytecode.OP_RETURN,
	}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Fatalf("hook saw %v, want %v", seen, want)
	}
}

func TestVMDisassemble(t *testing.T) {
	_, machine, err := run(t, "print 1;")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := machine.Disassemble(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "OP_PRINT") {
		t.Fatalf("disassembly:\n%s", buf.String())
	}
	if err := vm.New(nil).Disassemble(&buf); err == nil {
		t.Fatalf("expected error without a chunk")
	}
}

func TestVMInstructionLimit(t *testing.T) {
	_, _, err := run(t, "while (true) {}", vm.WithInstructionLimit(50))
	if !errors.Is(err, vm.ErrInstructionLimit) {
		t.Fatalf("expected instruction limit error, got %v", err)
	}
	if _, _, err := run(t, "var i = 0; while (i < 3) i = i + 1;", vm.WithInstructionLimit(1000)); err != nil {
		t.Fatalf("short loop hit the limit: %v", err)
	}
}
