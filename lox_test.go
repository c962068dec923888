package lox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/xirelogy/go-lox/internal/bytecode"
)

func newTestInterpreter(t *testing.T, opts ...Option) (*Interpreter, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cfg := DefaultConfig()
	cfg.Diagnostics.Color = "never"
	in := New(append([]Option{WithConfig(cfg), WithStdout(&stdout), WithStderr(&stderr)}, opts...)...)
	return in, &stdout, &stderr
}

func TestInterpretSum(t *testing.T) {
	in, stdout, _ := newTestInterpreter(t)
	res, err := in.Interpret("sum", "var a = 1; var b = 2; print a + b;")
	if err != nil || res != ResultOK {
		t.Fatalf("Interpret = %v, %v", res, err)
	}
	if stdout.String() != "3\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestInterpretImmutableReassignment(t *testing.T) {
	in, stdout, stderr := newTestInterpreter(t)
	res, err := in.Interpret("final", "print 0; val a = 1; a = 2;")
	if res != ResultCompileError {
		t.Fatalf("result = %v", res)
	}
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompileError, got %v", err)
	}
	if kinds := cerr.Kinds(); len(kinds) != 1 || kinds[0] != KindImmutableReassignment {
		t.Fatalf("kinds = %v", kinds)
	}
	if stdout.Len() != 0 {
		t.Fatalf("program executed: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Can't reassign final variable.") {
		t.Fatalf("stderr = %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "    1 | print 0; val a = 1; a = 2;") {
		t.Fatalf("missing excerpt:\n%s", stderr.String())
	}
	if _, ok := in.Global("a"); ok {
		t.Fatalf("global defined by a program that failed to compile")
	}
}

func TestInterpretEquality(t *testing.T) {
	in, stdout, _ := newTestInterpreter(t)
	if _, err := in.Interpret("eq", "print 1 == 1; print 1 == 2;"); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "true\nfalse\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestInterpretManyConstants(t *testing.T) {
	var src, want strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&src, "print %d.5;\n", i)
		fmt.Fprintf(&want, "%d.5\n", i)
	}
	in, stdout, _ := newTestInterpreter(t)
	if _, err := in.Interpret("many", src.String()); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != want.String() {
		t.Fatalf("output mismatch")
	}
}

func TestInterpretRuntimeError(t *testing.T) {
	in, stdout, stderr := newTestInterpreter(t)
	res, err := in.Interpret("rt", "print 1;\nprint -true;\nprint 2;")
	if res != ResultRuntimeError {
		t.Fatalf("result = %v", res)
	}
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if rerr.Line != 2 || rerr.Program != "rt" || !errors.Is(err, ErrOperandType) {
		t.Fatalf("runtime error = %+v", rerr)
	}
	if err.Error() != "rt:2: Operand must be a number." {
		t.Fatalf("error = %q", err.Error())
	}
	if stdout.String() != "1\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	want := "Operand must be a number.\n[line 2] in script\n"
	if !strings.HasPrefix(stderr.String(), want) {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestGlobalsPersistAcrossPrograms(t *testing.T) {
	in, stdout, _ := newTestInterpreter(t)
	for _, src := range []string{`var name = "lox";`, `var n = 2; var on = true;`, "print name;"} {
		if _, err := in.Interpret("session", src); err != nil {
			t.Fatalf("%q: %v", src, err)
		}
	}
	if stdout.String() != "lox\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if v, ok := in.Global("name"); !ok || v != "lox" {
		t.Fatalf("name = %v, %v", v, ok)
	}
	if v, ok := in.Global("n"); !ok || v != 2.0 {
		t.Fatalf("n = %v, %v", v, ok)
	}
	if v, ok := in.Global("on"); !ok || v != true {
		t.Fatalf("on = %v, %v", v, ok)
	}
	if got := strings.Join(in.Globals(), ","); got != "n,name,on" {
		t.Fatalf("globals = %s", got)
	}
}

func TestSetGlobal(t *testing.T) {
	in, stdout, _ := newTestInterpreter(t)
	if err := in.SetGlobal("limit", 40); err != nil {
		t.Fatal(err)
	}
	if err := in.SetGlobal("bad", []int{1}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if _, err := in.Interpret("host", "print limit + 2;"); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "42\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestProgramRoundTrip(t *testing.T) {
	in, _, _ := newTestInterpreter(t)
	p, err := in.Compile("saved", `var greeting = "hi"; { var a = 1; print a + 1; } print greeting;`)
	if err != nil {
		t.Fatal(err)
	}
	data, err := p.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	other, stdout, _ := newTestInterpreter(t)
	loaded, err := other.LoadProgram(data)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name() != "saved" || loaded.Size() != p.Size() {
		t.Fatalf("loaded %q (%d bytes), want %q (%d bytes)", loaded.Name(), loaded.Size(), p.Name(), p.Size())
	}
	if err := other.Run(loaded); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "2\nhi\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if _, err := other.LoadProgram([]byte("not cbor")); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestLoadProgramRejectsJumpIntoOperand(t *testing.T) {
	c := bytecode.NewChunk("bad")
	c.WriteOp(bytecode.OP_JUMP, 1)
	c.Write(0, 1)
	c.Write(1, 1)
	c.WriteOp(bytecode.OP_GET_LOCAL, 1)
	c.Write(0xC8, 1)
	c.WriteOp(bytecode.OP_RETURN, 1)
	data, err := bytecode.MarshalChunk(c)
	if err != nil {
		t.Fatal(err)
	}

	in, _, _ := newTestInterpreter(t)
	if _, err := in.LoadProgram(data); err == nil || !strings.Contains(err.Error(), "inside an instruction") {
		t.Fatalf("expected verification error, got %v", err)
	}
}

func TestFinalGlobalAcrossPrograms(t *testing.T) {
	in, stdout, _ := newTestInterpreter(t)
	if _, err := in.Interpret("a", "val a = 1;"); err != nil {
		t.Fatal(err)
	}
	res, err := in.Interpret("b", "a = 2; print a;")
	if res != ResultCompileError {
		t.Fatalf("result = %v, err = %v", res, err)
	}
	var cerr *CompileError
	if !errors.As(err, &cerr) || len(cerr.Diagnostics) != 1 || cerr.Diagnostics[0].Kind != KindImmutableReassignment {
		t.Fatalf("expected immutable reassignment, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("program ran: %q", stdout.String())
	}
	if v, _ := in.Global("a"); v != 1.0 {
		t.Fatalf("a = %v", v)
	}

	// A failed program does not make its val declarations final.
	if _, err := in.Interpret("c", "val b = 1; print ;"); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := in.Interpret("d", "var b = 1; b = 2; var a = 5; a = 6; print a + b;"); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "8\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestPrintCodeConfig(t *testing.T) {
	var stdout bytes.Buffer
	cfg := DefaultConfig()
	cfg.Compiler.PrintCode = true
	in := New(WithConfig(cfg), WithStdout(&stdout), WithStderr(&bytes.Buffer{}))
	if _, err := in.Interpret("listing", "print 1;"); err != nil {
		t.Fatal(err)
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "== listing") || !strings.Contains(out, "OP_PRINT") || !strings.HasSuffix(out, "1\n") {
		t.Fatalf("stdout:\n%s", out)
	}
}

func TestTraceHook(t *testing.T) {
	var ops []string
	in, _, _ := newTestInterpreter(t, WithTraceHook(func(info TraceInfo) {
		ops = append(ops, info.Op)
	}))
	if _, err := in.Interpret("hook", "print 1;"); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(ops, " "); got != "OP_CONSTANT OP_PRINT OP_RETURN" {
		t.Fatalf("ops = %s", got)
	}
}

func TestInstructionLimitConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Diagnostics.Color = "never"
	cfg.VM.InstructionLimit = 100
	in := New(WithConfig(cfg), WithStdout(&bytes.Buffer{}), WithStderr(&bytes.Buffer{}))
	_, err := in.Interpret("spin", "while (true) {}")
	if !errors.Is(err, ErrInstructionLimit) {
		t.Fatalf("expected instruction limit, got %v", err)
	}
}

func TestRunAsync(t *testing.T) {
	in, stdout, _ := newTestInterpreter(t)
	p, err := in.Compile("async", "var i = 0; while (i < 10) i = i + 1; print i;")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := in.RunAsync(ctx, p).Await(ctx); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "10\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunAsyncBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once bool
	in, _, _ := newTestInterpreter(t, WithTraceHook(func(TraceInfo) {
		if !once {
			once = true
			close(started)
			<-release
		}
	}))
	p, err := in.Compile("busy", "print 1;")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	first := in.RunAsync(ctx, p)
	<-started

	if err := in.Run(p); err == nil || !strings.Contains(err.Error(), "busy") {
		t.Fatalf("expected busy error, got %v", err)
	}
	if err := in.RunAsync(ctx, p).Await(ctx); err == nil {
		t.Fatalf("expected busy error from second async run")
	}

	if err := in.SetGlobal("x", 1); err == nil || !strings.Contains(err.Error(), "busy") {
		t.Fatalf("expected busy error from SetGlobal, got %v", err)
	}

	close(release)
	if err := first.Await(ctx); err != nil {
		t.Fatal(err)
	}
	if err := in.Run(p); err != nil {
		t.Fatalf("run after release: %v", err)
	}
}

func TestRunAsyncCancelledBeforeStart(t *testing.T) {
	in, stdout, _ := newTestInterpreter(t)
	p, err := in.Compile("cancel", "print 1;")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := in.RunAsync(ctx, p).Await(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("cancelled program ran")
	}
}

func TestResultString(t *testing.T) {
	if ResultOK.String() != "ok" || ResultCompileError.String() != "compile error" || ResultRuntimeError.String() != "runtime error" {
		t.Fatalf("unexpected names")
	}
}
