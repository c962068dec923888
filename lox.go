// Package lox embeds the Lox bytecode compiler and virtual machine.
//
// An Interpreter owns one VM session: globals defined by one program stay
// visible to the programs run after it.
package lox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/compiler"
	"github.com/xirelogy/go-lox/internal/config"
	"github.com/xirelogy/go-lox/internal/diagnostic"
	"github.com/xirelogy/go-lox/internal/value"
	"github.com/xirelogy/go-lox/internal/vm"
)

var log = commonlog.GetLogger("lox")

// Config is the lox.toml configuration.
type Config = config.Config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a lox.toml file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// FindConfig walks up from dir looking for lox.toml, falling back to defaults.
func FindConfig(dir string) (*Config, error) {
	return config.FindAndLoad(dir)
}

// Result summarises the outcome of Interpret.
type Result int

const (
	ResultOK Result = iota
	ResultCompileError
	ResultRuntimeError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithConfig applies a loaded configuration.
func WithConfig(c *Config) Option {
	return func(in *Interpreter) {
		if c != nil {
			in.cfg = c
		}
	}
}

// WithStdout directs print output and disassembly listings to w.
func WithStdout(w io.Writer) Option {
	return func(in *Interpreter) {
		in.stdout = w
	}
}

// WithStderr directs diagnostics and traces to w.
func WithStderr(w io.Writer) Option {
	return func(in *Interpreter) {
		in.stderr = w
	}
}

// WithTraceHook attaches a debug hook that observes instruction dispatch.
func WithTraceHook(h TraceHook) Option {
	return func(in *Interpreter) {
		in.hook = h
	}
}

// Interpreter compiles and runs Lox programs against one global environment.
type Interpreter struct {
	cfg     *Config
	stdout  io.Writer
	stderr  io.Writer
	hook    TraceHook
	strings *value.Interner
	core    *vm.VM
	color   bool

	// finals holds the globals bound with val so far in this session.
	finals map[string]bool

	mu   sync.Mutex
	busy bool
}

// New constructs an interpreter. Without WithConfig the defaults apply.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		cfg:    config.Default(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.cfg.Log.Verbosity != 0 {
		ConfigureLogging(in.cfg.Log.Verbosity)
	}

	f, _ := in.stderr.(*os.File)
	in.color = diagnostic.ColorEnabled(in.cfg.Diagnostics.Color, f)

	in.strings = value.NewInterner()
	in.finals = make(map[string]bool)
	vmOpts := []vm.Option{
		vm.WithStackSize(in.cfg.VM.StackSize),
		vm.WithInstructionLimit(in.cfg.VM.InstructionLimit),
		vm.WithOutput(in.stdout),
	}
	if in.cfg.VM.Trace {
		vmOpts = append(vmOpts, vm.WithTrace(in.stderr))
	}
	if in.hook != nil {
		hook := in.hook
		vmOpts = append(vmOpts, vm.WithTraceHook(func(info vm.TraceInfo) {
			hook(TraceInfo{
				Op:         info.Op.String(),
				Chunk:      info.Chunk,
				Line:       info.Line,
				IP:         info.IP,
				StackDepth: info.StackDepth,
			})
		}))
	}
	in.core = vm.New(in.strings, vmOpts...)
	log.Debugf("interpreter ready (stack=%d, trace=%t)", in.cfg.VM.StackSize, in.cfg.VM.Trace)
	return in
}

// Compile translates source into a Program without running it. name labels
// the program in listings and runtime errors. A failed compile returns a
// *CompileError. A global declared with val by an earlier program of the
// session stays final: assigning to it is a compile error.
func (in *Interpreter) Compile(name, source string) (*Program, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	opts := compiler.Options{Name: name, Finals: in.finals}
	if in.cfg.Compiler.PrintCode {
		opts.Disassemble = in.stdout
	}
	chunk, err := compiler.Compile(source, in.strings, opts)
	if err != nil {
		var list compiler.ErrorList
		if errors.As(err, &list) {
			return nil, newCompileError(name, list)
		}
		return nil, err
	}
	return &Program{name: name, source: source, chunk: chunk}, nil
}

// Run executes a compiled program. Runtime failures are *RuntimeError.
func (in *Interpreter) Run(p *Program) error {
	if p == nil || p.chunk == nil {
		return errors.New("nil program")
	}
	if err := in.acquire(); err != nil {
		return err
	}
	defer in.release()
	return convertRuntimeError(in.core.Run(p.chunk))
}

// Interpret compiles and runs source, printing diagnostics to the
// configured stderr. A program that fails to compile is never run.
func (in *Interpreter) Interpret(name, source string) (Result, error) {
	printer := &diagnostic.Printer{
		W:       in.stderr,
		Source:  source,
		Color:   in.color,
		Context: in.cfg.Diagnostics.ContextLines,
	}
	p, err := in.Compile(name, source)
	if err != nil {
		var cerr *CompileError
		if errors.As(err, &cerr) {
			printer.PrintAll(cerr.list)
		}
		return ResultCompileError, err
	}
	if err := in.Run(p); err != nil {
		var rerr *RuntimeError
		if errors.As(err, &rerr) {
			printer.PrintRuntime(rerr.Message, rerr.Line)
		}
		return ResultRuntimeError, err
	}
	return ResultOK, nil
}

// RunFuture represents an in-flight program run.
type RunFuture struct {
	ch <-chan error
}

// Await waits for completion or context cancellation.
func (f RunFuture) Await(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-f.ch:
		return err
	}
}

// RunAsync executes p on a separate goroutine. Only one run may be in
// flight per interpreter; a second one fails with a busy error.
func (in *Interpreter) RunAsync(ctx context.Context, p *Program) RunFuture {
	ch := make(chan error, 1)
	if p == nil || p.chunk == nil {
		ch <- errors.New("nil program")
		close(ch)
		return RunFuture{ch: ch}
	}
	if err := in.acquire(); err != nil {
		ch <- err
		close(ch)
		return RunFuture{ch: ch}
	}

	go func() {
		defer close(ch)
		ch <- in.runAcquired(ctx, p)
	}()
	return RunFuture{ch: ch}
}

// runAcquired runs p and releases the interpreter before returning.
func (in *Interpreter) runAcquired(ctx context.Context, p *Program) error {
	defer in.release()
	if err := ctx.Err(); err != nil {
		return err
	}
	return convertRuntimeError(in.core.Run(p.chunk))
}

func (in *Interpreter) acquire() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.busy {
		return errors.New("interpreter is busy; concurrent runs not allowed")
	}
	in.busy = true
	return nil
}

func (in *Interpreter) release() {
	in.mu.Lock()
	in.busy = false
	in.mu.Unlock()
}

// LoadProgram decodes a program produced by Program.MarshalBinary. The
// bytecode is verified before it is accepted.
func (in *Interpreter) LoadProgram(data []byte) (*Program, error) {
	chunk, err := bytecode.UnmarshalChunk(data, in.strings)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	return &Program{name: chunk.Name, chunk: chunk}, nil
}

// Global returns a global as a Go value: nil, bool, float64 or string.
// It must not be called while a run is in flight.
func (in *Interpreter) Global(name string) (any, bool) {
	v, ok := in.core.Global(name)
	if !ok {
		return nil, false
	}
	return toGo(v), true
}

// SetGlobal binds a Go value (nil, bool, any number type or string) to a
// global. It fails while a run is in flight.
func (in *Interpreter) SetGlobal(name string, val any) error {
	if err := in.acquire(); err != nil {
		return err
	}
	defer in.release()
	v, err := fromGo(in.strings, val)
	if err != nil {
		return err
	}
	in.core.DefineGlobal(name, v)
	return nil
}

// Globals lists the defined global names in sorted order. It must not be
// called while a run is in flight.
func (in *Interpreter) Globals() []string {
	return in.core.GlobalNames()
}
