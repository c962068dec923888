package conformance

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	lox "github.com/xirelogy/go-lox"
	"github.com/xirelogy/go-lox/internal/value"
)

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Runner executes conformance tests, each on a fresh interpreter
type Runner struct {
	base *lox.Config
}

// NewRunner creates a runner using the default configuration
func NewRunner() *Runner {
	cfg := lox.DefaultConfig()
	cfg.Diagnostics.Color = "never"
	return &Runner{base: cfg}
}

// RunAll executes every loaded test in order
func (r *Runner) RunAll(tests []LoadedTest) []TestResult {
	results := make([]TestResult, 0, len(tests))
	for _, test := range tests {
		results = append(results, r.Run(test))
	}
	return results
}

// Run executes a single test
func (r *Runner) Run(test LoadedTest) TestResult {
	result := TestResult{Test: test}
	if skip, reason := test.Test.IsSkipped(); skip {
		result.Skipped = true
		result.SkipReason = reason
		return result
	}
	result.Error = r.run(test)
	result.Passed = result.Error == nil
	return result
}

func (r *Runner) run(test LoadedTest) error {
	cfg := *r.base
	if s := test.Test.VM; s != nil {
		if s.StackSize > 0 {
			cfg.VM.StackSize = s.StackSize
		}
		cfg.VM.InstructionLimit = s.InstructionLimit
	}

	var stdout, stderr bytes.Buffer
	in := lox.New(lox.WithConfig(&cfg), lox.WithStdout(&stdout), lox.WithStderr(&stderr))

	if test.Suite.Setup != "" {
		if _, err := in.Interpret(test.Suite.Name+"/setup", test.Suite.Setup); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
		stdout.Reset()
	}

	_, err := in.Interpret(test.Test.Name, test.Test.Source)
	expect := test.Test.Expect

	if err := checkCompileErrors(expect.CompileErrors, err); err != nil {
		return err
	}
	if err := checkRuntimeError(expect.RuntimeError, err); err != nil {
		return err
	}
	if len(expect.CompileErrors) == 0 && expect.RuntimeError == nil && err != nil {
		return fmt.Errorf("unexpected error: %v", err)
	}
	if expect.Output != nil && stdout.String() != *expect.Output {
		return fmt.Errorf("output mismatch\n got: %q\nwant: %q", stdout.String(), *expect.Output)
	}
	for name, want := range expect.Globals {
		got, ok := in.Global(name)
		if !ok {
			return fmt.Errorf("global %s not defined", name)
		}
		if s := formatGlobal(got); s != want {
			return fmt.Errorf("global %s = %s, want %s", name, s, want)
		}
	}
	return nil
}

func checkCompileErrors(want []CompileExpect, err error) error {
	var cerr *lox.CompileError
	isCompile := errors.As(err, &cerr)
	if len(want) == 0 {
		if isCompile {
			return fmt.Errorf("unexpected compile error:\n%v", err)
		}
		return nil
	}
	if !isCompile {
		return fmt.Errorf("expected compile errors, got %v", err)
	}
	if len(cerr.Diagnostics) != len(want) {
		return fmt.Errorf("got %d compile errors, want %d:\n%v", len(cerr.Diagnostics), len(want), err)
	}
	for i, w := range want {
		d := cerr.Diagnostics[i]
		if d.Kind.String() != w.Kind {
			return fmt.Errorf("error %d: kind %s, want %s", i, d.Kind, w.Kind)
		}
		if w.Line != 0 && d.Line != w.Line {
			return fmt.Errorf("error %d: line %d, want %d", i, d.Line, w.Line)
		}
		if w.Message != "" && d.Message != w.Message {
			return fmt.Errorf("error %d: message %q, want %q", i, d.Message, w.Message)
		}
	}
	return nil
}

func checkRuntimeError(want *RuntimeExpect, err error) error {
	var rerr *lox.RuntimeError
	isRuntime := errors.As(err, &rerr)
	if want == nil {
		if isRuntime {
			return fmt.Errorf("unexpected runtime error: %v", err)
		}
		return nil
	}
	if !isRuntime {
		return fmt.Errorf("expected runtime error %q, got %v", want.Message, err)
	}
	if rerr.Message != want.Message {
		return fmt.Errorf("runtime error %q, want %q", rerr.Message, want.Message)
	}
	if want.Line != 0 && rerr.Line != want.Line {
		return fmt.Errorf("runtime error on line %d, want %d", rerr.Line, want.Line)
	}
	return nil
}

// formatGlobal prints a host value the way the print statement would.
func formatGlobal(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case float64:
		return value.FormatNumber(x)
	}
	return fmt.Sprint(v)
}

// Stats summarises a run
type Stats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats counts results by outcome
func ComputeStats(results []TestResult) Stats {
	s := Stats{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Passed:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

// FormatStats renders stats for a test log
func FormatStats(s Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total:   %d\n", s.Total)
	fmt.Fprintf(&b, "Passed:  %d\n", s.Passed)
	fmt.Fprintf(&b, "Failed:  %d\n", s.Failed)
	fmt.Fprintf(&b, "Skipped: %d\n", s.Skipped)
	return b.String()
}
