package lox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xirelogy/go-lox/internal/compiler"
	"github.com/xirelogy/go-lox/internal/vm"
)

// ErrorKind classifies a compile error.
type ErrorKind = compiler.Kind

// Compile error kinds.
const (
	KindSyntax                     = compiler.KindSyntax
	KindRedeclaration              = compiler.KindRedeclaration
	KindInvalidAssignmentTarget    = compiler.KindInvalidAssignmentTarget
	KindImmutableReassignment      = compiler.KindImmutableReassignment
	KindUninitializedSelfReference = compiler.KindUninitializedSelfReference
	KindTooManyLocals              = compiler.KindTooManyLocals
	KindConstantPoolOverflow       = compiler.KindConstantPoolOverflow
	KindJumpTooFar                 = compiler.KindJumpTooFar
)

// Diagnostic is a single compile error with its source position.
type Diagnostic struct {
	Kind    ErrorKind
	Line    int
	Column  int
	Where   string
	Message string
}

func (d Diagnostic) String() string {
	if d.Where == "" {
		return fmt.Sprintf("[line %d:%d] Error: %s", d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("[line %d:%d] Error %s: %s", d.Line, d.Column, d.Where, d.Message)
}

// CompileError reports every error found while compiling a program.
type CompileError struct {
	Program     string
	Diagnostics []Diagnostic

	list compiler.ErrorList
}

func newCompileError(name string, list compiler.ErrorList) *CompileError {
	diags := make([]Diagnostic, len(list))
	for i, e := range list {
		diags[i] = Diagnostic{
			Kind:    e.Kind,
			Line:    e.Line,
			Column:  e.Column,
			Where:   e.Where,
			Message: e.Message,
		}
	}
	return &CompileError{Program: name, Diagnostics: diags, list: list}
}

func (e *CompileError) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Kinds lists the kind of each diagnostic in order.
func (e *CompileError) Kinds() []ErrorKind {
	return e.list.Kinds()
}

// Unwrap exposes the individual compiler errors.
func (e *CompileError) Unwrap() []error {
	return e.list.Unwrap()
}

// RuntimeError carries source information for failures during execution.
type RuntimeError struct {
	Message string
	Program string
	Line    int // 0 when unknown
	Cause   error
}

func (e *RuntimeError) Error() string {
	switch {
	case e.Program != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Program, e.Line, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	case e.Program != "":
		return fmt.Sprintf("%s: %s", e.Program, e.Message)
	}
	return e.Message
}

// Unwrap exposes the sentinel cause, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// Runtime error causes, matched with errors.Is.
var (
	ErrStackOverflow     = vm.ErrStackOverflow
	ErrStackUnderflow    = vm.ErrStackUnderflow
	ErrUndefinedVariable = vm.ErrUndefinedVariable
	ErrOperandType       = vm.ErrOperandType
	ErrInstructionLimit  = vm.ErrInstructionLimit
)

func convertRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		return &RuntimeError{
			Message: rerr.Message,
			Program: rerr.Chunk,
			Line:    rerr.Line,
			Cause:   rerr.Cause,
		}
	}
	return err
}

// TraceInfo describes one instruction dispatch.
type TraceInfo struct {
	Op         string
	Chunk      string
	Line       int
	IP         int
	StackDepth int
}

// TraceHook observes instruction dispatch.
type TraceHook func(TraceInfo)
