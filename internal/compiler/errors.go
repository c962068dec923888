package compiler

import (
	"fmt"
	"strings"
)

// Kind classifies a compile error.
type Kind int

const (
	KindSyntax Kind = iota
	KindRedeclaration
	KindInvalidAssignmentTarget
	KindImmutableReassignment
	KindUninitializedSelfReference
	KindTooManyLocals
	KindConstantPoolOverflow
	KindJumpTooFar
)

var kindNames = [...]string{
	KindSyntax:                     "syntax",
	KindRedeclaration:              "redeclaration",
	KindInvalidAssignmentTarget:    "invalid-assignment-target",
	KindImmutableReassignment:      "immutable-reassignment",
	KindUninitializedSelfReference: "uninitialized-self-reference",
	KindTooManyLocals:              "too-many-locals",
	KindConstantPoolOverflow:       "constant-pool-overflow",
	KindJumpTooFar:                 "jump-too-far",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind name as printed by String back to the Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown compile error kind %q", s)
}

// Error is a single compile diagnostic.
type Error struct {
	Kind    Kind
	Line    int
	Column  int
	Where   string // "at 'x'", "at end", or empty for lexical errors
	Message string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[line %d:%d] Error", e.Line, e.Column)
	if e.Where != "" {
		b.WriteString(" ")
		b.WriteString(e.Where)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// ErrorList is returned by Compile when at least one error was recorded.
// Errors appear in the order they were found.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Kinds lists the kind of every error in order.
func (l ErrorList) Kinds() []Kind {
	kinds := make([]Kind, len(l))
	for i, e := range l {
		kinds[i] = e.Kind
	}
	return kinds
}

// Reporter is called for every error as soon as it is recorded.
type Reporter func(err *Error)
