package lox

import (
	"errors"
	"fmt"
	"io"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/value"
)

// Program is a compiled chunk ready to run on the interpreter that produced
// or loaded it.
type Program struct {
	name   string
	source string
	chunk  *bytecode.Chunk
}

// Name returns the label given at compile time.
func (p *Program) Name() string { return p.name }

// Source returns the program text. Loaded programs have none.
func (p *Program) Source() string { return p.source }

// Size is the length of the bytecode in bytes.
func (p *Program) Size() int { return p.chunk.Len() }

// Disassemble writes a listing of the program's bytecode to w.
func (p *Program) Disassemble(w io.Writer) error {
	if w == nil {
		return errors.New("nil writer")
	}
	return bytecode.NewDisassembler(w).DisassembleChunk(p.chunk)
}

// MarshalBinary encodes the program as CBOR.
func (p *Program) MarshalBinary() ([]byte, error) {
	return bytecode.MarshalChunk(p.chunk)
}

func toGo(v value.Value) any {
	switch v.Kind {
	case value.KindBool:
		return v.B
	case value.KindNumber:
		return v.Num
	case value.KindObject:
		if s, ok := v.AsString(); ok {
			return s.Chars
		}
		return v.String()
	}
	return nil
}

func fromGo(strings *value.Interner, val any) (value.Value, error) {
	switch x := val.(type) {
	case nil:
		return value.Nil(), nil
	case bool:
		return value.Bool(x), nil
	case float64:
		return value.Number(x), nil
	case float32:
		return value.Number(float64(x)), nil
	case int:
		return value.Number(float64(x)), nil
	case int32:
		return value.Number(float64(x)), nil
	case int64:
		return value.Number(float64(x)), nil
	case uint:
		return value.Number(float64(x)), nil
	case uint32:
		return value.Number(float64(x)), nil
	case uint64:
		if x > 1<<53 {
			return value.Value{}, fmt.Errorf("integer %d cannot be represented exactly", x)
		}
		return value.Number(float64(x)), nil
	case string:
		return strings.StringValue(x), nil
	}
	return value.Value{}, fmt.Errorf("unsupported Go type %T", val)
}
