package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/xirelogy/go-lox/internal/value"
)

// FormatVersion is bumped whenever the opcode numbering or wire layout changes.
const FormatVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireChunk struct {
	Version   int         `cbor:"0,keyasint"`
	Name      string      `cbor:"1,keyasint,omitempty"`
	Code      []byte      `cbor:"2,keyasint"`
	Lines     []wireRun   `cbor:"3,keyasint"`
	Constants []wireConst `cbor:"4,keyasint"`
}

type wireRun struct {
	_     struct{} `cbor:",toarray"`
	Count int
	Line  int
}

type wireConst struct {
	Kind value.Kind `cbor:"0,keyasint"`
	Num  float64    `cbor:"1,keyasint,omitempty"`
	B    bool       `cbor:"2,keyasint,omitempty"`
	Str  *string    `cbor:"3,keyasint,omitempty"`
}

// MarshalChunk serializes a Chunk to canonical CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("bytecode: marshal nil chunk")
	}
	w := wireChunk{
		Version:   FormatVersion,
		Name:      c.Name,
		Code:      c.Code,
		Lines:     make([]wireRun, len(c.Lines.Runs)),
		Constants: make([]wireConst, len(c.Constants)),
	}
	for i, run := range c.Lines.Runs {
		w.Lines[i] = wireRun{Count: run.Count, Line: run.Line}
	}
	for i, v := range c.Constants {
		wc := wireConst{Kind: v.Kind, Num: v.Num, B: v.B}
		if v.Kind == value.KindObject {
			s, ok := v.AsString()
			if !ok {
				return nil, fmt.Errorf("bytecode: constant %d: cannot encode %s object", i, value.TypeName(v))
			}
			chars := s.Chars
			wc.Str = &chars
		}
		w.Constants[i] = wc
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalChunk deserializes and verifies a Chunk from CBOR bytes. String
// constants are interned through strings so the result can run on a VM
// sharing that interner.
func UnmarshalChunk(data []byte, strings *value.Interner) (*Chunk, error) {
	var w wireChunk
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if w.Version != FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d (want %d)", w.Version, FormatVersion)
	}
	c := &Chunk{
		Name:      w.Name,
		Code:      w.Code,
		Constants: make([]value.Value, len(w.Constants)),
	}
	for _, run := range w.Lines {
		if run.Count < 1 {
			return nil, fmt.Errorf("bytecode: line run with count %d", run.Count)
		}
		c.Lines.Runs = append(c.Lines.Runs, LineRun{Count: run.Count, Line: run.Line})
	}
	for i, wc := range w.Constants {
		switch wc.Kind {
		case value.KindNil:
			c.Constants[i] = value.Nil()
		case value.KindBool:
			c.Constants[i] = value.Bool(wc.B)
		case value.KindNumber:
			c.Constants[i] = value.Number(wc.Num)
		case value.KindObject:
			if wc.Str == nil {
				return nil, fmt.Errorf("bytecode: constant %d: object without string payload", i)
			}
			c.Constants[i] = strings.StringValue(*wc.Str)
		default:
			return nil, fmt.Errorf("bytecode: constant %d: unknown kind %d", i, wc.Kind)
		}
	}
	if err := Verify(c); err != nil {
		return nil, err
	}
	return c, nil
}
