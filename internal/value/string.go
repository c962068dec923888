package value

// String is an immutable, interned string object. Two *String obtained
// from the same Interner are equal exactly when the pointers are equal.
type String struct {
	Chars string
}

func (s *String) Type() string   { return "string" }
func (s *String) String() string { return s.Chars }

// Interner owns the canonical *String for every distinct byte sequence.
// The compiler and the VM that runs its output must share one Interner.
type Interner struct {
	strings map[string]*String
}

func NewInterner() *Interner {
	return &Interner{strings: make(map[string]*String)}
}

// Intern returns the canonical object for s, creating it on first use.
func (in *Interner) Intern(s string) *String {
	if obj, ok := in.strings[s]; ok {
		return obj
	}
	obj := &String{Chars: s}
	in.strings[s] = obj
	return obj
}

// Lookup returns the canonical object for s without creating one.
func (in *Interner) Lookup(s string) (*String, bool) {
	obj, ok := in.strings[s]
	return obj, ok
}

// Len reports how many distinct strings have been interned.
func (in *Interner) Len() int {
	return len(in.strings)
}

// StringValue interns s and wraps it as a Value.
func (in *Interner) StringValue(s string) Value {
	return FromObject(in.Intern(s))
}
