package compiler

// MaxLocals bounds the locals stack of one compilation unit.
const MaxLocals = 256

// Slot addresses a local variable on the VM stack.
type Slot int

// uninitialized marks a local that is declared but whose initializer is
// still being compiled.
const uninitialized = -1

type local struct {
	name  string
	depth int
	final bool
}

// scope tracks the locals stack and the current block depth.
type scope struct {
	locals []local
	depth  int
}

func newScope() *scope {
	return &scope{locals: make([]local, 0, MaxLocals)}
}

func (s *scope) full() bool {
	return len(s.locals) >= MaxLocals
}

// addLocal pushes a declared but uninitialized local.
func (s *scope) addLocal(name string, final bool) {
	s.locals = append(s.locals, local{name: name, depth: uninitialized, final: final})
}

// declaredHere reports whether name is already declared in the innermost scope.
func (s *scope) declaredHere(name string) bool {
	for i := len(s.locals) - 1; i >= 0; i-- {
		l := s.locals[i]
		if l.depth != uninitialized && l.depth < s.depth {
			break
		}
		if l.name == name {
			return true
		}
	}
	return false
}

// markInitialized makes the most recent local visible to reads.
func (s *scope) markInitialized() {
	if n := len(s.locals); n > 0 {
		s.locals[n-1].depth = s.depth
	}
}

// resolve searches the locals from the innermost declaration outwards.
func (s *scope) resolve(name string) (Slot, *local, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name == name {
			return Slot(i), &s.locals[i], true
		}
	}
	return 0, nil, false
}

func (s *scope) begin() {
	s.depth++
}

// end closes the innermost block and returns how many locals went out of scope.
func (s *scope) end() int {
	s.depth--
	dropped := 0
	for n := len(s.locals); n > 0 && s.locals[n-1].depth > s.depth; n-- {
		s.locals = s.locals[:n-1]
		dropped++
	}
	return dropped
}
