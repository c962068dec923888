package vm

import (
	"sort"

	"github.com/xirelogy/go-lox/internal/value"
)

// Global returns the value bound to a global name.
func (vm *VM) Global(name string) (value.Value, bool) {
	key, ok := vm.strings.Lookup(name)
	if !ok {
		return value.Value{}, false
	}
	v, ok := vm.globals[key]
	return v, ok
}

// DefineGlobal binds a value into the global environment.
func (vm *VM) DefineGlobal(name string, v value.Value) {
	vm.globals[vm.strings.Intern(name)] = v
}

// GlobalNames lists the defined globals in sorted order.
func (vm *VM) GlobalNames() []string {
	names := make([]string, 0, len(vm.globals))
	for name := range vm.globals {
		names = append(names, name.Chars)
	}
	sort.Strings(names)
	return names
}

// Stack returns a copy of the live operand stack, bottom first.
func (vm *VM) Stack() []value.Value {
	return append([]value.Value(nil), vm.stack[:vm.sp]...)
}

// StackSize reports the operand stack capacity.
func (vm *VM) StackSize() int {
	return len(vm.stack)
}

// Strings returns the interner shared with the compiler.
func (vm *VM) Strings() *value.Interner {
	return vm.strings
}
