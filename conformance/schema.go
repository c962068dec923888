package conformance

// TestSuite represents a complete YAML test file
type TestSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Setup       string     `yaml:"setup,omitempty"` // run before every test in the suite
	Tests       []TestCase `yaml:"tests"`
}

// TestCase represents a single program within a suite
type TestCase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Source      string      `yaml:"source"`
	VM          *VMSettings `yaml:"vm,omitempty"`
	Expect      Expectation `yaml:"expect"`
}

// VMSettings overrides the default VM configuration for one test
type VMSettings struct {
	StackSize        int `yaml:"stack_size,omitempty"`
	InstructionLimit int `yaml:"instruction_limit,omitempty"`
}

// Expectation defines what a run must produce. Unset fields are not checked.
type Expectation struct {
	Output        *string           `yaml:"output,omitempty"` // exact stdout
	CompileErrors []CompileExpect   `yaml:"compile_errors,omitempty"`
	RuntimeError  *RuntimeExpect    `yaml:"runtime_error,omitempty"`
	Globals       map[string]string `yaml:"globals,omitempty"` // name -> printed value
}

// CompileExpect matches one compile diagnostic, in order
type CompileExpect struct {
	Kind    string `yaml:"kind"`
	Line    int    `yaml:"line,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// RuntimeExpect matches the runtime error that halted the program
type RuntimeExpect struct {
	Message string `yaml:"message"`
	Line    int    `yaml:"line,omitempty"`
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
	case string:
		return true, v
	}
	return false, ""
}
