package conformance

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TestPath holds the YAML suites, relative to this package
const TestPath = "testdata"

// LoadedTest represents a test with its source file path
type LoadedTest struct {
	File  string
	Suite TestSuite
	Test  TestCase
}

// LoadAllTests walks dir and loads every test case from its .yaml files
func LoadAllTests(dir string) ([]LoadedTest, error) {
	var loaded []LoadedTest
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		suite, err := LoadSuite(path)
		if err != nil {
			return err
		}
		relPath, _ := filepath.Rel(dir, path)
		for _, test := range suite.Tests {
			loaded = append(loaded, LoadedTest{File: relPath, Suite: *suite, Test: test})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// LoadSuite parses a single YAML file. Unknown fields are rejected so a
// misspelt expectation cannot silently pass.
func LoadSuite(path string) (*TestSuite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var suite TestSuite
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if suite.Name == "" {
		return nil, fmt.Errorf("%s: suite has no name", path)
	}
	for i, tc := range suite.Tests {
		if tc.Name == "" {
			return nil, fmt.Errorf("%s: test %d has no name", path, i)
		}
	}
	return &suite, nil
}
