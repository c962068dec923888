// Package diagnostic renders compile and runtime errors for people, with a
// source excerpt and an optional splash of ANSI colour.
package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/xirelogy/go-lox/internal/compiler"
)

const (
	ansiReset   = "\x1b[0m"
	ansiRed     = "\x1b[31m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

// Colour modes accepted by ColorEnabled.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ColorEnabled resolves a colour mode for output going to f. In auto mode
// colour is used only on a terminal, honouring NO_COLOR and TERM=dumb.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes diagnostics against one source text.
type Printer struct {
	W       io.Writer
	Source  string
	Color   bool
	Context int // previous lines shown above the offending one
}

// Print renders a compile error: the header, the offending line with up to
// Context lines before it, and a caret under the error column.
func (p *Printer) Print(err *compiler.Error) {
	p.paint(ansiRed, err.Error())
	p.excerpt(err.Line, err.Column)
}

// PrintAll renders every error of a failed compile in order.
func (p *Printer) PrintAll(errs compiler.ErrorList) {
	for _, err := range errs {
		p.Print(err)
	}
}

// PrintRuntime renders a runtime failure reported at line.
func (p *Printer) PrintRuntime(message string, line int) {
	p.paint(ansiRed, message)
	if line > 0 {
		p.paint(ansiRed, fmt.Sprintf("[line %d] in script", line))
		p.excerpt(line, 0)
	}
}

func (p *Printer) excerpt(line, column int) {
	lines := strings.Split(p.Source, "\n")
	if line < 1 || line > len(lines) {
		return
	}
	first := line - p.Context
	if first < 1 {
		first = 1
	}
	for n := first; n <= line; n++ {
		p.gutter(fmt.Sprintf("%5d | ", n))
		fmt.Fprintln(p.W, strings.TrimRight(lines[n-1], "\r"))
	}
	if column < 1 {
		return
	}
	p.gutter("      | ")
	p.paint(ansiMagenta, strings.Repeat(" ", column-1)+"^")
}

func (p *Printer) gutter(s string) {
	if p.Color {
		fmt.Fprint(p.W, ansiCyan+s+ansiReset)
		return
	}
	fmt.Fprint(p.W, s)
}

func (p *Printer) paint(color, s string) {
	if p.Color {
		fmt.Fprintln(p.W, color+s+ansiReset)
		return
	}
	fmt.Fprintln(p.W, s)
}
