package bytecode

// NoLine is returned by LineFor when an offset has no recorded line.
const NoLine = -1

// LineRun covers Count consecutive code bytes emitted for Line.
type LineRun struct {
	Count int
	Line  int
}

// LineIndex is a run-length encoded map from code offset to source line.
type LineIndex struct {
	Runs []LineRun
}

// Add records line for the next code byte. A byte on the same line as the
// previous one extends the last run instead of starting a new one.
func (li *LineIndex) Add(line int) {
	if n := len(li.Runs); n > 0 && li.Runs[n-1].Line == line {
		li.Runs[n-1].Count++
		return
	}
	li.Runs = append(li.Runs, LineRun{Count: 1, Line: line})
}

// LineFor returns the line recorded for offset, or NoLine when offset is
// outside the recorded range.
func (li *LineIndex) LineFor(offset int) int {
	if offset < 0 {
		return NoLine
	}
	seen := 0
	for _, run := range li.Runs {
		seen += run.Count
		if seen > offset {
			return run.Line
		}
	}
	return NoLine
}

// Len reports the number of code bytes covered by the index.
func (li *LineIndex) Len() int {
	n := 0
	for _, run := range li.Runs {
		n += run.Count
	}
	return n
}
