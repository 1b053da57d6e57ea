// Package termline provides incremental splitting of terminal output into
// logical lines, with ANSI escape sequences stripped.
//
// Subprocess output arrives in arbitrary chunks: a chunk may end mid-line,
// and a single chunk may carry many lines. Feed accumulates bytes and
// yields only complete lines, carrying the trailing fragment forward so no
// classification ever happens on a partial record. The same byte sequence
// produces the same lines regardless of how it was chunked.
package termline

import (
	"bytes"
	"regexp"
	"strings"
)

// ansiPattern matches ANSI CSI escape sequences: ESC [ parameter bytes,
// intermediate bytes, one final byte.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// Feed appends chunk to buf and splits off all complete lines. The
// returned rest holds the trailing incomplete fragment and must be passed
// back as buf on the next call. Lines are returned raw; use Clean before
// interpreting them. Carriage returns before the line break are dropped so
// pseudo-terminal CRLF output splits the same as plain LF output.
func Feed(buf, chunk []byte) (lines []string, rest []byte) {
	rest = append(buf, chunk...)

	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			return lines, rest
		}
		line := rest[:i]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		lines = append(lines, string(line))
		rest = rest[i+1:]
	}
}

// Flush returns the buffered trailing fragment as a final line. It reports
// false when the buffer holds nothing. Call it once the byte stream has
// ended; a process that exits without a final line break still gets its
// last line delivered.
func Flush(buf []byte) (line string, ok bool) {
	if len(buf) == 0 {
		return "", false
	}
	line = string(buf)
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, true
}

// Clean strips ANSI CSI sequences and surrounding whitespace from a line.
// A line consisting solely of escape sequences and whitespace cleans to
// the empty string.
func Clean(line string) string {
	return strings.TrimSpace(ansiPattern.ReplaceAllString(line, ""))
}
