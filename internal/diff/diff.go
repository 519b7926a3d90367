// Package diff computes line-oriented unified diffs between two snapshots and
// the addition/deletion metrics derived from them.
package diff

import (
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of unchanged lines shown around each change.
const DefaultContext = 3

// Kind tags a diff line.
type Kind int

// Line kinds, in the order they can appear in a unified diff.
const (
	Header Kind = iota
	Hunk
	Context
	Added
	Deleted
)

// String returns a lower-case name for the kind, used in JSON output.
func (k Kind) String() string {
	switch k {
	case Header:
		return "header"
	case Hunk:
		return "hunk"
	case Context:
		return "context"
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Label identifies one side of a diff for provenance, e.g. notes.txt_1.0.
type Label struct {
	File    string
	Version string
}

// String renders the label the way it appears in the header lines.
func (l Label) String() string {
	return l.File + "_" + l.Version
}

// Line is one line of unified diff output. Text excludes the marker prefix.
type Line struct {
	Kind Kind
	Text string
}

// String renders the line with its unified-diff marker.
func (l Line) String() string {
	switch l.Kind {
	case Context:
		return " " + l.Text
	case Added:
		return "+" + l.Text
	case Deleted:
		return "-" + l.Text
	default:
		return l.Text
	}
}

// Stats counts changed lines. Header lines are never counted.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// Result is a computed diff. Stats are tallied in the same pass that produced Lines.
type Result struct {
	From  Label
	To    Label
	Lines []Line
	Stats Stats
}

// String returns the literal unified diff text, one line per Line.
func (r *Result) String() string {
	var sb strings.Builder
	for _, line := range r.Lines {
		sb.WriteString(line.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Identical reports whether the diff contains no changed lines.
func (r *Result) Identical() bool {
	return r.Stats.Additions == 0 && r.Stats.Deletions == 0
}

// Compute diffs a against b. The first two lines are always the "---" and "+++"
// headers carrying from and to, even when the contents are identical.
func Compute(a, b []byte, from, to Label) *Result {
	return ComputeContext(a, b, from, to, DefaultContext)
}

// ComputeContext is Compute with an explicit number of context lines.
func ComputeContext(a, b []byte, from, to Label, context int) *Result {
	if context < 0 {
		context = 0
	}
	result := &Result{From: from, To: to}
	result.emit(Line{Kind: Header, Text: "--- " + from.String()})
	result.emit(Line{Kind: Header, Text: "+++ " + to.String()})

	aLines := SplitLines(a)
	bLines := SplitLines(b)
	matcher := difflib.NewMatcher(aLines, bLines)

	for _, group := range matcher.GetGroupedOpCodes(context) {
		first, last := group[0], group[len(group)-1]
		result.emit(Line{
			Kind: Hunk,
			Text: "@@ -" + formatRange(first.I1, last.I2) + " +" + formatRange(first.J1, last.J2) + " @@",
		})
		for _, op := range group {
			switch op.Tag {
			case 'e':
				for _, text := range aLines[op.I1:op.I2] {
					result.emit(Line{Kind: Context, Text: text})
				}
			case 'r', 'd', 'i':
				for _, text := range aLines[op.I1:op.I2] {
					result.emit(Line{Kind: Deleted, Text: text})
				}
				for _, text := range bLines[op.J1:op.J2] {
					result.emit(Line{Kind: Added, Text: text})
				}
			}
		}
	}
	return result
}

// Metrics returns the addition and deletion counts of the diff from a to b.
func Metrics(a, b []byte) Stats {
	return Compute(a, b, Label{}, Label{}).Stats
}

// emit appends a line and tallies it.
func (r *Result) emit(line Line) {
	r.Lines = append(r.Lines, line)
	switch line.Kind {
	case Added:
		r.Stats.Additions++
	case Deleted:
		r.Stats.Deletions++
	}
}

// SplitLines splits content into lines without their terminators.
// Both "\n" and "\r\n" end a line; a trailing terminator does not start a new line.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	text := strings.TrimSuffix(string(content), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// formatRange renders a hunk range in unified format: "start,length", with the
// length omitted when it is 1 and start shifted back for empty ranges.
func formatRange(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return strconv.Itoa(beginning)
	}
	if length == 0 {
		beginning--
	}
	return strconv.Itoa(beginning) + "," + strconv.Itoa(length)
}
