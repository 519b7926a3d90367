package diff

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// countLiteral counts markers the way a reader of the rendered text would.
func countLiteral(text string) Stats {
	var stats Stats
	for line := range strings.SplitSeq(strings.TrimSuffix(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			stats.Additions++
		case strings.HasPrefix(line, "-"):
			stats.Deletions++
		}
	}
	return stats
}

func TestCompute_LiteralOutput(t *testing.T) {
	a := []byte("alpha\nbeta\ngamma\n")
	b := []byte("alpha\nBETA\ngamma\ndelta\n")

	result := Compute(a, b, Label{File: "notes.txt", Version: "1.0"}, Label{File: "notes.txt", Version: "1.1"})

	want := strings.Join([]string{
		"--- notes.txt_1.0",
		"+++ notes.txt_1.1",
		"@@ -1,3 +1,4 @@",
		" alpha",
		"-beta",
		"+BETA",
		" gamma",
		"+delta",
	}, "\n") + "\n"

	if diff := cmp.Diff(want, result.String()); diff != "" {
		t.Errorf("Compute() output mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Stats{Additions: 2, Deletions: 1}, result.Stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_StatsMatchLiteralDiff(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{name: "pure addition", a: "", b: "one\ntwo\n"},
		{name: "pure deletion", a: "one\ntwo\nthree\n", b: ""},
		{name: "replace middle", a: "1\n2\n3\n4\n5\n6\n7\n8\n9\n", b: "1\n2\n3\n4\nfive\n6\n7\n8\n9\n"},
		{name: "two distant hunks", a: "a\nb\nc\nd\ne\nf\ng\nh\ni\nj\nk\nl\n", b: "A\nb\nc\nd\ne\nf\ng\nh\ni\nj\nk\nL\n"},
		{name: "crlf endings", a: "x\r\ny\r\n", b: "x\r\nz\r\n"},
		{name: "lines starting with markers", a: "-dash\n+plus\n", b: "-dash\n+plus\n-new\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compute([]byte(tt.a), []byte(tt.b), Label{File: "f", Version: "1.0"}, Label{File: "f", Version: "1.1"})

			if diff := cmp.Diff(countLiteral(result.String()), result.Stats); diff != "" {
				t.Errorf("Stats disagree with literal output (-literal +stats):\n%s\n%s", diff, result.String())
			}
			if got := Metrics([]byte(tt.a), []byte(tt.b)); got != result.Stats {
				t.Errorf("Metrics() = %+v, Compute().Stats = %+v", got, result.Stats)
			}
		})
	}
}

func TestCompute_IdenticalContent(t *testing.T) {
	content := []byte("same\nlines\nhere\n")

	result := Compute(content, content, Label{File: "f", Version: "1.0"}, Label{File: "f", Version: "1.0"})

	if !result.Identical() {
		t.Errorf("Identical() = false, stats = %+v", result.Stats)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected only the two header lines, got %d: %q", len(result.Lines), result.String())
	}
	if result.Lines[0].Text != "--- f_1.0" || result.Lines[1].Text != "+++ f_1.0" {
		t.Errorf("unexpected headers: %q", result.String())
	}
	if got := Metrics(content, content); got != (Stats{}) {
		t.Errorf("Metrics(A, A) = %+v, want zero", got)
	}
}

func TestCompute_ContextWindow(t *testing.T) {
	var a, b strings.Builder
	for i := range 20 {
		line := "line " + string(rune('a'+i)) + "\n"
		a.WriteString(line)
		if i == 10 {
			b.WriteString("changed\n")
			continue
		}
		b.WriteString(line)
	}

	result := ComputeContext([]byte(a.String()), []byte(b.String()), Label{File: "f", Version: "1.0"}, Label{File: "f", Version: "1.1"}, 1)

	want := []string{
		"--- f_1.0",
		"+++ f_1.1",
		"@@ -10,3 +10,3 @@",
		" line j",
		"-line k",
		"+changed",
		" line l",
	}
	got := make([]string, 0, len(result.Lines))
	for _, line := range result.Lines {
		got = append(got, line.String())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeContext() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "one", want: []string{"one"}},
		{in: "one\n", want: []string{"one"}},
		{in: "one\ntwo", want: []string{"one", "two"}},
		{in: "one\r\ntwo\r\n", want: []string{"one", "two"}},
		{in: "\n", want: []string{""}},
		{in: "a\n\nb\n", want: []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitLines([]byte(tt.in))); diff != "" {
				t.Errorf("SplitLines(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestFormatRange(t *testing.T) {
	tests := []struct {
		start, stop int
		want        string
	}{
		{0, 3, "1,3"},
		{4, 5, "5"},
		{0, 0, "0,0"},
		{7, 7, "7,0"},
	}

	for _, tt := range tests {
		if got := formatRange(tt.start, tt.stop); got != tt.want {
			t.Errorf("formatRange(%d, %d) = %q, want %q", tt.start, tt.stop, got, tt.want)
		}
	}
}
