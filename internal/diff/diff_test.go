package diff

import (
	"fmt"
	"strings"
	"testing"
)

func TestUnified(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		want     string
	}{
		{
			name: "identical",
			old:  "a\nb\n",
			new:  "a\nb\n",
			want: "",
		},
		{
			name: "single line change",
			old:  "a\nb\nc\n",
			new:  "a\nB\nc\n",
			want: "@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n",
		},
		{
			name: "added file",
			old:  "",
			new:  "x\ny\n",
			want: "@@ -0,0 +1,2 @@\n+x\n+y\n",
		},
		{
			name: "deleted file",
			old:  "x\n",
			new:  "",
			want: "@@ -1 +0,0 @@\n-x\n",
		},
		{
			name: "missing trailing newline",
			old:  "a",
			new:  "b",
			want: "@@ -1 +1 @@\n-a\n\\ No newline at end of file\n+b\n\\ No newline at end of file\n",
		},
		{
			name: "newline added at end",
			old:  "a",
			new:  "a\n",
			want: "@@ -1 +1 @@\n-a\n\\ No newline at end of file\n+a\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unified(tt.old, tt.new, DefaultContext)
			if got != tt.want {
				t.Errorf("Unified() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func numbered(n int, replace map[int]string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if s, ok := replace[i]; ok {
			b.WriteString(s)
		} else {
			fmt.Fprintf(&b, "l%d", i)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestUnified_SeparateHunks(t *testing.T) {
	old := numbered(20, nil)
	updated := numbered(20, map[int]string{2: "L2", 18: "L18"})

	got := Unified(old, updated, DefaultContext)
	var headers []string
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "@@") {
			headers = append(headers, line)
		}
	}
	want := []string{"@@ -1,5 +1,5 @@", "@@ -15,6 +15,6 @@"}
	if len(headers) != len(want) {
		t.Fatalf("headers = %v, want %v", headers, want)
	}
	for i := range want {
		if headers[i] != want[i] {
			t.Errorf("header %d = %q, want %q", i, headers[i], want[i])
		}
	}
}

func TestUnified_MergesCloseHunks(t *testing.T) {
	old := numbered(12, nil)
	updated := numbered(12, map[int]string{3: "L3", 8: "L8"})

	got := Unified(old, updated, DefaultContext)
	if n := strings.Count(got, "@@ -"); n != 1 {
		t.Fatalf("expected one merged hunk, got %d:\n%s", n, got)
	}
	if !strings.HasPrefix(got, "@@ -1,11 +1,11 @@\n") {
		t.Errorf("unexpected header in:\n%s", got)
	}
}

func TestUnified_ZeroContext(t *testing.T) {
	got := Unified("a\nb\nc\n", "a\nc\n", 0)
	if got != "@@ -2 +1,0 @@\n-b\n" {
		t.Errorf("Unified() = %q", got)
	}
}

func TestLines_DeletesBeforeInserts(t *testing.T) {
	script := Lines("a\nold1\nold2\nz\n", "a\nnew1\nz\n")
	var ops []Op
	for _, l := range script {
		ops = append(ops, l.Op)
	}
	want := []Op{Equal, Delete, Delete, Insert, Equal}
	if fmt.Sprint(ops) != fmt.Sprint(want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		limit int
		want  bool
	}{
		{"empty", nil, 0, false},
		{"text", []byte("hello\nworld\n"), 0, false},
		{"nul", []byte("PNG\x00\x01"), 0, true},
		{"nul beyond limit", []byte("xxxxxxxxxx\x00"), 5, false},
		{"nul within limit", []byte{'a', 0, 'b'}, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBinary(tt.data, tt.limit); got != tt.want {
				t.Errorf("IsBinary() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		want     int
	}{
		{"identical", "a\nb\n", "a\nb\n", 100},
		{"both empty", "", "", 100},
		{"one empty", "", "x\n", 0},
		{"one line of four changed", "a\nb\nc\nd\n", "a\nb\nc\nX\n", 75},
		{"disjoint", "a\nb\n", "c\nd\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity([]byte(tt.old), []byte(tt.new)); got != tt.want {
				t.Errorf("Similarity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	unified := Unified("a\nb\nc\n", "a\nB\nc\nd\n", DefaultContext)
	p, err := Parse(unified)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wantAdded := []LineChange{{Line: 2, Text: "B"}, {Line: 4, Text: "d"}}
	wantDeleted := []LineChange{{Line: 2, Text: "b"}}
	if fmt.Sprint(p.Added) != fmt.Sprint(wantAdded) {
		t.Errorf("Added = %v, want %v", p.Added, wantAdded)
	}
	if fmt.Sprint(p.Deleted) != fmt.Sprint(wantDeleted) {
		t.Errorf("Deleted = %v, want %v", p.Deleted, wantDeleted)
	}
}

func TestParse_Empty(t *testing.T) {
	p, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Added) != 0 || len(p.Deleted) != 0 {
		t.Errorf("Parse(\"\") = %+v", p)
	}
}

func TestStats(t *testing.T) {
	added, deleted := Stats(Unified("a\nb\nc\n", "a\nB\nc\nd\n", DefaultContext))
	if added != 2 || deleted != 1 {
		t.Errorf("Stats = +%d -%d, want +2 -1", added, deleted)
	}
}

func TestHunks(t *testing.T) {
	old, new := "a\nb\nc\nd\ne\n", "A\nb\nc\nd\nE\n"
	if got := Hunks(Unified(old, new, 0)); got != 2 {
		t.Errorf("Hunks(context 0) = %d, want 2", got)
	}
	if got := Hunks(Unified(old, new, DefaultContext)); got != 1 {
		t.Errorf("Hunks(default context) = %d, want 1", got)
	}
	if got := Hunks(""); got != 0 {
		t.Errorf("Hunks(\"\") = %d, want 0", got)
	}
}
