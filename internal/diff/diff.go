// Package diff computes line diffs between two file versions and renders them as
// unified-diff hunks.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines shown around each change.
const DefaultContext = 3

const noNewlineMarker = `\ No newline at end of file`

// Op is the kind of an edit script entry.
type Op int8

const (
	Equal Op = iota
	Delete
	Insert
)

// Line is one entry of an edit script. Text keeps its line terminator; only the
// last line of a file may lack one.
type Line struct {
	Op   Op
	Text string
}

// Lines returns the line edit script turning oldText into newText.
// Within each run of changes deletions come before insertions, as git prints them.
func Lines(oldText, newText string) []Line {
	if oldText == newText {
		return equalScript(oldText)
	}

	dmp := diffmatchpatch.New()
	// No deadline: the same inputs must always produce the same script.
	dmp.DiffTimeout = 0
	src, dst, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lineArray)

	var (
		out     []Line
		deletes []Line
		inserts []Line
	)
	flush := func() {
		out = append(out, deletes...)
		out = append(out, inserts...)
		deletes, inserts = deletes[:0], inserts[:0]
	}
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				deletes = append(deletes, Line{Op: Delete, Text: text})
			case diffmatchpatch.DiffInsert:
				inserts = append(inserts, Line{Op: Insert, Text: text})
			default:
				flush()
				out = append(out, Line{Op: Equal, Text: text})
			}
		}
	}
	flush()
	return out
}

func equalScript(text string) []Line {
	lines := splitLines(text)
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = Line{Op: Equal, Text: l}
	}
	return out
}

// splitLines splits s after every '\n'. A trailing fragment without a
// terminator is returned as the last line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Unified renders the hunks of a unified diff between oldText and newText with
// the given number of context lines. File headers are not emitted. Identical
// inputs produce an empty string.
func Unified(oldText, newText string, context int) string {
	if oldText == newText {
		return ""
	}
	if context < 0 {
		context = 0
	}
	return render(Lines(oldText, newText), context)
}

func render(script []Line, context int) string {
	n := len(script)
	var b strings.Builder

	// oldSeen/newSeen count the lines of each side consumed before index i.
	oldSeen, newSeen := 0, 0
	i := 0
	for i < n {
		c := i
		for c < n && script[c].Op == Equal {
			c++
		}
		if c == n {
			break
		}

		start := c - context
		if start < i {
			start = i
		}

		end := c
		for {
			for end < n && script[end].Op != Equal {
				end++
			}
			next := end
			for next < n && script[next].Op == Equal {
				next++
			}
			if next < n && next-end <= 2*context {
				end = next
				continue
			}
			break
		}
		end += context
		if end > n {
			end = n
		}

		// script[i:start] holds only unchanged lines.
		oldSeen += start - i
		newSeen += start - i
		writeHunk(&b, script[start:end], oldSeen, newSeen)
		for _, l := range script[start:end] {
			if l.Op != Insert {
				oldSeen++
			}
			if l.Op != Delete {
				newSeen++
			}
		}
		i = end
	}
	return b.String()
}

func writeHunk(b *strings.Builder, hunk []Line, oldBefore, newBefore int) {
	oldCount, newCount := 0, 0
	for _, l := range hunk {
		if l.Op != Insert {
			oldCount++
		}
		if l.Op != Delete {
			newCount++
		}
	}
	fmt.Fprintf(b, "@@ -%s +%s @@\n", hunkRange(oldBefore, oldCount), hunkRange(newBefore, newCount))

	for _, l := range hunk {
		prefix := byte(' ')
		switch l.Op {
		case Delete:
			prefix = '-'
		case Insert:
			prefix = '+'
		}
		b.WriteByte(prefix)
		if strings.HasSuffix(l.Text, "\n") {
			b.WriteString(l.Text)
			continue
		}
		b.WriteString(l.Text)
		b.WriteByte('\n')
		b.WriteString(noNewlineMarker)
		b.WriteByte('\n')
	}
}

// hunkRange formats one side of a hunk header the way git does: an empty range
// names the line before it, and a count of one is omitted.
func hunkRange(before, count int) string {
	switch count {
	case 0:
		return fmt.Sprintf("%d,0", before)
	case 1:
		return fmt.Sprintf("%d", before+1)
	default:
		return fmt.Sprintf("%d,%d", before+1, count)
	}
}
