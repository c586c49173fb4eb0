package diff

import (
	"bytes"
	"fmt"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// LineChange is one added or deleted line. Line is 1-based: a position in the
// new version for additions and in the old version for deletions.
type LineChange struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Parsed splits a unified diff into its added and deleted lines.
type Parsed struct {
	Added   []LineChange `json:"added"`
	Deleted []LineChange `json:"deleted"`
}

// Parse reads the hunks of a unified diff as produced by Unified.
func Parse(unified string) (Parsed, error) {
	var p Parsed
	if unified == "" {
		return p, nil
	}

	hunks, err := godiff.ParseHunks([]byte(unified))
	if err != nil {
		return p, fmt.Errorf("parse hunks: %w", err)
	}

	for _, h := range hunks {
		oldLine := int(h.OrigStartLine)
		newLine := int(h.NewStartLine)
		for _, line := range bytes.Split(h.Body, []byte{'\n'}) {
			if len(line) == 0 {
				continue
			}
			text := string(line[1:])
			switch line[0] {
			case '+':
				p.Added = append(p.Added, LineChange{Line: newLine, Text: text})
				newLine++
			case '-':
				p.Deleted = append(p.Deleted, LineChange{Line: oldLine, Text: text})
				oldLine++
			case ' ':
				oldLine++
				newLine++
			}
		}
	}
	return p, nil
}

// Stats counts added and deleted lines in a unified diff without building line lists.
func Stats(unified string) (added, deleted int) {
	for _, line := range bytes.Split([]byte(unified), []byte{'\n'}) {
		if len(line) == 0 || bytes.HasPrefix(line, []byte("@@")) {
			continue
		}
		switch line[0] {
		case '+':
			added++
		case '-':
			deleted++
		}
	}
	return added, deleted
}

// Hunks counts the hunks of a unified diff.
func Hunks(unified string) int {
	n := 0
	for _, line := range bytes.Split([]byte(unified), []byte{'\n'}) {
		if bytes.HasPrefix(line, []byte("@@ -")) {
			n++
		}
	}
	return n
}
