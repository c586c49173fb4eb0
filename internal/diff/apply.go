package diff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPatchMismatch is returned when a hunk does not match the content it is applied to.
var ErrPatchMismatch = errors.New("patch does not apply")

type hunkHeader struct {
	oldStart, oldCount int
	newStart, newCount int
}

// Apply reconstructs the new version of a file from its old version and the
// hunks Unified produced for it. Apply(old, Unified(old, new, n)) == new for any n.
func Apply(oldText, unified string) (string, error) {
	if unified == "" {
		return oldText, nil
	}

	old := splitLines(oldText)
	var out strings.Builder
	next := 0 // index of the first old line not yet consumed
	lastAdded := false

	for _, raw := range splitLines(unified) {
		line := strings.TrimSuffix(raw, "\n")
		if strings.HasPrefix(line, "@@") {
			h, err := parseHunkHeader(line)
			if err != nil {
				return "", err
			}
			skip := h.oldStart - 1
			if h.oldCount == 0 {
				skip = h.oldStart
			}
			if skip < next || skip > len(old) {
				return "", fmt.Errorf("%w: hunk %q out of order", ErrPatchMismatch, line)
			}
			for _, l := range old[next:skip] {
				out.WriteString(l)
			}
			next = skip
			lastAdded = false
			continue
		}
		if line == "" {
			return "", fmt.Errorf("%w: empty hunk line", ErrPatchMismatch)
		}

		text := line[1:]
		switch line[0] {
		case ' ', '-':
			if next >= len(old) || strings.TrimSuffix(old[next], "\n") != text {
				return "", fmt.Errorf("%w: line %d differs", ErrPatchMismatch, next+1)
			}
			if line[0] == ' ' {
				out.WriteString(old[next])
			}
			next++
			lastAdded = false
		case '+':
			out.WriteString(text)
			out.WriteByte('\n')
			lastAdded = true
		case '\\':
			// The marker refers to the line before it. Context and deleted lines
			// were copied verbatim from the old version already.
			if lastAdded {
				s := out.String()
				out.Reset()
				out.WriteString(strings.TrimSuffix(s, "\n"))
			}
		default:
			return "", fmt.Errorf("%w: unexpected line %q", ErrPatchMismatch, line)
		}
	}

	for _, l := range old[next:] {
		out.WriteString(l)
	}
	return out.String(), nil
}

// parseHunkHeader reads "@@ -a[,b] +c[,d] @@".
func parseHunkHeader(line string) (hunkHeader, error) {
	var h hunkHeader
	fields := strings.Fields(line)
	if len(fields) < 4 || fields[0] != "@@" || fields[3] != "@@" ||
		!strings.HasPrefix(fields[1], "-") || !strings.HasPrefix(fields[2], "+") {
		return h, fmt.Errorf("%w: malformed hunk header %q", ErrPatchMismatch, line)
	}
	var err error
	if h.oldStart, h.oldCount, err = parseRange(fields[1][1:]); err != nil {
		return h, fmt.Errorf("%w: hunk header %q: %v", ErrPatchMismatch, line, err)
	}
	if h.newStart, h.newCount, err = parseRange(fields[2][1:]); err != nil {
		return h, fmt.Errorf("%w: hunk header %q: %v", ErrPatchMismatch, line, err)
	}
	return h, nil
}

func parseRange(s string) (start, count int, err error) {
	startStr, countStr, found := strings.Cut(s, ",")
	if start, err = strconv.Atoi(startStr); err != nil {
		return 0, 0, err
	}
	count = 1
	if found {
		if count, err = strconv.Atoi(countStr); err != nil {
			return 0, 0, err
		}
	}
	return start, count, nil
}
