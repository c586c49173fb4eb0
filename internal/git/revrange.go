package git

import (
	"fmt"
	"strings"
)

// ParseRange splits a revision range into its lower and upper bound.
// Supports both "..." (three-dot) and ".." (two-dot) syntax; an empty upper bound means HEAD.
func ParseRange(spec string) (from, to string, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", "", fmt.Errorf("empty range")
	}

	if idx := strings.Index(spec, "..."); idx != -1 {
		from = spec[:idx]
		to = spec[idx+3:]
	} else if idx := strings.Index(spec, ".."); idx != -1 {
		from = spec[:idx]
		to = spec[idx+2:]
	} else {
		return "", "", fmt.Errorf("invalid range %q: expected 'from..to' or 'from...to'", spec)
	}

	if from == "" {
		return "", "", fmt.Errorf("invalid range %q: missing lower bound", spec)
	}
	if to == "" {
		to = "HEAD"
	}

	return from, to, nil
}
