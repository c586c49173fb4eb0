// Package bugfix classifies commits as bug fixes from their messages.
package bugfix

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/masmgr/repominer/internal/miner"
)

// Detector matches commit messages against case-insensitive patterns.
type Detector struct {
	patterns []*regexp.Regexp
}

// NewDetector compiles patterns; blank patterns are skipped.
func NewDetector(patterns []string) (*Detector, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "(?i)") {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bugfix pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Detector{patterns: compiled}, nil
}

// Enabled reports whether any pattern is configured.
func (d *Detector) Enabled() bool {
	return d != nil && len(d.patterns) > 0
}

// IsBugfix reports whether message matches any pattern.
func (d *Detector) IsBugfix(message string) bool {
	if d == nil {
		return false
	}
	for _, re := range d.patterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

// IsFixCommit classifies a commit. Merge commits are never fixes: their message
// names the merged branch, not the change.
func (d *Detector) IsFixCommit(c *miner.Commit) bool {
	if c.Merge() {
		return false
	}
	return d.IsBugfix(c.Message)
}
