// Package burst measures how concentrated a file's changes are in time.
package burst

import (
	"slices"
	"time"

	"github.com/masmgr/repominer/internal/aggregation"
)

// DefaultWindow is used when a non-positive window is configured.
const DefaultWindow = 7 * 24 * time.Hour

// Calculator scores bursts over a sliding window of fixed width.
// A file's burst score is the share of its commits that fall into its densest window.
type Calculator struct {
	window time.Duration
}

// NewCalculator returns a calculator for windowDays-wide windows.
func NewCalculator(windowDays int) *Calculator {
	if windowDays <= 0 {
		return &Calculator{window: DefaultWindow}
	}
	return &Calculator{window: time.Duration(windowDays) * 24 * time.Hour}
}

// Window returns the window width.
func (c *Calculator) Window() time.Duration {
	return c.window
}

// Compute sets BurstScore on every file.
func (c *Calculator) Compute(metrics map[string]*aggregation.FileMetrics) {
	for _, fm := range metrics {
		fm.BurstScore = c.Score(fm.CommitTimes)
	}
}

// Score returns the burst score of times in [0, 1]; zero for no commits.
func (c *Calculator) Score(times []time.Time) float64 {
	if len(times) == 0 {
		return 0
	}
	_, n := c.Peak(times)
	return float64(n) / float64(len(times))
}

// Peak returns the start of the densest window and how many commits it holds.
// The earliest such window wins. times is not modified.
func (c *Calculator) Peak(times []time.Time) (time.Time, int) {
	if len(times) == 0 {
		return time.Time{}, 0
	}
	sorted := sortedCopy(times)

	best, start := 1, 0
	left := 0
	for right := range sorted {
		for sorted[right].Sub(sorted[left]) > c.window {
			left++
		}
		if n := right - left + 1; n > best {
			best, start = n, left
		}
	}
	return sorted[start], best
}

// sortedCopy returns times ascending. Aggregated times are usually already in
// order, so the sort is skipped when possible.
func sortedCopy(times []time.Time) []time.Time {
	out := slices.Clone(times)
	if !slices.IsSortedFunc(out, time.Time.Compare) {
		slices.SortFunc(out, time.Time.Compare)
	}
	return out
}
