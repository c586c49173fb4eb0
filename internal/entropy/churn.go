// Package entropy measures how widely a commit spreads its changes over files.
// Based on Hassan (2009) "Predicting Faults Using the Complexity of Code Changes".
package entropy

import "math"

// FileChurn is the number of lines one modification added and deleted.
type FileChurn struct {
	Path    string
	Added   int
	Deleted int
}

// Total returns lines changed (added + deleted).
func (f FileChurn) Total() int {
	return f.Added + f.Deleted
}

// Bits returns the Shannon entropy of the churn distribution in bits:
// -Σ(p_i × log2(p_i)) where p_i is a file's share of the total churn.
// Files without churn contribute nothing.
func Bits(files []FileChurn) float64 {
	total := 0
	for _, f := range files {
		total += f.Total()
	}
	if total == 0 {
		return 0
	}

	h := 0.0
	for _, f := range files {
		if churn := f.Total(); churn > 0 {
			p := float64(churn) / float64(total)
			h -= p * math.Log2(p)
		}
	}
	return h
}

// Normalized returns Bits divided by its maximum, log2(n), giving a value in [0, 1]:
//   - 0 = focused change (single file or all churn in one file)
//   - 1 = dispersed change (churn evenly distributed)
//
// Several files without any churn (pure renames, mode changes) count as evenly spread.
func Normalized(files []FileChurn) float64 {
	if len(files) < 2 {
		return 0
	}

	total := 0
	for _, f := range files {
		total += f.Total()
	}
	if total == 0 {
		return 1
	}

	maxBits := math.Log2(float64(len(files)))
	n := Bits(files) / maxBits
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
