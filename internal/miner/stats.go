package miner

import (
	"context"

	"github.com/masmgr/repominer/internal/entropy"
)

// CommitStats summarizes the line churn of a commit's modifications.
type CommitStats struct {
	Files      int     `json:"files"`
	Insertions int     `json:"insertions"`
	Deletions  int     `json:"deletions"`
	Lines      int     `json:"lines"`
	Entropy    float64 `json:"entropy"`
}

// Stats computes line totals and the normalized entropy of the churn across files.
// Binary modifications count as files without lines.
func (c *Commit) Stats(ctx context.Context) (CommitStats, error) {
	mods, err := c.Modifications(ctx)
	if err != nil {
		return CommitStats{}, err
	}

	var st CommitStats
	churn := make([]entropy.FileChurn, 0, len(mods))
	for _, m := range mods {
		added, deleted, err := m.LineStats(ctx)
		if err != nil {
			return CommitStats{}, err
		}
		st.Insertions += added
		st.Deletions += deleted
		churn = append(churn, entropy.FileChurn{Path: m.Path(), Added: added, Deleted: deleted})
	}
	st.Files = len(mods)
	st.Lines = st.Insertions + st.Deletions
	st.Entropy = entropy.Normalized(churn)
	return st, nil
}
