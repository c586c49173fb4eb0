package output

import (
	"time"

	"github.com/masmgr/repominer/internal/complexity"
	"github.com/masmgr/repominer/internal/miner"
)

var testTime = time.Date(2024, 2, 3, 4, 5, 6, 0, time.FixedZone("", 3600))

func sampleRecords() []*CommitRecord {
	delta := 2
	return []*CommitRecord{
		{
			Hash:        "1111111111111111111111111111111111111111",
			Author:      "Alice",
			AuthorEmail: "alice@example.com",
			AuthoredAt:  testTime,
			CommittedAt: testTime,
			Subject:     "add parser | with pipes",
			Message:     "add parser | with pipes\n\nbody line\n",
			Parents:     []string{"0000000000000000000000000000000000000001"},
			Refs:        []string{"main"},
			Stats:       &miner.CommitStats{Files: 2, Insertions: 5, Deletions: 1, Lines: 6, Entropy: 0.65},
			Files: []FileRecord{
				{
					Path: "parser.go", Kind: "modified", Added: 4, Deleted: 1, Language: "go",
					Complexity:      &complexity.Report{Language: complexity.Go, CyclomaticComplexity: 3},
					ComplexityDelta: &delta,
					Diff:            "@@ -1 +1,4 @@\n-old\n+new\n+a\n+b\n+c\n",
				},
				{Path: "docs/new.md", OldPath: "docs/old.md", Kind: "renamed", Similarity: 90, Added: 1},
			},
		},
		{
			Hash:        "2222222222222222222222222222222222222222",
			Author:      "Bob",
			AuthorEmail: "bob@example.com",
			AuthoredAt:  testTime.Add(-time.Hour),
			CommittedAt: testTime.Add(-time.Hour),
			Subject:     "merge feature",
			Message:     "merge feature\n",
			Parents:     []string{"0000000000000000000000000000000000000002", "0000000000000000000000000000000000000003"},
			Merge:       true,
		},
	}
}

func writeAll(w CommitWriter, recs []*CommitRecord) (Summary, error) {
	var s Summary
	since := testTime.Add(-24 * time.Hour)
	if err := w.Begin(Header{RepoPath: "/repo", Branch: "main", Since: &since, GeneratedAt: testTime}); err != nil {
		return s, err
	}
	for _, rec := range recs {
		if err := w.WriteCommit(rec); err != nil {
			return s, err
		}
		s.Add(rec)
	}
	return s, w.End(s)
}
