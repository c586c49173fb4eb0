package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/masmgr/repominer/config"
	"github.com/masmgr/repominer/internal/bugfix"
	"github.com/masmgr/repominer/internal/git"
	"github.com/masmgr/repominer/internal/gittest"
	"github.com/masmgr/repominer/internal/miner"
	"github.com/masmgr/repominer/internal/output"
)

func linearHistory(t *testing.T, n int) *git.MockAccessor {
	t.Helper()
	acc := git.NewMockAccessor()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var parents []git.Hash
	for i := 0; i < n; i++ {
		sig := git.Signature{Name: "Dev", Email: "dev@example.com", When: start.Add(time.Duration(i) * time.Hour)}
		id := acc.AddCommit(git.MockCommit{
			Parents:   parents,
			Author:    sig,
			Committer: sig,
			Message:   fmt.Sprintf("change %d", i),
			Files:     map[string]string{"file.txt": strings.Repeat("x\n", i+1)},
		})
		parents = []git.Hash{id}
	}
	acc.SetBranch("main", parents[0])
	return acc
}

// ndjsonTypes returns the "type" field of every NDJSON line.
func ndjsonTypes(t *testing.T, data []byte) []string {
	t.Helper()
	var types []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var line struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", sc.Text(), err)
		}
		types = append(types, line.Type)
	}
	return types
}

func TestStreamCommits(t *testing.T) {
	tests := []struct {
		name      string
		top       int
		recOpts   output.RecordOptions
		wantTypes []string
	}{
		{
			name:      "MetadataOnly",
			wantTypes: []string{"commit", "commit", "commit", "summary"},
		},
		{
			name:      "Top",
			top:       2,
			wantTypes: []string{"commit", "commit", "summary"},
		},
		{
			name:      "WithFiles",
			top:       1,
			recOpts:   output.RecordOptions{Files: true},
			wantTypes: []string{"commit", "file", "summary"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := linearHistory(t, 3)
			var buf bytes.Buffer
			writer := output.NewCommitWriter(output.FormatCI, &buf)

			summary, err := streamCommits(context.Background(), acc, miner.Window{}, miner.Options{},
				writer, output.Header{}, tt.recOpts, tt.top)
			if err != nil {
				t.Fatalf("streamCommits: %v", err)
			}
			got := ndjsonTypes(t, buf.Bytes())
			if strings.Join(got, ",") != strings.Join(tt.wantTypes, ",") {
				t.Fatalf("lines = %v, want %v", got, tt.wantTypes)
			}
			if summary.Commits != len(tt.wantTypes)-1-countOf(got, "file") {
				t.Errorf("summary.Commits = %d", summary.Commits)
			}
			if !tt.recOpts.Files && acc.Calls(git.MethodTreeEntriesOf) != 0 {
				t.Errorf("metadata-only stream read %d trees", acc.Calls(git.MethodTreeEntriesOf))
			}
		})
	}
}

func countOf(items []string, s string) int {
	n := 0
	for _, it := range items {
		if it == s {
			n++
		}
	}
	return n
}

func TestStreamCommits_InvalidWindow(t *testing.T) {
	acc := linearHistory(t, 1)
	var buf bytes.Buffer
	writer := output.NewCommitWriter(output.FormatCI, &buf)

	_, err := streamCommits(context.Background(), acc, miner.Window{Branch: "main", AllBranches: true},
		miner.Options{}, writer, output.Header{}, output.RecordOptions{}, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written for an invalid window, got %q", buf.String())
	}
}

func TestApp_LogAndShow(t *testing.T) {
	repo := gittest.New(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.Write("main.go", "package main\n\nfunc main() {}\n")
	repo.Commit("initial", base)
	repo.Write("main.go", "package main\n\nfunc main() {\n\tif len(args) > 0 {\n\t\trun()\n\t}\n}\n")
	head := repo.Commit("add branch", base.Add(time.Hour))

	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	outDir := t.TempDir()

	logPath := filepath.Join(outDir, "log.ndjson")
	err := App().Run([]string{"repominer", "log", "--repo", repo.Dir, "--format", "ci", "--stat", "--output", logPath})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(ndjsonTypes(t, data), ","); got != "commit,file,commit,file,summary" {
		t.Fatalf("log lines = %s", got)
	}

	showPath := filepath.Join(outDir, "show.json")
	err = App().Run([]string{"repominer", "show", "--repo", repo.Dir, "--commit", head.String()[:10],
		"--format", "json", "--output", showPath})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	data, err = os.ReadFile(showPath)
	if err != nil {
		t.Fatal(err)
	}
	var report output.JSONReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode show output: %v", err)
	}
	if len(report.Commits) != 1 || report.Commits[0].Hash != head.String() {
		t.Fatalf("show commits = %+v", report.Commits)
	}
	files := report.Commits[0].Files
	if len(files) != 1 || files[0].Path != "main.go" || files[0].ComplexityDelta == nil || *files[0].ComplexityDelta != 1 {
		t.Fatalf("show files = %+v", files)
	}
	if files[0].Diff == "" {
		t.Error("show should include the diff")
	}
}

func TestCollectMetrics(t *testing.T) {
	acc := git.NewMockAccessor()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	messages := []string{"add a and b", "update both", "fix a, add c"}
	var parents []git.Hash
	for i, files := range []map[string]string{
		{"a.go": "1\n", "b.go": "1\n"},
		{"a.go": "2\n", "b.go": "2\n"},
		{"a.go": "3\n", "b.go": "2\n", "c.go": "c\n"},
	} {
		sig := git.Signature{Name: "Dev", Email: "dev@example.com", When: base.Add(time.Duration(i) * time.Hour)}
		parents = []git.Hash{acc.AddCommit(git.MockCommit{Parents: parents, Author: sig, Committer: sig,
			Message: messages[i], Files: files})}
	}
	acc.SetBranch("main", parents[0])

	cfg := config.DefaultConfig().Coupling
	cfg.MinCoCommits = 2
	detector, err := bugfix.NewDetector(config.DefaultConfig().Bugfix.Patterns)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	req := metricsRequest{Coupling: cfg, WithCoupling: true, Fixes: detector, BurstDays: 7, Top: 2}
	report, err := collectMetrics(context.Background(), acc, miner.Window{}, miner.Options{}, req)
	if err != nil {
		t.Fatalf("collectMetrics: %v", err)
	}
	if report.Commits != 3 {
		t.Errorf("Commits = %d, want 3", report.Commits)
	}
	if len(report.Files) != 2 || report.Files[0].Path != "a.go" || report.Files[0].Commits != 3 {
		t.Fatalf("Files = %+v", report.Files)
	}
	if report.Files[0].FixCommits != 1 || report.Files[0].Burst != 1 {
		t.Errorf("a.go fixes = %d burst = %f, want 1 and 1", report.Files[0].FixCommits, report.Files[0].Burst)
	}
	if report.Files[1].Path != "b.go" || report.Files[1].Commits != 2 {
		t.Errorf("second file = %+v", report.Files[1])
	}
	if len(report.Couplings) != 1 || report.Couplings[0].FileA != "a.go" || report.Couplings[0].FileB != "b.go" {
		t.Errorf("Couplings = %+v", report.Couplings)
	}
}

func TestApp_VersionFlag(t *testing.T) {
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	if err := app.Run([]string{"repominer", "--version"}); err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.Contains(out.String(), app.Version) {
		t.Errorf("version output = %q", out.String())
	}

	out.Reset()
	app = App()
	app.Writer = &out
	if err := app.Run([]string{"repominer", "-v"}); err != nil {
		t.Fatalf("-v: %v", err)
	}
	if !strings.Contains(out.String(), app.Version) {
		t.Errorf("-v output = %q, want the version", out.String())
	}
}
