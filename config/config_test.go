package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Repository.Path != "." {
		t.Errorf("Repository.Path = %q, expected \".\"", cfg.Repository.Path)
	}
	if cfg.Repository.Backend != "go-git" {
		t.Errorf("Repository.Backend = %q, expected go-git", cfg.Repository.Backend)
	}
	if cfg.Traversal.Order != "newest" {
		t.Errorf("Traversal.Order = %q, expected newest", cfg.Traversal.Order)
	}
	if cfg.Traversal.MergePolicy != "first-parent" {
		t.Errorf("Traversal.MergePolicy = %q, expected first-parent", cfg.Traversal.MergePolicy)
	}
	if cfg.Diff.Context != 3 {
		t.Errorf("Diff.Context = %d, expected 3", cfg.Diff.Context)
	}
	if cfg.Diff.RenameThreshold != 50 {
		t.Errorf("Diff.RenameThreshold = %d, expected 50", cfg.Diff.RenameThreshold)
	}
	if cfg.Diff.RenameLimit != 1000 {
		t.Errorf("Diff.RenameLimit = %d, expected 1000", cfg.Diff.RenameLimit)
	}
	if cfg.Diff.BinarySniffLength != 8000 {
		t.Errorf("Diff.BinarySniffLength = %d, expected 8000", cfg.Diff.BinarySniffLength)
	}
	if cfg.Diff.DetectCopies || cfg.Diff.DisableRenames {
		t.Error("copies and disabled renames should be off by default")
	}
	if cfg.Output.Format != "console" {
		t.Errorf("Output.Format = %q, expected console", cfg.Output.Format)
	}
	if cfg.Coupling.MinCoCommits != 3 || cfg.Coupling.MinJaccardThreshold != 0.1 {
		t.Errorf("Coupling = %+v, expected minCoCommits 3 and jaccard 0.1", cfg.Coupling)
	}
	if cfg.Coupling.MaxFilesPerCommit != 50 || cfg.Coupling.TopPairs != 50 {
		t.Errorf("Coupling = %+v, expected 50 files per commit and 50 pairs", cfg.Coupling)
	}
	if len(cfg.Bugfix.Patterns) != 4 {
		t.Errorf("Bugfix.Patterns = %v, expected 4 default patterns", cfg.Bugfix.Patterns)
	}
	if cfg.Burst.WindowDays != 7 {
		t.Errorf("Burst.WindowDays = %d, expected 7", cfg.Burst.WindowDays)
	}
	if cfg.Memcheck.MaxMemoryMB != 512 {
		t.Errorf("Memcheck.MaxMemoryMB = %g, expected 512", cfg.Memcheck.MaxMemoryMB)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestMemcheckConfig_Limits(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty", value: "", want: 0},
		{name: "minutes", value: "5m", want: 5 * time.Minute},
		{name: "padded", value: " 90s ", want: 90 * time.Second},
		{name: "garbage", value: "soon", wantErr: true},
		{name: "negative", value: "-1m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MemcheckConfig{MaxDiffDuration: tt.value, MaxComplexityDuration: tt.value}
			for _, get := range []func() (time.Duration, error){m.DiffLimit, m.ComplexityLimit} {
				got, err := get()
				if tt.wantErr {
					if err == nil {
						t.Errorf("expected error for %q", tt.value)
					}
					continue
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("got %v, expected %v", got, tt.want)
				}
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{name: "threshold above 100", mutate: func(c *Config) { c.Diff.RenameThreshold = 101 }, errSub: "renameThreshold"},
		{name: "negative context", mutate: func(c *Config) { c.Diff.Context = -1 }, errSub: "context"},
		{name: "negative workers", mutate: func(c *Config) { c.Complexity.Workers = -2 }, errSub: "workers"},
		{name: "negative top", mutate: func(c *Config) { c.Output.Top = -1 }, errSub: "top"},
		{name: "jaccard above 1", mutate: func(c *Config) { c.Coupling.MinJaccardThreshold = 1.5 }, errSub: "minJaccardThreshold"},
		{name: "negative burst window", mutate: func(c *Config) { c.Burst.WindowDays = -7 }, errSub: "windowDays"},
		{name: "negative memory", mutate: func(c *Config) { c.Memcheck.MaxMemoryMB = -1 }, errSub: "maxMemoryMB"},
		{name: "bad duration", mutate: func(c *Config) { c.Memcheck.MaxComplexityDuration = "later" }, errSub: "maxComplexityDuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() = %v, expected error mentioning %q", err, tt.errSub)
			}
		})
	}
}

func TestLoadConfig_MergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	data := `{"traversal": {"order": "topo"}, "diff": {"renameThreshold": 70}, "filters": {"include": ["src/**"]}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Traversal.Order != "topo" {
		t.Errorf("Traversal.Order = %q, expected topo", cfg.Traversal.Order)
	}
	if cfg.Diff.RenameThreshold != 70 {
		t.Errorf("Diff.RenameThreshold = %d, expected 70", cfg.Diff.RenameThreshold)
	}
	if cfg.Diff.RenameLimit != 1000 {
		t.Errorf("Diff.RenameLimit = %d, expected default 1000", cfg.Diff.RenameLimit)
	}
	if cfg.Traversal.MergePolicy != "first-parent" {
		t.Errorf("Traversal.MergePolicy = %q, expected default", cfg.Traversal.MergePolicy)
	}
	if !reflect.DeepEqual(cfg.Filters.Include, []string{"src/**"}) {
		t.Errorf("Filters.Include = %v", cfg.Filters.Include)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	missing, err := LoadConfig(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if !reflect.DeepEqual(missing, DefaultConfig()) {
		t.Error("missing file should return defaults")
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(broken); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"diff": {"renameThreshold": 500}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(invalid); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "json"
	cfg.Complexity.Languages = []string{"go", "python"}
	cfg.Memcheck.Since = "2024-01-01"

	path := filepath.Join(t.TempDir(), FileName)
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}
