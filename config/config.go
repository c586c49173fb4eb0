package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileName is the configuration file looked up in the working and home directories.
const FileName = ".repominer.json"

// Config is the root configuration structure.
type Config struct {
	Repository RepositoryConfig `json:"repository"`
	Traversal  TraversalConfig  `json:"traversal"`
	Diff       DiffConfig       `json:"diff"`
	Complexity ComplexityConfig `json:"complexity"`
	Filters    FilterConfig     `json:"filters"`
	Output     OutputConfig     `json:"output"`
	Coupling   CouplingConfig   `json:"coupling"`
	Bugfix     BugfixConfig     `json:"bugfix"`
	Burst      BurstConfig      `json:"burst"`
	Memcheck   MemcheckConfig   `json:"memcheck"`
}

// RepositoryConfig selects the repository and how it is read.
type RepositoryConfig struct {
	Path     string `json:"path"`     // Local path or clone URL. Default: "."
	Backend  string `json:"backend"`  // "go-git" or "git". Default: "go-git"
	CloneDir string `json:"cloneDir"` // Parent directory for clones of remote repositories
}

// TraversalConfig holds defaults for the commit window.
type TraversalConfig struct {
	Order       string `json:"order"`       // newest, oldest or topo. Default: "newest"
	Branch      string `json:"branch"`      // Empty walks the default branch
	AllBranches bool   `json:"allBranches"`
	MergePolicy string `json:"mergePolicy"` // first-parent or all-parents. Default: "first-parent"
	NoMerges    bool   `json:"noMerges"`
}

// DiffConfig tunes modification and diff computation.
type DiffConfig struct {
	Context           int  `json:"context"`           // Default: 3
	DisableRenames    bool `json:"disableRenames"`
	RenameThreshold   int  `json:"renameThreshold"`   // Default: 50
	RenameLimit       int  `json:"renameLimit"`       // Default: 1000
	DetectCopies      bool `json:"detectCopies"`
	BinarySniffLength int  `json:"binarySniffLength"` // Default: 8000
}

// ComplexityConfig tunes complexity analysis.
type ComplexityConfig struct {
	Workers   int      `json:"workers"`   // 0 uses GOMAXPROCS
	Languages []string `json:"languages"` // Empty enables every supported language
}

// FilterConfig holds file path filtering options.
type FilterConfig struct {
	Include   []string `json:"include"`
	Exclude   []string `json:"exclude"`
	FileTypes []string `json:"fileTypes"`
	Path      string   `json:"path"`
	Authors   []string `json:"authors"`
}

// OutputConfig holds report defaults.
type OutputConfig struct {
	Format     string `json:"format"` // console, json, csv, markdown or ci. Default: "console"
	Top        int    `json:"top"`    // 0 streams every commit
	WithDiff   bool   `json:"withDiff"`
	MaxMessage int    `json:"maxMessage"` // Subject truncation in tabular formats. Default: 72
}

// CouplingConfig holds co-change analysis options.
type CouplingConfig struct {
	MinCoCommits        int     `json:"minCoCommits"`
	MinJaccardThreshold float64 `json:"minJaccardThreshold"`
	MaxFilesPerCommit   int     `json:"maxFilesPerCommit"`
	TopPairs            int     `json:"topPairs"`
}

// BugfixConfig holds bugfix detection configuration.
type BugfixConfig struct {
	Patterns []string `json:"patterns"` // Case-insensitive regexes matched against commit messages
}

// BurstConfig sets the sliding window of the burst metric.
type BurstConfig struct {
	WindowDays int `json:"windowDays"` // Default: 7
}

// MemcheckConfig holds the memory harness window and limits.
type MemcheckConfig struct {
	Since                 string  `json:"since"` // YYYY-MM-DD or RFC3339
	To                    string  `json:"to"`
	MaxMemoryMB           float64 `json:"maxMemoryMB"`           // Default: 512
	MaxDiffDuration       string  `json:"maxDiffDuration"`       // Go duration, e.g. "5m"
	MaxComplexityDuration string  `json:"maxComplexityDuration"` // Go duration, e.g. "10m"
}

// DiffLimit parses MaxDiffDuration; empty means no limit.
func (m MemcheckConfig) DiffLimit() (time.Duration, error) {
	return parseDuration("maxDiffDuration", m.MaxDiffDuration)
}

// ComplexityLimit parses MaxComplexityDuration; empty means no limit.
func (m MemcheckConfig) ComplexityLimit() (time.Duration, error) {
	return parseDuration("maxComplexityDuration", m.MaxComplexityDuration)
}

func parseDuration(field, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("memcheck.%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("memcheck.%s: negative duration %s", field, s)
	}
	return d, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Path:    ".",
			Backend: "go-git",
		},
		Traversal: TraversalConfig{
			Order:       "newest",
			MergePolicy: "first-parent",
		},
		Diff: DiffConfig{
			Context:           3,
			RenameThreshold:   50,
			RenameLimit:       1000,
			BinarySniffLength: 8000,
		},
		Complexity: ComplexityConfig{
			Languages: []string{},
		},
		Filters: FilterConfig{
			Include:   []string{},
			Exclude:   []string{},
			FileTypes: []string{},
			Authors:   []string{},
		},
		Output: OutputConfig{
			Format:     "console",
			MaxMessage: 72,
		},
		Coupling: CouplingConfig{
			MinCoCommits:        3,
			MinJaccardThreshold: 0.1,
			MaxFilesPerCommit:   50,
			TopPairs:            50,
		},
		Bugfix: BugfixConfig{
			Patterns: []string{
				`\bfix(ed|es)?\b`,
				`\bbug\b`,
				`\bhotfix\b`,
				`\bpatch\b`,
			},
		},
		Burst: BurstConfig{
			WindowDays: 7,
		},
		Memcheck: MemcheckConfig{
			MaxMemoryMB:           512,
			MaxDiffDuration:       "5m",
			MaxComplexityDuration: "10m",
		},
	}
}

// Validate reports values that cannot be right whatever the command.
func (c *Config) Validate() error {
	if c.Diff.RenameThreshold < 0 || c.Diff.RenameThreshold > 100 {
		return fmt.Errorf("diff.renameThreshold must be within 0-100, got %d", c.Diff.RenameThreshold)
	}
	if c.Diff.Context < 0 {
		return fmt.Errorf("diff.context must not be negative, got %d", c.Diff.Context)
	}
	if c.Complexity.Workers < 0 {
		return fmt.Errorf("complexity.workers must not be negative, got %d", c.Complexity.Workers)
	}
	if c.Output.Top < 0 {
		return fmt.Errorf("output.top must not be negative, got %d", c.Output.Top)
	}
	if c.Coupling.MinJaccardThreshold < 0 || c.Coupling.MinJaccardThreshold > 1 {
		return fmt.Errorf("coupling.minJaccardThreshold must be within 0-1, got %g", c.Coupling.MinJaccardThreshold)
	}
	if c.Burst.WindowDays < 0 {
		return fmt.Errorf("burst.windowDays must not be negative, got %d", c.Burst.WindowDays)
	}
	if c.Memcheck.MaxMemoryMB < 0 {
		return fmt.Errorf("memcheck.maxMemoryMB must not be negative, got %g", c.Memcheck.MaxMemoryMB)
	}
	if _, err := c.Memcheck.DiffLimit(); err != nil {
		return err
	}
	if _, err := c.Memcheck.ComplexityLimit(); err != nil {
		return err
	}
	return nil
}

// LoadConfig loads configuration from a file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		candidates := []string{FileName}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			candidates = append(candidates, filepath.Join(home, FileName))
		} else if envHome := os.Getenv("HOME"); envHome != "" {
			candidates = append(candidates, filepath.Join(envHome, FileName))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
