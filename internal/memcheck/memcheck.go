// Package memcheck traverses one window of history in increasingly expensive
// consumption modes and checks that memory stays bounded and that every mode
// sees the same commits.
package memcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/masmgr/repominer/internal/git"
	"github.com/masmgr/repominer/internal/miner"
)

// Mode is how much of each commit is consumed.
type Mode int

const (
	// ModeMetadata reads commit metadata only.
	ModeMetadata Mode = iota
	// ModeDiffs also renders the diff of every modification.
	ModeDiffs
	// ModeComplexity also computes the complexity of every modification.
	ModeComplexity
)

func (m Mode) String() string {
	switch m {
	case ModeMetadata:
		return "metadata"
	case ModeDiffs:
		return "diffs"
	case ModeComplexity:
		return "diffs+complexity"
	default:
		return "unknown"
	}
}

// Modes lists every mode from cheapest to most expensive.
func Modes() []Mode {
	return []Mode{ModeMetadata, ModeDiffs, ModeComplexity}
}

// Config is the explicit input of a run.
type Config struct {
	Window  miner.Window
	Options miner.Options
	// MaxMemoryMB is the allowed peak heap in use; 0 disables the check.
	MaxMemoryMB float64
	// MaxDiffDuration and MaxComplexityDuration bound the two expensive modes; 0 disables.
	MaxDiffDuration       time.Duration
	MaxComplexityDuration time.Duration
	Logger                logrus.FieldLogger
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Result is the outcome of one mode.
type Result struct {
	Mode         Mode
	Commits      int
	MinHeapBytes uint64
	MaxHeapBytes uint64
	Duration     time.Duration
}

// CommitsPerSecond returns the throughput of the run.
func (r Result) CommitsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Commits) / r.Duration.Seconds()
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %s commits in %s (%.1f commits/s), heap %s - %s",
		r.Mode, humanize.Comma(int64(r.Commits)), r.Duration.Round(time.Millisecond), r.CommitsPerSecond(),
		humanize.IBytes(r.MinHeapBytes), humanize.IBytes(r.MaxHeapBytes))
}

// Run traverses the window once in mode, sampling the heap after every commit.
func Run(ctx context.Context, acc git.Accessor, cfg Config, mode Mode) (Result, error) {
	log := cfg.logger().WithField("mode", mode.String())
	opts := cfg.Options
	if opts.Logger == nil {
		opts.Logger = cfg.Logger
	}

	tr, err := miner.Traverse(ctx, acc, cfg.Window, opts)
	if err != nil {
		return Result{}, err
	}

	res := Result{Mode: mode}
	var ms runtime.MemStats
	start := time.Now()
	err = tr.ForEach(ctx, func(c *miner.Commit) error {
		if err := consume(ctx, c, mode); err != nil {
			return fmt.Errorf("commit %s: %w", c.ShortHash(), err)
		}
		res.Commits++

		runtime.ReadMemStats(&ms)
		if res.Commits == 1 || ms.HeapInuse < res.MinHeapBytes {
			res.MinHeapBytes = ms.HeapInuse
		}
		if ms.HeapInuse > res.MaxHeapBytes {
			res.MaxHeapBytes = ms.HeapInuse
		}
		return nil
	})
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	log.WithFields(logrus.Fields{
		"commits":  res.Commits,
		"duration": res.Duration,
		"maxHeap":  humanize.IBytes(res.MaxHeapBytes),
	}).Info("memory check finished")
	return res, nil
}

func consume(ctx context.Context, c *miner.Commit, mode Mode) error {
	_ = c.Subject()
	if mode == ModeMetadata {
		return nil
	}
	if mode == ModeComplexity {
		if err := c.AnalyzeComplexity(ctx); err != nil {
			return err
		}
	}
	mods, err := c.Modifications(ctx)
	if err != nil {
		return err
	}
	for _, m := range mods {
		if _, err := m.Diff(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunAll runs every mode in order. A failing mode stops the sequence.
func RunAll(ctx context.Context, acc git.Accessor, cfg Config) ([]Result, error) {
	results := make([]Result, 0, len(Modes()))
	for _, mode := range Modes() {
		res, err := Run(ctx, acc, cfg, mode)
		if err != nil {
			return results, fmt.Errorf("%s: %w", mode, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// ViolationKind classifies a failed check.
type ViolationKind int

const (
	CountMismatch ViolationKind = iota
	MemoryExceeded
	DurationExceeded
)

func (k ViolationKind) String() string {
	switch k {
	case CountMismatch:
		return "count-mismatch"
	case MemoryExceeded:
		return "memory-exceeded"
	case DurationExceeded:
		return "duration-exceeded"
	default:
		return "unknown"
	}
}

// Violation is one failed check. Fatal violations mean the traversal is wrong or
// unbounded; the others are performance reports.
type Violation struct {
	Kind    ViolationKind
	Mode    Mode
	Message string
	Fatal   bool
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s (%s): %s", v.Kind, v.Mode, v.Message)
}

// ErrCheckFailed is returned by Fatal when a fatal violation is present.
var ErrCheckFailed = errors.New("memory check failed")

// Check compares results against each other and against the configured limits.
// Differing commit counts are always fatal.
func Check(results []Result, cfg Config) []Violation {
	var out []Violation
	for i := 1; i < len(results); i++ {
		if results[i].Commits != results[0].Commits {
			out = append(out, Violation{
				Kind:  CountMismatch,
				Mode:  results[i].Mode,
				Fatal: true,
				Message: fmt.Sprintf("%d commits, %s saw %d",
					results[i].Commits, results[0].Mode, results[0].Commits),
			})
		}
	}

	limit := uint64(cfg.MaxMemoryMB * 1024 * 1024)
	for _, r := range results {
		if limit > 0 && r.MaxHeapBytes > limit {
			out = append(out, Violation{
				Kind:  MemoryExceeded,
				Mode:  r.Mode,
				Fatal: true,
				Message: fmt.Sprintf("peak heap %s above limit %s",
					humanize.IBytes(r.MaxHeapBytes), humanize.IBytes(limit)),
			})
		}

		var maxDur time.Duration
		switch r.Mode {
		case ModeDiffs:
			maxDur = cfg.MaxDiffDuration
		case ModeComplexity:
			maxDur = cfg.MaxComplexityDuration
		}
		if maxDur > 0 && r.Duration > maxDur {
			out = append(out, Violation{
				Kind:    DurationExceeded,
				Mode:    r.Mode,
				Message: fmt.Sprintf("took %s, limit %s", r.Duration.Round(time.Millisecond), maxDur),
			})
		}
	}
	return out
}

// Fatal returns an error wrapping ErrCheckFailed if any violation is fatal.
func Fatal(violations []Violation) error {
	for _, v := range violations {
		if v.Fatal {
			return fmt.Errorf("%w: %s", ErrCheckFailed, v.Error())
		}
	}
	return nil
}
