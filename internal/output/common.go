package output

import (
	"io"
	"os"
	"strings"
	"time"
)

const (
	reportDateLayout     = "2006-01-02"
	reportDateTimeLayout = "2006-01-02T15:04:05"
	gitDateLayout        = "Mon Jan 2 15:04:05 2006 -0700"
)

func dateRangeLabelAndValue(since, until *time.Time) (string, string) {
	switch {
	case since != nil && until != nil:
		return "Period", since.Format(reportDateLayout) + " to " + until.Format(reportDateLayout)
	case since != nil:
		return "Since", since.Format(reportDateLayout)
	case until != nil:
		return "Until", until.Format(reportDateLayout)
	default:
		return "", ""
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(reportDateLayout)
	return &formatted
}

// OpenOutput returns stdout, or a created file when outputPath is set. The
// returned close function is always safe to call.
func OpenOutput(outputPath string) (io.Writer, func() error, error) {
	if outputPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}
	return msg[:maxLen-3] + "..."
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}

// kindSymbol is the one-letter status git uses for a change kind.
func kindSymbol(kind string) string {
	switch kind {
	case "added":
		return "A"
	case "deleted":
		return "D"
	case "renamed":
		return "R"
	case "copied":
		return "C"
	default:
		return "M"
	}
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
