package complexity

import "bytes"

// countLines counts the number of lines in content.
// An empty file has 0 lines. A file with no trailing newline still counts its last line.
func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	count := bytes.Count(content, []byte{'\n'})
	// If the last byte is not a newline, there's one more line
	if content[len(content)-1] != '\n' {
		count++
	}
	return count
}
