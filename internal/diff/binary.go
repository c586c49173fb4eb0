package diff

import "bytes"

// SniffLen is how many leading bytes IsBinary inspects, matching git's heuristic.
const SniffLen = 8000

// IsBinary reports whether data looks binary: a NUL byte within the first
// limit bytes. A non-positive limit uses SniffLen.
func IsBinary(data []byte, limit int) bool {
	if limit <= 0 {
		limit = SniffLen
	}
	if len(data) > limit {
		data = data[:limit]
	}
	return bytes.IndexByte(data, 0) != -1
}
