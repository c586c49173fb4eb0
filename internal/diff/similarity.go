package diff

// Similarity scores how much of two file versions is shared, from 0 to 100.
// The score is the byte size of unchanged lines relative to the larger version,
// which is how git estimates rename similarity.
func Similarity(oldData, newData []byte) int {
	if len(oldData) == 0 && len(newData) == 0 {
		return 100
	}
	if len(oldData) == 0 || len(newData) == 0 {
		return 0
	}

	shared := 0
	for _, l := range Lines(string(oldData), string(newData)) {
		if l.Op == Equal {
			shared += len(l.Text)
		}
	}

	larger := len(oldData)
	if len(newData) > larger {
		larger = len(newData)
	}
	return shared * 100 / larger
}
