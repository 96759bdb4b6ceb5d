package scanner

import (
	"bytes"
	"sort"
)

// LineIndex maps byte offsets to 1-based line numbers.
type LineIndex []int

func NewLineIndex(content []byte) LineIndex {
	starts := LineIndex{0}
	for i := 0; ; {
		j := bytes.IndexByte(content[i:], '\n')
		if j < 0 {
			break
		}
		i += j + 1
		starts = append(starts, i)
	}
	return starts
}

func (idx LineIndex) Line(offset int) int {
	return sort.Search(len(idx), func(i int) bool { return idx[i] > offset })
}
