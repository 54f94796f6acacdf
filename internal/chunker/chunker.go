package chunker

import (
	"fmt"

	"github.com/dgallion1/quizdoc/internal/parser"
)

// Range is the byte span [Start, End) of one upload chunk.
type Range struct {
	Index int
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 { return r.End - r.Start }

// Plan splits a file of size bytes into ceil(size/chunkSize) consecutive
// ranges. The last range may be short. Concatenating the ranges in order
// covers [0, size) exactly.
func Plan(size, chunkSize int64) ([]Range, error) {
	if size <= 0 {
		return nil, fmt.Errorf("file is empty")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	total := TotalChunks(size, chunkSize)
	ranges := make([]Range, total)
	for i := range ranges {
		start := int64(i) * chunkSize
		ranges[i] = Range{
			Index: i,
			Start: start,
			End:   min(start+chunkSize, size),
		}
	}
	return ranges, nil
}

// TotalChunks is ceil(size/chunkSize).
func TotalChunks(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// BatchPages groups consecutive pages so each batch stays within maxTokens.
// Pages are never split: a page that alone exceeds the budget becomes its
// own batch. Order is preserved.
func BatchPages(pages []parser.Page, maxTokens int) [][]parser.Page {
	if maxTokens <= 0 {
		maxTokens = 6000
	}

	var batches [][]parser.Page
	var current []parser.Page
	currentTokens := 0

	for _, p := range pages {
		tokens := EstimateTokens(p.Text)

		// Would adding this page exceed the budget?
		if currentTokens+tokens > maxTokens && len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}

		current = append(current, p)
		currentTokens += tokens
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
