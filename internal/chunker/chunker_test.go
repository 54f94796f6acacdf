package chunker

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dgallion1/quizdoc/internal/parser"
)

func TestPlan_TotalChunks(t *testing.T) {
	tests := []struct {
		size, chunk int64
		want        int
	}{
		{1, 1, 1},
		{10, 3, 4},
		{9, 3, 3},
		{5, 100, 1},
		{1 << 20, 1 << 18, 4},
		{(1 << 20) + 1, 1 << 18, 5},
	}
	for _, tc := range tests {
		ranges, err := Plan(tc.size, tc.chunk)
		if err != nil {
			t.Fatalf("Plan(%d, %d): %v", tc.size, tc.chunk, err)
		}
		if len(ranges) != tc.want {
			t.Errorf("Plan(%d, %d): expected %d chunks, got %d", tc.size, tc.chunk, tc.want, len(ranges))
		}
		if TotalChunks(tc.size, tc.chunk) != tc.want {
			t.Errorf("TotalChunks(%d, %d) = %d", tc.size, tc.chunk, TotalChunks(tc.size, tc.chunk))
		}
	}
}

func TestPlan_RangesReconstructFile(t *testing.T) {
	data := []byte(strings.Repeat("0123456789abcdef", 64) + "tail")
	ranges, err := Plan(int64(len(data)), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rebuilt bytes.Buffer
	for i, r := range ranges {
		if r.Index != i {
			t.Errorf("range %d has index %d", i, r.Index)
		}
		if i < len(ranges)-1 && r.Len() != 100 {
			t.Errorf("range %d has length %d", i, r.Len())
		}
		rebuilt.Write(data[r.Start:r.End])
	}
	if !bytes.Equal(rebuilt.Bytes(), data) {
		t.Error("concatenated ranges do not reconstruct the file")
	}
	if last := ranges[len(ranges)-1]; last.Len() != int64(len(data)%100) {
		t.Errorf("last range length %d", last.Len())
	}
}

func TestPlan_Invalid(t *testing.T) {
	if _, err := Plan(0, 10); err == nil {
		t.Error("expected error for empty file")
	}
	if _, err := Plan(10, 0); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := Plan(10, -5); err == nil {
		t.Error("expected error for negative chunk size")
	}
}

func page(n int, words int) parser.Page {
	return parser.Page{PageNumber: n, Text: strings.TrimSpace(strings.Repeat("word ", words))}
}

func TestBatchPages_RespectsBudget(t *testing.T) {
	// 30 words ~ 39 tokens per page.
	pages := []parser.Page{page(1, 30), page(2, 30), page(3, 30), page(4, 30), page(5, 30)}
	batches := BatchPages(pages, 100)

	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	next := 1
	for i, b := range batches {
		tokens := 0
		for _, p := range b {
			if p.PageNumber != next {
				t.Errorf("batch %d: expected page %d, got %d", i, next, p.PageNumber)
			}
			next++
			tokens += EstimateTokens(p.Text)
		}
		if tokens > 100 {
			t.Errorf("batch %d has %d tokens, over budget", i, tokens)
		}
	}
}

func TestBatchPages_OversizedPageAlone(t *testing.T) {
	pages := []parser.Page{page(1, 10), page(2, 500), page(3, 10)}
	batches := BatchPages(pages, 100)

	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[1]) != 1 || batches[1][0].PageNumber != 2 {
		t.Errorf("expected oversized page 2 alone, got %v", batches[1])
	}
}

func TestBatchPages_Empty(t *testing.T) {
	if got := BatchPages(nil, 100); len(got) != 0 {
		t.Errorf("expected no batches, got %d", len(got))
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("empty text should be 0 tokens")
	}
	if EstimateTokens("a") != 1 {
		t.Errorf("single word = %d", EstimateTokens("a"))
	}
	if got := EstimateTokens(strings.Repeat("word ", 100)); got != 133 {
		t.Errorf("100 words = %d, want 133", got)
	}
}
