package backend

import (
	"testing"
	"time"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record("analyze-pages", ms(100))
	stats.Record("analyze-pages", ms(200))
	stats.Record("upload-chunk", ms(300))
	stats.Record("upload-chunk", ms(400))
	stats.Record("upload-chunk", ms(500))

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 {
		t.Fatalf("expected min=100, got %d", snap.MinMs)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestStatsBreakdownByOp(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record("analyze-pages", ms(100))
	stats.Record("analyze-pages", ms(300))
	stats.Record("upload-chunk", ms(50))

	snap := stats.Snapshot()
	if len(snap.ByOp) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(snap.ByOp))
	}
	analyze := snap.ByOp["analyze-pages"]
	if analyze.Count != 2 || analyze.AvgMs != 200 {
		t.Fatalf("unexpected analyze-pages stats: %+v", analyze)
	}
	if snap.ByOp["upload-chunk"].MaxMs != 50 {
		t.Fatalf("unexpected upload-chunk stats: %+v", snap.ByOp["upload-chunk"])
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewStats(10 * time.Millisecond)
	stats.Record("analysis", ms(100))
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	if snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record("analysis", ms(200))
	snap = stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record("analysis", -ms(10))
	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}
