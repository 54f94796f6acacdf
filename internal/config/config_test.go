package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("UPLOAD_CHUNK_BYTES", "")
	t.Setenv("FINALIZE_MODE", "")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "")

	cfg := Load()
	if !cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback enabled by default")
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.WorkerCount)
	}
	if cfg.UploadChunkBytes != 1<<20 {
		t.Errorf("expected 1MB chunks, got %d", cfg.UploadChunkBytes)
	}
	if cfg.FinalizeMode != "analysis" {
		t.Errorf("expected finalize mode analysis, got %q", cfg.FinalizeMode)
	}
	if cfg.LineHeight != 12 {
		t.Errorf("expected line height 12, got %f", cfg.LineHeight)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "5")
	t.Setenv("JOB_TTL", "30m")
	t.Setenv("LINE_HEIGHT", "14.5")
	t.Setenv("BACKEND_URL", "http://backend:9000/")

	cfg := Load()
	if cfg.WorkerCount != 5 {
		t.Errorf("expected 5 workers, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %s", cfg.JobTTL)
	}
	if cfg.LineHeight != 14.5 {
		t.Errorf("expected line height 14.5, got %f", cfg.LineHeight)
	}
	if cfg.BackendURL != "http://backend:9000" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
}

func TestLoad_NonPositiveFallsBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("LINES_PER_PAGE", "0")

	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Errorf("expected fallback 2 workers, got %d", cfg.WorkerCount)
	}
	if cfg.LinesPerPage != 40 {
		t.Errorf("expected fallback 40 lines per page, got %d", cfg.LinesPerPage)
	}
}

func TestValidate(t *testing.T) {
	base := Config{QuizdocAPIKey: "k", BackendURL: "http://b", FinalizeMode: "analysis"}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noKey := base
	noKey.QuizdocAPIKey = ""
	if noKey.Validate() == nil {
		t.Error("expected error for missing api key")
	}

	badMode := base
	badMode.FinalizeMode = "both"
	if badMode.Validate() == nil {
		t.Error("expected error for unknown finalize mode")
	}

	s3 := base
	s3.S3Endpoint = "minio:9000"
	if s3.Validate() == nil {
		t.Error("expected error for s3 endpoint without credentials")
	}
}
