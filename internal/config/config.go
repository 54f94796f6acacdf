package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	QuizdocAPIKey string

	// Analysis backend
	BackendURL     string
	BackendAPIKey  string
	BackendTimeout time.Duration

	// Chunked upload
	UploadChunkBytes int64
	FinalizeMode     string // "file_id" or "analysis"

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Extraction
	LineHeight           float64
	LinesPerPage         int
	StrictPDF            bool
	PDFFallbackPdftotext bool
	MaxBatchTokens       int

	// Registry and job state
	MaxDocuments int
	JobTTL       time.Duration

	// Blob storage (MinIO / S3). Empty endpoint keeps blobs in memory.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// Quiz results. Empty DSN keeps results in memory.
	ResultsDSN string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		QuizdocAPIKey: os.Getenv("QUIZDOC_API_KEY"),

		BackendURL:     strings.TrimRight(envOr("BACKEND_URL", "http://localhost:8000"), "/"),
		BackendAPIKey:  os.Getenv("BACKEND_API_KEY"),
		BackendTimeout: envDuration("BACKEND_TIMEOUT", 60*time.Second),

		UploadChunkBytes: envInt64("UPLOAD_CHUNK_BYTES", 1<<20), // 1MB
		FinalizeMode:     envOr("FINALIZE_MODE", "analysis"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		LineHeight:           envFloat("LINE_HEIGHT", 12),
		LinesPerPage:         envInt("LINES_PER_PAGE", 40),
		StrictPDF:            envBool("STRICT_PDF", false),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		MaxBatchTokens:       envInt("MAX_BATCH_TOKENS", 6000),

		MaxDocuments: envInt("MAX_DOCUMENTS", 256),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOr("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOr("S3_BUCKET", "quizdoc"),
		S3UseSSL:    envBool("S3_USE_SSL", false),

		ResultsDSN: os.Getenv("RESULTS_PG_DSN"),
	}

	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = 60 * time.Second
	}
	if cfg.UploadChunkBytes <= 0 {
		cfg.UploadChunkBytes = 1 << 20
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.LineHeight <= 0 {
		cfg.LineHeight = 12
	}
	if cfg.LinesPerPage <= 0 {
		cfg.LinesPerPage = 40
	}
	if cfg.MaxBatchTokens <= 0 {
		cfg.MaxBatchTokens = 6000
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = 256
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.QuizdocAPIKey == "" {
		return fmt.Errorf("QUIZDOC_API_KEY is required")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.FinalizeMode != "file_id" && c.FinalizeMode != "analysis" {
		return fmt.Errorf("FINALIZE_MODE must be file_id or analysis, got %q", c.FinalizeMode)
	}
	if c.S3Endpoint != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
