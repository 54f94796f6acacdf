package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/quizdoc/internal/backend"
	"github.com/dgallion1/quizdoc/internal/config"
	"github.com/dgallion1/quizdoc/internal/parser"
	"github.com/dgallion1/quizdoc/internal/pipeline"
	"github.com/dgallion1/quizdoc/internal/quiz"
	"github.com/dgallion1/quizdoc/internal/store"
	"github.com/dgallion1/quizdoc/internal/upload"
)

// Backend is the part of the analysis backend the API calls directly.
// *backend.Client implements it.
type Backend interface {
	upload.Transport
	AnalyzePages(ctx context.Context, req backend.AnalyzeRequest) (*backend.AnalysisResponse, error)
	GenerateQuiz(ctx context.Context, req backend.QuizRequest) (quiz.Buckets, error)
	Stats() *backend.Stats
}

// Server is the HTTP API server for quizdoc.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	backend      Backend
	docs         *store.Documents
	quizzes      *store.Quizzes
	blobs        store.Blobs
	results      store.Results
	validate     *validator.Validate
	log          *slog.Logger
	cfg          config.Config
	mode         upload.Mode
	parseOpts    parser.Options
}

// NewServer creates and configures the HTTP server. Evicted or deleted
// documents lose their quizzes and stored blob, and any running upload of
// theirs is abandoned.
func NewServer(orch *pipeline.Orchestrator, be Backend, blobs store.Blobs, results store.Results, log *slog.Logger, cfg config.Config) (*Server, error) {
	mode, err := upload.ParseMode(cfg.FinalizeMode)
	if err != nil {
		return nil, err
	}
	s := &Server{
		orchestrator: orch,
		backend:      be,
		blobs:        blobs,
		results:      results,
		validate:     validator.New(),
		log:          log,
		cfg:          cfg,
		mode:         mode,
		parseOpts: parser.Options{
			LineHeight:        cfg.LineHeight,
			LinesPerPage:      cfg.LinesPerPage,
			StrictPDF:         cfg.StrictPDF,
			FallbackPdftotext: cfg.PDFFallbackPdftotext,
		},
	}

	s.quizzes, err = store.NewQuizzes(cfg.MaxDocuments * 8)
	if err != nil {
		return nil, err
	}
	s.docs, err = store.NewDocuments(cfg.MaxDocuments, s.releaseDocument)
	if err != nil {
		return nil, err
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.QuizdocAPIKey, s.log))

		r.Post("/api/documents", s.handleCreateDocument)
		r.Get("/api/documents", s.handleListDocuments)
		r.Route("/api/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Get("/pages", s.handlePages)

			r.Put("/hierarchy", s.handlePutHierarchy)
			r.Get("/hierarchy", s.handleGetHierarchy)
			r.Get("/hierarchy/pages/{page}", s.handleHierarchyPage)
			r.Get("/selection", s.handleGetSelection)
			r.Post("/selection", s.handleToggleSelection)
			r.Delete("/selection", s.handleClearSelection)

			r.Post("/upload", s.handleStartUpload)
			r.Get("/upload", s.handleUploadSession)
			r.Delete("/upload", s.handleAbandonUpload)

			r.Post("/analyze", s.handleAnalyze)
			r.Post("/quiz", s.handleGenerateQuiz)
		})
		r.Get("/api/uploads/{jobID}/status", s.handleUploadStatus)

		r.Route("/api/quizzes/{quizID}", func(r chi.Router) {
			r.Get("/", s.handleGetQuiz)
			r.Put("/answers/{questionID}", s.handleAnswer)
			r.Post("/submit", s.handleSubmit)
			r.Post("/retry", s.handleRetry)
			r.Get("/results", s.handleListResults)
			r.Get("/export.csv", s.handleExport)
		})

		r.Get("/api/stats/backend", s.handleBackendStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// releaseDocument runs when a document leaves the registry.
func (s *Server) releaseDocument(d *store.Document) {
	if d.Uploader != nil {
		d.Uploader.Abandon()
	}
	n := s.quizzes.DeleteForDocument(d.ID)
	if d.BlobKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.blobs.Delete(ctx, d.BlobKey); err != nil {
			s.log.Warn("blob delete failed", "doc_id", d.ID, "key", d.BlobKey, "error", err)
		}
	}
	s.log.Info("document released", "doc_id", d.ID, "quizzes", n)
}

// decodeBody reads a JSON body into v and validates its struct tags.
func (s *Server) decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s' tag", e.Field(), e.Tag()))
			}
			sort.Strings(msgs)
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// writeError maps a domain error to one message and status. Internal detail
// is logged, not returned, for unexpected failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		extractErr  *parser.ExtractionError
		busyErr     *upload.ConcurrentUploadError
		chunkErr    *upload.ChunkTransmissionError
		finalizeErr *upload.FinalizeError
		analysisErr *backend.AnalysisError
		shapeErr    *quiz.ShapeError
	)
	switch {
	case errors.As(err, &extractErr):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &busyErr):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &chunkErr), errors.As(err, &finalizeErr), errors.As(err, &analysisErr):
		s.log.Error("backend call failed", "path", r.URL.Path, "error", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &shapeErr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, quiz.ErrUnknownQuestion):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pipeline.ErrQueueFull):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
