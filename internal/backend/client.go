package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/quizdoc/internal/quiz"
)

// Client communicates with the analysis backend's /pdf API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	stats      *Stats
}

// NewClient creates a client. apiKey may be empty when the backend is open.
func NewClient(baseURL, apiKey string, timeout time.Duration, stats *Stats) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stats: stats,
	}
}

// Stats returns the latency tracker fed by this client.
func (c *Client) Stats() *Stats { return c.stats }

// UploadChunk sends one chunk as multipart form data.
func (c *Client) UploadChunk(ctx context.Context, p Part) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", p.FileName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(p.Data); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	for _, f := range [][2]string{
		{"chunk_index", strconv.Itoa(p.ChunkIndex)},
		{"total_chunks", strconv.Itoa(p.TotalChunks)},
		{"file_name", p.FileName},
		{"session_id", p.SessionID},
	} {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.do(ctx, "upload-chunk", http.MethodPost, "/pdf/upload-chunk", mw.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("upload chunk %d: %w", p.ChunkIndex, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: fmt.Sprintf("upload chunk %d", p.ChunkIndex), Status: resp.StatusCode, Body: readMessage(resp.Body)}
	}
	return nil
}

// Finalize asks the backend to assemble the uploaded chunks.
func (c *Client) Finalize(ctx context.Context, req FinalizeRequest) (FinalizeResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range [][2]string{
		{"session_id", req.SessionID},
		{"file_name", req.FileName},
		{"total_chunks", strconv.Itoa(req.TotalChunks)},
	} {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return FinalizeResponse{}, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return FinalizeResponse{}, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.do(ctx, "finalize-upload", http.MethodPost, "/pdf/finalize-upload", mw.FormDataContentType(), &body)
	if err != nil {
		return FinalizeResponse{}, fmt.Errorf("finalize upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FinalizeResponse{}, &StatusError{Op: "finalize upload", Status: resp.StatusCode, Body: readMessage(resp.Body)}
	}

	// Older backends spell the id "fileId".
	var out struct {
		FileID    string            `json:"file_id"`
		FileIDAlt string            `json:"fileId"`
		Analysis  *AnalysisResponse `json:"analysis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return FinalizeResponse{}, fmt.Errorf("decode finalize response: %w", err)
	}
	if out.FileID == "" {
		out.FileID = out.FileIDAlt
	}
	return FinalizeResponse{FileID: out.FileID, Analysis: out.Analysis}, nil
}

// GetAnalysis fetches the analysis of an assembled file.
func (c *Client) GetAnalysis(ctx context.Context, fileID string) (*AnalysisResponse, error) {
	var out AnalysisResponse
	if err := c.callJSON(ctx, "analysis", http.MethodGet, "/pdf/analysis/"+url.PathEscape(fileID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzePages sends page text with line ranges for analysis.
func (c *Client) AnalyzePages(ctx context.Context, req AnalyzeRequest) (*AnalysisResponse, error) {
	var out AnalysisResponse
	if err := c.callJSON(ctx, "analyze-pages", http.MethodPost, "/pdf/analyze-pages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateQuiz asks for questions about the given pages, bucketed by kind.
func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) (quiz.Buckets, error) {
	var out quiz.Buckets
	if err := c.callJSON(ctx, "generate-quiz", http.MethodPost, "/pdf/generate-quiz", req, &out); err != nil {
		return quiz.Buckets{}, err
	}
	return out, nil
}

// callJSON performs a JSON request and decodes the response into out.
// Every failure is an *AnalysisError.
func (c *Client) callJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &AnalysisError{Op: op, Message: "marshal request", Err: err}
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, op, method, path, contentType, body)
	if err != nil {
		return &AnalysisError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &AnalysisError{Op: op, Status: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &AnalysisError{Op: op, Message: "decode response", Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.stats.Record(op, time.Since(start))
	return resp, err
}

// readMessage pulls a short error message out of a response body. FastAPI
// style {"detail": ...} and {"error": ...} bodies are unwrapped.
func readMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 1024))
	var msg struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(b, &msg) == nil {
		if s, ok := msg.Detail.(string); ok && s != "" {
			return s
		}
		if msg.Error != "" {
			return msg.Error
		}
	}
	return strings.TrimSpace(string(b))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
