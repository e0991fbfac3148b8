package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/MeKo-Tech/platewatch/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// multipartMemory is how much of a multipart form is held in memory; the
// remainder of an upload spills to temporary files. The request size cap is
// enforced separately by MaxBytesReader.
var multipartMemory int64 = 32 << 20

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	v, _, _ := version.Info()
	response := HealthResponse{
		Status:  "healthy",
		Version: v,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// modelsHandler lists the model files resolved under the models directory
// and whether each one is present.
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dir := models.GetModelsDir(s.modelsDir)
	resp := ModelsResponse{ModelsDir: dir}
	for _, m := range models.ListAvailableModels() {
		path := models.ResolveModelPath(dir, m.Type, m.Filename)
		_, err := os.Stat(path)
		resp.Models = append(resp.Models, ModelEntry{
			Name:        m.Name,
			Type:        m.Type,
			Description: m.Description,
			Path:        path,
			Available:   err == nil,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode models response", "error", err)
	}
}

// detectHandler stores an uploaded video and answers with its distinct plate readings.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(min(multipartMemory, limit)); err != nil {
		if isBodyTooLarge(err) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("video")
	if err != nil {
		s.writeErrorResponse(w, "No video file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	name, path, err := s.store.Save(header.Filename, file)
	if err != nil {
		slog.Error("Failed to store upload", "filename", header.Filename, "error", err)
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer s.discardUpload(name)

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	res, err := s.runVideo(ctx, "http", path, nil)
	if err != nil {
		slog.Error("Video processing failed", "video", name, "error", err)
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	response := DetectResponse{
		VideoSavedAs:    name,
		PlateNumbers:    res.UniqueReadings,
		FramesProcessed: res.FramesProcessed,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode detect response", "error", err)
	}
}

// runVideo aggregates one stored video and records its metrics.
func (s *Server) runVideo(ctx context.Context, source, path string, hook pipeline.FrameHook) (*pipeline.VideoResult, error) {
	agg := pipeline.NewAggregator(s.frames, s.opener)
	if hook != nil {
		agg = agg.WithFrameHook(hook)
	}

	start := time.Now()
	res, err := agg.ProcessVideo(ctx, path)
	videoProcessingDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		videoRequestsTotal.WithLabelValues(source, errorKind(err)).Inc()
		return nil, err
	}

	videoRequestsTotal.WithLabelValues(source, "success").Inc()
	framesProcessedTotal.Add(float64(res.FramesProcessed))
	recognitionFailuresTotal.Add(float64(res.Failures))
	plateReadingsPerVideo.Observe(float64(len(res.UniqueReadings)))
	return res, nil
}

// requestContext bounds processing by the configured timeout.
func (s *Server) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeoutSec > 0 {
		return context.WithTimeout(parent, time.Duration(s.timeoutSec)*time.Second)
	}
	return context.WithCancel(parent)
}

// errorKind labels a processing error for metrics.
func errorKind(err error) string {
	var openErr *pipeline.SourceOpenError
	var readErr *pipeline.SourceReadError
	switch {
	case errors.As(err, &openErr):
		return "open_error"
	case errors.As(err, &readErr):
		return "read_error"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

// isBodyTooLarge reports whether a form parse failed on the upload limit.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", instrumented("/health", s.withCORS(s.healthHandler)))
	mux.HandleFunc("/models", instrumented("/models", s.withCORS(s.modelsHandler)))
	mux.HandleFunc("/detect/", instrumented("/detect/", s.withCORS(s.limited(s.detectHandler))))
	mux.HandleFunc("/ws/detect", s.limited(s.detectWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
