package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/MeKo-Tech/platewatch/internal/storage"
	"github.com/MeKo-Tech/platewatch/internal/video"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	frames      pipeline.FrameProcessor
	opener      video.Opener
	store       *storage.Store
	closer      io.Closer
	rateLimiter *RateLimiter
	modelsDir   string
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	keepUploads bool
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	VideoDir       string
	KeepUploads    bool // keep staged videos after processing
	PipelineConfig pipeline.Config
	FFmpeg         video.FFmpegOpener
	RateLimit      RateLimitConfig
}

// RateLimitConfig configures per-client limits. Zero values disable a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// DetectResponse is returned by a successful /detect/ request.
type DetectResponse struct {
	VideoSavedAs    string   `json:"video_saved_as"`
	PlateNumbers    []string `json:"plate_numbers"`
	FramesProcessed int      `json:"frames_processed"`
}

// ModelEntry describes one model file the pipeline loads.
type ModelEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Available   bool   `json:"available"`
}

// ModelsResponse is returned by /models.
type ModelsResponse struct {
	ModelsDir string       `json:"models_dir"`
	Models    []ModelEntry `json:"models"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the detection pipeline from config.PipelineConfig, whose
// model paths must already be resolved, and returns a server reading uploads
// with ffmpeg.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.Open(config.PipelineConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	s, err := New(config, pl, video.DefaultOpener{FFmpeg: config.FFmpeg})
	if err != nil {
		_ = pl.Close()
		return nil, err
	}
	s.closer = pl
	return s, nil
}

// New returns a server around an existing frame processor and opener.
func New(config Config, frames pipeline.FrameProcessor, opener video.Opener) (*Server, error) {
	if frames == nil || opener == nil {
		return nil, errors.New("frame processor and opener are required")
	}
	dir := config.VideoDir
	if dir == "" {
		dir = storage.DefaultDir
	}
	store, err := storage.NewStore(dir)
	if err != nil {
		return nil, err
	}
	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 500
	}

	s := &Server{
		frames:      frames,
		opener:      opener,
		store:       store,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: maxUpload,
		timeoutSec:  config.TimeoutSec,
		keepUploads: config.KeepUploads,
		modelsDir:   config.PipelineConfig.ModelsDir,
	}
	if config.RateLimit.Enabled {
		rl := config.RateLimit
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// discardUpload removes a staged video unless uploads are kept.
func (s *Server) discardUpload(name string) {
	if s.keepUploads {
		return
	}
	if err := s.store.Remove(name); err != nil {
		slog.Warn("Failed to remove staged video", "video", name, "error", err)
	}
}

func (s *Server) maxUploadBytes() int64 { return s.maxUploadMB * 1024 * 1024 }
