package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/config"
	"github.com/MeKo-Tech/platewatch/internal/server"
	"github.com/spf13/cobra"
)

// newServer builds the HTTP server for the serve command.
var newServer = server.NewServer

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for video uploads",
	Long: `Start an HTTP server that accepts video uploads and returns the distinct
plate numbers of helmet-violating riders.

The server provides the following endpoints:
  POST /detect/   - multipart upload with a "video" file field
  GET  /ws/detect - WebSocket upload with per-frame progress
  GET  /health    - health check endpoint
  GET  /metrics   - Prometheus metrics

Examples:
  platewatch serve
  platewatch serve --port 8080
  platewatch serve --host 0.0.0.0 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *GetConfig()
		if err := applyPipelineFlags(cmd, &cfg); err != nil {
			return err
		}

		f := cmd.Flags()
		s := &cfg.Server
		if f.Changed("host") {
			s.Host, _ = f.GetString("host")
		}
		if f.Changed("port") {
			s.Port, _ = f.GetInt("port")
		}
		if f.Changed("cors-origin") {
			s.CORSOrigin, _ = f.GetString("cors-origin")
		}
		if f.Changed("max-upload-size") {
			s.MaxUploadMB, _ = f.GetInt("max-upload-size")
		}
		if f.Changed("timeout") {
			s.TimeoutSec, _ = f.GetInt("timeout")
		}
		if f.Changed("shutdown-timeout") {
			s.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
		}
		if f.Changed("video-dir") {
			s.VideoDir, _ = f.GetString("video-dir")
		}
		if f.Changed("keep-uploads") {
			s.KeepUploads, _ = f.GetBool("keep-uploads")
		}
		if f.Changed("rate-limit-enabled") {
			s.RateLimitEnabled, _ = f.GetBool("rate-limit-enabled")
		}
		if f.Changed("requests-per-minute") {
			s.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
		}
		if f.Changed("requests-per-hour") {
			s.RequestsPerHour, _ = f.GetInt("requests-per-hour")
		}
		if f.Changed("max-requests-per-day") {
			s.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
		}
		if f.Changed("max-data-per-day") {
			s.MaxDataPerDay, _ = f.GetInt64("max-data-per-day")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid options: %w", err)
		}

		srv, err := newServer(cfg.ToServerConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		defer func() { _ = srv.Close() }()

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", s.Host, s.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(s.TimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(s.TimeoutSec) * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
		defer stop()
		return serveUntilDone(ctx, httpServer, time.Duration(s.ShutdownTimeout)*time.Second)
	},
}

// serveUntilDone runs httpServer until ctx ends or the listener fails, then
// shuts it down gracefully.
func serveUntilDone(ctx context.Context, httpServer *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting platewatch server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		_ = httpServer.Close()
		return err
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addPipelineFlags(serveCmd)
	d := config.DefaultConfig().Server
	serveCmd.Flags().StringP("host", "H", d.Host, "server host")
	serveCmd.Flags().IntP("port", "p", d.Port, "server port")
	serveCmd.Flags().String("cors-origin", d.CORSOrigin, "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", d.MaxUploadMB, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", d.TimeoutSec, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", d.ShutdownTimeout, "shutdown timeout in seconds")
	serveCmd.Flags().String("video-dir", d.VideoDir, "directory for uploaded videos")
	serveCmd.Flags().Bool("keep-uploads", d.KeepUploads, "keep uploaded videos after processing")
	serveCmd.Flags().Bool("rate-limit-enabled", d.RateLimitEnabled, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", d.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", d.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", d.MaxRequestsPerDay, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", d.MaxDataPerDay, "maximum upload volume per day per client (bytes)")
}
