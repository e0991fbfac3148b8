package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second

	msgProcessing = "processing"
	msgFrame      = "frame"
	msgCompleted  = "completed"
	msgError      = "error"
)

// allowOrigin admits browser clients from the configured CORS origin.
// Requests without an Origin header come from non-browser clients.
func (s *Server) allowOrigin(r *http.Request) bool {
	if s.corsOrigin == "" || s.corsOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.corsOrigin
}

// WebSocketDetectRequest asks for one video to be processed. Video carries
// the raw file bytes, base64-encoded on the wire.
type WebSocketDetectRequest struct {
	Filename string `json:"filename"`
	Video    []byte `json:"video"`
}

// WebSocketMessage is every message the server sends on /ws/detect.
type WebSocketMessage struct {
	Type        string          `json:"type"`
	RequestID   string          `json:"request_id,omitempty"`
	Frame       *int            `json:"frame,omitempty"`
	Readings    []string        `json:"readings,omitempty"`
	UniqueSoFar int             `json:"unique_so_far,omitempty"`
	Result      *DetectResponse `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorType   string          `json:"error_type,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// detectWebSocketHandler streams per-frame progress while a video is processed.
func (s *Server) detectWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.allowOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection reads requests until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	// base64 inflates the payload by a third
	conn.SetReadLimit(s.maxUploadBytes()/3*4 + 4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		}
	}
}

// handleWebSocketMessage processes one detect request.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketDetectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if len(req.Video) == 0 {
		s.sendWebSocketError(conn, "", "invalid_request", "No video data provided")
		return
	}
	if int64(len(req.Video)) > s.maxUploadBytes() {
		s.sendWebSocketError(conn, "", "invalid_request", "File too large")
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Video)))

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)
	s.sendWebSocketMessage(conn, WebSocketMessage{Type: msgProcessing, RequestID: requestID})

	name, path, err := s.store.Save(req.Filename, bytes.NewReader(req.Video))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "storage_error", err.Error())
		return
	}
	defer s.discardUpload(name)

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	hook := func(ev pipeline.FrameEvent) {
		idx := ev.Index
		s.sendWebSocketMessage(conn, WebSocketMessage{
			Type:        msgFrame,
			RequestID:   requestID,
			Frame:       &idx,
			Readings:    ev.Result.Readings,
			UniqueSoFar: ev.UniqueSoFar,
		})
	}
	res, err := s.runVideo(ctx, "websocket", path, hook)
	if err != nil {
		slog.Error("Video processing failed", "video", name, "error", err)
		s.sendWebSocketError(conn, requestID, errorKind(err), err.Error())
		return
	}

	s.sendWebSocketMessage(conn, WebSocketMessage{
		Type:      msgCompleted,
		RequestID: requestID,
		Result: &DetectResponse{
			VideoSavedAs:    name,
			PlateNumbers:    res.UniqueReadings,
			FramesProcessed: res.FramesProcessed,
		},
	})
}

// sendWebSocketMessage sends a message over WebSocket.
func (s *Server) sendWebSocketMessage(conn WebSocketConnWriter, msg WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketMessage(conn, WebSocketMessage{
		Type:      msgError,
		RequestID: requestID,
		Error:     message,
		ErrorType: errorType,
	})
}
