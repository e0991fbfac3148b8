package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/platewatch/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn records written messages.
type mockWebSocketConn struct {
	sent []WebSocketMessage
}

func (m *mockWebSocketConn) WriteMessage(_ int, data []byte) error {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockWebSocketConn) types() []string {
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.Type
	}
	return out
}

func detectRequest(t *testing.T, filename string, video []byte) []byte {
	t.Helper()
	data, err := json.Marshal(WebSocketDetectRequest{Filename: filename, Video: video})
	require.NoError(t, err)
	return data
}

func TestHandleWebSocketMessage_StreamsFrames(t *testing.T) {
	f := newFixture(t, Config{}, testutil.Text("XY42"), testutil.Text("XY42"), testutil.Text("XY42"))
	conn := &mockWebSocketConn{}

	f.srv.handleWebSocketMessage(t.Context(), conn, detectRequest(t, "ride.mp4", []byte("bytes")))

	require.Equal(t, []string{"processing", "frame", "frame", "frame", "completed"}, conn.types())
	for i, msg := range conn.sent[1:4] {
		require.NotNil(t, msg.Frame)
		assert.Equal(t, i, *msg.Frame)
		assert.Equal(t, []string{"XY42"}, msg.Readings)
		assert.Equal(t, 1, msg.UniqueSoFar)
	}

	done := conn.sent[4]
	require.NotNil(t, done.Result)
	assert.Equal(t, []string{"XY42"}, done.Result.PlateNumbers)
	assert.Equal(t, 3, done.Result.FramesProcessed)
	assert.True(t, strings.HasSuffix(done.Result.VideoSavedAs, "_ride.mp4"))
	assert.Equal(t, conn.sent[0].RequestID, done.RequestID)
}

func TestHandleWebSocketMessage_Errors(t *testing.T) {
	tests := []struct {
		name      string
		payload   func(t *testing.T) []byte
		errorType string
	}{
		{
			name:      "malformed json",
			payload:   func(t *testing.T) []byte { return []byte("{not json") },
			errorType: "invalid_request",
		},
		{
			name:      "no video",
			payload:   func(t *testing.T) []byte { return detectRequest(t, "ride.mp4", nil) },
			errorType: "invalid_request",
		},
		{
			name:      "too large",
			payload:   func(t *testing.T) []byte { return detectRequest(t, "ride.mp4", make([]byte, 2*1024*1024)) },
			errorType: "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{MaxUploadMB: 1}, testutil.Text("AB123"))
			conn := &mockWebSocketConn{}

			f.srv.handleWebSocketMessage(t.Context(), conn, tt.payload(t))

			require.Len(t, conn.sent, 1)
			assert.Equal(t, "error", conn.sent[0].Type)
			assert.Equal(t, tt.errorType, conn.sent[0].ErrorType)
			assert.Empty(t, f.opener.Opened)
		})
	}
}

func TestHandleWebSocketMessage_ReadErrorEndsWithError(t *testing.T) {
	f := newFixture(t, Config{}, testutil.Text("AB123"), testutil.Text("CD456"))
	f.src.FailAt = 2
	f.src.Err = assert.AnError
	conn := &mockWebSocketConn{}

	f.srv.handleWebSocketMessage(t.Context(), conn, detectRequest(t, "torn.mp4", []byte("x")))

	assert.Equal(t, []string{"processing", "frame", "error"}, conn.types())
	assert.Equal(t, "read_error", conn.sent[2].ErrorType)
	assert.Equal(t, 1, f.src.Closes())
}

func TestDetectWebSocket_EndToEnd(t *testing.T) {
	f := newFixture(t, Config{}, testutil.Text("AB", "123"), testutil.Text("CD456"))
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/detect"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	require.NoError(t, conn.WriteJSON(WebSocketDetectRequest{Filename: "clip.mp4", Video: []byte("data")}))

	var got []WebSocketMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		got = append(got, msg)
		if msg.Type == "completed" || msg.Type == "error" {
			break
		}
	}

	last := got[len(got)-1]
	require.Equal(t, "completed", last.Type, last.Error)
	assert.Equal(t, []string{"AB123", "CD456"}, last.Result.PlateNumbers)
	assert.Len(t, got, 4)
}

func TestDetectWebSocket_OriginCheck(t *testing.T) {
	f := newFixture(t, Config{CORSOrigin: "https://example.com"})
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/detect"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://elsewhere.test"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://example.com"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	_ = conn.Close()
}
