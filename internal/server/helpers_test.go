package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/platewatch/internal/detector"
	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/MeKo-Tech/platewatch/internal/testutil"
	"github.com/stretchr/testify/require"
)

// fixture is a server wired to scripted detector, recognizer and source.
type fixture struct {
	srv    *Server
	src    *testutil.FakeSource
	opener *testutil.FakeOpener
	rec    *testutil.FakeRecognizer
	dir    string
}

func riderAndViolation() []detector.Detection {
	return []detector.Detection{testutil.Rider(320, 320, 400, 360), testutil.Violation()}
}

// newFixture serves one video of len(replies) frames, each carrying a
// qualifying rider whose plate reads as the matching reply.
func newFixture(t *testing.T, cfg Config, replies ...testutil.Reply) *fixture {
	t.Helper()

	frames := make([][]detector.Detection, len(replies))
	for i := range frames {
		frames[i] = riderAndViolation()
	}
	det := testutil.NewFakeDetector(frames...)
	rec := testutil.NewFakeRecognizer(replies...)
	pl, err := pipeline.New(pipeline.Config{Trigger: pipeline.DefaultTriggerConfig()}, det, rec)
	require.NoError(t, err)

	src := testutil.NewFakeSource(len(replies), 1280, 720)
	opener := &testutil.FakeOpener{Source: src}

	if cfg.VideoDir == "" {
		cfg.VideoDir = t.TempDir()
	}
	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = 1
	}
	if cfg.TimeoutSec == 0 {
		cfg.TimeoutSec = 5
	}
	srv, err := New(cfg, pl, opener)
	require.NoError(t, err)

	return &fixture{srv: srv, src: src, opener: opener, rec: rec, dir: cfg.VideoDir}
}

// createMultipartVideoRequest creates a multipart upload of data under field.
func createMultipartVideoRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/detect/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
