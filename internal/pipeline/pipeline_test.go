package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platewatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultTriggerConfig(), cfg.Trigger)
	assert.True(t, cfg.Annotate)
	assert.Equal(t, 640, cfg.Detector.InputWidth)
	assert.Equal(t, 48, cfg.Recognizer.ImageHeight)
	assert.Positive(t, cfg.Parallel.MaxWorkers)
}

func TestUseModelsDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseModelsDir("/opt/models")
	assert.Equal(t, "/opt/models", cfg.ModelsDir)
	assert.Equal(t, filepath.Join("/opt/models", "helmet_plate_yolo.onnx"), cfg.Detector.ModelPath, "flat layout when the organized one is absent")

	cfg.UseModelsDir("")
	assert.Equal(t, "/opt/models", cfg.ModelsDir, "empty dir keeps the current one")
}

func TestValidateMissingModels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseModelsDir(t.TempDir())
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector model not found")

	require.NoError(t, os.WriteFile(cfg.Detector.ModelPath, []byte("x"), 0o600))
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recognizer model not found")

	cfg.Recognizer.DictPath = ""
	cfg.Recognizer.ModelPath = cfg.Detector.ModelPath
	assert.EqualError(t, cfg.Validate(), "dictionary path is empty")

	cfg.Recognizer.DictPath = cfg.Detector.ModelPath
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text detection model not found")

	cfg.Recognizer.DetectText = false
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "angle classifier model not found")

	cfg.Recognizer.UseAngleCls = false
	assert.NoError(t, cfg.Validate())

	_, err = Open(cfg)
	assert.Error(t, err)
}

func TestNewRequiresComponents(t *testing.T) {
	_, err := New(DefaultConfig(), nil, testutil.NewFakeRecognizer())
	assert.Error(t, err)
	_, err = New(DefaultConfig(), testutil.NewFakeDetector(), nil)
	assert.Error(t, err)
}

func TestPipelineCloseAndLogValue(t *testing.T) {
	det := testutil.NewFakeDetector()
	p := newTestPipeline(t, det, testutil.NewFakeRecognizer())

	keys := map[string]bool{}
	for _, a := range p.LogValue().Group() {
		keys[a.Key] = true
	}
	assert.True(t, keys["violation_class"])
	assert.False(t, keys["detector"], "fakes expose no model info")

	require.NoError(t, p.Close())
	assert.Nil(t, p.Detector)
	require.NoError(t, p.Close())
}
