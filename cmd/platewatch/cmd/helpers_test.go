package cmd

import (
	"bytes"
	"image"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/MeKo-Tech/platewatch/internal/testutil"
	"github.com/MeKo-Tech/platewatch/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty working directory and home so that no
// stray platewatch.yaml is picked up.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

// resetFlags restores every flag of c and its subcommands to its default.
// Cobra keeps parsed values between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// useFakePipeline makes the commands run on det and rec instead of ONNX
// models. It returns a pointer to the number of pipelines built.
func useFakePipeline(t *testing.T, det pipeline.ObjectDetector, rec pipeline.TextRecognizer) *int {
	t.Helper()
	built := 0
	prev := newPipeline
	newPipeline = func(cfg pipeline.Config) (*pipeline.Pipeline, error) {
		built++
		return pipeline.New(cfg, det, rec)
	}
	t.Cleanup(func() { newPipeline = prev })
	return &built
}

func writeImage(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, utils.SavePNG(path, img))
	return path
}

func frames(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = testutil.GradientFrame(320, 240)
	}
	return out
}
