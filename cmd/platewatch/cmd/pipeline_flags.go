package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/platewatch/internal/config"
	"github.com/spf13/cobra"
)

// addPipelineFlags registers the model and detection flags shared by the
// commands that run the pipeline.
func addPipelineFlags(cmd *cobra.Command) {
	d := config.DefaultConfig().Pipeline
	cmd.Flags().String("det-model", "", "override detection model path")
	cmd.Flags().String("rec-model", "", "override recognition model path")
	cmd.Flags().String("dict", "", "override recognition dictionary path")
	cmd.Flags().String("text-det-model", "", "override text line detection model path")
	cmd.Flags().String("cls-model", "", "override text line orientation model path")
	cmd.Flags().Bool("text-det", d.Recognizer.UseTextDetection, "locate text lines inside plates before reading them")
	cmd.Flags().Bool("angle-cls", d.Recognizer.UseAngleCls, "turn upside-down text lines before reading them")
	cmd.Flags().Float64("conf-threshold", d.Detector.ConfThreshold, "detector confidence threshold (0..1)")
	cmd.Flags().Float64("nms-threshold", d.Detector.NMSThreshold, "detector NMS IoU threshold (0..1)")
	cmd.Flags().Float64("min-rec-conf", d.Recognizer.MinConfidence, "minimum recognition confidence (0..1)")
	cmd.Flags().Int("rider-class", d.Trigger.RiderClass, "detector class id of a rider")
	cmd.Flags().Int("violation-class", d.Trigger.ViolationClass, "detector class id of a helmet violation")
	cmd.Flags().Bool("annotate", d.Annotate, "draw readings onto frames")
	cmd.Flags().Bool("gpu", false, "use CUDA for inference")
	cmd.Flags().Int("gpu-device", 0, "CUDA device id")
}

// applyPipelineFlags copies changed pipeline flags over cfg and validates
// the result.
func applyPipelineFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	p := &cfg.Pipeline
	if f.Changed("det-model") {
		p.Detector.ModelPath, _ = f.GetString("det-model")
	}
	if f.Changed("rec-model") {
		p.Recognizer.ModelPath, _ = f.GetString("rec-model")
	}
	if f.Changed("dict") {
		p.Recognizer.DictPath, _ = f.GetString("dict")
	}
	if f.Changed("text-det-model") {
		p.Recognizer.DetModelPath, _ = f.GetString("text-det-model")
	}
	if f.Changed("cls-model") {
		p.Recognizer.ClsModelPath, _ = f.GetString("cls-model")
	}
	if f.Changed("text-det") {
		p.Recognizer.UseTextDetection, _ = f.GetBool("text-det")
	}
	if f.Changed("angle-cls") {
		p.Recognizer.UseAngleCls, _ = f.GetBool("angle-cls")
	}
	if f.Changed("conf-threshold") {
		p.Detector.ConfThreshold, _ = f.GetFloat64("conf-threshold")
	}
	if f.Changed("nms-threshold") {
		p.Detector.NMSThreshold, _ = f.GetFloat64("nms-threshold")
	}
	if f.Changed("min-rec-conf") {
		p.Recognizer.MinConfidence, _ = f.GetFloat64("min-rec-conf")
	}
	if f.Changed("rider-class") {
		p.Trigger.RiderClass, _ = f.GetInt("rider-class")
	}
	if f.Changed("violation-class") {
		p.Trigger.ViolationClass, _ = f.GetInt("violation-class")
	}
	if f.Changed("annotate") {
		p.Annotate, _ = f.GetBool("annotate")
	}
	if f.Changed("gpu") {
		cfg.GPU.Enabled, _ = f.GetBool("gpu")
	}
	if f.Changed("gpu-device") {
		cfg.GPU.Device, _ = f.GetInt("gpu-device")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}
