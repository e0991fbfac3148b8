package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/MeKo-Tech/platewatch/internal/utils"
	"github.com/spf13/cobra"
)

// frameCmd represents the frame command.
var frameCmd = &cobra.Command{
	Use:   "frame <image>",
	Short: "Read the plates of helmet-violating riders in a single image",
	Long: `Run detection and plate reading on one still image.

Supported formats: JPEG, PNG, BMP

Examples:
  platewatch frame snapshot.jpg
  platewatch frame snapshot.jpg --format json
  platewatch frame snapshot.jpg --output annotated.png --detections`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *GetConfig()
		if err := applyPipelineFlags(cmd, &cfg); err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if format != pipeline.FormatText && format != pipeline.FormatJSON {
			return fmt.Errorf("invalid output format: %s (must be one of: text, json)", format)
		}
		overlay, _ := cmd.Flags().GetString("output")
		showDetections, _ := cmd.Flags().GetBool("detections")

		img, err := utils.LoadImage(args[0])
		if err != nil {
			return err
		}

		pl, err := newPipeline(cfg.ToPipelineConfig())
		if err != nil {
			return fmt.Errorf("failed to build pipeline: %w", err)
		}
		defer func() { _ = pl.Close() }()

		res, err := pl.ProcessFrame(cmd.Context(), img)
		if err != nil {
			return fmt.Errorf("process %s: %w", args[0], err)
		}

		if overlay != "" {
			out := res.Image
			if showDetections {
				out = pipeline.RenderDetections(out, res, pl.Detector.InputSize())
			}
			if err := utils.SavePNG(overlay, out); err != nil {
				return err
			}
			slog.Info("Annotated frame written", "file", overlay)
		}

		if format == pipeline.FormatJSON {
			b, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		}
		if len(res.Readings) > 0 {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(res.Readings, "\n"))
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(frameCmd)
	addPipelineFlags(frameCmd)
	frameCmd.Flags().StringP("format", "f", pipeline.FormatText, "output format (text, json)")
	frameCmd.Flags().StringP("output", "o", "", "write the annotated frame as PNG to this file")
	frameCmd.Flags().Bool("detections", false, "outline every detection on the annotated frame")
}
