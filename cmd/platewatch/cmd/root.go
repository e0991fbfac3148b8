package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/platewatch/internal/config"
	"github.com/MeKo-Tech/platewatch/internal/models"
	"github.com/MeKo-Tech/platewatch/internal/pipeline"
	"github.com/MeKo-Tech/platewatch/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration loader of the running command.
	configLoader *config.Loader
	// Configuration of the running command.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// newPipeline loads the models for the video and frame commands.
var newPipeline = pipeline.Open

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "platewatch",
	Short: "Read number plates of riders without a helmet",
	Long: `platewatch scans traffic video for motorcycle riders without a helmet
and reads the number plate of every such rider.

A YOLO-style ONNX model finds riders and helmet violations in each frame,
and a text recognition model reads the plate inside each flagged rider's
box. The distinct plate numbers seen in a video are reported once.

Examples:
  platewatch video traffic.mp4
  platewatch video cam1.mp4 cam2.mp4 --format json --workers 2
  platewatch frame snapshot.jpg --output annotated.png
  platewatch serve --port 8000`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $XDG_CONFIG_HOME/platewatch, $HOME, $HOME/.config/platewatch, /etc/platewatch)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	defaultModelsDir := models.DefaultModelsDir
	if envDir := os.Getenv(models.EnvModelsDir); envDir != "" {
		defaultModelsDir = envDir
	}
	rootCmd.PersistentFlags().String("models-dir", defaultModelsDir,
		"directory containing ONNX models (can also be set via "+models.EnvModelsDir+")")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd.Root()); err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), globalConfig)
		return nil
	}
}

// initConfig loads the configuration file, environment and root flags into
// a fresh viper instance.
func initConfig(root *cobra.Command) error {
	v := viper.New()
	flags := root.PersistentFlags()
	for key, name := range map[string]string{
		"verbose":    "verbose",
		"log_level":  "log-level",
		"models_dir": "models-dir",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	loader := config.NewLoaderWithViper(v)
	cfg, err := loader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	configLoader = loader
	globalConfig = cfg
	return nil
}

// setupLogging installs a JSON slog handler writing to w. Logs stay off
// stdout, which carries command results.
func setupLogging(w io.Writer, cfg *config.Config) {
	var level slog.Level // unknown names stay at info
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// GetConfig returns the configuration of the running command.
func GetConfig() *config.Config {
	if globalConfig == nil {
		cfg := config.DefaultConfig()
		return &cfg
	}
	return globalConfig
}

// GetConfigLoader returns the configuration loader of the running command.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoaderWithViper(viper.New())
	}
	return configLoader
}
