//nolint:lll
package config

// Config represents the complete configuration for platewatch. It covers
// every command (video, frame, serve) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Video    VideoConfig    `mapstructure:"video" yaml:"video" json:"video"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	GPU      GPUConfig      `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// PipelineConfig contains detection and recognition settings.
type PipelineConfig struct {
	Detector   DetectorConfig   `mapstructure:"detector" yaml:"detector" json:"detector"`
	Recognizer RecognizerConfig `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
	Trigger    TriggerConfig    `mapstructure:"trigger" yaml:"trigger" json:"trigger"`
	Parallel   ParallelConfig   `mapstructure:"parallel" yaml:"parallel" json:"parallel"`

	// Draw boxes and readings on processed frames
	Annotate bool `mapstructure:"annotate" yaml:"annotate" json:"annotate"`

	WarmupIterations int `mapstructure:"warmup_iterations" yaml:"warmup_iterations" json:"warmup_iterations"`
}

// DetectorConfig contains object detection settings.
type DetectorConfig struct {
	ModelPath        string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	InputSize        int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	ConfThreshold    float64 `mapstructure:"conf_threshold" yaml:"conf_threshold" json:"conf_threshold"`
	NMSThreshold     float64 `mapstructure:"nms_threshold" yaml:"nms_threshold" json:"nms_threshold"`
	ClassAgnosticNMS bool    `mapstructure:"class_agnostic_nms" yaml:"class_agnostic_nms" json:"class_agnostic_nms"`
	NumThreads       int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// RecognizerConfig contains plate text recognition settings.
type RecognizerConfig struct {
	ModelPath        string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	DictPath         string  `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	ImageHeight      int     `mapstructure:"image_height" yaml:"image_height" json:"image_height"`
	MaxWidth         int     `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	PadWidthMultiple int     `mapstructure:"pad_width_multiple" yaml:"pad_width_multiple" json:"pad_width_multiple"`
	MinConfidence    float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	SplitLines       bool    `mapstructure:"split_lines" yaml:"split_lines" json:"split_lines"`
	NumThreads       int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`

	// Text line detection inside the plate crop
	UseTextDetection bool    `mapstructure:"use_text_detection" yaml:"use_text_detection" json:"use_text_detection"`
	DetModelPath     string  `mapstructure:"det_model_path" yaml:"det_model_path" json:"det_model_path"`
	DetThreshold     float64 `mapstructure:"det_threshold" yaml:"det_threshold" json:"det_threshold"`
	DetBoxThreshold  float64 `mapstructure:"det_box_threshold" yaml:"det_box_threshold" json:"det_box_threshold"`
	DetUnclipRatio   float64 `mapstructure:"det_unclip_ratio" yaml:"det_unclip_ratio" json:"det_unclip_ratio"`
	DetMaxSideLen    int     `mapstructure:"det_max_side_len" yaml:"det_max_side_len" json:"det_max_side_len"`

	// Upside-down line correction
	UseAngleCls  bool    `mapstructure:"use_angle_cls" yaml:"use_angle_cls" json:"use_angle_cls"`
	ClsModelPath string  `mapstructure:"cls_model_path" yaml:"cls_model_path" json:"cls_model_path"`
	ClsThreshold float64 `mapstructure:"cls_threshold" yaml:"cls_threshold" json:"cls_threshold"`
}

// TriggerConfig selects the detector classes that gate plate extraction.
type TriggerConfig struct {
	RiderClass     int `mapstructure:"rider_class" yaml:"rider_class" json:"rider_class"`
	ViolationClass int `mapstructure:"violation_class" yaml:"violation_class" json:"violation_class"`
}

// ParallelConfig contains settings for processing several videos at once.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// VideoConfig locates the ffmpeg tools. Empty paths are looked up in PATH.
type VideoConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path" yaml:"ffprobe_path" json:"ffprobe_path"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format    string `mapstructure:"format" yaml:"format" json:"format"`
	File      string `mapstructure:"file" yaml:"file" json:"file"`
	FramesDir string `mapstructure:"frames_dir" yaml:"frames_dir" json:"frames_dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	VideoDir        string `mapstructure:"video_dir" yaml:"video_dir" json:"video_dir"`
	KeepUploads     bool   `mapstructure:"keep_uploads" yaml:"keep_uploads" json:"keep_uploads"`

	// Rate limiting
	RateLimitEnabled  bool  `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
