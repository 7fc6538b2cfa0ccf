package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/claude/strongsight/internal/counter"
)

// Running modes for the pose model.
const (
	ModeStream = "stream"
	ModeSingle = "single"
)

type Config struct {
	Camera    CameraConfig    `yaml:"camera"`
	Pose      PoseConfig      `yaml:"pose"`
	Display   DisplayConfig   `yaml:"display"`
	Counter   CounterConfig   `yaml:"counter"`
	Recording RecordingConfig `yaml:"recording"`
	Log       LogConfig       `yaml:"log"`
}

type CameraConfig struct {
	// Device is a camera index ("0", "2") or a video file/stream path.
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type PoseConfig struct {
	ModelPath    string  `yaml:"model_path"`
	RunningMode  string  `yaml:"running_mode"`
	InputSize    int     `yaml:"input_size"`
	InputLayout  string  `yaml:"input_layout"`
	Backend      string  `yaml:"backend"`
	Target       string  `yaml:"target"`
	MinPoseScore float64 `yaml:"min_pose_score"`
}

type DisplayConfig struct {
	WindowTitle string `yaml:"window_title"`
	QuitKey     string `yaml:"quit_key"`
}

type CounterConfig struct {
	VisibilityThreshold  float64 `yaml:"visibility_threshold"`
	MinVisibleJoints     int     `yaml:"min_visible_joints"`
	RequiredStableFrames int     `yaml:"required_stable_frames"`
	DownAngle            float64 `yaml:"down_angle"`
	UpAngle              float64 `yaml:"up_angle"`
	HipDropMargin        float64 `yaml:"hip_drop_margin"`
}

type RecordingConfig struct {
	// Path of the SQLite file landmark streams are written to. Empty disables recording.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return level, nil
}

// Thresholds converts the section into counter thresholds.
func (c CounterConfig) Thresholds() counter.Thresholds {
	return counter.Thresholds{
		Visibility:           c.VisibilityThreshold,
		MinVisibleJoints:     c.MinVisibleJoints,
		RequiredStableFrames: c.RequiredStableFrames,
		DownAngle:            c.DownAngle,
		UpAngle:              c.UpAngle,
		HipDropMargin:        c.HipDropMargin,
	}
}

// QuitKeyCode returns the key code the display loop exits on. Validation
// keeps it within ASCII, which is what the window's low key byte can match.
func (d DisplayConfig) QuitKeyCode() int {
	r, _ := utf8.DecodeRuneInString(d.QuitKey)
	return int(r)
}

// Default returns the configuration used for any key the file leaves out.
// The counter values are the empirically tuned squat thresholds.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{Device: "0"},
		Pose: PoseConfig{
			RunningMode:  ModeStream,
			InputSize:    256,
			InputLayout:  "nhwc",
			Backend:      "default",
			Target:       "cpu",
			MinPoseScore: 0.5,
		},
		Display: DisplayConfig{WindowTitle: "Webcam Feed", QuitKey: "q"},
		Counter: CounterConfig{
			VisibilityThreshold:  0.4,
			MinVisibleJoints:     6,
			RequiredStableFrames: 4,
			DownAngle:            80,
			UpAngle:              160,
			HipDropMargin:        0.1,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. Env vars use the prefix STRONGSIGHT_ and
// underscore-separated paths:
//
//	STRONGSIGHT_CAMERA_DEVICE, STRONGSIGHT_CAMERA_WIDTH, STRONGSIGHT_CAMERA_HEIGHT,
//	STRONGSIGHT_POSE_MODEL_PATH, STRONGSIGHT_POSE_RUNNING_MODE,
//	STRONGSIGHT_POSE_BACKEND, STRONGSIGHT_POSE_TARGET,
//	STRONGSIGHT_COUNTER_VISIBILITY_THRESHOLD, STRONGSIGHT_COUNTER_DOWN_ANGLE,
//	STRONGSIGHT_COUNTER_UP_ANGLE, STRONGSIGHT_COUNTER_HIP_DROP_MARGIN,
//	STRONGSIGHT_RECORDING_PATH, STRONGSIGHT_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRONGSIGHT_CAMERA_DEVICE"); v != "" {
		cfg.Camera.Device = v
	}
	setInt(&cfg.Camera.Width, "STRONGSIGHT_CAMERA_WIDTH")
	setInt(&cfg.Camera.Height, "STRONGSIGHT_CAMERA_HEIGHT")
	if v := os.Getenv("STRONGSIGHT_POSE_MODEL_PATH"); v != "" {
		cfg.Pose.ModelPath = v
	}
	if v := os.Getenv("STRONGSIGHT_POSE_RUNNING_MODE"); v != "" {
		cfg.Pose.RunningMode = v
	}
	if v := os.Getenv("STRONGSIGHT_POSE_BACKEND"); v != "" {
		cfg.Pose.Backend = v
	}
	if v := os.Getenv("STRONGSIGHT_POSE_TARGET"); v != "" {
		cfg.Pose.Target = v
	}
	setFloat(&cfg.Counter.VisibilityThreshold, "STRONGSIGHT_COUNTER_VISIBILITY_THRESHOLD")
	setFloat(&cfg.Counter.DownAngle, "STRONGSIGHT_COUNTER_DOWN_ANGLE")
	setFloat(&cfg.Counter.UpAngle, "STRONGSIGHT_COUNTER_UP_ANGLE")
	setFloat(&cfg.Counter.HipDropMargin, "STRONGSIGHT_COUNTER_HIP_DROP_MARGIN")
	if v := os.Getenv("STRONGSIGHT_RECORDING_PATH"); v != "" {
		cfg.Recording.Path = v
	}
	if v := os.Getenv("STRONGSIGHT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func (c *Config) validate() error {
	if c.Camera.Device == "" {
		return fmt.Errorf("camera.device is required")
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("camera.width and camera.height must not be negative")
	}
	if c.Pose.ModelPath == "" {
		return fmt.Errorf("pose.model_path is required")
	}
	if c.Pose.RunningMode != ModeStream && c.Pose.RunningMode != ModeSingle {
		return fmt.Errorf("pose.running_mode must be %q or %q, got %q", ModeStream, ModeSingle, c.Pose.RunningMode)
	}
	if c.Pose.InputSize <= 0 {
		return fmt.Errorf("pose.input_size must be positive")
	}
	if c.Pose.InputLayout != "nhwc" && c.Pose.InputLayout != "nchw" {
		return fmt.Errorf("pose.input_layout must be \"nhwc\" or \"nchw\", got %q", c.Pose.InputLayout)
	}
	if len(c.Display.QuitKey) != 1 || c.Display.QuitKey[0] > unicode.MaxASCII {
		return fmt.Errorf("display.quit_key must be a single ASCII character, got %q", c.Display.QuitKey)
	}
	if err := c.Counter.Thresholds().Validate(); err != nil {
		return fmt.Errorf("counter: %w", err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}
