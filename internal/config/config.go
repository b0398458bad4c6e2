package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cuivienor/silence-cutter/internal/model"
)

const (
	appDirName     = "silence-cutter"
	configFileName = "config.yaml"

	// EnvConfigPath names an explicit config file
	EnvConfigPath = "SILENCE_CUTTER_CONFIG"

	envFFmpeg     = "SILENCE_CUTTER_FFMPEG"
	envFFprobe    = "SILENCE_CUTTER_FFPROBE"
	envAutoEditor = "SILENCE_CUTTER_AUTO_EDITOR"
	envLogLevel   = "SILENCE_CUTTER_LOG_LEVEL"
)

// Defaults for preprocessing when the config leaves them empty
const (
	defaultBitrate            = "4M"
	defaultAudioCodec         = "aac"
	defaultAudioBitrate       = "192k"
	defaultIntermediateSuffix = ".silencecut-tmp"
	defaultVAAPIDevice        = "/dev/dri/renderD128"
)

// ToolsConfig holds executable names or paths
type ToolsConfig struct {
	FFmpeg     string `yaml:"ffmpeg"`
	FFprobe    string `yaml:"ffprobe"`
	AutoEditor string `yaml:"auto_editor"` // empty means search the system locations
}

// DefaultsConfig holds the initial form values for a job
type DefaultsConfig struct {
	Threshold       *float64 `yaml:"threshold"`
	Margin          *int     `yaml:"margin"`
	Preprocess      *bool    `yaml:"preprocess"`
	Preset          string   `yaml:"preset"`
	Hardware        string   `yaml:"hardware"`
	PreserveQuality bool     `yaml:"preserve_quality"`
}

// PreprocessConfig tunes the normalization encode
type PreprocessConfig struct {
	DefaultBitrate     string `yaml:"default_bitrate"`
	AudioCodec         string `yaml:"audio_codec"`
	AudioBitrate       string `yaml:"audio_bitrate"`
	IntermediateSuffix string `yaml:"intermediate_suffix"`
	VAAPIDevice        string `yaml:"vaapi_device"`
}

// LoggingConfig controls the application log
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // empty logs to stderr (headless) or nowhere (TUI)
}

// Config holds application configuration
type Config struct {
	Tools      ToolsConfig      `yaml:"tools"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Path the config was read from, empty when defaults are in use
	path string
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// FFmpeg returns the ffmpeg executable, defaulting to a PATH lookup
func (c *Config) FFmpeg() string {
	if c.Tools.FFmpeg == "" {
		return "ffmpeg"
	}
	return c.Tools.FFmpeg
}

// FFprobe returns the ffprobe executable, defaulting to a PATH lookup
func (c *Config) FFprobe() string {
	if c.Tools.FFprobe == "" {
		return "ffprobe"
	}
	return c.Tools.FFprobe
}

// AutoEditor returns the configured auto-editor path, which may be empty
func (c *Config) AutoEditor() string {
	return c.Tools.AutoEditor
}

// DefaultBitrate returns the target bitrate used when quality is not preserved
func (c *Config) DefaultBitrate() string {
	return orDefault(c.Preprocess.DefaultBitrate, defaultBitrate)
}

// AudioCodec returns the audio codec for the intermediate file
func (c *Config) AudioCodec() string {
	return orDefault(c.Preprocess.AudioCodec, defaultAudioCodec)
}

// AudioBitrate returns the audio bitrate for the intermediate file
func (c *Config) AudioBitrate() string {
	return orDefault(c.Preprocess.AudioBitrate, defaultAudioBitrate)
}

// IntermediateSuffix returns the suffix inserted before .mp4 in the intermediate name
func (c *Config) IntermediateSuffix() string {
	return orDefault(c.Preprocess.IntermediateSuffix, defaultIntermediateSuffix)
}

// VAAPIDevice returns the render node used for VA-API encodes
func (c *Config) VAAPIDevice() string {
	return orDefault(c.Preprocess.VAAPIDevice, defaultVAAPIDevice)
}

// LogLevel returns the configured log level name
func (c *Config) LogLevel() string {
	return orDefault(c.Logging.Level, "info")
}

// LogFormat returns text or json
func (c *Config) LogFormat() string {
	return orDefault(c.Logging.Format, "text")
}

// JobDefaults returns the job options the form and CLI start from.
// Unknown preset or hardware names are reported so the caller can warn.
func (c *Config) JobDefaults() (model.JobConfig, error) {
	job := model.DefaultJobConfig()
	d := c.Defaults

	if d.Threshold != nil {
		job.Threshold = *d.Threshold
	}
	if d.Margin != nil {
		job.Margin = *d.Margin
	}
	if d.Preprocess != nil {
		job.Preprocess = *d.Preprocess
	}
	job.PreserveQuality = d.PreserveQuality

	var errs []error
	if d.Preset != "" {
		p, err := model.ParsePreset(d.Preset)
		if err != nil {
			errs = append(errs, fmt.Errorf("defaults.preset: %w", err))
		} else {
			job.Preset = p
		}
	}
	if d.Hardware != "" {
		h, err := model.ParseHardwareEncoder(d.Hardware)
		if err != nil {
			errs = append(errs, fmt.Errorf("defaults.hardware: %w", err))
		} else {
			job.Hardware = h
		}
	}
	if !model.ValidThreshold(job.Threshold) {
		errs = append(errs, fmt.Errorf("defaults.threshold: %w", model.Invalid("must be between 0 and 100, got %g", job.Threshold)))
		job.Threshold = model.DefaultThreshold
	}
	if job.Margin < 0 {
		errs = append(errs, fmt.Errorf("defaults.margin: %w", model.Invalid("must not be negative, got %d", job.Margin)))
		job.Margin = model.DefaultMargin
	}
	return job, errors.Join(errs...)
}

// Load reads configuration from a YAML file and applies environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = path
	cfg.applyEnv()

	return &cfg, nil
}

// LoadDefault loads config from the default locations. A missing file is
// not an error; the defaults are used instead.
func LoadDefault() (*Config, error) {
	if explicit := os.Getenv(EnvConfigPath); explicit != "" {
		return Load(explicit)
	}

	for _, path := range defaultPaths() {
		_, err := os.Stat(path)
		if err == nil {
			return Load(path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.applyEnv()
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the
// environment without overriding variables that are already set.
// Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func defaultPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, appDirName, configFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appDirName, configFileName))
	}
	return paths
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envFFmpeg); v != "" {
		c.Tools.FFmpeg = v
	}
	if v := os.Getenv(envFFprobe); v != "" {
		c.Tools.FFprobe = v
	}
	if v := os.Getenv(envAutoEditor); v != "" {
		c.Tools.AutoEditor = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.Logging.Level = v
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
