// Package config loads the alignment run configuration from defaults, an
// optional YAML file, BARKALIGN_* environment variables and CLI flags, in
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwbudde/barkalign/dsp/pitch"
)

// EnvPrefix prefixes environment overrides, e.g. BARKALIGN_WORKERS=4.
const EnvPrefix = "BARKALIGN"

// Config holds every tunable of an alignment run.
type Config struct {
	InputDir      string   `mapstructure:"input_dir"`
	OutputDir     string   `mapstructure:"output_dir"`
	ReferenceFile string   `mapstructure:"reference_file"`
	Extensions    []string `mapstructure:"extensions"`

	SampleRate       int       `mapstructure:"sample_rate"`
	TrimThresholdDB  float64   `mapstructure:"trim_threshold_db"`
	TargetPeak       float64   `mapstructure:"target_peak"`
	PitchBandHz      []float64 `mapstructure:"pitch_band_hz"`
	FrameLength      int       `mapstructure:"frame_length"`
	HopLength        int       `mapstructure:"hop_length"`
	VoicingThreshold float64   `mapstructure:"voicing_threshold"`

	Backend  string `mapstructure:"backend"`
	Fallback string `mapstructure:"fallback"`
	Workers  int    `mapstructure:"workers"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		InputDir:         "sounds/originals",
		OutputDir:        "sounds/optimized",
		ReferenceFile:    "dog-bark-type-03-293293.mp3",
		Extensions:       []string{".mp3", ".wav"},
		SampleRate:       22050,
		TrimThresholdDB:  40,
		TargetPeak:       0.89,
		PitchBandHz:      []float64{70, 600},
		FrameLength:      2048,
		HopLength:        512,
		VoicingThreshold: 0.15,
		Backend:          string(pitch.BackendAuto),
		Fallback:         string(pitch.BackendWSOLA),
		Workers:          1,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// PitchMinHz returns the lower edge of the pitch band.
func (c *Config) PitchMinHz() float64 { return c.PitchBandHz[0] }

// PitchMaxHz returns the upper edge of the pitch band.
func (c *Config) PitchMaxHz() float64 { return c.PitchBandHz[1] }

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.InputDir) == "" {
		errs = append(errs, errors.New("input_dir must not be empty"))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if strings.TrimSpace(c.ReferenceFile) == "" {
		errs = append(errs, errors.New("reference_file must not be empty"))
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("extensions must not be empty"))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive: %d", c.SampleRate))
	}
	if c.TrimThresholdDB < 0 {
		errs = append(errs, fmt.Errorf("trim_threshold_db must be >= 0: %g", c.TrimThresholdDB))
	}
	if !(c.TargetPeak > 0 && c.TargetPeak <= 1) {
		errs = append(errs, fmt.Errorf("target_peak must be in (0, 1]: %g", c.TargetPeak))
	}
	switch {
	case len(c.PitchBandHz) != 2:
		errs = append(errs, fmt.Errorf("pitch_band_hz must have two entries: %v", c.PitchBandHz))
	case !(c.PitchBandHz[0] > 0 && c.PitchBandHz[0] < c.PitchBandHz[1]):
		errs = append(errs, fmt.Errorf("pitch_band_hz must satisfy 0 < min < max: %v", c.PitchBandHz))
	}
	if c.FrameLength <= 0 || c.FrameLength&(c.FrameLength-1) != 0 {
		errs = append(errs, fmt.Errorf("frame_length must be a power of two: %d", c.FrameLength))
	}
	if c.HopLength <= 0 || c.HopLength > c.FrameLength {
		errs = append(errs, fmt.Errorf("hop_length must be in [1, frame_length]: %d", c.HopLength))
	}
	if !(c.VoicingThreshold > 0 && c.VoicingThreshold < 1) {
		errs = append(errs, fmt.Errorf("voicing_threshold must be in (0, 1): %g", c.VoicingThreshold))
	}
	if _, err := pitch.ParseBackend(c.Backend); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}
	if b, err := pitch.ParseBackend(c.Fallback); err != nil {
		errs = append(errs, fmt.Errorf("fallback: %w", err))
	} else if b == pitch.BackendAuto {
		errs = append(errs, errors.New("fallback must name a concrete backend"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1: %d", c.Workers))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Load resolves the configuration. path may be empty; flags may be nil.
// Flags are matched to keys by replacing '-' with '_', so --input-dir sets
// input_dir.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("input_dir", def.InputDir)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("reference_file", def.ReferenceFile)
	v.SetDefault("extensions", def.Extensions)
	v.SetDefault("sample_rate", def.SampleRate)
	v.SetDefault("trim_threshold_db", def.TrimThresholdDB)
	v.SetDefault("target_peak", def.TargetPeak)
	v.SetDefault("pitch_band_hz", def.PitchBandHz)
	v.SetDefault("frame_length", def.FrameLength)
	v.SetDefault("hop_length", def.HopLength)
	v.SetDefault("voicing_threshold", def.VoicingThreshold)
	v.SetDefault("backend", def.Backend)
	v.SetDefault("fallback", def.Fallback)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if bindErr == nil && v.IsSet(key) {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("config: bind flags: %w", bindErr)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	return &c, nil
}
