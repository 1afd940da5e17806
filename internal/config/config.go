// Package config loads tablestitch settings from defaults, an optional YAML
// file, TABLESTITCH_ environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	pageimage "table-stitcher/internal/image"
	"table-stitcher/internal/splittable"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by the loader.
const EnvPrefix = "TABLESTITCH"

// Config is the full tablestitch configuration.
type Config struct {
	splittable.Params `mapstructure:",squash" yaml:",inline"`

	// Blank rows between the two halves of a merged table
	MergeGap int `mapstructure:"merge_gap" yaml:"merge_gap"`

	OCR OCRConfig `mapstructure:"ocr" yaml:"ocr"`
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// OCRConfig controls recognition of merged tables.
type OCRConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Language string `mapstructure:"language" yaml:"language"`
}

// LogConfig selects the log level and handler format ("text" or "json").
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Params:   splittable.DefaultParams(),
		MergeGap: pageimage.DefaultMergeGap,
		OCR:      OCRConfig{Enabled: false, Language: "eng"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Loader layers configuration sources with viper.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader seeded with the defaults and environment binding.
func NewLoader() *Loader {
	v := viper.New()

	d := DefaultConfig()
	defaults := map[string]any{
		"bottom_threshold_ratio":     d.BottomThresholdRatio,
		"top_threshold_ratio":        d.TopThresholdRatio,
		"max_gap_ratio":              d.MaxGapRatio,
		"column_alignment_tolerance": d.ColumnAlignmentTolerance,
		"min_merge_confidence":       d.MinMergeConfidence,
		"width_similarity_threshold": d.WidthSimilarityThreshold,
		"enable_lsd":                 d.EnableLineAnalysis,
		"min_overlap_ratio":          d.MinOverlapRatio,
		"box_match_tolerance":        d.BoxMatchTolerance,
		"workers":                    d.Workers,
		"merge_gap":                  d.MergeGap,
		"ocr.enabled":                d.OCR.Enabled,
		"ocr.language":               d.OCR.Language,
		"log.level":                  d.Log.Level,
		"log.format":                 d.Log.Format,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// TABLESTITCH_MIN_MERGE_CONFIDENCE, TABLESTITCH_OCR_ENABLED, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlag makes a command-line flag override key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind for %s", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
	}
	return nil
}

// Load reads cfgFile, or tablestitch.yaml from . or $HOME/.tablestitch
// when cfgFile is empty, and returns the validated configuration. A missing
// default file is not an error; a missing explicit file is.
func (l *Loader) Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
	} else {
		l.v.SetConfigName("tablestitch")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(home + "/.tablestitch")
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the file read by Load, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if err := c.Params.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MergeGap < 0 {
		errs = append(errs, fmt.Errorf("merge_gap must not be negative, got %d", c.MergeGap))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (c LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", c.Level, err)
	}
	return level, nil
}

// NewLogger builds a logger writing to w at the configured level and format.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// WriteDefault writes the default configuration to path as YAML.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# tablestitch configuration\n# Every key can be overridden with a TABLESTITCH_ environment variable.\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
