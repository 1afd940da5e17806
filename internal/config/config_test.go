package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tablestitch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
min_merge_confidence: 0.75
enable_lsd: false
merge_gap: 4
ocr:
  enabled: true
  language: deu
log:
  level: debug
  format: json
`)

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.MinMergeConfidence)
	assert.False(t, cfg.EnableLineAnalysis)
	assert.Equal(t, 4, cfg.MergeGap)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// untouched keys keep their defaults
	assert.Equal(t, 0.20, cfg.BottomThresholdRatio)
	assert.Equal(t, 0.25, cfg.MaxGapRatio)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "min_merge_confidence: 0.75\n")
	t.Setenv("TABLESTITCH_MIN_MERGE_CONFIDENCE", "0.9")
	t.Setenv("TABLESTITCH_OCR_ENABLED", "true")

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.MinMergeConfidence)
	assert.True(t, cfg.OCR.Enabled)
}

func TestLoadFlagOverridesFile(t *testing.T) {
	path := writeConfig(t, "merge_gap: 4\nmin_merge_confidence: 0.75\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("gap", 10, "")
	fs.Float64("min-confidence", 0.65, "")
	require.NoError(t, fs.Parse([]string{"--gap=25"}))

	l := NewLoader()
	require.NoError(t, l.BindFlag("merge_gap", fs.Lookup("gap")))
	require.NoError(t, l.BindFlag("min_merge_confidence", fs.Lookup("min-confidence")))
	assert.Error(t, l.BindFlag("workers", fs.Lookup("missing")))

	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MergeGap)
	// an unset flag does not mask the file
	assert.Equal(t, 0.75, cfg.MinMergeConfidence)
	assert.Equal(t, path, l.ConfigFileUsed())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, "max_gap_ratio: 2\nmerge_gap: -1\nlog:\n  format: xml\n")

	_, err := NewLoader().Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_gap_ratio")
	assert.Contains(t, err.Error(), "merge_gap")
	assert.Contains(t, err.Error(), "log.format")
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tablestitch.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)

	// the worker count is resolved per machine at run time
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers: 0\n")
	assert.Zero(t, cfg.Workers)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "page", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"page":3`)

	_, err = LogConfig{Level: "loud"}.NewLogger(&buf)
	assert.Error(t, err)
}
