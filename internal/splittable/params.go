package splittable

import (
	"errors"
	"fmt"
	"runtime"
)

// Params configures split table detection.
type Params struct {
	// Placement: how close to the page edges the two halves must sit,
	// as a fraction of page height
	BottomThresholdRatio float64 `mapstructure:"bottom_threshold_ratio" yaml:"bottom_threshold_ratio" json:"bottom_threshold_ratio"`
	TopThresholdRatio    float64 `mapstructure:"top_threshold_ratio" yaml:"top_threshold_ratio" json:"top_threshold_ratio"`

	// Largest page-break gap (bottom margin of the first page plus top
	// margin of the second) as a fraction of the first page's height
	MaxGapRatio float64 `mapstructure:"max_gap_ratio" yaml:"max_gap_ratio" json:"max_gap_ratio"`

	// Pixel tolerance for column alignment. Informational only: alignment
	// scoring uses a tolerance of 5% of segment width.
	ColumnAlignmentTolerance float64 `mapstructure:"column_alignment_tolerance" yaml:"column_alignment_tolerance" json:"column_alignment_tolerance"`

	MinMergeConfidence       float64 `mapstructure:"min_merge_confidence" yaml:"min_merge_confidence" json:"min_merge_confidence"`
	WidthSimilarityThreshold float64 `mapstructure:"width_similarity_threshold" yaml:"width_similarity_threshold" json:"width_similarity_threshold"`

	// Structural (line) analysis; when off, proximity alone decides
	EnableLineAnalysis bool `mapstructure:"enable_lsd" yaml:"enable_lsd" json:"enable_lsd"`

	MinOverlapRatio   float64 `mapstructure:"min_overlap_ratio" yaml:"min_overlap_ratio" json:"min_overlap_ratio"`
	BoxMatchTolerance float64 `mapstructure:"box_match_tolerance" yaml:"box_match_tolerance" json:"box_match_tolerance"`

	// Concurrent pair evaluations; <= 0 means one per CPU
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// DefaultParams returns the default detection parameters.
func DefaultParams() Params {
	return Params{
		BottomThresholdRatio:     0.20,
		TopThresholdRatio:        0.15,
		MaxGapRatio:              0.25, // leaves room for running headers/footers and margins
		ColumnAlignmentTolerance: 10.0,
		MinMergeConfidence:       0.65,
		WidthSimilarityThreshold: 0.20,
		EnableLineAnalysis:       true,
		MinOverlapRatio:          0.5,
		BoxMatchTolerance:        2.0,
		Workers:                  0,
	}
}

// WithLineAnalysis returns a copy of params with structural analysis toggled.
func (p Params) WithLineAnalysis(enabled bool) Params {
	p.EnableLineAnalysis = enabled
	return p
}

// WithMinMergeConfidence returns a copy of params with a different
// acceptance threshold.
func (p Params) WithMinMergeConfidence(c float64) Params {
	p.MinMergeConfidence = c
	return p
}

// WithWorkers returns a copy of params with a different worker count.
func (p Params) WithWorkers(n int) Params {
	p.Workers = n
	return p
}

func (p Params) workers() int {
	if p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

// Validate reports every out-of-range parameter.
func (p Params) Validate() error {
	var errs []error

	ratios := []struct {
		name  string
		value float64
	}{
		{"bottom_threshold_ratio", p.BottomThresholdRatio},
		{"top_threshold_ratio", p.TopThresholdRatio},
		{"max_gap_ratio", p.MaxGapRatio},
		{"min_merge_confidence", p.MinMergeConfidence},
		{"width_similarity_threshold", p.WidthSimilarityThreshold},
		{"min_overlap_ratio", p.MinOverlapRatio},
	}
	for _, r := range ratios {
		if r.value < 0 || r.value > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %g", r.name, r.value))
		}
	}

	if p.ColumnAlignmentTolerance < 0 {
		errs = append(errs, fmt.Errorf("column_alignment_tolerance must not be negative, got %g", p.ColumnAlignmentTolerance))
	}
	if p.BoxMatchTolerance < 0 {
		errs = append(errs, fmt.Errorf("box_match_tolerance must not be negative, got %g", p.BoxMatchTolerance))
	}

	return errors.Join(errs...)
}
