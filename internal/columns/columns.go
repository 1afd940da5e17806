// Package columns estimates the x-positions of vertical column separators in a
// table image from detected line segments.
package columns

import (
	"image"
	"log/slog"
	"math"
	"sort"

	"table-stitcher/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

const (
	// MaxColumns is the largest plausible column count. Anything above it is
	// treated as noise from horizontal rules or text edges.
	MaxColumns = 20

	// Accepted angle from horizontal for a column separator, in degrees.
	minVerticalAngle = 75.0
	maxVerticalAngle = 105.0

	clusterRatio     = 0.01
	minClusterPixels = 5.0
	edgeMarginRatio  = 0.02
)

// SegmentDetector finds straight line segments in an image. Coordinates are
// relative to the image's top-left corner.
type SegmentDetector interface {
	DetectSegments(img image.Image) ([]geometry.LineSegment, error)
}

// Analyzer turns line segments into column separator positions.
type Analyzer struct {
	detector SegmentDetector
	logger   *slog.Logger
}

// NewAnalyzer creates an Analyzer backed by the given segment detector.
func NewAnalyzer(detector SegmentDetector, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{detector: detector, logger: logger}
}

// Columns returns the sorted x-coordinates of the column separators found in
// img, or an empty slice when none can be trusted. Detector failures are
// logged and reported as no columns.
func (a *Analyzer) Columns(img image.Image) []float64 {
	segments, err := a.detector.DetectSegments(img)
	if err != nil {
		a.logger.Warn("line detection failed", "error", err)
		return nil
	}
	return FromSegments(segments, img.Bounds().Dx())
}

// FromSegments runs the column estimation over already-detected segments for
// an image of the given width:
//
//  1. keep near-vertical segments (75-105 degrees from horizontal)
//  2. collect both endpoint x's, deduplicated and sorted
//  3. cluster within max(5px, 1% of width), one mean per cluster
//  4. with more than two clusters, drop those within 2% of either edge
//  5. more than MaxColumns results is noise and yields nothing
func FromSegments(segments []geometry.LineSegment, width int) []float64 {
	xs := VerticalXs(segments)
	if len(xs) == 0 {
		return nil
	}

	w := float64(width)
	clustered := Cluster(xs, math.Max(minClusterPixels, w*clusterRatio))

	if len(clustered) > 2 {
		clustered = dropEdges(clustered, w, w*edgeMarginRatio)
	}

	if len(clustered) > MaxColumns {
		return nil
	}
	return clustered
}

// VerticalXs returns the distinct, sorted endpoint x-coordinates of the
// near-vertical segments.
func VerticalXs(segments []geometry.LineSegment) []float64 {
	seen := make(map[float64]struct{}, len(segments)*2)
	var xs []float64

	for _, s := range segments {
		angle := s.AngleDegrees()
		if angle < minVerticalAngle || angle > maxVerticalAngle {
			continue
		}
		for _, x := range []float64{s.Start.X, s.End.X} {
			if _, ok := seen[x]; ok {
				continue
			}
			seen[x] = struct{}{}
			xs = append(xs, x)
		}
	}

	sort.Float64s(xs)
	return xs
}

// Cluster groups sorted-or-unsorted values into runs where consecutive values
// differ by at most threshold, and returns the mean of each run in ascending
// order. Values already separated by more than threshold come back unchanged.
func Cluster(values []float64, threshold float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var centers []float64
	current := []float64{sorted[0]}
	for _, v := range sorted[1:] {
		if v-current[len(current)-1] <= threshold {
			current = append(current, v)
			continue
		}
		centers = append(centers, stat.Mean(current, nil))
		current = []float64{v}
	}
	centers = append(centers, stat.Mean(current, nil))

	return centers
}

func dropEdges(cols []float64, width, margin float64) []float64 {
	kept := cols[:0:0]
	for _, c := range cols {
		if c >= margin && c <= width-margin {
			kept = append(kept, c)
		}
	}
	return kept
}
