// Package lines detects straight rule lines in table images with OpenCV.
package lines

import (
	"errors"
	"image"
	"math"

	"table-stitcher/pkg/geometry"

	"gocv.io/x/gocv"
)

// Params configures preprocessing and line segment detection.
type Params struct {
	// CLAHE (Contrast Limited Adaptive Histogram Equalization)
	CLAHEClipLimit float64
	CLAHETileSize  int

	// Height of the 1px wide closing kernel that bridges dashed rules
	CloseKernelHeight int

	// Probabilistic Hough transform
	HoughRho           float64 // Distance resolution in pixels
	HoughThetaDegrees  float64 // Angle resolution in degrees
	HoughThreshold     int     // Minimum accumulator votes
	MinLineLength      float64 // Absolute floor for segment length (pixels)
	MinLineLengthRatio float64 // Segment length floor relative to image height
	MaxLineGap         float64 // Largest gap joined into one segment (pixels)
}

// DefaultParams returns default detection parameters, tuned for rendered
// document pages around 150-300 DPI.
func DefaultParams() Params {
	return Params{
		CLAHEClipLimit:    2.0,
		CLAHETileSize:     8,
		CloseKernelHeight: 5,

		HoughRho:           1,
		HoughThetaDegrees:  1,
		HoughThreshold:     30,
		MinLineLength:      10,
		MinLineLengthRatio: 0.3,
		MaxLineGap:         5,
	}
}

// WithMinLineLengthRatio returns a copy of params with a different relative
// segment length floor.
func (p Params) WithMinLineLengthRatio(ratio float64) Params {
	p.MinLineLengthRatio = ratio
	return p
}

// WithHoughThreshold returns a copy of params with a different vote threshold.
func (p Params) WithHoughThreshold(votes int) Params {
	p.HoughThreshold = votes
	return p
}

// Detector finds line segments in table crops. It keeps no per-image state,
// so one Detector may serve concurrent callers.
type Detector struct {
	params Params
}

// NewDetector creates a Detector with the given parameters.
func NewDetector(params Params) *Detector {
	return &Detector{params: params}
}

// Params returns the detector's parameters.
func (d *Detector) Params() Params {
	return d.params
}

// DetectSegments preprocesses img and returns the line segments found in it,
// in image pixel coordinates.
func (d *Detector) DetectSegments(img image.Image) ([]geometry.LineSegment, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}

	gray := ToGrayMat(img)
	defer gray.Close()

	processed := d.Preprocess(gray)
	defer processed.Close()

	minLen := math.Max(d.params.MinLineLength, d.params.MinLineLengthRatio*float64(processed.Rows()))

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(processed, &lines,
		float32(d.params.HoughRho),
		float32(d.params.HoughThetaDegrees*math.Pi/180),
		d.params.HoughThreshold,
		float32(minLen),
		float32(d.params.MaxLineGap))

	segments := make([]geometry.LineSegment, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		segments = append(segments, geometry.NewLineSegment(
			float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])))
	}

	return segments, nil
}

// Preprocess enhances a grayscale table image so rule lines become white
// foreground on black: CLAHE, inverted Otsu threshold, then a vertical
// morphological close. The caller owns the returned Mat.
func (d *Detector) Preprocess(gray gocv.Mat) gocv.Mat {
	tile := d.params.CLAHETileSize
	clahe := gocv.NewCLAHEWithParams(d.params.CLAHEClipLimit, image.Pt(tile, tile))
	defer clahe.Close()

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(gray, &enhanced)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	// Tall, thin kernel: closes gaps along vertical rules only
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(1, d.params.CloseKernelHeight))
	defer kernel.Close()

	morph := gocv.NewMat()
	gocv.MorphologyEx(binary, &morph, gocv.MorphClose, kernel)

	return morph
}
