package splittable

import (
	"math"

	"table-stitcher/pkg/geometry"
)

// CheckProximity runs the geometric gates on a candidate pair, a on the
// earlier page and b on the next, and returns the first failing gate or
// RejectNone. Gates in order: page adjacency, bottom/top placement,
// horizontal overlap, page-break gap, width similarity.
func CheckProximity(a, b *Segment, p Params) Rejection {
	if b.PageIndex != a.PageIndex+1 {
		return RejectNotAdjacent
	}
	if a.PageHeight <= 0 || b.PageHeight <= 0 {
		return RejectDegenerate
	}

	aHeight := float64(a.PageHeight)
	bottomRatio := a.Box.Y2 / aHeight
	topRatio := b.Box.Y1 / float64(b.PageHeight)
	if bottomRatio < 1-p.BottomThresholdRatio || topRatio > p.TopThresholdRatio {
		return RejectPlacement
	}

	if geometry.IntervalIoU(a.Box.X1, a.Box.X2, b.Box.X1, b.Box.X2) < p.MinOverlapRatio {
		return RejectOverlap
	}

	// The page break itself has no height
	gap := aHeight - a.Box.Y2 + b.Box.Y1
	if gap/aHeight > p.MaxGapRatio {
		return RejectGap
	}

	diff, ok := widthDifference(a.Width(), b.Width())
	if !ok {
		return RejectDegenerate
	}
	if diff > p.WidthSimilarityThreshold {
		return RejectWidth
	}

	return RejectNone
}

// widthDifference returns |w1-w2| / max(w1,w2); ok is false when the larger
// width is not positive.
func widthDifference(w1, w2 float64) (float64, bool) {
	larger := math.Max(w1, w2)
	if larger <= 0 {
		return 0, false
	}
	return math.Abs(w1-w2) / larger, true
}
