package splittable

import (
	"math"

	"table-stitcher/internal/columns"

	"gonum.org/v1/gonum/stat"
)

const (
	minAlignmentScore = 0.6
	// Column positions match when within this fraction of segment width
	alignmentTolerance = 0.05
)

// Score decides, from the column separators found in each half, whether a
// proximity-approved pair is one table. It returns the match, or nil and the
// reason for rejection. Fallback paths are accepted at fixed confidences.
func Score(a, b *Segment, cols1, cols2 []float64, p Params) (*Match, Rejection) {
	n1, n2 := len(cols1), len(cols2)

	match := &Match{First: a, Second: b, ColumnCount1: n1, ColumnCount2: n2}

	switch {
	case n1 > columns.MaxColumns || n2 > columns.MaxColumns:
		// Proximity already passed; noisy structure should not veto it
		match.Confidence = NoiseConfidence
		match.Reason = ReasonNoiseFallback
		return accept(match, p)

	case n1 == 0 && n2 == 0:
		// Borderless tables and faint scans
		match.Confidence = BorderlessConfidence
		match.Reason = ReasonBorderlessFallback
		return accept(match, p)

	case n1 == 0 || n2 == 0:
		return nil, RejectOneSidedColumns
	}

	if diff := absInt(n1 - n2); diff > allowedColumnDifference(max(n1, n2)) {
		return nil, RejectColumnCount
	}

	alignment := Alignment(cols1, cols2, a.Width(), b.Width())
	if alignment < minAlignmentScore {
		return nil, RejectAlignment
	}

	confidence, ok := Confidence(a, b, n1, n2, alignment)
	if !ok {
		return nil, RejectDegenerate
	}

	match.Confidence = confidence
	match.Reason = ReasonStructureValidated
	match.Alignment = alignment
	return accept(match, p)
}

// proximityOnly builds the match used when structural analysis is disabled.
func proximityOnly(a, b *Segment, p Params) (*Match, Rejection) {
	return accept(&Match{
		First:      a,
		Second:     b,
		Confidence: ProximityOnlyConfidence,
		Reason:     ReasonProximityOnly,
	}, p)
}

func accept(m *Match, p Params) (*Match, Rejection) {
	if m.Confidence < p.MinMergeConfidence {
		return nil, RejectConfidence
	}
	return m, RejectNone
}

// allowedColumnDifference returns how far column counts may differ for a
// table whose larger half has maxCols columns.
func allowedColumnDifference(maxCols int) int {
	switch {
	case maxCols <= 5:
		return 1
	case maxCols <= 10:
		return 2
	case maxCols <= columns.MaxColumns:
		return max(3, int(float64(maxCols)*0.15))
	default:
		return max(5, int(float64(maxCols)*0.20))
	}
}

// Alignment scores how well two column lists line up once each is normalized
// by its own segment width. Columns of cols1 are taken in order and each
// claims the closest unclaimed column of cols2 within 5% of width. The score
// is matched / max(len(cols1), len(cols2)); zero widths or empty lists score 0.
func Alignment(cols1, cols2 []float64, width1, width2 float64) float64 {
	if width1 <= 0 || width2 <= 0 {
		return 0
	}
	total := max(len(cols1), len(cols2))
	if total == 0 {
		return 0
	}

	used := make([]bool, len(cols2))
	matched := 0

	for _, c1 := range cols1 {
		n1 := c1 / width1
		best := -1
		bestDiff := math.Inf(1)

		for i, c2 := range cols2 {
			if used[i] {
				continue
			}
			diff := math.Abs(n1 - c2/width2)
			if diff < alignmentTolerance && diff < bestDiff {
				best = i
				bestDiff = diff
			}
		}

		if best >= 0 {
			used[best] = true
			matched++
		}
	}

	return float64(matched) / float64(total)
}

// Confidence folds the structural evidence into one score, capped at 1:
// 60% alignment, up to 20% for column count parity, 10% width similarity and
// 10% mean detector confidence. ok is false for zero-width segments.
func Confidence(a, b *Segment, n1, n2 int, alignment float64) (float64, bool) {
	widthDiff, ok := widthDifference(a.Width(), b.Width())
	if !ok {
		return 0, false
	}

	confidence := alignment * 0.6

	switch absInt(n1 - n2) {
	case 0:
		confidence += 0.2
	case 1:
		confidence += 0.1
	}

	confidence += (1 - widthDiff) * 0.1
	confidence += stat.Mean([]float64{a.Confidence, b.Confidence}, nil) * 0.1

	return math.Min(1, confidence), true
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
