// Package splittable detects tables split across a page break and decides
// whether the two halves should be merged.
//
// Detection runs in two phases. A cheap geometric proximity filter rejects
// most candidate pairs outright; survivors go through structural analysis,
// where the column separators of both halves are located and compared.
package splittable

import (
	"fmt"
	"image"

	"table-stitcher/internal/layout"
	"table-stitcher/pkg/geometry"
)

// Segment is one table candidate on one page.
type Segment struct {
	PageIndex  int          // 1-based
	BoxIndex   int          // index of the box within its page
	Box        geometry.Box // absolute pixel coordinates, clipped to the page
	Source     geometry.Box // layout box as detected, before clipping
	PageWidth  int
	PageHeight int
	Image      image.Image // cropped table region
	Confidence float64     // layout detector score
}

// Width returns the segment width in page pixels.
func (s *Segment) Width() float64 {
	return s.Box.Width()
}

// MatchesBox reports whether box on page is the layout box this segment was
// cut from, within tol pixels on every coordinate.
func (s *Segment) MatchesBox(box layout.Box, page int, tol float64) bool {
	if page != s.PageIndex {
		return false
	}
	return s.Source.Near(box.Bounds(), tol)
}

func (s *Segment) String() string {
	return fmt.Sprintf("page %d box %d", s.PageIndex, s.BoxIndex)
}

// MergeReason identifies which evidence path accepted a match.
type MergeReason int

const (
	// ReasonProximityOnly: structural analysis disabled, geometry alone decided.
	ReasonProximityOnly MergeReason = iota
	// ReasonNoiseFallback: a side reported more columns than a real table has.
	ReasonNoiseFallback
	// ReasonBorderlessFallback: neither side showed column separators.
	ReasonBorderlessFallback
	// ReasonStructureValidated: column counts and positions agreed.
	ReasonStructureValidated
)

func (r MergeReason) String() string {
	switch r {
	case ReasonProximityOnly:
		return "proximity only"
	case ReasonNoiseFallback:
		return "too many columns, noise fallback"
	case ReasonBorderlessFallback:
		return "no columns detected, borderless fallback"
	case ReasonStructureValidated:
		return "column structure validated"
	default:
		return "unknown"
	}
}

// MarshalText renders the reason by name.
func (r MergeReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Fixed confidences for the fallback paths.
const (
	ProximityOnlyConfidence = 0.80
	NoiseConfidence         = 0.70
	BorderlessConfidence    = 0.65
)

// Match links two segments judged to be halves of one table.
// First is the segment on the earlier page.
type Match struct {
	First        *Segment
	Second       *Segment
	Confidence   float64
	Reason       MergeReason
	ColumnCount1 int
	ColumnCount2 int
	Alignment    float64 // 0 unless Reason is ReasonStructureValidated
}

// Description returns the human-readable merge reason, including the column
// evidence when structure validation produced the match.
func (m *Match) Description() string {
	if m.Reason == ReasonStructureValidated {
		return fmt.Sprintf("%s: %d vs %d columns, alignment=%.2f",
			m.Reason, m.ColumnCount1, m.ColumnCount2, m.Alignment)
	}
	return m.Reason.String()
}

// Pages returns the page numbers of both halves.
func (m *Match) Pages() (int, int) {
	return m.First.PageIndex, m.Second.PageIndex
}

// MergedName is the file name used for the merged image of this match.
func (m *Match) MergedName() string {
	return fmt.Sprintf("merged_table_%d_%d.png", m.First.PageIndex, m.Second.PageIndex)
}

// Title is the display title for the merged table.
func (m *Match) Title() string {
	return fmt.Sprintf("Merged Table (pages %d-%d)", m.First.PageIndex, m.Second.PageIndex)
}

func (m *Match) String() string {
	return fmt.Sprintf("%s + %s (%.2f, %s)", m.First, m.Second, m.Confidence, m.Description())
}

// Rejection names the check that ruled out a candidate pair.
type Rejection int

const (
	RejectNone Rejection = iota
	RejectNotAdjacent
	RejectDegenerate
	RejectPlacement
	RejectOverlap
	RejectGap
	RejectWidth
	RejectOneSidedColumns
	RejectColumnCount
	RejectAlignment
	RejectConfidence
)

func (r Rejection) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectNotAdjacent:
		return "pages not adjacent"
	case RejectDegenerate:
		return "degenerate geometry"
	case RejectPlacement:
		return "not at page bottom/top"
	case RejectOverlap:
		return "insufficient horizontal overlap"
	case RejectGap:
		return "gap too large"
	case RejectWidth:
		return "widths differ"
	case RejectOneSidedColumns:
		return "columns on one side only"
	case RejectColumnCount:
		return "column counts differ"
	case RejectAlignment:
		return "columns misaligned"
	case RejectConfidence:
		return "confidence below threshold"
	default:
		return "unknown"
	}
}

// IsProximity reports whether the rejection came from the geometric filter.
func (r Rejection) IsProximity() bool {
	return r >= RejectNotAdjacent && r <= RejectWidth
}
