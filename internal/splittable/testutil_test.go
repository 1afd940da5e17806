package splittable

import (
	"image"
	"sync"

	"table-stitcher/pkg/geometry"
)

const (
	pageW = 1000
	pageH = 1000
)

// segment builds a segment on a 1000x1000 page with a blank crop of the
// box's size.
func segment(page int, x1, y1, x2, y2 float64) *Segment {
	b := geometry.NewBox(x1, y1, x2, y2)
	w, h := max(1, int(b.Width())), max(1, int(b.Height()))
	return &Segment{
		PageIndex:  page,
		Box:        b,
		Source:     b,
		PageWidth:  pageW,
		PageHeight: pageH,
		Image:      image.NewGray(image.Rect(0, 0, w, h)),
		Confidence: 0.9,
	}
}

// bottomSegment sits at the bottom of its page, topSegment at the top of the
// next one; together they pass every proximity gate.
func bottomSegment(page int) *Segment { return segment(page, 100, 700, 900, 950) }
func topSegment(page int) *Segment    { return segment(page, 84, 50, 868, 400) }

// evenly returns n evenly spaced interior positions across width.
func evenly(n int, width float64) []float64 {
	cols := make([]float64, n)
	for i := range cols {
		cols[i] = width * float64(i+1) / float64(n+1)
	}
	return cols
}

// evenAnalyzer reports n evenly spaced columns for any image.
type evenAnalyzer struct{ n int }

func (e evenAnalyzer) Columns(img image.Image) []float64 {
	return evenly(e.n, float64(img.Bounds().Dx()))
}

// mapAnalyzer returns fixed columns per image and counts calls.
type mapAnalyzer struct {
	mu    sync.Mutex
	cols  map[image.Image][]float64
	calls map[image.Image]int
}

func newMapAnalyzer() *mapAnalyzer {
	return &mapAnalyzer{cols: map[image.Image][]float64{}, calls: map[image.Image]int{}}
}

func (m *mapAnalyzer) set(s *Segment, cols []float64) {
	m.cols[s.Image] = cols
}

func (m *mapAnalyzer) Columns(img image.Image) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[img]++
	return m.cols[img]
}

func (m *mapAnalyzer) callCount(s *Segment) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[s.Image]
}
