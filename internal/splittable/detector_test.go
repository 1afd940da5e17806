package splittable

import (
	"context"
	"errors"
	"image"
	"testing"

	"table-stitcher/internal/columns"
	"table-stitcher/internal/layout"
	"table-stitcher/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectSegmentsSplitTable(t *testing.T) {
	d := NewDetector(DefaultParams(), evenAnalyzer{n: 5}, nil)

	res, err := d.DetectSegments(context.Background(), []*Segment{bottomSegment(1), topSegment(2)})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	m := res.Matches[0]
	assert.Equal(t, ReasonStructureValidated, m.Reason)
	assert.Equal(t, 5, m.ColumnCount1)
	assert.Equal(t, 5, m.ColumnCount2)
	assert.GreaterOrEqual(t, m.Confidence, 0.65)

	p1, p2 := m.Pages()
	assert.Equal(t, 1, p1)
	assert.Equal(t, 2, p2)
	assert.Equal(t, "merged_table_1_2.png", m.MergedName())
	assert.Equal(t, "Merged Table (pages 1-2)", m.Title())

	assert.Equal(t, 2, res.Stats.Segments)
	assert.Equal(t, 1, res.Stats.PairsConsidered)
	assert.Equal(t, 1, res.Stats.ProximityPassed)
	assert.Equal(t, 1, res.Stats.Accepted)
}

func TestDetectSegmentsNonAdjacentPages(t *testing.T) {
	d := NewDetector(DefaultParams(), evenAnalyzer{n: 5}, nil)

	res, err := d.DetectSegments(context.Background(), []*Segment{bottomSegment(3), topSegment(5)})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Zero(t, res.Stats.PairsConsidered)
}

func TestDetectSegmentsProximityOnly(t *testing.T) {
	a := newMapAnalyzer()
	first, second := bottomSegment(1), topSegment(2)
	a.set(first, []float64{100, 200})
	a.set(second, []float64{600})

	d := NewDetector(DefaultParams().WithLineAnalysis(false), a, nil)

	res, err := d.DetectSegments(context.Background(), []*Segment{first, second})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	assert.Equal(t, ProximityOnlyConfidence, res.Matches[0].Confidence)
	assert.Equal(t, ReasonProximityOnly, res.Matches[0].Reason)
	assert.Zero(t, a.callCount(first))
	assert.Zero(t, a.callCount(second))
}

func TestNewDetectorWithoutAnalyzer(t *testing.T) {
	d := NewDetector(DefaultParams(), nil, nil)
	assert.False(t, d.Params().EnableLineAnalysis)

	m, r := d.Evaluate(bottomSegment(1), topSegment(2))
	require.Equal(t, RejectNone, r)
	assert.Equal(t, ProximityOnlyConfidence, m.Confidence)
}

// imageSegments serves fixed line segments per image.
type imageSegments map[image.Image][]geometry.LineSegment

func (f imageSegments) DetectSegments(img image.Image) ([]geometry.LineSegment, error) {
	return f[img], nil
}

func TestDetectSegmentsNoisyStructureFallsBack(t *testing.T) {
	first, second := bottomSegment(1), topSegment(2)

	// 25 well-separated rules on the first half, nothing on the second
	var rules []geometry.LineSegment
	for i := 0; i < 25; i++ {
		x := 20 + 30*float64(i)
		rules = append(rules, geometry.NewLineSegment(x, 0, x, 200))
	}
	analyzer := columns.NewAnalyzer(imageSegments{first.Image: rules}, nil)

	d := NewDetector(DefaultParams(), analyzer, nil)
	res, err := d.DetectSegments(context.Background(), []*Segment{first, second})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	// the noisy side collapses to no columns, leaving both sides empty
	m := res.Matches[0]
	assert.Equal(t, BorderlessConfidence, m.Confidence)
	assert.Equal(t, ReasonBorderlessFallback, m.Reason)
}

func TestDetectSegmentsAnalyzesEachSegmentOnce(t *testing.T) {
	a := newMapAnalyzer()
	first := bottomSegment(1)
	second := topSegment(2)
	third := segment(2, 100, 60, 900, 380)
	a.set(first, evenly(5, 800))
	a.set(second, evenly(5, 784))
	a.set(third, evenly(5, 800))

	d := NewDetector(DefaultParams().WithWorkers(4), a, nil)
	res, err := d.DetectSegments(context.Background(), []*Segment{first, second, third})
	require.NoError(t, err)

	require.Len(t, res.Matches, 2)
	assert.Same(t, second, res.Matches[0].Second)
	assert.Same(t, third, res.Matches[1].Second)

	assert.Equal(t, 1, a.callCount(first))
	assert.Equal(t, 1, a.callCount(second))
	assert.Equal(t, 1, a.callCount(third))
}

func TestDetectSegmentsCountsRejections(t *testing.T) {
	a := newMapAnalyzer()
	first, second := bottomSegment(1), topSegment(2)
	a.set(first, []float64{100, 200, 300})
	a.set(second, []float64{500, 600, 700})
	far := segment(2, 100, 300, 900, 600)

	d := NewDetector(DefaultParams(), a, nil)
	res, err := d.DetectSegments(context.Background(), []*Segment{first, second, far})
	require.NoError(t, err)

	assert.Empty(t, res.Matches)
	assert.Equal(t, 2, res.Stats.PairsConsidered)
	assert.Equal(t, 1, res.Stats.ProximityPassed)
	assert.Equal(t, map[string]int{
		RejectPlacement.String(): 1,
		RejectAlignment.String(): 1,
	}, res.Stats.Rejected)
}

func TestDetectSegmentsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDetector(DefaultParams(), evenAnalyzer{n: 5}, nil)
	_, err := d.DetectSegments(ctx, []*Segment{bottomSegment(1), topSegment(2)})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDetectFromLayout(t *testing.T) {
	pages := []layout.Page{
		{
			Index: 1, Width: pageW, Height: pageH,
			Boxes: []layout.Box{
				{Label: "text", Score: 0.99, X1: 100, Y1: 100, X2: 900, Y2: 600},
				{Label: layout.LabelTable, Score: 0.95, X1: 100, Y1: 700, X2: 900, Y2: 950},
			},
		},
		{
			Index: 2, Width: pageW, Height: pageH,
			Boxes: []layout.Box{
				{Label: layout.LabelTable, Score: 0.85, X1: 84, Y1: 50, X2: 868, Y2: 400},
			},
		},
	}
	images := []image.Image{
		image.NewRGBA(image.Rect(0, 0, pageW, pageH)),
		image.NewRGBA(image.Rect(0, 0, pageW, pageH)),
	}

	d := NewDetector(DefaultParams(), evenAnalyzer{n: 5}, nil)
	res, err := d.Detect(context.Background(), pages, images)
	require.NoError(t, err)

	require.Len(t, res.Segments, 2)
	require.Len(t, res.Matches, 1)
	// 0.6 + 0.2 + 0.1*0.98 + 0.1*0.9
	assert.InDelta(t, 0.988, res.Matches[0].Confidence, 1e-9)

	tol := d.Params().BoxMatchTolerance
	assert.True(t, res.IsMerged(1, pages[0].Boxes[1], tol))
	assert.True(t, res.IsMerged(2, layout.Box{Label: layout.LabelTable, X1: 85, Y1: 51, X2: 867, Y2: 401}, tol))
	assert.False(t, res.IsMerged(1, pages[0].Boxes[0], tol))
	assert.False(t, res.IsMerged(2, pages[0].Boxes[1], tol))
}

func TestMergeImages(t *testing.T) {
	m := &Match{First: bottomSegment(1), Second: topSegment(2)}

	merged := MergeImages(m, 10)

	// 800x250 over 784x350 scaled to 800 wide (357 rows)
	assert.Equal(t, 800, merged.Bounds().Dx())
	assert.Equal(t, 250+10+357, merged.Bounds().Dy())
}
