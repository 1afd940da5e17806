package splittable

import (
	"context"
	"image"
	"log/slog"
	"sync"

	pageimage "table-stitcher/internal/image"
	"table-stitcher/internal/layout"

	"golang.org/x/sync/errgroup"
)

// ColumnAnalyzer locates column separators in a table image, returning their
// x-coordinates in image pixels. An empty result means no trustworthy
// structure was found; it is not an error.
type ColumnAnalyzer interface {
	Columns(img image.Image) []float64
}

// Stats summarizes one detection run.
type Stats struct {
	Segments        int            `json:"segments" yaml:"segments"`
	PairsConsidered int            `json:"pairs_considered" yaml:"pairs_considered"`
	ProximityPassed int            `json:"proximity_passed" yaml:"proximity_passed"`
	Accepted        int            `json:"accepted" yaml:"accepted"`
	Rejected        map[string]int `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

func (s *Stats) reject(r Rejection) {
	if s.Rejected == nil {
		s.Rejected = make(map[string]int)
	}
	s.Rejected[r.String()]++
}

// Result holds the segments and accepted matches of a detection run.
type Result struct {
	Segments []*Segment
	Matches  []*Match
	Stats    Stats
}

// IsMerged reports whether the layout box on page belongs to an accepted
// match, so callers can drop the per-page crop in favour of the merged table.
func (r *Result) IsMerged(page int, box layout.Box, tol float64) bool {
	for _, m := range r.Matches {
		if m.First.MatchesBox(box, page, tol) || m.Second.MatchesBox(box, page, tol) {
			return true
		}
	}
	return false
}

// BoxRef identifies a table box of the layout.
type BoxRef struct {
	PageIndex int
	BoxIndex  int
	Box       layout.Box
}

// Standalone lists the table boxes of pages that no accepted match consumed,
// in page then box order. These are the tables to emit on their own.
func (r *Result) Standalone(pages []layout.Page, tol float64) []BoxRef {
	var refs []BoxRef
	for _, page := range pages {
		for i, box := range page.Boxes {
			if !box.IsTable() || r.IsMerged(page.Index, box, tol) {
				continue
			}
			refs = append(refs, BoxRef{PageIndex: page.Index, BoxIndex: i, Box: box})
		}
	}
	return refs
}

// Detector finds split tables across a document.
type Detector struct {
	params   Params
	analyzer ColumnAnalyzer
	logger   *slog.Logger
}

// NewDetector creates a Detector. analyzer may be nil when line analysis is
// disabled; with a nil analyzer every pair is judged on proximity alone.
func NewDetector(params Params, analyzer ColumnAnalyzer, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if analyzer == nil && params.EnableLineAnalysis {
		logger.Warn("no column analyzer configured, falling back to proximity-only matching")
		params.EnableLineAnalysis = false
	}
	return &Detector{params: params, analyzer: analyzer, logger: logger}
}

// Params returns the effective detection parameters.
func (d *Detector) Params() Params {
	return d.params
}

// Detect extracts table segments from the layout pages and page images and
// returns the accepted split table matches.
func (d *Detector) Detect(ctx context.Context, pages []layout.Page, images []image.Image) (*Result, error) {
	segments := ExtractSegments(pages, images, d.logger)
	return d.DetectSegments(ctx, segments)
}

type candidate struct {
	a, b *Segment
}

type outcome struct {
	match     *Match
	rejection Rejection
}

// DetectSegments evaluates every pair of segments on consecutive pages.
// Proximity runs first on all pairs; the survivors are scored concurrently.
// Matches come back in segment pair order.
func (d *Detector) DetectSegments(ctx context.Context, segments []*Segment) (*Result, error) {
	result := &Result{Segments: segments}
	result.Stats.Segments = len(segments)

	var candidates []candidate
	for i, a := range segments {
		for _, b := range segments[i+1:] {
			if b.PageIndex != a.PageIndex+1 {
				continue
			}
			result.Stats.PairsConsidered++

			if r := CheckProximity(a, b, d.params); r != RejectNone {
				result.Stats.reject(r)
				continue
			}
			candidates = append(candidates, candidate{a: a, b: b})
		}
	}
	result.Stats.ProximityPassed = len(candidates)

	columns := d.columnCache(candidates)
	outcomes := make([]outcome, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.params.workers())
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, r := d.evaluate(c.a, c.b, columns)
			outcomes[i] = outcome{match: m, rejection: r}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, o := range outcomes {
		c := candidates[i]
		if o.match == nil {
			result.Stats.reject(o.rejection)
			d.logger.Debug("split table candidate rejected",
				"first", c.a.String(),
				"second", c.b.String(),
				"reason", o.rejection.String(),
			)
			continue
		}

		d.logger.Info("split table detected",
			"first_page", c.a.PageIndex,
			"second_page", c.b.PageIndex,
			"confidence", o.match.Confidence,
			"reason", o.match.Description(),
		)
		result.Matches = append(result.Matches, o.match)
	}
	result.Stats.Accepted = len(result.Matches)

	return result, nil
}

// Evaluate runs the full decision on a single pair: proximity, then
// structural scoring. It returns the match or the rejection reason.
func (d *Detector) Evaluate(a, b *Segment) (*Match, Rejection) {
	if r := CheckProximity(a, b, d.params); r != RejectNone {
		return nil, r
	}
	return d.evaluate(a, b, d.columnCache([]candidate{{a: a, b: b}}))
}

func (d *Detector) evaluate(a, b *Segment, cache map[*Segment]*columnEntry) (*Match, Rejection) {
	if !d.params.EnableLineAnalysis {
		return proximityOnly(a, b, d.params)
	}
	return Score(a, b, cache[a].get(d.analyzer, a), cache[b].get(d.analyzer, b), d.params)
}

// columnEntry memoizes one segment's column analysis so a segment appearing
// in several candidate pairs is analysed once.
type columnEntry struct {
	once sync.Once
	cols []float64
}

func (e *columnEntry) get(analyzer ColumnAnalyzer, s *Segment) []float64 {
	e.once.Do(func() {
		e.cols = analyzer.Columns(s.Image)
	})
	return e.cols
}

// columnCache builds the memo table before any worker starts, so workers
// only read the map.
func (d *Detector) columnCache(candidates []candidate) map[*Segment]*columnEntry {
	cache := make(map[*Segment]*columnEntry)
	for _, c := range candidates {
		for _, s := range []*Segment{c.a, c.b} {
			if _, ok := cache[s]; !ok {
				cache[s] = &columnEntry{}
			}
		}
	}
	return cache
}

// MergeImages stacks the two halves of a match into one image with gap
// blank rows between them, widths equalized to the wider half.
func MergeImages(m *Match, gap int) *image.RGBA {
	return pageimage.MergeVertical(m.First.Image, m.Second.Image, gap)
}
