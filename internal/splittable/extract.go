package splittable

import (
	"image"
	"log/slog"

	pageimage "table-stitcher/internal/image"
	"table-stitcher/internal/layout"
	"table-stitcher/pkg/geometry"
)

// ExtractSegments crops every table box of every page into a Segment, in page
// then box order. images is indexed 0-based by page order, while page indexes
// are 1-based; pages without a matching image are skipped with a warning.
func ExtractSegments(pages []layout.Page, images []image.Image, logger *slog.Logger) []*Segment {
	if logger == nil {
		logger = slog.Default()
	}

	var segments []*Segment
	for _, page := range pages {
		if page.Index < 1 || page.Index > len(images) {
			logger.Warn("skipping page: index out of range",
				"page", page.Index,
				"max", len(images),
			)
			continue
		}
		pageImg := images[page.Index-1]

		ib := pageImg.Bounds()
		limit := geometry.NewBox(
			float64(max(0, ib.Min.X)),
			float64(max(0, ib.Min.Y)),
			float64(min(page.Width, ib.Max.X)),
			float64(min(page.Height, ib.Max.Y)),
		)

		for i, box := range page.Boxes {
			if !box.IsTable() {
				continue
			}

			source := box.Bounds()
			if !source.IsValid() {
				logger.Warn("skipping degenerate table box", "page", page.Index, "box", i)
				continue
			}

			bounds := source.Intersect(limit)
			if !bounds.IsValid() {
				logger.Warn("skipping table box outside the page", "page", page.Index, "box", i)
				continue
			}

			crop, err := pageimage.Crop(pageImg, bounds.PixelRect())
			if err != nil {
				logger.Warn("skipping table box", "page", page.Index, "box", i, "error", err)
				continue
			}

			segments = append(segments, &Segment{
				PageIndex:  page.Index,
				BoxIndex:   i,
				Box:        bounds,
				Source:     source,
				PageWidth:  page.Width,
				PageHeight: page.Height,
				Image:      crop,
				Confidence: box.Score,
			})
		}
	}

	return segments
}
