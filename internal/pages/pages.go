// Package pages loads the rendered page images of a document, either from a
// directory of image files or from the embedded page scans of a PDF.
package pages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"unicode"

	pageimage "table-stitcher/internal/image"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

// ErrNoImages is returned when a source yields no page images.
var ErrNoImages = errors.New("no page images found")

// Loader reads page images. Page i of the document is element i-1 of the
// returned slice.
type Loader struct {
	// Workers bounds concurrent image decoding; <= 0 means one per CPU
	Workers int
	Logger  *slog.Logger
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *Loader) workers() int {
	if l.Workers <= 0 {
		return runtime.NumCPU()
	}
	return l.Workers
}

// Load reads the page images at path, which is either a directory or a PDF.
func (l *Loader) Load(ctx context.Context, path string) ([]image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat page source: %w", err)
	}
	if info.IsDir() {
		return l.LoadDir(ctx, path)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return l.LoadPDF(ctx, path)
	}
	return nil, fmt.Errorf("unsupported page source %s: want a directory or a PDF", filepath.Base(path))
}

// LoadDir decodes every supported image in dir, ordered by natural name order
// so that page_2 precedes page_10.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]image.Image, error) {
	paths, err := ImagePaths(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoImages)
	}

	images := make([]image.Image, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers())
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := pageimage.Load(p)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger().Info("loaded page images", "dir", dir, "pages", len(images))
	return images, nil
}

// ImagePaths lists the supported image files in dir in natural order.
func ImagePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !pageimage.IsSupportedFormat(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Slice(paths, func(i, j int) bool {
		return NaturalLess(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})
	return paths, nil
}

// LoadPDF extracts the embedded page images of a scanned PDF. When a page
// carries several images the largest one is taken as the page scan. Pages
// without a decodable image are an error.
func (l *Loader) LoadPDF(ctx context.Context, path string) ([]image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageCount, err := api.PageCount(f, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count for %s: %w", filepath.Base(path), err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoImages)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind PDF: %w", err)
	}

	extracted, err := api.ExtractImagesRaw(f, nil, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images from %s: %w", filepath.Base(path), err)
	}

	images := make([]image.Image, pageCount)
	for _, pageImages := range extracted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, raw := range pageImages {
			if raw.PageNr < 1 || raw.PageNr > pageCount {
				continue
			}
			img, err := decodeRaw(raw)
			if err != nil {
				l.logger().Warn("skipping embedded image",
					"page", raw.PageNr,
					"name", raw.Name,
					"type", raw.FileType,
					"error", err,
				)
				continue
			}
			if largerThan(img, images[raw.PageNr-1]) {
				images[raw.PageNr-1] = img
			}
		}
	}

	for i, img := range images {
		if img == nil {
			return nil, fmt.Errorf("page %d of %s: %w", i+1, filepath.Base(path), ErrNoImages)
		}
	}

	l.logger().Info("extracted page scans", "pdf", filepath.Base(path), "pages", pageCount)
	return images, nil
}

func decodeRaw(raw model.Image) (image.Image, error) {
	data, err := io.ReadAll(raw)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func largerThan(a, b image.Image) bool {
	if b == nil {
		return true
	}
	ab, bb := a.Bounds(), b.Bounds()
	return ab.Dx()*ab.Dy() > bb.Dx()*bb.Dy()
}

// NaturalLess compares names treating digit runs as numbers, so "page_2"
// sorts before "page_10". Ties on the numeric value fall back to the
// plain string comparison.
func NaturalLess(a, b string) bool {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		if x == y {
			continue
		}
		nx, errX := strconv.ParseUint(x, 10, 64)
		ny, errY := strconv.ParseUint(y, 10, 64)
		if errX == nil && errY == nil && nx != ny {
			return nx < ny
		}
		return x < y
	}
	if len(ca) != len(cb) {
		return len(ca) < len(cb)
	}
	return a < b
}

// chunks splits s into alternating digit and non-digit runs.
func chunks(s string) []string {
	var out []string
	start := 0
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsDigit(r) != unicode.IsDigit(prev) {
			out = append(out, s[start:i])
			start = i
		}
		prev = r
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
