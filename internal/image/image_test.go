package image

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"table-stitcher/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func TestMergeVerticalDimensions(t *testing.T) {
	top := solid(100, 200, colorutil.Black)
	bottom := solid(200, 300, colorutil.Black)

	merged := MergeVertical(top, bottom, 10)

	// top is scaled 2x to 200x400
	assert.Equal(t, 200, merged.Bounds().Dx())
	assert.Equal(t, 400+10+300, merged.Bounds().Dy())

	// inputs untouched
	assert.Equal(t, image.Rect(0, 0, 100, 200), top.Bounds())
	assert.Equal(t, image.Rect(0, 0, 200, 300), bottom.Bounds())
}

func TestMergeVerticalGapIsWhite(t *testing.T) {
	top := solid(50, 20, colorutil.Black)
	bottom := solid(50, 30, colorutil.Black)

	merged := MergeVertical(top, bottom, 10)
	require.Equal(t, image.Rect(0, 0, 50, 60), merged.Bounds())

	for y := 20; y < 30; y++ {
		assert.True(t, colorutil.IsNearWhite(merged.At(25, y), 1), "gap row %d not white", y)
	}
	assert.False(t, colorutil.IsNearWhite(merged.At(25, 10), 1))
	assert.False(t, colorutil.IsNearWhite(merged.At(25, 45), 1))
}

func TestMergeVerticalReplacesPixels(t *testing.T) {
	shaded := color.RGBA{A: 128}
	merged := MergeVertical(solid(10, 10, shaded), solid(10, 10, color.RGBA{}), 4)

	// halves are copied, not blended onto the white canvas
	assert.Equal(t, shaded, merged.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{}, merged.RGBAAt(5, 18))
	assert.Equal(t, colorutil.White, merged.At(5, 12))
}

func TestMergeVerticalNegativeGap(t *testing.T) {
	merged := MergeVertical(solid(10, 10, colorutil.Black), solid(10, 10, colorutil.Black), -5)
	assert.Equal(t, 20, merged.Bounds().Dy())
}

func TestResizeToWidth(t *testing.T) {
	src := solid(100, 30, colorutil.Gray)

	same := ResizeToWidth(src, 100)
	assert.Same(t, src, same)

	scaled := ResizeToWidth(src, 150)
	assert.Equal(t, image.Rect(0, 0, 150, 45), scaled.Bounds())
}

func TestCrop(t *testing.T) {
	page := solid(100, 100, colorutil.White)
	draw.Draw(page, image.Rect(10, 10, 20, 20), &image.Uniform{colorutil.Black}, image.Point{}, draw.Src)

	crop, err := Crop(page, image.Rect(10, 10, 30, 40))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 30), crop.Bounds())
	assert.False(t, colorutil.IsNearWhite(crop.At(0, 0), 1))
	assert.True(t, colorutil.IsNearWhite(crop.At(15, 15), 1))

	// cropping never writes through to the page
	draw.Draw(crop.(draw.Image), crop.Bounds(), &image.Uniform{colorutil.Gray}, image.Point{}, draw.Src)
	assert.True(t, colorutil.IsNearWhite(page.At(25, 25), 1))
}

func TestCropClampsAndRejectsEmpty(t *testing.T) {
	page := solid(100, 100, colorutil.White)

	crop, err := Crop(page, image.Rect(90, 90, 150, 150))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), crop.Bounds())

	_, err = Crop(page, image.Rect(200, 200, 300, 300))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page_0001.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solid(12, 7, colorutil.White)))
	require.NoError(t, f.Close())

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 7), img.Bounds())

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestIsSupportedFormat(t *testing.T) {
	assert.True(t, IsSupportedFormat("scan/PAGE_01.TIF"))
	assert.True(t, IsSupportedFormat("page.png"))
	assert.False(t, IsSupportedFormat("page.pdf"))
}

func TestSavePNGRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "merged_table_1_2.png")
	require.NoError(t, SavePNG(path, solid(9, 4, colorutil.Black)))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 9, 4), img.Bounds())
}
