package image

import (
	"image"
	"image/draw"

	"table-stitcher/pkg/colorutil"

	xdraw "golang.org/x/image/draw"
)

// DefaultMergeGap is the default number of blank pixel rows placed between
// the two halves of a merged table.
const DefaultMergeGap = 10

// ResizeToWidth scales img to the given width, preserving its aspect ratio.
// The new height is truncated to whole pixels. Images that already have the
// requested width are returned as is.
func ResizeToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() == width || b.Dx() == 0 {
		return img
	}

	ratio := float64(width) / float64(b.Dx())
	height := int(float64(b.Dy()) * ratio)
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// MergeVertical stacks top above bottom on a white canvas, separated by gap
// blank rows. Both images are first scaled to the wider of the two widths.
// Neither input is modified.
func MergeVertical(top, bottom image.Image, gap int) *image.RGBA {
	if gap < 0 {
		gap = 0
	}

	width := max(top.Bounds().Dx(), bottom.Bounds().Dx())
	top = ResizeToWidth(top, width)
	bottom = ResizeToWidth(bottom, width)

	topH := top.Bounds().Dy()
	height := topH + gap + bottom.Bounds().Dy()

	result := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(result, result.Bounds(), &image.Uniform{colorutil.White}, image.Point{}, draw.Src)

	draw.Draw(result, image.Rect(0, 0, width, topH), top, top.Bounds().Min, draw.Src)
	draw.Draw(result, image.Rect(0, topH+gap, width, height), bottom, bottom.Bounds().Min, draw.Src)

	return result
}
