package lines

import (
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// grayToMat copies a grayscale image into a single-channel Mat.
func grayToMat(img *image.Gray) gocv.Mat {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width]
		for x, v := range row {
			mat.SetUCharAt(y, x, v)
		}
	}
	return mat
}

// imageToBGRMat copies an arbitrary image into a 3-channel BGR Mat.
func imageToBGRMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Create BGR Mat (OpenCV default)
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)

	// Parallelize by horizontal stripes
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				for x := 0; x < width; x++ {
					r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
					mat.SetUCharAt(y, x*3+0, uint8(b>>8))
					mat.SetUCharAt(y, x*3+1, uint8(g>>8))
					mat.SetUCharAt(y, x*3+2, uint8(r>>8))
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return mat
}

// ToGrayMat returns a single-channel Mat for img, converting colour images
// through OpenCV only when needed. The caller owns the returned Mat.
func ToGrayMat(img image.Image) gocv.Mat {
	if g, ok := img.(*image.Gray); ok {
		// Rebase so Pix offsets start at the bounds origin
		if g.Bounds().Min != (image.Point{}) {
			g = &image.Gray{
				Pix:    g.Pix[g.PixOffset(g.Bounds().Min.X, g.Bounds().Min.Y):],
				Stride: g.Stride,
				Rect:   image.Rect(0, 0, g.Bounds().Dx(), g.Bounds().Dy()),
			}
		}
		return grayToMat(g)
	}

	bgr := imageToBGRMat(img)
	defer bgr.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	return gray
}
