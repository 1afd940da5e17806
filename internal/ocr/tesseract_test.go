package ocr

import (
	"image"
	"image/color"
	"testing"

	"table-stitcher/internal/lines"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	in := "  Name    Qty   Price \n\n\t\nWidget   2   9.99\n   "
	assert.Equal(t, "Name Qty Price\nWidget 2 9.99", CleanText(in))
	assert.Equal(t, "", CleanText(" \n \n"))
}

func TestPreprocessUpscalesSmallCrops(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 40))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for x := 20; x < 180; x++ {
		img.SetGray(x, 20, color.Gray{})
	}

	gray := lines.ToGrayMat(img)
	defer gray.Close()

	out := preprocessForOCR(gray)
	defer out.Close()

	assert.GreaterOrEqual(t, out.Rows(), minRecognitionSide)
	assert.Greater(t, out.Cols(), out.Rows())
}

func TestEncodeForOCRRejectsEmpty(t *testing.T) {
	_, err := encodeForOCR(image.NewGray(image.Rectangle{}))
	require.Error(t, err)
}
