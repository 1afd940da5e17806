// Package ocr recognizes the text of merged table images with Tesseract.
package ocr

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"table-stitcher/internal/lines"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Smallest image side handed to Tesseract; smaller crops are upscaled.
const minRecognitionSide = 150

// Engine provides OCR functionality using Tesseract. A gosseract client is
// not safe for concurrent use, so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewEngine creates a new OCR engine for the given language.
func NewEngine(language string) (*Engine, error) {
	if language == "" {
		language = DefaultLanguage
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Keep tabular layout: one line per table row
	_ = client.SetVariable("preserve_interword_spaces", "1")

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// RecognizeTable returns the text of a table image, one line per text line.
func (e *Engine) RecognizeTable(img image.Image) (string, error) {
	buf, err := encodeForOCR(img)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return CleanText(text), nil
}

// CleanText trims every line, collapses runs of spaces and drops blank lines.
func CleanText(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func encodeForOCR(img image.Image) ([]byte, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}

	gray := lines.ToGrayMat(img)
	defer gray.Close()

	processed := preprocessForOCR(gray)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory released by Close
	return append([]byte(nil), buf.GetBytes()...), nil
}

// preprocessForOCR upscales small crops and binarizes to dark text on a
// light background.
func preprocessForOCR(gray gocv.Mat) gocv.Mat {
	h, w := gray.Rows(), gray.Cols()

	var scaled gocv.Mat
	if minDim := min(h, w); minDim < minRecognitionSide {
		scale := float64(minRecognitionSide) / float64(minDim)
		scaled = gocv.NewMat()
		gocv.Resize(gray, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = gray.Clone()
	}
	defer scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(scaled, &enhanced)

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Paper should come out white; a mostly dark result is inverted print
	if whiteRatio := float64(gocv.CountNonZero(binary)) / float64(binary.Rows()*binary.Cols()); whiteRatio < 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	return binary
}
