// Package layout defines the page-layout detector output consumed by the
// split table detector, and its file persistence.
package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"table-stitcher/pkg/geometry"

	"gopkg.in/yaml.v3"
)

// LabelTable is the detector label for table regions.
const LabelTable = "table"

// ErrNoPages is returned when a layout file contains no pages.
var ErrNoPages = errors.New("layout has no pages")

// Box is a single detected block on a page.
type Box struct {
	Label string  `json:"label" yaml:"label"`
	Score float64 `json:"score" yaml:"score"`
	X1    float64 `json:"x1" yaml:"x1"`
	Y1    float64 `json:"y1" yaml:"y1"`
	X2    float64 `json:"x2" yaml:"x2"`
	Y2    float64 `json:"y2" yaml:"y2"`

	// Normalized [0,1] coordinates
	NX1 float64 `json:"nx1,omitempty" yaml:"nx1,omitempty"`
	NY1 float64 `json:"ny1,omitempty" yaml:"ny1,omitempty"`
	NX2 float64 `json:"nx2,omitempty" yaml:"nx2,omitempty"`
	NY2 float64 `json:"ny2,omitempty" yaml:"ny2,omitempty"`
}

// BoxFromAbsolute builds a Box from absolute pixel coordinates and fills in
// the normalized coordinates for a page of the given size.
func BoxFromAbsolute(label string, score float64, b geometry.Box, pageW, pageH int) Box {
	box := Box{Label: label, Score: score, X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
	box.normalize(pageW, pageH)
	return box
}

// Bounds returns the absolute bounding box.
func (b Box) Bounds() geometry.Box {
	return geometry.Box{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
}

// IsTable reports whether the box was labelled as a table.
func (b Box) IsTable() bool {
	return b.Label == LabelTable
}

func (b *Box) normalize(pageW, pageH int) {
	if pageW <= 0 || pageH <= 0 {
		return
	}
	w, h := float64(pageW), float64(pageH)
	b.NX1, b.NY1 = b.X1/w, b.Y1/h
	b.NX2, b.NY2 = b.X2/w, b.Y2/h
}

// Page holds the detections for a single page.
type Page struct {
	Index  int   `json:"page_index" yaml:"page_index"` // 1-based
	Width  int   `json:"width" yaml:"width"`
	Height int   `json:"height" yaml:"height"`
	Boxes  []Box `json:"boxes" yaml:"boxes"`
}

// TableCount returns the number of boxes labelled as tables.
func (p Page) TableCount() int {
	n := 0
	for _, b := range p.Boxes {
		if b.IsTable() {
			n++
		}
	}
	return n
}

// Document is the layout detector output for a whole document.
type Document struct {
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Pages  []Page `json:"pages" yaml:"pages"`
}

// Load reads a layout document from a JSON or YAML file. JSON files may hold
// either a document object or a bare array of pages.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}

	doc, err := Parse(data, formatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Parse decodes layout data in the given format ("json" or "yaml").
func Parse(data []byte, format string) (*Document, error) {
	var doc Document

	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &doc.Pages); err != nil {
				return nil, err
			}
		} else if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
	}

	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}

	// Fill normalized coordinates the detector did not provide
	for i := range doc.Pages {
		page := &doc.Pages[i]
		for j := range page.Boxes {
			box := &page.Boxes[j]
			if box.NX1 == 0 && box.NY1 == 0 && box.NX2 == 0 && box.NY2 == 0 {
				box.normalize(page.Width, page.Height)
			}
		}
	}

	return &doc, nil
}

// Save writes the document to a file; the format follows the extension.
func (d *Document) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if formatFromPath(path) == "yaml" {
		data, err = yaml.Marshal(d)
	} else {
		data, err = json.MarshalIndent(d, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// TableCount returns the number of table boxes across all pages.
func (d *Document) TableCount() int {
	n := 0
	for _, p := range d.Pages {
		n += p.TableCount()
	}
	return n
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
