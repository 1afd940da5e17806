// Package report renders the outcome of a split table detection run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"table-stitcher/internal/layout"
	"table-stitcher/internal/splittable"
	"table-stitcher/pkg/geometry"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Report describes one detection run.
type Report struct {
	RunID     string            `json:"run_id" yaml:"run_id"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	Layout    string            `json:"layout,omitempty" yaml:"layout,omitempty"`
	Images    string            `json:"images,omitempty" yaml:"images,omitempty"`
	Params    splittable.Params `json:"params" yaml:"params"`
	Stats     splittable.Stats  `json:"stats" yaml:"stats"`
	Tables    []Table           `json:"merged_tables" yaml:"merged_tables"`

	Standalone []StandaloneTable `json:"standalone_tables" yaml:"standalone_tables"`
}

// StandaloneTable is a table box that was not merged with another.
type StandaloneTable struct {
	Page  int          `json:"page" yaml:"page"`
	Box   int          `json:"box" yaml:"box"`
	Score float64      `json:"score" yaml:"score"`
	Rect  geometry.Box `json:"rect" yaml:"rect"`
}

// Table is one accepted split table.
type Table struct {
	Title        string  `json:"title" yaml:"title"`
	FirstPage    int     `json:"first_page" yaml:"first_page"`
	SecondPage   int     `json:"second_page" yaml:"second_page"`
	FirstBox     int     `json:"first_box" yaml:"first_box"`
	SecondBox    int     `json:"second_box" yaml:"second_box"`
	Confidence   float64 `json:"confidence" yaml:"confidence"`
	Reason       string  `json:"reason" yaml:"reason"`
	ColumnCount1 int     `json:"column_count_1" yaml:"column_count_1"`
	ColumnCount2 int     `json:"column_count_2" yaml:"column_count_2"`
	Alignment    float64 `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	Image        string  `json:"image,omitempty" yaml:"image,omitempty"`
	Text         string  `json:"text,omitempty" yaml:"text,omitempty"`
}

// New builds a report for result with a fresh run ID.
func New(result *splittable.Result, params splittable.Params) *Report {
	r := &Report{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Params:    params,
		Stats:     result.Stats,
		Tables:    make([]Table, 0, len(result.Matches)),
	}

	for _, m := range result.Matches {
		r.Tables = append(r.Tables, Table{
			Title:        m.Title(),
			FirstPage:    m.First.PageIndex,
			SecondPage:   m.Second.PageIndex,
			FirstBox:     m.First.BoxIndex,
			SecondBox:    m.Second.BoxIndex,
			Confidence:   m.Confidence,
			Reason:       m.Description(),
			ColumnCount1: m.ColumnCount1,
			ColumnCount2: m.ColumnCount2,
			Alignment:    m.Alignment,
		})
	}
	return r
}

// SetStandalone records the table boxes of pages that none of the merged
// tables consumed. Boxes match within the tolerance of the report params.
func (r *Report) SetStandalone(result *splittable.Result, pages []layout.Page) {
	refs := result.Standalone(pages, r.Params.BoxMatchTolerance)
	r.Standalone = make([]StandaloneTable, 0, len(refs))
	for _, ref := range refs {
		r.Standalone = append(r.Standalone, StandaloneTable{
			Page:  ref.PageIndex,
			Box:   ref.BoxIndex,
			Score: ref.Box.Score,
			Rect:  ref.Box.Bounds(),
		})
	}
}

// Write encodes the report to w in the given format.
func (r *Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case FormatYAML, "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Save writes the report to path; the format follows the extension.
func (r *Report) Save(path string) error {
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := r.Write(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
