package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"table-stitcher/internal/columns"
	pageimage "table-stitcher/internal/image"
	"table-stitcher/internal/layout"
	"table-stitcher/internal/lines"
	"table-stitcher/internal/ocr"
	"table-stitcher/internal/pages"
	"table-stitcher/internal/report"
	"table-stitcher/internal/splittable"
)

var (
	detectLayout string
	detectImages string
	detectOut    string
	detectReport string
	detectFormat string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find split tables and optionally write the merged images",
	Long: `Find tables split across consecutive pages.

The layout file is the page-layout detector output (JSON or YAML). Page
images come from a directory of PNG, JPEG or TIFF files, sorted by name,
or from the embedded page scans of a PDF.

Examples:
  tablestitch detect --layout layout.json --images pages/
  tablestitch detect --layout layout.json --images scan.pdf --out merged/
  tablestitch detect --layout layout.json --images pages/ --enable-lsd=false -f json`,
	RunE: runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.StringVar(&detectLayout, "layout", "", "layout detector output (JSON or YAML)")
	f.StringVar(&detectImages, "images", "", "page image directory or scanned PDF")
	f.StringVar(&detectOut, "out", "", "directory for merged table images")
	f.StringVar(&detectReport, "report", "", "write the report to this file instead of stdout")
	f.StringVarP(&detectFormat, "format", "f", report.FormatYAML, "report format: yaml or json")

	f.Bool("enable-lsd", true, "validate candidates with line analysis")
	f.Float64("min-confidence", 0.65, "minimum confidence to accept a merge")
	f.Int("gap", pageimage.DefaultMergeGap, "blank rows between merged halves")
	f.Int("workers", 0, "concurrent pair evaluations (default: one per CPU)")
	f.Bool("ocr", false, "recognize the text of merged tables")
	f.String("ocr-language", "eng", "Tesseract language")

	mustBind("enable_lsd", f.Lookup("enable-lsd"))
	mustBind("min_merge_confidence", f.Lookup("min-confidence"))
	mustBind("merge_gap", f.Lookup("gap"))
	mustBind("workers", f.Lookup("workers"))
	mustBind("ocr.enabled", f.Lookup("ocr"))
	mustBind("ocr.language", f.Lookup("ocr-language"))

	_ = detectCmd.MarkFlagRequired("layout")
	_ = detectCmd.MarkFlagRequired("images")
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	doc, err := layout.Load(detectLayout)
	if err != nil {
		return err
	}

	pageLoader := &pages.Loader{Workers: cfg.Workers, Logger: logger}
	images, err := pageLoader.Load(ctx, detectImages)
	if err != nil {
		return err
	}
	if len(images) != len(doc.Pages) {
		logger.Warn("page count mismatch",
			"layout_pages", len(doc.Pages),
			"images", len(images),
		)
	}

	logger.Info("starting split table detection",
		"pages", len(doc.Pages),
		"tables", doc.TableCount(),
		"line_analysis", cfg.EnableLineAnalysis,
	)

	var analyzer splittable.ColumnAnalyzer
	if cfg.EnableLineAnalysis {
		analyzer = columns.NewAnalyzer(lines.NewDetector(lines.DefaultParams()), logger)
	}

	detector := splittable.NewDetector(cfg.Params, analyzer, logger)
	result, err := detector.Detect(ctx, doc.Pages, images)
	if err != nil {
		return fmt.Errorf("failed to detect split tables: %w", err)
	}

	rep := report.New(result, detector.Params())
	rep.Layout = detectLayout
	rep.Images = detectImages
	rep.SetStandalone(result, doc.Pages)

	if err := writeMerged(result, rep); err != nil {
		return err
	}

	if detectReport != "" {
		if err := rep.Save(detectReport); err != nil {
			return err
		}
		logger.Info("wrote report",
			"file", detectReport,
			"merged_tables", len(rep.Tables),
			"standalone_tables", len(rep.Standalone),
		)
		return nil
	}
	return rep.Write(cmd.OutOrStdout(), detectFormat)
}

// writeMerged stitches every match, saves the images when an output
// directory is set, and runs OCR on them when enabled.
func writeMerged(result *splittable.Result, rep *report.Report) error {
	if len(result.Matches) == 0 || (detectOut == "" && !cfg.OCR.Enabled) {
		return nil
	}

	var engine *ocr.Engine
	if cfg.OCR.Enabled {
		e, err := ocr.NewEngine(cfg.OCR.Language)
		if err != nil {
			return err
		}
		defer e.Close()
		engine = e
	}

	if detectOut != "" {
		if err := os.MkdirAll(detectOut, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	for i, m := range result.Matches {
		merged := splittable.MergeImages(m, cfg.MergeGap)

		if detectOut != "" {
			path := filepath.Join(detectOut, m.MergedName())
			if err := pageimage.SavePNG(path, merged); err != nil {
				return err
			}
			rep.Tables[i].Image = path
		}

		if engine != nil {
			text, err := engine.RecognizeTable(merged)
			if err != nil {
				logger.Warn("OCR failed", "table", m.Title(), "error", err)
				continue
			}
			rep.Tables[i].Text = text
			logger.Debug("recognized merged table",
				"table", m.Title(),
				"lines", strings.Count(text, "\n")+1,
			)
		}
	}
	return nil
}
