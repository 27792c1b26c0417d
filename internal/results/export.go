package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/xuri/excelize/v2"

	"viewsync/domain/hypothesis"
	"viewsync/internal/registry"
)

// csvHeader matches the documented export row format.
var csvHeader = []string{"Run ID", "Timestamp", "Duration (ms)", "Total", "Passed", "Failed", "Pass Rate"}

func (s *Store) exportFilename(ext string) string {
	return fmt.Sprintf("viewsync-results-%s.%s", s.clock.Now().Format("2006-01-02"), ext)
}

// ExportJSON serializes the full versioned history, pretty-printed, and
// returns the payload with a dated download filename.
func (s *Store) ExportJSON() ([]byte, string, error) {
	doc := hypothesis.HistoryDocument{
		Version: hypothesis.SchemaVersion,
		Runs:    s.AllRuns(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return data, s.exportFilename("json"), nil
}

// ExportCSV serializes one row per run.
func (s *Store) ExportCSV() ([]byte, string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, "", err
	}
	for _, run := range s.AllRuns() {
		row := []string{
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(run.Duration.Milliseconds(), 10),
			strconv.Itoa(run.Summary.Total),
			strconv.Itoa(run.Summary.Passed),
			strconv.Itoa(run.Summary.Failed),
			fmt.Sprintf("%.1f%%", run.Summary.PassRate()*100),
		}
		if err := w.Write(row); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), s.exportFilename("csv"), nil
}

// ExportXLSX writes the same per-run rows to a spreadsheet.
func (s *Store) ExportXLSX() ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Runs"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}
	if err := f.SetSheetRow(sheet, "A1", &csvHeader); err != nil {
		return nil, "", err
	}
	for i, run := range s.AllRuns() {
		row := []interface{}{
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration.Milliseconds(),
			run.Summary.Total,
			run.Summary.Passed,
			run.Summary.Failed,
			fmt.Sprintf("%.1f%%", run.Summary.PassRate()*100),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), s.exportFilename("xlsx"), nil
}

// ExportHTML renders the most recent run as an HTML report: per-test glyphs,
// the aggregate pass rate, and each hypothesis's statement rendered from
// markdown. Returns a report noting the empty history when no run exists.
func (s *Store) ExportHTML(reg *registry.Registry) ([]byte, string, error) {
	var md bytes.Buffer
	md.WriteString("# View Sync Regression Report\n\n")

	run := s.LastRun()
	if run == nil {
		md.WriteString("No finished runs in history.\n")
	} else {
		fmt.Fprintf(&md, "Run `%s` at %s — **%d/%d passed** (%.1f%%), %d failed, %d skipped.\n\n",
			run.ID, run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Summary.Passed, run.Summary.Total, run.Summary.PassRate()*100,
			run.Summary.Failed, run.Summary.Skipped)

		for _, res := range run.Results {
			glyph := "✗"
			switch {
			case res.Skipped:
				glyph = "⊘"
			case res.Passed:
				glyph = "✓"
			}
			fmt.Fprintf(&md, "## %s %s — %s\n\n", glyph, res.HypothesisID, res.Name)
			if reg != nil {
				if h, ok := reg.Get(res.HypothesisID); ok {
					fmt.Fprintf(&md, "%s\n\n*Prediction:* %s\n\n", h.Statement, h.Prediction)
				}
			}
			if errMsg, ok := res.Details["error"]; ok {
				fmt.Fprintf(&md, "**Error:** `%v`\n\n", errMsg)
			}
		}
	}

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	body := markdown.ToHTML(md.Bytes(), p, renderer)

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>View Sync Regression Report</title></head><body>\n")
	page.Write(body)
	page.WriteString("</body></html>\n")
	return page.Bytes(), s.exportFilename("html"), nil
}
