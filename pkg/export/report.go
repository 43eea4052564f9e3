// Package export renders a script's risk flags as an XLSX clearance report.
package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"github.com/xuri/excelize/v2"

	"github.com/scriptsentries/clearance-engine/pkg/models"
)

const (
	SheetName   = "Clearance Report"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	Redacted    = "[REDACTED]"

	title      = "SCRIPTSENTRIES - LEGAL CLEARANCE REPORT"
	headerRow  = 4
	firstRow   = 5
	metaLayout = "2006-01-02 15:04"
)

// Headers are the report columns, in order.
var Headers = []string{
	"Page", "Severity", "Category", "Sub-Category",
	"Entity Name", "Snippet", "Reason", "Suggestion",
	"Status", "Comments", "Restrictions", "Redacted",
}

var columnWidths = []float64{8, 12, 22, 28, 25, 40, 45, 45, 25, 35, 35, 12}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Report is the input to Build.
type Report struct {
	Script      *models.Script
	Risks       []*models.RiskFlag // already sorted for display
	GeneratedAt time.Time
}

type styles struct {
	title, header, data, redacted int
	severity                      map[models.Severity]int
}

// Build renders the workbook. Redacted rows keep reason, suggestion and status
// but replace entity name, snippet, comments and restrictions.
func Build(r Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(Headers))

	// Title and metadata.
	if err := f.SetCellValue(SheetName, "A1", title); err != nil {
		return nil, err
	}
	if err := f.MergeCell(SheetName, "A1", lastCol+"1"); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", st.title); err != nil {
		return nil, err
	}

	meta := map[string]string{
		"A2": "Script: " + r.Script.Filename,
		"E2": "Pages: " + strconv.Itoa(r.Script.TotalPages),
		"G2": "Risks: " + strconv.Itoa(len(r.Risks)),
		"I2": "Generated: " + r.GeneratedAt.Format(metaLayout),
	}
	for cell, v := range meta {
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return nil, err
		}
	}

	// Header row; row 3 is a spacer.
	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(SheetName, "A4", fmt.Sprintf("%s%d", lastCol, headerRow), st.header); err != nil {
		return nil, err
	}

	for i, risk := range r.Risks {
		if err := writeRow(f, st, firstRow+i, risk); err != nil {
			return nil, fmt.Errorf("write risk row %d: %w", i+1, err)
		}
	}

	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func writeRow(f *excelize.File, st *styles, row int, risk *models.RiskFlag) error {
	values := []string{
		strconv.Itoa(risk.PageNumber),
		string(risk.Severity),
		string(risk.Category),
		risk.SubCategory,
		risk.EntityName,
		risk.Snippet,
		risk.Reason,
		risk.Suggestion,
		string(risk.Status),
		risk.Comments,
		risk.Restrictions,
		"NO",
	}
	cellStyles := make([]int, len(values))
	for i := range cellStyles {
		cellStyles[i] = st.data
	}
	if sev, ok := st.severity[risk.Severity]; ok {
		cellStyles[1] = sev
	}

	if risk.IsRedacted {
		for _, i := range []int{4, 5, 9, 10} {
			values[i] = Redacted
			cellStyles[i] = st.redacted
		}
		values[11] = "YES"
		cellStyles[11] = st.redacted
	}

	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, cell, cell, cellStyles[i]); err != nil {
			return err
		}
	}
	return nil
}

func newStyles(f *excelize.File) (*styles, error) {
	white := "FFFFFF"
	solid := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	centered := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	defs := []*excelize.Style{
		{Fill: solid("065F46"), Font: &excelize.Font{Bold: true, Color: white, Size: 14}, Alignment: centered},
		{
			Fill:      solid("0F172A"),
			Font:      &excelize.Font{Bold: true, Color: white, Size: 10},
			Alignment: centered,
			Border:    []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
		},
		{
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			Border: []excelize.Border{
				{Type: "bottom", Color: "BFBFBF", Style: 7},
				{Type: "right", Color: "BFBFBF", Style: 7},
			},
		},
		{Fill: solid("1E1E1E"), Font: &excelize.Font{Bold: true, Color: "FF5050"}, Alignment: centered},
		{Fill: solid("DC3545"), Font: &excelize.Font{Bold: true, Color: white}, Alignment: centered},
		{Fill: solid("FFC107"), Font: &excelize.Font{Bold: true, Color: white}, Alignment: centered},
		{Fill: solid("198754"), Font: &excelize.Font{Bold: true, Color: white}, Alignment: centered},
	}

	ids := make([]int, len(defs))
	for i, d := range defs {
		id, err := f.NewStyle(d)
		if err != nil {
			return nil, fmt.Errorf("create style: %w", err)
		}
		ids[i] = id
	}

	return &styles{
		title:    ids[0],
		header:   ids[1],
		data:     ids[2],
		redacted: ids[3],
		severity: map[models.Severity]int{
			models.SeverityHigh:   ids[4],
			models.SeverityMedium: ids[5],
			models.SeverityLow:    ids[6],
		},
	}, nil
}

// Filename is the download name: ScriptSentries_<safe name>_<yyyyMMdd_HHmm>.xlsx.
func Filename(scriptFilename string, at time.Time) string {
	safe := unsafeFilenameChars.ReplaceAllString(scriptFilename, "_")
	safe = strings.TrimSuffix(strings.TrimSuffix(safe, ".pdf"), ".PDF")
	return fmt.Sprintf("ScriptSentries_%s_%s.xlsx", safe, at.Format("20060102_1504"))
}

// Summary describes a report for logs, e.g. "12 risks, 1 redacted row".
func Summary(risks []*models.RiskFlag) string {
	redacted := 0
	for _, r := range risks {
		if r.IsRedacted {
			redacted++
		}
	}
	return fmt.Sprintf("%s, %s", countNoun(len(risks), "risk"), countNoun(redacted, "redacted row"))
}

func countNoun(n int, noun string) string {
	if n != 1 {
		noun = inflection.Plural(noun)
	}
	return fmt.Sprintf("%d %s", n, noun)
}
