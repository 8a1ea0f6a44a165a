package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/hoa-forecast/internal/forecast"
	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/iwvelando/hoa-forecast/pkg/projection"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet   = "Summary"
	maxSheetName   = 31
	currencyFormat = "$#,##0.00"
	percentFormat  = "0.00\"%\""
)

var summaryHeaders = []string{
	"Scenario",
	"Final Reserve ($)",
	"Final Funding %",
	"Final Operating Margin ($)",
	"Largest Capital Year ($)",
	"Largest Capital Year",
	"Peak Monthly Dues ($)",
	"Total Loan Interest ($)",
	"First Deficit Year",
}

type workbookStyles struct {
	header   int
	currency int
	percent  int
}

// XLSXFormat writes a workbook with a Summary sheet followed by one sheet per
// scenario.
func XLSXFormat(w io.Writer, results []forecast.Forecast) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return err
	}

	if err := writeSummarySheet(f, styles, results); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for _, result := range results {
		name := SheetName(result.Name, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet for scenario %s: %w", result.Name, err)
		}
		if err := writeScenarioSheet(f, styles, name, result); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	var styles workbookStyles
	var err error

	styles.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			WrapText:   true,
		},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create header style: %w", err)
	}

	numFmt := currencyFormat
	styles.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return styles, fmt.Errorf("failed to create currency style: %w", err)
	}

	pctFmt := percentFormat
	styles.percent, err = f.NewStyle(&excelize.Style{CustomNumFmt: &pctFmt})
	if err != nil {
		return styles, fmt.Errorf("failed to create percent style: %w", err)
	}

	return styles, nil
}

func writeHeader(f *excelize.File, sheet string, headerStyle int, headers []string) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeScenarioSheet(f *excelize.File, styles workbookStyles, sheet string, result forecast.Forecast) error {
	headers := append(projection.Headers(), "Notes")
	if err := writeHeader(f, sheet, styles.header, headers); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", sheet, err)
	}

	for r, row := range result.Rows {
		rowNum := r + 2
		for c, column := range projection.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, rowNum)
			if err != nil {
				return err
			}
			if err := setNumber(f, sheet, cell, column, column.Value(row), styles); err != nil {
				return fmt.Errorf("failed to write %s for %d: %w", column.Header, row.Year, err)
			}
		}
		cell, err := excelize.CoordinatesToCellName(len(headers), rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, strings.Join(result.Notes[row.Year], "; ")); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, styles workbookStyles, results []forecast.Forecast) error {
	if err := writeHeader(f, summarySheet, styles.header, summaryHeaders); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}

	for r, result := range results {
		s := result.Summary
		values := []struct {
			value any
			style int
		}{
			{result.Name, 0},
			{round(s.FinalReserveBalance), styles.currency},
			{round(s.FinalFundingPercent), styles.percent},
			{round(s.FinalOperatingMargin), styles.currency},
			{round(s.MaxCapitalSpend), styles.currency},
			{s.MaxCapitalSpendYear, 0},
			{round(s.PeakMonthlyDues), styles.currency},
			{round(s.TotalLoanInterest), styles.currency},
			{deficitYear(s.FirstDeficitYear), 0},
		}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(summarySheet, cell, v.value); err != nil {
				return err
			}
			if v.style != 0 {
				if err := f.SetCellStyle(summarySheet, cell, cell, v.style); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func setNumber(f *excelize.File, sheet, cell string, column projection.Column, value float64, styles workbookStyles) error {
	switch {
	case column.Currency:
		if err := f.SetCellValue(sheet, cell, round(value)); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, styles.currency)
	case column.Percent:
		if err := f.SetCellValue(sheet, cell, round(value)); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, styles.percent)
	default:
		return f.SetCellValue(sheet, cell, int(value))
	}
}

// round fixes a value to cents so spreadsheets sum what the CSV shows.
func round(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(constants.CurrencyPlaces).Float64()
	return rounded
}

func deficitYear(year int) any {
	if year == 0 {
		return "none"
	}
	return year
}

// SheetName turns a scenario name into a unique, valid worksheet name and
// records it in used.
func SheetName(name string, used map[string]bool) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	cleaned = strings.Trim(cleaned, "'")
	if cleaned == "" {
		cleaned = "Scenario"
	}
	cleaned = truncate(cleaned, maxSheetName)

	candidate := cleaned
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = strings.TrimRight(truncate(cleaned, maxSheetName-len(suffix)), " ") + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
