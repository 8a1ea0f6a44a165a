// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/iwvelando/hoa-forecast/internal/forecast"
	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/iwvelando/hoa-forecast/pkg/projection"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, results []forecast.Forecast) error {
	p := message.NewPrinter(language.English)
	for i, result := range results {
		if _, err := fmt.Fprintf(w, "--- Results for scenario %s ---\n", result.Name); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
		headers := append(projection.Headers(), "Notes")
		separators := make([]string, len(headers))
		for j, header := range headers {
			separators[j] = strings.Repeat("_", len(header))
		}
		fmt.Fprintf(tw, "%s\t\n", strings.Join(headers, "\t"))
		fmt.Fprintf(tw, "%s\t\n", strings.Join(separators, "\t"))
		for _, row := range result.Rows {
			cells := make([]string, 0, len(headers))
			for _, column := range projection.Columns {
				cells = append(cells, prettyCell(p, column, row))
			}
			cells = append(cells, strings.Join(result.Notes[row.Year], "; "))
			fmt.Fprintf(tw, "%s\t\n", strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if err := writeSummary(w, p, result); err != nil {
			return err
		}
		if i < len(results)-1 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}

func prettyCell(p *message.Printer, column projection.Column, row projection.YearlyProjection) string {
	value := column.Value(row)
	switch {
	case column.Currency:
		return money(p, value)
	case column.Percent:
		return p.Sprintf("%.2f%%", value)
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}

// money keeps the sign ahead of the dollar sign, e.g. -$1,234.56.
func money(p *message.Printer, value float64) string {
	if value < 0 {
		return p.Sprintf("-$%.2f", -value)
	}
	return p.Sprintf("$%.2f", value)
}

func writeSummary(w io.Writer, p *message.Printer, result forecast.Forecast) error {
	s := result.Summary
	deficit := "none"
	if s.FirstDeficitYear != 0 {
		deficit = strconv.Itoa(s.FirstDeficitYear)
	}

	lines := []string{
		"Final reserve balance: " + money(p, s.FinalReserveBalance),
		p.Sprintf("Final funding: %.2f%%", s.FinalFundingPercent),
		"Final operating margin: " + money(p, s.FinalOperatingMargin),
		fmt.Sprintf("Largest capital year: %s (%d)", money(p, s.MaxCapitalSpend), s.MaxCapitalSpendYear),
		"Peak monthly dues: " + money(p, s.PeakMonthlyDues),
		"Total loan interest: " + money(p, s.TotalLoanInterest),
		"First reserve deficit year: " + deficit,
	}
	for _, opt := range result.Optimizations {
		status := "converged"
		if !opt.Converged {
			status = "not converged"
		}
		lines = append(lines, fmt.Sprintf("Optimizer %s (%s): %s -> %s after %d iterations, %s",
			opt.Field, opt.Kind, opt.OriginalDisplay, opt.ValueDisplay, opt.Iterations, status))
		for _, note := range opt.Notes {
			lines = append(lines, "  "+note)
		}
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// CsvFormat writes one row per scenario year in comma-separated value format.
// Amounts are fixed to two decimal places.
func CsvFormat(w io.Writer, results []forecast.Forecast) error {
	writer := csv.NewWriter(w)

	header := append([]string{"Scenario"}, projection.Headers()...)
	header = append(header, "Notes")
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range results {
		for _, row := range result.Rows {
			record := make([]string, 0, len(header))
			record = append(record, result.Name)
			for _, column := range projection.Columns {
				record = append(record, csvCell(column, row))
			}
			record = append(record, strings.Join(result.Notes[row.Year], "; "))
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// CsvString renders the CSV output in memory.
func CsvString(results []forecast.Forecast) (string, error) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, results); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func csvCell(column projection.Column, row projection.YearlyProjection) string {
	value := column.Value(row)
	if column.Currency || column.Percent {
		return decimal.NewFromFloat(value).StringFixed(constants.CurrencyPlaces)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
