package aralert_api

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// NotApplicable fills antibiotic slots a gene has no antibiotic for
const NotApplicable = "N/A"

// The fixed columns in front of the antibiotic pairs
var reportBaseHeader = []string{"Gene", "Gene Description", "Read Count"}

// BuildReport turns an aggregation into a table with one row per gene. All
// rows get as many antibiotic name/description pairs as the gene with the
// most resisted antibiotics.
func BuildReport(aggregation *Aggregation) *Report {
	width := 0
	for _, summary := range aggregation.Genes {
		width = max(width, len(summary.Antibiotics))
	}

	header := make([]string, 0, len(reportBaseHeader)+2*width)
	header = append(header, reportBaseHeader...)
	for i := 1; i <= width; i++ {
		header = append(header,
			fmt.Sprintf("Antibiotic Resisted %d", i),
			fmt.Sprintf("Antibiotic Resisted Description %d", i),
		)
	}

	rows := make([][]string, 0, len(aggregation.Genes))
	for _, summary := range aggregation.Genes {
		row := make([]string, 0, len(header))
		row = append(row, summary.Gene, summary.Description, strconv.Itoa(summary.Reads))
		for i := 0; i < width; i++ {
			if i < len(summary.Antibiotics) {
				row = append(row, summary.Antibiotics[i].Name, summary.Antibiotics[i].Description)
			} else {
				row = append(row, NotApplicable, NotApplicable)
			}
		}
		rows = append(rows, row)
	}

	return &Report{Header: header, Rows: rows}
}

// WriteReport writes the header and rows as delimited text.
func WriteReport(w io.Writer, report *Report, delimiter rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delimiter
	if err := writer.Write(report.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(report.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// SaveReport writes the report to a file, replacing any existing one.
func SaveReport(path string, report *Report, delimiter rune) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the report file: %w", err)
	}
	if err := WriteReport(file, report, delimiter); err != nil {
		file.Close()
		return fmt.Errorf("failed to write the report file: %w", err)
	}
	return file.Close()
}

// PrintReport renders the report as a terminal table.
func PrintReport(w io.Writer, report *Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(report.Header)
	table.SetAutoWrapText(false)
	table.AppendBulk(report.Rows)
	table.Render()
}
