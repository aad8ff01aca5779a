// Package render formats extraction results as markdown tables for terminals.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"github.com/stockx/extractor/internal/extraction"
)

const missing = "-"

// Invoice writes the invoice header fields followed by a line item table.
func Invoice(w io.Writer, data extraction.InvoiceData) error {
	lines := []string{
		"Supplier: " + text(data.SupplierName),
		"Date: " + text(data.InvoiceDate),
		"Total: " + money(data.TotalAmount),
		"",
	}

	rows := make([][]string, 0, len(data.Items))
	for _, item := range data.Items {
		rows = append(rows, []string{
			item.ItemName,
			item.IngredientKey,
			quantity(item.Quantity),
			text(item.Unit),
			money(item.UnitPrice),
			money(item.TotalPrice),
		})
	}
	lines = append(lines, Table([]string{"Item", "Key", "Qty", "Unit", "Unit price", "Total"}, rows)...)

	return write(w, lines)
}

// Receipt writes the receipt header fields followed by a line item table.
func Receipt(w io.Writer, data extraction.ReceiptData) error {
	lines := []string{
		"Date: " + text(data.ReceiptDate),
		"Total: " + money(data.TotalAmount),
		"",
	}

	rows := make([][]string, 0, len(data.Items))
	for _, item := range data.Items {
		rows = append(rows, []string{
			item.ItemName,
			item.RecipeKey,
			quantity(item.Quantity),
			money(item.UnitPrice),
			money(item.TotalPrice),
		})
	}
	lines = append(lines, Table([]string{"Item", "Key", "Qty", "Unit price", "Total"}, rows)...)

	return write(w, lines)
}

// Table renders a markdown table padded to the display width of each column.
// Rows shorter than the header are padded with empty cells.
func Table(header []string, rows [][]string) []string {
	colWidths := make([]int, len(header))
	for i, h := range header {
		colWidths[i] = max(3, runewidth.StringWidth(h))
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(header); i++ {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(escape(row[i])))
		}
	}

	separator := make([]string, len(header))
	for i, w := range colWidths {
		separator[i] = strings.Repeat("-", w)
	}

	result := []string{formatRow(header, colWidths), formatRow(separator, colWidths)}
	for _, row := range rows {
		result = append(result, formatRow(row, colWidths))
	}
	return result
}

func formatRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")
	for j, width := range colWidths {
		content := ""
		if j < len(row) {
			content = escape(row[j])
		}

		sb.WriteString(" ")
		sb.WriteString(content)
		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}
		sb.WriteString(" |")
	}

	return sb.String()
}

// escape keeps a cell from splitting the row.
func escape(cell string) string {
	cell = strings.ReplaceAll(cell, "\n", " ")
	return strings.ReplaceAll(cell, "|", `\|`)
}

func text(s *string) string {
	if s == nil || *s == "" {
		return missing
	}
	return *s
}

func money(v *float64) string {
	if v == nil {
		return missing
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

func quantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func write(w io.Writer, lines []string) error {
	if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	return nil
}
