// Package xlsx reads Excel workbooks into a header plus string rows.
package xlsx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"salesdw/internal/parser"
)

// Options controls workbook parsing.
type Options struct {
	// Sheet names the worksheet to read. Empty means the first sheet.
	Sheet string

	// HeaderMap overrides individual raw header cells before the
	// default lower/underscore canonicalization.
	HeaderMap map[string]string
}

// Read parses a workbook stream. The first row of the chosen sheet is
// the header; short data rows are padded to the header width so every
// field is addressable downstream.
func Read(r io.Reader, opt Options) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("xlsx: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx: read sheet %q: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("xlsx: sheet %q is empty", sheet)
	}

	header = parser.CanonicalizeHeader(all[0], opt.HeaderMap)
	for _, rec := range all[1:] {
		row := make([]string, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// ReadFile parses a workbook from disk.
func ReadFile(path string, opt Options) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Read(f, opt)
}
