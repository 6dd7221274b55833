// Package csv reads delimited sale files into a header plus string rows.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"salesdw/internal/parser"
)

// Options controls delimited-file parsing.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// Encoding names the input character encoding. Empty or "utf-8"
	// means no transcoding; "windows-1251" and "windows-1252" are
	// decoded via x/text charmaps.
	Encoding string

	// HeaderMap overrides individual raw header cells before the
	// default lower/underscore canonicalization.
	HeaderMap map[string]string

	// LazyQuotes relaxes quote handling for files exported by tools
	// that don't escape quotes properly.
	LazyQuotes bool
}

// Read parses a delimited stream. The first record is the header; it is
// canonicalized into field names and returned alongside the data rows.
// Rows may be ragged; shape validation happens downstream.
func Read(r io.Reader, opt Options) (header []string, rows [][]string, err error) {
	dec, err := decodeReader(r, opt.Encoding)
	if err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(dec)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	raw, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, fmt.Errorf("csv: empty input")
		}
		return nil, nil, fmt.Errorf("csv: read header: %w", err)
	}
	header = parser.CanonicalizeHeader(raw, opt.HeaderMap)

	line := 1
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		row := make([]string, len(rec))
		for i, v := range rec {
			row[i] = strings.TrimSpace(v)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// ReadFile parses a delimited file from disk.
func ReadFile(path string, opt Options) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Read(f, opt)
}

func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(r), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", encoding)
	}
}
