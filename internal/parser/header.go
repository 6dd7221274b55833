// Package parser holds the pieces shared by the input parsers: header
// canonicalization. Parsers are responsible only for shape: they turn a
// file into a header plus string rows; field semantics belong to the ETL
// input normalizer.
package parser

import "strings"

// CanonicalizeHeader normalizes raw header cells into canonical field
// names: trims edge whitespace, strips a UTF-8 BOM from the first cell,
// then either applies the caller's header map or lowercases and replaces
// spaces with underscores ("Region Name" -> "region_name").
func CanonicalizeHeader(raw []string, headerMap map[string]string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if mapped, ok := headerMap[h]; ok {
			h = mapped
		} else {
			h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		out[i] = h
	}
	return out
}
