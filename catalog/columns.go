package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// aliases lists accepted header spellings per field, in priority order.
// The first alias doubles as the fallback label.
var aliases = []struct {
	field Field
	names []string
}{
	{FieldMobile, []string{"mobile no", "mobile", "mobile_no", "mobile no rf"}},
	{FieldInvoice, []string{"invoice no", "invoice", "invoice_no"}},
	{FieldModel, []string{"model"}},
	{FieldSerial, []string{"serial no", "serialno", "serial_no"}},
	{FieldOSID, []string{"osid"}},
	{FieldCustomer, []string{"customer", "customer name"}},
	{FieldEmail, []string{"email", "email id", "e-mail"}},
}

// NormalizeHeader canonicalizes a header cell: non-breaking spaces become
// spaces, runs of whitespace collapse to one, edges are trimmed and the
// result is case-folded.
func NormalizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// ResolveColumns maps every field to the first alias present in headers.
// headers must already be normalized.
func ResolveColumns(headers []string) ColumnMap {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}

	cols := make(ColumnMap, len(aliases))
	for _, a := range aliases {
		cols[a.field] = a.names[0]
		for _, name := range a.names {
			if _, ok := present[name]; ok {
				cols[a.field] = name
				break
			}
		}
	}
	return cols
}

func fallbackColumns() ColumnMap { return ResolveColumns(nil) }

// table turns a raw sheet, header row first, into rows.
func table(raw [][]string) ([]Row, ColumnMap) {
	if len(raw) == 0 {
		return nil, fallbackColumns()
	}

	headers := make([]string, len(raw[0]))
	index := make(map[string]int, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = NormalizeHeader(h)
		if _, dup := index[headers[i]]; !dup {
			index[headers[i]] = i
		}
	}
	cols := ResolveColumns(headers)

	cell := func(rec []string, f Field) string {
		i, ok := index[cols[f]]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]Row, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{
			Mobile:   cell(rec, FieldMobile),
			Customer: cell(rec, FieldCustomer),
			Invoice:  cell(rec, FieldInvoice),
			Model:    cell(rec, FieldModel),
			Serial:   cell(rec, FieldSerial),
			OSID:     cell(rec, FieldOSID),
			Email:    cell(rec, FieldEmail),
		})
	}
	return rows, cols
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
