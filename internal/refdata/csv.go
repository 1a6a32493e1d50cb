// Package refdata loads the flat-file reference tables and serves them as
// immutable in-memory snapshots.
package refdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openfiscal/cclastrib/internal/common"
)

// record is one parsed table row, field name to raw text value. Every value
// stays text until a consumer explicitly parses it.
type record map[string]string

// readTable parses a semicolon-separated table with a header row. Values
// arrive with pt-BR quirks: UTF-8 BOM on the first header, padded cells,
// uneven casing in headers. Header names are normalized to lower case.
func readTable(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTableMissing, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimPrefix(h, "\uFEFF")
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	records := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(record, len(header))
		for i, v := range row {
			if i >= len(header) {
				break
			}
			rec[header[i]] = strings.TrimSpace(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

// get returns the first non-empty value among the named fields.
func (r record) get(names ...string) string {
	for _, n := range names {
		if v := r[n]; v != "" {
			return v
		}
	}
	return ""
}

// parseDecimal parses a pt-BR formatted number ("0,009", "4,50%", "0.12").
// A trailing percent sign is stripped; the caller decides whether the value
// is a fraction or a percentage.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	var v float64
	if _, err := fmt.Sscanf(s, "%f", &v); err != nil {
		return 0, false
	}
	return v, true
}

// parseDate accepts ISO (2026-01-01) or textual day/month/year (01/01/2026)
// dates, the two formats the annex tables use.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
