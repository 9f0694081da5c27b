package export

// table.go encodes records as delimited text and reads them back.
//
// Quoting follows the export contract exactly: a field is quoted only when it
// contains the delimiter, a quote or a newline, and inner quotes are doubled.
// Lines are joined with "\n" and the block has no trailing newline.

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Delimiter separates fields in the flat export.
const Delimiter = ','

// Content types of the two export kinds.
const (
	ContentTypeCSV  = "text/csv;charset=utf-8"
	ContentTypeJSON = "application/json;charset=utf-8"
)

// EncodeTable renders rows as a header line followed by one line per row.
// Columns come from the first row; values missing from later rows encode as
// empty fields. No rows yields the empty string.
func EncodeTable(rows []*Record) string {
	if len(rows) == 0 {
		return ""
	}

	headers := rows[0].Keys()
	lines := make([]string, 0, len(rows)+1)

	fields := make([]string, len(headers))
	for i, h := range headers {
		fields[i] = escapeField(h)
	}
	lines = append(lines, strings.Join(fields, string(Delimiter)))

	for _, row := range rows {
		fields := make([]string, len(headers))
		for i, h := range headers {
			v, _ := row.Get(h)
			fields[i] = escapeField(formatValue(v))
		}
		lines = append(lines, strings.Join(fields, string(Delimiter)))
	}

	return strings.Join(lines, "\n")
}

// escapeField quotes s when it contains the delimiter, a quote or a newline.
func escapeField(s string) string {
	if !strings.ContainsAny(s, string(Delimiter)+"\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// formatValue converts a scalar to its field text. nil is empty.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// WithBOM prefixes text with a UTF-8 byte-order mark for spreadsheet tools.
func WithBOM(text string) []byte {
	out, err := unicode.UTF8BOM.NewEncoder().String(text)
	if err != nil {
		return append([]byte("\uFEFF"), text...)
	}
	return []byte(out)
}

// ReadTable parses a flat export. A leading BOM is skipped and every value
// is returned as a string.
func ReadTable(r io.Reader) ([]*Record, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	cr.Comma = Delimiter

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []*Record
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		rec := NewRecord()
		for i, h := range header {
			rec.Set(h, fields[i])
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
