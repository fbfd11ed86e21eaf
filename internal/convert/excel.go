// Package convert turns the club's tracking workbook into the JSON document
// the visualiser reads.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/logc/scorecard-ocr/internal/models"
)

// headerKeywords mark a data row that is really the table header.
var headerKeywords = []string{"member", "guide", "blind", "guns"}

// Document is the converter output.
type Document struct {
	Sheets []Sheet `json:"sheets"`
}

// Sheet is one worksheet with its header row and data rows.
type Sheet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Row maps headers to cell values and marshals in header order.
type Row struct {
	keys   []string
	values map[string]any
}

func newRow() Row {
	return Row{values: map[string]any{}}
}

func (r *Row) set(key string, v any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under a header.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExcelToJSON converts every sheet of the workbook at in and writes the
// indented JSON document to out, creating its directory.
func ExcelToJSON(in, out string) error {
	doc, err := Convert(in)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return models.WriteError("cannot create "+filepath.Dir(out), err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return models.WriteError("cannot write "+out, err)
	}
	return nil
}

// Convert reads the workbook into a Document. Sheets with no data are
// skipped.
func Convert(in string) (*Document, error) {
	if _, err := os.Stat(in); err != nil {
		return nil, models.NotFoundError("input Excel file not found: "+in, err)
	}

	f, err := excelize.OpenFile(in)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	doc := &Document{Sheets: []Sheet{}}
	for _, name := range f.GetSheetList() {
		sheet, ok, err := convertSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		if ok {
			doc.Sheets = append(doc.Sheets, sheet)
		}
	}
	return doc, nil
}

// cell keeps a value with its position for style lookups.
type cell struct {
	raw string
	col int // 1-based
	row int // 1-based
}

func convertSheet(f *excelize.File, name string) (Sheet, bool, error) {
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Sheet{}, false, err
	}
	if len(raw) == 0 {
		return Sheet{}, false, nil
	}

	width := 0
	for _, r := range raw {
		if len(r) > width {
			width = len(r)
		}
	}
	grid := make([][]cell, len(raw))
	for y, r := range raw {
		grid[y] = make([]cell, width)
		for x := range grid[y] {
			grid[y][x] = cell{col: x + 1, row: y + 1}
			if x < len(r) {
				grid[y][x].raw = strings.TrimSpace(r[x])
			}
		}
	}

	header, data := grid[0], dropEmptyRows(grid[1:])
	keep := nonEmptyColumns(data, width)
	if len(data) == 0 || len(keep) == 0 {
		return Sheet{}, false, nil
	}
	header = pick(header, keep)
	for i := range data {
		data[i] = pick(data[i], keep)
	}

	var headers []string
	if looksLikeHeader(data[0]) {
		headers = headerNames(data[0])
		data = data[1:]
	} else {
		headers = headerNames(header)
	}

	sheet := Sheet{Name: name, Headers: headers, Rows: make([]Row, 0, len(data))}
	for _, cells := range data {
		row := newRow()
		for i, h := range headers {
			row.set(h, cellValue(f, name, cells[i]))
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, true, nil
}

func dropEmptyRows(rows [][]cell) [][]cell {
	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range r {
			if c.raw != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func nonEmptyColumns(rows [][]cell, width int) []int {
	var keep []int
	for x := 0; x < width; x++ {
		for _, r := range rows {
			if r[x].raw != "" {
				keep = append(keep, x)
				break
			}
		}
	}
	return keep
}

func pick(cells []cell, cols []int) []cell {
	out := make([]cell, len(cols))
	for i, x := range cols {
		out[i] = cells[x]
	}
	return out
}

func looksLikeHeader(cells []cell) bool {
	for _, c := range cells {
		v := strings.ToLower(c.raw)
		for _, k := range headerKeywords {
			if strings.Contains(v, k) {
				return true
			}
		}
	}
	return false
}

// headerNames uses the cell text, Column_<n> for blanks, and suffixes
// repeated names with .1, .2 and so on.
func headerNames(cells []cell) []string {
	names := make([]string, len(cells))
	seen := map[string]int{}
	for i, c := range cells {
		name := c.raw
		if name == "" {
			name = fmt.Sprintf("Column_%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

// cellValue maps a raw cell to its JSON value: "" for blanks, YYYY-MM-DD for
// dates, numbers for numeric cells and the text otherwise.
func cellValue(f *excelize.File, sheet string, c cell) any {
	if c.raw == "" {
		return ""
	}
	axis, err := excelize.CoordinatesToCellName(c.col, c.row)
	if err != nil {
		return c.raw
	}

	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return c.raw
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return c.raw
	case excelize.CellTypeBool:
		return c.raw == "1" || strings.EqualFold(c.raw, "true")
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, c.raw); err == nil {
			return t.Format("2006-01-02")
		}
		if len(c.raw) >= 10 {
			return c.raw[:10]
		}
		return c.raw
	}

	serial, err := strconv.ParseFloat(c.raw, 64)
	if err != nil {
		return c.raw
	}
	if isDateCell(f, sheet, axis) {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return parseNumber(c.raw)
}

// parseNumber normalises numeric text, dropping thousands separators.
func parseNumber(s string) any {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return s
	}
	return json.Number(d.String())
}

func isDateCell(f *excelize.File, sheet, axis string) bool {
	idx, err := f.GetCellStyle(sheet, axis)
	if err != nil || idx == 0 {
		return false
	}
	style, err := f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt)
	}
	return isBuiltinDateFormat(style.NumFmt)
}

func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	default:
		return false
	}
}

// isDateFormat reports whether a number format string renders a date,
// ignoring quoted literals and bracketed sections.
func isDateFormat(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	f := b.String()
	return strings.ContainsAny(f, "yd") || (strings.Contains(f, "m") && !strings.ContainsAny(f, "hs"))
}
