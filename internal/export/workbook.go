package export

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// excel limits sheet names to 31 characters and forbids a few symbols
const maxSheetName = 31

var (
	invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	invalidSheetChars    = regexp.MustCompile(`[\\/:*?\[\]]`)
	whitespace           = regexp.MustCompile(`\s+`)
)

// Sheet is one worksheet: a header row followed by data rows
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// AddRow appends a data row
func (s *Sheet) AddRow(values ...interface{}) {
	s.Rows = append(s.Rows, values)
}

// Write renders the sheets as an xlsx workbook into w
func Write(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E7E6F7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	used := make(map[string]*sheetSlot)

	for i, sheet := range sheets {
		name := uniqueSheetName(sheetName(sheet.Name, i), used)

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}

		if err := writeSheet(f, name, sheet, headerStyle); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Bytes renders the workbook into memory
func Bytes(sheets ...Sheet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, sheets...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet, headerStyle int) error {
	row := 1

	if len(sheet.Headers) > 0 {
		header := make([]interface{}, len(sheet.Headers))
		for i, h := range sheet.Headers {
			header[i] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("failed to write header of %s: %w", name, err)
		}
		if err := f.SetRowStyle(name, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("failed to style header of %s: %w", name, err)
		}
		row++
	}

	for _, values := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := normalizeRow(values)
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", row, name, err)
		}
		row++
	}

	if n := len(sheet.Headers); n > 0 {
		last, err := excelize.ColumnNumberToName(n)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, "A", last, 22); err != nil {
			return fmt.Errorf("failed to size columns of %s: %w", name, err)
		}
	}

	return nil
}

// normalizeRow formats values excel has no native type for
func normalizeRow(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		switch t := v.(type) {
		case nil:
			out[i] = ""
		case *string:
			if t == nil {
				out[i] = ""
			} else {
				out[i] = *t
			}
		case *time.Time:
			if t == nil {
				out[i] = ""
			} else {
				out[i] = t.Format("2006-01-02 15:04:05")
			}
		case time.Time:
			out[i] = t.Format("2006-01-02 15:04:05")
		default:
			out[i] = v
		}
	}
	return out
}

func sheetName(name string, index int) string {
	name = strings.TrimSpace(invalidSheetChars.ReplaceAllString(name, ""))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// sheetSlot remembers the first spelling of a sheet name and how often it was requested
type sheetSlot struct {
	name  string
	count int
}

// uniqueSheetName numbers repeated names, matched case-insensitively, using the first-seen spelling
func uniqueSheetName(name string, used map[string]*sheetSlot) string {
	key := strings.ToLower(name)
	slot, ok := used[key]
	if !ok {
		used[key] = &sheetSlot{name: name, count: 1}
		return name
	}
	slot.count++

	suffix := fmt.Sprintf(" (%d)", slot.count)
	r := []rune(slot.name)
	if len(r)+len(suffix) > maxSheetName {
		r = r[:maxSheetName-len(suffix)]
	}
	return uniqueSheetName(string(r)+suffix, used)
}

// SanitizeFilename removes characters invalid on common file systems and collapses whitespace
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
}

// Filename builds "<title>_<DD-MM>.xlsx" for the day of at
func Filename(title string, at time.Time) string {
	base := SanitizeFilename(title)
	if base == "" {
		base = "export"
	}
	return fmt.Sprintf("%s_%s.xlsx", base, at.Format("02-01"))
}
