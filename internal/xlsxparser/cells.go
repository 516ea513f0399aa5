package xlsxparser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

var nonDigits = regexp.MustCompile(`\D`)

// ExtractLotNumber strips every non-digit from label and parses the rest.
// It returns nil when the label carries no digits.
//
//	"Lot 12"  -> 12
//	"L-0007"  -> 7
//	"Office"  -> nil
func ExtractLotNumber(label string) *int {
	digits := nonDigits.ReplaceAllString(label, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// cell returns the trimmed value at a 1-based column, or "" past the end of
// the row.
func cell(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return strings.TrimSpace(row[col-1])
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseAmount reads a raw numeric cell. Blank and non-numeric cells are
// missing values, never errors.
func parseAmount(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// parseWhole reads a raw cell that must hold a whole number. Spreadsheets
// store every number as a float, so "1450" and "1450.0" are both accepted.
func parseWhole(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// =============================================================================
// DATE CELLS
// =============================================================================

// isDateCell reports whether the cell is formatted or typed as a date.
func isDateCell(f *excelize.File, sheet, ref string) (bool, error) {
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return false, err
	}
	if typ == excelize.CellTypeDate {
		return true, nil
	}

	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil {
		return false, err
	}
	if styleID == 0 {
		return false, nil
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt), nil
	}
	return isBuiltInDateFormat(style.NumFmt), nil
}

// isBuiltInDateFormat reports whether id is one of the built-in number
// formats that render a date (including the East Asian variants).
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom format code contains date tokens.
// Quoted literals, escaped characters and bracketed sections are ignored.
func isDateFormat(code string) bool {
	inQuote := false
	inBracket := false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == 'y' || c == 'Y' || c == 'd' || c == 'D':
			return true
		case c == 'm' || c == 'M':
			// m alone is ambiguous with minutes; treat it as a date token
			// unless it follows an hour token.
			if !strings.ContainsAny(code[:i], "hH") {
				return true
			}
		}
	}
	return false
}

// readDate reads a date-typed cell as a calendar date.
func readDate(f *excelize.File, sheet, ref string) (models.Date, bool) {
	raw, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return models.Date{}, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Date{}, false
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, uses1904(f))
		if err != nil {
			return models.Date{}, false
		}
		return models.DateOf(t), true
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", models.DateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.DateOf(t), true
		}
	}
	return models.Date{}, false
}

func uses1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}
