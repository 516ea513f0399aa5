// =============================================================================
// Tenant Invoicer - Property Table
// =============================================================================
//
// Loads the property lookup table: a tab-delimited file with one property
// per line.
//
//   | Column 1      | Column 2        | Column 3             |
//   |---------------|-----------------|----------------------|
//   | property code | street address  | city, state and zip  |
//   | PG            | Pine Grove Rd   | Springfield, IL 627  |
//
// Blank lines and lines starting with '#' are ignored. A line with fewer than
// three columns is an error; extra columns are ignored.
//
// =============================================================================

package property

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// Table is the loaded property lookup table.
type Table struct {
	// SourceFile is the path the table was read from.
	SourceFile string

	byCode map[string]models.PropertyRecord
	codes  []string
}

// Load reads a property table file.
//
// PARAMETERS:
//   - filePath: The path to the tab-delimited table.
//
// RETURNS:
//   - The loaded table.
//   - An error marked ErrNotFound when the file does not exist, or
//     ErrConfiguration when a line is malformed.
func Load(filePath string) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ierr.WithError(err).
				WithHintf("Property file %s not found", filePath).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Could not open property file %s", filePath).
			Mark(ierr.ErrConfiguration)
	}
	defer file.Close()

	table, err := Parse(bufio.NewReader(file))
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// Parse reads a property table from r.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	configureReader(reader)

	table := &Table{byCode: make(map[string]models.PropertyRecord)}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Property file is malformed").
				Mark(ierr.ErrConfiguration)
		}
		line, _ := reader.FieldPos(0)

		if len(row) < 3 {
			return nil, ierr.Newf("line %d: expected 3 columns, found %d", line, len(row)).
				WithHintf("Property file line %d needs code, street and city/state/zip", line).
				Mark(ierr.ErrConfiguration)
		}

		rec := models.PropertyRecord{
			PropertyCode:  strings.TrimSpace(row[0]),
			StreetAddress: strings.TrimSpace(row[1]),
			CityStateZip:  strings.TrimSpace(row[2]),
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := table.byCode[rec.PropertyCode]; dup {
			return nil, ierr.Newf("line %d: duplicate property code %q", line, rec.PropertyCode).
				WithHintf("Property code %s appears twice", rec.PropertyCode).
				Mark(ierr.ErrConfiguration)
		}
		table.byCode[rec.PropertyCode] = rec
		table.codes = append(table.codes, rec.PropertyCode)
	}
	return table, nil
}

// configureReader sets up the csv reader for the tab-delimited layout.
func configureReader(reader *csv.Reader) {
	reader.Comma = '\t'
	reader.Comment = '#'

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Street names carry stray quotes often enough.
	reader.LazyQuotes = true
}

// Lookup returns the property with the given code.
func (t *Table) Lookup(code string) (models.PropertyRecord, error) {
	code = strings.TrimSpace(code)
	if rec, ok := t.byCode[code]; ok {
		return rec, nil
	}
	return models.PropertyRecord{}, ierr.Newf("property %q not found", code).
		WithHintf("Unknown property code %q; known codes: %s", code, strings.Join(t.Codes(), ", ")).
		Mark(ierr.ErrNotFound)
}

// Codes returns the property codes sorted.
func (t *Table) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	sort.Strings(out)
	return out
}

// All returns every property in file order.
func (t *Table) All() []models.PropertyRecord {
	out := make([]models.PropertyRecord, 0, len(t.codes))
	for _, c := range t.codes {
		out = append(out, t.byCode[c])
	}
	return out
}

// Len is the number of properties.
func (t *Table) Len() int {
	return len(t.codes)
}
