package render

import (
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// Activity block layout of the invoice template.
const (
	// FirstItemRow and LastItemRow bound the optional line-item rows.
	FirstItemRow = 13
	LastItemRow  = 20

	// RefillRow is the row blank rows are inserted before, so that the
	// remittance section (row RefillRow and below) keeps its position.
	RefillRow = 31

	descColumn   = "C"
	amountColumn = "F"
)

// FixupPlan lists the line-item rows a record leaves blank. A row is blank
// when its description or its amount is missing.
type FixupPlan struct {
	BlankRows []int
}

// PlanFixup computes the rows removed for rec.
func PlanFixup(rec *models.InvoiceFieldRecord) FixupPlan {
	present := make(map[string]bool)
	for _, c := range rec.Cells() {
		present[c.Address] = true
	}

	var plan FixupPlan
	for row := FirstItemRow; row <= LastItemRow; row++ {
		desc, _ := excelize.JoinCellName(descColumn, row)
		amount, _ := excelize.JoinCellName(amountColumn, row)
		if !present[desc] || !present[amount] {
			plan.BlankRows = append(plan.BlankRows, row)
		}
	}
	return plan
}

// Removed is the number of rows the plan deletes (and re-inserts).
func (p FixupPlan) Removed() int {
	return len(p.BlankRows)
}

// Apply deletes the blank rows top-down and inserts the same number of empty
// rows just above RefillRow, so the sheet keeps its row count and every row
// from RefillRow down stays where it was.
func (p FixupPlan) Apply(f *excelize.File, sheet string) error {
	for i, row := range p.BlankRows {
		// Each earlier deletion moved this row up by one.
		if err := f.RemoveRow(sheet, row-i); err != nil {
			return err
		}
	}
	if k := p.Removed(); k > 0 {
		if err := f.InsertRows(sheet, RefillRow-k, k); err != nil {
			return err
		}
	}
	return nil
}

// MapRow returns where a template row ends up after the fixup. ok is false
// for a row that is deleted.
func (p FixupPlan) MapRow(row int) (int, bool) {
	switch {
	case row < FirstItemRow:
		return row, true
	case row <= LastItemRow:
		shift := 0
		for _, blank := range p.BlankRows {
			if blank == row {
				return 0, false
			}
			if blank < row {
				shift++
			}
		}
		return row - shift, true
	case row < RefillRow:
		return row - p.Removed(), true
	default:
		return row, true
	}
}
