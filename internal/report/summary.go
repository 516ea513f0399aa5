// =============================================================================
// Tenant Invoicer - Run Summary PDF
// =============================================================================
//
// Renders a one-table overview of every invoice in a run: the charges per lot
// and the amount due, with a totals row.
//
// =============================================================================

package report

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tenant-invoicer/internal/billing"
	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// Summary is the content of the run summary.
type Summary struct {
	PropertyCode  string
	StatementDate models.Date
	GeneratedAt   time.Time
	Invoices      []*billing.Invoice
	Suppressed    []int
}

// Row is one line of the summary table.
type Row struct {
	Lot       int
	Tenant    string
	Rent      decimal.Decimal
	Storage   decimal.Decimal
	Water     decimal.Decimal
	OtherRent decimal.Decimal
	Overdue   decimal.Decimal
	LateFees  decimal.Decimal
	TotalDue  decimal.Decimal
}

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"Lot", 14, "C"},
	{"Tenant", 58, "L"},
	{"Rent", 26, "R"},
	{"Storage", 24, "R"},
	{"Water", 24, "R"},
	{"Other rent", 26, "R"},
	{"Overdue", 26, "R"},
	{"Late fees", 24, "R"},
	{"Total due", 28, "R"},
}

// Rows builds the table rows in invoice order.
func (s Summary) Rows() []Row {
	return lo.Map(s.Invoices, func(inv *billing.Invoice, _ int) Row {
		r := inv.Record
		return Row{
			Lot:       inv.Lot,
			Tenant:    r.TenantName,
			Rent:      models.OrZero(r.AmtRent),
			Storage:   models.OrZero(r.AmtStorage),
			Water:     models.OrZero(r.AmtWater),
			OtherRent: models.OrZero(r.AmtOtherRent),
			Overdue:   models.OrZero(r.AmtOverdue),
			LateFees:  models.OrZero(r.AmtLateFee),
			TotalDue:  r.InvoiceTotalAmountDue,
		}
	})
}

// Totals sums every amount column.
func (s Summary) Totals() Row {
	return lo.Reduce(s.Rows(), func(acc Row, r Row, _ int) Row {
		acc.Rent = acc.Rent.Add(r.Rent)
		acc.Storage = acc.Storage.Add(r.Storage)
		acc.Water = acc.Water.Add(r.Water)
		acc.OtherRent = acc.OtherRent.Add(r.OtherRent)
		acc.Overdue = acc.Overdue.Add(r.Overdue)
		acc.LateFees = acc.LateFees.Add(r.LateFees)
		acc.TotalDue = acc.TotalDue.Add(r.TotalDue)
		return acc
	}, Row{})
}

// Write renders the summary to path.
func (s Summary) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Could not create summary %s", path).
			Mark(ierr.ErrRender)
	}
	if err := s.Render(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return ierr.WithError(err).
			WithHintf("Could not write summary %s", path).
			Mark(ierr.ErrRender)
	}
	return nil
}

// Render writes the summary PDF to w.
func (s Summary) Render(w io.Writer) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Invoice summary "+s.PropertyCode, false)
	pdf.AddPage()

	// STEP 1: Heading
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Invoice Summary - "+s.PropertyCode)
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Statement: "+s.StatementDate.Format("January 2006"))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+s.GeneratedAt.Format(time.RFC3339))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Invoices: "+strconv.Itoa(len(s.Invoices))+"    Nothing due: "+strconv.Itoa(len(s.Suppressed)))
	pdf.Ln(9)

	// STEP 2: Table header
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// STEP 3: One line per lot
	pdf.SetFont("Arial", "", 10)
	for _, r := range s.Rows() {
		writeRow(pdf, strconv.Itoa(r.Lot), r, false)
	}

	// STEP 4: Totals
	pdf.SetFont("Arial", "B", 10)
	writeRow(pdf, "", s.Totals(), true)

	if err := pdf.Output(w); err != nil {
		return ierr.WithError(err).
			WithHint("Could not render the summary PDF").
			Mark(ierr.ErrRender)
	}
	return nil
}

func writeRow(pdf *gofpdf.Fpdf, lot string, r Row, total bool) {
	tenant := r.Tenant
	if total {
		tenant = "Total"
	}
	cells := []string{
		lot,
		tenant,
		money(r.Rent),
		money(r.Storage),
		money(r.Water),
		money(r.OtherRent),
		money(r.Overdue),
		money(r.LateFees),
		money(r.TotalDue),
	}
	for i, c := range columns {
		pdf.CellFormat(c.width, 6, cells[i], "1", 0, c.align, total, 0, "")
	}
	pdf.Ln(-1)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
