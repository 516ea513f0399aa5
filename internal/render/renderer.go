// =============================================================================
// Tenant Invoicer - Document Renderer
// =============================================================================
//
// This module writes one invoice workbook per record from a fixed template.
//
// RENDERING PROCESS:
//   1. Open a fresh copy of the template (read once, opened per record)
//   2. Write every non-null field to its cell on the first worksheet
//   3. Remove the blank line-item rows (see fixup.go)
//   4. Save as "<customer id> Bill <Mon YYYY>.xlsx" in the target directory
//
// The template itself is never modified.
//
// =============================================================================

package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/logger"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// FileMonthLayout formats the due date in output file names.
const FileMonthLayout = "Jan 2006"

// Renderer fills the invoice template.
type Renderer struct {
	templatePath string
	template     []byte
	log          *logger.Logger
}

// NewRenderer loads the template workbook.
//
// RETURNS:
//   - An error marked ErrNotFound when the template does not exist, or
//     ErrRender when it is not a readable workbook.
func NewRenderer(templatePath string, log *logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.NewNop()
	}

	data, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice template %s not found", templatePath).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Could not read invoice template %s", templatePath).
			Mark(ierr.ErrRender)
	}

	r := &Renderer{templatePath: templatePath, template: data, log: log}

	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if f.GetSheetName(0) == "" {
		return nil, ierr.Newf("template %s has no worksheets", templatePath).
			WithHint("The invoice template has no worksheets").
			Mark(ierr.ErrRender)
	}

	return r, nil
}

// TemplatePath returns the template the renderer was loaded from.
func (r *Renderer) TemplatePath() string {
	return r.templatePath
}

func (r *Renderer) open() (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(r.template))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invoice template %s is not a valid workbook", r.templatePath).
			Mark(ierr.ErrRender)
	}
	return f, nil
}

// Render writes the invoice for rec into dir and returns the file path. A
// partially written file is removed on failure.
func (r *Renderer) Render(rec *models.InvoiceFieldRecord, dir string) (string, error) {
	f, err := r.open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	for _, c := range rec.Cells() {
		if err := f.SetCellValue(sheet, c.Address, c.Value); err != nil {
			return "", ierr.WithError(err).
				WithHintf("Could not write %s (%s) for %s", c.Field, c.Address, rec.InvoiceCustomerID).
				Mark(ierr.ErrRender)
		}
	}

	plan := PlanFixup(rec)
	if err := plan.Apply(f, sheet); err != nil {
		return "", ierr.WithError(err).
			WithHintf("Could not remove empty rows for %s", rec.InvoiceCustomerID).
			Mark(ierr.ErrRender)
	}

	path := filepath.Join(dir, FileName(rec))
	if err := f.SaveAs(path); err != nil {
		_ = os.Remove(path)
		return "", ierr.WithError(err).
			WithHintf("Could not save %s", path).
			Mark(ierr.ErrRender)
	}

	r.log.Debugw("invoice rendered", "customer", rec.InvoiceCustomerID, "file", path, "rows_removed", plan.Removed())
	return path, nil
}

// RenderAll renders every record into dir and returns the paths in input
// order. It stops at the first failure.
func (r *Renderer) RenderAll(ctx context.Context, recs []*models.InvoiceFieldRecord, dir string) ([]string, error) {
	paths := make([]string, 0, len(recs))
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return paths, ierr.WithError(err).
				WithHint("Rendering was interrupted").
				Mark(ierr.ErrSystem)
		}
		path, err := r.Render(rec, dir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// FileName is the output file name for rec: customer id and due month.
func FileName(rec *models.InvoiceFieldRecord) string {
	id := strings.NewReplacer("/", "-", `\`, "-").Replace(rec.InvoiceCustomerID)
	return id + " Bill " + rec.InvoiceDueDate.Format(FileMonthLayout) + ".xlsx"
}

// Locate returns the cell each non-null field of rec occupies in the
// rendered document, keyed by long field name. Fields on deleted rows are
// left out.
func Locate(rec *models.InvoiceFieldRecord) map[string]string {
	plan := PlanFixup(rec)
	out := make(map[string]string)
	for _, c := range rec.Cells() {
		col, row, err := excelize.SplitCellName(c.Address)
		if err != nil {
			continue
		}
		final, ok := plan.MapRow(row)
		if !ok {
			continue
		}
		addr, err := excelize.JoinCellName(col, final)
		if err != nil {
			continue
		}
		out[c.Field] = addr
	}
	return out
}
