package models

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/validation"
)

// InvoiceFieldRecord is the document-shaped invoice for one lot.
//
// Every field has a long name (the `field` tag) and a short alias that is
// the template cell it is written to (the `cell` tag). The cell table is a
// compatibility contract with the invoice template and must not change.
//
// Pointer and NullDecimal fields are optional: nil / Valid=false means the
// line item does not apply and its row is dropped from the document.
type InvoiceFieldRecord struct {
	BusinessName         string `field:"business_name" cell:"A1"`
	BusinessAddress1     string `field:"business_address_1" cell:"A2"`
	BusinessAddress2     string `field:"business_address_2" cell:"A3"`
	BusinessContactPhone string `field:"business_contact_phone" cell:"A4"`
	BusinessContactEmail string `field:"business_contact_email" cell:"A5"`

	TenantName     string `field:"tenant_name" cell:"B7"`
	TenantAddress1 string `field:"tenant_address_1" cell:"B8"`
	TenantAddress2 string `field:"tenant_address_2" cell:"B9"`

	InvoiceDate           Date            `field:"invoice_date" cell:"F3"`
	InvoiceCustomerID     string          `field:"invoice_customer_id" cell:"F4" validate:"required"`
	InvoiceTotalAmountDue decimal.Decimal `field:"invoice_total_amount_due" cell:"F5"`
	InvoiceDueDate        Date            `field:"invoice_due_date" cell:"F6"`

	DateToday1    *Date `field:"date_today_1" cell:"A13"`
	DateToday2    *Date `field:"date_today_2" cell:"A14"`
	DateLate      *Date `field:"date_late" cell:"A15"`
	DateRent      *Date `field:"date_rent" cell:"A16"`
	DateWater     *Date `field:"date_water" cell:"A17"`
	DateStorage   *Date `field:"date_storage" cell:"A18"`
	DateOtherRent *Date `field:"date_other_rent" cell:"A19"`

	DescPrevMonthPaid     *string `field:"desc_prev_month_paid" cell:"C13"`
	DescPrevMonthResidual *string `field:"desc_prev_month_residual" cell:"C14"`
	DescLateFee           *string `field:"desc_late_fee" cell:"C15"`
	DescCurrRent          *string `field:"desc_curr_rent" cell:"C16"`
	DescCurrWater         *string `field:"desc_curr_water" cell:"C17"`
	DescCurrStorage       *string `field:"desc_curr_storage" cell:"C18"`
	DescOtherRent         *string `field:"desc_other_rent" cell:"C19"`
	DescPrevOverdue       *string `field:"desc_prev_overdue" cell:"C20"`

	AmtPrevMonthPaid     decimal.NullDecimal `field:"amt_prev_month_paid" cell:"F13"`
	AmtPrevMonthResidual decimal.NullDecimal `field:"amt_prev_month_residual" cell:"F14"`
	AmtLateFee           decimal.NullDecimal `field:"amt_late_fee" cell:"F15"`
	AmtRent              decimal.NullDecimal `field:"amt_rent" cell:"F16"`
	AmtWater             decimal.NullDecimal `field:"amt_water" cell:"F17"`
	AmtStorage           decimal.NullDecimal `field:"amt_storage" cell:"F18"`
	AmtOtherRent         decimal.NullDecimal `field:"amt_other_rent" cell:"F19"`
	AmtOverdue           decimal.NullDecimal `field:"amt_overdue" cell:"F20"`
	AmtTotalAmountDue    decimal.NullDecimal `field:"amt_total_amount_due" cell:"F21"`

	DetailOtherRent *string `field:"detail_other_rent" cell:"A22"`

	WaterPrevDate    *Date               `field:"water_prev_date" cell:"B26"`
	WaterCurrDate    *Date               `field:"water_curr_date" cell:"C26"`
	WaterMeterID     *int                `field:"water_meter_id" cell:"A27"`
	WaterPrevRead    *int                `field:"water_prev_read" cell:"B27"`
	WaterCurrRead    *int                `field:"water_curr_read" cell:"C27"`
	WaterUsagePeriod *int                `field:"water_usage_period" cell:"D27"`
	WaterBillPeriod  decimal.NullDecimal `field:"water_bill_period" cell:"E27"`

	InvoiceDateDup           Date            `field:"invoice_date_" cell:"F36"`
	InvoiceCustomerIDDup     string          `field:"invoice_customer_id_" cell:"F37"`
	BusinessNameDup          string          `field:"business_name_" cell:"A37"`
	BusinessAddress1Dup      string          `field:"business_address_1_" cell:"A38"`
	BusinessAddress2Dup      string          `field:"business_address_2_" cell:"A39"`
	InvoiceDueDateDup        Date            `field:"invoice_due_date_" cell:"F39"`
	InvoiceTotalAmountDueDup decimal.Decimal `field:"invoice_total_amount_due_" cell:"F40"`
	BusinessContactEmailDup  string          `field:"business_contact_email_" cell:"A43"`
}

// =============================================================================
// FIELD TABLE
// =============================================================================

// InvoiceField describes one InvoiceFieldRecord field.
type InvoiceField struct {
	Name  string
	Cell  string
	index int
}

// Cell is one value ready to be written to the template.
type Cell struct {
	Address string
	Field   string
	Value   any
}

// InvoiceDefaults supplies the run-dependent defaults for fields the caller
// leaves unset.
type InvoiceDefaults struct {
	// InvoiceDate defaults invoice_date and invoice_date_.
	InvoiceDate Date
	// DueDate defaults invoice_due_date and invoice_due_date_.
	DueDate Date
}

var (
	invoiceFields []InvoiceField
	fieldByKey    map[string]InvoiceField

	dateType        = reflect.TypeOf(Date{})
	datePtrType     = reflect.TypeOf((*Date)(nil))
	stringPtrType   = reflect.TypeOf((*string)(nil))
	intPtrType      = reflect.TypeOf((*int)(nil))
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
)

func init() {
	t := reflect.TypeOf(InvoiceFieldRecord{})
	fieldByKey = make(map[string]InvoiceField, t.NumField()*2)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		f := InvoiceField{Name: sf.Tag.Get("field"), Cell: sf.Tag.Get("cell"), index: i}
		invoiceFields = append(invoiceFields, f)
		fieldByKey[f.Name] = f
		fieldByKey[f.Cell] = f
	}
}

// InvoiceFields returns the field table in declaration order.
func InvoiceFields() []InvoiceField {
	out := make([]InvoiceField, len(invoiceFields))
	copy(out, invoiceFields)
	return out
}

// LookupInvoiceField resolves a long field name or a cell alias.
func LookupInvoiceField(key string) (InvoiceField, bool) {
	f, ok := fieldByKey[strings.TrimSpace(key)]
	return f, ok
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// NewInvoiceFieldRecord builds a record from values keyed by long field name
// or by cell alias ("tenant_name" and "B7" address the same field). Unset
// fields take their type default: "" for text, defaults.InvoiceDate for the
// invoice dates, defaults.DueDate for the due dates, zero for the required
// totals and null for everything optional.
func NewInvoiceFieldRecord(values map[string]any, defaults InvoiceDefaults) (*InvoiceFieldRecord, error) {
	rec := &InvoiceFieldRecord{
		InvoiceDate:       defaults.InvoiceDate,
		InvoiceDateDup:    defaults.InvoiceDate,
		InvoiceDueDate:    defaults.DueDate,
		InvoiceDueDateDup: defaults.DueDate,
	}

	rv := reflect.ValueOf(rec).Elem()
	var problems validation.ValidationResult
	seen := make(map[string]string, len(values))

	for key, raw := range values {
		f, ok := LookupInvoiceField(key)
		if !ok {
			problems.Add(validation.NewError(key, "unknown_field", fmt.Sprintf("unknown invoice field %q", key)))
			continue
		}
		if other, dup := seen[f.Name]; dup {
			problems.Add(validation.NewError(f.Name, "duplicate_field",
				fmt.Sprintf("field %s given twice (%q and %q)", f.Name, other, key)))
			continue
		}
		seen[f.Name] = key
		if err := assign(rv.Field(f.index), raw); err != nil {
			problems.Add(validation.NewError(f.Name, "type", err.Error()))
		}
	}

	if !problems.IsValid() {
		return nil, ierr.NewError(validation.FormatErrors(problems.Errors)).
			WithHint("Invoice record has invalid fields").
			Mark(ierr.ErrValidation)
	}
	return rec, nil
}

// assign converts raw into the field's declared type.
func assign(field reflect.Value, raw any) error {
	ft := field.Type()
	if raw == nil {
		if ft.Kind() == reflect.Ptr || ft == nullDecimalType {
			field.Set(reflect.Zero(ft))
			return nil
		}
		return fmt.Errorf("field is not optional")
	}

	switch ft {
	case reflect.TypeOf(""):
		s, ok := raw.(string)
		if !ok {
			return typeErr(raw, "string")
		}
		field.SetString(s)
	case stringPtrType:
		switch v := raw.(type) {
		case string:
			field.Set(reflect.ValueOf(&v))
		case *string:
			field.Set(reflect.ValueOf(v))
		default:
			return typeErr(raw, "string")
		}
	case dateType, datePtrType:
		d, ok := toDate(raw)
		if !ok {
			return typeErr(raw, "date")
		}
		if ft == dateType {
			field.Set(reflect.ValueOf(d))
		} else {
			field.Set(reflect.ValueOf(&d))
		}
	case intPtrType:
		switch v := raw.(type) {
		case int:
			field.Set(reflect.ValueOf(&v))
		case *int:
			field.Set(reflect.ValueOf(v))
		default:
			return typeErr(raw, "int")
		}
	case decimalType:
		d, ok := toDecimal(raw)
		if !ok || !d.Valid {
			return typeErr(raw, "amount")
		}
		field.Set(reflect.ValueOf(d.Decimal))
	case nullDecimalType:
		d, ok := toDecimal(raw)
		if !ok {
			return typeErr(raw, "amount")
		}
		field.Set(reflect.ValueOf(d))
	default:
		return fmt.Errorf("unsupported field type %s", ft)
	}
	return nil
}

func typeErr(raw any, want string) error {
	return fmt.Errorf("expected %s, got %T", want, raw)
}

func toDate(raw any) (Date, bool) {
	switch v := raw.(type) {
	case Date:
		return v, true
	case *Date:
		if v == nil {
			return Date{}, false
		}
		return *v, true
	case time.Time:
		return DateOf(v), true
	case string:
		d, err := ParseDate(v)
		return d, err == nil
	}
	return Date{}, false
}

func toDecimal(raw any) (decimal.NullDecimal, bool) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return decimal.NewNullDecimal(v), true
	case decimal.NullDecimal:
		return v, true
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v)), true
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v))), true
	}
	return decimal.NullDecimal{}, false
}

// =============================================================================
// WHOLE-RECORD VALIDATION
// =============================================================================

// Validate checks the record as a unit before it is rendered: the customer
// id is set, the duplicate section mirrors the primary one, and every line
// item that carries a description also carries an amount.
func (r *InvoiceFieldRecord) Validate() error {
	var result validation.ValidationResult
	for _, e := range validation.Struct(r) {
		result.Add(e)
	}

	if r.InvoiceCustomerIDDup != r.InvoiceCustomerID {
		result.Add(validation.NewError("invoice_customer_id_", "mirror", "duplicate customer id differs from primary"))
	}
	if !r.InvoiceTotalAmountDueDup.Equal(r.InvoiceTotalAmountDue) {
		result.Add(validation.NewError("invoice_total_amount_due_", "mirror", "duplicate total differs from primary"))
	}
	if !r.InvoiceDueDateDup.Equal(r.InvoiceDueDate) {
		result.Add(validation.NewError("invoice_due_date_", "mirror", "duplicate due date differs from primary"))
	}
	if !r.InvoiceDateDup.Equal(r.InvoiceDate) {
		result.Add(validation.NewError("invoice_date_", "mirror", "duplicate invoice date differs from primary"))
	}

	for _, item := range r.LineItems() {
		if item.Description != nil && !item.Amount.Valid {
			result.Add(validation.NewError(item.Key, "line_item", "line item has a description but no amount"))
		}
	}

	if !result.IsValid() {
		return ierr.NewError(validation.FormatErrors(result.Errors)).
			WithHintf("Invoice %s failed validation", r.InvoiceCustomerID).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// =============================================================================
// VIEWS
// =============================================================================

// LineItem is one row of the account-activity block.
type LineItem struct {
	Key         string
	Row         int
	Date        *Date
	Description *string
	Amount      decimal.NullDecimal
}

// LineItems returns the eight optional rows of the activity block, top to
// bottom (template rows 13 to 20).
func (r *InvoiceFieldRecord) LineItems() []LineItem {
	return []LineItem{
		{Key: "prev_month_paid", Row: 13, Date: r.DateToday1, Description: r.DescPrevMonthPaid, Amount: r.AmtPrevMonthPaid},
		{Key: "prev_month_residual", Row: 14, Date: r.DateToday2, Description: r.DescPrevMonthResidual, Amount: r.AmtPrevMonthResidual},
		{Key: "late_fee", Row: 15, Date: r.DateLate, Description: r.DescLateFee, Amount: r.AmtLateFee},
		{Key: "rent", Row: 16, Date: r.DateRent, Description: r.DescCurrRent, Amount: r.AmtRent},
		{Key: "water", Row: 17, Date: r.DateWater, Description: r.DescCurrWater, Amount: r.AmtWater},
		{Key: "storage", Row: 18, Date: r.DateStorage, Description: r.DescCurrStorage, Amount: r.AmtStorage},
		{Key: "other_rent", Row: 19, Date: r.DateOtherRent, Description: r.DescOtherRent, Amount: r.AmtOtherRent},
		{Key: "prev_overdue", Row: 20, Description: r.DescPrevOverdue, Amount: r.AmtOverdue},
	}
}

// Cells lists every non-null field with its template address, in field
// table order. Dates become time.Time, amounts become float64 rounded to
// cents, so the values can go straight into a spreadsheet cell.
func (r *InvoiceFieldRecord) Cells() []Cell {
	rv := reflect.ValueOf(r).Elem()
	cells := make([]Cell, 0, len(invoiceFields))
	for _, f := range invoiceFields {
		v, ok := cellValue(rv.Field(f.index))
		if !ok {
			continue
		}
		cells = append(cells, Cell{Address: f.Cell, Field: f.Name, Value: v})
	}
	return cells
}

// Values returns the record keyed by long field name, nulls omitted.
func (r *InvoiceFieldRecord) Values() map[string]any {
	out := make(map[string]any, len(invoiceFields))
	for _, c := range r.Cells() {
		out[c.Field] = c.Value
	}
	return out
}

func cellValue(v reflect.Value) (any, bool) {
	switch v.Type() {
	case dateType:
		return v.Interface().(Date).Time, true
	case datePtrType:
		if v.IsNil() {
			return nil, false
		}
		return v.Interface().(*Date).Time, true
	case stringPtrType:
		if v.IsNil() {
			return nil, false
		}
		return *v.Interface().(*string), true
	case intPtrType:
		if v.IsNil() {
			return nil, false
		}
		return *v.Interface().(*int), true
	case decimalType:
		return v.Interface().(decimal.Decimal).Round(2).InexactFloat64(), true
	case nullDecimalType:
		d := v.Interface().(decimal.NullDecimal)
		if !d.Valid {
			return nil, false
		}
		return d.Decimal.Round(2).InexactFloat64(), true
	}
	return v.Interface(), true
}
