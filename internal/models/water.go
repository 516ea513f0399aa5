package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/validation"
)

// WaterUsageRecord is one meter's reading pair for a billing cycle.
// Construct it with NewWaterUsageRecord; the zero value is not valid.
type WaterUsageRecord struct {
	ID              uuid.UUID `json:"id"`
	MeterID         int       `json:"watermeter_id" validate:"gte=0"`
	PreviousDate    Date      `json:"previous_date"`
	CurrentDate     Date      `json:"current_date"`
	PreviousReading int       `json:"previous_reading" validate:"gte=0"`
	CurrentReading  int       `json:"current_reading" validate:"gte=0,gtefield=PreviousReading"`
	StatementDate   Date      `json:"statement_date"`
	InsertedAt      time.Time `json:"inserted_at"`
}

// WaterUsageInput carries the raw values for a WaterUsageRecord.
type WaterUsageInput struct {
	MeterID         int
	PreviousDate    Date
	CurrentDate     Date
	PreviousReading int
	CurrentReading  int
	StatementDate   Date
	Now             time.Time
}

// NewWaterUsageRecord validates the input and returns the record, or an
// ErrValidation-marked error. A current reading below the previous reading is
// always rejected.
func NewWaterUsageRecord(in WaterUsageInput) (*WaterUsageRecord, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	statement := in.StatementDate
	if statement.IsZero() {
		statement = FirstOfMonth(now.Year(), now.Month())
	}

	rec := &WaterUsageRecord{
		ID:              uuid.New(),
		MeterID:         in.MeterID,
		PreviousDate:    in.PreviousDate,
		CurrentDate:     in.CurrentDate,
		PreviousReading: in.PreviousReading,
		CurrentReading:  in.CurrentReading,
		StatementDate:   statement,
		InsertedAt:      now,
	}

	if errs := validation.Struct(rec); len(errs) > 0 {
		return nil, ierr.WithError(errs[0]).
			WithHintf("Meter %d: %s", in.MeterID, errs[0].Message).
			Mark(ierr.ErrValidation)
	}

	return rec, nil
}

// Usage is the consumption between the two readings.
func (w *WaterUsageRecord) Usage() int {
	return w.CurrentReading - w.PreviousReading
}

// BillAmount prices the usage: usage * rate + serviceFee, rounded to cents.
func (w *WaterUsageRecord) BillAmount(rate, serviceFee decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(w.Usage())).Mul(rate).Add(serviceFee).Round(2)
}
