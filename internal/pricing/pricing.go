// Package pricing derives rental totals from a space's rate structure and a
// date range, and layers the checkout fees on top of a base amount.  All
// amounts are integers in minor currency units (halalas), so rounding to the
// cent happens explicitly at every step and never accumulates.
package pricing

import (
	"time"

	"github.com/siaa/storage-rental/internal/model"
)

// Fee rates in basis points of the base amount.
const (
	TaxBasisPoints       = 1500 // 15% VAT
	InsuranceBasisPoints = 500  // 5% insurance
	LogisticsBasisPoints = 700  // 7% partner pickup
)

// LogisticsPartnerPickup is the logistics option that adds the logistics fee.
const LogisticsPartnerPickup = "partner_pickup"

const day = 24 * time.Hour

// Days returns the number of chargeable days between start and end:
// ceil((end-start)/24h), never less than one.  Callers must reject
// end < start beforehand.
func Days(start, end time.Time) int64 {
	d := end.Sub(start)
	n := int64(d / day)
	if d%day != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Base computes the rental amount for [start, end] from the first rate that
// is set, checked per-day, then per-week, then per-month.  A space without
// any rate costs nothing.
func Base(r model.Rates, start, end time.Time) int64 {
	days := Days(start, end)
	switch {
	case r.PerDayCents != nil:
		return days * *r.PerDayCents
	case r.PerWeekCents != nil:
		return ceilDiv(days, 7) * *r.PerWeekCents
	case r.PerMonthCents != nil:
		return ceilDiv(days, 30) * *r.PerMonthCents
	}
	return 0
}

// Breakdown is the checkout summary for a base amount.
type Breakdown struct {
	BaseCents      int64 `json:"base_cents"`
	TaxCents       int64 `json:"tax_cents"`
	InsuranceCents int64 `json:"insurance_cents"`
	LogisticsCents int64 `json:"logistics_cents"`
	TotalCents     int64 `json:"total_cents"`
}

// Fees applies tax, insurance and, when partnerPickup is set, logistics to
// base.  Each surcharge is rounded half-up to the minor unit on its own.
func Fees(base int64, partnerPickup bool) Breakdown {
	b := Breakdown{
		BaseCents:      base,
		TaxCents:       percent(base, TaxBasisPoints),
		InsuranceCents: percent(base, InsuranceBasisPoints),
	}
	if partnerPickup {
		b.LogisticsCents = percent(base, LogisticsBasisPoints)
	}
	b.TotalCents = b.BaseCents + b.TaxCents + b.InsuranceCents + b.LogisticsCents
	return b
}

// Quote is a full price estimate for a date range.
type Quote struct {
	Days int64 `json:"days"`
	Breakdown
}

// NewQuote combines Base and Fees.
func NewQuote(r model.Rates, start, end time.Time, partnerPickup bool) Quote {
	return Quote{
		Days:      Days(start, end),
		Breakdown: Fees(Base(r, start, end), partnerPickup),
	}
}

// percent returns amount*bp/10000 rounded half-up (half away from zero for
// negative amounts).
func percent(amount, bp int64) int64 {
	p := amount * bp
	if p < 0 {
		return -((-p + 5000) / 10000)
	}
	return (p + 5000) / 10000
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
