package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a fee schedule.
type Status string

// Known fee schedule statuses.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDraft    Status = "draft"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDraft:
		return true
	default:
		return false
	}
}

// StructureType describes how a fee is computed.
type StructureType string

// Known fee structures.
const (
	StructureTiered   StructureType = "tiered"
	StructureFlat     StructureType = "flat"
	StructureFlatRate StructureType = "flat_rate"
	StructureFlatFee  StructureType = "flat_fee"
)

// Valid reports whether t is one of the known structure types.
func (t StructureType) Valid() bool {
	switch t {
	case StructureTiered, StructureFlat, StructureFlatRate, StructureFlatFee:
		return true
	default:
		return false
	}
}

// Tier is one band of a tiered fee structure.
type Tier struct {
	Threshold decimal.Decimal  // lower bound of the band (minAmount)
	Max       *decimal.Decimal // upper bound; nil means "and up"
	Rate      decimal.Decimal  // fraction, e.g. 0.0125 for 1.25%
}

// FeeSchedule is one fee schedule definition read from a listing.
// The owning firm is supplied per batch and is not part of the record.
type FeeSchedule struct {
	Index             int // position in the source listing
	ID                string
	Code              string
	Name              string
	Status            Status
	StructureType     StructureType
	Tiers             []Tier
	FlatRate          *decimal.Decimal
	FlatFeePerQuarter *decimal.Decimal
	HasMinimumFee     bool
	MinimumFeePerYear *decimal.Decimal
	Description       string
	IsDirectBill      bool
}

// IsTiered reports whether fees are computed from tiers.
func (f *FeeSchedule) IsTiered() bool {
	return f.StructureType == StructureTiered
}

// RecordInvariantViolation reports a record whose fields contradict each other.
type RecordInvariantViolation struct {
	Index  int
	ID     string
	Code   string
	Reason string
}

func (e *RecordInvariantViolation) Error() string {
	return fmt.Sprintf("record %d (code %q): %s", e.Index, e.Code, e.Reason)
}

// Validate checks the cross-field invariants of the record.
func (f *FeeSchedule) Validate() error {
	if !f.Status.Valid() {
		return f.violation("unknown status %q", f.Status)
	}
	if !f.StructureType.Valid() {
		return f.violation("unknown structure type %q", f.StructureType)
	}

	if f.IsTiered() {
		if len(f.Tiers) == 0 {
			return f.violation("tiered structure has no tiers")
		}
		if f.FlatRate != nil {
			return f.violation("tiered structure has flat_rate")
		}
		if f.FlatFeePerQuarter != nil {
			return f.violation("tiered structure has flat_fee_per_quarter")
		}
	} else if len(f.Tiers) > 0 {
		return f.violation("%s structure has tiers", f.StructureType)
	}

	if f.MinimumFeePerYear != nil && !f.HasMinimumFee {
		return f.violation("minimum_fee_per_year set without has_minimum_fee")
	}

	amounts := []struct {
		name string
		d    *decimal.Decimal
	}{
		{"flat_rate", f.FlatRate},
		{"flat_fee_per_quarter", f.FlatFeePerQuarter},
		{"minimum_fee_per_year", f.MinimumFeePerYear},
	}
	for _, a := range amounts {
		if a.d != nil && a.d.IsNegative() {
			return f.violation("%s is negative", a.name)
		}
	}

	for i, t := range f.Tiers {
		if t.Threshold.IsNegative() || t.Rate.IsNegative() {
			return f.violation("tier %d has a negative value", i)
		}
		if t.Max != nil && t.Max.LessThan(t.Threshold) {
			return f.violation("tier %d max is below its threshold", i)
		}
		if i > 0 && !t.Threshold.GreaterThan(f.Tiers[i-1].Threshold) {
			return f.violation("tier %d threshold does not ascend", i)
		}
	}

	return nil
}

func (f *FeeSchedule) violation(format string, args ...any) *RecordInvariantViolation {
	return &RecordInvariantViolation{
		Index:  f.Index,
		ID:     f.ID,
		Code:   f.Code,
		Reason: fmt.Sprintf(format, args...),
	}
}
