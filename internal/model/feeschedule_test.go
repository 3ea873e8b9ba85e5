package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func tieredSchedule() FeeSchedule {
	return FeeSchedule{
		Index:         1,
		ID:            "b",
		Code:          "B1",
		Name:          "Tiered",
		Status:        StatusActive,
		StructureType: StructureTiered,
		Tiers: []Tier{
			{Threshold: decimal.RequireFromString("1000"), Rate: decimal.RequireFromString("0.01")},
			{Threshold: decimal.RequireFromString("5000"), Rate: decimal.RequireFromString("0.02")},
		},
	}
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusInactive.Valid())
	assert.True(t, StatusDraft.Valid())
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestStructureTypeValid(t *testing.T) {
	t.Parallel()

	for _, st := range []StructureType{StructureTiered, StructureFlat, StructureFlatRate, StructureFlatFee} {
		assert.True(t, st.Valid(), st)
	}
	assert.False(t, StructureType("sliding").Valid())
}

func TestValidate_TieredWithoutFlatRate(t *testing.T) {
	t.Parallel()

	fs := tieredSchedule()
	assert.NoError(t, fs.Validate())
}

func TestValidate_TieredWithFlatRate(t *testing.T) {
	t.Parallel()

	fs := tieredSchedule()
	fs.FlatRate = dec("0.01")

	err := fs.Validate()
	require.Error(t, err)

	var v *RecordInvariantViolation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, "b", v.ID)
	assert.Equal(t, "B1", v.Code)
	assert.Contains(t, v.Reason, "flat_rate")
}

func TestValidate_Violations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*FeeSchedule)
		reason string
	}{
		{"unknown status", func(f *FeeSchedule) { f.Status = "archived" }, "unknown status"},
		{"unknown structure", func(f *FeeSchedule) { f.StructureType = "sliding" }, "unknown structure type"},
		{"tiered without tiers", func(f *FeeSchedule) { f.Tiers = nil }, "has no tiers"},
		{"tiered with quarterly fee", func(f *FeeSchedule) { f.FlatFeePerQuarter = dec("250") }, "flat_fee_per_quarter"},
		{"flat with tiers", func(f *FeeSchedule) { f.StructureType = StructureFlat }, "flat structure has tiers"},
		{"minimum without flag", func(f *FeeSchedule) { f.MinimumFeePerYear = dec("1000") }, "without has_minimum_fee"},
		{"negative minimum", func(f *FeeSchedule) {
			f.HasMinimumFee = true
			f.MinimumFeePerYear = dec("-1")
		}, "minimum_fee_per_year is negative"},
		{"negative rate", func(f *FeeSchedule) { f.Tiers[0].Rate = decimal.RequireFromString("-0.01") }, "negative value"},
		{"descending thresholds", func(f *FeeSchedule) { f.Tiers[1].Threshold = decimal.RequireFromString("500") }, "does not ascend"},
		{"max below threshold", func(f *FeeSchedule) { f.Tiers[1].Max = dec("4999.99") }, "max is below"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := tieredSchedule()
			fs.Tiers = append([]Tier(nil), fs.Tiers...)
			tt.mutate(&fs)

			err := fs.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestValidate_FlatWithMinimum(t *testing.T) {
	t.Parallel()

	fs := FeeSchedule{
		ID:                "a",
		Code:              "A1",
		Name:              "Flat",
		Status:            StatusInactive,
		StructureType:     StructureFlat,
		FlatRate:          dec("100.00"),
		HasMinimumFee:     true,
		MinimumFeePerYear: dec("2500"),
	}
	assert.NoError(t, fs.Validate())
	assert.False(t, fs.IsTiered())
}

func TestRecordInvariantViolation_Error(t *testing.T) {
	t.Parallel()

	err := &RecordInvariantViolation{Index: 3, Code: "X9", Reason: "tiered structure has no tiers"}
	assert.Equal(t, `record 3 (code "X9"): tiered structure has no tiers`, err.Error())
}
