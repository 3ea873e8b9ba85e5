package listing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feesql/internal/model"
)

func decode(t *testing.T, src string) (model.FeeSchedule, error) {
	t.Helper()
	return Decode(4, parse(t, src))
}

func TestDecode_CamelCaseRecord(t *testing.T) {
	t.Parallel()

	fs, err := decode(t, `{
		id: 'fs-1',
		code: 'STD',
		name: 'Standard',
		status: 'Active',
		structureType: FeeStructureType.Tiered,
		tiers: [
			{ minAmount: 0, maxAmount: 499999.99, rate: 0.0125 },
			{ minAmount: 500000, maxAmount: null, rate: 0.01 },
		],
		hasMinimumFee: true,
		minimumFeePerYear: '2,500.00',
		description: 'Default',
		isDirectBill: 'true',
		tags: ['tiered'],
	}`)
	require.NoError(t, err)

	assert.Equal(t, 4, fs.Index)
	assert.Equal(t, "fs-1", fs.ID)
	assert.Equal(t, "STD", fs.Code)
	assert.Equal(t, "Standard", fs.Name)
	assert.Equal(t, model.StatusActive, fs.Status)
	assert.Equal(t, model.StructureTiered, fs.StructureType)
	require.Len(t, fs.Tiers, 2)
	assert.Equal(t, "0", fs.Tiers[0].Threshold.String())
	require.NotNil(t, fs.Tiers[0].Max)
	assert.Equal(t, "499999.99", fs.Tiers[0].Max.String())
	assert.Equal(t, "0.0125", fs.Tiers[0].Rate.String())
	assert.Nil(t, fs.Tiers[1].Max)
	assert.True(t, fs.HasMinimumFee)
	require.NotNil(t, fs.MinimumFeePerYear)
	assert.Equal(t, "2500", fs.MinimumFeePerYear.String())
	assert.Nil(t, fs.FlatRate)
	assert.Nil(t, fs.FlatFeePerQuarter)
	assert.Equal(t, "Default", fs.Description)
	assert.True(t, fs.IsDirectBill)
}

func TestDecode_SnakeCaseRecordWithPairs(t *testing.T) {
	t.Parallel()

	fs, err := decode(t, `{
		id: "b", code: "B1", name: "Banded", status: "draft",
		structure_type: "tiered",
		tiers: [[1000, 0.01], [5000, 0.02]],
	}`)
	require.NoError(t, err)

	assert.Equal(t, model.StatusDraft, fs.Status)
	require.Len(t, fs.Tiers, 2)
	assert.Equal(t, "5000", fs.Tiers[1].Threshold.String())
	assert.Equal(t, "0.02", fs.Tiers[1].Rate.String())
	assert.False(t, fs.HasMinimumFee)
	assert.False(t, fs.IsDirectBill)
	assert.Empty(t, fs.Description)
}

func TestDecode_EnumReferences(t *testing.T) {
	t.Parallel()

	fs, err := decode(t, `{ id: 'x', code: 'X', name: 'X', status: FeeScheduleStatus.INACTIVE, structureType: FeeStructureType.FlatRate }`)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInactive, fs.Status)
	assert.Equal(t, model.StructureFlatRate, fs.StructureType)
}

func TestDecode_MissingRequiredFields(t *testing.T) {
	t.Parallel()

	full := map[string]string{
		"id":             "id: 'x'",
		"code":           "code: 'X'",
		"name":           "name: 'Name'",
		"status":         "status: 'active'",
		"structure_type": "structureType: 'flat'",
	}

	for _, missing := range RequiredFields {
		missing := missing
		t.Run(missing, func(t *testing.T) {
			t.Parallel()

			src := "{"
			for _, key := range RequiredFields {
				if key != missing {
					src += full[key] + ", "
				}
			}
			src += "}"

			_, err := decode(t, src)
			require.Error(t, err)

			var mre *MalformedRecordError
			require.True(t, errors.As(err, &mre))
			assert.Equal(t, 4, mre.Index)
			assert.Equal(t, missing, mre.Field)
			assert.Equal(t, "missing required field", mre.Reason)
			if missing != "id" {
				assert.Equal(t, "x", mre.ID)
			}
		})
	}
}

func TestDecode_NullRequiredFieldIsMissing(t *testing.T) {
	t.Parallel()

	_, err := decode(t, `{ id: 'x', code: null, name: 'n', status: 'active', structureType: 'flat' }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "code": missing required field`)
}

func TestDecode_TypeErrors(t *testing.T) {
	t.Parallel()

	base := `id: 'x', code: 'X', name: 'N', status: 'active', structureType: 'flat', `
	tests := []struct {
		name  string
		extra string
		field string
	}{
		{"numeric code", `code2: 1, code: 12`, "code"},
		{"flat rate word", `flatRate: 'lots'`, "flat_rate"},
		{"flag number", `isDirectBill: 1`, "is_direct_bill"},
		{"tiers object", `tiers: { a: 1 }`, "tiers"},
		{"short pair", `tiers: [[1000]]`, "tiers[0]"},
		{"tier without rate", `tiers: [{ minAmount: 0 }]`, "tiers[0]"},
		{"tier scalar", `tiers: [5]`, "tiers[0]"},
		{"description number", `description: 5`, "description"},
		{"empty name", `name: '  '`, "name"},
		{"nul in name", `name: 'bad\0name'`, "name"},
		{"nul in description", `description: '\x00'`, "description"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Later duplicates of a key are ignored, so put overrides first.
			_, err := decode(t, "{"+tt.extra+", "+base+"}")
			require.Error(t, err)

			var mre *MalformedRecordError
			require.True(t, errors.As(err, &mre))
			assert.Equal(t, tt.field, mre.Field)
		})
	}
}

func TestDecode_NulCharacterReason(t *testing.T) {
	t.Parallel()

	_, err := decode(t, `{ id: 'x', code: 'X\0', name: 'N', status: 'active', structureType: 'flat' }`)
	var mre *MalformedRecordError
	require.True(t, errors.As(err, &mre))
	assert.Equal(t, "code", mre.Field)
	assert.Equal(t, "x", mre.ID)
	assert.Equal(t, "contains a NUL character", mre.Reason)
}

func TestDecode_NotAnObject(t *testing.T) {
	t.Parallel()

	_, err := Decode(0, Value{Kind: KindArray})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected object literal")
}

func TestMalformedRecordError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `record 2: field "code": missing required field`,
		(&MalformedRecordError{Index: 2, Field: "code", Reason: "missing required field"}).Error())
	assert.Equal(t, "record 0: unterminated object literal",
		(&MalformedRecordError{Reason: "unterminated object literal"}).Error())
}
