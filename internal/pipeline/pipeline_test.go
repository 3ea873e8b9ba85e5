package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/feesql/internal/listing"
	"github.com/sells-group/feesql/internal/sqlgen"
)

const testFirm = "dc838876-888c-4cce-b37d-f055f40fcb0c"

const twoRecords = `export const allFeeSchedules = [
  { id: 'a', code: 'A1', name: 'Flat A', status: 'active', structureType: 'flat', flatRate: 100 },
  {
    id: 'b',
    code: 'B1',
    name: 'Tiered B',
    status: 'active',
    structureType: 'tiered',
    tiers: [[1000, 0.01], [5000, 0.02]],
  },
];
`

func run(t *testing.T, src string, opts Options) (*Summary, string, error) {
	t.Helper()
	if opts.FirmID == "" {
		opts.FirmID = testFirm
	}
	var buf bytes.Buffer
	s, err := Run(src, &buf, opts)
	return s, buf.String(), err
}

func TestRun_TwoRecords(t *testing.T) {
	t.Parallel()

	s, out, err := run(t, twoRecords, Options{Export: "allFeeSchedules"})
	require.NoError(t, err)
	assert.True(t, s.OK())
	assert.Equal(t, 2, s.Extracted)
	assert.Equal(t, 2, s.Emitted)

	assert.Contains(t, out, `ALTER TABLE "fee_schedules" ALTER COLUMN "schedule_name" DROP NOT NULL;`)
	assert.Contains(t, out, `('`+testFirm+`', 'A1', 'Flat A', 'active', 'flat', NULL, 100.00,`)
	assert.Contains(t, out, `'[{"minAmount":1000,"maxAmount":null,"rate":0.01},{"minAmount":5000,"maxAmount":null,"rate":0.02}]'::jsonb`)
	assert.Less(t, strings.Index(out, "'A1'"), strings.Index(out, "'B1'"))
	assert.Equal(t, 1, strings.Count(out, "INSERT INTO"))
}

func TestRun_MalformedRecordIsSkipped(t *testing.T) {
	t.Parallel()

	src := `const list = [
  { id: 'a', code: 'A1', name: 'A', status: 'active', structureType: 'flat', flatRate: 1 },
  { id: 'b', name: 'B', status: 'active', structureType: 'flat', flatRate: 2 },
  { id: 'c', code: 'C1', name: 'C', status: 'active', structureType: 'flat', flatRate: 3 },
];`

	s, out, err := run(t, src, Options{})
	require.NoError(t, err)
	assert.False(t, s.OK())
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Extracted)
	assert.Equal(t, 2, s.Emitted)

	require.Len(t, s.Skipped, 1)
	d := s.Skipped[0]
	assert.Equal(t, 1, d.Index)
	assert.Equal(t, "b", d.ID)
	assert.Equal(t, StageExtract, d.Stage)
	assert.Equal(t, `field "code": missing required field`, d.Reason)
	assert.Equal(t, `skipped record #1 (id=b): field "code": missing required field`, d.String())

	assert.Contains(t, out, "'A1'")
	assert.Contains(t, out, "'C1'")
	assert.NotContains(t, out, "'B'")
}

func TestRun_DiagnosticsSortedAcrossStages(t *testing.T) {
	t.Parallel()

	src := `[
  { id: 'a', code: 'A1', name: 'A', status: 'active', structureType: 'tiered', tiers: [[0, 0.01]], flatRate: 5 },
  { id: 'b', code: 'B1', name: 'B', status: 'active', structureType: 'flat', flatRate: 1 },
  { id: 'c', code: 'C1', name: 'C', status: 'bogus', structureType: 'flat' },
  { id: 'd', code: 'B1', name: 'D', status: 'active', structureType: 'flat', flatRate: 2 },
]`

	s, out, err := run(t, src, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Emitted)

	require.Len(t, s.Skipped, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{s.Skipped[0].Index, s.Skipped[1].Index, s.Skipped[2].Index})
	assert.Equal(t, StageEmit, s.Skipped[0].Stage)
	assert.Equal(t, "tiered structure has flat_rate", s.Skipped[0].Reason)
	assert.Equal(t, StageEmit, s.Skipped[1].Stage)
	assert.Contains(t, s.Skipped[1].Reason, "status")
	assert.Equal(t, StageEmit, s.Skipped[2].Stage)
	assert.Equal(t, "code already used by record 1", s.Skipped[2].Reason)

	assert.Contains(t, out, "'B1', 'B'")
	assert.NotContains(t, out, "'D'")
}

func TestRun_EmptyInput(t *testing.T) {
	t.Parallel()

	s, out, err := run(t, "// nothing here\n", Options{})
	require.Error(t, err)
	var empty *listing.EmptyInputError
	assert.True(t, errors.As(err, &empty))
	assert.Empty(t, out)
	require.NotNil(t, s)
	assert.Zero(t, s.Emitted)
}

func TestRun_NoValidRows(t *testing.T) {
	t.Parallel()

	src := `[{ id: 'a', code: 'A1', name: 'A', status: 'active', structureType: 'tiered' }]`

	s, out, err := run(t, src, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sqlgen.ErrNoRows))
	assert.Empty(t, out)
	require.Len(t, s.Skipped, 1)
	assert.Equal(t, "tiered structure has no tiers", s.Skipped[0].Reason)
}

func TestRun_InvalidFirmID(t *testing.T) {
	t.Parallel()

	_, out, err := run(t, twoRecords, Options{FirmID: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a UUID")
	assert.Empty(t, out)
}

func TestRun_CanonicalFirmID(t *testing.T) {
	t.Parallel()

	s, out, err := run(t, twoRecords, Options{FirmID: strings.ToUpper(testFirm)})
	require.NoError(t, err)
	assert.Equal(t, testFirm, s.FirmID)
	assert.Contains(t, out, "'"+testFirm+"'")
	assert.NotContains(t, out, strings.ToUpper(testFirm))
}

func TestRun_EmitterOptions(t *testing.T) {
	t.Parallel()

	_, out, err := run(t, twoRecords, Options{Emitter: sqlgen.Options{
		Table:   "billing.fee_schedules",
		Dialect: sqlgen.SQLite{},
		Replace: true,
		Verify:  true,
	}})
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "billing"."fee_schedules"`)
	assert.Contains(t, out, `DELETE FROM "billing"."fee_schedules" WHERE "firm_id" = '`+testFirm+`';`)
	assert.Contains(t, out, `SELECT "code", "name", "status" FROM "billing"."fee_schedules"`)
	assert.NotContains(t, out, "::jsonb")
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	_, first, err := run(t, twoRecords, Options{})
	require.NoError(t, err)
	_, second, err := run(t, twoRecords, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDiagnosticString_UnknownID(t *testing.T) {
	t.Parallel()

	d := Diagnostic{Index: 7, Reason: "unterminated object literal"}
	assert.Equal(t, "skipped record #7 (id=?): unterminated object literal", d.String())
}

func TestCheck(t *testing.T) {
	t.Parallel()

	src := `[
  { id: 'a', code: 'A1', name: 'A', status: 'active', structureType: 'flat', flatRate: 1 },
  { id: 'b', code: 'A1', name: 'B', status: 'active', structureType: 'flat', flatRate: 2 },
  { id: 'c', code: 'C1', name: 'C' },
]`

	s, valid, err := Check(src, "")
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, "A1", valid[0].Code)
	assert.Equal(t, 2, s.Extracted)
	assert.Zero(t, s.Emitted)

	require.Len(t, s.Skipped, 2)
	assert.Equal(t, StageEmit, s.Skipped[0].Stage)
	assert.Equal(t, 1, s.Skipped[0].Index)
	assert.Equal(t, StageExtract, s.Skipped[1].Stage)
	assert.Equal(t, 2, s.Skipped[1].Index)
}

func TestCheck_EmptyInput(t *testing.T) {
	t.Parallel()

	_, _, err := Check("", "")
	var empty *listing.EmptyInputError
	assert.True(t, errors.As(err, &empty))
}

func TestRun_StrayQuoteCountsEveryRecord(t *testing.T) {
	t.Parallel()

	src := `const list = [
  { id: 'a', code: 'A1', name: 'O'Brien Fund', status: 'active', structureType: 'flat', flatRate: 1 },
  { id: 'b', code: 'B1', name: 'B', status: 'active', structureType: 'flat', flatRate: 2 },
  { id: 'c', code: 'C1', name: 'C', status: 'active', structureType: 'flat', flatRate: 3 },
];`

	s, out, err := run(t, src, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Emitted)
	require.Len(t, s.Skipped, 1)
	assert.Equal(t, StageExtract, s.Skipped[0].Stage)
	assert.Contains(t, out, "'B1'")
	assert.Contains(t, out, "'C1'")
}
