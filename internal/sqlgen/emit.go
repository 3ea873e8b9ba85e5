package sqlgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/feesql/internal/model"
)

// DefaultTable is the table the front end reads fee schedules from.
const DefaultTable = "fee_schedules"

// Columns is the fixed insert column list, in row order.
var Columns = []string{
	"firm_id", "code", "name", "status", "structure_type", "tiers",
	"flat_rate", "flat_fee_per_quarter", "has_minimum_fee", "minimum_fee_per_year",
	"description", "is_direct_bill", "schedule_name", "schedule_status",
}

// ErrNoRows is returned when no record survives validation. Nothing is written.
var ErrNoRows = eris.New("sqlgen: no valid rows to emit")

// Options configures an Emitter.
type Options struct {
	Table   string  // target table, optionally schema-qualified; defaults to DefaultTable
	Dialect Dialect // defaults to Postgres
	Replace bool    // delete the firm's existing rows before inserting
	Verify  bool    // append a SELECT listing the firm's rows
}

// Report summarizes one Emit call.
type Report struct {
	Emitted int
	Skipped []*model.RecordInvariantViolation
}

// Emitter renders records as SQL text.
type Emitter struct {
	table   string
	dialect Dialect
	replace bool
	verify  bool
	title   cases.Caser
}

// NewEmitter creates an Emitter, filling in defaults.
func NewEmitter(opts Options) *Emitter {
	e := &Emitter{
		table:   opts.Table,
		dialect: opts.Dialect,
		replace: opts.Replace,
		verify:  opts.Verify,
		title:   cases.Title(language.English),
	}
	if e.table == "" {
		e.table = DefaultTable
	}
	if e.dialect == nil {
		e.dialect = Postgres{}
	}
	return e
}

// Emit writes the preamble and one multi-row INSERT for records, in input
// order, owned by firmID. Records that violate their invariants, or repeat
// a code already emitted, are left out and reported. The script is built in
// memory and written once, so nothing reaches w when no row is valid.
func (e *Emitter) Emit(w io.Writer, firmID string, records []model.FeeSchedule) (*Report, error) {
	valid, skipped := Screen(records)
	report := &Report{Skipped: skipped}
	firm := e.dialect.Literal(firmID)

	rows := make([]string, 0, len(valid))
	for i := range valid {
		row, err := e.row(firm, &valid[i])
		if err != nil {
			return report, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return report, ErrNoRows
	}

	table := sanitizeTable(e.table)
	var b strings.Builder
	b.WriteString(e.dialect.Preamble(e.table))
	b.WriteString("\n")
	if e.replace {
		fmt.Fprintf(&b, "DELETE FROM %s WHERE %s = %s;\n\n", table, ident("firm_id"), firm)
	}
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES\n", table, quoteAndJoin(Columns))
	for i, row := range rows {
		b.WriteString("  ")
		b.WriteString(row)
		if i < len(rows)-1 {
			b.WriteString(",\n")
		} else {
			b.WriteString(";\n")
		}
	}
	if e.verify {
		fmt.Fprintf(&b, "\nSELECT %s FROM %s WHERE %s = %s ORDER BY %s;\n",
			quoteAndJoin([]string{"code", "name", "status"}), table, ident("firm_id"), firm, ident("code"))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return report, eris.Wrap(err, "sqlgen: write")
	}
	report.Emitted = len(rows)

	zap.L().Debug("sqlgen: emitted",
		zap.String("dialect", e.dialect.Name()),
		zap.String("table", e.table),
		zap.Int("rows", report.Emitted),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// Screen splits records into those that can be emitted and those that
// violate their invariants or repeat a code already accepted. Input order
// is kept.
func Screen(records []model.FeeSchedule) ([]model.FeeSchedule, []*model.RecordInvariantViolation) {
	var skipped []*model.RecordInvariantViolation
	skip := func(v *model.RecordInvariantViolation) {
		zap.L().Debug("sqlgen: skipping row", zap.Int("index", v.Index), zap.Error(v))
		skipped = append(skipped, v)
	}

	seen := make(map[string]int, len(records))
	valid := make([]model.FeeSchedule, 0, len(records))
	for i := range records {
		fs := records[i]
		if err := fs.Validate(); err != nil {
			var v *model.RecordInvariantViolation
			if !errors.As(err, &v) {
				v = &model.RecordInvariantViolation{Index: fs.Index, ID: fs.ID, Code: fs.Code, Reason: err.Error()}
			}
			skip(v)
			continue
		}
		if first, dup := seen[fs.Code]; dup {
			skip(&model.RecordInvariantViolation{
				Index:  fs.Index,
				ID:     fs.ID,
				Code:   fs.Code,
				Reason: fmt.Sprintf("code already used by record %d", first),
			})
			continue
		}
		seen[fs.Code] = fs.Index
		valid = append(valid, fs)
	}
	return valid, skipped
}

// row renders one VALUES tuple in Columns order.
func (e *Emitter) row(firm string, fs *model.FeeSchedule) (string, error) {
	tiers := "NULL"
	if len(fs.Tiers) > 0 {
		doc, err := TiersJSON(fs.Tiers)
		if err != nil {
			return "", eris.Wrapf(err, "sqlgen: encode tiers for %s", fs.Code)
		}
		tiers = e.dialect.JSON(doc)
	}

	status := string(fs.Status)
	values := []string{
		firm,
		e.dialect.Literal(fs.Code),
		e.dialect.Literal(fs.Name),
		e.dialect.Literal(status),
		e.dialect.Literal(string(fs.StructureType)),
		tiers,
		numeric(fs.FlatRate),
		numeric(fs.FlatFeePerQuarter),
		boolean(fs.HasMinimumFee),
		numeric(fs.MinimumFeePerYear),
		e.dialect.Literal(fs.Description),
		boolean(fs.IsDirectBill),
		e.dialect.Literal(fs.Name),
		e.dialect.Literal(e.title.String(status)),
	}
	return "(" + strings.Join(values, ", ") + ")", nil
}

// tierJSON mirrors the front end's FeeTier shape.
type tierJSON struct {
	MinAmount json.Number  `json:"minAmount"`
	MaxAmount *json.Number `json:"maxAmount"`
	Rate      json.Number  `json:"rate"`
}

// TiersJSON encodes tiers as the JSON array the front end stores.
func TiersJSON(tiers []model.Tier) (string, error) {
	out := make([]tierJSON, len(tiers))
	for i, t := range tiers {
		out[i] = tierJSON{
			MinAmount: json.Number(t.Threshold.String()),
			Rate:      json.Number(t.Rate.String()),
		}
		if t.Max != nil {
			m := json.Number(t.Max.String())
			out[i].MaxAmount = &m
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// numeric prints d with at least two fraction digits, or NULL.
func numeric(d *decimal.Decimal) string {
	if d == nil {
		return "NULL"
	}
	places := int32(2)
	if exp := -d.Exponent(); exp > places {
		places = exp
	}
	return d.StringFixed(places)
}

func boolean(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
