// Package pipeline runs extraction and SQL emission for one listing.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/feesql/internal/config"
	"github.com/sells-group/feesql/internal/listing"
	"github.com/sells-group/feesql/internal/model"
	"github.com/sells-group/feesql/internal/sqlgen"
)

// Stage names where a record was dropped.
const (
	StageExtract = "extract"
	StageEmit    = "emit"
)

// Options configures a Run.
type Options struct {
	FirmID  string
	Export  string // exported array to read; empty scans the whole listing
	Emitter sqlgen.Options
}

// Diagnostic describes one record that did not make it into the script.
type Diagnostic struct {
	Index  int
	ID     string
	Stage  string
	Reason string
}

func (d Diagnostic) String() string {
	id := d.ID
	if id == "" {
		id = "?"
	}
	return fmt.Sprintf("skipped record #%d (id=%s): %s", d.Index, id, d.Reason)
}

// Summary reports the outcome of a Run.
type Summary struct {
	FirmID    string
	Total     int // object literals found in the listing
	Extracted int
	Emitted   int
	Skipped   []Diagnostic // ordered by record index
}

// OK reports whether every record in the listing was emitted.
func (s *Summary) OK() bool {
	return len(s.Skipped) == 0
}

// Run extracts the records of src and writes the SQL script to w.
// Recoverable per-record failures are returned in Summary.Skipped.
// An unusable firm id, an empty listing, or a listing with no valid record
// is returned as an error, and w receives nothing.
func Run(src string, w io.Writer, opts Options) (*Summary, error) {
	firm, err := config.ParseFirmID(opts.FirmID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{FirmID: firm}

	res, err := listing.Extract(src, opts.Export)
	if err != nil {
		return summary, err
	}
	summary.Total = res.Total()
	summary.Extracted = len(res.Records)
	summary.addMalformed(res.Skipped)

	report, err := sqlgen.NewEmitter(opts.Emitter).Emit(w, firm, res.Records)
	if report != nil {
		summary.Emitted = report.Emitted
		summary.addViolations(report.Skipped)
	}
	summary.sort()

	if err != nil {
		if errors.Is(err, sqlgen.ErrNoRows) {
			return summary, err
		}
		return summary, eris.Wrap(err, "pipeline: emit")
	}

	zap.L().Info("pipeline: run complete",
		zap.String("firm_id", firm),
		zap.Int("total", summary.Total),
		zap.Int("emitted", summary.Emitted),
		zap.Int("skipped", len(summary.Skipped)),
	)
	return summary, nil
}

// Check extracts and screens src without rendering SQL. It returns the
// records that would be emitted.
func Check(src, export string) (*Summary, []model.FeeSchedule, error) {
	summary := &Summary{}
	res, err := listing.Extract(src, export)
	if err != nil {
		return summary, nil, err
	}
	summary.Total = res.Total()
	summary.Extracted = len(res.Records)
	summary.addMalformed(res.Skipped)

	valid, skipped := sqlgen.Screen(res.Records)
	summary.addViolations(skipped)
	summary.sort()
	return summary, valid, nil
}

func (s *Summary) addMalformed(errs []*listing.MalformedRecordError) {
	for _, e := range errs {
		s.Skipped = append(s.Skipped, fromMalformed(e))
	}
}

func (s *Summary) addViolations(vs []*model.RecordInvariantViolation) {
	for _, v := range vs {
		s.Skipped = append(s.Skipped, fromViolation(v))
	}
}

func (s *Summary) sort() {
	sort.SliceStable(s.Skipped, func(i, j int) bool {
		return s.Skipped[i].Index < s.Skipped[j].Index
	})
}

func fromMalformed(e *listing.MalformedRecordError) Diagnostic {
	reason := e.Reason
	if e.Field != "" {
		reason = fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	return Diagnostic{Index: e.Index, ID: e.ID, Stage: StageExtract, Reason: reason}
}

func fromViolation(v *model.RecordInvariantViolation) Diagnostic {
	return Diagnostic{Index: v.Index, ID: v.ID, Stage: StageEmit, Reason: v.Reason}
}
