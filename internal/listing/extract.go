package listing

import (
	"errors"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/feesql/internal/model"
)

// EmptyInputError is returned when a listing contains no object literals.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "listing: no object literals found"
}

// Result holds the records extracted from a listing, in source order, and
// the entries that were skipped.
type Result struct {
	Records []model.FeeSchedule
	Skipped []*MalformedRecordError
}

// Total is the number of object literals seen.
func (r *Result) Total() int {
	return len(r.Records) + len(r.Skipped)
}

// Read reads a whole listing, decoding UTF-8 and dropping a byte order mark.
func Read(r io.Reader) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, dec))
	if err != nil {
		return "", eris.Wrap(err, "listing: read")
	}
	return string(data), nil
}

// Extract parses every top-level object literal of src into a record.
// Malformed entries are collected in Result.Skipped and do not stop the
// scan. A listing without any object literal yields *EmptyInputError.
func Extract(src, export string) (*Result, error) {
	tokens := Tokenize(src)
	spans := Spans(tokens, export)
	if len(spans) == 0 {
		return nil, &EmptyInputError{}
	}

	res := &Result{}
	seen := make(map[string]int, len(spans))

	for i, span := range spans {
		fs, err := extractOne(tokens, i, span)
		if err == nil {
			if first, dup := seen[fs.ID]; dup {
				err = &MalformedRecordError{
					Index:  i,
					ID:     fs.ID,
					Field:  keyID,
					Reason: fmt.Sprintf("duplicate of record %d", first),
				}
			}
		}
		if err != nil {
			var mre *MalformedRecordError
			if !errors.As(err, &mre) {
				mre = &MalformedRecordError{Index: i, Reason: err.Error()}
			}
			zap.L().Debug("listing: skipping record",
				zap.Int("index", i),
				zap.Int("line", span.Line),
				zap.Error(mre),
			)
			res.Skipped = append(res.Skipped, mre)
			continue
		}
		seen[fs.ID] = i
		res.Records = append(res.Records, fs)
	}

	zap.L().Debug("listing: extracted",
		zap.Int("records", len(res.Records)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func extractOne(tokens []Token, index int, span Span) (model.FeeSchedule, error) {
	if span.Err != "" {
		return model.FeeSchedule{}, &MalformedRecordError{Index: index, Reason: span.Err}
	}
	v, err := ParseValue(tokens[span.Start : span.End+1])
	if err != nil {
		return model.FeeSchedule{}, &MalformedRecordError{Index: index, Reason: err.Error()}
	}
	return Decode(index, v)
}
