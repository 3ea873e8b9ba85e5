package listing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/feesql/internal/model"
)

// Field keys, in snake_case. Source keys are normalized before lookup.
const (
	keyID                = "id"
	keyCode              = "code"
	keyName              = "name"
	keyStatus            = "status"
	keyStructureType     = "structure_type"
	keyTiers             = "tiers"
	keyFlatRate          = "flat_rate"
	keyFlatFeePerQuarter = "flat_fee_per_quarter"
	keyHasMinimumFee     = "has_minimum_fee"
	keyMinimumFeePerYear = "minimum_fee_per_year"
	keyDescription       = "description"
	keyIsDirectBill      = "is_direct_bill"
)

// RequiredFields lists the keys every record must carry.
var RequiredFields = []string{keyID, keyCode, keyName, keyStatus, keyStructureType}

var knownFields = map[string]bool{
	keyID: true, keyCode: true, keyName: true, keyStatus: true, keyStructureType: true,
	keyTiers: true, keyFlatRate: true, keyFlatFeePerQuarter: true, keyHasMinimumFee: true,
	keyMinimumFeePerYear: true, keyDescription: true, keyIsDirectBill: true,
}

// MalformedRecordError reports a listing entry that could not be turned
// into a record. The entry is skipped; extraction continues.
type MalformedRecordError struct {
	Index  int
	ID     string // empty when the id itself is missing or unreadable
	Field  string // offending field, empty for syntax errors
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("record %d: field %q: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

type decoder struct {
	index int
	obj   Value
	id    string
}

func (d *decoder) fail(field, format string, args ...any) *MalformedRecordError {
	return &MalformedRecordError{
		Index:  d.index,
		ID:     d.id,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Decode converts a parsed object literal at position index into a record.
func Decode(index int, obj Value) (model.FeeSchedule, error) {
	d := &decoder{index: index, obj: obj}
	if obj.Kind != KindObject {
		return model.FeeSchedule{}, d.fail("", "expected object literal, got %s", obj.Kind)
	}

	for _, f := range obj.Fields {
		if key := normalizeKey(f.Key); !knownFields[key] {
			zap.L().Debug("listing: ignoring field",
				zap.Int("index", index),
				zap.String("field", f.Key),
			)
		}
	}

	fs := model.FeeSchedule{Index: index}
	var err error

	// id first so later failures can name the record.
	if fs.ID, err = d.requiredString(keyID); err != nil {
		return fs, err
	}
	d.id = fs.ID
	if fs.Code, err = d.requiredString(keyCode); err != nil {
		return fs, err
	}
	if fs.Name, err = d.requiredString(keyName); err != nil {
		return fs, err
	}
	status, err := d.requiredEnum(keyStatus)
	if err != nil {
		return fs, err
	}
	fs.Status = model.Status(status)
	structure, err := d.requiredEnum(keyStructureType)
	if err != nil {
		return fs, err
	}
	fs.StructureType = model.StructureType(structure)

	if fs.Tiers, err = d.tiers(); err != nil {
		return fs, err
	}
	if fs.FlatRate, err = d.optionalDecimal(keyFlatRate); err != nil {
		return fs, err
	}
	if fs.FlatFeePerQuarter, err = d.optionalDecimal(keyFlatFeePerQuarter); err != nil {
		return fs, err
	}
	if fs.MinimumFeePerYear, err = d.optionalDecimal(keyMinimumFeePerYear); err != nil {
		return fs, err
	}
	if fs.HasMinimumFee, err = d.optionalBool(keyHasMinimumFee); err != nil {
		return fs, err
	}
	if fs.IsDirectBill, err = d.optionalBool(keyIsDirectBill); err != nil {
		return fs, err
	}
	if fs.Description, err = d.optionalString(keyDescription); err != nil {
		return fs, err
	}

	return fs, nil
}

// lookup returns the field value, treating null and undefined as absent.
func (d *decoder) lookup(key string) (Value, bool) {
	v, ok := d.obj.Get(key)
	if !ok || v.Kind == KindNull {
		return Value{}, false
	}
	return v, true
}

func (d *decoder) requiredString(key string) (string, error) {
	v, ok := d.lookup(key)
	if !ok {
		return "", d.fail(key, "missing required field")
	}
	s, err := d.asString(key, v)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", d.fail(key, "empty value")
	}
	return s, nil
}

// requiredEnum accepts a quoted value or an enum member reference such as
// FeeStructureType.FlatRate, which resolves to "flat_rate".
func (d *decoder) requiredEnum(key string) (string, error) {
	v, ok := d.lookup(key)
	if !ok {
		return "", d.fail(key, "missing required field")
	}
	switch v.Kind {
	case KindString:
		s := strings.ToLower(strings.TrimSpace(v.Str))
		if s == "" {
			return "", d.fail(key, "empty value")
		}
		return s, nil
	case KindIdent:
		path := strings.Split(v.Str, ".")
		return normalizeKey(path[len(path)-1]), nil
	default:
		return "", d.fail(key, "expected string, got %s", v.Kind)
	}
}

func (d *decoder) optionalString(key string) (string, error) {
	v, ok := d.lookup(key)
	if !ok {
		return "", nil
	}
	return d.asString(key, v)
}

func (d *decoder) asString(key string, v Value) (string, error) {
	if v.Kind != KindString {
		return "", d.fail(key, "expected string, got %s", v.Kind)
	}
	if strings.IndexByte(v.Str, 0) >= 0 {
		return "", d.fail(key, "contains a NUL character")
	}
	return v.Str, nil
}

func (d *decoder) optionalBool(key string) (bool, error) {
	v, ok := d.lookup(key)
	if !ok {
		return false, nil
	}
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, d.fail(key, "expected boolean, got %s", v.Kind)
}

func (d *decoder) optionalDecimal(key string) (*decimal.Decimal, error) {
	v, ok := d.lookup(key)
	if !ok {
		return nil, nil
	}
	n, err := d.asDecimal(key, v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// asDecimal accepts numbers and numeric-looking strings such as "1,250.00".
func (d *decoder) asDecimal(key string, v Value) (decimal.Decimal, error) {
	switch v.Kind {
	case KindNumber:
		return v.Num, nil
	case KindString:
		s := strings.ReplaceAll(strings.TrimSpace(v.Str), ",", "")
		s = strings.TrimPrefix(s, "$")
		n, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, d.fail(key, "not a number: %q", v.Str)
		}
		return n, nil
	default:
		return decimal.Decimal{}, d.fail(key, "expected number, got %s", v.Kind)
	}
}

// tiers accepts [threshold, rate] pairs or {minAmount, maxAmount, rate}
// objects. A missing or null tiers field yields no tiers.
func (d *decoder) tiers() ([]model.Tier, error) {
	v, ok := d.lookup(keyTiers)
	if !ok {
		return nil, nil
	}
	if v.Kind != KindArray {
		return nil, d.fail(keyTiers, "expected array, got %s", v.Kind)
	}

	tiers := make([]model.Tier, 0, len(v.Items))
	for i, item := range v.Items {
		field := fmt.Sprintf("%s[%d]", keyTiers, i)
		var t model.Tier
		var err error
		switch item.Kind {
		case KindArray:
			t, err = d.pairTier(field, item)
		case KindObject:
			t, err = d.objectTier(field, item)
		default:
			err = d.fail(field, "expected pair or object, got %s", item.Kind)
		}
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}

func (d *decoder) pairTier(field string, item Value) (model.Tier, error) {
	if len(item.Items) != 2 {
		return model.Tier{}, d.fail(field, "expected [threshold, rate], got %d elements", len(item.Items))
	}
	threshold, err := d.asDecimal(field, item.Items[0])
	if err != nil {
		return model.Tier{}, err
	}
	rate, err := d.asDecimal(field, item.Items[1])
	if err != nil {
		return model.Tier{}, err
	}
	return model.Tier{Threshold: threshold, Rate: rate}, nil
}

func (d *decoder) objectTier(field string, item Value) (model.Tier, error) {
	var t model.Tier

	threshold, ok := item.Get("min_amount")
	if !ok {
		threshold, ok = item.Get("threshold")
	}
	if !ok || threshold.Kind == KindNull {
		return t, d.fail(field, "missing minAmount")
	}
	var err error
	if t.Threshold, err = d.asDecimal(field, threshold); err != nil {
		return t, err
	}

	rate, ok := item.Get("rate")
	if !ok || rate.Kind == KindNull {
		return t, d.fail(field, "missing rate")
	}
	if t.Rate, err = d.asDecimal(field, rate); err != nil {
		return t, err
	}

	if maxV, ok := item.Get("max_amount"); ok && maxV.Kind != KindNull {
		m, err := d.asDecimal(field, maxV)
		if err != nil {
			return t, err
		}
		t.Max = &m
	}
	return t, nil
}
