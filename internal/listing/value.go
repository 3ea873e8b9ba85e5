package listing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies the shape of a parsed literal.
type Kind int

const (
	KindNull Kind = iota // null or undefined
	KindString
	KindNumber
	KindBool
	KindIdent // identifier path such as FeeScheduleStatus.Active
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindString: "string",
	KindNumber: "number",
	KindBool:   "boolean",
	KindIdent:  "identifier",
	KindArray:  "array",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a parsed literal.
type Value struct {
	Kind   Kind
	Str    string // KindString, KindIdent (dotted path)
	Num    decimal.Decimal
	Bool   bool
	Items  []Value
	Fields []Field
	Line   int
}

// Field is one key/value member of an object literal, in source order.
type Field struct {
	Key   string
	Value Value
}

// Get returns the value of the first field whose normalized key equals key.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.Fields {
		if normalizeKey(f.Key) == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// normalizeKey converts camelCase keys to snake_case so that structureType
// and structure_type address the same field.
func normalizeKey(key string) string {
	var b strings.Builder
	runes := []rune(key)
	for i, r := range runes {
		if !isUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prev != '_' && (!isUpper(prev) || nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r + 'a' - 'A')
	}
	return b.String()
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}
