package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Int is the result of coercing an optional integer field.  Valid is false
// when the field was missing, null or could not be read as a number.
type Int struct {
	Value int64
	Valid bool
}

// Ptr collapses the result into a nullable column value.
func (i Int) Ptr() *int64 {
	if !i.Valid {
		return nil
	}
	v := i.Value
	return &v
}

// Float is the result of coercing an optional real field.
type Float struct {
	Value float64
	Valid bool
}

func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// ParseInt coerces numbers, numeric strings and booleans.  Fractions are
// truncated toward zero.  It never fails; unusable input is simply not Valid.
// JSON null is absent (a NULL column), not 0.
func ParseInt(raw json.RawMessage) Int {
	f := ParseFloat(raw)
	if !f.Valid {
		return Int{}
	}
	// Exact path first so large integers keep full precision.
	if n, ok := exactInt(raw); ok {
		return Int{Value: n, Valid: true}
	}
	t := math.Trunc(f.Value)
	if t > math.MaxInt64 || t < math.MinInt64 {
		return Int{}
	}
	return Int{Value: int64(t), Valid: true}
}

// ParseFloat coerces numbers, numeric strings and booleans.  JSON null and
// missing keys are both absent.
func ParseFloat(raw json.RawMessage) Float {
	v, ok := decode(raw)
	if !ok {
		return Float{}
	}
	var (
		f   float64
		err error
	)
	switch x := v.(type) {
	case json.Number:
		f, err = x.Float64()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Float{}
		}
		f, err = strconv.ParseFloat(s, 64)
	case bool:
		if x {
			return Float{Value: 1, Valid: true}
		}
		return Float{Value: 0, Valid: true}
	default:
		return Float{}
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Float{}
	}
	return Float{Value: f, Valid: true}
}

// EnrollID reads the person identifier.  Numbers are truncated; strings use
// leading-integer parsing (" 12abc" is 12).  Anything else is 0.
func EnrollID(raw json.RawMessage) int64 {
	v, ok := decode(raw)
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case json.Number:
		if n, ok := exactInt(raw); ok {
			return n
		}
		f, err := x.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		t := math.Trunc(f)
		if t > math.MaxInt64 || t < math.MinInt64 {
			return 0
		}
		return int64(t)
	case string:
		return leadingInt(x)
	default:
		return 0
	}
}

// Text renders a field as a string when it is "truthy": non-empty strings,
// non-zero numbers (in their JSON spelling), true, and any object or array
// (as compact JSON).  Missing, null, false, 0 and "" report false.
func Text(raw json.RawMessage) (string, bool) {
	v, ok := decode(raw)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, x != ""
	case json.Number:
		f, err := x.Float64()
		if err == nil && f == 0 {
			return "", false
		}
		return x.String(), true
	case bool:
		if x {
			return "true", true
		}
		return "", false
	case nil:
		return "", false
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", false
		}
		return buf.String(), true
	}
}

func decode(raw json.RawMessage) (any, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

func exactInt(raw json.RawMessage) (int64, bool) {
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	return n, err == nil
}

func leadingInt(s string) int64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
