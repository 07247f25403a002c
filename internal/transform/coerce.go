package transform

import (
	"fmt"
	"strconv"
	"strings"
)

// Coerce converts a raw scalar to the declared type. A nil result with a nil
// error means the value is absent and the field should be dropped; a nil
// result with a non-nil error means the value could not be converted and the
// caller should emit a warning. Coercion never aborts a record.
//
// Absence rules: nil input and empty-string input are absent for every type.
// VARCHAR_TO_BOOLEAN additionally treats "None" and literal "null" as absent.
func Coerce(value interface{}, t DataType) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if s, ok := value.(string); ok && s == "" {
		return nil, nil
	}

	switch t {
	case TypeInt:
		f, ok := toFloat(value)
		if !ok {
			return nil, coercionError(value, t)
		}
		return int64(f), nil

	case TypeDecimal:
		f, ok := toFloat(value)
		if !ok {
			return nil, coercionError(value, t)
		}
		return f, nil

	case TypeYear:
		f, ok := toFloat(value)
		if !ok {
			return nil, coercionError(value, t)
		}
		year := int64(f)
		// Out-of-range years are dropped as absent, not surfaced as errors.
		if year < 1800 || year > 2100 {
			return nil, nil
		}
		return year, nil

	case TypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		switch strings.ToLower(stringify(value)) {
		case "true", "1", "yes":
			return true, nil
		default:
			// Unrecognized strings are falsy, not absent.
			return false, nil
		}

	case TypeVarcharToBoolean:
		// Tri-state variant: None/empty/"null" mean absent rather than false.
		s := strings.TrimSpace(stringify(value))
		if s == "" || s == "None" || s == "null" {
			return nil, nil
		}
		switch strings.ToLower(s) {
		case "yes", "true", "1":
			return true, nil
		default:
			return false, nil
		}

	case TypeVarchar:
		s := strings.TrimSpace(stringify(value))
		if s == "" {
			return nil, nil
		}
		return truncate(s, 255), nil

	default:
		// Unknown declared type: stringify unmodified, no validation.
		return stringify(value), nil
	}
}

func coercionError(value interface{}, t DataType) error {
	return fmt.Errorf("could not convert %v to %s", value, t)
}

// toFloat parses any scalar as a float64. Numeric JSON values arrive as
// float64; everything else goes through string parsing, so "3.0" is a valid
// INT source. Booleans do not parse, matching the string-first policy.
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(stringify(value)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// stringify renders a raw scalar the way the source system would print it.
// Whole floats drop the trailing ".0" so JSON numbers round-trip cleanly.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// truncate limits a string to n runes to fit VARCHAR(n) columns.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
