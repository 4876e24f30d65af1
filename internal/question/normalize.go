package question

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern   = regexp.MustCompile(`-?\d+(\.\d+)?`)
	fractionPattern = regexp.MustCompile(`^(-?\d+)\s*/\s*(\d+)$`)
	embeddedFrac    = regexp.MustCompile(`(-?\d+)\s*/\s*(\d+)`)
)

// ParseNumber extracts the first number from s.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// numberOf extracts a number from a decoded JSON value.
func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case nil:
		return 0, false
	default:
		return ParseNumber(stringify(v))
	}
}

// indexOf converts a decoded JSON value to an option index.
func indexOf(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

type fraction struct {
	num, den float64
}

func parseFraction(s string) (fraction, bool) {
	m := fractionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return fraction{}, false
	}
	num, err1 := strconv.ParseFloat(m[1], 64)
	den, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || den <= 0 {
		return fraction{}, false
	}
	return fraction{num: num, den: den}, true
}

// stringify renders a decoded JSON value the way a learner would type it.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	case []any:
		parts := make([]string, len(s))
		for i, p := range s {
			parts[i] = stringify(p)
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
