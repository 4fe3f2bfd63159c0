package market

import (
	"math"
	"strconv"
	"strings"
)

// Int coerces a loosely typed value (a spreadsheet cell, a JSON number, a
// SQLite column of any affinity) into an int. Anything that does not read as
// a finite number becomes 0. Fractions truncate toward zero.
func Int(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int64ToInt(x)
	case uint:
		return uint64ToInt(uint64(x))
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return uint64ToInt(x)
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case string:
		return stringToInt(x)
	case []byte:
		return stringToInt(string(x))
	default:
		return 0
	}
}

// Values outside the int range read as 0, like out of range floats.
func int64ToInt(v int64) int {
	if v > math.MaxInt || v < math.MinInt {
		return 0
	}
	return int(v)
}

func uint64ToInt(v uint64) int {
	if v > math.MaxInt {
		return 0
	}
	return int(v)
}

func floatToInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int(f)
}

func stringToInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return floatToInt(f)
}
