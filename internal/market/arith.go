package market

import "math"

// SaturatingAdd returns a+b clamped to the int range instead of wrapping.
func SaturatingAdd(a, b int) int {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt
	case b < 0 && sum > a:
		return math.MinInt
	}
	return sum
}

// SaturatingSub returns a-b clamped to the int range instead of wrapping.
func SaturatingSub(a, b int) int {
	diff := a - b
	switch {
	case b < 0 && diff < a:
		return math.MaxInt
	case b > 0 && diff > a:
		return math.MinInt
	}
	return diff
}

// scale multiplies v by a positive factor k, clamping to ±MaxInt so the
// result can always be negated.
func scale(v, k int) int {
	switch {
	case v > math.MaxInt/k:
		return math.MaxInt
	case v < -math.MaxInt/k:
		return -math.MaxInt
	}
	return v * k
}
