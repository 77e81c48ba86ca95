package aggregate

import (
	"math"
	"math/big"
	"sort"
	"strconv"
)

// Percentile95 returns the 95th percentile of values using linear
// interpolation between the two nearest order statistics. It returns 0 for
// an empty input. values is not modified.
func Percentile95(values []float64) float64 {
	return Percentile(values, 0.95)
}

// Percentile returns the q-quantile (0 <= q <= 1) of values with the
// "linear" method: rank k = q*(n-1), result s[lo]*(hi-k) + s[hi]*(k-lo).
func Percentile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	s := make([]float64, n)
	copy(s, values)
	sort.Float64s(s)

	k := q * float64(n-1)
	lo, hi := math.Floor(k), math.Ceil(k)
	if lo == hi {
		return s[int(k)]
	}
	// Explicit conversions keep each product rounded on its own; without
	// them the compiler may fuse the multiply-add on some architectures.
	d0 := float64(s[int(lo)] * (hi - k))
	d1 := float64(s[int(hi)] * (k - lo))
	return d0 + d1
}

// mean returns the arithmetic mean of values, correctly rounded: the sum is
// accumulated exactly so the result does not depend on input order.
// values must be finite, which telemetry.Load guarantees; NaN is returned
// otherwise.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum, x big.Rat
	for _, v := range values {
		if x.SetFloat64(v) == nil {
			return math.NaN()
		}
		sum.Add(&sum, &x)
	}
	sum.Quo(&sum, x.SetInt64(int64(len(values))))
	f, _ := sum.Float64()
	return f
}

// round4 rounds v to 4 decimal places, ties to even on the exact binary
// value of v.
func round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 4, 64), 64)
	if err != nil {
		return v
	}
	return r
}
