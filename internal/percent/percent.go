// Package percent rounds raw counts into integer percentages that sum to
// exactly 100, using the largest-remainder method, for chart feeds.
package percent

import "sort"

// Normalize converts non-negative values into integer percentages summing to
// exactly 100, preserving input order. An all-zero input returns all zeros.
//
// Floors of the raw percentages are taken first; the leftover points (always
// fewer than len(values)) go to the entries with the largest fractional
// remainders, ties broken by original position.
func Normalize(values []float64) []int {
	out := make([]int, len(values))

	var total float64
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		return out
	}

	type remainder struct {
		index int
		frac  float64
	}

	remainders := make([]remainder, 0, len(values))
	assigned := 0

	for i, v := range values {
		if v < 0 {
			v = 0
		}
		raw := v / total * 100
		floor := int(raw)
		out[i] = floor
		assigned += floor
		remainders = append(remainders, remainder{index: i, frac: raw - float64(floor)})
	}

	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].frac > remainders[j].frac
	})

	for i := 0; i < 100-assigned && i < len(remainders); i++ {
		out[remainders[i].index]++
	}

	return out
}

// NormalizeCounts is Normalize over integer counts, the common case for
// status and visit-type breakdowns.
func NormalizeCounts(counts []int) []int {
	values := make([]float64, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}
	return Normalize(values)
}
