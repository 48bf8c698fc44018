// Package stats aggregates per-trial samples into empirical distributions
// and summary statistics.
package stats

import (
	"math"
	"slices"
)

// Distribution maps each observed value to its relative frequency.
//
// Invariant: keys are exactly the distinct observed values; the values sum
// to 1 (within floating-point tolerance) for a non-empty sample set.
type Distribution map[int]float64

// Values returns the observed values in ascending order.
func (d Distribution) Values() []int {
	vals := make([]int, 0, len(d))
	for v := range d {
		vals = append(vals, v)
	}
	slices.Sort(vals)
	return vals
}

// Percentiles holds the reported percentile points of a sample set.
type Percentiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

// Summary is a read-only snapshot of one metric's sample set.
type Summary struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	// StdDev is the population standard deviation.
	StdDev      float64     `json:"stdDev"`
	Median      float64     `json:"median"`
	Mode        int         `json:"mode"`
	Min         int         `json:"min"`
	Max         int         `json:"max"`
	Percentiles Percentiles `json:"percentiles"`
}

// BuildDistribution counts each distinct sample and normalises by the sample
// count. An empty input yields an empty Distribution.
func BuildDistribution(samples []int) Distribution {
	dist := make(Distribution)
	if len(samples) == 0 {
		return dist
	}
	for _, s := range samples {
		dist[s]++
	}
	total := float64(len(samples))
	for v, count := range dist {
		dist[v] = count / total
	}
	return dist
}

// Calculate summarises samples. An empty input yields the zero Summary.
//
// Postcondition: for non-empty input, Min <= Mean <= Max and Variance >= 0.
func Calculate(samples []int) Summary {
	n := len(samples)
	if n == 0 {
		return Summary{}
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	sum := 0.0
	for _, s := range samples {
		sum += float64(s)
	}
	mean := sum / float64(n)

	sq := 0.0
	for _, s := range samples {
		dev := float64(s) - mean
		sq += dev * dev
	}
	variance := sq / float64(n)

	median := Percentile(sorted, 50)
	return Summary{
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Median:   median,
		Mode:     Mode(samples),
		Min:      sorted[0],
		Max:      sorted[n-1],
		Percentiles: Percentiles{
			P25: Percentile(sorted, 25),
			P50: median,
			P75: Percentile(sorted, 75),
			P90: Percentile(sorted, 90),
			P95: Percentile(sorted, 95),
		},
	}
}

// Percentile linearly interpolates the p-th percentile of sorted at the
// fractional index (p/100)*(n-1). An empty input yields 0.
//
// Precondition: sorted is in ascending order; 0 <= p <= 100.
func Percentile(sorted []int, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return float64(sorted[lower])
	}
	weight := idx - float64(lower)
	return float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight
}

// Mode returns the most frequent sample. Ties resolve to the value whose
// first occurrence comes earliest in samples. An empty input yields 0.
func Mode(samples []int) int {
	if len(samples) == 0 {
		return 0
	}
	freq := make(map[int]int)
	var order []int
	for _, s := range samples {
		if freq[s] == 0 {
			order = append(order, s)
		}
		freq[s]++
	}
	mode, best := samples[0], 0
	for _, v := range order {
		if freq[v] > best {
			mode, best = v, freq[v]
		}
	}
	return mode
}
