package report

import "math"

// Bucket is one equal-width bin. Every bucket is half-open [Min, Max)
// except the last, which also holds Max.
type Bucket struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// MaxBins caps the bucket count a histogram may be asked for.
const MaxBins = 10_000

// Histogram is the frequency distribution of one column. Total counts the
// bucketed values; NaN and ±Inf are left out and counted in Skipped.
type Histogram struct {
	Buckets []Bucket `json:"buckets"`
	Total   int      `json:"total"`
	Skipped int      `json:"skipped,omitempty"`
}

// Bucketize splits [min(values), max(values)] into bins equal-width
// buckets and counts values per bucket. When every value is equal the
// range becomes [v-0.5, v+0.5]; empty input yields bins empty buckets
// over [0, 1]. Non-finite values are skipped. bins is clamped to
// [1, MaxBins].
func Bucketize(values []float64, bins int) *Histogram {
	bins = min(max(bins, 1), MaxBins)

	finite := values
	skipped := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			skipped++
		}
	}
	if skipped > 0 {
		finite = make([]float64, 0, len(values)-skipped)
		for _, v := range values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
	}
	values = finite

	lo, hi := 0.0, 1.0
	if len(values) > 0 {
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, v := range values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
	}

	width := (hi - lo) / float64(bins)
	h := &Histogram{Buckets: make([]Bucket, bins), Total: len(values), Skipped: skipped}
	for i := range h.Buckets {
		h.Buckets[i].Min = lo + float64(i)*width
		h.Buckets[i].Max = lo + float64(i+1)*width
	}
	h.Buckets[bins-1].Max = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		h.Buckets[i].Count++
	}
	return h
}

// Counts returns the bucket counts in order.
func (h *Histogram) Counts() []int {
	out := make([]int, len(h.Buckets))
	for i, b := range h.Buckets {
		out[i] = b.Count
	}
	return out
}
