// Package metrics aggregates training diagnostics.
package metrics

import (
	"github.com/born-ml/rectflow/internal/flow"
)

// NumBins is the number of time buckets: bin k covers [k/10, (k+1)/10).
const NumBins = 10

// LossBins accumulates per-example losses by training time, showing where
// on the path from data (t=0) to noise (t=1) the model struggles.
type LossBins struct {
	sum   [NumBins]float64
	count [NumBins]int
}

// Bin returns the bucket for t, floor(10*t) clamped to [0, NumBins-1].
func Bin(t float64) int {
	return min(max(int(t*NumBins), 0), NumBins-1)
}

// Add accumulates a loss report.
func (b *LossBins) Add(report []flow.TimeLoss) {
	for _, r := range report {
		k := Bin(r.T)
		b.sum[k] += r.Loss
		b.count[k]++
	}
}

// Means returns the mean loss of every bin. Empty bins report 0.
func (b *LossBins) Means() [NumBins]float64 {
	var out [NumBins]float64
	for k := range out {
		if b.count[k] > 0 {
			out[k] = b.sum[k] / float64(b.count[k])
		}
	}
	return out
}

// Counts returns the number of examples in every bin.
func (b *LossBins) Counts() [NumBins]int {
	return b.count
}

// Reset clears all bins.
func (b *LossBins) Reset() {
	*b = LossBins{}
}
