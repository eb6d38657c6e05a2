package metrics

import "time"

// Window accumulates step timing and loss across multiple steps.
type Window struct {
	samples int
	data    time.Duration
	compute time.Duration
	steps   int
	loss    float64
	last    float64
}

// Record adds one step.
func (w *Window) Record(batchSize int, dataTime, computeTime time.Duration, loss float64) {
	w.samples += batchSize
	w.data += dataTime
	w.compute += computeTime
	w.steps++
	w.loss += loss
	w.last = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, LastLoss: w.last}
	if total := w.data + w.compute; total > 0 {
		snap.SamplesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgDataMS = w.data.Seconds() * 1000 / float64(w.steps)
		snap.AvgComputeMS = w.compute.Seconds() * 1000 / float64(w.steps)
		snap.MeanLoss = w.loss / float64(w.steps)
	}

	*w = Window{}
	return snap
}

// Snapshot holds loggable metrics.
type Snapshot struct {
	Steps         int
	SamplesPerSec float64
	AvgDataMS     float64
	AvgComputeMS  float64
	MeanLoss      float64
	LastLoss      float64
}
