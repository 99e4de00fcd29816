package audioperf

import (
	timestats "github.com/cwbudde/algo-dsp/stats/time"
)

// DriveMeasurement is the per-buffer record shipped from the audio
// thread to the embedder. Unused thread slots hold -1.
type DriveMeasurement struct {
	HostTime                   float64 // buffer presentation time, seconds
	Duration                   float64 // wall time spent in the render callback, seconds
	NumFrames                  int32
	CpuNumbers                 [MaxNumThreads]int32
	NumActivePartialsProcessed [MaxNumThreads]int32
	InputPeakLevel             float32
}

// MeasurementStats summarizes a batch of drained measurements for
// display. Computed on the embedder's thread, never in the callback.
type MeasurementStats struct {
	Count     int
	Duration  timestats.Stats // seconds
	InputPeak timestats.Stats
}

// SummarizeMeasurements computes statistics over a batch of
// measurements.
func SummarizeMeasurements(measurements []DriveMeasurement) MeasurementStats {
	durations := make([]float64, len(measurements))
	peaks := make([]float64, len(measurements))
	for i, m := range measurements {
		durations[i] = m.Duration
		peaks[i] = float64(m.InputPeakLevel)
	}
	return MeasurementStats{
		Count:     len(measurements),
		Duration:  timestats.Calculate(durations),
		InputPeak: timestats.Calculate(peaks),
	}
}
