package audioperf

import "time"

// BusyThreadsConfig is the busy thread portion of a performance
// configuration.
type BusyThreadsConfig struct {
	NumThreads int
	Period     time.Duration
	CpuUsage   float64
}

// AudioHostConfig is the scheduling portion of a performance
// configuration. NumProcessingThreads counts every thread that renders
// partials, including the driver thread when it participates.
type AudioHostConfig struct {
	NumProcessingThreads  int
	ProcessInDriverThread bool
	IsWorkIntervalOn      bool
	MinimumLoad           float64
}

// PerformanceConfig is the full set of throttling-related knobs.
// Preset membership is decided by exact equality on every field.
type PerformanceConfig struct {
	BusyThreads BusyThreadsConfig
	AudioHost   AudioHostConfig
}

// StandardPerformanceConfig reproduces the naive setup: everything in
// the driver thread's workgroup, no busy threads.
var StandardPerformanceConfig = PerformanceConfig{
	BusyThreads: BusyThreadsConfig{
		NumThreads: 0,
		Period:     35 * time.Millisecond,
		CpuUsage:   0.5,
	},
	AudioHost: AudioHostConfig{
		NumProcessingThreads:  2,
		ProcessInDriverThread: true,
		IsWorkIntervalOn:      true,
		MinimumLoad:           0.0,
	},
}

// OptimalPerformanceConfig is the setup that measured best against
// throttling: workers outside the workgroup, one busy thread.
var OptimalPerformanceConfig = PerformanceConfig{
	BusyThreads: BusyThreadsConfig{
		NumThreads: 1,
		Period:     StandardPerformanceConfig.BusyThreads.Period,
		CpuUsage:   StandardPerformanceConfig.BusyThreads.CpuUsage,
	},
	AudioHost: AudioHostConfig{
		NumProcessingThreads:  2,
		ProcessInDriverThread: false,
		IsWorkIntervalOn:      false,
		MinimumLoad:           StandardPerformanceConfig.AudioHost.MinimumLoad,
	},
}

// PresetName returns "Standard" or "Optimal" when the configuration
// matches a preset exactly, and "Custom" otherwise.
func PresetName(config PerformanceConfig) string {
	switch config {
	case StandardPerformanceConfig:
		return "Standard"
	case OptimalPerformanceConfig:
		return "Optimal"
	default:
		return "Custom"
	}
}
