package audioperf

import (
	"testing"
	"time"
)

func TestPresetName(t *testing.T) {
	if name := PresetName(StandardPerformanceConfig); name != "Standard" {
		t.Fatalf("PresetName(standard) = %q", name)
	}
	if name := PresetName(OptimalPerformanceConfig); name != "Optimal" {
		t.Fatalf("PresetName(optimal) = %q", name)
	}

	custom := StandardPerformanceConfig
	custom.BusyThreads.Period = 36 * time.Millisecond
	if name := PresetName(custom); name != "Custom" {
		t.Fatalf("PresetName(custom) = %q", name)
	}
}

func TestPresetsDifferWhereItMatters(t *testing.T) {
	if StandardPerformanceConfig == OptimalPerformanceConfig {
		t.Fatal("presets must differ")
	}
	if StandardPerformanceConfig.AudioHost.NumProcessingThreads !=
		OptimalPerformanceConfig.AudioHost.NumProcessingThreads {
		t.Fatal("presets should use the same processing thread count")
	}
}
