//go:build darwin && arm64

package thread

// currentCPUNumber reads TPIDRRO_EL0, where XNU publishes the CPU
// number in the low bits. Implemented in assembly.
func currentCPUNumber() uint64

func cpuNumber() int {
	return int(currentCPUNumber() & 0x7)
}
