//go:build !linux && !(darwin && arm64)

package thread

func cpuNumber() int { return -1 }
