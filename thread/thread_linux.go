//go:build linux

package thread

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func setCurrentThreadName(name string) {
	// The kernel limit for a thread name is 16 bytes including the
	// terminating NUL.
	const maxThreadNameSize = 16
	if len(name) > maxThreadNameSize-1 {
		name = name[:maxThreadNameSize-1]
	}
	buf := make([]byte, maxThreadNameSize)
	copy(buf, name)
	_ = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}

func setTimeConstraintPolicy(policy TimeConstraintPolicy) error {
	// SCHED_DEADLINE is the closest Linux equivalent of the mach
	// time-constraint policy: runtime per period with a completion
	// deadline. It requires CAP_SYS_NICE, so fall back to SCHED_FIFO
	// and finally fail softly.
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_DEADLINE,
		Runtime:  uint64(policy.Quantum.Nanoseconds()),
		Deadline: uint64(policy.Constraint.Nanoseconds()),
		Period:   uint64(policy.Period.Nanoseconds()),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err == nil {
		return nil
	}

	fifo := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: realtimeFifoPriority,
	}
	return unix.SchedSetAttr(0, &fifo, 0)
}

// Below the priority of kernel-critical threads but above everything
// that is not hard real time.
const realtimeFifoPriority = 45

func setMinimumPriority() error {
	// Thread id 0 addresses the calling thread for PRIO_PROCESS on
	// Linux; 19 is the weakest nice level.
	return unix.Setpriority(unix.PRIO_PROCESS, 0, 19)
}

func cpuNumber() int {
	var cpu uint32
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), 0, 0)
	if errno != 0 {
		return -1
	}
	return int(cpu)
}
