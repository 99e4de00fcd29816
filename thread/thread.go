// Package thread contains the platform-specific leaf of the engine:
// thread naming, real-time scheduling policy, CPU attribution,
// low-energy busy work and audio workgroup membership.
package thread

import "time"

// TimeConstraintPolicy describes a real-time scheduling contract for an
// audio thread: the thread runs every Period, needs Quantum of CPU time
// per period, and must be done Constraint after being woken.
type TimeConstraintPolicy struct {
	Period     time.Duration
	Quantum    time.Duration
	Constraint time.Duration
}

// RealtimeQuantum is the computation quantum requested for audio worker
// threads.
const RealtimeQuantum = 500 * time.Microsecond

// SetCurrentThreadName names the calling thread for debuggers and
// profilers. The name may be truncated by the platform.
func SetCurrentThreadName(name string) {
	setCurrentThreadName(name)
}

// SetTimeConstraintPolicy marks the calling thread as a real-time audio
// thread. The caller must be locked to its OS thread. Failure is
// reported but not fatal: the thread keeps running at normal priority.
func SetTimeConstraintPolicy(policy TimeConstraintPolicy) error {
	return setTimeConstraintPolicy(policy)
}

// SetMinimumPriority drops the calling thread to the lowest
// normal-scheduling priority. Used by busy threads so that their load
// never competes with real work.
func SetMinimumPriority() error {
	return setMinimumPriority()
}

// CPUNumber returns the number of the CPU the calling thread is running
// on, or -1 when the platform cannot tell.
func CPUNumber() int {
	return cpuNumber()
}
