package thread

import (
	"runtime"
	"sync/atomic"
)

// Workgroup groups the threads that cooperate on the audio deadline so
// that the scheduler extends the priority boost of the device thread to
// all of them. It wraps whichever of two variants the platform
// provides: a native audio workgroup, or a legacy policy-based stand-in
// that promotes members to the real-time time-constraint policy.
type Workgroup struct {
	native *nativeWorkgroup // nil when the platform provides none
	policy TimeConstraintPolicy
}

// DiscoverWorkgroup finds the workgroup of the currently running audio
// device, falling back to the legacy variant when the platform exposes
// none. The policy is applied to joiners of the legacy variant.
func DiscoverWorkgroup(policy TimeConstraintPolicy) *Workgroup {
	return &Workgroup{
		native: discoverNativeWorkgroup(),
		policy: policy,
	}
}

// MaxParallelThreads is the system's recommendation for the maximum
// number of threads that should contribute to the audio workload.
func (w *Workgroup) MaxParallelThreads() int {
	if w.native != nil {
		return w.native.maxParallelThreads()
	}
	return runtime.NumCPU()
}

// Join adds the calling thread to the workgroup. The caller must be
// locked to its OS thread and must release the returned membership from
// that same thread.
func (w *Workgroup) Join() *ScopedMembership {
	m := &ScopedMembership{workgroup: w}
	if w.native != nil {
		m.token = w.native.join()
	} else {
		_ = SetTimeConstraintPolicy(w.policy)
	}
	return m
}

// ScopedMembership is a handle for one thread's workgroup membership.
// It must be released exactly once via Leave.
type ScopedMembership struct {
	workgroup *Workgroup
	token     uintptr
	released  atomic.Bool
}

// Leave removes the thread from the workgroup. Calling Leave twice is a
// programming error and panics.
func (m *ScopedMembership) Leave() {
	if m.released.Swap(true) {
		panic("thread: workgroup membership released twice")
	}
	if m.workgroup.native != nil {
		m.workgroup.native.leave(m.token)
	}
}
