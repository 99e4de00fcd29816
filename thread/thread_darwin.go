//go:build darwin

package thread

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// The mach calls below are reached through purego instead of cgo so
// that cross-compilation stays trivial.
var libSystem struct {
	once sync.Once
	err  error

	pthreadSetnameNp func(name string) int32
	machThreadSelf   func() uint32
	threadPolicySet  func(thread uint32, flavor int32, policy unsafe.Pointer, count uint32) int32
	machTimebaseInfo func(info unsafe.Pointer) int32
	setpriority      func(which, who int32, prio int32) int32
}

func loadLibSystem() error {
	libSystem.once.Do(func() {
		handle, err := purego.Dlopen("/usr/lib/libSystem.B.dylib", purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			libSystem.err = err
			return
		}
		purego.RegisterLibFunc(&libSystem.pthreadSetnameNp, handle, "pthread_setname_np")
		purego.RegisterLibFunc(&libSystem.machThreadSelf, handle, "mach_thread_self")
		purego.RegisterLibFunc(&libSystem.threadPolicySet, handle, "thread_policy_set")
		purego.RegisterLibFunc(&libSystem.machTimebaseInfo, handle, "mach_timebase_info")
		purego.RegisterLibFunc(&libSystem.setpriority, handle, "setpriority")
	})
	return libSystem.err
}

func setCurrentThreadName(name string) {
	const maxThreadNameSize = 64
	if len(name) > maxThreadNameSize-1 {
		name = name[:maxThreadNameSize-1]
	}
	if loadLibSystem() != nil {
		return
	}
	libSystem.pthreadSetnameNp(name)
}

type machTimebaseInfoData struct {
	numer uint32
	denom uint32
}

// Process-wide cached timebase, initialized on first use.
var machTimebase struct {
	once sync.Once
	info machTimebaseInfoData
}

func secondsToMachAbsoluteTime(seconds float64) uint32 {
	machTimebase.once.Do(func() {
		libSystem.machTimebaseInfo(unsafe.Pointer(&machTimebase.info))
	})
	nanos := seconds * 1e9
	if machTimebase.info.numer == 0 {
		return uint32(nanos)
	}
	return uint32(nanos * float64(machTimebase.info.denom) / float64(machTimebase.info.numer))
}

const threadTimeConstraintPolicyFlavor = 2

type threadTimeConstraintPolicy struct {
	period      uint32
	computation uint32
	constraint  uint32
	preemptible uint32
}

func setTimeConstraintPolicy(policy TimeConstraintPolicy) error {
	if err := loadLibSystem(); err != nil {
		return err
	}
	info := threadTimeConstraintPolicy{
		period:      secondsToMachAbsoluteTime(policy.Period.Seconds()),
		computation: secondsToMachAbsoluteTime(policy.Quantum.Seconds()),
		constraint:  secondsToMachAbsoluteTime(policy.Constraint.Seconds()),
		preemptible: 1,
	}
	const count = uint32(unsafe.Sizeof(threadTimeConstraintPolicy{}) / unsafe.Sizeof(uint32(0)))
	result := libSystem.threadPolicySet(
		libSystem.machThreadSelf(), threadTimeConstraintPolicyFlavor,
		unsafe.Pointer(&info), count)
	if result != 0 {
		return errors.New("thread: thread_policy_set failed")
	}
	return nil
}

func setMinimumPriority() error {
	if err := loadLibSystem(); err != nil {
		return err
	}
	// PRIO_PROCESS on the calling thread; 20 is the weakest level.
	const prioProcess = 0
	if libSystem.setpriority(prioProcess, 0, 20) != 0 {
		return errors.New("thread: setpriority failed")
	}
	return nil
}
