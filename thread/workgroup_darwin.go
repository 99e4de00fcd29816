//go:build darwin

package thread

// A native os_workgroup would be obtained from the running audio unit.
// The pull-model output used by this module does not expose one, so
// discovery reports none and the legacy variant is used. The type is
// kept so that an embedder with access to the device workgroup can
// slot it in.
type nativeWorkgroup struct {
	handle uintptr

	maxParallelThreadsFn func(handle uintptr) int32
	joinFn               func(handle uintptr) uintptr
	leaveFn              func(handle uintptr, token uintptr)
}

func discoverNativeWorkgroup() *nativeWorkgroup { return nil }

func (w *nativeWorkgroup) maxParallelThreads() int {
	return int(w.maxParallelThreadsFn(w.handle))
}

func (w *nativeWorkgroup) join() uintptr {
	return w.joinFn(w.handle)
}

func (w *nativeWorkgroup) leave(token uintptr) {
	w.leaveFn(w.handle, token)
}
