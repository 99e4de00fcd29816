//go:build !darwin

package thread

type nativeWorkgroup struct{}

func discoverNativeWorkgroup() *nativeWorkgroup { return nil }

func (w *nativeWorkgroup) maxParallelThreads() int { return 0 }

func (w *nativeWorkgroup) join() uintptr { return 0 }

func (w *nativeWorkgroup) leave(uintptr) {}
