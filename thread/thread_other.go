//go:build !linux && !darwin

package thread

import "errors"

var errUnsupported = errors.New("thread: not supported on this platform")

func setCurrentThreadName(string) {}

func setTimeConstraintPolicy(TimeConstraintPolicy) error { return errUnsupported }

func setMinimumPriority() error { return errUnsupported }
