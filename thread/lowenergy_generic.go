//go:build !amd64 && !arm64

package thread

func hardwareDelay() {}
