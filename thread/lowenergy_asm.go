//go:build amd64 || arm64

package thread

// hardwareDelay executes a single architecture-specific pause
// instruction. Implemented in assembly.
func hardwareDelay()
