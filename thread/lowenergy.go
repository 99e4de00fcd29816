package thread

import "time"

// numHardwareDelays batches delay instructions so that the time checks
// in LowEnergyWorkUntil stay off the hot path.
const numHardwareDelays = 16

// LowEnergyWork burns a small amount of wall time with minimal power
// draw. The work is invisible to normal CPU accounting but keeps the
// core from being considered idle by the performance controller.
func LowEnergyWork() {
	for i := 0; i < numHardwareDelays; i++ {
		hardwareDelay()
	}
}

// LowEnergyWorkUntil performs low-energy work until the deadline has
// passed. It returns immediately if the deadline is already over.
func LowEnergyWorkUntil(deadline time.Time) {
	for time.Now().Before(deadline) {
		LowEnergyWork()
	}
}
