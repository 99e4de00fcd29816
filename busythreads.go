package audioperf

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lundis/go-audioperf/thread"
)

// BusyThread alternates between blocking and performing low-energy
// work on a minimum-priority OS thread. Blocking keeps the thread
// under background CPU-usage limits; the low-energy phase keeps the
// performance controller from parking sibling audio threads on
// efficiency cores.
type BusyThread struct {
	name string

	mu       sync.Mutex
	period   time.Duration
	cpuUsage float64
	stop     chan struct{}
	done     chan struct{}
	isActive atomic.Bool
}

// NewBusyThread creates a stopped busy thread.
func NewBusyThread(name string) *BusyThread {
	return &BusyThread{
		name:     name,
		period:   DefaultBusyThreadPeriod,
		cpuUsage: DefaultBusyThreadCpuUsage,
	}
}

// Start begins performing busy work. A no-op when already started.
func (t *BusyThread) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isActive.Load() {
		return
	}
	t.isActive.Store(true)
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.busyLoop(t.stop, t.done)
}

// Stop ends the busy work and joins the thread. The thread observes
// the stop immediately, even mid-block.
func (t *BusyThread) Stop() {
	t.mu.Lock()
	if !t.isActive.Load() {
		t.mu.Unlock()
		return
	}
	t.isActive.Store(false)
	close(t.stop)
	done := t.done
	t.mu.Unlock()

	<-done
}

// Period returns the duration of one busy iteration.
func (t *BusyThread) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// SetPeriod changes the iteration duration. Takes effect within one
// period.
func (t *BusyThread) SetPeriod(period time.Duration) {
	if period <= 0 {
		panic("audioperf: invalid busy thread period")
	}
	t.mu.Lock()
	t.period = period
	t.mu.Unlock()
}

// ThreadCpuUsage returns the fraction of an iteration spent performing
// low-energy work rather than blocking.
func (t *BusyThread) ThreadCpuUsage() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cpuUsage
}

// SetThreadCpuUsage changes the work fraction. Takes effect within one
// period.
func (t *BusyThread) SetThreadCpuUsage(cpuUsage float64) {
	if cpuUsage < 0 || cpuUsage > 1 {
		panic("audioperf: invalid busy thread CPU usage")
	}
	t.mu.Lock()
	t.cpuUsage = cpuUsage
	t.mu.Unlock()
}

func (t *BusyThread) busyLoop(stop, done chan struct{}) {
	defer close(done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	thread.SetCurrentThreadName(t.name)
	_ = thread.SetMinimumPriority()

	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	for {
		startTime := time.Now()

		t.mu.Lock()
		period := t.period
		cpuUsage := t.cpuUsage
		t.mu.Unlock()

		lowEnergyDelayDuration := time.Duration(float64(period) * cpuUsage)
		blockDuration := period - lowEnergyDelayDuration
		delayEndTime := startTime.Add(period)

		timer.Reset(blockDuration)
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		for time.Now().Before(delayEndTime) && t.isActive.Load() {
			thread.LowEnergyWork()
		}
		if !t.isActive.Load() {
			return
		}
	}
}

// BusyThreads owns a pool of busy threads sharing one period and CPU
// usage.
type BusyThreads struct {
	mu       sync.Mutex
	threads  []*BusyThread
	period   time.Duration
	cpuUsage float64
}

// NewBusyThreads creates an empty pool with default parameters.
func NewBusyThreads() *BusyThreads {
	return &BusyThreads{
		period:   DefaultBusyThreadPeriod,
		cpuUsage: DefaultBusyThreadCpuUsage,
	}
}

// NumThreads returns the pool size.
func (b *BusyThreads) NumThreads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.threads)
}

// SetNumThreads resizes the pool. Every existing thread is stopped and
// joined, then numThreads new threads are started immediately.
func (b *BusyThreads) SetNumThreads(numThreads int) {
	if numThreads < 0 {
		panic("audioperf: invalid number of busy threads")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if numThreads == len(b.threads) {
		return
	}
	for _, t := range b.threads {
		t.Stop()
	}
	b.threads = b.threads[:0]
	for threadIndex := 0; threadIndex < numThreads; threadIndex++ {
		t := NewBusyThread(fmt.Sprintf("Busy Thread %d", threadIndex+1))
		t.SetPeriod(b.period)
		t.SetThreadCpuUsage(b.cpuUsage)
		t.Start()
		b.threads = append(b.threads, t)
	}
}

// Period returns the shared iteration duration.
func (b *BusyThreads) Period() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.period
}

// SetPeriod changes the iteration duration of every thread. Takes
// effect within one period.
func (b *BusyThreads) SetPeriod(period time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if period == b.period {
		return
	}
	for _, t := range b.threads {
		t.SetPeriod(period)
	}
	b.period = period
}

// ThreadCpuUsage returns the shared work fraction.
func (b *BusyThreads) ThreadCpuUsage() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cpuUsage
}

// SetThreadCpuUsage changes the work fraction of every thread. Takes
// effect within one period.
func (b *BusyThreads) SetThreadCpuUsage(cpuUsage float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cpuUsage == b.cpuUsage {
		return
	}
	for _, t := range b.threads {
		t.SetThreadCpuUsage(cpuUsage)
	}
	b.cpuUsage = cpuUsage
}
