package audioperf

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lundis/go-audioperf/audio"
	"github.com/Lundis/go-audioperf/thread"
)

// Host callback types. Thread index 0 is the driver thread when it
// participates in processing; workers are 1..numWorkerThreads.
type (
	// Setup runs whenever the worker pool is (re)built, before audio
	// starts.
	Setup func(numWorkerThreads int)

	// RenderStarted runs on the driver thread at the top of every
	// buffer, before workers are woken.
	RenderStarted func(input, output audio.StereoBuffer, numFrames int)

	// Process renders one thread's share of a buffer. Called
	// concurrently on every processing thread.
	Process func(threadIndex, numFrames int)

	// RenderEnded runs on the driver thread after every worker has
	// finished its share.
	RenderEnded func(output audio.StereoBuffer, hostTime float64, numFrames int)
)

// AudioHost owns an audio driver and a pool of real-time worker
// threads, and fans each buffer out to them: the driver callback wakes
// every worker through a counting semaphore, optionally processes a
// share itself, waits for all workers to finish, and hands the buffer
// back through RenderEnded. It also enforces the configured artificial
// load floor on every processing thread.
type AudioHost struct {
	driver *audio.Driver

	processInDriverThread atomic.Bool
	isWorkIntervalOn      bool
	numFrames             atomic.Int32

	areWorkerThreadsActive atomic.Bool
	workerWaitGroup        sync.WaitGroup

	minimumLoad             atomicFloat64
	startWorkingSemaphore   *thread.Semaphore
	finishedWorkSemaphore   *thread.Semaphore
	numRunningWorkerThreads int

	setup         Setup
	renderStarted RenderStarted
	process       Process
	renderEnded   RenderEnded

	mu                        sync.Mutex // serializes the control API
	isStarted                 bool
	numRequestedWorkerThreads int
}

// NewAudioHost creates a host and its driver. The driver's device is
// opened immediately; audio stays silent until Start. A device failure
// leaves the host constructed with an Invalid driver whose render
// callback never fires.
func NewAudioHost(setup Setup, renderStarted RenderStarted, process Process,
	renderEnded RenderEnded, driverConfig audio.Config) (*AudioHost, error) {

	h := &AudioHost{
		startWorkingSemaphore:     thread.NewSemaphore(0),
		finishedWorkSemaphore:     thread.NewSemaphore(0),
		setup:                     setup,
		renderStarted:             renderStarted,
		process:                   process,
		renderEnded:               renderEnded,
		numRequestedWorkerThreads: DefaultNumWorkerThreads,
	}
	h.processInDriverThread.Store(true)

	driver, err := audio.NewDriver(h.render, driverConfig)
	h.driver = driver
	return h, err
}

// Driver returns the host's audio driver.
func (h *AudioHost) Driver() *audio.Driver { return h.driver }

// Start spins up the worker pool and lets the driver render. A no-op
// when already started.
func (h *AudioHost) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startLocked()
}

func (h *AudioHost) startLocked() {
	if h.isStarted {
		return
	}
	if h.setup != nil {
		h.setup(h.numRequestedWorkerThreads)
	}
	h.setupWorkerThreads()
	h.driver.Start()
	h.isStarted = true
}

// Stop silences the driver and tears the worker pool down. A no-op
// when already stopped. The host must be stopped before it is
// discarded.
func (h *AudioHost) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *AudioHost) stopLocked() {
	if !h.isStarted {
		return
	}
	h.driver.Stop()
	h.teardownWorkerThreads()
	h.isStarted = false
}

// whileStopped applies a configuration change that needs the worker
// pool rebuilt, restarting iff the host was running.
func (h *AudioHost) whileStopped(f func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasStarted := h.isStarted
	if wasStarted {
		h.stopLocked()
	}
	f()
	if wasStarted {
		h.startLocked()
	}
}

// IsAudioInputEnabled reports whether the capture path is on.
func (h *AudioHost) IsAudioInputEnabled() bool {
	return h.driver.IsInputEnabled()
}

// SetIsAudioInputEnabled toggles the capture path. May block while the
// render thread quiesces.
func (h *AudioHost) SetIsAudioInputEnabled(isInputEnabled bool) {
	h.driver.SetIsInputEnabled(isInputEnabled)
}

// PreferredBufferSize returns the requested device buffer size.
func (h *AudioHost) PreferredBufferSize() int {
	return h.driver.PreferredBufferSize()
}

// SetPreferredBufferSize requests a new buffer size, rebuilding the
// worker pool so that thread policies pick up the new period.
func (h *AudioHost) SetPreferredBufferSize(preferredBufferSize int) error {
	if preferredBufferSize == h.driver.PreferredBufferSize() {
		return nil
	}
	var err error
	h.whileStopped(func() {
		err = h.driver.SetPreferredBufferSize(preferredBufferSize)
	})
	return err
}

// NumWorkerThreads returns the configured worker count.
func (h *AudioHost) NumWorkerThreads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.numRequestedWorkerThreads
}

// SetNumWorkerThreads rebuilds the worker pool with a new size.
func (h *AudioHost) SetNumWorkerThreads(numWorkerThreads int) {
	if numWorkerThreads < 0 || numWorkerThreads >= MaxNumThreads {
		panic(fmt.Sprintf("audioperf: invalid number of worker threads %d", numWorkerThreads))
	}
	h.mu.Lock()
	same := numWorkerThreads == h.numRequestedWorkerThreads
	h.mu.Unlock()
	if same {
		return
	}
	h.whileStopped(func() {
		h.numRequestedWorkerThreads = numWorkerThreads
	})
}

// ProcessInDriverThread reports whether the driver thread renders a
// share of each buffer itself.
func (h *AudioHost) ProcessInDriverThread() bool {
	return h.processInDriverThread.Load()
}

// SetProcessInDriverThread toggles driver-thread processing. Real-time
// safe: no restart.
func (h *AudioHost) SetProcessInDriverThread(isEnabled bool) {
	h.processInDriverThread.Store(isEnabled)
}

// IsWorkIntervalOn reports whether workers join the device workgroup.
func (h *AudioHost) IsWorkIntervalOn() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isWorkIntervalOn
}

// SetIsWorkIntervalOn toggles workgroup membership, rebuilding the
// worker pool.
func (h *AudioHost) SetIsWorkIntervalOn(isOn bool) {
	h.mu.Lock()
	same := isOn == h.isWorkIntervalOn
	h.mu.Unlock()
	if same {
		return
	}
	h.whileStopped(func() {
		h.isWorkIntervalOn = isOn
	})
}

// MinimumLoad returns the artificial load floor as a fraction of the
// buffer duration.
func (h *AudioHost) MinimumLoad() float64 {
	return h.minimumLoad.Load()
}

// SetMinimumLoad sets the artificial load floor. Real-time safe: no
// restart.
func (h *AudioHost) SetMinimumLoad(minimumLoad float64) {
	h.minimumLoad.Store(minimumLoad)
}

func (h *AudioHost) setupWorkerThreads() {
	if h.numRunningWorkerThreads != 0 {
		panic("audioperf: worker threads must be torn down before setupWorkerThreads")
	}

	h.areWorkerThreadsActive.Store(true)
	h.numRunningWorkerThreads = h.numRequestedWorkerThreads
	isWorkIntervalOn := h.isWorkIntervalOn
	for i := 1; i <= h.numRunningWorkerThreads; i++ {
		h.workerWaitGroup.Add(1)
		go h.workerThread(i, isWorkIntervalOn)
	}
}

func (h *AudioHost) teardownWorkerThreads() {
	h.areWorkerThreadsActive.Store(false)
	for i := 0; i < h.numRunningWorkerThreads; i++ {
		h.startWorkingSemaphore.Post()
	}
	h.workerWaitGroup.Wait()
	h.numRunningWorkerThreads = 0
}

// ensureMinimumLoad keeps the calling thread busy with low-energy work
// until the configured fraction of the buffer duration has elapsed
// since bufferStartTime. Real DSP that finishes early would otherwise
// let the performance controller park the thread on a slow core.
func (h *AudioHost) ensureMinimumLoad(bufferStartTime time.Time, numFrames int) {
	bufferDuration := float64(numFrames) / h.driver.SampleRate()
	load := h.minimumLoad.Load()
	if load <= 0 {
		return
	}
	deadline := bufferStartTime.Add(time.Duration(bufferDuration * load * float64(time.Second)))
	thread.LowEnergyWorkUntil(deadline)
}

// render is the driver's per-buffer entry point, running on the device
// thread.
func (h *AudioHost) render(hostTime float64, numFrames int, input, output audio.StereoBuffer) error {
	startTime := time.Now()
	h.numFrames.Store(int32(numFrames))

	if h.renderStarted != nil {
		h.renderStarted(input, output, numFrames)
	}

	numWorkers := h.numRunningWorkerThreads
	for i := 0; i < numWorkers; i++ {
		h.startWorkingSemaphore.Post()
	}

	processInDriverThread := h.processInDriverThread.Load()
	if processInDriverThread && h.process != nil {
		h.process(0, numFrames)
	}

	for i := 0; i < numWorkers; i++ {
		h.finishedWorkSemaphore.Wait()
	}

	if h.renderEnded != nil {
		h.renderEnded(output, hostTime, numFrames)
	}

	if processInDriverThread {
		h.ensureMinimumLoad(startTime, numFrames)
	}

	return nil
}

func (h *AudioHost) workerThread(threadIndex int, isWorkIntervalOn bool) {
	defer h.workerWaitGroup.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	thread.SetCurrentThreadName(fmt.Sprintf("Audio Worker Thread %d", threadIndex))

	policy := thread.TimeConstraintPolicy{
		Period:     h.driver.NominalBufferDuration(),
		Quantum:    thread.RealtimeQuantum,
		Constraint: h.driver.NominalBufferDuration(),
	}
	// On failure the worker still runs, at normal priority.
	_ = thread.SetTimeConstraintPolicy(policy)

	// Join after waking from the semaphore for the first time, so that
	// the device thread is running and its workgroup is discoverable.
	var membership *thread.ScopedMembership
	needToJoinWorkInterval := isWorkIntervalOn

	for {
		h.startWorkingSemaphore.Wait()
		if !h.areWorkerThreadsActive.Load() {
			break
		}

		if needToJoinWorkInterval {
			membership = thread.DiscoverWorkgroup(policy).Join()
			needToJoinWorkInterval = false
		}

		startTime := time.Now()
		numFrames := int(h.numFrames.Load())
		if h.process != nil {
			h.process(threadIndex, numFrames)
		}
		h.finishedWorkSemaphore.Post()
		h.ensureMinimumLoad(startTime, numFrames)
	}

	if membership != nil {
		membership.Leave()
	}
}

// atomicFloat64 is a float64 with atomic load/store.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat64) Store(value float64) {
	f.bits.Store(math.Float64bits(value))
}
