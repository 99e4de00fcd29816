package audioperf

import (
	"sync/atomic"
	"time"

	"github.com/Lundis/go-audioperf/audio"
	"github.com/Lundis/go-audioperf/spsc"
	"github.com/Lundis/go-audioperf/thread"
)

// Engine is the embedding API: a chord of sawtooth partials rendered
// by a ParallelSineBank under an AudioHost, with busy threads and
// per-buffer measurements. All setters are safe to call from a single
// control thread while audio runs.
type Engine struct {
	sineBank     ParallelSineBank
	host         *AudioHost
	busyThreads  *BusyThreads
	measurements *spsc.Queue[DriveMeasurement]

	numSines    atomic.Int32
	maxNumSines int

	numWorkerThreads atomic.Int32

	// A staged sine burst: the additional partial count in the high 32
	// bits, the burst length in frames in the low 32 bits. Swapped to
	// zero by the next render callback.
	stagedBurst atomic.Uint64

	// Render-thread state, touched only by the driver callback.
	renderStartTime      time.Time
	burstAdditionalSines int
	burstFramesRemaining int
	inputPeakLevel       float32

	cpuNumbers                 [MaxNumThreads]atomic.Int32
	numActivePartialsProcessed [MaxNumThreads]atomic.Int32
}

// NewEngine creates an engine and opens its audio device. The zero
// Config selects the platform output at the default buffer size.
// Audio is silent until Start.
func NewEngine(driverConfig audio.Config) (*Engine, error) {
	e := &Engine{
		busyThreads:  NewBusyThreads(),
		measurements: spsc.NewQueue[DriveMeasurement](DriveMeasurementQueueSize),
	}
	e.numSines.Store(DefaultNumSines)

	host, err := NewAudioHost(e.setup, e.renderStarted, e.process, e.renderEnded, driverConfig)
	e.host = host
	if err != nil {
		return e, err
	}

	sampleRate := float32(host.Driver().SampleRate())
	partials := GenerateChord(sampleRate, AmpSmoothingDuration, chordNoteNumbers)
	partials = RandomizePhases(partials, NumUnrandomizedPhases)
	e.sineBank.SetPartials(partials)
	e.maxNumSines = len(partials)

	return e, nil
}

// Start starts the audio host. A no-op when already started.
func (e *Engine) Start() { e.host.Start() }

// Stop stops the audio host. Busy threads keep running; they are torn
// down by Close.
func (e *Engine) Stop() { e.host.Stop() }

// Close stops everything and releases the audio device.
func (e *Engine) Close() {
	e.host.Stop()
	e.busyThreads.SetNumThreads(0)
	e.host.Driver().Close()
}

// PreferredBufferSize returns the requested device buffer size.
func (e *Engine) PreferredBufferSize() int { return e.host.PreferredBufferSize() }

// SetPreferredBufferSize requests a new buffer size: a power of two in
// [64, MaxNumFrames].
func (e *Engine) SetPreferredBufferSize(numFrames int) error {
	return e.host.SetPreferredBufferSize(numFrames)
}

// SampleRate returns the negotiated device sample rate.
func (e *Engine) SampleRate() float64 { return e.host.Driver().SampleRate() }

// NumWorkerThreads returns the number of dedicated worker threads.
func (e *Engine) NumWorkerThreads() int { return e.host.NumWorkerThreads() }

// SetNumWorkerThreads rebuilds the worker pool; restarts if running.
func (e *Engine) SetNumWorkerThreads(numWorkerThreads int) {
	e.host.SetNumWorkerThreads(numWorkerThreads)
}

// NumProcessingThreads counts every thread that renders partials,
// including the driver thread when it participates.
func (e *Engine) NumProcessingThreads() int {
	n := e.host.NumWorkerThreads()
	if e.host.ProcessInDriverThread() {
		n++
	}
	return n
}

// SetNumProcessingThreads adjusts the worker count so that the total
// processing thread count matches, given the current driver-thread
// participation.
func (e *Engine) SetNumProcessingThreads(numProcessingThreads int) {
	numWorkers := numProcessingThreads
	if e.host.ProcessInDriverThread() {
		numWorkers--
	}
	if numWorkers < 0 {
		numWorkers = 0
	}
	if numWorkers > MaxNumThreads-1 {
		numWorkers = MaxNumThreads - 1
	}
	e.host.SetNumWorkerThreads(numWorkers)
}

// ProcessInDriverThread reports whether the driver thread renders a
// share of each buffer.
func (e *Engine) ProcessInDriverThread() bool { return e.host.ProcessInDriverThread() }

// SetProcessInDriverThread toggles driver-thread processing without a
// restart.
func (e *Engine) SetProcessInDriverThread(isEnabled bool) {
	e.host.SetProcessInDriverThread(isEnabled)
}

// IsWorkIntervalOn reports whether workers join the device workgroup.
func (e *Engine) IsWorkIntervalOn() bool { return e.host.IsWorkIntervalOn() }

// SetIsWorkIntervalOn toggles workgroup membership; restarts if
// running.
func (e *Engine) SetIsWorkIntervalOn(isOn bool) { e.host.SetIsWorkIntervalOn(isOn) }

// IsAudioInputEnabled reports whether the capture path is on.
func (e *Engine) IsAudioInputEnabled() bool { return e.host.IsAudioInputEnabled() }

// SetIsAudioInputEnabled toggles the capture path. May block briefly.
func (e *Engine) SetIsAudioInputEnabled(isEnabled bool) {
	e.host.SetIsAudioInputEnabled(isEnabled)
}

// MinimumLoad returns the artificial load floor in [0, 1].
func (e *Engine) MinimumLoad() float64 { return e.host.MinimumLoad() }

// SetMinimumLoad sets the artificial load floor without a restart.
func (e *Engine) SetMinimumLoad(minimumLoad float64) { e.host.SetMinimumLoad(minimumLoad) }

// OutputVolume returns the most recently requested output volume.
func (e *Engine) OutputVolume() float32 { return e.host.Driver().OutputVolume() }

// SetOutputVolume fades the output volume. Real-time safe.
func (e *Engine) SetOutputVolume(volume float32, fadeDuration time.Duration) {
	e.host.Driver().SetOutputVolume(volume, fadeDuration)
}

// NumBusyThreads returns the busy thread pool size.
func (e *Engine) NumBusyThreads() int { return e.busyThreads.NumThreads() }

// SetNumBusyThreads resizes the busy thread pool.
func (e *Engine) SetNumBusyThreads(numThreads int) { e.busyThreads.SetNumThreads(numThreads) }

// BusyThreadPeriod returns the busy thread iteration duration.
func (e *Engine) BusyThreadPeriod() time.Duration { return e.busyThreads.Period() }

// SetBusyThreadPeriod changes the busy thread iteration duration.
func (e *Engine) SetBusyThreadPeriod(period time.Duration) { e.busyThreads.SetPeriod(period) }

// BusyThreadCpuUsage returns the busy thread work fraction.
func (e *Engine) BusyThreadCpuUsage() float64 { return e.busyThreads.ThreadCpuUsage() }

// SetBusyThreadCpuUsage changes the busy thread work fraction.
func (e *Engine) SetBusyThreadCpuUsage(cpuUsage float64) {
	e.busyThreads.SetThreadCpuUsage(cpuUsage)
}

// NumSines returns the number of active partials.
func (e *Engine) NumSines() int { return int(e.numSines.Load()) }

// SetNumSines sets the number of active partials, clamped to
// [0, MaxNumSines]. Real-time safe.
func (e *Engine) SetNumSines(numSines int) {
	if numSines < 0 {
		numSines = 0
	}
	if numSines > e.maxNumSines {
		numSines = e.maxNumSines
	}
	e.numSines.Store(int32(numSines))
}

// MaxNumSines returns the size of the partial list.
func (e *Engine) MaxNumSines() int { return e.maxNumSines }

// PlaySineBurst stages additionalSines extra active partials for the
// given duration. The burst is applied atomically at the start of the
// next buffer and counts down in samples. Real-time safe.
func (e *Engine) PlaySineBurst(duration time.Duration, additionalSines int) {
	numFrames := uint32(duration.Seconds() * e.SampleRate())
	e.stagedBurst.Store(uint64(uint32(additionalSines))<<32 | uint64(numFrames))
}

// FetchMeasurements drains all available measurements, invoking
// callback once per record, oldest first.
func (e *Engine) FetchMeasurements(callback func(DriveMeasurement)) {
	for m := e.measurements.Front(); m != nil; m = e.measurements.Front() {
		callback(*m)
		e.measurements.PopFront()
	}
}

// PerformanceConfig returns the full throttling-related configuration.
func (e *Engine) PerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		BusyThreads: BusyThreadsConfig{
			NumThreads: e.NumBusyThreads(),
			Period:     e.BusyThreadPeriod(),
			CpuUsage:   e.BusyThreadCpuUsage(),
		},
		AudioHost: AudioHostConfig{
			NumProcessingThreads:  e.NumProcessingThreads(),
			ProcessInDriverThread: e.ProcessInDriverThread(),
			IsWorkIntervalOn:      e.IsWorkIntervalOn(),
			MinimumLoad:           e.MinimumLoad(),
		},
	}
}

// SetPerformanceConfig applies a full configuration, typically one of
// the presets.
func (e *Engine) SetPerformanceConfig(config PerformanceConfig) {
	e.busyThreads.SetNumThreads(config.BusyThreads.NumThreads)
	e.busyThreads.SetPeriod(config.BusyThreads.Period)
	e.busyThreads.SetThreadCpuUsage(config.BusyThreads.CpuUsage)

	e.SetProcessInDriverThread(config.AudioHost.ProcessInDriverThread)
	e.SetNumProcessingThreads(config.AudioHost.NumProcessingThreads)
	e.SetIsWorkIntervalOn(config.AudioHost.IsWorkIntervalOn)
	e.SetMinimumLoad(config.AudioHost.MinimumLoad)
}

func (e *Engine) setup(numWorkerThreads int) {
	e.numWorkerThreads.Store(int32(numWorkerThreads))
	// Thread 0 is the driver thread's slot.
	e.sineBank.SetNumThreads(numWorkerThreads + 1)
	for i := range e.cpuNumbers {
		e.cpuNumbers[i].Store(-1)
		e.numActivePartialsProcessed[i].Store(-1)
	}
}

func (e *Engine) renderStarted(input, output audio.StereoBuffer, numFrames int) {
	e.renderStartTime = time.Now()

	peak := float32(0)
	for i := 0; i < numFrames; i++ {
		if v := abs32(input.Left[i]); v > peak {
			peak = v
		}
		if v := abs32(input.Right[i]); v > peak {
			peak = v
		}
	}
	e.inputPeakLevel = peak

	if staged := e.stagedBurst.Swap(0); staged != 0 {
		e.burstAdditionalSines = int(int32(staged >> 32))
		e.burstFramesRemaining = int(uint32(staged))
	}

	numActive := int(e.numSines.Load()) + e.burstAdditionalSines
	if numActive > e.maxNumSines {
		numActive = e.maxNumSines
	}
	e.sineBank.Prepare(numActive, numFrames)

	if e.burstFramesRemaining > 0 {
		e.burstFramesRemaining -= numFrames
		if e.burstFramesRemaining <= 0 {
			e.burstAdditionalSines = 0
			e.burstFramesRemaining = 0
		}
	}
}

func (e *Engine) process(threadIndex, numFrames int) {
	n := e.sineBank.Process(threadIndex, numFrames)
	e.numActivePartialsProcessed[threadIndex].Store(int32(n))
	e.cpuNumbers[threadIndex].Store(int32(thread.CPUNumber()))
}

func (e *Engine) renderEnded(output audio.StereoBuffer, hostTime float64, numFrames int) {
	output.Zero(numFrames)
	e.sineBank.MixTo(output, numFrames)

	// The driver thread attributes itself even when it does not render
	// a share.
	e.cpuNumbers[0].Store(int32(thread.CPUNumber()))
	if !e.host.ProcessInDriverThread() {
		e.numActivePartialsProcessed[0].Store(-1)
	}

	measurement := DriveMeasurement{
		HostTime:       hostTime,
		Duration:       time.Since(e.renderStartTime).Seconds(),
		NumFrames:      int32(numFrames),
		InputPeakLevel: e.inputPeakLevel,
	}
	numUsedThreads := int(e.numWorkerThreads.Load()) + 1
	for i := 0; i < MaxNumThreads; i++ {
		if i < numUsedThreads {
			measurement.CpuNumbers[i] = e.cpuNumbers[i].Load()
			measurement.NumActivePartialsProcessed[i] = e.numActivePartialsProcessed[i].Load()
		} else {
			measurement.CpuNumbers[i] = -1
			measurement.NumActivePartialsProcessed[i] = -1
		}
	}

	// Dropped silently when the embedder is not draining fast enough.
	e.measurements.TryPushBack(measurement)
}
