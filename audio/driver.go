// Package audio is the driver layer of the engine: it owns the
// platform output, pulls buffers from the device, and hands them to a
// render callback together with a capture buffer and a host time.
package audio

import (
	"errors"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lundis/go-audioperf/spsc"
)

// Status describes the lifecycle state of a Driver.
type Status int32

const (
	StatusStopped Status = iota
	StatusStarted
	// StatusInvalid is terminal: device setup failed or the driver was
	// closed, and the render callback will never fire.
	StatusInvalid
)

// DefaultSampleRate is requested from the device when the embedder
// does not choose a rate.
const DefaultSampleRate = 48000

// RenderCallback renders one buffer. hostTime is the buffer
// presentation time in seconds on the driver's monotonic timebase.
// The callback owns output for the duration of the call and must fill
// the first numFrames frames. Returning an error silences the buffer.
//
// The callback runs at real-time priority: it must not allocate, log,
// block on anything but the host's completion semaphore, or do
// unbounded work.
type RenderCallback func(hostTime float64, numFrames int, input, output StereoBuffer) error

// Config configures a Driver at construction.
type Config struct {
	PreferredBufferSize int
	SampleRate          int
	IsInputEnabled      bool
	OutputVolume        float32

	// Output overrides the platform output. Used by tests and offline
	// rendering; nil selects the default device output.
	Output Output

	// InputSource feeds the capture buffer when input is enabled.
	InputSource InputSource
}

// FadeCommand asks the render thread to ramp the output volume. It
// travels through a bounded SPSC queue so that volume changes are
// real-time safe.
type FadeCommand struct {
	TargetOutputVolume float32
	NumFrames          uint64
}

const fadeCommandQueueSize = 16

// Driver owns the platform audio output and runs the render callback
// for every buffer the device pulls.
//
// Start and Stop do not touch the device. They release and acquire a
// mutex that the render path try-locks: while stopped, the device
// keeps pulling but every render is a silent no-op. This is faster
// than toggling the device and keeps teardown free of data races.
type Driver struct {
	renderCallback RenderCallback
	commandQueue   *spsc.Queue[FadeCommand]
	fader          VolumeFader

	output      Output
	inputSource InputSource

	sampleRate          float64
	preferredBufferSize atomic.Int32
	isInputEnabled      atomic.Bool
	outputVolume        atomic.Uint32 // float32 bits; control-side copy
	status              atomic.Int32

	inputBuffer  StereoBuffer
	outputBuffer StereoBuffer

	startTime time.Time

	// Held while the driver is stopped. The render path try-locks it.
	renderMu sync.Mutex

	// Serializes the control API (Start, Stop, setters).
	controlMu sync.Mutex
}

// NewDriver creates a driver and opens the output device. The device
// starts pulling immediately, but every buffer is silent until Start.
// On device failure the returned driver is in StatusInvalid: Start is
// a no-op and the render callback never fires.
func NewDriver(renderCallback RenderCallback, config Config) (*Driver, error) {
	if config.PreferredBufferSize == 0 {
		config.PreferredBufferSize = DefaultPreferredBufferSize
	}
	if config.SampleRate == 0 {
		config.SampleRate = DefaultSampleRate
	}
	if err := validateBufferSize(config.PreferredBufferSize); err != nil {
		return nil, err
	}

	d := &Driver{
		renderCallback: renderCallback,
		commandQueue:   spsc.NewQueue[FadeCommand](fadeCommandQueueSize),
		fader:          NewVolumeFader(),
		output:         config.Output,
		inputSource:    config.InputSource,
		sampleRate:     float64(config.SampleRate),
		inputBuffer:    NewStereoBuffer(),
		outputBuffer:   NewStereoBuffer(),
		startTime:      time.Now(),
	}
	d.preferredBufferSize.Store(int32(config.PreferredBufferSize))
	d.isInputEnabled.Store(config.IsInputEnabled)
	volume := config.OutputVolume
	if volume == 0 {
		volume = 1
	}
	d.outputVolume.Store(math.Float32bits(volume))
	d.fader.FadeTo(volume, 0)

	if d.output == nil {
		d.output = newDefaultOutput()
	}

	// Stopped until Start releases the lock.
	d.renderMu.Lock()

	if err := d.output.Start(config.SampleRate, d); err != nil {
		d.status.Store(int32(StatusInvalid))
		log.Printf("audio: output setup failed: %v", err)
		return d, err
	}
	return d, nil
}

func validateBufferSize(numFrames int) error {
	if numFrames < 64 || numFrames > MaxNumFrames || numFrames&(numFrames-1) != 0 {
		return errors.New("audio: buffer size must be a power of two in [64, 4096]")
	}
	return nil
}

// Close stops the output device. The driver cannot be restarted.
func (d *Driver) Close() {
	d.controlMu.Lock()
	defer d.controlMu.Unlock()

	if Status(d.status.Load()) == StatusStarted {
		d.renderMu.Lock()
		d.status.Store(int32(StatusStopped))
	}
	if err := d.output.Stop(); err != nil {
		log.Printf("audio: output teardown failed: %v", err)
	}
	d.status.Store(int32(StatusInvalid))
}

// Start lets the render callback fire. A no-op when already started or
// invalid.
func (d *Driver) Start() {
	d.controlMu.Lock()
	defer d.controlMu.Unlock()

	if Status(d.status.Load()) != StatusStopped {
		return
	}
	d.status.Store(int32(StatusStarted))
	d.renderMu.Unlock()
}

// Stop silences the driver. It blocks until any in-flight render has
// finished. A no-op when not started.
func (d *Driver) Stop() {
	d.controlMu.Lock()
	defer d.controlMu.Unlock()

	if Status(d.status.Load()) != StatusStarted {
		return
	}
	d.renderMu.Lock()
	d.status.Store(int32(StatusStopped))
}

// Status returns the lifecycle state.
func (d *Driver) Status() Status {
	return Status(d.status.Load())
}

// SampleRate returns the negotiated sample rate. Cached: readable from
// the real-time thread.
func (d *Driver) SampleRate() float64 {
	return d.sampleRate
}

// NominalBufferDuration is the expected wall time of one buffer.
// Cached: readable from the real-time thread.
func (d *Driver) NominalBufferDuration() time.Duration {
	frames := float64(d.preferredBufferSize.Load())
	return time.Duration(frames / d.sampleRate * float64(time.Second))
}

// PreferredBufferSize returns the requested buffer size in frames.
func (d *Driver) PreferredBufferSize() int {
	return int(d.preferredBufferSize.Load())
}

// SetPreferredBufferSize requests a new buffer size. The actual size
// must be reobserved through subsequent render callbacks.
func (d *Driver) SetPreferredBufferSize(numFrames int) error {
	if err := validateBufferSize(numFrames); err != nil {
		return err
	}
	d.preferredBufferSize.Store(int32(numFrames))
	return nil
}

// IsInputEnabled reports whether the capture buffer is fed.
func (d *Driver) IsInputEnabled() bool {
	return d.isInputEnabled.Load()
}

// SetIsInputEnabled switches the capture path. The switch quiesces the
// render thread and may block for a moment.
func (d *Driver) SetIsInputEnabled(isEnabled bool) {
	d.controlMu.Lock()
	defer d.controlMu.Unlock()

	if d.isInputEnabled.Load() == isEnabled {
		return
	}
	// Quiesce the render path so the input buffer can be reset without
	// a race.
	wasStarted := Status(d.status.Load()) == StatusStarted
	if wasStarted {
		d.renderMu.Lock()
	}
	d.isInputEnabled.Store(isEnabled)
	d.inputBuffer.Zero(MaxNumFrames)
	if wasStarted {
		d.renderMu.Unlock()
	}
}

// OutputVolume returns the most recently requested output volume.
func (d *Driver) OutputVolume() float32 {
	return math.Float32frombits(d.outputVolume.Load())
}

// SetOutputVolume fades the output to volume over fadeDuration. Safe
// to call from any single non-real-time thread: the change travels to
// the render thread through a bounded command queue and is dropped
// silently if the queue is full.
func (d *Driver) SetOutputVolume(volume float32, fadeDuration time.Duration) {
	if volume < 0 {
		volume = 0
	}
	d.outputVolume.Store(math.Float32bits(volume))
	d.commandQueue.TryPushBack(FadeCommand{
		TargetOutputVolume: volume,
		NumFrames:          uint64(fadeDuration.Seconds() * d.sampleRate),
	})
}

// RenderInterleaved fills interleaved with stereo frames. It is the
// pull entry point for outputs; embedders never call it. Buffers
// larger than the preferred size are rendered in preferred-size
// blocks.
func (d *Driver) RenderInterleaved(interleaved []float32) {
	frames := len(interleaved) / ChannelCount
	offset := 0
	for frames > 0 {
		block := int(d.preferredBufferSize.Load())
		if block > frames {
			block = frames
		}
		d.renderBlock(interleaved[offset*ChannelCount : (offset+block)*ChannelCount])
		offset += block
		frames -= block
	}
}

func (d *Driver) renderBlock(interleaved []float32) {
	numFrames := len(interleaved) / ChannelCount

	if !d.renderMu.TryLock() {
		zeroInterleaved(interleaved)
		return
	}
	defer d.renderMu.Unlock()

	hostTime := time.Since(d.startTime).Seconds()

	for cmd := d.commandQueue.Front(); cmd != nil; cmd = d.commandQueue.Front() {
		d.fader.FadeTo(cmd.TargetOutputVolume, cmd.NumFrames)
		d.commandQueue.PopFront()
	}

	if d.isInputEnabled.Load() && d.inputSource != nil {
		d.inputSource.ReadInput(d.inputBuffer.Left, d.inputBuffer.Right, numFrames)
	}

	if d.renderCallback == nil || d.renderCallback(hostTime, numFrames, d.inputBuffer, d.outputBuffer) != nil {
		d.outputBuffer.Zero(numFrames)
	}

	d.fader.Process(d.outputBuffer, numFrames)

	for i := 0; i < numFrames; i++ {
		interleaved[i*ChannelCount] = d.outputBuffer.Left[i]
		interleaved[i*ChannelCount+1] = d.outputBuffer.Right[i]
	}
}

func zeroInterleaved(interleaved []float32) {
	for i := range interleaved {
		interleaved[i] = 0
	}
}
