package audioperf

import (
	"sync/atomic"

	"github.com/Lundis/go-audioperf/audio"
)

// ParallelSineBank renders a fixed list of partials across several
// threads. Work is distributed by stealing: every processing thread
// claims fixed-size chunks of the partial list through a single atomic
// counter and renders them into its own scratch buffer; the driver
// thread sums the scratch buffers afterwards.
//
// The partial list is sorted ascending by phase increment and the
// first numActivePartials entries are the audible ones, so active work
// is always at the front.
type ParallelSineBank struct {
	partials []Partial
	buffers  []audio.StereoBuffer

	numActivePartials atomic.Int32
	numTakenPartials  atomic.Int32
}

// SetNumThreads resizes the per-thread scratch buffers. Only callable
// while no audio is being processed.
func (b *ParallelSineBank) SetNumThreads(numThreads int) {
	if numThreads < 0 {
		panic("audioperf: invalid number of threads")
	}
	for len(b.buffers) < numThreads {
		b.buffers = append(b.buffers, audio.NewStereoBuffer())
	}
	b.buffers = b.buffers[:numThreads]
}

// Partials returns the partial list.
func (b *ParallelSineBank) Partials() []Partial { return b.partials }

// SetPartials replaces the partial list. The list must already be
// sorted ascending by phase increment. Only callable while no audio is
// being processed.
func (b *ParallelSineBank) SetPartials(partials []Partial) {
	b.partials = partials
}

// Prepare readies the bank for one buffer: it publishes the active
// partial count, zeroes every scratch buffer and resets the claim
// counter. Called by the driver thread before workers are woken.
func (b *ParallelSineBank) Prepare(numActivePartials, numFrames int) {
	if numActivePartials < 0 {
		panic("audioperf: invalid number of active partials")
	}
	if numFrames <= 0 || numFrames > audio.MaxNumFrames {
		panic("audioperf: invalid number of frames")
	}

	b.numActivePartials.Store(int32(numActivePartials))
	b.numTakenPartials.Store(0)

	for i := range b.buffers {
		b.buffers[i].Zero(numFrames)
	}
}

// Process renders partials into thread threadIndex's scratch buffer
// until the partial list is exhausted, claiming
// NumPartialsPerProcessingChunk partials per atomic increment. It
// returns the number of active partials this thread processed.
func (b *ParallelSineBank) Process(threadIndex, numFrames int) int {
	if threadIndex < 0 || threadIndex >= len(b.buffers) {
		panic("audioperf: invalid thread index")
	}
	if numFrames <= 0 || numFrames > audio.MaxNumFrames {
		panic("audioperf: invalid number of frames")
	}

	stereoBuffer := b.buffers[threadIndex]
	numActivePartials := int(b.numActivePartials.Load())

	numActivePartialsProcessed := 0
	for {
		partialEndIndex := int(b.numTakenPartials.Add(NumPartialsPerProcessingChunk))
		partialStartIndex := partialEndIndex - NumPartialsPerProcessingChunk
		if partialStartIndex >= len(b.partials) {
			break
		}
		if partialEndIndex > len(b.partials) {
			partialEndIndex = len(b.partials)
		}

		for partialIndex := partialStartIndex; partialIndex < partialEndIndex; partialIndex++ {
			partial := &b.partials[partialIndex]
			if partialIndex < numActivePartials {
				partial.TargetAmp = partial.AmpWhenActive
				numActivePartialsProcessed++
			} else {
				partial.TargetAmp = 0
			}
			processPartial(partial, numFrames, stereoBuffer)
		}
	}

	return numActivePartialsProcessed
}

// MixTo accumulates every scratch buffer into dest. Called by the
// driver thread after all workers have finished; dest must have been
// zeroed by the caller.
func (b *ParallelSineBank) MixTo(dest audio.StereoBuffer, numFrames int) {
	if numFrames <= 0 || numFrames > audio.MaxNumFrames {
		panic("audioperf: invalid number of frames")
	}

	for i := range b.buffers {
		for frame := 0; frame < numFrames; frame++ {
			dest.Left[frame] += b.buffers[i].Left[frame]
			dest.Right[frame] += b.buffers[i].Right[frame]
		}
	}
}
