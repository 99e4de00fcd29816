// Copyright 2021 The Oto Authors
// Copyright 2025 Lundis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// The process can hold only one device context, so it is created once
// and shared by every OtoOutput.
var otoShared struct {
	mu         sync.Mutex
	context    *oto.Context
	sampleRate int
	err        atomicError
}

func sharedOtoContext(sampleRate int) (*oto.Context, error) {
	otoShared.mu.Lock()
	defer otoShared.mu.Unlock()

	if err := otoShared.err.Load(); err != nil {
		return nil, err
	}
	if otoShared.context != nil {
		if otoShared.sampleRate != sampleRate {
			return nil, fmt.Errorf("audio: device context is open at %d Hz, cannot reopen at %d Hz",
				otoShared.sampleRate, sampleRate)
		}
		return otoShared.context, nil
	}

	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatFloat32LE,
		BufferSize:   10 * time.Millisecond,
	})
	if err != nil {
		otoShared.err.TryStore(err)
		return nil, err
	}
	<-ready
	otoShared.context = context
	otoShared.sampleRate = sampleRate
	return context, nil
}

// OtoOutput is the default device output, pulling frames from the
// driver through an oto player.
type OtoOutput struct {
	player *oto.Player
}

func NewOtoOutput() *OtoOutput {
	return &OtoOutput{}
}

func (o *OtoOutput) Start(sampleRate int, source Source) error {
	context, err := sharedOtoContext(sampleRate)
	if err != nil {
		return err
	}
	o.player = context.NewPlayer(&float32LEReader{source: source})
	o.player.Play()
	return nil
}

func (o *OtoOutput) Stop() error {
	if o.player == nil {
		return nil
	}
	return o.player.Close()
}

// float32LEReader adapts a Source to the byte reader oto pulls from.
type float32LEReader struct {
	source  Source
	scratch [MaxNumFrames * ChannelCount]float32
}

func (r *float32LEReader) Read(p []byte) (int, error) {
	const bytesPerFrame = 4 * ChannelCount
	numFrames := len(p) / bytesPerFrame
	if numFrames > MaxNumFrames {
		numFrames = MaxNumFrames
	}
	if numFrames == 0 {
		return 0, nil
	}

	samples := r.scratch[:numFrames*ChannelCount]
	r.source.RenderInterleaved(samples)
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(sample))
	}
	return numFrames * bytesPerFrame, nil
}
