// Copyright 2022 The Oto Authors
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

import "time"

// NullOutput pulls buffers at the nominal rate and discards them. Used
// when no device is present and by tests that need the real pull
// cadence without hardware.
type NullOutput struct {
	bufferFrames int
	stop         chan struct{}
	done         chan struct{}
}

// NewNullOutput creates a null output pulling bufferFrames frames per
// iteration. Zero selects DefaultPreferredBufferSize.
func NewNullOutput(bufferFrames int) *NullOutput {
	if bufferFrames <= 0 {
		bufferFrames = DefaultPreferredBufferSize
	}
	return &NullOutput{
		bufferFrames: bufferFrames,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (o *NullOutput) Start(sampleRate int, source Source) error {
	go o.loop(sampleRate, source)
	return nil
}

func (o *NullOutput) Stop() error {
	close(o.stop)
	<-o.done
	return nil
}

func (o *NullOutput) loop(sampleRate int, source Source) {
	defer close(o.done)

	buf := make([]float32, o.bufferFrames*ChannelCount)
	sleep := time.Duration(float64(time.Second) * float64(o.bufferFrames) / float64(sampleRate))
	ticker := time.NewTicker(sleep)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			source.RenderInterleaved(buf)
		}
	}
}

// ManualOutput is an Output whose embedder pulls buffers by hand.
// Tests and offline rendering use it to drive the full render path
// deterministically.
type ManualOutput struct {
	source Source
}

func NewManualOutput() *ManualOutput {
	return &ManualOutput{}
}

func (o *ManualOutput) Start(sampleRate int, source Source) error {
	o.source = source
	return nil
}

func (o *ManualOutput) Stop() error { return nil }

// Render pulls numFrames stereo frames through the driver and returns
// them interleaved. Valid once the owning driver has been constructed.
func (o *ManualOutput) Render(numFrames int) []float32 {
	buf := make([]float32, numFrames*ChannelCount)
	o.source.RenderInterleaved(buf)
	return buf
}
