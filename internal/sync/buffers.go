// Package sync implements the A/V sync engine: bounded PTS-ordered
// buffers, the drift-correction step machine, and the audio jitter buffer
// between decoded audio and the AudioSink.
package sync

import "github.com/uphokaew/screen-mirror/internal/sinks"

const (
	// DefaultVideoBufferCapacity is N_v from spec.md's buffer definition.
	DefaultVideoBufferCapacity = 16
	// DefaultAudioBufferCapacity is N_a from spec.md's buffer definition.
	DefaultAudioBufferCapacity = 64
)

// FrameBuffer is a bounded FIFO of decoded video frames keyed by arrival
// order (which preserves PTS order within a kind). Overflow drops the
// oldest entry and increments Overflows.
type FrameBuffer struct {
	cap       int
	items     []sinks.DecodedFrame
	Overflows uint64
}

func NewFrameBuffer(capacity int) *FrameBuffer {
	return &FrameBuffer{cap: capacity, items: make([]sinks.DecodedFrame, 0, capacity)}
}

func (b *FrameBuffer) Push(f sinks.DecodedFrame) {
	if len(b.items) >= b.cap {
		b.items = b.items[1:]
		b.Overflows++
	}
	b.items = append(b.items, f)
}

func (b *FrameBuffer) Empty() bool { return len(b.items) == 0 }

// Peek returns the head frame without removing it.
func (b *FrameBuffer) Peek() (sinks.DecodedFrame, bool) {
	if b.Empty() {
		return sinks.DecodedFrame{}, false
	}
	return b.items[0], true
}

// Pop removes and returns the head frame.
func (b *FrameBuffer) Pop() (sinks.DecodedFrame, bool) {
	f, ok := b.Peek()
	if ok {
		b.items = b.items[1:]
	}
	return f, ok
}

func (b *FrameBuffer) Len() int { return len(b.items) }

// AudioBuffer is a bounded FIFO of decoded audio units, same overflow
// policy as FrameBuffer.
type AudioBuffer struct {
	cap       int
	items     []sinks.DecodedAudio
	Overflows uint64
}

func NewAudioBuffer(capacity int) *AudioBuffer {
	return &AudioBuffer{cap: capacity, items: make([]sinks.DecodedAudio, 0, capacity)}
}

func (b *AudioBuffer) Push(a sinks.DecodedAudio) {
	if len(b.items) >= b.cap {
		b.items = b.items[1:]
		b.Overflows++
	}
	b.items = append(b.items, a)
}

func (b *AudioBuffer) Empty() bool { return len(b.items) == 0 }

func (b *AudioBuffer) Peek() (sinks.DecodedAudio, bool) {
	if b.Empty() {
		return sinks.DecodedAudio{}, false
	}
	return b.items[0], true
}

func (b *AudioBuffer) Pop() (sinks.DecodedAudio, bool) {
	a, ok := b.Peek()
	if ok {
		b.items = b.items[1:]
	}
	return a, ok
}

func (b *AudioBuffer) Len() int { return len(b.items) }
