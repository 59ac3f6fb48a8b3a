// Package sinks declares the external collaborators the data plane
// consumes but never implements: the GPU-backed frame presenter, the host
// audio output, the device-server launcher, and the timing source used by
// the bitrate controller.
package sinks

import "context"

// PixelFormat names the layout of a DecodedFrame's pixel data.
type PixelFormat int

const (
	FormatYUV420P PixelFormat = iota
	FormatNV12
	FormatRGBA
)

// DecodedFrame is a decoded video unit ready for presentation.
type DecodedFrame struct {
	PTS    int64
	Width  int
	Height int
	Format PixelFormat
	Data   []byte
}

// DecodedAudio is a decoded audio unit, samples interleaved by channel as
// f32.
type DecodedAudio struct {
	PTS        int64
	SampleRate int
	Channels   int
	Samples    []float32
}

// FrameSink presents a decoded frame to the GPU-backed window. Present is
// synchronous and returns before the next frame is handed over; the sink is
// responsible for its own pacing.
type FrameSink interface {
	Present(f DecodedFrame) error
}

// AudioSink is a pull-model collaborator driven by the host audio thread.
// Pull is invoked with the number of samples needed and must return exactly
// that many; the core fills it from the jitter buffer.
type AudioSink interface {
	Pull(samplesNeeded int) []float32
}

// Clock is used only for bitrate-controller timing, never for A/V sync
// (which uses device PTS exclusively).
type Clock interface {
	NowMicros() int64
}

// DeviceServerConfig describes what DeviceServerLauncher.Launch needs to
// start the remote device process.
type DeviceServerConfig struct {
	TransportKind  string // "stream" or "datagram"
	VideoCodec     string
	AudioCodec     string
	BitrateMbps    uint32
	Width, Height  uint32
}

// DeviceServerLauncher is the prerequisite collaborator that pushes the
// server payload to the device and opens the transport tunnel before the
// core ever dials it.
type DeviceServerLauncher interface {
	Launch(ctx context.Context, cfg DeviceServerConfig, deviceSerial string) error
}
