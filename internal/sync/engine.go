package sync

import "github.com/uphokaew/screen-mirror/internal/sinks"

// Action is the outcome of one sync step, consumed by the playout driver.
type Action int

const (
	WaitForVideo Action = iota
	WaitForAudio
	Continue
	DropVideoFrame
	SkipAudioSamples
)

// DefaultDriftThresholdMs is T from spec.md's sync step table.
const DefaultDriftThresholdMs = 50

// ewmaWeight is the weight on the newest sample in avg_drift's EWMA.
const ewmaWeight = 0.1

// Engine runs the drift-correction step machine over a video and an audio
// buffer.
type Engine struct {
	Video *FrameBuffer
	Audio *AudioBuffer

	DriftThresholdMs float64
	AvgDriftMs       float64

	FramesDropped  uint64
	SamplesSkipped uint64
}

// NewEngine constructs an Engine with the default buffer capacities and
// drift threshold.
func NewEngine() *Engine {
	return &Engine{
		Video:            NewFrameBuffer(DefaultVideoBufferCapacity),
		Audio:            NewAudioBuffer(DefaultAudioBufferCapacity),
		DriftThresholdMs: DefaultDriftThresholdMs,
	}
}

// Step evaluates the sync table once against the buffers' current heads.
// The caller is expected to loop Step until it returns Continue or a wait
// action, per spec.md's playout-driver contract.
func (e *Engine) Step() Action {
	vf, hasVideo := e.Video.Peek()
	if !hasVideo {
		return WaitForVideo
	}
	af, hasAudio := e.Audio.Peek()
	if !hasAudio {
		return WaitForAudio
	}

	driftMs := float64(vf.PTS-af.PTS) / 1000
	e.AvgDriftMs = ewmaWeight*driftMs + (1-ewmaWeight)*e.AvgDriftMs

	switch {
	case driftMs > e.DriftThresholdMs:
		e.Video.Pop()
		e.FramesDropped++
		return DropVideoFrame
	case driftMs < -e.DriftThresholdMs:
		e.Audio.Pop()
		e.SamplesSkipped++
		return SkipAudioSamples
	default:
		return Continue
	}
}

// PopPlayout removes and returns the synchronized head video frame and
// audio unit; call only after Step returns Continue.
func (e *Engine) PopPlayout() (sinks.DecodedFrame, sinks.DecodedAudio) {
	vf, _ := e.Video.Pop()
	af, _ := e.Audio.Pop()
	return vf, af
}
