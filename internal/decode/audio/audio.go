// Package audio implements the audio decoder: a dedicated Opus path and a
// generic named-codec path (AAC, FLAC, PCM, MP3), each converting to
// channel-interleaved f32 samples.
package audio

import (
	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
	"github.com/uphokaew/screen-mirror/internal/sinks"
)

// opusFrameSamples is the largest Opus frame size (120ms at 48kHz) per
// channel; the dedicated path's output buffer is sized to this.
const opusFrameSamples = 5760

var validOpusChannels = map[int]bool{1: true, 2: true}
var validOpusSampleRates = map[int]bool{8000: true, 12000: true, 16000: true, 24000: true, 48000: true}

// Decoder decodes one compressed audio frame at a time into f32 samples.
type Decoder interface {
	Decode(data []byte, pts int64) (sinks.DecodedAudio, error)
	Close() error
}

// NewDecoder constructs a Decoder for codec. codec == "opus" uses the
// dedicated path with its channel/rate validation; any other name uses the
// generic named-codec path.
func NewDecoder(codec string, sampleRate, channels int) (Decoder, error) {
	if codec == "opus" {
		return newOpusDecoder(sampleRate, channels)
	}
	return newGenericDecoder(codec, sampleRate, channels)
}

// normalizeS16 converts a little-endian s16 sample to f32 in [-1, 1).
func normalizeS16(lo, hi byte) float32 {
	v := int16(uint16(lo) | uint16(hi)<<8)
	return float32(v) / 32768
}

// normalizeU8 converts an unsigned 8-bit sample to f32 in [-1, 1).
func normalizeU8(b byte) float32 {
	return (float32(b) - 128) / 128
}

func unsupported(op string, cause error) error { return protoerr.NewUnsupported(op, cause) }
