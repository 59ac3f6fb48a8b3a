package audio

import (
	"fmt"

	"github.com/thesyncim/gopus"

	"github.com/uphokaew/screen-mirror/internal/sinks"
)

// opusDecoder is the dedicated Opus path. gopus decodes into a
// caller-provided f32 buffer sized to the largest possible frame and
// reports back how many samples were actually written.
type opusDecoder struct {
	native     *gopus.Decoder
	sampleRate int
	channels   int
	pcm        []float32
}

func newOpusDecoder(sampleRate, channels int) (Decoder, error) {
	if !validOpusChannels[channels] {
		return nil, unsupported("audio.opus.new", fmt.Errorf("unsupported channel count %d", channels))
	}
	if !validOpusSampleRates[sampleRate] {
		return nil, unsupported("audio.opus.new", fmt.Errorf("unsupported sample rate %d", sampleRate))
	}

	native, err := gopus.NewDecoder(gopus.DefaultDecoderConfig(sampleRate, channels))
	if err != nil {
		return nil, unsupported("audio.opus.new", err)
	}
	return &opusDecoder{
		native:     native,
		sampleRate: sampleRate,
		channels:   channels,
		pcm:        make([]float32, opusFrameSamples*channels),
	}, nil
}

func (d *opusDecoder) Decode(data []byte, pts int64) (sinks.DecodedAudio, error) {
	n, err := d.native.Decode(data, d.pcm)
	if err != nil {
		return sinks.DecodedAudio{}, fmt.Errorf("opus decode: %w", err)
	}

	samples := make([]float32, n)
	copy(samples, d.pcm[:n])

	return sinks.DecodedAudio{
		PTS:        pts,
		SampleRate: d.sampleRate,
		Channels:   d.channels,
		Samples:    samples,
	}, nil
}

func (d *opusDecoder) Close() error { return nil }
