// Package video implements the video decoder: hardware-backend trial order,
// software fallback, and the scratch-buffer/poll contract shared by every
// backend.
package video

import (
	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
	"github.com/uphokaew/screen-mirror/internal/sinks"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

// HWHint names a decoder's requested hardware-acceleration preference.
type HWHint string

const (
	HintAuto    HWHint = "auto"
	HintVendorA HWHint = "gpu-vendor-A"
	HintVendorB HWHint = "gpu-vendor-B"
	HintVendorC HWHint = "gpu-vendor-C"
	HintNone    HWHint = "none"
)

// backend is satisfied by every concrete decoder implementation (hardware
// and software). decode appends data to the backend's own scratch buffer,
// submits it as one packet at pts, and polls once; ok reports whether a
// frame was produced, mirroring the EAGAIN/success split of the native
// decode loop this is modeled on.
type backend interface {
	name() string
	decode(data []byte, pts int64) (frame sinks.DecodedFrame, ok bool, err error)
	flush() []sinks.DecodedFrame
	close() error
}

// rescaleKey identifies a cached rescaler by the conversion it performs.
type rescaleKey struct {
	srcFmt sinks.PixelFormat
	dstFmt sinks.PixelFormat
	w, h   int
}

// Decoder is the client-facing video decoder: it owns the backend chosen at
// construction time and the rescaler cache keyed by (src_fmt, dst_fmt, w, h).
type Decoder struct {
	b         backend
	codec     wire.VideoCodec
	dstFormat sinks.PixelFormat
	rescalers map[rescaleKey]struct{}
}

// vendorTrialOrder is the order gpu-vendor backends are tried in when hint
// is HintAuto.
var vendorTrialOrder = []HWHint{HintVendorA, HintVendorB, HintVendorC}

// NewDecoder constructs a Decoder for codec, trying hardware backends in
// the order implied by hint and falling back to software when none
// construct. hint == HintNone skips hardware entirely.
func NewDecoder(hint HWHint, codec wire.VideoCodec, dstFormat sinks.PixelFormat, width, height int) (*Decoder, error) {
	var candidates []HWHint
	switch hint {
	case HintNone, "":
		// no hardware trial
	case HintAuto:
		candidates = vendorTrialOrder
	default:
		candidates = []HWHint{hint}
	}

	var chosen backend
	for _, v := range candidates {
		b, err := newGPUBackend(v, codec, width, height)
		if err == nil {
			chosen = b
			break
		}
	}
	if chosen == nil {
		chosen = newSoftwareBackend(codec, width, height)
	}

	return &Decoder{
		b:         chosen,
		codec:     codec,
		dstFormat: dstFormat,
		rescalers: make(map[rescaleKey]struct{}),
	}, nil
}

// BackendName reports the name of the backend actually in use, for
// diagnostics.
func (d *Decoder) BackendName() string { return d.b.name() }

// Decode feeds data into the scratch buffer at pts and polls once. ok is
// false on EAGAIN (more data needed); a non-nil error is a DecodeError for
// this packet only, and the decoder accepts further packets afterwards.
func (d *Decoder) Decode(data []byte, pts int64) (sinks.DecodedFrame, bool, error) {
	frame, ok, err := d.b.decode(data, pts)
	if err != nil {
		return sinks.DecodedFrame{}, false, protoerr.NewDecode("video.decode", err)
	}
	if ok {
		frame = d.rescale(frame)
	}
	return frame, ok, nil
}

// Flush drains any frames buffered inside the backend.
func (d *Decoder) Flush() []sinks.DecodedFrame {
	frames := d.b.flush()
	for i := range frames {
		frames[i] = d.rescale(frames[i])
	}
	return frames
}

// Close releases the backend.
func (d *Decoder) Close() error { return d.b.close() }

// rescale converts frame to the decoder's configured output format,
// recording the (src,dst,w,h) combination in the cache. The conversion math
// itself is out of scope; the cache only tracks which conversions have been
// requested so a repeat request is recognized as already-seen.
func (d *Decoder) rescale(frame sinks.DecodedFrame) sinks.DecodedFrame {
	key := rescaleKey{srcFmt: frame.Format, dstFmt: d.dstFormat, w: frame.Width, h: frame.Height}
	d.rescalers[key] = struct{}{}
	frame.Format = d.dstFormat
	return frame
}
