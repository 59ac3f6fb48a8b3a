package video

import (
	"github.com/uphokaew/screen-mirror/internal/sinks"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

// softwareBackend is the always-available fallback decoder. It accumulates
// submitted bytes in a scratch buffer and recognizes access-unit boundaries
// by NAL start codes, mirroring how an Annex-B bitstream is split into
// access units before the actual slice-decode step. Pixel reconstruction
// is not implemented; the frame returned once an access unit is complete
// carries the declared geometry with a zeroed plane buffer of the correct
// size, since bitstream decode math is out of scope here.
type softwareBackend struct {
	codec       wire.VideoCodec
	width       int
	height      int
	scratch     []byte
	pending     int64
	havePending bool
}

func newSoftwareBackend(codec wire.VideoCodec, width, height int) backend {
	return &softwareBackend{codec: codec, width: width, height: height}
}

func (s *softwareBackend) name() string { return "software" }

// decode appends data to the scratch buffer. A complete access unit is
// recognized once a second NAL start code appears after the first
// (indicating the next unit has begun); the bytes up to that boundary are
// emitted as a frame and the new unit seeds the next scratch buffer.
func (s *softwareBackend) decode(data []byte, pts int64) (sinks.DecodedFrame, bool, error) {
	if !s.havePending {
		s.pending = pts
		s.havePending = true
	}
	s.scratch = append(s.scratch, data...)

	boundary := nextAccessUnitBoundary(s.scratch)
	if boundary <= 0 {
		return sinks.DecodedFrame{}, false, nil
	}

	frame := sinks.DecodedFrame{
		PTS:    s.pending,
		Width:  s.width,
		Height: s.height,
		Format: sinks.FormatYUV420P,
		Data:   make([]byte, planeSize(s.width, s.height)),
	}

	s.scratch = append([]byte{}, s.scratch[boundary:]...)
	s.havePending = false
	return frame, true, nil
}

func (s *softwareBackend) flush() []sinks.DecodedFrame {
	if len(s.scratch) == 0 {
		return nil
	}
	frame := sinks.DecodedFrame{
		PTS:    s.pending,
		Width:  s.width,
		Height: s.height,
		Format: sinks.FormatYUV420P,
		Data:   make([]byte, planeSize(s.width, s.height)),
	}
	s.scratch = nil
	s.havePending = false
	return []sinks.DecodedFrame{frame}
}

func (s *softwareBackend) close() error { return nil }

// nextAccessUnitBoundary scans buf for a second NAL start code (the start
// of the unit following the first), returning its offset, or 0 if the
// buffer holds at most one start code so far.
func nextAccessUnitBoundary(buf []byte) int {
	first := indexStartCode(buf, 0)
	if first < 0 {
		return 0
	}
	// Resume three bytes past the first start code so a 4-byte code is not
	// found again as a 3-byte code one byte later.
	next := indexStartCode(buf, first+3)
	if next < 0 {
		return 0
	}
	return next
}

// indexStartCode returns the offset of the first NAL start code (3- or
// 4-byte) at or after from, or -1 if none is present.
func indexStartCode(buf []byte, from int) int {
	for i := from; i+3 <= len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 {
			if i+4 <= len(buf) && buf[i+2] == 0 && buf[i+3] == 1 {
				return i
			}
			if buf[i+2] == 1 {
				return i
			}
		}
	}
	return -1
}

// planeSize approximates a YUV 4:2:0 frame's contiguous plane size
// (Y plus half-resolution U/V, rows cropped to width).
func planeSize(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	return width*height + 2*((width+1)/2)*((height+1)/2)
}
