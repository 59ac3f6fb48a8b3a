package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/uphokaew/screen-mirror/internal/bufpool"
	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
)

// StreamFrameHeaderLen is the size of the big-endian stream-transport frame
// header used on the wired path: pts:u64_be | len:u32_be.
const StreamFrameHeaderLen = 12

// DeviceNameLen is the fixed-width, NUL-trimmed device name field read once
// at the start of a stream-transport video-socket handshake.
const DeviceNameLen = 64

// WriteStreamFrame writes a single stream-transport frame (big-endian
// pts:u64 | len:u32 | payload) to w.
func WriteStreamFrame(w io.Writer, pts int64, data []byte) error {
	hdr := make([]byte, StreamFrameHeaderLen)
	binary.BigEndian.PutUint64(hdr[0:8], uint64(pts))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(data)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

// ReadStreamFrame reads one big-endian stream-transport frame from r. The
// kind is not encoded on the wire; the caller assigns it based on which
// socket the frame arrived on. The payload is drawn from the shared buffer
// pool since this runs on the hot per-packet receive path; callers that
// finish with it synchronously (a decoder that copies out before
// returning) should release it with bufpool.Put.
func ReadStreamFrame(r io.Reader) (pts int64, data []byte, err error) {
	hdr := make([]byte, StreamFrameHeaderLen)
	if _, err = io.ReadFull(r, hdr); err != nil {
		return 0, nil, err
	}
	pts = int64(binary.BigEndian.Uint64(hdr[0:8]))
	length := binary.BigEndian.Uint32(hdr[8:12])
	if length > MaxDataLen {
		return 0, nil, protoerr.NewProtocol("wire.read_stream_frame", fmt.Errorf("payload too large: %d bytes", length))
	}
	data = bufpool.Get(int(length))
	if length > 0 {
		if _, err = io.ReadFull(r, data); err != nil {
			return 0, nil, err
		}
	}
	return pts, data, nil
}

// ReadDeviceName reads the fixed 64-byte device-name field and trims
// trailing NUL bytes.
func ReadDeviceName(r io.Reader) (string, error) {
	buf := make([]byte, DeviceNameLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return string(buf[:end]), nil
}

// VideoMetadata is the 12-byte big-endian block read on the video socket
// immediately after the 1 dummy byte during handshake.
type VideoMetadata struct {
	CodecID uint32
	Width   uint32
	Height  uint32
}

// ReadVideoMetadata reads the 1 dummy byte followed by 12 bytes of video
// metadata (codec_id, width, height), all big-endian.
func ReadVideoMetadata(r io.Reader) (VideoMetadata, error) {
	var dummy [1]byte
	if _, err := io.ReadFull(r, dummy[:]); err != nil {
		return VideoMetadata{}, err
	}
	buf := make([]byte, 12)
	if _, err := io.ReadFull(r, buf); err != nil {
		return VideoMetadata{}, err
	}
	return VideoMetadata{
		CodecID: binary.BigEndian.Uint32(buf[0:4]),
		Width:   binary.BigEndian.Uint32(buf[4:8]),
		Height:  binary.BigEndian.Uint32(buf[8:12]),
	}, nil
}

// ReadAudioCodecID reads the 4-byte big-endian audio codec id sent once on
// the audio socket during handshake. A value of zero means the device
// server refused audio.
func ReadAudioCodecID(r io.Reader) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}
