package wire

import (
	"encoding/binary"
	"fmt"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
)

// HeaderLen is the size in bytes of the little-endian data-packet header:
// kind:u8 | pts:i64 | seq:u32 | len:u32.
const HeaderLen = 17

// MaxDataLen bounds a single packet's payload (20 MiB).
const MaxDataLen = 20 * 1024 * 1024

// Packet is the unit of media delivery shared by both transports.
type Packet struct {
	Kind Kind
	PTS  int64
	Seq  uint32
	Data []byte
}

// Serialize writes p into the little-endian 17-byte header followed by its
// payload, returning a freshly allocated buffer.
func Serialize(p Packet) []byte {
	buf := make([]byte, HeaderLen+len(p.Data))
	EncodeHeader(buf, p.Kind, p.PTS, p.Seq, uint32(len(p.Data)))
	copy(buf[HeaderLen:], p.Data)
	return buf
}

// EncodeHeader writes the 17-byte little-endian header into dst, which must
// have length >= HeaderLen.
func EncodeHeader(dst []byte, kind Kind, pts int64, seq uint32, length uint32) {
	dst[0] = byte(kind)
	binary.LittleEndian.PutUint64(dst[1:9], uint64(pts))
	binary.LittleEndian.PutUint32(dst[9:13], seq)
	binary.LittleEndian.PutUint32(dst[13:17], length)
}

// DecodeHeader parses the 17-byte little-endian header from src.
func DecodeHeader(src []byte) (kind Kind, pts int64, seq uint32, length uint32, err error) {
	if len(src) < HeaderLen {
		return 0, 0, 0, 0, protoerr.NewProtocol("wire.decode_header", fmt.Errorf("short header: %d bytes", len(src)))
	}
	k := Kind(src[0])
	if !k.valid() {
		return 0, 0, 0, 0, invalidKind(src[0])
	}
	pts = int64(binary.LittleEndian.Uint64(src[1:9]))
	seq = binary.LittleEndian.Uint32(src[9:13])
	length = binary.LittleEndian.Uint32(src[13:17])
	return k, pts, seq, length, nil
}

// Parse decodes a complete data packet (header + payload) from buf. The
// returned Packet's Data aliases buf's backing array; callers that need to
// retain it beyond the lifetime of buf must copy it.
func Parse(buf []byte) (Packet, error) {
	kind, pts, seq, length, err := DecodeHeader(buf)
	if err != nil {
		return Packet{}, err
	}
	if length > MaxDataLen {
		return Packet{}, protoerr.NewProtocol("wire.parse", fmt.Errorf("payload too large: %d bytes", length))
	}
	if uint32(len(buf)-HeaderLen) != length {
		return Packet{}, protoerr.NewProtocol("wire.parse", fmt.Errorf("payload length mismatch: header says %d, have %d", length, len(buf)-HeaderLen))
	}
	return Packet{Kind: kind, PTS: pts, Seq: seq, Data: buf[HeaderLen:]}, nil
}
