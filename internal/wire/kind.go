// Package wire implements the on-wire packet framing shared by both
// transports: the little-endian data-packet header, the FEC shard payload,
// the big-endian stream-transport frame, the IDR keyframe predicate, and the
// self-describing control-message encoding.
package wire

import (
	"fmt"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
)

// Kind tags the payload carried by a Packet.
type Kind uint8

const (
	KindVideo     Kind = 1
	KindAudio     Kind = 2
	KindControl   Kind = 3
	KindFec       Kind = 4
	KindHandshake Kind = 5
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindControl:
		return "control"
	case KindFec:
		return "fec"
	case KindHandshake:
		return "handshake"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindVideo, KindAudio, KindControl, KindFec, KindHandshake:
		return true
	default:
		return false
	}
}

func invalidKind(k uint8) error {
	return protoerr.NewProtocol("wire.parse", fmt.Errorf("invalid kind: %d", k))
}
