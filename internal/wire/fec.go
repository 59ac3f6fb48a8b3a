package wire

import (
	"encoding/binary"
	"fmt"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
)

// FecHeaderLen is the size in bytes of the FEC shard header carried as the
// payload of a Packet{Kind: KindFec}: block_id:u32 | shard_index:u8 | k:u8 |
// r:u8.
const FecHeaderLen = 7

// FecShard is one shard (data or parity) of an FEC block, as carried inside
// a data packet's payload when Kind == KindFec.
type FecShard struct {
	BlockID    uint32
	ShardIndex uint8
	K          uint8
	R          uint8
	Shard      []byte
}

// SerializeFecShard encodes s into a freshly allocated buffer suitable as a
// Packet's Data field.
func SerializeFecShard(s FecShard) []byte {
	buf := make([]byte, FecHeaderLen+len(s.Shard))
	binary.LittleEndian.PutUint32(buf[0:4], s.BlockID)
	buf[4] = s.ShardIndex
	buf[5] = s.K
	buf[6] = s.R
	copy(buf[FecHeaderLen:], s.Shard)
	return buf
}

// ParseFecShard decodes an FEC shard from a Packet's Data payload. The
// returned Shard aliases buf; copy it if it must outlive buf.
func ParseFecShard(buf []byte) (FecShard, error) {
	if len(buf) < FecHeaderLen {
		return FecShard{}, protoerr.NewProtocol("wire.parse_fec", fmt.Errorf("short fec header: %d bytes", len(buf)))
	}
	s := FecShard{
		BlockID:    binary.LittleEndian.Uint32(buf[0:4]),
		ShardIndex: buf[4],
		K:          buf[5],
		R:          buf[6],
		Shard:      buf[FecHeaderLen:],
	}
	if s.K == 0 {
		return FecShard{}, protoerr.NewProtocol("wire.parse_fec", fmt.Errorf("invalid k=0"))
	}
	return s, nil
}
