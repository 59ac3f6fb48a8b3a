// Package fec implements the Reed-Solomon erasure coder used by the
// datagram transport: a block-buffering encoder that emits parity packets,
// and a TTL-evicted decoder cache that reconstructs missing data shards.
package fec

import (
	"sync"

	"github.com/klauspost/reedsolomon"

	"github.com/uphokaew/screen-mirror/internal/bufpool"
	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

// Encoder buffers up to k packets per block and emits r parity packets once
// the block fills, per the Reed-Solomon geometry negotiated at connect time.
type Encoder struct {
	k, r int
	rs   reedsolomon.Encoder

	mu      sync.Mutex
	blockID uint32
	buf     []wire.Packet
}

// NewEncoder constructs an Encoder for the given (k, r) block geometry.
func NewEncoder(k, r int) (*Encoder, error) {
	rs, err := reedsolomon.New(k, r)
	if err != nil {
		return nil, protoerr.NewProtocol("fec.new_encoder", err)
	}
	return &Encoder{k: k, r: r, rs: rs, buf: make([]wire.Packet, 0, k)}, nil
}

// Encode appends packet to the current block buffer. Once the buffer holds
// k entries it runs Reed-Solomon and returns r parity packets tagged with
// the current block id; otherwise it returns no packets.
func (e *Encoder) Encode(p wire.Packet) ([]wire.Packet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buf = append(e.buf, p)
	if len(e.buf) < e.k {
		return nil, nil
	}
	return e.flushBlockLocked()
}

// Flush emits parity for a partially-filled block, padding with empty Video
// packets up to k entries. It is a no-op if the buffer is empty.
func (e *Encoder) Flush() ([]wire.Packet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.buf) == 0 {
		return nil, nil
	}
	for len(e.buf) < e.k {
		e.buf = append(e.buf, wire.Packet{Kind: wire.KindVideo})
	}
	return e.flushBlockLocked()
}

func (e *Encoder) flushBlockLocked() ([]wire.Packet, error) {
	shards := make([][]byte, e.k+e.r)
	maxLen := 0
	for i := 0; i < e.k; i++ {
		raw := wire.Serialize(e.buf[i])
		shards[i] = raw
		if len(raw) > maxLen {
			maxLen = len(raw)
		}
	}
	for i := 0; i < e.k; i++ {
		shards[i] = padTo(shards[i], maxLen)
	}
	// Parity shards are pure scratch: Reed-Solomon fills them in and
	// SerializeFecShard copies the result into the outgoing packet, so the
	// pool buffer is returned before this call ends.
	for i := e.k; i < e.k+e.r; i++ {
		shards[i] = bufpool.Get(maxLen)
	}

	if err := e.rs.Encode(shards); err != nil {
		for i := e.k; i < e.k+e.r; i++ {
			bufpool.Put(shards[i])
		}
		return nil, protoerr.NewProtocol("fec.encode", err)
	}

	blockID := e.blockID
	e.blockID++
	e.buf = e.buf[:0]

	out := make([]wire.Packet, e.r)
	for i := 0; i < e.r; i++ {
		shard := wire.FecShard{
			BlockID:    blockID,
			ShardIndex: uint8(e.k + i),
			K:          uint8(e.k),
			R:          uint8(e.r),
			Shard:      shards[e.k+i],
		}
		out[i] = wire.Packet{Kind: wire.KindFec, Data: wire.SerializeFecShard(shard)}
		bufpool.Put(shards[e.k+i])
	}
	return out, nil
}

func padTo(b []byte, n int) []byte {
	if len(b) == n {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
