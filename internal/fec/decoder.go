package fec

import (
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/reedsolomon"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

// blockTTL is how long a block may sit in the decoder cache without being
// fully received before it is evicted.
const blockTTL = 10 * time.Second

// cleanupInterval bounds how often the eviction sweep runs.
const cleanupInterval = 5 * time.Second

type block struct {
	k, r           int
	data           [][]byte
	parity         [][]byte
	receivedData   int
	receivedParity int
	createdAt      time.Time
	recovered      bool
}

// Decoder reconstructs data shards from a mix of data and parity packets
// delivered in any order, caching partial blocks by block id.
type Decoder struct {
	k, r int
	rs   reedsolomon.Encoder

	mu          sync.Mutex
	blocks      map[uint32]*block
	lastCleanup time.Time
}

// NewDecoder constructs a Decoder for the given (k, r) block geometry.
func NewDecoder(k, r int) (*Decoder, error) {
	rs, err := reedsolomon.New(k, r)
	if err != nil {
		return nil, protoerr.NewProtocol("fec.new_decoder", err)
	}
	return &Decoder{k: k, r: r, rs: rs, blocks: make(map[uint32]*block)}, nil
}

// AddData routes a received data shard (the serialized Packet bytes for
// sequence number seq) into its block's cache entry, attempting recovery if
// the block now has enough shards.
func (d *Decoder) AddData(seq uint32, raw []byte) ([]wire.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanupLocked()

	blockID := seq / uint32(d.k)
	idx := int(seq % uint32(d.k))
	b := d.getOrCreateLocked(blockID)
	if b.recovered {
		return nil, nil
	}
	if b.data[idx] == nil {
		b.data[idx] = raw
		b.receivedData++
	}
	return d.maybeRecoverLocked(b)
}

// AddFec routes a received parity shard into its block's cache entry.
func (d *Decoder) AddFec(shard wire.FecShard) ([]wire.Packet, error) {
	if int(shard.K) != d.k || int(shard.R) != d.r {
		return nil, protoerr.NewProtocol("fec.add_fec", fmt.Errorf("geometry mismatch: got k=%d r=%d, want k=%d r=%d", shard.K, shard.R, d.k, d.r))
	}
	parityIdx := int(shard.ShardIndex) - d.k
	if parityIdx < 0 || parityIdx >= d.r {
		return nil, protoerr.NewProtocol("fec.add_fec", fmt.Errorf("shard index %d out of parity range", shard.ShardIndex))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanupLocked()

	b := d.getOrCreateLocked(shard.BlockID)
	if b.recovered {
		return nil, nil
	}
	if b.parity[parityIdx] == nil {
		b.parity[parityIdx] = shard.Shard
		b.receivedParity++
	}
	return d.maybeRecoverLocked(b)
}

func (d *Decoder) getOrCreateLocked(id uint32) *block {
	b, ok := d.blocks[id]
	if ok {
		return b
	}
	b = &block{
		k:         d.k,
		r:         d.r,
		data:      make([][]byte, d.k),
		parity:    make([][]byte, d.r),
		createdAt: time.Now(),
	}
	d.blocks[id] = b
	return b
}

// maybeRecoverLocked runs Reed-Solomon reconstruction if the block has
// enough shards and at least one data shard is still missing. A block
// already fully received is marked recovered without reconstruction.
func (d *Decoder) maybeRecoverLocked(b *block) ([]wire.Packet, error) {
	if b.recovered {
		return nil, nil
	}
	if b.receivedData >= d.k {
		b.recovered = true
		return nil, nil
	}
	if b.receivedData+b.receivedParity < d.k {
		return nil, nil
	}

	shards := make([][]byte, d.k+d.r)
	maxLen := 0
	for _, s := range b.data {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	for _, s := range b.parity {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	for i, s := range b.data {
		if s != nil {
			shards[i] = padTo(s, maxLen)
		}
	}
	for i, s := range b.parity {
		if s != nil {
			shards[d.k+i] = padTo(s, maxLen)
		}
	}

	missing := make([]int, 0, d.k)
	for i := 0; i < d.k; i++ {
		if b.data[i] == nil {
			missing = append(missing, i)
		}
	}

	if err := d.rs.Reconstruct(shards); err != nil {
		// Reconstruction failure: block stays unrecovered and is not retried
		// until a new shard arrives changes the receive count again.
		return nil, protoerr.NewProtocol("fec.reconstruct", err)
	}

	b.recovered = true
	recovered := make([]wire.Packet, 0, len(missing))
	for _, i := range missing {
		pkt, err := wire.Parse(unpad(shards[i]))
		if err != nil {
			continue
		}
		recovered = append(recovered, pkt)
	}
	return recovered, nil
}

// unpad trims the zero padding appended at encode time, recomputing the
// true frame length from the header's len field rather than transmitting it.
func unpad(padded []byte) []byte {
	_, _, _, length, err := wire.DecodeHeader(padded)
	if err != nil {
		return padded
	}
	total := wire.HeaderLen + int(length)
	if total > len(padded) {
		return padded
	}
	return padded[:total]
}

// cleanupLocked evicts blocks older than blockTTL, rate-limited to at most
// once per cleanupInterval.
func (d *Decoder) cleanupLocked() {
	now := time.Now()
	if !d.lastCleanup.IsZero() && now.Sub(d.lastCleanup) < cleanupInterval {
		return
	}
	d.lastCleanup = now
	for id, b := range d.blocks {
		if now.Sub(b.createdAt) > blockTTL {
			delete(d.blocks, id)
		}
	}
}
