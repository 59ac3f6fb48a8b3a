package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFecShardRoundTrip(t *testing.T) {
	s := FecShard{BlockID: 7, ShardIndex: 2, K: 4, R: 2, Shard: []byte("parity-shard-bytes")}
	buf := SerializeFecShard(s)

	got, err := ParseFecShard(buf)
	require.NoError(t, err)
	require.Equal(t, s.BlockID, got.BlockID)
	require.Equal(t, s.ShardIndex, got.ShardIndex)
	require.Equal(t, s.K, got.K)
	require.Equal(t, s.R, got.R)
	require.Equal(t, s.Shard, got.Shard)
}

func TestFecShardRejectsShortHeader(t *testing.T) {
	_, err := ParseFecShard([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestFecShardRejectsZeroK(t *testing.T) {
	buf := SerializeFecShard(FecShard{BlockID: 1, K: 0, R: 1})
	_, err := ParseFecShard(buf)
	require.Error(t, err)
}
