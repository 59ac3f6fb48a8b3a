package datagram

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatagramLossAccounting(t *testing.T) {
	c := &Conn{}
	for _, seq := range []uint32{1, 2, 4, 5, 8} {
		c.accountReceipt(seq, 100)
	}
	stats := c.Stats()
	require.EqualValues(t, 5, stats.PacketsReceived)
	require.EqualValues(t, 3, stats.PacketsLost)
	require.InDelta(t, 37.5, stats.LossPercent, 0.0001)
}

func TestDatagramLossAccountingNoGaps(t *testing.T) {
	c := &Conn{}
	for seq := uint32(1); seq <= 5; seq++ {
		c.accountReceipt(seq, 10)
	}
	stats := c.Stats()
	require.EqualValues(t, 5, stats.PacketsReceived)
	require.EqualValues(t, 0, stats.PacketsLost)
}
