// Package transport defines the abstract connection capability shared by
// the stream (wired) and datagram (wireless) implementations, plus the
// network-statistics type the bitrate controller reads.
package transport

import (
	"context"

	"github.com/uphokaew/screen-mirror/internal/wire"
)

// Transport is the single capability both concrete variants implement. The
// receive loop and everything above it is written against this interface,
// never against a concrete variant.
type Transport interface {
	// Recv awaits the next framed packet. It returns ConnectionClosed on a
	// clean EOF, Protocol on unparseable framing, Io on socket errors.
	Recv(ctx context.Context) (wire.Packet, error)
	// SendControl serializes and sends a control message to the device.
	SendControl(ctx context.Context, msg wire.ControlMessage) error
	// Stats returns a snapshot of current network statistics.
	Stats() NetworkStats
	// Close releases the transport's sockets/connections and any owned FEC
	// decoder state.
	Close() error
}

// NetworkStats is a continuously updated summary of observed network
// quality, read by copy by the bitrate controller.
type NetworkStats struct {
	RTTMs           float64
	LossPercent     float64
	BandwidthMbps   float64
	BytesReceived   uint64
	PacketsReceived uint64
	PacketsLost     uint64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// QualityScore derives a [0,1] quality figure from RTT and loss:
// 0.6*(1 - min(rtt/500,1)) + 0.4*(1 - min(loss/5,1)).
func (s NetworkStats) QualityScore() float64 {
	rttTerm := 1 - clamp01(s.RTTMs/500)
	lossTerm := 1 - clamp01(s.LossPercent/5)
	return 0.6*rttTerm + 0.4*lossTerm
}
