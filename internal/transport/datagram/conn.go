// Package datagram implements the wireless Datagram Transport over QUIC:
// unreliable datagrams carry media and FEC shards, a unidirectional
// reliable stream carries control messages, and a connection tracer feeds
// path RTT/congestion-window samples into NetworkStats.
package datagram

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/logging"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
	"github.com/uphokaew/screen-mirror/internal/fec"
	"github.com/uphokaew/screen-mirror/internal/logger"
	"github.com/uphokaew/screen-mirror/internal/transport"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

const (
	handshakeIdleTimeout    = 10 * time.Second
	keepAlivePeriod         = 1 * time.Second
	idleTimeout             = 30 * time.Second
	connectionReceiveWindow = 8 << 20 // 8 MiB
	connectionSendWindow    = 8 << 20 // 8 MiB
	streamReceiveWindow     = 2 << 20 // 2 MiB
	serverName              = "localhost"
)

// Conn is the Datagram Transport's concrete implementation of
// transport.Transport.
type Conn struct {
	conn quic.Connection

	ctrlMu     sync.Mutex
	ctrlStream quic.SendStream

	k, r int
	dec  *fec.Decoder

	mu         sync.Mutex
	stats      transport.NetworkStats
	lastSeq    uint32
	hasLastSeq bool

	rttNanos  atomic.Int64
	cwndBytes atomic.Int64

	log *slog.Logger
}

// Connect dials a QUIC connection to addr, tuned per the wireless transport
// parameters, and prepares the FEC decoder for the given (k, r) geometry.
// audioEnabled is accepted for symmetry with the Stream Transport's
// Connect signature and is not used: the datagram transport does not
// negotiate audio availability.
func Connect(ctx context.Context, addr string, audioEnabled bool, k, r int) (*Conn, error) {
	_ = audioEnabled

	dec, err := fec.NewDecoder(k, r)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		k:   k,
		r:   r,
		dec: dec,
		log: logger.WithTransport(logger.Logger(), "datagram"),
	}
	c.rttNanos.Store(int64(100 * time.Millisecond))

	tlsConf := &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // device server uses a self-signed cert
		ServerName:         serverName,
		NextProtos:         []string{"screen-mirror"},
	}
	qConf := &quic.Config{
		HandshakeIdleTimeout:           handshakeIdleTimeout,
		MaxIdleTimeout:                 idleTimeout,
		KeepAlivePeriod:                keepAlivePeriod,
		EnableDatagrams:                true,
		InitialConnectionReceiveWindow: connectionReceiveWindow,
		MaxConnectionReceiveWindow:     connectionReceiveWindow,
		InitialStreamReceiveWindow:     streamReceiveWindow,
		MaxStreamReceiveWindow:         streamReceiveWindow,
		Tracer:                         c.tracer,
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConf, qConf)
	if err != nil {
		return nil, protoerr.NewConnectionFailed("datagram.connect", err)
	}
	c.conn = conn
	return c, nil
}

// tracer wires quic-go's connection tracer hooks into the RTT/cwnd samples
// Stats() reports, since the public Connection interface does not expose
// path metrics directly.
func (c *Conn) tracer(context.Context, logging.Perspective, quic.ConnectionID) *logging.ConnectionTracer {
	return &logging.ConnectionTracer{
		UpdatedMetrics: func(rttStats *logging.RTTStats, cwnd, _ logging.ByteCount, _ int) {
			if rttStats != nil {
				c.rttNanos.Store(int64(rttStats.SmoothedRTT()))
			}
			c.cwndBytes.Store(int64(cwnd))
		},
	}
}

// Recv implements transport.Transport. FEC packets are absorbed into the
// decoder and never surfaced; every other kind is returned directly after
// also being offered to the decoder as a data shard.
func (c *Conn) Recv(ctx context.Context) (wire.Packet, error) {
	for {
		raw, err := c.conn.ReceiveDatagram(ctx)
		if err != nil {
			return wire.Packet{}, classifyErr(err)
		}
		pkt, err := wire.Parse(raw)
		if err != nil {
			return wire.Packet{}, err
		}

		c.accountReceipt(pkt.Seq, len(raw))

		if pkt.Kind == wire.KindFec {
			shard, err := wire.ParseFecShard(pkt.Data)
			if err != nil {
				return wire.Packet{}, err
			}
			recovered, err := c.dec.AddFec(shard)
			if err != nil {
				c.log.Debug("fec reconstruction failed", "error", err)
			}
			if len(recovered) > 0 {
				return recovered[0], nil
			}
			continue
		}

		if _, err := c.dec.AddData(pkt.Seq, raw); err != nil {
			c.log.Debug("fec add_data failed", "error", err)
		}
		return pkt, nil
	}
}

func (c *Conn) accountReceipt(seq uint32, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasLastSeq {
		c.hasLastSeq = true
		c.lastSeq = seq
	} else if seq > c.lastSeq+1 {
		c.stats.PacketsLost += uint64(seq - c.lastSeq - 1)
		c.lastSeq = seq
	} else if seq > c.lastSeq {
		c.lastSeq = seq
	}

	c.stats.PacketsReceived++
	c.stats.BytesReceived += uint64(n)
	total := c.stats.PacketsLost + c.stats.PacketsReceived
	if total > 0 {
		c.stats.LossPercent = 100 * float64(c.stats.PacketsLost) / float64(total)
	}

	rtt := time.Duration(c.rttNanos.Load())
	c.stats.RTTMs = float64(rtt) / float64(time.Millisecond)
	cwnd := c.cwndBytes.Load()
	if rtt > 0 {
		c.stats.BandwidthMbps = float64(cwnd) * 8 / (c.stats.RTTMs * 125)
	}
}

func classifyErr(err error) error {
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) {
		return protoerr.NewConnectionClosed("datagram.recv", err)
	}
	var idleErr *quic.IdleTimeoutError
	if errors.As(err, &idleErr) {
		return protoerr.NewConnectionClosed("datagram.recv", err)
	}
	return protoerr.NewQuic("datagram.recv", err)
}

// SendControl implements transport.Transport: control messages are written
// directly to a reused unidirectional reliable sub-stream; no response is
// expected.
func (c *Conn) SendControl(ctx context.Context, msg wire.ControlMessage) error {
	encoded, err := wire.EncodeControlMessage(msg)
	if err != nil {
		return err
	}

	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	if c.ctrlStream == nil {
		s, err := c.conn.OpenUniStreamSync(ctx)
		if err != nil {
			return protoerr.NewQuic("datagram.open_control_stream", err)
		}
		c.ctrlStream = s
	}
	if _, err := c.ctrlStream.Write(encoded); err != nil {
		return protoerr.NewQuic("datagram.send_control", err)
	}
	return nil
}

// Stats implements transport.Transport.
func (c *Conn) Stats() transport.NetworkStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close implements transport.Transport.
func (c *Conn) Close() error {
	return c.conn.CloseWithError(0, "client shutdown")
}
