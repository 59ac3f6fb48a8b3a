// Package stream implements the wired Stream Transport: two independent
// byte-oriented TCP sockets (video always present, audio optional) framed
// with the big-endian stream-transport header.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
	"github.com/uphokaew/screen-mirror/internal/logger"
	"github.com/uphokaew/screen-mirror/internal/transport"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

const (
	connectTimeout   = 5 * time.Second
	handshakeTimeout = 10 * time.Second
	recvChanCapacity = 100
)

type recvResult struct {
	pkt wire.Packet
	err error
}

// Conn is the Stream Transport's concrete implementation of
// transport.Transport.
type Conn struct {
	videoConn net.Conn
	audioConn net.Conn

	deviceName   string
	videoMeta    wire.VideoMetadata
	audioCodecID uint32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	recvCh chan recvResult
	log    *slog.Logger

	mu    sync.Mutex
	stats transport.NetworkStats
}

// Connect dials the video socket (and, if audioEnabled, the audio socket),
// runs the stream-transport handshake, and starts the receive loops.
func Connect(ctx context.Context, addr string, audioEnabled bool) (*Conn, error) {
	dialer := net.Dialer{Timeout: connectTimeout}
	videoConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, protoerr.NewConnectionFailed("stream.connect_video", err)
	}
	if tc, ok := videoConn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		videoConn: videoConn,
		ctx:       runCtx,
		cancel:    cancel,
		recvCh:    make(chan recvResult, recvChanCapacity),
		log:       logger.WithTransport(logger.Logger(), "stream"),
	}

	if err := c.handshake(ctx, addr, audioEnabled); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.startReceiveLoop(c.videoConn, wire.KindVideo)
	if c.audioConn != nil {
		c.startReceiveLoop(c.audioConn, wire.KindAudio)
	}
	return c, nil
}

func (c *Conn) handshake(parent context.Context, addr string, audioEnabled bool) error {
	hctx, cancel := context.WithTimeout(parent, handshakeTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(hctx)
	g.Go(func() error {
		if err := c.videoConn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
			return err
		}
		defer c.videoConn.SetReadDeadline(time.Time{})
		name, err := wire.ReadDeviceName(c.videoConn)
		if err != nil {
			return classifyHandshakeErr("stream.read_device_name", err)
		}
		c.deviceName = name
		return nil
	})
	if audioEnabled {
		g.Go(func() error {
			dialer := net.Dialer{Timeout: connectTimeout}
			ac, err := dialer.DialContext(gctx, "tcp", addr)
			if err != nil {
				c.log.Warn("audio socket connect failed, proceeding video-only", "error", err)
				return nil
			}
			if tc, ok := ac.(*net.TCPConn); ok {
				_ = tc.SetNoDelay(true)
			}
			c.audioConn = ac
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g2, _ := errgroup.WithContext(hctx)
	g2.Go(func() error {
		if err := c.videoConn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
			return err
		}
		defer c.videoConn.SetReadDeadline(time.Time{})
		meta, err := wire.ReadVideoMetadata(c.videoConn)
		if err != nil {
			return classifyHandshakeErr("stream.read_video_metadata", err)
		}
		c.videoMeta = meta
		return nil
	})
	if c.audioConn != nil {
		g2.Go(func() error {
			if err := c.audioConn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
				return err
			}
			defer c.audioConn.SetReadDeadline(time.Time{})
			id, err := wire.ReadAudioCodecID(c.audioConn)
			if err != nil {
				c.log.Warn("audio codec id read failed, disabling audio", "error", err)
				_ = c.audioConn.Close()
				c.audioConn = nil
				return nil
			}
			c.audioCodecID = id
			if id == 0 {
				c.log.Info("device refused audio, downgrading to video-only")
				_ = c.audioConn.Close()
				c.audioConn = nil
			}
			return nil
		})
	}
	return g2.Wait()
}

func classifyHandshakeErr(op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return protoerr.NewTimeout(op, handshakeTimeout, err)
	}
	return protoerr.NewConnectionFailed(op, err)
}

// AudioEnabled reports whether the audio socket survived the handshake.
func (c *Conn) AudioEnabled() bool { return c.audioConn != nil }

// DeviceName returns the device name announced during handshake.
func (c *Conn) DeviceName() string { return c.deviceName }

// VideoMetadata returns the codec/resolution metadata announced during
// handshake.
func (c *Conn) VideoMetadata() wire.VideoMetadata { return c.videoMeta }

func (c *Conn) startReceiveLoop(conn net.Conn, kind wire.Kind) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			pts, data, err := wire.ReadStreamFrame(conn)
			if err != nil {
				c.deliver(recvResult{err: classifyRecvErr(err)})
				return
			}
			c.recordReceipt(len(data))
			c.deliver(recvResult{pkt: wire.Packet{Kind: kind, PTS: pts, Data: data}})
		}
	}()
}

func (c *Conn) deliver(r recvResult) {
	select {
	case c.recvCh <- r:
	case <-c.ctx.Done():
	}
}

func (c *Conn) recordReceipt(dataLen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.BytesReceived += uint64(wire.StreamFrameHeaderLen + dataLen)
	c.stats.PacketsReceived++
}

func classifyRecvErr(err error) error {
	if protoerr.IsProtocol(err) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return protoerr.NewConnectionClosed("stream.recv", err)
	}
	return protoerr.NewIo("stream.recv", err)
}

// Recv implements transport.Transport.
func (c *Conn) Recv(ctx context.Context) (wire.Packet, error) {
	select {
	case r := <-c.recvCh:
		return r.pkt, r.err
	case <-ctx.Done():
		return wire.Packet{}, ctx.Err()
	case <-c.ctx.Done():
		return wire.Packet{}, protoerr.NewConnectionClosed("stream.recv", context.Canceled)
	}
}

// SendControl implements transport.Transport: control messages are framed
// as Packet{Kind: Control} and written to the video socket.
func (c *Conn) SendControl(ctx context.Context, msg wire.ControlMessage) error {
	encoded, err := wire.EncodeControlMessage(msg)
	if err != nil {
		return err
	}
	buf := wire.Serialize(wire.Packet{Kind: wire.KindControl, Data: encoded})
	if _, err := c.videoConn.Write(buf); err != nil {
		return protoerr.NewIo("stream.send_control", err)
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
	c.cancel()
	if c.videoConn != nil {
		_ = c.videoConn.Close()
	}
	if c.audioConn != nil {
		_ = c.audioConn.Close()
	}
	c.wg.Wait()
	return nil
}
