package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
	"github.com/uphokaew/screen-mirror/internal/decode/video"
	"github.com/uphokaew/screen-mirror/internal/sinks"
	"github.com/uphokaew/screen-mirror/internal/transport"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

// fakeTransport replays a scripted sequence of packets, then blocks until
// closed, at which point Recv returns ConnectionClosed.
type fakeTransport struct {
	mu     sync.Mutex
	pkts   []wire.Packet
	idx    int
	closed chan struct{}
	sent   []wire.ControlMessage
}

func newFakeTransport(pkts []wire.Packet) *fakeTransport {
	return &fakeTransport{pkts: pkts, closed: make(chan struct{})}
}

func (f *fakeTransport) Recv(ctx context.Context) (wire.Packet, error) {
	f.mu.Lock()
	if f.idx < len(f.pkts) {
		p := f.pkts[f.idx]
		f.idx++
		f.mu.Unlock()
		return p, nil
	}
	f.mu.Unlock()

	select {
	case <-f.closed:
		return wire.Packet{}, protoerr.NewConnectionClosed("fake.recv", nil)
	case <-ctx.Done():
		return wire.Packet{}, protoerr.NewConnectionClosed("fake.recv", ctx.Err())
	}
}

func (f *fakeTransport) SendControl(ctx context.Context, msg wire.ControlMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Stats() transport.NetworkStats { return transport.NetworkStats{} }

func (f *fakeTransport) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

type fakeFrameSink struct {
	mu     sync.Mutex
	frames []sinks.DecodedFrame
}

func (f *fakeFrameSink) Present(frame sinks.DecodedFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeFrameSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestSessionPresentsDecodedVideoFrames(t *testing.T) {
	unit1 := append([]byte{0, 0, 0, 1}, []byte("first")...)
	unit2 := append([]byte{0, 0, 0, 1}, []byte("second")...)
	tr := newFakeTransport([]wire.Packet{
		{Kind: wire.KindVideo, PTS: 0, Data: unit1},
		{Kind: wire.KindVideo, PTS: 16667, Data: unit2},
	})

	sink := &fakeFrameSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := New(ctx, tr, Config{
		VideoCodec:         wire.CodecH264,
		VideoWidth:         16,
		VideoHeight:        16,
		HWHint:             video.HintNone,
		DstFormat:          sinks.FormatYUV420P,
		InitialBitrateMbps: 8,
		MinBitrateMbps:     2,
		MaxBitrateMbps:     20,
		FrameSink:          sink,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	tr.Close()
	cancel()
	<-done
}
