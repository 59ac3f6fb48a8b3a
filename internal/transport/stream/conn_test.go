package stream

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uphokaew/screen-mirror/internal/wire"
)

// deviceServer mimics the wired device server for handshake + frame
// scripting in tests: it accepts exactly one connection and writes the
// provided bytes, then blocks until the test closes it.
func deviceServer(t *testing.T, script []byte) (addr string, done chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done = make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write(script)
		// Keep the socket open until the client closes it.
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String(), done
}

func TestCleanWiredPath(t *testing.T) {
	var script []byte
	deviceName := make([]byte, wire.DeviceNameLen)
	copy(deviceName, "pixel")
	script = append(script, deviceName...)
	script = append(script, 0x00)                                     // dummy byte
	script = append(script, 0x68, 0x32, 0x36, 0x34)                   // codec_id "h264"
	script = append(script, 0x00, 0x00, 0x04, 0x38)                   // width 1080
	script = append(script, 0x00, 0x00, 0x09, 0x60)                   // height 2400
	script = appendFrame(script, 0, []byte("ABCDEFGH"))
	script = appendFrame(script, 16667, []byte("IJKL"))

	addr, _ := deviceServer(t, script)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Connect(ctx, addr, false)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, "pixel", conn.DeviceName())
	require.Equal(t, uint32(0x68323634), conn.VideoMetadata().CodecID)
	require.False(t, conn.AudioEnabled())

	p1, err := conn.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, wire.KindVideo, p1.Kind)
	require.Equal(t, int64(0), p1.PTS)
	require.Equal(t, []byte("ABCDEFGH"), p1.Data)

	p2, err := conn.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, wire.KindVideo, p2.Kind)
	require.Equal(t, int64(16667), p2.PTS)
	require.Equal(t, []byte("IJKL"), p2.Data)
}

func TestGracefulAudioDowngrade(t *testing.T) {
	var videoScript []byte
	deviceName := make([]byte, wire.DeviceNameLen)
	copy(deviceName, "pixel")
	videoScript = append(videoScript, deviceName...)
	videoScript = append(videoScript, 0x00)
	videoScript = append(videoScript, 0x68, 0x32, 0x36, 0x34)
	videoScript = append(videoScript, 0x00, 0x00, 0x04, 0x38)
	videoScript = append(videoScript, 0x00, 0x00, 0x09, 0x60)

	audioScript := []byte{0x00, 0x00, 0x00, 0x00} // codec id 0 = refused

	// The real device server accepts two connections on the same address:
	// video first, audio second.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		videoConn, err := ln.Accept()
		if err != nil {
			return
		}
		defer videoConn.Close()
		_, _ = videoConn.Write(videoScript)

		audioConn, err := ln.Accept()
		if err != nil {
			return
		}
		defer audioConn.Close()
		_, _ = audioConn.Write(audioScript)

		buf := make([]byte, 1)
		_, _ = videoConn.Read(buf)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Connect(ctx, ln.Addr().String(), true)
	require.NoError(t, err)
	defer conn.Close()
	require.False(t, conn.AudioEnabled(), "codec id 0 on the audio socket must silently disable audio")
}

func appendFrame(script []byte, pts int64, payload []byte) []byte {
	hdr := make([]byte, wire.StreamFrameHeaderLen)
	putUint64BE(hdr[0:8], uint64(pts))
	putUint32BE(hdr[8:12], uint32(len(payload)))
	script = append(script, hdr...)
	script = append(script, payload...)
	return script
}

func putUint64BE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func putUint32BE(b []byte, v uint32) {
	for i := 3; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
