package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStreamFrame(&buf, 16667, []byte("IJKL")))

	pts, data, err := ReadStreamFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(16667), pts)
	require.Equal(t, []byte("IJKL"), data)
}

func TestReadDeviceNameTrimsNUL(t *testing.T) {
	raw := make([]byte, DeviceNameLen)
	copy(raw, "pixel")
	name, err := ReadDeviceName(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "pixel", name)
}

func TestReadVideoMetadata(t *testing.T) {
	// 1 dummy byte + codec_id=0x68323634 ("h264"), w=1080, h=2400, all big-endian.
	raw := []byte{
		0x00,
		0x68, 0x32, 0x36, 0x34,
		0x00, 0x00, 0x04, 0x38,
		0x00, 0x00, 0x09, 0x60,
	}
	meta, err := ReadVideoMetadata(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, uint32(0x68323634), meta.CodecID)
	require.Equal(t, uint32(1080), meta.Width)
	require.Equal(t, uint32(2400), meta.Height)
}

func TestReadAudioCodecIDZeroMeansRefused(t *testing.T) {
	id, err := ReadAudioCodecID(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.NoError(t, err)
	require.Equal(t, uint32(0), id)
}
