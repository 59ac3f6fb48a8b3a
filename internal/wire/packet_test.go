package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPacketRoundTrip(t *testing.T) {
	p := Packet{Kind: KindVideo, PTS: 16667, Seq: 42, Data: []byte("ABCDEFGH")}
	buf := Serialize(p)
	require.Len(t, buf, HeaderLen+len(p.Data))

	got, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, p.Kind, got.Kind)
	require.Equal(t, p.PTS, got.PTS)
	require.Equal(t, p.Seq, got.Seq)
	require.Equal(t, p.Data, got.Data)
}

func TestPacketRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		kind := Kind(rapid.SampledFrom([]uint8{1, 2, 3, 4, 5}).Draw(tt, "kind"))
		pts := rapid.Int64().Draw(tt, "pts")
		seq := rapid.Uint32().Draw(tt, "seq")
		data := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(tt, "data")

		p := Packet{Kind: kind, PTS: pts, Seq: seq, Data: data}
		buf := Serialize(p)
		got, err := Parse(buf)
		if err != nil {
			tt.Fatalf("parse: %v", err)
		}
		if got.Kind != p.Kind || got.PTS != p.PTS || got.Seq != p.Seq {
			tt.Fatalf("round trip mismatch: %+v vs %+v", got, p)
		}
		if len(got.Data) != len(p.Data) {
			tt.Fatalf("data length mismatch: %d vs %d", len(got.Data), len(p.Data))
		}
	})
}

func TestParseRejectsInvalidKind(t *testing.T) {
	buf := Serialize(Packet{Kind: KindVideo, Data: []byte("x")})
	buf[0] = 0x7F
	_, err := Parse(buf)
	require.Error(t, err)
}

func TestParseRejectsLengthMismatch(t *testing.T) {
	buf := Serialize(Packet{Kind: KindAudio, Data: []byte("hello")})
	truncated := buf[:len(buf)-1]
	_, err := Parse(truncated)
	require.Error(t, err)
}

func TestParseRejectsOversizedPayload(t *testing.T) {
	hdr := make([]byte, HeaderLen)
	EncodeHeader(hdr, KindVideo, 0, 0, MaxDataLen+1)
	_, err := Parse(hdr)
	require.Error(t, err)
}
