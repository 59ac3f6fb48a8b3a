package wire

import "testing"

func TestIsKeyframeH264(t *testing.T) {
	idr := []byte{0, 0, 0, 1, 0x65, 0xAA, 0xBB}
	if !IsKeyframe(idr, CodecH264) {
		t.Fatalf("expected IDR NAL (type 5) to be a keyframe")
	}
	inter := []byte{0, 0, 1, 0x41, 0xAA}
	if IsKeyframe(inter, CodecH264) {
		t.Fatalf("expected non-IDR NAL (type 1) to not be a keyframe")
	}
}

func TestIsKeyframeH265(t *testing.T) {
	// NAL type 19 (IDR_W_RADL): byte = type<<1 | layer_id_msb
	idr := []byte{0, 0, 1, 19 << 1, 0x01}
	if !IsKeyframe(idr, CodecH265) {
		t.Fatalf("expected H.265 IDR_W_RADL to be a keyframe")
	}
	idr2 := []byte{0, 0, 0, 1, 20 << 1, 0x01}
	if !IsKeyframe(idr2, CodecH265) {
		t.Fatalf("expected H.265 IDR_N_LP to be a keyframe")
	}
	trail := []byte{0, 0, 1, 1 << 1, 0x01}
	if IsKeyframe(trail, CodecH265) {
		t.Fatalf("expected H.265 TRAIL_R to not be a keyframe")
	}
}

func TestIsKeyframeNoStartCode(t *testing.T) {
	if IsKeyframe([]byte{1, 2, 3}, CodecH264) {
		t.Fatalf("payload without a start code should never be a keyframe")
	}
	if IsKeyframe(nil, CodecH264) {
		t.Fatalf("nil payload should never be a keyframe")
	}
}
