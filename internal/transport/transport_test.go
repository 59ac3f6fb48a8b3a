package transport

import "testing"

func TestQualityScoreBounds(t *testing.T) {
	perfect := NetworkStats{RTTMs: 0, LossPercent: 0}
	if got := perfect.QualityScore(); got != 1 {
		t.Fatalf("expected quality score 1 for perfect stats, got %f", got)
	}

	worst := NetworkStats{RTTMs: 500, LossPercent: 5}
	if got := worst.QualityScore(); got != 0 {
		t.Fatalf("expected quality score 0 for worst stats, got %f", got)
	}

	worse := NetworkStats{RTTMs: 1000, LossPercent: 10}
	if got := worse.QualityScore(); got != 0 {
		t.Fatalf("expected quality score clamped to 0, got %f", got)
	}

	mid := NetworkStats{RTTMs: 250, LossPercent: 2.5}
	if got := mid.QualityScore(); got < 0 || got > 1 {
		t.Fatalf("expected quality score within [0,1], got %f", got)
	}
}
