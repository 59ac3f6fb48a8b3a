// Package bitrate implements the AIMD bitrate controller: an additive
// increase on good network quality, a multiplicative decrease on high RTT
// or loss, gated to at most one adjustment per interval.
package bitrate

import (
	"time"

	"github.com/uphokaew/screen-mirror/internal/transport"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

const (
	adjustInterval       = 1 * time.Second
	additiveStepMbps     = 1
	multiplicativeFactor = 0.75
	rttThresholdMs       = 200
	lossThresholdPct     = 2
	qualityThreshold     = 0.8
)

// Controller holds the AIMD state for one session's bitrate.
type Controller struct {
	current      uint32
	min          uint32
	max          uint32
	lastAdjustAt time.Time
}

// NewController constructs a Controller seeded with current/min/max Mbps.
// now is the construction time, used as the initial gate baseline so the
// very first Evaluate call respects the adjustment interval.
func NewController(current, min, max uint32, now time.Time) *Controller {
	return &Controller{current: current, min: min, max: max, lastAdjustAt: now}
}

// Current reports the controller's current bitrate without evaluating.
func (c *Controller) Current() uint32 { return c.current }

// Evaluate applies the AIMD rule for stats observed at now. It returns a
// SetBitrate control message and true only when the bitrate actually
// changes; the interval gate and quality evaluation still advance the
// controller's internal clock whenever the gate is open, whether or not
// the bitrate changes.
func (c *Controller) Evaluate(now time.Time, stats transport.NetworkStats) (wire.ControlMessage, bool) {
	if now.Sub(c.lastAdjustAt) < adjustInterval {
		return nil, false
	}
	c.lastAdjustAt = now

	newBitrate := c.current
	switch {
	case stats.RTTMs > rttThresholdMs || stats.LossPercent > lossThresholdPct:
		newBitrate = clampU32(uint32(multiplicativeFactor*float64(c.current)), c.min, c.max)
	case stats.QualityScore() > qualityThreshold:
		newBitrate = clampU32(c.current+additiveStepMbps, c.min, c.max)
	}

	if newBitrate == c.current {
		return nil, false
	}
	c.current = newBitrate
	return wire.SetBitrate{Mbps: newBitrate}, true
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
