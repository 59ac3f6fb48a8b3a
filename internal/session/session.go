// Package session wires the transport, decode pipeline, sync engine, and
// bitrate controller into one task tree: a receive loop, a playout driver,
// and a bitrate-control tick, all owned by a single context/cancel/WaitGroup
// lifecycle. There are no separate video and audio decode tasks: the
// receive loop decodes each packet inline before reading the next one.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/uphokaew/screen-mirror/internal/bitrate"
	"github.com/uphokaew/screen-mirror/internal/bufpool"
	"github.com/uphokaew/screen-mirror/internal/decode/audio"
	"github.com/uphokaew/screen-mirror/internal/decode/video"
	"github.com/uphokaew/screen-mirror/internal/logger"
	"github.com/uphokaew/screen-mirror/internal/sinks"
	syncengine "github.com/uphokaew/screen-mirror/internal/sync"
	"github.com/uphokaew/screen-mirror/internal/transport"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

// recvChanCapacity is the transport -> decode backpressure bound from
// spec.md. Session itself holds no channel of this size (recvLoop decodes
// inline); the stream transport's own receive channel uses the same bound.
const recvChanCapacity = 100

// bitrateTickInterval drives the bitrate controller's periodic evaluation;
// the controller itself still gates actual adjustments to once per second.
const bitrateTickInterval = 250 * time.Millisecond

// Config assembles everything a Session needs beyond an already-connected
// Transport.
type Config struct {
	VideoCodec  wire.VideoCodec
	VideoWidth  int
	VideoHeight int
	HWHint      video.HWHint
	DstFormat   sinks.PixelFormat

	AudioCodec     string
	AudioSampleRate int
	AudioChannels   int

	InitialBitrateMbps uint32
	MinBitrateMbps     uint32
	MaxBitrateMbps     uint32

	JitterMs int

	FrameSink sinks.FrameSink
}

// Session owns the full receive-decode-sync-playout-control task tree for
// one connected transport.
type Session struct {
	cfg   Config
	tr    transport.Transport
	video *video.Decoder
	audio audio.Decoder

	engine  *syncengine.Engine
	jitter  *syncengine.JitterBuffer
	bitrate *bitrate.Controller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger

	playoutSignal chan struct{}
}

// New constructs a Session over an already-connected transport. Decoder
// construction follows the trial/negotiation rules of spec.md §4.4.
func New(ctx context.Context, tr transport.Transport, cfg Config) (*Session, error) {
	vdec, err := video.NewDecoder(cfg.HWHint, cfg.VideoCodec, cfg.DstFormat, cfg.VideoWidth, cfg.VideoHeight)
	if err != nil {
		return nil, err
	}

	var adec audio.Decoder
	if cfg.AudioCodec != "" {
		adec, err = audio.NewDecoder(cfg.AudioCodec, cfg.AudioSampleRate, cfg.AudioChannels)
		if err != nil {
			return nil, err
		}
	}

	sessCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:           cfg,
		tr:            tr,
		video:         vdec,
		audio:         adec,
		engine:        syncengine.NewEngine(),
		bitrate:       bitrate.NewController(cfg.InitialBitrateMbps, cfg.MinBitrateMbps, cfg.MaxBitrateMbps, time.Now()),
		ctx:           sessCtx,
		cancel:        cancel,
		log:           logger.WithSession(logger.Logger(), "session", ""),
		playoutSignal: make(chan struct{}, 1),
	}
	if cfg.JitterMs > 0 && cfg.AudioSampleRate > 0 {
		s.jitter = syncengine.NewJitterBuffer(cfg.JitterMs, cfg.AudioSampleRate, cfg.AudioChannels)
	}
	return s, nil
}

// Run starts the task tree and blocks until ctx is cancelled or the
// transport closes.
func (s *Session) Run() {
	s.wg.Add(1)
	go s.recvLoop()

	s.wg.Add(1)
	go s.playoutLoop()

	s.wg.Add(1)
	go s.bitrateLoop()

	<-s.ctx.Done()
	s.wg.Wait()
}

// PullAudio is the fill callback for the host audio thread: it returns
// exactly samplesNeeded samples from the jitter buffer, or silence when the
// session has no jitter buffer.
func (s *Session) PullAudio(samplesNeeded int) []float32 {
	if s.jitter == nil {
		return make([]float32, samplesNeeded)
	}
	return s.jitter.Pull(samplesNeeded)
}

// Close cancels the task tree and releases the transport and decoders.
func (s *Session) Close() error {
	s.cancel()
	s.wg.Wait()
	if s.audio != nil {
		_ = s.audio.Close()
	}
	_ = s.video.Close()
	return s.tr.Close()
}

// recvLoop is the transport receive task: each packet is decoded inline
// (decoding is synchronous per spec.md's scheduling model) and the result
// pushed into the sync engine's buffers.
func (s *Session) recvLoop() {
	defer s.wg.Done()
	for {
		pkt, err := s.tr.Recv(s.ctx)
		if err != nil {
			s.log.Debug("recv loop exiting", "error", err)
			s.cancel()
			return
		}
		s.handlePacket(pkt)
	}
}

// handlePacket decodes one received packet and releases its payload buffer
// back to the pool once every decode path has synchronously finished
// reading it.
func (s *Session) handlePacket(pkt wire.Packet) {
	defer bufpool.Put(pkt.Data)

	switch pkt.Kind {
	case wire.KindVideo:
		frame, ok, err := s.video.Decode(pkt.Data, pkt.PTS)
		if err != nil {
			s.log.Warn("video decode failed", "error", err)
			return
		}
		if ok {
			s.engine.Video.Push(frame)
			s.notifyPlayout()
		}
	case wire.KindAudio:
		if s.audio == nil {
			return
		}
		unit, err := s.audio.Decode(pkt.Data, pkt.PTS)
		if err != nil {
			s.log.Warn("audio decode failed", "error", err)
			return
		}
		s.engine.Audio.Push(unit)
		s.notifyPlayout()
	default:
		// Control/handshake/FEC packets never reach this far; FEC is
		// absorbed by the transport and the rest is logged only.
		s.log.Debug("ignoring non-media packet", "kind", pkt.Kind.String())
	}
}

func (s *Session) notifyPlayout() {
	select {
	case s.playoutSignal <- struct{}{}:
	default:
	}
}

// playoutLoop repeatedly runs the sync step. On Continue it pops both
// heads, presents the video frame, and feeds the jitter buffer; on a wait
// action it blocks until new data arrives or the context is cancelled.
// When audio is disabled for the session, sync is bypassed entirely and
// video frames are presented as soon as they arrive.
func (s *Session) playoutLoop() {
	defer s.wg.Done()
	if s.audio == nil {
		s.videoOnlyPlayoutLoop()
		return
	}
	for {
		if s.ctx.Err() != nil {
			return
		}
		switch s.engine.Step() {
		case syncengine.Continue:
			vf, af := s.engine.PopPlayout()
			if s.cfg.FrameSink != nil {
				if err := s.cfg.FrameSink.Present(vf); err != nil {
					s.log.Warn("present failed", "error", err)
				}
			}
			if s.jitter != nil {
				s.jitter.Push(af.Samples)
			}
		case syncengine.DropVideoFrame, syncengine.SkipAudioSamples:
			// Counters already updated by Step; loop immediately to
			// re-evaluate against the new heads.
		default: // WaitForVideo, WaitForAudio
			select {
			case <-s.playoutSignal:
			case <-s.ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
	}
}

// videoOnlyPlayoutLoop presents video frames directly, without consulting
// the sync engine, for sessions with no audio.
func (s *Session) videoOnlyPlayoutLoop() {
	for {
		if s.ctx.Err() != nil {
			return
		}
		vf, ok := s.engine.Video.Pop()
		if !ok {
			select {
			case <-s.playoutSignal:
			case <-s.ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		if s.cfg.FrameSink != nil {
			if err := s.cfg.FrameSink.Present(vf); err != nil {
				s.log.Warn("present failed", "error", err)
			}
		}
	}
}

// bitrateLoop periodically evaluates the AIMD controller against the
// transport's current stats and pushes any resulting SetBitrate control
// message.
func (s *Session) bitrateLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(bitrateTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			stats := s.tr.Stats()
			msg, changed := s.bitrate.Evaluate(time.Now(), stats)
			if !changed {
				continue
			}
			if err := s.tr.SendControl(s.ctx, msg); err != nil {
				s.log.Warn("send_control failed", "error", err)
			}
		}
	}
}
