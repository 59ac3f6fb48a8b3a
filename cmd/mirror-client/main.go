package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/uphokaew/screen-mirror/internal/decode/audio"
	"github.com/uphokaew/screen-mirror/internal/decode/video"
	"github.com/uphokaew/screen-mirror/internal/logger"
	"github.com/uphokaew/screen-mirror/internal/session"
	"github.com/uphokaew/screen-mirror/internal/transport"
	"github.com/uphokaew/screen-mirror/internal/transport/datagram"
	"github.com/uphokaew/screen-mirror/internal/transport/stream"
)

// defaultAudioSampleRate/defaultAudioChannels are used to probe which audio
// backend constructs successfully during negotiation and as the session's
// audio decoder and jitter-buffer parameters; the stream handshake reports
// only an audio codec id, not a sample rate or channel count.
const (
	defaultAudioSampleRate = 48000
	defaultAudioChannels   = 2
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codecVal, _ := videoCodec(cfg.videoCodec)
	hint, _ := hwHint(cfg.hwHint)
	dstFormat, _ := pixelFormat(cfg.pixelFormat)

	negotiatedCodec := ""
	if cfg.audioEnabled {
		if codec, ok := audio.Negotiate(defaultAudioSampleRate, defaultAudioChannels); ok {
			negotiatedCodec = codec
		} else {
			log.Warn("no audio backend available, continuing video-only")
		}
	}

	tr, err := connect(ctx, cfg, negotiatedCodec != "")
	if err != nil {
		log.Error("failed to connect to device server", "error", err)
		os.Exit(1)
	}
	if sc, ok := tr.(*stream.Conn); ok && !sc.AudioEnabled() {
		// The device refused audio (or the audio socket failed) during the
		// handshake: run video-only so playout bypasses A/V sync.
		negotiatedCodec = ""
	}

	sessCfg := session.Config{
		VideoCodec:         codecVal,
		VideoWidth:         int(cfg.videoWidth),
		VideoHeight:        int(cfg.videoHeight),
		HWHint:             hint,
		DstFormat:          dstFormat,
		AudioCodec:         negotiatedCodec,
		AudioSampleRate:    defaultAudioSampleRate,
		AudioChannels:      defaultAudioChannels,
		InitialBitrateMbps: uint32(cfg.initialBitrate),
		MinBitrateMbps:     uint32(cfg.minBitrate),
		MaxBitrateMbps:     uint32(cfg.maxBitrate),
		JitterMs:           int(cfg.jitterMs),
	}

	sess, err := session.New(ctx, tr, sessCfg)
	if err != nil {
		log.Error("failed to construct session", "error", err)
		_ = tr.Close()
		os.Exit(1)
	}

	log.Info("session started", "addr", cfg.addr, "transport", cfg.transportKind, "version", version)
	sess.Run()
	log.Info("session stopped")
}

func connect(ctx context.Context, cfg *cliConfig, audioEnabled bool) (transport.Transport, error) {
	switch cfg.transportKind {
	case "datagram":
		return datagram.Connect(ctx, cfg.addr, audioEnabled, int(cfg.fecK), int(cfg.fecR))
	default:
		return stream.Connect(ctx, cfg.addr, audioEnabled)
	}
}
