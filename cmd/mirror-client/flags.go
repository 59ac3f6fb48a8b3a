package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/uphokaew/screen-mirror/internal/decode/video"
	"github.com/uphokaew/screen-mirror/internal/sinks"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliConfig holds user-supplied flag values prior to translation into
// session.Config.
type cliConfig struct {
	addr           string
	transportKind  string
	logLevel       string
	videoCodec     string
	videoWidth     uint
	videoHeight    uint
	hwHint         string
	pixelFormat    string
	audioEnabled   bool
	initialBitrate uint
	minBitrate     uint
	maxBitrate     uint
	fecK           uint
	fecR           uint
	jitterMs       uint
	showVersion    bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("mirror-client", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.addr, "addr", "", "Device server address (host:port)")
	fs.StringVar(&cfg.transportKind, "transport", "stream", "Transport: stream|datagram")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.videoCodec, "video-codec", "h264", "Video codec: h264|h265")
	fs.UintVar(&cfg.videoWidth, "width", 1920, "Expected video width")
	fs.UintVar(&cfg.videoHeight, "height", 1080, "Expected video height")
	fs.StringVar(&cfg.hwHint, "hw", "auto", "Hardware hint: auto|gpu-vendor-A|gpu-vendor-B|gpu-vendor-C|none")
	fs.StringVar(&cfg.pixelFormat, "pixel-format", "yuv420p", "Output pixel format: yuv420p|nv12|rgba")
	fs.BoolVar(&cfg.audioEnabled, "audio", true, "Request audio")
	fs.UintVar(&cfg.initialBitrate, "bitrate", 8, "Initial bitrate (Mbps)")
	fs.UintVar(&cfg.minBitrate, "min-bitrate", 2, "Minimum bitrate (Mbps)")
	fs.UintVar(&cfg.maxBitrate, "max-bitrate", 20, "Maximum bitrate (Mbps)")
	fs.UintVar(&cfg.fecK, "fec-k", 4, "FEC data shards per block (datagram transport only)")
	fs.UintVar(&cfg.fecR, "fec-r", 2, "FEC parity shards per block (datagram transport only)")
	fs.UintVar(&cfg.jitterMs, "jitter-ms", 30, "Audio jitter buffer size in milliseconds")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.showVersion {
		return cfg, nil
	}

	if cfg.addr == "" {
		return nil, errors.New("-addr is required")
	}
	switch cfg.transportKind {
	case "stream", "datagram":
	default:
		return nil, fmt.Errorf("invalid -transport %q", cfg.transportKind)
	}
	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid -log-level %q", cfg.logLevel)
	}
	if cfg.minBitrate == 0 || cfg.minBitrate > cfg.maxBitrate {
		return nil, errors.New("-min-bitrate must be > 0 and <= -max-bitrate")
	}
	if cfg.initialBitrate < cfg.minBitrate || cfg.initialBitrate > cfg.maxBitrate {
		return nil, errors.New("-bitrate must be between -min-bitrate and -max-bitrate")
	}
	if _, err := videoCodec(cfg.videoCodec); err != nil {
		return nil, err
	}
	if _, err := hwHint(cfg.hwHint); err != nil {
		return nil, err
	}
	if _, err := pixelFormat(cfg.pixelFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func videoCodec(s string) (wire.VideoCodec, error) {
	switch s {
	case "h264":
		return wire.CodecH264, nil
	case "h265":
		return wire.CodecH265, nil
	default:
		return 0, fmt.Errorf("invalid -video-codec %q", s)
	}
}

func hwHint(s string) (video.HWHint, error) {
	switch video.HWHint(s) {
	case video.HintAuto, video.HintVendorA, video.HintVendorB, video.HintVendorC, video.HintNone:
		return video.HWHint(s), nil
	default:
		return "", fmt.Errorf("invalid -hw %q", s)
	}
}

func pixelFormat(s string) (sinks.PixelFormat, error) {
	switch s {
	case "yuv420p":
		return sinks.FormatYUV420P, nil
	case "nv12":
		return sinks.FormatNV12, nil
	case "rgba":
		return sinks.FormatRGBA, nil
	default:
		return 0, fmt.Errorf("invalid -pixel-format %q", s)
	}
}
