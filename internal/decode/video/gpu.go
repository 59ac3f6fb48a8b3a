package video

import (
	"fmt"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
	"github.com/uphokaew/screen-mirror/internal/wire"
)

// newGPUBackend attempts to construct a named hardware decoder variant.
// Each vendor corresponds to a distinct platform video-acceleration binding
// (e.g. a vendor's Vulkan Video extension); none is linked into this build,
// so construction always reports Unsupported and the trial loop in
// NewDecoder falls back to the next candidate, eventually reaching the
// software backend.
func newGPUBackend(hint HWHint, _ wire.VideoCodec, _, _ int) (backend, error) {
	return nil, protoerr.NewUnsupported("video.gpu_backend",
		fmt.Errorf("no platform binding linked in for %s", hint))
}
