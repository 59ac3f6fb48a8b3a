package wire

import (
	"bytes"
	"encoding/gob"
	stdErrors "errors"

	protoerr "github.com/uphokaew/screen-mirror/internal/errors"
)

var errNilControlMessage = stdErrors.New("decoded nil control message")

// ControlMessage is the tagged union of messages exchanged on the control
// channel in either direction. Concrete types are registered with gob in
// init() so they can round-trip through the envelope's interface field.
type ControlMessage interface {
	isControlMessage()
}

// SetBitrate requests the device encoder target the given bitrate.
type SetBitrate struct{ Mbps uint32 }

// SetResolution requests the device encoder target the given resolution.
type SetResolution struct{ Width, Height uint32 }

// SetFrameRate requests the device encoder target the given frame rate.
type SetFrameRate struct{ Fps uint32 }

// RequestKeyframe asks the device to emit an IDR frame as soon as possible.
type RequestKeyframe struct{}

// Capabilities announces what the client supports, sent once during
// negotiation.
type Capabilities struct {
	MaxWidth, MaxHeight uint32
	Codecs              []string
	Audio               bool
}

// Ack acknowledges receipt of a sequenced message.
type Ack struct{ Seq uint32 }

func (SetBitrate) isControlMessage()      {}
func (SetResolution) isControlMessage()   {}
func (SetFrameRate) isControlMessage()    {}
func (RequestKeyframe) isControlMessage() {}
func (Capabilities) isControlMessage()    {}
func (Ack) isControlMessage()             {}

func init() {
	gob.Register(SetBitrate{})
	gob.Register(SetResolution{})
	gob.Register(SetFrameRate{})
	gob.Register(RequestKeyframe{})
	gob.Register(Capabilities{})
	gob.Register(Ack{})
}

// controlEnvelope carries a ControlMessage through gob's interface
// encoding, which requires a concrete field to hold the registered type.
type controlEnvelope struct {
	Msg ControlMessage
}

// EncodeControlMessage serializes msg with the self-describing binary
// encoding used on the control channel. The concrete byte layout is an
// implementation detail not observed outside this package.
func EncodeControlMessage(msg ControlMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(controlEnvelope{Msg: msg}); err != nil {
		return nil, protoerr.NewProtocol("wire.encode_control", err)
	}
	return buf.Bytes(), nil
}

// DecodeControlMessage parses a control message previously produced by
// EncodeControlMessage.
func DecodeControlMessage(data []byte) (ControlMessage, error) {
	var env controlEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, protoerr.NewProtocol("wire.decode_control", err)
	}
	if env.Msg == nil {
		return nil, protoerr.NewProtocol("wire.decode_control", errNilControlMessage)
	}
	return env.Msg, nil
}
