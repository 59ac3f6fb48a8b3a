package audio

// negotiationOrder is the order codecs are probed in during client-side
// negotiation: Opus first, then AAC, matching spec.md's "probe constructors
// in order, announce the first that succeeds" rule.
var negotiationOrder = []string{"opus", "aac"}

// Negotiate tries each codec in negotiationOrder, returning the first that
// constructs successfully, or ("", false) if none do — audio is then
// disabled entirely for the session.
func Negotiate(sampleRate, channels int) (codec string, ok bool) {
	for _, name := range negotiationOrder {
		if dec, err := NewDecoder(name, sampleRate, channels); err == nil {
			_ = dec.Close()
			return name, true
		}
	}
	return "", false
}
