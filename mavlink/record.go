// Package mavlink implements a MAVLink encoder, decoder, and per-endpoint
// Channel: building framed byte sequences from application field values,
// and recovering field values from an interleaved stream of MAVLink 1 and
// MAVLink 2 frames.
package mavlink

// Protocol selects a MAVLink framing version.
type Protocol byte

const (
	// ProtocolUnspecified means "use the channel's current protocol";
	// it is never the effective protocol of an encoded or decoded frame.
	ProtocolUnspecified Protocol = iota
	V1
	V2
)

func (p Protocol) String() string {
	switch p {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return "unspecified"
	}
}

// Message is the input to Channel.Encode.
type Message struct {
	// ID is either the message's numeric id (any integer type) or its
	// declared name (string).
	ID     any
	Fields map[string]any
	// Protocol overrides the channel's current protocol for this one
	// encode. ProtocolUnspecified uses the channel's protocol.
	Protocol Protocol
}

// Record is a fully decoded message, including the framing metadata
// observed alongside it.
type Record struct {
	MessageID   uint32
	MessageName string
	Fields      map[string]any

	Protocol    Protocol
	Sequence    byte
	SystemID    byte
	ComponentID byte

	// LinkID and SignatureValid are only meaningful when HaveSignature
	// is true (a MAVLink 2 frame with the signing trailer present).
	LinkID         byte
	HaveSignature  bool
	SignatureValid bool
}

// EnumValue is a decoded plain-enum field value: either resolved to its
// symbolic key (Known=true) or left as an unrecognized raw number.
type EnumValue struct {
	Symbol string
	Raw    uint64
	Known  bool
}

// Bitmask is a decoded bitmask-enum field value: the flags recognized in
// the enum group, plus any residual bits with no matching flag.
type Bitmask struct {
	Flags       []string
	UnknownBits uint64
}

// Event is one outcome of Channel.Feed: either a decoded Record or a
// decode error, never both.
type Event struct {
	Record *Record
	Err    error
}
