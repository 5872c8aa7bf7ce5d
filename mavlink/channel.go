package mavlink

import (
	"fmt"
	"sync"

	"mavcodec/dialect"
)

// AcceptSignaturePredicate decides whether a frame whose signature did not
// verify (or could not be verified, for lack of a key) should still be
// delivered as a Record. A true verdict never upgrades Record.SignatureValid
// — it stays false, so callers can tell "accepted despite a bad signature"
// from "verified good".
type AcceptSignaturePredicate func(Record) bool

// Options configures a new Channel.
type Options struct {
	Catalog     *dialect.Catalog
	Protocol    Protocol // defaults to V1
	SystemID    byte
	ComponentID byte

	// Clock supplies the 48-bit monotonic microsecond timestamp used in
	// MAVLink 2 signing. Defaults to a counter local to the Channel that
	// increases by one on every call (see defaultClock) when nil.
	Clock func() uint64
}

// Stats is a point-in-time snapshot of a Channel's lifetime counters.
type Stats struct {
	FramesEncoded  uint64
	FramesDecoded  uint64
	BadChecksum    uint64
	BadLength      uint64
	BadSignature   uint64
	UnknownMessage uint64
}

// Channel is one MAVLink endpoint: it encodes outgoing messages with a
// running sequence number and decodes an incoming byte stream with a
// persistent state machine.
type Channel struct {
	mu sync.Mutex

	catalog  *dialect.Catalog
	protocol Protocol

	systemID    byte
	componentID byte
	sequence    byte

	signingKey      []byte
	signingLinkID   byte
	acceptSignature AcceptSignaturePredicate
	clock           func() uint64
	monotonicTS     uint64

	lastAcceptedTS map[[3]byte]uint64

	dec   decoderState
	stats Stats
}

// New builds a Channel ready to encode and decode. opts.Catalog must be
// non-nil; a zero Protocol defaults to V1.
func New(opts Options) *Channel {
	proto := opts.Protocol
	if proto == ProtocolUnspecified {
		proto = V1
	}
	c := &Channel{
		catalog:        opts.Catalog,
		protocol:       proto,
		systemID:       opts.SystemID,
		componentID:    opts.ComponentID,
		lastAcceptedTS: make(map[[3]byte]uint64),
		dec:            decoderState{state: stIdle},
	}
	if opts.Clock != nil {
		c.clock = opts.Clock
	} else {
		c.clock = c.defaultClock
	}
	return c
}

// defaultClock produces a strictly increasing microsecond counter local to
// this Channel, used whenever Options.Clock is nil. Real deployments that
// need cross-restart monotonicity should supply their own Clock.
func (c *Channel) defaultClock() uint64 {
	c.monotonicTS++
	return c.monotonicTS
}

// ConfigureSigning arms MAVLink 2 signing for subsequent Encode calls and
// enables signature verification for Feed. A nil key disables signing and
// reverts verification to "treat every signed frame as unverified".
func (c *Channel) ConfigureSigning(key []byte, linkID byte, accept AcceptSignaturePredicate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signingKey = key
	c.signingLinkID = linkID
	c.acceptSignature = accept
}

// SetProtocol forces the channel's current encode/decode protocol. Feed
// auto-upgrades V1->V2 on its own the first time it decodes a valid v2
// frame; SetProtocol is for callers that want to force or downgrade it
// explicitly.
func (c *Channel) SetProtocol(p Protocol) error {
	if p != V1 && p != V2 {
		return fmt.Errorf("%w: protocol must be v1 or v2", ErrBadProtocol)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protocol = p
	return nil
}

// Encode builds a framed byte sequence for msg using the channel's current
// protocol (or msg.Protocol, if set), then advances the channel's sequence
// counter only on success. The signing clock is read before the frame is
// built, so a rejected signed encode still advances the default clock.
func (c *Channel) Encode(msg Message) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	proto := msg.Protocol
	if proto == ProtocolUnspecified {
		proto = c.protocol
	}

	var key []byte
	var ts uint64
	if proto == V2 && c.signingKey != nil {
		key = c.signingKey
		ts = c.clock()
	}

	frame, err := encodeFrame(encodeParams{
		catalog:     c.catalog,
		protocol:    proto,
		sequence:    c.sequence,
		systemID:    c.systemID,
		componentID: c.componentID,
		linkID:      c.signingLinkID,
		signingKey:  key,
		timestamp:   ts,
	}, msg.ID, msg.Fields)
	if err != nil {
		return nil, err
	}

	c.sequence++
	c.stats.FramesEncoded++
	return frame, nil
}

// Feed advances the decoder with newly arrived bytes and returns every
// frame (decoded or errored) completed along the way. Bytes that precede
// any start-of-frame marker are silently discarded; a frame abandoned
// mid-parse (implausible declared length, or the in-progress buffer
// growing past what the catalog's largest message could ever need) is
// rescanned byte by byte for a later start marker instead of being
// dropped outright, so a false marker can never swallow a real frame that
// follows it.
func (c *Channel) Feed(data []byte) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var events []Event
	for _, b := range data {
		if ev, done := c.feedByte(b); done {
			events = append(events, ev)
		}
	}
	return events
}

// Statistics returns a snapshot of the channel's lifetime counters.
func (c *Channel) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
