package mavlink

import "errors"

// Sentinel error kinds, propagated through Channel.Encode's return error or
// through Event.Err for decode failures. Callers match against these with
// errors.Is.
var (
	ErrUnknownMessage  = errors.New("mavlink: unknown message")
	ErrBadProtocol     = errors.New("mavlink: bad protocol")
	ErrFieldOutOfRange = errors.New("mavlink: field value out of range")
	ErrFieldUnknown    = errors.New("mavlink: unknown field symbol")
	ErrEncodeOverflow  = errors.New("mavlink: payload exceeds maximum length")

	ErrBadChecksum  = errors.New("mavlink: bad checksum")
	ErrBadLength    = errors.New("mavlink: bad length")
	ErrBadSignature = errors.New("mavlink: bad signature")
)
