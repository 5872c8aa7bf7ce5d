package mavlink

import (
	"crypto/sha256"
	"fmt"

	"mavcodec/checksum"
	"mavcodec/dialect"
)

const (
	startV1            byte = 0xFE
	startV2            byte = 0xFD
	incompatFlagSigned byte = 0x01
)

// encodeParams is everything the stateless encode step needs; Channel.Encode
// gathers these under its lock and hands them off, keeping the actual
// framing algorithm free of mutex or sequencing concerns.
type encodeParams struct {
	catalog     *dialect.Catalog
	protocol    Protocol
	sequence    byte
	systemID    byte
	componentID byte
	linkID      byte
	signingKey  []byte // nil disables signing for this frame
	timestamp   uint64 // 48-bit, only consulted when signingKey != nil
}

// encodeFrame resolves the message spec, packs its fields into a payload,
// and wraps that payload in a v1 or v2 frame (checksum and, for v2, an
// optional signature trailer). It never mutates channel state —
// Channel.Encode applies the sequence increment only after this returns
// successfully, so a rejected encode never consumes a sequence number.
func encodeFrame(p encodeParams, key any, fields map[string]any) ([]byte, error) {
	spec, err := resolveMessageSpec(p.catalog, key)
	if err != nil {
		return nil, err
	}

	if spec.HasExtensions && p.protocol == V1 {
		return nil, fmt.Errorf("%w: %q has extension fields, not valid under v1", ErrBadProtocol, spec.Name)
	}

	payloadLen := spec.PayloadLen
	if p.protocol == V2 {
		payloadLen = spec.MaxPayloadLen
	}
	if payloadLen > 255 {
		return nil, fmt.Errorf("%w: message %q payload length %d exceeds 255", ErrEncodeOverflow, spec.Name, payloadLen)
	}

	payload := make([]byte, payloadLen)
	offset := 0
	for _, f := range spec.WireFields {
		if f.IsExtension && p.protocol == V1 {
			continue
		}
		size := f.Size()
		val, has := fields[f.Name]
		if has {
			if err := encodeFieldValue(payload[offset:offset+size], f, p.catalog, val); err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		offset += size
	}

	if p.protocol == V2 {
		end := len(payload)
		for end > 1 && payload[end-1] == 0 {
			end--
		}
		payload = payload[:end]
	}

	var header []byte
	if p.protocol == V1 {
		header = []byte{startV1, byte(len(payload)), p.sequence, p.systemID, p.componentID, byte(spec.ID)}
	} else {
		incompat := byte(0)
		if p.signingKey != nil {
			incompat |= incompatFlagSigned
		}
		header = []byte{
			startV2, byte(len(payload)), incompat, 0,
			p.sequence, p.systemID, p.componentID,
			byte(spec.ID), byte(spec.ID >> 8), byte(spec.ID >> 16),
		}
	}

	crc := checksum.Init()
	crc = checksum.AccumulateBytes(crc, header[1:])
	crc = checksum.AccumulateBytes(crc, payload)
	crc = checksum.Finalize(crc, spec.CRCExtra)

	frame := make([]byte, 0, len(header)+len(payload)+2+13)
	frame = append(frame, header...)
	frame = append(frame, payload...)
	frame = append(frame, byte(crc), byte(crc>>8))

	if p.protocol == V2 && p.signingKey != nil {
		ts := p.timestamp
		trailer := []byte{
			p.linkID,
			byte(ts), byte(ts >> 8), byte(ts >> 16), byte(ts >> 24), byte(ts >> 32), byte(ts >> 40),
		}
		h := sha256.New()
		h.Write(p.signingKey)
		h.Write(frame)
		h.Write(trailer)
		sig := h.Sum(nil)[:6]

		frame = append(frame, trailer...)
		frame = append(frame, sig...)
	}

	return frame, nil
}
