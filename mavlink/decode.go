package mavlink

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"mavcodec/checksum"
	"mavcodec/dialect"
)

// decState is one state of the byte-driven frame decoder. A persistent
// buffer (decoderState.frameBuf) rather than a coroutine makes partial
// input trivially resumable across Feed calls.
type decState int

const (
	stIdle decState = iota
	stLen
	stIncompat
	stCompat
	stHeader
	stPayload
	stChecksumLo
	stChecksumHi
	stSig
)

type decoderState struct {
	state decState
	proto Protocol

	// frameBuf accumulates every byte of the frame currently in
	// progress, starting at the start-of-frame marker. It is also the
	// buffer hashed for signature verification.
	frameBuf []byte

	payloadDeclared int
	incompat        byte
	headerEnd       int // index into frameBuf where the payload begins

	spec   *dialect.MessageSpec
	specOK bool

	seq, sysID, compID byte
	msgID              uint32

	throughChecksumLen int // len(frameBuf) once the checksum bytes are in
	finalPayload       []byte
}

func (d *decoderState) reset() {
	*d = decoderState{state: stIdle}
}

// maxFrameLen bounds an in-progress frame: 10-byte v2 header, the largest
// declared payload the catalog knows about, a 2-byte checksum, and a
// 13-byte signature trailer. A frame that grows past this without
// completing is corrupt and must not be allowed to stall the decoder
// indefinitely.
func (c *Channel) maxFrameLen() int {
	return 10 + c.catalog.MaxDeclaredPayloadLen() + 2 + 13
}

// feedByte advances the state machine by one byte. It returns a decoded or
// errored Event and true when a frame completes (successfully or not);
// otherwise it returns false, meaning the frame is still in progress.
func (c *Channel) feedByte(b byte) (Event, bool) {
	d := &c.dec

	if d.state == stIdle {
		switch b {
		case startV1:
			d.reset()
			d.state = stLen
			d.proto = V1
			d.frameBuf = append(d.frameBuf, b)
		case startV2:
			d.reset()
			d.state = stLen
			d.proto = V2
			d.frameBuf = append(d.frameBuf, b)
		}
		return Event{}, false
	}

	d.frameBuf = append(d.frameBuf, b)

	if len(d.frameBuf) > c.maxFrameLen() {
		return c.abandonAndResync(d)
	}

	switch d.state {
	case stLen:
		d.payloadDeclared = int(b)
		if d.payloadDeclared > c.catalog.MaxDeclaredPayloadLen() {
			return c.abandonAndResync(d)
		}
		if d.proto == V1 {
			d.headerEnd = 6
			d.state = stHeader
		} else {
			d.state = stIncompat
		}
		return Event{}, false

	case stIncompat:
		d.incompat = b
		d.state = stCompat
		return Event{}, false

	case stCompat:
		d.headerEnd = 10
		d.state = stHeader
		return Event{}, false

	case stHeader:
		if len(d.frameBuf) < d.headerEnd {
			return Event{}, false
		}
		if d.proto == V1 {
			d.seq = d.frameBuf[2]
			d.sysID = d.frameBuf[3]
			d.compID = d.frameBuf[4]
			d.msgID = uint32(d.frameBuf[5])
		} else {
			d.seq = d.frameBuf[4]
			d.sysID = d.frameBuf[5]
			d.compID = d.frameBuf[6]
			d.msgID = uint32(d.frameBuf[7]) | uint32(d.frameBuf[8])<<8 | uint32(d.frameBuf[9])<<16
		}
		d.spec, d.specOK = c.catalog.MessageByID(d.msgID)
		if d.specOK && !declaredLengthPlausible(d.proto, d.spec, d.payloadDeclared) {
			return c.abandonAndResync(d)
		}
		if d.payloadDeclared == 0 {
			d.state = stChecksumLo
		} else {
			d.state = stPayload
		}
		return Event{}, false

	case stPayload:
		if len(d.frameBuf)-d.headerEnd < d.payloadDeclared {
			return Event{}, false
		}
		d.state = stChecksumLo
		return Event{}, false

	case stChecksumLo:
		d.state = stChecksumHi
		return Event{}, false

	case stChecksumHi:
		return c.finishFrame(d)

	case stSig:
		if len(d.frameBuf)-d.throughChecksumLen < 13 {
			return Event{}, false
		}
		return c.finishSigned(d)
	}

	return Event{}, false
}

// declaredLengthPlausible reports whether a header's declared payload
// length is consistent with a known message spec: v1 requires an exact
// match, v2 allows anything up to the field-carrying maximum since trailing
// zero bytes may have been truncated.
func declaredLengthPlausible(proto Protocol, spec *dialect.MessageSpec, declared int) bool {
	if proto == V1 {
		return declared == spec.PayloadLen
	}
	return declared <= spec.MaxPayloadLen
}

// abandonAndResync drops the leading byte of the frame in progress (the
// false start marker that led here) and re-feeds everything after it, so a
// stray 0xFE/0xFD inside garbage data never swallows a real frame that
// follows it. It never discards bytes outright: every byte after the false
// start is re-examined for a start marker of its own.
func (c *Channel) abandonAndResync(d *decoderState) (Event, bool) {
	rest := append([]byte(nil), d.frameBuf[1:]...)
	d.reset()
	for _, b := range rest {
		if ev, done := c.feedByte(b); done {
			return ev, true
		}
	}
	return Event{}, false
}

func (c *Channel) finishFrame(d *decoderState) (Event, bool) {
	end := len(d.frameBuf)
	d.throughChecksumLen = end
	gotCRC := uint16(d.frameBuf[end-2]) | uint16(d.frameBuf[end-1])<<8

	if !d.specOK {
		c.stats.UnknownMessage++
		err := fmt.Errorf("%w: id %d", ErrUnknownMessage, d.msgID)
		d.reset()
		return Event{Err: err}, true
	}

	crcCovered := d.frameBuf[1 : end-2]
	crc := checksum.Init()
	crc = checksum.AccumulateBytes(crc, crcCovered)
	wantCRC := checksum.Finalize(crc, d.spec.CRCExtra)
	if gotCRC != wantCRC {
		c.stats.BadChecksum++
		d.reset()
		return Event{Err: ErrBadChecksum}, true
	}

	rawPayload := d.frameBuf[d.headerEnd : end-2]
	payload, err := c.normalizePayload(d.proto, d.spec, rawPayload)
	if err != nil {
		d.reset()
		return Event{Err: err}, true
	}
	d.finalPayload = payload

	if d.proto == V2 && d.incompat&incompatFlagSigned != 0 {
		d.state = stSig
		return Event{}, false
	}

	rec := c.buildRecord(d, payload, nil)
	c.stats.FramesDecoded++
	c.afterDecodeSuccess(d.proto)
	d.reset()
	return Event{Record: &rec}, true
}

func (c *Channel) normalizePayload(proto Protocol, spec *dialect.MessageSpec, raw []byte) ([]byte, error) {
	if proto == V1 {
		if len(raw) != spec.PayloadLen {
			c.stats.BadLength++
			return nil, ErrBadLength
		}
		return raw, nil
	}

	if len(raw) >= spec.MaxPayloadLen {
		return raw[:spec.MaxPayloadLen], nil
	}
	padded := make([]byte, spec.MaxPayloadLen)
	copy(padded, raw)
	return padded, nil
}

type sigResult struct {
	linkID byte
	valid  bool
}

func (c *Channel) finishSigned(d *decoderState) (Event, bool) {
	sigBuf := d.frameBuf[d.throughChecksumLen:]
	linkID := sigBuf[0]
	ts := uint64(sigBuf[1]) | uint64(sigBuf[2])<<8 | uint64(sigBuf[3])<<16 |
		uint64(sigBuf[4])<<24 | uint64(sigBuf[5])<<32 | uint64(sigBuf[6])<<40
	gotSig := sigBuf[7:13]

	valid := false
	if len(c.signingKey) > 0 {
		h := sha256.New()
		h.Write(c.signingKey)
		h.Write(d.frameBuf[:d.throughChecksumLen])
		h.Write(sigBuf[0:7])
		wantSig := h.Sum(nil)[:6]
		valid = subtle.ConstantTimeCompare(wantSig, gotSig) == 1
	}

	originKey := [3]byte{d.sysID, d.compID, linkID}
	if last, seen := c.lastAcceptedTS[originKey]; seen && ts < last {
		valid = false
	}

	if !valid {
		if c.acceptSignature != nil {
			tentative := c.buildRecord(d, d.finalPayload, &sigResult{linkID: linkID, valid: false})
			if c.acceptSignature(tentative) {
				c.lastAcceptedTS[originKey] = ts
				c.stats.FramesDecoded++
				c.afterDecodeSuccess(d.proto)
				d.reset()
				return Event{Record: &tentative}, true
			}
		}
		c.stats.BadSignature++
		d.reset()
		return Event{Err: ErrBadSignature}, true
	}

	c.lastAcceptedTS[originKey] = ts
	rec := c.buildRecord(d, d.finalPayload, &sigResult{linkID: linkID, valid: true})
	c.stats.FramesDecoded++
	c.afterDecodeSuccess(d.proto)
	d.reset()
	return Event{Record: &rec}, true
}

func (c *Channel) buildRecord(d *decoderState, payload []byte, sig *sigResult) Record {
	fields := make(map[string]any, len(d.spec.WireFields))
	offset := 0
	for _, f := range d.spec.WireFields {
		size := f.Size()
		if offset+size > len(payload) {
			break
		}
		fields[f.Name] = decodeFieldValue(payload[offset:offset+size], f, c.catalog)
		offset += size
	}

	rec := Record{
		MessageID:   d.spec.ID,
		MessageName: d.spec.Name,
		Fields:      fields,
		Protocol:    d.proto,
		Sequence:    d.seq,
		SystemID:    d.sysID,
		ComponentID: d.compID,
	}
	if sig != nil {
		rec.LinkID = sig.linkID
		rec.HaveSignature = true
		rec.SignatureValid = sig.valid
	}
	return rec
}

func (c *Channel) afterDecodeSuccess(proto Protocol) {
	if proto == V2 && c.protocol == V1 {
		c.protocol = V2
	}
}
