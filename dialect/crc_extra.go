package dialect

import (
	"mavcodec/checksum"
	"mavcodec/wire"
)

// computeCRCExtra derives the per-message CRC_EXTRA seed: the checksum
// accumulates the message name, a space, then for each core field (in
// wire order, no extensions) its C type name (see crcTypeName), a space,
// its field name, a space, and — for array fields — the array length as a
// raw byte.
// This is the same accumulation every MAVLink codegen implementation runs
// so that sender and receiver dialects detect a version skew; the array
// length byte is included for array-typed fields because the CRC_EXTRA
// exists specifically to catch layout drift, and two dialects that differ
// only in an array's length would otherwise checksum identically.
func computeCRCExtra(name string, wireFields []FieldSpec) byte {
	crc := checksum.Init()
	crc = checksum.AccumulateBytes(crc, []byte(name))
	crc = checksum.Accumulate(crc, ' ')

	for _, f := range wireFields {
		if f.IsExtension {
			continue
		}
		crc = checksum.AccumulateBytes(crc, []byte(crcTypeName(f.Kind)))
		crc = checksum.Accumulate(crc, ' ')
		crc = checksum.AccumulateBytes(crc, []byte(f.Name))
		crc = checksum.Accumulate(crc, ' ')
		if f.ArrayLen > 1 {
			crc = checksum.Accumulate(crc, byte(f.ArrayLen))
		}
	}

	return byte(crc>>8) ^ byte(crc)
}

// crcTypeName is the C type name a field's kind contributes to CRC_EXTRA:
// "uint8_t", "int32_t" and so on for integers, "float", "double" and
// "char" otherwise. "uint8_t_mavlink_version" therefore counts as "uint8_t".
func crcTypeName(k wire.Kind) string {
	switch k {
	case wire.KindFloat32, wire.KindFloat64, wire.KindChar:
		return k.String()
	}
	return k.String() + "_t"
}
