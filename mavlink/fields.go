package mavlink

import (
	"fmt"

	"mavcodec/dialect"
	"mavcodec/wire"
)

// resolveMessageSpec looks a message up by numeric id or by name, so callers
// can address a message either way.
func resolveMessageSpec(catalog *dialect.Catalog, key any) (*dialect.MessageSpec, error) {
	if name, ok := key.(string); ok {
		m, ok := catalog.MessageByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, name)
		}
		return m, nil
	}
	id, err := wire.ToInt64(key)
	if err != nil || id < 0 {
		return nil, fmt.Errorf("%w: invalid message key %v", ErrUnknownMessage, key)
	}
	m, ok := catalog.MessageByID(uint32(id))
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownMessage, id)
	}
	return m, nil
}

// encodeFieldValue writes an application-supplied value into buf according
// to f's kind, applying enum/bitmask symbolic resolution first.
func encodeFieldValue(buf []byte, f dialect.FieldSpec, catalog *dialect.Catalog, value any) error {
	if value == nil {
		return nil // buf is already zeroed; this is the "missing field defaults to zero" rule
	}

	if f.EnumGroup != "" {
		enum, _ := catalog.Enum(f.EnumGroup)
		if f.IsBitmask {
			mask, err := resolveBitmask(enum, value)
			if err != nil {
				return err
			}
			return wrapRangeErr(wire.EncodeScalar(buf, f.Kind, mask))
		}
		num, err := resolveEnumValue(enum, value)
		if err != nil {
			return err
		}
		return wrapRangeErr(wire.EncodeScalar(buf, f.Kind, num))
	}

	if f.ArrayLen > 1 {
		return wrapRangeErr(wire.EncodeArray(buf, f.Kind, f.ArrayLen, value))
	}
	return wrapRangeErr(wire.EncodeScalar(buf, f.Kind, value))
}

// wrapRangeErr folds a wire-layer encoding failure into the ErrFieldOutOfRange
// sentinel, so callers can errors.Is against it regardless of which wire
// helper rejected the value.
func wrapRangeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrFieldOutOfRange, err)
}

func resolveEnumValue(enum *dialect.EnumSpec, value any) (uint64, error) {
	switch v := value.(type) {
	case EnumValue:
		if v.Known {
			if enum != nil {
				if n, ok := enum.Lookup(v.Symbol); ok {
					return n, nil
				}
			}
			return 0, fmt.Errorf("%w: enum symbol %q", ErrFieldUnknown, v.Symbol)
		}
		return v.Raw, nil
	case string:
		if enum == nil {
			return 0, fmt.Errorf("%w: no enum group for symbolic value %q", ErrFieldUnknown, v)
		}
		n, ok := enum.Lookup(v)
		if !ok {
			return 0, fmt.Errorf("%w: enum symbol %q", ErrFieldUnknown, v)
		}
		return n, nil
	default:
		n, err := wire.ToInt64(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: enum value %v", ErrFieldOutOfRange, value)
		}
		return uint64(n), nil
	}
}

func resolveBitmask(enum *dialect.EnumSpec, value any) (uint64, error) {
	switch v := value.(type) {
	case Bitmask:
		mask := v.UnknownBits
		for _, name := range v.Flags {
			if enum == nil {
				return 0, fmt.Errorf("%w: no enum group for flag %q", ErrFieldUnknown, name)
			}
			bit, ok := enum.Lookup(name)
			if !ok {
				return 0, fmt.Errorf("%w: flag %q", ErrFieldUnknown, name)
			}
			mask |= bit
		}
		return mask, nil
	case []string:
		return resolveBitmask(enum, Bitmask{Flags: v})
	default:
		n, err := wire.ToInt64(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: bitmask value %v", ErrFieldOutOfRange, value)
		}
		return uint64(n), nil
	}
}

// decodeFieldValue reads one field's bytes out of a payload and returns the
// application-facing value: EnumValue/Bitmask for enum-typed fields, a
// string for char arrays, or the idiomatic Go scalar/[]any otherwise.
func decodeFieldValue(buf []byte, f dialect.FieldSpec, catalog *dialect.Catalog) any {
	if f.EnumGroup != "" {
		enum, _ := catalog.Enum(f.EnumGroup)
		raw := wire.Uint(buf, f.Kind)
		if f.IsBitmask {
			return decodeBitmask(enum, raw)
		}
		return decodeEnumValue(enum, raw)
	}
	if f.ArrayLen > 1 {
		return wire.DecodeArray(buf, f.Kind, f.ArrayLen)
	}
	return wire.DecodeScalar(buf, f.Kind)
}

func decodeEnumValue(enum *dialect.EnumSpec, raw uint64) EnumValue {
	if enum != nil {
		if name, ok := enum.Name(raw); ok {
			return EnumValue{Symbol: name, Raw: raw, Known: true}
		}
	}
	return EnumValue{Raw: raw}
}

func decodeBitmask(enum *dialect.EnumSpec, raw uint64) Bitmask {
	var flags []string
	remaining := raw
	if enum != nil {
		for _, e := range enum.Entries() {
			if e.Value != 0 && remaining&e.Value == e.Value {
				flags = append(flags, e.Name)
				remaining &^= e.Value
			}
		}
	}
	return Bitmask{Flags: flags, UnknownBits: remaining}
}
