// Package wire describes the primitive types that MAVLink field values are
// built from: their wire widths, little-endian encoding, and default value
// generation for tests. It knows nothing about messages, dialects, or
// framing — those live in dialect and mavlink.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies a primitive MAVLink field type.
type Kind uint8

const (
	KindUint8 Kind = iota
	KindInt8
	KindUint16
	KindInt16
	KindUint32
	KindInt32
	KindUint64
	KindInt64
	KindFloat32
	KindFloat64
	KindChar
)

var kindNames = map[string]Kind{
	"uint8":                   KindUint8,
	"int8":                    KindInt8,
	"uint8_t_mavlink_version": KindUint8,
	"uint16":                  KindUint16,
	"int16":                   KindInt16,
	"uint32":                  KindUint32,
	"int32":                   KindInt32,
	"uint64":                  KindUint64,
	"int64":                   KindInt64,
	"float":                   KindFloat32,
	"double":                  KindFloat64,
	"char":                    KindChar,
}

// Size returns the wire width, in bytes, of a single scalar of this kind.
func (k Kind) Size() int {
	switch k {
	case KindUint8, KindInt8, KindChar:
		return 1
	case KindUint16, KindInt16:
		return 2
	case KindUint32, KindInt32, KindFloat32:
		return 4
	case KindUint64, KindInt64, KindFloat64:
		return 8
	}
	return 0
}

func (k Kind) String() string {
	for name, kk := range kindNames {
		if kk == k && name != "uint8_t_mavlink_version" {
			return name
		}
	}
	return "unknown"
}

// ParseType parses a dialect field type attribute such as "uint8",
// "char[16]", or "int32[3]" into its scalar kind and array length (1 for a
// bare scalar).
func ParseType(raw string) (kind Kind, arrayLen int, err error) {
	name := raw
	arrayLen = 1
	if i := strings.IndexByte(raw, '['); i >= 0 {
		if !strings.HasSuffix(raw, "]") {
			return 0, 0, fmt.Errorf("wire: malformed array type %q", raw)
		}
		name = raw[:i]
		n, convErr := strconv.Atoi(raw[i+1 : len(raw)-1])
		if convErr != nil || n <= 0 {
			return 0, 0, fmt.Errorf("wire: invalid array length in %q", raw)
		}
		arrayLen = n
	}
	k, ok := kindNames[name]
	if !ok {
		return 0, 0, fmt.Errorf("wire: unknown type %q", name)
	}
	return k, arrayLen, nil
}

// PutUint writes v's low Size(k) bytes, little-endian, into buf. v carries
// the raw bit pattern: for signed kinds callers pass the two's-complement
// representation (uint64(int64Value)).
func PutUint(buf []byte, k Kind, v uint64) {
	switch k {
	case KindUint8, KindInt8, KindChar:
		buf[0] = byte(v)
	case KindUint16, KindInt16:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case KindUint32, KindInt32:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case KindUint64, KindInt64:
		binary.LittleEndian.PutUint64(buf, v)
	default:
		panic("wire: PutUint on non-integer kind")
	}
}

// Uint reads Size(k) little-endian bytes from buf as a raw bit pattern.
func Uint(buf []byte, k Kind) uint64 {
	switch k {
	case KindUint8, KindInt8, KindChar:
		return uint64(buf[0])
	case KindUint16, KindInt16:
		return uint64(binary.LittleEndian.Uint16(buf))
	case KindUint32, KindInt32:
		return uint64(binary.LittleEndian.Uint32(buf))
	case KindUint64, KindInt64:
		return binary.LittleEndian.Uint64(buf)
	}
	panic("wire: Uint on non-integer kind")
}

func putFloat32(buf []byte, v float32) { binary.LittleEndian.PutUint32(buf, math.Float32bits(v)) }
func getFloat32(buf []byte) float32    { return math.Float32frombits(binary.LittleEndian.Uint32(buf)) }
func putFloat64(buf []byte, v float64) { binary.LittleEndian.PutUint64(buf, math.Float64bits(v)) }
func getFloat64(buf []byte) float64    { return math.Float64frombits(binary.LittleEndian.Uint64(buf)) }

// ToInt64 coerces a Go numeric value into an int64, the common currency
// used for range checks before a value is written to the wire.
func ToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("wire: value of type %T is not numeric", v)
	}
}

// ToFloat64 coerces a Go numeric value into a float64.
func ToFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	default:
		n, err := ToInt64(v)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
}

// InRange reports whether n fits in the wire width of an integer kind k.
func InRange(k Kind, n int64) bool {
	switch k {
	case KindUint8:
		return n >= 0 && n <= math.MaxUint8
	case KindInt8:
		return n >= math.MinInt8 && n <= math.MaxInt8
	case KindUint16:
		return n >= 0 && n <= math.MaxUint16
	case KindInt16:
		return n >= math.MinInt16 && n <= math.MaxInt16
	case KindUint32:
		return n >= 0 && n <= math.MaxUint32
	case KindInt32:
		return n >= math.MinInt32 && n <= math.MaxInt32
	case KindUint64, KindInt64:
		return true
	}
	return false
}

// EncodeScalar writes v, an arbitrarily Go-typed number, into buf (exactly
// k.Size() bytes) as the wire representation of kind k.
func EncodeScalar(buf []byte, k Kind, v any) error {
	switch k {
	case KindFloat32:
		f, err := ToFloat64(v)
		if err != nil {
			return err
		}
		putFloat32(buf, float32(f))
		return nil
	case KindFloat64:
		f, err := ToFloat64(v)
		if err != nil {
			return err
		}
		putFloat64(buf, f)
		return nil
	case KindUint64:
		if u, ok := v.(uint64); ok {
			PutUint(buf, k, u)
			return nil
		}
		fallthrough
	default:
		n, err := ToInt64(v)
		if err != nil {
			return err
		}
		if !InRange(k, n) {
			return fmt.Errorf("wire: value %d out of range for %s", n, k)
		}
		PutUint(buf, k, uint64(n))
		return nil
	}
}

// DecodeScalar reads exactly k.Size() bytes from buf and returns the
// idiomatic Go value for kind k (uint8 for KindUint8, int32 for KindInt32,
// float64 for KindFloat64, and so on).
func DecodeScalar(buf []byte, k Kind) any {
	switch k {
	case KindUint8:
		return buf[0]
	case KindInt8:
		return int8(buf[0])
	case KindChar:
		return buf[0]
	case KindUint16:
		return binary.LittleEndian.Uint16(buf)
	case KindInt16:
		return int16(binary.LittleEndian.Uint16(buf))
	case KindUint32:
		return binary.LittleEndian.Uint32(buf)
	case KindInt32:
		return int32(binary.LittleEndian.Uint32(buf))
	case KindUint64:
		return binary.LittleEndian.Uint64(buf)
	case KindInt64:
		return int64(binary.LittleEndian.Uint64(buf))
	case KindFloat32:
		return getFloat32(buf)
	case KindFloat64:
		return getFloat64(buf)
	}
	panic("wire: DecodeScalar on unknown kind")
}

// EncodeArray writes an array of n scalars of kind k into buf (n*k.Size()
// bytes). For KindChar, v may be a string or []byte holding at most n
// bytes; the remainder is zero-padded. For numeric kinds, v must be a slice
// (of any element type ToInt64/ToFloat64 accepts) of length <= n.
func EncodeArray(buf []byte, k Kind, n int, v any) error {
	width := k.Size()
	if len(buf) != n*width {
		return fmt.Errorf("wire: array buffer has %d bytes, want %d", len(buf), n*width)
	}

	if k == KindChar {
		var raw []byte
		switch t := v.(type) {
		case string:
			raw = []byte(t)
		case []byte:
			raw = t
		case nil:
			raw = nil
		default:
			return fmt.Errorf("wire: char array value of type %T not supported", v)
		}
		if len(raw) > n {
			return fmt.Errorf("wire: char array value too long: %d > %d", len(raw), n)
		}
		copy(buf, raw)
		return nil
	}

	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("wire: array value of type %T is not a slice", v)
	}
	if rv.Len() > n {
		return fmt.Errorf("wire: array value has %d elements, want at most %d", rv.Len(), n)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := EncodeScalar(buf[i*width:(i+1)*width], k, rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("wire: array element %d: %w", i, err)
		}
	}
	return nil
}

// DecodeArray reads n scalars of kind k from buf. KindChar arrays decode to
// a string, truncated at the first NUL byte (the MAVLink convention for
// fixed-length char fields). Other kinds decode to a []any of length n.
func DecodeArray(buf []byte, k Kind, n int) any {
	width := k.Size()
	if k == KindChar {
		end := n
		for i := 0; i < n; i++ {
			if buf[i] == 0 {
				end = i
				break
			}
		}
		return string(buf[:end])
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = DecodeScalar(buf[i*width:(i+1)*width], k)
	}
	return out
}

// DefaultValue returns the zero value of a field of kind k and length
// arrayLen: "" for char arrays, a []any of arrayLen nil elements for other
// arrays, and the typed zero scalar otherwise. The encoder does not call
// it; it leaves an omitted field's bytes zero.
func DefaultValue(k Kind, arrayLen int) any {
	if arrayLen > 1 {
		if k == KindChar {
			return ""
		}
		return make([]any, arrayLen)
	}
	switch k {
	case KindFloat32:
		return float32(0)
	case KindFloat64:
		return float64(0)
	case KindUint8, KindChar:
		return uint8(0)
	case KindInt8:
		return int8(0)
	case KindUint16:
		return uint16(0)
	case KindInt16:
		return int16(0)
	case KindUint32:
		return uint32(0)
	case KindInt32:
		return int32(0)
	case KindUint64:
		return uint64(0)
	case KindInt64:
		return int64(0)
	}
	return nil
}

// TestValue returns a deterministic, non-zero value for kind k suitable for
// round-trip tests and code-generator fixtures. seed varies the value so a
// message with several fields of the same kind doesn't collide on a shared
// constant.
func TestValue(k Kind, arrayLen int, seed int) any {
	if arrayLen > 1 {
		if k == KindChar {
			letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
			n := arrayLen - 1
			if n > len(letters) {
				n = len(letters)
			}
			if n < 0 {
				n = 0
			}
			return letters[:n]
		}
		out := make([]any, arrayLen)
		for i := range out {
			out[i] = TestValue(k, 1, seed+i)
		}
		return out
	}

	switch k {
	case KindFloat32:
		return float32(seed) + 0.5
	case KindFloat64:
		return float64(seed) + 0.25
	case KindUint8, KindChar:
		return uint8((seed%200 + 17) & 0xFF)
	case KindInt8:
		return int8(-(seed%50 + 1))
	case KindUint16:
		return uint16(seed%60000 + 1000)
	case KindInt16:
		return int16(-(seed%16000 + 1))
	case KindUint32:
		return uint32(seed)*100000 + 12345
	case KindInt32:
		return -(int32(seed)*1000 + 1)
	case KindUint64:
		return uint64(seed)*1_000_000_007 + 1
	case KindInt64:
		return -(int64(seed)*1_000_000_007 + 1)
	}
	return nil
}
