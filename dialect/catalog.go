// Package dialect compiles MAVLink XML dialect documents into an in-memory
// catalog of message and enum specifications: the id/name indexes, the
// wire-order field layout, and the per-message CRC_EXTRA seed that
// encode and decode rely on.
package dialect

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"

	"mavcodec/wire"
)

// FieldSpec describes one message field: its name, wire type, array
// length (1 for a scalar), optional enum group, and whether it is an
// extension field (present only in MAVLink 2, excluded from CRC_EXTRA).
type FieldSpec struct {
	Name        string
	TypeName    string // declared type text, without any "[N]" suffix
	Kind        wire.Kind
	ArrayLen    int
	EnumGroup   string // "" if the field has no enum
	IsBitmask   bool   // mirrors EnumGroup's enum spec, resolved at build time
	IsExtension bool
}

// Size is the field's wire width in bytes.
func (f FieldSpec) Size() int {
	return f.Kind.Size() * f.ArrayLen
}

// MessageSpec is a compiled message definition.
type MessageSpec struct {
	ID            uint32
	Name          string
	DeclFields    []FieldSpec // declaration order, as written in the XML
	WireFields    []FieldSpec // core fields sorted by descending width, then declaration-order extensions
	CRCExtra      byte
	HasExtensions bool
	PayloadLen    int // sum of core (non-extension) field sizes — the v1 declared length
	MaxPayloadLen int // PayloadLen plus extension field sizes — the v2 maximum length
}

// EnumSpec is a compiled enum group: a name/value bijection, plus whether
// the group is a bitmask (set-of-flags) group.
type EnumSpec struct {
	name      string
	IsBitmask bool

	byName  map[string]uint64
	byValue map[uint64]string
}

// Lookup resolves a symbolic key to its numeric value.
func (e *EnumSpec) Lookup(name string) (uint64, bool) {
	v, ok := e.byName[name]
	return v, ok
}

// Name resolves a numeric value to its symbolic key, if known.
func (e *EnumSpec) Name(value uint64) (string, bool) {
	n, ok := e.byValue[value]
	return n, ok
}

// Entries returns every name/value pair in ascending order of value.
func (e *EnumSpec) Entries() []EnumEntry {
	out := make([]EnumEntry, 0, len(e.byName))
	for name, value := range e.byName {
		out = append(out, EnumEntry{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// EnumEntry is a single symbolic-key/numeric-value pair.
type EnumEntry struct {
	Name  string
	Value uint64
}

// Catalog is the immutable, shared result of compiling one or more dialect
// documents. It is safe for concurrent read-only use by any number of
// Channels.
type Catalog struct {
	messagesByID   map[uint32]*MessageSpec
	messagesByName map[string]*MessageSpec
	enums          map[string]*EnumSpec
	maxPayloadLen  int
}

// MessageByID looks up a message by its numeric id.
func (c *Catalog) MessageByID(id uint32) (*MessageSpec, bool) {
	m, ok := c.messagesByID[id]
	return m, ok
}

// MessageByName looks up a message by its declared name.
func (c *Catalog) MessageByName(name string) (*MessageSpec, bool) {
	m, ok := c.messagesByName[name]
	return m, ok
}

// Enum looks up an enum group by name.
func (c *Catalog) Enum(name string) (*EnumSpec, bool) {
	e, ok := c.enums[name]
	return e, ok
}

// MaxDeclaredPayloadLen is the largest MaxPayloadLen across every message
// this catalog knows about. A decoder uses it to reject an implausibly
// large declared payload length before it wastes time waiting for bytes
// that can never arrive. It falls back to the protocol ceiling of 255 when
// the catalog holds no messages, since an empty catalog carries no basis
// for a tighter bound.
func (c *Catalog) MaxDeclaredPayloadLen() int {
	if c.maxPayloadLen == 0 {
		return 255
	}
	return c.maxPayloadLen
}

// LoadResult is the outcome of a successful Load: the compiled catalog
// plus any per-message errors that were recoverable (the message was
// dropped but loading otherwise continued).
type LoadResult struct {
	Catalog *Catalog
	Errors  []error
}

// Load parses and merges one or more dialect XML documents into a single
// catalog. Later documents extend earlier ones. A message id collision or
// an enum entry collision across documents is fatal and aborts
// construction entirely (ErrDialectLoadFailed). A field referencing an
// unknown wire type or unknown enum group causes only that message to be
// rejected; loading continues with the rest.
func Load(docs ...io.Reader) (*LoadResult, error) {
	enums := map[string]*EnumSpec{}
	messagesByID := map[uint32]*MessageSpec{}
	messagesByName := map[string]*MessageSpec{}
	var recoverable []error

	for docIndex, r := range docs {
		var raw rawDialect
		if err := xml.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: document %d: malformed xml: %v", ErrDialectLoadFailed, docIndex, err)
		}

		for _, re := range raw.Enums {
			if err := mergeEnum(enums, re); err != nil {
				return nil, err
			}
		}

		for _, rm := range raw.Messages {
			spec, err := compileMessage(rm, enums)
			if err != nil {
				recoverable = append(recoverable, err)
				continue
			}

			if existing, ok := messagesByID[spec.ID]; ok {
				return nil, fmt.Errorf("%w: message id %d used by both %q and %q",
					ErrDialectLoadFailed, spec.ID, existing.Name, spec.Name)
			}

			messagesByID[spec.ID] = spec
			messagesByName[spec.Name] = spec
		}
	}

	maxPayloadLen := 0
	for _, spec := range messagesByID {
		if spec.MaxPayloadLen > maxPayloadLen {
			maxPayloadLen = spec.MaxPayloadLen
		}
	}

	return &LoadResult{
		Catalog: &Catalog{
			messagesByID:   messagesByID,
			messagesByName: messagesByName,
			enums:          enums,
			maxPayloadLen:  maxPayloadLen,
		},
		Errors: recoverable,
	}, nil
}

func mergeEnum(enums map[string]*EnumSpec, re rawEnum) error {
	e, ok := enums[re.Name]
	if !ok {
		e = &EnumSpec{
			name:    re.Name,
			byName:  map[string]uint64{},
			byValue: map[uint64]string{},
		}
		enums[re.Name] = e
	}
	if re.Bitmask == "true" {
		e.IsBitmask = true
	}

	for _, entry := range re.Entries {
		value, err := strconv.ParseUint(entry.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("%w: enum %q entry %q: invalid value %q: %v",
				ErrDialectLoadFailed, re.Name, entry.Name, entry.Value, err)
		}
		if existingName, ok := e.byValue[value]; ok && existingName != entry.Name {
			return fmt.Errorf("%w: enum %q: value %d claimed by both %q and %q",
				ErrDialectLoadFailed, re.Name, value, existingName, entry.Name)
		}
		if existingValue, ok := e.byName[entry.Name]; ok && existingValue != value {
			return fmt.Errorf("%w: enum %q: entry %q redefined with value %d (was %d)",
				ErrDialectLoadFailed, re.Name, entry.Name, value, existingValue)
		}
		e.byName[entry.Name] = value
		e.byValue[value] = entry.Name
	}
	return nil
}

func compileMessage(rm rawMessage, enums map[string]*EnumSpec) (*MessageSpec, error) {
	if rm.ID < 0 {
		return nil, fmt.Errorf("message %q: negative id %d", rm.Name, rm.ID)
	}

	declFields := make([]FieldSpec, 0, len(rm.Fields))
	for i, rf := range rm.Fields {
		kind, arrayLen, err := wire.ParseType(rf.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: message %q field %q: %v", ErrUnknownFieldType, rm.Name, rf.Name, err)
		}

		isExtension := rm.ExtensionsAt >= 0 && i >= rm.ExtensionsAt

		isBitmask := false
		if rf.Enum != "" {
			e, ok := enums[rf.Enum]
			if !ok {
				return nil, fmt.Errorf("%w: message %q field %q references enum %q",
					ErrUnknownEnumGroup, rm.Name, rf.Name, rf.Enum)
			}
			isBitmask = e.IsBitmask
		}

		declFields = append(declFields, FieldSpec{
			Name:        rf.Name,
			TypeName:    baseTypeName(rf.Type),
			Kind:        kind,
			ArrayLen:    arrayLen,
			EnumGroup:   rf.Enum,
			IsBitmask:   isBitmask,
			IsExtension: isExtension,
		})
	}

	core := make([]FieldSpec, 0, len(declFields))
	ext := make([]FieldSpec, 0)
	for _, f := range declFields {
		if f.IsExtension {
			ext = append(ext, f)
		} else {
			core = append(core, f)
		}
	}

	sort.SliceStable(core, func(i, j int) bool {
		return core[i].Kind.Size() > core[j].Kind.Size()
	})

	wireFields := make([]FieldSpec, 0, len(declFields))
	wireFields = append(wireFields, core...)
	wireFields = append(wireFields, ext...)

	payloadLen := 0
	for _, f := range core {
		payloadLen += f.Size()
	}
	maxPayloadLen := payloadLen
	for _, f := range ext {
		maxPayloadLen += f.Size()
	}

	spec := &MessageSpec{
		ID:            uint32(rm.ID),
		Name:          rm.Name,
		DeclFields:    declFields,
		WireFields:    wireFields,
		HasExtensions: len(ext) > 0,
		PayloadLen:    payloadLen,
		MaxPayloadLen: maxPayloadLen,
	}
	spec.CRCExtra = computeCRCExtra(spec.Name, core)
	return spec, nil
}

func baseTypeName(raw string) string {
	for i, r := range raw {
		if r == '[' {
			return raw[:i]
		}
	}
	return raw
}
