package mavlink

import (
	"bytes"
	"testing"

	"mavcodec/dialect"
)

func commonCatalog(t *testing.T) *dialect.Catalog {
	t.Helper()
	res, err := dialect.Load(bytes.NewReader(dialect.CommonXML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected recoverable errors: %v", res.Errors)
	}
	return res.Catalog
}

// TestRoundTripEnumAndBitmaskFields exercises enum and bitmask round-trip
// behavior together: symbolic encode in, symbolic decode out, with the
// bitmask's unknown bits preserved in the residual.
func TestRoundTripEnumAndBitmaskFields(t *testing.T) {
	catalog := commonCatalog(t)
	ch := New(Options{Catalog: catalog, Protocol: V1, SystemID: 1, ComponentID: 1})

	frame, err := ch.Encode(Message{
		ID: "HEARTBEAT",
		Fields: map[string]any{
			"type":            "MAV_TYPE_QUADROTOR",
			"autopilot":       "MAV_AUTOPILOT_PX4",
			"base_mode":       Bitmask{Flags: []string{"MAV_MODE_FLAG_SAFETY_ARMED"}, UnknownBits: 0x01},
			"system_status":   "MAV_STATE_ACTIVE",
			"mavlink_version": uint8(3),
			"custom_mode":     uint32(42),
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoder := New(Options{Catalog: catalog})
	events := decoder.Feed(frame)
	if len(events) != 1 || events[0].Err != nil {
		t.Fatalf("decode: %+v", events)
	}
	rec := events[0].Record

	typ, ok := rec.Fields["type"].(EnumValue)
	if !ok || !typ.Known || typ.Symbol != "MAV_TYPE_QUADROTOR" {
		t.Fatalf("type = %+v, want known MAV_TYPE_QUADROTOR", rec.Fields["type"])
	}
	autopilot, ok := rec.Fields["autopilot"].(EnumValue)
	if !ok || autopilot.Symbol != "MAV_AUTOPILOT_PX4" {
		t.Fatalf("autopilot = %+v", rec.Fields["autopilot"])
	}
	mode, ok := rec.Fields["base_mode"].(Bitmask)
	if !ok {
		t.Fatalf("base_mode decoded as %T, want Bitmask", rec.Fields["base_mode"])
	}
	if len(mode.Flags) != 1 || mode.Flags[0] != "MAV_MODE_FLAG_SAFETY_ARMED" {
		t.Fatalf("flags = %v, want [MAV_MODE_FLAG_SAFETY_ARMED]", mode.Flags)
	}
	if mode.UnknownBits != 0x01 {
		t.Fatalf("unknown bits = %#x, want 0x01", mode.UnknownBits)
	}
	if rec.Fields["custom_mode"] != uint32(42) {
		t.Fatalf("custom_mode = %v, want 42", rec.Fields["custom_mode"])
	}
}

// TestRoundTripExtensionFieldsV2 exercises extension fields, which only
// exist on the wire under v2 (a v1 encode of such a message is rejected;
// see TestV1RejectsExtensionMessage).
func TestRoundTripExtensionFieldsV2(t *testing.T) {
	catalog := commonCatalog(t)
	ch := New(Options{Catalog: catalog, Protocol: V2})

	fields := map[string]any{
		"target_system":    uint8(1),
		"target_component": uint8(1),
		"seq":              uint16(7),
		"lat_deg":          float32(47.5),
		"lon_deg":          float32(-122.3),
		"alt_m":            float32(100),
		"accept_radius_m":  float32(5),
		"label":            "RWY27",
	}
	frame, err := ch.Encode(Message{ID: "WAYPOINT_EXT", Fields: fields})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoder := New(Options{Catalog: catalog, Protocol: V2})
	events := decoder.Feed(frame)
	if len(events) != 1 || events[0].Err != nil {
		t.Fatalf("decode: %+v", events)
	}
	rec := events[0].Record
	if rec.Fields["label"] != "RWY27" {
		t.Fatalf("label = %v, want RWY27", rec.Fields["label"])
	}
	if rec.Fields["accept_radius_m"] != float32(5) {
		t.Fatalf("accept_radius_m = %v, want 5", rec.Fields["accept_radius_m"])
	}
	if rec.Fields["seq"] != uint16(7) {
		t.Fatalf("seq = %v, want 7", rec.Fields["seq"])
	}
}

func TestStatisticsTrackEncodeAndDecode(t *testing.T) {
	catalog := heartbeatCatalog(t)
	ch := New(Options{Catalog: catalog, Protocol: V1})

	frame, err := ch.Encode(Message{ID: "HEARTBEAT", Fields: heartbeatFields()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ch.Feed(frame)
	frame[len(frame)-1] ^= 0xFF
	ch.Feed(frame)

	stats := ch.Statistics()
	if stats.FramesEncoded != 1 {
		t.Fatalf("FramesEncoded = %d, want 1", stats.FramesEncoded)
	}
	if stats.FramesDecoded != 1 {
		t.Fatalf("FramesDecoded = %d, want 1", stats.FramesDecoded)
	}
	if stats.BadChecksum != 1 {
		t.Fatalf("BadChecksum = %d, want 1", stats.BadChecksum)
	}
}

func TestSetProtocolRejectsUnspecified(t *testing.T) {
	catalog := heartbeatCatalog(t)
	ch := New(Options{Catalog: catalog})
	if err := ch.SetProtocol(ProtocolUnspecified); err == nil {
		t.Fatal("expected an error for ProtocolUnspecified")
	}
}
