package mavlog

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mavcodec/dialect"
	"mavcodec/mavlink"
)

func TestRecordReplay_RoundTripFramesInOrder(t *testing.T) {
	res, err := dialect.Load(bytes.NewReader(dialect.CommonXML))
	if err != nil {
		t.Fatalf("dialect.Load() error: %v", err)
	}

	ch := mavlink.New(mavlink.Options{Catalog: res.Catalog, Protocol: mavlink.V1, SystemID: 1, ComponentID: 1})
	heartbeat := func(mode uint8) []byte {
		frame, err := ch.Encode(mavlink.Message{
			ID: "HEARTBEAT",
			Fields: map[string]any{
				"type":            "MAV_TYPE_QUADROTOR",
				"autopilot":       "MAV_AUTOPILOT_PX4",
				"base_mode":       mavlink.Bitmask{Flags: []string{"MAV_MODE_FLAG_SAFETY_ARMED"}},
				"system_status":   "MAV_STATE_ACTIVE",
				"mavlink_version": uint8(3),
				"custom_mode":     uint32(mode),
			},
		})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return frame
	}

	tmp := t.TempDir()
	path := filepath.Join(tmp, "mav-record.log")

	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}

	now := time.Now()
	framesIn := [][]byte{heartbeat(1), heartbeat(2), heartbeat(3)}
	for _, f := range framesIn {
		if err := w.WriteFrame(now, f); err != nil {
			_ = w.Close()
			t.Fatalf("WriteFrame() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	rc, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer rc.Close()

	recs, err := NewReader(rc).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}

	var framesOut [][]byte
	fs := &fakeSleeper{}
	err = Play(recs, 1.0, false, fs, func(frame []byte) error {
		cp := append([]byte(nil), frame...)
		framesOut = append(framesOut, cp)
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	if len(fs.slept) != 0 {
		t.Fatalf("expected no sleeps, got %v", fs.slept)
	}

	if !reflect.DeepEqual(framesOut, framesIn) {
		t.Fatalf("frames mismatch\n got: %x\nwant: %x", framesOut, framesIn)
	}
}
