package homematic

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mtdcr/hmqtt/internal/infrastructure/database"
)

func testRecorder(t *testing.T) *Recorder {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "recorder.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := NewRecorder(db.DB)
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(r.Stop)

	return r
}

func TestRecorderDevices(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	r.RecordDevice(DeviceDescription{Address: "00123ABC456DEF", Type: "HmIP-BROLL", Firmware: "1.4.2"})
	r.RecordDevice(DeviceDescription{Address: "00ABCDEF123456", Type: "HmIP-SRH"})

	// Channel descriptions and malformed entries are skipped.
	r.RecordDevice(DeviceDescription{Address: "00123ABC456DEF:4", Type: "SHUTTER_VIRTUAL_RECEIVER", Parent: "00123ABC456DEF"})
	r.RecordDevice(DeviceDescription{Address: "", Type: "HmIP-SWSD"})

	count, err := r.DeviceCount(ctx)
	if err != nil {
		t.Fatalf("DeviceCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("DeviceCount() = %d, want 2", count)
	}
}

func TestRecorderDeviceUpsert(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	r.RecordDevice(DeviceDescription{Address: "00123ABC456DEF", Type: "HmIP-BROLL", Firmware: "1.4.0"})
	r.RecordDevice(DeviceDescription{Address: "00123ABC456DEF", Type: "HmIP-BROLL", Firmware: "1.4.2"})

	count, err := r.DeviceCount(ctx)
	if err != nil {
		t.Fatalf("DeviceCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("DeviceCount() after re-record = %d, want 1", count)
	}
}

func TestRecorderEvents(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	r.RecordEvent("00123ABC456DEF", 4, "LEVEL", 0.5)
	r.RecordEvent("00123ABC456DEF", 4, "LEVEL", 0.75) // same tuple, upsert
	r.RecordEvent("00ABCDEF123456", 1, "STATE", 2)

	count, err := r.ParameterCount(ctx)
	if err != nil {
		t.Fatalf("ParameterCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("ParameterCount() = %d, want 2", count)
	}
}

func TestRecorderStoppedIsNoop(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	r.Stop()
	r.RecordEvent("00123ABC456DEF", 4, "LEVEL", 0.5)

	count, err := r.ParameterCount(ctx)
	if err != nil {
		t.Fatalf("ParameterCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("ParameterCount() after Stop = %d, want 0", count)
	}
}

func TestRecorderStartIdempotent(t *testing.T) {
	r := testRecorder(t)
	if err := r.Start(); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
}
