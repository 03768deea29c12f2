package mobile_client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

func tempRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.json")
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	return r, path
}

func TestFreshRegistryHasNoSelection(t *testing.T) {
	r, _ := tempRegistry(t)
	if _, ok := r.Selected(); ok {
		t.Fatalf("fresh registry must have no selected device")
	}
	if got := len(r.Devices()); got != 0 {
		t.Fatalf("fresh registry must be empty, got %d devices", got)
	}
}

func TestAddSelectsAndPersists(t *testing.T) {
	r, path := tempRegistry(t)
	if err := r.Add(model.Device{ID: "esp32-0001A", Name: "Kitchen"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(model.Device{ID: "esp32-0002B", Name: "Hallway"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	d, ok := r.Selected()
	if !ok || d.ID != "esp32-0002B" {
		t.Fatalf("Add must select the new device, got %+v ok=%v", d, ok)
	}

	// riapri dal file
	r2, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(r2.Devices()); got != 2 {
		t.Fatalf("expected 2 persisted devices, got %d", got)
	}
	d2, ok := r2.Selected()
	if !ok || d2.ID != "esp32-0002B" {
		t.Fatalf("selection must survive reload, got %+v ok=%v", d2, ok)
	}
}

func TestAddIsIdempotentByID(t *testing.T) {
	r, _ := tempRegistry(t)
	if err := r.Add(model.Device{ID: "dev1", Name: "Kitchen"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(model.Device{ID: "dev1", Name: "Kitchen"}); err != nil {
		t.Fatalf("Add again: %v", err)
	}
	if got := len(r.Devices()); got != 1 {
		t.Fatalf("re-adding the same id must not duplicate, got %d devices", got)
	}
}

func TestAddFallsBackToDerivedName(t *testing.T) {
	r, _ := tempRegistry(t)
	if err := r.Add(model.Device{ID: "esp32-0001A"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	d, _ := r.Selected()
	if want := model.FallbackDeviceName("esp32-0001A"); d.Name != want {
		t.Fatalf("expected fallback name %q, got %q", want, d.Name)
	}
}

func TestReconcileStaleSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	content := `{"devices":[{"id":"a","name":"A"},{"id":"b","name":"B"}],"selectedDeviceId":"gone"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	d, ok := r.Selected()
	if !ok || d.ID != "a" {
		t.Fatalf("stale selection must fall back to the first device, got %+v ok=%v", d, ok)
	}
}

func TestObserveAutoRegistersOnlyWhenNothingSelected(t *testing.T) {
	r, _ := tempRegistry(t)

	registered, err := r.Observe(model.SensorReading{DeviceID: "esp32-0001A", DeviceName: "Kitchen"})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if !registered {
		t.Fatalf("first unknown device must auto-register")
	}
	d, ok := r.Selected()
	if !ok || d.ID != "esp32-0001A" {
		t.Fatalf("auto-registered device must be selected, got %+v ok=%v", d, ok)
	}

	// a second unknown device must NOT take over
	registered, err = r.Observe(model.SensorReading{DeviceID: "esp32-0002B"})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if registered {
		t.Fatalf("a second device must not auto-register while one is selected")
	}
	if got := len(r.Devices()); got != 1 {
		t.Fatalf("expected 1 device, got %d", got)
	}
}

func TestObserveIgnoresEmptyDeviceID(t *testing.T) {
	r, _ := tempRegistry(t)
	registered, err := r.Observe(model.SensorReading{Temperature: 21})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if registered {
		t.Fatalf("a reading without device_id must not register anything")
	}
}
