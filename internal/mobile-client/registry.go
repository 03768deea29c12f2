package mobile_client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

// Registry is the app's local device list plus the currently selected id,
// persisted to a JSON file the way the app keeps it in AsyncStorage. The
// server knows nothing about it.
type Registry struct {
	mu       sync.Mutex
	path     string
	devices  []model.Device
	selected string
}

type registryFile struct {
	Devices    []model.Device `json:"devices"`
	SelectedID string         `json:"selectedDeviceId"`
}

// LoadRegistry reads the stored state and reconciles the selection:
// a stored id still present in the list stays selected, otherwise the first
// device wins, otherwise nothing is selected.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		return nil, err
	default:
		var f registryFile
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("registry file corrupt: %w", err)
		}
		r.devices = f.Devices
		r.selected = f.SelectedID
	}

	if !r.hasLocked(r.selected) {
		if len(r.devices) > 0 {
			r.selected = r.devices[0].ID
		} else {
			r.selected = ""
		}
	}
	return r, nil
}

func (r *Registry) Devices() []model.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Selected returns the current device, if any.
func (r *Registry) Selected() (model.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.ID == r.selected {
			return d, true
		}
	}
	return model.Device{}, false
}

// Select switches to a known device and persists the choice.
func (r *Registry) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasLocked(id) {
		return fmt.Errorf("unknown device %q", id)
	}
	r.selected = id
	return r.persistLocked()
}

// Add registers a device and selects it. Idempotent by id: re-adding an
// existing device only updates the selection.
func (r *Registry) Add(d model.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == "" {
		return errors.New("device id required")
	}
	if d.Name == "" {
		d.Name = model.FallbackDeviceName(d.ID)
	}
	if !r.hasLocked(d.ID) {
		r.devices = append(r.devices, d)
	}
	r.selected = d.ID
	return r.persistLocked()
}

// Observe applies the first-pairing heuristic: a reading from an unknown
// device auto-registers it only while nothing is selected. Two unknown
// devices reporting at once race here and the last write wins; that is the
// accepted behavior, the proper fix is the pairing flow.
func (r *Registry) Observe(reading model.SensorReading) (registered bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reading.DeviceID == "" || r.selected != "" || r.hasLocked(reading.DeviceID) {
		return false, nil
	}
	name := reading.DeviceName
	if name == "" {
		name = model.FallbackDeviceName(reading.DeviceID)
	}
	r.devices = append(r.devices, model.Device{ID: reading.DeviceID, Name: name})
	r.selected = reading.DeviceID
	return true, r.persistLocked()
}

func (r *Registry) hasLocked(id string) bool {
	if id == "" {
		return false
	}
	for _, d := range r.devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (r *Registry) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(registryFile{Devices: r.devices, SelectedID: r.selected}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, b, 0o600)
}
