package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SmokeLevel tolerates both JSON numbers and numeric strings: the ESP32
// firmware has been observed sending "900" as well as 900 depending on the
// revision.
type SmokeLevel float64

func (s *SmokeLevel) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*s = 0
			return nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("smokeLevel: %w", err)
		}
		*s = SmokeLevel(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = SmokeLevel(f)
	return nil
}

func (s SmokeLevel) String() string {
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// SensorReading is one sample pushed by a device. It is relayed to viewers
// as-is and never persisted. The field set below is the canonical wire shape
// of the "sensor-data" event; pairingToken must be forwarded unmodified so
// the mobile app can bind readings to a device being paired.
type SensorReading struct {
	DeviceID      string     `json:"device_id"`
	DeviceName    string     `json:"device_name,omitempty"`
	Temperature   float64    `json:"temperature"`
	Humidity      float64    `json:"humidity"`
	SmokeLevel    SmokeLevel `json:"smokeLevel"`
	FlameDetected bool       `json:"flameDetected"`
	IPAddress     string     `json:"ipAddress,omitempty"`
	PairingToken  string     `json:"pairingToken,omitempty"`
}
