package sensor_simulator

import (
	"testing"
	"time"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

var simDevice = model.Device{ID: "esp32-sim-1", Name: "Sim 1"}

func TestAmbientReadingsStayInRange(t *testing.T) {
	g := NewDataGenerator(1, 0) // no spontaneous fires
	for i := 0; i < 500; i++ {
		r := g.Next(simDevice, "10.0.0.5")
		if r.DeviceID != simDevice.ID || r.DeviceName != simDevice.Name {
			t.Fatalf("reading must carry the device identity, got %+v", r)
		}
		if r.FlameDetected {
			t.Fatalf("ambient walk must never report flame, got %+v at tick %d", r, i)
		}
		if r.Temperature < -10 || r.Temperature > 80 {
			t.Fatalf("temperature out of range: %v", r.Temperature)
		}
		if r.Humidity < 5 || r.Humidity > 95 {
			t.Fatalf("humidity out of range: %v", r.Humidity)
		}
		if r.SmokeLevel < 0 || r.SmokeLevel > 2000 {
			t.Fatalf("smoke out of range: %v", r.SmokeLevel)
		}
	}
}

func TestIgniteRampsTowardFireConditions(t *testing.T) {
	g := NewDataGenerator(1, 0)
	g.Ignite(time.Minute)
	if !g.Burning() {
		t.Fatalf("Ignite must start a fire scenario")
	}

	var last model.SensorReading
	for i := 0; i < 20; i++ {
		last = g.Next(simDevice, "")
		if !last.FlameDetected {
			t.Fatalf("flame must be reported while burning, tick %d", i)
		}
	}

	policy := model.DefaultSeverityPolicy()
	if !policy.ReadingCritical(last) {
		t.Fatalf("a sustained fire must cross the critical thresholds, got %+v", last)
	}
}

func TestFireExpiresAndWalkRecovers(t *testing.T) {
	g := NewDataGenerator(1, 0)
	now := time.Now()
	g.now = func() time.Time { return now }

	g.Ignite(time.Minute)
	g.Next(simDevice, "")

	// salta oltre la fine dell'incendio
	now = now.Add(2 * time.Minute)
	r := g.Next(simDevice, "")
	if r.FlameDetected {
		t.Fatalf("flame must clear once the fire duration elapses, got %+v", r)
	}
}
