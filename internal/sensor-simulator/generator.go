package sensor_simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/bob-jr-kab/Fire-Detection-Alert-System/internal/model"
)

// ====== Tunables ======
const (
	// ambient baselines the walk drifts around
	baseTempC    = 22.0
	baseHumidity = 50.0
	baseSmokePPM = 120.0

	// per-tick random walk half-widths
	tempJitter     = 0.6
	humidityJitter = 1.5
	smokeJitter    = 25.0

	// fire scenario targets; the walk ramps toward these while burning
	fireTempC    = 68.0
	fireSmokePPM = 1400.0

	// fraction of the remaining distance to the target covered per tick
	rampFactor = 0.25
)

// DataGenerator keeps the walk state of one simulated device and produces
// one reading per tick. A fire can either be scheduled explicitly with
// Ignite or break out spontaneously with the configured probability.
type DataGenerator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
	fireProb float64

	temperature float64
	humidity    float64
	smoke       float64
	fireUntil   time.Time
}

// NewDataGenerator seeds the walk at ambient conditions. fireProb is the
// per-tick probability of a spontaneous fire, zero disables it.
func NewDataGenerator(seed int64, fireProb float64) *DataGenerator {
	return &DataGenerator{
		rng:         rand.New(rand.NewSource(seed)),
		now:         time.Now,
		fireProb:    fireProb,
		temperature: baseTempC,
		humidity:    baseHumidity,
		smoke:       baseSmokePPM,
	}
}

// Ignite forces a fire scenario for the given duration.
func (g *DataGenerator) Ignite(d time.Duration) {
	if g == nil || d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fireUntil = g.now().Add(d)
}

// Burning reports whether a fire scenario is active.
func (g *DataGenerator) Burning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.fireUntil)
}

// Next advances the walk one tick and returns the reading for the device.
func (g *DataGenerator) Next(device model.Device, ip string) model.SensorReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	burning := now.Before(g.fireUntil)
	if !burning && g.fireProb > 0 && g.rng.Float64() < g.fireProb {
		// incendio spontaneo, brucia per 2-5 minuti
		g.fireUntil = now.Add(time.Duration(120+g.rng.Intn(180)) * time.Second)
		burning = true
	}

	if burning {
		g.temperature += (fireTempC - g.temperature) * rampFactor
		g.smoke += (fireSmokePPM - g.smoke) * rampFactor
		g.humidity = clamp(g.humidity-2.0, 5, 95)
	} else {
		g.temperature = clamp(g.temperature+g.step(tempJitter)+(baseTempC-g.temperature)*0.05, -10, 80)
		g.smoke = clamp(g.smoke+g.step(smokeJitter)+(baseSmokePPM-g.smoke)*0.05, 0, 2000)
		g.humidity = clamp(g.humidity+g.step(humidityJitter)+(baseHumidity-g.humidity)*0.05, 5, 95)
	}

	return model.SensorReading{
		DeviceID:      device.ID,
		DeviceName:    device.Name,
		Temperature:   round1(g.temperature),
		Humidity:      round1(g.humidity),
		SmokeLevel:    model.SmokeLevel(round1(g.smoke)),
		FlameDetected: burning,
		IPAddress:     ip,
	}
}

func (g *DataGenerator) step(width float64) float64 {
	return (g.rng.Float64()*2 - 1) * width
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
