package model

// SeverityPolicy decides whether a reading or alert is critical. The source
// dashboards drifted across three revisions (no filter, 30/100, 45/800);
// this is the single configurable policy that replaces all of them. The
// defaults are the latest revision's thresholds.
type SeverityPolicy struct {
	TempCriticalC    float64
	SmokeCriticalPPM float64
}

func DefaultSeverityPolicy() SeverityPolicy {
	return SeverityPolicy{TempCriticalC: 45, SmokeCriticalPPM: 800}
}

// Critical: flame always wins, otherwise either threshold exceeded.
func (p SeverityPolicy) Critical(flame bool, smoke SmokeLevel, tempC float64) bool {
	return flame || float64(smoke) > p.SmokeCriticalPPM || tempC > p.TempCriticalC
}

func (p SeverityPolicy) AlertCritical(a ConfirmedAlert) bool {
	// confirmed alerts carry no flame flag; the operator already vouched for
	// the reading, so only the numeric thresholds apply
	return p.Critical(false, a.SmokeLevel, a.Temperature)
}

func (p SeverityPolicy) ReadingCritical(r SensorReading) bool {
	return p.Critical(r.FlameDetected, r.SmokeLevel, r.Temperature)
}
