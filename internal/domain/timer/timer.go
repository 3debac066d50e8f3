// Package timer classifies elapsed time against configured targets as a
// green/yellow/red status. It is a pure package: callers pass the elapsed
// minutes and the thresholds explicitly, so the same rules drive order
// timers, wait-time alerting, and dashboard colouring.
package timer

import "math"

// Status is the traffic-light classification of a tracked interval.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// Thresholds holds the warning/critical percentages applied to a target.
// Percentages are relative to the target: with the 75/100 defaults a
// 20-minute target warns at 15 minutes and goes critical at 20.
type Thresholds struct {
	WarningPct  int
	CriticalPct int
}

// DefaultThresholds mirror the shipped application settings.
var DefaultThresholds = Thresholds{WarningPct: 75, CriticalPct: 100}

// Calculate maps elapsed minutes against a target to a Status.
//
// warning  = round(target * warningPct / 100)
// critical = round(target * criticalPct / 100)
//
// elapsed <= warning            -> green
// warning < elapsed <= critical -> yellow
// elapsed > critical            -> red
//
// A target of zero means the interval is overdue as soon as any time has
// passed: elapsed 0 is green, anything more is red. Negative elapsed values
// (clock skew, missing timestamps) are treated as zero.
func Calculate(elapsedMins, targetMins int, th Thresholds) Status {
	if elapsedMins < 0 {
		elapsedMins = 0
	}
	warning := roundPct(targetMins, th.WarningPct)
	critical := roundPct(targetMins, th.CriticalPct)
	switch {
	case elapsedMins <= warning:
		return StatusGreen
	case elapsedMins <= critical:
		return StatusYellow
	default:
		return StatusRed
	}
}

func roundPct(target, pct int) int {
	return int(math.Round(float64(target) * float64(pct) / 100.0))
}

// WaitTargets holds the per-ESI wait-time targets in minutes. ESI1 is
// carried for completeness of the configured settings row, but the
// classifier never consults it: a level-1 patient left waiting is
// critical immediately, whatever the configuration says.
type WaitTargets struct {
	ESI1 int
	ESI2 int
	ESI3 int
	ESI4 int
	ESI5 int
}

// DefaultWaitTargets mirror the shipped application settings.
var DefaultWaitTargets = WaitTargets{ESI1: 0, ESI2: 10, ESI3: 30, ESI4: 60, ESI5: 120}

// WaitTarget returns the wait target in minutes for an ESI level.
// ESI 1 always yields 0 regardless of the configured value, and unknown
// levels fall back to the same most-urgent treatment.
func WaitTarget(esiLevel int, t WaitTargets) int {
	switch esiLevel {
	case 2:
		return t.ESI2
	case 3:
		return t.ESI3
	case 4:
		return t.ESI4
	case 5:
		return t.ESI5
	default:
		return 0
	}
}

// ForWait classifies a patient's elapsed wait by ESI level.
func ForWait(elapsedMins, esiLevel int, targets WaitTargets, th Thresholds) Status {
	return Calculate(elapsedMins, WaitTarget(esiLevel, targets), th)
}
