package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate_Boundaries(t *testing.T) {
	// lab target 15 with 75/100: warning = round(11.25) = 11, critical = 15
	cases := []struct {
		elapsed int
		want    Status
	}{
		{0, StatusGreen},
		{11, StatusGreen},
		{12, StatusYellow},
		{15, StatusYellow},
		{16, StatusRed},
		{120, StatusRed},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Calculate(c.elapsed, 15, DefaultThresholds), "elapsed=%d", c.elapsed)
	}
}

func TestCalculate_ZeroTarget(t *testing.T) {
	assert.Equal(t, StatusGreen, Calculate(0, 0, DefaultThresholds))
	assert.Equal(t, StatusRed, Calculate(1, 0, DefaultThresholds))
}

func TestCalculate_NegativeElapsedTreatedAsZero(t *testing.T) {
	assert.Equal(t, StatusGreen, Calculate(-5, 10, DefaultThresholds))
}

func TestCalculate_CustomPercentages(t *testing.T) {
	// 50/150 over a 20 minute target: warning 10, critical 30
	th := Thresholds{WarningPct: 50, CriticalPct: 150}
	assert.Equal(t, StatusGreen, Calculate(10, 20, th))
	assert.Equal(t, StatusYellow, Calculate(11, 20, th))
	assert.Equal(t, StatusYellow, Calculate(30, 20, th))
	assert.Equal(t, StatusRed, Calculate(31, 20, th))
}

func TestWaitTarget_ESI1AlwaysZero(t *testing.T) {
	assert.Equal(t, 0, WaitTarget(1, DefaultWaitTargets))
	assert.Equal(t, StatusRed, ForWait(1, 1, DefaultWaitTargets, DefaultThresholds))
	assert.Equal(t, StatusGreen, ForWait(0, 1, DefaultWaitTargets, DefaultThresholds))
}

func TestWaitTarget_ESI1IgnoresConfiguredValue(t *testing.T) {
	// A misconfigured level-1 target must not grant level-1 patients
	// a grace period.
	targets := WaitTargets{ESI1: 45, ESI2: 10, ESI3: 30, ESI4: 60, ESI5: 120}
	assert.Equal(t, 0, WaitTarget(1, targets))
	assert.Equal(t, StatusRed, ForWait(5, 1, targets, DefaultThresholds))
}

func TestForWait_ESI2(t *testing.T) {
	// ESI-2 target 10: warning round(7.5)=8, critical 10
	assert.Equal(t, StatusGreen, ForWait(8, 2, DefaultWaitTargets, DefaultThresholds))
	assert.Equal(t, StatusYellow, ForWait(9, 2, DefaultWaitTargets, DefaultThresholds))
	assert.Equal(t, StatusRed, ForWait(15, 2, DefaultWaitTargets, DefaultThresholds))
}

func TestWaitTarget_UnknownLevelFallsBackToZero(t *testing.T) {
	assert.Equal(t, 0, WaitTarget(0, DefaultWaitTargets))
	assert.Equal(t, 0, WaitTarget(9, DefaultWaitTargets))
}
