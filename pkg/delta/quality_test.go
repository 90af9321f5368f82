package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityController_InitialFPSMatchesConfig(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	assert.Equal(t, cfg.InitialFPS, q.ladder[q.fpsIdx])
}

func TestQualityController_FPSStepsDownAfterDwell(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	sm := newStateMachine(cfg)
	sm.state = Congested
	sm.congestedEntryUs = 0

	fps := q.updateFPS(Congested, 999_999, sm)
	assert.Equal(t, uint16(60), fps, "dwell not yet reached")

	fps = q.updateFPS(Congested, 1_000_000, sm)
	assert.Equal(t, uint16(45), fps, "dwell reached: one rung down")
	assert.Equal(t, uint64(1_000_000), sm.congestedEntryUs, "cadence timestamp resets on step")
}

func TestQualityController_FPSNeverStepsBelowLadderFloor(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	q.fpsIdx = 0 // already at the floor (30)
	sm := newStateMachine(cfg)
	sm.state = Congested
	sm.congestedEntryUs = 0

	fps := q.updateFPS(Congested, 1_000_000, sm)
	assert.Equal(t, uint16(30), fps)
}

func TestQualityController_FPSStepsUpAfterStableDwell(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	q.fpsIdx = 0 // start at 30
	sm := newStateMachine(cfg)
	sm.state = Stable
	sm.stableDurationUs = 5_000_000

	fps := q.updateFPS(Stable, 123456, sm)
	assert.Equal(t, uint16(45), fps)
	assert.Equal(t, uint64(0), sm.stableDurationUs, "dwell is consumed, not reset wholesale")
}

func TestQualityController_FPSNeverStepsAboveLadderCeiling(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	require.Equal(t, 2, q.fpsIdx) // already at the ceiling (60)
	sm := newStateMachine(cfg)
	sm.state = Stable
	sm.stableDurationUs = 5_000_000

	fps := q.updateFPS(Stable, 1, sm)
	assert.Equal(t, uint16(60), fps)
}

func TestQualityController_FECOneShotMultiplyOnLossyCongestedSample(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	got := q.updateFEC(Congested, 0.05)
	assert.InDelta(t, 0.075, got, 0.0001) // 0.05 * 1.5
}

func TestQualityController_FECMultiplyAppliesOncePerLossyCall(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	q.updateFEC(Congested, 0.05)
	second := q.updateFEC(Congested, 0.05)
	assert.InDelta(t, 0.1125, second, 0.0001) // 0.05 * 1.5 * 1.5: exactly one 1.5x step per call
}

func TestQualityController_FECClampsToMax(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	q.fec = 0.4
	got := q.updateFEC(Congested, 0.9)
	assert.LessOrEqual(t, got, cfg.MaxFECRatio)
}

func TestQualityController_FECUnchangedWhenNoLoss(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	q.fec = 0.2
	got := q.updateFEC(Congested, 0.0)
	assert.Equal(t, float32(0.2), got)
}

func TestQualityController_FECDecaysTowardBaseWhileStable(t *testing.T) {
	cfg := DefaultConfig()
	q := newQualityController(cfg)
	q.fec = 0.5
	got := q.updateFEC(Stable, 0.0)
	// 0.5*0.95 + 0.05*0.05 = 0.475 + 0.0025 = 0.4775
	assert.InDelta(t, 0.4775, got, 0.0001)
}

func TestQualityController_FECDecayOneFreezesInStable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FECDecay = 1.0
	q := newQualityController(cfg)
	q.fec = 0.3
	got := q.updateFEC(Stable, 0.0)
	assert.Equal(t, float32(0.3), got)
}

func TestQualityController_FECDecayZeroSnapsToBaseInOneStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FECDecay = 0.0
	q := newQualityController(cfg)
	q.fec = 0.3
	got := q.updateFEC(Stable, 0.0)
	assert.Equal(t, cfg.BaseFECRatio, got)
}

func TestQualityController_FECUnchangedWhileRisingByDefault(t *testing.T) {
	cfg := DefaultConfig() // DecayFECDuringRising defaults false
	q := newQualityController(cfg)
	q.fec = 0.3
	got := q.updateFEC(Rising, 0.0)
	assert.Equal(t, float32(0.3), got)
}

func TestQualityController_FECDecaysWhileRisingWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecayFECDuringRising = true
	q := newQualityController(cfg)
	q.fec = 0.5
	got := q.updateFEC(Rising, 0.0)
	assert.InDelta(t, 0.4775, got, 0.0001)
}
