package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func evalOnce(m *stateMachine, nowUs uint64, dQUs uint64, deltaDQUs int64, epsilonUs float64) State {
	return m.evaluate(nowUs, signals{dQUs: dQUs, deltaDQUs: deltaDQUs, epsilonUs: epsilonUs})
}

func TestStateMachine_InitialStateIsStable(t *testing.T) {
	m := newStateMachine(DefaultConfig())
	assert.Equal(t, Stable, m.state)
}

func TestStateMachine_ExceedingTargetDelayIsImmediateCongested(t *testing.T) {
	m := newStateMachine(DefaultConfig())
	state := evalOnce(m, 0, 15001, 15001, 1000)
	assert.Equal(t, Congested, state)
	assert.True(t, m.justEnteredCongested)
}

func TestStateMachine_ExactlyAtTargetDelayDoesNotTrigger(t *testing.T) {
	// spec.md §8: D_q exactly == T_limit must NOT trigger CONGESTED (strict >).
	m := newStateMachine(DefaultConfig())
	state := evalOnce(m, 0, 15000, 15000, 1000)
	assert.NotEqual(t, Congested, state)
}

func TestStateMachine_CongestedEntryResetsCounters(t *testing.T) {
	m := newStateMachine(DefaultConfig())
	m.risingCount = 2
	m.stableCount = 4
	m.stableDurationUs = 99
	evalOnce(m, 100, 16000, 16000, 1000)
	assert.Equal(t, 0, m.risingCount)
	assert.Equal(t, 0, m.stableCount)
	assert.Equal(t, uint64(0), m.stableDurationUs)
	assert.Equal(t, uint64(100), m.congestedEntryUs)
}

func TestStateMachine_CongestedStayDoesNotResetEntryTimestamp(t *testing.T) {
	m := newStateMachine(DefaultConfig())
	evalOnce(m, 0, 16000, 16000, 1000)
	require := m.congestedEntryUs
	evalOnce(m, 20000, 17000, 1000, 1000)
	assert.Equal(t, require, m.congestedEntryUs, "entry timestamp only updates on transition, not on every congested sample")
}

func TestStateMachine_CongestedToStableRequiresFivePersistence(t *testing.T) {
	m := newStateMachine(DefaultConfig()) // k_congested_recover = 5
	evalOnce(m, 0, 16000, 16000, 1000)     // enter Congested
	for i := 0; i < 4; i++ {
		state := evalOnce(m, uint64(i+1)*1000, 6000, -1000, 1000) // dQ<threshold(7500), slope<=0
		assert.Equal(t, Congested, state, "sample %d of 4 must not yet recover", i)
	}
	state := evalOnce(m, 5000, 6000, -1000, 1000)
	assert.Equal(t, Stable, state, "the 5th qualifying sample recovers to Stable")
}

func TestStateMachine_CongestedRecoveryCounterDecrementsOnNonQualifyingSample(t *testing.T) {
	m := newStateMachine(DefaultConfig())
	evalOnce(m, 0, 16000, 16000, 1000) // enter Congested
	evalOnce(m, 1000, 6000, -1000, 1000)
	evalOnce(m, 2000, 6000, -1000, 1000)
	assert.Equal(t, 2, m.stableCount)
	// a non-qualifying sample (dQ above threshold) decrements, never below 0
	evalOnce(m, 3000, 9000, 2000, 1000)
	assert.Equal(t, 1, m.stableCount)
}

func TestStateMachine_StableToRisingRequiresThreePersistence(t *testing.T) {
	m := newStateMachine(DefaultConfig()) // k_stable = 3
	for i := 0; i < 2; i++ {
		state := evalOnce(m, uint64(i)*1000, 1000, 2000, 1000) // slope > epsilon
		assert.Equal(t, Stable, state)
	}
	state := evalOnce(m, 3000, 1000, 2000, 1000)
	assert.Equal(t, Rising, state)
}

func TestStateMachine_RisingCounterDecaysBelowEpsilon(t *testing.T) {
	m := newStateMachine(DefaultConfig())
	evalOnce(m, 0, 1000, 2000, 1000) // rising=1
	evalOnce(m, 1000, 1000, 2000, 1000) // rising=2
	assert.Equal(t, 2, m.risingCount)
	evalOnce(m, 2000, 500, 0, 1000) // below epsilon, decrement
	assert.Equal(t, 1, m.risingCount)
}

func TestStateMachine_RisingHoldsUntilNonPositiveSlopePersists(t *testing.T) {
	m := newStateMachine(DefaultConfig())
	m.state = Rising
	for i := 0; i < 2; i++ {
		state := evalOnce(m, uint64(i)*1000, 5000, -500, 1000)
		assert.Equal(t, Rising, state)
	}
	state := evalOnce(m, 3000, 5000, -500, 1000)
	assert.Equal(t, Stable, state)
}

func TestStateMachine_RisingResetsRecoveryCounterOnContinuedRise(t *testing.T) {
	// rule 5: a qualifying (slope<=0) sample followed by a fresh
	// slope-above-epsilon sample must reset the recovery persistence,
	// not merely hold it.
	m := newStateMachine(DefaultConfig())
	m.state = Rising
	evalOnce(m, 0, 5000, -500, 1000) // stableCount -> 1
	assert.Equal(t, 1, m.stableCount)
	evalOnce(m, 1000, 6000, 3000, 1000) // still rising: resets
	assert.Equal(t, 0, m.stableCount)
}

func TestStateMachine_NonTrendSampleDecrementsTowardZeroNeverBelow(t *testing.T) {
	m := newStateMachine(DefaultConfig())
	assert.Equal(t, 0, m.risingCount)
	evalOnce(m, 0, 500, 0, 1000) // ambiguous zone, no trend
	assert.Equal(t, 0, m.risingCount, "counter never goes negative")
}
