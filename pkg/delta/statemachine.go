package delta

// stateMachine classifies network condition into Stable/Rising/Congested
// with k-sample persistence rules to reject jitter. Per spec.md §9 this is
// a table-driven function of (current state, signals), not a class
// hierarchy — transitions are evaluated in a fixed priority order on every
// sample.
type stateMachine struct {
	targetDelayUs uint64 // T_limit
	thresholdUs   uint64 // T_threshold = T_limit * recovery_ratio
	kStable       int
	kCongested    int

	state       State
	risingCount int
	stableCount int

	congestedEntryUs uint64
	stableDurationUs uint64
	lastSampleUs     uint64
	haveLastSample   bool

	// justEnteredCongested reports whether the most recent call to
	// evaluate() transitioned into Congested on *this* call, so the
	// bitrate controller can distinguish entry from a sustained stay.
	justEnteredCongested bool
}

func newStateMachine(cfg Config) *stateMachine {
	return &stateMachine{
		targetDelayUs: cfg.TargetDelayUs,
		thresholdUs:   uint64(float64(cfg.TargetDelayUs) * cfg.RecoveryRatio),
		kStable:       cfg.KStable,
		kCongested:    cfg.KCongestedRecover,
		state:         Stable,
	}
}

// evaluate applies the priority-ordered transition table and returns the
// resulting state. It must be called exactly once per sample, after the
// signal estimator has produced sig for this sample.
func (m *stateMachine) evaluate(nowUs uint64, sig signals) State {
	prev := m.state
	m.justEnteredCongested = false

	switch {
	// Priority 1: any -> CONGESTED, 1-sample persistence (immediate).
	case sig.dQUs > m.targetDelayUs:
		if prev != Congested {
			m.congestedEntryUs = nowUs
			m.risingCount = 0
			m.stableCount = 0
			m.stableDurationUs = 0
			m.justEnteredCongested = true
		}
		m.state = Congested

	// Priority 2: CONGESTED -> STABLE, k_congested_recover persistence.
	case prev == Congested:
		if sig.dQUs < m.thresholdUs && sig.deltaDQUs <= 0 {
			m.stableCount++
		} else if m.stableCount > 0 {
			m.stableCount--
		}
		if m.stableCount >= m.kCongested {
			m.state = Stable
			m.stableCount = 0
			m.risingCount = 0
			m.stableDurationUs = 0
			m.haveLastSample = false
		} else {
			m.state = Congested
		}

	// Priority 3: STABLE -> RISING, k_stable persistence.
	case prev == Stable:
		if float64(sig.deltaDQUs) > sig.epsilonUs {
			m.risingCount++
		} else if m.risingCount > 0 {
			m.risingCount--
		}
		if m.risingCount >= m.kStable {
			m.state = Rising
			m.risingCount = 0
		} else {
			m.state = Stable
		}

	// Priority 4/5: RISING -> STABLE on non-positive slope (k_stable),
	// else RISING -> RISING; a slope above epsilon (rule 5) resets the
	// recovery counter stableCount to zero.
	case prev == Rising:
		switch {
		case sig.deltaDQUs <= 0:
			m.stableCount++
		case float64(sig.deltaDQUs) > sig.epsilonUs:
			// Rule 5: still rising, reset the recovery persistence
			// counter rather than let a single non-qualifying sample
			// carry it over.
			m.stableCount = 0
		case m.stableCount > 0:
			m.stableCount--
		}
		if m.stableCount >= m.kStable {
			m.state = Stable
			m.stableCount = 0
			m.risingCount = 0
		} else {
			m.state = Rising
		}
	}

	m.updateStableDuration(prev, nowUs)
	return m.state
}

// updateStableDuration accumulates time spent continuously in STABLE and
// resets it on any transition away from STABLE or into STABLE from a
// different state.
func (m *stateMachine) updateStableDuration(prev State, nowUs uint64) {
	if m.state == Stable {
		if prev != Stable {
			m.stableDurationUs = 0
			m.haveLastSample = false
		}
		if m.haveLastSample {
			m.stableDurationUs += nowUs - m.lastSampleUs
		}
		m.lastSampleUs = nowUs
		m.haveLastSample = true
	} else {
		m.stableDurationUs = 0
		m.haveLastSample = false
	}
}

// consumeStableDuration subtracts d from the accumulated stable duration,
// never going below zero. Used by the quality controller after an fps
// step-up so repeated recoveries each require the full delay.
func (m *stateMachine) consumeStableDuration(d uint64) {
	if d >= m.stableDurationUs {
		m.stableDurationUs = 0
	} else {
		m.stableDurationUs -= d
	}
}
