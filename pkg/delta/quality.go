package delta

// qualityController tunes the two slower-moving outputs: frame rate (via
// dwell-timer ladder stepping, in the shape of the teacher's REMB
// scheduler's interval/threshold gating) and FEC redundancy (reactive
// one-shot multiply on loss, exponential decay toward a floor otherwise).
type qualityController struct {
	ladder       []uint16
	dropDelayUs  uint64
	recoverDelay uint64

	baseFEC           float32
	maxFEC            float32
	decay             float32
	decayDuringRising bool

	fpsIdx int
	fec    float32
}

func newQualityController(cfg Config) *qualityController {
	idx := 0
	for i, f := range cfg.FPSLadder {
		if f == cfg.InitialFPS {
			idx = i
			break
		}
	}
	return &qualityController{
		ladder:            cfg.FPSLadder,
		dropDelayUs:       cfg.FPSDropDelayUs,
		recoverDelay:      cfg.FPSRecoverDelayUs,
		baseFEC:           cfg.BaseFECRatio,
		maxFEC:            cfg.MaxFECRatio,
		decay:             cfg.FECDecay,
		decayDuringRising: cfg.DecayFECDuringRising,
		fpsIdx:            idx,
		fec:               cfg.BaseFECRatio,
	}
}

// updateFPS steps the frame-rate ladder according to dwell timers. sm is
// mutated (congestedEntryUs reset on a step, stableDuration consumed on a
// step) exactly as spec.md §4.4 prescribes.
func (q *qualityController) updateFPS(state State, nowUs uint64, sm *stateMachine) uint16 {
	switch state {
	case Congested:
		if nowUs-sm.congestedEntryUs >= q.dropDelayUs {
			if q.fpsIdx > 0 {
				q.fpsIdx--
			}
			sm.congestedEntryUs = nowUs
		}
	case Stable:
		if sm.stableDurationUs >= q.recoverDelay {
			if q.fpsIdx < len(q.ladder)-1 {
				q.fpsIdx++
			}
			sm.consumeStableDuration(q.recoverDelay)
		}
	}
	return q.ladder[q.fpsIdx]
}

// updateFEC adjusts the FEC ratio: one-shot 1.5x multiply on a lossy
// CONGESTED sample, exponential decay toward the floor while STABLE,
// otherwise unchanged (or decaying during RISING too, if
// DecayFECDuringRising is configured — see spec.md §9's Open Question).
func (q *qualityController) updateFEC(state State, lossFraction float64) float32 {
	switch {
	case state == Congested && lossFraction > 0:
		q.fec *= 1.5
		if q.fec > q.maxFEC {
			q.fec = q.maxFEC
		}
	case state == Stable:
		q.fec = q.fec*q.decay + q.baseFEC*(1-q.decay)
	case state == Rising && q.decayDuringRising:
		q.fec = q.fec*q.decay + q.baseFEC*(1-q.decay)
	}
	return q.fec
}
