package delta

// signalEstimator turns each raw RTT sample into the four signals consumed
// by the rest of the controller: smoothed RTT, the min-RTT baseline, queue
// delay, and queue-delay slope. It has no clock of its own — every
// timestamp is supplied by the caller (spec.md §9: "implementations must
// not introduce implicit clocks").
type signalEstimator struct {
	alpha        float64
	epsilonRatio float64

	rttSmoothUs uint64
	initialized bool

	window *minRTTWindow

	dQPrevUs int64
}

func newSignalEstimator(cfg Config) *signalEstimator {
	return &signalEstimator{
		alpha:        cfg.Alpha,
		epsilonRatio: cfg.EpsilonRatio,
		window:       newMinRTTWindow(cfg.WindowDurationUs, cfg.MaxWindowEntries),
	}
}

// signals is the output of one estimator update.
type signals struct {
	rttSmoothUs  uint64
	rttMinUs     uint64
	dQUs         uint64
	deltaDQUs    int64
	epsilonUs    float64
}

// update processes one validated sample and returns the new signals. The
// caller (Controller) is responsible for input validation; update assumes
// rttUs > 0 and nowUs monotonic.
func (e *signalEstimator) update(nowUs, rttUs uint64) signals {
	if !e.initialized {
		// First sample initializes rtt_smooth exactly, no blending.
		e.rttSmoothUs = rttUs
		e.initialized = true
	} else {
		// EWMA: rtt_smooth <- (1-alpha)*rtt_smooth + alpha*rtt_sample.
		e.rttSmoothUs = uint64((1-e.alpha)*float64(e.rttSmoothUs) + e.alpha*float64(rttUs))
	}

	e.window.push(nowUs, rttUs)
	rttMinUs, ok := e.window.min(nowUs)
	if !ok {
		// Defensive: the sample just pushed always makes the window
		// non-empty.
		rttMinUs = rttUs
	}

	// D_q = max(0, rtt_smooth - rtt_min), clamped to reject float/integer
	// rounding noise when rtt_smooth momentarily dips below rtt_min.
	var dQUs uint64
	if e.rttSmoothUs > rttMinUs {
		dQUs = e.rttSmoothUs - rttMinUs
	}

	deltaDQUs := int64(dQUs) - e.dQPrevUs
	epsilonUs := float64(e.rttSmoothUs) * e.epsilonRatio

	// d_q_prev is updated to the value that produced this call's delta,
	// so the *next* call sees the slope that led to it — not this one.
	e.dQPrevUs = int64(dQUs)

	return signals{
		rttSmoothUs: e.rttSmoothUs,
		rttMinUs:    rttMinUs,
		dQUs:        dQUs,
		deltaDQUs:   deltaDQUs,
		epsilonUs:   epsilonUs,
	}
}
