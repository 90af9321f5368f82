package delta

import "math"

// Controller is the top-level DELTA congestion controller. It combines:
//   - signalEstimator for RTT smoothing, min-RTT baseline, and queue delay
//   - stateMachine for Stable/Rising/Congested classification
//   - bitrateController for AIMD bitrate adjustment
//   - qualityController for fps ladder stepping and FEC ratio adaptation
//
// ProcessSample is the sole mutating entry point; it runs to completion
// synchronously and never suspends. The transport layer exclusively owns
// one Controller instance and is the sole caller of ProcessSample, which
// must be invoked in the order samples were observed (spec.md §5).
type Controller struct {
	cfg Config

	estimator *signalEstimator
	sm        *stateMachine
	bitrate   *bitrateController
	quality   *qualityController

	hasPrevNow bool
	prevNowUs  uint64

	lastSignals signals
}

// NewController validates cfg and constructs a Controller. The only
// failure mode in DELTA's public surface is a wrapped ErrInvalidConfig.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:       cfg,
		estimator: newSignalEstimator(cfg),
		sm:        newStateMachine(cfg),
		bitrate:   newBitrateController(cfg),
		quality:   newQualityController(cfg),
	}, nil
}

// ProcessSample feeds one (now_us, rtt_us, loss_fraction) observation
// through the controller. Invalid samples (rtt_us == 0, non-monotonic
// now_us, or a NaN/out-of-range loss_fraction) are silently discarded: the
// call is a complete no-op, never a partial one.
//
// The fixed per-sample order is: update signals, compute new state,
// adjust bitrate, adjust fps and FEC (spec.md §4.4).
func (c *Controller) ProcessSample(nowUs, rttUs uint64, lossFraction float64) {
	if !c.validSample(nowUs, rttUs, lossFraction) {
		return
	}

	sig := c.estimator.update(nowUs, rttUs)
	state := c.sm.evaluate(nowUs, sig)
	c.bitrate.update(state, sig, c.cfg.TargetDelayUs, c.sm.justEnteredCongested)
	c.quality.updateFPS(state, nowUs, c.sm)
	c.quality.updateFEC(state, lossFraction)

	c.lastSignals = sig
	c.hasPrevNow = true
	c.prevNowUs = nowUs
}

func (c *Controller) validSample(nowUs, rttUs uint64, lossFraction float64) bool {
	if rttUs == 0 {
		return false
	}
	if math.IsNaN(lossFraction) || lossFraction < 0 || lossFraction > 1 {
		return false
	}
	if c.hasPrevNow && nowUs < c.prevNowUs {
		return false
	}
	return true
}

// Bitrate returns the current target send bitrate in kbps.
func (c *Controller) Bitrate() uint32 {
	return c.bitrate.targetKbps
}

// FPS returns the current target frame rate.
func (c *Controller) FPS() uint16 {
	return c.quality.ladder[c.quality.fpsIdx]
}

// FECRatio returns the current FEC redundancy ratio.
func (c *Controller) FECRatio() float32 {
	return c.quality.fec
}

// State returns the current network-condition classification, for
// observability only.
func (c *Controller) State() State {
	return c.sm.state
}

// Snapshot returns a read-only view of every internal signal and counter,
// for transport-layer diagnostics and metrics.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		RTTSmoothUs:       c.lastSignals.rttSmoothUs,
		RTTMinUs:          c.lastSignals.rttMinUs,
		QueueDelayUs:      c.lastSignals.dQUs,
		QueueDelaySlopeUs: c.lastSignals.deltaDQUs,

		State:            c.sm.state,
		RisingCount:      c.sm.risingCount,
		StableCount:      c.sm.stableCount,
		StableDurationUs: c.sm.stableDurationUs,

		TargetBitrateKbps: c.bitrate.targetKbps,
		TargetFPS:         c.FPS(),
		FECRatio:          c.quality.fec,
	}
}
