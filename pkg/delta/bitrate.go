package delta

// bitrateController adjusts target_bitrate_kbps once per sample, per
// spec.md §4.3. It is a thin AIMD shape: additive increase scaled by
// headroom while STABLE, hold while RISING, multiplicative decrease on
// CONGESTED *entry* only.
//
// CRITICAL (spec.md §9 "CONGESTED entry vs. stay"): repeatedly applying
// the multiplicative decrease on every CONGESTED sample collapses the
// bitrate. The decrease must fire once, on the transition into CONGESTED,
// never on a sample that merely continues it.
type bitrateController struct {
	additiveStepKbps uint32
	beta             float64
	minKbps          uint32
	maxKbps          uint32

	targetKbps uint32
}

func newBitrateController(cfg Config) *bitrateController {
	return &bitrateController{
		additiveStepKbps: cfg.AdditiveStepKbps,
		beta:             cfg.Beta,
		minKbps:          cfg.MinBitrateKbps,
		maxKbps:          cfg.MaxBitrateKbps,
		targetKbps:       cfg.InitialBitrateKbps,
	}
}

// update adjusts the target bitrate for the given state and signals,
// clamps it into [min, max], and returns it. enteredCongested must be true
// only on the sample that transitioned into CONGESTED.
func (b *bitrateController) update(state State, sig signals, targetDelayUs uint64, enteredCongested bool) uint32 {
	switch state {
	case Stable:
		gain := 1 - float64(sig.dQUs)/float64(targetDelayUs)
		if gain < 0 {
			gain = 0
		}
		b.targetKbps += uint32(float64(b.additiveStepKbps) * gain)

	case Rising:
		// Hold: observe whether the trend self-resolves before acting.

	case Congested:
		if enteredCongested {
			b.targetKbps = uint32(float64(b.targetKbps) * b.beta)
		}
	}

	b.clamp()
	return b.targetKbps
}

// clamp is the sole authority on bitrate bounds; callers must not clamp
// externally.
func (b *bitrateController) clamp() {
	if b.targetKbps < b.minKbps {
		b.targetKbps = b.minKbps
	}
	if b.targetKbps > b.maxKbps {
		b.targetKbps = b.maxKbps
	}
}
