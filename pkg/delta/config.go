package delta

import "fmt"

// Config fixes every tunable constant and the initial bitrate for a
// Controller. It is immutable after NewController validates it.
type Config struct {
	// TargetDelayUs is T_limit, the hard queue-delay ceiling in microseconds.
	// Default: 15_000 (15ms).
	TargetDelayUs uint64

	// RecoveryRatio scales T_limit down to T_threshold (T_limit *
	// RecoveryRatio), the floor below which CONGESTED recovery is
	// eligible. Default: 0.5.
	RecoveryRatio float64

	// Alpha is the EWMA weight for rtt_smooth. Default: 0.125.
	Alpha float64

	// Beta is the multiplicative decrease factor applied on CONGESTED
	// entry. Default: 0.85.
	Beta float64

	// AdditiveStepKbps is the per-sample additive increase ceiling in
	// STABLE. Default: 50.
	AdditiveStepKbps uint32

	// MinBitrateKbps is the lower clamp. Default: 500.
	MinBitrateKbps uint32

	// MaxBitrateKbps is the upper clamp. Default: 20_000.
	MaxBitrateKbps uint32

	// InitialBitrateKbps is the starting bitrate. Default: 2_500.
	InitialBitrateKbps uint32

	// KStable is the persistence count for STABLE<->RISING transitions.
	// Default: 3.
	KStable int

	// KCongestedRecover is the persistence count for CONGESTED->STABLE.
	// Default: 5.
	KCongestedRecover int

	// EpsilonRatio scales rtt_smooth to produce the adaptive slope noise
	// floor epsilon. Default: 0.05.
	EpsilonRatio float64

	// WindowDurationUs is the sliding window for rtt_min. Default:
	// 10_000_000 (10s).
	WindowDurationUs uint64

	// MaxWindowEntries is a hard cap on the rtt_min window size,
	// regardless of age. Default: 2048.
	MaxWindowEntries int

	// FPSLadder is the ordered, immutable set of permitted frame rates.
	// Default: [30, 45, 60].
	FPSLadder []uint16

	// InitialFPS is the starting frame rate; must be a member of
	// FPSLadder. Default: 60.
	InitialFPS uint16

	// FPSDropDelayUs is the CONGESTED dwell time before stepping fps
	// down one rung. Default: 1_000_000 (1s).
	FPSDropDelayUs uint64

	// FPSRecoverDelayUs is the STABLE dwell time before stepping fps up
	// one rung. Default: 5_000_000 (5s).
	FPSRecoverDelayUs uint64

	// BaseFECRatio is the FEC floor under STABLE decay. Default: 0.05.
	BaseFECRatio float32

	// MaxFECRatio is the FEC ceiling. Default: 0.5.
	MaxFECRatio float32

	// FECDecay is the per-sample decay weight toward BaseFECRatio while
	// STABLE. Default: 0.95.
	FECDecay float32

	// DecayFECDuringRising makes the FEC ratio decay toward BaseFECRatio
	// while RISING instead of holding steady. spec.md leaves this an
	// explicit Open Question; default false (hold, per spec's chosen
	// behavior).
	DecayFECDuringRising bool
}

// DefaultConfig returns the spec-compliant default configuration.
func DefaultConfig() Config {
	return Config{
		TargetDelayUs:      15_000,
		RecoveryRatio:      0.5,
		Alpha:              0.125,
		Beta:               0.85,
		AdditiveStepKbps:   50,
		MinBitrateKbps:     500,
		MaxBitrateKbps:     20_000,
		InitialBitrateKbps: 2_500,
		KStable:            3,
		KCongestedRecover:  5,
		EpsilonRatio:       0.05,
		WindowDurationUs:   10_000_000,
		MaxWindowEntries:   2048,
		FPSLadder:          []uint16{30, 45, 60},
		InitialFPS:         60,
		FPSDropDelayUs:     1_000_000,
		FPSRecoverDelayUs:  5_000_000,
		BaseFECRatio:       0.05,
		MaxFECRatio:        0.5,
		FECDecay:           0.95,
	}
}

// validate checks the construction-time invariants spec.md §7 calls out
// explicitly, and fills in zero-valued fields with their defaults —
// mirroring the teacher's NewRateController defaulting block, but
// promoting the genuinely invalid combinations to a hard error instead of
// silently clamping.
func (c *Config) validate() error {
	def := DefaultConfig()

	if c.RecoveryRatio <= 0 {
		c.RecoveryRatio = def.RecoveryRatio
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		c.Alpha = def.Alpha
	}
	if c.Beta <= 0 || c.Beta >= 1 {
		c.Beta = def.Beta
	}
	if c.AdditiveStepKbps == 0 {
		c.AdditiveStepKbps = def.AdditiveStepKbps
	}
	if c.KStable <= 0 {
		c.KStable = def.KStable
	}
	if c.KCongestedRecover <= 0 {
		c.KCongestedRecover = def.KCongestedRecover
	}
	if c.EpsilonRatio <= 0 {
		c.EpsilonRatio = def.EpsilonRatio
	}
	if c.WindowDurationUs == 0 {
		c.WindowDurationUs = def.WindowDurationUs
	}
	if c.MaxWindowEntries <= 0 {
		c.MaxWindowEntries = def.MaxWindowEntries
	}
	if c.FPSDropDelayUs == 0 {
		c.FPSDropDelayUs = def.FPSDropDelayUs
	}
	if c.FPSRecoverDelayUs == 0 {
		c.FPSRecoverDelayUs = def.FPSRecoverDelayUs
	}
	if c.BaseFECRatio <= 0 {
		c.BaseFECRatio = def.BaseFECRatio
	}
	if c.MaxFECRatio <= 0 {
		c.MaxFECRatio = def.MaxFECRatio
	}
	if c.FECDecay <= 0 {
		c.FECDecay = def.FECDecay
	}
	if c.TargetDelayUs == 0 {
		c.TargetDelayUs = def.TargetDelayUs
	}
	if len(c.FPSLadder) == 0 {
		c.FPSLadder = def.FPSLadder
	}
	if c.MinBitrateKbps == 0 {
		c.MinBitrateKbps = def.MinBitrateKbps
	}
	if c.MaxBitrateKbps == 0 {
		c.MaxBitrateKbps = def.MaxBitrateKbps
	}
	if c.InitialBitrateKbps == 0 {
		c.InitialBitrateKbps = def.InitialBitrateKbps
	}
	if c.InitialFPS == 0 {
		c.InitialFPS = def.InitialFPS
	}

	// Hard validation failures per spec.md §7: these surface as
	// InvalidConfig at construction, not a defaulted clamp.
	if c.MinBitrateKbps > c.MaxBitrateKbps {
		return fmt.Errorf("%w: min_bitrate_kbps (%d) > max_bitrate_kbps (%d)",
			ErrInvalidConfig, c.MinBitrateKbps, c.MaxBitrateKbps)
	}
	if c.InitialBitrateKbps < c.MinBitrateKbps || c.InitialBitrateKbps > c.MaxBitrateKbps {
		return fmt.Errorf("%w: initial_bitrate_kbps (%d) outside [%d, %d]",
			ErrInvalidConfig, c.InitialBitrateKbps, c.MinBitrateKbps, c.MaxBitrateKbps)
	}
	if c.MaxFECRatio > 1 || c.MaxFECRatio < 0 {
		return fmt.Errorf("%w: max_fec_ratio (%v) outside [0, 1]", ErrInvalidConfig, c.MaxFECRatio)
	}
	if c.BaseFECRatio > c.MaxFECRatio {
		return fmt.Errorf("%w: base_fec_ratio (%v) > max_fec_ratio (%v)",
			ErrInvalidConfig, c.BaseFECRatio, c.MaxFECRatio)
	}

	found := false
	for i, f := range c.FPSLadder {
		if f == c.InitialFPS {
			found = true
		}
		if i > 0 && f <= c.FPSLadder[i-1] {
			return fmt.Errorf("%w: fps_ladder must be strictly increasing, got %v", ErrInvalidConfig, c.FPSLadder)
		}
	}
	if !found {
		return fmt.Errorf("%w: initial_fps (%d) not in fps_ladder (%v)", ErrInvalidConfig, c.InitialFPS, c.FPSLadder)
	}

	return nil
}
