package interceptor

import (
	"github.com/pion/interceptor"

	"github.com/wavry/delta/pkg/delta"
)

// FactoryOption configures a DeltaInterceptorFactory.
type FactoryOption func(*DeltaInterceptorFactory) error

// DeltaInterceptorFactory creates a DeltaInterceptor (and its backing
// delta.Controller) for each PeerConnection. Register it with an
// interceptor.Registry to get DELTA-driven bitrate/fps/fec_ratio advice
// on a per-connection basis.
type DeltaInterceptorFactory struct {
	cfg          delta.Config
	clock        Clock
	onController func(*delta.Controller)
}

// WithConfig overrides the delta.Config used to construct each
// connection's Controller. Defaults to delta.DefaultConfig().
func WithConfig(cfg delta.Config) FactoryOption {
	return func(f *DeltaInterceptorFactory) error {
		f.cfg = cfg
		return nil
	}
}

// WithFactoryClock overrides the Clock used by every interceptor this
// factory produces, primarily for tests.
func WithFactoryClock(c Clock) FactoryOption {
	return func(f *DeltaInterceptorFactory) error {
		f.clock = c
		return nil
	}
}

// WithOnController sets a callback invoked once per PeerConnection with
// the freshly constructed Controller, letting the caller capture a
// reference to read Bitrate/FPS/FECRatio/Snapshot and apply them to its
// own encoder and FEC pacer — the registry builds the interceptor chain
// internally, so this is the only hook for recovering that reference.
func WithOnController(fn func(*delta.Controller)) FactoryOption {
	return func(f *DeltaInterceptorFactory) error {
		f.onController = fn
		return nil
	}
}

// NewDeltaInterceptorFactory creates a new factory for DeltaInterceptor
// instances, configured via FactoryOption functions.
func NewDeltaInterceptorFactory(opts ...FactoryOption) (*DeltaInterceptorFactory, error) {
	f := &DeltaInterceptorFactory{
		cfg:   delta.DefaultConfig(),
		clock: MonotonicClock{},
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// NewInterceptor constructs a DeltaInterceptor backed by a fresh
// Controller for one PeerConnection. The only failure mode is the
// Controller's own config validation (delta.ErrInvalidConfig).
func (f *DeltaInterceptorFactory) NewInterceptor(_ string) (interceptor.Interceptor, error) {
	controller, err := delta.NewController(f.cfg)
	if err != nil {
		return nil, err
	}
	if f.onController != nil {
		f.onController(controller)
	}
	return NewDeltaInterceptor(controller, WithClock(f.clock)), nil
}
