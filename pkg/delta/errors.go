package delta

import "errors"

// ErrInvalidConfig is returned by NewController when a Config fails
// validation. It is the only failure mode in DELTA's public surface —
// invalid samples are silent no-ops, not errors (spec §7).
var ErrInvalidConfig = errors.New("delta: invalid config")
