package limiter

import "github.com/IvanBrykalov/cachelimiter/internal/util"

// Process-wide budget shared by every Limiter instance. There is no
// per-instance override: one cache domain going over budget is meant to be
// reclaimed in favor of any other.
//
// The two fields are read on every enforcement pass, possibly from many
// goroutines, and written rarely (user changes a setting). Padded atomics
// keep the hot reads off each other's cache lines.
var (
	maxBytes util.PaddedAtomicUint64 // 0 = no ceiling
	disabled util.PaddedAtomicBool
)

// SetMaximum sets the shared byte ceiling for all Limiter instances.
// 0 means "no ceiling": every EnforceLimits call becomes a no-op.
// Changing the maximum does not evict anything by itself; it takes effect
// on each engine's next enforcement pass.
func SetMaximum(bytes uint64) { maxBytes.Store(bytes) }

// Maximum returns the current shared byte ceiling (0 = no ceiling).
func Maximum() uint64 { return maxBytes.Load() }

// SetDisabled suspends (true) or resumes (false) enforcement globally
// without losing the configured ceiling.
func SetDisabled(d bool) { disabled.Store(d) }

// Disabled reports whether enforcement is currently suspended.
func Disabled() bool { return disabled.Load() }
