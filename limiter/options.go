package limiter

// SizeFunc reports the size in bytes of one payload. It must be cheap and
// deterministic for the lifetime of the payload: enforcement subtracts the
// same value it measured when it picks a victim.
type SizeFunc[T any] func(data T) uint64

// PriorityFunc ranks a payload for eviction; lower values are evicted first.
// defaultPriority is derived from queue position (0 for the most recently
// touched handle, increasingly negative toward the head) so returning it
// unchanged preserves the LRU-like default order. Implementations are free
// to ignore it entirely.
type PriorityFunc[T any] func(data T, defaultPriority int) int

// DestroyableFunc lets a payload veto its own eviction even when
// unreferenced (e.g. "dirty, must be saved first"). It is consulted only
// during victim selection, never by Handle.DestroyIfPossible.
type DestroyableFunc[T any] func(data T) bool

// Options configures a Limiter. Zero values are safe; defaults are applied
// in New():
//   - nil Size        => process-heap proxy accounting
//   - nil Metrics     => NoopMetrics
//   - nil MemoryInUse => runtime heap probe (proxy mode only)
type Options[T any] struct {
	// Size measures one payload in bytes. When nil the engine cannot
	// attribute usage per entry and instead tracks the process-wide heap
	// counter, which only moves when its own entries are destroyed.
	Size SizeFunc[T]

	// Priority overrides the default LRU-like eviction order.
	// May also be set later via SetPriorityFunc.
	Priority PriorityFunc[T]

	// Destroyable is an extra eviction veto. May also be set later via
	// SetDestroyableFunc.
	Destroyable DestroyableFunc[T]

	// OnDestroy is the payload destructor hook, called exactly once per
	// payload when it is evicted, explicitly destroyed, or released by
	// Close. Called synchronously; keep it lightweight.
	OnDestroy func(data T, reason DestroyReason)

	// Metrics receives Insert/Destroy/Usage signals.
	Metrics Metrics

	// MemoryInUse overrides the process-heap probe used in proxy mode
	// (nil Size). Nil => runtime.ReadMemStats-based probe. Exists mainly
	// for deterministic tests.
	MemoryInUse func() uint64
}

// SetPriorityFunc installs (or clears) the priority callback.
// While a priority callback is set, Touch is a no-op: queue order no longer
// encodes recency because every selection scans the full queue anyway.
func (l *Limiter[T]) SetPriorityFunc(fn PriorityFunc[T]) { l.opt.Priority = fn }

// SetDestroyableFunc installs (or clears) the eviction veto callback.
func (l *Limiter[T]) SetDestroyableFunc(fn DestroyableFunc[T]) { l.opt.Destroyable = fn }
