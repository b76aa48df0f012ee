package limiter

// Handle wraps exactly one cached payload managed by a Limiter. It carries
// the payload, a cooperative reference count, and its current slot index in
// the owner's queue (maintained by the Limiter on every removal and touch).
//
// A handle whose payload has been destroyed or released is inert: it is no
// longer tracked by any Limiter and reports CanDestroy() == false. Using a
// handle after DestroyIfPossible returned true (or after Release/Close) is
// a contract violation.
type Handle[T any] struct {
	data    T
	present bool // false once the payload was destroyed or released

	refs int
	pos  int // current offset in owner.queue; owner keeps this consistent

	owner *Limiter[T]
}

// Ref increments the reference count. A referenced handle is never selected
// as an eviction victim. Calls must be paired with Unref.
func (h *Handle[T]) Ref() { h.refs++ }

// Unref decrements the reference count. Unref without a matching Ref is a
// contract violation; the count is not guarded against going negative.
func (h *Handle[T]) Unref() { h.refs-- }

// Get returns the payload. After the payload was destroyed or released the
// zero value of T is returned.
func (h *Handle[T]) Get() T { return h.data }

// Refcount returns the current reference count.
func (h *Handle[T]) Refcount() int { return h.refs }

// CanDestroy reports whether the payload could be destroyed right now:
// it is still present and unreferenced. The Destroyable veto callback is
// NOT consulted here; it applies only to victim selection during
// enforcement.
func (h *Handle[T]) CanDestroy() bool { return h.present && h.refs == 0 }

// DestroyIfPossible destroys the payload and detaches the handle from its
// Limiter, but only if CanDestroy. Reports whether it actually destroyed.
// On success the handle is inert and must not be used again.
func (h *Handle[T]) DestroyIfPossible() bool {
	if !h.CanDestroy() {
		return false
	}
	h.owner.destroy(h, DestroyExplicit)
	return true
}

// Touch moves the handle to the most-recently-used end of the queue,
// shielding it from the LRU-like default eviction order. While a priority
// callback is configured this is a deliberate no-op: selection scans the
// full queue regardless, so re-arranging it buys nothing.
func (h *Handle[T]) Touch() { h.owner.touch(h) }

// Release detaches the handle from its Limiter and returns the payload to
// the caller WITHOUT invoking the OnDestroy hook: ownership transfers back
// to the caller. The refcount is ignored. The handle is inert afterward.
func (h *Handle[T]) Release() T {
	data := h.data
	h.owner.remove(h)
	h.detach()
	return data
}

// detach zeroes the payload slot so the GC can reclaim it through the
// caller's (or nobody's) reference, and marks the handle inert.
func (h *Handle[T]) detach() {
	var zero T
	h.data = zero
	h.present = false
	h.owner = nil
}
