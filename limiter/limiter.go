package limiter

import "runtime"

// Limiter is a memory-budget enforcement engine for one logical cache
// domain. It owns a queue of handles wrapping cached payloads, tracks their
// aggregate size, and destroys the least-valuable destroyable entries when
// usage exceeds the process-wide ceiling.
//
// Not safe for concurrent use; see the package documentation.
type Limiter[T any] struct {
	// Dense queue of live handles in coldest-first order. Each handle
	// stores its own slot index, kept consistent on every insertion,
	// removal, and touch. Queue order is insertion order except where
	// Touch has moved an entry to the tail; without a priority callback
	// that order approximates least-recently-used (head = coldest).
	queue []*Handle[T]

	opt Options[T]
}

// New constructs a Limiter with the provided Options.
// Defaults:
//   - nil Metrics     -> NoopMetrics
//   - nil MemoryInUse -> runtime heap probe (used only when Size is nil)
func New[T any](opt Options[T]) *Limiter[T] {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.MemoryInUse == nil {
		opt.MemoryInUse = heapInUse
	}
	return &Limiter[T]{opt: opt}
}

// Insert takes ownership of data and appends a new handle at the tail of
// the queue. The returned handle is unreferenced: an immediately following
// EnforceLimits may already select it as a victim.
func (l *Limiter[T]) Insert(data T) *Handle[T] {
	h := &Handle[T]{data: data, present: true, owner: l, pos: len(l.queue)}
	l.queue = append(l.queue, h)
	l.opt.Metrics.Insert()
	return h
}

// Len returns the number of handles currently managed.
func (l *Limiter[T]) Len() int { return len(l.queue) }

// MemoryInUse returns the bytes currently attributed to this Limiter: the
// sum of the Size callback over every tracked payload, or, when no Size
// callback is configured, the process-wide heap counter as a proxy (which
// cannot isolate this instance's share).
func (l *Limiter[T]) MemoryInUse() uint64 {
	if l.opt.Size == nil {
		return l.opt.MemoryInUse()
	}
	var total uint64
	for _, h := range l.queue {
		total += l.opt.Size(h.data)
	}
	return total
}

// EnforceLimits destroys destroyable payloads, least-priority first, until
// usage drops to the process-wide maximum or no destroyable candidate
// remains. Running out of candidates while still over budget is a routine,
// silent outcome (e.g. everything is referenced), not an error.
//
// No-op when enforcement is disabled, the maximum is unset (0), or usage is
// already within budget.
func (l *Limiter[T]) EnforceLimits() {
	if Disabled() {
		return
	}
	max := Maximum()
	if max == 0 {
		return
	}

	inUse := l.MemoryInUse()
	if inUse <= max {
		return
	}

	// Selection is deterministic, so a victim that fails to destroy would
	// be picked again on the next scan; stopping on the repeat guarantees
	// termination without giving up after a single failure.
	var lastFailed *Handle[T]

	for len(l.queue) > 0 && inUse > max {
		victim := l.leastPriorityDestroyable()
		if victim == nil {
			break // best effort: nothing more can be reclaimed
		}

		// Record the victim's contribution before destroying it.
		var victimSize uint64
		if l.opt.Size != nil {
			victimSize = l.opt.Size(victim.data)
		}

		if !victim.CanDestroy() {
			if victim == lastFailed {
				break
			}
			lastFailed = victim
			continue
		}
		l.destroy(victim, DestroyEvicted)

		if l.opt.Size != nil {
			// Clamp so a size callback that reports more than the tracked
			// total cannot wrap the unsigned remainder.
			if victimSize > inUse {
				inUse = 0
			} else {
				inUse -= victimSize
			}
		} else {
			// Proxy mode: re-read the heap counter. The observed delta may
			// be smaller, zero, or larger than any estimate because of
			// allocator granularity.
			inUse = l.opt.MemoryInUse()
		}
	}

	l.opt.Metrics.Usage(inUse, len(l.queue))
}

// Close force-destroys every remaining handle regardless of refcount,
// invoking OnDestroy with DestroyShutdown for each payload. The Limiter is
// empty afterward. Always returns nil.
func (l *Limiter[T]) Close() error {
	for len(l.queue) > 0 {
		h := l.queue[len(l.queue)-1]
		h.refs = 0
		l.destroy(h, DestroyShutdown)
	}
	return nil
}

// -------------------- internals --------------------

// canEvict reports whether h may be picked as an enforcement victim:
// destroyable in the handle sense, plus the optional application veto.
func (l *Limiter[T]) canEvict(h *Handle[T]) bool {
	if !h.CanDestroy() {
		return false // referenced or already gone
	}
	if l.opt.Destroyable != nil && !l.opt.Destroyable(h.data) {
		return false
	}
	return true
}

// leastPriorityDestroyable selects the next eviction victim, or nil when
// nothing in the queue may be destroyed.
//
// Without a priority callback the first destroyable handle in queue order
// wins — the natural LRU order, since Touch keeps warm handles at the tail.
// With one, the whole queue is scanned: each destroyable handle gets a
// position-derived default (0 at the tail, increasingly negative toward the
// head), the callback maps it to a final priority, and the minimum wins.
// Ties go to the first handle scanned, i.e. the older one.
func (l *Limiter[T]) leastPriorityDestroyable() *Handle[T] {
	if l.opt.Priority == nil {
		for _, h := range l.queue {
			if l.canEvict(h) {
				return h
			}
		}
		return nil
	}

	var best *Handle[T]
	bestPriority := 0
	for i, h := range l.queue {
		if !l.canEvict(h) {
			continue
		}
		def := -(len(l.queue) - i - 1)
		p := l.opt.Priority(h.data, def)
		if best == nil || p < bestPriority {
			best = h
			bestPriority = p
		}
	}
	return best
}

// destroy runs the payload destructor, detaches h, and updates metrics.
func (l *Limiter[T]) destroy(h *Handle[T], reason DestroyReason) {
	if cb := l.opt.OnDestroy; cb != nil {
		cb(h.data, reason)
	}
	l.remove(h)
	h.detach()
	l.opt.Metrics.Destroy(reason)
}

// remove takes h out of the queue by shifting the suffix down one slot and
// re-indexing it. Removal preserves relative order: queue order must keep
// encoding insertion/touch recency across evictions, otherwise each victim
// would promote an unrelated entry into the cold end of the scan.
func (l *Limiter[T]) remove(h *Handle[T]) {
	copy(l.queue[h.pos:], l.queue[h.pos+1:])
	last := len(l.queue) - 1
	l.queue[last] = nil // release the slot's reference for the GC
	l.queue = l.queue[:last]
	for i := h.pos; i < len(l.queue); i++ {
		l.queue[i].pos = i
	}
}

// touch moves h to the tail of the queue (most recently used), preserving
// the relative order of everything else. No-op while a priority callback is
// configured: selection scans the full queue anyway, so maintaining recency
// order would be wasted work.
func (l *Limiter[T]) touch(h *Handle[T]) {
	if l.opt.Priority != nil {
		return
	}
	pos := h.pos
	copy(l.queue[pos:], l.queue[pos+1:])
	l.queue[len(l.queue)-1] = h
	for i := pos; i < len(l.queue); i++ {
		l.queue[i].pos = i
	}
}

// heapInUse is the default process-usage probe for proxy-mode accounting.
// ReadMemStats stops the world briefly; proxy mode trades that cost for not
// having to size entries.
func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}
