// Package limiter provides a generic memory-budget enforcement engine for
// in-process caches: callers hand arbitrarily-typed payloads to a Limiter and
// get back reference-counted handles, and an enforcement pass destroys the
// least-valuable unreferenced payloads whenever aggregate usage exceeds a
// process-wide byte ceiling.
//
// Design
//
//   - Budget: the ceiling is process-wide, shared by every Limiter instance
//     (one instance per logical cache domain). It is configured through
//     SetMaximum/SetDisabled and read by every EnforceLimits call; 0 means
//     "no ceiling". The pair is stored in padded atomics so concurrent
//     readers never contend on a shared cache line.
//
//   - Accounting: with a Size callback configured, usage is the exact sum of
//     per-payload sizes. Without one, the engine falls back to the process
//     heap counter as a proxy; in that mode it can only observe memory
//     returned as a side effect of destroying its own entries.
//
//   - Queue: handles live in a dense slice, coldest first, and carry their
//     own slot index so a handle can locate itself without a lookup.
//     Removal compacts the suffix, preserving relative order: insertion
//     order doubles as an LRU approximation, Touch moves a handle to the
//     tail, and eviction scans from the head.
//
//   - Victim selection: without a Priority callback the first destroyable
//     handle in queue order is evicted. With one, the whole queue is scanned,
//     each destroyable handle gets a position-derived default priority
//     (0 at the tail, increasingly negative toward the head) that the
//     callback may override, and the minimum wins. A Destroyable callback
//     lets payloads veto their own eviction (e.g. dirty data that must be
//     flushed first).
//
//   - Ownership: the Limiter owns its handles and each handle owns exactly
//     one payload. OnDestroy is the payload's destructor hook, invoked on
//     eviction, explicit destruction, and Close. Ref/Unref is a cooperative
//     usage guard, not a thread-safe counter.
//
//   - Metrics: Options.Metrics receives Insert/Destroy/Usage signals.
//     NoopMetrics is the default; plug the metrics/prom adapter to export
//     Prometheus counters.
//
// Basic usage
//
//	type Frame struct{ Pixels []byte }
//
//	limiter.SetMaximum(512 << 20)
//
//	frames := limiter.New[*Frame](limiter.Options[*Frame]{
//	    Size: func(f *Frame) uint64 { return uint64(len(f.Pixels)) },
//	})
//	defer frames.Close()
//
//	h := frames.Insert(decode(path))
//	frames.EnforceLimits()
//
//	h.Ref()
//	render(h.Get())
//	h.Unref()
//	// leave the frame cached; a later EnforceLimits may reclaim it.
//
// With a custom priority
//
//	frames.SetPriorityFunc(func(f *Frame, def int) int {
//	    if f.Prefetched {
//	        return def - 100 // prefetched frames go first
//	    }
//	    return def
//	})
//
// Concurrency
//
// A Limiter is NOT safe for concurrent use: serialize all operations on a
// given instance externally. Only the process-wide budget accessors
// (SetMaximum, Maximum, SetDisabled, Disabled) are safe to call from any
// goroutine. No operation blocks; EnforceLimits runs to completion in the
// calling goroutine, bounded by queue length.
package limiter
