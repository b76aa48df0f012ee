package limiter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// item is the payload used throughout the tests: a name to track destruction
// order and a fixed size in bytes.
type item struct {
	name  string
	size  uint64
	dirty bool
}

func itemSize(it *item) uint64 { return it.size }

// setBudget mutates the process-wide budget for one test and restores the
// previous values afterward. Tests using it must not run in parallel.
func setBudget(t testing.TB, max uint64, dis bool) {
	t.Helper()
	prevMax, prevDis := Maximum(), Disabled()
	SetMaximum(max)
	SetDisabled(dis)
	t.Cleanup(func() {
		SetMaximum(prevMax)
		SetDisabled(prevDis)
	})
}

// newTracked builds a limiter over *item that records destruction order.
func newTracked(opt Options[*item]) (*Limiter[*item], *[]string) {
	destroyed := &[]string{}
	prev := opt.OnDestroy
	opt.OnDestroy = func(it *item, r DestroyReason) {
		*destroyed = append(*destroyed, it.name)
		if prev != nil {
			prev(it, r)
		}
	}
	if opt.Size == nil {
		opt.Size = itemSize
	}
	return New(opt), destroyed
}

func insert3(l *Limiter[*item]) (a, b, c *Handle[*item]) {
	a = l.Insert(&item{name: "A", size: 10})
	b = l.Insert(&item{name: "B", size: 10})
	c = l.Insert(&item{name: "C", size: 10})
	return a, b, c
}

// Insert A,B,C with sizes 10 each, maximum 15: exactly A then B are
// destroyed in queue order, C survives, usage drops to 10.
func TestEnforce_EvictsOldestFirst(t *testing.T) {
	setBudget(t, 15, false)

	l, destroyed := newTracked(Options[*item]{})
	defer l.Close()
	insert3(l)

	l.EnforceLimits()

	require.Equal(t, []string{"A", "B"}, *destroyed)
	require.Equal(t, 1, l.Len())
	require.Equal(t, uint64(10), l.MemoryInUse())
}

// EnforceLimits is a no-op when the maximum is unset, when enforcement is
// disabled, and when usage is already within budget.
func TestEnforce_NoopConditions(t *testing.T) {
	cases := []struct {
		name string
		max  uint64
		dis  bool
	}{
		{"unset maximum", 0, false},
		{"disabled", 15, true},
		{"within budget", 1 << 30, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBudget(t, tc.max, tc.dis)

			l, destroyed := newTracked(Options[*item]{})
			defer l.Close()
			insert3(l)

			l.EnforceLimits()

			require.Empty(t, *destroyed)
			require.Equal(t, 3, l.Len())
			require.Equal(t, uint64(30), l.MemoryInUse())
		})
	}
}

// Touch moves a handle to the tail: after touching A, B becomes the head
// and is evicted first.
func TestEnforce_TouchMovesToTail(t *testing.T) {
	setBudget(t, 10, false)

	l, destroyed := newTracked(Options[*item]{})
	defer l.Close()
	a := l.Insert(&item{name: "A", size: 10})
	l.Insert(&item{name: "B", size: 10})

	a.Touch()
	l.EnforceLimits()

	require.Equal(t, []string{"B"}, *destroyed)
	require.Equal(t, &item{name: "A", size: 10}, a.Get())
}

// A constant-priority callback keeps the default scan-order tie-break:
// the earliest-scanned destroyable handle wins among equals.
func TestEnforce_ConstantPriorityTieBreak(t *testing.T) {
	setBudget(t, 15, false)

	l, destroyed := newTracked(Options[*item]{
		Priority: func(*item, int) int { return 0 },
	})
	defer l.Close()
	insert3(l)

	l.EnforceLimits()

	require.Equal(t, []string{"A", "B"}, *destroyed)
}

// A priority callback fully overrides queue order: the handle it ranks
// lowest is evicted first regardless of position.
func TestEnforce_PriorityOverridesQueueOrder(t *testing.T) {
	setBudget(t, 20, false)

	l, destroyed := newTracked(Options[*item]{})
	defer l.Close()
	insert3(l)

	l.SetPriorityFunc(func(it *item, def int) int {
		if it.name == "C" {
			return -1000
		}
		return def
	})
	l.EnforceLimits()

	require.Equal(t, []string{"C"}, *destroyed)
}

// While a priority callback is configured Touch must not perturb anything:
// with a constant priority the eviction order stays the scan order even
// after touching the head.
func TestEnforce_TouchNoopWithPriorityFunc(t *testing.T) {
	setBudget(t, 20, false)

	l, destroyed := newTracked(Options[*item]{
		Priority: func(*item, int) int { return 0 },
	})
	defer l.Close()
	a, _, _ := insert3(l)

	a.Touch() // no-op: priority mode
	l.EnforceLimits()

	require.Equal(t, []string{"A"}, *destroyed)
}

// Referenced handles are never victims; when nothing destroyable remains
// the pass stops silently, leaving usage over budget.
func TestEnforce_ReferencedSurvive(t *testing.T) {
	setBudget(t, 5, false)

	l, destroyed := newTracked(Options[*item]{})
	defer l.Close()
	a, b, c := insert3(l)
	a.Ref()
	b.Ref()

	l.EnforceLimits()

	require.Equal(t, []string{"C"}, *destroyed)
	require.Equal(t, 2, l.Len())
	require.Equal(t, uint64(20), l.MemoryInUse()) // still over budget, not an error

	a.Unref()
	b.Unref()
	_ = c
}

// The Destroyable callback vetoes eviction of payloads that report
// themselves unsafe to drop (dirty), even when unreferenced.
func TestEnforce_DestroyableVeto(t *testing.T) {
	setBudget(t, 5, false)

	l, destroyed := newTracked(Options[*item]{
		Destroyable: func(it *item) bool { return !it.dirty },
	})
	defer l.Close()
	l.Insert(&item{name: "A", size: 10})
	l.Insert(&item{name: "B", size: 10, dirty: true})

	l.EnforceLimits()

	require.Equal(t, []string{"A"}, *destroyed)
	require.Equal(t, 1, l.Len())
}

// Without a Size callback the engine tracks the process heap counter; the
// test injects a deterministic probe that the destructor hook moves.
func TestEnforce_AllocatorProxyMode(t *testing.T) {
	setBudget(t, 15, false)

	mem := uint64(30)
	l := New(Options[*item]{
		MemoryInUse: func() uint64 { return mem },
		OnDestroy:   func(it *item, _ DestroyReason) { mem -= it.size },
	})
	defer l.Close()
	l.Insert(&item{name: "A", size: 10})
	l.Insert(&item{name: "B", size: 10})
	l.Insert(&item{name: "C", size: 10})

	require.Equal(t, uint64(30), l.MemoryInUse()) // proxy, not a per-entry sum

	l.EnforceLimits()

	require.Equal(t, uint64(10), mem)
	require.Equal(t, 1, l.Len())
}

// Running enforcement twice in a row without intervening mutations must
// produce the same end state; the second pass destroys nothing.
func TestEnforce_Idempotent(t *testing.T) {
	setBudget(t, 15, false)

	l, destroyed := newTracked(Options[*item]{})
	defer l.Close()
	insert3(l)

	l.EnforceLimits()
	first := append([]string(nil), *destroyed...)

	l.EnforceLimits()

	require.Equal(t, first, *destroyed)
	require.Equal(t, 1, l.Len())
}

// Close force-destroys everything, referenced or not, with the shutdown
// reason.
func TestClose_ForceDestroysReferenced(t *testing.T) {
	var reasons []DestroyReason
	l := New(Options[*item]{
		Size:      itemSize,
		OnDestroy: func(_ *item, r DestroyReason) { reasons = append(reasons, r) },
	})
	a := l.Insert(&item{name: "A", size: 10})
	l.Insert(&item{name: "B", size: 10})
	a.Ref()

	require.NoError(t, l.Close())
	require.Equal(t, []DestroyReason{DestroyShutdown, DestroyShutdown}, reasons)
	require.Equal(t, 0, l.Len())
}

// Release detaches the handle and hands the payload back without invoking
// the destructor hook.
func TestRelease_TransfersOwnership(t *testing.T) {
	l, destroyed := newTracked(Options[*item]{})
	defer l.Close()
	a, _, _ := insert3(l)

	got := a.Release()

	require.Equal(t, "A", got.name)
	require.Empty(t, *destroyed)
	require.Equal(t, 2, l.Len())
	require.Equal(t, uint64(20), l.MemoryInUse())
	require.False(t, a.CanDestroy())
	require.False(t, a.DestroyIfPossible())
}

// Inserting N payloads and destroying all N leaves the queue empty and the
// size-function accounting at zero.
func TestDestroyAll_RoundTrip(t *testing.T) {
	l, _ := newTracked(Options[*item]{})
	defer l.Close()

	const n = 32
	handles := make([]*Handle[*item], 0, n)
	for i := 0; i < n; i++ {
		handles = append(handles, l.Insert(&item{name: "x", size: 4}))
	}
	require.Equal(t, uint64(4*n), l.MemoryInUse())

	for _, h := range handles {
		require.True(t, h.DestroyIfPossible())
	}
	require.Equal(t, 0, l.Len())
	require.Equal(t, uint64(0), l.MemoryInUse())
}

// recordingMetrics is a test double for the Metrics interface.
type recordingMetrics struct {
	inserts  int
	destroys map[DestroyReason]int
	lastUse  uint64
	lastLen  int
}

func (m *recordingMetrics) Insert() { m.inserts++ }
func (m *recordingMetrics) Destroy(r DestroyReason) {
	if m.destroys == nil {
		m.destroys = map[DestroyReason]int{}
	}
	m.destroys[r]++
}
func (m *recordingMetrics) Usage(bytes uint64, entries int) {
	m.lastUse = bytes
	m.lastLen = entries
}

// Metrics receive an Insert per payload, a Destroy per victim with the
// right reason, and a Usage snapshot after the enforcement pass.
func TestMetrics_Signals(t *testing.T) {
	setBudget(t, 15, false)

	m := &recordingMetrics{}
	l := New(Options[*item]{Size: itemSize, Metrics: m})
	defer l.Close()
	a, _, _ := insert3(l)

	l.EnforceLimits()
	require.Equal(t, 3, m.inserts)
	require.Equal(t, 2, m.destroys[DestroyEvicted])
	require.Equal(t, uint64(10), m.lastUse)
	require.Equal(t, 1, m.lastLen)

	_ = a
	require.Equal(t, 1, l.Len())
	h := l.queue[0]
	require.True(t, h.DestroyIfPossible())
	require.Equal(t, 1, m.destroys[DestroyExplicit])
}
