package limiter

// DestroyReason explains why a payload was destroyed.
type DestroyReason int

const (
	// DestroyEvicted — destroyed by an enforcement pass to satisfy the budget.
	DestroyEvicted DestroyReason = iota
	// DestroyExplicit — destroyed by an explicit DestroyIfPossible call.
	DestroyExplicit
	// DestroyShutdown — force-destroyed by Close, regardless of refcount.
	DestroyShutdown
)

// Metrics exposes limiter-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Insert()
	Destroy(reason DestroyReason)
	Usage(bytes uint64, entries int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Insert()                         {}
func (NoopMetrics) Destroy(DestroyReason)           {}
func (NoopMetrics) Usage(bytes uint64, entries int) {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
