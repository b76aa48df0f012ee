// Command bench runs a synthetic workload against the limiter and exposes optional pprof/Prometheus endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/cachelimiter/limiter"
	pmet "github.com/IvanBrykalov/cachelimiter/metrics/prom"
)

// payload is a fixed-size synthetic cached object.
type payload struct {
	id   int
	data []byte
}

func main() {
	// ---- Flags ----
	var (
		maxBytes    = flag.Uint64("max", 64<<20, "process-wide budget in bytes (0 = unlimited)")
		payloadSize = flag.Int("payload", 64<<10, "payload size in bytes")
		duration    = flag.Duration("duration", 10*time.Second, "benchmark duration")
		enforceEach = flag.Int("enforce_each", 64, "run an enforcement pass every N inserts")
		refPct      = flag.Int("refs", 10, "percentage of payloads held referenced [0..100]")
		priority    = flag.Bool("priority", false, "install a custom priority callback (random ranking)")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "cachelimiter", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Configure the budget and build the limiter ----
	limiter.SetMaximum(*maxBytes)
	limiter.SetDisabled(false)

	l := limiter.New[*payload](limiter.Options[*payload]{
		Size:    func(p *payload) uint64 { return uint64(len(p.data)) },
		Metrics: metrics,
	})
	defer func() { _ = l.Close() }()

	r := rand.New(rand.NewSource(*seed))
	if *priority {
		l.SetPriorityFunc(func(p *payload, def int) int {
			// Scatter the ranking so every pass exercises the full scan.
			return def - p.id%97
		})
	}

	// ---- Workload: insert, occasionally pin/touch, enforce periodically.
	// The limiter is single-threaded by contract, so one goroutine drives it;
	// the HTTP endpoints above serve concurrently.
	var (
		inserts  int
		enforces int
		pinned   []*limiter.Handle[*payload]
	)
	start := time.Now()
	deadline := start.Add(*duration)

	for id := 0; time.Now().Before(deadline); id++ {
		h := l.Insert(&payload{id: id, data: make([]byte, *payloadSize)})
		inserts++

		if r.Intn(100) < *refPct {
			h.Ref()
			pinned = append(pinned, h)
		} else if r.Intn(4) == 0 {
			h.Touch()
		}

		// Unpin a random held payload now and then so eviction can make
		// progress against long runs.
		if len(pinned) > 64 {
			i := r.Intn(len(pinned))
			pinned[i].Unref()
			pinned[i] = pinned[len(pinned)-1]
			pinned = pinned[:len(pinned)-1]
		}

		if inserts%*enforceEach == 0 {
			l.EnforceLimits()
			enforces++
		}
	}
	l.EnforceLimits()
	enforces++

	elapsed := time.Since(start)
	fmt.Printf("done in %v: %d inserts, %d enforcement passes, %d resident (%d bytes, budget %d)\n",
		elapsed, inserts, enforces, l.Len(), l.MemoryInUse(), limiter.Maximum())
	fmt.Printf("rate: %.0f inserts/s\n", float64(inserts)/elapsed.Seconds())
}
