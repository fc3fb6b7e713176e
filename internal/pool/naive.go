package pool

import "log/slog"

// Naive runs every job on its own goroutine, with no bound on
// concurrency. It implements the "no pooling at all" variant the
// original thread_pool trait calls NaiveThreadPool.
type Naive struct{}

var _ Pool = Naive{}

// NewNaive returns a Naive pool. It needs no setup: every Spawn starts
// a fresh goroutine.
func NewNaive() Naive { return Naive{} }

// Spawn runs job on a new goroutine, recovering and logging any panic.
func (Naive) Spawn(job func()) {
	go runRecovered(job)
}

// Close is a no-op: Naive holds no resources and tracks no goroutines.
func (Naive) Close() error { return nil }

func runRecovered(job func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pool: job panicked", "recover", r)
		}
	}()
	job()
}
