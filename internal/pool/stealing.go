package pool

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Stealing bounds the number of jobs running concurrently with a
// weighted semaphore and waits for them to drain on Close. Every Spawn
// starts a goroutine immediately; the semaphore acquire happens inside
// that goroutine, not on the caller, so excess jobs queue up as parked
// goroutines rather than blocking whoever called Spawn. The retrieval
// pack has no genuine work-stealing scheduler; this is the closest
// ecosystem primitive available and stands in for it.
type Stealing struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

var _ Pool = (*Stealing)(nil)

// NewStealing returns a pool that runs at most size jobs concurrently.
// size is clamped to at least 1.
func NewStealing(size uint32) *Stealing {
	if size == 0 {
		size = 1
	}
	return &Stealing{sem: semaphore.NewWeighted(int64(size))}
}

// Spawn queues job and returns immediately: it only ever blocks the
// caller on the WaitGroup's internal counter, never on the semaphore.
// The semaphore acquire happens inside the new goroutine, so a saturated
// pool parks that goroutine waiting its turn instead of stalling
// whoever called Spawn.
func (p *Stealing) Spawn(job func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("pool: stealing job panicked", "recover", r)
			}
		}()
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			slog.Error("pool: stealing semaphore acquire failed", "error", err)
			return
		}
		defer p.sem.Release(1)
		job()
	}()
}

// Close waits for every in-flight job to finish.
func (p *Stealing) Close() error {
	p.wg.Wait()
	return nil
}
