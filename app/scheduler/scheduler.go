package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/monkeydioude/patishie/app/database"
)

// Refresher runs one refresh cycle for a source.
type Refresher interface {
	Refresh(ctx context.Context, src database.Source) (int64, error)
}

// Scheduler is the top-level loop: select the due sources, dispatch one
// concurrent refresh per source that is not already in flight, then sleep
// until the earliest next refresh. Dispatched refreshes are not awaited
// within a tick, the ledger bounds overlap across ticks.
type Scheduler struct {
	sources      database.SourceRepository
	refresher    Refresher
	ledger       *Ledger
	sem          *semaphore.Weighted
	defaultSleep time.Duration
	cooldown     time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewScheduler(sources database.SourceRepository, refresher Refresher, ledger *Ledger,
	workerCount int, defaultSleep, cooldown time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sources:      sources,
		refresher:    refresher,
		ledger:       ledger,
		sem:          semaphore.NewWeighted(int64(workerCount)),
		defaultSleep: defaultSleep,
		cooldown:     cooldown,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Stop cancels the loop and waits for in-flight refreshes to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	for {
		s.tick()

		sleep := s.nextSleep()
		slog.Debug("Scheduler sleeping", "duration", sleep.String())

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func (s *Scheduler) tick() {
	now := time.Now().UnixMilli()

	ready, err := s.sources.SelectReady(s.ctx, now)
	if err != nil {
		// A transient read failure skips the tick, never kills the loop.
		slog.Warn("Failed to select ready sources, skipping tick", "error", err)
		return
	}

	for _, src := range ready {
		s.dispatch(src)
	}
}

func (s *Scheduler) dispatch(src database.Source) {
	if !s.ledger.TryAcquire(src.ID) {
		slog.Debug("Refresh already in flight, skipping", "source", src.Name, "source_id", src.ID)
		return
	}

	// Blocks while all workers are busy, which caps the per-tick fan-out.
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		s.ledger.Release(src.ID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		defer s.ledger.Release(src.ID)

		if _, err := s.refresher.Refresh(s.ctx, src); err != nil {
			slog.Error("Refresh failed", "source", src.Name, "source_id", src.ID, "error", err)
		}
	}()
}

// nextSleep computes how long to wait before the next tick: time until the
// earliest next refresh across all sources, clamped at zero, plus a cooldown
// margin against clock and storage skew. Falls back to the default sleep when
// no sources exist or the store cannot answer.
func (s *Scheduler) nextSleep() time.Duration {
	due, ok, err := s.sources.NextDue(s.ctx)
	if err != nil {
		slog.Warn("Failed to compute next due time, using default sleep", "error", err)
		return s.defaultSleep
	}
	if !ok {
		return s.defaultSleep
	}

	wait := time.Duration(due-time.Now().UnixMilli()) * time.Millisecond
	if wait < 0 {
		wait = 0
	}
	return wait + s.cooldown
}
