package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/monkeydioude/patishie/app/database"
)

type blockingRefresher struct {
	started  atomic.Int32
	release  chan struct{}
	finished atomic.Int32
}

var _ Refresher = (*blockingRefresher)(nil)

func (r *blockingRefresher) Refresh(ctx context.Context, src database.Source) (int64, error) {
	r.started.Add(1)
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	r.finished.Add(1)
	return time.Now().UnixMilli(), nil
}

func waitForStarts(t *testing.T, r *blockingRefresher, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.started.Load() < want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d refreshes to start, got %d", want, r.started.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTickSkipsInFlightSource(t *testing.T) {
	sources := &mockSourceRepo{ready: []database.Source{testSource()}}
	refresher := &blockingRefresher{release: make(chan struct{})}
	s := NewScheduler(sources, refresher, NewLedger(), 5, time.Minute, time.Second)
	defer s.Stop()

	s.tick()
	waitForStarts(t, refresher, 1)

	// The same source stays held until its refresh returns.
	s.tick()
	s.tick()
	time.Sleep(20 * time.Millisecond)
	if got := refresher.started.Load(); got != 1 {
		t.Fatalf("Expected 1 in-flight refresh, got %d", got)
	}

	close(refresher.release)

	// Once the first refresh drains and releases its hold, a later tick
	// dispatches the source again.
	deadline := time.Now().Add(2 * time.Second)
	for refresher.started.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected a redispatch after release, got %d starts", refresher.started.Load())
		}
		s.tick()
		time.Sleep(time.Millisecond)
	}
}

func TestTickDispatchesEachReadySource(t *testing.T) {
	sources := &mockSourceRepo{ready: []database.Source{
		{ID: 1, Name: "one", Kind: database.SourceKindRSS},
		{ID: 2, Name: "two", Kind: database.SourceKindBakery},
		{ID: 3, Name: "three", Kind: database.SourceKindRSS},
	}}
	refresher := &blockingRefresher{release: make(chan struct{})}
	s := NewScheduler(sources, refresher, NewLedger(), 5, time.Minute, time.Second)
	defer s.Stop()
	close(refresher.release)

	s.tick()
	waitForStarts(t, refresher, 3)
}

func TestTickSelectFailureSkipped(t *testing.T) {
	sources := &mockSourceRepo{selectErr: context.DeadlineExceeded}
	refresher := &blockingRefresher{release: make(chan struct{})}
	s := NewScheduler(sources, refresher, NewLedger(), 5, time.Minute, time.Second)
	defer s.Stop()

	s.tick()
	time.Sleep(10 * time.Millisecond)
	if got := refresher.started.Load(); got != 0 {
		t.Errorf("Expected no refreshes after a select failure, got %d", got)
	}
}

func TestNextSleepDefaultWhenEmpty(t *testing.T) {
	sources := &mockSourceRepo{nextDueOk: false}
	s := NewScheduler(sources, &blockingRefresher{release: make(chan struct{})}, NewLedger(), 5, time.Minute, time.Second)
	defer s.Stop()

	if got := s.nextSleep(); got != time.Minute {
		t.Errorf("Expected the default sleep, got %s", got)
	}
}

func TestNextSleepDefaultOnError(t *testing.T) {
	sources := &mockSourceRepo{nextDueErr: context.DeadlineExceeded}
	s := NewScheduler(sources, &blockingRefresher{release: make(chan struct{})}, NewLedger(), 5, time.Minute, time.Second)
	defer s.Stop()

	if got := s.nextSleep(); got != time.Minute {
		t.Errorf("Expected the default sleep, got %s", got)
	}
}

func TestNextSleepClampsPastDue(t *testing.T) {
	sources := &mockSourceRepo{nextDue: time.Now().UnixMilli() - 5000, nextDueOk: true}
	s := NewScheduler(sources, &blockingRefresher{release: make(chan struct{})}, NewLedger(), 5, time.Minute, time.Second)
	defer s.Stop()

	if got := s.nextSleep(); got != time.Second {
		t.Errorf("Expected the cooldown alone for a past-due source, got %s", got)
	}
}

func TestNextSleepFutureDue(t *testing.T) {
	sources := &mockSourceRepo{nextDue: time.Now().UnixMilli() + 10000, nextDueOk: true}
	s := NewScheduler(sources, &blockingRefresher{release: make(chan struct{})}, NewLedger(), 5, time.Minute, time.Second)
	defer s.Stop()

	got := s.nextSleep()
	if got < 10*time.Second || got > 12*time.Second {
		t.Errorf("Expected roughly 11s (delta plus cooldown), got %s", got)
	}
}

func TestStopWaitsForInFlight(t *testing.T) {
	sources := &mockSourceRepo{ready: []database.Source{testSource()}}
	refresher := &blockingRefresher{release: make(chan struct{})}
	s := NewScheduler(sources, refresher, NewLedger(), 5, time.Minute, time.Second)

	s.tick()
	waitForStarts(t, refresher, 1)

	// Stop cancels the refresh context, the blocked refresher unblocks on it.
	s.Stop()
	if refresher.finished.Load() != 1 {
		t.Error("Expected Stop to wait for the in-flight refresh")
	}
}
