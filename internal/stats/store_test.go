package stats

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []RunStats
	delay time.Duration
}

func (r *recordingSaver) save(ctx context.Context, _ string, stats RunStats) error {
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, stats)
	return nil
}

func TestPeriodicSaveWaitsForFinalSnapshot(t *testing.T) {
	saver := &recordingSaver{delay: 50 * time.Millisecond}
	s := &Store{logger: slog.Default(), save: saver.save}
	agg := NewAggregator()
	agg.Record(extractor.Summary{Patterns: 4, Duration: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	wait := s.StartPeriodicSave(ctx, "run-1", agg, time.Hour)
	cancel()
	wait()

	saver.mu.Lock()
	defer saver.mu.Unlock()
	if len(saver.saved) != 1 {
		t.Fatalf("saved %d snapshots before wait returned, want 1", len(saver.saved))
	}
	if got := saver.saved[0]; got.Sentences != 1 || got.Patterns != 4 {
		t.Errorf("final snapshot = %+v", got)
	}
}

func TestPeriodicSaveSnapshotsOnEveryTick(t *testing.T) {
	saver := &recordingSaver{}
	s := &Store{logger: slog.Default(), save: saver.save}

	ctx, cancel := context.WithCancel(context.Background())
	wait := s.StartPeriodicSave(ctx, "run-1", NewAggregator(), 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	cancel()
	wait()

	saver.mu.Lock()
	defer saver.mu.Unlock()
	if len(saver.saved) < 2 {
		t.Errorf("saved %d snapshots, want periodic ones plus the final one", len(saver.saved))
	}
}
