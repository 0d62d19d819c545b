package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL,
    data        JSONB NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const runIndex = `CREATE INDEX IF NOT EXISTS extraction_runs_run_id_idx
    ON extraction_runs (run_id, captured_at DESC)`

// Run is one persisted snapshot of a run's statistics.
type Run struct {
	RunID      string    `json:"run_id"`
	Stats      RunStats  `json:"stats"`
	CapturedAt time.Time `json:"captured_at"`
}

// Store persists run snapshots in the extraction_runs table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
	save   func(ctx context.Context, runID string, stats RunStats) error
}

// NewStore returns a Store over db. Call EnsureSchema before saving.
func NewStore(db *postgres.Client) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "stats-store"),
	}
	s.save = s.SaveRun
	return s
}

// EnsureSchema creates the extraction_runs table and its index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{schema, runIndex} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("creating extraction_runs schema: %w", err)
			}
		}
		return nil
	})
}

// SaveRun inserts one snapshot of stats for runID.
func (s *Store) SaveRun(ctx context.Context, runID string, stats RunStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling run stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO extraction_runs (run_id, data, captured_at) VALUES ($1, $2, $3)`,
		runID, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", runID, err)
	}
	s.logger.Info("run stats saved",
		"run_id", runID,
		"sentences", stats.Sentences,
		"patterns", stats.Patterns,
	)
	return nil
}

// LatestRun returns the newest snapshot of any run, or nil if none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	run := Run{}
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT run_id, data, captured_at FROM extraction_runs ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&run.RunID, &data, &run.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	if err := json.Unmarshal(data, &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshaling run stats: %w", err)
	}
	return &run, nil
}

// ListRuns returns the snapshots of runID, newest first.
func (s *Store) ListRuns(ctx context.Context, runID string, limit int) ([]Run, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data, captured_at FROM extraction_runs WHERE run_id = $1 ORDER BY captured_at DESC LIMIT $2`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run := Run{RunID: runID}
		var data []byte
		if err := rows.Scan(&data, &run.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if err := json.Unmarshal(data, &run.Stats); err != nil {
			s.logger.Warn("skipping corrupt run snapshot", "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StartPeriodicSave snapshots agg every interval until ctx is cancelled,
// then writes one final snapshot. The returned wait blocks until that final
// snapshot is written; call it before closing the database.
func (s *Store) StartPeriodicSave(ctx context.Context, runID string, agg *Aggregator, interval time.Duration) (wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.save(ctx, runID, agg.Stats()); err != nil {
					s.logger.Error("periodic run snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.save(shutdownCtx, runID, agg.Stats()); err != nil {
					s.logger.Error("final run snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic run snapshot started", "run_id", runID, "interval", interval)
	return func() { <-done }
}
