package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// History persists window stats to a SQLite database so runs can be
// compared after the fact. A nil *History is valid and records nothing.
type History struct {
	db    *sql.DB
	runID string
}

// OpenHistory opens or creates the database at path. Rows written through
// the returned handle are tagged with runID.
func OpenHistory(path, runID string) (*History, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stats_history (
			run_id TEXT NOT NULL,
			window_start INTEGER NOT NULL,
			window_end INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			consumables INTEGER NOT NULL,
			resources INTEGER NOT NULL,
			births INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			deaths_starvation INTEGER NOT NULL,
			deaths_old_age INTEGER NOT NULL,
			deaths_contest INTEGER NOT NULL,
			mean_lifespan REAL NOT NULL,
			max_generation INTEGER NOT NULL,
			energy_mean REAL NOT NULL,
			diversity REAL NOT NULL,
			dominant_algorithm TEXT NOT NULL,
			PRIMARY KEY (run_id, window_end)
		);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing history schema: %w", err)
		}
	}

	return &History{db: db, runID: runID}, nil
}

// RunID returns the tag applied to rows from this handle.
func (h *History) RunID() string {
	if h == nil {
		return ""
	}
	return h.runID
}

// RecordRun stores the seed for this run. Re-recording replaces it.
func (h *History) RecordRun(ctx context.Context, seed int64) error {
	if h == nil {
		return nil
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, seed) VALUES (?, ?)`, h.runID, seed)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Record writes one window. A window with the same end tick replaces the
// earlier row.
func (h *History) Record(ctx context.Context, s WindowStats) error {
	if h == nil {
		return nil
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO stats_history
		(run_id, window_start, window_end, agents, consumables, resources, births, deaths,
		 deaths_starvation, deaths_old_age, deaths_contest, mean_lifespan, max_generation,
		 energy_mean, diversity, dominant_algorithm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.runID, s.WindowStartTick, s.WindowEndTick, s.Agents, s.Consumables, s.Resources,
		s.Births, s.Deaths, s.DeathsStarvation, s.DeathsOldAge, s.DeathsContest,
		s.MeanLifespan, s.MaxGeneration, s.EnergyMean, s.Diversity, s.DominantAlgorithm,
	)
	if err != nil {
		return fmt.Errorf("recording window %d: %w", s.WindowEndTick, err)
	}
	return nil
}

// Load returns this run's windows ending within [fromTick, toTick], oldest
// first. limit <= 0 means no limit.
func (h *History) Load(ctx context.Context, fromTick, toTick uint64, limit int) ([]WindowStats, error) {
	if h == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT window_start, window_end, agents, consumables, resources, births, deaths,
		 deaths_starvation, deaths_old_age, deaths_contest, mean_lifespan, max_generation,
		 energy_mean, diversity, dominant_algorithm
		 FROM stats_history WHERE run_id = ? AND window_end >= ? AND window_end <= ?
		 ORDER BY window_end ASC LIMIT ?`,
		h.runID, fromTick, toTick, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	var out []WindowStats
	for rows.Next() {
		var s WindowStats
		if err := rows.Scan(&s.WindowStartTick, &s.WindowEndTick, &s.Agents, &s.Consumables, &s.Resources,
			&s.Births, &s.Deaths, &s.DeathsStarvation, &s.DeathsOldAge, &s.DeathsContest,
			&s.MeanLifespan, &s.MaxGeneration, &s.EnergyMean, &s.Diversity, &s.DominantAlgorithm); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		s.DeathsOther = s.Deaths - s.DeathsStarvation - s.DeathsOldAge - s.DeathsContest
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (h *History) Close() error {
	if h == nil {
		return nil
	}
	return h.db.Close()
}
