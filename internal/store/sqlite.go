package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// SQLite stores reports in a single database file.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (creating if needed) the database at path, enables WAL
// mode and applies the schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent inserts
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	logger := slog.Default().With("component", "store.sqlite")
	logger.Info("SQLite store initialized", "path", path)

	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) SaveReport(ctx context.Context, r *Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, created_at, file_name, kind, ai_probability, owner_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
	`, r.ID, r.CreatedAt.UnixMilli(), r.FileName, string(r.Kind), r.AIProbability, r.OwnerID, r.Payload)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *SQLite) GetReport(ctx context.Context, id string) (*Report, error) {
	var (
		r       Report
		created int64
		kind    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, file_name, kind, ai_probability, owner_id, payload
		FROM reports WHERE id = ?
	`, id).Scan(&r.ID, &created, &r.FileName, &kind, &r.AIProbability, &r.OwnerID, &r.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.Kind = detector.ContentKind(kind)
	return &r, nil
}

func (s *SQLite) PruneReports(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) InsertDetections(ctx context.Context, events []DetectionEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin detections batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO detections
			(id, time, kind, source, ai_probability, confidence, risk_band, processing_time, fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare detections insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Time.UnixMilli(), string(e.Kind), e.Source,
			e.AIProbability, e.Confidence, e.RiskBand, e.ProcessingTime, e.Fallback); err != nil {
			return fmt.Errorf("failed to insert detection %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit detections batch: %w", err)
	}
	return nil
}

func (s *SQLite) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(fallback), 0),
			COALESCE(AVG(ai_probability), 0),
			COALESCE(AVG(confidence), 0)
		FROM detections
	`).Scan(&st.TotalDetections, &st.Fallbacks, &st.AvgProbability, &st.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to get detection stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&st.TotalReports); err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*), AVG(ai_probability) FROM detections GROUP BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get kind breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k KindStats
		var kind string
		if err := rows.Scan(&kind, &k.Count, &k.AvgProbability); err != nil {
			return nil, fmt.Errorf("failed to scan kind breakdown: %w", err)
		}
		k.Kind = detector.ContentKind(kind)
		st.ByKind = append(st.ByKind, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	riskRows, err := s.db.QueryContext(ctx, `SELECT risk_band, COUNT(*) FROM detections GROUP BY risk_band`)
	if err != nil {
		return nil, fmt.Errorf("failed to get risk breakdown: %w", err)
	}
	defer riskRows.Close()
	for riskRows.Next() {
		var r RiskStats
		if err := riskRows.Scan(&r.Band, &r.Count); err != nil {
			return nil, fmt.Errorf("failed to scan risk breakdown: %w", err)
		}
		st.ByRisk = append(st.ByRisk, r)
	}
	if err := riskRows.Err(); err != nil {
		return nil, err
	}

	sortStats(st)
	return st, nil
}

func (s *SQLite) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
