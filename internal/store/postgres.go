package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/config"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
)

// Postgres wraps the PostgreSQL connection pool
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres creates the connection pool and applies the schema
func NewPostgres(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	return NewPostgresURL(ctx, cfg.DatabaseURL(), cfg.PostgresMaxConns)
}

// NewPostgresURL connects using an explicit connection string
func NewPostgresURL(ctx context.Context, url string, maxConns int) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

func (db *Postgres) SaveReport(ctx context.Context, r *Report) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO reports (id, created_at, file_name, kind, ai_probability, owner_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload
	`, r.ID, r.CreatedAt, r.FileName, string(r.Kind), r.AIProbability, r.OwnerID, r.Payload)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (db *Postgres) GetReport(ctx context.Context, id string) (*Report, error) {
	var (
		r    Report
		kind string
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT id, created_at, file_name, kind, ai_probability, owner_id, payload
		FROM reports
		WHERE id = $1
	`, id).Scan(&r.ID, &r.CreatedAt, &r.FileName, &kind, &r.AIProbability, &r.OwnerID, &r.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	r.Kind = detector.ContentKind(kind)
	return &r, nil
}

func (db *Postgres) PruneReports(ctx context.Context, before time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM reports WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertDetections sends the events as one batch
func (db *Postgres) InsertDetections(ctx context.Context, events []DetectionEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO detections (id, time, kind, source, ai_probability, confidence, risk_band, processing_time, fallback)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, e.ID, e.Time, string(e.Kind), e.Source, e.AIProbability, e.Confidence, e.RiskBand, e.ProcessingTime, e.Fallback)
	}

	if err := db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert detections: %w", err)
	}
	return nil
}

func (db *Postgres) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE fallback),
			COALESCE(AVG(ai_probability), 0),
			COALESCE(AVG(confidence), 0),
			(SELECT COUNT(*) FROM reports)
		FROM detections
	`).Scan(&st.TotalDetections, &st.Fallbacks, &st.AvgProbability, &st.AvgConfidence, &st.TotalReports)
	if err != nil {
		return nil, fmt.Errorf("failed to get detection stats: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT kind, COUNT(*), AVG(ai_probability)
		FROM detections
		GROUP BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get kind breakdown: %w", err)
	}
	for rows.Next() {
		var k KindStats
		var kind string
		if err := rows.Scan(&kind, &k.Count, &k.AvgProbability); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan kind breakdown: %w", err)
		}
		k.Kind = detector.ContentKind(kind)
		st.ByKind = append(st.ByKind, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Pool.Query(ctx, `
		SELECT risk_band, COUNT(*)
		FROM detections
		GROUP BY risk_band
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get risk breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r RiskStats
		if err := rows.Scan(&r.Band, &r.Count); err != nil {
			return nil, fmt.Errorf("failed to scan risk breakdown: %w", err)
		}
		st.ByRisk = append(st.ByRisk, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortStats(st)
	return st, nil
}

// HealthCheck performs a database health check
func (db *Postgres) HealthCheck(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (db *Postgres) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	return nil
}
