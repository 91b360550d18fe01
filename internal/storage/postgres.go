package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/facewatch/internal/config"
	"github.com/your-org/facewatch/internal/models"
)

// DetectionArchive is an optional Postgres mirror of detection events with
// pgvector embeddings, used for similarity search over past detections.
// The per-day JSON log files remain the source of truth for log listings.
type DetectionArchive struct {
	pool *pgxpool.Pool
}

func NewDetectionArchive(cfg config.DatabaseConfig) (*DetectionArchive, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DetectionArchive{pool: pool}, nil
}

// EnsureSchema creates the detections table and vector extension.
func (a *DetectionArchive) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS detections (
			id BIGSERIAL PRIMARY KEY,
			camera TEXT NOT NULL,
			identity TEXT NOT NULL,
			confidence REAL NOT NULL,
			bounding_box JSONB NOT NULL,
			snapshot TEXT,
			embedding vector(512),
			detected_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS detections_camera_detected_at_idx
			ON detections (camera, detected_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure detections schema: %w", err)
		}
	}
	return nil
}

// Insert archives one detection event.
func (a *DetectionArchive) Insert(ctx context.Context, ev models.DetectionEvent) error {
	box, err := json.Marshal(ev.BoundingBox)
	if err != nil {
		return fmt.Errorf("marshal bounding box: %w", err)
	}

	var vec *pgvector.Vector
	if len(ev.Embedding) > 0 {
		v := pgvector.NewVector(ev.Embedding)
		vec = &v
	}

	_, err = a.pool.Exec(ctx,
		`INSERT INTO detections (camera, identity, confidence, bounding_box, snapshot, embedding, detected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.Camera, ev.Identity.Name, ev.Identity.Confidence, box, ev.Snapshot, vec, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

// ArchiveMatch is one similarity-search result over archived detections.
type ArchiveMatch struct {
	Camera     string    `json:"camera"`
	Identity   string    `json:"identity"`
	Score      float32   `json:"score"`
	Snapshot   string    `json:"snapshot,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// Search finds archived detections whose embeddings are closest to the given
// embedding, above threshold, ordered by similarity.
func (a *DetectionArchive) Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]ArchiveMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := a.pool.Query(ctx,
		`SELECT camera, identity, 1 - (embedding <=> $1) AS score, snapshot, detected_at
		 FROM detections
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search detections: %w", err)
	}
	defer rows.Close()

	var matches []ArchiveMatch
	for rows.Next() {
		var m ArchiveMatch
		if err := rows.Scan(&m.Camera, &m.Identity, &m.Score, &m.Snapshot, &m.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan detection match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (a *DetectionArchive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

func (a *DetectionArchive) Close() {
	a.pool.Close()
}
