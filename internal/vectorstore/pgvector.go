package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGVectorStore stores a collection as a Postgres table with a vector(n)
// column and searches it with the cosine distance operator.
type PGVectorStore struct {
	db    *pgxpool.Pool
	table string
}

var _ Store = (*PGVectorStore)(nil)

func NewPGVectorStore(ctx context.Context, databaseURL, collection string) (*PGVectorStore, error) {
	if !collectionNameRe.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PGVectorStore{
		db:    pool,
		table: pgx.Identifier{collection}.Sanitize(),
	}, nil
}

func (s *PGVectorStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PGVectorStore) Reset(ctx context.Context, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("reset %s: dims must be positive, got %d", s.table, dims)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback(ctx)

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table),
		fmt.Sprintf(`CREATE TABLE %s (
			id TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			metadata JSONB NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.table, dims),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset %s: %w", s.table, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PGVectorStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	dims := len(records[0].Vector)
	batch := &pgx.Batch{}
	for _, r := range records {
		if len(r.Vector) != dims {
			return fmt.Errorf("record %s: %w: got %d, want %d", r.ID, ErrDimensionMismatch, len(r.Vector), dims)
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		batch.Queue(fmt.Sprintf(
			`INSERT INTO %s (id, body, metadata, embedding) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`,
			s.table),
			r.ID, r.Body, string(meta), pgvector.NewVector(r.Vector),
		)
	}

	br := s.db.SendBatch(ctx, batch)
	for _, r := range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return br.Close()
}

func (s *PGVectorStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT id, body, metadata::text, 1 - (embedding <=> $1) AS score
		FROM %s ORDER BY embedding <=> $1 LIMIT $2`, s.table),
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		if isDimensionError(err) {
			return nil, fmt.Errorf("query: %w: %v", ErrDimensionMismatch, err)
		}
		return nil, fmt.Errorf("search %s: %w", s.table, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta string
		)
		if err := rows.Scan(&m.ID, &m.Body, &meta, &m.Score); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		if isDimensionError(err) {
			return nil, fmt.Errorf("query: %w: %v", ErrDimensionMismatch, err)
		}
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return matches, nil
}

// isDimensionError matches pgvector's "different vector dimensions" error.
func isDimensionError(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "22000"
}
