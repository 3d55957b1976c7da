package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	_ "modernc.org/sqlite"
)

var collectionNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps vectors as little-endian float32 blobs and scores them
// by brute-force cosine similarity.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	collection string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) <dir>/vectors.db.
func NewSQLiteStore(dir, collection string) (*SQLiteStore, error) {
	if !collectionNameRe.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "vectors.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath, collection: collection}
	if err := s.ensureMeta(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) ensureMeta(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dims INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating collections table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("reset %s: dims must be positive, got %d", s.collection, dims)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %q`, s.collection),
		fmt.Sprintf(`CREATE TABLE %q (
			id TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			metadata TEXT NOT NULL,
			embedding BLOB NOT NULL
		)`, s.collection),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset %s: %w", s.collection, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, dims) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET dims = excluded.dims`,
		s.collection, dims,
	); err != nil {
		return fmt.Errorf("record dims: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) dims(ctx context.Context) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx, `SELECT dims FROM collections WHERE name = ?`, s.collection).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("collection %s does not exist; run a load first", s.collection)
	}
	if err != nil {
		return 0, fmt.Errorf("read dims: %w", err)
	}
	return dims, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	dims, err := s.dims(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (id, body, metadata, embedding) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, metadata = excluded.metadata, embedding = excluded.embedding`,
		s.collection))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if len(r.Vector) != dims {
			return fmt.Errorf("record %s: %w: got %d, want %d", r.ID, ErrDimensionMismatch, len(r.Vector), dims)
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Body, string(meta), float32SliceToBytes(r.Vector)); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	dims, err := s.dims(ctx)
	if err != nil {
		return nil, err
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("query: %w: got %d, want %d", ErrDimensionMismatch, len(vector), dims)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, body, metadata, embedding FROM %q`, s.collection))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta string
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.Body, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
		}
		m.Score = cosine(vector, bytesToFloat32Slice(blob))
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of records in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, s.collection)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.collection, err)
	}
	return n, nil
}

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
