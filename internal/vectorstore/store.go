package vectorstore

import (
	"context"
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// collection's dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record is one stored text unit with its embedding.
type Record struct {
	ID       string
	Vector   []float32
	Body     string
	Metadata map[string]any
}

// Match is a search hit. Score is cosine similarity, higher is closer.
type Match struct {
	ID       string         `json:"id"`
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// FileName returns the "file_name" metadata value, or "".
func (m Match) FileName() string {
	name, _ := m.Metadata["file_name"].(string)
	return name
}

// Store is a single named collection of vectors.
type Store interface {
	// Reset drops the collection and recreates it empty for dims-sized vectors.
	Reset(ctx context.Context, dims int) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Close() error
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
