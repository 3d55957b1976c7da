package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dgallion1/policyrag/internal/doctree"
	"github.com/dgallion1/policyrag/internal/embedding"
	"github.com/dgallion1/policyrag/internal/retry"
)

// Indexer embeds text units in batches and writes them to a Store.
type Indexer struct {
	store     Store
	embedder  embedding.Embedder
	limiter   *rate.Limiter
	batchSize int
	log       *slog.Logger
}

// NewIndexer limits embedding calls to ratePerSec batches per second.
func NewIndexer(store Store, embedder embedding.Embedder, batchSize int, ratePerSec float64, log *slog.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = 64
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Indexer{
		store:     store,
		embedder:  embedder,
		limiter:   rate.NewLimiter(limit, 1),
		batchSize: batchSize,
		log:       log,
	}
}

// Reset empties the collection for a full reload.
func (ix *Indexer) Reset(ctx context.Context) error {
	return ix.store.Reset(ctx, ix.embedder.Dimensions())
}

// Index embeds and stores units, calling progress after every batch with
// the number stored so far. It returns the number of units stored.
func (ix *Indexer) Index(ctx context.Context, units []doctree.TextUnit, progress func(done int)) (int, error) {
	stored := 0
	for start := 0; start < len(units); start += ix.batchSize {
		end := min(start+ix.batchSize, len(units))
		batch := units[start:end]

		texts := make([]string, len(batch))
		for i, u := range batch {
			texts[i] = u.Body
		}

		if err := ix.limiter.Wait(ctx); err != nil {
			return stored, err
		}
		var vectors [][]float32
		err := retry.Do(ctx, ix.log, "embed", func(ctx context.Context) error {
			var err error
			vectors, err = ix.embedder.EmbedBatch(ctx, texts)
			return err
		})
		if err != nil {
			return stored, fmt.Errorf("embed units %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return stored, fmt.Errorf("embed units %d-%d: got %d vectors", start, end-1, len(vectors))
		}

		records := make([]Record, len(batch))
		for i, u := range batch {
			records[i] = Record{
				ID:       uuid.NewString(),
				Vector:   vectors[i],
				Body:     u.Body,
				Metadata: u.Metadata,
			}
		}
		if err := ix.store.Upsert(ctx, records); err != nil {
			return stored, fmt.Errorf("store units %d-%d: %w", start, end-1, err)
		}
		stored += len(records)
		ix.log.Debug("indexed batch", "stored", stored, "total", len(units))
		if progress != nil {
			progress(stored)
		}
	}
	return stored, nil
}
