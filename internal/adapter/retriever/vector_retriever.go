package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vdt040499/corrective-rag/internal/domain"
)

// VectorRetriever answers queries by embedding them and searching the chunk
// store for nearest neighbours.
type VectorRetriever struct {
	encoder domain.VectorEncoder
	chunks  domain.ChunkRepository
	logger  *slog.Logger
}

func NewVectorRetriever(encoder domain.VectorEncoder, chunks domain.ChunkRepository, logger *slog.Logger) *VectorRetriever {
	return &VectorRetriever{
		encoder: encoder,
		chunks:  chunks,
		logger:  logger,
	}
}

// Retrieve returns the k chunks nearest to the query, best first.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Document, error) {
	start := time.Now()

	vectors, err := r.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}

	hits, err := r.chunks.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	docs := make([]domain.Document, len(hits))
	for i, hit := range hits {
		docs[i] = domain.Document{
			ID:      hit.Chunk.ID,
			Content: hit.Chunk.Content,
			Source:  hit.Source,
			Score:   hit.Score,
		}
	}

	r.logger.Debug("vector_search_completed",
		slog.Int("requested", k),
		slog.Int("hits", len(hits)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return docs, nil
}

var _ domain.Retriever = (*VectorRetriever)(nil)
