package repository

import (
	"context"
	"fmt"

	"github.com/vdt040499/corrective-rag/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type chunkRepository struct {
	pool *pgxpool.Pool
}

// NewChunkRepository creates a Postgres-backed ChunkRepository.
func NewChunkRepository(pool *pgxpool.Pool) domain.ChunkRepository {
	return &chunkRepository{pool: pool}
}

type chunkExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *chunkRepository) getExecutor(ctx context.Context) chunkExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *chunkRepository) BulkInsert(ctx context.Context, chunks []domain.StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(chunks))
	for i, chunk := range chunks {
		rows[i] = []interface{}{
			chunk.ID,
			chunk.VersionID,
			chunk.Ordinal,
			chunk.Content,
			chunk.Embedding,
			chunk.CreatedAt,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"document_chunks"},
		[]string{"id", "version_id", "ordinal", "content", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert chunks: %w", err)
	}
	return nil
}

// Search runs cosine-similarity search over chunks of current document
// versions only; superseded versions stay invisible to retrieval.
func (r *chunkRepository) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ChunkSearchHit, error) {
	query := `
		SELECT c.id, c.version_id, c.ordinal, c.content, c.embedding, c.created_at,
		       d.source, 1 - (c.embedding <=> $1) AS score
		FROM document_chunks c
		JOIN documents d ON d.current_version_id = c.version_id
		ORDER BY c.embedding <=> $1
		LIMIT $2
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.ChunkSearchHit
	for rows.Next() {
		var hit domain.ChunkSearchHit
		if err := rows.Scan(
			&hit.Chunk.ID,
			&hit.Chunk.VersionID,
			&hit.Chunk.Ordinal,
			&hit.Chunk.Content,
			&hit.Chunk.Embedding,
			&hit.Chunk.CreatedAt,
			&hit.Source,
			&hit.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return hits, nil
}

func (r *chunkRepository) Count(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM document_chunks c
		JOIN documents d ON d.current_version_id = c.version_id
	`
	var count int64
	if err := r.getExecutor(ctx).QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
