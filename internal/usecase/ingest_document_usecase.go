package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vdt040499/corrective-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// IngestDocumentUsecase indexes source documents into the vector store.
type IngestDocumentUsecase interface {
	// Upsert chunks, embeds, and persists a document. It is idempotent:
	// re-ingesting unchanged content is a no-op.
	Upsert(ctx context.Context, source, content string) error
}

type ingestDocumentUsecase struct {
	docRepo   domain.DocumentRepository
	chunkRepo domain.ChunkRepository
	txManager domain.TransactionManager
	chunker   domain.Chunker
	encoder   domain.VectorEncoder
}

// NewIngestDocumentUsecase wires the ingestion path.
func NewIngestDocumentUsecase(
	docRepo domain.DocumentRepository,
	chunkRepo domain.ChunkRepository,
	txManager domain.TransactionManager,
	chunker domain.Chunker,
	encoder domain.VectorEncoder,
) IngestDocumentUsecase {
	return &ingestDocumentUsecase{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		txManager: txManager,
		chunker:   chunker,
		encoder:   encoder,
	}
}

func (u *ingestDocumentUsecase) Upsert(ctx context.Context, source, content string) error {
	if source == "" {
		return fmt.Errorf("source is required")
	}
	sourceHash := domain.ContentHash(content)

	return u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		doc, err := u.docRepo.GetBySource(ctx, source)
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}

		var latestVer *domain.DocumentVersion
		if doc != nil && doc.CurrentVersionID != nil {
			latestVer, err = u.docRepo.GetLatestVersion(ctx, doc.ID)
			if err != nil {
				return fmt.Errorf("failed to get latest version: %w", err)
			}
		}

		// Unchanged content: nothing to do.
		if latestVer != nil && latestVer.SourceHash == sourceHash {
			return nil
		}

		chunks, err := u.chunker.Chunk(content)
		if err != nil {
			return fmt.Errorf("failed to chunk content: %w", err)
		}
		if len(chunks) == 0 {
			return fmt.Errorf("document produced no chunks")
		}

		now := time.Now()
		versionID := uuid.New()

		stored := make([]domain.StoredChunk, len(chunks))
		contents := make([]string, len(chunks))
		for i, c := range chunks {
			stored[i] = domain.StoredChunk{
				ID:        uuid.New(),
				VersionID: versionID,
				Ordinal:   c.Ordinal,
				Content:   c.Content,
				CreatedAt: now,
			}
			contents[i] = c.Content
		}

		embeddings, err := u.encoder.Encode(ctx, contents)
		if err != nil {
			return fmt.Errorf("failed to encode chunks: %w", err)
		}
		if len(embeddings) != len(contents) {
			return fmt.Errorf("expected %d embeddings, got %d", len(contents), len(embeddings))
		}
		for i := range stored {
			stored[i].Embedding = pgvector.NewVector(embeddings[i])
		}

		if doc == nil {
			doc = &domain.DocumentRecord{
				ID:        uuid.New(),
				Source:    source,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := u.docRepo.Create(ctx, doc); err != nil {
				return fmt.Errorf("failed to create document: %w", err)
			}
		}

		version := &domain.DocumentVersion{
			ID:              versionID,
			DocumentID:      doc.ID,
			VersionNumber:   1,
			SourceHash:      sourceHash,
			ChunkerVersion:  string(u.chunker.Version()),
			EmbedderVersion: u.encoder.Version(),
			CreatedAt:       now,
		}
		if latestVer != nil {
			version.VersionNumber = latestVer.VersionNumber + 1
		}
		if err := u.docRepo.CreateVersion(ctx, version); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}

		if err := u.chunkRepo.BulkInsert(ctx, stored); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}

		if err := u.docRepo.UpdateCurrentVersion(ctx, doc.ID, versionID); err != nil {
			return fmt.Errorf("failed to update current version: %w", err)
		}

		return nil
	})
}
